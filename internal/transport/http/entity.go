package httpt

import (
	"time"

	"gymnotifier/internal/entity"
)

// swagger:model CreateNotificationRequest
type createNotificationRequest struct {
	User     string     `json:"user"     binding:"required,uuid"`
	Title    string     `json:"title"    binding:"required,min=3,max=100"`
	Message  string     `json:"message"  binding:"required,max=500"`
	Type     string     `json:"type"`
	Priority string     `json:"priority"`
	Link     string     `json:"link"`
	Channels []string   `json:"channels"`
	Segment  string     `json:"segment"`
	Schedule *time.Time `json:"schedule"`
	Template string     `json:"template"`
	Campaign string     `json:"campaign"`
}

// swagger:model BulkSendRequest
type bulkSendRequest struct {
	Users    []string   `json:"users"    binding:"required,min=1,dive,uuid"`
	Title    string     `json:"title"    binding:"required,min=3,max=100"`
	Message  string     `json:"message"  binding:"required,max=500"`
	Type     string     `json:"type"`
	Priority string     `json:"priority"`
	Link     string     `json:"link"`
	Channels []string   `json:"channels"`
	Schedule *time.Time `json:"schedule"`
	Template string     `json:"template"`
	Campaign string     `json:"campaign"`
}

// swagger:model SegmentSendRequest
type segmentSendRequest struct {
	Segment  string     `json:"segment"  binding:"required"`
	Title    string     `json:"title"    binding:"required,min=3,max=100"`
	Message  string     `json:"message"  binding:"required,max=500"`
	Type     string     `json:"type"`
	Priority string     `json:"priority"`
	Link     string     `json:"link"`
	Channels []string   `json:"channels"`
	Schedule *time.Time `json:"schedule"`
	Template string     `json:"template"`
	Campaign string     `json:"campaign"`
}

// swagger:model NotificationListResponse
type listResponse struct {
	Notifications []entity.Notification `json:"notifications"`
	Total         int64                 `json:"total"`
	Page          uint64                `json:"page"`
	Pages         uint64                `json:"pages"`
}

// swagger:model ErrorResponse
type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func toChannels(raw []string) []entity.Channel {
	channels := make([]entity.Channel, 0, len(raw))
	for _, c := range raw {
		channels = append(channels, entity.Channel(c))
	}
	return channels
}
