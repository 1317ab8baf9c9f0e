package entity

import (
	"time"

	"github.com/google/uuid"
)

type (
	Channel  string
	Type     string
	Priority string
	Segment  string
)

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
	ChannelInApp Channel = "inapp"

	TypeInfo     Type = "info"
	TypeWarning  Type = "warning"
	TypeError    Type = "error"
	TypeSuccess  Type = "success"
	TypeActivity Type = "activity"

	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"

	SegmentAll      Segment = "all"
	SegmentNew      Segment = "new"
	SegmentInactive Segment = "inactive"
	SegmentTrial    Segment = "trial"
	SegmentVIP      Segment = "vip"
)

const (
	TitleMinLen   = 3
	TitleMaxLen   = 100
	MessageMaxLen = 500

	// NewMemberWindow is the trailing window the "new" segment looks at.
	NewMemberWindow = 30 * 24 * time.Hour
)

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush, ChannelInApp:
		return true
	}
	return false
}

// External reports whether the channel requires an outbound transport.
// In-app delivery is the record itself.
func (c Channel) External() bool {
	return c.IsValid() && c != ChannelInApp
}

func (t Type) IsValid() bool {
	switch t {
	case TypeInfo, TypeWarning, TypeError, TypeSuccess, TypeActivity:
		return true
	}
	return false
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

func (s Segment) IsValid() bool {
	switch s {
	case SegmentAll, SegmentNew, SegmentInactive, SegmentTrial, SegmentVIP:
		return true
	}
	return false
}

func Segments() []Segment {
	return []Segment{SegmentAll, SegmentNew, SegmentInactive, SegmentTrial, SegmentVIP}
}

// Notification is one delivery record: one message to one recipient.
// Timestamps are monotonic; a transition never resets one to nil.
type Notification struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user"`
	Title          string     `json:"title"`
	Message        string     `json:"message"`
	Type           Type       `json:"type"`
	Priority       Priority   `json:"priority"`
	Channels       []Channel  `json:"channels"`
	Segment        Segment    `json:"segment,omitempty"`
	Link           string     `json:"link,omitempty"`
	Template       string     `json:"template,omitempty"`
	Campaign       string     `json:"campaign,omitempty"`
	Read           bool       `json:"read"`
	ScheduledAt    *time.Time `json:"schedule,omitempty"`
	SentAt         *time.Time `json:"sentAt,omitempty"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
	OpenedAt       *time.Time `json:"openedAt,omitempty"`
	ClickedAt      *time.Time `json:"clickedAt,omitempty"`
	UnsubscribedAt *time.Time `json:"unsubscribedAt,omitempty"`
	TransportError string     `json:"transportError,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// ExternalChannels returns the channels that need an outbound send.
func (n *Notification) ExternalChannels() []Channel {
	var out []Channel
	for _, c := range n.Channels {
		if c.External() {
			out = append(out, c)
		}
	}
	return out
}

// DeliveryMessage is what the dispatcher hands to the broker for one
// record on one external channel.
type DeliveryMessage struct {
	NotificationID uuid.UUID `json:"notification_id"`
	UserID         uuid.UUID `json:"user_id"`
	Channel        Channel   `json:"channel"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	Link           string    `json:"link,omitempty"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	TelegramChatID int64     `json:"telegram_chat_id,omitempty"`
}

// Template is a canned message operators can start a campaign from.
type Template struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    Type   `json:"type"`
}
