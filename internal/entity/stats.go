package entity

import (
	"time"

	"github.com/google/uuid"
)

// RecipientStats is the per-user breakdown behind /notifications/:id/stats.
type RecipientStats struct {
	Total        int64             `json:"total"`
	Unread       int64             `json:"unread"`
	Read         int64             `json:"read"`
	Opened       int64             `json:"opened"`
	Clicked      int64             `json:"clicked"`
	Unsubscribed int64             `json:"unsubscribed"`
	ByType       map[Type]int64    `json:"byType"`
	ByChannel    map[Channel]int64 `json:"byChannel"`
}

// DeliveryCounts are raw aggregate counts over a record scope. Rates are
// derived from these at read time, never stored.
type DeliveryCounts struct {
	Sent         int64
	Opened       int64
	Clicked      int64
	Unsubscribed int64
}

// CampaignStats carries counts plus percentage rates (one decimal).
// A zero-sent scope yields zero rates, not an error.
type CampaignStats struct {
	Campaign     string  `json:"campaign,omitempty"`
	Sent         int64   `json:"sent"`
	Opened       int64   `json:"opened"`
	Clicked      int64   `json:"clicks"`
	Unsubscribed int64   `json:"unsubs"`
	OpenRate     float64 `json:"openRate"`
	ClickRate    float64 `json:"clickRate"`
	UnsubRate    float64 `json:"unsubRate"`
}

// ActivitySource is the raw row the activity projector derives a feed
// entry from.
type ActivitySource struct {
	ID             uuid.UUID
	UserName       string
	Title          string
	Read           bool
	SentAt         *time.Time
	ReadAt         *time.Time
	OpenedAt       *time.Time
	ClickedAt      *time.Time
	UnsubscribedAt *time.Time
	CreatedAt      time.Time
}

// ActivityEntry is one line of the recent-activity feed.
type ActivityEntry struct {
	ID     uuid.UUID `json:"id"`
	Who    string    `json:"who"`
	What   string    `json:"what"`
	Detail string    `json:"detail"`
	Time   time.Time `json:"time"`
}
