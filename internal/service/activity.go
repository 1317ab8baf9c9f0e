package service

import (
	"context"
	"fmt"
	"time"

	"gymnotifier/internal/entity"
)

const (
	_defaultActivityLimit = 20
	_maxActivityLimit     = 100
)

// RecentActivity projects recent record state into a human-readable
// feed, most recent first. The verb is derived from the furthest state
// the record reached; nothing is stored.
func (s *NotifyService) RecentActivity(ctx context.Context, limit int) ([]entity.ActivityEntry, error) {
	const op = "service.NotifyService.RecentActivity"

	if limit <= 0 {
		limit = _defaultActivityLimit
	}
	if limit > _maxActivityLimit {
		limit = _maxActivityLimit
	}

	sources, err := s.store.RecentActivity(ctx, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	entries := make([]entity.ActivityEntry, 0, len(sources))
	for _, src := range sources {
		what, when := activityVerb(src)
		entries = append(entries, entity.ActivityEntry{
			ID:     src.ID,
			Who:    src.UserName,
			What:   what,
			Detail: src.Title,
			Time:   when,
		})
	}

	return entries, nil
}

// activityVerb picks the most specific verb the record's timestamps
// support, with its moment. Falls back to creation time for records
// still waiting on a schedule.
func activityVerb(src entity.ActivitySource) (string, time.Time) {
	switch {
	case src.UnsubscribedAt != nil:
		return "Unsubscribed", *src.UnsubscribedAt
	case src.ClickedAt != nil:
		return "Clicked", *src.ClickedAt
	case src.Read && src.OpenedAt != nil:
		return "Opened", *src.OpenedAt
	case src.Read && src.ReadAt != nil:
		return "Opened", *src.ReadAt
	case src.SentAt != nil:
		return "Sent", *src.SentAt
	default:
		return "Scheduled", src.CreatedAt
	}
}
