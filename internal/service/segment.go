package service

import (
	"context"
	"fmt"

	"gymnotifier/internal/entity"

	"github.com/google/uuid"
)

var segmentDescriptions = map[entity.Segment]string{
	entity.SegmentAll:      "Every registered member",
	entity.SegmentNew:      "Members who joined in the last 30 days",
	entity.SegmentInactive: "Members whose account is inactive",
	entity.SegmentTrial:    "Members on a trial membership",
	entity.SegmentVIP:      "Members with an assigned personal trainer",
}

// SegmentInfo is one row of the /segments lookup.
type SegmentInfo struct {
	Name        entity.Segment `json:"name"`
	Description string         `json:"description"`
	Count       int64          `json:"count"`
}

// ResolveSegment expands a segment name to concrete recipient ids at
// call time. A member added after a campaign was dispatched does not
// retroactively receive it. The engine refuses a zero-recipient
// audience outright.
func (s *NotifyService) ResolveSegment(ctx context.Context, segment entity.Segment) ([]uuid.UUID, error) {
	const op = "service.NotifyService.ResolveSegment"

	if !segment.IsValid() {
		return nil, fmt.Errorf("%s: %q: %w", op, segment, entity.ErrInvalidSegment)
	}

	ids, err := s.users.SegmentIDs(ctx, segment, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(ids) == 0 {
		return nil, fmt.Errorf("%s: %q: %w", op, segment, entity.ErrEmptySegment)
	}

	return ids, nil
}

// Segments lists every known segment with its live member count.
func (s *NotifyService) Segments(ctx context.Context) ([]SegmentInfo, error) {
	const op = "service.NotifyService.Segments"

	counts, err := s.users.SegmentCounts(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	infos := make([]SegmentInfo, 0, len(counts))
	for _, seg := range entity.Segments() {
		infos = append(infos, SegmentInfo{
			Name:        seg,
			Description: segmentDescriptions[seg],
			Count:       counts[seg],
		})
	}

	return infos, nil
}
