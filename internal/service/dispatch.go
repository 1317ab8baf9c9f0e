package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gymnotifier/internal/entity"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type (
	// DispatchRequest is one operator send: a single recipient, an
	// explicit list, or a named segment.
	DispatchRequest struct {
		UserIDs     []uuid.UUID
		Segment     entity.Segment
		Title       string
		Message     string
		Type        entity.Type
		Priority    entity.Priority
		Channels    []entity.Channel
		Link        string
		Template    string
		Campaign    string
		ScheduledAt *time.Time
	}

	// DispatchResult is the partial-success summary of one fan-out.
	// There is no rollback of records created before a failing slice.
	DispatchResult struct {
		CampaignID string `json:"campaignId"`
		Created    int64  `json:"created"`
		Failed     int64  `json:"failed"`
	}
)

func (req *DispatchRequest) validate() error {
	title := strings.TrimSpace(req.Title)
	if len(title) < entity.TitleMinLen || len(title) > entity.TitleMaxLen {
		return fmt.Errorf("title must be %d-%d characters: %w",
			entity.TitleMinLen, entity.TitleMaxLen, entity.ErrInvalidData)
	}

	message := strings.TrimSpace(req.Message)
	if message == "" || len(message) > entity.MessageMaxLen {
		return fmt.Errorf("message must be 1-%d characters: %w",
			entity.MessageMaxLen, entity.ErrInvalidData)
	}

	if len(req.UserIDs) == 0 && req.Segment == "" {
		return fmt.Errorf("recipients or segment required: %w", entity.ErrInvalidData)
	}
	for _, id := range req.UserIDs {
		if id == uuid.Nil {
			return fmt.Errorf("nil recipient id: %w", entity.ErrInvalidData)
		}
	}

	if req.Type != "" && !req.Type.IsValid() {
		return fmt.Errorf("unknown type %q: %w", req.Type, entity.ErrInvalidData)
	}
	if req.Priority != "" && !req.Priority.IsValid() {
		return fmt.Errorf("unknown priority %q: %w", req.Priority, entity.ErrInvalidData)
	}
	for _, c := range req.Channels {
		if !c.IsValid() {
			return fmt.Errorf("unknown channel %q: %w", c, entity.ErrInvalidData)
		}
	}

	return nil
}

// Dispatch validates the request, resolves the audience and creates one
// record per recipient, all sharing one campaign id. Validation failure
// creates zero records; fan-out failure past that point is best-effort
// and surfaces in the result counts.
func (s *NotifyService) Dispatch(ctx context.Context, req DispatchRequest) (*DispatchResult, error) {
	const op = "service.NotifyService.Dispatch"

	startTime := time.Now()

	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Explicit recipients skip segment resolution entirely.
	recipients := req.UserIDs
	if len(recipients) == 0 {
		resolved, err := s.ResolveSegment(ctx, req.Segment)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		recipients = resolved
	}

	campaignID := req.Campaign
	if campaignID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("%s: campaign id: %w", op, err)
		}
		campaignID = id.String()
	}

	now := s.now()
	// A past schedule is not an error: it means "dispatch immediately".
	immediate := req.ScheduledAt == nil || !req.ScheduledAt.After(now)

	records, err := s.buildRecords(req, recipients, campaignID, now, immediate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("dispatch started",
		zap.String("campaign", campaignID),
		zap.String("segment", string(req.Segment)),
		zap.Int("recipients", len(records)),
		zap.Bool("immediate", immediate),
	)

	result := &DispatchResult{CampaignID: campaignID}
	created := s.fanOut(ctx, records, result)

	if immediate && s.publisher != nil {
		s.publishDeliveries(ctx, created)
	}

	for _, n := range created {
		s.invalidateUnread(ctx, n.UserID)
	}

	s.log.Info("dispatch completed",
		zap.String("campaign", campaignID),
		zap.Int64("created", result.Created),
		zap.Int64("failed", result.Failed),
		zap.Duration("duration", time.Since(startTime)),
	)

	return result, nil
}

func (s *NotifyService) buildRecords(
	req DispatchRequest,
	recipients []uuid.UUID,
	campaignID string,
	now time.Time,
	immediate bool,
) ([]entity.Notification, error) {
	typ := req.Type
	if typ == "" {
		typ = entity.TypeInfo
	}
	priority := req.Priority
	if priority == "" {
		priority = entity.PriorityNormal
	}

	var sentAt *time.Time
	if immediate {
		sentAt = &now
	}

	records := make([]entity.Notification, 0, len(recipients))
	for _, userID := range recipients {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("record id: %w", err)
		}
		records = append(records, entity.Notification{
			ID:          id,
			UserID:      userID,
			Title:       strings.TrimSpace(req.Title),
			Message:     strings.TrimSpace(req.Message),
			Type:        typ,
			Priority:    priority,
			Channels:    req.Channels,
			Segment:     req.Segment,
			Link:        req.Link,
			Template:    req.Template,
			Campaign:    campaignID,
			ScheduledAt: req.ScheduledAt,
			SentAt:      sentAt,
			CreatedAt:   now,
		})
	}

	return records, nil
}

// fanOut inserts records in slices under bounded concurrency. Ordering
// across recipients carries no meaning. Returns the records that made
// it into the store.
func (s *NotifyService) fanOut(ctx context.Context, records []entity.Notification, result *DispatchResult) []entity.Notification {
	var (
		mu      sync.Mutex
		created = make([]entity.Notification, 0, len(records))
		failed  atomic.Int64
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.fanoutWorkers)

	for start := 0; start < len(records); start += s.fanoutBatch {
		end := min(start+s.fanoutBatch, len(records))
		batch := records[start:end]

		eg.Go(func() error {
			if err := s.store.CreateBatch(ctx, batch); err != nil {
				failed.Add(int64(len(batch)))
				s.log.Error("fan-out slice failed",
					zap.Int("size", len(batch)),
					zap.Error(err),
				)
				return nil
			}
			mu.Lock()
			created = append(created, batch...)
			mu.Unlock()
			return nil
		})
	}

	// Workers never return an error; failures are counted per slice.
	_ = eg.Wait()

	result.Created = int64(len(created))
	result.Failed = failed.Load()
	return created
}

// publishDeliveries hands each record to the broker once per external
// channel. Publish failure is recorded on the record, not raised.
func (s *NotifyService) publishDeliveries(ctx context.Context, records []entity.Notification) {
	recipients := make([]uuid.UUID, 0, len(records))
	for _, n := range records {
		if len(n.ExternalChannels()) > 0 {
			recipients = append(recipients, n.UserID)
		}
	}
	if len(recipients) == 0 {
		return
	}

	users, err := s.users.UsersByIDs(ctx, recipients)
	if err != nil {
		s.log.Error("recipient lookup for delivery failed", zap.Error(err))
		return
	}

	for _, n := range records {
		user, ok := users[n.UserID]
		if !ok {
			continue
		}
		for _, channel := range n.ExternalChannels() {
			msg := entity.DeliveryMessage{
				NotificationID: n.ID,
				UserID:         n.UserID,
				Channel:        channel,
				Title:          n.Title,
				Body:           n.Message,
				Link:           n.Link,
				Email:          user.Email,
				Phone:          user.Phone,
				TelegramChatID: user.TelegramChatID,
			}
			if err := s.publisher.PublishDelivery(ctx, msg); err != nil {
				s.log.Error("delivery publish failed",
					zap.String("notification_id", n.ID.String()),
					zap.String("channel", string(channel)),
					zap.Error(err),
				)
				if recErr := s.store.SetTransportError(ctx, n.ID, err.Error()); recErr != nil {
					s.log.Error("recording transport error failed", zap.Error(recErr))
				}
			}
		}
	}
}
