// Package service holds the campaign dispatch engine: segment
// resolution, fan-out, the delivery state machine, scheduling and the
// read-side aggregations.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gymnotifier/internal/entity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	_defaultFanoutWorkers = 8
	_defaultFanoutBatch   = 200
	_defaultSweepBatch    = 100
	_defaultListLimit     = 20
	_maxListLimit         = 100
)

type (
	// NotificationStore is the durable record store. Every mutation is a
	// single atomic statement; no invariant spans two records.
	NotificationStore interface {
		Create(ctx context.Context, n entity.Notification) error
		CreateBatch(ctx context.Context, batch []entity.Notification) error
		GetByID(ctx context.Context, id uuid.UUID) (*entity.Notification, error)
		ListByRecipient(ctx context.Context, userID uuid.UUID, page, limit uint64) ([]entity.Notification, int64, error)
		UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
		MarkRead(ctx context.Context, id uuid.UUID, now time.Time) (uuid.UUID, error)
		MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
		MarkClicked(ctx context.Context, id uuid.UUID, now time.Time) error
		MarkUnsubscribed(ctx context.Context, id uuid.UUID, now time.Time) error
		SetTransportError(ctx context.Context, id uuid.UUID, message string) error
		Delete(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
		ClaimDue(ctx context.Context, now time.Time, limit int) ([]entity.Notification, error)
		RecipientStats(ctx context.Context, userID uuid.UUID) (*entity.RecipientStats, error)
		DeliveryCounts(ctx context.Context, campaign string) (*entity.DeliveryCounts, error)
		RecentActivity(ctx context.Context, limit uint64) ([]entity.ActivitySource, error)
	}

	// UserStore is the engine's read-only view of the member population.
	UserStore interface {
		SegmentIDs(ctx context.Context, segment entity.Segment, now time.Time) ([]uuid.UUID, error)
		SegmentCounts(ctx context.Context, now time.Time) (map[entity.Segment]int64, error)
		UsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]entity.User, error)
	}

	StatsCache interface {
		UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
		SetUnreadCount(ctx context.Context, userID uuid.UUID, count int64) error
		InvalidateUnread(ctx context.Context, userID uuid.UUID) error
		GlobalStats(ctx context.Context) (*entity.CampaignStats, error)
		SetGlobalStats(ctx context.Context, stats *entity.CampaignStats) error
	}

	// DeliveryPublisher hands one record/channel pair to the transport
	// broker. The sinks behind it are external collaborators.
	DeliveryPublisher interface {
		PublishDelivery(ctx context.Context, msg entity.DeliveryMessage) error
	}

	NotifyService struct {
		store     NotificationStore
		users     UserStore
		cache     StatsCache
		publisher DeliveryPublisher
		log       *zap.Logger

		now           func() time.Time
		fanoutWorkers int
		fanoutBatch   int
		sweepBatch    int
	}
)

func NewNotifyService(
	store NotificationStore,
	users UserStore,
	cache StatsCache,
	publisher DeliveryPublisher,
	log *zap.Logger,
	opts ...Option,
) (*NotifyService, error) {
	if store == nil || users == nil || log == nil {
		return nil, errors.New("service.NewNotifyService: store, users and log are required")
	}

	s := &NotifyService{
		store:         store,
		users:         users,
		cache:         cache,
		publisher:     publisher,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
		fanoutWorkers: _defaultFanoutWorkers,
		fanoutBatch:   _defaultFanoutBatch,
		sweepBatch:    _defaultSweepBatch,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *NotifyService) List(
	ctx context.Context,
	userID uuid.UUID,
	page, limit uint64,
) ([]entity.Notification, int64, error) {
	const op = "service.NotifyService.List"

	if limit == 0 {
		limit = _defaultListLimit
	}
	if limit > _maxListLimit {
		limit = _maxListLimit
	}

	notifications, total, err := s.store.ListByRecipient(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return notifications, total, nil
}

func (s *NotifyService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	const op = "service.NotifyService.UnreadCount"

	if s.cache != nil {
		if count, err := s.cache.UnreadCount(ctx, userID); err == nil {
			return count, nil
		}
	}

	count, err := s.store.UnreadCount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if s.cache != nil {
		if cacheErr := s.cache.SetUnreadCount(ctx, userID, count); cacheErr != nil {
			s.log.Debug("unread count cache write failed", zap.Error(cacheErr))
		}
	}

	return count, nil
}

// MarkRead is idempotent: the second call observes the same state the
// first one left behind.
func (s *NotifyService) MarkRead(ctx context.Context, id uuid.UUID) error {
	const op = "service.NotifyService.MarkRead"

	userID, err := s.store.MarkRead(ctx, id, s.now())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.invalidateUnread(ctx, userID)
	return nil
}

func (s *NotifyService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	const op = "service.NotifyService.MarkAllRead"

	updated, err := s.store.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidateUnread(ctx, userID)
	return updated, nil
}

// MarkClicked also guarantees the opened timestamp, click implies open.
func (s *NotifyService) MarkClicked(ctx context.Context, id uuid.UUID) error {
	const op = "service.NotifyService.MarkClicked"

	if err := s.store.MarkClicked(ctx, id, s.now()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *NotifyService) MarkUnsubscribed(ctx context.Context, id uuid.UUID) error {
	const op = "service.NotifyService.MarkUnsubscribed"

	if err := s.store.MarkUnsubscribed(ctx, id, s.now()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *NotifyService) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "service.NotifyService.Delete"

	userID, err := s.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.invalidateUnread(ctx, userID)
	return nil
}

// RecordTransportFailure stores a sink failure on the record instead of
// failing the batch. One recipient's bounce never aborts a campaign.
func (s *NotifyService) RecordTransportFailure(ctx context.Context, id uuid.UUID, message string) error {
	const op = "service.NotifyService.RecordTransportFailure"

	if err := s.store.SetTransportError(ctx, id, message); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Templates are the canned campaign starters the composer offers.
func (s *NotifyService) Templates() []entity.Template {
	return []entity.Template{
		{ID: "welcome", Name: "Welcome", Title: "Welcome to the club!", Message: "Your membership is active. Book your first class from the app.", Type: entity.TypeSuccess},
		{ID: "renewal", Name: "Renewal reminder", Title: "Membership expiring soon", Message: "Your membership ends in 7 days. Renew now to keep your rate.", Type: entity.TypeWarning},
		{ID: "class-cancelled", Name: "Class cancelled", Title: "Class cancelled", Message: "An upcoming class you are booked on has been cancelled.", Type: entity.TypeError},
		{ID: "promo", Name: "Promotion", Title: "Member offer", Message: "Bring a friend this week and you both train free.", Type: entity.TypeInfo},
	}
}

func (s *NotifyService) invalidateUnread(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUnread(ctx, userID); err != nil {
		s.log.Debug("unread cache invalidation failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}
