package service

import (
	"context"
	"fmt"
	"time"

	"gymnotifier/internal/entity"

	"go.uber.org/zap"
)

// RunScheduler sweeps for due scheduled records until the context is
// cancelled. A record whose schedule elapsed between ticks is picked up
// on the next one; there is no promptness SLA beyond the interval.
func (s *NotifyService) RunScheduler(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("scheduler started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Error("scheduler sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep promotes due records to Sent in batches and hands the promoted
// ones to the broker. The claim is a single conditional update, so
// overlapping sweeps and dispatches never double-send.
func (s *NotifyService) Sweep(ctx context.Context) (int, error) {
	const op = "service.NotifyService.Sweep"

	total := 0
	for {
		claimed, err := s.store.ClaimDue(ctx, s.now(), s.sweepBatch)
		if err != nil {
			return total, fmt.Errorf("%s: %w", op, err)
		}
		if len(claimed) == 0 {
			break
		}

		total += len(claimed)
		if s.publisher != nil {
			s.publishClaimed(ctx, claimed)
		}

		if len(claimed) < s.sweepBatch {
			break
		}
	}

	if total > 0 {
		s.log.Info("scheduled records promoted", zap.Int("count", total))
	}

	return total, nil
}

func (s *NotifyService) publishClaimed(ctx context.Context, claimed []entity.Notification) {
	withTransport := make([]entity.Notification, 0, len(claimed))
	for _, n := range claimed {
		if len(n.ExternalChannels()) > 0 {
			withTransport = append(withTransport, n)
		}
	}
	if len(withTransport) == 0 {
		return
	}

	s.publishDeliveries(ctx, withTransport)
}
