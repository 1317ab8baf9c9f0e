package service

import (
	"context"
	"fmt"
	"math"

	"gymnotifier/internal/entity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecipientStats is a pure read; freshness is the freshness of the
// store at query time.
func (s *NotifyService) RecipientStats(ctx context.Context, userID uuid.UUID) (*entity.RecipientStats, error) {
	const op = "service.NotifyService.RecipientStats"

	stats, err := s.store.RecipientStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return stats, nil
}

// CampaignStats aggregates one campaign's delivery counts and rates.
func (s *NotifyService) CampaignStats(ctx context.Context, campaign string) (*entity.CampaignStats, error) {
	const op = "service.NotifyService.CampaignStats"

	counts, err := s.store.DeliveryCounts(ctx, campaign)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stats := statsFromCounts(counts)
	stats.Campaign = campaign
	return stats, nil
}

// GlobalStats aggregates across every record, cached briefly since the
// dashboard polls it.
func (s *NotifyService) GlobalStats(ctx context.Context) (*entity.CampaignStats, error) {
	const op = "service.NotifyService.GlobalStats"

	if s.cache != nil {
		if cached, err := s.cache.GlobalStats(ctx); err == nil {
			return cached, nil
		}
	}

	counts, err := s.store.DeliveryCounts(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stats := statsFromCounts(counts)

	if s.cache != nil {
		if cacheErr := s.cache.SetGlobalStats(ctx, stats); cacheErr != nil {
			s.log.Debug("global stats cache write failed", zap.Error(cacheErr))
		}
	}

	return stats, nil
}

func statsFromCounts(counts *entity.DeliveryCounts) *entity.CampaignStats {
	return &entity.CampaignStats{
		Sent:         counts.Sent,
		Opened:       counts.Opened,
		Clicked:      counts.Clicked,
		Unsubscribed: counts.Unsubscribed,
		OpenRate:     rate(counts.Opened, counts.Sent),
		ClickRate:    rate(counts.Clicked, counts.Sent),
		UnsubRate:    rate(counts.Unsubscribed, counts.Sent),
	}
}

// rate is a percentage rounded to one decimal. Zero sent yields zero,
// never NaN.
func rate(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}
