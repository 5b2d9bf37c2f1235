// Package retention removes raw items that aged out without ever joining
// an issue.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"hotissue.kr/ember/internal/config"
	"hotissue.kr/ember/internal/db"
	"hotissue.kr/ember/internal/globaltime"
)

type Service struct {
	pool       *db.Pool
	logger     zerolog.Logger
	thresholds config.Thresholds
}

func NewService(pool *db.Pool, logger zerolog.Logger, thresholds config.Thresholds) *Service {
	return &Service{
		pool:       pool,
		logger:     logger,
		thresholds: thresholds,
	}
}

// Cutoff returns the deletion boundary for a run at now.
func Cutoff(now time.Time, retainDays int) time.Time {
	return now.UTC().AddDate(0, 0, -retainDays)
}

// Eligible is the per-row form of the deletion predicate that
// db.DeleteUnlinkedBefore applies in bulk with the same Cutoff: unlinked
// and older than the retention window. Linked items are never eligible.
// Keep the two in sync.
func Eligible(issueID *int64, createdAt, now time.Time, retainDays int) bool {
	if issueID != nil {
		return false
	}
	return createdAt.Before(Cutoff(now, retainDays))
}

// Run deletes every unlinked raw item past the retention window.
func (s *Service) Run(ctx context.Context) (db.RetentionResult, error) {
	if s == nil || s.pool == nil {
		return db.RetentionResult{}, fmt.Errorf("retention service is not initialized")
	}

	now := globaltime.UTC()
	result, err := s.pool.DeleteUnlinkedBefore(ctx, Cutoff(now, s.thresholds.RetainDays))
	if err != nil {
		return result, err
	}

	s.logger.Info().
		Int64("news_deleted", result.News).
		Int64("community_deleted", result.Community).
		Int("retain_days", s.thresholds.RetainDays).
		Msg("retention pass finished")
	return result, nil
}
