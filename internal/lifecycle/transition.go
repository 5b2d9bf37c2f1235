// Package lifecycle advances approved issues through the
// 점화 → 논란중 → 종결 state machine. Automation only ever moves forward;
// reopening a closed issue is a human decision.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"hotissue.kr/ember/internal/config"
	"hotissue.kr/ember/internal/db"
	"hotissue.kr/ember/internal/globaltime"
)

// Decision is the outcome of evaluating one issue.
type Decision struct {
	Next    string
	Changed bool
	Reason  string
}

func stay(status string) Decision {
	return Decision{Next: status}
}

func move(next, reason string) Decision {
	return Decision{Next: next, Changed: true, Reason: reason}
}

// Decide evaluates the transition rules for one issue. elapsed is time
// since approval (creation when never explicitly approved), heat the
// current heat index, recentLinks the number of raw items attached within
// the idle window.
func Decide(status string, elapsed time.Duration, heat int, recentLinks int64, th config.Thresholds) Decision {
	switch status {
	case db.StatusIgnite:
		if elapsed < time.Duration(th.IgniteToDebateHours)*time.Hour {
			return stay(status)
		}
		if heat < th.ClosedMaxHeat {
			return move(db.StatusClosed, "ignite_low_heat")
		}
		if heat >= th.IgniteMinHeat {
			return move(db.StatusDebated, "ignite_heat_sustained")
		}
		return stay(status)

	case db.StatusDebated:
		if heat < th.ClosedMaxHeat {
			return move(db.StatusClosed, "debated_heat_faded")
		}
		if recentLinks == 0 {
			return move(db.StatusClosed, "debated_idle")
		}
		return stay(status)

	default:
		// 종결 and anything unknown never auto-transitions.
		return stay(status)
	}
}

// Service applies Decide across all approved open issues.
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

// Result summarizes one transition pass.
type Result struct {
	Evaluated int
	Debated   int
	Closed    int
	Errors    []error
}

// Run performs one periodic transition pass.
func (s *Service) Run(ctx context.Context) (Result, error) {
	var result Result
	if s == nil || s.pool == nil {
		return result, fmt.Errorf("lifecycle service is not initialized")
	}

	now := globaltime.UTC()
	issues, err := s.pool.ListApprovedOpenIssues(ctx, 500)
	if err != nil {
		return result, err
	}

	for _, issue := range issues {
		result.Evaluated++

		anchor := issue.CreatedAt
		if issue.ApprovedAt != nil {
			anchor = *issue.ApprovedAt
		}
		heat := 0
		if issue.HeatIndex != nil {
			heat = *issue.HeatIndex
		}

		var recentLinks int64
		if issue.Status == db.StatusDebated {
			idleSince := now.Add(-time.Duration(s.thresholds.ClosedIdleHours) * time.Hour)
			recentLinks, err = s.pool.CountItemsLinkedSince(ctx, issue.IssueID, idleSince)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("issue %d: %w", issue.IssueID, err))
				continue
			}
		}

		decision := Decide(issue.Status, now.Sub(anchor), heat, recentLinks, s.thresholds)
		if !decision.Changed {
			continue
		}

		if err := s.pool.UpdateIssueStatus(ctx, issue.IssueID, decision.Next, now); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("issue %d: %w", issue.IssueID, err))
			continue
		}

		switch decision.Next {
		case db.StatusDebated:
			result.Debated++
		case db.StatusClosed:
			result.Closed++
		}

		s.logger.Info().
			Int64("issue_id", issue.IssueID).
			Str("from", issue.Status).
			Str("to", decision.Next).
			Str("reason", decision.Reason).
			Int("heat_index", heat).
			Msg("issue transitioned")
	}

	return result, nil
}
