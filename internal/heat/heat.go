// Package heat computes the 0-100 heat index of an issue from its linked
// community engagement and news-source diversity.
package heat

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"hotissue.kr/ember/internal/db"
	"hotissue.kr/ember/internal/globaltime"
)

const (
	viewsPerPoint    = 1000.0
	commentsPerPoint = 20.0
	viewWeight       = 0.6
	commentWeight    = 0.4

	sourceCap    = 20.0
	newsCountCap = 50.0
	sourceWeight = 0.6
	countWeight  = 0.4

	// Community heat at or below this level is treated as noise and does
	// not amplify news credibility.
	noiseFloor = 10.0

	baseFactor          = 0.3
	amplificationFactor = 0.7
)

// CommunityHeat converts raw engagement totals into a 0-100 signal.
// Zero linked community items means zero heat.
func CommunityHeat(communityCount int, totalViews, totalComments int64) float64 {
	if communityCount <= 0 {
		return 0
	}
	raw := viewWeight*float64(totalViews)/viewsPerPoint + commentWeight*float64(totalComments)/commentsPerPoint
	return clamp(raw, 0, 100)
}

// NewsCredibility blends unique-source breadth and linked article volume
// into a 0-100 signal. Zero linked news items means zero credibility.
func NewsCredibility(uniqueSources, newsCount int) float64 {
	if newsCount <= 0 {
		return 0
	}
	sourceScore := math.Min(float64(uniqueSources), sourceCap) / sourceCap * 100
	countScore := math.Min(float64(newsCount), newsCountCap) / newsCountCap * 100
	return sourceWeight*sourceScore + countWeight*countScore
}

// Amplification maps community heat onto a concave 0-1 coefficient. Heat
// at or below the noise floor contributes nothing; above it the square
// root keeps early weak signals from moving the score much.
func Amplification(communityHeat float64) float64 {
	if communityHeat <= noiseFloor {
		return 0
	}
	return clamp(math.Sqrt((communityHeat-noiseFloor)/(100-noiseFloor)), 0, 1)
}

// Combine folds news credibility and community heat into the final integer
// heat index. News-only issues cap at 30; strong community reaction uncaps
// the score up to the full scale.
func Combine(communityHeat, newsCredibility float64) int {
	amplified := newsCredibility * (baseFactor + amplificationFactor*Amplification(communityHeat))
	return int(math.Round(clamp(amplified, 0, 100)))
}

// Score computes the heat index from linked member rows.
func Score(news []db.NewsItemRow, community []db.CommunityItemRow) int {
	var totalViews, totalComments int64
	for _, item := range community {
		totalViews += item.ViewCount
		totalComments += item.CommentCount
	}

	sources := make(map[string]struct{}, len(news))
	for _, item := range news {
		if item.Source != "" {
			sources[item.Source] = struct{}{}
		}
	}

	ch := CommunityHeat(len(community), totalViews, totalComments)
	nc := NewsCredibility(len(sources), len(news))
	return Combine(ch, nc)
}

func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// Service recomputes and persists heat indexes.
type Service struct {
	pool   *db.Pool
	logger zerolog.Logger
}

func NewService(pool *db.Pool, logger zerolog.Logger) *Service {
	return &Service{
		pool:   pool,
		logger: logger,
	}
}

// RescoreResult summarizes one rescoring pass.
type RescoreResult struct {
	Issues  int
	Updated int
	Errors  []error
}

// RescoreIssue recomputes one issue's heat from its linked items and
// writes it onto the record.
func (s *Service) RescoreIssue(ctx context.Context, issueID int64) (int, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("heat service is not initialized")
	}

	news, err := s.pool.ListNewsByIssue(ctx, issueID)
	if err != nil {
		return 0, err
	}
	community, err := s.pool.ListCommunityByIssue(ctx, issueID)
	if err != nil {
		return 0, err
	}

	index := Score(news, community)
	if err := s.pool.UpdateIssueHeat(ctx, issueID, index, globaltime.UTC()); err != nil {
		return index, err
	}
	return index, nil
}

// RescoreApproved walks approved, not yet closed issues and refreshes
// their heat. Per-issue failures are collected so one bad issue does not
// end the pass.
func (s *Service) RescoreApproved(ctx context.Context, limit int) (RescoreResult, error) {
	var result RescoreResult
	if s == nil || s.pool == nil {
		return result, fmt.Errorf("heat service is not initialized")
	}
	if limit <= 0 {
		limit = 200
	}

	issues, err := s.pool.ListApprovedOpenIssues(ctx, limit)
	if err != nil {
		return result, err
	}

	for _, issue := range issues {
		result.Issues++
		index, err := s.RescoreIssue(ctx, issue.IssueID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("issue %d: %w", issue.IssueID, err))
			continue
		}
		result.Updated++
		s.logger.Debug().
			Int64("issue_id", issue.IssueID).
			Int("heat_index", index).
			Msg("issue heat refreshed")
	}

	return result, nil
}
