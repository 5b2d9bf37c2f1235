// Package aifilter stages high-impact raw items for human review through
// a two-stage filter: a cheap metadata pre-filter followed by batched LLM
// scoring. It feeds a staging table and never touches the automatic
// issue path.
package aifilter

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"hotissue.kr/ember/internal/config"
	"hotissue.kr/ember/internal/db"
	"hotissue.kr/ember/internal/globaltime"
	scoreschema "hotissue.kr/ember/schema"
)

const (
	prefetchLimit    = 200
	communityWindow  = time.Hour
	stagedDedupRange = 24 * time.Hour
	defaultBatchSize = 20
)

// effectiveBatchSize clamps a non-positive configured batch size to the
// default so the batching loop always advances.
func effectiveBatchSize(configured int) int {
	if configured <= 0 {
		return defaultBatchSize
	}
	return configured
}

type Service struct {
	pool       *db.Pool
	logger     zerolog.Logger
	scorer     Scorer
	thresholds config.Thresholds
}

func NewService(pool *db.Pool, logger zerolog.Logger, scorer Scorer, thresholds config.Thresholds) *Service {
	return &Service{
		pool:       pool,
		logger:     logger,
		scorer:     scorer,
		thresholds: thresholds,
	}
}

// Result summarizes one scoring run.
type Result struct {
	Prefiltered int
	Batches     int
	Scored      int
	Dropped     int
	Staged      int
	Errors      []error
}

// candidate is a pre-filtered raw item waiting for a score.
type candidate struct {
	SourceType string
	RawID      int64
	Title      string
}

// Prefilter applies the cheap stage-1 rules: recency windows already
// applied by the fetch, engagement floors already applied for community
// items, plus title-level dedup against recently staged candidates and
// within the run itself.
func Prefilter(news []db.NewsItemRow, community []db.CommunityItemRow, staged map[string]struct{}) []candidate {
	seen := make(map[string]struct{}, len(news)+len(community))
	out := make([]candidate, 0, len(news)+len(community))

	consider := func(sourceType string, rawID int64, title string) {
		if title == "" {
			return
		}
		if _, already := staged[title]; already {
			return
		}
		if _, dup := seen[title]; dup {
			return
		}
		seen[title] = struct{}{}
		out = append(out, candidate{SourceType: sourceType, RawID: rawID, Title: title})
	}

	for _, item := range news {
		consider(db.SourceTypeNews, item.NewsItemID, item.Title)
	}
	for _, item := range community {
		consider(db.SourceTypeCommunity, item.CommunityItemID, item.Title)
	}
	return out
}

// Run executes one full filter pass. A failed batch is recorded and the
// remaining batches still run.
func (s *Service) Run(ctx context.Context) (Result, error) {
	var result Result
	if s == nil || s.pool == nil {
		return result, fmt.Errorf("aifilter service is not initialized")
	}
	if s.scorer == nil {
		return result, fmt.Errorf("scorer is not configured")
	}

	now := globaltime.UTC()

	staged, err := s.pool.RecentCandidateTitles(ctx, now.Add(-stagedDedupRange))
	if err != nil {
		return result, err
	}

	newsSince := now.Add(-time.Duration(s.thresholds.AICollectionWindowMin) * time.Minute)
	news, err := s.pool.ListUnlinkedNews(ctx, newsSince, prefetchLimit)
	if err != nil {
		return result, err
	}
	community, err := s.pool.ListUnlinkedCommunity(ctx, now.Add(-communityWindow),
		int64(s.thresholds.AIViewThreshold), int64(s.thresholds.AICommentThreshold), prefetchLimit)
	if err != nil {
		return result, err
	}

	candidates := Prefilter(news, community, staged)
	result.Prefiltered = len(candidates)
	if len(candidates) == 0 {
		return result, nil
	}

	batchSize := effectiveBatchSize(s.thresholds.AIBatchSize)
	for start := 0; start < len(candidates); start += batchSize {
		end := min(start+batchSize, len(candidates))
		result.Batches++
		s.scoreBatch(ctx, candidates[start:end], now, &result)
	}

	s.logger.Info().
		Int("prefiltered", result.Prefiltered).
		Int("batches", result.Batches).
		Int("scored", result.Scored).
		Int("dropped", result.Dropped).
		Int("staged", result.Staged).
		Int("errors", len(result.Errors)).
		Msg("relevance filter run finished")

	return result, nil
}

func (s *Service) scoreBatch(ctx context.Context, batch []candidate, now time.Time, result *Result) {
	items := make([]BatchItem, 0, len(batch))
	byID := make(map[int]candidate, len(batch))
	for i, c := range batch {
		id := i + 1
		items = append(items, BatchItem{ID: id, Title: c.Title, SourceType: c.SourceType})
		byID[id] = c
	}

	payload, err := s.scorer.ScoreBatch(ctx, items)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("score batch of %d: %w", len(batch), err))
		return
	}

	scored, dropped, err := scoreschema.ValidateScoreItems(payload)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("validate batch of %d: %w", len(batch), err))
		return
	}
	result.Dropped += dropped

	claimed := make(map[int]struct{}, len(scored))
	for _, item := range scored {
		source, known := byID[item.ID]
		if !known {
			// The model invented an id; discard, never guess.
			result.Dropped++
			continue
		}
		if _, dup := claimed[item.ID]; dup {
			result.Dropped++
			continue
		}
		claimed[item.ID] = struct{}{}
		result.Scored++

		if item.Score < float64(s.thresholds.AIMinScore) {
			continue
		}

		newCandidate := db.NewAICandidate{
			Title:      source.Title,
			SourceType: source.SourceType,
			AIScore:    item.Score,
			AICategory: item.Category,
			AIReason:   item.Reason,
			CreatedAt:  now,
		}
		switch source.SourceType {
		case db.SourceTypeNews:
			newCandidate.NewsIDs = []int64{source.RawID}
		case db.SourceTypeCommunity:
			newCandidate.CommunityIDs = []int64{source.RawID}
		}

		if _, err := s.pool.InsertAICandidate(ctx, newCandidate); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("stage candidate %q: %w", source.Title, err))
			continue
		}
		result.Staged++
	}
}
