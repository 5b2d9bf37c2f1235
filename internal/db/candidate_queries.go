package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// NewAICandidate carries a staged, LLM-scored cluster of raw items.
type NewAICandidate struct {
	Title        string
	SourceType   string
	NewsIDs      []int64
	CommunityIDs []int64
	AIScore      float64
	AICategory   string
	AIReason     string
	CreatedAt    time.Time
}

// CandidateSummary is the read model for staged AI candidates.
type CandidateSummary struct {
	CandidateID   int64     `json:"candidate_id"`
	CandidateUUID string    `json:"candidate_uuid"`
	Title         string    `json:"title"`
	SourceType    string    `json:"source_type"`
	AIScore       float64   `json:"ai_score"`
	AICategory    string    `json:"ai_category"`
	AIReason      string    `json:"ai_reason"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// RecentCandidateTitles returns the set of titles staged at or after since.
// Used by the pre-filter to avoid re-scoring the same title.
func (p *Pool) RecentCandidateTitles(ctx context.Context, since time.Time) (map[string]struct{}, error) {
	const q = `
SELECT title
FROM ember.ai_candidates
WHERE created_at >= $1
`

	rows, err := p.Query(ctx, q, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query recent candidate titles: %w", err)
	}
	defer rows.Close()

	titles := make(map[string]struct{}, 64)
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan candidate title: %w", err)
		}
		titles[title] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate titles: %w", err)
	}
	return titles, nil
}

// InsertAICandidate stages one scored candidate as 대기 work for operators.
func (p *Pool) InsertAICandidate(ctx context.Context, candidate NewAICandidate) (int64, error) {
	title := strings.TrimSpace(candidate.Title)
	if title == "" {
		return 0, fmt.Errorf("title is required")
	}
	if candidate.SourceType != SourceTypeNews && candidate.SourceType != SourceTypeCommunity {
		return 0, fmt.Errorf("source type %q is invalid", candidate.SourceType)
	}
	if !IsValidCategory(candidate.AICategory) {
		return 0, fmt.Errorf("category %q is invalid", candidate.AICategory)
	}
	if candidate.AIScore < 0 || candidate.AIScore > 10 {
		return 0, fmt.Errorf("score %.2f is out of range", candidate.AIScore)
	}

	newsIDs, err := marshalIDList(candidate.NewsIDs)
	if err != nil {
		return 0, fmt.Errorf("marshal news ids: %w", err)
	}
	communityIDs, err := marshalIDList(candidate.CommunityIDs)
	if err != nil {
		return 0, fmt.Errorf("marshal community ids: %w", err)
	}

	const q = `
INSERT INTO ember.ai_candidates (
	title,
	source_type,
	news_ids,
	community_ids,
	ai_score,
	ai_category,
	ai_reason,
	status,
	created_at,
	updated_at
)
VALUES ($1, $2, $3::jsonb, $4::jsonb, $5, $6, $7, $8, $9, $9)
RETURNING candidate_id
`

	var candidateID int64
	err = p.QueryRow(ctx, q,
		title,
		candidate.SourceType,
		string(newsIDs),
		string(communityIDs),
		candidate.AIScore,
		candidate.AICategory,
		strings.TrimSpace(candidate.AIReason),
		CandidatePending,
		candidate.CreatedAt.UTC(),
	).Scan(&candidateID)
	if err != nil {
		return 0, fmt.Errorf("insert ai candidate: %w", err)
	}
	return candidateID, nil
}

// ListPendingCandidates lists staged candidates, highest score first.
func (p *Pool) ListPendingCandidates(ctx context.Context, limit int) ([]CandidateSummary, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT
	a.candidate_id,
	a.candidate_uuid::text,
	a.title,
	a.source_type,
	a.ai_score,
	a.ai_category,
	a.ai_reason,
	a.status,
	a.created_at
FROM ember.ai_candidates a
WHERE a.status = $1
ORDER BY a.ai_score DESC, a.created_at DESC, a.candidate_id DESC
LIMIT $2
`

	rows, err := p.Query(ctx, q, CandidatePending, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending candidates: %w", err)
	}
	defer rows.Close()

	candidates := make([]CandidateSummary, 0, limit)
	for rows.Next() {
		var candidate CandidateSummary
		if err := rows.Scan(
			&candidate.CandidateID,
			&candidate.CandidateUUID,
			&candidate.Title,
			&candidate.SourceType,
			&candidate.AIScore,
			&candidate.AICategory,
			&candidate.AIReason,
			&candidate.Status,
			&candidate.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}
		candidates = append(candidates, candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate rows: %w", err)
	}
	return candidates, nil
}

func marshalIDList(ids []int64) (json.RawMessage, error) {
	if ids == nil {
		ids = []int64{}
	}
	return json.Marshal(ids)
}
