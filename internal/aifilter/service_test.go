package aifilter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"hotissue.kr/ember/internal/config"
	"hotissue.kr/ember/internal/db"
)

type fakeScorer struct {
	payload json.RawMessage
	err     error
	seen    [][]BatchItem
}

func (f *fakeScorer) ScoreBatch(_ context.Context, items []BatchItem) (json.RawMessage, error) {
	copied := make([]BatchItem, len(items))
	copy(copied, items)
	f.seen = append(f.seen, copied)
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func testThresholds() config.Thresholds {
	return config.Thresholds{
		AICollectionWindowMin: 10,
		AIViewThreshold:       5000,
		AICommentThreshold:    50,
		AIBatchSize:           2,
		AIMinScore:            7,
	}
}

func TestPrefilter_DedupesAgainstStagedAndWithinRun(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	news := []db.NewsItemRow{
		{NewsItemID: 1, Title: "반도체 수출 급증", CreatedAt: now},
		{NewsItemID: 2, Title: "반도체 수출 급증", CreatedAt: now},
		{NewsItemID: 3, Title: "이미 스테이징된 제목", CreatedAt: now},
		{NewsItemID: 4, Title: "", CreatedAt: now},
	}
	community := []db.CommunityItemRow{
		{CommunityItemID: 10, Title: "반도체 수출 급증", CreatedAt: now},
		{CommunityItemID: 11, Title: "커뮤니티 단독 화제", CreatedAt: now},
	}
	staged := map[string]struct{}{"이미 스테이징된 제목": {}}

	got := Prefilter(news, community, staged)

	if len(got) != 2 {
		t.Fatalf("Prefilter returned %d candidates, want 2: %+v", len(got), got)
	}
	if got[0].Title != "반도체 수출 급증" || got[0].SourceType != db.SourceTypeNews || got[0].RawID != 1 {
		t.Fatalf("first candidate = %+v, want news item 1", got[0])
	}
	if got[1].Title != "커뮤니티 단독 화제" || got[1].SourceType != db.SourceTypeCommunity {
		t.Fatalf("second candidate = %+v, want community item", got[1])
	}
}

func TestPrefilter_NewsTakesPriorityOverCommunityForSameTitle(t *testing.T) {
	t.Parallel()

	news := []db.NewsItemRow{{NewsItemID: 5, Title: "같은 제목"}}
	community := []db.CommunityItemRow{{CommunityItemID: 6, Title: "같은 제목"}}

	got := Prefilter(news, community, nil)

	if len(got) != 1 {
		t.Fatalf("Prefilter returned %d candidates, want 1", len(got))
	}
	if got[0].SourceType != db.SourceTypeNews {
		t.Fatalf("candidate source type = %q, want %q", got[0].SourceType, db.SourceTypeNews)
	}
}

func TestScoreBatch_AssignsBatchLocalIDs(t *testing.T) {
	t.Parallel()

	scorer := &fakeScorer{payload: json.RawMessage(`[]`)}
	svc := NewService(nil, zerolog.Nop(), scorer, testThresholds())

	batch := []candidate{
		{SourceType: db.SourceTypeNews, RawID: 900, Title: "첫 번째"},
		{SourceType: db.SourceTypeCommunity, RawID: 900, Title: "두 번째"},
	}

	var result Result
	svc.scoreBatch(context.Background(), batch, time.Now().UTC(), &result)

	if len(scorer.seen) != 1 {
		t.Fatalf("scorer called %d times, want 1", len(scorer.seen))
	}
	sent := scorer.seen[0]
	if sent[0].ID != 1 || sent[1].ID != 2 {
		t.Fatalf("batch ids = %d, %d, want 1, 2", sent[0].ID, sent[1].ID)
	}
	if sent[0].Title != "첫 번째" || sent[1].SourceType != db.SourceTypeCommunity {
		t.Fatalf("batch items lost their source fields: %+v", sent)
	}
}

func TestScoreBatch_ScorerErrorIsRecordedNotFatal(t *testing.T) {
	t.Parallel()

	scorer := &fakeScorer{err: errors.New("upstream timed out")}
	svc := NewService(nil, zerolog.Nop(), scorer, testThresholds())

	var result Result
	svc.scoreBatch(context.Background(), []candidate{{SourceType: db.SourceTypeNews, RawID: 1, Title: "제목"}}, time.Now().UTC(), &result)

	if len(result.Errors) != 1 {
		t.Fatalf("result.Errors has %d entries, want 1", len(result.Errors))
	}
	if result.Scored != 0 || result.Staged != 0 {
		t.Fatalf("failed batch must not score or stage anything: %+v", result)
	}
}

func TestScoreBatch_DiscardsUnknownAndDuplicateIDs(t *testing.T) {
	t.Parallel()

	payload := json.RawMessage(`[
		{"id": 1, "score": 3.0, "category": "사회", "reason": "관련성 낮음"},
		{"id": 1, "score": 4.0, "category": "사회", "reason": "중복 응답"},
		{"id": 99, "score": 9.0, "category": "정치", "reason": "존재하지 않는 항목"}
	]`)
	scorer := &fakeScorer{payload: payload}
	svc := NewService(nil, zerolog.Nop(), scorer, testThresholds())

	var result Result
	svc.scoreBatch(context.Background(), []candidate{{SourceType: db.SourceTypeNews, RawID: 1, Title: "제목"}}, time.Now().UTC(), &result)

	if result.Scored != 1 {
		t.Fatalf("result.Scored = %d, want 1", result.Scored)
	}
	if result.Dropped != 2 {
		t.Fatalf("result.Dropped = %d, want 2 (duplicate id and unknown id)", result.Dropped)
	}
	if result.Staged != 0 {
		t.Fatalf("low score must not stage: %+v", result)
	}
}

func TestScoreBatch_MalformedPayloadIsRecorded(t *testing.T) {
	t.Parallel()

	scorer := &fakeScorer{payload: json.RawMessage(`{"not": "an array"}`)}
	svc := NewService(nil, zerolog.Nop(), scorer, testThresholds())

	var result Result
	svc.scoreBatch(context.Background(), []candidate{{SourceType: db.SourceTypeNews, RawID: 1, Title: "제목"}}, time.Now().UTC(), &result)

	if len(result.Errors) != 1 {
		t.Fatalf("result.Errors has %d entries, want 1", len(result.Errors))
	}
	if result.Scored != 0 {
		t.Fatalf("malformed payload must not score anything: %+v", result)
	}
}

func TestScoreBatch_BelowMinScoreIsScoredButNotStaged(t *testing.T) {
	t.Parallel()

	payload := json.RawMessage(`[{"id": 1, "score": 6.5, "category": "연예", "reason": "흥미롭지만 영향 제한적"}]`)
	scorer := &fakeScorer{payload: payload}
	svc := NewService(nil, zerolog.Nop(), scorer, testThresholds())

	var result Result
	svc.scoreBatch(context.Background(), []candidate{{SourceType: db.SourceTypeCommunity, RawID: 7, Title: "제목"}}, time.Now().UTC(), &result)

	if result.Scored != 1 {
		t.Fatalf("result.Scored = %d, want 1", result.Scored)
	}
	if result.Staged != 0 {
		t.Fatalf("score below the staging floor must not be staged: %+v", result)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
}

func TestEffectiveBatchSize(t *testing.T) {
	t.Parallel()

	if got := effectiveBatchSize(0); got != defaultBatchSize {
		t.Fatalf("effectiveBatchSize(0) = %d, want %d", got, defaultBatchSize)
	}
	if got := effectiveBatchSize(-5); got != defaultBatchSize {
		t.Fatalf("effectiveBatchSize(-5) = %d, want %d", got, defaultBatchSize)
	}
	if got := effectiveBatchSize(7); got != 7 {
		t.Fatalf("effectiveBatchSize(7) = %d, want 7", got)
	}
}
