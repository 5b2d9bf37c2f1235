package linker

import (
	"fmt"
	"testing"

	"hotissue.kr/ember/internal/cluster"
)

func TestMatches_ThirtyPercentRule(t *testing.T) {
	t.Parallel()

	keywords := cluster.Tokenize("서울 지하철 파업 출근길 대란") // 5 keywords

	// 2 of 5 keywords = 40%.
	if !Matches(keywords, cluster.Tokenize("지하철 파업 언제 끝나나")) {
		t.Fatalf("40%% overlap must match")
	}
	// 1 of 5 keywords = 20%.
	if Matches(keywords, cluster.Tokenize("지하철 요금 인상안 발표")) {
		t.Fatalf("20%% overlap must not match")
	}
	// No shared keywords.
	if Matches(keywords, cluster.Tokenize("프로야구 개막전 결과")) {
		t.Fatalf("zero overlap must not match")
	}
}

func TestMatches_RequiresAtLeastOneKeyword(t *testing.T) {
	t.Parallel()

	keywords := cluster.Tokenize("단독") // 1 keyword
	if Matches(keywords, cluster.Tokenize("전혀 다른 제목")) {
		t.Fatalf("no shared keyword must not match")
	}
	if !Matches(keywords, cluster.Tokenize("단독 보도입니다")) {
		t.Fatalf("full single-keyword overlap must match")
	}
}

func TestSelectMatching_CapsAtLimit(t *testing.T) {
	t.Parallel()

	keywords := cluster.Tokenize("지하철 파업")

	ids := make([]int64, 0, 30)
	titles := make(map[int64]string, 30)
	for i := int64(1); i <= 30; i++ {
		ids = append(ids, i)
		titles[i] = fmt.Sprintf("지하철 파업 소식 %d", i)
	}

	selected := SelectMatching(keywords, ids, titles, 20)
	if len(selected) != 20 {
		t.Fatalf("expected the per-issue cap of 20, got %d", len(selected))
	}
	// Deterministic: the first 20 ids in order.
	for i, id := range selected {
		if id != int64(i+1) {
			t.Fatalf("expected deterministic id order, got %v", selected)
		}
	}
}

func TestSelectMatching_EmptyKeywords(t *testing.T) {
	t.Parallel()

	if got := SelectMatching(nil, []int64{1, 2}, map[int64]string{1: "a", 2: "b"}, 20); got != nil {
		t.Fatalf("expected nil for empty keyword set, got %v", got)
	}
}

func TestUnclaimed(t *testing.T) {
	t.Parallel()

	ids := []int64{1, 2, 3, 4}
	claimed := map[int64]struct{}{2: {}, 4: {}}
	remaining := unclaimed(ids, claimed)
	if len(remaining) != 2 || remaining[0] != 1 || remaining[1] != 3 {
		t.Fatalf("unexpected remaining ids: %v", remaining)
	}
}
