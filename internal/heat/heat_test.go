package heat

import (
	"testing"

	"hotissue.kr/ember/internal/db"
)

func TestCommunityHeat_ZeroWithoutItems(t *testing.T) {
	t.Parallel()

	if got := CommunityHeat(0, 500000, 9000); got != 0 {
		t.Fatalf("expected 0 heat without community items, got %f", got)
	}
}

func TestCommunityHeat_ClampsAt100(t *testing.T) {
	t.Parallel()

	if got := CommunityHeat(3, 10_000_000, 100_000); got != 100 {
		t.Fatalf("expected clamp at 100, got %f", got)
	}
	if got := CommunityHeat(1, 0, 0); got != 0 {
		t.Fatalf("expected 0 for zero engagement, got %f", got)
	}
}

func TestNewsCredibility(t *testing.T) {
	t.Parallel()

	if got := NewsCredibility(5, 0); got != 0 {
		t.Fatalf("expected 0 credibility without news items, got %f", got)
	}
	// 20 sources and 50 articles saturate both components.
	if got := NewsCredibility(20, 50); got != 100 {
		t.Fatalf("expected 100 at both caps, got %f", got)
	}
	if got := NewsCredibility(40, 90); got != 100 {
		t.Fatalf("expected caps to bound the score at 100, got %f", got)
	}
	// 10 sources = 50 source score, 25 articles = 50 count score.
	if got := NewsCredibility(10, 25); got != 50 {
		t.Fatalf("expected 50 at half caps, got %f", got)
	}
}

func TestAmplification(t *testing.T) {
	t.Parallel()

	if got := Amplification(0); got != 0 {
		t.Fatalf("expected 0 amplification at zero heat, got %f", got)
	}
	if got := Amplification(10); got != 0 {
		t.Fatalf("expected noise floor to zero out amplification, got %f", got)
	}
	if got := Amplification(100); got != 1 {
		t.Fatalf("expected full amplification at 100 heat, got %f", got)
	}
	mid := Amplification(55)
	if mid <= 0 || mid >= 1 {
		t.Fatalf("expected mid-range amplification in (0,1), got %f", mid)
	}
}

func TestCombine_NewsOnlyCapsAt30Percent(t *testing.T) {
	t.Parallel()

	if got := Combine(0, 50); got != 15 {
		t.Fatalf("expected 15 for credibility 50 without community heat, got %d", got)
	}
	if got := Combine(0, 100); got != 30 {
		t.Fatalf("expected news-only ceiling of 30, got %d", got)
	}
}

func TestCombine_FullAmplificationUncaps(t *testing.T) {
	t.Parallel()

	if got := Combine(100, 80); got != 80 {
		t.Fatalf("expected 80 at full amplification, got %d", got)
	}
}

func TestCombine_AlwaysIntegerInRange(t *testing.T) {
	t.Parallel()

	for ch := 0.0; ch <= 100; ch += 12.5 {
		for nc := 0.0; nc <= 100; nc += 12.5 {
			got := Combine(ch, nc)
			if got < 0 || got > 100 {
				t.Fatalf("heat out of range: Combine(%f, %f) = %d", ch, nc, got)
			}
		}
	}
}

func TestScore_CountsUniqueSources(t *testing.T) {
	t.Parallel()

	news := []db.NewsItemRow{
		{NewsItemID: 1, Title: "a", Source: "연합뉴스"},
		{NewsItemID: 2, Title: "b", Source: "연합뉴스"},
		{NewsItemID: 3, Title: "c", Source: "한겨레"},
	}

	// No community engagement: score = credibility * 0.3.
	// credibility = 0.6*(2/20*100) + 0.4*(3/50*100) = 6 + 2.4 = 8.4 -> round(2.52) = 3.
	if got := Score(news, nil); got != 3 {
		t.Fatalf("unexpected news-only score: %d", got)
	}
}

func TestScore_CommunityEngagementLifts(t *testing.T) {
	t.Parallel()

	news := []db.NewsItemRow{
		{NewsItemID: 1, Title: "a", Source: "연합뉴스"},
		{NewsItemID: 2, Title: "b", Source: "한겨레"},
		{NewsItemID: 3, Title: "c", Source: "KBS"},
	}
	community := []db.CommunityItemRow{
		{CommunityItemID: 1, ViewCount: 200000, CommentCount: 4000},
	}

	muted := Score(news, nil)
	lifted := Score(news, community)
	if lifted <= muted {
		t.Fatalf("expected community engagement to lift heat: muted=%d lifted=%d", muted, lifted)
	}
}
