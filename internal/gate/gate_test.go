package gate

import (
	"testing"
	"time"

	"hotissue.kr/ember/internal/cluster"
	"hotissue.kr/ember/internal/config"
	"hotissue.kr/ember/internal/db"
)

func defaultThresholds() config.Thresholds {
	return config.Thresholds{
		AlertThreshold:          5,
		AutoApproveThreshold:    10,
		MinUniqueSources:        2,
		MinHeatToRegister:       10,
		NoResponseHours:         6,
		WindowHours:             3,
		CommunityMatchThreshold: 2,
	}
}

func makeCluster(newsCounts map[string]int, communityCount int, earliest time.Time) *cluster.Cluster {
	c := &cluster.Cluster{Tokens: cluster.Tokenize("지하철 파업")}
	id := int64(1)
	at := earliest
	for source, count := range newsCounts {
		for i := 0; i < count; i++ {
			c.Members = append(c.Members, cluster.Item{
				ID:        id,
				Kind:      db.SourceTypeNews,
				Title:     "지하철 파업 관련 보도",
				Source:    source,
				CreatedAt: at,
			})
			id++
			at = at.Add(time.Minute)
		}
	}
	for i := 0; i < communityCount; i++ {
		c.Members = append(c.Members, cluster.Item{
			ID:        id,
			Kind:      db.SourceTypeCommunity,
			Title:     "지하철 파업 후기",
			CreatedAt: at,
		})
		id++
		at = at.Add(time.Minute)
	}
	return c
}

func TestQualifies_RejectsBelowAlertThreshold(t *testing.T) {
	t.Parallel()

	earliest := time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)
	c := makeCluster(map[string]int{"연합뉴스": 2, "한겨레": 1, "KBS": 1}, 0, earliest)
	if Qualifies(c, defaultThresholds()) {
		t.Fatalf("4 members must not pass ALERT_THRESHOLD=5")
	}
}

func TestQualifies_RejectsSingleSourceWireDuplication(t *testing.T) {
	t.Parallel()

	earliest := time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)
	c := makeCluster(map[string]int{"연합뉴스": 6}, 0, earliest)
	if Qualifies(c, defaultThresholds()) {
		t.Fatalf("6 items from 1 source must not pass MIN_UNIQUE_SOURCES=2")
	}
}

func TestQualifies_CommunityOnlyClusterNeedsNoSourceDiversity(t *testing.T) {
	t.Parallel()

	earliest := time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)
	c := makeCluster(nil, 6, earliest)
	if !Qualifies(c, defaultThresholds()) {
		t.Fatalf("community-only cluster carries no source signal and must pass")
	}
}

func TestQualifies_AcceptsDiverseCluster(t *testing.T) {
	t.Parallel()

	earliest := time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)
	c := makeCluster(map[string]int{"연합뉴스": 3, "한겨레": 2, "KBS": 1}, 0, earliest)
	if !Qualifies(c, defaultThresholds()) {
		t.Fatalf("6 items from 3 sources must qualify")
	}
}

func TestShouldAutoApprove_SustainedVolume(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 13, 30, 0, 0, time.UTC)
	earliest := now.Add(-7 * time.Hour)
	c := makeCluster(map[string]int{"연합뉴스": 5, "한겨레": 4, "KBS": 3}, 0, earliest)

	if !ShouldAutoApprove(c, now, defaultThresholds()) {
		t.Fatalf("12 members, earliest 7h old must auto-approve")
	}
}

func TestShouldAutoApprove_RecentClusterStaysPending(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 13, 30, 0, 0, time.UTC)
	earliest := now.Add(-2 * time.Hour)
	c := makeCluster(map[string]int{"연합뉴스": 5, "한겨레": 4, "KBS": 3}, 0, earliest)

	if ShouldAutoApprove(c, now, defaultThresholds()) {
		t.Fatalf("earliest member younger than NO_RESPONSE_HOURS must stay pending")
	}
}

func TestShouldAutoApprove_LowVolumeStaysPending(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 13, 30, 0, 0, time.UTC)
	earliest := now.Add(-10 * time.Hour)
	c := makeCluster(map[string]int{"연합뉴스": 3, "한겨레": 3}, 0, earliest)

	if ShouldAutoApprove(c, now, defaultThresholds()) {
		t.Fatalf("6 members must not reach AUTO_APPROVE_THRESHOLD=10")
	}
}

func TestMajorityCategory(t *testing.T) {
	t.Parallel()

	politics := db.CategoryPolitics
	society := db.CategorySociety
	members := []cluster.Item{
		{Kind: db.SourceTypeNews, Category: politics},
		{Kind: db.SourceTypeNews, Category: politics},
		{Kind: db.SourceTypeNews, Category: society},
		{Kind: db.SourceTypeCommunity, Category: politics}, // community carries no vote
	}
	if got := MajorityCategory(members); got != politics {
		t.Fatalf("expected majority %q, got %q", politics, got)
	}
}

func TestMajorityCategory_DefaultsWithoutSignal(t *testing.T) {
	t.Parallel()

	members := []cluster.Item{
		{Kind: db.SourceTypeNews, Category: ""},
		{Kind: db.SourceTypeNews, Category: "무효"},
		{Kind: db.SourceTypeCommunity},
	}
	if got := MajorityCategory(members); got != db.CategoryDefault {
		t.Fatalf("expected default category %q, got %q", db.CategoryDefault, got)
	}
}

func TestMajorityCategory_TieGoesToFirstSeen(t *testing.T) {
	t.Parallel()

	members := []cluster.Item{
		{Kind: db.SourceTypeNews, Category: db.CategoryTech},
		{Kind: db.SourceTypeNews, Category: db.CategoryPolitics},
		{Kind: db.SourceTypeNews, Category: db.CategoryPolitics},
		{Kind: db.SourceTypeNews, Category: db.CategoryTech},
	}
	if got := MajorityCategory(members); got != db.CategoryTech {
		t.Fatalf("expected first-seen tie-break %q, got %q", db.CategoryTech, got)
	}
}

func TestBonusCommunityMatches_RequiresStricterOverlap(t *testing.T) {
	t.Parallel()

	window := []db.CommunityItemRow{
		{CommunityItemID: 1, Title: "지하철 파업 언제 끝나냐"},  // 2 shared tokens
		{CommunityItemID: 2, Title: "지하철 요금 또 오르네"},   // 1 shared token
		{CommunityItemID: 3, Title: "오늘 점심 뭐 먹지"},      // 0 shared tokens
		{CommunityItemID: 4, Title: "서울 지하철 파업 실시간"}, // member, excluded
	}
	exclude := map[int64]struct{}{4: {}}

	matched := BonusCommunityMatches("서울 지하철 파업 돌입", window, 2, exclude)
	if len(matched) != 1 || matched[0] != 1 {
		t.Fatalf("expected only item 1 to match, got %v", matched)
	}
}

func TestBonusCommunityMatches_EmptyRepresentativeTitle(t *testing.T) {
	t.Parallel()

	window := []db.CommunityItemRow{{CommunityItemID: 1, Title: "지하철 파업"}}
	if matched := BonusCommunityMatches("!!!", window, 2, nil); matched != nil {
		t.Fatalf("untokenizable title must match nothing, got %v", matched)
	}
}

func TestDedupOutcome(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		existing db.IssueRow
		found    bool
		want     DedupAction
	}{
		{name: "no recent issue creates", found: false, want: DedupCreate},
		{name: "pending issue absorbs members", existing: db.IssueRow{ApprovalStatus: db.ApprovalPending}, found: true, want: DedupUpdate},
		{name: "approved issue untouched", existing: db.IssueRow{ApprovalStatus: db.ApprovalApproved}, found: true, want: DedupSkip},
		{name: "rejected issue untouched", existing: db.IssueRow{ApprovalStatus: db.ApprovalRejected}, found: true, want: DedupSkip},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := DedupOutcome(tc.existing, tc.found); got != tc.want {
				t.Fatalf("DedupOutcome(%+v, %t) = %v, want %v", tc.existing, tc.found, got, tc.want)
			}
		})
	}
}

func TestDedupOutcome_SameTitleNeverCreatesTwice(t *testing.T) {
	t.Parallel()

	// The first pass creates; any later pass within the dedup window finds
	// that issue and must update or skip, never create again.
	first := DedupOutcome(db.IssueRow{}, false)
	if first != DedupCreate {
		t.Fatalf("first pass must create, got %v", first)
	}

	for _, approval := range []string{db.ApprovalPending, db.ApprovalApproved, db.ApprovalRejected} {
		again := DedupOutcome(db.IssueRow{Title: "지하철 파업", ApprovalStatus: approval}, true)
		if again == DedupCreate {
			t.Fatalf("second pass with approval %q must not create a duplicate issue", approval)
		}
	}
}
