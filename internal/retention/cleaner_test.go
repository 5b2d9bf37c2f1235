package retention

import (
	"testing"
	"time"
)

func TestEligible_UnlinkedPastWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	eightDaysOld := now.AddDate(0, 0, -8)
	if !Eligible(nil, eightDaysOld, now, 7) {
		t.Fatalf("unlinked item 8 days old must be eligible at RETAIN_DAYS=7")
	}

	sixDaysOld := now.AddDate(0, 0, -6)
	if Eligible(nil, sixDaysOld, now, 7) {
		t.Fatalf("unlinked item 6 days old must be retained")
	}
}

func TestEligible_LinkedItemsNeverDeleted(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	issueID := int64(42)

	ancient := now.AddDate(0, 0, -365)
	if Eligible(&issueID, ancient, now, 7) {
		t.Fatalf("linked item must never be eligible regardless of age")
	}
}

func TestCutoff(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	want := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	if got := Cutoff(now, 7); !got.Equal(want) {
		t.Fatalf("unexpected cutoff: got %v want %v", got, want)
	}
}
