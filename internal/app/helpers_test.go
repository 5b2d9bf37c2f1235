package app

import "testing"

func TestParseOutputFormat(t *testing.T) {
	got, err := parseOutputFormat(" JSON ", outputFormatTable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != outputFormatJSON {
		t.Fatalf("unexpected format: %q", got)
	}

	got, err = parseOutputFormat("", outputFormatTable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != outputFormatTable {
		t.Fatalf("unexpected default format: %q", got)
	}

	if _, err := parseOutputFormat("yaml", outputFormatTable); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestTruncateForTable(t *testing.T) {
	if got := truncateForTable("short", 10); got != "short" {
		t.Fatalf("unexpected text: %q", got)
	}
	if got := truncateForTable("abcdefghijklmnop", 10); got != "abcdefg..." {
		t.Fatalf("unexpected truncated text: %q", got)
	}
	// Korean titles must be cut on rune boundaries, not bytes.
	if got := truncateForTable("가나다라마바사아자차", 7); got != "가나다라..." {
		t.Fatalf("unexpected truncated korean text: %q", got)
	}
	if got := truncateForTable("no limit", 0); got != "no limit" {
		t.Fatalf("unexpected text with zero limit: %q", got)
	}
}
