package httpapi

import "testing"

func TestParsePositiveInt(t *testing.T) {
	got, err := parsePositiveInt("", 25, 1, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 25 {
		t.Fatalf("unexpected default: %d", got)
	}

	got, err = parsePositiveInt(" 50 ", 25, 1, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 50 {
		t.Fatalf("unexpected value: %d", got)
	}

	if _, err := parsePositiveInt("0", 25, 1, 200); err == nil {
		t.Fatalf("expected error below minimum")
	}
	if _, err := parsePositiveInt("201", 25, 1, 200); err == nil {
		t.Fatalf("expected error above maximum")
	}
	if _, err := parsePositiveInt("abc", 25, 1, 200); err == nil {
		t.Fatalf("expected error for non-integer")
	}
}
