package scoreschema

import (
	"encoding/json"
	"testing"
)

func TestValidateScoreItems_AcceptsWellFormedItems(t *testing.T) {
	t.Parallel()

	payload := json.RawMessage(`[
		{"id": 1, "score": 8, "category": "정치", "reason": "전국 단위 파급력"},
		{"id": 2, "score": 3.5, "category": "연예", "reason": "단발성 가십"}
	]`)

	items, dropped, err := ValidateScoreItems(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dropped != 0 {
		t.Fatalf("expected no drops, got %d", dropped)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != 1 || items[0].Score != 8 || items[0].Category != "정치" {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
}

func TestValidateScoreItems_DropsInvalidItemsInsteadOfDefaulting(t *testing.T) {
	t.Parallel()

	payload := json.RawMessage(`[
		{"id": 1, "score": 11, "category": "정치", "reason": "점수 범위 초과"},
		{"id": 2, "score": "high", "category": "정치", "reason": "점수가 문자열"},
		{"id": 3, "score": 7, "category": "경제", "reason": "카테고리 집합 밖"},
		{"id": 4, "score": 7, "category": "정치"},
		{"id": 5, "score": 7, "category": "정치", "reason": "정상 항목"}
	]`)

	items, dropped, err := ValidateScoreItems(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dropped != 4 {
		t.Fatalf("expected 4 dropped items, got %d", dropped)
	}
	if len(items) != 1 || items[0].ID != 5 {
		t.Fatalf("expected only item 5 to survive, got %+v", items)
	}
}

func TestValidateScoreItems_RejectsNonArrayPayload(t *testing.T) {
	t.Parallel()

	if _, _, err := ValidateScoreItems(json.RawMessage(`{"id": 1}`)); err == nil {
		t.Fatalf("expected error for non-array payload")
	}
	if _, _, err := ValidateScoreItems(json.RawMessage(`not json`)); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
	if _, _, err := ValidateScoreItems(json.RawMessage(``)); err == nil {
		t.Fatalf("expected error for empty payload")
	}
}

func TestValidateScoreItems_RejectsTrailingContent(t *testing.T) {
	t.Parallel()

	if _, _, err := ValidateScoreItems(json.RawMessage(`[] garbage`)); err == nil {
		t.Fatalf("expected error for trailing content")
	}
}

func TestValidateScoreItems_DropsExtraFields(t *testing.T) {
	t.Parallel()

	payload := json.RawMessage(`[
		{"id": 1, "score": 9, "category": "사회", "reason": "ok", "confidence": 0.9}
	]`)

	items, dropped, err := ValidateScoreItems(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 || dropped != 1 {
		t.Fatalf("expected extra-field item to be dropped, got items=%d dropped=%d", len(items), dropped)
	}
}
