package cluster

import "testing"

func TestTokenize_LowercasesAndDedupes(t *testing.T) {
	t.Parallel()

	tokens := Tokenize("Seoul SEOUL subway Subway strike")
	if len(tokens) != 3 {
		t.Fatalf("expected 3 distinct tokens, got %d: %v", len(tokens), tokens)
	}
	for _, want := range []string{"seoul", "subway", "strike"} {
		if _, ok := tokens[want]; !ok {
			t.Fatalf("expected token %q in %v", want, tokens)
		}
	}
}

func TestTokenize_DropsShortTokens(t *testing.T) {
	t.Parallel()

	tokens := Tokenize("a b 김 subway 9호선")
	if _, ok := tokens["a"]; ok {
		t.Fatalf("single-rune token should be dropped")
	}
	if _, ok := tokens["김"]; ok {
		t.Fatalf("single-rune hangul token should be dropped")
	}
	if _, ok := tokens["subway"]; !ok {
		t.Fatalf("expected token subway in %v", tokens)
	}
	if _, ok := tokens["9호선"]; !ok {
		t.Fatalf("expected multi-rune hangul token 9호선 in %v", tokens)
	}
}

func TestTokenize_PunctuationOnlyYieldsEmptySet(t *testing.T) {
	t.Parallel()

	if tokens := Tokenize("!!! ... ??? --"); len(tokens) != 0 {
		t.Fatalf("expected empty token set, got %v", tokens)
	}
}

func TestTokenize_StripsPunctuation(t *testing.T) {
	t.Parallel()

	tokens := Tokenize(`"지하철 파업!" (3일째)…노조, 협상 결렬`)
	for _, want := range []string{"지하철", "파업", "3일째", "노조", "협상", "결렬"} {
		if _, ok := tokens[want]; !ok {
			t.Fatalf("expected token %q in %v", want, tokens)
		}
	}
}

func TestSharedTokens(t *testing.T) {
	t.Parallel()

	a := Tokenize("서울 지하철 파업 예고")
	b := Tokenize("지하철 노조 파업 돌입")
	if got := SharedTokens(a, b); got != 2 {
		t.Fatalf("expected 2 shared tokens, got %d", got)
	}
}

func TestOverlapFraction(t *testing.T) {
	t.Parallel()

	keywords := Tokenize("서울 지하철 파업")
	tokens := Tokenize("지하철 요금 인상 논란")

	fraction, matched := OverlapFraction(keywords, tokens)
	if matched != 1 {
		t.Fatalf("expected 1 matched keyword, got %d", matched)
	}
	if fraction < 0.33 || fraction > 0.34 {
		t.Fatalf("expected fraction ~1/3, got %f", fraction)
	}

	if fraction, matched := OverlapFraction(nil, tokens); fraction != 0 || matched != 0 {
		t.Fatalf("expected zero overlap for empty keyword set")
	}
}
