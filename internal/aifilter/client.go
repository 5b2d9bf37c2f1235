package aifilter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hotissue.kr/ember/internal/config"
)

const systemPrompt = `당신은 한국 뉴스와 커뮤니티 게시글의 사회적 파급력을 평가하는 분석가입니다.
각 항목에 대해 0~10 사이의 사회적 파급력 점수(score), 카테고리(category: 연예, 스포츠, 정치, 사회, 기술 중 하나), 한 문장 근거(reason)를 매기세요.
응답은 JSON 배열만 출력합니다: [{"id": <입력 id>, "score": <number>, "category": "<카테고리>", "reason": "<근거>"}]
입력에 없는 id를 만들지 말고, 다른 텍스트를 덧붙이지 마세요.`

// BatchItem is one scoring request entry. IDs are batch-local, so the
// model can never leak a raw store identifier back into the pipeline.
type BatchItem struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	SourceType string `json:"source_type"`
}

// Scorer sends one batch of titles to a scoring backend and returns the
// raw response payload for strict validation by the caller.
type Scorer interface {
	ScoreBatch(ctx context.Context, items []BatchItem) (json.RawMessage, error)
}

// ChatClient is a Scorer backed by an OpenAI-compatible chat completion
// endpoint.
type ChatClient struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ Scorer = (*ChatClient)(nil)

// NewChatClient builds a client from configuration. A missing API key is
// a hard error: the filter must fail loudly instead of fabricating scores.
func NewChatClient(cfg *config.Config) (*ChatClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for relevance scoring")
	}

	return &ChatClient{
		endpoint: strings.TrimSpace(cfg.OpenAIEndpoint),
		model:    strings.TrimSpace(cfg.OpenAIModel),
		apiKey:   strings.TrimSpace(cfg.OpenAIAPIKey),
		httpClient: &http.Client{
			Timeout: 45 * time.Second,
		},
	}, nil
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ScoreBatch posts the batch as a user message and returns the model's
// content verbatim.
func (c *ChatClient) ScoreBatch(ctx context.Context, items []BatchItem) (json.RawMessage, error) {
	if c == nil {
		return nil, fmt.Errorf("chat client is nil")
	}
	if len(items) == 0 {
		return json.RawMessage(`[]`), nil
	}

	userPayload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal batch payload: %w", err)
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": string(userPayload)},
		},
		"temperature": 0,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("score batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("scoring endpoint %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("decode chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("chat completion has no choices")
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	content = stripCodeFence(content)
	return json.RawMessage(content), nil
}

// stripCodeFence removes a surrounding markdown fence some models insist
// on emitting around JSON.
func stripCodeFence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
