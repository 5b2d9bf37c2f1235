// Package scoreschema validates LLM scoring responses. Validation fails
// closed: an item that does not satisfy the schema is dropped, never
// repaired or defaulted.
package scoreschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed score_item.schema.json
var scoreItemSchemaJSON string

// ScoredItem is one validated entry of a scoring response.
type ScoredItem struct {
	ID       int     `json:"id"`
	Score    float64 `json:"score"`
	Category string  `json:"category"`
	Reason   string  `json:"reason"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateScoreItems decodes a scoring response. The payload must be a
// JSON array; each element is validated against the item schema and
// dropped when it fails. The returned dropped count covers schema-invalid
// elements only.
func ValidateScoreItems(payload json.RawMessage) ([]ScoredItem, int, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("decode score response JSON: %w", err)
	}

	elements, ok := value.([]any)
	if !ok {
		return nil, 0, fmt.Errorf("score response must be a JSON array")
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, 0, fmt.Errorf("load schema: %w", err)
	}

	items := make([]ScoredItem, 0, len(elements))
	dropped := 0
	for _, element := range elements {
		if err := schema.Validate(element); err != nil {
			dropped++
			continue
		}

		normalized, err := json.Marshal(element)
		if err != nil {
			dropped++
			continue
		}
		var item ScoredItem
		if err := json.Unmarshal(normalized, &item); err != nil {
			dropped++
			continue
		}
		if strings.TrimSpace(item.Reason) == "" {
			dropped++
			continue
		}
		items = append(items, item)
	}

	return items, dropped, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("score_item.schema.json", strings.NewReader(scoreItemSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("score_item.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}
