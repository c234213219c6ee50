// Package report produces a short narrative about a place from its facts.
package report

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geoassist/internal/model"
	"github.com/sells-group/geoassist/pkg/anthropic"
)

// Writer turns a fact record into prose.
type Writer interface {
	Write(ctx context.Context, place model.ResolvedPlace, rec model.FactRecord) (string, error)
}

// ErrEmptyReport is returned when the model answers with no text.
var ErrEmptyReport = eris.New("report: empty response")

const systemPrompt = `You write concise reports about places for a map assistant.
Use only the facts in the JSON document. Null values are unknown; never guess them.
Answer in the language of the place name when obvious, otherwise in English.`

// AnthropicWriter writes reports with the Messages API.
type AnthropicWriter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicWriter creates a Writer backed by client.
func NewAnthropicWriter(client anthropic.Client, model string, maxTokens int64) *AnthropicWriter {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicWriter{client: client, model: model, maxTokens: maxTokens}
}

// Write sends the place and its record as JSON and returns the model's text.
func (w *AnthropicWriter) Write(ctx context.Context, place model.ResolvedPlace, rec model.FactRecord) (string, error) {
	doc, err := json.Marshal(struct {
		Place string           `json:"place"`
		Scope string           `json:"scope"`
		Facts model.FactRecord `json:"facts"`
	}{Place: rec.Name, Scope: place.Scope.String(), Facts: rec})
	if err != nil {
		return "", eris.Wrap(err, "report: encode facts")
	}

	resp, err := w.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     w.model,
		MaxTokens: w.maxTokens,
		System: []anthropic.SystemBlock{
			{Text: systemPrompt, CacheControl: &anthropic.CacheControl{TTL: "5m"}},
		},
		Messages: []anthropic.Message{{Role: "user", Content: string(doc)}},
	})
	if err != nil {
		return "", eris.Wrap(err, "report: write")
	}
	resp.Usage.Log(w.model, "report")

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyReport
	}
	return text, nil
}
