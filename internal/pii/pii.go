// Package pii provides detection and redaction of personally identifiable
// information in document text.
//
// Detection is delegated to a Presidio analyzer/anonymizer sidecar. The
// capability is optional: when redaction is disabled or no sidecar is
// configured, a no-op detector is selected at construction time and every
// call degrades to a pass-through. No method of any Detector implementation
// returns an error — redaction must never be the reason a request fails.
package pii

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// Replacement is the literal substituted for every detected span.
const Replacement = "[REDACTED]"

// Entity is one detected PII span.
type Entity struct {
	EntityType string  `json:"entity_type"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// Detector detects and redacts PII spans in text.
type Detector interface {
	// Detect returns the PII spans found in text, or nil when detection is
	// unavailable or fails.
	Detect(ctx context.Context, text string) []Entity

	// Redact replaces every detected span with the Replacement literal.
	// On any failure the original text is returned unchanged.
	Redact(ctx context.Context, text string) string

	// HasPII reports whether any span was detected.
	HasPII(ctx context.Context, text string) bool
}

// Config selects and configures the detector implementation.
type Config struct {
	Enabled       bool
	AnalyzerURL   string
	AnonymizerURL string
	Entities      []string
}

// NewFromConfig returns a Presidio-backed detector when redaction is enabled
// and both sidecar endpoints are configured, and the no-op detector
// otherwise.
func NewFromConfig(cfg Config, logger *slog.Logger) Detector {
	if !cfg.Enabled || cfg.AnalyzerURL == "" || cfg.AnonymizerURL == "" {
		logger.Info("pii redaction disabled")
		return NoopDetector{}
	}
	return &PresidioDetector{
		analyzerURL:   cfg.AnalyzerURL,
		anonymizerURL: cfg.AnonymizerURL,
		entities:      cfg.Entities,
		httpClient:    &http.Client{},
		logger:        logger,
	}
}

// NoopDetector is the pass-through implementation used when the capability
// is unavailable.
type NoopDetector struct{}

// Detect always returns nil.
func (NoopDetector) Detect(_ context.Context, _ string) []Entity { return nil }

// Redact returns the text unchanged.
func (NoopDetector) Redact(_ context.Context, text string) string { return text }

// HasPII always returns false.
func (NoopDetector) HasPII(_ context.Context, _ string) bool { return false }

// PresidioDetector calls a Presidio analyzer/anonymizer sidecar over HTTP.
type PresidioDetector struct {
	analyzerURL   string
	anonymizerURL string
	entities      []string
	httpClient    *http.Client
	logger        *slog.Logger
}

type analyzeRequest struct {
	Text     string   `json:"text"`
	Language string   `json:"language"`
	Entities []string `json:"entities,omitempty"`
}

type analyzeResult struct {
	EntityType string  `json:"entity_type"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Score      float64 `json:"score"`
}

// Detect analyzes text via the sidecar. Any failure is logged and reported
// as "no spans".
func (d *PresidioDetector) Detect(ctx context.Context, text string) []Entity {
	results, err := d.analyze(ctx, text)
	if err != nil {
		d.logger.Warn("pii detection failed", "error", err)
		return nil
	}

	out := make([]Entity, 0, len(results))
	for _, r := range results {
		e := Entity{EntityType: r.EntityType, Start: r.Start, End: r.End, Score: r.Score}
		if r.Start >= 0 && r.End <= len(text) && r.Start <= r.End {
			e.Text = text[r.Start:r.End]
		}
		out = append(out, e)
	}
	return out
}

// Redact analyzes and anonymizes text via the sidecar, replacing every span
// with the Replacement literal. A single default replacement rule applies
// uniformly to all entity types. On any failure the original text is
// returned.
func (d *PresidioDetector) Redact(ctx context.Context, text string) string {
	results, err := d.analyze(ctx, text)
	if err != nil {
		d.logger.Warn("pii redaction failed, returning original text", "error", err)
		return text
	}
	if len(results) == 0 {
		return text
	}

	reqBody, err := json.Marshal(map[string]any{
		"text": text,
		"anonymizers": map[string]any{
			"DEFAULT": map[string]any{"type": "replace", "new_value": Replacement},
		},
		"analyzer_results": results,
	})
	if err != nil {
		d.logger.Warn("pii redaction failed, returning original text", "error", err)
		return text
	}

	var resp struct {
		Text string `json:"text"`
	}
	if err := d.post(ctx, d.anonymizerURL+"/anonymize", reqBody, &resp); err != nil {
		d.logger.Warn("pii redaction failed, returning original text", "error", err)
		return text
	}
	if resp.Text == "" {
		return text
	}
	return resp.Text
}

// HasPII reports whether the analyzer found any span.
func (d *PresidioDetector) HasPII(ctx context.Context, text string) bool {
	return len(d.Detect(ctx, text)) > 0
}

func (d *PresidioDetector) analyze(ctx context.Context, text string) ([]analyzeResult, error) {
	reqBody, err := json.Marshal(analyzeRequest{Text: text, Language: "en", Entities: d.entities})
	if err != nil {
		return nil, err
	}

	var results []analyzeResult
	if err := d.post(ctx, d.analyzerURL+"/analyze", reqBody, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (d *PresidioDetector) post(ctx context.Context, url string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode, body: string(respBody)}
	}
	return json.Unmarshal(respBody, out)
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}
