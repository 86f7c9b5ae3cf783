// Package mlapi provides a claim extraction adapter backed by the
// claim-analysis inference service.
package mlapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/claimlens/internal/core/domain"
	"github.com/custodia-labs/claimlens/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.ClaimExtractor = (*Extractor)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:8002"
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration for the inference service client.
type Config struct {
	// BaseURL is the service base URL (default: http://localhost:8002).
	BaseURL string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Extractor extracts claims from text via the inference service's
// /extract-claims endpoint.
type Extractor struct {
	client  *http.Client
	baseURL string
}

// extractRequest is the /extract-claims request format.
type extractRequest struct {
	Text                string  `json:"text"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

// claimSpan locates a claim within the submitted text.
type claimSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// extractResponse is the /extract-claims response format.
type extractResponse struct {
	Claims []struct {
		Text       string     `json:"text"`
		Type       string     `json:"type"`
		Confidence float64    `json:"confidence"`
		Position   *claimSpan `json:"position"`
		Keywords   []string   `json:"keywords"`
	} `json:"claims"`
	ProcessingTime float64 `json:"processing_time"`
	ModelVersion   string  `json:"model_version"`
}

// NewExtractor creates a new inference service client.
func NewExtractor(cfg Config) *Extractor {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Extractor{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
	}
}

// Extract returns the claims found in text with confidence at or above
// threshold.
func (e *Extractor) Extract(ctx context.Context, text string, threshold float64) ([]domain.ExtractedClaim, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	reqBody := extractRequest{
		Text:                text,
		ConfidenceThreshold: threshold,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		e.baseURL+"/extract-claims",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("extraction error (status %d): failed to read response", resp.StatusCode)
		}
		return nil, fmt.Errorf("extraction error (status %d): %s", resp.StatusCode, string(body))
	}

	var extractResp extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&extractResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	claims := make([]domain.ExtractedClaim, 0, len(extractResp.Claims))
	for _, c := range extractResp.Claims {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}

		claimType := domain.ClaimType(c.Type)
		if !claimType.IsValid() {
			claimType = domain.ClaimTypeAssertion
		}

		spanStart, spanEnd := -1, -1
		if c.Position != nil {
			spanStart, spanEnd = c.Position.Start, c.Position.End
		}

		claims = append(claims, domain.ExtractedClaim{
			Text:       c.Text,
			Type:       claimType,
			Confidence: c.Confidence,
			SpanStart:  spanStart,
			SpanEnd:    spanEnd,
			Keywords:   c.Keywords,
		})
	}

	return claims, nil
}

// Ping validates the service is reachable via its /health endpoint.
func (e *Extractor) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("extraction: failed to create ping request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("extraction: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("extraction: service returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (e *Extractor) Close() error {
	return nil
}
