// Package pinecone provides a vector store adapter over the Pinecone
// serverless REST API.
package pinecone

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

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// Default configuration values.
const (
	DefaultTimeout = 30 * time.Second

	// DefaultTopK is the query result limit when the caller passes zero.
	// Pinecone rejects queries without a positive topK.
	DefaultTopK = 10
)

// maxUpsertBatch is Pinecone's per-request vector limit.
const maxUpsertBatch = 100

// Config holds configuration for the Pinecone vector store.
type Config struct {
	// APIKey is the Pinecone API key (required).
	APIKey string

	// IndexHost is the index endpoint, as shown in the Pinecone console
	// (required). A bare host is treated as https.
	IndexHost string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// VectorStore talks to one Pinecone index over HTTP.
type VectorStore struct {
	client *http.Client
	host   string
	apiKey string
}

// NewVectorStore creates a new Pinecone-backed vector store.
func NewVectorStore(cfg Config) (*VectorStore, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pinecone: API key is required")
	}
	if cfg.IndexHost == "" {
		return nil, fmt.Errorf("pinecone: index host is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	host := strings.TrimSuffix(cfg.IndexHost, "/")
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}

	return &VectorStore{
		client: &http.Client{Timeout: cfg.Timeout},
		host:   host,
		apiKey: cfg.APIKey,
	}, nil
}

// wireVector is the Pinecone vector representation.
type wireVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type upsertRequest struct {
	Vectors   []wireVector `json:"vectors"`
	Namespace string       `json:"namespace,omitempty"`
}

type queryRequest struct {
	Namespace       string         `json:"namespace,omitempty"`
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeMetadata bool           `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

type deleteRequest struct {
	IDs       []string       `json:"ids,omitempty"`
	DeleteAll bool           `json:"deleteAll,omitempty"`
	Filter    map[string]any `json:"filter,omitempty"`
	Namespace string         `json:"namespace,omitempty"`
}

type statsResponse struct {
	Namespaces map[string]struct {
		VectorCount int `json:"vectorCount"`
	} `json:"namespaces"`
	Dimension        int `json:"dimension"`
	TotalVectorCount int `json:"totalVectorCount"`
}

// Upsert writes records into the namespace in batches of at most 100,
// the Pinecone per-request limit.
func (s *VectorStore) Upsert(ctx context.Context, namespace string, records []driven.VectorRecord) error {
	vectors := make([]wireVector, len(records))
	for i, rec := range records {
		vectors[i] = wireVector{
			ID:       rec.ID,
			Values:   rec.Values,
			Metadata: metadataToWire(rec.Metadata),
		}
	}

	for start := 0; start < len(vectors); start += maxUpsertBatch {
		end := min(start+maxUpsertBatch, len(vectors))
		req := upsertRequest{Vectors: vectors[start:end], Namespace: namespace}
		if err := s.post(ctx, "/vectors/upsert", req, nil); err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}

// Query runs a similarity search in the namespace. Filtering happens
// server-side via Pinecone's metadata filter language.
func (s *VectorStore) Query(ctx context.Context, namespace string, vector []float32, opts driven.QueryOptions) ([]domain.SimilarityResult, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	req := queryRequest{
		Namespace:       namespace,
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: true,
	}
	if opts.Filter != nil && !opts.Filter.IsZero() {
		req.Filter = filterToWire(*opts.Filter)
	}

	var resp queryResponse
	if err := s.post(ctx, "/query", req, &resp); err != nil {
		return nil, err
	}

	results := make([]domain.SimilarityResult, 0, len(resp.Matches))
	for _, match := range resp.Matches {
		results = append(results, domain.SimilarityResult{
			ID:       match.ID,
			Score:    match.Score,
			Metadata: metadataFromWire(match.Metadata),
		})
	}
	return results, nil
}

// DeleteByIDs removes the identified records from the namespace.
func (s *VectorStore) DeleteByIDs(ctx context.Context, namespace string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.post(ctx, "/vectors/delete", deleteRequest{IDs: ids, Namespace: namespace}, nil)
}

// DeleteByFilter removes records matching the filter. An empty filter
// maps to Pinecone's deleteAll for the namespace.
func (s *VectorStore) DeleteByFilter(ctx context.Context, namespace string, filter driven.MetadataFilter) error {
	req := deleteRequest{Namespace: namespace}
	if filter.IsZero() {
		req.DeleteAll = true
	} else {
		req.Filter = filterToWire(filter)
	}
	return s.post(ctx, "/vectors/delete", req, nil)
}

// DescribeStats reports index totals and per-namespace counts.
func (s *VectorStore) DescribeStats(ctx context.Context) (*driven.IndexStats, error) {
	var resp statsResponse
	if err := s.post(ctx, "/describe_index_stats", struct{}{}, &resp); err != nil {
		return nil, err
	}

	stats := &driven.IndexStats{
		TotalVectors: resp.TotalVectorCount,
		Dimension:    resp.Dimension,
		Namespaces:   make(map[string]int, len(resp.Namespaces)),
	}
	for name, ns := range resp.Namespaces {
		stats.Namespaces[name] = ns.VectorCount
	}
	return stats, nil
}

// Ping validates the index is reachable and the API key is accepted.
func (s *VectorStore) Ping(ctx context.Context) error {
	return s.post(ctx, "/describe_index_stats", struct{}{}, nil)
}

// Close releases resources.
func (s *VectorStore) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

// post sends a JSON request to the index host and decodes the response
// into out when out is non-nil.
func (s *VectorStore) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pinecone error (status %d): %s", resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// filterToWire renders a metadata filter in Pinecone's filter language.
func filterToWire(f driven.MetadataFilter) map[string]any {
	wire := make(map[string]any)
	if f.ProjectID != "" {
		wire["project_id"] = map[string]any{"$eq": f.ProjectID}
	}
	if f.EvidenceType != "" {
		wire["evidence_type"] = map[string]any{"$eq": string(f.EvidenceType)}
	}
	if f.SourceType != "" {
		wire["source_type"] = map[string]any{"$eq": string(f.SourceType)}
	}
	if len(wire) == 0 {
		return nil
	}
	return wire
}

// metadataToWire flattens metadata into the string/number/list values
// Pinecone accepts. Timestamps travel as RFC 3339 strings.
func metadataToWire(m domain.VectorMetadata) map[string]any {
	wire := map[string]any{
		"text":              m.Text,
		"evidence_type":     string(m.EvidenceType),
		"source_type":       string(m.SourceType),
		"project_id":        m.ProjectID,
		"reliability_score": m.ReliabilityScore,
	}
	if !m.CreatedAt.IsZero() {
		wire["created_at"] = m.CreatedAt.UTC().Format(time.RFC3339)
	}
	if m.SourceURL != "" {
		wire["source_url"] = m.SourceURL
	}
	if m.SourceTitle != "" {
		wire["source_title"] = m.SourceTitle
	}
	if len(m.Keywords) > 0 {
		wire["keywords"] = m.Keywords
	}
	return wire
}

func metadataFromWire(raw map[string]any) domain.VectorMetadata {
	m := domain.VectorMetadata{
		Text:        stringField(raw, "text"),
		SourceURL:   stringField(raw, "source_url"),
		SourceTitle: stringField(raw, "source_title"),
		ProjectID:   stringField(raw, "project_id"),
	}
	m.EvidenceType = domain.EvidenceType(stringField(raw, "evidence_type"))
	m.SourceType = domain.SourceType(stringField(raw, "source_type"))

	if ts := stringField(raw, "created_at"); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			m.CreatedAt = t
		}
	}
	if score, ok := raw["reliability_score"].(float64); ok {
		m.ReliabilityScore = score
	}
	if list, ok := raw["keywords"].([]any); ok {
		for _, item := range list {
			if kw, ok := item.(string); ok {
				m.Keywords = append(m.Keywords, kw)
			}
		}
	}
	return m
}

func stringField(raw map[string]any, key string) string {
	v, _ := raw[key].(string)
	return v
}
