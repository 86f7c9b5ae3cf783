// Package bolt persists vectors in a local bbolt file, one bucket per
// namespace. Queries run an exhaustive cosine scan over the namespace,
// which stays fast up to tens of thousands of vectors and needs no
// external service.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.etcd.io/bbolt"

	"github.com/custodia-labs/claimlens/internal/core/domain"
	"github.com/custodia-labs/claimlens/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// metaBucket holds index-wide settings. Its name starts with an
// underscore so it can never collide with a project namespace, which
// is always a UUID or slug.
var (
	metaBucket   = []byte("_meta")
	dimensionKey = []byte("dimension")
)

// VectorStore is a bbolt-backed implementation of driven.VectorStore.
type VectorStore struct {
	db *bbolt.DB
}

// NewVectorStore opens (or creates) the vector store file at path.
func NewVectorStore(path string) (*VectorStore, error) {
	if path == "" {
		return nil, fmt.Errorf("bolt: store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init vector store: %w", err)
	}

	return &VectorStore{db: db}, nil
}

// storedRecord is the JSON value persisted per vector. The stored
// shape is independent of the domain types so field renames never
// silently change the file format.
type storedRecord struct {
	Values   []float32      `json:"v"`
	Metadata storedMetadata `json:"m"`
}

type storedMetadata struct {
	Text             string    `json:"text,omitempty"`
	EvidenceType     string    `json:"evidence_type,omitempty"`
	SourceType       string    `json:"source_type,omitempty"`
	SourceURL        string    `json:"source_url,omitempty"`
	SourceTitle      string    `json:"source_title,omitempty"`
	ProjectID        string    `json:"project_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	ReliabilityScore float64   `json:"reliability_score"`
	Keywords         []string  `json:"keywords,omitempty"`
}

func toStored(m domain.VectorMetadata) storedMetadata {
	return storedMetadata{
		Text:             m.Text,
		EvidenceType:     string(m.EvidenceType),
		SourceType:       string(m.SourceType),
		SourceURL:        m.SourceURL,
		SourceTitle:      m.SourceTitle,
		ProjectID:        m.ProjectID,
		CreatedAt:        m.CreatedAt,
		ReliabilityScore: m.ReliabilityScore,
		Keywords:         m.Keywords,
	}
}

func (sm storedMetadata) toDomain() domain.VectorMetadata {
	return domain.VectorMetadata{
		Text:             sm.Text,
		EvidenceType:     domain.EvidenceType(sm.EvidenceType),
		SourceType:       domain.SourceType(sm.SourceType),
		SourceURL:        sm.SourceURL,
		SourceTitle:      sm.SourceTitle,
		ProjectID:        sm.ProjectID,
		CreatedAt:        sm.CreatedAt,
		ReliabilityScore: sm.ReliabilityScore,
		Keywords:         sm.Keywords,
	}
}

// Upsert inserts or replaces records in the given namespace. The first
// vector ever stored fixes the index dimension; later records must match.
func (s *VectorStore) Upsert(_ context.Context, namespace string, records []driven.VectorRecord) error {
	if namespace == "" {
		return fmt.Errorf("%w: namespace is required", domain.ErrInvalidInput)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return fmt.Errorf("create namespace %s: %w", namespace, err)
		}

		dim := loadDimension(tx)
		for _, rec := range records {
			if rec.ID == "" {
				return fmt.Errorf("%w: record ID is required", domain.ErrInvalidInput)
			}
			if len(rec.Values) == 0 {
				return fmt.Errorf("%w: record %s has an empty vector", domain.ErrInvalidInput, rec.ID)
			}
			if dim == 0 {
				dim = len(rec.Values)
				if err := saveDimension(tx, dim); err != nil {
					return fmt.Errorf("save dimension: %w", err)
				}
			} else if len(rec.Values) != dim {
				return fmt.Errorf("%w: record %s has dimension %d, index expects %d",
					domain.ErrInvalidInput, rec.ID, len(rec.Values), dim)
			}

			data, err := json.Marshal(storedRecord{
				Values:   rec.Values,
				Metadata: toStored(rec.Metadata),
			})
			if err != nil {
				return fmt.Errorf("encode record %s: %w", rec.ID, err)
			}
			if err := bucket.Put([]byte(rec.ID), data); err != nil {
				return fmt.Errorf("store record %s: %w", rec.ID, err)
			}
		}
		return nil
	})
}

// Query scans every record in the namespace, scores it against the
// query vector, and returns the top matches by descending similarity.
func (s *VectorStore) Query(_ context.Context, namespace string, vector []float32, opts driven.QueryOptions) ([]domain.SimilarityResult, error) {
	var results []domain.SimilarityResult

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(namespace))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			var rec storedRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record %s: %w", string(k), err)
			}
			meta := rec.Metadata.toDomain()
			if opts.Filter != nil && !opts.Filter.Matches(meta) {
				return nil
			}
			score, err := domain.CosineSimilarity(vector, rec.Values)
			if err != nil {
				return fmt.Errorf("score record %s: %w", string(k), err)
			}
			results = append(results, domain.SimilarityResult{
				ID:       string(k),
				Score:    score,
				Metadata: meta,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].ID < results[j].ID
		}
		return results[i].Score > results[j].Score
	})
	if opts.TopK > 0 && len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	return results, nil
}

// DeleteByIDs removes the identified records. Missing IDs and missing
// namespaces are not an error.
func (s *VectorStore) DeleteByIDs(_ context.Context, namespace string, ids []string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(namespace))
		if bucket == nil {
			return nil
		}
		for _, id := range ids {
			if err := bucket.Delete([]byte(id)); err != nil {
				return fmt.Errorf("delete record %s: %w", id, err)
			}
		}
		return nil
	})
}

// DeleteByFilter removes all records matching the filter. An empty
// filter drops the whole namespace bucket.
func (s *VectorStore) DeleteByFilter(_ context.Context, namespace string, filter driven.MetadataFilter) error {
	if filter.IsZero() {
		return s.db.Update(func(tx *bbolt.Tx) error {
			err := tx.DeleteBucket([]byte(namespace))
			if errors.Is(err, bbolt.ErrBucketNotFound) {
				return nil
			}
			return err
		})
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(namespace))
		if bucket == nil {
			return nil
		}

		// Collect first: the bucket must not change under ForEach.
		var doomed [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			var rec storedRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record %s: %w", string(k), err)
			}
			if filter.Matches(rec.Metadata.toDomain()) {
				key := make([]byte, len(k))
				copy(key, k)
				doomed = append(doomed, key)
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, key := range doomed {
			if err := bucket.Delete(key); err != nil {
				return fmt.Errorf("delete record %s: %w", string(key), err)
			}
		}
		return nil
	})
}

// DescribeStats reports totals and per-namespace counts.
func (s *VectorStore) DescribeStats(_ context.Context) (*driven.IndexStats, error) {
	stats := &driven.IndexStats{Namespaces: make(map[string]int)}

	err := s.db.View(func(tx *bbolt.Tx) error {
		stats.Dimension = loadDimension(tx)
		return tx.ForEach(func(name []byte, b *bbolt.Bucket) error {
			if string(name) == string(metaBucket) {
				return nil
			}
			n := b.Stats().KeyN
			stats.Namespaces[string(name)] = n
			stats.TotalVectors += n
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read stats: %w", err)
	}
	return stats, nil
}

// Ping validates the store file is readable.
func (s *VectorStore) Ping(_ context.Context) error {
	return s.db.View(func(*bbolt.Tx) error { return nil })
}

// Close releases the underlying file handle.
func (s *VectorStore) Close() error {
	return s.db.Close()
}

func loadDimension(tx *bbolt.Tx) int {
	meta := tx.Bucket(metaBucket)
	if meta == nil {
		return 0
	}
	raw := meta.Get(dimensionKey)
	if raw == nil {
		return 0
	}
	dim, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0
	}
	return dim
}

func saveDimension(tx *bbolt.Tx, dim int) error {
	meta, err := tx.CreateBucketIfNotExists(metaBucket)
	if err != nil {
		return err
	}
	return meta.Put(dimensionKey, []byte(strconv.Itoa(dim)))
}
