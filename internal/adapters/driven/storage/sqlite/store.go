package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/claimlens/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/claimlens/internal/core/domain"
	"github.com/custodia-labs/claimlens/internal/core/ports/driven"
)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// Store is the SQLite-backed canonical record store. It owns the
// evidence rows; the vector index holds a derived copy keyed by the
// same IDs.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.claimlens/data/evidence.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".claimlens", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "evidence.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// EvidenceStore returns an EvidenceStore interface backed by this store.
func (s *Store) EvidenceStore() driven.EvidenceStore {
	return &evidenceStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_evidence.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Evidence Store ====================

// evidenceStore implements driven.EvidenceStore.
type evidenceStore struct {
	store *Store
}

var _ driven.EvidenceStore = (*evidenceStore)(nil)

// evidenceColumns is the column list shared by every SELECT.
const evidenceColumns = `id, project_id, text, type, source_type, source_url, source_title,
	keywords, reliability_score, relevance_score, status, artifact_id, chunk_index,
	created_by, created_at, updated_at`

// Create stores a new evidence record.
func (s *evidenceStore) Create(ctx context.Context, ev *domain.Evidence) error {
	keywordsJSON, err := json.Marshal(ev.Keywords)
	if err != nil {
		return fmt.Errorf("marshalling keywords: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO evidence (`+evidenceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.ProjectID, ev.Text, string(ev.Type), string(ev.SourceType),
		nullString(ev.SourceURL), nullString(ev.SourceTitle), string(keywordsJSON),
		ev.ReliabilityScore, ev.RelevanceScore, string(ev.Status),
		nullString(ev.ArtifactID), ev.ChunkIndex, nullString(ev.CreatedBy),
		ev.CreatedAt, ev.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("creating evidence: %w", err)
	}
	return nil
}

// Get retrieves evidence by ID.
func (s *evidenceStore) Get(ctx context.Context, id string) (*domain.Evidence, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+evidenceColumns+` FROM evidence WHERE id = ?
	`, id)

	return scanEvidence(row)
}

// ListByProject returns all active evidence for a project, oldest first.
func (s *evidenceStore) ListByProject(ctx context.Context, projectID string) ([]domain.Evidence, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+evidenceColumns+` FROM evidence
		WHERE project_id = ? AND status = ?
		ORDER BY created_at ASC, id ASC
	`, projectID, string(domain.EvidenceStatusActive))
	if err != nil {
		return nil, fmt.Errorf("querying evidence: %w", err)
	}
	defer rows.Close()

	return scanEvidenceList(rows)
}

// ListByArtifact returns all evidence from one ingestion run, by chunk index.
func (s *evidenceStore) ListByArtifact(ctx context.Context, artifactID string) ([]domain.Evidence, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+evidenceColumns+` FROM evidence
		WHERE artifact_id = ?
		ORDER BY chunk_index ASC, id ASC
	`, artifactID)
	if err != nil {
		return nil, fmt.Errorf("querying evidence by artifact: %w", err)
	}
	defer rows.Close()

	return scanEvidenceList(rows)
}

// UpdateStatus changes the lifecycle status of an evidence record.
func (s *evidenceStore) UpdateStatus(ctx context.Context, id string, status domain.EvidenceStatus) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE evidence SET status = ?, updated_at = ? WHERE id = ?
	`, string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating evidence status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes an evidence record. Missing IDs are not an error.
func (s *evidenceStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM evidence WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting evidence: %w", err)
	}
	return nil
}

// CountByProject returns the number of active evidence records in a project.
func (s *evidenceStore) CountByProject(ctx context.Context, projectID string) (int, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM evidence WHERE project_id = ? AND status = ?
	`, projectID, string(domain.EvidenceStatusActive)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting evidence: %w", err)
	}
	return count, nil
}

// ==================== Helper Functions ====================

// scanEvidence scans a single evidence row.
func scanEvidence(row *sql.Row) (*domain.Evidence, error) {
	var ev domain.Evidence
	var evType, sourceType, status string
	var sourceURL, sourceTitle, artifactID, createdBy, keywordsJSON sql.NullString

	if err := row.Scan(&ev.ID, &ev.ProjectID, &ev.Text, &evType, &sourceType,
		&sourceURL, &sourceTitle, &keywordsJSON, &ev.ReliabilityScore, &ev.RelevanceScore,
		&status, &artifactID, &ev.ChunkIndex, &createdBy, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning evidence: %w", err)
	}

	return buildEvidence(&ev, evType, sourceType, status, sourceURL, sourceTitle, artifactID, createdBy, keywordsJSON)
}

// scanEvidenceList scans multiple evidence rows.
func scanEvidenceList(rows *sql.Rows) ([]domain.Evidence, error) {
	var list []domain.Evidence //nolint:prealloc // size unknown from query
	for rows.Next() {
		var ev domain.Evidence
		var evType, sourceType, status string
		var sourceURL, sourceTitle, artifactID, createdBy, keywordsJSON sql.NullString

		if err := rows.Scan(&ev.ID, &ev.ProjectID, &ev.Text, &evType, &sourceType,
			&sourceURL, &sourceTitle, &keywordsJSON, &ev.ReliabilityScore, &ev.RelevanceScore,
			&status, &artifactID, &ev.ChunkIndex, &createdBy, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning evidence: %w", err)
		}

		built, err := buildEvidence(&ev, evType, sourceType, status, sourceURL, sourceTitle, artifactID, createdBy, keywordsJSON)
		if err != nil {
			return nil, err
		}
		list = append(list, *built)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating evidence: %w", err)
	}

	return list, nil
}

// buildEvidence fills the typed and nullable fields after a scan.
func buildEvidence(ev *domain.Evidence, evType, sourceType, status string,
	sourceURL, sourceTitle, artifactID, createdBy, keywordsJSON sql.NullString) (*domain.Evidence, error) {
	ev.Type = domain.EvidenceType(evType)
	ev.SourceType = domain.SourceType(sourceType)
	ev.Status = domain.EvidenceStatus(status)
	ev.SourceURL = sourceURL.String
	ev.SourceTitle = sourceTitle.String
	ev.ArtifactID = artifactID.String
	ev.CreatedBy = createdBy.String

	if keywordsJSON.Valid && keywordsJSON.String != "" && keywordsJSON.String != jsonNull {
		if err := json.Unmarshal([]byte(keywordsJSON.String), &ev.Keywords); err != nil {
			return nil, fmt.Errorf("unmarshaling keywords: %w", err)
		}
	}

	return ev, nil
}

// nullString converts an empty string to NULL for nullable columns.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// isUniqueViolation reports whether err is a primary key or unique
// constraint failure from the SQLite driver.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
