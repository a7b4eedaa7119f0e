// Package store persists analysis results and analysis traces in SQLite.
// Source buffers are only ever stored as hashes.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"livecode/internal/logging"
	"livecode/internal/types"

	_ "modernc.org/sqlite"
)

// AnalysisStore is the SQLite-backed analysis cache and trace log.
type AnalysisStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewAnalysisStore opens (creating if needed) the database at path.
func NewAnalysisStore(path string) (*AnalysisStore, error) {
	// Ensure directory exists
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Serialize writers; SQLite allows one at a time anyway.
	db.SetMaxOpenConns(1)

	store := &AnalysisStore{db: db, dbPath: path}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logging.StoreDebug("analysis store opened at %s", path)
	return store, nil
}

// initialize creates the required tables.
func (s *AnalysisStore) initialize() error {
	cacheTable := `
	CREATE TABLE IF NOT EXISTS analysis_cache (
		key TEXT PRIMARY KEY,
		language TEXT NOT NULL,
		steps_json TEXT NOT NULL,
		step_count INTEGER NOT NULL,
		hits INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_hit_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_cache_language ON analysis_cache(language);
	`

	traceTable := `
	CREATE TABLE IF NOT EXISTS analysis_traces (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		generation INTEGER NOT NULL,
		language TEXT NOT NULL,
		code_hash TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		step_count INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_traces_session ON analysis_traces(session_id);
	CREATE INDEX IF NOT EXISTS idx_traces_outcome ON analysis_traces(outcome);
	`

	for _, table := range []string{cacheTable, traceTable} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *AnalysisStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *AnalysisStore) Path() string { return s.dbPath }

// CacheKey identifies a snapshot: SHA-256 over language, a NUL byte and code.
func CacheKey(snapshot types.SourceSnapshot) string {
	h := sha256.New()
	h.Write([]byte(snapshot.Language))
	h.Write([]byte{0})
	h.Write([]byte(snapshot.Code))
	return hex.EncodeToString(h.Sum(nil))
}
