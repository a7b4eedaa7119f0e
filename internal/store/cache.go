package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"livecode/internal/logging"
	"livecode/internal/types"
)

// LookupSteps returns cached steps for snapshot.
func (s *AnalysisStore) LookupSteps(ctx context.Context, snapshot types.SourceSnapshot) ([]types.Step, bool, error) {
	key := CacheKey(snapshot)

	s.mu.RLock()
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT steps_json FROM analysis_cache WHERE key = ?`, key).Scan(&raw)
	s.mu.RUnlock()

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query cache: %w", err)
	}

	var steps []types.Step
	if err := json.Unmarshal([]byte(raw), &steps); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached steps: %w", err)
	}

	s.mu.Lock()
	_, err = s.db.ExecContext(ctx, `UPDATE analysis_cache SET hits = hits + 1, last_hit_at = CURRENT_TIMESTAMP WHERE key = ?`, key)
	s.mu.Unlock()
	if err != nil {
		logging.StoreError("failed to record cache hit: %v", err)
	}
	return steps, true, nil
}

// StoreSteps caches steps for snapshot, replacing any previous entry.
func (s *AnalysisStore) StoreSteps(ctx context.Context, snapshot types.SourceSnapshot, steps []types.Step) error {
	data, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("failed to encode steps: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analysis_cache (key, language, steps_json, step_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET steps_json = excluded.steps_json, step_count = excluded.step_count
	`, CacheKey(snapshot), snapshot.Language, string(data), len(steps))
	if err != nil {
		return fmt.Errorf("failed to store steps: %w", err)
	}
	return nil
}

// CacheStats summarizes the cache.
type CacheStats struct {
	Entries int
	Hits    int
}

// CacheStats returns entry and hit counts.
func (s *AnalysisStore) CacheStats(ctx context.Context) (CacheStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats CacheStats
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(hits), 0) FROM analysis_cache`).Scan(&stats.Entries, &stats.Hits)
	if err != nil {
		return CacheStats{}, fmt.Errorf("failed to read cache stats: %w", err)
	}
	return stats, nil
}

// PurgeCache removes every cached entry and returns how many were removed.
func (s *AnalysisStore) PurgeCache(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM analysis_cache`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	n, _ := res.RowsAffected()
	logging.Store("purged %d cache entries", n)
	return n, nil
}
