package store

import (
	"context"
	"fmt"
	"time"

	"livecode/internal/types"

	"github.com/google/uuid"
)

// TraceRecord is a stored analysis trace.
type TraceRecord struct {
	ID         string
	SessionID  string
	Generation uint64
	Language   string
	CodeHash   string
	Attempts   int
	Steps      int
	Outcome    types.Outcome
	Duration   time.Duration
	CreatedAt  time.Time
}

// RecordTrace stores one resolved analysis request.
func (s *AnalysisStore) RecordTrace(ctx context.Context, trace types.AnalysisTrace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_traces
			(id, session_id, generation, language, code_hash, attempts, step_count, outcome, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		uuid.NewString(),
		trace.SessionID,
		int64(trace.Generation),
		trace.Snapshot.Language,
		CacheKey(trace.Snapshot),
		trace.Attempts,
		trace.Steps,
		string(trace.Outcome),
		trace.Duration.Milliseconds(),
		time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record trace: %w", err)
	}
	return nil
}

// SessionTraces returns a session's traces ordered by generation.
func (s *AnalysisStore) SessionTraces(ctx context.Context, sessionID string) ([]TraceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, generation, language, code_hash, attempts, step_count, outcome, duration_ms, created_at
		FROM analysis_traces
		WHERE session_id = ?
		ORDER BY generation ASC, created_at ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query traces: %w", err)
	}
	defer rows.Close()

	var out []TraceRecord
	for rows.Next() {
		var (
			rec        TraceRecord
			generation int64
			outcome    string
			durationMs int64
			createdMs  int64
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &generation, &rec.Language, &rec.CodeHash,
			&rec.Attempts, &rec.Steps, &outcome, &durationMs, &createdMs); err != nil {
			return nil, fmt.Errorf("failed to scan trace: %w", err)
		}
		rec.Generation = uint64(generation)
		rec.Outcome = types.Outcome(outcome)
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		rec.CreatedAt = time.UnixMilli(createdMs)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// OutcomeCounts tallies traces by outcome across all sessions.
func (s *AnalysisStore) OutcomeCounts(ctx context.Context) (map[types.Outcome]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM analysis_traces GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("failed to count outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.Outcome]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		counts[types.Outcome(outcome)] = n
	}
	return counts, rows.Err()
}
