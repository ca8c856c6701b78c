package storage

import (
	"context"
	"time"
)

// CycleMetrics summarizes one evidence-retrieval cycle
type CycleMetrics struct {
	Intent        string        `json:"intent"`
	Confidence    float64       `json:"confidence"`
	Providers     int           `json:"providers"`
	EvidenceCount int           `json:"evidenceCount"`
	TokensUsed    int           `json:"tokensUsed"`
	Duration      time.Duration `json:"duration"`
}

// CycleRecord is one persisted retrieval cycle
type CycleRecord struct {
	ID            int64     `json:"id"`
	Intent        string    `json:"intent"`
	Confidence    float64   `json:"confidence"`
	Providers     int       `json:"providers"`
	EvidenceCount int       `json:"evidenceCount"`
	TokensUsed    int       `json:"tokensUsed"`
	DurationMs    int64     `json:"durationMs"`
	RecordedAt    time.Time `json:"recordedAt"`
}

// MetricsStore persists per-cycle retrieval metrics
type MetricsStore struct {
	db *DB
}

// NewMetricsStore creates a metrics store over an open database
func NewMetricsStore(db *DB) *MetricsStore {
	return &MetricsStore{db: db}
}

// RecordCycle persists one retrieval cycle
func (s *MetricsStore) RecordCycle(ctx context.Context, m CycleMetrics) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO retrieval_cycles (
			intent, confidence, providers, evidence_count,
			tokens_used, duration_ms, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.Intent, m.Confidence, m.Providers, m.EvidenceCount,
		m.TokensUsed, m.Duration.Milliseconds(), time.Now().UTC().Format(time.RFC3339))
	return err
}

// RecentCycles returns the most recent cycles, newest first
func (s *MetricsStore) RecentCycles(ctx context.Context, limit int) ([]CycleRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, intent, confidence, providers, evidence_count,
		       tokens_used, duration_ms, recorded_at
		FROM retrieval_cycles
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []CycleRecord
	for rows.Next() {
		var r CycleRecord
		var recordedAt string
		if err := rows.Scan(
			&r.ID, &r.Intent, &r.Confidence, &r.Providers, &r.EvidenceCount,
			&r.TokensUsed, &r.DurationMs, &recordedAt,
		); err != nil {
			return nil, err
		}
		r.RecordedAt, _ = time.Parse(time.RFC3339, recordedAt)
		records = append(records, r)
	}

	return records, rows.Err()
}

// CleanupOldCycles removes cycles older than the retention period
func (s *MetricsStore) CleanupOldCycles(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM retrieval_cycles WHERE recorded_at < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
