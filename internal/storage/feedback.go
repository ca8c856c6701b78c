package storage

import (
	"context"
	"time"
)

// OutcomeRecord is one persisted task outcome
type OutcomeRecord struct {
	ID         int64     `json:"id"`
	Intent     string    `json:"intent"`
	Success    bool      `json:"success"`
	RecordedAt time.Time `json:"recordedAt"`
}

// OutcomeStats aggregates the persisted outcomes for one intent
type OutcomeStats struct {
	Intent       string `json:"intent"`
	SampleCount  int64  `json:"sampleCount"`
	SuccessCount int64  `json:"successCount"`
}

// SuccessRate returns the fraction of successful outcomes
func (s OutcomeStats) SuccessRate() float64 {
	if s.SampleCount == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(s.SampleCount)
}

// FeedbackStore persists task outcomes per intent. It backs the strategy
// provider's write-through; in-process feedback semantics do not depend
// on it.
type FeedbackStore struct {
	db *DB
}

// NewFeedbackStore creates a feedback store over an open database
func NewFeedbackStore(db *DB) *FeedbackStore {
	return &FeedbackStore{db: db}
}

// RecordOutcome appends one task outcome for an intent
func (s *FeedbackStore) RecordOutcome(ctx context.Context, intent string, success bool) error {
	successInt := 0
	if success {
		successInt = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback_outcomes (intent, success, recorded_at)
		VALUES (?, ?, ?)
	`, intent, successInt, time.Now().UTC().Format(time.RFC3339))
	return err
}

// History returns the most recent outcomes for an intent, newest first
func (s *FeedbackStore) History(ctx context.Context, intent string, limit int) ([]OutcomeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, intent, success, recorded_at
		FROM feedback_outcomes
		WHERE intent = ?
		ORDER BY id DESC
		LIMIT ?
	`, intent, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []OutcomeRecord
	for rows.Next() {
		var r OutcomeRecord
		var successInt int
		var recordedAt string
		if err := rows.Scan(&r.ID, &r.Intent, &successInt, &recordedAt); err != nil {
			return nil, err
		}
		r.Success = successInt == 1
		r.RecordedAt, _ = time.Parse(time.RFC3339, recordedAt)
		records = append(records, r)
	}

	return records, rows.Err()
}

// Stats aggregates all persisted outcomes for an intent. An intent with
// no outcomes yields zero counts, not an error.
func (s *FeedbackStore) Stats(ctx context.Context, intent string) (OutcomeStats, error) {
	stats := OutcomeStats{Intent: intent}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(success), 0)
		FROM feedback_outcomes
		WHERE intent = ?
	`, intent).Scan(&stats.SampleCount, &stats.SuccessCount)
	if err != nil {
		return OutcomeStats{Intent: intent}, err
	}
	return stats, nil
}

// Clear deletes every persisted outcome and reports how many were removed
func (s *FeedbackStore) Clear(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM feedback_outcomes`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// AllStats aggregates persisted outcomes grouped by intent
func (s *FeedbackStore) AllStats(ctx context.Context) ([]OutcomeStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT intent, COUNT(*), COALESCE(SUM(success), 0)
		FROM feedback_outcomes
		GROUP BY intent
		ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []OutcomeStats
	for rows.Next() {
		var stats OutcomeStats
		if err := rows.Scan(&stats.Intent, &stats.SampleCount, &stats.SuccessCount); err != nil {
			return nil, err
		}
		all = append(all, stats)
	}

	return all, rows.Err()
}
