package storage

// This file provides examples of how to use the storage layer
// It is not meant to be executed, but serves as documentation

import (
	"context"
	"time"

	"ctxrank/internal/logging"
)

// ExampleBasicSetup demonstrates basic database initialization
func ExampleBasicSetup(repoRoot string) error {
	// Create logger
	logger := logging.NewLogger(logging.Config{
		Format: logging.HumanFormat,
		Level:  logging.LevelInfo,
	})

	// Open database (creates if doesn't exist)
	db, err := Open(repoRoot, logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	// Database is ready to use
	return nil
}

// ExampleFeedbackLoop demonstrates recording and aggregating task outcomes
func ExampleFeedbackLoop(db *DB) error {
	ctx := context.Background()
	feedback := NewFeedbackStore(db)

	// Record outcomes as tasks complete
	if err := feedback.RecordOutcome(ctx, "debug", true); err != nil {
		return err
	}
	if err := feedback.RecordOutcome(ctx, "debug", false); err != nil {
		return err
	}

	// Aggregate: 2 samples, 0.5 success rate
	stats, err := feedback.Stats(ctx, "debug")
	if err != nil {
		return err
	}
	_ = stats.SuccessRate()

	// Recent history, newest first
	history, err := feedback.History(ctx, "debug", 10)
	if err != nil {
		return err
	}
	_ = history

	return nil
}

// ExampleCycleMetrics demonstrates persisting retrieval-cycle metrics
func ExampleCycleMetrics(db *DB) error {
	ctx := context.Background()
	metrics := NewMetricsStore(db)

	// Record one cycle after the orchestrator returns
	err := metrics.RecordCycle(ctx, CycleMetrics{
		Intent:        "debug",
		Confidence:    0.5,
		Providers:     3,
		EvidenceCount: 12,
		TokensUsed:    3800,
		Duration:      420 * time.Millisecond,
	})
	if err != nil {
		return err
	}

	// Inspect recent cycles and prune old ones
	recent, err := metrics.RecentCycles(ctx, 20)
	if err != nil {
		return err
	}
	_ = recent

	_, err = metrics.CleanupOldCycles(ctx, 30*24*time.Hour)
	return err
}
