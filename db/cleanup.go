package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CleanupResult reports what a cleanup pass removed.
type CleanupResult struct {
	// Expired counts items older than the retention window.
	Expired int64

	// OverLimit counts items beyond the per-user cap.
	OverLimit int64

	Duration time.Duration
}

func (r CleanupResult) Total() int64 {
	return r.Expired + r.OverLimit
}

// Cleanup deletes history older than retentionDays and, per user, every item
// beyond the newest maxPerUser. Zero disables either rule. Both deletions
// run in one transaction.
func (d *Database) Cleanup(ctx context.Context, retentionDays, maxPerUser int) (CleanupResult, error) {
	return d.cleanupAt(ctx, time.Now(), retentionDays, maxPerUser)
}

func (d *Database) cleanupAt(ctx context.Context, now time.Time, retentionDays, maxPerUser int) (CleanupResult, error) {
	start := time.Now()
	var result CleanupResult

	if retentionDays < 0 || maxPerUser < 0 {
		return result, fmt.Errorf("db: cleanup limits must be non-negative, got %d days and %d items", retentionDays, maxPerUser)
	}

	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if retentionDays > 0 {
			cutoff := now.AddDate(0, 0, -retentionDays).UnixMilli()
			res, err := tx.ExecContext(ctx, `DELETE FROM history WHERE created_at < ?`, cutoff)
			if err != nil {
				return fmt.Errorf("db: delete expired history: %w", err)
			}
			if result.Expired, err = res.RowsAffected(); err != nil {
				return err
			}
		}

		if maxPerUser > 0 {
			res, err := tx.ExecContext(ctx, `
				DELETE FROM history WHERE id IN (
					SELECT id FROM (
						SELECT id, ROW_NUMBER() OVER (
							PARTITION BY user_id ORDER BY created_at DESC, rowid DESC
						) AS position
						FROM history
					) WHERE position > ?
				)`, maxPerUser)
			if err != nil {
				return fmt.Errorf("db: trim history: %w", err)
			}
			if result.OverLimit, err = res.RowsAffected(); err != nil {
				return err
			}
		}
		return nil
	})

	result.Duration = time.Since(start)
	return result, err
}

// CleanupSchedulerConfig configures StartCleanupScheduler.
type CleanupSchedulerConfig struct {
	RetentionDays int
	MaxPerUser    int
	Interval      time.Duration

	// OnCleanup is called after each run. Optional.
	OnCleanup func(result CleanupResult, err error)
}

// StartCleanupScheduler runs Cleanup once immediately and then every
// Interval until ctx is cancelled.
func (d *Database) StartCleanupScheduler(ctx context.Context, config CleanupSchedulerConfig) {
	if config.Interval <= 0 {
		config.Interval = 24 * time.Hour
	}
	run := func() {
		result, err := d.Cleanup(ctx, config.RetentionDays, config.MaxPerUser)
		if config.OnCleanup != nil {
			config.OnCleanup(result, err)
		}
	}

	go func() {
		run()
		ticker := time.NewTicker(config.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()
}
