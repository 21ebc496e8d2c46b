package database

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// MaintenanceResult summarises one optimize pass
type MaintenanceResult struct {
	TransferRows int64
	// CheckpointedPages is the number of WAL frames copied back into the database file
	CheckpointedPages int
}

// Optimize refreshes planner stats and folds the WAL back into the main file.
func (db *DB) Optimize() (MaintenanceResult, error) {
	var res MaintenanceResult
	if db == nil || db.DB == nil {
		return res, fmt.Errorf("database not initialized")
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.Exec("PRAGMA optimize"); err != nil {
		return res, fmt.Errorf("failed to optimize database: %w", err)
	}

	// busy, log frames, checkpointed frames
	var busy, logFrames int
	if err := db.QueryRow("PRAGMA wal_checkpoint(TRUNCATE)").Scan(&busy, &logFrames, &res.CheckpointedPages); err != nil {
		return res, fmt.Errorf("failed to checkpoint database: %w", err)
	}

	if err := db.QueryRow("SELECT COUNT(*) FROM transfer_history").Scan(&res.TransferRows); err != nil {
		return res, fmt.Errorf("failed to count transfer history: %w", err)
	}

	log.Debug().
		Int64("transfer_rows", res.TransferRows).
		Int("checkpointed_pages", res.CheckpointedPages).
		Bool("checkpoint_busy", busy != 0).
		Msg("Database optimized")

	return res, nil
}

// Vacuum rebuilds the database file to reclaim space left by deleted history rows.
func (db *DB) Vacuum() error {
	if db == nil || db.DB == nil {
		return fmt.Errorf("database not initialized")
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}

	return nil
}
