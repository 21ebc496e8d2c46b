package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Migrate runs all database migrations
func (db *DB) Migrate() error {
	log.Info().Msg("Running database migrations")

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	log.Debug().Int("current_version", currentVersion).Msg("Current schema version")

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}
		log.Info().Int("version", migration.Version).Str("name", migration.Name).Msg("Applying migration")

		if err := db.Transaction(func(tx *sql.Tx) error {
			// Each statement is executed separately so failures point at the offending one
			statements := splitSQLStatements(migration.SQL)
			for i, stmt := range statements {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("migration %d statement %d failed: %w", migration.Version, i+1, err)
				}
			}

			if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", migration.Version); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
			}

			return nil
		}); err != nil {
			return err
		}
	}

	log.Info().Msg("Database migrations complete")
	return nil
}

type migration struct {
	Version int
	Name    string
	SQL     string
}

// splitSQLStatements splits a SQL string into individual statements.
// Comment lines are dropped and only non-empty statements are returned.
func splitSQLStatements(sql string) []string {
	var statements []string
	var current strings.Builder

	for line := range strings.SplitSeq(sql, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSpace(current.String())
			if stmt != "" && stmt != ";" {
				statements = append(statements, stmt)
			}
			current.Reset()
		}
	}

	// Trailing statement without a semicolon
	if remaining := strings.TrimSpace(current.String()); remaining != "" {
		statements = append(statements, remaining)
	}

	return statements
}

var migrations = []migration{
	{
		Version: 1,
		Name:    "initial_schema",
		SQL: `
			-- Runtime settings (log rotation, maintenance schedule, api key hash)
			CREATE TABLE settings (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);

			-- One row per transfer attempt, successful or not
			CREATE TABLE transfer_history (
				id INTEGER PRIMARY KEY,
				src TEXT NOT NULL DEFAULT '',
				src_storage TEXT,
				src_fileitem TEXT,
				dest TEXT,
				dest_storage TEXT,
				dest_fileitem TEXT,
				mode TEXT,
				type TEXT,
				category TEXT,
				title TEXT,
				year TEXT,
				tmdbid INTEGER,
				imdbid TEXT,
				tvdbid INTEGER,
				doubanid TEXT,
				seasons TEXT,
				episodes TEXT,
				image TEXT,
				downloader TEXT,
				download_hash TEXT,
				status INTEGER NOT NULL DEFAULT 1,
				errmsg TEXT,
				date TEXT NOT NULL,
				files TEXT
			);

			CREATE INDEX idx_transfer_history_src ON transfer_history(src);
			CREATE INDEX idx_transfer_history_dest ON transfer_history(dest);
			CREATE INDEX idx_transfer_history_title ON transfer_history(title);
			CREATE INDEX idx_transfer_history_tmdbid ON transfer_history(tmdbid);
			CREATE INDEX idx_transfer_history_download_hash ON transfer_history(download_hash);
			CREATE INDEX idx_transfer_history_date ON transfer_history(date);
		`,
	},
	{
		Version: 2,
		Name:    "transfer_history_episode_group",
		SQL: `
			ALTER TABLE transfer_history ADD COLUMN episode_group TEXT;
		`,
	},
}
