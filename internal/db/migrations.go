package db

import (
	"database/sql"
	"fmt"
)

// Migration represents a database migration. Down rebuilds the previous
// table shape where sqlite cannot drop columns in place.
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.DB) error
	Down    func(*sql.DB) error
}

// migrations is the list of all migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_escalations_table",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
	{
		Version: 2,
		Name:    "add_staff_answer_rating",
		Up:      migrationV2Up,
		Down:    migrationV2Down,
	},
	{
		Version: 3,
		Name:    "add_faqs_and_generated_faq_link",
		Up:      migrationV3Up,
		Down:    migrationV3Down,
	},
}

// RunMigrations applies all pending migrations in order.
func RunMigrations(database *sql.DB) error {
	if _, err := database.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var currentVersion int
	if err := database.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		if err := migration.Up(database); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}
		if _, err := database.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// RollbackTo reverts migrations down to (and excluding) targetVersion.
func RollbackTo(database *sql.DB, targetVersion int) error {
	var currentVersion int
	if err := database.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if migration.Version > currentVersion || migration.Version <= targetVersion {
			continue
		}
		if migration.Down == nil {
			return fmt.Errorf("migration %d (%s) has no rollback", migration.Version, migration.Name)
		}
		if err := migration.Down(database); err != nil {
			return fmt.Errorf("rollback of migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}
		if _, err := database.Exec("DELETE FROM schema_version WHERE version = ?", migration.Version); err != nil {
			return fmt.Errorf("failed to unrecord migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// migrationV1Up creates the escalations table and its query indices.
func migrationV1Up(database *sql.DB) error {
	_, err := database.Exec(`
		CREATE TABLE IF NOT EXISTS escalations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id TEXT NOT NULL UNIQUE,
			channel TEXT NOT NULL CHECK(channel IN ('web', 'matrix', 'bisq2')),
			user_id TEXT NOT NULL,
			username TEXT,
			channel_metadata TEXT NOT NULL DEFAULT '',
			question TEXT NOT NULL,
			ai_draft_answer TEXT NOT NULL,
			confidence_score REAL NOT NULL DEFAULT 0,
			routing_action TEXT NOT NULL DEFAULT '',
			routing_reason TEXT NOT NULL DEFAULT '',
			sources TEXT NOT NULL DEFAULT '[]',
			staff_answer TEXT,
			staff_id TEXT,
			delivery_status TEXT NOT NULL CHECK(delivery_status IN ('not_required', 'pending', 'delivered', 'failed')) DEFAULT 'not_required',
			delivery_error TEXT,
			delivery_attempts INTEGER NOT NULL DEFAULT 0,
			last_delivery_at DATETIME,
			status TEXT NOT NULL CHECK(status IN ('pending', 'in_review', 'responded', 'closed')) DEFAULT 'pending',
			priority TEXT NOT NULL CHECK(priority IN ('normal', 'high')) DEFAULT 'normal',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			claimed_at DATETIME,
			responded_at DATETIME,
			closed_at DATETIME,
			close_reason TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_escalations_status ON escalations(status);
		CREATE INDEX IF NOT EXISTS idx_escalations_channel ON escalations(channel);
		CREATE INDEX IF NOT EXISTS idx_escalations_priority_created ON escalations(priority, created_at);
		CREATE INDEX IF NOT EXISTS idx_escalations_responded_at ON escalations(responded_at);
	`)
	return err
}

func migrationV1Down(database *sql.DB) error {
	_, err := database.Exec("DROP TABLE IF EXISTS escalations")
	return err
}

// migrationV2Up adds the tri-state staff answer rating (NULL / 0 / 1).
func migrationV2Up(database *sql.DB) error {
	_, err := database.Exec("ALTER TABLE escalations ADD COLUMN staff_answer_rating INTEGER CHECK(staff_answer_rating IN (0, 1))")
	return err
}

// migrationV2Down rebuilds the table without staff_answer_rating. sqlite
// predates DROP COLUMN on some deployed versions, so the rollback copies
// into a fresh table.
func migrationV2Down(database *sql.DB) error {
	_, err := database.Exec(`
		CREATE TABLE escalations_rollback AS
			SELECT id, message_id, channel, user_id, username, channel_metadata,
			       question, ai_draft_answer, confidence_score, routing_action,
			       routing_reason, sources, staff_answer, staff_id,
			       delivery_status, delivery_error, delivery_attempts, last_delivery_at,
			       status, priority, created_at, claimed_at, responded_at, closed_at,
			       close_reason
			FROM escalations;
		DROP TABLE escalations;
		ALTER TABLE escalations_rollback RENAME TO escalations;
		CREATE UNIQUE INDEX IF NOT EXISTS idx_escalations_message_id ON escalations(message_id);
		CREATE INDEX IF NOT EXISTS idx_escalations_status ON escalations(status);
		CREATE INDEX IF NOT EXISTS idx_escalations_channel ON escalations(channel);
		CREATE INDEX IF NOT EXISTS idx_escalations_priority_created ON escalations(priority, created_at);
		CREATE INDEX IF NOT EXISTS idx_escalations_responded_at ON escalations(responded_at);
	`)
	return err
}

// migrationV3Up adds the faqs table and the escalation back-link set when a
// responded escalation is promoted to a FAQ.
func migrationV3Up(database *sql.DB) error {
	_, err := database.Exec(`
		CREATE TABLE IF NOT EXISTS faqs (
			id TEXT PRIMARY KEY,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT 'general',
			source_escalation_id INTEGER,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		ALTER TABLE escalations ADD COLUMN generated_faq_id TEXT;
	`)
	return err
}

func migrationV3Down(database *sql.DB) error {
	_, err := database.Exec(`
		DROP TABLE IF EXISTS faqs;
		CREATE TABLE escalations_rollback AS
			SELECT id, message_id, channel, user_id, username, channel_metadata,
			       question, ai_draft_answer, confidence_score, routing_action,
			       routing_reason, sources, staff_answer, staff_id, staff_answer_rating,
			       delivery_status, delivery_error, delivery_attempts, last_delivery_at,
			       status, priority, created_at, claimed_at, responded_at, closed_at,
			       close_reason
			FROM escalations;
		DROP TABLE escalations;
		ALTER TABLE escalations_rollback RENAME TO escalations;
		CREATE UNIQUE INDEX IF NOT EXISTS idx_escalations_message_id ON escalations(message_id);
		CREATE INDEX IF NOT EXISTS idx_escalations_status ON escalations(status);
		CREATE INDEX IF NOT EXISTS idx_escalations_channel ON escalations(channel);
		CREATE INDEX IF NOT EXISTS idx_escalations_priority_created ON escalations(priority, created_at);
		CREATE INDEX IF NOT EXISTS idx_escalations_responded_at ON escalations(responded_at);
	`)
	return err
}
