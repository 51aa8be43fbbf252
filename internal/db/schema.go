package db

import "database/sql"

// SchemaSQL is the complete modern schema for fresh installs.
// This schema reflects the current state after all migrations.
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. All repository
// tests load it via GetSchemaSQL(), so a repository referencing a column that
// does not exist here fails immediately with "no such column" instead of
// drifting silently.
//
// When adding new columns or tables: add a migration in migrations.go, then
// update SchemaSQL here to match the post-migration state.
const SchemaSQL = `
-- Escalations: user questions routed to human staff.
-- message_id is the external idempotency key; the integer id never leaves
-- the staff/admin surface.
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
	staff_answer_rating INTEGER CHECK(staff_answer_rating IN (0, 1)),
	delivery_status TEXT NOT NULL CHECK(delivery_status IN ('not_required', 'pending', 'delivered', 'failed')) DEFAULT 'not_required',
	delivery_error TEXT,
	delivery_attempts INTEGER NOT NULL DEFAULT 0,
	last_delivery_at DATETIME,
	status TEXT NOT NULL CHECK(status IN ('pending', 'in_review', 'responded', 'closed')) DEFAULT 'pending',
	priority TEXT NOT NULL CHECK(priority IN ('normal', 'high')) DEFAULT 'normal',
	generated_faq_id TEXT,
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

-- FAQs promoted from responded escalations.
CREATE TABLE IF NOT EXISTS faqs (
	id TEXT PRIMARY KEY,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT 'general',
	source_escalation_id INTEGER,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// GetSchemaSQL returns the authoritative schema for tests and tooling.
func GetSchemaSQL() string {
	return SchemaSQL
}

// InitSchema brings the database schema up to date. Fresh installs get the
// modern schema directly and are stamped at the latest migration version;
// existing databases run pending migrations.
func InitSchema(database *sql.DB) error {
	var tableCount int
	err := database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}

	if tableCount == 0 {
		if _, err := database.Exec(SchemaSQL); err != nil {
			return err
		}
		if _, err := database.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER PRIMARY KEY,
				applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)
		`); err != nil {
			return err
		}
		// Mark all migrations as applied for fresh installs.
		for _, m := range migrations {
			if _, err := database.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
				return err
			}
		}
		return nil
	}

	return RunMigrations(database)
}
