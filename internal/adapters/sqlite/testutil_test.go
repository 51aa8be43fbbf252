// Package sqlite_test contains integration tests for SQLite repositories.
//
// All test setup uses db.GetSchemaSQL() so tests run against the
// authoritative schema. A repository referencing a column that does not
// exist in the schema fails immediately with "no such column" instead of
// drifting silently. Do not hardcode CREATE TABLE statements here.
package sqlite_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hiciefte/bisq2-support-agent-sub005/internal/db"
)

// setupTestDB creates an in-memory database with the authoritative schema.
// MaxOpenConns(1) keeps the pool on a single connection: a fresh connection
// to ":memory:" would otherwise open a separate empty database.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	testDB.SetMaxOpenConns(1)

	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedEscalation inserts a test escalation and returns its internal ID.
func seedEscalation(t *testing.T, testDB *sql.DB, messageID, channel, status string) int64 {
	t.Helper()
	if channel == "" {
		channel = "web"
	}
	if status == "" {
		status = "pending"
	}
	deliveryStatus := "pending"
	if channel == "web" {
		deliveryStatus = "not_required"
	}
	result, err := testDB.Exec(
		`INSERT INTO escalations (message_id, channel, user_id, question, ai_draft_answer,
			confidence_score, status, delivery_status)
		VALUES (?, ?, 'user-1', 'How do I cancel a trade?', 'Draft answer.', 0.3, ?, ?)`,
		messageID, channel, status, deliveryStatus,
	)
	if err != nil {
		t.Fatalf("failed to seed escalation: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("failed to get seeded escalation id: %v", err)
	}
	return id
}

// backdateColumn rewrites a timestamp column to an offset from now, for
// claim-expiry, auto-close, and retention tests.
// offset is a sqlite datetime modifier like "-31 minutes" or "-90 days".
func backdateColumn(t *testing.T, testDB *sql.DB, id int64, column, offset string) {
	t.Helper()
	query := "UPDATE escalations SET " + column + " = datetime('now', ?) WHERE id = ?"
	if _, err := testDB.Exec(query, offset, id); err != nil {
		t.Fatalf("failed to backdate %s: %v", column, err)
	}
}
