// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ports/secondary"
)

// escalationColumns is the full column list shared by every row query.
const escalationColumns = `id, message_id, channel, user_id, username, channel_metadata,
	question, ai_draft_answer, confidence_score, routing_action, routing_reason, sources,
	staff_answer, staff_id, staff_answer_rating,
	delivery_status, delivery_error, delivery_attempts, last_delivery_at,
	status, priority, generated_faq_id,
	created_at, claimed_at, responded_at, closed_at, close_reason`

// EscalationRepository implements secondary.EscalationRepository with SQLite.
type EscalationRepository struct {
	db *sql.DB
}

// NewEscalationRepository creates a new SQLite escalation repository.
func NewEscalationRepository(db *sql.DB) *EscalationRepository {
	return &EscalationRepository{db: db}
}

// Create persists a new escalation. The message_id unique constraint is the
// concurrency control for duplicate-creation races: the loser of a
// simultaneous insert gets ErrDuplicateMessageID and converts to a lookup.
func (r *EscalationRepository) Create(ctx context.Context, escalation *secondary.EscalationRecord) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO escalations (message_id, channel, user_id, username, channel_metadata,
			question, ai_draft_answer, confidence_score, routing_action, routing_reason, sources,
			delivery_status, status, priority, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		escalation.MessageID,
		escalation.Channel,
		escalation.UserID,
		nullString(escalation.Username),
		escalation.ChannelMetadata,
		escalation.Question,
		escalation.AIDraftAnswer,
		escalation.ConfidenceScore,
		escalation.RoutingAction,
		escalation.RoutingReason,
		escalation.Sources,
		escalation.DeliveryStatus,
		escalation.Status,
		escalation.Priority,
		time.Now().UTC(),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, fmt.Errorf("escalation %s: %w", escalation.MessageID, secondary.ErrDuplicateMessageID)
		}
		return 0, fmt.Errorf("failed to create escalation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get escalation id: %w", err)
	}
	return id, nil
}

// GetByID retrieves an escalation by its internal ID.
func (r *EscalationRepository) GetByID(ctx context.Context, id int64) (*secondary.EscalationRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+escalationColumns+" FROM escalations WHERE id = ?", id)
	record, err := scanEscalation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("escalation %d: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get escalation: %w", err)
	}
	return record, nil
}

// GetByMessageID retrieves an escalation by its external idempotency key.
func (r *EscalationRepository) GetByMessageID(ctx context.Context, messageID string) (*secondary.EscalationRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+escalationColumns+" FROM escalations WHERE message_id = ?", messageID)
	record, err := scanEscalation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("escalation %s: %w", messageID, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get escalation: %w", err)
	}
	return record, nil
}

// List retrieves escalations matching the given filters, ordered for the
// staff queue: high priority first, oldest first within a priority.
func (r *EscalationRepository) List(ctx context.Context, filters secondary.EscalationFilters) ([]*secondary.EscalationRecord, error) {
	query := "SELECT " + escalationColumns + " FROM escalations WHERE 1=1"
	args := []any{}

	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}
	if filters.Channel != "" {
		query += " AND channel = ?"
		args = append(args, filters.Channel)
	}
	if filters.Priority != "" {
		query += " AND priority = ?"
		args = append(args, filters.Priority)
	}
	if filters.StaffID != "" {
		query += " AND staff_id = ?"
		args = append(args, filters.StaffID)
	}

	query += " ORDER BY CASE priority WHEN 'high' THEN 0 ELSE 1 END, created_at ASC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list escalations: %w", err)
	}
	defer rows.Close()

	var escalations []*secondary.EscalationRecord
	for rows.Next() {
		record, err := scanEscalation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan escalation: %w", err)
		}
		escalations = append(escalations, record)
	}

	return escalations, rows.Err()
}

// Claim atomically claims an escalation for staffID. The claim is a single
// conditional UPDATE, serialized at the storage layer, so two concurrent
// claim attempts cannot both succeed.
func (r *EscalationRepository) Claim(ctx context.Context, id int64, staffID string, now, claimExpiredBefore time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE escalations SET status = 'in_review', staff_id = ?, claimed_at = ?
		WHERE id = ?
		  AND (status = 'pending'
		       OR (status = 'in_review' AND datetime(claimed_at) <= datetime(?)))`,
		staffID, now.UTC(), id, claimExpiredBefore.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim escalation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result: %w", err)
	}
	return affected == 1, nil
}

// Respond atomically records the staff answer. From pending this is an
// implicit claim; from in_review only the claim holder may respond.
func (r *EscalationRepository) Respond(ctx context.Context, id int64, staffID, answer string, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE escalations SET status = 'responded', staff_answer = ?, staff_id = ?,
			responded_at = ?, claimed_at = COALESCE(claimed_at, ?)
		WHERE id = ?
		  AND (status = 'pending'
		       OR (status = 'in_review' AND staff_id = ?))`,
		answer, staffID, now.UTC(), now.UTC(), id, staffID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to respond to escalation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read respond result: %w", err)
	}
	return affected == 1, nil
}

// Close atomically closes a pending or in_review escalation.
func (r *EscalationRepository) Close(ctx context.Context, id int64, reason string, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE escalations SET status = 'closed', closed_at = ?, close_reason = ?
		WHERE id = ? AND status IN ('pending', 'in_review')`,
		now.UTC(), reason, id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to close escalation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read close result: %w", err)
	}
	return affected == 1, nil
}

// RateStaffAnswer sets the user's rating of the staff answer. Re-rating
// overwrites; the row must be in responded status.
func (r *EscalationRepository) RateStaffAnswer(ctx context.Context, messageID, rating string) (bool, error) {
	var value int
	switch rating {
	case "helpful":
		value = 1
	case "unhelpful":
		value = 0
	default:
		return false, fmt.Errorf("invalid rating %q", rating)
	}

	result, err := r.db.ExecContext(ctx,
		"UPDATE escalations SET staff_answer_rating = ? WHERE message_id = ? AND status = 'responded'",
		value, messageID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to rate staff answer: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rating result: %w", err)
	}
	return affected == 1, nil
}

// SetGeneratedFAQ records the FAQ a responded escalation was promoted into.
func (r *EscalationRepository) SetGeneratedFAQ(ctx context.Context, id int64, faqID string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE escalations SET generated_faq_id = ? WHERE id = ?", faqID, id)
	if err != nil {
		return fmt.Errorf("failed to set generated faq: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("escalation %d: %w", id, secondary.ErrNotFound)
	}
	return nil
}

// MarkDelivered records a successful notification delivery.
func (r *EscalationRepository) MarkDelivered(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE escalations SET delivery_status = 'delivered', last_delivery_at = ?, delivery_error = NULL,
			delivery_attempts = delivery_attempts + 1
		WHERE id = ?`,
		at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark delivered: %w", err)
	}
	return nil
}

// RecordDeliveryFailure increments the attempt counter and stores the
// transport error. When final is true the delivery is terminally failed.
func (r *EscalationRepository) RecordDeliveryFailure(ctx context.Context, id int64, deliveryError string, final bool) error {
	status := "pending"
	if final {
		status = "failed"
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE escalations SET delivery_status = ?, delivery_error = ?,
			delivery_attempts = delivery_attempts + 1
		WHERE id = ?`,
		status, deliveryError, id,
	)
	if err != nil {
		return fmt.Errorf("failed to record delivery failure: %w", err)
	}
	return nil
}

// ReleaseExpiredClaims reverts in_review rows with an expired claim back to
// pending. This is the one sanctioned backward movement: an expired claim
// counts as never taken.
func (r *EscalationRepository) ReleaseExpiredClaims(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE escalations SET status = 'pending', staff_id = NULL, claimed_at = NULL
		WHERE status = 'in_review' AND datetime(claimed_at) <= datetime(?)`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to release expired claims: %w", err)
	}
	return result.RowsAffected()
}

// AutoCloseOlderThan closes pending/in_review rows created at or before cutoff.
func (r *EscalationRepository) AutoCloseOlderThan(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE escalations SET status = 'closed', closed_at = ?, close_reason = ?
		WHERE status IN ('pending', 'in_review') AND datetime(created_at) <= datetime(?)`,
		time.Now().UTC(), reason, cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to auto-close escalations: %w", err)
	}
	return result.RowsAffected()
}

// PurgeTerminalOlderThan hard-deletes terminal rows whose terminal timestamp
// is at or before cutoff. The boundary is inclusive: a record exactly at the
// retention window is purged.
func (r *EscalationRepository) PurgeTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM escalations
		WHERE (status = 'responded' AND datetime(responded_at) <= datetime(?))
		   OR (status = 'closed' AND datetime(closed_at) <= datetime(?))`,
		cutoff.UTC(), cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge terminal escalations: %w", err)
	}
	return result.RowsAffected()
}

// CountByStatus returns escalation counts keyed by lifecycle status.
func (r *EscalationRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	return r.countBy(ctx, "status")
}

// CountByDeliveryStatus returns escalation counts keyed by delivery status.
func (r *EscalationRepository) CountByDeliveryStatus(ctx context.Context) (map[string]int, error) {
	return r.countBy(ctx, "delivery_status")
}

func (r *EscalationRepository) countBy(ctx context.Context, column string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s, COUNT(*) FROM escalations GROUP BY %s", column, column))
	if err != nil {
		return nil, fmt.Errorf("failed to count escalations by %s: %w", column, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[key] = count
	}
	return counts, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows for the shared scan helper.
type scanner interface {
	Scan(dest ...any) error
}

func scanEscalation(s scanner) (*secondary.EscalationRecord, error) {
	var (
		username       sql.NullString
		staffAnswer    sql.NullString
		staffID        sql.NullString
		rating         sql.NullInt64
		deliveryError  sql.NullString
		lastDeliveryAt sql.NullTime
		generatedFAQID sql.NullString
		createdAt      time.Time
		claimedAt      sql.NullTime
		respondedAt    sql.NullTime
		closedAt       sql.NullTime
		closeReason    sql.NullString
	)

	record := &secondary.EscalationRecord{}
	err := s.Scan(
		&record.ID, &record.MessageID, &record.Channel, &record.UserID, &username, &record.ChannelMetadata,
		&record.Question, &record.AIDraftAnswer, &record.ConfidenceScore,
		&record.RoutingAction, &record.RoutingReason, &record.Sources,
		&staffAnswer, &staffID, &rating,
		&record.DeliveryStatus, &deliveryError, &record.DeliveryAttempts, &lastDeliveryAt,
		&record.Status, &record.Priority, &generatedFAQID,
		&createdAt, &claimedAt, &respondedAt, &closedAt, &closeReason,
	)
	if err != nil {
		return nil, err
	}

	record.Username = username.String
	record.StaffAnswer = staffAnswer.String
	record.StaffID = staffID.String
	record.DeliveryError = deliveryError.String
	record.GeneratedFAQID = generatedFAQID.String
	record.CloseReason = closeReason.String
	record.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	if rating.Valid {
		if rating.Int64 == 1 {
			record.StaffAnswerRating = "helpful"
		} else {
			record.StaffAnswerRating = "unhelpful"
		}
	}
	if lastDeliveryAt.Valid {
		record.LastDeliveryAt = lastDeliveryAt.Time.UTC().Format(time.RFC3339)
	}
	if claimedAt.Valid {
		record.ClaimedAt = claimedAt.Time.UTC().Format(time.RFC3339)
	}
	if respondedAt.Valid {
		record.RespondedAt = respondedAt.Time.UTC().Format(time.RFC3339)
	}
	if closedAt.Valid {
		record.ClosedAt = closedAt.Time.UTC().Format(time.RFC3339)
	}

	return record, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Ensure EscalationRepository implements the interface
var _ secondary.EscalationRepository = (*EscalationRepository)(nil)
