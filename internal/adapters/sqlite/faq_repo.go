package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ports/secondary"
)

// FAQRepository implements secondary.FAQRepository with SQLite.
type FAQRepository struct {
	db *sql.DB
}

// NewFAQRepository creates a new SQLite FAQ repository.
func NewFAQRepository(db *sql.DB) *FAQRepository {
	return &FAQRepository{db: db}
}

// Create persists a new FAQ entry.
func (r *FAQRepository) Create(ctx context.Context, faq *secondary.FAQRecord) error {
	var sourceID sql.NullInt64
	if faq.SourceEscalationID != 0 {
		sourceID = sql.NullInt64{Int64: faq.SourceEscalationID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO faqs (id, question, answer, category, source_escalation_id) VALUES (?, ?, ?, ?, ?)",
		faq.ID, faq.Question, faq.Answer, faq.Category, sourceID,
	)
	if err != nil {
		return fmt.Errorf("failed to create faq: %w", err)
	}
	return nil
}

// GetByID retrieves a FAQ by its ID.
func (r *FAQRepository) GetByID(ctx context.Context, id string) (*secondary.FAQRecord, error) {
	record, err := scanFAQ(r.db.QueryRowContext(ctx,
		"SELECT id, question, answer, category, source_escalation_id, created_at FROM faqs WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("faq %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get faq: %w", err)
	}
	return record, nil
}

// List retrieves FAQs, optionally filtered by category.
func (r *FAQRepository) List(ctx context.Context, category string) ([]*secondary.FAQRecord, error) {
	query := "SELECT id, question, answer, category, source_escalation_id, created_at FROM faqs"
	args := []any{}
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, category)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list faqs: %w", err)
	}
	defer rows.Close()

	var faqs []*secondary.FAQRecord
	for rows.Next() {
		record, err := scanFAQ(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan faq: %w", err)
		}
		faqs = append(faqs, record)
	}
	return faqs, rows.Err()
}

// Delete removes a FAQ from persistence.
func (r *FAQRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM faqs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete faq: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("faq %s: %w", id, secondary.ErrNotFound)
	}
	return nil
}

// GetNextID returns the next available FAQ ID.
func (r *FAQRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	prefixLen := len("FAQ-") + 1
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COALESCE(MAX(CAST(SUBSTR(id, %d) AS INTEGER)), 0) FROM faqs", prefixLen),
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next faq ID: %w", err)
	}
	return fmt.Sprintf("FAQ-%03d", maxID+1), nil
}

func scanFAQ(s scanner) (*secondary.FAQRecord, error) {
	var (
		sourceID  sql.NullInt64
		createdAt time.Time
	)
	record := &secondary.FAQRecord{}
	err := s.Scan(&record.ID, &record.Question, &record.Answer, &record.Category, &sourceID, &createdAt)
	if err != nil {
		return nil, err
	}
	record.SourceEscalationID = sourceID.Int64
	record.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	return record, nil
}

// Ensure FAQRepository implements the interface
var _ secondary.FAQRepository = (*FAQRepository)(nil)
