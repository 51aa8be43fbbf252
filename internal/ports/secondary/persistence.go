// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"
	"errors"
	"time"
)

// Store-level sentinel errors. Repositories return these wrapped so services
// can match with errors.Is without parsing driver errors.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateMessageID indicates an insert hit the message_id unique constraint.
	ErrDuplicateMessageID = errors.New("duplicate message_id")
)

// EscalationRepository defines the secondary port for escalation persistence.
type EscalationRepository interface {
	// Create persists a new escalation. Returns ErrDuplicateMessageID when
	// the message_id already exists; the caller resolves the race by fetching
	// the surviving row.
	Create(ctx context.Context, escalation *EscalationRecord) (int64, error)

	// GetByID retrieves an escalation by its internal ID.
	GetByID(ctx context.Context, id int64) (*EscalationRecord, error)

	// GetByMessageID retrieves an escalation by its external idempotency key.
	GetByMessageID(ctx context.Context, messageID string) (*EscalationRecord, error)

	// List retrieves escalations matching the given filters, ordered for the
	// staff queue: high priority first, oldest first within a priority.
	List(ctx context.Context, filters EscalationFilters) ([]*EscalationRecord, error)

	// Claim atomically transitions a pending escalation (or an in_review
	// escalation whose claim is at or before claimExpiredBefore) to
	// in_review for staffID. A single conditional UPDATE, not read-then-
	// write. Returns false when the row was not in a claimable state; the
	// caller inspects the current record to name the failure.
	Claim(ctx context.Context, id int64, staffID string, now, claimExpiredBefore time.Time) (bool, error)

	// Respond atomically records a staff answer, from in_review by the
	// claiming staff or directly from pending (implicit claim). Returns false
	// when the row was not in a respondable state.
	Respond(ctx context.Context, id int64, staffID, answer string, now time.Time) (bool, error)

	// Close atomically transitions a pending or in_review escalation to
	// closed. Returns false when the row was already terminal or missing.
	Close(ctx context.Context, id int64, reason string, now time.Time) (bool, error)

	// RateStaffAnswer sets the user's rating of the staff answer. Re-rating
	// overwrites. Returns false when the escalation is not in responded status.
	RateStaffAnswer(ctx context.Context, messageID, rating string) (bool, error)

	// SetGeneratedFAQ records the FAQ a responded escalation was promoted into.
	SetGeneratedFAQ(ctx context.Context, id int64, faqID string) error

	// MarkDelivered records a successful notification delivery.
	MarkDelivered(ctx context.Context, id int64, at time.Time) error

	// RecordDeliveryFailure increments the attempt counter and stores the
	// transport error. When final is true the delivery is terminally failed.
	RecordDeliveryFailure(ctx context.Context, id int64, deliveryError string, final bool) error

	// ReleaseExpiredClaims reverts in_review rows claimed at or before cutoff
	// back to pending, clearing claimed_at and staff_id. Returns the number
	// of rows released.
	ReleaseExpiredClaims(ctx context.Context, cutoff time.Time) (int64, error)

	// AutoCloseOlderThan closes pending/in_review rows created at or before
	// cutoff. Returns the number of rows closed.
	AutoCloseOlderThan(ctx context.Context, cutoff time.Time, reason string) (int64, error)

	// PurgeTerminalOlderThan hard-deletes responded/closed rows whose
	// terminal timestamp is at or before cutoff. Returns the number of rows
	// deleted.
	PurgeTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// CountByStatus returns escalation counts keyed by lifecycle status.
	CountByStatus(ctx context.Context) (map[string]int, error)

	// CountByDeliveryStatus returns escalation counts keyed by delivery status.
	CountByDeliveryStatus(ctx context.Context) (map[string]int, error)
}

// EscalationRecord represents an escalation as stored in persistence.
// Timestamps are RFC3339 strings; empty string means null.
type EscalationRecord struct {
	ID                int64
	MessageID         string
	Channel           string // 'web', 'matrix', 'bisq2'
	UserID            string
	Username          string // Empty string means null
	ChannelMetadata   string // Opaque per-channel payload; empty for web
	Question          string
	AIDraftAnswer     string
	ConfidenceScore   float64
	RoutingAction     string
	RoutingReason     string
	Sources           string // JSON-serialized citation list
	StaffAnswer       string // Empty string means null
	StaffID           string // Empty string means null
	StaffAnswerRating string // '', 'unhelpful', 'helpful'
	DeliveryStatus    string // 'not_required', 'pending', 'delivered', 'failed'
	DeliveryError     string // Empty string means null
	DeliveryAttempts  int
	LastDeliveryAt    string // Empty string means null
	Status            string // 'pending', 'in_review', 'responded', 'closed'
	Priority          string // 'normal', 'high'
	GeneratedFAQID    string // Empty string means null
	CreatedAt         string
	ClaimedAt         string // Empty string means null
	RespondedAt       string // Empty string means null
	ClosedAt          string // Empty string means null
	CloseReason       string // Empty string means null
}

// EscalationFilters contains filter options for querying escalations.
type EscalationFilters struct {
	Status   string
	Channel  string
	Priority string
	StaffID  string
	Limit    int
}

// FAQRepository defines the secondary port for FAQ persistence.
type FAQRepository interface {
	// Create persists a new FAQ entry.
	Create(ctx context.Context, faq *FAQRecord) error

	// GetByID retrieves a FAQ by its ID.
	GetByID(ctx context.Context, id string) (*FAQRecord, error)

	// List retrieves FAQs, optionally filtered by category.
	List(ctx context.Context, category string) ([]*FAQRecord, error)

	// Delete removes a FAQ from persistence.
	Delete(ctx context.Context, id string) error

	// GetNextID returns the next available FAQ ID.
	GetNextID(ctx context.Context) (string, error)
}

// FAQRecord represents a FAQ entry as stored in persistence.
type FAQRecord struct {
	ID                 string
	Question           string
	Answer             string
	Category           string
	SourceEscalationID int64 // 0 means no source escalation
	CreatedAt          string
}
