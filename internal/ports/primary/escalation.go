// Package primary defines the primary ports (driving interfaces) for the application.
// These are the interfaces through which the outside world drives the services.
package primary

import (
	"context"
	"errors"
)

// Escalation lifecycle statuses. Transitions are monotonic forward; the only
// sanctioned backward movement is claim expiry reverting in_review to pending.
const (
	StatusPending   = "pending"
	StatusInReview  = "in_review"
	StatusResponded = "responded"
	StatusClosed    = "closed"
)

// Delivery statuses, tracked independently of the lifecycle status.
const (
	DeliveryNotRequired = "not_required"
	DeliveryPending     = "pending"
	DeliveryDelivered   = "delivered"
	DeliveryFailed      = "failed"
)

// Priorities for staff queue ordering.
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Staff answer ratings. Unset is represented by the empty string.
const (
	RatingUnhelpful = "unhelpful"
	RatingHelpful   = "helpful"
)

// Close reasons.
const (
	CloseReasonTimeout   = "timeout"
	CloseReasonDismissed = "dismissed"
)

// Routing actions recorded on created escalations.
const (
	RoutingLowConfidence    = "low_confidence"
	RoutingNegativeFeedback = "negative_feedback"
)

// Named error conditions surfaced to callers. The staff UI matches these
// with errors.Is to refresh and show current state instead of retrying.
var (
	// ErrNotFound indicates no escalation matches the given identifier.
	ErrNotFound = errors.New("escalation not found")
	// ErrAlreadyClaimed indicates another staff member holds a live claim.
	ErrAlreadyClaimed = errors.New("escalation already claimed")
	// ErrInvalidState indicates the operation is not valid from the
	// escalation's current status.
	ErrInvalidState = errors.New("operation not valid in current state")
	// ErrValidation indicates the request was rejected at the boundary and
	// nothing was persisted.
	ErrValidation = errors.New("validation failed")
	// ErrNotEligible indicates the routing policy decided the answer does
	// not need human attention; no escalation was created.
	ErrNotEligible = errors.New("answer does not require escalation")
)

// Source is one citation backing the AI draft answer.
type Source struct {
	Title string  `json:"title"`
	URL   string  `json:"url,omitempty"`
	Type  string  `json:"type,omitempty"`
	Score float64 `json:"score,omitempty"`
}

// Escalation is the staff-facing view of an escalation record.
type Escalation struct {
	ID                int64
	MessageID         string
	Channel           string
	UserID            string
	Username          string
	ChannelMetadata   string
	Question          string
	AIDraftAnswer     string
	ConfidenceScore   float64
	RoutingAction     string
	RoutingReason     string
	Sources           []Source
	StaffAnswer       string
	StaffID           string
	StaffAnswerRating string
	DeliveryStatus    string
	DeliveryError     string
	DeliveryAttempts  int
	LastDeliveryAt    string
	Status            string
	Priority          string
	GeneratedFAQID    string
	CreatedAt         string
	ClaimedAt         string
	RespondedAt       string
	ClosedAt          string
	CloseReason       string
}

// CreateEscalationRequest carries the RAG pipeline's output for a routing
// decision and, when eligible, escalation creation.
type CreateEscalationRequest struct {
	// MessageID is the external idempotency key. Minted server-side when empty.
	MessageID       string
	Channel         string
	UserID          string
	Username        string
	ChannelMetadata string
	Question        string
	AIDraftAnswer   string
	ConfidenceScore float64
	Sources         []Source
	Priority        string
	// NegativeFeedback is set when the user rejected a confident AI answer.
	NegativeFeedback bool
}

// CreateEscalationResponse reports the created (or pre-existing) record.
type CreateEscalationResponse struct {
	Escalation *Escalation
	// Existing is true when the message_id already had a record and the
	// pre-existing record was returned unchanged.
	Existing bool
}

// PollResponse is the two-state contract exposed to polling clients. The
// internal state richness never leaks past this shape.
type PollResponse struct {
	Status      string `json:"status"`                 // "pending" or "resolved"
	Resolution  string `json:"resolution,omitempty"`   // "responded" or "closed"
	StaffAnswer string `json:"staff_answer,omitempty"`
	RespondedAt string `json:"responded_at,omitempty"`
	ClosedAt    string `json:"closed_at,omitempty"`
}

// Poll statuses and resolutions.
const (
	PollStatusPending       = "pending"
	PollStatusResolved      = "resolved"
	PollResolutionResponded = "responded"
	PollResolutionClosed    = "closed"
)

// EscalationFilters contains filter options for the staff queue.
type EscalationFilters struct {
	Status   string
	Channel  string
	Priority string
	StaffID  string
	Limit    int
}

// EscalationStats aggregates queue counts for staff/ops tooling.
type EscalationStats struct {
	ByStatus         map[string]int
	ByDeliveryStatus map[string]int
}

// EscalationService is the primary port for the escalation lifecycle.
type EscalationService interface {
	// Create applies the routing policy and creates an escalation when the
	// answer needs human attention. Idempotent on MessageID: a duplicate
	// create returns the pre-existing record unchanged with Existing=true.
	Create(ctx context.Context, req CreateEscalationRequest) (*CreateEscalationResponse, error)

	// Get retrieves an escalation by internal ID (staff surface only).
	Get(ctx context.Context, id int64) (*Escalation, error)

	// List retrieves escalations for the staff queue.
	List(ctx context.Context, filters EscalationFilters) ([]*Escalation, error)

	// Claim takes a time-bounded exclusive lock on a pending escalation.
	Claim(ctx context.Context, id int64, staffID string) (*Escalation, error)

	// Respond records the staff answer and triggers delivery to the
	// originating channel. Valid from in_review (by the claimant) or pending
	// (implicit claim and respond).
	Respond(ctx context.Context, id int64, staffID, answer string) (*Escalation, error)

	// Close terminates an escalation without a staff answer.
	Close(ctx context.Context, id int64, reason string) error

	// RateStaffAnswer records the user's rating of the staff answer.
	// Valid only in responded status; re-rating overwrites.
	RateStaffAnswer(ctx context.Context, messageID, rating string) error

	// Poll maps internal state to the pending/resolved client contract.
	// Lookup is by message_id only; internal IDs are never accepted.
	Poll(ctx context.Context, messageID string) (*PollResponse, error)

	// Stats returns queue counts for ops tooling.
	Stats(ctx context.Context) (*EscalationStats, error)
}

// SweepResult reports one maintenance cycle.
type SweepResult struct {
	ClaimsReleased int64
	AutoClosed     int64
	Purged         int64
	// Errors carries per-sweep failures; a failing sweep never aborts the others.
	Errors []error
}

// MaintenanceService is the primary port for the background hygiene loop.
type MaintenanceService interface {
	// RunSweep performs one cycle: release expired claims, auto-close stale
	// escalations, purge retained terminal records, in that order.
	RunSweep(ctx context.Context) *SweepResult

	// Run executes sweeps on the configured interval until ctx is cancelled.
	// Shutdown is graceful: the in-flight sweep finishes, no new one starts.
	Run(ctx context.Context)
}
