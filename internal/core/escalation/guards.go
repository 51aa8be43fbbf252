// Package escalation contains the pure business logic for the escalation
// lifecycle. Guards are pure functions that evaluate preconditions without
// side effects; the app layer maps guard conditions onto named errors.
package escalation

import (
	"fmt"
	"time"
)

// Lifecycle statuses. Kept in sync with the primary port constants.
const (
	StatusPending   = "pending"
	StatusInReview  = "in_review"
	StatusResponded = "responded"
	StatusClosed    = "closed"
)

// Content length bounds. Over-length input is rejected, never truncated,
// to keep the audit trail intact.
const (
	MaxQuestionLen    = 2000
	MaxDraftAnswerLen = 4000
	MaxStaffAnswerLen = 4000
)

// Guard failure conditions, mapped to named errors at the service boundary.
const (
	ConditionNotFound       = "not_found"
	ConditionAlreadyClaimed = "already_claimed"
	ConditionInvalidState   = "invalid_state"
	ConditionValidation     = "validation"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed   bool
	Condition string
	Reason    string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// allowed is the success result shared by all guards.
var allowed = GuardResult{Allowed: true}

func denied(condition, format string, args ...any) GuardResult {
	return GuardResult{Condition: condition, Reason: fmt.Sprintf(format, args...)}
}

// IsTerminal reports whether no further staff action is expected.
func IsTerminal(status string) bool {
	return status == StatusResponded || status == StatusClosed
}

// CanTransition reports whether the monotonic state machine permits moving
// from one status to another. The claim-expiry reversion (in_review back to
// pending) is handled by the maintenance sweep, not this table: it models
// "never actually claimed", not a transition.
func CanTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusInReview || to == StatusResponded || to == StatusClosed
	case StatusInReview:
		return to == StatusResponded || to == StatusClosed
	default:
		return false
	}
}

// CreateContext provides context for escalation creation guards.
type CreateContext struct {
	MessageID       string
	Channel         string
	KnownChannel    bool
	QuestionLen     int
	DraftAnswerLen  int
	ConfidenceScore float64
}

// CanCreate evaluates whether an escalation may be created.
// Rules:
// - message_id must be non-empty
// - channel must be registered
// - question and draft answer must be within bounds
// - confidence must be a valid score
func CanCreate(ctx CreateContext) GuardResult {
	if ctx.MessageID == "" {
		return denied(ConditionValidation, "message_id is required")
	}
	if !ctx.KnownChannel {
		return denied(ConditionValidation, "unknown channel %q", ctx.Channel)
	}
	if ctx.QuestionLen == 0 {
		return denied(ConditionValidation, "question is required")
	}
	if ctx.QuestionLen > MaxQuestionLen {
		return denied(ConditionValidation, "question exceeds %d characters (got %d)", MaxQuestionLen, ctx.QuestionLen)
	}
	if ctx.DraftAnswerLen > MaxDraftAnswerLen {
		return denied(ConditionValidation, "ai draft answer exceeds %d characters (got %d)", MaxDraftAnswerLen, ctx.DraftAnswerLen)
	}
	if ctx.ConfidenceScore < 0 || ctx.ConfidenceScore > 1 {
		return denied(ConditionValidation, "confidence score must be in [0,1] (got %f)", ctx.ConfidenceScore)
	}
	return allowed
}

// ClaimContext provides context for claim guards.
type ClaimContext struct {
	Status string
	// ClaimedAt is the current claim timestamp, zero when unclaimed.
	ClaimedAt time.Time
	// ClaimHolder is the staff member holding the current claim, if any.
	ClaimHolder string
	ClaimTTL    time.Duration
	Now         time.Time
}

// ClaimExpired reports whether the current claim has outlived its TTL.
func (c ClaimContext) ClaimExpired() bool {
	if c.ClaimedAt.IsZero() {
		return false
	}
	return !c.ClaimedAt.After(c.Now.Add(-c.ClaimTTL))
}

// CanClaim evaluates whether an escalation can be claimed.
// Rules:
// - pending escalations are claimable
// - in_review with an expired claim is claimable (the claim counts as
//   never taken)
// - in_review with a live claim fails as already claimed
// - terminal statuses fail as invalid state
func CanClaim(ctx ClaimContext) GuardResult {
	switch ctx.Status {
	case StatusPending:
		return allowed
	case StatusInReview:
		if ctx.ClaimExpired() {
			return allowed
		}
		return denied(ConditionAlreadyClaimed, "claimed by %s at %s", ctx.ClaimHolder, ctx.ClaimedAt.Format(time.RFC3339))
	default:
		return denied(ConditionInvalidState, "cannot claim escalation in status %q", ctx.Status)
	}
}

// RespondContext provides context for respond guards.
type RespondContext struct {
	Status      string
	ClaimHolder string
	StaffID     string
	AnswerLen   int
}

// CanRespond evaluates whether a staff answer can be recorded.
// Rules:
// - answer must be non-empty and within bounds
// - pending escalations accept a direct response (implicit claim)
// - in_review escalations accept a response from the claim holder only
// - terminal statuses fail as invalid state
func CanRespond(ctx RespondContext) GuardResult {
	if ctx.AnswerLen == 0 {
		return denied(ConditionValidation, "staff answer is required")
	}
	if ctx.AnswerLen > MaxStaffAnswerLen {
		return denied(ConditionValidation, "staff answer exceeds %d characters (got %d)", MaxStaffAnswerLen, ctx.AnswerLen)
	}

	switch ctx.Status {
	case StatusPending:
		return allowed
	case StatusInReview:
		if ctx.ClaimHolder != ctx.StaffID {
			return denied(ConditionAlreadyClaimed, "claimed by %s, not %s", ctx.ClaimHolder, ctx.StaffID)
		}
		return allowed
	default:
		return denied(ConditionInvalidState, "cannot respond to escalation in status %q", ctx.Status)
	}
}

// CanClose evaluates whether an escalation can be closed.
// Rules:
// - valid from pending and in_review only
func CanClose(status string) GuardResult {
	if status == StatusPending || status == StatusInReview {
		return allowed
	}
	return denied(ConditionInvalidState, "cannot close escalation in status %q", status)
}

// CanRate evaluates whether the staff answer can be rated.
// Rules:
// - valid only in responded status
// - rating must be one of the two defined values
func CanRate(status, rating string) GuardResult {
	if rating != "unhelpful" && rating != "helpful" {
		return denied(ConditionValidation, "rating must be 'unhelpful' or 'helpful' (got %q)", rating)
	}
	if status != StatusResponded {
		return denied(ConditionInvalidState, "can only rate responded escalations (current status: %s)", status)
	}
	return allowed
}
