// Package app contains the application services implementing the primary
// ports. Services orchestrate guards, repositories, and channel adapters;
// they hold no business rules of their own.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hiciefte/bisq2-support-agent-sub005/internal/core/escalation"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/core/routing"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ctxutil"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ports/primary"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ports/secondary"
)

// Notifier dispatches outbound notifications for escalation events. Calls
// are fire-and-forget; retries and bookkeeping live behind the interface.
type Notifier interface {
	NotifyEscalationCreated(esc *primary.Escalation)
	NotifyStaffResponse(esc *primary.Escalation)
}

// EscalationService implements the escalation lifecycle.
type EscalationService struct {
	repo     secondary.EscalationRepository
	registry secondary.ChannelRegistry
	notifier Notifier
	policy   routing.Policy
	claimTTL time.Duration
	logger   *zap.Logger
}

var _ primary.EscalationService = (*EscalationService)(nil)

// NewEscalationService creates an escalation service with its dependencies.
func NewEscalationService(
	repo secondary.EscalationRepository,
	registry secondary.ChannelRegistry,
	notifier Notifier,
	policy routing.Policy,
	claimTTL time.Duration,
	logger *zap.Logger,
) *EscalationService {
	return &EscalationService{
		repo:     repo,
		registry: registry,
		notifier: notifier,
		policy:   policy,
		claimTTL: claimTTL,
		logger:   logger,
	}
}

// Create applies the routing policy and persists an escalation when the
// answer needs human attention. Idempotent on MessageID.
func (s *EscalationService) Create(ctx context.Context, req primary.CreateEscalationRequest) (*primary.CreateEscalationResponse, error) {
	messageID := req.MessageID
	if messageID == "" {
		messageID = uuid.NewString()
	}

	guard := escalation.CanCreate(escalation.CreateContext{
		MessageID:       messageID,
		Channel:         req.Channel,
		KnownChannel:    s.registry.Known(req.Channel),
		QuestionLen:     len(req.Question),
		DraftAnswerLen:  len(req.AIDraftAnswer),
		ConfidenceScore: req.ConfidenceScore,
	})
	if !guard.Allowed {
		return nil, fmt.Errorf("%w: %s", primary.ErrValidation, guard.Reason)
	}

	priority := req.Priority
	if priority == "" {
		priority = primary.PriorityNormal
	}
	if priority != primary.PriorityNormal && priority != primary.PriorityHigh {
		return nil, fmt.Errorf("%w: invalid priority %q", primary.ErrValidation, req.Priority)
	}

	decision := routing.Decide(s.policy, req.ConfidenceScore, req.NegativeFeedback)
	if !decision.Escalate {
		return nil, fmt.Errorf("%w: confidence %.2f meets threshold", primary.ErrNotEligible, req.ConfidenceScore)
	}

	// Resolving the delivery target at creation surfaces malformed channel
	// metadata to the caller instead of failing later in the retry loop.
	adapter, err := s.registry.Resolve(req.Channel)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", primary.ErrValidation, err)
	}
	target, err := adapter.GetDeliveryTarget(req.ChannelMetadata)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", primary.ErrValidation, err)
	}
	deliveryStatus := primary.DeliveryPending
	if target == "" {
		deliveryStatus = primary.DeliveryNotRequired
	}

	sources, err := sourcesToJSON(req.Sources)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize sources: %w", err)
	}

	record := &secondary.EscalationRecord{
		MessageID:       messageID,
		Channel:         req.Channel,
		UserID:          req.UserID,
		Username:        req.Username,
		ChannelMetadata: req.ChannelMetadata,
		Question:        req.Question,
		AIDraftAnswer:   req.AIDraftAnswer,
		ConfidenceScore: req.ConfidenceScore,
		RoutingAction:   decision.Action,
		RoutingReason:   decision.Reason,
		Sources:         sources,
		DeliveryStatus:  deliveryStatus,
		Status:          primary.StatusPending,
		Priority:        priority,
	}

	id, err := s.repo.Create(ctx, record)
	if err != nil {
		if isDuplicate(err) {
			existing, getErr := s.repo.GetByMessageID(ctx, messageID)
			if getErr != nil {
				return nil, fmt.Errorf("failed to fetch existing escalation: %w", getErr)
			}
			return &primary.CreateEscalationResponse{
				Escalation: recordToEscalation(existing),
				Existing:   true,
			}, nil
		}
		return nil, fmt.Errorf("failed to create escalation: %w", err)
	}

	created, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch created escalation: %w", err)
	}
	esc := recordToEscalation(created)

	s.logger.Info("Escalation created",
		zap.Int64("id", esc.ID),
		zap.String("message_id", esc.MessageID),
		zap.String("channel", esc.Channel),
		zap.String("routing_action", esc.RoutingAction))

	if deliveryStatus == primary.DeliveryPending {
		s.notifier.NotifyEscalationCreated(esc)
	}
	return &primary.CreateEscalationResponse{Escalation: esc}, nil
}

// Get retrieves an escalation by internal ID.
func (s *EscalationService) Get(ctx context.Context, id int64) (*primary.Escalation, error) {
	record, err := s.getRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	return recordToEscalation(record), nil
}

// List retrieves escalations for the staff queue.
func (s *EscalationService) List(ctx context.Context, filters primary.EscalationFilters) ([]*primary.Escalation, error) {
	records, err := s.repo.List(ctx, secondary.EscalationFilters{
		Status:   filters.Status,
		Channel:  filters.Channel,
		Priority: filters.Priority,
		StaffID:  filters.StaffID,
		Limit:    filters.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list escalations: %w", err)
	}
	escalations := make([]*primary.Escalation, 0, len(records))
	for _, record := range records {
		escalations = append(escalations, recordToEscalation(record))
	}
	return escalations, nil
}

// Claim takes a time-bounded exclusive lock on an escalation for staffID.
func (s *EscalationService) Claim(ctx context.Context, id int64, staffID string) (*primary.Escalation, error) {
	if staffID == "" {
		staffID = ctxutil.StaffFromContext(ctx)
	}
	if staffID == "" {
		return nil, fmt.Errorf("%w: staff_id is required", primary.ErrValidation)
	}

	now := time.Now().UTC()
	ok, err := s.repo.Claim(ctx, id, staffID, now, now.Add(-s.claimTTL))
	if err != nil {
		return nil, fmt.Errorf("failed to claim escalation: %w", err)
	}
	if !ok {
		return nil, s.claimFailure(ctx, id, now)
	}

	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch claimed escalation: %w", err)
	}
	s.logger.Info("Escalation claimed",
		zap.Int64("id", id),
		zap.String("staff_id", staffID))
	return recordToEscalation(record), nil
}

// claimFailure names why a conditional claim did not take effect.
func (s *EscalationService) claimFailure(ctx context.Context, id int64, now time.Time) error {
	record, err := s.getRecord(ctx, id)
	if err != nil {
		return err
	}
	guard := escalation.CanClaim(escalation.ClaimContext{
		Status:      record.Status,
		ClaimedAt:   parseTime(record.ClaimedAt),
		ClaimHolder: record.StaffID,
		ClaimTTL:    s.claimTTL,
		Now:         now,
	})
	if !guard.Allowed {
		return guardError(guard)
	}
	// The row was claimable when re-read, so another claim won in between.
	return fmt.Errorf("%w: lost a concurrent claim", primary.ErrAlreadyClaimed)
}

// Respond records the staff answer and triggers delivery back to the user.
func (s *EscalationService) Respond(ctx context.Context, id int64, staffID, answer string) (*primary.Escalation, error) {
	if staffID == "" {
		staffID = ctxutil.StaffFromContext(ctx)
	}
	if staffID == "" {
		return nil, fmt.Errorf("%w: staff_id is required", primary.ErrValidation)
	}

	record, err := s.getRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	guard := escalation.CanRespond(escalation.RespondContext{
		Status:      record.Status,
		ClaimHolder: record.StaffID,
		StaffID:     staffID,
		AnswerLen:   len(answer),
	})
	if !guard.Allowed {
		return nil, guardError(guard)
	}

	now := time.Now().UTC()
	ok, err := s.repo.Respond(ctx, id, staffID, answer, now)
	if err != nil {
		return nil, fmt.Errorf("failed to record staff answer: %w", err)
	}
	if !ok {
		// State moved between the guard read and the conditional update.
		return nil, fmt.Errorf("%w: escalation state changed", primary.ErrInvalidState)
	}

	responded, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch responded escalation: %w", err)
	}
	esc := recordToEscalation(responded)

	s.logger.Info("Staff answer recorded",
		zap.Int64("id", id),
		zap.String("staff_id", staffID),
		zap.String("delivery_status", esc.DeliveryStatus))

	if esc.DeliveryStatus != primary.DeliveryNotRequired {
		s.notifier.NotifyStaffResponse(esc)
	}
	return esc, nil
}

// Close terminates an escalation without a staff answer.
func (s *EscalationService) Close(ctx context.Context, id int64, reason string) error {
	if reason == "" {
		reason = primary.CloseReasonDismissed
	}

	record, err := s.getRecord(ctx, id)
	if err != nil {
		return err
	}
	if guard := escalation.CanClose(record.Status); !guard.Allowed {
		return guardError(guard)
	}

	ok, err := s.repo.Close(ctx, id, reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to close escalation: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: escalation state changed", primary.ErrInvalidState)
	}

	s.logger.Info("Escalation closed",
		zap.Int64("id", id),
		zap.String("reason", reason))
	return nil
}

// RateStaffAnswer records the user's rating of the staff answer.
func (s *EscalationService) RateStaffAnswer(ctx context.Context, messageID, rating string) error {
	record, err := s.repo.GetByMessageID(ctx, messageID)
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: message_id %q", primary.ErrNotFound, messageID)
		}
		return fmt.Errorf("failed to get escalation: %w", err)
	}
	if guard := escalation.CanRate(record.Status, rating); !guard.Allowed {
		return guardError(guard)
	}

	ok, err := s.repo.RateStaffAnswer(ctx, messageID, rating)
	if err != nil {
		return fmt.Errorf("failed to record rating: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: escalation state changed", primary.ErrInvalidState)
	}
	return nil
}

// Poll maps internal state to the two-state client contract.
func (s *EscalationService) Poll(ctx context.Context, messageID string) (*primary.PollResponse, error) {
	record, err := s.repo.GetByMessageID(ctx, messageID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: message_id %q", primary.ErrNotFound, messageID)
		}
		return nil, fmt.Errorf("failed to get escalation: %w", err)
	}

	switch record.Status {
	case primary.StatusResponded:
		return &primary.PollResponse{
			Status:      primary.PollStatusResolved,
			Resolution:  primary.PollResolutionResponded,
			StaffAnswer: record.StaffAnswer,
			RespondedAt: record.RespondedAt,
		}, nil
	case primary.StatusClosed:
		return &primary.PollResponse{
			Status:     primary.PollStatusResolved,
			Resolution: primary.PollResolutionClosed,
			ClosedAt:   record.ClosedAt,
		}, nil
	default:
		// pending and in_review both read as pending; claim state is
		// internal and never leaks to polling clients.
		return &primary.PollResponse{Status: primary.PollStatusPending}, nil
	}
}

// Stats returns queue counts for ops tooling.
func (s *EscalationService) Stats(ctx context.Context) (*primary.EscalationStats, error) {
	byStatus, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	byDelivery, err := s.repo.CountByDeliveryStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count by delivery status: %w", err)
	}
	return &primary.EscalationStats{
		ByStatus:         byStatus,
		ByDeliveryStatus: byDelivery,
	}, nil
}

func (s *EscalationService) getRecord(ctx context.Context, id int64) (*secondary.EscalationRecord, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: id %d", primary.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get escalation: %w", err)
	}
	return record, nil
}

// guardError maps a guard failure onto the primary port's named errors.
func guardError(guard escalation.GuardResult) error {
	switch guard.Condition {
	case escalation.ConditionAlreadyClaimed:
		return fmt.Errorf("%w: %s", primary.ErrAlreadyClaimed, guard.Reason)
	case escalation.ConditionInvalidState:
		return fmt.Errorf("%w: %s", primary.ErrInvalidState, guard.Reason)
	case escalation.ConditionNotFound:
		return fmt.Errorf("%w: %s", primary.ErrNotFound, guard.Reason)
	default:
		return fmt.Errorf("%w: %s", primary.ErrValidation, guard.Reason)
	}
}

func sourcesToJSON(sources []primary.Source) (string, error) {
	if len(sources) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(sources)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func sourcesFromJSON(raw string) []primary.Source {
	if raw == "" {
		return nil
	}
	var sources []primary.Source
	if err := json.Unmarshal([]byte(raw), &sources); err != nil {
		return nil
	}
	return sources
}

func recordToEscalation(record *secondary.EscalationRecord) *primary.Escalation {
	return &primary.Escalation{
		ID:                record.ID,
		MessageID:         record.MessageID,
		Channel:           record.Channel,
		UserID:            record.UserID,
		Username:          record.Username,
		ChannelMetadata:   record.ChannelMetadata,
		Question:          record.Question,
		AIDraftAnswer:     record.AIDraftAnswer,
		ConfidenceScore:   record.ConfidenceScore,
		RoutingAction:     record.RoutingAction,
		RoutingReason:     record.RoutingReason,
		Sources:           sourcesFromJSON(record.Sources),
		StaffAnswer:       record.StaffAnswer,
		StaffID:           record.StaffID,
		StaffAnswerRating: record.StaffAnswerRating,
		DeliveryStatus:    record.DeliveryStatus,
		DeliveryError:     record.DeliveryError,
		DeliveryAttempts:  record.DeliveryAttempts,
		LastDeliveryAt:    record.LastDeliveryAt,
		Status:            record.Status,
		Priority:          record.Priority,
		GeneratedFAQID:    record.GeneratedFAQID,
		CreatedAt:         record.CreatedAt,
		ClaimedAt:         record.ClaimedAt,
		RespondedAt:       record.RespondedAt,
		ClosedAt:          record.ClosedAt,
		CloseReason:       record.CloseReason,
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, secondary.ErrNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, secondary.ErrDuplicateMessageID)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
