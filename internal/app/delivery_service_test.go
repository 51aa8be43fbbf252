package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ports/primary"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ports/secondary"
)

func newTestDelivery(repo *mockEscalationRepo, registry *mockRegistry) *DeliveryService {
	return NewDeliveryService(repo, registry, 3, time.Millisecond, time.Second, "@support:matrix.org", zap.NewNop())
}

func seedDeliverable(t *testing.T, repo *mockEscalationRepo) *primary.Escalation {
	t.Helper()
	id, err := repo.Create(context.Background(), &secondary.EscalationRecord{
		MessageID:       "msg-1",
		Channel:         "matrix",
		UserID:          "user-1",
		Username:        "alice",
		ChannelMetadata: `{"room_id":"!room:matrix.org"}`,
		Question:        "q",
		Status:          "responded",
		StaffAnswer:     "the answer",
		DeliveryStatus:  "pending",
		Priority:        "normal",
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	record, _ := repo.GetByID(context.Background(), id)
	return recordToEscalation(record)
}

func TestDeliverySucceedsFirstAttempt(t *testing.T) {
	repo := newMockEscalationRepo()
	adapter := &mockAdapter{name: "matrix", target: "!room:matrix.org"}
	svc := newTestDelivery(repo, newMockRegistry(adapter))

	esc := seedDeliverable(t, repo)
	svc.NotifyStaffResponse(esc)
	svc.Wait()

	record, _ := repo.GetByID(context.Background(), esc.ID)
	if record.DeliveryStatus != "delivered" {
		t.Errorf("expected delivered, got %q", record.DeliveryStatus)
	}
	if record.DeliveryAttempts != 1 {
		t.Errorf("expected 1 attempt, got %d", record.DeliveryAttempts)
	}
	sent := adapter.sentMessages()
	if len(sent) != 1 || sent[0] != "answer: the answer" {
		t.Errorf("unexpected sends: %v", sent)
	}
}

func TestDeliveryRetriesTransientFailure(t *testing.T) {
	repo := newMockEscalationRepo()
	adapter := &mockAdapter{
		name:     "matrix",
		target:   "!room:matrix.org",
		sendErrs: []error{errors.New("connection reset"), nil},
	}
	svc := newTestDelivery(repo, newMockRegistry(adapter))

	esc := seedDeliverable(t, repo)
	svc.NotifyStaffResponse(esc)
	svc.Wait()

	record, _ := repo.GetByID(context.Background(), esc.ID)
	if record.DeliveryStatus != "delivered" {
		t.Errorf("expected delivered after retry, got %q", record.DeliveryStatus)
	}
	// One failed attempt plus the successful one.
	if record.DeliveryAttempts != 2 {
		t.Errorf("expected 2 attempts, got %d", record.DeliveryAttempts)
	}
	if record.DeliveryError != "" {
		t.Errorf("expected delivery_error cleared on success, got %q", record.DeliveryError)
	}
}

func TestDeliveryExhaustsRetryBudget(t *testing.T) {
	repo := newMockEscalationRepo()
	adapter := &mockAdapter{
		name:   "matrix",
		target: "!room:matrix.org",
		sendErrs: []error{
			errors.New("timeout"),
			errors.New("timeout"),
			errors.New("timeout"),
		},
	}
	svc := newTestDelivery(repo, newMockRegistry(adapter))

	esc := seedDeliverable(t, repo)
	svc.NotifyStaffResponse(esc)
	svc.Wait()

	record, _ := repo.GetByID(context.Background(), esc.ID)
	if record.DeliveryStatus != "failed" {
		t.Errorf("expected failed after budget exhaustion, got %q", record.DeliveryStatus)
	}
	if record.DeliveryAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", record.DeliveryAttempts)
	}
	if record.DeliveryError != "timeout" {
		t.Errorf("expected last transport error retained, got %q", record.DeliveryError)
	}
}

func TestDeliveryBadMetadataFailsTerminally(t *testing.T) {
	repo := newMockEscalationRepo()
	adapter := &mockAdapter{
		name:      "matrix",
		targetErr: errors.New("channel metadata has no room_id"),
	}
	svc := newTestDelivery(repo, newMockRegistry(adapter))

	esc := seedDeliverable(t, repo)
	svc.NotifyStaffResponse(esc)
	svc.Wait()

	record, _ := repo.GetByID(context.Background(), esc.ID)
	if record.DeliveryStatus != "failed" {
		t.Errorf("unresolvable target should fail without retries, got %q", record.DeliveryStatus)
	}
	if len(adapter.sentMessages()) != 0 {
		t.Error("no send should be attempted without a target")
	}
}

func TestDeliveryAcknowledgmentUsesEscalationCopy(t *testing.T) {
	repo := newMockEscalationRepo()
	adapter := &mockAdapter{name: "matrix", target: "!room:matrix.org"}
	svc := newTestDelivery(repo, newMockRegistry(adapter))

	esc := seedDeliverable(t, repo)
	svc.NotifyEscalationCreated(esc)
	svc.Wait()

	sent := adapter.sentMessages()
	if len(sent) != 1 || sent[0] != "escalated: msg-1" {
		t.Errorf("unexpected sends: %v", sent)
	}
}
