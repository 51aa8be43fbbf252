package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ports/primary"
)

// MockEscalationService implements primary.EscalationService for testing.
type MockEscalationService struct {
	CreateFunc  func(ctx context.Context, req primary.CreateEscalationRequest) (*primary.CreateEscalationResponse, error)
	GetFunc     func(ctx context.Context, id int64) (*primary.Escalation, error)
	ListFunc    func(ctx context.Context, filters primary.EscalationFilters) ([]*primary.Escalation, error)
	ClaimFunc   func(ctx context.Context, id int64, staffID string) (*primary.Escalation, error)
	RespondFunc func(ctx context.Context, id int64, staffID, answer string) (*primary.Escalation, error)
	CloseFunc   func(ctx context.Context, id int64, reason string) error
	RateFunc    func(ctx context.Context, messageID, rating string) error
	PollFunc    func(ctx context.Context, messageID string) (*primary.PollResponse, error)
	StatsFunc   func(ctx context.Context) (*primary.EscalationStats, error)
}

var _ primary.EscalationService = (*MockEscalationService)(nil)

func (m *MockEscalationService) Create(ctx context.Context, req primary.CreateEscalationRequest) (*primary.CreateEscalationResponse, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req)
	}
	return nil, primary.ErrValidation
}

func (m *MockEscalationService) Get(ctx context.Context, id int64) (*primary.Escalation, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, primary.ErrNotFound
}

func (m *MockEscalationService) List(ctx context.Context, filters primary.EscalationFilters) ([]*primary.Escalation, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filters)
	}
	return nil, nil
}

func (m *MockEscalationService) Claim(ctx context.Context, id int64, staffID string) (*primary.Escalation, error) {
	if m.ClaimFunc != nil {
		return m.ClaimFunc(ctx, id, staffID)
	}
	return nil, primary.ErrNotFound
}

func (m *MockEscalationService) Respond(ctx context.Context, id int64, staffID, answer string) (*primary.Escalation, error) {
	if m.RespondFunc != nil {
		return m.RespondFunc(ctx, id, staffID, answer)
	}
	return nil, primary.ErrNotFound
}

func (m *MockEscalationService) Close(ctx context.Context, id int64, reason string) error {
	if m.CloseFunc != nil {
		return m.CloseFunc(ctx, id, reason)
	}
	return primary.ErrNotFound
}

func (m *MockEscalationService) RateStaffAnswer(ctx context.Context, messageID, rating string) error {
	if m.RateFunc != nil {
		return m.RateFunc(ctx, messageID, rating)
	}
	return primary.ErrNotFound
}

func (m *MockEscalationService) Poll(ctx context.Context, messageID string) (*primary.PollResponse, error) {
	if m.PollFunc != nil {
		return m.PollFunc(ctx, messageID)
	}
	return nil, primary.ErrNotFound
}

func (m *MockEscalationService) Stats(ctx context.Context) (*primary.EscalationStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &primary.EscalationStats{}, nil
}

// MockFAQService implements primary.FAQService for testing.
type MockFAQService struct {
	PromoteFunc func(ctx context.Context, escalationID int64, category string) (*primary.FAQ, error)
	GetFunc     func(ctx context.Context, id string) (*primary.FAQ, error)
	ListFunc    func(ctx context.Context, category string) ([]*primary.FAQ, error)
	DeleteFunc  func(ctx context.Context, id string) error
}

var _ primary.FAQService = (*MockFAQService)(nil)

func (m *MockFAQService) Promote(ctx context.Context, escalationID int64, category string) (*primary.FAQ, error) {
	if m.PromoteFunc != nil {
		return m.PromoteFunc(ctx, escalationID, category)
	}
	return nil, primary.ErrNotFound
}

func (m *MockFAQService) Get(ctx context.Context, id string) (*primary.FAQ, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, primary.ErrNotFound
}

func (m *MockFAQService) List(ctx context.Context, category string) ([]*primary.FAQ, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, category)
	}
	return nil, nil
}

func (m *MockFAQService) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return primary.ErrNotFound
}

func newTestServer(escalations *MockEscalationService, faqs *MockFAQService) *Server {
	if escalations == nil {
		escalations = &MockEscalationService{}
	}
	if faqs == nil {
		faqs = &MockFAQService{}
	}
	return NewServer(escalations, faqs, zap.NewNop())
}

func doJSON(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(nil, nil)
	w := doJSON(s, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestCreateEscalationReturns201(t *testing.T) {
	escalations := &MockEscalationService{
		CreateFunc: func(ctx context.Context, req primary.CreateEscalationRequest) (*primary.CreateEscalationResponse, error) {
			return &primary.CreateEscalationResponse{
				Escalation: &primary.Escalation{ID: 1, MessageID: req.MessageID, Status: primary.StatusPending},
			}, nil
		},
	}
	s := newTestServer(escalations, nil)

	w := doJSON(s, http.MethodPost, "/api/v1/escalations", map[string]any{
		"message_id":       "msg-1",
		"channel":          "web",
		"user_id":          "user-1",
		"question":         "help",
		"confidence_score": 0.3,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Escalated bool `json:"escalated"`
		Existing  bool `json:"existing"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Escalated || resp.Existing {
		t.Errorf("unexpected response flags: %+v", resp)
	}
}

func TestCreateEscalationDuplicateReturns200(t *testing.T) {
	escalations := &MockEscalationService{
		CreateFunc: func(ctx context.Context, req primary.CreateEscalationRequest) (*primary.CreateEscalationResponse, error) {
			return &primary.CreateEscalationResponse{
				Escalation: &primary.Escalation{ID: 1, MessageID: req.MessageID},
				Existing:   true,
			}, nil
		},
	}
	s := newTestServer(escalations, nil)

	w := doJSON(s, http.MethodPost, "/api/v1/escalations", map[string]any{
		"message_id": "msg-1", "channel": "web", "user_id": "u", "question": "q",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for duplicate, got %d", w.Code)
	}
}

func TestCreateEscalationNotEligible(t *testing.T) {
	escalations := &MockEscalationService{
		CreateFunc: func(ctx context.Context, req primary.CreateEscalationRequest) (*primary.CreateEscalationResponse, error) {
			return nil, fmt.Errorf("%w: confident", primary.ErrNotEligible)
		},
	}
	s := newTestServer(escalations, nil)

	w := doJSON(s, http.MethodPost, "/api/v1/escalations", map[string]any{
		"message_id": "msg-1", "channel": "web", "user_id": "u", "question": "q",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Escalated bool `json:"escalated"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Escalated {
		t.Error("ineligible answer should report escalated=false")
	}
}

func TestCreateEscalationMissingFields(t *testing.T) {
	s := newTestServer(nil, nil)
	w := doJSON(s, http.MethodPost, "/api/v1/escalations", map[string]any{"channel": "web"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPollResponseEndpoint(t *testing.T) {
	escalations := &MockEscalationService{
		PollFunc: func(ctx context.Context, messageID string) (*primary.PollResponse, error) {
			if messageID != "msg-1" {
				return nil, primary.ErrNotFound
			}
			return &primary.PollResponse{
				Status:      primary.PollStatusResolved,
				Resolution:  primary.PollResolutionResponded,
				StaffAnswer: "the answer",
			}, nil
		},
	}
	s := newTestServer(escalations, nil)

	w := doJSON(s, http.MethodGet, "/api/v1/escalations/msg-1/response", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var poll primary.PollResponse
	json.Unmarshal(w.Body.Bytes(), &poll)
	if poll.Status != primary.PollStatusResolved || poll.StaffAnswer != "the answer" {
		t.Errorf("unexpected poll payload: %+v", poll)
	}

	w = doJSON(s, http.MethodGet, "/api/v1/escalations/msg-unknown/response", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown message_id, got %d", w.Code)
	}
}

func TestRateEndpointErrorMapping(t *testing.T) {
	escalations := &MockEscalationService{
		RateFunc: func(ctx context.Context, messageID, rating string) error {
			return fmt.Errorf("%w: can only rate responded escalations", primary.ErrInvalidState)
		},
	}
	s := newTestServer(escalations, nil)

	w := doJSON(s, http.MethodPost, "/api/v1/escalations/msg-1/rate", map[string]any{"rating": "helpful"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestClaimEndpointConflict(t *testing.T) {
	escalations := &MockEscalationService{
		ClaimFunc: func(ctx context.Context, id int64, staffID string) (*primary.Escalation, error) {
			return nil, fmt.Errorf("%w: claimed by staff-b", primary.ErrAlreadyClaimed)
		},
	}
	s := newTestServer(escalations, nil)

	w := doJSON(s, http.MethodPost, "/api/v1/admin/escalations/1/claim", map[string]any{"staff_id": "staff-a"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestClaimEndpointBadID(t *testing.T) {
	s := newTestServer(nil, nil)
	w := doJSON(s, http.MethodPost, "/api/v1/admin/escalations/notanumber/claim", map[string]any{"staff_id": "a"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRespondEndpoint(t *testing.T) {
	escalations := &MockEscalationService{
		RespondFunc: func(ctx context.Context, id int64, staffID, answer string) (*primary.Escalation, error) {
			return &primary.Escalation{ID: id, StaffID: staffID, StaffAnswer: answer, Status: primary.StatusResponded}, nil
		},
	}
	s := newTestServer(escalations, nil)

	w := doJSON(s, http.MethodPost, "/api/v1/admin/escalations/7/respond", map[string]any{
		"staff_id": "staff-a",
		"answer":   "restored",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestListEscalationsPassesFilters(t *testing.T) {
	var got primary.EscalationFilters
	escalations := &MockEscalationService{
		ListFunc: func(ctx context.Context, filters primary.EscalationFilters) ([]*primary.Escalation, error) {
			got = filters
			return []*primary.Escalation{{ID: 1}}, nil
		},
	}
	s := newTestServer(escalations, nil)

	w := doJSON(s, http.MethodGet, "/api/v1/admin/escalations?status=pending&channel=matrix&limit=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got.Status != "pending" || got.Channel != "matrix" || got.Limit != 10 {
		t.Errorf("filters not passed through: %+v", got)
	}
}

func TestPromoteEndpoint(t *testing.T) {
	faqs := &MockFAQService{
		PromoteFunc: func(ctx context.Context, escalationID int64, category string) (*primary.FAQ, error) {
			return &primary.FAQ{ID: "FAQ-001", Category: category, SourceEscalationID: escalationID}, nil
		},
	}
	s := newTestServer(nil, faqs)

	w := doJSON(s, http.MethodPost, "/api/v1/admin/escalations/3/promote", map[string]any{"category": "wallet"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDeleteFAQNotFound(t *testing.T) {
	s := newTestServer(nil, &MockFAQService{})
	w := doJSON(s, http.MethodDelete, "/api/v1/admin/faqs/FAQ-404", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
