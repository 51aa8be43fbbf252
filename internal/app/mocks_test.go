package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ports/primary"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ports/secondary"
)

// mockEscalationRepo is an in-memory EscalationRepository honoring the
// conditional-update semantics of the real adapter.
type mockEscalationRepo struct {
	mu        sync.Mutex
	records   map[int64]*secondary.EscalationRecord
	byMessage map[string]int64
	nextID    int64

	// forcedErr, when set, fails every call.
	forcedErr error
}

var _ secondary.EscalationRepository = (*mockEscalationRepo)(nil)

func newMockEscalationRepo() *mockEscalationRepo {
	return &mockEscalationRepo{
		records:   make(map[int64]*secondary.EscalationRecord),
		byMessage: make(map[string]int64),
	}
}

func (m *mockEscalationRepo) Create(ctx context.Context, record *secondary.EscalationRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forcedErr != nil {
		return 0, m.forcedErr
	}
	if _, exists := m.byMessage[record.MessageID]; exists {
		return 0, fmt.Errorf("insert escalation: %w", secondary.ErrDuplicateMessageID)
	}
	m.nextID++
	stored := *record
	stored.ID = m.nextID
	if stored.CreatedAt == "" {
		stored.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	m.records[stored.ID] = &stored
	m.byMessage[stored.MessageID] = stored.ID
	return stored.ID, nil
}

func (m *mockEscalationRepo) GetByID(ctx context.Context, id int64) (*secondary.EscalationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forcedErr != nil {
		return nil, m.forcedErr
	}
	record, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("escalation %d: %w", id, secondary.ErrNotFound)
	}
	copied := *record
	return &copied, nil
}

func (m *mockEscalationRepo) GetByMessageID(ctx context.Context, messageID string) (*secondary.EscalationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forcedErr != nil {
		return nil, m.forcedErr
	}
	id, ok := m.byMessage[messageID]
	if !ok {
		return nil, fmt.Errorf("escalation %q: %w", messageID, secondary.ErrNotFound)
	}
	copied := *m.records[id]
	return &copied, nil
}

func (m *mockEscalationRepo) List(ctx context.Context, filters secondary.EscalationFilters) ([]*secondary.EscalationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forcedErr != nil {
		return nil, m.forcedErr
	}
	var out []*secondary.EscalationRecord
	for id := int64(1); id <= m.nextID; id++ {
		record, ok := m.records[id]
		if !ok {
			continue
		}
		if filters.Status != "" && record.Status != filters.Status {
			continue
		}
		if filters.Channel != "" && record.Channel != filters.Channel {
			continue
		}
		if filters.Priority != "" && record.Priority != filters.Priority {
			continue
		}
		if filters.StaffID != "" && record.StaffID != filters.StaffID {
			continue
		}
		copied := *record
		out = append(out, &copied)
	}
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

func (m *mockEscalationRepo) Claim(ctx context.Context, id int64, staffID string, now, claimExpiredBefore time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forcedErr != nil {
		return false, m.forcedErr
	}
	record, ok := m.records[id]
	if !ok {
		return false, nil
	}
	claimable := record.Status == "pending"
	if record.Status == "in_review" && record.ClaimedAt != "" {
		claimedAt, err := time.Parse(time.RFC3339, record.ClaimedAt)
		if err == nil && !claimedAt.After(claimExpiredBefore) {
			claimable = true
		}
	}
	if !claimable {
		return false, nil
	}
	record.Status = "in_review"
	record.StaffID = staffID
	record.ClaimedAt = now.Format(time.RFC3339)
	return true, nil
}

func (m *mockEscalationRepo) Respond(ctx context.Context, id int64, staffID, answer string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forcedErr != nil {
		return false, m.forcedErr
	}
	record, ok := m.records[id]
	if !ok {
		return false, nil
	}
	if record.Status != "pending" && !(record.Status == "in_review" && record.StaffID == staffID) {
		return false, nil
	}
	if record.ClaimedAt == "" {
		record.ClaimedAt = now.Format(time.RFC3339)
	}
	record.Status = "responded"
	record.StaffID = staffID
	record.StaffAnswer = answer
	record.RespondedAt = now.Format(time.RFC3339)
	return true, nil
}

func (m *mockEscalationRepo) Close(ctx context.Context, id int64, reason string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forcedErr != nil {
		return false, m.forcedErr
	}
	record, ok := m.records[id]
	if !ok {
		return false, nil
	}
	if record.Status != "pending" && record.Status != "in_review" {
		return false, nil
	}
	record.Status = "closed"
	record.CloseReason = reason
	record.ClosedAt = now.Format(time.RFC3339)
	return true, nil
}

func (m *mockEscalationRepo) RateStaffAnswer(ctx context.Context, messageID, rating string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forcedErr != nil {
		return false, m.forcedErr
	}
	id, ok := m.byMessage[messageID]
	if !ok {
		return false, nil
	}
	record := m.records[id]
	if record.Status != "responded" {
		return false, nil
	}
	record.StaffAnswerRating = rating
	return true, nil
}

func (m *mockEscalationRepo) SetGeneratedFAQ(ctx context.Context, id int64, faqID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forcedErr != nil {
		return m.forcedErr
	}
	record, ok := m.records[id]
	if !ok {
		return fmt.Errorf("escalation %d: %w", id, secondary.ErrNotFound)
	}
	record.GeneratedFAQID = faqID
	return nil
}

func (m *mockEscalationRepo) MarkDelivered(ctx context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forcedErr != nil {
		return m.forcedErr
	}
	record, ok := m.records[id]
	if !ok {
		return fmt.Errorf("escalation %d: %w", id, secondary.ErrNotFound)
	}
	record.DeliveryStatus = "delivered"
	record.DeliveryError = ""
	record.DeliveryAttempts++
	record.LastDeliveryAt = at.Format(time.RFC3339)
	return nil
}

func (m *mockEscalationRepo) RecordDeliveryFailure(ctx context.Context, id int64, deliveryError string, final bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forcedErr != nil {
		return m.forcedErr
	}
	record, ok := m.records[id]
	if !ok {
		return fmt.Errorf("escalation %d: %w", id, secondary.ErrNotFound)
	}
	record.DeliveryAttempts++
	record.DeliveryError = deliveryError
	if final {
		record.DeliveryStatus = "failed"
	} else {
		record.DeliveryStatus = "pending"
	}
	return nil
}

func (m *mockEscalationRepo) ReleaseExpiredClaims(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forcedErr != nil {
		return 0, m.forcedErr
	}
	var released int64
	for _, record := range m.records {
		if record.Status != "in_review" || record.ClaimedAt == "" {
			continue
		}
		claimedAt, err := time.Parse(time.RFC3339, record.ClaimedAt)
		if err != nil || claimedAt.After(cutoff) {
			continue
		}
		record.Status = "pending"
		record.StaffID = ""
		record.ClaimedAt = ""
		released++
	}
	return released, nil
}

func (m *mockEscalationRepo) AutoCloseOlderThan(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forcedErr != nil {
		return 0, m.forcedErr
	}
	var closed int64
	for _, record := range m.records {
		if record.Status != "pending" && record.Status != "in_review" {
			continue
		}
		createdAt, err := time.Parse(time.RFC3339, record.CreatedAt)
		if err != nil || createdAt.After(cutoff) {
			continue
		}
		record.Status = "closed"
		record.CloseReason = reason
		record.ClosedAt = time.Now().UTC().Format(time.RFC3339)
		closed++
	}
	return closed, nil
}

func (m *mockEscalationRepo) PurgeTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forcedErr != nil {
		return 0, m.forcedErr
	}
	var purged int64
	for id, record := range m.records {
		var terminalAt string
		switch record.Status {
		case "responded":
			terminalAt = record.RespondedAt
		case "closed":
			terminalAt = record.ClosedAt
		default:
			continue
		}
		ts, err := time.Parse(time.RFC3339, terminalAt)
		if err != nil || ts.After(cutoff) {
			continue
		}
		delete(m.records, id)
		delete(m.byMessage, record.MessageID)
		purged++
	}
	return purged, nil
}

func (m *mockEscalationRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forcedErr != nil {
		return nil, m.forcedErr
	}
	counts := make(map[string]int)
	for _, record := range m.records {
		counts[record.Status]++
	}
	return counts, nil
}

func (m *mockEscalationRepo) CountByDeliveryStatus(ctx context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forcedErr != nil {
		return nil, m.forcedErr
	}
	counts := make(map[string]int)
	for _, record := range m.records {
		counts[record.DeliveryStatus]++
	}
	return counts, nil
}

// mockAdapter is a scripted ChannelAdapter recording sends.
type mockAdapter struct {
	mu        sync.Mutex
	name      string
	target    string
	targetErr error
	sendErrs  []error // consumed per send; nil entry means success
	sent      []string
}

var _ secondary.ChannelAdapter = (*mockAdapter)(nil)

func (a *mockAdapter) Name() string { return a.name }

func (a *mockAdapter) GetDeliveryTarget(channelMetadata string) (string, error) {
	return a.target, a.targetErr
}

func (a *mockAdapter) FormatEscalationMessage(username, messageID, supportHandle string) string {
	return "escalated: " + messageID
}

func (a *mockAdapter) FormatStaffResponse(username, staffAnswer string) string {
	return "answer: " + staffAnswer
}

func (a *mockAdapter) Send(ctx context.Context, target, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var err error
	if len(a.sendErrs) > 0 {
		err = a.sendErrs[0]
		a.sendErrs = a.sendErrs[1:]
	}
	if err == nil {
		a.sent = append(a.sent, text)
	}
	return err
}

func (a *mockAdapter) sentMessages() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.sent...)
}

// mockRegistry resolves scripted adapters.
type mockRegistry struct {
	adapters map[string]secondary.ChannelAdapter
}

var _ secondary.ChannelRegistry = (*mockRegistry)(nil)

func newMockRegistry(adapters ...secondary.ChannelAdapter) *mockRegistry {
	m := make(map[string]secondary.ChannelAdapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return &mockRegistry{adapters: m}
}

func (r *mockRegistry) Resolve(channel string) (secondary.ChannelAdapter, error) {
	adapter, ok := r.adapters[channel]
	if !ok {
		return nil, fmt.Errorf("no adapter for channel %q", channel)
	}
	return adapter, nil
}

func (r *mockRegistry) Known(channel string) bool {
	_, ok := r.adapters[channel]
	return ok
}

// captureNotifier records notification calls without delivering anything.
type captureNotifier struct {
	mu        sync.Mutex
	created   []*primary.Escalation
	responses []*primary.Escalation
}

var _ Notifier = (*captureNotifier)(nil)

func (n *captureNotifier) NotifyEscalationCreated(esc *primary.Escalation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, esc)
}

func (n *captureNotifier) NotifyStaffResponse(esc *primary.Escalation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.responses = append(n.responses, esc)
}

// mockFAQRepo is an in-memory FAQRepository.
type mockFAQRepo struct {
	mu   sync.Mutex
	faqs map[string]*secondary.FAQRecord
	seq  int
}

var _ secondary.FAQRepository = (*mockFAQRepo)(nil)

func newMockFAQRepo() *mockFAQRepo {
	return &mockFAQRepo{faqs: make(map[string]*secondary.FAQRecord)}
}

func (m *mockFAQRepo) Create(ctx context.Context, faq *secondary.FAQRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *faq
	if stored.CreatedAt == "" {
		stored.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	m.faqs[stored.ID] = &stored
	return nil
}

func (m *mockFAQRepo) GetByID(ctx context.Context, id string) (*secondary.FAQRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	faq, ok := m.faqs[id]
	if !ok {
		return nil, fmt.Errorf("faq %q: %w", id, secondary.ErrNotFound)
	}
	copied := *faq
	return &copied, nil
}

func (m *mockFAQRepo) List(ctx context.Context, category string) ([]*secondary.FAQRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*secondary.FAQRecord
	for _, faq := range m.faqs {
		if category != "" && faq.Category != category {
			continue
		}
		copied := *faq
		out = append(out, &copied)
	}
	return out, nil
}

func (m *mockFAQRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.faqs[id]; !ok {
		return fmt.Errorf("faq %q: %w", id, secondary.ErrNotFound)
	}
	delete(m.faqs, id)
	return nil
}

func (m *mockFAQRepo) GetNextID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return fmt.Sprintf("FAQ-%03d", m.seq), nil
}
