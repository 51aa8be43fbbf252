package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ports/primary"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ports/secondary"
)

// FAQService manages the knowledge base built from answered escalations.
type FAQService struct {
	faqs        secondary.FAQRepository
	escalations secondary.EscalationRepository
	logger      *zap.Logger
}

var _ primary.FAQService = (*FAQService)(nil)

// NewFAQService creates a FAQ service with its dependencies.
func NewFAQService(faqs secondary.FAQRepository, escalations secondary.EscalationRepository, logger *zap.Logger) *FAQService {
	return &FAQService{
		faqs:        faqs,
		escalations: escalations,
		logger:      logger,
	}
}

// Promote creates a FAQ from a responded escalation and back-links the
// escalation to it.
func (s *FAQService) Promote(ctx context.Context, escalationID int64, category string) (*primary.FAQ, error) {
	record, err := s.escalations.GetByID(ctx, escalationID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: id %d", primary.ErrNotFound, escalationID)
		}
		return nil, fmt.Errorf("failed to get escalation: %w", err)
	}
	if record.Status != primary.StatusResponded {
		return nil, fmt.Errorf("%w: can only promote responded escalations (current status: %s)", primary.ErrInvalidState, record.Status)
	}
	if record.GeneratedFAQID != "" {
		return nil, fmt.Errorf("%w: escalation already promoted to %s", primary.ErrInvalidState, record.GeneratedFAQID)
	}

	id, err := s.faqs.GetNextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get next FAQ ID: %w", err)
	}
	faq := &secondary.FAQRecord{
		ID:                 id,
		Question:           record.Question,
		Answer:             record.StaffAnswer,
		Category:           category,
		SourceEscalationID: escalationID,
	}
	if err := s.faqs.Create(ctx, faq); err != nil {
		return nil, fmt.Errorf("failed to create FAQ: %w", err)
	}
	if err := s.escalations.SetGeneratedFAQ(ctx, escalationID, id); err != nil {
		return nil, fmt.Errorf("failed to back-link escalation: %w", err)
	}

	created, err := s.faqs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch created FAQ: %w", err)
	}
	s.logger.Info("Escalation promoted to FAQ",
		zap.Int64("escalation_id", escalationID),
		zap.String("faq_id", id))
	return faqToPrimary(created), nil
}

// Get retrieves a FAQ by ID.
func (s *FAQService) Get(ctx context.Context, id string) (*primary.FAQ, error) {
	record, err := s.faqs.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: faq %q", primary.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get FAQ: %w", err)
	}
	return faqToPrimary(record), nil
}

// List retrieves FAQs, optionally filtered by category.
func (s *FAQService) List(ctx context.Context, category string) ([]*primary.FAQ, error) {
	records, err := s.faqs.List(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list FAQs: %w", err)
	}
	faqs := make([]*primary.FAQ, 0, len(records))
	for _, record := range records {
		faqs = append(faqs, faqToPrimary(record))
	}
	return faqs, nil
}

// Delete removes a FAQ.
func (s *FAQService) Delete(ctx context.Context, id string) error {
	if err := s.faqs.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: faq %q", primary.ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete FAQ: %w", err)
	}
	return nil
}

func faqToPrimary(record *secondary.FAQRecord) *primary.FAQ {
	return &primary.FAQ{
		ID:                 record.ID,
		Question:           record.Question,
		Answer:             record.Answer,
		Category:           record.Category,
		SourceEscalationID: record.SourceEscalationID,
		CreatedAt:          record.CreatedAt,
	}
}
