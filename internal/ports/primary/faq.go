package primary

import "context"

// FAQ is a permanent knowledge-base entry, usually promoted from a
// responded escalation.
type FAQ struct {
	ID                 string
	Question           string
	Answer             string
	Category           string
	SourceEscalationID int64
	CreatedAt          string
}

// FAQService is the primary port for FAQ management.
type FAQService interface {
	// Promote creates a FAQ from a responded escalation and back-links the
	// escalation's generated_faq_id. Valid only in responded status.
	Promote(ctx context.Context, escalationID int64, category string) (*FAQ, error)

	// Get retrieves a FAQ by ID.
	Get(ctx context.Context, id string) (*FAQ, error)

	// List retrieves FAQs, optionally filtered by category.
	List(ctx context.Context, category string) ([]*FAQ, error)

	// Delete removes a FAQ.
	Delete(ctx context.Context, id string) error
}
