package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hiciefte/bisq2-support-agent-sub005/internal/adapters/sqlite"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ports/secondary"
)

func TestFAQCreateAndGet(t *testing.T) {
	testDB := setupTestDB(t)
	repo := sqlite.NewFAQRepository(testDB)
	ctx := context.Background()

	escID := seedEscalation(t, testDB, "m1", "web", "responded")

	err := repo.Create(ctx, &secondary.FAQRecord{
		ID:                 "FAQ-001",
		Question:           "How do I cancel a trade?",
		Answer:             "Open the trade and press cancel before the peer confirms.",
		Category:           "trading",
		SourceEscalationID: escID,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	faq, err := repo.GetByID(ctx, "FAQ-001")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if faq.Category != "trading" {
		t.Errorf("expected category 'trading', got %q", faq.Category)
	}
	if faq.SourceEscalationID != escID {
		t.Errorf("expected source escalation %d, got %d", escID, faq.SourceEscalationID)
	}
	if faq.CreatedAt == "" {
		t.Error("expected created_at to be set")
	}
}

func TestFAQGetNextID(t *testing.T) {
	testDB := setupTestDB(t)
	repo := sqlite.NewFAQRepository(testDB)
	ctx := context.Background()

	id, err := repo.GetNextID(ctx)
	if err != nil {
		t.Fatalf("GetNextID failed: %v", err)
	}
	if id != "FAQ-001" {
		t.Errorf("expected FAQ-001, got %s", id)
	}

	if err := repo.Create(ctx, &secondary.FAQRecord{ID: id, Question: "Q", Answer: "A", Category: "general"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	id, err = repo.GetNextID(ctx)
	if err != nil {
		t.Fatalf("GetNextID failed: %v", err)
	}
	if id != "FAQ-002" {
		t.Errorf("expected FAQ-002, got %s", id)
	}
}

func TestFAQListByCategory(t *testing.T) {
	testDB := setupTestDB(t)
	repo := sqlite.NewFAQRepository(testDB)
	ctx := context.Background()

	for i, category := range []string{"trading", "trading", "wallet"} {
		err := repo.Create(ctx, &secondary.FAQRecord{
			ID:       "FAQ-00" + string(rune('1'+i)),
			Question: "Q",
			Answer:   "A",
			Category: category,
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	faqs, err := repo.List(ctx, "trading")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(faqs) != 2 {
		t.Errorf("expected 2 trading faqs, got %d", len(faqs))
	}

	faqs, err = repo.List(ctx, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(faqs) != 3 {
		t.Errorf("expected 3 faqs, got %d", len(faqs))
	}
}

func TestFAQDelete(t *testing.T) {
	testDB := setupTestDB(t)
	repo := sqlite.NewFAQRepository(testDB)
	ctx := context.Background()

	if err := repo.Create(ctx, &secondary.FAQRecord{ID: "FAQ-001", Question: "Q", Answer: "A", Category: "general"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := repo.Delete(ctx, "FAQ-001"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.GetByID(ctx, "FAQ-001"); !errors.Is(err, secondary.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, "FAQ-001"); !errors.Is(err, secondary.ErrNotFound) {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}
}
