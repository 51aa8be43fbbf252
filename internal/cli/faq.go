package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hiciefte/bisq2-support-agent-sub005/internal/wire"
)

// FAQCmd returns the faq command.
func FAQCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "faq",
		Short: "Manage the FAQ knowledge base",
		Long:  "Promote answered escalations into FAQs and curate the result.",
	}

	cmd.AddCommand(faqPromoteCmd())
	cmd.AddCommand(faqListCmd())
	cmd.AddCommand(faqShowCmd())
	cmd.AddCommand(faqDeleteCmd())

	return cmd
}

func faqPromoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promote [escalation-id]",
		Short: "Promote a responded escalation to a FAQ",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			category, _ := cmd.Flags().GetString("category")

			faq, err := wire.FAQService().Promote(context.Background(), id, category)
			if err != nil {
				return fmt.Errorf("failed to promote escalation: %w", err)
			}
			fmt.Printf("✓ Created %s from escalation %d\n", faq.ID, id)
			return nil
		},
	}
	cmd.Flags().String("category", "", "FAQ category")
	return cmd
}

func faqListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List FAQs",
		RunE: func(cmd *cobra.Command, args []string) error {
			category, _ := cmd.Flags().GetString("category")

			faqs, err := wire.FAQService().List(context.Background(), category)
			if err != nil {
				return fmt.Errorf("failed to list FAQs: %w", err)
			}
			if len(faqs) == 0 {
				fmt.Println("No FAQs found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCATEGORY\tQUESTION\tSOURCE\tCREATED")
			for _, faq := range faqs {
				question := faq.Question
				if len(question) > 60 {
					question = question[:57] + "..."
				}
				source := "-"
				if faq.SourceEscalationID != 0 {
					source = fmt.Sprintf("%d", faq.SourceEscalationID)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", faq.ID, faq.Category, question, source, faq.CreatedAt)
			}
			w.Flush()
			return nil
		},
	}
	cmd.Flags().String("category", "", "Filter by category")
	return cmd
}

func faqShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [faq-id]",
		Short: "Show FAQ details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			faq, err := wire.FAQService().Get(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("faq not found: %w", err)
			}

			fmt.Printf("FAQ: %s\n", faq.ID)
			if faq.Category != "" {
				fmt.Printf("Category: %s\n", faq.Category)
			}
			fmt.Printf("Question: %s\n", faq.Question)
			fmt.Printf("Answer: %s\n", faq.Answer)
			if faq.SourceEscalationID != 0 {
				fmt.Printf("Source Escalation: %d\n", faq.SourceEscalationID)
			}
			fmt.Printf("Created: %s\n", faq.CreatedAt)
			return nil
		},
	}
}

func faqDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [faq-id]",
		Short: "Delete a FAQ",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := wire.FAQService().Delete(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to delete FAQ: %w", err)
			}
			fmt.Printf("✓ Deleted %s\n", args[0])
			return nil
		},
	}
}
