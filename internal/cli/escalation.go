package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ctxutil"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ports/primary"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/wire"
)

// EscalationCmd returns the escalation command.
func EscalationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "escalation",
		Short: "Manage escalations",
		Long:  "List, inspect, and work the escalation queue from the terminal.",
	}

	cmd.AddCommand(escalationListCmd())
	cmd.AddCommand(escalationShowCmd())
	cmd.AddCommand(escalationClaimCmd())
	cmd.AddCommand(escalationRespondCmd())
	cmd.AddCommand(escalationCloseCmd())
	cmd.AddCommand(escalationStatsCmd())

	return cmd
}

func escalationListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List escalations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			status, _ := cmd.Flags().GetString("status")
			channel, _ := cmd.Flags().GetString("channel")
			limit, _ := cmd.Flags().GetInt("limit")

			escalations, err := wire.EscalationService().List(ctx, primary.EscalationFilters{
				Status:  status,
				Channel: channel,
				Limit:   limit,
			})
			if err != nil {
				return fmt.Errorf("failed to list escalations: %w", err)
			}

			if len(escalations) == 0 {
				fmt.Println("No escalations found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tMESSAGE\tCHANNEL\tSTATUS\tPRIORITY\tSTAFF\tCREATED")
			fmt.Fprintln(w, "--\t-------\t-------\t------\t--------\t-----\t-------")
			for _, item := range escalations {
				staff := item.StaffID
				if staff == "" {
					staff = "-"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					item.ID,
					item.MessageID,
					item.Channel,
					statusColored(item.Status),
					item.Priority,
					staff,
					item.CreatedAt,
				)
			}
			w.Flush()
			return nil
		},
	}
	cmd.Flags().String("status", "", "Filter by status (pending, in_review, responded, closed)")
	cmd.Flags().String("channel", "", "Filter by channel (web, matrix, bisq2)")
	cmd.Flags().Int("limit", 50, "Maximum rows to show")
	return cmd
}

func escalationShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show escalation details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			esc, err := wire.EscalationService().Get(context.Background(), id)
			if err != nil {
				return fmt.Errorf("escalation not found: %w", err)
			}

			fmt.Printf("Escalation: %d\n", esc.ID)
			fmt.Printf("Message ID: %s\n", esc.MessageID)
			fmt.Printf("Channel: %s\n", esc.Channel)
			fmt.Printf("User: %s", esc.UserID)
			if esc.Username != "" {
				fmt.Printf(" (%s)", esc.Username)
			}
			fmt.Println()
			fmt.Printf("Status: %s\n", statusColored(esc.Status))
			fmt.Printf("Priority: %s\n", esc.Priority)
			fmt.Printf("Question: %s\n", esc.Question)
			if esc.AIDraftAnswer != "" {
				fmt.Printf("AI Draft: %s\n", esc.AIDraftAnswer)
			}
			fmt.Printf("Confidence: %.2f\n", esc.ConfidenceScore)
			fmt.Printf("Routing: %s (%s)\n", esc.RoutingAction, esc.RoutingReason)
			if esc.StaffID != "" {
				fmt.Printf("Claimed By: %s at %s\n", esc.StaffID, esc.ClaimedAt)
			}
			if esc.StaffAnswer != "" {
				fmt.Printf("Staff Answer: %s\n", esc.StaffAnswer)
			}
			if esc.StaffAnswerRating != "" {
				fmt.Printf("Rating: %s\n", esc.StaffAnswerRating)
			}
			if esc.DeliveryStatus != primary.DeliveryNotRequired {
				fmt.Printf("Delivery: %s (attempts: %d)\n", esc.DeliveryStatus, esc.DeliveryAttempts)
				if esc.DeliveryError != "" {
					fmt.Printf("Delivery Error: %s\n", esc.DeliveryError)
				}
			}
			if esc.GeneratedFAQID != "" {
				fmt.Printf("Promoted To: %s\n", esc.GeneratedFAQID)
			}
			fmt.Printf("Created: %s\n", esc.CreatedAt)
			if esc.RespondedAt != "" {
				fmt.Printf("Responded: %s\n", esc.RespondedAt)
			}
			if esc.ClosedAt != "" {
				fmt.Printf("Closed: %s (%s)\n", esc.ClosedAt, esc.CloseReason)
			}
			return nil
		},
	}
}

func escalationClaimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim [id]",
		Short: "Claim an escalation for review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			staffID, err := requireStaffID(cmd)
			if err != nil {
				return err
			}

			esc, err := wire.EscalationService().Claim(staffContext(staffID), id, staffID)
			if err != nil {
				return fmt.Errorf("failed to claim escalation: %w", err)
			}
			fmt.Printf("✓ Claimed escalation %d as %s\n", esc.ID, esc.StaffID)
			return nil
		},
	}
	cmd.Flags().String("staff", "", "Staff identifier taking the claim")
	return cmd
}

func escalationRespondCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "respond [id] [answer]",
		Short: "Record a staff answer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			staffID, err := requireStaffID(cmd)
			if err != nil {
				return err
			}

			esc, err := wire.EscalationService().Respond(staffContext(staffID), id, staffID, args[1])
			if err != nil {
				return fmt.Errorf("failed to respond: %w", err)
			}
			fmt.Printf("✓ Responded to escalation %d (delivery: %s)\n", esc.ID, esc.DeliveryStatus)
			return nil
		},
	}
	cmd.Flags().String("staff", "", "Staff identifier answering")
	return cmd
}

func escalationCloseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close [id]",
		Short: "Close an escalation without answering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			reason, _ := cmd.Flags().GetString("reason")

			if err := wire.EscalationService().Close(context.Background(), id, reason); err != nil {
				return fmt.Errorf("failed to close escalation: %w", err)
			}
			fmt.Printf("✓ Closed escalation %d\n", id)
			return nil
		},
	}
	cmd.Flags().String("reason", "", "Close reason (defaults to dismissed)")
	return cmd
}

func escalationStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := wire.EscalationService().Stats(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STATUS\tCOUNT")
			for _, status := range []string{primary.StatusPending, primary.StatusInReview, primary.StatusResponded, primary.StatusClosed} {
				fmt.Fprintf(w, "%s\t%d\n", status, stats.ByStatus[status])
			}
			fmt.Fprintln(w, "\nDELIVERY\tCOUNT")
			for _, status := range []string{primary.DeliveryPending, primary.DeliveryDelivered, primary.DeliveryFailed, primary.DeliveryNotRequired} {
				fmt.Fprintf(w, "%s\t%d\n", status, stats.ByDeliveryStatus[status])
			}
			w.Flush()
			return nil
		},
	}
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid escalation id %q", arg)
	}
	return id, nil
}

func requireStaffID(cmd *cobra.Command) (string, error) {
	staffID, _ := cmd.Flags().GetString("staff")
	if staffID == "" {
		staffID = os.Getenv("SUPPORTD_STAFF_ID")
	}
	if staffID == "" {
		return "", fmt.Errorf("--staff is required (or set SUPPORTD_STAFF_ID)")
	}
	return staffID, nil
}

func staffContext(staffID string) context.Context {
	return ctxutil.WithStaffID(context.Background(), staffID)
}

func statusColored(status string) string {
	switch status {
	case primary.StatusPending:
		return color.New(color.FgYellow).Sprint(status)
	case primary.StatusInReview:
		return color.New(color.FgCyan).Sprint(status)
	case primary.StatusResponded:
		return color.New(color.FgGreen).Sprint(status)
	case primary.StatusClosed:
		return color.New(color.FgHiBlack).Sprint(status)
	default:
		return status
	}
}
