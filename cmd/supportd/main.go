package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hiciefte/bisq2-support-agent-sub005/internal/cli"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "supportd",
		Short:   "supportd - support escalation service for the Bisq2 chatbot",
		Version: version.String(),
		Long: `supportd tracks questions the AI support chatbot could not answer
confidently, routes them to human staff, and delivers staff answers back
to the originating channel.`,
	}

	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.EscalationCmd())
	rootCmd.AddCommand(cli.FAQCmd())
	rootCmd.AddCommand(cli.MaintainCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
