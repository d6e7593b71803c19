package cli

import (
	"github.com/spf13/cobra"

	"parkspot-backend/internal/logger"
)

// NewRootCommand builds a fresh pricingctl command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "pricingctl",
		Short: "Quote parking bookings and manage discount rules from the command line",
		Long: `pricingctl prices a booking against a YAML catalog and rule file using the
same engine as the pricing server, checks rule files before they are
deployed, and mints admin tokens for the rule API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level, _ := cmd.Flags().GetString("log-level")
			logger.InitializeWithWriter(level, "text", cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().String("log-level", "warn", "Log level written to stderr (debug, info, warn, error)")

	root.AddCommand(newQuoteCmd())
	root.AddCommand(newRulesCmd())
	root.AddCommand(newTokenCmd())
	return root
}

// Execute runs pricingctl with os.Args and returns the process exit code.
func Execute() int {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		root.PrintErrln("Error:", err)
		return 1
	}
	return 0
}
