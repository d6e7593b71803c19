package cli

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"parkspot-backend/internal/config"
	"parkspot-backend/internal/discount"
	"parkspot-backend/internal/domain"
	"parkspot-backend/internal/jobs"
	"parkspot-backend/internal/metrics"
	"parkspot-backend/internal/repository"
	"parkspot-backend/internal/repository/postgres"
	"parkspot-backend/internal/repository/yamlfile"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and check discount rules",
	}
	cmd.AddCommand(newRulesValidateCmd())
	cmd.AddCommand(newRulesListCmd())
	cmd.AddCommand(newRulesCheckCmd())
	cmd.AddCommand(newRulesExportCmd())
	return cmd
}

func newRulesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Report malformed conditions in rule files",
		Long: `Validate parses each rule file and reports conditions that can never match:
unknown operators, fields that do not exist, and values of the wrong type.
Exits non-zero when any issue is found.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRulesValidate,
	}
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	total := 0
	for _, path := range args {
		rules, err := readRuleFile(path)
		if err != nil {
			return err
		}

		var issues []discount.Issue
		seen := make(map[domain.RuleID]bool, len(rules))
		for _, rule := range rules {
			if seen[rule.ID] {
				issues = append(issues, discount.Issue{RuleID: rule.ID, ConditionIndex: -1, Message: "duplicate rule id"})
			}
			seen[rule.ID] = true
			issues = append(issues, discount.ValidateRule(rule)...)
		}

		if len(issues) == 0 {
			fmt.Fprintf(out, "%s: %d rules OK\n", path, len(rules))
			continue
		}
		total += len(issues)
		fmt.Fprintf(out, "%s: %d issues\n", path, len(issues))
		if err := writeIssues(out, issues); err != nil {
			return err
		}
	}
	if total > 0 {
		return fmt.Errorf("found %d rule issues", total)
	}
	return nil
}

func newRulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list FILE",
		Short: "List the rules in a rule file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := readRuleFile(args[0])
			if err != nil {
				return err
			}
			return writeRules(cmd.OutOrStdout(), rules)
		},
	}
}

func newRulesCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load the configured rule store the way the server refresh does",
		Long: `Check reads every rule from the store named in the server config (postgres
or file), validates it and loads it into a scratch engine. Use it before a
deploy or from cron to catch rules the server would skip or warn about.`,
		Args: cobra.NoArgs,
		RunE: runRulesCheck,
	}
	cmd.Flags().String("config", "config/config.yaml", "Server config file")
	cmd.Flags().Bool("allow-issues", false, "Exit zero even when rules have issues")
	return cmd
}

func runRulesCheck(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	allowIssues, _ := cmd.Flags().GetBool("allow-issues")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	repo, closeRepo, err := openRuleRepository(cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	runner := jobs.NewJobRunner(repo, discount.NewEngine(), noopHealth{}, metrics.New(), cfg)
	result, err := runner.RefreshDiscountRulesNow(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "loaded %d rules from %s store, %d issues, %d rejected\n",
		result.Loaded, cfg.Rules.Source, len(result.Issues), len(result.Rejected))
	if len(result.Issues) > 0 {
		if err := writeIssues(out, result.Issues); err != nil {
			return err
		}
		if !allowIssues {
			return fmt.Errorf("found %d rule issues", len(result.Issues))
		}
	}
	return nil
}

func newRulesExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the configured rule store as a rule file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			repo, closeRepo, err := openRuleRepository(cfg)
			if err != nil {
				return err
			}
			defer closeRepo()

			rules, err := repo.List(cmd.Context())
			if err != nil {
				return err
			}
			data, err := yamlfile.EncodeRules(rules)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().String("config", "config/config.yaml", "Server config file")
	return cmd
}

func openRuleRepository(cfg *config.Config) (repository.DiscountRuleRepository, func(), error) {
	if cfg.Rules.Source == config.SourceFile {
		return yamlfile.NewRuleStore(cfg.Rules.File), func() {}, nil
	}
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return postgres.NewDiscountRuleRepository(db), func() { db.Close() }, nil
}

func readRuleFile(path string) ([]domain.DiscountRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}
	rules, err := yamlfile.DecodeRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

func writeIssues(w io.Writer, issues []discount.Issue) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RULE\tCONDITION\tFIELD\tISSUE")
	for _, i := range issues {
		condition := "-"
		if i.ConditionIndex >= 0 {
			condition = fmt.Sprint(i.ConditionIndex)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", i.RuleID, condition, i.Field, i.Message)
	}
	return tw.Flush()
}

func writeRules(w io.Writer, rules []domain.DiscountRule) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tPERCENT\tVAT EXEMPT\tACTIVE\tCONDITIONS")
	for _, r := range rules {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%t\t%d\n",
			r.ID, r.Name, r.Type, r.Percentage, r.IsVATExempt, r.IsActive, len(r.Conditions))
	}
	return tw.Flush()
}
