package main

import (
	"fmt"
	"os"

	"github.com/joshsymonds/ledgerflow/internal/cli"
	"github.com/joshsymonds/ledgerflow/internal/common"
	"github.com/joshsymonds/ledgerflow/internal/model"
	"github.com/joshsymonds/ledgerflow/internal/rules"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect classification rules",
	}
	cmd.AddCommand(rulesCheckCmd())
	return cmd
}

func rulesCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load rule files and report what they contain",
		Long: `Check loads the rule files exactly as the process command would and
reports per-mode counts and the accounts the rules reference. Rules
naming accounts missing from the roster are warned about during the
load itself.`,
		RunE: runRulesCheck,
	}

	cmd.Flags().StringP("rules", "r", "", "comma-separated rule files")
	cmd.Flags().StringP("accounts", "a", "", "file listing known account names, one per line")

	_ = viper.BindPFlag("rules.rules", cmd.Flags().Lookup("rules"))
	_ = viper.BindPFlag("rules.accounts", cmd.Flags().Lookup("accounts"))

	return cmd
}

func runRulesCheck(_ *cobra.Command, _ []string) error {
	paths := viper.GetString("rules.rules")
	if paths == "" {
		return fmt.Errorf("no rule files given, use --rules")
	}

	roster, err := readAccounts(common.ExpandPath(viper.GetString("rules.accounts")))
	if err != nil {
		return err
	}

	ruleSet, err := rules.Load(common.ExpandPath(paths), roster)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	counts := map[model.Mode]int{}
	dated := 0
	for _, r := range ruleSet.Rules() {
		counts[r.Mode]++
		if r.DateFilter != "" {
			dated++
		}
	}

	fmt.Fprintln(os.Stderr, cli.FormatTitle("Rule Summary"))
	fmt.Fprintf(os.Stderr, "  Total rules:    %d\n", ruleSet.Len())
	fmt.Fprintf(os.Stderr, "  PRESERVE:       %d\n", counts[model.ModePreserve])
	fmt.Fprintf(os.Stderr, "  AGGREGATE:      %d\n", counts[model.ModeAggregate])
	fmt.Fprintf(os.Stderr, "  REPLACE:        %d\n", counts[model.ModeReplace])
	fmt.Fprintf(os.Stderr, "  COMBINE:        %d\n", counts[model.ModeCombine])
	fmt.Fprintf(os.Stderr, "  Date-filtered:  %d\n", dated)

	fmt.Fprintln(os.Stderr, cli.FormatTitle("Referenced Accounts"))
	for _, account := range ruleSet.Accounts() {
		fmt.Fprintf(os.Stderr, "  %s\n", account)
	}

	if descs := ruleSet.AggregateDescriptions(); len(descs) > 0 {
		fmt.Fprintln(os.Stderr, cli.FormatTitle("Aggregate Descriptions"))
		for _, desc := range descs {
			fmt.Fprintf(os.Stderr, "  %s\n", desc)
		}
	}

	fmt.Fprintln(os.Stderr, cli.FormatSuccess("Rules loaded cleanly"))
	return nil
}
