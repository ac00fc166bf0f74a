package main

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joshsymonds/ledgerflow/internal/cli"
	"github.com/joshsymonds/ledgerflow/internal/common"
	"github.com/joshsymonds/ledgerflow/internal/engine"
	"github.com/joshsymonds/ledgerflow/internal/rules"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process [files...]",
		Short: "Categorize statement files into a normalized ledger",
		Long: `Process reads one or more CSV statement exports, infers each file's
column layout, classifies every transaction against the rule set, and
writes the normalized ledger to stdout (or a file with --output).

Rows that match AGGREGATE rules are summed into subtotal buckets and
emitted once at the end of the run. With --interactive, rows that match
COMBINE rules or no rule at all are presented for review before they
are counted or emitted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runProcess,
	}

	cmd.Flags().StringP("rules", "r", "", "comma-separated rule files")
	cmd.Flags().StringP("accounts", "a", "", "file listing known account names, one per line")
	cmd.Flags().StringP("output", "o", "", "write the ledger to this file instead of stdout")
	cmd.Flags().BoolP("sort", "s", false, "sort emitted entries by date")
	cmd.Flags().BoolP("interactive", "i", false, "review ambiguous entries at the terminal")

	_ = viper.BindPFlag("process.rules", cmd.Flags().Lookup("rules"))
	_ = viper.BindPFlag("process.accounts", cmd.Flags().Lookup("accounts"))
	_ = viper.BindPFlag("process.output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("process.sort", cmd.Flags().Lookup("sort"))
	_ = viper.BindPFlag("process.interactive", cmd.Flags().Lookup("interactive"))

	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	interrupt := cli.NewInterruptHandler(os.Stderr)
	ctx := interrupt.HandleInterrupts(cmd.Context())

	roster, err := readAccounts(common.ExpandPath(viper.GetString("process.accounts")))
	if err != nil {
		return err
	}

	var ruleSet *rules.Set
	if paths := viper.GetString("process.rules"); paths != "" {
		ruleSet, err = rules.Load(common.ExpandPath(paths), roster)
		if err != nil {
			return fmt.Errorf("failed to load rules: %w", err)
		}
		slog.Info("rules loaded", "count", ruleSet.Len())
	} else {
		slog.Warn("no rules supplied, every row will pass through unmatched")
	}

	out := os.Stdout
	if path := common.ExpandPath(viper.GetString("process.output")); path != "" {
		f, createErr := os.Create(path)
		if createErr != nil {
			return fmt.Errorf("failed to create output file: %w", createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil {
				slog.Error("failed to close output file", "file", path, "error", closeErr)
			}
		}()
		out = f
	}

	interactive := viper.GetBool("process.interactive")

	var confirmer engine.Confirmer
	if interactive {
		// *rules.Set is the validator only when rules exist; a typed
		// nil would defeat the nil checks downstream.
		var validator cli.DescriptionValidator
		if ruleSet != nil {
			validator = ruleSet
		}
		confirmer = cli.NewConfirmer(os.Stdin, os.Stderr, validator)
	}

	proc := engine.New(engine.Config{
		Rules:       ruleSet,
		Confirmer:   confirmer,
		Output:      out,
		SortByDate:  viper.GetBool("process.sort"),
		Interactive: interactive,
	})

	if err := proc.Preamble(); err != nil {
		return err
	}

	// A progress bar only makes sense when nobody is being prompted.
	var bar *progressbar.ProgressBar
	if !interactive && len(args) > 1 {
		bar = progressbar.NewOptions(len(args),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Processing statements"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	for _, filename := range args {
		err := proc.ProcessFile(ctx, filename)
		if bar != nil {
			_ = bar.Add(1)
		}
		if err == nil {
			continue
		}

		// Unreadable files and interrupts end the run; files the
		// analyzer or parser rejects are skipped so the rest of the
		// batch still processes.
		var uerr *common.UserError
		if errors.As(err, &uerr) || ctx.Err() != nil {
			return err
		}
		if errors.Is(err, common.ErrColumnIdentification) || errors.Is(err, common.ErrMalformedAmount) {
			slog.Error("skipping file", "file", filename, "error", err)
			fmt.Fprintln(os.Stderr, cli.FormatWarning(fmt.Sprintf("Skipped %s: %v", filename, err)))
			continue
		}
		return err
	}

	if err := proc.Finish(); err != nil {
		return err
	}

	stats := proc.Stats()
	fmt.Fprintln(os.Stderr, cli.FormatSuccess(fmt.Sprintf(
		"Processed %d file(s), %d line(s): %d tagged, %d matched, %d unmatched",
		stats.Files, stats.Lines, stats.Tagged, stats.Matched, stats.Unmatched)))

	return nil
}

// readAccounts loads the account roster, one name per line. Blank lines
// and '#' comments are skipped. An empty path yields a nil roster,
// which disables unknown-account warnings.
func readAccounts(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open accounts file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("failed to close accounts file", "file", path, "error", closeErr)
		}
	}()

	var roster []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		roster = append(roster, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read accounts file: %w", err)
	}

	return roster, nil
}
