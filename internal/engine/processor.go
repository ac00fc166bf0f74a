// Package engine orchestrates statement processing: it reads each
// input file, infers its column layout, classifies rows against the
// rule set, routes ambiguous rows through the confirmer, and
// accumulates subtotals and statistics across the whole run.
package engine

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/joshsymonds/ledgerflow/internal/columns"
	"github.com/joshsymonds/ledgerflow/internal/common"
	"github.com/joshsymonds/ledgerflow/internal/model"
	"github.com/joshsymonds/ledgerflow/internal/rules"
	"github.com/shopspring/decimal"
)

// Stats holds the run-wide reconciliation counters.
type Stats struct {
	TotalCredit decimal.Decimal
	TotalDebit  decimal.Decimal
	Tagged      int
	Matched     int
	Unmatched   int
	Files       int
	Lines       int
}

// Config wires a Processor's collaborators and run options.
type Config struct {
	Rules       *rules.Set // nil disables classification entirely
	Confirmer   Confirmer  // consulted only in interactive mode
	Output      io.Writer
	SortByDate  bool
	Interactive bool
}

// Processor is the statement processor for one run. It owns all
// mutable run state (aggregations, buffers, counters), so separate runs
// never share anything. Not safe for concurrent use: files are
// processed strictly one after another.
type Processor struct {
	out         io.Writer
	rules       *rules.Set
	confirmer   Confirmer
	agg         *Aggregator
	accounts    []string
	aggDescs    []string
	buffered    []model.Entry
	stats       Stats
	sortByDate  bool
	interactive bool

	// per-file state
	filename   string
	cols       columns.Columns
	fileCredit decimal.Decimal
	fileDebit  decimal.Decimal
	line       int
}

// New creates a processor for a single run.
func New(cfg Config) *Processor {
	p := &Processor{
		rules:       cfg.Rules,
		confirmer:   cfg.Confirmer,
		out:         cfg.Output,
		sortByDate:  cfg.SortByDate,
		interactive: cfg.Interactive,
		agg:         NewAggregator(cfg.Rules),
		stats: Stats{
			TotalCredit: decimal.Zero,
			TotalDebit:  decimal.Zero,
		},
	}
	if p.out == nil {
		p.out = os.Stdout
	}
	if cfg.Rules != nil {
		p.accounts = cfg.Rules.Accounts()
		p.aggDescs = cfg.Rules.AggregateDescriptions()
	}
	return p
}

// Preamble writes the standard output header.
func (p *Processor) Preamble() error {
	if _, err := fmt.Fprintln(p.out, "Date, Amount, Account, Description"); err != nil {
		return fmt.Errorf("failed to write output header: %w", err)
	}
	return nil
}

// ProcessFile processes one statement file. Column identification
// failures and malformed amounts are file-scoped: the error describes
// the file, and the caller decides whether to continue the run.
func (p *Processor) ProcessFile(ctx context.Context, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return common.NewUserError("failed to open input file", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("failed to close input file", "file", filename, "error", closeErr)
		}
	}()

	return p.ProcessReader(ctx, filename, f)
}

// ProcessReader processes one statement from any reader. The first
// line determines the column layout: recognizable header titles win,
// otherwise content-shape heuristics run and the line is reprocessed as
// data.
func (p *Processor) ProcessReader(ctx context.Context, name string, r io.Reader) error {
	p.filename = name
	p.line = 0
	p.fileCredit = decimal.Zero
	p.fileDebit = decimal.Zero

	br := bufio.NewReader(r)
	first, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read first line of %s: %w", name, err)
	}
	raw := strings.Split(strings.TrimRight(first, "\r\n"), ",")

	cols, ok := columns.FromHeader(raw)
	rewind := false
	if !ok {
		cols, err = columns.FromSample(raw)
		if err != nil {
			return fmt.Errorf("column analysis failed for %s: %w", name, err)
		}
		if cols.Description < 0 {
			slog.Warn("unable to identify description column", "file", name)
		}
		// No header: the sampled line is data and must be kept.
		rewind = true
	}
	p.cols = cols

	defer p.fileStats()

	var data io.Reader = br
	if rewind {
		data = io.MultiReader(strings.NewReader(first), br)
	}

	reader := csv.NewReader(data)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return fmt.Errorf("failed to parse %s: %w", name, readErr)
		}

		p.line++
		p.stats.Lines++
		if len(record) < 3 || strings.HasPrefix(record[0], "#") {
			continue
		}
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}

		if rowErr := p.processRow(ctx, record); rowErr != nil {
			return rowErr
		}
	}

	p.stats.Files++
	return nil
}

// processRow runs one row through the classification pipeline and
// either merges it into a subtotal bucket, buffers it for date
// sorting, or streams it to output.
func (p *Processor) processRow(ctx context.Context, record []string) error {
	// Rows narrower than the inferred layout carry no usable data.
	if p.cols.Date >= len(record) || p.cols.Amount >= len(record) {
		return nil
	}

	amount, err := decimal.NewFromString(record[p.cols.Amount])
	if err != nil {
		return fmt.Errorf("%w: %q at %s:%d",
			common.ErrMalformedAmount, record[p.cols.Amount], p.filename, p.line)
	}
	if amount.IsPositive() {
		p.fileCredit = p.fileCredit.Add(amount)
	} else {
		p.fileDebit = p.fileDebit.Add(amount)
	}

	date := record[p.cols.Date]
	desc := ""
	if p.cols.Description >= 0 && p.cols.Description < len(record) {
		desc = record[p.cols.Description]
	}
	entry := model.NewEntry(date, amount, "", desc)

	// Rows that arrive with an account are taken verbatim and never
	// run through the rules.
	tagged := false
	if p.cols.Account >= 0 && p.cols.Account < len(record) && record[p.cols.Account] != "" {
		tagged = true
		entry.Account = record[p.cols.Account]
	}

	confirm := false
	matched := false
	if !tagged && p.rules != nil {
		if resolved, c := p.rules.Classify(date, desc, amount); resolved != nil {
			matched = true
			confirm = c
			entry.Account = resolved.Account
			entry.Description = resolved.Description
		}
	}

	if p.interactive && p.confirmer != nil && (confirm || !entry.Resolved()) {
		got, confirmErr := p.confirmer.Confirm(ctx, ConfirmRequest{
			Filename:              p.filename,
			Line:                  p.line,
			Candidate:             entry,
			Accounts:              p.accounts,
			AggregateDescriptions: p.aggDescs,
		})
		if errors.Is(confirmErr, common.ErrEntryDiscarded) {
			// Dropped rows count in no bucket and leave no output.
			return nil
		}
		if confirmErr != nil {
			return fmt.Errorf("confirmation failed at %s:%d: %w", p.filename, p.line, confirmErr)
		}
		entry.Account = got.Account
		entry.Description = got.Description
	}

	switch {
	case tagged:
		p.stats.Tagged++
	case matched:
		p.stats.Matched++
	}

	if !entry.Resolved() {
		p.stats.Unmatched++
	} else if p.agg.Merge(entry) {
		// Aggregated entries print once, at the very end of the run.
		return nil
	}

	if strings.Contains(entry.Description, ",") {
		slog.Warn("comma in description",
			"date", entry.Date,
			"description", entry.Description)
	}

	if p.sortByDate {
		p.buffered = append(p.buffered, entry)
		return nil
	}
	if _, err := fmt.Fprintln(p.out, entry.String()); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	return nil
}

// Finish flushes buffered and aggregated entries and logs the grand
// totals. Buffered entries come out ordered by date (stable, so equal
// dates keep arrival order); aggregated subtotals come out ordered by
// key with net-zero buckets suppressed.
func (p *Processor) Finish() error {
	sort.SliceStable(p.buffered, func(i, j int) bool {
		return p.buffered[i].Date < p.buffered[j].Date
	})
	for i := range p.buffered {
		if _, err := fmt.Fprintln(p.out, p.buffered[i].String()); err != nil {
			return fmt.Errorf("failed to write buffered entry: %w", err)
		}
	}

	for _, e := range p.agg.Flush() {
		if _, err := fmt.Fprintln(p.out, e.String()); err != nil {
			return fmt.Errorf("failed to write aggregated entry: %w", err)
		}
	}

	slog.Info("run totals",
		"files", p.stats.Files,
		"lines", p.stats.Lines,
		"credits", p.stats.TotalCredit.String(),
		"debits", p.stats.TotalDebit.String(),
		"net", p.stats.TotalCredit.Add(p.stats.TotalDebit).String())
	slog.Info("classification statistics",
		"tagged", p.stats.Tagged,
		"matched", p.stats.Matched,
		"unmatched", p.stats.Unmatched)

	return nil
}

// Stats returns a copy of the run counters.
func (p *Processor) Stats() Stats {
	return p.stats
}

// fileStats logs the per-file credit/debit/net sums and folds them
// into the run totals. Runs even when a file aborts mid-way, so the
// totals always reflect what was actually tallied.
func (p *Processor) fileStats() {
	slog.Info("file processed",
		"file", p.filename,
		"credits", p.fileCredit.String(),
		"debits", p.fileDebit.String(),
		"net", p.fileCredit.Add(p.fileDebit).String())

	p.stats.TotalCredit = p.stats.TotalCredit.Add(p.fileCredit)
	p.stats.TotalDebit = p.stats.TotalDebit.Add(p.fileDebit)
}
