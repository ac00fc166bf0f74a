// Package rules loads and evaluates the ordered classification rules
// that map transaction descriptions to accounts. Patterns are shell
// wildcards, not regular expressions; they are compiled once at load
// time so the per-row loop never re-parses pattern text.
package rules

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/joshsymonds/ledgerflow/internal/model"
	"github.com/shopspring/decimal"
)

// compiledRule pairs a rule with its precompiled pattern matcher.
type compiledRule struct {
	re *regexp.Regexp
	model.Rule
}

// Set is an ordered, read-only collection of classification rules.
// Rule order is load-bearing: classification is first-match-wins, so
// the stored order is exactly the file order.
type Set struct {
	rules []compiledRule
}

// Load reads rules from one or more comma-separated file paths. Lines
// beginning with '#' and lines with fewer than four fields are ignored.
// A record is either pattern,account,description,mode or, with a
// leading date filter, date,pattern,account,description,mode. When a
// roster of known accounts is supplied, rules referencing unknown
// accounts produce a warning but still load.
func Load(paths string, roster []string) (*Set, error) {
	known := make(map[string]bool, len(roster))
	for _, a := range roster {
		known[a] = true
	}

	s := &Set{}
	for _, path := range strings.Split(paths, ",") {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open rules file: %w", err)
		}
		err = s.read(f, path, known)
		closeErr := f.Close()
		if err != nil {
			return nil, err
		}
		if closeErr != nil {
			return nil, fmt.Errorf("failed to close rules file: %w", closeErr)
		}
	}

	return s, nil
}

// read appends the rules found in r to the set, preserving file order.
func (s *Set) read(r io.Reader, path string, known map[string]bool) error {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read rules file %s: %w", path, err)
		}

		if len(record) < 4 || strings.HasPrefix(record[0], "#") {
			continue
		}

		var rule model.Rule
		if len(record) == 4 {
			rule = model.Rule{
				Pattern:     record[0],
				Account:     record[1],
				Description: record[2],
				Mode:        model.ParseMode(record[3]),
			}
		} else {
			rule = model.Rule{
				DateFilter:  record[0],
				Pattern:     record[1],
				Account:     record[2],
				Description: record[3],
				Mode:        model.ParseMode(record[4]),
			}
		}

		if len(known) > 0 && !known[rule.Account] {
			slog.Warn("unknown account in rule",
				"account", rule.Account,
				"pattern", rule.Pattern,
				"file", path)
		}

		re, err := compileWildcard(rule.Pattern)
		if err != nil {
			return fmt.Errorf("bad pattern %q in %s: %w", rule.Pattern, path, err)
		}
		s.rules = append(s.rules, compiledRule{Rule: rule, re: re})
	}
}

// Classify finds the first rule matching the row and applies its mode.
// A rule matches when its pattern matches the raw description, equals
// the two-decimal amount string, or matches "<amount>@<description>".
// The returned bool asks the caller to seek human confirmation; only
// COMBINE sets it, since COMBINE rules are typically broad catch-alls.
// No match returns (nil, false).
func (s *Set) Classify(date, desc string, amount decimal.Decimal) (*model.Entry, bool) {
	amountStr := amount.StringFixed(2)
	combined := amountStr + "@" + desc

	for _, r := range s.rules {
		if r.DateFilter != "" && r.DateFilter != date {
			continue
		}
		if !r.re.MatchString(desc) && amountStr != r.Pattern && !r.re.MatchString(combined) {
			continue
		}

		e := model.Entry{Account: r.Account}
		switch r.Mode {
		case model.ModeAggregate, model.ModeReplace:
			e.Description = r.Description
			return &e, false
		case model.ModeCombine:
			e.Description = r.Description + ": " + desc
			return &e, true
		default: // preserve
			e.Description = desc
			return &e, false
		}
	}

	return nil, false
}

// ValidFor reports whether a description belongs to an account's
// aggregation: some AGGREGATE rule names the account with an empty
// replacement description or one equal to desc. Drives the
// confirmation UI's standard-description menu.
func (s *Set) ValidFor(desc, account string) bool {
	if account == "" {
		return false
	}

	for _, r := range s.rules {
		if r.Mode != model.ModeAggregate {
			continue
		}
		if r.Account != account {
			continue
		}
		if desc != "" && desc != r.Description {
			continue
		}
		return true
	}

	return false
}

// Accounts returns the sorted set of accounts named by any rule.
func (s *Set) Accounts() []string {
	seen := make(map[string]bool)
	for _, r := range s.rules {
		seen[r.Account] = true
	}
	return sortedKeys(seen)
}

// AggregateDescriptions returns the sorted set of replacement
// descriptions used by AGGREGATE rules.
func (s *Set) AggregateDescriptions() []string {
	seen := make(map[string]bool)
	for _, r := range s.rules {
		if r.Mode == model.ModeAggregate {
			seen[r.Description] = true
		}
	}
	return sortedKeys(seen)
}

// Rules returns the rules in stored order.
func (s *Set) Rules() []model.Rule {
	out := make([]model.Rule, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.Rule
	}
	return out
}

// Len returns the number of loaded rules.
func (s *Set) Len() int {
	return len(s.rules)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// compileWildcard translates a shell-style wildcard into an anchored
// regexp. '*' matches any run of characters, '?' any single character,
// and '[...]' a character class ('!' negates). Everything else is
// literal.
func compileWildcard(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString(`(?s)^`)

	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*':
			b.WriteString(`.*`)
		case '?':
			b.WriteString(`.`)
		case '[':
			j := i + 1
			if j < len(pattern) && (pattern[j] == '!' || pattern[j] == '^') {
				j++
			}
			if j < len(pattern) && pattern[j] == ']' {
				j++
			}
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j >= len(pattern) {
				// Unterminated class matches a literal bracket.
				b.WriteString(`\[`)
				continue
			}
			class := pattern[i+1 : j]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString("[" + class + "]")
			i = j
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}

	b.WriteString(`$`)
	return regexp.Compile(b.String())
}
