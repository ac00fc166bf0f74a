// Package columns figures out which columns of a statement CSV hold the
// date, amount, description, and (optionally) account fields. It tries
// recognizable header titles first and falls back to content-shape
// heuristics for files that start directly with data.
package columns

import (
	"strings"
	"unicode"

	"github.com/joshsymonds/ledgerflow/internal/common"
)

// Columns holds the inferred column indices. An index of -1 means the
// field was not found; Date and Amount are always valid on success.
type Columns struct {
	Date        int
	Amount      int
	Description int
	Account     int
}

// none is the unassigned index.
const none = -1

// findCol returns the first column whose text contains the given
// substring and is not already claimed by another field.
func findCol(substr string, cells []string, claimed ...int) int {
	for i, cell := range cells {
		if !strings.Contains(cell, substr) {
			continue
		}
		taken := false
		for _, c := range claimed {
			if i == c {
				taken = true
				break
			}
		}
		if !taken {
			return i
		}
	}
	return none
}

// FromHeader inspects a header line for recognizable column titles.
// The lookup order matters: a case-sensitive title is preferred over
// its lowercase fallback, and each field must land on a distinct
// column. Returns false when date, amount, or description is missing,
// in which case the caller should try FromSample.
func FromHeader(cells []string) (Columns, bool) {
	c := Columns{Date: none, Amount: none, Description: none, Account: none}

	c.Date = findCol("Post Date", cells)
	if c.Date == none {
		c.Date = findCol("Date", cells)
	}
	if c.Date == none {
		c.Date = findCol("date", cells)
	}

	c.Amount = findCol("Amount", cells, c.Date)
	if c.Amount == none {
		c.Amount = findCol("amount", cells, c.Date)
	}

	c.Description = findCol("Descr", cells, c.Date, c.Amount)
	if c.Description == none {
		c.Description = findCol("descr", cells, c.Date, c.Amount)
	}

	c.Account = findCol("Account", cells, c.Date, c.Amount, c.Description)
	if c.Account == none {
		c.Account = findCol("account", cells, c.Date, c.Amount, c.Description)
	}

	ok := c.Date != none && c.Amount != none && c.Description != none
	return c, ok
}

// FromSample infers columns from the shape of a data line, for files
// with no header. Date and amount are required; a missing description
// is tolerated (index -1) and left for the caller to report. When this
// succeeds the sampled line is real data and must be reprocessed.
func FromSample(cells []string) (Columns, error) {
	c := Columns{Date: none, Amount: none, Description: none, Account: none}

	c.Date = findDate(cells)
	if c.Date == none {
		return c, common.ErrNoDateColumn
	}

	c.Amount = findAmount(cells, c.Date)
	if c.Amount == none {
		return c, common.ErrNoAmountColumn
	}

	c.Description = findDescription(cells, c.Date, c.Amount)

	return c, nil
}

// findDate locates the first column that plausibly holds a date:
// nothing but digits, slashes, and whitespace, with 1-2 slashes and
// 2-8 digits. Counting character classes is cruder than a regexp but
// has held up across a lot of real bank exports.
func findDate(cells []string) int {
	for i, cell := range cells {
		digits, slashes, bogus := 0, 0, 0
		for _, r := range cell {
			switch {
			case unicode.IsDigit(r):
				digits++
			case r == '/':
				slashes++
			case !unicode.IsSpace(r):
				bogus++
			}
		}
		if bogus > 0 || slashes < 1 || slashes > 2 {
			continue
		}
		if digits < 2 || digits > 8 {
			continue
		}
		return i
	}
	return none
}

// findAmount locates the first non-date column that plausibly holds a
// monetary amount: at least one digit, fewer than three of '-', '$',
// '.', and no other non-whitespace characters.
func findAmount(cells []string, dateCol int) int {
	for i, cell := range cells {
		if i == dateCol {
			continue
		}
		digits, signs, bogus := 0, 0, 0
		for _, r := range cell {
			switch {
			case unicode.IsDigit(r):
				digits++
			case r == '-' || r == '$' || r == '.':
				signs++
			case !unicode.IsSpace(r):
				bogus++
			}
		}
		if digits > 0 && signs < 3 && bogus == 0 {
			return i
		}
	}
	return none
}

// findDescription locates a quoted column that isn't the date or
// amount. Columns containing "Reference" are a known false positive
// (quoted transaction reference numbers) and are skipped.
func findDescription(cells []string, dateCol, amountCol int) int {
	for i, cell := range cells {
		if i == dateCol || i == amountCol {
			continue
		}
		if strings.HasPrefix(cell, `"`) || strings.HasPrefix(cell, "'") {
			if strings.Contains(cell, "Reference") {
				continue
			}
			return i
		}
	}
	return none
}
