// Package model defines the core domain types shared across the application.
package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Entry represents a single ledger line: one dated, categorized amount.
// Dates are kept in the source's native string form and compared
// lexically; amounts are exact decimals so repeated aggregation never
// drifts by fractions of a cent.
type Entry struct {
	Date        string
	Account     string // empty means unresolved
	Description string
	Amount      decimal.Decimal
}

// NewEntry creates an entry from its four fields.
func NewEntry(date string, amount decimal.Decimal, account, description string) Entry {
	return Entry{
		Date:        date,
		Amount:      amount,
		Account:     account,
		Description: description,
	}
}

// Resolved reports whether the entry has been assigned an account.
func (e *Entry) Resolved() bool {
	return e.Account != ""
}

// AggregationKey identifies the subtotal bucket this entry belongs to:
// the account name, plus "-description" when a description is present.
func (e *Entry) AggregationKey() string {
	if e.Description != "" {
		return e.Account + "-" + e.Description
	}
	return e.Account
}

// String renders the canonical output form:
// date, amount, account, "description". Amounts always print with two
// decimals so emitted files round-trip deterministically.
func (e *Entry) String() string {
	var b strings.Builder
	b.WriteString(e.Date)
	b.WriteString(", ")
	b.WriteString(e.Amount.StringFixed(2))
	b.WriteString(", ")
	b.WriteString(e.Account)
	b.WriteString(", ")
	b.WriteString(`"`)
	b.WriteString(e.Description)
	b.WriteString(`"`)
	return b.String()
}
