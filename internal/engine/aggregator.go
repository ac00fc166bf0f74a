package engine

import (
	"sort"

	"github.com/joshsymonds/ledgerflow/internal/model"
	"github.com/joshsymonds/ledgerflow/internal/rules"
	"github.com/shopspring/decimal"
)

// sentinelDate sorts lexically after any real date, so the first real
// entry merged into a pre-seeded bucket always supplies the date.
const sentinelDate = "99/99/9999"

// Aggregator accumulates running subtotals keyed by account and
// description. One aggregator spans an entire multi-file run; it grows
// monotonically and is flushed exactly once at the end.
type Aggregator struct {
	entries map[string]*model.Entry
}

// NewAggregator creates an aggregator, pre-seeded from the rule set
// when one is supplied: a zero-amount bucket for every AGGREGATE rule's
// account-description pair, and a bare-account bucket for every other
// rule account. Pre-seeding makes key ordering deterministic and lets
// Flush drop untouched buckets uniformly.
func NewAggregator(rs *rules.Set) *Aggregator {
	a := &Aggregator{entries: make(map[string]*model.Entry)}
	if rs == nil {
		return a
	}

	for _, r := range rs.Rules() {
		if r.Mode == model.ModeAggregate {
			e := model.NewEntry(sentinelDate, decimal.Zero, r.Account, r.Description)
			a.entries[e.AggregationKey()] = &e
		} else if _, ok := a.entries[r.Account]; !ok {
			e := model.NewEntry(sentinelDate, decimal.Zero, r.Account, "")
			a.entries[r.Account] = &e
		}
	}

	return a
}

// Merge folds the entry into its bucket when one exists, summing the
// amount and keeping the lexically smaller date. Returns false when no
// bucket matches the entry's key, in which case the caller emits the
// entry individually. The stored account and description are never
// re-read from the incoming entry.
func (a *Aggregator) Merge(e model.Entry) bool {
	stored, ok := a.entries[e.AggregationKey()]
	if !ok {
		return false
	}

	stored.Amount = stored.Amount.Add(e.Amount)
	if e.Date < stored.Date {
		stored.Date = e.Date
	}
	return true
}

// Flush returns the accumulated entries sorted by key, suppressing
// buckets whose net amount is zero (including untouched pre-seeds).
func (a *Aggregator) Flush() []model.Entry {
	keys := make([]string, 0, len(a.entries))
	for k := range a.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]model.Entry, 0, len(keys))
	for _, k := range keys {
		if e := a.entries[k]; !e.Amount.IsZero() {
			out = append(out, *e)
		}
	}
	return out
}
