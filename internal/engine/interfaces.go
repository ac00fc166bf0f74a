package engine

import (
	"context"

	"github.com/joshsymonds/ledgerflow/internal/model"
)

// ConfirmRequest carries everything a reviewer needs to confirm or
// correct one candidate entry: where it came from, what the rules made
// of it, and the menus of known accounts and standard aggregate
// descriptions.
type ConfirmRequest struct {
	Filename              string
	Candidate             model.Entry
	Accounts              []string
	AggregateDescriptions []string
	Line                  int
}

// Confirmer defines the contract for human review of ambiguous entries.
// Confirm blocks until the reviewer decides; it returns the (possibly
// corrected) entry, or common.ErrEntryDiscarded when the reviewer drops
// the row entirely. There is no timeout: a run waits as long as the
// human does.
type Confirmer interface {
	Confirm(ctx context.Context, req ConfirmRequest) (model.Entry, error)
}
