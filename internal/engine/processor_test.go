package engine

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/joshsymonds/ledgerflow/internal/common"
	"github.com/joshsymonds/ledgerflow/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func processString(t *testing.T, p *Processor, name, input string) error {
	t.Helper()
	return p.ProcessReader(context.Background(), name, strings.NewReader(input))
}

func outputLines(buf *bytes.Buffer) []string {
	out := strings.TrimRight(buf.String(), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func TestProcessorPreserveRule(t *testing.T) {
	rs := loadRules(t, `"* MARKET *",Groceries,,PRESERVE
`)
	var buf bytes.Buffer
	p := New(Config{Rules: rs, Output: &buf})

	input := `Date, Amount, Description
01/05/2023, -12.00, "TRADER JOES MARKET #12"
`
	require.NoError(t, processString(t, p, "test.csv", input))
	require.NoError(t, p.Finish())

	lines := outputLines(&buf)
	require.Len(t, lines, 1)
	assert.Equal(t, `01/05/2023, -12.00, Groceries, "TRADER JOES MARKET #12"`, lines[0])

	stats := p.Stats()
	assert.Equal(t, 1, stats.Matched)
	assert.Equal(t, 0, stats.Tagged)
	assert.Equal(t, 0, stats.Unmatched)
}

func TestProcessorAggregateRule(t *testing.T) {
	rs := loadRules(t, `SHELL OIL*,Transportation,gas,AGGREGATE
`)
	var buf bytes.Buffer
	p := New(Config{Rules: rs, Output: &buf})

	input := `Date, Amount, Description
01/05/2023, -40.00, "SHELL OIL 5734"
01/03/2023, -35.50, "SHELL OIL 5734"
`
	require.NoError(t, processString(t, p, "test.csv", input))
	require.NoError(t, p.Finish())

	// One subtotal line for both rows, earliest date, summed amount.
	lines := outputLines(&buf)
	require.Len(t, lines, 1)
	assert.Equal(t, `01/03/2023, -75.50, Transportation, "gas"`, lines[0])
	assert.Equal(t, 2, p.Stats().Matched)
}

func TestProcessorAggregationSpansFiles(t *testing.T) {
	rs := loadRules(t, `SHELL OIL*,Transportation,gas,AGGREGATE
`)
	var buf bytes.Buffer
	p := New(Config{Rules: rs, Output: &buf})

	require.NoError(t, processString(t, p, "jan.csv", `Date, Amount, Description
01/05/2023, -40.00, "SHELL OIL 5734"
`))
	require.NoError(t, processString(t, p, "feb.csv", `Date, Amount, Description
02/05/2023, -35.50, "SHELL OIL 9911"
`))
	require.NoError(t, p.Finish())

	lines := outputLines(&buf)
	require.Len(t, lines, 1)
	assert.Equal(t, `01/05/2023, -75.50, Transportation, "gas"`, lines[0])
	assert.Equal(t, 2, p.Stats().Files)
}

func TestProcessorPreTaggedRow(t *testing.T) {
	// The rule would match, but pre-tagged rows bypass the rules.
	rs := loadRules(t, `"* MARKET *",Groceries,,PRESERVE
`)
	var buf bytes.Buffer
	p := New(Config{Rules: rs, Output: &buf})

	input := `Date, Amount, Account, Description
01/05/2023, -12.00, Checking, "TRADER JOES MARKET #12"
`
	require.NoError(t, processString(t, p, "test.csv", input))
	require.NoError(t, p.Finish())

	lines := outputLines(&buf)
	require.Len(t, lines, 1)
	assert.Equal(t, `01/05/2023, -12.00, Checking, "TRADER JOES MARKET #12"`, lines[0])

	stats := p.Stats()
	assert.Equal(t, 1, stats.Tagged)
	assert.Equal(t, 0, stats.Matched)
	assert.Equal(t, 0, stats.Unmatched)
}

func TestProcessorUnmatchedRow(t *testing.T) {
	rs := loadRules(t, `SHELL OIL*,Transportation,gas,AGGREGATE
`)
	var buf bytes.Buffer
	p := New(Config{Rules: rs, Output: &buf})

	input := `Date, Amount, Description
01/05/2023, -5.00, "MYSTERY VENDOR"
`
	require.NoError(t, processString(t, p, "test.csv", input))
	require.NoError(t, p.Finish())

	lines := outputLines(&buf)
	require.Len(t, lines, 1)
	assert.Equal(t, `01/05/2023, -5.00, , "MYSTERY VENDOR"`, lines[0])
	assert.Equal(t, 1, p.Stats().Unmatched)
}

func TestProcessorDiscardedRow(t *testing.T) {
	rs := loadRules(t, `SHELL OIL*,Transportation,gas,AGGREGATE
`)
	confirmer := NewMockConfirmer()
	confirmer.SetDiscard("MYSTERY VENDOR")

	var buf bytes.Buffer
	p := New(Config{Rules: rs, Confirmer: confirmer, Output: &buf, Interactive: true})

	input := `Date, Amount, Description
01/05/2023, -5.00, "MYSTERY VENDOR"
`
	require.NoError(t, processString(t, p, "test.csv", input))
	require.NoError(t, p.Finish())

	// Discarded rows leave no output and count in no bucket.
	assert.Empty(t, outputLines(&buf))
	stats := p.Stats()
	assert.Equal(t, 0, stats.Matched)
	assert.Equal(t, 0, stats.Unmatched)
	assert.Equal(t, 1, confirmer.CallCount())
}

func TestProcessorCombineRequestsConfirmation(t *testing.T) {
	rs := loadRules(t, `AMAZON*,Shopping,amazon,COMBINE
`)
	confirmer := NewMockConfirmer()

	var buf bytes.Buffer
	p := New(Config{Rules: rs, Confirmer: confirmer, Output: &buf, Interactive: true})

	input := `Date, Amount, Description
01/05/2023, -19.99, "AMAZON MKTPL*2AB"
`
	require.NoError(t, processString(t, p, "test.csv", input))
	require.NoError(t, p.Finish())

	require.Equal(t, 1, confirmer.CallCount())
	call := confirmer.Calls()[0]
	assert.Equal(t, "test.csv", call.Filename)
	assert.Equal(t, 1, call.Line)
	assert.Equal(t, "Shopping", call.Candidate.Account)
	assert.Equal(t, "amazon: AMAZON MKTPL*2AB", call.Candidate.Description)
	assert.Equal(t, 1, p.Stats().Matched)
}

func TestProcessorConfirmerCorrection(t *testing.T) {
	rs := loadRules(t, `SHELL OIL*,Transportation,gas,AGGREGATE
`)
	confirmer := NewMockConfirmer()
	confirmer.SetResponse("MYSTERY VENDOR", model.Entry{
		Account:     "Transportation",
		Description: "gas",
	})

	var buf bytes.Buffer
	p := New(Config{Rules: rs, Confirmer: confirmer, Output: &buf, Interactive: true})

	input := `Date, Amount, Description
01/05/2023, -30.00, "MYSTERY VENDOR"
01/04/2023, -40.00, "SHELL OIL 5734"
`
	require.NoError(t, processString(t, p, "test.csv", input))
	require.NoError(t, p.Finish())

	// The corrected entry lands in the same subtotal as the rule match.
	lines := outputLines(&buf)
	require.Len(t, lines, 1)
	assert.Equal(t, `01/04/2023, -70.00, Transportation, "gas"`, lines[0])
}

func TestProcessorNonInteractiveNeverConfirms(t *testing.T) {
	rs := loadRules(t, `AMAZON*,Shopping,amazon,COMBINE
`)
	confirmer := NewMockConfirmer()

	var buf bytes.Buffer
	p := New(Config{Rules: rs, Confirmer: confirmer, Output: &buf})

	input := `Date, Amount, Description
01/05/2023, -19.99, "AMAZON MKTPL*2AB"
`
	require.NoError(t, processString(t, p, "test.csv", input))
	assert.Equal(t, 0, confirmer.CallCount())
}

func TestProcessorHeaderlessFile(t *testing.T) {
	rs := loadRules(t, `COFFEE*,Dining,,PRESERVE
`)
	var buf bytes.Buffer
	p := New(Config{Rules: rs, Output: &buf})

	// No header: shape heuristics assign the columns and the first
	// line is reprocessed as data, not skipped.
	input := `03/14/2023,-12.50,"COFFEE SHOP"
03/15/2023,-8.00,"COFFEE SHOP"
`
	require.NoError(t, processString(t, p, "test.csv", input))
	require.NoError(t, p.Finish())

	lines := outputLines(&buf)
	require.Len(t, lines, 2)
	assert.Equal(t, `03/14/2023, -12.50, Dining, "COFFEE SHOP"`, lines[0])
	assert.Equal(t, 2, p.Stats().Matched)
}

func TestProcessorColumnIdentificationFailure(t *testing.T) {
	var buf bytes.Buffer
	p := New(Config{Output: &buf})

	// Neither recognizable titles nor date/amount shapes.
	input := `TxnDate,TxnAmt,Memo
`
	err := processString(t, p, "test.csv", input)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrColumnIdentification)
	assert.Empty(t, outputLines(&buf))
}

func TestProcessorMalformedAmount(t *testing.T) {
	var buf bytes.Buffer
	p := New(Config{Output: &buf})

	input := `Date, Amount, Description
01/05/2023, -12.00, "FINE"
01/06/2023, twelve, "BROKEN"
`
	err := processString(t, p, "test.csv", input)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMalformedAmount)

	// Rows before the bad one were already streamed.
	lines := outputLines(&buf)
	require.Len(t, lines, 1)
	assert.Equal(t, `01/05/2023, -12.00, , "FINE"`, lines[0])
}

func TestProcessorSortByDate(t *testing.T) {
	var buf bytes.Buffer
	p := New(Config{Output: &buf, SortByDate: true})

	input := `Date, Amount, Description
01/07/2023, -3.00, "THIRD"
01/05/2023, -1.00, "FIRST"
01/06/2023, -2.00, "SECOND"
`
	require.NoError(t, processString(t, p, "test.csv", input))

	// Nothing emits until the end of the run.
	assert.Empty(t, outputLines(&buf))

	require.NoError(t, p.Finish())
	lines := outputLines(&buf)
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "FIRST")
	assert.Contains(t, lines[1], "SECOND")
	assert.Contains(t, lines[2], "THIRD")
}

func TestProcessorSkipsCommentsAndShortRows(t *testing.T) {
	var buf bytes.Buffer
	p := New(Config{Output: &buf})

	input := `Date, Amount, Description
# reconciled through January
01/05/2023, -1.00, "KEPT"

short,row
`
	require.NoError(t, processString(t, p, "test.csv", input))
	require.NoError(t, p.Finish())

	lines := outputLines(&buf)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "KEPT")
}

func TestProcessorCreditDebitTotals(t *testing.T) {
	var buf bytes.Buffer
	p := New(Config{Output: &buf})

	input := `Date, Amount, Description
01/05/2023, 1200.00, "PAYROLL"
01/06/2023, -40.00, "GAS"
01/07/2023, -35.50, "GAS"
`
	require.NoError(t, processString(t, p, "test.csv", input))
	require.NoError(t, p.Finish())

	stats := p.Stats()
	assert.True(t, stats.TotalCredit.Equal(decimal.RequireFromString("1200.00")))
	assert.True(t, stats.TotalDebit.Equal(decimal.RequireFromString("-75.50")))
}

func TestProcessorPreamble(t *testing.T) {
	var buf bytes.Buffer
	p := New(Config{Output: &buf})
	require.NoError(t, p.Preamble())
	assert.Equal(t, "Date, Amount, Account, Description\n", buf.String())
}

func TestProcessorNoRules(t *testing.T) {
	var buf bytes.Buffer
	p := New(Config{Output: &buf})

	input := `Date, Amount, Description
01/05/2023, -5.00, "ANYTHING"
`
	require.NoError(t, processString(t, p, "test.csv", input))
	require.NoError(t, p.Finish())

	// Without rules every row is unmatched but still emitted.
	require.Len(t, outputLines(&buf), 1)
	assert.Equal(t, 1, p.Stats().Unmatched)
}
