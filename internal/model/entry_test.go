package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEntryString(t *testing.T) {
	e := NewEntry("03/14/2023", decimal.RequireFromString("-12.5"), "Dining", "COFFEE SHOP")
	assert.Equal(t, `03/14/2023, -12.50, Dining, "COFFEE SHOP"`, e.String())

	unresolved := NewEntry("03/14/2023", decimal.RequireFromString("100"), "", "MYSTERY")
	assert.Equal(t, `03/14/2023, 100.00, , "MYSTERY"`, unresolved.String())
}

func TestAggregationKey(t *testing.T) {
	e := Entry{Account: "Transportation", Description: "gas"}
	assert.Equal(t, "Transportation-gas", e.AggregationKey())

	e.Description = ""
	assert.Equal(t, "Transportation", e.AggregationKey())
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeAggregate, ParseMode("AGGREGATE"))
	assert.Equal(t, ModeReplace, ParseMode("REPLACE"))
	assert.Equal(t, ModeCombine, ParseMode("COMBINE"))
	assert.Equal(t, ModePreserve, ParseMode("PRESERVE"))
	assert.Equal(t, ModePreserve, ParseMode(""))
	assert.Equal(t, ModePreserve, ParseMode("aggregate"))
}
