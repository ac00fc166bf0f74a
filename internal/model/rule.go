package model

// Mode is the resolution policy a rule applies to matched transactions.
type Mode int

const (
	// ModePreserve keeps the original description. This is the default
	// for absent or unrecognized mode strings.
	ModePreserve Mode = iota
	// ModeAggregate folds the transaction into a running subtotal
	// bucket instead of emitting it individually.
	ModeAggregate
	// ModeReplace swaps the description for the rule's replacement.
	ModeReplace
	// ModeCombine prefixes the rule's replacement onto the original
	// description and flags the result for human review.
	ModeCombine
)

// ParseMode resolves a mode string from a rules table. Matching is done
// once at load time so the row loop never compares string tags.
func ParseMode(s string) Mode {
	switch s {
	case "AGGREGATE":
		return ModeAggregate
	case "REPLACE":
		return ModeReplace
	case "COMBINE":
		return ModeCombine
	default:
		return ModePreserve
	}
}

func (m Mode) String() string {
	switch m {
	case ModeAggregate:
		return "AGGREGATE"
	case ModeReplace:
		return "REPLACE"
	case ModeCombine:
		return "COMBINE"
	default:
		return "PRESERVE"
	}
}

// Rule is one ordered classification directive: a wildcard pattern that
// maps matching transactions to an account, a replacement description,
// and a resolution mode. Rules with a DateFilter only apply to rows
// bearing exactly that date.
type Rule struct {
	DateFilter  string // empty means any date
	Pattern     string // shell-style wildcard, not a regexp
	Account     string
	Description string
	Mode        Mode
}
