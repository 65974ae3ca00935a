package schema

import (
	"fmt"
	"strings"

	"github.com/syssam/sqldao/dialect"
)

// Strategy is the mechanism used to produce a primary-key value.
type Strategy uint8

// Generation strategies.
const (
	StrategyNone Strategy = iota
	// StrategyAuto lets the dialect pick identity, sequence or table.
	StrategyAuto
	// StrategyIdentity assigns the value in the database on insert.
	StrategyIdentity
	// StrategySequence reads the next value of a database sequence.
	StrategySequence
	// StrategyTable reads the next value of a counter table.
	StrategyTable
)

var strategyNames = [...]string{
	StrategyNone:     "none",
	StrategyAuto:     "auto",
	StrategyIdentity: "identity",
	StrategySequence: "sequence",
	StrategyTable:    "table",
}

// String implements the fmt.Stringer interface.
func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return fmt.Sprintf("Strategy(%d)", s)
}

// ConstName returns the constant name of the strategy, used by code generators.
func (s Strategy) ConstName() string {
	switch s {
	case StrategyAuto:
		return "StrategyAuto"
	case StrategyIdentity:
		return "StrategyIdentity"
	case StrategySequence:
		return "StrategySequence"
	case StrategyTable:
		return "StrategyTable"
	default:
		return "StrategyNone"
	}
}

// PreInsert reports whether the key value is obtained from a key generator
// before the insert statement is built.
func (s Strategy) PreInsert() bool {
	return s == StrategySequence || s == StrategyTable
}

// ParseStrategy parses a strategy name. An empty name means auto.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return StrategyAuto, nil
	case "identity":
		return StrategyIdentity, nil
	case "sequence":
		return StrategySequence, nil
	case "table":
		return StrategyTable, nil
	case "none":
		return StrategyNone, nil
	default:
		return StrategyNone, fmt.Errorf("unknown generation strategy %q", s)
	}
}

// ResolveStrategy validates the declared strategy against the dialect
// capabilities and returns the strategy to use. Auto picks identity, then
// sequence, then table. Table is always accepted.
func ResolveStrategy(declared Strategy, caps dialect.Capabilities) (Strategy, error) {
	switch declared {
	case StrategyNone, StrategyTable:
		return declared, nil
	case StrategyAuto:
		switch {
		case caps != nil && caps.SupportsIdentity():
			return StrategyIdentity, nil
		case caps != nil && caps.SupportsSequence():
			return StrategySequence, nil
		default:
			return StrategyTable, nil
		}
	case StrategyIdentity:
		if caps == nil || !caps.SupportsIdentity() {
			return StrategyNone, fmt.Errorf("dialect does not support identity columns")
		}
		return declared, nil
	case StrategySequence:
		if caps == nil || !caps.SupportsSequence() {
			return StrategyNone, fmt.Errorf("dialect does not support sequences")
		}
		return declared, nil
	default:
		return StrategyNone, fmt.Errorf("unknown generation strategy %d", declared)
	}
}

// DefaultGeneratorName returns the generator name used when none is declared.
func DefaultGeneratorName(table, column string) string {
	return table + "_" + column
}
