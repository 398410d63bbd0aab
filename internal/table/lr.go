package table

import (
	"github.com/dekarrin/caper/internal/automaton"
)

// LRParseTable is the result of building a parsing table from a grammar: the
// ACTION/GOTO functions an emitted parser's stack machine drives itself with.
type LRParseTable interface {
	// Initial returns the initial state of the parse table.
	Initial() string

	// Action gets the next action to take based on a state i and terminal a.
	Action(state, symbol string) LRAction

	// Goto maps a state and a grammar symbol to some other state.
	Goto(state, symbol string) (string, error)

	// String prints a string representation of the table. If two
	// LRParseTables produce the same String() output, they are considered
	// equal.
	String() string

	// GetDFA returns the DFA simulated by the table, with state values
	// erased (the emitted parser only cares about state identity, not the
	// LR(1) item sets that produced it).
	GetDFA() automaton.DFA[string]
}
