// Package emit defines the target-agnostic emission plan (spec.md §2 stage
// 5, §4.5, §9): the Options, type tables, token list, action map, and
// parsing table a target renderer needs to produce source text implementing
// the Parser shape. internal/emit/golang is the reference renderer.
package emit

import (
	"github.com/dekarrin/caper/internal/collect"
	"github.com/dekarrin/caper/internal/grammar"
	"github.com/dekarrin/caper/internal/table"
)

// Plan is everything a target renderer is handed. It is a pure, already
// validated snapshot: nothing in internal/emit or its target subpackages
// mutates it or reaches back into earlier pipeline stages.
type Plan struct {
	Options collect.Options
	Grammar grammar.Grammar
	Table   table.LRParseTable
	Actions grammar.ActionMap

	// PackageName is the emitted source file's package clause. cmd/caper
	// derives it from the output file's name (packageNameFor);
	// Options.NamespaceName is not used for it.
	PackageName string
}

// Terminals returns the plan's terminals ordered by id. The reserved
// end-of-input marker "$" is not included; the Go renderer adds it itself as
// token id 0. This is the order the emitted Token enum and per-state
// dispatch tables are rendered in.
func (p Plan) Terminals() []grammar.Terminal {
	names := p.Grammar.Terminals()
	terms := make([]grammar.Terminal, 0, len(names))
	for _, n := range names {
		terms = append(terms, p.Grammar.Term(n))
	}

	// sort ascending by id (dense after MarkRecovery/renumbering, see
	// grammar.Grammar.AddTerm)
	for i := 1; i < len(terms); i++ {
		for j := i; j > 0 && terms[j-1].ID > terms[j].ID; j-- {
			terms[j-1], terms[j] = terms[j], terms[j-1]
		}
	}

	return terms
}
