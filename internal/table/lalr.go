package table

import (
	"fmt"
	"sort"

	"github.com/dekarrin/rosed"
	"github.com/dekarrin/caper/internal/automaton"
	"github.com/dekarrin/caper/internal/grammar"
	"github.com/dekarrin/caper/internal/util"
)

// ConstructLALR1ParseTable constructs the LALR(1) table for g. It augments g
// to produce G', builds the canonical collection of sets of LR(1) items of G'
// with state-merging (automaton.NewLALR1ViablePrefixDFA already merges states
// sharing a core, which is what makes the result LALR(1) rather than full
// canonical LR(1)), and derives ACTION/GOTO columns from the merged item
// sets.
//
// This is Algorithm 4.59, "An easy, but space-consuming LALR table
// construction", from the purple dragon book: state merging is pushed into
// DFA construction instead of being computed as a separate kernel/lookahead
// propagation pass, trading table-construction memory for a much simpler,
// more obviously correct implementation.
//
// Ambiguities (shift/reduce, reduce/reduce) are resolved rather than
// rejected: shift wins over reduce, and of two competing reduces the one
// with the lower rank from declarationOrder wins: nonterminals rank in
// alphabetical order, and a nonterminal's alternatives in the order they
// were declared. Every resolution found while the table is built is
// reported to sink, which may be nil; later Action calls do not report.
func ConstructLALR1ParseTable(g grammar.Grammar, sink ConflictSink) (LRParseTable, error) {
	dfa, err := automaton.NewLALR1ViablePrefixDFA(g)
	if err != nil {
		return nil, fmt.Errorf("building LALR(1) automaton: %w", err)
	}

	table := &lalr1Table{
		gPrime:    g.Augmented(),
		gTerms:    g.Terminals(),
		gStart:    g.StartSymbol(),
		gNonTerms: g.NonTerminals(),
		dfa:       dfa,
		itemCache: map[string]grammar.LR1Item{},
		priority:  declarationOrder(g),
		sink:      sink,
	}

	allStates := util.OrderedKeys(table.dfa.States())
	for _, dfaStateName := range allStates {
		itemSet := table.dfa.GetValue(dfaStateName)
		for k := range itemSet {
			table.itemCache[k] = itemSet[k]
		}
	}

	// force every cell to be computed once up front so any unresolvable
	// ambiguity (there shouldn't be any, now that resolution always picks
	// something) surfaces immediately rather than lazily at parse time.
	for i := range dfa.States() {
		for _, a := range append(table.gPrime.Terminals(), "$") {
			table.Action(i, a)
		}
	}
	table.sink = nil

	return table, nil
}

// declarationOrder assigns each production of g a rank, lowest first:
// nonterminals are taken in alphabetical order (g.NonTerminals()), and each
// nonterminal's alternatives in the order they were declared. Declaration
// order across different nonterminals is not tracked. Conflict resolution
// prefers the lower rank.
func declarationOrder(g grammar.Grammar) map[string]int {
	order := map[string]int{}
	rank := 0
	for _, nt := range g.NonTerminals() {
		rule := g.Rule(nt)
		for _, prod := range rule.Productions {
			key := nt + " -> " + prod.String()
			order[key] = rank
			rank++
		}
	}
	return order
}

type lalr1Table struct {
	gPrime    grammar.Grammar
	gStart    string
	dfa       automaton.DFA[util.SVSet[grammar.LR1Item]]
	itemCache map[string]grammar.LR1Item
	gTerms    []string
	gNonTerms []string
	priority  map[string]int
	sink      ConflictSink
}

func (lalr1 *lalr1Table) GetDFA() automaton.DFA[string] {
	return automaton.TransformDFA(lalr1.dfa, func(util.SVSet[grammar.LR1Item]) string { return "" })
}

func (lalr1 *lalr1Table) rankOf(act LRAction) int {
	if act.Type != LRReduce {
		return -1
	}
	r, ok := lalr1.priority[act.Symbol+" -> "+act.Production.String()]
	if !ok {
		return -1
	}
	return r
}

// Action gets the next action to take based on a state i and terminal a.
//
// This implements step 2 of Algorithm 4.56, "Construction of canonical-LR
// parsing tables", as directed by Algorithm 4.59:
//
// (a) If [A -> α.aβ, b] is in Iᵢ and GOTO(Iᵢ, a) = Iⱼ, then set ACTION[i, a]
// to "shift j." Here a must be a terminal.
//
// (b) If [A -> α., a] is in Iᵢ, A != S', then set ACTION[i, a] to "reduce
// A -> α".
//
// (c) If [S' -> S., $] is in Iᵢ, then set ACTION[i, $] to "accept".
func (lalr1 *lalr1Table) Action(i, a string) LRAction {
	itemSet := lalr1.dfa.GetValue(i)

	var found bool
	var act LRAction

	for itemStr := range itemSet {
		item := lalr1.itemCache[itemStr]

		A := item.NonTerminal
		alpha := item.Left()
		beta := item.Right()
		b := item.Lookahead

		var candidate LRAction
		var haveCandidate bool

		if lalr1.gPrime.IsTerminal(a) && len(beta) > 0 && beta[0] == a {
			if j, err := lalr1.Goto(i, a); err == nil {
				candidate = LRAction{Type: LRShift, State: j}
				haveCandidate = true
			}
		}

		if !haveCandidate && len(beta) == 0 && A != lalr1.gPrime.StartSymbol() && a == b {
			prod := grammar.Production(alpha)
			if len(prod) == 0 {
				prod = grammar.Epsilon
			}
			candidate = LRAction{Type: LRReduce, Symbol: A, Production: prod}
			haveCandidate = true
		}

		if !haveCandidate && a == "$" && b == "$" && A == lalr1.gPrime.StartSymbol() &&
			len(alpha) == 1 && alpha[0] == lalr1.gStart && len(beta) == 0 {
			candidate = LRAction{Type: LRAccept}
			haveCandidate = true
		}

		if !haveCandidate {
			continue
		}

		if !found {
			act = candidate
			found = true
			continue
		}

		if candidate.Equal(act) {
			continue
		}

		earlierWins := lalr1.rankOf(act) <= lalr1.rankOf(candidate)
		resolved := resolveConflict(act, candidate, earlierWins)

		dropped := candidate
		if resolved.Equal(candidate) {
			dropped = act
		}
		if lalr1.sink != nil {
			lalr1.sink(Conflict{State: i, Symbol: a, Chosen: resolved, Dropped: dropped})
		}
		act = resolved
	}

	if !found {
		act.Type = LRError
	}

	return act
}

// Goto maps a state and a grammar symbol to some other state.
func (lalr1 *lalr1Table) Goto(state, symbol string) (string, error) {
	newState := lalr1.dfa.Next(state, symbol)
	if newState == "" {
		return "", fmt.Errorf("GOTO[%q, %q] is an error entry", state, symbol)
	}
	return newState, nil
}

// Initial returns the initial state of the parse table.
func (lalr1 *lalr1Table) Initial() string {
	return lalr1.dfa.Start
}

func (lalr1 *lalr1Table) String() string {
	stateRefs := map[string]string{}

	stateNames := lalr1.dfa.States().Elements()
	sort.Strings(stateNames)

	for i := range stateNames {
		if stateNames[i] == lalr1.dfa.Start {
			old := stateNames[0]
			stateNames[0] = stateNames[i]
			stateNames[i] = old
			break
		}
	}
	for i := range stateNames {
		stateRefs[stateNames[i]] = fmt.Sprintf("%d", i)
	}

	allTerms := make([]string, len(lalr1.gTerms))
	copy(allTerms, lalr1.gTerms)
	allTerms = append(allTerms, "$")

	data := [][]string{}

	headers := []string{"S", "|"}
	for _, t := range allTerms {
		headers = append(headers, fmt.Sprintf("A:%s", t))
	}
	headers = append(headers, "|")
	for _, nt := range lalr1.gNonTerms {
		headers = append(headers, fmt.Sprintf("G:%s", nt))
	}
	data = append(data, headers)

	for stateIdx := range stateNames {
		i := stateNames[stateIdx]
		row := []string{stateRefs[i], "|"}

		for _, t := range allTerms {
			act := lalr1.Action(i, t)

			cell := ""
			switch act.Type {
			case LRAccept:
				cell = "acc"
			case LRReduce:
				cell = fmt.Sprintf("r%s -> %s", act.Symbol, act.Production.String())
			case LRShift:
				cell = fmt.Sprintf("s%s", stateRefs[act.State])
			case LRError:
				// blank
			}

			row = append(row, cell)
		}

		row = append(row, "|")

		for _, nt := range lalr1.gNonTerms {
			var cell = ""
			if gotoState, err := lalr1.Goto(i, nt); err == nil {
				cell = stateRefs[gotoState]
			}
			row = append(row, cell)
		}

		data = append(data, row)
	}

	return rosed.
		Edit("").
		InsertTableOpts(0, data, 10, rosed.Options{
			TableHeaders:             true,
			NoTrailingLineSeparators: true,
		}).
		String()
}
