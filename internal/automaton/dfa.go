package automaton

import (
	"fmt"
	"strings"

	"github.com/dekarrin/caper/internal/grammar"
	"github.com/dekarrin/caper/internal/util"
)

// DFA is a deterministic finite automaton: one state is the current state,
// and each state has at most one transition per input symbol.
type DFA[E any] struct {
	states map[string]DFAState[E]
	Start  string
}

// TransformDFA builds a new DFA with the same shape as dfa, replacing every
// state's attached value by applying transform to it.
func TransformDFA[E1, E2 any](dfa DFA[E1], transform func(old E1) E2) DFA[E2] {
	copied := DFA[E2]{
		states: make(map[string]DFAState[E2]),
		Start:  dfa.Start,
	}

	for k := range dfa.states {
		oldState := dfa.states[k]
		copiedState := DFAState[E2]{
			name:        oldState.name,
			value:       transform(oldState.value),
			transitions: make(map[string]FATransition),
			accepting:   oldState.accepting,
		}

		for sym := range oldState.transitions {
			copiedState.transitions[sym] = oldState.transitions[sym]
		}

		copied.states[k] = copiedState
	}

	return copied
}

func (dfa *DFA[E]) SetValue(state string, v E) {
	s, ok := dfa.states[state]
	if !ok {
		panic(fmt.Sprintf("setting value on non-existing state: %q", state))
	}
	s.value = v
	dfa.states[state] = s
}

func (dfa *DFA[E]) GetValue(state string) E {
	s, ok := dfa.states[state]
	if !ok {
		panic(fmt.Sprintf("getting value on non-existing state: %q", state))
	}
	return s.value
}

// States returns all states in the dfa.
func (dfa DFA[E]) States() util.StringSet {
	states := util.NewStringSet()

	for k := range dfa.states {
		states.Add(k)
	}

	return states
}

// Next returns the next state of the DFA, given a current state and an input.
// Will return "" if state is not an existing state or if there is no transition
// from the given state on the given input.
func (dfa DFA[E]) Next(fromState string, input string) string {
	state, ok := dfa.states[fromState]
	if !ok {
		return ""
	}

	transition, ok := state.transitions[input]
	if !ok {
		return ""
	}

	return transition.next
}

// AllTransitionsTo returns every (fromState, input) pair whose transition
// leads to toState.
func (dfa DFA[E]) AllTransitionsTo(toState string) [][2]string {
	if _, ok := dfa.states[toState]; !ok {
		return [][2]string{}
	}

	transitions := [][2]string{}

	for _, sName := range dfa.States().Elements() {
		state := dfa.states[sName]
		for k := range state.transitions {
			if state.transitions[k].next == toState {
				transitions = append(transitions, [2]string{sName, k})
			}
		}
	}

	return transitions
}

func (dfa *DFA[E]) RemoveState(state string) {
	if _, ok := dfa.states[state]; !ok {
		return
	}

	if transitionsTo := dfa.AllTransitionsTo(state); len(transitionsTo) > 0 {
		panic("can't remove state that is currently traversed to")
	}

	delete(dfa.states, state)
}

func (dfa *DFA[E]) AddState(state string, accepting bool) {
	if _, ok := dfa.states[state]; ok {
		return
	}

	newState := DFAState[E]{
		name:        state,
		transitions: make(map[string]FATransition),
		accepting:   accepting,
	}

	if dfa.states == nil {
		dfa.states = map[string]DFAState[E]{}
	}

	dfa.states[state] = newState
}

func (dfa *DFA[E]) RemoveTransition(fromState string, input string, toState string) {
	curFromState, ok := dfa.states[fromState]
	if !ok {
		return
	}

	curTrans, ok := curFromState.transitions[input]
	if !ok {
		return
	}

	if curTrans.next != toState {
		return
	}

	delete(curFromState.transitions, input)
}

func (dfa *DFA[E]) AddTransition(fromState string, input string, toState string) {
	curFromState, ok := dfa.states[fromState]

	if !ok {
		panic(fmt.Sprintf("add transition from non-existent state %q", fromState))
	}
	if _, ok := dfa.states[toState]; !ok {
		panic(fmt.Sprintf("add transition to non-existent state %q", toState))
	}

	curFromState.transitions[input] = FATransition{input: input, next: toState}
	dfa.states[fromState] = curFromState
}

func (dfa DFA[E]) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("<START: %q, STATES:", dfa.Start))

	orderedStates := util.OrderedKeys(dfa.states)

	for i := range orderedStates {
		sb.WriteString("\n\t")
		sb.WriteString(dfa.states[orderedStates[i]].String())

		if i+1 < len(dfa.states) {
			sb.WriteRune(',')
		} else {
			sb.WriteRune('\n')
		}
	}

	sb.WriteRune('>')

	return sb.String()
}

// NewLALR1ViablePrefixDFA builds the LALR(1) viable-prefix automaton for g,
// which must not already be augmented.
//
// This is Algorithm 4.59 of the purple dragon book: build the canonical
// LR(1) collection (NewLR1ViablePrefixDFA), then repeatedly collapse any two
// states whose cores (their LR0Items, ignoring lookahead) are equal into a
// single state carrying the union of their LR1Items. The merge runs directly
// against DFA[E]'s own state-mutation methods; there is no intermediate
// non-deterministic representation to build or tear down, because the core-
// equality theorem behind LALR(1) construction guarantees that whenever two
// states are merged, their GOTO-images under any shared symbol are
// themselves core-equal and so converge to a single merged target across
// this same fixed-point loop.
func NewLALR1ViablePrefixDFA(g grammar.Grammar) (DFA[util.SVSet[grammar.LR1Item]], error) {
	dfa := NewLR1ViablePrefixDFA(g)

	for {
		merged, err := mergeLALRGroup(&dfa)
		if err != nil {
			return DFA[util.SVSet[grammar.LR1Item]]{}, fmt.Errorf("grammar is not LALR(1); %w", err)
		}
		if !merged {
			break
		}
	}

	return dfa, nil
}

// mergeLALRGroup finds the first group of two or more core-equal states in
// dfa and collapses them into one, rewriting every transition that pointed
// at any state in the group (including transitions between group members
// themselves, which become self-loops on the merged state) to point at the
// merged state instead. It reports whether it found and merged a group.
func mergeLALRGroup(dfa *DFA[util.SVSet[grammar.LR1Item]]) (bool, error) {
	names := dfa.States().Elements()

	for _, name := range names {
		group := []string{name}
		for _, other := range names {
			if other == name {
				continue
			}
			if grammar.EqualCoreSets(dfa.GetValue(name), dfa.GetValue(other)) {
				group = append(group, other)
			}
		}

		if len(group) < 2 {
			continue
		}

		if err := mergeStates(dfa, group); err != nil {
			return false, err
		}
		return true, nil
	}

	return false, nil
}

// mergeStates collapses every state named in group into a single new state
// keyed by the string form of their merged LR1Item sets. It fails if two
// group members transition on the same symbol to targets that are not
// themselves core-equal, which is the signature of a grammar that isn't
// really LALR(1): per Algorithm 4.59, merged states' GOTO-images under a
// shared symbol must converge to one core, or construction never reaches a
// consistent automaton.
func mergeStates(dfa *DFA[util.SVSet[grammar.LR1Item]], group []string) error {
	inGroup := util.StringSetOf(group)

	merged := util.NewSVSet[grammar.LR1Item]()
	for _, name := range group {
		merged.AddAll(dfa.GetValue(name))
	}
	newName := merged.StringOrdered()

	// gather edges before mutating anything: both the ones pointing into the
	// group from outside (and from other group members) and the ones
	// pointing out of the group, since removing a group member invalidates
	// AllTransitionsTo queries against it.
	type edge struct{ from, sym, to string }
	var incoming []edge
	outgoingBySym := map[string]string{}

	coreOf := func(name string) util.SVSet[grammar.LR0Item] {
		if name == newName {
			return grammar.CoreSet(merged)
		}
		return grammar.CoreSet(dfa.GetValue(name))
	}

	for _, name := range group {
		for _, pair := range dfa.AllTransitionsTo(name) {
			from, sym := pair[0], pair[1]
			incoming = append(incoming, edge{from: from, sym: sym, to: newName})
		}
		for sym, trans := range dfa.states[name].transitions {
			to := trans.next
			if inGroup.Has(to) {
				to = newName
			}
			if existing, ok := outgoingBySym[sym]; ok {
				if existing != to && !coreOf(existing).Equal(coreOf(to)) {
					return fmt.Errorf("merged state %q has conflicting GOTO targets on %q: %q and %q", newName, sym, existing, to)
				}
				continue
			}
			outgoingBySym[sym] = to
		}
	}

	var outgoing []edge
	for sym, to := range outgoingBySym {
		outgoing = append(outgoing, edge{from: newName, sym: sym, to: to})
	}

	wasStart := inGroup.Has(dfa.Start)

	dfa.AddState(newName, true)
	dfa.SetValue(newName, merged)

	for _, e := range incoming {
		from := e.from
		if inGroup.Has(from) {
			from = newName
		}
		dfa.AddTransition(from, e.sym, e.to)
	}
	for _, e := range outgoing {
		dfa.AddTransition(e.from, e.sym, e.to)
	}

	// the old members' own transitions still hold their original, now-stale
	// edges to one another; remove them before removal so AllTransitionsTo
	// (which RemoveState relies on) doesn't trip over a group member that
	// still appears to point at another one being removed in the same pass.
	for _, name := range group {
		if name == newName {
			continue
		}
		for sym, trans := range dfa.states[name].transitions {
			dfa.RemoveTransition(name, sym, trans.next)
		}
	}

	for _, name := range group {
		if name != newName {
			dfa.RemoveState(name)
		}
	}

	if wasStart {
		dfa.Start = newName
	}

	return nil
}

// NewLR1ViablePrefixDFA builds the canonical LR(1) collection for g (which
// must not already be augmented) as a DFA directly: CLOSURE and GOTO each
// produce exactly one successor per symbol, so no intermediate
// non-deterministic automaton is ever needed here.
//
// Follows the construction described at
// http://www.cs.ecu.edu/karl/5220/spr16/Notes/Bottom-up/lr1.html.
func NewLR1ViablePrefixDFA(g grammar.Grammar) DFA[util.SVSet[grammar.LR1Item]] {
	oldStart := g.StartSymbol()
	g = g.Augmented()

	initialItem := grammar.LR1Item{
		LR0Item: grammar.LR0Item{
			NonTerminal: g.StartSymbol(),
			Core:        grammar.Production{oldStart},
			Dot:         0,
		},
		Lookahead: "$",
	}

	startSet := g.LR1_CLOSURE(util.SVSet[grammar.LR1Item]{initialItem.String(): initialItem})

	stateSets := util.NewSVSet[util.SVSet[grammar.LR1Item]]()
	stateSets.Set(startSet.StringOrdered(), startSet)
	transitions := map[string]map[string]FATransition{}

	// suppose that state q contains set I of LR(1) items
	updates := true
	for updates {
		updates = false

		for _, I := range stateSets {
			for _, item := range I {
				beta := item.Right()
				if len(beta) == 0 || beta[0] == grammar.Epsilon[0] {
					continue // no epsilons, deterministic finite state
				}

				// For each symbol s (either a token or a nonterminal) that
				// immediately follows a dot in an LR(1) item [A → α ⋅ sβ, t]
				// in set I...
				s := beta[0]

				// ...let Is be the set of all LR(1) items in I where s
				// immediately follows the dot.
				Is := util.NewSVSet[grammar.LR1Item]()
				for _, checkItem := range I {
					checkBeta := checkItem.Right()
					if len(checkBeta) >= 1 && checkBeta[0] == s {
						// Move the dot to the other side of s in each of
						// them.
						newItem := checkItem.Copy()
						newItem.Dot++

						Is.Set(newItem.String(), newItem)
					}
				}

				// That set [Is] becomes the kernel of state q', and you
				// make a transition from q to q' on s. As usual, form the
				// closure of the set of LR(1) items in state q'.
				newSet := g.LR1_CLOSURE(Is)

				if !stateSets.Has(newSet.StringOrdered()) {
					updates = true
					stateSets.Set(newSet.StringOrdered(), newSet)
				}

				stateTransitions, ok := transitions[I.StringOrdered()]
				if !ok {
					stateTransitions = map[string]FATransition{}
				}
				trans, ok := stateTransitions[s]
				if !ok {
					trans = FATransition{}
				}
				if trans.next != newSet.StringOrdered() {
					updates = true
					trans.input = s
					trans.next = newSet.StringOrdered()
					stateTransitions[s] = trans
					transitions[I.StringOrdered()] = stateTransitions
				}
			}
		}
	}

	// all DFA items are pre-calculated by now, so add them in one pass.
	dfa := DFA[util.SVSet[grammar.LR1Item]]{}

	for sName, state := range stateSets {
		dfa.AddState(sName, true)
		dfa.SetValue(sName, state)
	}

	for onState, stateTrans := range transitions {
		for _, t := range stateTrans {
			dfa.AddTransition(onState, t.input, t.next)
		}
	}

	dfa.Start = startSet.StringOrdered()

	return dfa
}
