package grammar

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dekarrin/caper/internal/util"
)

// Production is a right-hand side: a sequence of symbol names. By
// convention (inherited from the teacher's tunascript grammar package),
// terminals are lower-case and nonterminals are upper-case, so a symbol's
// kind can be told apart without a side table.
type Production []string

// Epsilon is the production representing the empty string.
var Epsilon = Production{""}

func (p Production) Copy() Production {
	p2 := make(Production, len(p))
	copy(p2, p)
	return p2
}

func (p Production) Equal(o any) bool {
	other, ok := o.(Production)
	if !ok {
		otherSlice, ok := o.([]string)
		if !ok {
			return false
		}
		other = Production(otherSlice)
	}
	return util.EqualSlices([]string(p), []string(other))
}

func (p Production) String() string {
	if p.Equal(Epsilon) {
		return "ε"
	}
	return strings.Join(p, " ")
}

// HasSymbol returns whether sym appears anywhere in the production.
func (p Production) HasSymbol(sym string) bool {
	return util.InSlice(sym, p)
}

// AllItems returns every LR0Item obtainable from dotting through p, with
// NonTerminal left blank (the caller fills it in; a bare Production doesn't
// know what it's a production of).
func (p Production) AllItems() []LR0Item {
	if p.Equal(Epsilon) {
		return []LR0Item{{}}
	}

	items := make([]LR0Item, 0, len(p)+1)
	for dot := 0; dot <= len(p); dot++ {
		items = append(items, LR0Item{Core: p, Dot: dot})
	}
	return items
}

// Rule groups all alternatives for a single nonterminal. This is the
// granularity the LALR construction and automaton code want; for the
// single-alternative granularity a SemanticAction attaches to, see ProdRule.
type Rule struct {
	NonTerminal string
	Productions []Production
}

func (r Rule) LRItems() []LR0Item {
	items := []LR0Item{}
	for _, p := range r.Productions {
		prodItems := p.AllItems()
		for i := range prodItems {
			item := prodItems[i]
			item.NonTerminal = r.NonTerminal
			prodItems[i] = item
		}
		items = append(items, prodItems...)
	}
	return items
}

func (r Rule) Copy() Rule {
	r2 := Rule{NonTerminal: r.NonTerminal, Productions: make([]Production, len(r.Productions))}
	for i := range r.Productions {
		r2.Productions[i] = r.Productions[i].Copy()
	}
	return r2
}

func (r Rule) String() string {
	var sb strings.Builder
	sb.WriteString(r.NonTerminal)
	sb.WriteString(" -> ")
	for i := range r.Productions {
		sb.WriteString(r.Productions[i].String())
		if i+1 < len(r.Productions) {
			sb.WriteString(" | ")
		}
	}
	return sb.String()
}

func (r Rule) HasProduction(prod Production) bool {
	for _, alt := range r.Productions {
		if alt.Equal(prod) {
			return true
		}
	}
	return false
}

// Grammar is a context-free grammar over string-named symbols, with enough
// metadata attached (terminal types/ids, nonterminal types, semantic
// actions) to carry the full data model the generator pipeline builds: see
// Terminal, Type, ActionMap.
type Grammar struct {
	rulesByName map[string]int
	rules       []Rule
	terminals   map[string]Terminal

	nonTermTypes map[string]Type
	actions      ActionMap

	// Start names the start symbol. Defaults to "S" when empty, matching the
	// convention the teacher's grammar DSL uses for its test fixtures.
	Start string

	// RecoverTerminal is the name of the terminal designated by %recover, or
	// empty if none was declared.
	RecoverTerminal string
}

func (g Grammar) StartSymbol() string {
	if g.Start == "" {
		return "S"
	}
	return g.Start
}

func (g Grammar) Copy() Grammar {
	g2 := Grammar{
		rulesByName:     make(map[string]int, len(g.rulesByName)),
		rules:           make([]Rule, len(g.rules)),
		terminals:       make(map[string]Terminal, len(g.terminals)),
		nonTermTypes:    make(map[string]Type, len(g.nonTermTypes)),
		actions:         make(ActionMap, len(g.actions)),
		Start:           g.Start,
		RecoverTerminal: g.RecoverTerminal,
	}
	for k, v := range g.rulesByName {
		g2.rulesByName[k] = v
	}
	for i := range g.rules {
		g2.rules[i] = g.rules[i].Copy()
	}
	for k, v := range g.terminals {
		g2.terminals[k] = v
	}
	for k, v := range g.nonTermTypes {
		g2.nonTermTypes[k] = v
	}
	for k, v := range g.actions {
		g2.actions[k] = v
	}
	return g2
}

func (g Grammar) String() string {
	return fmt.Sprintf("(%q, R=%q)", util.OrderedKeys(g.terminals), g.rules)
}

// Rule returns the grammar rule for nonterminal. If none is defined, a Rule
// with an empty NonTerminal field is returned.
func (g Grammar) Rule(nonterminal string) Rule {
	if g.rulesByName == nil {
		return Rule{}
	}
	idx, ok := g.rulesByName[nonterminal]
	if !ok {
		return Rule{}
	}
	return g.rules[idx]
}

// Term returns the Terminal terminal maps to. The zero Terminal is returned
// if terminal is not defined.
func (g Grammar) Term(terminal string) Terminal {
	if g.terminals == nil {
		return Terminal{}
	}
	return g.terminals[terminal]
}

// IsTerminal returns whether sym names a declared terminal (including the
// reserved end marker "$"). By grammar convention nonterminals are upper-case
// and terminals lower-case, but membership in the terminal table is
// authoritative.
func (g Grammar) IsTerminal(sym string) bool {
	if sym == "$" {
		return true
	}
	if g.terminals == nil {
		return false
	}
	_, ok := g.terminals[sym]
	return ok
}

// AddTerm declares terminal with the given semantic value Type and renumbers
// all terminals densely (id 0 is reserved for end-of-input and is never
// assigned here); ids follow lexical order of name, see renumberTerminals.
// Declaring the same name twice overwrites the previous mapping, and since
// the set of names is unchanged no terminal's id changes.
func (g *Grammar) AddTerm(terminal string, t Type) {
	if terminal == "" {
		panic("empty terminal not allowed")
	}
	for _, ch := range terminal {
		if ('a' > ch || ch > 'z') && ch != '_' && ch != '-' {
			panic(fmt.Sprintf("invalid terminal name %q; must only be chars a-z, \"_\", or \"-\"", terminal))
		}
	}

	if g.terminals == nil {
		g.terminals = map[string]Terminal{}
	}

	id := len(g.terminals) + 1
	if existing, ok := g.terminals[terminal]; ok {
		id = existing.ID
	}

	g.terminals[terminal] = Terminal{Name: terminal, ID: id, Type: t}
	g.renumberTerminals()
}

// MarkRecovery designates terminal as the error-recovery token declared by
// %recover, assigning it the sentinel $error type and the lowest non-zero
// id. All other terminals are renumbered densely afterwards, in lexical order
// of name.
func (g *Grammar) MarkRecovery(terminal string) {
	if _, ok := g.terminals[terminal]; !ok {
		panic(fmt.Sprintf("cannot mark undeclared terminal %q as recovery terminal", terminal))
	}
	g.RecoverTerminal = terminal
	t := g.terminals[terminal]
	t.Recovery = true
	t.Type = Type{Name: ErrorType}
	g.terminals[terminal] = t
	g.renumberTerminals()
}

// renumberTerminals reassigns ids so the recovery terminal (if any) has the
// lowest non-zero id, and every other terminal follows in lexical order of
// name. Declaration order of terminals is not tracked and has no effect on
// their ids.
func (g *Grammar) renumberTerminals() {
	names := util.OrderedKeys(g.terminals)
	// OrderedKeys sorts lexically; we want declaration order instead, which
	// this grammar doesn't separately track for terminals, so lexical order
	// is used as a stable, deterministic stand-in. Rule order is what the
	// spec's determinism properties actually depend on (§8); terminal id
	// order only needs to be stable across runs of the same grammar, which
	// lexical order is.
	sort.Strings(names)

	id := 1
	if g.RecoverTerminal != "" {
		t := g.terminals[g.RecoverTerminal]
		t.ID = id
		g.terminals[g.RecoverTerminal] = t
		id++
	}
	for _, name := range names {
		if name == g.RecoverTerminal {
			continue
		}
		t := g.terminals[name]
		t.ID = id
		g.terminals[name] = t
		id++
	}
}

// AddRule adds production as an alternative for nonterminal, appended with
// lower priority than alternatives already present (conflict resolution
// prefers earlier-declared alternatives, see table.ConstructLALR1ParseTable).
func (g *Grammar) AddRule(nonterminal string, production []string) {
	if nonterminal == "" {
		panic("empty nonterminal name not allowed for production rule")
	}
	for _, ch := range nonterminal {
		if ('A' > ch || ch > 'Z') && ('a' > ch || ch > 'z') && ('0' > ch || ch > '9') && ch != '_' && ch != '-' && ch != '$' {
			panic(fmt.Sprintf("invalid nonterminal name %q; must only be chars A-Z, a-z, 0-9, \"_\", \"-\", or \"$\"", nonterminal))
		}
	}
	if len(production) < 1 {
		panic("for epsilon production give one empty string element; all rules must have productions")
	}
	if len(production) != 1 {
		for _, sym := range production {
			if sym == "" {
				panic("epsilon production only allowed as sole production of an alternative")
			}
		}
	}

	if g.rulesByName == nil {
		g.rulesByName = map[string]int{}
	}

	idx, ok := g.rulesByName[nonterminal]
	if !ok {
		g.rules = append(g.rules, Rule{NonTerminal: nonterminal})
		idx = len(g.rules) - 1
		g.rulesByName[nonterminal] = idx
	}

	cur := g.rules[idx]
	cur.Productions = append(cur.Productions, production)
	g.rules[idx] = cur
}

// SetNonTerminalType records the result Type of nonterminal, used by EBNF
// desugaring to register the sequence/option type of a synthesized
// nonterminal (spec.md §4.3).
func (g *Grammar) SetNonTerminalType(nonterminal string, t Type) {
	if g.nonTermTypes == nil {
		g.nonTermTypes = map[string]Type{}
	}
	g.nonTermTypes[nonterminal] = t
}

func (g Grammar) NonTerminalType(nonterminal string) (Type, bool) {
	t, ok := g.nonTermTypes[nonterminal]
	return t, ok
}

// Actions returns the grammar's ActionMap, creating it if absent.
func (g *Grammar) Actions() ActionMap {
	if g.actions == nil {
		g.actions = ActionMap{}
	}
	return g.actions
}

// NonTerminals returns all non-terminal symbols, alphabetized.
func (g Grammar) NonTerminals() []string {
	return util.OrderedKeys(g.rulesByName)
}

// Terminals returns all terminal symbols, alphabetized (not by id -- callers
// wanting id order should consult Term directly).
func (g Grammar) Terminals() []string {
	return util.OrderedKeys(g.terminals)
}

// GenerateUniqueName mints a nonterminal name guaranteed not to collide with
// any existing rule, based on original. Used for EBNF-desugared sequence
// nonterminals (name_seqN) and other synthesized symbols.
func (g Grammar) GenerateUniqueName(original string) string {
	for n := 0; ; n++ {
		candidate := fmt.Sprintf("%s_seq%d", original, n)
		if g.Rule(candidate).NonTerminal == "" {
			return candidate
		}
	}
}

// GenerateUniqueTerminal mints a terminal name guaranteed not to collide
// with any existing terminal, based on original.
func (g Grammar) GenerateUniqueTerminal(original string) string {
	candidate := original
	for {
		if _, ok := g.terminals[candidate]; !ok {
			return candidate
		}
		candidate = candidate + "_"
	}
}

// Augmented returns a copy of g with a synthetic start rule
// $implicit_root -> StartSymbol prepended, per spec.md §3's Nonterminal
// invariant.
func (g Grammar) Augmented() Grammar {
	g2 := g.Copy()
	g2.Start = ImplicitRootName
	g2.rules = append([]Rule{{NonTerminal: ImplicitRootName, Productions: []Production{{g.StartSymbol()}}}}, g2.rules...)
	// shift every existing index up by one to account for the prepended rule
	g2.rulesByName = map[string]int{ImplicitRootName: 0}
	for i := 1; i < len(g2.rules); i++ {
		g2.rulesByName[g2.rules[i].NonTerminal] = i
	}
	return g2
}

// FIRST computes FIRST(X) for a single grammar symbol (terminal,
// nonterminal, or the empty string).
func (g Grammar) FIRST(X string) map[string]bool {
	if X == "" || g.IsTerminal(X) {
		return map[string]bool{X: true}
	}

	firsts := map[string]bool{}
	r := g.Rule(X)
	for _, Y := range r.Productions {
		gotToEnd := true
		for k := 0; k < len(Y); k++ {
			firstY := g.FIRST(Y[k])
			for sym := range firstY {
				if sym != "" {
					firsts[sym] = true
				}
			}
			if !firstY[""] {
				gotToEnd = false
				break
			}
		}
		if gotToEnd {
			firsts[""] = true
		}
	}
	return firsts
}

// FOLLOW computes FOLLOW(X) for a single nonterminal X.
func (g Grammar) FOLLOW(X string) map[string]bool {
	return g.followRecursive(X, map[string]bool{})
}

func (g Grammar) followRecursive(X string, visiting map[string]bool) map[string]bool {
	follow := map[string]bool{}
	if X == g.StartSymbol() {
		follow["$"] = true
	}
	if visiting[X] {
		return follow
	}
	visiting[X] = true

	for _, nt := range g.NonTerminals() {
		rule := g.Rule(nt)
		for _, prod := range rule.Productions {
			for i, sym := range prod {
				if sym != X {
					continue
				}
				rest := prod[i+1:]
				if len(rest) == 0 {
					if nt != X {
						for f := range g.followRecursive(nt, visiting) {
							follow[f] = true
						}
					}
					continue
				}

				firstRest := g.FIRST(rest[0])
				for k := 1; k < len(rest) && firstRest[""]; k++ {
					delete(firstRest, "")
					for sym := range g.FIRST(rest[k]) {
						firstRest[sym] = true
					}
				}

				epsilonInFirst := firstRest[""]
				for sym := range firstRest {
					if sym != "" {
						follow[sym] = true
					}
				}
				if epsilonInFirst && nt != X {
					for f := range g.followRecursive(nt, visiting) {
						follow[f] = true
					}
				}
			}
		}
	}

	return follow
}

// LR1_CLOSURE computes the closure of a kernel set of LR(1) items: repeatedly
// adds, for every item [A -> α.Bβ, a] in the set, every item
// [B -> .γ, b] for each production B -> γ and each b in FIRST(βa), until no
// more items can be added.
func (g Grammar) LR1_CLOSURE(kernel util.SVSet[LR1Item]) util.SVSet[LR1Item] {
	closure := util.NewSVSet[LR1Item]()
	for k, v := range kernel {
		closure.Set(k, v)
	}

	changed := true
	for changed {
		changed = false

		for _, itemStr := range closure.Elements() {
			item := closure.Get(itemStr)
			right := item.Right()
			if len(right) == 0 {
				continue
			}

			B := right[0]
			if g.IsTerminal(B) {
				continue
			}

			beta := right[1:]

			lookaheads := map[string]bool{}
			if len(beta) == 0 {
				lookaheads[item.Lookahead] = true
			} else {
				firstBeta := g.FIRST(beta[0])
				hasEpsilon := firstBeta[""]
				for k := 1; k < len(beta) && hasEpsilon; k++ {
					delete(firstBeta, "")
					for sym := range g.FIRST(beta[k]) {
						firstBeta[sym] = true
					}
					hasEpsilon = firstBeta[""]
				}
				for sym := range firstBeta {
					if sym != "" {
						lookaheads[sym] = true
					}
				}
				if hasEpsilon {
					lookaheads[item.Lookahead] = true
				}
			}

			rule := g.Rule(B)
			for _, prod := range rule.Productions {
				prodSyms := Production(prod)
				if prod.Equal(Epsilon) {
					prodSyms = nil
				}
				for b := range lookaheads {
					newItem := LR1Item{
						LR0Item:   LR0Item{NonTerminal: B, Core: prodSyms, Dot: 0},
						Lookahead: b,
					}
					key := newItem.String()
					if !closure.Has(key) {
						closure.Set(key, newItem)
						changed = true
					}
				}
			}
		}
	}

	return closure
}

// Validate checks the structural invariants spec.md §4.1's Symbol Collector
// and §3's data model depend on: at least one rule and one terminal, every
// produced symbol defined, every declared terminal and non-start nonterminal
// actually produced, and a rule for the start symbol.
func (g Grammar) Validate() error {
	if len(g.rules) < 1 {
		return fmt.Errorf("no rules defined in grammar")
	}
	if len(g.terminals) < 1 {
		return fmt.Errorf("no terminals defined in grammar")
	}

	producedNonTerms := util.NewKeySet[string]()
	producedTerms := util.NewKeySet[string]()

	var errs []string

	for _, rule := range g.rules {
		for _, alt := range rule.Productions {
			for _, sym := range alt {
				if sym == "" {
					continue
				}
				if g.IsTerminal(sym) {
					producedTerms.Add(sym)
				} else if strings.ToUpper(sym) == sym {
					if _, ok := g.rulesByName[sym]; !ok {
						errs = append(errs, fmt.Sprintf("no production defined for nonterminal %q produced by %q", sym, rule.NonTerminal))
					}
					producedNonTerms.Add(sym)
				} else {
					errs = append(errs, fmt.Sprintf("undefined terminal %q produced by %q", sym, rule.NonTerminal))
				}
			}
		}
	}

	for _, term := range util.OrderedKeys(g.terminals) {
		if !producedTerms.Has(term) {
			errs = append(errs, fmt.Sprintf("terminal %q is not produced by any rule", term))
		}
	}

	for _, r := range g.rules {
		if r.NonTerminal == g.StartSymbol() {
			continue
		}
		if !producedNonTerms.Has(r.NonTerminal) {
			errs = append(errs, fmt.Sprintf("non-terminal %q not produced by any rule", r.NonTerminal))
		}
	}

	if _, ok := g.rulesByName[g.StartSymbol()]; !ok {
		errs = append(errs, fmt.Sprintf("no rules defined for productions of start symbol %q", g.StartSymbol()))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid grammar: %s", util.MakeTextList(errs))
	}
	return nil
}
