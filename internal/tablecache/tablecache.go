// Package tablecache persists a built table.LRParseTable to disk keyed by a
// hash of the grammar it was built from (SPEC_FULL.md §10.5), so repeated
// invocations against an unchanged grammar can skip LALR(1) table
// construction, the pipeline's most expensive stage. Encoding is
// github.com/dekarrin/rezi, grounded on the teacher's server/dao/sqlite
// package encoding game.State the same way.
package tablecache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dekarrin/rezi"

	"github.com/dekarrin/caper/internal/automaton"
	"github.com/dekarrin/caper/internal/grammar"
	"github.com/dekarrin/caper/internal/table"
)

// Hash returns a stable digest of g's rule and terminal structure, suitable
// as a cache key. Two grammars with equal String() output (the only
// equality caper.md's Determinism property promises) always hash the same.
func Hash(g grammar.Grammar) string {
	sum := sha256.Sum256([]byte(g.String()))
	return hex.EncodeToString(sum[:])
}

// path builds the on-disk cache file path for a grammar hash under dir.
func path(dir, hash string) string {
	return filepath.Join(dir, hash+".caper-table")
}

// Load reads a cached table for hash from dir. The second return is false
// (with a nil error) on a cache miss; it is only true alongside a usable
// table.LRParseTable.
func Load(dir, hash string) (table.LRParseTable, bool, error) {
	if dir == "" {
		return nil, false, nil
	}

	data, err := os.ReadFile(path(dir, hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading table cache: %w", err)
	}

	var snap snapshot
	if _, err := rezi.DecBinary(data, &snap); err != nil {
		return nil, false, fmt.Errorf("decoding table cache: %w", err)
	}

	return snap.toTable(), true, nil
}

// Store writes t to dir keyed by hash, creating dir if needed. A "" dir
// disables caching entirely. g is the grammar t was built from, before
// augmentation (snapshotOf augments it itself); it supplies the terminal/nonterminal alphabet needed to flatten t's
// action/goto functions into the snapshot, since table.LRParseTable itself
// exposes only single-cell lookups.
func Store(dir, hash string, g grammar.Grammar, t table.LRParseTable) error {
	if dir == "" {
		return nil
	}

	snap := snapshotOf(g, t)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating table cache dir: %w", err)
	}

	data := rezi.EncBinary(&snap)
	if err := os.WriteFile(path(dir, hash), data, 0o644); err != nil {
		return fmt.Errorf("writing table cache: %w", err)
	}

	return nil
}

// actionRecord is the rezi-serializable form of table.LRAction.
type actionRecord struct {
	Type       int
	State      string
	Symbol     string
	Production []string
}

func (a actionRecord) toAction() table.LRAction {
	var prod grammar.Production
	if a.Production != nil {
		prod = grammar.Production(a.Production)
	}
	return table.LRAction{
		Type:       table.LRActionType(a.Type),
		State:      a.State,
		Symbol:     a.Symbol,
		Production: prod,
	}
}

func actionRecordOf(act table.LRAction) actionRecord {
	var prod []string
	if act.Production != nil {
		prod = []string(act.Production)
	}
	return actionRecord{
		Type:       int(act.Type),
		State:      act.State,
		Symbol:     act.Symbol,
		Production: prod,
	}
}

// snapshot is the flattened, fully-materialized form of an LRParseTable: one
// cell per (state, terminal) action and one entry per (state, symbol)
// transition (shift and goto share the same underlying DFA transition
// relation, see internal/table's lalr1Table.Goto). Rebuilding a
// table.LRParseTable from it is pure data assembly; no grammar re-analysis happens on a cache
// hit.
type snapshot struct {
	Initial     string
	States      []string
	Transitions map[string]map[string]string
	Actions     map[string]map[string]actionRecord
	Repr        string
}

func snapshotOf(g grammar.Grammar, t table.LRParseTable) snapshot {
	dfa := t.GetDFA()
	states := dfa.States().Elements()

	aug := g.Augmented()
	terms := append(append([]string{}, g.Terminals()...), "$")
	nonTerms := aug.NonTerminals()

	snap := snapshot{
		Initial:     t.Initial(),
		States:      states,
		Transitions: map[string]map[string]string{},
		Actions:     map[string]map[string]actionRecord{},
		Repr:        t.String(),
	}

	for _, s := range states {
		snap.Transitions[s] = map[string]string{}
		snap.Actions[s] = map[string]actionRecord{}

		for _, term := range terms {
			act := t.Action(s, term)
			if act.Type == table.LRError {
				continue
			}
			snap.Actions[s][term] = actionRecordOf(act)
			if act.Type == table.LRShift {
				snap.Transitions[s][term] = act.State
			}
		}

		for _, nt := range nonTerms {
			if dest, err := t.Goto(s, nt); err == nil {
				snap.Transitions[s][nt] = dest
			}
		}
	}

	return snap
}

func (snap snapshot) toTable() table.LRParseTable {
	dfa := automaton.DFA[string]{Start: snap.Initial}
	for _, s := range snap.States {
		dfa.AddState(s, false)
		dfa.SetValue(s, s)
	}
	for from, trans := range snap.Transitions {
		for sym, to := range trans {
			dfa.AddTransition(from, sym, to)
		}
	}

	return &cachedTable{snap: snap, dfa: dfa}
}

// cachedTable is a table.LRParseTable backed entirely by a loaded snapshot;
// it never touches internal/grammar or internal/automaton construction
// logic, only the data those packages produced on the run that wrote the
// cache.
type cachedTable struct {
	snap snapshot
	dfa  automaton.DFA[string]
}

func (c *cachedTable) Initial() string {
	return c.snap.Initial
}

func (c *cachedTable) Action(state, symbol string) table.LRAction {
	byState, ok := c.snap.Actions[state]
	if !ok {
		return table.LRAction{Type: table.LRError}
	}
	act, ok := byState[symbol]
	if !ok {
		return table.LRAction{Type: table.LRError}
	}
	return act.toAction()
}

func (c *cachedTable) Goto(state, symbol string) (string, error) {
	next := c.dfa.Next(state, symbol)
	if next == "" {
		return "", fmt.Errorf("GOTO[%q, %q] is an error entry", state, symbol)
	}
	return next, nil
}

func (c *cachedTable) String() string {
	return c.snap.Repr
}

func (c *cachedTable) GetDFA() automaton.DFA[string] {
	return c.dfa
}
