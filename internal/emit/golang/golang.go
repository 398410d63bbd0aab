// Package golang renders an emit.Plan into a single Go source file
// implementing the Parser shape of spec.md §4.5: a Token enum (unless
// Options.ExternalToken), a Stack type (dynamic or bulk-memory per
// Options.DontUseSTL, spec.md §9/SPEC_FULL.md §12), the Parser itself, and
// the data tables its dispatch loop drives itself with.
package golang

import (
	"bytes"
	"fmt"
	"go/format"
	"sort"
	"text/template"

	"github.com/dekarrin/caper/internal/emit"
	"github.com/dekarrin/caper/internal/grammar"
	"github.com/dekarrin/caper/internal/table"
	"github.com/dekarrin/caper/internal/util"
)

// Render produces formatted Go source implementing plan. The returned bytes
// are always gofmt-clean; a malformed plan produces a Go syntax error from
// go/format rather than a silently broken file.
func Render(plan emit.Plan) ([]byte, error) {
	data, err := buildTemplateData(plan)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New("parser").Funcs(templateFuncs).Parse(parserTemplate)
	if err != nil {
		return nil, fmt.Errorf("internal template error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing parser template: %w", err)
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("formatting generated source (generator bug): %w\n%s", err, buf.String())
	}

	return formatted, nil
}

var templateFuncs = template.FuncMap{
	"add": func(a, b int) int { return a + b },
}

type tokenData struct {
	Name   string
	GoName string
	ID     int
}

type ruleData struct {
	ID            int
	LHS           string
	Length        int
	ActionName    string
	ActionMethod  string
	HasAction     bool
	Special       bool
	SourceIndices []int
	HasExtArg     bool
}

type stateData struct {
	Index       int
	Actions     []stateActionData
	Gotos       []stateGotoData
	HandleError bool
}

type stateActionData struct {
	Token  int
	Kind   string // "shift", "reduce", "accept"
	Dest   int    // shift destination state index
	RuleID int    // reduce rule index
}

type stateGotoData struct {
	NonTerm string
	Dest    int
}

type templateData struct {
	PackageName    string
	ExternalToken  bool
	DontUseSTL     bool
	Recovery       bool
	RecoveryToken  string
	RecoveryTokGo  string
	StartType      string
	Tokens         []tokenData
	Rules          []ruleData
	ActionMethods  []string
	States         []stateData
	InitialState   int
	NumStates      int
}

func goIdent(s string) string {
	out := make([]rune, 0, len(s))
	upperNext := true
	for _, r := range s {
		switch {
		case r == '_' || r == '-' || r == '$':
			upperNext = true
		case upperNext:
			out = append(out, toUpper(r))
			upperNext = false
		default:
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return "X"
	}
	return string(out)
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}

// buildTemplateData flattens plan's grammar/table/actions into the
// straightforward, already-ordered data the template ranges over; all
// table lookups happen here so the template itself does no grammar-aware
// reasoning.
func buildTemplateData(plan emit.Plan) (templateData, error) {
	g := plan.Grammar
	aug := g.Augmented()
	lrTable := plan.Table

	data := templateData{
		PackageName:   plan.PackageName,
		ExternalToken: plan.Options.ExternalToken,
		DontUseSTL:    plan.Options.DontUseSTL,
		Recovery:      plan.Options.Recovery,
		RecoveryToken: plan.Options.RecoveryToken,
		StartType:     "Value",
	}
	if data.PackageName == "" {
		data.PackageName = "parser"
	}
	if data.Recovery {
		data.RecoveryTokGo = goIdent(plan.Options.RecoveryToken)
	}

	// --- tokens, ordered by id; id 0 is eof, which has no grammar.Terminal ---
	terms := plan.Terminals()
	data.Tokens = append(data.Tokens, tokenData{Name: "$", GoName: "EOF", ID: 0})
	for _, term := range terms {
		data.Tokens = append(data.Tokens, tokenData{Name: term.Name, GoName: goIdent(term.Name), ID: term.ID})
	}

	// --- rules, in the same order table.ConstructLALR1ParseTable ranks
	// productions by (see table.declarationOrder: nonterminals alphabetically,
	// then each one's alternatives as declared): this lets a
	// reduce action's (Symbol, Production) pair be mapped back to a rule id
	// by recomputing the identical ordering here. ---
	ruleIndex := map[string]int{}
	actionMethodSeen := map[string]bool{}

	rank := 0
	for _, nt := range g.NonTerminals() {
		rule := g.Rule(nt)
		for _, prod := range rule.Productions {
			key := nt + " -> " + prod.String()
			ruleIndex[key] = rank

			rd := ruleData{ID: rank, LHS: nt, Length: len(prod)}
			if prod.Equal(grammar.Epsilon) {
				rd.Length = 0
			}

			if act, ok := plan.Actions.Get(grammar.ProdRule{Left: nt, Right: prod}); ok {
				rd.HasAction = true
				rd.ActionName = act.Name
				rd.Special = act.Special
				rd.ActionMethod = goIdent(act.Name)
				rd.SourceIndices = act.SourceIndices
				for _, arg := range act.Args {
					if arg.Type.Extension != grammar.ExtNone {
						rd.HasExtArg = true
					}
				}
				if !actionMethodSeen[rd.ActionMethod] {
					actionMethodSeen[rd.ActionMethod] = true
					data.ActionMethods = append(data.ActionMethods, rd.ActionMethod)
				}
			}

			data.Rules = append(data.Rules, rd)
			rank++
		}
	}
	data.ActionMethods = util.Alphabetized(data.ActionMethods)

	// --- states ---
	stateNames := lrTable.GetDFA().States().Elements()
	sort.Strings(stateNames)
	initial := lrTable.Initial()
	for i, n := range stateNames {
		if n == initial {
			stateNames[0], stateNames[i] = stateNames[i], stateNames[0]
			break
		}
	}
	stateIndex := map[string]int{}
	for i, n := range stateNames {
		stateIndex[n] = i
	}
	data.InitialState = stateIndex[initial]
	data.NumStates = len(stateNames)

	allTerms := make([]string, 0, len(terms)+1)
	for _, t := range terms {
		allTerms = append(allTerms, t.Name)
	}
	allTerms = append(allTerms, "$")

	for i, n := range stateNames {
		sd := stateData{Index: i}

		for _, termName := range allTerms {
			act := lrTable.Action(n, termName)
			tokID := 0
			for _, tok := range data.Tokens {
				if tok.Name == termName {
					tokID = tok.ID
					break
				}
			}

			switch act.Type {
			case table.LRShift:
				if dest, ok := stateIndex[act.State]; ok {
					sd.Actions = append(sd.Actions, stateActionData{Token: tokID, Kind: "shift", Dest: dest})
				}
				if data.Recovery && termName == plan.Options.RecoveryToken {
					sd.HandleError = true
				}
			case table.LRReduce:
				key := act.Symbol + " -> " + act.Production.String()
				if rid, ok := ruleIndex[key]; ok {
					sd.Actions = append(sd.Actions, stateActionData{Token: tokID, Kind: "reduce", RuleID: rid})
				}
			case table.LRAccept:
				sd.Actions = append(sd.Actions, stateActionData{Token: tokID, Kind: "accept"})
			}
		}

		for _, nt := range aug.NonTerminals() {
			if dest, err := lrTable.Goto(n, nt); err == nil {
				if idx, ok := stateIndex[dest]; ok {
					sd.Gotos = append(sd.Gotos, stateGotoData{NonTerm: nt, Dest: idx})
				}
			}
		}

		data.States = append(data.States, sd)
	}

	return data, nil
}
