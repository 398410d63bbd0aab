// Package build implements the Grammar Builder (spec.md §4.3): it lowers a
// grammar AST (already walked by internal/collect) into an
// internal/grammar.Grammar, resolving each rule element to a terminal or
// nonterminal, minting extended nonterminals for EBNF-suffixed elements,
// binding semantic-action arguments by slot index, and desugaring pending
// EBNF elements into plain BNF once every user rule has been lowered.
package build

import (
	"github.com/dekarrin/caper/internal/ast"
	"github.com/dekarrin/caper/internal/capererr"
	"github.com/dekarrin/caper/internal/collect"
	"github.com/dekarrin/caper/internal/grammar"
)

// pending records one EBNF-suffixed element awaiting desugaring, collected
// during rule lowering and expanded only after every user rule has been
// walked (spec.md §9 "Pending EBNF list").
type pending struct {
	extendedName string
	ext          grammar.Extension
	elementName  string
	elementType  grammar.Type
}

// Build lowers g into a grammar.Grammar using the type tables and options
// collect.Collect already validated. It returns capererr values for every
// violation named in spec.md §4.2 and §4.3.
func Build(g ast.Grammar, opts collect.Options, terminalTypes, nonterminalTypes map[string]grammar.Type) (grammar.Grammar, error) {
	b := &builder{
		g:           grammar.Grammar{},
		allowEBNF:   opts.AllowEBNF,
		termTypes:   terminalTypes,
		ntTypes:     nonterminalTypes,
	}

	for name, t := range terminalTypes {
		b.g.AddTerm(name, t)
	}
	if opts.Recovery {
		b.g.MarkRecovery(opts.RecoveryToken)
	}
	if len(g.Rules) > 0 {
		b.g.Start = g.Rules[0].Name
	}

	for _, r := range g.Rules {
		if err := b.lowerRule(r); err != nil {
			return grammar.Grammar{}, err
		}
	}

	if err := b.desugarPending(); err != nil {
		return grammar.Grammar{}, err
	}

	return b.g, nil
}

type builder struct {
	g         grammar.Grammar
	allowEBNF bool
	termTypes map[string]grammar.Type
	ntTypes   map[string]grammar.Type
	pending   []pending
}

func (b *builder) extensionOf(e ast.Extension) grammar.Extension {
	switch e {
	case ast.ExtStar:
		return grammar.ExtStar
	case ast.ExtPlus:
		return grammar.ExtPlus
	case ast.ExtQuestion:
		return grammar.ExtQuestion
	case ast.ExtSlash:
		return grammar.ExtSlash
	default:
		return grammar.ExtNone
	}
}

func (b *builder) typeOf(name string) (grammar.Type, bool) {
	if t, ok := b.termTypes[name]; ok {
		return t, true
	}
	if t, ok := b.ntTypes[name]; ok {
		return t, true
	}
	return grammar.Type{}, false
}

func (b *builder) lowerRule(r ast.Rule) error {
	for _, choice := range r.Choices {
		right := make([]string, 0, len(choice.Items))
		args := map[int]grammar.Argument{}

		for pos, item := range choice.Items {
			ext := b.extensionOf(item.Extension)

			if ext != grammar.ExtNone && !b.allowEBNF {
				return capererr.UnallowedEBNF(item.Name)
			}

			symName := item.Name
			if ext != grammar.ExtNone {
				symName = b.g.GenerateUniqueName(item.Name)
				elemType, _ := b.typeOf(item.Name)
				b.pending = append(b.pending, pending{
					extendedName: symName,
					ext:          ext,
					elementName:  item.Name,
					elementType:  elemType,
				})
			}
			right = append(right, symName)

			if item.ArgumentIdx >= 0 {
				if _, dup := args[item.ArgumentIdx]; dup {
					return capererr.DuplicatedSemanticActionArgument(choice.Action, item.ArgumentIdx)
				}

				argType, _ := b.typeOf(item.Name)
				if ext != grammar.ExtNone {
					argType = grammar.Type{Name: argType.Name, Extension: ext, SourceName: item.Name}
				} else if b.g.IsTerminal(item.Name) && argType.Name == "" {
					return capererr.UntypedTerminal(item.Name)
				}

				args[item.ArgumentIdx] = grammar.Argument{SourceIndex: pos, Type: argType}
			}
		}

		if len(right) == 0 {
			right = []string{""}
		}

		if b.g.Rule(r.Name).HasProduction(right) {
			return capererr.DuplicatedRule(r.Name, right)
		}

		b.g.AddRule(r.Name, right)

		if choice.Action != "" {
			action, err := assembleAction(choice.Action, args)
			if err != nil {
				return err
			}
			b.g.Actions().Set(grammar.ProdRule{Left: r.Name, Right: grammar.Production(right)}, action)
		}
	}

	b.g.SetNonTerminalType(r.Name, grammar.Type{Name: r.Type})

	return nil
}

// assembleAction orders args by slot index 0..max, enforcing the
// contiguity invariant of spec.md §3/§4.3.
func assembleAction(name string, args map[int]grammar.Argument) (grammar.SemanticAction, error) {
	if len(args) == 0 {
		return grammar.SemanticAction{Name: name}, nil
	}

	max := 0
	for idx := range args {
		if idx > max {
			max = idx
		}
	}

	ordered := make([]grammar.Argument, max+1)
	sourceIndices := make([]int, max+1)
	for i := 0; i <= max; i++ {
		arg, ok := args[i]
		if !ok {
			return grammar.SemanticAction{}, capererr.SkippedSemanticActionArgument(name, i)
		}
		ordered[i] = arg
		sourceIndices[i] = arg.SourceIndex
	}

	return grammar.SemanticAction{
		Name:          name,
		Args:          ordered,
		SourceIndices: sourceIndices,
	}, nil
}

// desugarPending emits the BNF rules for every EBNF-suffixed element
// encountered during lowering, per spec.md §4.3's table:
//
//	+  ->  x -> e | x e
//	*  ->  x -> ε | x e
//	?  ->  x -> ε | e
//	/  ->  x -> e | x DELIM e,  trailing action seq_trail2
func (b *builder) desugarPending() error {
	for _, p := range b.pending {
		b.g.SetNonTerminalType(p.extendedName, grammar.Type{
			Name:       p.elementType.Name,
			Extension:  p.ext,
			SourceName: p.elementName,
		})

		switch p.ext {
		case grammar.ExtPlus:
			b.addSeqRule(p.extendedName, []string{p.elementName}, grammar.ActionSeqHead)
			b.addSeqRule(p.extendedName, []string{p.extendedName, p.elementName}, grammar.ActionSeqTrail)
		case grammar.ExtStar:
			b.addSeqRule(p.extendedName, nil, grammar.ActionSeqHead)
			b.addSeqRule(p.extendedName, []string{p.extendedName, p.elementName}, grammar.ActionSeqTrail)
		case grammar.ExtQuestion:
			b.addSeqRule(p.extendedName, nil, grammar.ActionSeqHead)
			b.addSeqRule(p.extendedName, []string{p.elementName}, grammar.ActionSeqHead)
		case grammar.ExtSlash:
			delim := b.g.GenerateUniqueTerminal(p.elementName + "_delim")
			b.addSeqRule(p.extendedName, []string{p.elementName}, grammar.ActionSeqHead)
			b.addSeqRule(p.extendedName, []string{p.extendedName, delim, p.elementName}, grammar.ActionSeqTrail2)
		}
	}

	return nil
}

func (b *builder) addSeqRule(nonterminal string, right []string, action string) {
	if len(right) == 0 {
		right = []string{""}
	}
	b.g.AddRule(nonterminal, right)
	b.g.Actions().Set(grammar.ProdRule{Left: nonterminal, Right: grammar.Production(right)}, grammar.SemanticAction{
		Name:    action,
		Special: true,
	})
}
