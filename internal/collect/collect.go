// Package collect implements the Symbol Collector (spec.md §4.1): it walks
// a grammar AST, accumulates declarations into an Options record, builds
// terminal and nonterminal type tables, and validates that every symbol
// referenced on a rule's right-hand side is declared exactly once.
package collect

import (
	"github.com/dekarrin/caper/internal/ast"
	"github.com/dekarrin/caper/internal/capererr"
	"github.com/dekarrin/caper/internal/grammar"
)

// Options is the recognized configuration of spec.md §6, populated from the
// grammar AST's declarations and, later, defaulted from caper.toml
// (internal/capercfg) for any field left unset here.
type Options struct {
	NamespaceName  string
	TokenPrefix    string
	ExternalToken  bool
	AllowEBNF      bool
	Recovery       bool
	RecoveryToken  string
	AccessModifier string
	DontUseSTL     bool
	DebugParser    bool
}

// Result is the output of the Symbol Collector: populated Options plus the
// type tables keyed by declared symbol name.
type Result struct {
	Options          Options
	TerminalTypes    map[string]grammar.Type
	NonterminalTypes map[string]grammar.Type
}

// Collect walks g's declarations and rule headers (not rule bodies beyond
// name/type/RHS-symbol accounting) and produces a Result, or the first
// capererr it encounters.
//
// Declaration semantics and error kinds are exactly spec.md §4.1's: a
// repeated token or rule name is duplicated_symbol; an RHS item naming a
// symbol absent from both the token table and the rule list is
// undefined_symbol.
func Collect(g ast.Grammar) (Result, error) {
	res := Result{
		Options: Options{
			NamespaceName:  g.Declarations.Namespace,
			TokenPrefix:    g.Declarations.TokenPrefix,
			ExternalToken:  g.Declarations.ExternalToken,
			AllowEBNF:      g.Declarations.AllowEBNF,
			Recovery:       g.Declarations.Recover != "",
			RecoveryToken:  g.Declarations.Recover,
			AccessModifier: g.Declarations.AccessModifier,
			DontUseSTL:     g.Declarations.DontUseSTL,
		},
		TerminalTypes:    map[string]grammar.Type{},
		NonterminalTypes: map[string]grammar.Type{},
	}

	known := map[string]bool{}

	for _, tok := range g.Declarations.Tokens {
		if known[tok.Name] {
			return Result{}, capererr.DuplicatedSymbol(tok.Name)
		}
		known[tok.Name] = true
		res.TerminalTypes[tok.Name] = grammar.Type{Name: tok.Type}
	}

	if g.Declarations.Recover != "" {
		if !known[g.Declarations.Recover] {
			// the recovery terminal must still be declared as a %token; its
			// type is overridden to the $error sentinel regardless of what
			// was declared.
			return Result{}, capererr.UndefinedSymbol(g.Declarations.Recover)
		}
		res.TerminalTypes[g.Declarations.Recover] = grammar.Type{Name: grammar.ErrorType}
	}

	for _, r := range g.Rules {
		if known[r.Name] {
			return Result{}, capererr.DuplicatedSymbol(r.Name)
		}
		known[r.Name] = true
		res.NonterminalTypes[r.Name] = grammar.Type{Name: r.Type}
	}

	unknown := map[string]bool{}
	for _, r := range g.Rules {
		for _, choice := range r.Choices {
			for _, item := range choice.Items {
				if !known[item.Name] {
					unknown[item.Name] = true
				}
			}
		}
	}

	for name := range unknown {
		if !known[name] {
			return Result{}, capererr.UndefinedSymbol(name)
		}
	}

	return res, nil
}
