package grammar

import (
	"fmt"
	"strings"
)

// MustParse parses the textual grammar DSL used by this package's tests, or
// panics. A rule has the form "NONTERM -> SYMBOL SYMBOL | SYMBOL ... ;",
// lower-case symbols are terminals, upper-case symbols are nonterminals, and
// rules are terminated with ";". Every terminal encountered is declared with
// a string type, since the DSL has no syntax for terminal types.
func MustParse(gr string) Grammar {
	g, err := Parse(gr)
	if err != nil {
		panic(err.Error())
	}
	return g
}

// Parse parses the textual grammar DSL described by MustParse.
func Parse(gr string) (Grammar, error) {
	lines := strings.Split(gr, ";")

	var g Grammar
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		rule, err := parseRule(line)
		if err != nil {
			return Grammar{}, err
		}

		for _, p := range rule.Productions {
			for _, sym := range p {
				if sym != "" && strings.ToLower(sym) == sym {
					g.AddTerm(sym, Type{Name: "string"})
				}
			}
			g.AddRule(rule.NonTerminal, p)
		}
	}

	return g, nil
}

func parseRule(r string) (Rule, error) {
	sides := strings.Split(r, "->")
	if len(sides) != 2 {
		return Rule{}, fmt.Errorf("not a rule of form 'NONTERM -> SYMBOL SYMBOL | SYMBOL ...': %q", r)
	}
	nonTerminal := strings.TrimSpace(sides[0])

	if nonTerminal == "" {
		return Rule{}, fmt.Errorf("empty nonterminal name not allowed for production rule")
	}

	for _, ch := range nonTerminal {
		if ('A' > ch || ch > 'Z') && ch != '_' && ch != '-' {
			return Rule{}, fmt.Errorf("invalid nonterminal name %q; must only be chars A-Z, \"_\", or \"-\"", nonTerminal)
		}
	}

	parsedRule := Rule{NonTerminal: nonTerminal}

	productionsString := strings.TrimSpace(sides[1])
	prodStrings := strings.Split(productionsString, "|")
	for _, p := range prodStrings {
		parsedProd := Production{}
		p = strings.TrimSpace(p)
		symbols := strings.Split(p, " ")
		for _, sym := range symbols {
			sym = strings.TrimSpace(sym)

			if sym == "" {
				return Rule{}, fmt.Errorf("empty symbol not allowed")
			}

			if strings.ToLower(sym) == "ε" {
				parsedProd = Epsilon
				continue
			}

			isTerm := strings.ToLower(sym) == sym
			isNonTerm := strings.ToUpper(sym) == sym

			if !isTerm && !isNonTerm {
				return Rule{}, fmt.Errorf("cannot tell if symbol is a terminal or non-terminal: %q", sym)
			}

			for _, ch := range strings.ToLower(sym) {
				if ('a' > ch || ch > 'z') && ch != '_' && ch != '-' {
					return Rule{}, fmt.Errorf("invalid symbol: %q", sym)
				}
			}

			parsedProd = append(parsedProd, sym)
		}

		parsedRule.Productions = append(parsedRule.Productions, parsedProd)
	}

	return parsedRule, nil
}
