package grammar

import (
	"testing"

	"github.com/dekarrin/caper/internal/util"
	"github.com/stretchr/testify/assert"
)

func setupGrammar(terminals []string, rules []string) Grammar {
	g := Grammar{}

	for _, term := range terminals {
		g.AddTerm(term, Type{Name: "string"})
	}
	for _, r := range rules {
		parsedRule, err := parseRule(r)
		if err != nil {
			panic(err.Error())
		}
		for _, alts := range parsedRule.Productions {
			g.AddRule(parsedRule.NonTerminal, alts)
		}
	}

	return g
}

func Test_Grammar_Validate(t *testing.T) {
	testCases := []struct {
		name      string
		rules     []Rule
		terminals []string
		expectErr bool
	}{
		{
			name:      "empty grammar",
			expectErr: true,
		},
		{
			name:      "no rules in grammar",
			terminals: []string{"number"},
			expectErr: true,
		},
		{
			name: "no terms in grammar",
			rules: []Rule{{
				NonTerminal: "S",
				Productions: []Production{
					{"S"},
				},
			}},
			expectErr: true,
		},
		{
			name: "single rule grammar",
			rules: []Rule{
				{
					NonTerminal: "S",
					Productions: []Production{
						{"number"},
					},
				},
			},
			terminals: []string{"number"},
		},
		{
			name: "nonterminal referenced but never produced",
			rules: []Rule{
				{
					NonTerminal: "S",
					Productions: []Production{
						{"number", "EXTRA"},
					},
				},
			},
			terminals: []string{"number"},
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			g := Grammar{}
			for _, term := range tc.terminals {
				g.AddTerm(term, Type{Name: "string"})
			}
			for _, r := range tc.rules {
				for _, alts := range r.Productions {
					g.AddRule(r.NonTerminal, alts)
				}
			}

			actual := g.Validate()

			if tc.expectErr {
				assert.Error(actual)
			} else {
				assert.NoError(actual)
			}
		})
	}
}

func Test_Grammar_FIRST(t *testing.T) {
	testCases := []struct {
		name      string
		terminals []string
		rules     []string
		first     string
		expect    []string
	}{
		{
			name: "empty grammar",
			expect: []string{
				Epsilon[0],
			},
		},
		{
			name:      "first and follow sets explained example, T",
			terminals: []string{"p", "g", "b", "a", "q", "s", "d", "f", "m"},
			rules: []string{
				"S -> K L p | g Q K",
				"K -> b L Q T | ε",
				"L -> Q a K | Q K | q a",
				"Q -> d s | ε",
				"T -> g S f | m",
			},
			first: "T",
			expect: []string{
				"g", "m",
			},
		},
		{
			name:      "first and follow sets explained example, Q",
			terminals: []string{"p", "g", "b", "a", "q", "s", "d", "f", "m"},
			rules: []string{
				"S -> K L p | g Q K",
				"K -> b L Q T | ε",
				"L -> Q a K | Q K | q a",
				"Q -> d s | ε",
				"T -> g S f | m",
			},
			first: "Q",
			expect: []string{
				"d", Epsilon[0],
			},
		},
		{
			name:      "first and follow sets explained example, K",
			terminals: []string{"p", "g", "b", "a", "q", "s", "d", "f", "m"},
			rules: []string{
				"S -> K L p | g Q K",
				"K -> b L Q T | ε",
				"L -> Q a K | Q K | q a",
				"Q -> d s | ε",
				"T -> g S f | m",
			},
			first: "K",
			expect: []string{
				"b", Epsilon[0],
			},
		},
		{
			name:      "first and follow sets explained example, S",
			terminals: []string{"p", "g", "b", "a", "q", "s", "d", "f", "m"},
			rules: []string{
				"S -> K L p | g Q K",
				"K -> b L Q T | ε",
				"L -> Q a K | Q K | q a",
				"Q -> d s | ε",
				"T -> g S f | m",
			},
			first: "S",
			expect: []string{
				"b", "d", "q", "a", "p", "g",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			expectMap := map[string]bool{}
			for i := range tc.expect {
				expectMap[tc.expect[i]] = true
			}

			g := setupGrammar(tc.terminals, tc.rules)

			actual := g.FIRST(tc.first)

			assert.Equal(util.OrderedKeys(expectMap), util.OrderedKeys(actual))
		})
	}
}

func Test_Grammar_FOLLOW(t *testing.T) {
	testCases := []struct {
		name      string
		terminals []string
		rules     []string
		follow    string
		expect    []string
	}{
		{
			name:      "example - follow of S is just end of input",
			terminals: []string{"c", "d"},
			rules: []string{
				"S -> C C",
				"C -> c C | d",
			},
			follow: "S",
			expect: []string{"$"},
		},
		{
			name:      "example - follow of C includes c, d, and end of input",
			terminals: []string{"c", "d"},
			rules: []string{
				"S -> C C",
				"C -> c C | d",
			},
			follow: "C",
			expect: []string{"c", "d", "$"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			expectMap := map[string]bool{}
			for i := range tc.expect {
				expectMap[tc.expect[i]] = true
			}

			g := setupGrammar(tc.terminals, tc.rules)

			actual := g.FOLLOW(tc.follow)

			assert.Equal(util.OrderedKeys(expectMap), util.OrderedKeys(actual))
		})
	}
}

func Test_Grammar_Augmented(t *testing.T) {
	assert := assert.New(t)

	g := MustParse(`
		S -> C C ;
		C -> c C | d ;
	`)

	aug := g.Augmented()

	assert.Equal(ImplicitRootName, aug.StartSymbol())
	assert.True(aug.Rule(ImplicitRootName).HasProduction(Production{"S"}))
	// original grammar's own rules are untouched
	assert.Equal("S", g.StartSymbol())
}

func Test_Grammar_MustParse_DSL(t *testing.T) {
	assert := assert.New(t)

	g := MustParse(`
		S -> C C ;
		C -> c C | d ;
	`)

	assert.ElementsMatch([]string{"S", "C"}, g.NonTerminals())
	assert.ElementsMatch([]string{"c", "d"}, g.Terminals())
	assert.NoError(g.Validate())
}

func Test_Grammar_GenerateUniqueName(t *testing.T) {
	assert := assert.New(t)

	g := MustParse(`
		S -> a ;
	`)

	n1 := g.GenerateUniqueName("S")
	g.AddRule(n1, []string{"a"})
	n2 := g.GenerateUniqueName("S")

	assert.NotEqual(n1, n2)
	assert.NotEqual("S", n1)
}

func Test_Grammar_GenerateUniqueTerminal(t *testing.T) {
	assert := assert.New(t)

	g := MustParse(`
		S -> a ;
	`)

	t1 := g.GenerateUniqueTerminal("a")
	assert.NotEqual("a", t1)
}

func Test_Grammar_MarkRecovery(t *testing.T) {
	assert := assert.New(t)

	g := MustParse(`
		S -> a | err ;
	`)
	g.MarkRecovery("err")

	assert.Equal("err", g.RecoverTerminal)
	assert.Equal(1, g.Term("err").ID)
	assert.Equal(ErrorType, g.Term("err").Type.Name)
	assert.True(g.Term("err").Recovery)
}

func Test_Grammar_LR1_CLOSURE(t *testing.T) {
	assert := assert.New(t)

	g := MustParse(`
		S -> C C ;
		C -> c C | d ;
	`).Augmented()

	kernel := util.SVSet[LR1Item]{}
	initial := LR1Item{
		LR0Item:   LR0Item{NonTerminal: g.StartSymbol(), Core: Production{"S"}, Dot: 0},
		Lookahead: "$",
	}
	kernel.Set(initial.String(), initial)

	closure := g.LR1_CLOSURE(kernel)

	// closure of the augmented start item must include the two S -> C C
	// derived items and eventually both C alternatives
	assert.True(closure.Has(MustParseLR1Item("S -> . C C, $").String()))
	assert.True(closure.Has(MustParseLR1Item("C -> . c C, c").String()))
	assert.True(closure.Has(MustParseLR1Item("C -> . d, d").String()))
}
