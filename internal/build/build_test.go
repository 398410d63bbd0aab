package build

import (
	"testing"

	"github.com/dekarrin/caper/internal/ast"
	"github.com/dekarrin/caper/internal/collect"
	"github.com/dekarrin/caper/internal/grammar"
	"github.com/stretchr/testify/assert"
)

func Test_Build_simpleRule(t *testing.T) {
	assert := assert.New(t)

	in := ast.Grammar{
		Declarations: ast.Declarations{
			Tokens: []ast.TokenDecl{{Name: "a", Type: "int"}},
		},
		Rules: []ast.Rule{
			{
				Name: "S",
				Type: "int",
				Choices: []ast.Choice{
					{Items: []ast.Item{{Name: "a", ArgumentIdx: 0}}, Action: "id"},
				},
			},
		},
	}

	coll, err := collect.Collect(in)
	assert.NoError(err)

	g, err := Build(in, coll.Options, coll.TerminalTypes, coll.NonterminalTypes)
	assert.NoError(err)

	sRule := g.Rule("S")
	assert.True(sRule.HasProduction(grammar.Production{"a"}))

	action, ok := g.Actions().Get(grammar.ProdRule{Left: "S", Right: grammar.Production{"a"}})
	assert.True(ok)
	assert.Equal("id", action.Name)
	assert.Equal([]int{0}, action.SourceIndices)
}

func Test_Build_EBNFStar(t *testing.T) {
	assert := assert.New(t)

	in := ast.Grammar{
		Declarations: ast.Declarations{
			Tokens:    []ast.TokenDecl{{Name: "elt", Type: "int"}},
			AllowEBNF: true,
		},
		Rules: []ast.Rule{
			{
				Name: "LIST",
				Type: "seq",
				Choices: []ast.Choice{
					{Items: []ast.Item{{Name: "elt", Extension: ast.ExtStar, ArgumentIdx: 0}}, Action: "mk"},
				},
			},
		},
	}

	coll, err := collect.Collect(in)
	assert.NoError(err)

	g, err := Build(in, coll.Options, coll.TerminalTypes, coll.NonterminalTypes)
	assert.NoError(err)

	listRule := g.Rule("LIST")
	assert.Len(listRule.Productions, 1)

	// the synthesized sequence nonterminal has both the epsilon base case
	// and the recursive case.
	seqName := listRule.Productions[0][0]
	seqRule := g.Rule(seqName)
	assert.True(seqRule.HasProduction(grammar.Epsilon))
	assert.True(seqRule.HasProduction(grammar.Production{seqName, "elt"}))
}

func Test_Build_EBNFWithoutAllowFails(t *testing.T) {
	assert := assert.New(t)

	in := ast.Grammar{
		Declarations: ast.Declarations{
			Tokens: []ast.TokenDecl{{Name: "elt", Type: "int"}},
		},
		Rules: []ast.Rule{
			{
				Name: "LIST",
				Type: "seq",
				Choices: []ast.Choice{
					{Items: []ast.Item{{Name: "elt", Extension: ast.ExtStar, ArgumentIdx: 0}}, Action: "mk"},
				},
			},
		},
	}

	coll, err := collect.Collect(in)
	assert.NoError(err)

	_, err = Build(in, coll.Options, coll.TerminalTypes, coll.NonterminalTypes)
	assert.Error(err)
}

func Test_Build_ArgumentGapFails(t *testing.T) {
	assert := assert.New(t)

	in := ast.Grammar{
		Declarations: ast.Declarations{
			Tokens: []ast.TokenDecl{{Name: "a", Type: "int"}, {Name: "b", Type: "int"}},
		},
		Rules: []ast.Rule{
			{
				Name: "S",
				Type: "int",
				Choices: []ast.Choice{
					{Items: []ast.Item{
						{Name: "a", ArgumentIdx: 0},
						{Name: "b", ArgumentIdx: 2},
					}, Action: "f"},
				},
			},
		},
	}

	coll, err := collect.Collect(in)
	assert.NoError(err)

	_, err = Build(in, coll.Options, coll.TerminalTypes, coll.NonterminalTypes)
	assert.Error(err)
}
