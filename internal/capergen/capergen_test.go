package capergen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dekarrin/caper/internal/ast"
	"github.com/dekarrin/caper/internal/capercfg"
	"github.com/dekarrin/caper/internal/capererr"
)

func simpleGrammar() ast.Grammar {
	return ast.Grammar{
		Declarations: ast.Declarations{
			Tokens: []ast.TokenDecl{
				{Name: "c", Type: "int"},
				{Name: "d", Type: "int"},
			},
		},
		Rules: []ast.Rule{
			{
				Name: "S",
				Type: "int",
				Choices: []ast.Choice{
					{Items: []ast.Item{{Name: "C", ArgumentIdx: 0}, {Name: "C", ArgumentIdx: 1}}, Action: "mk"},
				},
			},
			{
				Name: "C",
				Type: "int",
				Choices: []ast.Choice{
					{Items: []ast.Item{{Name: "c", ArgumentIdx: 0}, {Name: "C", ArgumentIdx: 1}}, Action: "mk"},
					{Items: []ast.Item{{Name: "d", ArgumentIdx: 0}}, Action: "mk"},
				},
			},
		},
	}
}

func Test_Generate_producesCompilableLookingSource(t *testing.T) {
	assert := assert.New(t)

	res, err := Generate(simpleGrammar(), capercfg.Default(), Options{PackageName: "genparser"})
	assert.NoError(err)
	assert.Contains(string(res.Source), "package genparser")
	assert.Contains(string(res.Source), "func NewParser(")
	assert.Contains(string(res.Source), "func (p *Parser) Post(")
}

func Test_Generate_cachesTableAcrossRuns(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	cfg := capercfg.Default()
	cfg.CacheDir = dir

	first, err := Generate(simpleGrammar(), cfg, Options{PackageName: "genparser"})
	assert.NoError(err)

	second, err := Generate(simpleGrammar(), cfg, Options{PackageName: "genparser"})
	assert.NoError(err)

	assert.Equal(string(first.Source), string(second.Source))
}

func Test_Generate_invalidGrammarFails(t *testing.T) {
	assert := assert.New(t)

	bad := ast.Grammar{
		Rules: []ast.Rule{
			{
				Name: "S",
				Choices: []ast.Choice{
					{Items: []ast.Item{{Name: "undeclared", ArgumentIdx: 0}}, Action: "mk"},
				},
			},
		},
	}

	_, err := Generate(bad, capercfg.Default(), Options{})
	assert.ErrorIs(err, capererr.ErrUndefinedSymbol)
}
