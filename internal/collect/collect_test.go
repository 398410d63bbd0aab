package collect

import (
	"testing"

	"github.com/dekarrin/caper/internal/ast"
	"github.com/dekarrin/caper/internal/capererr"
	"github.com/stretchr/testify/assert"
)

func Test_Collect(t *testing.T) {
	testCases := []struct {
		name      string
		input     ast.Grammar
		expectErr error
	}{
		{
			name: "simple grammar collects fine",
			input: ast.Grammar{
				Declarations: ast.Declarations{
					Tokens: []ast.TokenDecl{{Name: "a", Type: "int"}},
				},
				Rules: []ast.Rule{
					{
						Name: "S",
						Type: "int",
						Choices: []ast.Choice{
							{Items: []ast.Item{{Name: "a", ArgumentIdx: -1}}},
						},
					},
				},
			},
		},
		{
			name: "duplicate token fails",
			input: ast.Grammar{
				Declarations: ast.Declarations{
					Tokens: []ast.TokenDecl{
						{Name: "a", Type: "int"},
						{Name: "a", Type: "int"},
					},
				},
			},
			expectErr: capererr.ErrDuplicatedSymbol,
		},
		{
			name: "undefined RHS symbol fails",
			input: ast.Grammar{
				Rules: []ast.Rule{
					{
						Name: "S",
						Type: "int",
						Choices: []ast.Choice{
							{Items: []ast.Item{{Name: "B", ArgumentIdx: -1}}},
						},
					},
				},
			},
			expectErr: capererr.ErrUndefinedSymbol,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			_, err := Collect(tc.input)

			if tc.expectErr != nil {
				assert.ErrorIs(err, tc.expectErr)
			} else {
				assert.NoError(err)
			}
		})
	}
}
