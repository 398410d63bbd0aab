package table

import (
	"testing"

	"github.com/dekarrin/caper/internal/grammar"
	"github.com/stretchr/testify/assert"
)

func Test_ConstructLALR1ParseTable(t *testing.T) {
	testCases := []struct {
		name      string
		grammar   string
		expect    string
		expectErr bool
	}{
		{
			name: "purple dragon LALR(1) example grammar 4.55",
			grammar: `
				S -> C C ;
				C -> c C | d ;
			`,
			expect: `S  |  A:c        A:d        A:$        |  G:C  G:S
--------------------------------------------------
0  |  s2         s5                    |  3    1
1  |                        acc        |
2  |  s2         s5                    |  4
3  |  s2         s5                    |  6
4  |  rC -> c C  rC -> c C  rC -> c C  |
5  |  rC -> d    rC -> d    rC -> d    |
6  |                        rS -> C C  |          `,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// setup
			assert := assert.New(t)
			g := grammar.MustParse(tc.grammar)

			// execute
			actual, err := ConstructLALR1ParseTable(g, nil)

			// assert
			if tc.expectErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(tc.expect, actual.String())
		})
	}
}

func Test_ConstructLALR1ParseTable_reportsConflicts(t *testing.T) {
	assert := assert.New(t)

	// the dangling-else grammar: classic shift/reduce conflict, resolved by
	// preferring shift.
	g := grammar.MustParse(`
		S -> if S | if S else S | other ;
	`)

	var conflicts []Conflict
	_, err := ConstructLALR1ParseTable(g, func(c Conflict) {
		conflicts = append(conflicts, c)
	})

	assert.NoError(err)
	assert.NotEmpty(conflicts, "expected the dangling-else conflict to be reported")
	for _, c := range conflicts {
		assert.Equal(LRShift, c.Chosen.Type, "shift must win over reduce")
	}
}
