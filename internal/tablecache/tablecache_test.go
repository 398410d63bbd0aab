package tablecache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dekarrin/caper/internal/grammar"
	"github.com/dekarrin/caper/internal/table"
)

func Test_Hash_stableAcrossEqualGrammars(t *testing.T) {
	assert := assert.New(t)

	g1 := grammar.MustParse("S -> C C ; C -> c C | d ;")
	g2 := grammar.MustParse("S -> C C ; C -> c C | d ;")

	assert.Equal(Hash(g1), Hash(g2))
}

func Test_Hash_differsOnDifferentGrammars(t *testing.T) {
	assert := assert.New(t)

	g1 := grammar.MustParse("S -> C C ; C -> c C | d ;")
	g2 := grammar.MustParse("S -> C C ; C -> c C | e ;")

	assert.NotEqual(Hash(g1), Hash(g2))
}

func Test_StoreLoad_missOnEmptyDir(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	g := grammar.MustParse("S -> C C ; C -> c C | d ;")
	hash := Hash(g)

	cached, ok, err := Load(dir, hash)
	assert.NoError(err)
	assert.False(ok)
	assert.Nil(cached)
}

func Test_StoreLoad_roundTrip(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	g := grammar.MustParse("S -> C C ; C -> c C | d ;")
	hash := Hash(g)

	built, err := table.ConstructLALR1ParseTable(g, nil)
	assert.NoError(err)

	assert.NoError(Store(dir, hash, g, built))

	cached, ok, err := Load(dir, hash)
	assert.NoError(err)
	assert.True(ok)

	assert.Equal(built.Initial(), cached.Initial())
	assert.Equal(built.String(), cached.String())

	initial := built.Initial()
	assert.Equal(built.Action(initial, "c"), cached.Action(initial, "c"))
	assert.Equal(built.Action(initial, "d"), cached.Action(initial, "d"))
}

func Test_StoreLoad_disabledByEmptyDir(t *testing.T) {
	assert := assert.New(t)

	g := grammar.MustParse("S -> C C ; C -> c C | d ;")
	built, err := table.ConstructLALR1ParseTable(g, nil)
	assert.NoError(err)

	assert.NoError(Store("", Hash(g), g, built))

	cached, ok, err := Load("", Hash(g))
	assert.NoError(err)
	assert.False(ok)
	assert.Nil(cached)
}
