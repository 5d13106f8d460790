package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/saq/internal/lang/parser"
	"github.com/oxhq/saq/internal/store"
	"github.com/oxhq/saq/internal/value"
)

func mustParse(t *testing.T, src string) *value.Chain {
	t.Helper()
	c, err := parser.Parse(src)
	require.NoError(t, err)
	return c
}

func TestRewriteTypeConstantUsesIndexLiteral(t *testing.T) {
	s := store.New()
	chain := mustParse(t, "person")
	rewritten := Rewrite(s, chain)

	require.Len(t, rewritten.Steps, 1)
	assert.Equal(t, value.OpLiteral, rewritten.Steps[0].Op)
	_, ok := rewritten.Steps[0].Literal.(*value.ObjectList)
	assert.True(t, ok)
}

func TestRewriteAnchoredIDUsesIndexLiteral(t *testing.T) {
	s := store.New()
	chain := mustParse(t, "#alice")
	rewritten := Rewrite(s, chain)

	require.Len(t, rewritten.Steps, 1)
	assert.Equal(t, value.OpLiteral, rewritten.Steps[0].Op)
}

func TestRewriteLeavesNonIndexableFilterAlone(t *testing.T) {
	s := store.New()
	chain := mustParse(t, "*.filter(.age == 30)")
	rewritten := Rewrite(s, chain)

	require.Len(t, rewritten.Steps, len(chain.Steps))
	assert.Equal(t, value.OpFilter, rewritten.Steps[0].Op)
}
