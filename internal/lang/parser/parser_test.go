package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/saq/internal/value"
)

func TestParseIdentifierDesugarsToTypeFilter(t *testing.T) {
	c, err := Parse("person")
	require.NoError(t, err)
	require.Len(t, c.Steps, 1)
	assert.Equal(t, value.OpFilter, c.Steps[0].Op)

	pred := c.Steps[0].Args[0]
	require.Len(t, pred.Steps, 2)
	assert.Equal(t, value.OpGetField, pred.Steps[0].Op)
	assert.Equal(t, value.OpContains, pred.Steps[1].Op)
}

func TestParseIDRefDesugarsToAnchoredRegex(t *testing.T) {
	c, err := Parse("#alice")
	require.NoError(t, err)
	pred := c.Steps[0].Args[0]
	require.Len(t, pred.Steps, 2)
	assert.Equal(t, value.OpRegexMatch, pred.Steps[1].Op)
	pattern := pred.Steps[1].Args[0].Steps[0].Literal.(value.Str)
	assert.Equal(t, value.Str("^alice$"), pattern)
}

// The infix "=~" form desugars sequentially rather than as a shared-context
// dual-arg step: regex_match is single-arg, so the left side's steps run
// first and its result feeds the trailing regex_match step as ctx.
func TestParseInfixRegexMatchDesugarsSequentially(t *testing.T) {
	c, err := Parse(".name =~ 'A.*'")
	require.NoError(t, err)
	require.Len(t, c.Steps, 2)
	assert.Equal(t, value.OpGetField, c.Steps[0].Op)
	assert.Equal(t, value.OpRegexMatch, c.Steps[1].Op)
	require.Len(t, c.Steps[1].Args, 1)
	pattern := c.Steps[1].Args[0].Steps[0].Literal.(value.Str)
	assert.Equal(t, value.Str("A.*"), pattern)
}

func TestParseFieldAccess(t *testing.T) {
	c, err := Parse(".name")
	require.NoError(t, err)
	require.Len(t, c.Steps, 1)
	assert.Equal(t, value.OpGetField, c.Steps[0].Op)
}

func TestParsePrecedenceAndOverOr(t *testing.T) {
	c, err := Parse(".a == 1 AND .b == 2 OR .c == 3")
	require.NoError(t, err)
	require.Len(t, c.Steps, 1)
	assert.Equal(t, value.OpOr, c.Steps[0].Op)
	left := c.Steps[0].Args[0]
	require.Len(t, left.Steps, 1)
	assert.Equal(t, value.OpAnd, left.Steps[0].Op)
}

func TestParseNotBindsTighterThanEquals(t *testing.T) {
	c, err := Parse("!.a == true")
	require.NoError(t, err)
	require.Len(t, c.Steps, 1)
	assert.Equal(t, value.OpEquals, c.Steps[0].Op)
	left := c.Steps[0].Args[0]
	assert.Equal(t, value.OpNot, left.Steps[0].Op)
}

func TestParseSelectBraceDesugarsToGetFieldArgs(t *testing.T) {
	c, err := Parse(".select({name, age})")
	require.NoError(t, err)
	require.Len(t, c.Steps, 1)
	require.Len(t, c.Steps[0].Args, 2)
	assert.Equal(t, value.OpGetField, c.Steps[0].Args[0].Steps[0].Op)
}

func TestParseIndexVsFilterInBrackets(t *testing.T) {
	idx, err := Parse("person[0]")
	require.NoError(t, err)
	assert.Equal(t, value.OpIndex, idx.Steps[len(idx.Steps)-1].Op)

	flt, err := Parse("person[.age == 30]")
	require.NoError(t, err)
	assert.Equal(t, value.OpFilter, flt.Steps[len(flt.Steps)-1].Op)
}

// Parsing the same query twice must produce a structurally identical
// chain — the parser has no hidden state that varies run to run.
func TestParseIsDeterministic(t *testing.T) {
	a, err := Parse("person.filter(.age == 30).select({name})")
	require.NoError(t, err)
	b, err := Parse("person.filter(.age == 30).select({name})")
	require.NoError(t, err)
	assert.Equal(t, len(a.Steps), len(b.Steps))
	assert.Equal(t, a.Steps[0].Op, b.Steps[0].Op)
}
