package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/saq/internal/value"
)

func sao(id, source string, types []string, fields map[string]value.Value) *value.SAO {
	m := value.NewMap()
	for k, v := range fields {
		m.Set(k, v)
	}
	return &value.SAO{ID: id, Source: source, Types: types, Fields: m}
}

func TestIndexConsistency(t *testing.T) {
	s := New()
	a := sao("a", "hr", []string{"person", "employee"}, map[string]value.Value{"name": value.Str("Alice")})
	b := sao("b", "hr", []string{"person", "employee"}, map[string]value.Value{"name": value.Str("Bob")})
	c := sao("c", "hr", []string{"person"}, map[string]value.Value{"name": value.Str("Carol")})
	s.ReplaceProvider("hr", []*value.SAO{a, b, c})

	require.Equal(t, 3, s.ByType("person").Len())
	require.Equal(t, 2, s.ByType("employee").Len())
	require.Equal(t, 0, s.ByType("nonexistent").Len())

	require.Equal(t, 1, s.ByID("a").Len())
	require.Equal(t, 1, s.ByLogical("person", "a").Len())

	got, ok := s.ByKey("person", "a", "hr")
	require.True(t, ok)
	assert.Same(t, a, got)
}

func TestDuplicateSAOCollapses(t *testing.T) {
	s := New()
	a := sao("a", "hr", []string{"person"}, nil)
	s.ReplaceProvider("hr", []*value.SAO{a, a})

	assert.Equal(t, 1, s.ByType("person").Len())
}

func TestReplaceProviderIsAtomicAcrossProviders(t *testing.T) {
	s := New()
	s.ReplaceProvider("hr", []*value.SAO{sao("a", "hr", []string{"person"}, nil)})
	s.ReplaceProvider("finance", []*value.SAO{sao("x", "finance", []string{"invoice"}, nil)})

	assert.Equal(t, 1, s.ByType("person").Len())
	assert.Equal(t, 1, s.ByType("invoice").Len())
	assert.Equal(t, 2, s.All().Len())

	// Refreshing one provider must not disturb the other's contribution.
	s.ReplaceProvider("hr", []*value.SAO{sao("a2", "hr", []string{"person"}, nil)})
	assert.Equal(t, 1, s.ByType("person").Len())
	assert.Equal(t, 1, s.ByType("invoice").Len())
}

func TestClearProviderDegradesToEmpty(t *testing.T) {
	s := New()
	s.ReplaceProvider("hr", []*value.SAO{sao("a", "hr", []string{"person"}, nil)})
	require.Equal(t, 1, s.ByType("person").Len())

	s.ClearProvider("hr")
	assert.Equal(t, 0, s.ByType("person").Len())
}

func TestImmutabilitySnapshotNotMutatedByQueries(t *testing.T) {
	s := New()
	a := sao("a", "hr", []string{"person"}, map[string]value.Value{"name": value.Str("Alice")})
	s.ReplaceProvider("hr", []*value.SAO{a})

	list := s.ByType("person")
	list.Items[0] = nil // mutate the returned copy

	// The store's own index must be unaffected since ByType returns a copy.
	list2 := s.ByType("person")
	require.Equal(t, 1, list2.Len())
	assert.NotNil(t, list2.Items[0])
	assert.Same(t, a, list2.Items[0])
}
