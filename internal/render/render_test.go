package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oxhq/saq/internal/value"
)

func TestRenderPrimitives(t *testing.T) {
	assert.Equal(t, "42", Render(value.Int(42)))
	assert.Equal(t, "true", Render(value.Bool(true)))
	assert.Equal(t, "<none>", Render(value.Absorbing))
	assert.Equal(t, `"hi"`, Render(value.Str("hi")))
}

func TestRenderSingleSAO(t *testing.T) {
	m := value.NewMap()
	m.Set("name", value.Str("Alice"))
	o := &value.SAO{ID: "alice", Source: "hr", Types: []string{"person"}, Fields: m}
	out := Render(o)
	assert.True(t, strings.Contains(out, "alice (person @hr)"))
	assert.True(t, strings.Contains(out, "name"))
}

func TestRenderObjectListGroupsMultiSourceByLogicalID(t *testing.T) {
	m1 := value.NewMap()
	m2 := value.NewMap()
	a := &value.SAO{ID: "alice", Source: "hr", Types: []string{"person"}, Fields: m1}
	b := &value.SAO{ID: "alice", Source: "directory", Types: []string{"person"}, Fields: m2}
	out := Render(&value.ObjectList{Items: []*value.SAO{a, b}})
	assert.True(t, strings.Contains(out, "2 sources"))
}

func TestRenderObjectListAcrossIDsOneLinePerSAO(t *testing.T) {
	m1 := value.NewMap()
	m2 := value.NewMap()
	a := &value.SAO{ID: "alice", Source: "hr", Types: []string{"person"}, Fields: m1}
	b := &value.SAO{ID: "bob", Source: "hr", Types: []string{"person"}, Fields: m2}
	out := Render(&value.ObjectList{Items: []*value.SAO{a, b}})
	assert.True(t, strings.Contains(out, "person#alice@hr"))
	assert.True(t, strings.Contains(out, "person#bob@hr"))
	assert.False(t, strings.Contains(out, "sources"))
}

func TestRenderEmptyObjectList(t *testing.T) {
	assert.Equal(t, "(empty)", Render(&value.ObjectList{}))
}
