package value

import "testing"

func TestMapInsertionOrder(t *testing.T) {
	m := NewMap()
	m.Set("b", Int(2))
	m.Set("a", Int(1))
	m.Set("b", Int(99))

	if got := m.Keys(); len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Fatalf("keys = %v, want [b a]", got)
	}
	v, ok := m.Get("b")
	if !ok || v != Int(99) {
		t.Fatalf("m.Get(b) = %v, %v", v, ok)
	}
}

func TestSAOFieldReserved(t *testing.T) {
	o := &SAO{ID: "a", Source: "hr", Types: []string{"person", "employee"}, Fields: NewMap()}
	o.Fields.Set("name", Str("Alice"))

	if got := o.Field(FieldID); got != Str("a") {
		t.Fatalf("id = %v", got)
	}
	if got := o.Field(FieldSource); got != Str("hr") {
		t.Fatalf("source = %v", got)
	}
	types, ok := o.Field(FieldTypes).(List)
	if !ok || len(types) != 2 {
		t.Fatalf("types = %v", o.Field(FieldTypes))
	}
	if got := o.Field("nickname"); !IsAbsorbing(got) {
		t.Fatalf("missing field should be AbsorbingNone, got %v", got)
	}
	if got := o.Field("name"); got != Str("Alice") {
		t.Fatalf("name = %v", got)
	}
}

func TestEqualStrictNoCoercion(t *testing.T) {
	if Equal(Int(1), Float(1)) {
		t.Fatal("int 1 should not equal float 1.0")
	}
	if Equal(Str("1"), Int(1)) {
		t.Fatal("string should not equal number")
	}
	if !Equal(List{Int(1), Str("a")}, List{Int(1), Str("a")}) {
		t.Fatal("elementwise list equality failed")
	}
	if !Equal(Absorbing, Absorbing) {
		t.Fatal("AbsorbingNone should equal itself")
	}
}

func TestObjectGroupingOrderAndLookup(t *testing.T) {
	g := NewObjectGrouping()
	a := &SAO{ID: "a"}
	b := &SAO{ID: "b"}
	c := &SAO{ID: "c"}

	g.Add(GroupKey{Str("x")}, a)
	g.Add(GroupKey{Str("y")}, b)
	g.Add(GroupKey{Str("x")}, c)

	keys := g.Keys()
	if len(keys) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(keys))
	}
	if keys[0][0] != Str("x") || keys[1][0] != Str("y") {
		t.Fatalf("groups out of insertion order: %v", keys)
	}
	members := g.Group(GroupKey{Str("x")})
	if members.Len() != 2 || members.Items[0] != a || members.Items[1] != c {
		t.Fatalf("group x members = %v", members)
	}
}
