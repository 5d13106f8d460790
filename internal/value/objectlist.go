package value

// ObjectList is an ordered, finite collection of SAOs — the primary
// collection type the operator runtime scans and filters.
type ObjectList struct {
	Items []*SAO
}

func (*ObjectList) Kind() Kind { return KindObjectList }

// NewObjectList builds an ObjectList from a slice, taking ownership of it.
func NewObjectList(items []*SAO) *ObjectList {
	return &ObjectList{Items: items}
}

// Len returns the number of elements.
func (l *ObjectList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Items)
}

// ObjectGrouping maps a grouping key (a tuple of primitive values) to the
// ObjectList of members sharing that key. Insertion order of keys is
// preserved (first SAO seen for a given key determines its position).
type ObjectGrouping struct {
	order   []string
	keyVals map[string]GroupKey
	lists   map[string]*ObjectList
}

func (*ObjectGrouping) Kind() Kind { return KindObjectGrouping }

// GroupKey is a tuple of primitive values used as a grouping key.
type GroupKey []Value

// NewObjectGrouping returns an empty grouping.
func NewObjectGrouping() *ObjectGrouping {
	return &ObjectGrouping{
		keyVals: make(map[string]GroupKey),
		lists:   make(map[string]*ObjectList),
	}
}

// Add appends sao to the group identified by key, creating the group if
// this is the first member seen for it.
func (g *ObjectGrouping) Add(key GroupKey, sao *SAO) {
	ck := canonicalKey(key)
	if _, ok := g.lists[ck]; !ok {
		g.order = append(g.order, ck)
		g.keyVals[ck] = key
		g.lists[ck] = &ObjectList{}
	}
	g.lists[ck].Items = append(g.lists[ck].Items, sao)
}

// Keys returns the grouping keys in first-seen order.
func (g *ObjectGrouping) Keys() []GroupKey {
	out := make([]GroupKey, 0, len(g.order))
	for _, ck := range g.order {
		out = append(out, g.keyVals[ck])
	}
	return out
}

// Group returns the member list for key, or nil if absent.
func (g *ObjectGrouping) Group(key GroupKey) *ObjectList {
	return g.lists[canonicalKey(key)]
}

// Each calls fn for every group in first-seen order.
func (g *ObjectGrouping) Each(fn func(key GroupKey, members *ObjectList)) {
	for _, ck := range g.order {
		fn(g.keyVals[ck], g.lists[ck])
	}
}

// Len returns the number of distinct groups.
func (g *ObjectGrouping) Len() int {
	if g == nil {
		return 0
	}
	return len(g.order)
}
