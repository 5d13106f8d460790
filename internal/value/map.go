package value

// Map is an insertion-order mapping of string to Value. JSON object key
// order is preserved end to end because the renderer and select() both
// need to reproduce it.
type Map struct {
	keys []string
	vals map[string]Value
}

func (*Map) Kind() Kind { return KindMap }

// NewMap returns an empty Map ready for Set calls.
func NewMap() *Map {
	return &Map{vals: make(map[string]Value)}
}

// Get returns the value at key and whether it was present.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.vals[key]
	return v, ok
}

// Set inserts or overwrites key. Insertion order is preserved on first
// set; overwriting an existing key does not move it.
func (m *Map) Set(key string, v Value) {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

// Keys returns the keys in insertion order. The caller must not mutate it.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return m.keys
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Clone returns a shallow copy (values are not deep-copied; SAOs and
// Values in this model are treated as immutable once constructed).
func (m *Map) Clone() *Map {
	out := NewMap()
	if m == nil {
		return out
	}
	for _, k := range m.keys {
		out.Set(k, m.vals[k])
	}
	return out
}
