package value

// Reserved SAO attribute names, as they appear on the wire and in queries.
const (
	FieldID     = "__id__"
	FieldSource = "__source__"
	FieldTypes  = "__types__"
)

// SAO is a semantic aggregate object: a map carrying the three reserved
// identity attributes plus arbitrary user fields. SAOs are immutable once
// constructed; the store never mutates one in place.
type SAO struct {
	ID     string
	Source string
	Types  []string
	Fields *Map // user fields only; reserved keys are never stored here
}

func (*SAO) Kind() Kind { return KindSAO }

// HasType reports whether t is one of the SAO's declared types.
func (o *SAO) HasType(t string) bool {
	for _, ot := range o.Types {
		if ot == t {
			return true
		}
	}
	return false
}

// Field resolves a field name against the SAO, checking the three
// reserved names first and falling back to user fields. Returns
// AbsorbingNone if absent.
func (o *SAO) Field(name string) Value {
	switch name {
	case FieldID:
		return Str(o.ID)
	case FieldSource:
		return Str(o.Source)
	case FieldTypes:
		types := make(List, len(o.Types))
		for i, t := range o.Types {
			types[i] = Str(t)
		}
		return types
	default:
		if v, ok := o.Fields.Get(name); ok {
			return v
		}
		return Absorbing
	}
}

// Select returns a shallow copy of o retaining only the named user
// fields, plus the three reserved attributes (always retained).
func (o *SAO) Select(fields []string) *SAO {
	out := NewMap()
	for _, f := range fields {
		if v, ok := o.Fields.Get(f); ok {
			out.Set(f, v)
		}
	}
	return &SAO{ID: o.ID, Source: o.Source, Types: append([]string(nil), o.Types...), Fields: out}
}

// Key is the fully qualified identity (type, id, source) used by the
// store's primary index. Type is the caller-supplied lookup type, not
// necessarily Types[0].
type Key struct {
	Type   string
	ID     string
	Source string
}

// LogicalKey is the (type, id) pair identifying a CSAO across sources.
type LogicalKey struct {
	Type string
	ID   string
}
