// Package value implements the tagged-sum value model that flows through
// every layer of the query engine: the parser produces Chain values, the
// operator runtime consumes and produces all the other kinds, and the
// renderer formats whatever comes out the other end.
//
// Dispatch is by Kind, matched with a type switch at call sites, rather
// than by a closed set of methods on Value — this keeps each operator's
// logic next to the kind it cares about instead of spread across a dozen
// small interface implementations.
package value

import "fmt"

// Kind tags the dynamic type of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindList
	KindMap
	KindSAO
	KindObjectList
	KindObjectGrouping
	KindChain
	KindAbsorbingNone
	KindLink
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindSAO:
		return "sao"
	case KindObjectList:
		return "object_list"
	case KindObjectGrouping:
		return "object_grouping"
	case KindChain:
		return "chain"
	case KindAbsorbingNone:
		return "absorbing_none"
	case KindLink:
		return "link"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is the closed sum every operator and store cell operates over.
type Value interface {
	Kind() Kind
}

// Null is the JSON null primitive, distinct from AbsorbingNone: a field
// that is present but null is Null; a field that is absent is
// AbsorbingNone.
type Null struct{}

func (Null) Kind() Kind { return KindNull }

// Str is the string primitive.
type Str string

func (Str) Kind() Kind { return KindString }

// Int is the signed 64-bit integer primitive.
type Int int64

func (Int) Kind() Kind { return KindInt }

// Float is the IEEE-754 double primitive.
type Float float64

func (Float) Kind() Kind { return KindFloat }

// Bool is the boolean primitive.
type Bool bool

func (Bool) Kind() Kind { return KindBool }

// List is an ordered, finite sequence of values.
type List []Value

func (List) Kind() Kind { return KindList }

// AbsorbingNone is the sentinel "missing" value. Every scalar operator
// propagates it unchanged; iterating operators (filter, select,
// grouped_filter) skip it instead of aborting.
type AbsorbingNone struct{}

func (AbsorbingNone) Kind() Kind { return KindAbsorbingNone }

// Absorbing is the single shared AbsorbingNone instance.
var Absorbing = AbsorbingNone{}

// IsAbsorbing reports whether v is the AbsorbingNone sentinel.
func IsAbsorbing(v Value) bool {
	_, ok := v.(AbsorbingNone)
	return ok
}

// Link is an unresolved cross-provider reference stored in an SAO field:
// a query chain to run against the store root, plus an optional display
// label. get_field resolves it lazily, the first time a query traverses
// the field — it is never resolved eagerly by the store or the poller.
// QueryText is kept alongside the parsed Query so link-cycle detection
// can key on it without re-rendering the chain.
type Link struct {
	QueryText string
	Query     *Chain
	Label     string
}

func (Link) Kind() Kind { return KindLink }
