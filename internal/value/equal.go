package value

import (
	"fmt"
	"strconv"
)

// Equal compares two values by value, strictly: string vs number is
// always false, collections compare elementwise, and AbsorbingNone
// equals only AbsorbingNone. This is the open-question resolution in
// SPEC_FULL.md §9 — numeric widths never coerce.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Str:
		bv, ok := b.(Str)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case AbsorbingNone:
		_, ok := b.(AbsorbingNone)
		return ok
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *SAO:
		bv, ok := b.(*SAO)
		return ok && av == bv
	case *ObjectList:
		bv, ok := b.(*ObjectList)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for i := range av.Items {
			if av.Items[i] != bv.Items[i] {
				return false
			}
		}
		return true
	case *Map:
		bv, ok := b.(*Map)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, k := range av.Keys() {
			av1, _ := av.Get(k)
			bv1, ok := bv.Get(k)
			if !ok || !Equal(av1, bv1) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// canonicalKey builds a comparable string encoding of a grouping key's
// primitive tuple, tagging each element with its kind so that, e.g., the
// string "1" and the integer 1 never collide.
func canonicalKey(key GroupKey) string {
	out := make([]byte, 0, 16*len(key))
	for _, v := range key {
		out = append(out, tagAndRepr(v)...)
		out = append(out, 0x1f)
	}
	return string(out)
}

func tagAndRepr(v Value) string {
	switch tv := v.(type) {
	case Null:
		return "n:"
	case AbsorbingNone:
		return "a:"
	case Str:
		return "s:" + string(tv)
	case Int:
		return "i:" + strconv.FormatInt(int64(tv), 10)
	case Float:
		return "f:" + strconv.FormatFloat(float64(tv), 'g', -1, 64)
	case Bool:
		return "b:" + strconv.FormatBool(bool(tv))
	default:
		return fmt.Sprintf("?:%v", v)
	}
}
