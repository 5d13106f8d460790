package engine

import (
	"regexp"

	"github.com/oxhq/saq/internal/value"
)

type opFunc func(e *Engine, step *value.Step, ctx value.Value, st *evalState) (value.Value, error)

type operator struct {
	arity int // -1 means variadic / not arity-checked here
	fn    opFunc
}

var operators map[string]operator

func init() {
	operators = map[string]operator{
		value.OpGetField:    {1, opGetField},
		value.OpFilter:      {1, opFilter},
		value.OpSelect:      {-1, opSelect},
		value.OpCount:       {0, opCount},
		value.OpEquals:      {2, opEquals},
		value.OpAnd:         {2, opAnd},
		value.OpOr:          {2, opOr},
		value.OpNot:         {1, opNot},
		value.OpContains:    {1, opContains},
		value.OpRegexMatch:  {1, opRegexMatch},
		value.OpLowest:      {1, opLowest},
		value.OpGroupedLow:  {2, opGroupedLowest},
		value.OpGroupedFltr: {2, opGroupedFilter},
		value.OpSingle:      {0, opSingle},
		value.OpValue:       {0, opValue},
		value.OpIndex:       {0, opIndex},
		value.OpKeys:        {0, opKeys},
		value.OpSourceOf:    {0, opSourceOf},
	}
}

func opGetField(e *Engine, step *value.Step, ctx value.Value, st *evalState) (value.Value, error) {
	name, err := e.evalArg(step.Args[0], ctx, st)
	if err != nil {
		return nil, err
	}
	fieldName, ok := name.(value.Str)
	if !ok {
		return nil, &TypeError{Operator: value.OpGetField, Expected: "string", Got: name.Kind().String(), Pos: step.Pos}
	}

	switch c := ctx.(type) {
	case *value.SAO:
		return getFieldResolved(e, c.Field(string(fieldName)), st)
	case *value.Map:
		v, found := c.Get(string(fieldName))
		if !found {
			return value.Absorbing, nil
		}
		return getFieldResolved(e, v, st)
	case *value.ObjectList:
		out := make(value.List, 0, c.Len())
		for _, item := range c.Items {
			v, err := getFieldResolved(e, item.Field(string(fieldName)), st)
			if err != nil {
				return nil, err
			}
			if value.IsAbsorbing(v) {
				continue
			}
			out = append(out, v)
		}
		return out, nil
	default:
		return nil, &TypeError{Operator: value.OpGetField, Expected: "sao, object_list, or map", Got: ctx.Kind().String(), Pos: step.Pos}
	}
}

// getFieldResolved resolves v if it is an unresolved Link, otherwise
// returns it unchanged.
func getFieldResolved(e *Engine, v value.Value, st *evalState) (value.Value, error) {
	if link, ok := v.(value.Link); ok {
		return e.resolveLink(link, st)
	}
	return v, nil
}

func opFilter(e *Engine, step *value.Step, ctx value.Value, st *evalState) (value.Value, error) {
	list, ok := ctx.(*value.ObjectList)
	if !ok {
		return nil, &TypeError{Operator: value.OpFilter, Expected: "object_list", Got: ctx.Kind().String(), Pos: step.Pos}
	}
	out := make([]*value.SAO, 0, list.Len())
	for _, item := range list.Items {
		keep, err := e.evalArg(step.Args[0], item, st)
		if err != nil {
			return nil, err
		}
		if value.IsAbsorbing(keep) {
			continue
		}
		b, ok := keep.(value.Bool)
		if !ok {
			return nil, &TypeError{Operator: value.OpFilter, Expected: "bool", Got: keep.Kind().String(), Pos: step.Pos}
		}
		if bool(b) {
			out = append(out, item)
		}
	}
	return &value.ObjectList{Items: out}, nil
}

func fieldNamesFromArgs(args []*value.Chain, pos int) ([]string, error) {
	names := make([]string, 0, len(args))
	for _, a := range args {
		if len(a.Steps) == 0 || a.Steps[0].Op != value.OpGetField {
			return nil, &ParseError{Pos: pos, Message: "select() arguments must start with get_field"}
		}
		lit := a.Steps[0].Args
		if len(lit) != 1 || len(lit[0].Steps) != 1 || lit[0].Steps[0].Op != value.OpLiteral {
			return nil, &ParseError{Pos: pos, Message: "select() field name must be a literal"}
		}
		s, ok := lit[0].Steps[0].Literal.(value.Str)
		if !ok {
			return nil, &ParseError{Pos: pos, Message: "select() field name must be a string"}
		}
		names = append(names, string(s))
	}
	return names, nil
}

func opSelect(e *Engine, step *value.Step, ctx value.Value, st *evalState) (value.Value, error) {
	names, err := fieldNamesFromArgs(step.Args, step.Pos)
	if err != nil {
		return nil, err
	}
	switch c := ctx.(type) {
	case *value.SAO:
		return c.Select(names), nil
	case *value.ObjectList:
		out := make([]*value.SAO, c.Len())
		for i, o := range c.Items {
			out[i] = o.Select(names)
		}
		return &value.ObjectList{Items: out}, nil
	default:
		return nil, &TypeError{Operator: value.OpSelect, Expected: "sao or object_list", Got: ctx.Kind().String(), Pos: step.Pos}
	}
}

func opCount(e *Engine, step *value.Step, ctx value.Value, st *evalState) (value.Value, error) {
	switch c := ctx.(type) {
	case *value.ObjectList:
		return value.Int(c.Len()), nil
	case *value.ObjectGrouping:
		return value.Int(c.Len()), nil
	case value.List:
		return value.Int(len(c)), nil
	default:
		return nil, &TypeError{Operator: value.OpCount, Expected: "object_list, object_grouping, or list", Got: ctx.Kind().String(), Pos: step.Pos}
	}
}

func opEquals(e *Engine, step *value.Step, ctx value.Value, st *evalState) (value.Value, error) {
	a, err := e.evalArg(step.Args[0], ctx, st)
	if err != nil {
		return nil, err
	}
	if value.IsAbsorbing(a) {
		return value.Absorbing, nil
	}
	b, err := e.evalArg(step.Args[1], ctx, st)
	if err != nil {
		return nil, err
	}
	if value.IsAbsorbing(b) {
		return value.Absorbing, nil
	}
	return value.Bool(value.Equal(a, b)), nil
}

func evalBoolOperand(e *Engine, op string, arg *value.Chain, ctx value.Value, pos int, st *evalState) (value.Value, bool, error) {
	v, err := e.evalArg(arg, ctx, st)
	if err != nil {
		return nil, false, err
	}
	if value.IsAbsorbing(v) {
		return value.Absorbing, false, nil
	}
	b, ok := v.(value.Bool)
	if !ok {
		return nil, false, &TypeError{Operator: op, Expected: "bool", Got: v.Kind().String(), Pos: pos}
	}
	return nil, bool(b), nil
}

func opAnd(e *Engine, step *value.Step, ctx value.Value, st *evalState) (value.Value, error) {
	av, a, err := evalBoolOperand(e, value.OpAnd, step.Args[0], ctx, step.Pos, st)
	if err != nil {
		return nil, err
	}
	if av != nil {
		return av, nil
	}
	if !a {
		return value.Bool(false), nil
	}
	bv, b, err := evalBoolOperand(e, value.OpAnd, step.Args[1], ctx, step.Pos, st)
	if err != nil {
		return nil, err
	}
	if bv != nil {
		return bv, nil
	}
	return value.Bool(b), nil
}

func opOr(e *Engine, step *value.Step, ctx value.Value, st *evalState) (value.Value, error) {
	av, a, err := evalBoolOperand(e, value.OpOr, step.Args[0], ctx, step.Pos, st)
	if err != nil {
		return nil, err
	}
	if av != nil {
		return av, nil
	}
	if a {
		return value.Bool(true), nil
	}
	bv, b, err := evalBoolOperand(e, value.OpOr, step.Args[1], ctx, step.Pos, st)
	if err != nil {
		return nil, err
	}
	if bv != nil {
		return bv, nil
	}
	return value.Bool(b), nil
}

func opNot(e *Engine, step *value.Step, ctx value.Value, st *evalState) (value.Value, error) {
	av, a, err := evalBoolOperand(e, value.OpNot, step.Args[0], ctx, step.Pos, st)
	if err != nil {
		return nil, err
	}
	if av != nil {
		return av, nil
	}
	return value.Bool(!a), nil
}

func opContains(e *Engine, step *value.Step, ctx value.Value, st *evalState) (value.Value, error) {
	list, ok := ctx.(value.List)
	if !ok {
		return nil, &TypeError{Operator: value.OpContains, Expected: "list", Got: ctx.Kind().String(), Pos: step.Pos}
	}
	needle, err := e.evalArg(step.Args[0], ctx, st)
	if err != nil {
		return nil, err
	}
	for _, item := range list {
		if value.Equal(item, needle) {
			return value.Bool(true), nil
		}
	}
	return value.Bool(false), nil
}

// opRegexMatch implements regex_match(pattern): ctx is the subject
// string, Args[0] the pattern.
func opRegexMatch(e *Engine, step *value.Step, ctx value.Value, st *evalState) (value.Value, error) {
	subjectV := ctx
	patternV, err := e.evalArg(step.Args[0], ctx, st)
	if err != nil {
		return nil, err
	}
	if value.IsAbsorbing(subjectV) || value.IsAbsorbing(patternV) {
		return value.Absorbing, nil
	}
	subject, ok := subjectV.(value.Str)
	if !ok {
		return nil, &TypeError{Operator: value.OpRegexMatch, Expected: "string", Got: subjectV.Kind().String(), Pos: step.Pos}
	}
	pattern, ok := patternV.(value.Str)
	if !ok {
		return nil, &TypeError{Operator: value.OpRegexMatch, Expected: "string", Got: patternV.Kind().String(), Pos: step.Pos}
	}
	re, err := regexp.Compile(string(pattern))
	if err != nil {
		return nil, &TypeError{Operator: value.OpRegexMatch, Expected: "valid regex", Got: string(pattern), Pos: step.Pos}
	}
	return value.Bool(re.MatchString(string(subject))), nil
}

func compareOrdered(a, b value.Value) (int, bool) {
	switch av := a.(type) {
	case value.Int:
		switch bv := b.(type) {
		case value.Int:
			switch {
			case av < bv:
				return -1, true
			case av > bv:
				return 1, true
			default:
				return 0, true
			}
		case value.Float:
			return compareFloat(float64(av), float64(bv)), true
		}
	case value.Float:
		switch bv := b.(type) {
		case value.Int:
			return compareFloat(float64(av), float64(bv)), true
		case value.Float:
			return compareFloat(float64(av), float64(bv)), true
		}
	case value.Str:
		if bv, ok := b.(value.Str); ok {
			switch {
			case av < bv:
				return -1, true
			case av > bv:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	return 0, false
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func opLowest(e *Engine, step *value.Step, ctx value.Value, st *evalState) (value.Value, error) {
	list, ok := ctx.(*value.ObjectList)
	if !ok {
		return nil, &TypeError{Operator: value.OpLowest, Expected: "object_list", Got: ctx.Kind().String(), Pos: step.Pos}
	}
	if list.Len() == 0 {
		return value.Absorbing, nil
	}
	var best *value.SAO
	var bestKey value.Value
	for _, item := range list.Items {
		k, err := e.evalArg(step.Args[0], item, st)
		if err != nil {
			return nil, err
		}
		if value.IsAbsorbing(k) {
			continue
		}
		if best == nil {
			best, bestKey = item, k
			continue
		}
		cmp, ok := compareOrdered(k, bestKey)
		if !ok {
			return nil, &TypeError{Operator: value.OpLowest, Expected: "orderable", Got: k.Kind().String(), Pos: step.Pos}
		}
		if cmp < 0 {
			best, bestKey = item, k
		}
	}
	if best == nil {
		return value.Absorbing, nil
	}
	return best, nil
}

func groupElements(e *Engine, groupKey *value.Chain, list *value.ObjectList, st *evalState) (*value.ObjectGrouping, error) {
	g := value.NewObjectGrouping()
	for _, item := range list.Items {
		k, err := e.evalArg(groupKey, item, st)
		if err != nil {
			return nil, err
		}
		if value.IsAbsorbing(k) {
			continue
		}
		g.Add(value.GroupKey{k}, item)
	}
	return g, nil
}

// opGroupedLowest implements grouped_lowest(expr, keys): Args[0] is the
// sort expression evaluated per element within each group, Args[1] is the
// grouping key expression.
func opGroupedLowest(e *Engine, step *value.Step, ctx value.Value, st *evalState) (value.Value, error) {
	list, ok := ctx.(*value.ObjectList)
	if !ok {
		return nil, &TypeError{Operator: value.OpGroupedLow, Expected: "object_list", Got: ctx.Kind().String(), Pos: step.Pos}
	}
	g, err := groupElements(e, step.Args[1], list, st)
	if err != nil {
		return nil, err
	}
	out := make([]*value.SAO, 0, g.Len())
	for _, key := range g.Keys() {
		members := g.Group(key)
		var best *value.SAO
		var bestKey value.Value
		for _, item := range members.Items {
			k, err := e.evalArg(step.Args[0], item, st)
			if err != nil {
				return nil, err
			}
			if value.IsAbsorbing(k) {
				continue
			}
			if best == nil {
				best, bestKey = item, k
				continue
			}
			cmp, ok := compareOrdered(k, bestKey)
			if !ok {
				return nil, &TypeError{Operator: value.OpGroupedLow, Expected: "orderable", Got: k.Kind().String(), Pos: step.Pos}
			}
			if cmp < 0 {
				best, bestKey = item, k
			}
		}
		if best != nil {
			out = append(out, best)
		}
	}
	return &value.ObjectList{Items: out}, nil
}

// opGroupedFilter implements grouped_filter(pred, keys): Args[0] is the
// boolean predicate, Args[1] is the grouping key expression. Retention is
// at the group level, not the element level: a group is kept whole when
// pred holds for at least one of its members, and every member of a kept
// group is appended to the flat result list — no member is dropped
// individually from a group that's kept.
func opGroupedFilter(e *Engine, step *value.Step, ctx value.Value, st *evalState) (value.Value, error) {
	list, ok := ctx.(*value.ObjectList)
	if !ok {
		return nil, &TypeError{Operator: value.OpGroupedFltr, Expected: "object_list", Got: ctx.Kind().String(), Pos: step.Pos}
	}
	g, err := groupElements(e, step.Args[1], list, st)
	if err != nil {
		return nil, err
	}
	out := make([]*value.SAO, 0, list.Len())
	for _, key := range g.Keys() {
		members := g.Group(key)
		keepGroup := false
		for _, item := range members.Items {
			keep, err := e.evalArg(step.Args[0], item, st)
			if err != nil {
				return nil, err
			}
			if value.IsAbsorbing(keep) {
				continue
			}
			b, ok := keep.(value.Bool)
			if !ok {
				return nil, &TypeError{Operator: value.OpGroupedFltr, Expected: "bool", Got: keep.Kind().String(), Pos: step.Pos}
			}
			if bool(b) {
				keepGroup = true
				break
			}
		}
		if keepGroup {
			out = append(out, members.Items...)
		}
	}
	return &value.ObjectList{Items: out}, nil
}

// opSingle takes no arguments: ctx is already a list of projected values
// (typically the output of a preceding get_field over an ObjectList), and
// single() checks they all agree rather than evaluating a fresh
// projection per element itself.
func opSingle(e *Engine, step *value.Step, ctx value.Value, st *evalState) (value.Value, error) {
	list, ok := ctx.(value.List)
	if !ok {
		return nil, &TypeError{Operator: value.OpSingle, Expected: "list", Got: ctx.Kind().String(), Pos: step.Pos}
	}
	if len(list) == 0 {
		return value.Absorbing, nil
	}
	first := list[0]
	firstRepr := reprForDisagreement(first)
	for _, v := range list[1:] {
		if !value.Equal(first, v) {
			return nil, &SingleDisagreementError{A: firstRepr, B: reprForDisagreement(v), Pos: step.Pos}
		}
	}
	return first, nil
}

func reprForDisagreement(v value.Value) string {
	switch tv := v.(type) {
	case value.Str:
		return string(tv)
	default:
		return v.Kind().String()
	}
}

// opValue unwraps a one-element container down to its single scalar.
func opValue(e *Engine, step *value.Step, ctx value.Value, st *evalState) (value.Value, error) {
	switch c := ctx.(type) {
	case value.List:
		if len(c) == 1 {
			return c[0], nil
		}
		return nil, &TypeError{Operator: value.OpValue, Expected: "one-element list", Got: ctx.Kind().String(), Pos: step.Pos}
	case *value.ObjectList:
		if c.Len() == 1 {
			return c.Items[0], nil
		}
		return nil, &TypeError{Operator: value.OpValue, Expected: "one-element object_list", Got: ctx.Kind().String(), Pos: step.Pos}
	default:
		return nil, &TypeError{Operator: value.OpValue, Expected: "scalar container", Got: ctx.Kind().String(), Pos: step.Pos}
	}
}

func opIndex(e *Engine, step *value.Step, ctx value.Value, st *evalState) (value.Value, error) {
	list, ok := ctx.(*value.ObjectList)
	if !ok {
		return nil, &TypeError{Operator: value.OpIndex, Expected: "object_list", Got: ctx.Kind().String(), Pos: step.Pos}
	}
	n, ok := step.Literal.(value.Int)
	if !ok {
		return nil, &ParseError{Pos: step.Pos, Message: "index argument must be an integer literal"}
	}
	i := int(n)
	if i < 0 || i >= list.Len() {
		return nil, &IndexOutOfRangeError{Index: i, Len: list.Len(), Pos: step.Pos}
	}
	return list.Items[i], nil
}

func opKeys(e *Engine, step *value.Step, ctx value.Value, st *evalState) (value.Value, error) {
	switch c := ctx.(type) {
	case *value.Map:
		out := make(value.List, 0, c.Len())
		for _, k := range c.Keys() {
			out = append(out, value.Str(k))
		}
		return out, nil
	case *value.ObjectGrouping:
		out := make(value.List, 0, c.Len())
		for _, k := range c.Keys() {
			if len(k) == 1 {
				out = append(out, k[0])
			} else {
				gk := make(value.List, len(k))
				copy(gk, k)
				out = append(out, gk)
			}
		}
		return out, nil
	default:
		return nil, &TypeError{Operator: value.OpKeys, Expected: "map or object_grouping", Got: ctx.Kind().String(), Pos: step.Pos}
	}
}

func opSourceOf(e *Engine, step *value.Step, ctx value.Value, st *evalState) (value.Value, error) {
	o, ok := ctx.(*value.SAO)
	if !ok {
		return nil, &TypeError{Operator: value.OpSourceOf, Expected: "sao", Got: ctx.Kind().String(), Pos: step.Pos}
	}
	return value.Str(o.Source), nil
}
