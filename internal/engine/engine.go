// Package engine is the operator runtime: it walks a value.Chain left to
// right against a context value, dispatching each Step to its operator
// implementation.
package engine

import (
	"github.com/oxhq/saq/internal/store"
	"github.com/oxhq/saq/internal/value"
)

// maxLinkDepth bounds link-following chains; a longer chain is treated as
// a cycle rather than left to run unbounded.
const maxLinkDepth = 64

// Engine evaluates chains against a Store. It carries no per-query state
// of its own so a single Engine can be shared across concurrent queries.
type Engine struct {
	store *store.Store
}

// New returns an Engine backed by s.
func New(s *store.Store) *Engine {
	return &Engine{store: s}
}

// evalState carries the per-query-evaluation bookkeeping that individual
// operator calls need but that doesn't belong in the Chain/Step shape
// itself: the visited-link set for cycle detection, keyed by a link's
// query text (two fields with identical link queries resolve to the
// same target, since a link query always runs against the same store
// root regardless of which object's field it came from).
type evalState struct {
	visited map[string]struct{}
	depth   int
}

// Eval runs chain with ctx as its starting context, feeding each step's
// result as the next step's context. The first step of a top-level query
// chain conventionally receives the store's full object list as ctx; a
// step chain passed as an operator argument receives whatever context
// that operator defines (its own ctx, or a single element being
// iterated).
func (e *Engine) Eval(chain *value.Chain, ctx value.Value) (value.Value, error) {
	return e.eval(chain, ctx, &evalState{visited: make(map[string]struct{})})
}

func (e *Engine) eval(chain *value.Chain, ctx value.Value, st *evalState) (value.Value, error) {
	cur := ctx
	for _, step := range chain.Steps {
		next, err := e.evalStep(step, cur, st)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func (e *Engine) evalStep(step *value.Step, ctx value.Value, st *evalState) (value.Value, error) {
	if step.Op == value.OpLiteral {
		return step.Literal, nil
	}

	// AbsorbingNone propagates through every scalar step unconditionally;
	// iterating operators special-case it themselves before this common
	// entry (filter/select/grouped_filter skip absorbing elements rather
	// than ever calling evalStep with one as ctx).
	if value.IsAbsorbing(ctx) {
		return value.Absorbing, nil
	}

	op, ok := operators[step.Op]
	if !ok {
		return nil, &ParseError{Pos: step.Pos, Message: "unknown operator " + step.Op}
	}
	if op.arity >= 0 && len(step.Args) != op.arity {
		return nil, &ArityError{Operator: step.Op, Expected: arityLabel(op.arity), Got: len(step.Args), Pos: step.Pos}
	}
	return op.fn(e, step, ctx, st)
}

func arityLabel(n int) string {
	if n < 0 {
		return "variadic"
	}
	switch n {
	case 0:
		return "0"
	case 1:
		return "1"
	case 2:
		return "2"
	default:
		return "n"
	}
}

// evalArg evaluates one of a step's argument chains against ctx, carrying
// the same link-cycle state forward.
func (e *Engine) evalArg(arg *value.Chain, ctx value.Value, st *evalState) (value.Value, error) {
	return e.eval(arg, ctx, st)
}

// resolveLink runs a Link's query chain against the store root, tracking
// every query text resolved so far during this query's evaluation on st.
// Revisiting a query text means the link graph closes a loop back on
// itself; entries are never removed, so the check holds for the whole
// Eval call rather than just the current recursion path.
func (e *Engine) resolveLink(l value.Link, st *evalState) (value.Value, error) {
	if _, seen := st.visited[l.QueryText]; seen {
		return nil, &LinkResolutionError{Query: l.QueryText}
	}
	if st.depth >= maxLinkDepth {
		return nil, &LinkResolutionError{Query: l.QueryText, Cause: errDepthExceeded}
	}
	st.visited[l.QueryText] = struct{}{}
	st.depth++

	result, err := e.eval(l.Query, e.store.All(), st)
	st.depth--
	if err != nil {
		return nil, &LinkResolutionError{Query: l.QueryText, Cause: err}
	}
	return result, nil
}
