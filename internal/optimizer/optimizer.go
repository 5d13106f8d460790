// Package optimizer rewrites a small set of provably equivalent chain
// shapes into direct store index lookups, skipping the linear scan
// opFilter would otherwise perform over every object in the store. Each
// rewrite only fires when the shape is unambiguous; anything it doesn't
// recognize is left untouched and falls through to opFilter.
package optimizer

import (
	"regexp"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/oxhq/saq/internal/store"
	"github.com/oxhq/saq/internal/value"
)

// Decisions counts each fast-path rewrite the optimizer fires, labeled by
// kind, so the debug surface can show how often queries take the index
// path versus the full scan.
var Decisions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "saq",
		Subsystem: "optimizer",
		Name:      "decisions_total",
		Help:      "Fast-path rewrites applied to query chains, by kind.",
	},
	[]string{"kind"},
)

func init() {
	prometheus.MustRegister(Decisions)
}

// Rewrite inspects the first step of chain and, when it is a filter over
// the identity context that this store's indexes can answer directly,
// replaces the scan with an index lookup. s provides the index; the
// returned chain is chain unchanged if no rewrite applies.
func Rewrite(s *store.Store, chain *value.Chain) *value.Chain {
	if len(chain.Steps) == 0 {
		return chain
	}
	first := chain.Steps[0]
	if first.Op != value.OpFilter || len(first.Args) != 1 {
		return chain
	}
	pred := first.Args[0]

	if t, ok := typeConstantFilter(pred); ok {
		Decisions.WithLabelValues("type_index").Inc()
		return prependLookup(chain, s.ByType(t))
	}
	if id, ok := anchoredIDFilter(pred); ok {
		Decisions.WithLabelValues("id_index").Inc()
		return prependLookup(chain, s.ByID(id))
	}
	if t, ok := typePrefilterCandidate(pred); ok {
		Decisions.WithLabelValues("type_prefilter").Inc()
		return narrowThenFilter(chain, s.ByType(t))
	}
	Decisions.WithLabelValues("scan").Inc()
	return chain
}

// prependLookup replaces chain's leading filter step with a literal
// carrying the precomputed list, leaving any remaining steps untouched.
func prependLookup(chain *value.Chain, list *value.ObjectList) *value.Chain {
	steps := make([]*value.Step, 0, len(chain.Steps))
	steps = append(steps, &value.Step{Op: value.OpLiteral, Literal: list})
	steps = append(steps, chain.Steps[1:]...)
	return &value.Chain{Steps: steps}
}

// narrowThenFilter replaces the identity context with list but keeps
// chain's original leading filter step intact, so the full (compound)
// predicate still runs per element — it only shrinks the scan, it
// doesn't decide membership on its own.
func narrowThenFilter(chain *value.Chain, list *value.ObjectList) *value.Chain {
	steps := make([]*value.Step, 0, len(chain.Steps)+1)
	steps = append(steps, &value.Step{Op: value.OpLiteral, Literal: list})
	steps = append(steps, chain.Steps...)
	return &value.Chain{Steps: steps}
}

// typeConstantFilter recognizes ".__types__.contains('T')" for a string
// literal constant T, i.e. the desugared identifier type filter or its
// explicit spelling.
func typeConstantFilter(pred *value.Chain) (string, bool) {
	if len(pred.Steps) != 2 {
		return "", false
	}
	gf, cn := pred.Steps[0], pred.Steps[1]
	if gf.Op != value.OpGetField || cn.Op != value.OpContains {
		return "", false
	}
	if !isFieldLiteral(gf, value.FieldTypes) {
		return "", false
	}
	return literalStringArg(cn, 0)
}

// anchoredIDFilter recognizes ".__id__ =~ '^exact$'" (no other regex
// metacharacters besides the anchors), i.e. the desugared #id filter.
func anchoredIDFilter(pred *value.Chain) (string, bool) {
	if len(pred.Steps) != 2 {
		return "", false
	}
	gf, rm := pred.Steps[0], pred.Steps[1]
	if gf.Op != value.OpGetField || rm.Op != value.OpRegexMatch {
		return "", false
	}
	if !isFieldLiteral(gf, value.FieldID) {
		return "", false
	}
	pattern, ok := literalStringArg(rm, 0)
	if !ok {
		return "", false
	}
	if !strings.HasPrefix(pattern, "^") || !strings.HasSuffix(pattern, "$") {
		return "", false
	}
	inner := pattern[1 : len(pattern)-1]
	if containsRegexMetachar(inner) {
		return "", false
	}
	return regexp.MustCompile(`\\(.)`).ReplaceAllString(inner, "$1"), true
}

// typePrefilterCandidate recognizes a compound predicate whose first
// conjunct is a type constant filter — e.g.
// ".filter(.__types__.contains('T') AND <rest>)" — and narrows the scan
// to that type's index before the remaining predicate runs per element.
func typePrefilterCandidate(pred *value.Chain) (string, bool) {
	if len(pred.Steps) != 1 || pred.Steps[0].Op != value.OpAnd {
		return "", false
	}
	andStep := pred.Steps[0]
	if len(andStep.Args) != 2 {
		return "", false
	}
	return typeConstantFilter(andStep.Args[0])
}

func isFieldLiteral(step *value.Step, name string) bool {
	if step.Op != value.OpGetField || len(step.Args) != 1 {
		return false
	}
	s, ok := literalStringArg(step, 0)
	return ok && s == name
}

func literalStringArg(step *value.Step, i int) (string, bool) {
	if i >= len(step.Args) {
		return "", false
	}
	c := step.Args[i]
	if len(c.Steps) != 1 || c.Steps[0].Op != value.OpLiteral {
		return "", false
	}
	s, ok := c.Steps[0].Literal.(value.Str)
	return string(s), ok
}

func containsRegexMetachar(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.', '+', '*', '?', '(', ')', '|', '[', ']', '{', '}', '^', '$':
			if i == 0 || s[i-1] != '\\' {
				return true
			}
		}
	}
	return false
}
