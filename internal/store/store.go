// Package store owns the merged set of SAOs contributed by all providers
// and the secondary indexes the operator runtime and optimizer rely on.
//
// Mutation is provider-granular and atomic: a call to ReplaceProvider
// swaps one provider's entire contribution and rebuilds every index from
// the full contribution set, under a single write lock. Reads take a
// read lock only long enough to snapshot the current index pointer, so a
// query's evaluation never blocks concurrent provider refreshes and never
// observes a torn index (spec §5's snapshot-isolation requirement).
package store

import (
	"sort"
	"sync"

	"github.com/oxhq/saq/internal/value"
)

// Store is the process-wide object store. It is handed to the engine and
// the poller explicitly rather than kept as a package-level singleton, so
// tests can instantiate isolated stores (spec §9).
type Store struct {
	mu            sync.RWMutex
	contributions map[string][]*value.SAO // source -> deduped objects, latest fetch
	idx           *index
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		contributions: make(map[string][]*value.SAO),
		idx:           emptyIndex(),
	}
}

type index struct {
	all       []*value.SAO
	byKey     map[value.Key]*value.SAO
	byType    map[string]*value.ObjectList
	byID      map[string]*value.ObjectList
	byLogical map[value.LogicalKey]*value.ObjectList
}

func emptyIndex() *index {
	return &index{
		byKey:     make(map[value.Key]*value.SAO),
		byType:    make(map[string]*value.ObjectList),
		byID:      make(map[string]*value.ObjectList),
		byLogical: make(map[value.LogicalKey]*value.ObjectList),
	}
}

// ReplaceProvider atomically swaps the named provider's entire
// contribution and rebuilds all indexes. Objects with a duplicate
// (id,source) within the same call collapse to a single entry (spec §8
// scenario 8); the first occurrence wins.
//
// Objects must already satisfy value.ValidateSAO; ReplaceProvider does
// not re-validate, since the poller (or a test) validated them while
// parsing the wire payload.
func (s *Store) ReplaceProvider(source string, objects []*value.SAO) {
	deduped := make([]*value.SAO, 0, len(objects))
	seen := make(map[string]struct{}, len(objects))
	for _, o := range objects {
		if _, dup := seen[o.ID]; dup {
			continue
		}
		seen[o.ID] = struct{}{}
		deduped = append(deduped, o)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.contributions[source] = deduped
	s.idx = s.buildIndex()
}

// ClearProvider empties a provider's contribution (used when a provider
// publishes malformed data; spec §4.5 "cleared to empty").
func (s *Store) ClearProvider(source string) {
	s.ReplaceProvider(source, nil)
}

func (s *Store) buildIndex() *index {
	idx := emptyIndex()

	sources := make([]string, 0, len(s.contributions))
	for src := range s.contributions {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	for _, src := range sources {
		for _, o := range s.contributions[src] {
			idx.all = append(idx.all, o)
			for _, t := range o.Types {
				idx.byKey[value.Key{Type: t, ID: o.ID, Source: o.Source}] = o

				tl := idx.byType[t]
				if tl == nil {
					tl = &value.ObjectList{}
					idx.byType[t] = tl
				}
				tl.Items = append(tl.Items, o)

				lk := value.LogicalKey{Type: t, ID: o.ID}
				ll := idx.byLogical[lk]
				if ll == nil {
					ll = &value.ObjectList{}
					idx.byLogical[lk] = ll
				}
				ll.Items = append(ll.Items, o)
			}

			il := idx.byID[o.ID]
			if il == nil {
				il = &value.ObjectList{}
				idx.byID[o.ID] = il
			}
			il.Items = append(il.Items, o)
		}
	}
	return idx
}

// snapshot returns the current index pointer under a read lock. Because
// the index is rebuilt wholesale and never mutated in place, the caller
// can use the returned pointer lock-free for the rest of a query.
func (s *Store) snapshot() *index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx
}

// All returns every SAO currently in the store, in deterministic
// (source-sorted, then per-source fetch) order.
func (s *Store) All() *value.ObjectList {
	return &value.ObjectList{Items: append([]*value.SAO(nil), s.snapshot().all...)}
}

// ByType returns the type index's ObjectList for t, or an empty list.
func (s *Store) ByType(t string) *value.ObjectList {
	idx := s.snapshot()
	if l, ok := idx.byType[t]; ok {
		return &value.ObjectList{Items: append([]*value.SAO(nil), l.Items...)}
	}
	return &value.ObjectList{}
}

// ByID returns every SAO (any type, any source) with the given bare id.
func (s *Store) ByID(id string) *value.ObjectList {
	idx := s.snapshot()
	if l, ok := idx.byID[id]; ok {
		return &value.ObjectList{Items: append([]*value.SAO(nil), l.Items...)}
	}
	return &value.ObjectList{}
}

// ByLogical returns every SAO sharing the (type,id) logical identity,
// across sources — the CSAO.
func (s *Store) ByLogical(t, id string) *value.ObjectList {
	idx := s.snapshot()
	if l, ok := idx.byLogical[value.LogicalKey{Type: t, ID: id}]; ok {
		return &value.ObjectList{Items: append([]*value.SAO(nil), l.Items...)}
	}
	return &value.ObjectList{}
}

// ByKey looks up the single SAO at the fully qualified (type,id,source)
// identity.
func (s *Store) ByKey(t, id, source string) (*value.SAO, bool) {
	idx := s.snapshot()
	o, ok := idx.byKey[value.Key{Type: t, ID: id, Source: source}]
	return o, ok
}

// Providers returns the set of provider names with a current
// contribution (including ones whose contribution was cleared to empty
// by ClearProvider, since the key is still present).
func (s *Store) Providers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.contributions))
	for src := range s.contributions {
		out = append(out, src)
	}
	sort.Strings(out)
	return out
}
