package engine

import (
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/wbrown/saturn/datalog"
	"github.com/wbrown/saturn/datalog/annotations"
	"github.com/wbrown/saturn/datalog/storage"
)

// Result is the saturated fact set of one evaluation
type Result struct {
	index     *storage.FactIndexer
	cache     *lru.Cache[string, []*datalog.Atom]
	collector *annotations.Collector
}

// newResult wraps index. A positive cacheSize caches query answers, which
// is only correct once the index can no longer grow.
func newResult(index *storage.FactIndexer, cacheSize int, collector *annotations.Collector) *Result {
	r := &Result{index: index, collector: collector}
	if cacheSize > 0 {
		cache, err := lru.New[string, []*datalog.Atom](cacheSize)
		if err == nil {
			r.cache = cache
		}
	}
	return r
}

// Query returns every stored fact that unifies with q. q may contain
// variables, including repeated ones. The caller owns the returned slice.
func (r *Result) Query(q *datalog.Atom) []*datalog.Atom {
	start := time.Now()
	key := q.String()
	if r.cache != nil {
		if facts, ok := r.cache.Get(key); ok {
			return append([]*datalog.Atom(nil), facts...)
		}
	}

	var facts []*datalog.Atom
	for _, f := range r.index.IndexInto(q, nil) {
		if q.Unify(f, datalog.NewMapSubstitution()) {
			facts = append(facts, f)
		}
	}

	if r.cache != nil {
		r.cache.Add(key, append([]*datalog.Atom(nil), facts...))
	}
	r.collector.AddTiming(annotations.QueryExecuted, start, map[string]interface{}{
		"query":       key,
		"facts.count": len(facts),
	})
	return facts
}

// Contains reports whether the ground fact f was derived
func (r *Result) Contains(f *datalog.Atom) bool {
	for _, g := range r.index.IndexInto(f, nil) {
		if sameArgs(f, g) {
			return true
		}
	}
	return false
}

func sameArgs(a, b *datalog.Atom) bool {
	for i, t := range a.Args {
		if t != b.Args[i] {
			return false
		}
	}
	return true
}

// Predicates returns the predicates with at least one fact
func (r *Result) Predicates() []*datalog.PredicateSym {
	return r.index.Predicates()
}

// Facts returns every fact of pred, sorted by their text
func (r *Result) Facts(pred *datalog.PredicateSym) []*datalog.Atom {
	facts := append([]*datalog.Atom(nil), r.index.Facts(pred)...)
	sort.Slice(facts, func(i, j int) bool { return facts[i].String() < facts[j].String() })
	return facts
}

// All returns every fact, grouped by predicate
func (r *Result) All() []*datalog.Atom {
	var all []*datalog.Atom
	for _, p := range r.Predicates() {
		all = append(all, r.Facts(p)...)
	}
	return all
}

// Size returns the number of facts
func (r *Result) Size() int {
	return r.index.Size()
}
