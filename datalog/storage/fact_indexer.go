package storage

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/wbrown/saturn/datalog"
)

// positionKey addresses one fine-grained index bucket: the facts of pred
// whose argument at pos is c.
type positionKey struct {
	pred *datalog.PredicateSym
	pos  int
	c    *datalog.Constant
}

// FactIndexer is a thread-safe, multiply indexed collection of ground
// facts. It keeps one coarse bucket per predicate and one fine bucket per
// (predicate, position, constant). It does not deduplicate; callers gate
// Add behind a FactTrie.
type FactIndexer struct {
	coarse sync.Map // *datalog.PredicateSym -> *factBag
	fine   sync.Map // positionKey -> *factBag
	count  atomic.Int64
}

// NewFactIndexer creates an empty indexer
func NewFactIndexer() *FactIndexer {
	return &FactIndexer{}
}

// Add indexes a ground fact under its predicate and under every
// (position, constant) pair
func (x *FactIndexer) Add(fact *datalog.Atom) {
	if !fact.IsGround() {
		panic("storage: cannot index non-ground atom " + fact.String())
	}
	loadBag(&x.coarse, fact.Pred).add(fact)
	for i, t := range fact.Args {
		key := positionKey{pred: fact.Pred, pos: i, c: t.(*datalog.Constant)}
		loadBag(&x.fine, key).add(fact)
	}
	x.count.Add(1)
}

// loadBag returns the bag stored under key, inserting an empty one if
// absent. Losers of an insert race adopt the winner's bag.
func loadBag(m *sync.Map, key any) *factBag {
	if v, ok := m.Load(key); ok {
		return v.(*factBag)
	}
	v, _ := m.LoadOrStore(key, &factBag{})
	return v.(*factBag)
}

// IndexInto returns the smallest bucket that can contain every fact
// unifying with atom under s. Among the argument positions that resolve to
// a constant, the one whose bucket currently holds the fewest facts is
// chosen. With no bound position the predicate bucket is returned. If a
// bound position has no bucket at all nothing can match and nil is
// returned.
func (x *FactIndexer) IndexInto(atom *datalog.Atom, s datalog.Substitution) []*datalog.Atom {
	var best *factBag
	bestSize := -1
	for i, t := range atom.Args {
		c, ok := datalog.Resolve(t, s).(*datalog.Constant)
		if !ok {
			continue
		}
		v, ok := x.fine.Load(positionKey{pred: atom.Pred, pos: i, c: c})
		if !ok {
			return nil
		}
		bag := v.(*factBag)
		if n := bag.size(); bestSize < 0 || n < bestSize {
			best, bestSize = bag, n
		}
	}
	if best != nil {
		return best.snapshot()
	}
	if v, ok := x.coarse.Load(atom.Pred); ok {
		return v.(*factBag).snapshot()
	}
	return nil
}

// Facts returns every fact indexed under pred
func (x *FactIndexer) Facts(pred *datalog.PredicateSym) []*datalog.Atom {
	if v, ok := x.coarse.Load(pred); ok {
		return v.(*factBag).snapshot()
	}
	return nil
}

// Predicates returns the predicates with at least one fact, sorted by name
// and then arity
func (x *FactIndexer) Predicates() []*datalog.PredicateSym {
	var preds []*datalog.PredicateSym
	x.coarse.Range(func(k, _ any) bool {
		preds = append(preds, k.(*datalog.PredicateSym))
		return true
	})
	sort.Slice(preds, func(i, j int) bool {
		if preds[i].Name() != preds[j].Name() {
			return preds[i].Name() < preds[j].Name()
		}
		return preds[i].Arity() < preds[j].Arity()
	})
	return preds
}

// Size returns the number of Add calls made so far
func (x *FactIndexer) Size() int {
	return int(x.count.Load())
}
