package datalog

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

const internShards = 64

// internShard is one lock-striped slice of an intern table
type internShard[T any] struct {
	mu sync.RWMutex
	m  map[string]*T
}

// internTable maps names to a single canonical object. Shards are chosen
// by xxhash so concurrent parsers rarely contend on the same lock.
type internTable[T any] struct {
	shards [internShards]internShard[T]
}

func newInternTable[T any]() *internTable[T] {
	t := &internTable[T]{}
	for i := range t.shards {
		t.shards[i].m = make(map[string]*T)
	}
	return t
}

// intern returns the canonical object for key. If two callers race on the
// same key, the first to store wins and the loser's candidate is discarded.
func (t *internTable[T]) intern(key string, create func() *T) *T {
	shard := &t.shards[xxhash.Sum64String(key)%internShards]

	// Fast path: read lock only
	shard.mu.RLock()
	v, ok := shard.m[key]
	shard.mu.RUnlock()
	if ok {
		return v
	}

	candidate := create()
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if v, ok := shard.m[key]; ok {
		return v
	}
	shard.m[key] = candidate
	return candidate
}

func (t *internTable[T]) size() int {
	n := 0
	for i := range t.shards {
		t.shards[i].mu.RLock()
		n += len(t.shards[i].m)
		t.shards[i].mu.RUnlock()
	}
	return n
}

// TermTable interns constants, variables and predicate symbols. Every
// engine run is handed one table; terms from different tables must never
// be mixed.
type TermTable struct {
	constants  *internTable[Constant]
	variables  *internTable[Variable]
	predicates *internTable[PredicateSym]
	fresh      atomic.Uint64
}

// NewTermTable creates an empty table
func NewTermTable() *TermTable {
	return &TermTable{
		constants:  newInternTable[Constant](),
		variables:  newInternTable[Variable](),
		predicates: newInternTable[PredicateSym](),
	}
}

// Constant returns the interned constant with the given name
func (t *TermTable) Constant(name string) *Constant {
	return t.constants.intern(name, func() *Constant { return &Constant{name: name} })
}

// Variable returns the interned variable with the given name
func (t *TermTable) Variable(name string) *Variable {
	return t.variables.intern(name, func() *Variable { return &Variable{name: name} })
}

// FreshVariable returns a variable that no source text can name. It is used
// for anonymous variables.
func (t *TermTable) FreshVariable() *Variable {
	return t.Variable("_" + strconv.FormatUint(t.fresh.Add(1), 10) + "'")
}

// Predicate returns the interned predicate symbol for name/arity. The same
// name with different arities yields distinct symbols.
func (t *TermTable) Predicate(name string, arity int) *PredicateSym {
	if arity < 0 {
		panic("datalog: negative arity for predicate " + name)
	}
	key := name + "/" + strconv.Itoa(arity)
	return t.predicates.intern(key, func() *PredicateSym {
		return &PredicateSym{name: name, arity: arity}
	})
}

// Constants returns the interned constants, mostly for tests
func (t *TermTable) Constants() int { return t.constants.size() }

// True returns the reserved zero-arity atom used to give premise-only rules
// a trigger.
func (t *TermTable) True() *Atom {
	return NewAtom(t.Predicate(TruePredicate, 0))
}

// TruePredicate is the reserved name of the always-true EDB predicate
const TruePredicate = "$true"
