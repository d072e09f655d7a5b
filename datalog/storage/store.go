// Package storage holds ground facts: the concurrent in-memory indexes the
// evaluator joins against, the trie that decides whether a fact is new, and
// an on-disk store for saving and loading fact sets.
package storage

import (
	"sync"

	"github.com/wbrown/saturn/datalog"
)

// FactSource answers join lookups. Implementations are safe for
// concurrent use.
type FactSource interface {
	// IndexInto returns a superset of the stored facts that unify with
	// atom under s. The returned slice must not be modified.
	IndexInto(atom *datalog.Atom, s datalog.Substitution) []*datalog.Atom
}

// factBag is an append-only collection. Snapshots taken under the read lock
// stay valid after later appends because existing elements never move or
// change.
type factBag struct {
	mu    sync.RWMutex
	facts []*datalog.Atom
}

func (b *factBag) add(f *datalog.Atom) {
	b.mu.Lock()
	b.facts = append(b.facts, f)
	b.mu.Unlock()
}

func (b *factBag) snapshot() []*datalog.Atom {
	b.mu.RLock()
	facts := b.facts[:len(b.facts):len(b.facts)]
	b.mu.RUnlock()
	return facts
}

func (b *factBag) size() int {
	b.mu.RLock()
	n := len(b.facts)
	b.mu.RUnlock()
	return n
}
