package engine

import (
	"sync"
	"sync/atomic"

	"github.com/wbrown/saturn/datalog"
)

// Listener is called once for each new fact of the predicate it was
// registered for, on whichever worker goroutine derived the fact
type Listener func(fact *datalog.Atom)

// listenerRegistry is copy-on-write: notify reads a snapshot without
// locking, register swaps in a new map under the mutex
type listenerRegistry struct {
	mu        sync.Mutex
	listeners atomic.Pointer[map[*datalog.PredicateSym][]Listener]
}

func newListenerRegistry() *listenerRegistry {
	r := &listenerRegistry{}
	empty := make(map[*datalog.PredicateSym][]Listener)
	r.listeners.Store(&empty)
	return r
}

func (r *listenerRegistry) register(pred *datalog.PredicateSym, l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := *r.listeners.Load()
	next := make(map[*datalog.PredicateSym][]Listener, len(old)+1)
	for p, ls := range old {
		next[p] = ls
	}
	next[pred] = append(append([]Listener(nil), old[pred]...), l)
	r.listeners.Store(&next)
}

func (r *listenerRegistry) notify(f *datalog.Atom) {
	for _, l := range (*r.listeners.Load())[f.Pred] {
		l(f)
	}
}
