package engine

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/wbrown/saturn/datalog"
	"github.com/wbrown/saturn/datalog/annotations"
	"github.com/wbrown/saturn/datalog/validate"
)

// ExtensibleEngine evaluates a negation-free program and then keeps
// accepting facts of predicates declared extensible. Each added fact is
// propagated through the same store and rules as the base facts, and
// listeners hear about every fact derived after they register.
type ExtensibleEngine struct {
	table      *datalog.TermTable
	cfg        Config
	extensible map[*datalog.PredicateSym]bool

	mu     sync.RWMutex
	mgr    *SemiNaiveManager
	result *Result
	closed bool

	// adds counts AddFact calls that may not have submitted their tasks yet
	addsMu sync.Mutex
	addsCV *sync.Cond
	adds   int
}

// NewExtensible creates an engine that allows AddFact on the given
// predicates
func NewExtensible(table *datalog.TermTable, cfg Config, extensible ...*datalog.PredicateSym) *ExtensibleEngine {
	e := &ExtensibleEngine{
		table:      table,
		cfg:        cfg,
		extensible: make(map[*datalog.PredicateSym]bool, len(extensible)),
	}
	e.addsCV = sync.NewCond(&e.addsMu)
	for _, p := range extensible {
		e.extensible[p] = true
	}
	return e
}

// Init validates and compiles clauses, which must not use negation
func (e *ExtensibleEngine) Init(clauses []*datalog.Clause) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mgr != nil {
		return ErrAlreadyInitialized
	}
	prog, err := validate.Validate(e.table, clauses, e.cfg.Features)
	if err != nil {
		return fmt.Errorf("invalid program: %w", err)
	}
	if prog.HasNegation() {
		return ErrNegationNotExtensible
	}
	log := e.cfg.logger().WithField("run", uuid.NewString())
	e.mgr = newSemiNaiveManager(prog, e.extensible, e.cfg, log)
	return nil
}

// AddListener registers fn for new facts of pred. Facts derived before
// registration are not replayed.
func (e *ExtensibleEngine) AddListener(pred *datalog.PredicateSym, fn Listener) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.mgr == nil {
		panic("engine: AddListener called before Init")
	}
	e.mgr.listeners.register(pred, fn)
}

// Eval runs the base program to fixpoint. Listeners, including those
// hearing about base facts, may call AddFact while it runs. The returned
// result keeps growing as facts are added, so its queries are never cached.
func (e *ExtensibleEngine) Eval() *Result {
	e.mu.Lock()
	if e.mgr == nil {
		e.mu.Unlock()
		panic("engine: Eval called without a successful Init")
	}
	if e.result != nil {
		e.mu.Unlock()
		panic("engine: Eval called twice")
	}
	e.mgr.start()
	e.result = newResult(e.mgr.Index(), 0, annotations.NewCollector(e.cfg.Annotations))
	result := e.result
	// Seeding counts as an add in flight so Flush and Close wait for it
	e.beginAdd()
	e.mu.Unlock()

	e.mgr.seed()
	e.endAdd()
	e.Flush()
	return result
}

func (e *ExtensibleEngine) beginAdd() {
	e.addsMu.Lock()
	e.adds++
	e.addsMu.Unlock()
}

func (e *ExtensibleEngine) endAdd() {
	e.addsMu.Lock()
	e.adds--
	if e.adds == 0 {
		e.addsCV.Broadcast()
	}
	e.addsMu.Unlock()
}

// AddFact adds a ground fact of an extensible predicate after Eval has
// started. It returns without waiting for consequences; use Flush for
// that. The bool reports whether the fact was new.
func (e *ExtensibleEngine) AddFact(fact *datalog.Atom) (bool, error) {
	if !e.extensible[fact.Pred] {
		return false, fmt.Errorf("%w: %s", ErrNotExtensible, fact.Pred)
	}
	if !fact.IsGround() {
		return false, fmt.Errorf("%w: %s", validate.ErrNonGroundFact, fact)
	}

	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return false, ErrClosed
	}
	if e.result == nil {
		e.mu.RUnlock()
		panic("engine: AddFact called before Eval")
	}
	e.beginAdd()
	e.mu.RUnlock()

	defer e.endAdd()
	return e.mgr.addFact(fact), nil
}

// Flush blocks until no AddFact call is in flight and all derived work is
// finished. Calling it from a listener deadlocks.
func (e *ExtensibleEngine) Flush() {
	e.addsMu.Lock()
	for e.adds > 0 {
		e.addsCV.Wait()
	}
	e.addsMu.Unlock()
	e.mgr.Flush()
}

// Close flushes and stops the worker pool. Further AddFact calls fail.
func (e *ExtensibleEngine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	if e.mgr == nil || e.result == nil {
		return
	}
	e.Flush()
	e.mgr.Shutdown()
}

// Result returns the live result, or nil before Eval
func (e *ExtensibleEngine) Result() *Result {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.result
}
