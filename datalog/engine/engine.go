// Package engine evaluates Datalog programs bottom-up to saturation.
//
// Rules are compiled into semi-naive plans and run as concurrent join
// tasks against a shared fact store. Programs without negation use a
// single pool; programs with negation are stratified and each stratum is
// scheduled once the strata it depends on are complete.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wbrown/saturn/datalog"
	"github.com/wbrown/saturn/datalog/annotations"
	"github.com/wbrown/saturn/datalog/storage"
	"github.com/wbrown/saturn/datalog/validate"
)

// manager runs one program to fixpoint
type manager interface {
	Eval()
	Index() *storage.FactIndexer
	Plans() int
	Tasks() int64
}

// Engine evaluates one program. Init and Eval may each be called once.
type Engine struct {
	table     *datalog.TermTable
	cfg       Config
	runID     string
	log       logrus.FieldLogger
	collector *annotations.Collector

	mu          sync.Mutex
	initialized bool
	evaluated   bool
	prog        *validate.Program
	mgr         manager
	result      *Result
}

// New creates an engine over terms interned in table
func New(table *datalog.TermTable, cfg Config) *Engine {
	runID := uuid.NewString()
	return &Engine{
		table:     table,
		cfg:       cfg,
		runID:     runID,
		log:       cfg.logger().WithField("run", runID),
		collector: annotations.NewCollector(cfg.Annotations),
	}
}

// RunID identifies this engine in logs and annotations
func (e *Engine) RunID() string { return e.runID }

// Init validates and compiles clauses. It fails if called twice or if the
// program is invalid; an engine whose Init failed cannot be evaluated.
func (e *Engine) Init(clauses []*datalog.Clause) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		return ErrAlreadyInitialized
	}
	e.initialized = true

	start := time.Now()
	prog, err := validate.Validate(e.table, clauses, e.cfg.Features)
	if err != nil {
		return fmt.Errorf("invalid program: %w", err)
	}
	for _, c := range prog.Dropped {
		e.log.WithField("clause", c.String()).Debug("dropped rule with unsatisfiable unifiers")
	}

	kind := "semi-naive"
	if prog.HasNegation() {
		sp, err := validate.Stratify(prog)
		if err != nil {
			return fmt.Errorf("invalid program: %w", err)
		}
		e.mgr = newStratifiedManager(sp, e.cfg, e.log, e.collector)
		kind = "stratified"
	} else {
		e.mgr = newSemiNaiveManager(prog, nil, e.cfg, e.log)
	}
	e.prog = prog

	e.log.WithFields(logrus.Fields{
		"rules":   len(prog.Rules),
		"plans":   e.mgr.Plans(),
		"manager": kind,
	}).Debug("compiled program")
	e.collector.AddTiming(annotations.EvalCompiled, start, map[string]interface{}{
		"rules.count": len(prog.Rules),
		"plans.count": e.mgr.Plans(),
		"manager":     kind,
	})
	return nil
}

// Program returns the validated program, or nil before a successful Init
func (e *Engine) Program() *validate.Program {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prog
}

// Eval runs the program to fixpoint. Calling it twice, or without a
// successful Init, is a programming error and panics.
func (e *Engine) Eval() *Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mgr == nil {
		panic("engine: Eval called without a successful Init")
	}
	if e.evaluated {
		panic("engine: Eval called twice")
	}
	e.evaluated = true

	start := time.Now()
	e.collector.Add(annotations.Event{
		Name:  annotations.EvalInvoked,
		Start: start,
		End:   start,
		Data: map[string]interface{}{
			"run":         e.runID,
			"facts.count": len(e.prog.Facts),
		},
	})

	e.mgr.Eval()
	if sm, ok := e.mgr.(*SemiNaiveManager); ok {
		sm.Shutdown()
	}

	elapsed := time.Since(start)
	e.cfg.Metrics.ObserveEval(elapsed.Seconds())
	e.result = newResult(e.mgr.Index(), e.cfg.QueryCacheSize, e.collector)

	e.log.WithFields(logrus.Fields{
		"facts":   e.result.Size(),
		"tasks":   e.mgr.Tasks(),
		"elapsed": elapsed,
	}).Debug("saturated")
	e.collector.AddTiming(annotations.EvalCompleted, start, map[string]interface{}{
		"facts.count": e.result.Size(),
		"tasks.count": e.mgr.Tasks(),
	})
	return e.result
}

// Query returns every derived fact unifying with q. It panics before Eval.
func (e *Engine) Query(q *datalog.Atom) []*datalog.Atom {
	e.mu.Lock()
	result := e.result
	e.mu.Unlock()
	if result == nil {
		panic("engine: Query called before Eval")
	}
	return result.Query(q)
}

// Events returns the annotation events recorded so far
func (e *Engine) Events() []annotations.Event {
	return e.collector.Events()
}
