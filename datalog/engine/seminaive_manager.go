package engine

import (
	"github.com/sirupsen/logrus"
	"github.com/wbrown/saturn/datalog"
	"github.com/wbrown/saturn/datalog/executor"
	"github.com/wbrown/saturn/datalog/planner"
	"github.com/wbrown/saturn/datalog/storage"
	"github.com/wbrown/saturn/datalog/validate"
)

// evaluatorIndex maps a delta predicate to the plans it triggers
type evaluatorIndex map[*datalog.PredicateSym][]*executor.ClauseEvaluator

// compilePlans annotates every rule and builds one evaluator per plan
func compilePlans(rules []*datalog.ValidClause, idb map[*datalog.PredicateSym]bool,
	newFact executor.NewFactFunc, getFacts executor.GetFactsFunc) (evaluatorIndex, int) {
	index := make(evaluatorIndex)
	n := 0
	for _, r := range rules {
		for _, plan := range planner.Annotate(r, idb) {
			ev := executor.NewClauseEvaluator(plan, newFact, getFacts)
			pred := plan.Delta().Pred
			index[pred] = append(index[pred], ev)
			n++
		}
	}
	return index, n
}

// SemiNaiveManager saturates a negation-free program with a single pool.
// Every new fact fans out to the plans whose delta predicate it matches,
// and every fact those plans derive is fed back the same way until the
// pool goes idle.
type SemiNaiveManager struct {
	facts      *factStore
	pool       *executor.Pool
	evaluators evaluatorIndex
	plans      int
	initial    []*datalog.Atom
	listeners  *listenerRegistry
	cfg        Config
	log        logrus.FieldLogger
}

// newSemiNaiveManager compiles prog. Predicates in extra are treated as
// derived so facts added after evaluation starts still trigger rules.
func newSemiNaiveManager(prog *validate.Program, extra map[*datalog.PredicateSym]bool, cfg Config, log logrus.FieldLogger) *SemiNaiveManager {
	m := &SemiNaiveManager{
		facts:     newFactStore(cfg.Metrics),
		initial:   prog.Facts,
		listeners: newListenerRegistry(),
		cfg:       cfg,
		log:       log,
	}
	idb := make(map[*datalog.PredicateSym]bool, len(prog.IDB)+len(extra))
	for p := range prog.IDB {
		idb[p] = true
	}
	for p := range extra {
		idb[p] = true
	}
	m.evaluators, m.plans = compilePlans(prog.Rules, idb, m.newFact, m.facts.getFacts)
	return m
}

// Eval seeds the base facts and blocks until the fixpoint is reached. The
// pool stays alive so extensible engines can keep adding facts.
func (m *SemiNaiveManager) Eval() {
	m.start()
	m.seed()
	m.pool.Wait()
}

// start creates the pool. Facts may be added from any goroutine afterwards.
func (m *SemiNaiveManager) start() {
	m.pool = executor.NewPool(m.cfg.Workers)
}

// seed propagates every new base fact without waiting for the resulting
// joins. Listeners hear about base facts on the calling goroutine.
func (m *SemiNaiveManager) seed() {
	// Index every base fact before any join runs so rules triggered by one
	// base predicate see all facts of the others.
	fresh := make([]*datalog.Atom, 0, len(m.initial))
	for _, f := range m.initial {
		if m.facts.addGround(f) {
			fresh = append(fresh, f)
		}
	}
	m.log.WithField("facts", len(fresh)).Debug("seeded base facts")
	for _, f := range fresh {
		m.listeners.notify(f)
		m.propagate(f)
	}
}

// addFact pushes an externally supplied fact through the store and
// propagates it if new
func (m *SemiNaiveManager) addFact(f *datalog.Atom) bool {
	if !m.facts.addGround(f) {
		return false
	}
	m.listeners.notify(f)
	m.propagate(f)
	return true
}

func (m *SemiNaiveManager) newFact(head *datalog.Atom, s *datalog.ClauseSubstitution) {
	f, ok := m.facts.addDerived(head, s)
	if !ok {
		return
	}
	m.listeners.notify(f)
	m.propagate(f)
}

func (m *SemiNaiveManager) propagate(f *datalog.Atom) {
	for _, ev := range m.evaluators[f.Pred] {
		ev := ev
		m.cfg.Metrics.TaskSubmitted()
		m.pool.Submit(func() {
			m.cfg.Metrics.RuleEvaluated()
			ev.Evaluate(f)
		})
	}
}

// Index returns the fact indexes
func (m *SemiNaiveManager) Index() *storage.FactIndexer { return m.facts.index }

// Plans returns the number of compiled plans
func (m *SemiNaiveManager) Plans() int { return m.plans }

// Tasks returns the number of join tasks submitted so far
func (m *SemiNaiveManager) Tasks() int64 {
	if m.pool == nil {
		return 0
	}
	return m.pool.Submitted()
}

// Flush blocks until no join task is queued or running
func (m *SemiNaiveManager) Flush() { m.pool.Wait() }

// Shutdown stops the pool after outstanding work finishes
func (m *SemiNaiveManager) Shutdown() {
	if m.pool != nil {
		m.pool.Shutdown()
	}
}
