package engine

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wbrown/saturn/datalog"
	"github.com/wbrown/saturn/datalog/annotations"
	"github.com/wbrown/saturn/datalog/executor"
	"github.com/wbrown/saturn/datalog/storage"
	"github.com/wbrown/saturn/datalog/validate"
)

// StratifiedManager saturates a program with negation. Each stratum gets a
// handler with its own pool. A handler starts joining only after every
// stratum it negates has finished, and reports completion only after every
// stratum it reads positively has finished and its own pool is idle.
type StratifiedManager struct {
	prog      *validate.StratifiedProgram
	facts     *factStore
	handlers  []*stratumHandler
	relevant  map[*datalog.PredicateSym][]*stratumHandler
	plans     int
	cfg       Config
	log       logrus.FieldLogger
	collector *annotations.Collector

	tasksMu sync.Mutex
	tasks   int64
}

// stratumHandler moves through: waiting on negative dependencies, draining
// facts queued before it started, waiting on positive dependencies, done
type stratumHandler struct {
	id         int
	mgr        *StratifiedManager
	evaluators evaluatorIndex
	negDeps    map[int]bool
	posDeps    map[int]bool
	notify     chan int

	mu      sync.Mutex
	started bool
	queued  []*datalog.Atom
	pool    *executor.Pool
}

func newStratifiedManager(prog *validate.StratifiedProgram, cfg Config, log logrus.FieldLogger, collector *annotations.Collector) *StratifiedManager {
	m := &StratifiedManager{
		prog:      prog,
		facts:     newFactStore(cfg.Metrics),
		relevant:  make(map[*datalog.PredicateSym][]*stratumHandler),
		cfg:       cfg,
		log:       log,
		collector: collector,
	}

	rulesByStratum := make([][]*datalog.ValidClause, len(prog.Strata))
	for _, r := range prog.Rules {
		s := prog.StratumOf(r.Head.Pred)
		rulesByStratum[s] = append(rulesByStratum[s], r)
	}

	m.handlers = make([]*stratumHandler, len(prog.Strata))
	for i := range prog.Strata {
		h := &stratumHandler{
			id:      i,
			mgr:     m,
			negDeps: make(map[int]bool),
			posDeps: make(map[int]bool),
			// One slot per other stratum plus the EDB stratum, so a
			// broadcast never blocks
			notify: make(chan int, len(prog.Strata)+1),
		}
		var n int
		h.evaluators, n = compilePlans(rulesByStratum[i], prog.IDB, h.newFact, m.facts.getFacts)
		m.plans += n

		h.posDeps[validate.EDBStratum] = true
		for _, r := range rulesByStratum[i] {
			for _, p := range r.Body {
				switch p.Kind {
				case datalog.PremiseAtom:
					if s := prog.StratumOf(p.Atom.Pred); s != i {
						h.posDeps[s] = true
					}
				case datalog.PremiseNegated:
					h.negDeps[prog.StratumOf(p.Atom.Pred)] = true
				}
			}
		}
		for pred := range h.evaluators {
			m.relevant[pred] = append(m.relevant[pred], h)
		}
		m.handlers[i] = h
	}
	return m
}

// Eval seeds the base facts, runs every handler and blocks until all of
// them report done
func (m *StratifiedManager) Eval() {
	fresh := make([]*datalog.Atom, 0, len(m.prog.Facts))
	for _, f := range m.prog.Facts {
		if m.facts.addGround(f) {
			fresh = append(fresh, f)
		}
	}
	for _, f := range fresh {
		m.route(f)
	}
	m.log.WithFields(logrus.Fields{
		"facts":  len(fresh),
		"strata": len(m.handlers),
	}).Debug("seeded base facts")

	// The group only joins the handler goroutines; run always returns nil
	var g errgroup.Group
	for _, h := range m.handlers {
		g.Go(h.run)
	}
	m.broadcast(validate.EDBStratum)
	_ = g.Wait()
}

// route hands a new fact to every stratum with a plan triggered by it
func (m *StratifiedManager) route(f *datalog.Atom) {
	for _, h := range m.relevant[f.Pred] {
		h.enqueue(f)
	}
}

// broadcast tells every handler that stratum id is done
func (m *StratifiedManager) broadcast(id int) {
	for _, h := range m.handlers {
		if h.id != id {
			h.notify <- id
		}
	}
}

// Index returns the fact indexes
func (m *StratifiedManager) Index() *storage.FactIndexer { return m.facts.index }

// Plans returns the number of compiled plans
func (m *StratifiedManager) Plans() int { return m.plans }

// Tasks returns the number of join tasks submitted across all strata
func (m *StratifiedManager) Tasks() int64 {
	m.tasksMu.Lock()
	defer m.tasksMu.Unlock()
	return m.tasks
}

// run drives the handler through its phases. It has the errgroup
// signature but cannot fail.
func (h *stratumHandler) run() error {
	start := time.Now()
	done := make(map[int]bool)
	h.await(done, h.negDeps)

	queued := h.start()
	h.mgr.log.WithFields(logrus.Fields{
		"stratum": h.id,
		"queued":  queued,
	}).Debug("stratum started")
	h.mgr.collector.AddTiming(annotations.StratumBegin, start, map[string]interface{}{
		"stratum":      h.id,
		"queued.count": queued,
	})

	h.await(done, h.posDeps)
	h.pool.Wait()

	h.mgr.broadcast(h.id)
	h.pool.Shutdown()

	h.mgr.tasksMu.Lock()
	h.mgr.tasks += h.pool.Submitted()
	h.mgr.tasksMu.Unlock()
	h.mgr.cfg.Metrics.StratumCompleted()
	h.mgr.log.WithField("stratum", h.id).Debug("stratum done")
	h.mgr.collector.AddTiming(annotations.StratumComplete, start, map[string]interface{}{
		"stratum": h.id,
	})
	return nil
}

// await consumes completion notices until every stratum in deps is done
func (h *stratumHandler) await(done, deps map[int]bool) {
	for !covers(done, deps) {
		done[<-h.notify] = true
	}
}

func covers(done, deps map[int]bool) bool {
	for d := range deps {
		if !done[d] {
			return false
		}
	}
	return true
}

// start creates the pool and dispatches everything queued so far. Facts
// enqueued afterwards go straight to the pool.
func (h *stratumHandler) start() int {
	h.mu.Lock()
	h.pool = executor.NewPool(h.mgr.cfg.Workers)
	h.started = true
	queued := h.queued
	h.queued = nil
	h.mu.Unlock()

	for _, f := range queued {
		h.dispatch(f)
	}
	return len(queued)
}

func (h *stratumHandler) enqueue(f *datalog.Atom) {
	h.mu.Lock()
	if !h.started {
		h.queued = append(h.queued, f)
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()
	h.dispatch(f)
}

func (h *stratumHandler) dispatch(f *datalog.Atom) {
	metrics := h.mgr.cfg.Metrics
	for _, ev := range h.evaluators[f.Pred] {
		ev := ev
		metrics.TaskSubmitted()
		h.pool.Submit(func() {
			metrics.RuleEvaluated()
			ev.Evaluate(f)
		})
	}
}

func (h *stratumHandler) newFact(head *datalog.Atom, s *datalog.ClauseSubstitution) {
	if f, ok := h.mgr.facts.addDerived(head, s); ok {
		h.mgr.route(f)
	}
}
