package validate

import (
	"sort"

	"github.com/wbrown/saturn/datalog"
)

// EDBStratum is the synthetic stratum of predicates defined only by facts
const EDBStratum = -1

// StratifiedProgram is a program whose derived predicates are partitioned
// so that no predicate depends negatively on its own or a later stratum
type StratifiedProgram struct {
	*Program
	Strata        [][]*datalog.PredicateSym
	PredToStratum map[*datalog.PredicateSym]int
}

// StratumOf returns the stratum of pred; EDB predicates are in EDBStratum
func (sp *StratifiedProgram) StratumOf(pred *datalog.PredicateSym) int {
	if s, ok := sp.PredToStratum[pred]; ok {
		return s
	}
	return EDBStratum
}

type dependency struct {
	pred     *datalog.PredicateSym
	negative bool
	rule     *datalog.ValidClause
}

// Stratify splits the derived predicates into strongly connected components
// of the dependency graph, ordered so each component comes after the
// components it depends on. A negative edge inside a component is an error.
func Stratify(prog *Program) (*StratifiedProgram, error) {
	deps := make(map[*datalog.PredicateSym][]dependency)
	for _, r := range prog.Rules {
		for _, p := range r.Body {
			if p.Kind != datalog.PremiseAtom && p.Kind != datalog.PremiseNegated {
				continue
			}
			if !prog.IDB[p.Atom.Pred] {
				continue
			}
			deps[r.Head.Pred] = append(deps[r.Head.Pred], dependency{
				pred:     p.Atom.Pred,
				negative: p.Kind == datalog.PremiseNegated,
				rule:     r,
			})
		}
	}

	idb := make([]*datalog.PredicateSym, 0, len(prog.IDB))
	for p := range prog.IDB {
		idb = append(idb, p)
	}
	sort.Slice(idb, func(i, j int) bool { return idb[i].String() < idb[j].String() })

	t := &tarjan{
		deps:    deps,
		index:   make(map[*datalog.PredicateSym]int),
		lowlink: make(map[*datalog.PredicateSym]int),
		onStack: make(map[*datalog.PredicateSym]bool),
	}
	for _, p := range idb {
		if _, seen := t.index[p]; !seen {
			t.connect(p)
		}
	}

	sp := &StratifiedProgram{
		Program:       prog,
		Strata:        t.components,
		PredToStratum: make(map[*datalog.PredicateSym]int),
	}
	for i, stratum := range sp.Strata {
		for _, p := range stratum {
			sp.PredToStratum[p] = i
		}
	}

	for head, ds := range deps {
		for _, d := range ds {
			if d.negative && sp.PredToStratum[d.pred] == sp.PredToStratum[head] {
				return nil, clauseError(&d.rule.Clause, ErrNotStratifiable,
					"%s depends negatively on %s within a recursive cycle", head, d.pred)
			}
		}
	}
	return sp, nil
}

// tarjan emits strongly connected components in reverse topological order
// of the dependency edges, i.e. dependencies first
type tarjan struct {
	deps       map[*datalog.PredicateSym][]dependency
	counter    int
	index      map[*datalog.PredicateSym]int
	lowlink    map[*datalog.PredicateSym]int
	stack      []*datalog.PredicateSym
	onStack    map[*datalog.PredicateSym]bool
	components [][]*datalog.PredicateSym
}

func (t *tarjan) connect(p *datalog.PredicateSym) {
	t.index[p] = t.counter
	t.lowlink[p] = t.counter
	t.counter++
	t.stack = append(t.stack, p)
	t.onStack[p] = true

	for _, d := range t.deps[p] {
		q := d.pred
		if _, seen := t.index[q]; !seen {
			t.connect(q)
			t.lowlink[p] = min(t.lowlink[p], t.lowlink[q])
		} else if t.onStack[q] {
			t.lowlink[p] = min(t.lowlink[p], t.index[q])
		}
	}

	if t.lowlink[p] != t.index[p] {
		return
	}
	var component []*datalog.PredicateSym
	for {
		q := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[q] = false
		component = append(component, q)
		if q == p {
			break
		}
	}
	sort.Slice(component, func(i, j int) bool { return component[i].String() < component[j].String() })
	t.components = append(t.components, component)
}
