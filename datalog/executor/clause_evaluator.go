package executor

import (
	"fmt"

	"github.com/wbrown/saturn/datalog"
	"github.com/wbrown/saturn/datalog/planner"
)

// NewFactFunc receives a derived head. The head is a template; applying s
// to it gives the ground fact. s is only valid for the duration of the
// call.
type NewFactFunc func(head *datalog.Atom, s *datalog.ClauseSubstitution)

// GetFactsFunc returns candidate facts for atom under s (see
// storage.FactIndexer.IndexInto)
type GetFactsFunc func(atom *datalog.Atom, s datalog.Substitution) []*datalog.Atom

// step evaluates one body position and everything after it
type step func(s *datalog.ClauseSubstitution)

// ClauseEvaluator runs one compiled plan as an incremental nested-loop
// join. It holds no mutable state, so one evaluator may run on many
// goroutines at once.
type ClauseEvaluator struct {
	clause *planner.SemiNaiveClause
	first  step
}

// NewClauseEvaluator compiles clause into a chain of closures, one per body
// position, built from the head back to the first join step
func NewClauseEvaluator(clause *planner.SemiNaiveClause, newFact NewFactFunc, getFacts GetFactsFunc) *ClauseEvaluator {
	head := clause.Head
	next := step(func(s *datalog.ClauseSubstitution) {
		newFact(head, s)
	})
	for i := len(clause.Body) - 1; i >= 1; i-- {
		next = compileStep(i, clause.Body[i], next, getFacts)
	}
	return &ClauseEvaluator{clause: clause, first: next}
}

// Clause returns the plan this evaluator runs
func (e *ClauseEvaluator) Clause() *planner.SemiNaiveClause { return e.clause }

// Evaluate joins fact, which must match the plan's delta predicate,
// against the rest of the body and emits every head it derives
func (e *ClauseEvaluator) Evaluate(fact *datalog.Atom) {
	delta := e.clause.Delta()
	if fact.Pred != delta.Pred {
		panic(fmt.Sprintf("executor: fact %s does not match delta atom %s", fact, delta))
	}
	s := datalog.NewClauseSubstitution(e.clause.Layout)
	if datalog.UnifyAtom(delta, fact, s) {
		e.first(s)
	}
}

func compileStep(i int, p datalog.Premise, next step, getFacts GetFactsFunc) step {
	switch p.Kind {
	case datalog.PremiseAtom, datalog.PremiseAnnotated:
		atom := p.Atom
		return func(s *datalog.ClauseSubstitution) {
			for _, fact := range getFacts(atom, s) {
				s.ResetState(i)
				if datalog.UnifyAtom(atom, fact, s) {
					next(s)
				}
			}
		}

	case datalog.PremiseNegated:
		atom := p.Atom
		return func(s *datalog.ClauseSubstitution) {
			for _, fact := range getFacts(atom, s) {
				if matches(atom, fact, s) {
					return
				}
			}
			next(s)
		}

	case datalog.PremiseUnifier:
		left, right := p.Left, p.Right
		return func(s *datalog.ClauseSubstitution) {
			s.ResetState(i)
			if datalog.UnifyClause(left, right, s) {
				next(s)
			}
		}

	case datalog.PremiseDisunifier:
		left, right := p.Left, p.Right
		return func(s *datalog.ClauseSubstitution) {
			if datalog.Resolve(left, s) != datalog.Resolve(right, s) {
				next(s)
			}
		}
	}
	panic(fmt.Sprintf("executor: unknown premise kind %d", p.Kind))
}

// matches reports whether the bound atom equals fact. Negated atoms and
// their facts are both ground under s, so this is argument-wise identity.
func matches(atom, fact *datalog.Atom, s *datalog.ClauseSubstitution) bool {
	for i, t := range atom.Args {
		if datalog.Resolve(t, s) != datalog.Term(fact.Args[i]) {
			return false
		}
	}
	return true
}
