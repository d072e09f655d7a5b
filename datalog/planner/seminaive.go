// Package planner compiles validated rules into semi-naive execution plans.
//
// Every rule is rewritten into one plan per body atom over a derived
// predicate. In each plan that atom is the delta: evaluation starts from a
// single new fact matching it and joins the rest of the body against the
// fact store.
package planner

import (
	"fmt"
	"strings"

	"github.com/wbrown/saturn/datalog"
)

// SemiNaiveClause is a valid clause whose body has been annotated and
// reordered for incremental evaluation. Body[0] is always the delta atom.
type SemiNaiveClause struct {
	Head   *datalog.Atom
	Body   []datalog.Premise
	Source *datalog.ValidClause
	Layout *datalog.ClauseLayout
}

// Delta returns the atom new facts are matched against
func (c *SemiNaiveClause) Delta() *datalog.Atom { return c.Body[0].Atom }

// String formats the plan with its annotations
func (c *SemiNaiveClause) String() string {
	parts := make([]string, len(c.Body))
	for i, p := range c.Body {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s :- %s.", c.Head, strings.Join(parts, ", "))
}

// Annotate rewrites clause into its semi-naive variants. idb holds every
// predicate whose facts may arrive after evaluation starts. A body with no
// such atom yields a single plan triggered by its first positive atom.
func Annotate(clause *datalog.ValidClause, idb map[*datalog.PredicateSym]bool) []*SemiNaiveClause {
	if clause.IsFact() {
		panic("planner: cannot annotate fact " + clause.String())
	}

	var candidates []int
	firstAtom := -1
	for i, p := range clause.Body {
		if !p.IsPositiveAtom() {
			continue
		}
		if firstAtom < 0 {
			firstAtom = i
		}
		if idb[p.Atom.Pred] {
			candidates = append(candidates, i)
		}
	}
	if firstAtom < 0 {
		panic("planner: rule has no positive atom: " + clause.String())
	}

	if len(candidates) == 0 {
		body := annotateAt(clause.Body, firstAtom, idb)
		return []*SemiNaiveClause{newSemiNaiveClause(clause, body)}
	}

	plans := make([]*SemiNaiveClause, 0, len(candidates))
	for _, delta := range candidates {
		body := annotateAt(clause.Body, delta, idb)
		plans = append(plans, newSemiNaiveClause(clause, body))
	}
	return plans
}

// annotateAt tags every positive atom relative to the delta position and
// moves the delta to the front. Other premises keep their relative order;
// reorder decides their final placement.
func annotateAt(body []datalog.Premise, delta int, idb map[*datalog.PredicateSym]bool) []datalog.Premise {
	out := make([]datalog.Premise, 0, len(body))
	out = append(out, datalog.Annotated(body[delta].Atom, datalog.Delta))
	for i, p := range body {
		if i == delta {
			continue
		}
		if !p.IsPositiveAtom() {
			out = append(out, p)
			continue
		}
		anno := datalog.EDB
		if idb[p.Atom.Pred] {
			if i < delta {
				anno = datalog.IDB
			} else {
				anno = datalog.IDBPrev
			}
		}
		out = append(out, datalog.Annotated(p.Atom, anno))
	}
	return out
}

func newSemiNaiveClause(src *datalog.ValidClause, body []datalog.Premise) *SemiNaiveClause {
	body = reorder(body)
	return &SemiNaiveClause{
		Head:   src.Head,
		Body:   body,
		Source: src,
		Layout: datalog.NewClauseLayout(body),
	}
}
