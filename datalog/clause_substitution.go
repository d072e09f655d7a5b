package datalog

import "fmt"

// ClauseLayout assigns every variable of a compiled rule body a slot equal
// to the order in which it first becomes bound when the body is scanned
// left to right. Boundaries[i] is the number of slots filled before body
// position i runs.
type ClauseLayout struct {
	slots      map[*Variable]int
	vars       []*Variable
	boundaries []int
}

// NewClauseLayout computes the slot layout for an ordered body. Negated
// atoms and disunifiers never introduce variables; a unifier introduces at
// most one.
func NewClauseLayout(body []Premise) *ClauseLayout {
	l := &ClauseLayout{
		slots:      make(map[*Variable]int),
		boundaries: make([]int, len(body)+1),
	}
	for i, p := range body {
		l.boundaries[i] = len(l.vars)
		if p.Kind == PremiseNegated || p.Kind == PremiseDisunifier {
			continue
		}
		for _, v := range p.Variables() {
			if _, ok := l.slots[v]; !ok {
				l.slots[v] = len(l.vars)
				l.vars = append(l.vars, v)
			}
		}
	}
	l.boundaries[len(body)] = len(l.vars)
	return l
}

// Slot returns v's slot, or -1 if v does not occur in a binding position
func (l *ClauseLayout) Slot(v *Variable) int {
	if i, ok := l.slots[v]; ok {
		return i
	}
	return -1
}

// Boundary returns the number of slots filled before body position i
func (l *ClauseLayout) Boundary(i int) int { return l.boundaries[i] }

// NumSlots returns the number of distinct binding variables
func (l *ClauseLayout) NumSlots() int { return len(l.vars) }

// ClauseSubstitution is an array-backed substitution scoped to one compiled
// clause. Slots are filled strictly in order, which makes backtracking to
// an earlier body position a single store.
type ClauseSubstitution struct {
	layout *ClauseLayout
	terms  []*Constant
	filled int
}

// NewClauseSubstitution creates an empty substitution for layout
func NewClauseSubstitution(layout *ClauseLayout) *ClauseSubstitution {
	return &ClauseSubstitution{
		layout: layout,
		terms:  make([]*Constant, len(layout.vars)),
	}
}

// Add binds v to c. v must own the next unfilled slot.
func (s *ClauseSubstitution) Add(v *Variable, c *Constant) {
	slot := s.layout.Slot(v)
	if slot != s.filled {
		panic(fmt.Sprintf("datalog: variable %s bound out of order (slot %d, next %d)", v, slot, s.filled))
	}
	s.terms[slot] = c
	s.filled++
}

// Get returns v's binding, or nil if its slot is not filled for the
// current body position
func (s *ClauseSubstitution) Get(v *Variable) Term {
	slot, ok := s.layout.slots[v]
	if !ok || slot >= s.filled {
		return nil
	}
	return s.terms[slot]
}

// ResetState discards every binding made at or after body position i
func (s *ClauseSubstitution) ResetState(i int) {
	s.filled = s.layout.boundaries[i]
}

// UnifyClause makes u and v equal under s. The same rules as Unify apply:
// distinct constants fail and two unbound variables panic.
func UnifyClause(u, v Term, s *ClauseSubstitution) bool {
	u = Resolve(u, s)
	v = Resolve(v, s)
	uc, uConst := u.(*Constant)
	vc, vConst := v.(*Constant)
	switch {
	case uConst && vConst:
		return uc == vc
	case uConst:
		s.Add(v.(*Variable), uc)
		return true
	case vConst:
		s.Add(u.(*Variable), vc)
		return true
	}
	panic(fmt.Sprintf("datalog: cannot unify unbound variables %s and %s", u, v))
}

// UnifyAtom unifies pattern against the ground fact argument by argument
func UnifyAtom(pattern, fact *Atom, s *ClauseSubstitution) bool {
	for i, t := range pattern.Args {
		if !UnifyClause(t, fact.Args[i], s) {
			return false
		}
	}
	return true
}
