package datalog

import (
	"fmt"
	"strings"
)

// PredicateSym is an interned (name, arity) pair
type PredicateSym struct {
	name  string
	arity int
}

// Name returns the predicate name
func (p *PredicateSym) Name() string { return p.name }

// Arity returns the number of arguments atoms of this predicate take
func (p *PredicateSym) Arity() int { return p.arity }

// String returns name/arity
func (p *PredicateSym) String() string {
	return fmt.Sprintf("%s/%d", p.name, p.arity)
}

// Atom is a predicate applied to terms. Atoms are immutable once built;
// callers must not modify Args.
type Atom struct {
	Pred   *PredicateSym
	Args   []Term
	ground bool
}

// NewAtom builds an atom. Passing the wrong number of arguments is a
// programming error and panics.
func NewAtom(pred *PredicateSym, args ...Term) *Atom {
	if len(args) != pred.arity {
		panic(fmt.Sprintf("datalog: predicate %s applied to %d arguments", pred, len(args)))
	}
	ground := true
	for _, t := range args {
		if _, ok := t.(*Constant); !ok {
			ground = false
			break
		}
	}
	return &Atom{Pred: pred, Args: args, ground: ground}
}

// IsGround reports whether every argument is a constant
func (a *Atom) IsGround() bool { return a.ground }

// Variables returns the distinct variables of the atom in order of first
// occurrence
func (a *Atom) Variables() []*Variable {
	var vars []*Variable
	for _, t := range a.Args {
		v, ok := t.(*Variable)
		if !ok {
			continue
		}
		seen := false
		for _, w := range vars {
			if w == v {
				seen = true
				break
			}
		}
		if !seen {
			vars = append(vars, v)
		}
	}
	return vars
}

// Apply returns the atom with every bound variable replaced by its binding.
// Ground atoms are returned unchanged.
func (a *Atom) Apply(s Substitution) *Atom {
	if a.ground {
		return a
	}
	args := make([]Term, len(a.Args))
	for i, t := range a.Args {
		args[i] = Resolve(t, s)
	}
	return NewAtom(a.Pred, args...)
}

// Unify attempts to unify a with a ground fact, extending s. It returns
// false if some argument cannot be made equal.
func (a *Atom) Unify(fact *Atom, s *MapSubstitution) bool {
	if a.Pred != fact.Pred {
		return false
	}
	for i, t := range a.Args {
		if !Unify(t, fact.Args[i], s) {
			return false
		}
	}
	return true
}

// String formats the atom in source syntax
func (a *Atom) String() string {
	if len(a.Args) == 0 {
		return a.Pred.name
	}
	var sb strings.Builder
	sb.WriteString(a.Pred.name)
	sb.WriteByte('(')
	for i, t := range a.Args {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(t.String())
	}
	sb.WriteByte(')')
	return sb.String()
}
