// Package validate checks parsed clauses before evaluation and rewrites
// them into valid clauses: facts are ground, every rule variable is bound,
// and rules whose explicit unifiers can never hold are dropped.
package validate

import (
	"github.com/wbrown/saturn/datalog"
)

// Features gates optional language constructs
type Features struct {
	Negation    bool `yaml:"negation"`
	Unification bool `yaml:"unification"`
}

// AllFeatures enables every construct
func AllFeatures() Features {
	return Features{Negation: true, Unification: true}
}

// Program is a validated set of clauses
type Program struct {
	Rules []*datalog.ValidClause
	Facts []*datalog.Atom
	EDB   map[*datalog.PredicateSym]bool
	IDB   map[*datalog.PredicateSym]bool

	// Dropped holds rules removed because their unifiers are unsatisfiable
	Dropped []*datalog.Clause
}

// HasNegation reports whether any rule contains a negated premise
func (p *Program) HasNegation() bool {
	for _, r := range p.Rules {
		if r.HasNegation() {
			return true
		}
	}
	return false
}

// termMap is a substitution from variables to arbitrary terms
type termMap map[*datalog.Variable]datalog.Term

func (m termMap) Get(v *datalog.Variable) datalog.Term {
	if t, ok := m[v]; ok {
		return t
	}
	return nil
}

// Validate checks clauses against features and returns the rewritten
// program. The first offending clause aborts validation.
func Validate(table *datalog.TermTable, clauses []*datalog.Clause, features Features) (*Program, error) {
	prog := &Program{
		EDB: make(map[*datalog.PredicateSym]bool),
		IDB: make(map[*datalog.PredicateSym]bool),
	}
	needTrue := false

	for _, c := range clauses {
		if c.Head.Pred.Name() == datalog.TruePredicate {
			return nil, clauseError(c, ErrReservedPredicate, "%s cannot be defined", datalog.TruePredicate)
		}
		if c.IsFact() {
			if !c.Head.IsGround() {
				return nil, clauseError(c, ErrNonGroundFact, "")
			}
			prog.Facts = append(prog.Facts, c.Head)
			continue
		}

		rule, ok, err := validateRule(table, c, features)
		if err != nil {
			return nil, err
		}
		if !ok {
			prog.Dropped = append(prog.Dropped, c)
			continue
		}
		if first := rule.Body[0]; first.Kind == datalog.PremiseAtom && first.Atom.Pred.Name() == datalog.TruePredicate {
			needTrue = true
		}
		prog.Rules = append(prog.Rules, rule)
		prog.IDB[rule.Head.Pred] = true
	}

	if needTrue {
		prog.Facts = append(prog.Facts, table.True())
	}

	for _, f := range prog.Facts {
		if !prog.IDB[f.Pred] {
			prog.EDB[f.Pred] = true
		}
	}
	for _, r := range prog.Rules {
		for _, p := range r.Body {
			if p.Kind == datalog.PremiseAtom || p.Kind == datalog.PremiseNegated {
				if !prog.IDB[p.Atom.Pred] {
					prog.EDB[p.Atom.Pred] = true
				}
			}
		}
	}
	return prog, nil
}

// validateRule returns the rewritten rule, or ok=false if its unifiers
// cannot all hold
func validateRule(table *datalog.TermTable, c *datalog.Clause, features Features) (*datalog.ValidClause, bool, error) {
	uf := datalog.NewUnionFind()
	positive := make(map[*datalog.Variable]bool)

	for _, p := range c.Body {
		switch p.Kind {
		case datalog.PremiseNegated:
			if !features.Negation {
				return nil, false, clauseError(c, ErrNegationDisabled, "%s", p)
			}
		case datalog.PremiseUnifier, datalog.PremiseDisunifier:
			if !features.Unification {
				return nil, false, clauseError(c, ErrUnificationDisabled, "%s", p)
			}
		case datalog.PremiseAtom:
			for _, v := range p.Atom.Variables() {
				positive[v] = true
				uf.Anchor(v)
			}
		}
	}

	for _, p := range c.Body {
		if p.Kind == datalog.PremiseUnifier && !uf.Unify(p.Left, p.Right) {
			return nil, false, nil
		}
	}

	// Variables bound only through unifiers are replaced by their class
	// representative, which is a constant or a positively bound variable.
	rewrite := termMap{}
	check := func(vars []*datalog.Variable) error {
		for _, v := range vars {
			if positive[v] {
				continue
			}
			rep := uf.Find(v)
			if rv, ok := rep.(*datalog.Variable); ok && !positive[rv] {
				return clauseError(c, ErrUnboundVariable, "%s", v)
			}
			rewrite[v] = rep
		}
		return nil
	}
	if err := check(c.Head.Variables()); err != nil {
		return nil, false, err
	}
	for _, p := range c.Body {
		if err := check(p.Variables()); err != nil {
			return nil, false, err
		}
	}

	head := c.Head.Apply(rewrite)
	body := make([]datalog.Premise, 0, len(c.Body)+1)
	hasAtom := false
	for _, p := range c.Body {
		p = p.Apply(rewrite)
		if p.Kind == datalog.PremiseUnifier && p.Left == p.Right {
			continue
		}
		if p.Kind == datalog.PremiseAtom {
			hasAtom = true
		}
		body = append(body, p)
	}
	if !hasAtom {
		body = append([]datalog.Premise{datalog.Positive(table.True())}, body...)
	}

	return &datalog.ValidClause{Clause: datalog.Clause{Head: head, Body: body}}, true, nil
}
