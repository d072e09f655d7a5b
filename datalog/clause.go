package datalog

import "strings"

// Clause is a head atom with an ordered body. A clause with an empty body
// is a fact.
type Clause struct {
	Head *Atom
	Body []Premise
}

// NewClause builds a clause
func NewClause(head *Atom, body ...Premise) *Clause {
	return &Clause{Head: head, Body: body}
}

// IsFact reports whether the clause has no body
func (c *Clause) IsFact() bool { return len(c.Body) == 0 }

// HasNegation reports whether any premise is negated
func (c *Clause) HasNegation() bool {
	for _, p := range c.Body {
		if p.Kind == PremiseNegated {
			return true
		}
	}
	return false
}

// String formats the clause in source syntax, including the final period
func (c *Clause) String() string {
	var sb strings.Builder
	sb.WriteString(c.Head.String())
	if len(c.Body) > 0 {
		sb.WriteString(" :- ")
		for i, p := range c.Body {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.String())
		}
	}
	sb.WriteByte('.')
	return sb.String()
}

// ValidClause is a clause the validator has accepted: facts are ground and
// every rule variable is bound by a positive atom or an explicit unifier.
type ValidClause struct {
	Clause
}
