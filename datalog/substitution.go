package datalog

import "fmt"

// Substitution maps variables to terms. Get returns nil for an unbound
// variable.
type Substitution interface {
	Get(v *Variable) Term
}

// Resolve returns the binding of t under s, or t itself if t is a constant
// or an unbound variable. A nil substitution binds nothing.
func Resolve(t Term, s Substitution) Term {
	v, ok := t.(*Variable)
	if !ok || s == nil {
		return t
	}
	if b := s.Get(v); b != nil {
		return b
	}
	return t
}

// MapSubstitution is a general variable to constant mapping
type MapSubstitution struct {
	m map[*Variable]*Constant
}

// NewMapSubstitution creates an empty substitution
func NewMapSubstitution() *MapSubstitution {
	return &MapSubstitution{m: make(map[*Variable]*Constant)}
}

// Get returns the constant bound to v, or nil
func (s *MapSubstitution) Get(v *Variable) Term {
	if c, ok := s.m[v]; ok {
		return c
	}
	return nil
}

// Put binds v to c, overwriting any earlier binding
func (s *MapSubstitution) Put(v *Variable, c *Constant) { s.m[v] = c }

// Len returns the number of bound variables
func (s *MapSubstitution) Len() int { return len(s.m) }

// Unify makes u and v equal under s, binding at most one variable. It
// returns false when u and v resolve to distinct constants. Both sides
// resolving to unbound variables is a programming error: this unifier only
// binds variables to constants.
func Unify(u, v Term, s *MapSubstitution) bool {
	u = Resolve(u, s)
	v = Resolve(v, s)
	switch uu := u.(type) {
	case *Constant:
		switch vv := v.(type) {
		case *Constant:
			return uu == vv
		case *Variable:
			s.Put(vv, uu)
			return true
		}
	case *Variable:
		if c, ok := v.(*Constant); ok {
			s.Put(uu, c)
			return true
		}
		panic(fmt.Sprintf("datalog: cannot unify unbound variables %s and %s", u, v))
	}
	panic(fmt.Sprintf("datalog: unknown term types %T, %T", u, v))
}
