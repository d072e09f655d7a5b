package datalog

import "fmt"

// PremiseKind discriminates the closed set of body elements
type PremiseKind uint8

const (
	// PremiseAtom is a positive atom
	PremiseAtom PremiseKind = iota
	// PremiseNegated is an atom under negation-as-absence
	PremiseNegated
	// PremiseUnifier is an explicit equality X = Y
	PremiseUnifier
	// PremiseDisunifier is an explicit inequality X != Y
	PremiseDisunifier
	// PremiseAnnotated is a positive atom tagged by the semi-naive compiler
	PremiseAnnotated
)

// Annotation selects which view of a predicate's facts a compiled join step
// reads.
type Annotation uint8

const (
	// EDB marks an atom over a predicate defined only by facts
	EDB Annotation = iota
	// IDB marks a derived-predicate atom placed before the delta
	IDB
	// IDBPrev marks a derived-predicate atom placed after the delta. It reads
	// the same store as IDB; the tag is informational.
	IDBPrev
	// Delta marks the atom a new fact is matched against
	Delta
)

func (a Annotation) String() string {
	switch a {
	case EDB:
		return "EDB"
	case IDB:
		return "IDB"
	case IDBPrev:
		return "IDB_PREV"
	case Delta:
		return "DELTA"
	default:
		return fmt.Sprintf("Annotation(%d)", uint8(a))
	}
}

// Premise is one element of a clause body. Which fields are meaningful
// depends on Kind: Atom for atoms (and Anno when annotated), Left/Right for
// unifiers and disunifiers.
type Premise struct {
	Kind  PremiseKind
	Atom  *Atom
	Anno  Annotation
	Left  Term
	Right Term
}

// Positive wraps an atom as a positive premise
func Positive(a *Atom) Premise { return Premise{Kind: PremiseAtom, Atom: a} }

// Negated wraps an atom as a negated premise
func Negated(a *Atom) Premise { return Premise{Kind: PremiseNegated, Atom: a} }

// Unifier builds the premise l = r
func Unifier(l, r Term) Premise { return Premise{Kind: PremiseUnifier, Left: l, Right: r} }

// Disunifier builds the premise l != r
func Disunifier(l, r Term) Premise { return Premise{Kind: PremiseDisunifier, Left: l, Right: r} }

// Annotated tags a positive atom for semi-naive evaluation
func Annotated(a *Atom, anno Annotation) Premise {
	return Premise{Kind: PremiseAnnotated, Atom: a, Anno: anno}
}

// IsPositiveAtom reports whether the premise contributes bindings from the
// fact store
func (p Premise) IsPositiveAtom() bool {
	return p.Kind == PremiseAtom || p.Kind == PremiseAnnotated
}

// Terms returns the terms the premise mentions, in order
func (p Premise) Terms() []Term {
	switch p.Kind {
	case PremiseUnifier, PremiseDisunifier:
		return []Term{p.Left, p.Right}
	default:
		return p.Atom.Args
	}
}

// Variables returns the distinct variables of the premise in order of first
// occurrence
func (p Premise) Variables() []*Variable {
	switch p.Kind {
	case PremiseUnifier, PremiseDisunifier:
		var vars []*Variable
		if v, ok := p.Left.(*Variable); ok {
			vars = append(vars, v)
		}
		if v, ok := p.Right.(*Variable); ok && (len(vars) == 0 || vars[0] != v) {
			vars = append(vars, v)
		}
		return vars
	default:
		return p.Atom.Variables()
	}
}

// Apply substitutes bound variables throughout the premise
func (p Premise) Apply(s Substitution) Premise {
	switch p.Kind {
	case PremiseUnifier, PremiseDisunifier:
		p.Left = Resolve(p.Left, s)
		p.Right = Resolve(p.Right, s)
	default:
		p.Atom = p.Atom.Apply(s)
	}
	return p
}

func (p Premise) String() string {
	switch p.Kind {
	case PremiseAtom:
		return p.Atom.String()
	case PremiseNegated:
		return "not " + p.Atom.String()
	case PremiseUnifier:
		return p.Left.String() + " = " + p.Right.String()
	case PremiseDisunifier:
		return p.Left.String() + " != " + p.Right.String()
	case PremiseAnnotated:
		return p.Atom.String() + "<" + p.Anno.String() + ">"
	default:
		return fmt.Sprintf("Premise(%d)", uint8(p.Kind))
	}
}
