package datalog

// UnionFind is a general unifier over variables and constants. Variables
// unify with each other by merging classes; a class may contain at most
// one constant. Find uses path compression. It is used during static rule
// validation, never on the per-fact path.
type UnionFind struct {
	parent map[Term]Term
	size   map[Term]int
	anchor map[*Variable]bool
}

// NewUnionFind creates an empty unifier
func NewUnionFind() *UnionFind {
	return &UnionFind{
		parent: make(map[Term]Term),
		size:   make(map[Term]int),
		anchor: make(map[*Variable]bool),
	}
}

// Anchor marks v as a preferred class representative. A class's root is
// its constant if it has one, otherwise an anchored variable if it has one.
func (u *UnionFind) Anchor(v *Variable) {
	u.anchor[v] = true
}

// Find returns the representative of t's class
func (u *UnionFind) Find(t Term) Term {
	p, ok := u.parent[t]
	if !ok || p == t {
		return t
	}
	root := u.Find(p)
	u.parent[t] = root
	return root
}

// Unify merges the classes of a and b. It returns false, leaving the
// classes untouched, if both already hold distinct constants.
func (u *UnionFind) Unify(a, b Term) bool {
	ra, rb := u.Find(a), u.Find(b)
	if ra == rb {
		return true
	}
	ca, aConst := ra.(*Constant)
	cb, bConst := rb.(*Constant)
	if aConst && bConst {
		return ca == cb
	}
	if u.priority(rb) > u.priority(ra) || (u.priority(rb) == u.priority(ra) && u.weight(rb) > u.weight(ra)) {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	u.size[ra] = u.weight(ra) + u.weight(rb)
	return true
}

// Get implements Substitution: it returns the representative of v's class,
// or nil if v is its own representative.
func (u *UnionFind) Get(v *Variable) Term {
	r := u.Find(v)
	if r == Term(v) {
		return nil
	}
	return r
}

func (u *UnionFind) priority(t Term) int {
	switch tt := t.(type) {
	case *Constant:
		return 2
	case *Variable:
		if u.anchor[tt] {
			return 1
		}
	}
	return 0
}

func (u *UnionFind) weight(t Term) int {
	if n, ok := u.size[t]; ok {
		return n
	}
	return 1
}
