package datalog

// Term is either a *Constant or a *Variable. Terms are interned by a
// TermTable, so two terms are equal iff they are the same pointer.
type Term interface {
	String() string
	isTerm()
}

// Constant is an uninterpreted, interned symbol such as alice or "New York".
type Constant struct {
	name string
}

// Name returns the constant's name
func (c *Constant) Name() string { return c.name }

// String returns the constant as it would be written in source. Names that
// would otherwise read as variables are quoted.
func (c *Constant) String() string {
	if needsQuote(c.name) {
		return quote(c.name)
	}
	return c.name
}

func (*Constant) isTerm() {}

// Variable is an interned logic variable such as X or Path.
type Variable struct {
	name string
}

// Name returns the variable's name
func (v *Variable) Name() string { return v.name }

// String returns the variable name
func (v *Variable) String() string { return v.name }

func (*Variable) isTerm() {}

// IsConstant reports whether t is a constant
func IsConstant(t Term) bool {
	_, ok := t.(*Constant)
	return ok
}

// IsVariable reports whether t is a variable
func IsVariable(t Term) bool {
	_, ok := t.(*Variable)
	return ok
}

func needsQuote(name string) bool {
	if name == "" || name == "not" {
		return true
	}
	c := name[0]
	if !(c >= 'a' && c <= 'z') && !(c >= '0' && c <= '9') && c != '$' {
		return true
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if !(c >= 'a' && c <= 'z') && !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') && c != '_' {
			return true
		}
	}
	return false
}

func quote(s string) string {
	buf := make([]byte, 0, len(s)+2)
	buf = append(buf, '"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '\\':
			buf = append(buf, '\\', s[i])
		case '\n':
			buf = append(buf, '\\', 'n')
		case '\t':
			buf = append(buf, '\\', 't')
		default:
			buf = append(buf, s[i])
		}
	}
	return string(append(buf, '"'))
}
