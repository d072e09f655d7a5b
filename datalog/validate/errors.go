package validate

import (
	"errors"
	"fmt"

	"github.com/wbrown/saturn/datalog"
)

var (
	// ErrUnboundVariable means a rule variable is not bound by any positive
	// atom or unifier
	ErrUnboundVariable = errors.New("unbound variable")
	// ErrNonGroundFact means a bodiless clause contains a variable
	ErrNonGroundFact = errors.New("fact is not ground")
	// ErrNegationDisabled means a negated premise appeared without the
	// Negation feature
	ErrNegationDisabled = errors.New("negation is not enabled")
	// ErrUnificationDisabled means = or != appeared without the Unification
	// feature
	ErrUnificationDisabled = errors.New("explicit unification is not enabled")
	// ErrNotStratifiable means negation occurs inside a recursive cycle
	ErrNotStratifiable = errors.New("program is not stratifiable")
	// ErrReservedPredicate means source text used a reserved predicate as a
	// rule head
	ErrReservedPredicate = errors.New("reserved predicate")
)

// Error reports why a clause was rejected
type Error struct {
	Clause *datalog.Clause
	Err    error
	Detail string
}

func (e *Error) Error() string {
	msg := e.Err.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Clause != nil {
		msg += fmt.Sprintf(" in clause %s", e.Clause)
	}
	return msg
}

// Unwrap returns the sentinel error
func (e *Error) Unwrap() error { return e.Err }

func clauseError(c *datalog.Clause, err error, format string, args ...any) *Error {
	return &Error{Clause: c, Err: err, Detail: fmt.Sprintf(format, args...)}
}
