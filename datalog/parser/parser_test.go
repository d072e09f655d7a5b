package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/saturn/datalog"
)

func clauseStrings(clauses []*datalog.Clause) []string {
	out := make([]string, len(clauses))
	for i, c := range clauses {
		out[i] = c.String()
	}
	return out
}

func TestParseProgram(t *testing.T) {
	table := datalog.NewTermTable()
	clauses, err := Parse(table, `
		% transitive closure
		edge(a, b). edge(b, c).
		tc(X, Y) :- edge(X, Y).
		tc(X, Y) :- edge(X, Z), tc(Z, Y).
		unreach(X, Y) :- node(X), node(Y), not tc(X, Y).
		p(X, b) :- X = a.
		q :- r(X), X != "New York".
	`)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"edge(a,b).",
		"edge(b,c).",
		"tc(X,Y) :- edge(X,Y).",
		"tc(X,Y) :- edge(X,Z), tc(Z,Y).",
		"unreach(X,Y) :- node(X), node(Y), not tc(X,Y).",
		"p(X,b) :- X = a.",
		`q :- r(X), X != "New York".`,
	}, clauseStrings(clauses))

	// Terms are interned through the table
	assert.Same(t, table.Constant("a"), clauses[0].Head.Args[0])
	assert.Same(t, table.Predicate("tc", 2), clauses[2].Head.Pred)
	assert.Equal(t, 0, clauses[6].Head.Pred.Arity())
}

func TestParseAnonymousVariables(t *testing.T) {
	table := datalog.NewTermTable()
	clauses, err := Parse(table, `node(X) :- edge(X, _), edge(_, X).`)
	require.NoError(t, err)
	require.Len(t, clauses, 1)

	first := clauses[0].Body[0].Atom.Args[1]
	second := clauses[0].Body[1].Atom.Args[0]
	assert.True(t, datalog.IsVariable(first))
	assert.NotSame(t, first, second, "each _ is a distinct variable")
	assert.NotSame(t, table.Variable("_"), first)
}

func TestParseConstantComparison(t *testing.T) {
	table := datalog.NewTermTable()
	clauses, err := Parse(table, `p(X) :- e(X), a != X, b = X.`)
	require.NoError(t, err)
	body := clauses[0].Body
	require.Len(t, body, 3)
	assert.Equal(t, datalog.PremiseDisunifier, body[1].Kind)
	assert.Equal(t, datalog.PremiseUnifier, body[2].Kind)
	assert.Same(t, table.Constant("a"), body[1].Left)
}

func TestParseQuotedConstantRoundTrip(t *testing.T) {
	table := datalog.NewTermTable()
	src := `city("New York", "not", nyc).`
	clauses, err := Parse(table, src)
	require.NoError(t, err)
	assert.Equal(t, `city("New York","not",nyc).`, clauses[0].String())

	again, err := Parse(table, clauses[0].String())
	require.NoError(t, err)
	assert.Equal(t, clauses[0].Head.Args, again[0].Head.Args)
}

func TestParseAtom(t *testing.T) {
	table := datalog.NewTermTable()

	atom, err := ParseAtom(table, "tc(a, X)")
	require.NoError(t, err)
	assert.Equal(t, "tc(a,X)", atom.String())

	atom, err = ParseAtom(table, "done.")
	require.NoError(t, err)
	assert.Equal(t, 0, atom.Pred.Arity())

	_, err = ParseAtom(table, "tc(a, X) extra")
	assert.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		col  int
		msg  string
	}{
		{"MissingPeriod", "edge(a, b)", 1, 11, `expected "." or ":-", found end of input`},
		{"MissingComma", "edge(a b).", 1, 8, `expected "," or ")", found "b"`},
		{"BadPremise", "p(X) :- q(X), .", 1, 15, `expected term, found "."`},
		{"VariableHead", "X(a).", 1, 1, `expected predicate name, found "X"`},
		{"EmptyArgs", "p().", 1, 3, `expected term, found ")"`},
		{"MissingOperator", "p(X) :- q(X), X Y.", 1, 17, `expected "=" or "!="`},
		{"SecondLine", "p(a).\nq(b) :- .", 2, 9, `expected term, found "."`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(datalog.NewTermTable(), tt.src)
			var perr *Error
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.line, perr.Line, perr.Error())
			assert.Equal(t, tt.col, perr.Col, perr.Error())
			assert.Contains(t, perr.Msg, tt.msg)
		})
	}
}
