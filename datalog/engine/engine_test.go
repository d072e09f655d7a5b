package engine

import (
	"fmt"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/fortytw2/leaktest"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/saturn/datalog"
	"github.com/wbrown/saturn/datalog/annotations"
	"github.com/wbrown/saturn/datalog/parser"
	"github.com/wbrown/saturn/datalog/validate"
)

var sortStrings = cmpopts.SortSlices(func(a, b string) bool { return a < b })

func testConfig(workers int) Config {
	cfg := DefaultConfig()
	cfg.Workers = workers
	return cfg
}

// evalProgram parses, initializes and evaluates src
func evalProgram(t *testing.T, src string, cfg Config) (*datalog.TermTable, *Engine, *Result) {
	t.Helper()
	table := datalog.NewTermTable()
	clauses, err := parser.Parse(table, src)
	require.NoError(t, err)
	eng := New(table, cfg)
	require.NoError(t, eng.Init(clauses))
	return table, eng, eng.Eval()
}

func query(t *testing.T, table *datalog.TermTable, r *Result, q string) []string {
	t.Helper()
	atom, err := parser.ParseAtom(table, q)
	require.NoError(t, err)
	return atomStrings(r.Query(atom))
}

func atomStrings(atoms []*datalog.Atom) []string {
	out := make([]string, len(atoms))
	for i, a := range atoms {
		out[i] = a.String()
	}
	sort.Strings(out)
	return out
}

const transitiveClosure = `
	tc(X, Y) :- edge(X, Y).
	tc(X, Y) :- edge(X, Z), tc(Z, Y).
`

func TestScenarios(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		query   string
		want    []string
		exclude []string
	}{
		{
			name:  "ChainClosure",
			src:   `edge(a, b). edge(b, c). edge(c, d).` + transitiveClosure,
			query: "tc(X, Y)",
			want:  []string{"tc(a,b)", "tc(a,c)", "tc(a,d)", "tc(b,c)", "tc(b,d)", "tc(c,d)"},
		},
		{
			name:  "CyclicClosure",
			src:   `edge(a, b). edge(b, a).` + transitiveClosure,
			query: "tc(X, Y)",
			want:  []string{"tc(a,a)", "tc(a,b)", "tc(b,a)", "tc(b,b)"},
		},
		{
			name:  "ExplicitUnification",
			src:   `p(X, b) :- X = a.`,
			query: "p(X, Y)",
			want:  []string{"p(a,b)"},
		},
		{
			name:  "NegationWithUnification",
			src:   `p :- not q(X, b), X = a. q(a, c).`,
			query: "p",
			want:  []string{"p"},
		},
		{
			name: "MultiStratum",
			src: `edge(a, b). edge(b, c).` + transitiveClosure + `
				node(X) :- edge(X, _).
				node(X) :- edge(_, X).
				unreach(X, Y) :- node(X), node(Y), not tc(X, Y).`,
			query: "unreach(X, Y)",
			want: []string{
				"unreach(a,a)", "unreach(b,a)", "unreach(b,b)",
				"unreach(c,a)", "unreach(c,b)", "unreach(c,c)",
			},
			exclude: []string{"unreach(a,b)", "unreach(a,c)", "unreach(b,c)"},
		},
	}

	for _, tt := range tests {
		for _, workers := range []int{1, 4} {
			t.Run(fmt.Sprintf("%s/workers=%d", tt.name, workers), func(t *testing.T) {
				defer leaktest.Check(t)()
				table, _, result := evalProgram(t, tt.src, testConfig(workers))
				got := query(t, table, result, tt.query)
				if diff := cmp.Diff(tt.want, got, sortStrings); diff != "" {
					t.Errorf("workers=%d query %s mismatch (-want +got):\n%s", workers, tt.query, diff)
				}
				for _, ex := range tt.exclude {
					assert.NotContains(t, got, ex)
				}
			})
		}
	}
}

func TestUnstratifiableProgramNeverEvaluates(t *testing.T) {
	table := datalog.NewTermTable()
	clauses, err := parser.Parse(table, `p :- not q. q :- not p.`)
	require.NoError(t, err)

	eng := New(table, DefaultConfig())
	err = eng.Init(clauses)
	require.Error(t, err)
	assert.ErrorIs(t, err, validate.ErrNotStratifiable)
	assert.Contains(t, err.Error(), "invalid program")
	assert.Nil(t, eng.Program())
	assert.Panics(t, func() { eng.Eval() })
}

func TestInitErrors(t *testing.T) {
	table := datalog.NewTermTable()
	clauses, err := parser.Parse(table, `p(X) :- q(Y).`)
	require.NoError(t, err)
	eng := New(table, DefaultConfig())
	assert.ErrorIs(t, eng.Init(clauses), validate.ErrUnboundVariable)

	// Features gate the language
	clauses, err = parser.Parse(table, `p(X) :- q(X), not r(X).`)
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.Features.Negation = false
	assert.ErrorIs(t, New(table, cfg).Init(clauses), validate.ErrNegationDisabled)
}

func TestEngineContract(t *testing.T) {
	defer leaktest.Check(t)()

	table := datalog.NewTermTable()
	clauses, err := parser.Parse(table, `edge(a, b).`+transitiveClosure)
	require.NoError(t, err)

	eng := New(table, testConfig(2))
	assert.NotEmpty(t, eng.RunID())
	assert.Panics(t, func() { eng.Query(datalog.NewAtom(table.Predicate("tc", 2), table.Variable("X"), table.Variable("Y"))) })

	require.NoError(t, eng.Init(clauses))
	assert.ErrorIs(t, eng.Init(clauses), ErrAlreadyInitialized)
	assert.NotNil(t, eng.Program())

	result := eng.Eval()
	assert.Panics(t, func() { eng.Eval() })
	assert.Equal(t, []string{"tc(a,b)"}, query(t, table, result, "tc(X, Y)"))
	assert.Len(t, eng.Query(datalog.NewAtom(table.Predicate("edge", 2), table.Variable("X"), table.Variable("Y"))), 1)
}

func TestResultAccessors(t *testing.T) {
	table, _, result := evalProgram(t, `
		edge(a, b). edge(b, c). edge(c, c).
		loop(X) :- edge(X, X).
	`+transitiveClosure, testConfig(2))

	tc := table.Predicate("tc", 2)
	a, b, c := table.Constant("a"), table.Constant("b"), table.Constant("c")
	assert.True(t, result.Contains(datalog.NewAtom(tc, a, c)))
	assert.False(t, result.Contains(datalog.NewAtom(tc, c, a)))

	names := make([]string, 0)
	for _, p := range result.Predicates() {
		names = append(names, p.String())
	}
	assert.Equal(t, []string{"edge/2", "loop/1", "tc/2"}, names)
	assert.Equal(t, []string{"tc(a,b)", "tc(a,c)", "tc(b,c)", "tc(c,c)"}, atomStrings(result.Facts(tc)))
	assert.Equal(t, len(result.All()), result.Size())
	assert.Equal(t, 3+1+4, result.Size())

	// Repeated variables and constants in queries
	assert.Equal(t, []string{"tc(c,c)"}, query(t, table, result, "tc(X, X)"))
	assert.Equal(t, []string{"tc(a,c)", "tc(b,c)", "tc(c,c)"}, query(t, table, result, "tc(X, c)"))
	assert.Empty(t, query(t, table, result, "tc(d, X)"))
	assert.Empty(t, query(t, table, result, "missing(X)"))
	assert.True(t, result.Contains(datalog.NewAtom(table.Predicate("loop", 1), c)))
	assert.False(t, result.Contains(datalog.NewAtom(table.Predicate("loop", 1), b)))
}

func TestQueryCacheReturnsSameAnswers(t *testing.T) {
	table, _, result := evalProgram(t, `edge(a, b). edge(b, c).`+transitiveClosure, testConfig(2))
	first := query(t, table, result, "tc(a, X)")
	second := query(t, table, result, "tc(a, X)")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, result.cache.Len())

	cfg := testConfig(2)
	cfg.QueryCacheSize = 0
	_, _, uncached := evalProgram(t, `edge(a, b).`+transitiveClosure, cfg)
	assert.Nil(t, uncached.cache)
}

func TestQueryAnswersAreCallerOwned(t *testing.T) {
	table, _, result := evalProgram(t, `edge(a, b). edge(b, c). edge(c, d).`+transitiveClosure, testConfig(2))
	q, err := parser.ParseAtom(table, "tc(a, X)")
	require.NoError(t, err)

	first := result.Query(q)
	require.Len(t, first, 3)
	want := atomStrings(first)

	// Scribble over the answer on both the miss and the hit path
	for i := range first {
		first[i] = first[0]
	}
	second := result.Query(q)
	assert.Equal(t, want, atomStrings(second))
	second[0] = nil
	_ = append(second[:1], first...)
	assert.Equal(t, want, atomStrings(result.Query(q)))
}

// Every stored fact F and query Q: Q unifies with F iff F is in Query(Q)
func TestQueryCorrectness(t *testing.T) {
	table, _, result := evalProgram(t, `
		edge(a, b). edge(b, a). edge(b, c). edge(c, c).
	`+transitiveClosure, testConfig(3))

	x, y := table.Variable("X"), table.Variable("Y")
	var queries []*datalog.Atom
	terms := []datalog.Term{x, y, table.Constant("a"), table.Constant("b"), table.Constant("c"), table.Constant("z")}
	for _, pred := range []*datalog.PredicateSym{table.Predicate("tc", 2), table.Predicate("edge", 2)} {
		for _, t1 := range terms {
			for _, t2 := range terms {
				queries = append(queries, datalog.NewAtom(pred, t1, t2))
			}
		}
	}

	all := result.All()
	for _, q := range queries {
		answers := make(map[*datalog.Atom]bool)
		for _, f := range result.Query(q) {
			answers[f] = true
		}
		for _, f := range all {
			unifies := q.Unify(f, datalog.NewMapSubstitution())
			if unifies != answers[f] {
				t.Errorf("query %s: unify(%s)=%v but in answers=%v", q, f, unifies, answers[f])
			}
		}
	}
}

func TestIdempotentSaturation(t *testing.T) {
	src := `edge(a, b). edge(b, c). edge(c, a). edge(c, d).` + transitiveClosure + `
		node(X) :- edge(X, _).
		node(X) :- edge(_, X).
		unreach(X, Y) :- node(X), node(Y), not tc(X, Y).`

	_, _, first := evalProgram(t, src, testConfig(1))
	for i := 0; i < 5; i++ {
		_, _, again := evalProgram(t, src, testConfig(4))
		if diff := cmp.Diff(atomStrings(first.All()), atomStrings(again.All())); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}
}

func TestDuplicateFactsCountOnce(t *testing.T) {
	table, _, result := evalProgram(t, `edge(a, b). edge(a, b). edge(b, c). edge(a, c).`+transitiveClosure, testConfig(4))
	assert.Equal(t, []string{"tc(a,b)", "tc(a,c)", "tc(b,c)"}, query(t, table, result, "tc(X, Y)"))
	assert.Equal(t, 3+3, result.Size())
}

func TestZeroArityRules(t *testing.T) {
	table, _, result := evalProgram(t, `
		ready.
		go :- ready.
		stop :- ready, not go.
		flag(X) :- go, item(X).
		item(a). item(b).
	`, testConfig(2))
	assert.Equal(t, []string{"go"}, query(t, table, result, "go"))
	assert.Empty(t, query(t, table, result, "stop"))
	assert.Equal(t, []string{"flag(a)", "flag(b)"}, query(t, table, result, "flag(X)"))
}

func TestEventsAreRecorded(t *testing.T) {
	cfg := testConfig(2)
	var handled atomic.Int64
	cfg.Annotations = func(annotations.Event) { handled.Add(1) }
	table, eng, result := evalProgram(t, `edge(a, b). q(X) :- edge(X, _), not r(X). r(z) :- edge(z, z).`, cfg)
	query(t, table, result, "q(X)")

	var names []string
	for _, e := range eng.Events() {
		names = append(names, e.Name)
	}
	for _, want := range []string{
		annotations.EvalCompiled,
		annotations.EvalInvoked,
		annotations.StratumBegin,
		annotations.StratumComplete,
		annotations.EvalCompleted,
		annotations.QueryExecuted,
	} {
		assert.Contains(t, names, want)
	}
	assert.Equal(t, int64(len(names)), handled.Load())
}
