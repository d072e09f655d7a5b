package engine

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/saturn/datalog"
	"github.com/wbrown/saturn/datalog/metrics"
	"github.com/wbrown/saturn/datalog/parser"
	"github.com/wbrown/saturn/datalog/validate"
)

// naiveFixpoint applies every rule to the whole fact set until nothing
// changes. It only handles negation-free programs.
func naiveFixpoint(prog *validate.Program) []string {
	facts := make(map[string]*datalog.Atom)
	for _, f := range prog.Facts {
		facts[f.String()] = f
	}
	naiveSaturate(prog.Rules, facts)
	return factKeys(facts)
}

// naiveStratified saturates one stratum at a time in order, so every
// negated premise is checked against strata that are already complete
func naiveStratified(sp *validate.StratifiedProgram) []string {
	facts := make(map[string]*datalog.Atom)
	for _, f := range sp.Facts {
		facts[f.String()] = f
	}
	for i := range sp.Strata {
		var rules []*datalog.ValidClause
		for _, r := range sp.Rules {
			if sp.StratumOf(r.Head.Pred) == i {
				rules = append(rules, r)
			}
		}
		naiveSaturate(rules, facts)
	}
	return factKeys(facts)
}

func naiveSaturate(rules []*datalog.ValidClause, facts map[string]*datalog.Atom) {
	for changed := true; changed; {
		changed = false
		current := make(map[*datalog.PredicateSym][]*datalog.Atom)
		for _, f := range facts {
			current[f.Pred] = append(current[f.Pred], f)
		}
		for _, r := range rules {
			for _, f := range naiveRule(r, current, facts) {
				if _, ok := facts[f.String()]; !ok {
					facts[f.String()] = f
					changed = true
				}
			}
		}
	}
}

func factKeys(facts map[string]*datalog.Atom) []string {
	out := make([]string, 0, len(facts))
	for k := range facts {
		out = append(out, k)
	}
	return out
}

func naiveRule(r *datalog.ValidClause, facts map[*datalog.PredicateSym][]*datalog.Atom, known map[string]*datalog.Atom) []*datalog.Atom {
	var atoms, filters []datalog.Premise
	for _, p := range r.Body {
		if p.Kind == datalog.PremiseAtom {
			atoms = append(atoms, p)
		} else {
			filters = append(filters, p)
		}
	}

	var out []*datalog.Atom
	var join func(i int, s *datalog.MapSubstitution)
	join = func(i int, s *datalog.MapSubstitution) {
		if i == len(atoms) {
			for _, f := range filters {
				if f.Kind == datalog.PremiseNegated {
					if _, ok := known[f.Atom.Apply(s).String()]; ok {
						return
					}
					continue
				}
				same := datalog.Resolve(f.Left, s) == datalog.Resolve(f.Right, s)
				if same != (f.Kind == datalog.PremiseUnifier) {
					return
				}
			}
			out = append(out, r.Head.Apply(s))
			return
		}
		for _, f := range facts[atoms[i].Atom.Pred] {
			next := copySubstitution(s, r)
			if atoms[i].Atom.Unify(f, next) {
				join(i+1, next)
			}
		}
	}
	join(0, datalog.NewMapSubstitution())
	return out
}

func copySubstitution(s *datalog.MapSubstitution, r *datalog.ValidClause) *datalog.MapSubstitution {
	next := datalog.NewMapSubstitution()
	for _, p := range r.Body {
		for _, v := range p.Variables() {
			if c, ok := s.Get(v).(*datalog.Constant); ok {
				next.Put(v, c)
			}
		}
	}
	return next
}

// randomGraph returns n random edge facts over k nodes
func randomGraph(rng *rand.Rand, pred string, n, k int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "%s(n%d, n%d).\n", pred, rng.Intn(k), rng.Intn(k))
	}
	return sb.String()
}

var positivePrograms = map[string]string{
	"LinearClosure": transitiveClosure,
	"NonLinearClosure": `
		tc(X, Y) :- edge(X, Y).
		tc(X, Y) :- tc(X, Z), tc(Z, Y).`,
	"SameGeneration": `
		sg(X, X) :- edge(X, _).
		sg(X, Y) :- edge(A, X), sg(A, B), edge(B, Y).`,
	"MutualRecursion": `
		even(X, Y) :- edge(X, Y), color(X, red).
		odd(X, Z) :- even(X, Y), edge(Y, Z).
		even(X, Z) :- odd(X, Y), edge(Y, Z).`,
	"Filters": `
		tc(X, Y) :- edge(X, Y).
		tc(X, Y) :- edge(X, Z), tc(Z, Y), X != Y.
		self(X) :- tc(X, Y), X = Y.
		pair(X, Y) :- tc(X, Y), tc(Y, X), X != Y.
		marked(X, c) :- self(X), C = c.`,
}

func TestMatchesNaiveFixpoint(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for name, rules := range positivePrograms {
		for trial := 0; trial < 3; trial++ {
			src := randomGraph(rng, "edge", 25, 12) + rules
			src += "color(n0, red). color(n3, red). color(n7, blue).\n"

			table := datalog.NewTermTable()
			clauses, err := parser.Parse(table, src)
			require.NoError(t, err)
			prog, err := validate.Validate(table, clauses, validate.AllFeatures())
			require.NoError(t, err)
			want := naiveFixpoint(prog)

			for workers := 1; workers <= 8; workers++ {
				t.Run(fmt.Sprintf("%s/%d/workers=%d", name, trial, workers), func(t *testing.T) {
					_, _, result := evalProgram(t, src, testConfig(workers))
					if diff := cmp.Diff(want, atomStrings(result.All()), sortStrings); diff != "" {
						t.Errorf("fixpoint mismatch (-naive +engine):\n%s", diff)
					}
				})
			}
		}
	}
}

var stratifiedPrograms = map[string]string{
	"Unreachable": transitiveClosure + `
		node(X) :- edge(X, _).
		node(X) :- edge(_, X).
		unreach(X, Y) :- node(X), node(Y), not tc(X, Y).`,
	"ChainedNegation": transitiveClosure + `
		node(X) :- edge(X, _).
		cyclic(X) :- tc(X, X).
		acyclic(X) :- node(X), not cyclic(X).
		sink(X) :- acyclic(X), not edge(X, X), not source(X).
		source(X) :- edge(X, Y), X != Y.`,
	"NegatedColor": `
		red(X) :- color(X, red).
		reach(X, Y) :- edge(X, Y), not red(Y).
		reach(X, Z) :- reach(X, Y), edge(Y, Z), not red(Z).
		blocked(X, Y) :- edge(X, Y), red(Y).
		clean(X) :- reach(X, _), not red(X), not blocked(X, X), X = X.`,
}

func TestStratifiedMatchesNaive(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for name, rules := range stratifiedPrograms {
		for trial := 0; trial < 3; trial++ {
			src := randomGraph(rng, "edge", 20, 10) + rules
			src += "color(n1, red). color(n4, red). color(n6, blue).\n"

			table := datalog.NewTermTable()
			clauses, err := parser.Parse(table, src)
			require.NoError(t, err)
			prog, err := validate.Validate(table, clauses, validate.AllFeatures())
			require.NoError(t, err)
			sp, err := validate.Stratify(prog)
			require.NoError(t, err)
			want := naiveStratified(sp)

			for _, workers := range []int{1, 2, 3, 5, 8} {
				t.Run(fmt.Sprintf("%s/%d/workers=%d", name, trial, workers), func(t *testing.T) {
					_, _, result := evalProgram(t, src, testConfig(workers))
					if diff := cmp.Diff(want, atomStrings(result.All()), sortStrings); diff != "" {
						t.Errorf("fixpoint mismatch (-naive +engine):\n%s", diff)
					}
				})
			}
		}
	}
}

func TestExactlyOnceDerivation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	src := randomGraph(rng, "edge", 40, 15) + positivePrograms["NonLinearClosure"] + `
		node(X) :- edge(X, _).
		node(X) :- edge(_, X).
		unreach(X, Y) :- node(X), node(Y), not tc(X, Y).`

	var want []string
	for workers := 1; workers <= 8; workers++ {
		reg := prometheus.NewRegistry()
		cfg := testConfig(workers)
		cfg.Metrics = metrics.New(reg)
		_, _, result := evalProgram(t, src, cfg)

		// The counter moves only when the trie reports a fact as new
		require.Equal(t, float64(result.Size()), testutil.ToFloat64(cfg.Metrics.FactsDerived), "workers=%d", workers)
		require.Equal(t, float64(3), testutil.ToFloat64(cfg.Metrics.StrataCompleted))
		require.Equal(t, 1, testutil.CollectAndCount(cfg.Metrics.EvalDuration))

		got := atomStrings(result.All())
		if want == nil {
			want = got
			continue
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("workers=%d changed the fact set (-workers=1 +got):\n%s", workers, diff)
		}
	}
}
