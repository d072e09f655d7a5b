package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/gobwas/glob"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wbrown/saturn/datalog"
	"github.com/wbrown/saturn/datalog/annotations"
	"github.com/wbrown/saturn/datalog/engine"
	"github.com/wbrown/saturn/datalog/metrics"
	"github.com/wbrown/saturn/datalog/output"
	"github.com/wbrown/saturn/datalog/parser"
	"github.com/wbrown/saturn/datalog/storage"
)

type evalFlags struct {
	queries []string
	show    []string
	db      string
	save    string
}

func newEvalCommand(root *rootFlags) *cobra.Command {
	flags := &evalFlags{}
	cmd := &cobra.Command{
		Use:   "eval FILE...",
		Short: "Evaluate programs to fixpoint and print facts or query answers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd.OutOrStdout(), root, flags, args)
		},
	}
	cmd.Flags().StringArrayVarP(&flags.queries, "query", "q", nil, "query atom to answer, such as 'path(a, X)' (repeatable)")
	cmd.Flags().StringArrayVar(&flags.show, "show", nil, "predicate name glob to print when no query is given (repeatable)")
	cmd.Flags().StringVar(&flags.db, "db", "", "badger directory to load additional base facts from")
	cmd.Flags().StringVar(&flags.save, "save", "", "badger directory to save every derived fact to")
	return cmd
}

func newQueryCommand(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "query FILE ATOM",
		Short: "Evaluate a program and answer one query",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd.OutOrStdout(), root, &evalFlags{queries: args[1:]}, args[:1])
		},
	}
}

func runEval(w io.Writer, root *rootFlags, flags *evalFlags, files []string) error {
	cfg, logger, err := root.load()
	if err != nil {
		return err
	}
	if len(flags.show) > 0 {
		cfg.Show = flags.show
	}

	table := datalog.NewTermTable()
	clauses, err := parseFiles(table, files)
	if err != nil {
		return err
	}
	if flags.db != "" {
		facts, err := loadFacts(table, flags.db)
		if err != nil {
			return err
		}
		logger.WithField("facts", len(facts)).Debug("loaded base facts")
		for _, f := range facts {
			clauses = append(clauses, datalog.NewClause(f))
		}
	}

	// Parse queries before evaluating so typos fail fast
	queries := make([]*datalog.Atom, len(flags.queries))
	for i, src := range flags.queries {
		if queries[i], err = parser.ParseAtom(table, src); err != nil {
			return fmt.Errorf("query %q: %w", src, err)
		}
	}

	reg := prometheus.NewRegistry()
	ecfg := cfg.EngineConfig()
	ecfg.Logger = logger
	ecfg.Metrics = metrics.New(reg)
	if root.verbose {
		ecfg.Annotations = annotations.ConsoleHandler()
	}

	eng := engine.New(table, ecfg)
	if err := eng.Init(clauses); err != nil {
		return err
	}
	result := eng.Eval()
	logMetrics(logger, reg)

	if flags.save != "" {
		if err := saveFacts(flags.save, result.All()); err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{"facts": result.Size(), "dir": flags.save}).Info("saved facts")
	}

	tf := output.NewTableFormatter()
	heading := color.New(color.Bold, color.FgCyan)
	if len(queries) > 0 {
		for _, q := range queries {
			heading.Fprintf(w, "## %s\n\n", q)
			fmt.Fprintln(w, tf.FormatQuery(q, result.Query(q)))
		}
		return nil
	}

	matchers, err := compileGlobs(cfg.Show)
	if err != nil {
		return err
	}
	for _, pred := range result.Predicates() {
		if pred.Name() == datalog.TruePredicate || !matchesAny(matchers, pred.Name()) {
			continue
		}
		heading.Fprintf(w, "## %s\n\n", pred)
		fmt.Fprintln(w, tf.FormatFacts(pred, result.Facts(pred)))
	}
	return nil
}

func parseFiles(table *datalog.TermTable, files []string) ([]*datalog.Clause, error) {
	var clauses []*datalog.Clause
	for _, name := range files {
		src, err := os.ReadFile(name)
		if err != nil {
			return nil, err
		}
		cs, err := parser.Parse(table, string(src))
		if err != nil {
			return nil, fmt.Errorf("%s:%w", name, err)
		}
		clauses = append(clauses, cs...)
	}
	return clauses, nil
}

func loadFacts(table *datalog.TermTable, dir string) ([]*datalog.Atom, error) {
	store, err := storage.NewBadgerStore(dir)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.LoadFacts(table)
}

func saveFacts(dir string, facts []*datalog.Atom) error {
	store, err := storage.NewBadgerStore(dir)
	if err != nil {
		return err
	}
	if err := store.SaveFacts(facts); err != nil {
		store.Close()
		return err
	}
	return store.Close()
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	matchers := make([]glob.Glob, len(patterns))
	for i, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid --show pattern %q: %w", p, err)
		}
		matchers[i] = g
	}
	return matchers, nil
}

func matchesAny(matchers []glob.Glob, name string) bool {
	for _, g := range matchers {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// logMetrics writes every counter in reg at debug level
func logMetrics(logger logrus.FieldLogger, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		logger.WithError(err).Debug("could not gather metrics")
		return
	}
	fields := logrus.Fields{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				fields[mf.GetName()] = c.GetValue()
			}
		}
	}
	logger.WithFields(fields).Debug("evaluation metrics")
}
