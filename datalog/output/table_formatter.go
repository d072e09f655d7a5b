// Package output renders facts and query answers as markdown tables.
package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/wbrown/saturn/datalog"
)

// TableFormatter formats facts as tables
type TableFormatter struct {
	// MaxWidth is the maximum width for a cell, 0 for no limit
	MaxWidth int
	// TruncateString is appended to truncated cells
	TruncateString string
}

// NewTableFormatter creates a new table formatter with default settings
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{
		MaxWidth:       50,
		TruncateString: "...",
	}
}

// FormatFacts formats the facts of pred with one column per argument
func (tf *TableFormatter) FormatFacts(pred *datalog.PredicateSym, facts []*datalog.Atom) string {
	if pred.Arity() == 0 {
		if len(facts) == 0 {
			return "_false_\n"
		}
		return "_true_\n"
	}

	columns := make([]string, pred.Arity())
	for i := range columns {
		columns[i] = strconv.Itoa(i)
	}
	rows := make([][]string, len(facts))
	for i, f := range facts {
		rows[i] = tf.formatArgs(f.Args)
	}
	return tf.formatTable(columns, rows)
}

// FormatQuery formats the answers to q with one column per distinct
// variable of q. A ground query renders as true or false.
func (tf *TableFormatter) FormatQuery(q *datalog.Atom, answers []*datalog.Atom) string {
	vars := q.Variables()
	if len(vars) == 0 {
		if len(answers) == 0 {
			return "_false_\n"
		}
		return "_true_\n"
	}

	columns := make([]string, len(vars))
	for i, v := range vars {
		columns[i] = v.Name()
	}

	var rows [][]string
	for _, f := range answers {
		s := datalog.NewMapSubstitution()
		if !q.Unify(f, s) {
			continue
		}
		row := make([]datalog.Term, len(vars))
		for i, v := range vars {
			row[i] = s.Get(v)
		}
		rows = append(rows, tf.formatArgs(row))
	}
	return tf.formatTable(columns, rows)
}

// formatTable formats columns and rows as a markdown table
func (tf *TableFormatter) formatTable(columns []string, rows [][]string) string {
	if len(rows) == 0 {
		return fmt.Sprintf("_Columns: %v_\n\n_No rows_\n", columns)
	}

	tableString := &strings.Builder{}

	alignment := make([]tw.Align, len(columns))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(tableString,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(columns)
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()

	tableString.WriteString(fmt.Sprintf("\n_%d rows_\n", len(rows)))
	return tableString.String()
}

func (tf *TableFormatter) formatArgs(args []datalog.Term) []string {
	row := make([]string, len(args))
	for i, t := range args {
		row[i] = tf.formatValue(t)
	}
	return row
}

// formatValue renders a term, truncated to MaxWidth
func (tf *TableFormatter) formatValue(t datalog.Term) string {
	if t == nil {
		return "nil"
	}
	s := t.String()
	if c, ok := t.(*datalog.Constant); ok {
		s = c.Name()
	}
	if tf.MaxWidth > 0 && len(s) > tf.MaxWidth {
		cut := tf.MaxWidth - len(tf.TruncateString)
		if cut < 0 {
			cut = 0
		}
		s = s[:cut] + tf.TruncateString
	}
	return s
}
