package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wbrown/saturn/datalog"
	"github.com/wbrown/saturn/datalog/validate"
)

func newCheckCommand(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE...",
		Short: "Parse, validate and stratify programs without evaluating them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.OutOrStdout(), root, args)
		},
	}
}

func runCheck(w io.Writer, root *rootFlags, files []string) error {
	cfg, logger, err := root.load()
	if err != nil {
		return err
	}

	table := datalog.NewTermTable()
	clauses, err := parseFiles(table, files)
	if err != nil {
		return err
	}
	prog, err := validate.Validate(table, clauses, cfg.Features)
	if err != nil {
		return err
	}
	for _, c := range prog.Dropped {
		logger.WithField("clause", c.String()).Warn("rule can never fire")
	}
	sp, err := validate.Stratify(prog)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s %d rules, %d facts, %d strata\n",
		color.GreenString("ok"), len(prog.Rules), len(prog.Facts), len(sp.Strata))
	for i, stratum := range sp.Strata {
		names := make([]string, len(stratum))
		for j, p := range stratum {
			names[j] = p.String()
		}
		fmt.Fprintf(w, "  stratum %d: %s\n", i, strings.Join(names, ", "))
	}
	return nil
}
