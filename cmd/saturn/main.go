// Command saturn evaluates Datalog programs.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/wbrown/saturn/internal/config"
)

// rootFlags are shared by every subcommand
type rootFlags struct {
	configFile string
	workers    int
	logLevel   string
	logFormat  string
	verbose    bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "saturn",
		Short:         "Concurrent bottom-up Datalog engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "YAML configuration file")
	pf.IntVar(&flags.workers, "workers", -1, "join goroutines per pool (0 = NumCPU, default from config)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.StringVar(&flags.logFormat, "log-format", "", "log format: text, json or json-pretty")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "print evaluation annotations to stderr")

	root.AddCommand(
		newEvalCommand(flags),
		newQueryCommand(flags),
		newCheckCommand(flags),
	)
	return root
}

// load resolves the configuration file and command line overrides
func (f *rootFlags) load() (*config.Config, *logrus.Logger, error) {
	cfg := config.Default()
	if f.configFile != "" {
		var err error
		if cfg, err = config.Load(f.configFile); err != nil {
			return nil, nil, err
		}
	}
	if f.workers >= 0 {
		cfg.Workers = f.workers
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Log.Format = f.logFormat
	}
	if f.verbose && cfg.Log.Level == "info" {
		cfg.Log.Level = "debug"
	}

	logger, err := cfg.Logger()
	if err != nil {
		return nil, nil, err
	}
	if _, err := maxprocs.Set(maxprocs.Logger(logger.Debugf)); err != nil {
		logger.WithError(err).Warn("could not set GOMAXPROCS")
	}
	return cfg, logger, nil
}
