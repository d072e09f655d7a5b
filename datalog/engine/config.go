package engine

import (
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/wbrown/saturn/datalog/annotations"
	"github.com/wbrown/saturn/datalog/metrics"
	"github.com/wbrown/saturn/datalog/validate"
	"github.com/wbrown/saturn/internal/logging"
)

var (
	// ErrAlreadyInitialized is returned by a second call to Init
	ErrAlreadyInitialized = errors.New("engine already initialized")
	// ErrNotExtensible is returned when adding a fact of a predicate that
	// was not declared extensible
	ErrNotExtensible = errors.New("predicate is not extensible")
	// ErrNegationNotExtensible is returned when an extensible engine is
	// given a program with negation
	ErrNegationNotExtensible = errors.New("programs with negation cannot be extended")
	// ErrClosed is returned when adding facts to a closed engine
	ErrClosed = errors.New("engine closed")
)

// Config controls an engine. The zero value is usable; DefaultConfig
// enables every language feature and a small query cache.
type Config struct {
	// Workers is the number of join goroutines per pool (0 = NumCPU)
	Workers int

	// Features gates negation and explicit unification
	Features validate.Features

	// Logger receives debug-level progress; nil discards
	Logger logrus.FieldLogger

	// Annotations receives evaluation events; nil disables them
	Annotations annotations.Handler

	// Metrics is updated while evaluating; nil disables it
	Metrics *metrics.Metrics

	// QueryCacheSize bounds the per-result query cache (0 disables)
	QueryCacheSize int
}

// DefaultConfig returns the configuration used by the CLI when no file is
// given
func DefaultConfig() Config {
	return Config{
		Features:       validate.AllFeatures(),
		QueryCacheSize: 128,
	}
}

func (c Config) logger() logrus.FieldLogger {
	if c.Logger == nil {
		return logging.Discard()
	}
	return c.Logger
}
