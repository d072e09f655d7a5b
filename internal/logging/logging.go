// Package logging configures the logrus loggers used by the engine and CLI.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// GetLevel parses a level name; the empty string means info
func GetLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel, nil
	case "", "info":
		return logrus.InfoLevel, nil
	case "warn":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	default:
		return logrus.DebugLevel, fmt.Errorf("invalid log level: %v", level)
	}
}

// GetFormatter returns the formatter for format: text, json-pretty or
// (default) json
func GetFormatter(format string) logrus.Formatter {
	switch format {
	case "text":
		return &prettyFormatter{}
	case "json-pretty":
		return &logrus.JSONFormatter{PrettyPrint: true}
	default:
		return &logrus.JSONFormatter{}
	}
}

// New builds a logger writing to w
func New(level, format string, w io.Writer) (*logrus.Logger, error) {
	lvl, err := GetLevel(level)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(lvl)
	logger.SetFormatter(GetFormatter(format))
	return logger, nil
}

// Discard returns a logger that drops everything
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// prettyFormatter prints one line per entry with fields sorted by key,
// which is easier to read at a terminal than logrus.TextFormatter
type prettyFormatter struct{}

func (p *prettyFormatter) Format(e *logrus.Entry) ([]byte, error) {
	b := new(bytes.Buffer)
	fmt.Fprintf(b, "[%s] %s", strings.ToUpper(e.Level.String()), e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}
