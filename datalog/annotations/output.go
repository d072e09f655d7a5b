package annotations

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// OutputFormatter formats events for human-readable display.
type OutputFormatter struct {
	useColor bool
	writer   io.Writer
}

// NewOutputFormatter creates a formatter with color support detection.
func NewOutputFormatter(w io.Writer) *OutputFormatter {
	if w == nil {
		w = os.Stdout
	}

	// Auto-detect color support
	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	return &OutputFormatter{
		useColor: useColor,
		writer:   w,
	}
}

// Handle implements the Handler interface - prints events as they occur
func (f *OutputFormatter) Handle(event Event) {
	output := f.Format(event)
	if output != "" {
		fmt.Fprintln(f.writer, output)
	}
}

// Format converts an event to a human-readable string.
func (f *OutputFormatter) Format(event Event) string {
	latency := f.formatLatency(event.Latency)

	switch event.Name {
	case EvalInvoked:
		return fmt.Sprintf("%s %s Evaluating run %v with %s",
			latency,
			f.colorize("===", color.FgYellow),
			event.Data["run"],
			f.colorizeCount("facts", intData(event, "facts.count")))

	case EvalCompiled:
		return fmt.Sprintf("%s Compiled %s into %s (%s manager)",
			latency,
			f.colorizeCount("rules", intData(event, "rules.count")),
			f.colorizeCount("plans", intData(event, "plans.count")),
			event.Data["manager"])

	case StratumBegin:
		return fmt.Sprintf("%s %s Stratum %v starting with %s",
			latency,
			f.colorize("---", color.FgYellow),
			event.Data["stratum"],
			f.colorizeCount("queued", intData(event, "queued.count")))

	case StratumComplete:
		return fmt.Sprintf("%s %s Stratum %v done",
			latency,
			f.colorize("---", color.FgGreen),
			event.Data["stratum"])

	case EvalCompleted:
		return fmt.Sprintf("%s %s Saturated with %s after %s",
			latency,
			f.colorize("===", color.FgGreen),
			f.colorizeCount("facts", intData(event, "facts.count")),
			f.colorizeCount("tasks", intData(event, "tasks.count")))

	case QueryExecuted:
		return fmt.Sprintf("%s Query %s → %s",
			latency,
			f.colorize(fmt.Sprint(event.Data["query"]), color.FgCyan),
			f.colorizeCount("facts", intData(event, "facts.count")))

	default:
		// Generic format for unknown events
		return fmt.Sprintf("%s %s %v", latency, event.Name, event.Data)
	}
}

func intData(event Event, key string) int {
	switch v := event.Data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

// formatLatency formats a duration as [XXXms] or [XXXµs] with color coding.
func (f *OutputFormatter) formatLatency(d time.Duration) string {
	// Use microseconds for sub-millisecond durations
	if d < time.Millisecond {
		s := fmt.Sprintf("[%dµs]", d.Microseconds())
		if !f.useColor {
			return s
		}
		return color.GreenString(s)
	}

	ms := float64(d.Microseconds()) / 1000.0
	s := fmt.Sprintf("[%.1fms]", ms)
	if !f.useColor {
		return s
	}

	switch {
	case ms < 50:
		return color.GreenString(s)
	case ms < 200:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

// colorizeCount formats a count with a label, using color based on the label type.
func (f *OutputFormatter) colorizeCount(label string, count int) string {
	text := fmt.Sprintf("%d %s", count, label)

	if !f.useColor {
		return text
	}

	switch strings.ToLower(label) {
	case "facts":
		return color.MagentaString(text)
	case "rules", "plans":
		return color.CyanString(text)
	case "tasks", "queued":
		return color.BlueString(text)
	default:
		return text
	}
}

// colorize applies color if enabled.
func (f *OutputFormatter) colorize(text string, attrs ...color.Attribute) string {
	if !f.useColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

// ConsoleHandler creates a handler that prints formatted events to stderr.
func ConsoleHandler() Handler {
	return NewOutputFormatter(os.Stderr).Handle
}
