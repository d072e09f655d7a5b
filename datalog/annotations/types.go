// Package annotations provides a clean, low-overhead annotation system for
// tracking evaluation progress and debugging information.
package annotations

import (
	"sync"
	"time"
)

// Event name constants following hierarchical naming pattern
const (
	// Evaluation lifecycle
	EvalInvoked   = "eval/invoked"
	EvalCompiled  = "eval/compiled"
	EvalCompleted = "eval/completed"

	// Stratum coordination
	StratumBegin    = "stratum/begin"
	StratumComplete = "stratum/complete"

	// Queries against an evaluated result
	QueryExecuted = "query/executed"
)

// Event represents a single annotation event during evaluation.
type Event struct {
	Name    string                 // Event name using hierarchical constants above
	Start   time.Time              // Start timestamp
	End     time.Time              // End timestamp
	Latency time.Duration          // Duration (End - Start)
	Data    map[string]interface{} // Additional event-specific data
}

// Handler processes annotation events as they occur.
type Handler func(event Event)

// Collector accumulates events during evaluation. A nil handler disables
// collection entirely.
type Collector struct {
	enabled bool
	handler Handler
	events  []Event
	mu      sync.Mutex // Protects events for concurrent stratum handlers
}

// NewCollector creates a new annotation collector.
func NewCollector(handler Handler) *Collector {
	return &Collector{
		enabled: handler != nil,
		handler: handler,
		events:  make([]Event, 0, 32),
	}
}

// Enabled reports whether events are being recorded
func (c *Collector) Enabled() bool {
	return c != nil && c.enabled
}

// Add records a new event.
// Thread-safe for concurrent access.
func (c *Collector) Add(event Event) {
	if !c.Enabled() {
		return
	}

	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()

	// Call handler outside the lock to avoid deadlocks
	c.handler(event)
}

// AddTiming records an event that started at start and ends now.
func (c *Collector) AddTiming(name string, start time.Time, data map[string]interface{}) {
	if !c.Enabled() {
		return
	}

	end := time.Now()
	c.Add(Event{
		Name:    name,
		Start:   start,
		End:     end,
		Latency: end.Sub(start),
		Data:    data,
	})
}

// Events returns all collected events.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Return a copy to avoid race conditions
	eventsCopy := make([]Event, len(c.events))
	copy(eventsCopy, c.events)
	return eventsCopy
}

// Reset clears the collector for reuse.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
}
