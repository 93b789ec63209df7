// Package tracing implements the trace-mode event sink described in
// spec.md §6: a stream of {timestamp, kind, payload} records emitted by
// the shell driver and runner when trace mode is enabled.
package tracing

import (
	"context"
	"log/slog"
	"time"
)

// Kind is one of the fixed event kinds spec.md §6 names.
type Kind string

const (
	Spawn  Kind = "SPAWN"
	Stdin  Kind = "STDIN"
	Stdout Kind = "STDOUT"
	Stderr Kind = "STDERR"
	Exit   Kind = "EXIT"
	Error  Kind = "ERROR"
)

// Event is one trace-mode record.
type Event struct {
	Timestamp time.Time
	Kind      Kind
	Payload   string
}

// Sink receives trace events. Trace must not block the caller for long;
// implementations that need to do slow work should buffer internally.
type Sink interface {
	Trace(kind string, payload string)
}

// SlogSink renders events through a *slog.Logger, the teacher-pack's
// structured-logging convention for ambient observability.
type SlogSink struct {
	Logger *slog.Logger
}

// NewSlogSink constructs a SlogSink. A nil logger falls back to
// slog.Default().
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{Logger: logger}
}

// Trace logs the event at debug level with its kind and payload as
// structured attributes.
func (s *SlogSink) Trace(kind string, payload string) {
	s.Logger.Debug("cliscore trace event", slog.String("kind", kind), slog.String("payload", payload))
}

// ChannelSink publishes events on a channel for embedders that want to
// consume trace events programmatically (spec.md §6 "pluggable sink").
// Events are dropped, not blocked on, if the channel's buffer is full, so
// a slow consumer never stalls command execution.
type ChannelSink struct {
	events chan Event
}

// NewChannelSink constructs a ChannelSink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan Event, buffer)}
}

// Events returns the channel events are published on.
func (c *ChannelSink) Events() <-chan Event {
	return c.events
}

// Trace publishes an event, stamped with the current time, dropping it if
// the buffer is full.
func (c *ChannelSink) Trace(kind string, payload string) {
	select {
	case c.events <- Event{Timestamp: time.Now(), Kind: Kind(kind), Payload: payload}:
	default:
	}
}

// Close closes the underlying channel. Callers must ensure no further
// Trace calls occur afterward.
func (c *ChannelSink) Close() {
	close(c.events)
}

// noopSink discards every event; the runner uses it as its trace sink when
// none is configured.
type noopSink struct{}

func (noopSink) Trace(string, string) {}

// Noop returns a Sink that discards all events.
func Noop() Sink { return noopSink{} }

// WithTimestamp is a convenience for embedders building their own Event
// values outside the channel-based flow.
func WithTimestamp(ctx context.Context, kind Kind, payload string) Event {
	return Event{Timestamp: time.Now(), Kind: kind, Payload: payload}
}
