package retryconn

import (
	"net/netip"

	"github.com/sirupsen/logrus"
)

// EventType identifies a connection lifecycle transition.
type EventType int

const (
	// EventEstablished is emitted after a pending dial completed and the
	// cached settings were replayed onto the new connection.
	EventEstablished EventType = iota

	// EventDialFailed is emitted when a pending dial completes with an
	// error. A fresh dial is armed before the event is delivered.
	EventDialFailed

	// EventReset is emitted when an I/O failure discards the current
	// connection and arms a fresh dial.
	EventReset
)

func (t EventType) String() string {
	switch t {
	case EventEstablished:
		return "established"
	case EventDialFailed:
		return "dial_failed"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Event describes a single connection lifecycle transition.
type Event struct {
	Type EventType
	Addr netip.AddrPort // target address
	Err  error          // cause, set for dial_failed and reset
}

// EventSink receives connection lifecycle events. Implementations must be
// cheap: events are emitted from the I/O path, on the caller's goroutine.
type EventSink interface {
	ConnEvent(Event)
}

// NopSink discards all events. It is the default sink.
type NopSink struct{}

func (NopSink) ConnEvent(Event) {}

// LogrusSink logs connection lifecycle events as structured logrus entries.
type LogrusSink struct {
	logger *logrus.Logger
}

// NewLogrusSink returns a sink logging to logger.
func NewLogrusSink(logger *logrus.Logger) *LogrusSink {
	return &LogrusSink{logger: logger}
}

func (s *LogrusSink) ConnEvent(e Event) {
	fields := logrus.Fields{
		"event": e.Type.String(),
		"addr":  e.Addr.String(),
	}
	if e.Err != nil {
		fields["error"] = e.Err.Error()
	}

	switch e.Type {
	case EventEstablished:
		s.logger.WithFields(fields).Debug("connection established")
	case EventDialFailed:
		s.logger.WithFields(fields).Warn("dial failed")
	case EventReset:
		s.logger.WithFields(fields).Warn("connection reset, redialing")
	default:
		s.logger.WithFields(fields).Warn("unknown connection event")
	}
}
