package retryconn

import (
	"context"
	"errors"
	"syscall"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/retryconn/internal/testutils"
)

// recordingSink captures events in order.
type recordingSink struct {
	events []Event
}

func (s *recordingSink) ConnEvent(e Event) {
	s.events = append(s.events, e)
}

func TestLifecycleEvents(t *testing.T) {
	mock1 := testutils.NewConnMock()
	mock1.WriteErr = syscall.ECONNRESET
	mock2 := testutils.NewConnMock()

	sink := &recordingSink{}
	cfg := scriptedDials(nil, mock1, mock2)
	cfg.Sink = sink

	s := Dial(testAddr, Settings{}, cfg)
	defer s.Close()
	ctx := context.Background()

	_, err := s.Write(ctx, []byte("x")) // dial failure
	require.Error(t, err)
	_, err = s.Write(ctx, []byte("x")) // establish, then write failure
	require.Error(t, err)
	_, err = s.Write(ctx, []byte("x")) // establish again
	require.NoError(t, err)

	types := make([]EventType, 0, len(sink.events))
	for _, e := range sink.events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []EventType{EventDialFailed, EventEstablished, EventReset, EventEstablished}, types)

	for _, e := range sink.events {
		assert.Equal(t, testAddr, e.Addr)
		switch e.Type {
		case EventEstablished:
			assert.NoError(t, e.Err)
		default:
			assert.Error(t, e.Err)
		}
	}
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "established", EventEstablished.String())
	assert.Equal(t, "dial_failed", EventDialFailed.String())
	assert.Equal(t, "reset", EventReset.String())
	assert.Equal(t, "unknown", EventType(42).String())
}

func TestLogrusSink(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	sink := NewLogrusSink(logger)

	sink.ConnEvent(Event{Type: EventEstablished, Addr: testAddr})
	sink.ConnEvent(Event{Type: EventReset, Addr: testAddr, Err: errors.New("connection reset by peer")})

	require.Len(t, hook.Entries, 2)

	established := hook.Entries[0]
	assert.Equal(t, logrus.DebugLevel, established.Level)
	assert.Equal(t, "established", established.Data["event"])
	assert.Equal(t, testAddr.String(), established.Data["addr"])

	reset := hook.Entries[1]
	assert.Equal(t, logrus.WarnLevel, reset.Level)
	assert.Equal(t, "reset", reset.Data["event"])
	assert.Equal(t, "connection reset by peer", reset.Data["error"])
}
