package retryconn

import (
	"bufio"
	"errors"
	"net"
	"os"
)

var (
	// ErrNotConnected is returned by operations that need a live connection
	// while a dial is still in flight.
	ErrNotConnected = errors.New("retryconn: not connected")

	// ErrStreamClosed is returned by all operations after Close.
	ErrStreamClosed = errors.New("retryconn: stream closed")
)

// IsWouldBlock reports whether err is a would-block result: nothing was
// transferred before the operation's deadline and the caller should retry at
// the same logical position. Would-block results never trigger a reconnect.
func IsWouldBlock(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isCallerError reports errors that indicate caller misuse rather than a
// broken connection. They are surfaced without resetting the stream.
func isCallerError(err error) bool {
	return errors.Is(err, bufio.ErrBufferFull) || errors.Is(err, bufio.ErrNegativeCount)
}
