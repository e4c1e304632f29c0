package retryconn

import (
	"time"
)

// Settings holds the socket options the stream owns independently of any
// live connection. They are replayed onto every freshly established
// connection so behavior is consistent across reconnects.
type Settings struct {
	// NoDelay disables Nagle's algorithm when true.
	NoDelay bool

	// KeepAlive is the idle interval before TCP keep-alive probes are sent.
	// Zero disables keep-alive probes.
	KeepAlive time.Duration
}

// apply configures conn with s, no-delay first, then keep-alive.
func (s Settings) apply(conn tcpConn) error {
	if err := conn.SetNoDelay(s.NoDelay); err != nil {
		return err
	}
	return applyKeepAlive(conn, s.KeepAlive)
}

func applyKeepAlive(conn tcpConn, period time.Duration) error {
	if period <= 0 {
		return conn.SetKeepAlive(false)
	}
	if err := conn.SetKeepAlive(true); err != nil {
		return err
	}
	return conn.SetKeepAlivePeriod(period)
}
