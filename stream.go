package retryconn

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/netip"
	"time"
)

// tcpConn is the surface of *net.TCPConn the stream uses. It exists so
// tests can substitute a scripted connection.
type tcpConn interface {
	io.ReadWriteCloser
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetNoDelay(noDelay bool) error
	SetKeepAlive(keepAlive bool) error
	SetKeepAlivePeriod(d time.Duration) error
	CloseRead() error
	CloseWrite() error
}

// Config holds optional construction parameters for a Stream.
type Config struct {
	// Dialer is used for every connection attempt.
	// If nil, a default net.Dialer is used.
	Dialer *net.Dialer

	// Sink receives connection lifecycle events.
	// If nil, events are discarded.
	Sink EventSink

	// for testing purposes only
	dial func(ctx context.Context) (tcpConn, error)
}

// Stream wraps a TCP connection to a fixed address and transparently redials
// it after failures. Every operation first drives a pending dial to
// completion if one is in flight, then performs the requested I/O. Any
// failure other than a would-block result discards the connection and arms
// a fresh dial, so the next call attempts a new connection instead of
// failing permanently. The failure itself is always returned unchanged:
// whether and when to call again is the caller's decision, typically
// delegated to a Retryer.
//
// A Stream is driven by a single logical caller at a time. It is not
// internally synchronized; concurrent use requires external mutual
// exclusion.
type Stream struct {
	addr     netip.AddrPort
	dial     func(ctx context.Context) (tcpConn, error)
	sink     EventSink
	settings Settings

	// Exactly one of pending and conn is non-nil until Close.
	pending *pendingDial
	conn    tcpConn
	reader  *bufio.Reader

	lastEstablished time.Time
	closed          bool

	stats *statsCollector
}

// Dial returns a Stream that will connect to addr. The dial starts
// immediately; the first operation waits for it to complete and replays
// settings onto the new connection.
func Dial(addr netip.AddrPort, settings Settings, config Config) *Stream {
	s := newStream(addr, settings, config)
	s.pending = s.startDial()
	return s
}

// Adopt wraps an already-established connection. The target address and the
// settings cache are derived from the connection itself; Adopt fails if
// they cannot be read.
func Adopt(conn *net.TCPConn, config Config) (*Stream, error) {
	remote, ok := conn.RemoteAddr().(*net.TCPAddr)
	if !ok {
		return nil, fmt.Errorf("retryconn: unexpected remote address type %T", conn.RemoteAddr())
	}

	settings, err := readSettings(conn)
	if err != nil {
		return nil, err
	}

	s := newStream(remote.AddrPort(), settings, config)
	s.install(conn)
	return s, nil
}

func newStream(addr netip.AddrPort, settings Settings, config Config) *Stream {
	sink := config.Sink
	if sink == nil {
		sink = NopSink{}
	}

	dial := config.dial
	if dial == nil {
		dialer := config.Dialer
		if dialer == nil {
			dialer = &net.Dialer{}
		}
		dial = func(ctx context.Context) (tcpConn, error) {
			conn, err := dialer.DialContext(ctx, "tcp", addr.String())
			if err != nil {
				return nil, err
			}
			return conn.(*net.TCPConn), nil
		}
	}

	return &Stream{
		addr:     addr,
		dial:     dial,
		sink:     sink,
		settings: settings,
		stats:    newStatsCollector(),
	}
}

// pendingDial is an in-flight, cancellable connection attempt. The dial runs
// in its own goroutine and delivers exactly one result on done.
type pendingDial struct {
	done   chan dialResult
	cancel context.CancelFunc
}

type dialResult struct {
	conn tcpConn
	err  error
}

func (s *Stream) startDial() *pendingDial {
	ctx, cancel := context.WithCancel(context.Background())
	p := &pendingDial{
		done:   make(chan dialResult, 1),
		cancel: cancel,
	}

	s.stats.recordDial()
	dial := s.dial
	go func() {
		conn, err := dial(ctx)
		p.done <- dialResult{conn: conn, err: err}
	}()
	return p
}

// abort cancels the attempt and releases a connection the dial may still win.
func (p *pendingDial) abort() {
	p.cancel()
	go func() {
		if res := <-p.done; res.conn != nil {
			res.conn.Close()
		}
	}()
}

// install replaces the pending state with an established connection.
func (s *Stream) install(conn tcpConn) {
	s.pending = nil
	s.conn = conn
	s.reader = bufio.NewReader(conn)
	s.lastEstablished = time.Now()
}

// dropConn closes and forgets the live connection.
func (s *Stream) dropConn() {
	s.conn.Close()
	s.conn = nil
	s.reader = nil
}

// resolve guarantees the stream holds an established connection, driving an
// in-flight dial to completion if needed. A failed dial is replaced with a
// fresh attempt before the error is surfaced, so a spent attempt is never
// observable and the stream stays retryable.
func (s *Stream) resolve(ctx context.Context) (tcpConn, error) {
	if s.closed {
		return nil, ErrStreamClosed
	}
	if s.conn != nil {
		return s.conn, nil
	}

	select {
	case <-ctx.Done():
		// The attempt stays in flight; a later call picks up its result.
		return nil, ctx.Err()
	case res := <-s.pending.done:
		s.pending.cancel()
		if res.err != nil {
			s.stats.recordDialError()
			s.sink.ConnEvent(Event{Type: EventDialFailed, Addr: s.addr, Err: res.err})
			s.pending = s.startDial()
			return nil, res.err
		}

		s.install(res.conn)
		if err := s.settings.apply(res.conn); err != nil {
			// The connection is up but its options may not match the cache.
			// Drop it and redial rather than run with unknown settings.
			s.dropConn()
			s.pending = s.startDial()
			return nil, err
		}

		s.stats.recordEstablish()
		s.sink.ConnEvent(Event{Type: EventEstablished, Addr: s.addr})
		return s.conn, nil
	}
}

// afterIO inspects the result of an I/O operation. Successes and would-block
// results pass through with no state change. Any other failure discards the
// current connection state and arms a fresh dial to the target address; the
// failure is still returned to the caller unchanged.
func (s *Stream) afterIO(err error) error {
	if err == nil {
		return nil
	}
	if IsWouldBlock(err) {
		s.stats.recordWouldBlock()
		return err
	}
	if isCallerError(err) {
		return err
	}
	s.reset(err)
	return err
}

// reset discards the current connection state, established or pending, and
// arms a fresh dial.
func (s *Stream) reset(cause error) {
	s.stats.recordReset()
	s.sink.ConnEvent(Event{Type: EventReset, Addr: s.addr, Err: cause})

	if s.conn != nil {
		s.dropConn()
	} else if s.pending != nil {
		s.pending.abort()
	}
	s.pending = s.startDial()
}

// applyDeadline pushes the context deadline onto the connection so blocking
// I/O honors it. No deadline clears any previous one.
func applyDeadline(ctx context.Context, set func(time.Time) error) error {
	if deadline, ok := ctx.Deadline(); ok {
		return set(deadline)
	}
	return set(time.Time{})
}

// Read reads into p. A deadline on ctx bounds the read; expiry surfaces as a
// would-block result and leaves the connection in place.
func (s *Stream) Read(ctx context.Context, p []byte) (int, error) {
	conn, err := s.resolve(ctx)
	if err != nil {
		return 0, err
	}
	if err := applyDeadline(ctx, conn.SetReadDeadline); err != nil {
		return 0, s.afterIO(err)
	}
	n, err := s.reader.Read(p)
	return n, s.afterIO(err)
}

// Peek returns the next n bytes without advancing the reader, filling the
// read buffer from the connection as needed. The bytes stop being valid at
// the next read or reset.
func (s *Stream) Peek(ctx context.Context, n int) ([]byte, error) {
	conn, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if err := applyDeadline(ctx, conn.SetReadDeadline); err != nil {
		return nil, s.afterIO(err)
	}
	b, err := s.reader.Peek(n)
	return b, s.afterIO(err)
}

// Write writes p to the connection. Writes go straight to the socket, not
// through a buffer.
func (s *Stream) Write(ctx context.Context, p []byte) (int, error) {
	conn, err := s.resolve(ctx)
	if err != nil {
		return 0, err
	}
	if err := applyDeadline(ctx, conn.SetWriteDeadline); err != nil {
		return 0, s.afterIO(err)
	}
	n, err := conn.Write(p)
	return n, s.afterIO(err)
}

// Flush ensures an established connection. Writes are unbuffered so there is
// never data to push; Flush exists so codec layers can keep their usual
// write/flush discipline and still drive a pending dial to completion.
func (s *Stream) Flush(ctx context.Context) error {
	_, err := s.resolve(ctx)
	return err
}

// CloseRead shuts down the reading side of the live connection. While a dial
// is in flight it fails with ErrNotConnected: there is no socket to shut
// down, and succeeding silently would hide a caller bug.
func (s *Stream) CloseRead() error {
	if s.closed {
		return ErrStreamClosed
	}
	if s.conn == nil {
		return ErrNotConnected
	}
	return s.afterIO(s.conn.CloseRead())
}

// CloseWrite shuts down the writing side of the live connection. See
// CloseRead for the behavior while a dial is in flight.
func (s *Stream) CloseWrite() error {
	if s.closed {
		return ErrStreamClosed
	}
	if s.conn == nil {
		return ErrNotConnected
	}
	return s.afterIO(s.conn.CloseWrite())
}

// Close releases the stream: a live connection is closed, an in-flight dial
// is cancelled and its connection, should the dial still win, is closed.
// All later operations return ErrStreamClosed. Close is idempotent.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.pending != nil {
		s.pending.abort()
		s.pending = nil
		return nil
	}

	err := s.conn.Close()
	s.conn = nil
	s.reader = nil
	return err
}

// RemoteAddr returns the remote address. While a dial is in flight it
// answers from the cached target address, which is the same address by
// construction.
func (s *Stream) RemoteAddr() net.Addr {
	if s.conn != nil {
		return s.conn.RemoteAddr()
	}
	return net.TCPAddrFromAddrPort(s.addr)
}

// LocalAddr returns the local address of the live connection. There is no
// local address before a socket exists, so it fails with ErrNotConnected
// while a dial is in flight.
func (s *Stream) LocalAddr() (net.Addr, error) {
	if s.conn == nil {
		return nil, ErrNotConnected
	}
	return s.conn.LocalAddr(), nil
}

// NoDelay returns the cached no-delay flag. While established the live
// socket is guaranteed to match.
func (s *Stream) NoDelay() bool {
	return s.settings.NoDelay
}

// KeepAlive returns the cached keep-alive interval; zero means disabled.
// While established the live socket is guaranteed to match.
func (s *Stream) KeepAlive() time.Duration {
	return s.settings.KeepAlive
}

// Settings returns the cached socket settings.
func (s *Stream) Settings() Settings {
	return s.settings
}

// SetNoDelay sets the no-delay flag. When established it is applied to the
// live socket first and cached only on success; while a dial is in flight it
// is cached and replayed onto the next connection.
func (s *Stream) SetNoDelay(noDelay bool) error {
	if s.conn != nil {
		if err := s.conn.SetNoDelay(noDelay); err != nil {
			return err
		}
	}
	s.settings.NoDelay = noDelay
	return nil
}

// SetKeepAlive sets the keep-alive probe interval; zero disables probes.
// Application semantics match SetNoDelay.
func (s *Stream) SetKeepAlive(period time.Duration) error {
	if s.conn != nil {
		if err := applyKeepAlive(s.conn, period); err != nil {
			return err
		}
	}
	s.settings.KeepAlive = period
	return nil
}

// SetSettings applies both settings, no-delay before keep-alive. The full
// cache is updated only when both succeed.
func (s *Stream) SetSettings(settings Settings) error {
	if err := s.SetNoDelay(settings.NoDelay); err != nil {
		return err
	}
	if err := s.SetKeepAlive(settings.KeepAlive); err != nil {
		return err
	}
	s.settings = settings
	return nil
}

// IsEstablished reports whether the stream currently holds a live
// connection rather than an in-flight dial. It can flip to false after any
// operation that returned a non-would-block error.
func (s *Stream) IsEstablished() bool {
	return s.conn != nil
}

// Buffered returns the number of bytes readable without touching the
// socket. It reports 0 while a dial is in flight.
func (s *Stream) Buffered() int {
	if s.reader == nil {
		return 0
	}
	return s.reader.Buffered()
}

// LastEstablishedAt returns when the stream last transitioned into the
// established state, or the zero time if it never has.
func (s *Stream) LastEstablishedAt() time.Time {
	return s.lastEstablished
}

// Stats returns a snapshot of the connection lifecycle counters.
func (s *Stream) Stats() Stats {
	return s.stats.snapshot()
}
