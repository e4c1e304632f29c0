package testutils

import (
	"bytes"
	"net"
	"time"
)

// ConnMock is a scriptable TCP connection for testing. Reads are served
// from pre-configured response data, writes are captured, and every error
// field can be set to force a failure on the corresponding call.
type ConnMock struct {
	readBuf  *bytes.Buffer
	writeBuf *bytes.Buffer

	ReadErr      error // returned by Read instead of serving data
	WriteErr     error // returned by Write instead of capturing data
	NoDelayErr   error // returned by SetNoDelay
	KeepAliveErr error // returned by SetKeepAlive and SetKeepAlivePeriod
	ShutdownErr  error // returned by CloseRead and CloseWrite

	Remote net.Addr // RemoteAddr result; a loopback default when nil

	// SettingsCalls records SetNoDelay/SetKeepAlive/SetKeepAlivePeriod
	// invocations in order, e.g. "nodelay=true", "keepalive=off",
	// "keepaliveperiod=30s".
	SettingsCalls []string

	Closed bool
}

// NewConnMock creates a mock connection serving the given response data.
func NewConnMock(responseData ...string) *ConnMock {
	var readBuf bytes.Buffer
	for _, data := range responseData {
		readBuf.WriteString(data)
	}
	return &ConnMock{
		readBuf:  &readBuf,
		writeBuf: &bytes.Buffer{},
	}
}

func (m *ConnMock) Read(b []byte) (int, error) {
	if m.ReadErr != nil {
		return 0, m.ReadErr
	}
	return m.readBuf.Read(b)
}

func (m *ConnMock) Write(b []byte) (int, error) {
	if m.WriteErr != nil {
		return 0, m.WriteErr
	}
	return m.writeBuf.Write(b)
}

func (m *ConnMock) Close() error {
	m.Closed = true
	return nil
}

func (m *ConnMock) CloseRead() error {
	return m.ShutdownErr
}

func (m *ConnMock) CloseWrite() error {
	return m.ShutdownErr
}

func (m *ConnMock) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

func (m *ConnMock) RemoteAddr() net.Addr {
	if m.Remote != nil {
		return m.Remote
	}
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9000}
}

func (m *ConnMock) SetDeadline(t time.Time) error      { return nil }
func (m *ConnMock) SetReadDeadline(t time.Time) error  { return nil }
func (m *ConnMock) SetWriteDeadline(t time.Time) error { return nil }

func (m *ConnMock) SetNoDelay(noDelay bool) error {
	if m.NoDelayErr != nil {
		return m.NoDelayErr
	}
	if noDelay {
		m.SettingsCalls = append(m.SettingsCalls, "nodelay=true")
	} else {
		m.SettingsCalls = append(m.SettingsCalls, "nodelay=false")
	}
	return nil
}

func (m *ConnMock) SetKeepAlive(keepAlive bool) error {
	if m.KeepAliveErr != nil {
		return m.KeepAliveErr
	}
	if keepAlive {
		m.SettingsCalls = append(m.SettingsCalls, "keepalive=on")
	} else {
		m.SettingsCalls = append(m.SettingsCalls, "keepalive=off")
	}
	return nil
}

func (m *ConnMock) SetKeepAlivePeriod(d time.Duration) error {
	if m.KeepAliveErr != nil {
		return m.KeepAliveErr
	}
	m.SettingsCalls = append(m.SettingsCalls, "keepaliveperiod="+d.String())
	return nil
}

// Written returns the raw bytes written to the mock connection.
func (m *ConnMock) Written() string {
	return m.writeBuf.String()
}
