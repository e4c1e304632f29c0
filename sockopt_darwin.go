//go:build darwin

package retryconn

import (
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// readSettings reads the current socket options off an established
// connection. The net package has no getters for these, so we go through
// getsockopt on the raw descriptor. Darwin spells the keep-alive idle
// option TCP_KEEPALIVE rather than TCP_KEEPIDLE.
func readSettings(conn *net.TCPConn) (Settings, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return Settings{}, err
	}

	var settings Settings
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		nodelay, err := unix.GetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY)
		if err != nil {
			sockErr = fmt.Errorf("retryconn: read TCP_NODELAY: %w", err)
			return
		}
		settings.NoDelay = nodelay != 0

		enabled, err := unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE)
		if err != nil {
			sockErr = fmt.Errorf("retryconn: read SO_KEEPALIVE: %w", err)
			return
		}
		if enabled == 0 {
			return
		}

		idle, err := unix.GetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPALIVE)
		if err != nil {
			sockErr = fmt.Errorf("retryconn: read TCP_KEEPALIVE: %w", err)
			return
		}
		settings.KeepAlive = time.Duration(idle) * time.Second
	})
	if err != nil {
		return Settings{}, err
	}
	if sockErr != nil {
		return Settings{}, sockErr
	}
	return settings, nil
}
