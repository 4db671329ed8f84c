//go:build linux

package listener

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Socket is a TCP socket bound to a port but not yet listening.
type Socket struct {
	mu   sync.Mutex
	fd   int
	port int
}

// Create binds an IPv4 TCP socket on every interface at port.
func Create(port string) (*Socket, error) {
	p, err := resolvePort(port)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("create socket: %w: %w", ErrBind, err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set SO_REUSEADDR: %w: %w", ErrBind, err)
	}

	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: p}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind port %s: %w: %w", port, ErrBind, err)
	}

	bound := p
	if sa, err := unix.Getsockname(fd); err == nil {
		if inet4, ok := sa.(*unix.SockaddrInet4); ok {
			bound = inet4.Port
		}
	}

	return &Socket{fd: fd, port: bound}, nil
}

// Port returns the bound port, which differs from the requested one when it was "0".
func (s *Socket) Port() int {
	return s.port
}

// Listen marks the socket passive with room for backlog pending connections and hands
// ownership of the descriptor to the returned net.Listener.
func (s *Socket) Listen(backlog int) (net.Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fd < 0 {
		return nil, ErrConsumed
	}

	if err := unix.Listen(s.fd, backlog); err != nil {
		// SO_REUSEADDR lets two sockets bind the same port; only one of them may listen.
		if errors.Is(err, unix.EADDRINUSE) || errors.Is(err, unix.EACCES) {
			return nil, fmt.Errorf("listen on port %d: %w: %w", s.port, ErrBind, err)
		}
		return nil, fmt.Errorf("listen with backlog %d: %w", backlog, err)
	}

	file := os.NewFile(uintptr(s.fd), fmt.Sprintf("tcp-listener:%d", s.port))
	s.fd = -1

	// FileListener duplicates the descriptor, so the file is closed either way.
	ln, err := net.FileListener(file)
	file.Close()
	if err != nil {
		return nil, fmt.Errorf("wrap listening socket: %w", err)
	}

	return ln, nil
}

// Close releases a socket that was never turned into a listener.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fd < 0 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	return err
}
