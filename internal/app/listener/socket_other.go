//go:build !linux

package listener

import (
	"fmt"
	"net"
	"strconv"
	"sync"
)

// Socket reserves a port. On this platform binding happens in Listen and the backlog is
// left to the operating system default.
type Socket struct {
	mu       sync.Mutex
	port     int
	consumed bool
}

// Create validates port and reserves it for Listen.
func Create(port string) (*Socket, error) {
	p, err := resolvePort(port)
	if err != nil {
		return nil, err
	}
	return &Socket{port: p}, nil
}

// Port returns the requested port.
func (s *Socket) Port() int {
	return s.port
}

// Listen binds and listens in one step. backlog is ignored.
func (s *Socket) Listen(backlog int) (net.Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.consumed {
		return nil, ErrConsumed
	}
	s.consumed = true

	ln, err := net.Listen("tcp4", ":"+strconv.Itoa(s.port))
	if err != nil {
		return nil, fmt.Errorf("bind port %d: %w: %w", s.port, ErrBind, err)
	}
	return ln, nil
}

// Close marks the socket consumed.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumed = true
	return nil
}
