/*
Package listener prepares the server's listening socket in two steps.

Create binds a TCP socket to a port and Listen turns it into a net.Listener with an explicit
backlog, which the standard net.Listen does not expose.
*/
package listener

import (
	"errors"
	"fmt"
	"net"
)

// ErrBind is returned when the port cannot be bound (in use, privileged, or invalid).
var ErrBind = errors.New("listener: bind failed")

// ErrConsumed is returned when Listen is called twice or after Close.
var ErrConsumed = errors.New("listener: socket already consumed")

// resolvePort turns a port string ("27015", "0", or a service name) into a number.
func resolvePort(port string) (int, error) {
	p, err := net.LookupPort("tcp", port)
	if err != nil {
		return 0, fmt.Errorf("resolve port %q: %w: %w", port, ErrBind, err)
	}
	return p, nil
}
