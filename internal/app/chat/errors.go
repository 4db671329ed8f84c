package chat

import (
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/Quote121/threaded-sockets/internal/app/listener"
)

var (
	// ErrBind is returned by Create when the listening port cannot be bound.
	ErrBind = listener.ErrBind

	// ErrSend is returned when a frame could not be written to a recipient.
	ErrSend = errors.New("chat: send failed")

	// ErrAliasTaken is returned by TryRegister when another user holds the alias.
	ErrAliasTaken = errors.New("chat: alias taken")

	// ErrServerFull is returned by TryRegister when the user limit is reached.
	ErrServerFull = errors.New("chat: server is full")

	// ErrServerClosed is the cause attached to sessions cancelled by Shutdown.
	ErrServerClosed = errors.New("chat: server closed")

	// ErrDisconnected is the cause attached to sessions ended by an operator.
	ErrDisconnected = errors.New("chat: disconnected by operator")

	// ErrNotListening is returned by AcceptLoop before Listen succeeded.
	ErrNotListening = errors.New("chat: server is not listening")
)

// IsExpectedCloseError reports whether err is a normal connection termination:
// EOF, closed connection, broken pipe, or connection reset.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}
