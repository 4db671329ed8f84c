/*
Package chat contains the server side of the chat service: the connection wrapper, the user
registry, the message router, the per-connection session state machine and the acceptor.

This file defines Conn, which owns one transport and serializes every write to it so that
frames from concurrent broadcasts never interleave on the wire.
*/
package chat

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/Quote121/threaded-sockets/internal/app/protocol"
)

// Transport is the byte stream a session runs over. *net.TCPConn satisfies it, and the
// WebSocket gateway provides an adapter.
type Transport interface {
	io.ReadWriteCloser
	RemoteAddr() net.Addr
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Conn is a framed, write-serialized connection.
type Conn struct {
	transport Transport

	// reader is only used by the owning session goroutine.
	reader *bufio.Reader

	// writeMu makes every frame write atomic with respect to other senders.
	writeMu      sync.Mutex
	writeTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

// NewConn wraps transport. A zero writeTimeout disables write deadlines.
func NewConn(transport Transport, writeTimeout time.Duration) *Conn {
	return &Conn{
		transport:    transport,
		reader:       bufio.NewReaderSize(transport, 4096),
		writeTimeout: writeTimeout,
		closed:       make(chan struct{}),
	}
}

// RemoteAddr returns the peer address as a string.
func (c *Conn) RemoteAddr() string {
	if addr := c.transport.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// Receive blocks until one complete frame is decoded. Only the owning session may call it.
func (c *Conn) Receive() (protocol.Packet, error) {
	return protocol.Decode(c.reader)
}

// SetReadDeadline bounds the next Receive calls. The zero time removes the deadline.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.transport.SetReadDeadline(t)
}

// Send encodes p and writes it as one frame.
func (c *Conn) Send(p protocol.Packet) error {
	frame, err := protocol.Encode(p)
	if err != nil {
		return err
	}
	return c.SendFrame(frame)
}

// SendFrame writes an already encoded frame.
func (c *Conn) SendFrame(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.writeLocked(frame)
}

// SendAfter runs step while holding the write lock and, when step succeeds, writes p before
// any other sender can reach this connection. The error of step is returned unchanged.
func (c *Conn) SendAfter(step func() error, p protocol.Packet) error {
	frame, err := protocol.Encode(p)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := step(); err != nil {
		return err
	}
	return c.writeLocked(frame)
}

func (c *Conn) writeLocked(frame []byte) error {
	select {
	case <-c.closed:
		return fmt.Errorf("%w: %w", ErrSend, net.ErrClosed)
	default:
	}

	if c.writeTimeout > 0 {
		if err := c.transport.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return fmt.Errorf("%w: set write deadline: %w", ErrSend, err)
		}
	}

	if _, err := c.transport.Write(frame); err != nil {
		return fmt.Errorf("%w: %w", ErrSend, err)
	}
	return nil
}

// Close closes the transport once. Blocked Receive calls return with an error.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.closeErr = c.transport.Close()
	})
	return c.closeErr
}

// Done is closed once Close has been called.
func (c *Conn) Done() <-chan struct{} {
	return c.closed
}
