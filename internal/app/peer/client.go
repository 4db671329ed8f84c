/*
Package peer implements the client side of the chat protocol: dialing the server,
negotiating an alias and exchanging framed packets.
*/
package peer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/Quote121/threaded-sockets/internal/app/protocol"
)

// ErrUnexpectedPacket is returned when the server answers an alias request with anything
// other than an accept or a deny.
var ErrUnexpectedPacket = errors.New("peer: unexpected packet")

// DeniedError is returned by Negotiate when the server rejected the alias.
type DeniedError struct {
	Alias  string
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("alias %q denied: %s", e.Alias, e.Reason)
}

// Client is one connection to a chat server.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader

	writeMu sync.Mutex

	alias string
}

// Dial connects to the server at addr.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return New(conn), nil
}

// New wraps an established connection.
func New(conn net.Conn) *Client {
	return &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

// Alias returns the alias accepted by the server, or "" before Negotiate succeeded.
func (c *Client) Alias() string {
	return c.alias
}

// Negotiate proposes alias and waits for the server's verdict. A rejection is returned as a
// *DeniedError; the server closes the connection after it.
func (c *Client) Negotiate(alias string) error {
	if err := c.write(protocol.NewAliasSet(alias)); err != nil {
		return err
	}

	reply, err := c.Receive()
	if err != nil {
		return fmt.Errorf("await alias reply: %w", err)
	}

	switch reply.Type {
	case protocol.AliasAck:
		c.alias = reply.Payload
		return nil
	case protocol.AliasDeny:
		return &DeniedError{Alias: alias, Reason: reply.Payload}
	default:
		return fmt.Errorf("%w: %s during alias negotiation", ErrUnexpectedPacket, reply.Type)
	}
}

// Send writes a chat message.
func (c *Client) Send(text string) error {
	return c.SendPacket(protocol.NewMessage(text))
}

// SendPacket writes an arbitrary packet, including ones a well-behaved client never sends.
func (c *Client) SendPacket(p protocol.Packet) error {
	return c.write(p)
}

// Receive blocks until the next packet arrives.
func (c *Client) Receive() (protocol.Packet, error) {
	return protocol.Decode(c.reader)
}

// SetReadDeadline bounds the next Receive calls.
func (c *Client) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) write(p protocol.Packet) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return protocol.WritePacket(c.conn, p)
}
