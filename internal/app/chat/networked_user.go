package chat

import (
	"time"

	"github.com/Quote121/threaded-sockets/internal/app/user"
	"github.com/Quote121/threaded-sockets/internal/pkg/logx"
)

// NetworkedUser is one alias-confirmed connection. Its fields never change after creation.
type NetworkedUser struct {
	id          string
	alias       string
	connectedAt time.Time
	address     string
	transport   string
	conn        *Conn
}

// NewNetworkedUser builds the user a session proposes to the registry.
func NewNetworkedUser(id, alias string, connectedAt time.Time, transport string, conn *Conn) *NetworkedUser {
	return &NetworkedUser{
		id:          id,
		alias:       alias,
		connectedAt: connectedAt,
		address:     conn.RemoteAddr(),
		transport:   transport,
		conn:        conn,
	}
}

// ID returns the session identifier.
func (u *NetworkedUser) ID() string { return u.id }

// Alias returns the negotiated alias.
func (u *NetworkedUser) Alias() string { return u.alias }

// ConnectedAt returns the time the connection was accepted.
func (u *NetworkedUser) ConnectedAt() time.Time { return u.connectedAt }

// Address returns the peer network address.
func (u *NetworkedUser) Address() string { return u.address }

// Conn returns the connection handle.
func (u *NetworkedUser) Conn() *Conn { return u.conn }

// View returns the public representation of u.
func (u *NetworkedUser) View() user.User {
	return user.User{
		ID:          u.id,
		Alias:       u.alias,
		ConnectedAt: u.connectedAt,
		Address:     logx.AnonymizeIP(u.address),
		Transport:   u.transport,
	}
}
