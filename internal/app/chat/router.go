package chat

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Quote121/threaded-sockets/internal/app/protocol"
	"github.com/Quote121/threaded-sockets/internal/pkg/logx"
)

// Router delivers packets to one or all registered users.
//
// A failed send never deregisters the recipient: the recipient's own session notices the
// broken connection on its receive path and removes itself.
type Router struct {
	registry Registry

	// countMu orders user count pushes so the last one delivered carries the latest count.
	countMu sync.Mutex

	logger zerolog.Logger
}

// NewRouter returns a Router delivering to the users of registry.
func NewRouter(registry Registry) *Router {
	return &Router{
		registry: registry,
		logger:   logx.Component("Router"),
	}
}

// Unicast writes one frame of msgType carrying message to recipient.
func (r *Router) Unicast(msgType protocol.MessageType, recipient *Conn, message string) error {
	return recipient.Send(protocol.Packet{Type: msgType, Payload: message})
}

// Broadcast sends one frame to every registered user except sender, which may be nil for
// server-originated packets. Every recipient is attempted; the returned error joins all
// individual failures.
func (r *Router) Broadcast(msgType protocol.MessageType, sender *NetworkedUser, message string) error {
	frame, err := protocol.Encode(protocol.Packet{Type: msgType, Payload: message})
	if err != nil {
		return err
	}
	return r.deliver(msgType, frame, sender, r.registry.Snapshot())
}

func (r *Router) deliver(msgType protocol.MessageType, frame []byte, sender *NetworkedUser, recipients []*NetworkedUser) error {
	var failures []error
	for _, recipient := range recipients {
		if sender != nil && recipient.conn == sender.conn {
			continue
		}

		if err := recipient.conn.SendFrame(frame); err != nil {
			r.logger.Debug().
				Err(err).
				Str("recipient", recipient.alias).
				Stringer("msg_type", msgType).
				Msg("Broadcast delivery failed.")
			failures = append(failures, fmt.Errorf("deliver to %s: %w", recipient.alias, err))
		}
	}

	return errors.Join(failures...)
}

// BroadcastUserCount pushes the current number of registered users to every user. The count
// is the size of the same snapshot the push is delivered to.
func (r *Router) BroadcastUserCount() error {
	r.countMu.Lock()
	defer r.countMu.Unlock()

	recipients := r.registry.Snapshot()
	frame, err := protocol.Encode(protocol.NewConnUsers(len(recipients)))
	if err != nil {
		return err
	}
	return r.deliver(protocol.ConnUsers, frame, nil, recipients)
}
