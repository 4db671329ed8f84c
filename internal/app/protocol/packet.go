/*
Package protocol implements the wire format spoken between chat peers and the server.

Every frame is a 2-byte big-endian length prefix followed by a 1-byte message type and the
raw UTF-8 payload. The length prefix counts the bytes that follow it (type byte plus payload).
*/
package protocol

import (
	"fmt"
	"strconv"
)

const (
	// tcpHeaderOverhead is the minimum size of a TCP/IP header.
	tcpHeaderOverhead = 40

	// LengthPrefixSize is the size of the frame length prefix in bytes.
	LengthPrefixSize = 2

	// MaxPayload is the largest payload a single frame may carry.
	MaxPayload = 65535 - tcpHeaderOverhead - LengthPrefixSize

	// MaxAliasLength is the maximum length of an alias in bytes.
	MaxAliasLength = 10
)

// MessageType identifies the kind of a Packet. The byte values are part of the wire format.
type MessageType byte

const (
	// AliasSet is sent by a client to propose an alias. Payload is the alias.
	AliasSet MessageType = iota

	// AliasAck is sent by the server when the alias was accepted. Payload is the alias.
	AliasAck

	// AliasDeny is sent by the server when the alias was rejected. Payload is the reason.
	AliasDeny

	// Message carries chat text in both directions.
	Message

	// ConnUsers is sent by the server with the number of connected users as decimal text.
	ConnUsers
)

// String returns the protocol name of the message type.
func (t MessageType) String() string {
	switch t {
	case AliasSet:
		return "ALIASSET"
	case AliasAck:
		return "ALIASACK"
	case AliasDeny:
		return "ALIASDNY"
	case Message:
		return "MESSAGE"
	case ConnUsers:
		return "CONNUSERS"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", byte(t))
	}
}

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	return t <= ConnUsers
}

// Packet is a single decoded protocol message.
type Packet struct {
	Type    MessageType
	Payload string
}

// NewAliasSet builds the alias proposal a client sends first.
func NewAliasSet(alias string) Packet {
	return Packet{Type: AliasSet, Payload: alias}
}

// NewAliasAck builds the server's acceptance of alias.
func NewAliasAck(alias string) Packet {
	return Packet{Type: AliasAck, Payload: alias}
}

// NewAliasDeny builds the server's rejection carrying a human-readable reason.
func NewAliasDeny(reason string) Packet {
	return Packet{Type: AliasDeny, Payload: reason}
}

// NewMessage builds a chat message packet.
func NewMessage(text string) Packet {
	return Packet{Type: Message, Payload: text}
}

// NewConnUsers builds a connected-user count notification.
func NewConnUsers(count int) Packet {
	return Packet{Type: ConnUsers, Payload: strconv.Itoa(count)}
}

// ParseConnUsers extracts the user count from a ConnUsers packet.
func ParseConnUsers(p Packet) (int, error) {
	if p.Type != ConnUsers {
		return 0, fmt.Errorf("expected %s packet, got %s", ConnUsers, p.Type)
	}
	count, err := strconv.Atoi(p.Payload)
	if err != nil {
		return 0, fmt.Errorf("parse connected user count %q: %w", p.Payload, err)
	}
	return count, nil
}
