package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrPayloadTooLarge is returned when a payload exceeds MaxPayload.
	ErrPayloadTooLarge = errors.New("protocol: payload too large")

	// ErrShortRead is returned when the stream ends in the middle of a frame.
	ErrShortRead = errors.New("protocol: short read")

	// ErrConnectionClosed is returned when the peer closed the stream on a frame boundary.
	ErrConnectionClosed = errors.New("protocol: connection closed")

	// ErrMalformedFrame is returned for a frame whose length prefix is zero.
	ErrMalformedFrame = errors.New("protocol: malformed frame")

	// ErrUnknownMessageType is returned for a frame carrying an unknown type byte.
	ErrUnknownMessageType = errors.New("protocol: unknown message type")
)

// Encode returns the wire representation of p: exactly 3 + len(p.Payload) bytes.
func Encode(p Packet) ([]byte, error) {
	if len(p.Payload) > MaxPayload {
		return nil, fmt.Errorf("encode %s with %d bytes: %w", p.Type, len(p.Payload), ErrPayloadTooLarge)
	}

	frame := make([]byte, LengthPrefixSize+1+len(p.Payload))
	binary.BigEndian.PutUint16(frame[:LengthPrefixSize], uint16(1+len(p.Payload)))
	frame[LengthPrefixSize] = byte(p.Type)
	copy(frame[LengthPrefixSize+1:], p.Payload)

	return frame, nil
}

// WritePacket encodes p and writes the whole frame to w with a single Write call.
func WritePacket(w io.Writer, p Packet) error {
	frame, err := Encode(p)
	if err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write %s frame: %w", p.Type, err)
	}
	return nil
}

// Decode reads exactly one frame from r. It blocks until the whole frame is available,
// so a buffered reader over a blocking connection never needs partial-frame state.
//
// A stream that ends before the first byte of a frame, or right after a length prefix,
// yields ErrConnectionClosed. A stream that ends inside the prefix or inside the body
// yields ErrShortRead.
func Decode(r io.Reader) (Packet, error) {
	var prefix [LengthPrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return Packet{}, classifyReadError("length prefix", err)
	}

	length := int(binary.BigEndian.Uint16(prefix[:]))
	if length == 0 {
		return Packet{}, fmt.Errorf("zero length prefix: %w", ErrMalformedFrame)
	}
	if length-1 > MaxPayload {
		return Packet{}, fmt.Errorf("frame of %d bytes: %w", length, ErrPayloadTooLarge)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return Packet{}, classifyReadError("frame body", err)
	}

	msgType := MessageType(body[0])
	if !msgType.Valid() {
		return Packet{}, fmt.Errorf("type byte %d: %w", body[0], ErrUnknownMessageType)
	}

	return Packet{Type: msgType, Payload: string(body[1:])}, nil
}

// classifyReadError maps io.ReadFull results onto the codec sentinels. io.EOF means zero
// bytes were read where a non-zero read was expected, which is the orderly-close signal.
func classifyReadError(part string, err error) error {
	switch {
	case errors.Is(err, io.EOF):
		return fmt.Errorf("read %s: %w", part, ErrConnectionClosed)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("read %s: %w", part, ErrShortRead)
	default:
		return fmt.Errorf("read %s: %w", part, err)
	}
}
