package handler

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// closeGracePeriod bounds the close handshake write.
const closeGracePeriod = time.Second

// errTextMessage is returned when the peer sends a text message; protocol frames are binary.
var errTextMessage = errors.New("websocket: text message on binary protocol stream")

// wsTransport presents a WebSocket connection as the byte stream a chat session reads
// frames from. Inbound binary messages are concatenated; every Write is sent as one binary
// message, so each protocol frame travels in its own message.
type wsTransport struct {
	conn *websocket.Conn

	// reader is the current inbound message, nil between messages.
	reader io.Reader

	closeOnce sync.Once
	closeErr  error
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	return &wsTransport{conn: conn}
}

// Read reads from the current message, moving on to the next one when it is exhausted.
// A close from the peer ends the stream with io.EOF.
func (t *wsTransport) Read(p []byte) (int, error) {
	for {
		if t.reader == nil {
			messageType, r, err := t.conn.NextReader()
			if err != nil {
				var closeErr *websocket.CloseError
				if errors.As(err, &closeErr) {
					return 0, io.EOF
				}
				return 0, err
			}
			if messageType != websocket.BinaryMessage {
				return 0, errTextMessage
			}
			t.reader = r
		}

		n, err := t.reader.Read(p)
		if errors.Is(err, io.EOF) {
			t.reader = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

// Write sends p as a single binary message. Callers serialize writes.
func (t *wsTransport) Write(p []byte) (int, error) {
	if err := t.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, fmt.Errorf("write websocket message: %w", err)
	}
	return len(p), nil
}

// Close sends a normal closure and closes the underlying connection once.
func (t *wsTransport) Close() error {
	t.closeOnce.Do(func() {
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = t.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(closeGracePeriod))
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}

func (t *wsTransport) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}

func (t *wsTransport) SetReadDeadline(deadline time.Time) error {
	return t.conn.SetReadDeadline(deadline)
}

func (t *wsTransport) SetWriteDeadline(deadline time.Time) error {
	return t.conn.SetWriteDeadline(deadline)
}
