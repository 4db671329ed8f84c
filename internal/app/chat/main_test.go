package chat

import (
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Quote121/threaded-sockets/internal/app/protocol"
	"github.com/Quote121/threaded-sockets/internal/pkg/logx"
)

func TestMain(m *testing.M) {
	logx.SetOutput(io.Discard, zerolog.Disabled)
	os.Exit(m.Run())
}

// pipeUser returns an unregistered user whose Conn writes into a pipe, and the far end of
// that pipe.
func pipeUser(t *testing.T, alias string) (*NetworkedUser, net.Conn) {
	t.Helper()
	near, far := net.Pipe()
	t.Cleanup(func() {
		near.Close()
		far.Close()
	})

	conn := NewConn(near, 0)
	return NewNetworkedUser(alias+"-id", alias, time.Now(), TransportTCP, conn), far
}

// readPackets decodes n frames from r on a separate goroutine.
func readPackets(r io.Reader, n int) <-chan []protocol.Packet {
	out := make(chan []protocol.Packet, 1)
	go func() {
		var packets []protocol.Packet
		for range n {
			p, err := protocol.Decode(r)
			if err != nil {
				break
			}
			packets = append(packets, p)
		}
		out <- packets
	}()
	return out
}
