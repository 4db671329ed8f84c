package chat

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/Quote121/threaded-sockets/internal/app/protocol"
	"github.com/Quote121/threaded-sockets/internal/pkg/errs"
)

func TestValidateAlias(t *testing.T) {
	t.Parallel()
	tests := []struct {
		alias string
		want  int
	}{
		{alias: "bob", want: 0},
		{alias: "abcdefghij", want: 0},
		{alias: "héllo", want: 0},
		{alias: "", want: errs.ErrAliasEmpty},
		{alias: "abcdefghijk", want: errs.ErrAliasTooLong},
		{alias: "tab\there", want: errs.ErrAliasInvalid},
		{alias: "\xc3", want: errs.ErrAliasInvalid},
	}

	for _, test := range tests {
		if got := validateAlias(test.alias); got != test.want {
			t.Errorf("validateAlias(%q): got %d, want %d", test.alias, got, test.want)
		}
	}
}

func TestSessionLifecycleOverPipe(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(0)
	router := NewRouter(registry)

	near, far := net.Pipe()
	defer far.Close()

	session := NewSession("s-1", TransportTCP, NewConn(near, time.Second), registry, router, SessionConfig{
		HandshakeTimeout: time.Second,
	})
	if session.State() != StateConnecting {
		t.Fatalf("initial state: got %s", session.State())
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		session.Run(ctx)
	}()

	received := readPackets(far, 2)
	if err := protocol.WritePacket(far, protocol.NewAliasSet("ann")); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}

	packets := <-received
	if len(packets) != 2 || packets[0] != protocol.NewAliasAck("ann") || packets[1] != protocol.NewConnUsers(1) {
		t.Fatalf("handshake frames: got %+v", packets)
	}

	if u, ok := registry.Lookup("ann"); !ok || u != session.User() {
		t.Fatal("registered user does not match the session user")
	}

	cancel(ErrDisconnected)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not stop after cancellation")
	}

	if session.State() != StateClosed {
		t.Errorf("final state: got %s", session.State())
	}
	if registry.Count() != 0 {
		t.Errorf("Count after close: got %d", registry.Count())
	}
}
