package chat

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Quote121/threaded-sockets/internal/app/protocol"
)

func TestBroadcastExcludesSender(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(0)
	router := NewRouter(registry)

	bob, bobFar := pipeUser(t, "bob")
	ann, annFar := pipeUser(t, "ann")
	cat, catFar := pipeUser(t, "cat")
	for _, u := range []*NetworkedUser{bob, ann, cat} {
		if err := registry.TryRegister(u); err != nil {
			t.Fatalf("TryRegister: %v", err)
		}
	}

	annGot := readPackets(annFar, 1)
	catGot := readPackets(catFar, 1)

	if err := router.Broadcast(protocol.Message, bob, "hi"); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	for name, ch := range map[string]<-chan []protocol.Packet{"ann": annGot, "cat": catGot} {
		packets := <-ch
		if len(packets) != 1 || packets[0] != protocol.NewMessage("hi") {
			t.Errorf("%s received %+v", name, packets)
		}
	}

	// Nothing was written towards the sender: a read must time out.
	bobFar.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	if p, err := protocol.Decode(bobFar); err == nil {
		t.Errorf("sender received %+v", p)
	}
}

func TestBroadcastContinuesPastFailedRecipient(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(0)
	router := NewRouter(registry)

	gone, _ := pipeUser(t, "gone")
	ann, annFar := pipeUser(t, "ann")
	for _, u := range []*NetworkedUser{gone, ann} {
		if err := registry.TryRegister(u); err != nil {
			t.Fatalf("TryRegister: %v", err)
		}
	}
	gone.Conn().Close()

	annGot := readPackets(annFar, 1)

	err := router.Broadcast(protocol.Message, nil, "notice")
	if !errors.Is(err, ErrSend) {
		t.Errorf("Broadcast: got %v, want ErrSend", err)
	}

	if packets := <-annGot; len(packets) != 1 || packets[0].Payload != "notice" {
		t.Errorf("ann received %+v", packets)
	}

	// A failed delivery leaves deregistration to the recipient's own session.
	if got := registry.Count(); got != 2 {
		t.Errorf("Count: got %d, want 2", got)
	}
}

func TestBroadcastRejectsOversizedPayload(t *testing.T) {
	t.Parallel()
	router := NewRouter(NewRegistry(0))

	err := router.Broadcast(protocol.Message, nil, string(make([]byte, protocol.MaxPayload+1)))
	if !errors.Is(err, protocol.ErrPayloadTooLarge) {
		t.Errorf("got %v, want ErrPayloadTooLarge", err)
	}
}

func TestBroadcastUserCount(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(0)
	router := NewRouter(registry)

	ann, annFar := pipeUser(t, "ann")
	bob, bobFar := pipeUser(t, "bob")
	for _, u := range []*NetworkedUser{ann, bob} {
		if err := registry.TryRegister(u); err != nil {
			t.Fatalf("TryRegister: %v", err)
		}
	}

	annGot := readPackets(annFar, 1)
	bobGot := readPackets(bobFar, 1)

	if err := router.BroadcastUserCount(); err != nil {
		t.Fatalf("BroadcastUserCount: %v", err)
	}

	for _, ch := range []<-chan []protocol.Packet{annGot, bobGot} {
		packets := <-ch
		if len(packets) != 1 || packets[0] != protocol.NewConnUsers(2) {
			t.Errorf("received %+v", packets)
		}
	}
}

func TestUnicast(t *testing.T) {
	t.Parallel()
	router := NewRouter(NewRegistry(0))
	ann, annFar := pipeUser(t, "ann")

	got := readPackets(annFar, 1)
	if err := router.Unicast(protocol.AliasDeny, ann.Conn(), "alias taken"); err != nil {
		t.Fatalf("Unicast: %v", err)
	}

	if packets := <-got; len(packets) != 1 || packets[0] != protocol.NewAliasDeny("alias taken") {
		t.Errorf("received %+v", packets)
	}
}

func TestUserCountPushesConvergeUnderChurn(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(0)
	router := NewRouter(registry)

	watcher, watcherFar := pipeUser(t, "watcher")
	if err := registry.TryRegister(watcher); err != nil {
		t.Fatalf("TryRegister: %v", err)
	}

	last := make(chan int, 1)
	go func() {
		count := -1
		for {
			packet, err := protocol.Decode(watcherFar)
			if err != nil {
				last <- count
				return
			}
			if n, err := protocol.ParseConnUsers(packet); err == nil {
				count = n
			}
		}
	}()

	var wg sync.WaitGroup
	for i := range 40 {
		u, far := pipeUser(t, fmt.Sprintf("u%d", i))
		go io.Copy(io.Discard, far)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := registry.TryRegister(u); err != nil {
				t.Errorf("TryRegister %s: %v", u.Alias(), err)
				return
			}
			router.BroadcastUserCount()

			if i%2 == 0 {
				registry.Remove(u)
				router.BroadcastUserCount()
			}
		}()
	}
	wg.Wait()

	want := registry.Count()
	watcher.conn.Close()

	select {
	case got := <-last:
		if got != want {
			t.Errorf("last pushed count: got %d, want %d", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not observe the end of the stream")
	}
}
