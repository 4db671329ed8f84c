package chat

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegistryRejectsDuplicateAlias(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(0)

	bob, _ := pipeUser(t, "bob")
	impostor, _ := pipeUser(t, "bob")

	if err := registry.TryRegister(bob); err != nil {
		t.Fatalf("first TryRegister: %v", err)
	}
	if err := registry.TryRegister(impostor); !errors.Is(err, ErrAliasTaken) {
		t.Errorf("second TryRegister: got %v, want ErrAliasTaken", err)
	}

	if got := registry.Count(); got != 1 {
		t.Errorf("Count: got %d, want 1", got)
	}
	if u, ok := registry.Lookup("bob"); !ok || u != bob {
		t.Errorf("Lookup returned %v, %v", u, ok)
	}
}

func TestRegistryAliasIsCaseSensitive(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(0)

	lower, _ := pipeUser(t, "bob")
	upper, _ := pipeUser(t, "Bob")

	if err := registry.TryRegister(lower); err != nil {
		t.Fatalf("TryRegister bob: %v", err)
	}
	if err := registry.TryRegister(upper); err != nil {
		t.Errorf("TryRegister Bob: %v", err)
	}
}

func TestRegistryConcurrentSameAlias(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(0)

	const contenders = 64
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		start     = make(chan struct{})
	)

	for range contenders {
		u, _ := pipeUser(t, "ann")
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if registry.TryRegister(u) == nil {
				successes.Add(1)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := successes.Load(); got != 1 {
		t.Errorf("successful registrations: got %d, want 1", got)
	}
	if got := registry.Count(); got != 1 {
		t.Errorf("Count: got %d, want 1", got)
	}
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(0)
	ann, _ := pipeUser(t, "ann")

	if err := registry.TryRegister(ann); err != nil {
		t.Fatalf("TryRegister: %v", err)
	}

	if !registry.Remove(ann) {
		t.Error("first Remove reported no entry")
	}
	if registry.Remove(ann) {
		t.Error("second Remove reported a removal")
	}
	if got := registry.Count(); got != 0 {
		t.Errorf("Count: got %d, want 0", got)
	}

	// The alias is free again once removed.
	again, _ := pipeUser(t, "ann")
	if err := registry.TryRegister(again); err != nil {
		t.Errorf("TryRegister after Remove: %v", err)
	}
}

func TestRegistryRemoveIgnoresUnregisteredUser(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(0)

	owner, _ := pipeUser(t, "ann")
	loser, _ := pipeUser(t, "ann")

	if err := registry.TryRegister(owner); err != nil {
		t.Fatalf("TryRegister: %v", err)
	}

	// A denied session removing itself must not evict the owner of the alias.
	if registry.Remove(loser) {
		t.Error("Remove of an unregistered user reported a removal")
	}
	if _, ok := registry.Lookup("ann"); !ok {
		t.Error("owner was evicted")
	}
}

func TestRegistryServerFull(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(2)

	for _, alias := range []string{"ann", "bob"} {
		u, _ := pipeUser(t, alias)
		if err := registry.TryRegister(u); err != nil {
			t.Fatalf("TryRegister %s: %v", alias, err)
		}
	}

	cat, _ := pipeUser(t, "cat")
	if err := registry.TryRegister(cat); !errors.Is(err, ErrServerFull) {
		t.Errorf("got %v, want ErrServerFull", err)
	}

	// A taken alias is reported as taken even when the registry is full.
	dup, _ := pipeUser(t, "ann")
	if err := registry.TryRegister(dup); !errors.Is(err, ErrAliasTaken) {
		t.Errorf("got %v, want ErrAliasTaken", err)
	}
}

func TestRegistrySnapshotOrder(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(0)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	for i, alias := range []string{"cat", "ann", "bob"} {
		template, _ := pipeUser(t, alias)
		u := NewNetworkedUser(template.ID(), alias, base.Add(time.Duration(2-i)*time.Second), TransportTCP, template.Conn())
		if err := registry.TryRegister(u); err != nil {
			t.Fatalf("TryRegister %s: %v", alias, err)
		}
	}

	var got []string
	for _, u := range registry.Snapshot() {
		got = append(got, u.Alias())
	}

	want := []string{"bob", "ann", "cat"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Snapshot order: got %v, want %v", got, want)
	}
}

func TestRegistrySnapshotDuringChurn(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(0)

	users := make([]*NetworkedUser, 32)
	for i := range users {
		users[i], _ = pipeUser(t, fmt.Sprintf("u%d", i))
	}

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				if registry.TryRegister(u) == nil {
					registry.Remove(u)
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		select {
		case <-done:
			return
		default:
		}

		seen := make(map[string]bool)
		for _, u := range registry.Snapshot() {
			if u == nil || u.Conn() == nil || u.Alias() == "" {
				t.Fatalf("snapshot contains incomplete entry %+v", u)
			}
			if seen[u.Alias()] {
				t.Fatalf("snapshot contains alias %q twice", u.Alias())
			}
			seen[u.Alias()] = true
		}
	}
}
