package chat

import (
	"cmp"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Quote121/threaded-sockets/internal/pkg/logx"
)

// Registry is the authoritative set of alias-confirmed users.
// Every method is atomic with respect to every other.
type Registry interface {
	// TryRegister inserts u unless its alias is taken or the registry is full.
	TryRegister(u *NetworkedUser) error

	// Remove deletes the entry holding u's connection. It reports whether an entry was
	// removed; removing twice is a no-op.
	Remove(u *NetworkedUser) bool

	// Snapshot returns a copy of the current users ordered by connection time.
	Snapshot() []*NetworkedUser

	// Count returns the number of registered users.
	Count() int

	// Lookup returns the user holding alias.
	Lookup(alias string) (*NetworkedUser, bool)
}

// userRegistry is a Registry guarded by a single mutex. The lock is never held across
// network I/O.
type userRegistry struct {
	// mu protects both indexes.
	mu sync.Mutex

	// byAlias enforces alias uniqueness (case-sensitive).
	byAlias map[string]*NetworkedUser

	// byConn is the reverse index by connection handle used by Remove.
	byConn map[*Conn]*NetworkedUser

	// maxUsers caps the registry size; zero means unlimited.
	maxUsers int

	logger zerolog.Logger
}

// NewRegistry returns an empty Registry admitting at most maxUsers users (0 = unlimited).
func NewRegistry(maxUsers int) Registry {
	return &userRegistry{
		byAlias:  make(map[string]*NetworkedUser),
		byConn:   make(map[*Conn]*NetworkedUser),
		maxUsers: maxUsers,
		logger:   logx.Component("Registry"),
	}
}

func (r *userRegistry) TryRegister(u *NetworkedUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byAlias[u.alias]; taken {
		return ErrAliasTaken
	}

	if r.maxUsers > 0 && len(r.byAlias) >= r.maxUsers {
		return ErrServerFull
	}

	r.byAlias[u.alias] = u
	r.byConn[u.conn] = u

	r.logger.Debug().
		Str("alias", u.alias).
		Int("total_users", len(r.byAlias)).
		Msg("User registered.")
	return nil
}

func (r *userRegistry) Remove(u *NetworkedUser) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byConn[u.conn]
	if !ok {
		return false
	}

	delete(r.byConn, u.conn)
	delete(r.byAlias, existing.alias)

	r.logger.Debug().
		Str("alias", existing.alias).
		Int("total_users", len(r.byAlias)).
		Msg("User removed.")
	return true
}

func (r *userRegistry) Snapshot() []*NetworkedUser {
	r.mu.Lock()
	users := make([]*NetworkedUser, 0, len(r.byAlias))
	for _, u := range r.byAlias {
		users = append(users, u)
	}
	r.mu.Unlock()

	slices.SortFunc(users, func(a, b *NetworkedUser) int {
		if c := a.connectedAt.Compare(b.connectedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.alias, b.alias)
	})
	return users
}

func (r *userRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byAlias)
}

func (r *userRegistry) Lookup(alias string) (*NetworkedUser, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byAlias[alias]
	return u, ok
}
