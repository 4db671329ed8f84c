package chat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Quote121/threaded-sockets/internal/app/listener"
	"github.com/Quote121/threaded-sockets/internal/app/protocol"
	"github.com/Quote121/threaded-sockets/internal/app/user"
	"github.com/Quote121/threaded-sockets/internal/configs"
	"github.com/Quote121/threaded-sockets/internal/pkg/limiter"
	"github.com/Quote121/threaded-sockets/internal/pkg/logx"
	"github.com/Quote121/threaded-sockets/internal/pkg/randx"
)

const (
	// TransportTCP names sessions accepted on the raw listening socket.
	TransportTCP = "tcp"

	// TransportWebSocket names sessions bridged through the WebSocket gateway.
	TransportWebSocket = "websocket"

	maxAcceptDelay = time.Second
)

// Server owns the listening socket, the registry and every running session.
type Server struct {
	config *configs.AppConfig

	registry Registry
	router   *Router

	sessionConfig SessionConfig

	// joinLimiter throttles new connections per client IP.
	joinLimiter *limiter.IPRateLimiter

	// mu protects socket, listener, sessions and closing.
	mu       sync.Mutex
	socket   *listener.Socket
	listener net.Listener
	sessions map[string]context.CancelCauseFunc
	closing  bool

	// wg counts running sessions for Shutdown.
	wg sync.WaitGroup

	logger zerolog.Logger
}

// NewServer builds a Server from cfg. Nothing is bound until Create.
func NewServer(cfg *configs.AppConfig) *Server {
	registry := NewRegistry(cfg.MaxUsers)

	return &Server{
		config:   cfg,
		registry: registry,
		router:   NewRouter(registry),
		sessionConfig: SessionConfig{
			HandshakeTimeout: cfg.HandshakeTimeout,
			MessageRate:      rate.Limit(cfg.MessageRate),
			MessageBurst:     cfg.MessageBurst,
		},
		joinLimiter: limiter.NewIPRateLimiter(rate.Limit(cfg.ConnRate), cfg.ConnBurst),
		sessions:    make(map[string]context.CancelCauseFunc),
		logger:      logx.Component("Server"),
	}
}

// Registry returns the server's user registry.
func (s *Server) Registry() Registry { return s.registry }

// Router returns the server's message router.
func (s *Server) Router() *Router { return s.router }

// JoinLimiter returns the per-IP limiter applied to new connections.
func (s *Server) JoinLimiter() *limiter.IPRateLimiter { return s.joinLimiter }

// Create binds the listening socket to port. The error wraps ErrBind when the port is in use,
// privileged, or invalid.
func (s *Server) Create(port string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		return ErrServerClosed
	}
	if s.socket != nil || s.listener != nil {
		return errors.New("chat: socket already created")
	}

	socket, err := listener.Create(port)
	if err != nil {
		return err
	}
	s.socket = socket

	s.logger.Info().Int("port", socket.Port()).Msg("Socket bound.")
	return nil
}

// Listen starts queueing up to backlog pending connections.
func (s *Server) Listen(backlog int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.socket == nil {
		return ErrNotListening
	}

	ln, err := s.socket.Listen(backlog)
	if err != nil {
		return err
	}
	s.listener = ln
	s.socket = nil

	s.logger.Info().Str("addr", ln.Addr().String()).Int("backlog", backlog).Msg("Listening for connections.")
	return nil
}

// Addr returns the listening address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// AcceptLoop accepts connections until ctx is cancelled or Shutdown is called, starting one
// session per connection. It returns nil on a requested stop.
func (s *Server) AcceptLoop(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	if ln == nil {
		return ErrNotListening
	}

	stop := context.AfterFunc(ctx, func() {
		s.closeListener()
	})
	defer stop()

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || s.isClosing() || errors.Is(err, net.ErrClosed) {
				s.logger.Info().Msg("Accept loop stopped.")
				return nil
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				delay = nextAcceptDelay(delay)
				s.logger.Warn().Err(err).Dur("retry_in", delay).Msg("Accept failed, retrying.")
				time.Sleep(delay)
				continue
			}

			s.logger.Error().Err(err).Msg("Accept failed.")
			return fmt.Errorf("accept: %w", err)
		}
		delay = 0

		addr := conn.RemoteAddr().String()
		if !s.joinLimiter.Allow(addr) {
			s.logger.Warn().Str("remote_ip", logx.AnonymizeIP(addr)).Msg("Connection rate exceeded, dropping connection.")
			conn.Close()
			continue
		}

		if _, err := s.ServeConn(conn, TransportTCP); err != nil {
			conn.Close()
		}
	}
}

func nextAcceptDelay(delay time.Duration) time.Duration {
	if delay == 0 {
		return 5 * time.Millisecond
	}
	delay *= 2
	if delay > maxAcceptDelay {
		delay = maxAcceptDelay
	}
	return delay
}

// ServeConn starts a session over t and returns a channel closed when it ends. The session
// takes ownership of t. It fails with ErrServerClosed once Shutdown has begun.
func (s *Server) ServeConn(t Transport, transport string) (<-chan struct{}, error) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil, ErrServerClosed
	}

	id := randx.SessionID()
	ctx, cancel := context.WithCancelCause(context.Background())
	s.sessions[id] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	session := NewSession(id, transport, NewConn(t, s.config.WriteTimeout), s.registry, s.router, s.sessionConfig)
	done := make(chan struct{})

	go func() {
		defer s.wg.Done()
		defer close(done)
		defer func() {
			s.mu.Lock()
			delete(s.sessions, id)
			s.mu.Unlock()
			cancel(nil)
		}()

		session.Run(ctx)
	}()

	return done, nil
}

// Disconnect ends the session of the user holding alias. It reports whether such a user was
// connected. Deregistration happens on the session's own exit path.
func (s *Server) Disconnect(alias string) bool {
	u, ok := s.registry.Lookup(alias)
	if !ok {
		return false
	}

	s.mu.Lock()
	cancel, ok := s.sessions[u.ID()]
	s.mu.Unlock()
	if !ok {
		return false
	}

	s.logger.Info().Str("alias", alias).Msg("Disconnecting user on operator request.")
	cancel(ErrDisconnected)
	return true
}

// Announce broadcasts a server-originated chat message to every registered user.
func (s *Server) Announce(message string) error {
	if len(message) > protocol.MaxPayload {
		return protocol.ErrPayloadTooLarge
	}
	return s.router.Broadcast(protocol.Message, nil, message)
}

// Users returns the public view of every registered user, oldest connection first.
func (s *Server) Users() []user.User {
	snapshot := s.registry.Snapshot()
	users := make([]user.User, 0, len(snapshot))
	for _, u := range snapshot {
		users = append(users, u.View())
	}
	return users
}

// Count returns the number of registered users.
func (s *Server) Count() int {
	return s.registry.Count()
}

// Shutdown stops accepting, ends every session and waits for them to deregister or for ctx
// to expire, whichever comes first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true

	if s.socket != nil {
		s.socket.Close()
		s.socket = nil
	}

	cancels := make([]context.CancelCauseFunc, 0, len(s.sessions))
	for _, cancel := range s.sessions {
		cancels = append(cancels, cancel)
	}
	s.mu.Unlock()

	s.closeListener()

	s.logger.Info().Int("sessions", len(cancels)).Msg("Shutting down server...")
	for _, cancel := range cancels {
		cancel(ErrServerClosed)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	defer s.joinLimiter.Stop()

	select {
	case <-done:
		s.logger.Info().Msg("Server shutdown complete.")
		return nil
	case <-ctx.Done():
		s.logger.Warn().Int("remaining_users", s.registry.Count()).Msg("Shutdown deadline exceeded.")
		return ctx.Err()
	}
}

func (s *Server) closeListener() {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	if ln == nil {
		return
	}
	if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Warn().Err(err).Msg("Failed to close listener.")
	}
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}
