package chat

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Quote121/threaded-sockets/internal/app/protocol"
	"github.com/Quote121/threaded-sockets/internal/pkg/errs"
	"github.com/Quote121/threaded-sockets/internal/pkg/logx"
)

// SessionState is the position of a session in its lifecycle.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateNegotiatingAlias
	StateActive
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateNegotiatingAlias:
		return "negotiating_alias"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// SessionConfig carries the per-session limits.
type SessionConfig struct {
	// HandshakeTimeout bounds alias negotiation; zero disables it.
	HandshakeTimeout time.Duration

	// MessageRate and MessageBurst bound inbound chat packets; a zero rate disables it.
	MessageRate  rate.Limit
	MessageBurst int
}

// Session drives one accepted connection: alias negotiation, then the receive loop.
// The session owns its Conn and closes it on every exit path.
type Session struct {
	id          string
	transport   string
	connectedAt time.Time

	conn     *Conn
	registry Registry
	router   *Router
	config   SessionConfig
	limiter  *rate.Limiter

	user  *NetworkedUser
	state atomic.Int32

	logger zerolog.Logger
}

// NewSession prepares a session for conn. Nothing is read before Run.
func NewSession(id, transport string, conn *Conn, registry Registry, router *Router, config SessionConfig) *Session {
	s := &Session{
		id:          id,
		transport:   transport,
		connectedAt: time.Now(),
		conn:        conn,
		registry:    registry,
		router:      router,
		config:      config,
		logger: logx.Logger().With().
			Str("session_id", id).
			Str("transport", transport).
			Str("remote_ip", logx.AnonymizeIP(conn.RemoteAddr())).
			Logger(),
	}

	if config.MessageRate > 0 {
		s.limiter = rate.NewLimiter(config.MessageRate, config.MessageBurst)
	}

	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// User returns the registered user, or nil before negotiation succeeded.
func (s *Session) User() *NetworkedUser {
	return s.user
}

func (s *Session) setState(state SessionState) {
	s.state.Store(int32(state))
}

// Run executes the session until the peer leaves, a fatal error occurs or ctx is cancelled.
// Cancelling ctx closes the connection, which interrupts a blocked read.
func (s *Session) Run(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() {
		s.conn.Close()
	})

	defer func() {
		stop()
		s.close()
	}()

	s.setState(StateNegotiatingAlias)
	if !s.negotiate(ctx) {
		return
	}

	s.setState(StateActive)
	s.receiveLoop(ctx)
}

// negotiate performs the alias handshake. It returns true once the user is registered and
// acknowledged.
func (s *Session) negotiate(ctx context.Context) bool {
	if s.config.HandshakeTimeout > 0 {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.config.HandshakeTimeout)); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to set handshake deadline")
			return false
		}
	}

	packet, err := s.conn.Receive()
	if err != nil {
		s.logReceiveEnd(ctx, err)
		return false
	}

	if packet.Type != protocol.AliasSet {
		s.logger.Warn().Stringer("msg_type", packet.Type).Msg("First packet was not an alias request.")
		s.deny(errs.ErrAliasExpected)
		return false
	}

	alias := packet.Payload
	if code := validateAlias(alias); code != 0 {
		s.logger.Info().Str("alias", alias).Int("code", code).Msg("Alias rejected by policy.")
		s.deny(code)
		return false
	}

	candidate := NewNetworkedUser(s.id, alias, s.connectedAt, s.transport, s.conn)

	err = s.conn.SendAfter(func() error {
		return s.registry.TryRegister(candidate)
	}, protocol.NewAliasAck(alias))

	switch {
	case errors.Is(err, ErrAliasTaken):
		s.logger.Info().Str("alias", alias).Msg("Alias already taken.")
		s.deny(errs.ErrAliasTaken)
		return false
	case errors.Is(err, ErrServerFull):
		s.logger.Info().Str("alias", alias).Msg("Server is full.")
		s.deny(errs.ErrServerFull)
		return false
	}

	// From here the user is registered, so every exit path must deregister it.
	s.user = candidate
	s.logger = s.logger.With().Str("alias", alias).Logger()

	if err != nil {
		s.logger.Info().Err(err).Msg("Failed to acknowledge alias.")
		return false
	}

	if err := s.conn.SetReadDeadline(time.Time{}); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to clear handshake deadline")
		return false
	}

	s.logger.Info().Int("total_users", s.registry.Count()).Msg("User joined.")

	if err := s.router.BroadcastUserCount(); err != nil {
		s.logger.Debug().Err(err).Msg("User count push partially failed.")
	}
	return true
}

// deny answers a failed negotiation with the reason of code.
func (s *Session) deny(code int) {
	if err := s.router.Unicast(protocol.AliasDeny, s.conn, errs.Reason(code)); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to send alias deny.")
	}
}

// receiveLoop decodes packets until the connection ends.
func (s *Session) receiveLoop(ctx context.Context) {
	for {
		packet, err := s.conn.Receive()
		if err != nil {
			s.logReceiveEnd(ctx, err)
			return
		}

		switch packet.Type {
		case protocol.Message:
			s.handleMessage(packet.Payload)

		case protocol.ConnUsers:
			s.logger.Warn().Msg("Client sent server-only CONNUSERS packet. Closing session.")
			return

		default:
			s.logger.Debug().Stringer("msg_type", packet.Type).Msg("Ignoring handshake packet in active session.")
		}
	}
}

func (s *Session) handleMessage(text string) {
	if s.limiter != nil && !s.limiter.Allow() {
		s.logger.Warn().Int("bytes", len(text)).Msg("Message rate exceeded, dropping message.")
		return
	}

	if err := s.router.Broadcast(protocol.Message, s.user, text); err != nil {
		s.logger.Debug().Err(err).Msg("Message broadcast partially failed.")
	}
}

// close deregisters the user exactly once, notifies the others and releases the socket.
func (s *Session) close() {
	s.setState(StateClosed)

	if s.user != nil && s.registry.Remove(s.user) {
		s.logger.Info().Int("total_users", s.registry.Count()).Msg("User left.")

		if err := s.router.BroadcastUserCount(); err != nil {
			s.logger.Debug().Err(err).Msg("User count push partially failed.")
		}
	}

	if err := s.conn.Close(); err != nil && !IsExpectedCloseError(err) {
		s.logger.Debug().Err(err).Msg("Connection close error")
	}
}

// logReceiveEnd reports why the inbound stream stopped, at a level matching the cause.
func (s *Session) logReceiveEnd(ctx context.Context, err error) {
	if cause := context.Cause(ctx); cause != nil {
		s.logger.Info().Str("reason", cause.Error()).Msg("Session closed by server.")
		return
	}

	switch {
	case errors.Is(err, protocol.ErrConnectionClosed):
		s.logger.Info().Msg("Peer closed connection.")
	case errors.Is(err, os.ErrDeadlineExceeded):
		s.logger.Info().Stringer("state", s.State()).Msg("Read deadline exceeded.")
	case errors.Is(err, protocol.ErrShortRead),
		errors.Is(err, protocol.ErrMalformedFrame),
		errors.Is(err, protocol.ErrPayloadTooLarge),
		errors.Is(err, protocol.ErrUnknownMessageType):
		s.logger.Warn().Err(err).Msg("Protocol error, closing session.")
	case IsExpectedCloseError(err):
		s.logger.Info().Err(err).Msg("Connection terminated.")
	default:
		s.logger.Error().Err(err).Msg("Receive failed.")
	}
}

// validateAlias returns the errs code describing why alias is unacceptable, or 0.
func validateAlias(alias string) int {
	if alias == "" {
		return errs.ErrAliasEmpty
	}

	if len(alias) > protocol.MaxAliasLength {
		return errs.ErrAliasTooLong
	}

	if !utf8.ValidString(alias) {
		return errs.ErrAliasInvalid
	}

	for _, r := range alias {
		if !unicode.IsPrint(r) {
			return errs.ErrAliasInvalid
		}
	}

	return 0
}
