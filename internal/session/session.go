// Package session implements the rollback coordination state machine: host
// election, the ping loop, the hole-punch loop, and the UDP receive loop
// that dispatches inbound messages (or relays them verbatim once the
// session has elected a remote host).
package session

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/multiversuskoth/mvsi-rollback-server/internal/logging"
	"github.com/multiversuskoth/mvsi-rollback-server/internal/match"
	"github.com/multiversuskoth/mvsi-rollback-server/internal/obs"
	"github.com/multiversuskoth/mvsi-rollback-server/internal/registry"
	"github.com/multiversuskoth/mvsi-rollback-server/internal/wire"
)

// State is the session's place in the connection/match lifecycle.
type State int32

const (
	StateIdle State = iota
	StateWaitingForPlayers
	StatePinging
	StateReady
	StateMatchInProgress
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaitingForPlayers:
		return "waiting_for_players"
	case StatePinging:
		return "pinging"
	case StateReady:
		return "ready"
	case StateMatchInProgress:
		return "match_in_progress"
	default:
		return "unknown"
	}
}

// maxPingsBeforeReady is the per-player reply count the ping loop waits for
// before declaring the roster ready.
const maxPingsBeforeReady = 10

// holePunchCount and holePunchInterval mirror the four 100ms hole-punch
// sends the host fires at every other roster member on connect.
const (
	holePunchCount    = 4
	holePunchInterval = 100 * time.Millisecond
)

// Session owns the UDP socket and all per-match shared state. Three
// conceptual locks guard that state, always acquired in this order:
// match -> roster -> hostSocket -> localSocket. Holding matchMu across a
// multi-recipient send loop is what keeps the outbound sequence number
// monotonic across an entire fan-out.
type Session struct {
	mu   sync.RWMutex
	addr string

	conn  *net.UDPConn
	codec wire.Codec

	match   *match.Match
	matchMu sync.Mutex

	roster *match.Roster

	state atomic.Int32

	passthrough            atomic.Bool
	isLocalPlayerConnected atomic.Bool
	isHost                 atomic.Bool

	hostSocket   *net.UDPAddr
	hostSocketMu sync.Mutex

	localSocket   *net.UDPAddr
	localSocketMu sync.Mutex

	httpPlayers   []registry.Player
	httpPlayersMu sync.Mutex

	registry *registry.Client
	port     uint16

	logger *slog.Logger

	wg       sync.WaitGroup
	readyCh  chan struct{}
	readyOne sync.Once
	errCh    chan error

	lastErrMu sync.Mutex
	lastErr   error
}

// Option configures a Session at construction time.
type Option func(*Session)

// WithListenAddr sets the UDP listen address (host:port).
func WithListenAddr(addr string) Option { return func(s *Session) { s.addr = addr } }

// WithRegistry sets the backend registry client used to resolve match rosters.
func WithRegistry(r *registry.Client) Option { return func(s *Session) { s.registry = r } }

// WithLogger overrides the session's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession constructs a Session ready to Serve.
func NewSession(opts ...Option) *Session {
	s := &Session{
		match:   match.NewMatch(),
		roster:  match.NewRoster(),
		readyCh: make(chan struct{}),
		errCh:   make(chan error, 1),
		logger:  logging.L(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.addr == "" {
		s.addr = ":41234"
	}
	return s
}

// Addr returns the bound local address once Serve has started listening.
func (s *Session) Addr() string { s.mu.RLock(); defer s.mu.RUnlock(); return s.addr }

func (s *Session) setAddr(a string) { s.mu.Lock(); s.addr = a; s.mu.Unlock() }

// Ready is closed once the UDP socket is bound and the receive loop is live.
func (s *Session) Ready() <-chan struct{} { return s.readyCh }

// Errors reports fatal session errors (receive-loop termination).
func (s *Session) Errors() <-chan error { return s.errCh }

func (s *Session) setError(err error) {
	if err == nil {
		return
	}
	s.lastErrMu.Lock()
	s.lastErr = err
	s.lastErrMu.Unlock()
	select {
	case s.errCh <- err:
	default:
	}
}

// LastError returns the most recently recorded fatal error, if any.
func (s *Session) LastError() error {
	s.lastErrMu.Lock()
	defer s.lastErrMu.Unlock()
	return s.lastErr
}

// setState moves the session to a new state and logs the transition.
func (s *Session) setState(next State) {
	prev := State(s.state.Swap(int32(next)))
	if prev != next {
		s.logger.Info("state_transition", "from", prev.String(), "to", next.String())
	}
}

// State returns the session's current state.
func (s *Session) State() State { return State(s.state.Load()) }

// Serve binds the UDP socket and runs the receive loop until ctx is done.
func (s *Session) Serve(ctx context.Context) error {
	s.mu.Lock()
	addr := s.addr
	s.mu.Unlock()

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		wrap := fmt.Errorf("%w: %v", ErrListen, err)
		obs.IncError(mapErrToMetric(wrap))
		s.setError(wrap)
		return wrap
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		wrap := fmt.Errorf("%w: %v", ErrListen, err)
		obs.IncError(mapErrToMetric(wrap))
		s.setError(wrap)
		return wrap
	}
	s.conn = conn
	s.setAddr(conn.LocalAddr().String())
	s.setState(StateWaitingForPlayers)

	s.readyOne.Do(func() { close(s.readyCh) })
	s.logger.Info("udp_listen", "addr", s.Addr())

	go func() { <-ctx.Done(); _ = conn.Close() }()

	return s.receiveLoop(ctx)
}

// Shutdown closes the socket and waits for in-flight goroutines.
func (s *Session) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	done := make(chan struct{})
	go func() { s.wg.Wait(); close(done) }()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: shutdown timeout: %v", ErrContext, ctx.Err())
	case <-done:
		s.logger.Info("shutdown_summary", "state", s.State().String())
		return nil
	}
}

// IsReady reports whether the session has a bound socket; used for /ready.
func (s *Session) IsReady() bool {
	select {
	case <-s.readyCh:
		return true
	default:
		return false
	}
}

// WithMatch runs fn with matchMu held, giving callers outside this package
// (the tick engine) the same locked access that sendMessageLocked's callers
// use internally. Satisfies tick.Sender.
func (s *Session) WithMatch(fn func(m *match.Match)) {
	s.matchMu.Lock()
	defer s.matchMu.Unlock()
	fn(s.match)
}

// SendLocked exposes sendMessageLocked to callers (the tick engine) that
// already hold matchMu via WithMatch. Satisfies tick.Sender.
func (s *Session) SendLocked(m *match.Match, msgType wire.ServerMessageType, payload any, target *net.UDPAddr) {
	s.sendMessageLocked(m, msgType, payload, target)
}
