// Package interactive is a client runtime for the interactive broadcast
// service. A Session authenticates, keeps a websocket to the service open
// across failures, mirrors the scene/group/participant/control tables and
// turns viewer input into per-tick state.
//
// A Session has a single owner goroutine. Network and timer callbacks never
// touch session state directly; they queue work that the owner runs in Poll.
package interactive

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NeboLoop/interactive-go-sdk/batch"
	"github.com/NeboLoop/interactive-go-sdk/frame"
	"github.com/NeboLoop/interactive-go-sdk/input"
	"github.com/NeboLoop/interactive-go-sdk/model"
	"github.com/NeboLoop/interactive-go-sdk/oauth"
	"github.com/NeboLoop/interactive-go-sdk/timer"
	"github.com/NeboLoop/interactive-go-sdk/transport"
)

// State is the interactivity lifecycle of a Session.
type State int

const (
	NotInitialized State = iota
	Initializing
	ShortCodeRequired
	Initialized
	InteractivityPending
	InteractivityEnabled
	InteractivityDisabled
)

func (s State) String() string {
	switch s {
	case NotInitialized:
		return "NotInitialized"
	case Initializing:
		return "Initializing"
	case ShortCodeRequired:
		return "ShortCodeRequired"
	case Initialized:
		return "Initialized"
	case InteractivityPending:
		return "InteractivityPending"
	case InteractivityEnabled:
		return "InteractivityEnabled"
	case InteractivityDisabled:
		return "InteractivityDisabled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Timer names. Each kind of deferred work has at most one timer in flight.
const (
	timerDiscover        = "discover"
	timerAuth            = "auth"
	timerShortCodeCheck  = "shortcode-check"
	timerShortCodeExpiry = "shortcode-expiry"
	timerReconnect       = "reconnect"
)

// Session is one client connection to the interactive service.
type Session struct {
	cfg    Config
	log    *slog.Logger
	id     uuid.UUID
	api    *oauth.Client
	timers timer.Scheduler

	// inbox is the only state shared with other goroutines.
	inMu     sync.Mutex
	inbox    []func()
	disposed bool

	ctx    context.Context
	cancel context.CancelFunc

	state     State
	autoStart bool
	wantReady bool // the caller asked for interactivity and has not stopped it
	ready     bool // initialization finished at least once

	accessToken  string
	refreshToken string
	shortCode    oauth.ShortCode

	hosts     []string
	hostIndex int
	backoff   time.Duration

	// dial attempts that failed in a row; a full lap of the host list
	// sends the next retry back through authenticate
	dialFailures int
	halted       bool // closed with a fatal code; nothing reconnects

	conn        transport.Conn
	connGen     int
	outq        [][]byte // frames sent while the socket was still opening
	compression string

	ids         frame.IDGen
	outstanding map[uint32]string
	initPending map[string]bool

	store    *model.Store
	input    *input.Reconciler
	batcher  *batch.Batcher
	captured captureWindow
	events   []Event
	handlers handlers
}

// New creates a session. Nothing happens on the network until Initialize.
func New(cfg Config) *Session {
	cfg = cfg.withDefaults()
	id := uuid.New()
	s := &Session{
		cfg:         cfg,
		id:          id,
		log:         cfg.Logger.With("session", id.String()),
		api:         oauth.NewClient(cfg.APIServer, cfg.ClientID, cfg.Endpoints, cfg.HTTPClient),
		timers:      cfg.Scheduler,
		outstanding: make(map[uint32]string),
		initPending: make(map[string]bool),
		store:       model.NewStore(),
		input:       input.NewReconciler(),
		batcher:     batch.New(),
		compression: frame.SchemeNone,
		backoff:     cfg.ReconnectBackoff,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// ID identifies the session in logs.
func (s *Session) ID() uuid.UUID { return s.id }

// State returns the current interactivity state.
func (s *Session) State() State { return s.state }

// ShortCode returns the code the user must enter to authorize this client,
// or "" when no short code is outstanding.
func (s *Session) ShortCode() string {
	if s.state != ShortCodeRequired {
		return ""
	}
	return s.shortCode.Code
}

// Hosts returns the websocket hosts in failover order.
func (s *Session) Hosts() []string { return append([]string(nil), s.hosts...) }

// ActiveHostIndex is the index into Hosts of the host in use or about to be
// dialed.
func (s *Session) ActiveHostIndex() int { return s.hostIndex }

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Initialize starts authentication and connection. It is a no-op unless the
// session is NotInitialized. With autoStart the session calls StartInteractive
// as soon as it is Initialized. A non-empty token is used instead of any
// stored access token.
func (s *Session) Initialize(autoStart bool, token string) {
	if s.state != NotInitialized {
		return
	}
	s.reset()
	s.autoStart = autoStart
	s.accessToken = token
	s.setState(Initializing)
	s.log.Info("initializing", "client_id", s.cfg.ClientID, "version", s.cfg.ProjectVersionID)
	s.bootstrap()
}

// reset clears every table and re-arms a disposed session.
func (s *Session) reset() {
	s.inMu.Lock()
	s.inbox = nil
	s.disposed = false
	s.inMu.Unlock()

	if s.ctx.Err() != nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}
	s.wantReady = false
	s.ready = false
	s.accessToken, s.refreshToken = "", ""
	s.shortCode = oauth.ShortCode{}
	s.hosts = nil
	s.hostIndex = 0
	s.backoff = s.cfg.ReconnectBackoff
	s.dialFailures = 0
	s.halted = false
	s.conn = nil
	s.connGen++
	s.outq = nil
	s.compression = frame.SchemeNone
	s.ids.Reset()
	s.outstanding = make(map[uint32]string)
	s.initPending = make(map[string]bool)
	s.store.Reset()
	s.input.Reset()
	s.batcher.Clear()
	s.captured.reset()
	s.events = nil
}

// StartInteractive asks the service to start delivering input. The session
// moves to InteractivityPending until the service confirms with onReady.
// It does nothing unless the session is Initialized or InteractivityDisabled,
// or after the service closed the connection for good.
func (s *Session) StartInteractive() {
	if s.state != Initialized && s.state != InteractivityDisabled {
		return
	}
	if !s.ready || s.halted {
		s.log.Warn("StartInteractive ignored, no usable connection", "state", s.state)
		return
	}
	s.wantReady = true
	s.sendReady(true)
	s.setState(InteractivityPending)
}

// StopInteractive disables interactivity immediately, without waiting for
// the service to acknowledge.
func (s *Session) StopInteractive() {
	switch s.state {
	case Initialized, InteractivityPending, InteractivityEnabled:
	default:
		return
	}
	s.wantReady = false
	s.setState(InteractivityDisabled)
	s.sendReady(false)
}

// Poll runs one cycle: queued network and timer work is applied, input
// buffers rotate, queued events are dispatched to handlers, and pending
// property updates are flushed. Call it once per application tick.
func (s *Session) Poll() {
	s.inMu.Lock()
	work := s.inbox
	s.inbox = nil
	disposed := s.disposed
	s.inMu.Unlock()
	if disposed {
		return
	}

	// a handler or callback may Dispose mid-cycle
	for _, fn := range work {
		if s.disposed {
			return
		}
		fn()
	}

	s.input.Rotate()

	// events raised by handlers go out on the next Poll
	events := s.events
	s.events = nil
	for _, e := range events {
		if s.disposed {
			return
		}
		s.dispatch(e)
	}

	s.flush()
}

// Dispose cancels every timer, closes the socket and drops all handlers.
// It is idempotent. No callback runs after Dispose returns.
func (s *Session) Dispose() {
	s.inMu.Lock()
	if s.disposed {
		s.inMu.Unlock()
		return
	}
	s.disposed = true
	s.inbox = nil
	s.inMu.Unlock()

	s.timers.CancelAll()
	s.cancel()
	if s.conn != nil {
		s.conn.Close(transport.CloseNormal, "disposed")
		s.conn = nil
	}
	s.connGen++
	s.ready = false
	s.wantReady = false
	s.handlers = handlers{}
	s.events = nil
	s.batcher.Clear()
	s.state = NotInitialized
	s.log.Info("disposed")
}

// --------------------------------------------------------------------------
// Internal plumbing
// --------------------------------------------------------------------------

// enqueue hands work to the owner goroutine. Safe from any goroutine.
func (s *Session) enqueue(fn func()) {
	s.inMu.Lock()
	defer s.inMu.Unlock()
	if s.disposed {
		return
	}
	s.inbox = append(s.inbox, fn)
}

// async runs a blocking call off the owner goroutine and queues the
// continuation it returns.
func (s *Session) async(call func(ctx context.Context) func()) {
	ctx := s.ctx
	go func() {
		if next := call(ctx); next != nil && ctx.Err() == nil {
			s.enqueue(next)
		}
	}()
}

// after schedules fn to run on the owner goroutine once d has elapsed.
func (s *Session) after(name string, d time.Duration, fn func()) {
	s.timers.After(name, d, func() { s.enqueue(fn) })
}

func (s *Session) now() time.Time { return s.cfg.Now() }

func (s *Session) queue(e Event) {
	s.events = append(s.events, e)
}

func (s *Session) stamp() eventTime { return eventTime{At: s.now()} }

func (s *Session) setState(st State) {
	if s.state == st {
		return
	}
	prev := s.state
	s.state = st
	s.log.Info("state changed", "from", prev, "to", st)
	s.queue(StateChangedEvent{eventTime: s.stamp(), Previous: prev, State: st})
}

// raise queues a non-fatal error.
func (s *Session) raise(code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.log.Warn(msg, "code", code)
	s.queue(ErrorEvent{eventTime: s.stamp(), Code: code, Message: msg})
}

// flush sends everything the batcher accumulated this cycle.
func (s *Session) flush() {
	for _, call := range s.batcher.Flush() {
		if _, err := s.send(call.Method, call.Params); err != nil {
			s.raise(0, "send %s: %v", call.Method, err)
		}
	}
}
