// Package session implements the protocol context / session FSM
// (component C6): a layering of the hierarchical state machine (C4) over
// the six session states, JWT-backed AUTH verification, and a
// send() path that frames outgoing messages through the wire protocol
// framer (C5).
package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/obinexus/polycall-core/internal/corectx"
	"github.com/obinexus/polycall-core/internal/fsm"
	"github.com/obinexus/polycall-core/internal/logger"
	"github.com/obinexus/polycall-core/internal/wire"
)

// State names for the session FSM (spec §4.6).
const (
	StateInit      = "INIT"
	StateHandshake = "HANDSHAKE"
	StateAuth      = "AUTH"
	StateReady     = "READY"
	StateError     = "ERROR"
	StateClosed    = "CLOSED"
)

// Transition names, one per legal edge.
const (
	TransHandshake   = "handshake"
	TransAuthenticate = "authenticate"
	TransReady       = "ready"
	TransFail        = "fail"
	TransClose       = "close"
	TransFailToClose = "fail-to-close"
)

// Endpoint is the transport this session writes framed bytes to.
// Implementations may block; Send must be cancellable via ctx.
type Endpoint interface {
	Send(ctx context.Context, frame []byte) error
}

// Callbacks are the session's externally observable hooks (spec §6).
type Callbacks struct {
	OnStateChange func(old, new string)
	OnHandshake   func()
	OnAuthRequest func(payload []byte)
	OnCommand     func(payload []byte)
	OnError       func(msg string)
}

// Session wraps an fsm.Machine configured with the session state graph,
// adding sequence tracking, a transport endpoint, and cancellation.
type Session struct {
	ID       string
	machine  *fsm.Machine
	endpoint Endpoint
	verifier *TokenVerifier
	maxMsg   uint32

	mu        sync.Mutex
	sequence  uint32
	cancelled atomic.Bool

	callbacks Callbacks
}

// New constructs a Session in state INIT.
func New(id string, endpoint Endpoint, verifier *TokenVerifier, maxMessageSize uint32, cb Callbacks) (*Session, error) {
	m := fsm.New()
	for _, s := range []string{StateInit, StateHandshake, StateAuth, StateReady, StateError, StateClosed} {
		if err := m.AddState(s, "", fsm.InheritNone, nil, nil, nil); err != nil {
			return nil, err
		}
	}

	s := &Session{ID: id, machine: m, endpoint: endpoint, verifier: verifier, maxMsg: maxMessageSize, callbacks: cb}

	transitions := []struct{ name, from, to string }{
		{TransHandshake, StateInit, StateHandshake},
		{TransAuthenticate, StateHandshake, StateAuth},
		{TransReady, StateAuth, StateReady},
		{TransFail, StateReady, StateError},
		{TransClose, StateReady, StateClosed},
		{TransFailToClose, StateError, StateClosed},
	}
	for _, t := range transitions {
		if err := m.AddTransition(t.name, t.from, t.to, nil, false); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Current returns the session's current state name.
func (s *Session) Current() string {
	return s.machine.Current()
}

// EffectivePermissions returns the permission set resolved for the
// session's current state, per C4's inheritance-policy walk. C3 consults
// this before dispatching a call (spec §4.3 step 4).
func (s *Session) EffectivePermissions() (map[string]struct{}, error) {
	return s.machine.EffectivePermissions(s.machine.Current())
}

// Cancel requests cooperative cancellation: the next suspension point
// (send) returns `cancelled` without further side effects.
func (s *Session) Cancel() {
	s.cancelled.Store(true)
}

func (s *Session) checkCancelled() error {
	if s.cancelled.Load() {
		return corectx.New("session", corectx.CodeCancelled, "operation cancelled")
	}
	return nil
}

// fire executes a named FSM transition and, on success, invokes
// OnStateChange. invalid-state from the underlying machine is reported as
// invalid-transition per spec §4.6 wording.
func (s *Session) fire(name string) error {
	old := s.machine.Current()
	if err := s.machine.Fire(name); err != nil {
		return corectx.New("session", corectx.CodeInvalidState, "invalid-transition").WithContext(name)
	}
	newState := s.machine.Current()
	if s.callbacks.OnStateChange != nil {
		s.callbacks.OnStateChange(old, newState)
	}
	return nil
}

// Handshake processes an incoming HANDSHAKE message: INIT → HANDSHAKE.
func (s *Session) Handshake() error {
	if err := s.fire(TransHandshake); err != nil {
		return err
	}
	if s.callbacks.OnHandshake != nil {
		s.callbacks.OnHandshake()
	}
	return nil
}

// Authenticate processes an incoming AUTH message: HANDSHAKE → AUTH,
// verifying the bearer token before admitting the transition.
func (s *Session) Authenticate(ctx context.Context, token string, payload []byte) error {
	if _, err := s.verifier.Verify(token); err != nil {
		return err
	}
	if err := s.fire(TransAuthenticate); err != nil {
		return err
	}
	if s.callbacks.OnAuthRequest != nil {
		s.callbacks.OnAuthRequest(payload)
	}
	return nil
}

// Ready transitions AUTH → READY once authentication is complete.
func (s *Session) Ready() error {
	return s.fire(TransReady)
}

// Command processes an incoming COMMAND message; legal only in READY.
func (s *Session) Command(payload []byte) error {
	if s.machine.Current() != StateReady {
		return corectx.New("session", corectx.CodeInvalidState, "invalid-state-for-send").WithContext("COMMAND")
	}
	if s.callbacks.OnCommand != nil {
		s.callbacks.OnCommand(payload)
	}
	return nil
}

// Fail transitions READY → ERROR and invokes OnError.
func (s *Session) Fail(msg string) error {
	if err := s.fire(TransFail); err != nil {
		return err
	}
	if s.callbacks.OnError != nil {
		s.callbacks.OnError(msg)
	}
	return nil
}

// Close transitions the session to CLOSED from either READY or ERROR.
func (s *Session) Close() error {
	switch s.machine.Current() {
	case StateReady:
		return s.fire(TransClose)
	case StateError:
		return s.fire(TransFailToClose)
	default:
		return corectx.New("session", corectx.CodeInvalidState, "invalid-transition").WithContext(TransClose)
	}
}

// sendableStates lists, per message type, the session states from which
// send() may enqueue that type (spec §4.5/§4.6).
var sendableStates = map[wire.MessageType]map[string]struct{}{
	wire.TypeHandshake:   {StateInit: {}},
	wire.TypeAuth:        {StateHandshake: {}},
	wire.TypeCommand:     {StateReady: {}},
	wire.TypeResponse:    {StateReady: {}},
	wire.TypeHeartbeat:   {StateInit: {}, StateHandshake: {}, StateAuth: {}, StateReady: {}},
	wire.TypePublish:     {StateReady: {}},
	wire.TypeSubscribe:   {StateReady: {}},
	wire.TypeUnsubscribe: {StateReady: {}},
	wire.TypeError:       {StateInit: {}, StateHandshake: {}, StateAuth: {}, StateReady: {}, StateError: {}},
}

// Send allocates a header, fills sequence from the session counter
// (post-increment), computes the checksum, and enqueues the frame onto the
// transport endpoint (spec §4.6). Blocks on the endpoint unless ctx is
// cancelled or the session's cooperative cancellation flag is set.
func (s *Session) Send(ctx context.Context, t wire.MessageType, payload []byte, flags wire.Flags) error {
	if err := s.checkCancelled(); err != nil {
		return err
	}

	allowed, ok := sendableStates[t]
	if !ok {
		return corectx.New("session", corectx.CodeInvalidParameter, "unknown message type")
	}
	if _, ok := allowed[s.machine.Current()]; !ok {
		return corectx.New("session", corectx.CodeInvalidState, "invalid-state-for-send").WithContext(t.String())
	}

	s.mu.Lock()
	s.sequence++
	seq := s.sequence
	s.mu.Unlock()

	frame, err := wire.Encode(wire.Message{
		Header: wire.Header{Version: wire.ProtocolVersion, Type: t, Flags: flags, Sequence: seq},
		Payload: payload,
	}, s.maxMsg)
	if err != nil {
		return err
	}

	if err := s.checkCancelled(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- s.endpoint.Send(ctx, frame) }()

	select {
	case <-ctx.Done():
		return corectx.New("session", corectx.CodeCancelled, "send cancelled")
	case err := <-done:
		if err != nil {
			logger.Error("endpoint send failed", logger.SessionID(s.ID), logger.Err(err))
			return corectx.NewWithCause("session", corectx.CodeInternal, "endpoint-send-failed", err)
		}
		return nil
	}
}

// TrySend is the non-blocking variant of Send: it returns immediately with
// `cancelled` if ctx is already done, otherwise behaves like Send but does
// not wait past ctx's deadline (identical semantics expressed for callers
// that want the non-blocking name to document intent at the call site).
func (s *Session) TrySend(ctx context.Context, t wire.MessageType, payload []byte, flags wire.Flags) error {
	select {
	case <-ctx.Done():
		return corectx.New("session", corectx.CodeCancelled, "send cancelled")
	default:
	}
	return s.Send(ctx, t, payload, flags)
}
