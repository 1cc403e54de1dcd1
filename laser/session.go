package laser

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/optoforge/go-stradus/hid"
	"github.com/optoforge/go-stradus/protocol"
)

// State is the session lifecycle state.
type State int

const (
	// StateClosed means no transport handle is held
	StateClosed State = iota

	// StateOpen means the transport is acquired and operations are accepted
	StateOpen

	// StateFaulted means an unrecoverable transaction failure occurred;
	// the session rejects operations until explicitly reopened
	StateFaulted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Session is the long-lived object bound to one laser device. It owns the
// transport handle exclusively and drives one request/response transaction
// at a time.
//
// Busy policy: fail fast. A second operation while one is in flight returns
// ErrSessionBusy immediately rather than queueing. Independent sessions on
// distinct handles proceed fully independently.
type Session struct {
	opener hid.Opener
	sel    hid.Selector
	cfg    Config
	id     uuid.UUID
	logger zerolog.Logger

	// opMu serializes transactions; acquired with TryLock so a concurrent
	// caller fails fast instead of queueing.
	opMu sync.Mutex

	// stateMu guards the fields below.
	stateMu   sync.Mutex
	state     State
	transport hid.Transport
	closing   chan struct{}
	info      protocol.DeviceInfo
	version   string

	// readCh carries results from the single reader goroutine; reading is
	// true while that goroutine is blocked in transport.Read. Together they
	// guarantee at most one Read is outstanding per handle even when a
	// cancelled wait abandons its exchange.
	readCh  chan readResult
	reading bool

	// consecutive retryable failures since the last good exchange; reset
	// on every valid response
	failures int
}

// NewSession creates a session for the device named by the selector. The
// session starts Closed; call Open before issuing operations.
func NewSession(opener hid.Opener, sel hid.Selector, opts ...Option) *Session {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	id := uuid.New()
	return &Session{
		opener: opener,
		sel:    sel,
		cfg:    cfg,
		id:     id,
		logger: cfg.Logger.With().Str("session_id", id.String()).Logger(),
		state:  StateClosed,
	}
}

// ID returns the session's correlation UUID, carried on every audit event.
func (s *Session) ID() uuid.UUID { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// Limits returns the device-advertised power envelope learned during Open.
// Valid only while the session has been opened at least once.
func (s *Session) Limits() protocol.DeviceInfo {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.info
}

// FirmwareVersion returns the firmware version string learned during Open.
func (s *Session) FirmwareVersion() string {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.version
}

// Open acquires the transport handle and performs the opening handshake:
// query the device power limits and firmware version. On any failure the
// handle is released and the session remains Closed.
//
// Opening a Faulted session behaves like Reopen: the handle held since the
// fault is released before a new one is acquired, so the session never
// owns two handles.
func (s *Session) Open(ctx context.Context) error {
	if !s.opMu.TryLock() {
		return ErrSessionBusy
	}
	defer s.opMu.Unlock()

	s.stateMu.Lock()
	state := s.state
	s.stateMu.Unlock()

	switch state {
	case StateOpen:
		return ErrAlreadyOpen
	case StateFaulted:
		s.releaseTransport()
	}

	return s.openLocked(ctx)
}

// Reopen recovers a Faulted (or Closed) session: any held handle is
// released and the opening sequence runs again.
func (s *Session) Reopen(ctx context.Context) error {
	if !s.opMu.TryLock() {
		return ErrSessionBusy
	}
	defer s.opMu.Unlock()

	s.releaseTransport()
	return s.openLocked(ctx)
}

// openLocked runs the open sequence. Caller holds opMu.
func (s *Session) openLocked(ctx context.Context) error {
	transport, err := s.opener.Open(s.sel)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	s.stateMu.Lock()
	s.transport = transport
	s.closing = make(chan struct{})
	s.readCh = make(chan readResult, 1)
	s.reading = false
	s.state = StateOpen
	s.failures = 0
	s.stateMu.Unlock()

	// Opening handshake: learn the power envelope and firmware version.
	// The session is not usable without limits; SetPower validates
	// against them before any I/O.
	info, err := s.queryInfo(ctx)
	if err != nil {
		s.releaseTransport()
		return fmt.Errorf("open session: query limits: %w", err)
	}

	version, err := s.queryVersion(ctx)
	if err != nil {
		s.releaseTransport()
		return fmt.Errorf("open session: query version: %w", err)
	}

	s.stateMu.Lock()
	s.info = info
	s.version = version
	s.stateMu.Unlock()

	s.logger.Debug().
		Str("device", s.sel.Path).
		Str("firmware", version).
		Float64("min_mw", info.MinPowerMilliwatts).
		Float64("max_mw", info.MaxPowerMilliwatts).
		Msg("session open")

	return nil
}

// Close releases the transport handle and returns the session to Closed.
// An in-flight transaction is cancelled and surfaces ErrCancelled.
func (s *Session) Close() error {
	s.releaseTransport()
	return nil
}

// releaseTransport closes any held handle and marks the session Closed.
func (s *Session) releaseTransport() {
	s.stateMu.Lock()
	transport := s.transport
	closing := s.closing
	s.transport = nil
	s.closing = nil
	s.state = StateClosed
	s.stateMu.Unlock()

	if closing != nil {
		close(closing)
	}
	if transport != nil {
		_ = transport.Close()
	}
}

// fault marks the session Faulted after an unrecoverable transaction
// failure. The handle is kept so Reopen can release and reacquire it.
func (s *Session) fault(reason error) {
	s.stateMu.Lock()
	if s.state == StateOpen {
		s.state = StateFaulted
	}
	s.stateMu.Unlock()

	s.logger.Warn().Err(reason).Msg("session faulted")
}

// LaserOn enables emission. Idempotent at the protocol level: the device
// accepts the command while already emitting.
func (s *Session) LaserOn(ctx context.Context) error {
	if !s.opMu.TryLock() {
		return ErrSessionBusy
	}
	defer s.opMu.Unlock()

	resp, err := s.transact(ctx, protocol.BuildLaserOnCmd())
	if err != nil {
		return err
	}
	if err := protocol.ParseAck("laser on", resp.Payload); err != nil {
		return s.ackError("laser on", err)
	}

	s.audit("laser_on").Msg("laser emission enabled")
	return nil
}

// LaserOff disables emission. The power setpoint is retained by the device.
func (s *Session) LaserOff(ctx context.Context) error {
	if !s.opMu.TryLock() {
		return ErrSessionBusy
	}
	defer s.opMu.Unlock()

	resp, err := s.transact(ctx, protocol.BuildLaserOffCmd())
	if err != nil {
		return err
	}
	if err := protocol.ParseAck("laser off", resp.Payload); err != nil {
		return s.ackError("laser off", err)
	}

	s.audit("laser_off").Msg("laser emission disabled")
	return nil
}

// SetPower sets the emission power setpoint in milliwatts. The value is
// validated against the device-advertised limits before any bytes are
// written; out-of-range values return a *protocol.InvalidPowerError.
func (s *Session) SetPower(ctx context.Context, milliwatts float64) error {
	if !s.opMu.TryLock() {
		return ErrSessionBusy
	}
	defer s.opMu.Unlock()

	s.stateMu.Lock()
	state, info := s.state, s.info
	s.stateMu.Unlock()
	if state != StateOpen {
		return ErrSessionNotOpen
	}

	req, err := protocol.BuildSetPowerCmd(milliwatts, info)
	if err != nil {
		return err
	}

	resp, err := s.transact(ctx, req)
	if err != nil {
		return err
	}
	if err := protocol.ParseAck("set power", resp.Payload); err != nil {
		return s.ackError("set power", err)
	}

	s.audit("set_power").Float64("milliwatts", milliwatts).Msg("power setpoint changed")
	return nil
}

// Status queries emission state, fault bits and the current power setpoint.
// Never mutates device state.
func (s *Session) Status(ctx context.Context) (protocol.Status, error) {
	if !s.opMu.TryLock() {
		return protocol.Status{}, ErrSessionBusy
	}
	defer s.opMu.Unlock()

	resp, err := s.transact(ctx, protocol.BuildGetStatusCmd())
	if err != nil {
		return protocol.Status{}, err
	}

	status, err := protocol.ParseStatusResponse(resp.Payload)
	if err != nil {
		return protocol.Status{}, s.ackError("get status", err)
	}
	return status, nil
}

// queryInfo runs the GetInfo exchange. Caller holds opMu.
func (s *Session) queryInfo(ctx context.Context) (protocol.DeviceInfo, error) {
	resp, err := s.transact(ctx, protocol.BuildGetInfoCmd())
	if err != nil {
		return protocol.DeviceInfo{}, err
	}

	info, err := protocol.ParseInfoResponse(resp.Payload)
	if err != nil {
		return protocol.DeviceInfo{}, s.ackError("get info", err)
	}
	return info, nil
}

// queryVersion runs the GetVersion exchange. Caller holds opMu.
func (s *Session) queryVersion(ctx context.Context) (string, error) {
	resp, err := s.transact(ctx, protocol.BuildGetVersionCmd())
	if err != nil {
		return "", err
	}

	version, err := protocol.ParseVersionResponse(resp.Payload)
	if err != nil {
		return "", s.ackError("get version", err)
	}
	return version, nil
}

// ackError classifies a response-payload failure. A device status byte
// (*protocol.DeviceError) means the exchange completed and the device
// refused the command: surfaced as-is, session stays Open. Anything else is
// a shape violation: the session faults and a ProtocolViolationError is
// returned.
func (s *Session) ackError(op string, err error) error {
	if protocol.IsDeviceError(err) {
		return err
	}

	verr := &ProtocolViolationError{Operation: op, Cause: err}
	s.fault(verr)
	return verr
}
