package laser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/optoforge/go-stradus/hid"
	"github.com/optoforge/go-stradus/protocol"
)

// transact drives one request/response exchange: encode, write, await the
// matching response, retrying timed-out attempts up to the configured
// budget. Caller holds opMu.
//
// Failure handling separates "no frame arrived" from "a frame arrived but
// was wrong": timeouts and transport I/O failures are retried and, once the
// budget is exhausted, fault the session; an undecodable response or a
// mismatched command echo is never retried and faults the session
// immediately, since retrying cannot repair a protocol mismatch.
func (s *Session) transact(ctx context.Context, req protocol.Frame) (protocol.Frame, error) {
	op := protocol.CommandName(req.Cmd)

	s.stateMu.Lock()
	state := s.state
	transport := s.transport
	closing := s.closing
	s.stateMu.Unlock()

	if state != StateOpen || transport == nil {
		return protocol.Frame{}, ErrSessionNotOpen
	}

	// Framing failures are caller errors, detected before any I/O.
	report, err := req.Encode()
	if err != nil {
		return protocol.Frame{}, fmt.Errorf("%s: %w", op, err)
	}

	// A response delivered after its exchange was cancelled may still sit
	// in the read channel. Anything buffered before this request is
	// written is stale and belongs to no caller.
	s.stateMu.Lock()
	select {
	case <-s.readCh:
	default:
	}
	s.stateMu.Unlock()

	attempts := s.cfg.Retries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return protocol.Frame{}, fmt.Errorf("%s: %w: %v", op, ErrCancelled, err)
		}

		if err := transport.Write(report); err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrTransportWrite, err)
			s.noteFailure(op, attempt, lastErr)
			continue
		}

		resp, err := s.awaitResponse(ctx, transport, closing)
		switch {
		case err == nil:
			// Got a report; validate it below.
		case errors.Is(err, hid.ErrReadTimeout):
			lastErr = err
			s.noteFailure(op, attempt, err)
			continue
		case errors.Is(err, ErrCancelled):
			return protocol.Frame{}, fmt.Errorf("%s: %w", op, err)
		default:
			lastErr = fmt.Errorf("%w: %v", ErrTransportRead, err)
			s.noteFailure(op, attempt, lastErr)
			continue
		}

		frame, err := protocol.DecodeFrame(resp)
		if err != nil {
			verr := &ProtocolViolationError{Operation: op, Cause: err}
			s.fault(verr)
			return protocol.Frame{}, verr
		}

		if frame.Cmd != req.Cmd {
			verr := &ProtocolViolationError{
				Operation: op,
				Cause:     &EchoMismatchError{Sent: req.Cmd, Echoed: frame.Cmd},
			}
			s.fault(verr)
			return protocol.Frame{}, verr
		}

		s.stateMu.Lock()
		s.failures = 0
		s.stateMu.Unlock()

		return frame, nil
	}

	// Retry budget exhausted. The device may have applied a command whose
	// response was lost, so the host's view of device state is unknown.
	if errors.Is(lastErr, hid.ErrReadTimeout) {
		terr := &TimeoutError{Operation: op, Attempts: attempts}
		s.fault(terr)
		return protocol.Frame{}, terr
	}

	err = fmt.Errorf("%s: %w", op, lastErr)
	s.fault(err)
	return protocol.Frame{}, err
}

// readResult is one outcome of the session's reader goroutine.
type readResult struct {
	data []byte
	err  error
}

// awaitResponse blocks until one report arrives, the per-attempt timeout
// elapses, the caller's context is cancelled, or the session is closed.
//
// Reads go through a session-owned channel with at most one reader
// goroutine outstanding: a wait abandoned by cancellation leaves its reader
// running, and the next attempt reuses that reader instead of starting a
// second concurrent Read on a transport that forbids one.
func (s *Session) awaitResponse(ctx context.Context, transport hid.Transport, closing <-chan struct{}) ([]byte, error) {
	s.stateMu.Lock()
	ch := s.readCh
	if !s.reading {
		s.reading = true
		go func() {
			data, err := transport.Read(s.cfg.Timeout)
			ch <- readResult{data: data, err: err}
			s.stateMu.Lock()
			if s.readCh == ch {
				s.reading = false
			}
			s.stateMu.Unlock()
		}()
	}
	s.stateMu.Unlock()

	select {
	case r := <-ch:
		return r.data, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	case <-closing:
		return nil, fmt.Errorf("%w: session closed", ErrCancelled)
	}
}

// noteFailure records a retryable attempt failure.
func (s *Session) noteFailure(op string, attempt int, err error) {
	s.stateMu.Lock()
	s.failures++
	failures := s.failures
	s.stateMu.Unlock()

	s.logger.Debug().
		Str("op", op).
		Int("attempt", attempt).
		Int("consecutive_failures", failures).
		Err(err).
		Msg("exchange attempt failed")

	// Brief pause before a re-send keeps a wedged device from being
	// hammered at full rate.
	if attempt <= s.cfg.Retries {
		time.Sleep(time.Millisecond)
	}
}
