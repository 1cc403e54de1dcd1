// Package hidtest provides in-memory transports for testing the protocol
// core without hardware: a behavioral Stradus emulator and a scripted
// playback transport.
package hidtest

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/optoforge/go-stradus/hid"
	"github.com/optoforge/go-stradus/protocol"
)

// Emulator simulates a Stradus laser speaking the CMD protocol. It
// implements hid.Transport: every Write parses one request report and
// queues the response the device would produce; Read pops queued responses.
//
// Fault-injection hooks (DropResponses, FailWrites, MangleNext) model a
// lossy or misbehaving bus for retry and protocol-error tests.
type Emulator struct {
	mu sync.Mutex

	info    protocol.DeviceInfo
	version string

	emission bool
	power    float64
	faults   byte

	pending [][]byte
	writes  int
	closed  bool

	dropNext   int
	writeErr   error
	readErr    error
	mangleNext func([]byte) []byte
}

var _ hid.Transport = (*Emulator)(nil)

// NewEmulator returns an emulated 488nm laser with a 0-100mW envelope.
func NewEmulator() *Emulator {
	return &Emulator{
		info: protocol.DeviceInfo{
			MinPowerMilliwatts:   0,
			MaxPowerMilliwatts:   100,
			WavelengthNanometers: 488,
		},
		version: "3.1.2",
	}
}

// SetLimits overrides the advertised power envelope.
func (e *Emulator) SetLimits(minMW, maxMW float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.info.MinPowerMilliwatts = minMW
	e.info.MaxPowerMilliwatts = maxMW
}

// SetFaults sets the fault bits reported in status responses.
func (e *Emulator) SetFaults(faults byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.faults = faults
}

// DropResponses makes the emulator swallow the responses to the next n
// writes, modelling reports lost on a busy bus.
func (e *Emulator) DropResponses(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dropNext = n
}

// FailWrites makes every subsequent Write return err. Pass nil to restore.
func (e *Emulator) FailWrites(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.writeErr = err
}

// FailReads makes every subsequent Read return err. Pass nil to restore.
func (e *Emulator) FailReads(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.readErr = err
}

// MangleNext installs a one-shot transform applied to the next response
// report before it is queued, for corrupt-frame tests.
func (e *Emulator) MangleNext(fn func([]byte) []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mangleNext = fn
}

// Writes returns the number of request reports received so far.
func (e *Emulator) Writes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writes
}

// Emitting reports the emulated emission state.
func (e *Emulator) Emitting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.emission
}

// Power returns the emulated power setpoint in milliwatts.
func (e *Emulator) Power() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.power
}

// Write receives one request report and queues the device response.
func (e *Emulator) Write(report []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return hid.ErrClosed
	}
	if e.writeErr != nil {
		return e.writeErr
	}

	e.writes++

	req, err := protocol.DecodeFrame(report)
	if err != nil {
		// A host frame the device cannot parse produces no response,
		// like real firmware dropping a malformed report.
		return nil
	}

	resp := e.handle(req)

	if e.dropNext > 0 {
		e.dropNext--
		return nil
	}
	if e.mangleNext != nil {
		resp = e.mangleNext(resp)
		e.mangleNext = nil
	}

	e.pending = append(e.pending, resp)
	return nil
}

// Read pops the next queued response, or times out.
func (e *Emulator) Read(timeout time.Duration) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, hid.ErrClosed
	}
	if e.readErr != nil {
		return nil, e.readErr
	}

	if len(e.pending) == 0 {
		return nil, hid.ErrReadTimeout
	}

	resp := e.pending[0]
	e.pending = e.pending[1:]
	return resp, nil
}

// Close marks the transport closed. The device model survives; acquiring
// the emulator again through an Opener reopens it, like re-acquiring a real
// HID path.
func (e *Emulator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// reopen makes a closed emulator usable again and discards stale queued
// responses. Called by hidtest.Opener on Open.
func (e *Emulator) reopen() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = false
	e.pending = nil
}

// handle executes one decoded request against the device model and returns
// the response report. Must be called with e.mu held.
func (e *Emulator) handle(req protocol.Frame) []byte {
	switch req.Cmd {
	case protocol.CmdLaserOn:
		if e.faults&protocol.FaultInterlock != 0 {
			return mustEncode(req.Cmd, []byte{protocol.StatusErrInterlock})
		}
		e.emission = true
		return mustEncode(req.Cmd, []byte{protocol.StatusOK})

	case protocol.CmdLaserOff:
		e.emission = false
		return mustEncode(req.Cmd, []byte{protocol.StatusOK})

	case protocol.CmdSetPower:
		if len(req.Payload) != 4 {
			return mustEncode(req.Cmd, []byte{protocol.StatusErrBadLength})
		}
		mw := float64(math.Float32frombits(binary.LittleEndian.Uint32(req.Payload)))
		if mw < e.info.MinPowerMilliwatts || mw > e.info.MaxPowerMilliwatts {
			return mustEncode(req.Cmd, []byte{protocol.StatusErrPowerRange})
		}
		e.power = mw
		return mustEncode(req.Cmd, []byte{protocol.StatusOK})

	case protocol.CmdGetStatus:
		payload := make([]byte, protocol.StatusResponseSize)
		if e.emission {
			payload[0] = protocol.FlagEmission
		}
		payload[1] = e.faults
		binary.LittleEndian.PutUint32(payload[2:], math.Float32bits(float32(e.power)))
		return mustEncode(req.Cmd, payload)

	case protocol.CmdGetInfo:
		payload := make([]byte, protocol.InfoResponseSize)
		binary.LittleEndian.PutUint32(payload[0:], math.Float32bits(float32(e.info.MinPowerMilliwatts)))
		binary.LittleEndian.PutUint32(payload[4:], math.Float32bits(float32(e.info.MaxPowerMilliwatts)))
		binary.LittleEndian.PutUint32(payload[8:], math.Float32bits(float32(e.info.WavelengthNanometers)))
		return mustEncode(req.Cmd, payload)

	case protocol.CmdGetVersion:
		return mustEncode(req.Cmd, []byte(e.version))

	default:
		return mustEncode(req.Cmd, []byte{protocol.StatusErrUnknownCommand})
	}
}

func mustEncode(cmd byte, payload []byte) []byte {
	report, err := protocol.EncodeFrame(cmd, payload)
	if err != nil {
		panic(err)
	}
	return report
}
