package hidtest

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/optoforge/go-stradus/hid"
	"github.com/optoforge/go-stradus/protocol"
)

// ASCIIEmulator simulates a v1 Stradus laser speaking the legacy text
// protocol: zero-padded ASCII commands in, a single text reply per command.
type ASCIIEmulator struct {
	mu sync.Mutex

	emission bool
	power    float64
	maxMW    float64

	pending []string
	closed  bool
}

var _ hid.Transport = (*ASCIIEmulator)(nil)

// NewASCIIEmulator returns an emulated v1 laser with a 100mW ceiling.
func NewASCIIEmulator() *ASCIIEmulator {
	return &ASCIIEmulator{maxMW: 100}
}

// Emitting reports the emulated emission state.
func (e *ASCIIEmulator) Emitting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.emission
}

// Power returns the emulated power setpoint in milliwatts.
func (e *ASCIIEmulator) Power() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.power
}

// Write receives one padded command report and queues the reply line.
func (e *ASCIIEmulator) Write(report []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return hid.ErrClosed
	}

	cmd := strings.Trim(strings.ReplaceAll(string(report), "\x00", ""), "\r\n")
	e.pending = append(e.pending, e.handle(cmd))
	return nil
}

// Read pops the next queued reply as a padded report, or times out.
func (e *ASCIIEmulator) Read(timeout time.Duration) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, hid.ErrClosed
	}
	if len(e.pending) == 0 {
		return nil, hid.ErrReadTimeout
	}

	reply := e.pending[0]
	e.pending = e.pending[1:]

	report := make([]byte, protocol.ReportSize)
	copy(report, reply+"\r")
	return report, nil
}

// Close marks the transport closed.
func (e *ASCIIEmulator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *ASCIIEmulator) reopen() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = false
	e.pending = nil
}

func (e *ASCIIEmulator) handle(cmd string) string {
	switch {
	case cmd == "LON":
		e.emission = true
		return "OK"
	case cmd == "LOFF":
		e.emission = false
		return "OK"
	case cmd == "STATUS?":
		emission := 0
		if e.emission {
			emission = 1
		}
		return fmt.Sprintf("EMISSION=%d POWER=%.3f", emission, e.power)
	case strings.HasPrefix(cmd, "LPOWER "):
		mw, err := strconv.ParseFloat(strings.TrimPrefix(cmd, "LPOWER "), 64)
		if err != nil {
			return "ERR SYNTAX"
		}
		if mw < 0 || mw > e.maxMW {
			return "ERR RANGE"
		}
		e.power = mw
		return "OK"
	default:
		return "ERR UNKNOWN"
	}
}
