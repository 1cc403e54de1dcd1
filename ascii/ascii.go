// Package ascii implements the legacy v1 text variant of the Stradus
// control protocol, kept as a fallback for firmware that predates the
// binary framing in package protocol.
//
// Commands are plain ASCII lines ("LON", "LPOWER 12.500") terminated with a
// carriage return and zero-padded into a fixed-size report. Replies are
// whatever text the firmware sends back; the variant has no command echo,
// no length field and no retry discipline, so callers wanting robust
// exchanges should prefer the binary protocol.
package ascii

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/optoforge/go-stradus/hid"
	"github.com/optoforge/go-stradus/protocol"
)

// Command strings understood by v1 firmware.
const (
	cmdLaserOn  = "LON\r"
	cmdLaserOff = "LOFF\r"
	cmdStatus   = "STATUS?\r"
)

// EncodeCommand pads an ASCII command into a full report.
func EncodeCommand(cmd string) ([]byte, error) {
	if len(cmd) > protocol.ReportSize {
		return nil, fmt.Errorf("%w: command %d bytes, report %d", protocol.ErrPayloadTooLarge, len(cmd), protocol.ReportSize)
	}
	report := make([]byte, protocol.ReportSize)
	copy(report, cmd)
	return report, nil
}

// DecodeReply extracts the text from a reply report: padding NULs are
// dropped and the terminator stripped.
func DecodeReply(report []byte) string {
	trimmed := bytes.ReplaceAll(report, []byte{0}, nil)
	return strings.Trim(string(trimmed), "\r\n")
}

// Device is a thin session over the v1 text protocol. Unlike
// laser.Session it has no retry engine and no state machine: every call
// performs one write and one read.
type Device struct {
	opener    hid.Opener
	sel       hid.Selector
	timeout   time.Duration
	logger    zerolog.Logger
	transport hid.Transport
}

// Option configures a Device.
type Option func(*Device)

// WithTimeout sets the reply timeout. Default 500ms.
func WithTimeout(d time.Duration) Option {
	return func(dev *Device) { dev.timeout = d }
}

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(l zerolog.Logger) Option {
	return func(dev *Device) { dev.logger = l }
}

// NewDevice prepares a v1 device handle; call Open before issuing commands.
func NewDevice(opener hid.Opener, sel hid.Selector, opts ...Option) *Device {
	dev := &Device{
		opener:  opener,
		sel:     sel,
		timeout: 500 * time.Millisecond,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(dev)
	}
	return dev
}

// Open acquires the transport.
func (d *Device) Open() error {
	if d.transport != nil {
		return fmt.Errorf("device already open")
	}
	t, err := d.opener.Open(d.sel)
	if err != nil {
		return err
	}
	d.transport = t
	d.logger.Debug().Str("variant", "ascii").Msg("device opened")
	return nil
}

// Close releases the transport.
func (d *Device) Close() error {
	if d.transport == nil {
		return nil
	}
	err := d.transport.Close()
	d.transport = nil
	return err
}

// LaserOn enables emission and returns the firmware's reply text.
func (d *Device) LaserOn() (string, error) {
	return d.exchange(cmdLaserOn)
}

// LaserOff disables emission and returns the firmware's reply text.
func (d *Device) LaserOff() (string, error) {
	return d.exchange(cmdLaserOff)
}

// SetPower requests a power setpoint in milliwatts. The v1 firmware
// validates the value itself; the reply text carries any refusal.
func (d *Device) SetPower(milliwatts float64) (string, error) {
	return d.exchange(fmt.Sprintf("LPOWER %.3f\r", milliwatts))
}

// Status queries the device and returns the raw status line.
func (d *Device) Status() (string, error) {
	return d.exchange(cmdStatus)
}

func (d *Device) exchange(cmd string) (string, error) {
	if d.transport == nil {
		return "", fmt.Errorf("device not open")
	}

	report, err := EncodeCommand(cmd)
	if err != nil {
		return "", err
	}
	if err := d.transport.Write(report); err != nil {
		return "", fmt.Errorf("write %q: %w", strings.TrimRight(cmd, "\r"), err)
	}

	reply, err := d.transport.Read(d.timeout)
	if err != nil {
		return "", fmt.Errorf("read reply to %q: %w", strings.TrimRight(cmd, "\r"), err)
	}

	text := DecodeReply(reply)
	d.logger.Debug().Str("cmd", strings.TrimRight(cmd, "\r")).Str("reply", text).Msg("exchange")
	return text, nil
}
