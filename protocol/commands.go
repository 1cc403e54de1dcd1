package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// CommandMeta describes one catalog entry: the wire code, a human-readable
// operation name, and the payload sizes both sides must honor. A response
// size of -1 means variable length (validated by the operation's parser
// instead of the table).
type CommandMeta struct {
	Code         byte
	Name         string
	RequestSize  int
	ResponseSize int
}

// Catalog is the closed set of supported operations, keyed by command code.
// It is the single source of truth for command semantics; framing never
// consults it and it never performs I/O.
var Catalog = map[byte]CommandMeta{
	CmdLaserOn:    {Code: CmdLaserOn, Name: "laser on", RequestSize: 0, ResponseSize: AckResponseSize},
	CmdLaserOff:   {Code: CmdLaserOff, Name: "laser off", RequestSize: 0, ResponseSize: AckResponseSize},
	CmdSetPower:   {Code: CmdSetPower, Name: "set power", RequestSize: 4, ResponseSize: AckResponseSize},
	CmdGetStatus:  {Code: CmdGetStatus, Name: "get status", RequestSize: 0, ResponseSize: StatusResponseSize},
	CmdGetInfo:    {Code: CmdGetInfo, Name: "get info", RequestSize: 0, ResponseSize: InfoResponseSize},
	CmdGetVersion: {Code: CmdGetVersion, Name: "get version", RequestSize: 0, ResponseSize: -1},
}

// CommandName returns the catalog name for a command code, or a hex
// placeholder for codes outside the catalog.
func CommandName(code byte) string {
	if meta, ok := Catalog[code]; ok {
		return meta.Name
	}
	return fmt.Sprintf("command 0x%02X", code)
}

// BuildLaserOnCmd constructs a Laser On request frame.
//
// Frame structure:
//
//	[CMD][LEN=0][PAD...]
//
// The device treats enabling emission while already emitting as success.
func BuildLaserOnCmd() Frame {
	return Frame{Cmd: CmdLaserOn}
}

// BuildLaserOffCmd constructs a Laser Off request frame.
//
// Frame structure:
//
//	[CMD][LEN=0][PAD...]
func BuildLaserOffCmd() Frame {
	return Frame{Cmd: CmdLaserOff}
}

// BuildSetPowerCmd constructs a Set Power request frame.
// The setpoint is validated against the device-advertised limits before any
// bytes are produced; out-of-range, negative, or non-finite values return
// an InvalidPowerError.
//
// Frame structure:
//
//	[CMD][LEN=4][POWER_F32_LE][PAD...]
func BuildSetPowerCmd(milliwatts float64, info DeviceInfo) (Frame, error) {
	if err := ValidatePower(milliwatts, info); err != nil {
		return Frame{}, err
	}

	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, math.Float32bits(float32(milliwatts)))

	return Frame{Cmd: CmdSetPower, Payload: payload}, nil
}

// BuildGetStatusCmd constructs a Get Status request frame.
//
// Frame structure:
//
//	[CMD][LEN=0][PAD...]
func BuildGetStatusCmd() Frame {
	return Frame{Cmd: CmdGetStatus}
}

// BuildGetInfoCmd constructs a Get Info request frame.
//
// Frame structure:
//
//	[CMD][LEN=0][PAD...]
func BuildGetInfoCmd() Frame {
	return Frame{Cmd: CmdGetInfo}
}

// BuildGetVersionCmd constructs a Get Version request frame.
//
// Frame structure:
//
//	[CMD][LEN=0][PAD...]
func BuildGetVersionCmd() Frame {
	return Frame{Cmd: CmdGetVersion}
}

// ValidatePower checks a power setpoint against the device-advertised
// envelope. Returns an InvalidPowerError describing the violation, or nil.
func ValidatePower(milliwatts float64, info DeviceInfo) error {
	switch {
	case math.IsNaN(milliwatts) || math.IsInf(milliwatts, 0):
		return &InvalidPowerError{Requested: milliwatts, Reason: "not a finite number"}
	case milliwatts < 0:
		return &InvalidPowerError{Requested: milliwatts, Reason: "negative"}
	case milliwatts < info.MinPowerMilliwatts || milliwatts > info.MaxPowerMilliwatts:
		return &InvalidPowerError{
			Requested: milliwatts,
			Min:       info.MinPowerMilliwatts,
			Max:       info.MaxPowerMilliwatts,
			Reason:    "outside device limits",
		}
	}
	return nil
}

// InvalidPowerError reports a power setpoint rejected before any I/O.
type InvalidPowerError struct {
	// Requested is the rejected setpoint in milliwatts
	Requested float64

	// Min and Max are the device limits, when the violation is a range one
	Min, Max float64

	// Reason describes the violation
	Reason string
}

func (e *InvalidPowerError) Error() string {
	if e.Reason == "outside device limits" {
		return fmt.Sprintf("invalid power %.3f mW: outside device limits %.3f-%.3f mW",
			e.Requested, e.Min, e.Max)
	}
	return fmt.Sprintf("invalid power %v mW: %s", e.Requested, e.Reason)
}
