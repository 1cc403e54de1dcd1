package protocol

// ProtocolVersion is the Stradus CMD protocol revision implemented by this library.
const ProtocolVersion = "2"

// Frame layout constants.
const (
	// ReportSize is the fixed HID report size in bytes, excluding the
	// report ID byte handled by the transport layer.
	ReportSize = 64

	// HeaderSize is the frame header size: CMD(1) + LEN(1)
	HeaderSize = 2

	// MaxPayloadSize is the largest payload that fits in one report
	MaxPayloadSize = ReportSize - HeaderSize

	// MaxDeclarableLength is the largest length expressible in the
	// one-byte LEN field
	MaxDeclarableLength = 255
)

// Command codes. Each code identifies exactly one operation and is echoed
// back as the first byte of the matching response report.
const (
	// CmdLaserOn enables laser emission
	CmdLaserOn = 0xA1

	// CmdLaserOff disables laser emission
	CmdLaserOff = 0xA2

	// CmdSetPower sets the emission power setpoint in milliwatts
	CmdSetPower = 0xA3

	// CmdGetStatus queries emission state, fault bits and current power
	CmdGetStatus = 0xA4

	// CmdGetInfo queries the device power limits and nominal wavelength
	CmdGetInfo = 0xA5

	// CmdGetVersion queries the firmware version string
	CmdGetVersion = 0xA6
)

// Device status codes carried in acknowledgement payloads.
const (
	// StatusOK indicates the command was accepted and executed
	StatusOK = 0x00

	// StatusErrUnknownCommand indicates the device did not recognize the command code
	StatusErrUnknownCommand = 0x01

	// StatusErrBadLength indicates the payload length did not match the command
	StatusErrBadLength = 0x02

	// StatusErrPowerRange indicates the requested power is outside device limits
	StatusErrPowerRange = 0x03

	// StatusErrInterlock indicates the safety interlock circuit is open
	StatusErrInterlock = 0x04

	// StatusErrOverTemp indicates the diode temperature protection tripped
	StatusErrOverTemp = 0x05
)

// Status flag bits (first byte of a GetStatus response).
const (
	// FlagEmission is set while the laser is emitting
	FlagEmission = 0x01
)

// Fault bits (second byte of a GetStatus response).
const (
	// FaultInterlock indicates the safety interlock is open
	FaultInterlock = 0x01

	// FaultOverTemp indicates diode over-temperature
	FaultOverTemp = 0x02

	// FaultDiode indicates a diode driver fault
	FaultDiode = 0x04
)

// Response payload sizes per command.
const (
	// AckResponseSize is the payload size of a plain acknowledgement (1 byte)
	AckResponseSize = 1

	// StatusResponseSize is the payload size of a GetStatus response:
	// FLAGS(1) + FAULT(1) + POWER_F32(4)
	StatusResponseSize = 6

	// InfoResponseSize is the payload size of a GetInfo response:
	// MIN_F32(4) + MAX_F32(4) + WAVELENGTH_F32(4)
	InfoResponseSize = 12
)
