// Package protocol implements the Stradus laser CMD wire protocol.
//
// This package provides functions to build request frames and parse
// response frames for the binary command/length framed variant of the
// Stradus control protocol. It performs no I/O; transport handling lives in
// the laser and hid packages.
//
// # Protocol Overview
//
// Every exchange is one fixed-size HID report in each direction:
//
//	Request:  [CMD][LEN][PAYLOAD...][ZERO PADDING]
//	Response: [CMD][LEN][PAYLOAD...][ZERO PADDING]
//
// Where:
//   - CMD = command code, echoed back in the response
//   - LEN = 8-bit payload length
//   - Reports are ReportSize (64) bytes; unused bytes are zero
//
// Multi-byte numeric payload fields are little-endian. Power setpoints
// travel as IEEE-754 float32 milliwatts.
//
// # Command Builders
//
// Use the Build* functions to create request frames:
//
//	frame := protocol.BuildLaserOnCmd()
//	frame, err := protocol.BuildSetPowerCmd(5.0, info)
//
// BuildSetPowerCmd validates the setpoint against the device-advertised
// limits before producing any bytes.
//
// # Response Parsers
//
// Decode a received report and hand the payload to the operation's parser:
//
//	resp, err := protocol.DecodeFrame(report)
//	status, err := protocol.ParseStatusResponse(resp.Payload)
//
// Acknowledged commands (on/off/set power) carry a single status byte; a
// non-zero status is surfaced as a *DeviceError.
//
// # Reference
//
// Frame layout follows the Vortran Stradus CMD HID framing: one report per
// exchange, no checksum beyond the declared length.
package protocol
