package protocol

import "fmt"

// Frame is one complete protocol message: a command code plus its payload.
// The zero value is not a valid frame; use EncodeFrame/DecodeFrame.
type Frame struct {
	// Cmd is the command code on requests, the echoed command code on
	// responses
	Cmd byte

	// Payload is the operation-specific data
	Payload []byte
}

// MarshalFrame serializes a frame without transport padding:
//
//	[CMD][LEN][PAYLOAD...]
//
// Returns ErrPayloadTooLarge if the payload length does not fit in the
// one-byte LEN field.
func MarshalFrame(cmd byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxDeclarableLength {
		return nil, &PayloadTooLargeError{Size: len(payload), Max: MaxDeclarableLength}
	}

	buf := make([]byte, HeaderSize+len(payload))
	buf[0] = cmd
	buf[1] = byte(len(payload))
	copy(buf[HeaderSize:], payload)

	return buf, nil
}

// EncodeFrame serializes a frame into one fixed-size report:
//
//	[CMD][LEN][PAYLOAD...][ZERO PADDING]
//
// The result is always exactly ReportSize bytes, as the HID transport
// requires fixed-size reports. Returns ErrPayloadTooLarge if the payload
// does not fit in one report.
func EncodeFrame(cmd byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, &PayloadTooLargeError{Size: len(payload), Max: MaxPayloadSize}
	}

	report := make([]byte, ReportSize)
	report[0] = cmd
	report[1] = byte(len(payload))
	copy(report[HeaderSize:], payload)

	return report, nil
}

// DecodeFrame parses a received report into a frame.
//
// The first byte is the command echo, the second the declared payload
// length. Padding beyond the declared length is ignored. Returns
// ErrFrameTooShort if the report cannot hold its own header or declared
// payload.
func DecodeFrame(report []byte) (Frame, error) {
	if len(report) < HeaderSize {
		return Frame{}, &FrameTooShortError{Size: len(report), Need: HeaderSize}
	}

	length := int(report[1])
	if HeaderSize+length > len(report) {
		return Frame{}, &FrameTooShortError{Size: len(report), Need: HeaderSize + length}
	}

	return Frame{
		Cmd:     report[0],
		Payload: report[HeaderSize : HeaderSize+length],
	}, nil
}

// Encode serializes the frame into one fixed-size report. See EncodeFrame.
func (f Frame) Encode() ([]byte, error) {
	return EncodeFrame(f.Cmd, f.Payload)
}

// String formats the frame for diagnostics.
func (f Frame) String() string {
	return fmt.Sprintf("frame{cmd=0x%02X len=%d}", f.Cmd, len(f.Payload))
}
