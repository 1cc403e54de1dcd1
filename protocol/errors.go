package protocol

import (
	"errors"
	"fmt"
)

// Sentinel targets for errors.Is matching on codec failures.
var (
	// ErrPayloadTooLarge indicates a payload that does not fit the frame
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrFrameTooShort indicates a report shorter than its own header or
	// declared payload
	ErrFrameTooShort = errors.New("frame too short")

	// ErrUnexpectedResponse indicates a response payload whose shape does
	// not match what the operation declares
	ErrUnexpectedResponse = errors.New("unexpected response shape")
)

// PayloadTooLargeError reports an encode attempt with an oversized payload.
type PayloadTooLargeError struct {
	// Size is the offending payload size in bytes
	Size int

	// Max is the largest payload the frame can carry
	Max int
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("payload too large: %d bytes, maximum is %d", e.Size, e.Max)
}

// Is reports whether target is ErrPayloadTooLarge.
func (e *PayloadTooLargeError) Is(target error) bool {
	return target == ErrPayloadTooLarge
}

// FrameTooShortError reports a report too short to decode.
type FrameTooShortError struct {
	// Size is the received report size in bytes
	Size int

	// Need is the minimum size required by the header and declared length
	Need int
}

func (e *FrameTooShortError) Error() string {
	return fmt.Sprintf("frame too short: got %d bytes, need %d", e.Size, e.Need)
}

// Is reports whether target is ErrFrameTooShort.
func (e *FrameTooShortError) Is(target error) bool {
	return target == ErrFrameTooShort
}

// ResponseShapeError reports a decoded response whose payload length does
// not match the operation's declared shape.
type ResponseShapeError struct {
	// Operation is the command that produced the response
	Operation string

	// Got is the decoded payload length
	Got int

	// Want is the length the operation declares
	Want int
}

func (e *ResponseShapeError) Error() string {
	return fmt.Sprintf("%s response: got %d payload bytes, expected %d", e.Operation, e.Got, e.Want)
}

// Is reports whether target is ErrUnexpectedResponse.
func (e *ResponseShapeError) Is(target error) bool {
	return target == ErrUnexpectedResponse
}

// DeviceError represents a non-zero status byte in a device
// acknowledgement. The exchange itself completed; the device refused or
// failed the command.
type DeviceError struct {
	// Operation is the command that failed
	Operation string

	// StatusCode is the status byte from the acknowledgement
	StatusCode byte
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s failed: %s (0x%02X)", e.Operation, statusName(e.StatusCode), e.StatusCode)
}

// IsDeviceError returns true if the error is a DeviceError.
func IsDeviceError(err error) bool {
	var de *DeviceError
	return errors.As(err, &de)
}

// statusName returns a human-readable name for a device status code.
func statusName(code byte) string {
	switch code {
	case StatusOK:
		return "ok"
	case StatusErrUnknownCommand:
		return "unknown command"
	case StatusErrBadLength:
		return "bad payload length"
	case StatusErrPowerRange:
		return "power out of range"
	case StatusErrInterlock:
		return "interlock open"
	case StatusErrOverTemp:
		return "over temperature"
	default:
		return fmt.Sprintf("unknown status code 0x%02X", code)
	}
}
