package protocol

import (
	"encoding/binary"
	"math"
	"strings"
)

// ParseAck parses a plain acknowledgement payload (LaserOn, LaserOff,
// SetPower). A non-zero status byte becomes a DeviceError for the named
// operation.
//
// Payload format (AckResponseSize bytes):
//
//	[STATUS]
func ParseAck(operation string, payload []byte) error {
	if len(payload) != AckResponseSize {
		return &ResponseShapeError{Operation: operation, Got: len(payload), Want: AckResponseSize}
	}

	if payload[0] != StatusOK {
		return &DeviceError{Operation: operation, StatusCode: payload[0]}
	}

	return nil
}

// ParseStatusResponse parses the Get Status response payload.
//
// Payload format (StatusResponseSize bytes):
//
//	[FLAGS][FAULT][POWER_F32_LE]
func ParseStatusResponse(payload []byte) (Status, error) {
	if len(payload) != StatusResponseSize {
		return Status{}, &ResponseShapeError{Operation: "get status", Got: len(payload), Want: StatusResponseSize}
	}

	power := math.Float32frombits(binary.LittleEndian.Uint32(payload[2:6]))

	return Status{
		Emission:        payload[0]&FlagEmission != 0,
		Faults:          FaultBits(payload[1]),
		PowerMilliwatts: float64(power),
	}, nil
}

// ParseInfoResponse parses the Get Info response payload.
//
// Payload format (InfoResponseSize bytes):
//
//	[MIN_F32_LE][MAX_F32_LE][WAVELENGTH_F32_LE]
func ParseInfoResponse(payload []byte) (DeviceInfo, error) {
	if len(payload) != InfoResponseSize {
		return DeviceInfo{}, &ResponseShapeError{Operation: "get info", Got: len(payload), Want: InfoResponseSize}
	}

	return DeviceInfo{
		MinPowerMilliwatts:   float64(math.Float32frombits(binary.LittleEndian.Uint32(payload[0:4]))),
		MaxPowerMilliwatts:   float64(math.Float32frombits(binary.LittleEndian.Uint32(payload[4:8]))),
		WavelengthNanometers: float64(math.Float32frombits(binary.LittleEndian.Uint32(payload[8:12]))),
	}, nil
}

// ParseVersionResponse parses the Get Version response payload: an ASCII
// firmware version, trailing NUL/CR/LF stripped. An empty payload is a
// shape violation.
func ParseVersionResponse(payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", &ResponseShapeError{Operation: "get version", Got: 0, Want: 1}
	}

	return strings.TrimRight(string(payload), "\x00\r\n"), nil
}
