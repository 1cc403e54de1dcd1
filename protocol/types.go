package protocol

import (
	"fmt"
	"strings"
)

// Status is the decoded GetStatus response.
type Status struct {
	// Emission is true while the laser is emitting
	Emission bool

	// Faults holds the active fault bits
	Faults FaultBits

	// PowerMilliwatts is the current power setpoint. The device retains
	// the setpoint across emission off/on.
	PowerMilliwatts float64
}

// FaultBits is the device fault bitfield from a GetStatus response.
type FaultBits byte

// Interlock reports whether the safety interlock circuit is open.
func (f FaultBits) Interlock() bool { return f&FaultInterlock != 0 }

// OverTemp reports whether the diode temperature protection tripped.
func (f FaultBits) OverTemp() bool { return f&FaultOverTemp != 0 }

// Diode reports whether the diode driver faulted.
func (f FaultBits) Diode() bool { return f&FaultDiode != 0 }

// String lists the active faults, or "none".
func (f FaultBits) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	if f.Interlock() {
		names = append(names, "interlock")
	}
	if f.OverTemp() {
		names = append(names, "over-temp")
	}
	if f.Diode() {
		names = append(names, "diode")
	}
	if unknown := f &^ (FaultInterlock | FaultOverTemp | FaultDiode); unknown != 0 {
		names = append(names, fmt.Sprintf("unknown(0x%02X)", byte(unknown)))
	}
	return strings.Join(names, ",")
}

// DeviceInfo is the decoded GetInfo response: the device-advertised power
// envelope and nominal wavelength.
type DeviceInfo struct {
	// MinPowerMilliwatts is the lowest accepted power setpoint
	MinPowerMilliwatts float64

	// MaxPowerMilliwatts is the highest accepted power setpoint
	MaxPowerMilliwatts float64

	// WavelengthNanometers is the nominal emission wavelength
	WavelengthNanometers float64
}

// String formats the device info for diagnostics.
func (i DeviceInfo) String() string {
	return fmt.Sprintf("%.0fnm, %.1f-%.1fmW", i.WavelengthNanometers, i.MinPowerMilliwatts, i.MaxPowerMilliwatts)
}
