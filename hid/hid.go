// Package hid defines the transport capability the laser session consumes:
// enumerate HID devices, open one, exchange fixed-size reports, close.
//
// The protocol core depends only on these interfaces, so it can run against
// the real hidapi-backed implementation in hid/hidapi or the in-memory
// emulator in hid/hidtest.
package hid

import (
	"errors"
	"fmt"
	"time"
)

// Transport errors.
var (
	// ErrDeviceNotFound indicates no device matched the requested path or
	// vendor/product IDs
	ErrDeviceNotFound = errors.New("device not found")

	// ErrAccessDenied indicates the device exists but could not be opened
	ErrAccessDenied = errors.New("access denied")

	// ErrReadTimeout indicates no report arrived within the read deadline
	ErrReadTimeout = errors.New("read timeout")

	// ErrClosed indicates I/O on a closed transport handle
	ErrClosed = errors.New("transport closed")
)

// DeviceInfo identifies one enumerated HID device.
type DeviceInfo struct {
	// Path is the platform-specific device path
	Path string

	// VendorID and ProductID identify the device model
	VendorID  uint16
	ProductID uint16

	// Manufacturer and Product are the descriptor strings, when available
	Manufacturer string
	Product      string

	// SerialNumber is the device serial descriptor string, when available
	SerialNumber string
}

// String formats the device identity the way enumeration tools print it.
func (d DeviceInfo) String() string {
	return fmt.Sprintf("0x%04x 0x%04x %s | %s", d.VendorID, d.ProductID, d.Manufacturer, d.Product)
}

// Transport is one open, exclusively-owned HID handle. Implementations
// exchange fixed-size reports and are not safe for concurrent use; the
// owning session serializes access.
type Transport interface {
	// Write sends one report. The report must not include the report ID
	// byte; implementations add it when the platform requires one.
	Write(report []byte) error

	// Read blocks until one report arrives or the timeout elapses,
	// returning ErrReadTimeout in the latter case. The returned slice is
	// valid until the next Read.
	Read(timeout time.Duration) ([]byte, error)

	// Close releases the handle. Subsequent I/O returns ErrClosed.
	Close() error
}

// Selector names the device to open: by explicit path, or by vendor and
// product ID when Path is empty.
type Selector struct {
	Path      string
	VendorID  uint16
	ProductID uint16
}

// Opener enumerates candidate devices and opens transport handles.
type Opener interface {
	// Enumerate returns a snapshot of candidate devices. A zero vendor or
	// product ID matches any.
	Enumerate(vendorID, productID uint16) ([]DeviceInfo, error)

	// Open acquires the device named by the selector. Fails with
	// ErrDeviceNotFound or ErrAccessDenied.
	Open(sel Selector) (Transport, error)
}
