// Package hidapi implements the hid transport interfaces on top of the
// hidapi library via github.com/sstallion/go-hid.
//
// Call Init before opening devices and Exit at process teardown:
//
//	if err := hidapi.Init(); err != nil { ... }
//	defer hidapi.Exit()
package hidapi

import (
	"errors"
	"fmt"
	"time"

	sshid "github.com/sstallion/go-hid"

	"github.com/optoforge/go-stradus/hid"
)

// reportID is the HID report ID used by devices exposing a single report.
const reportID = 0x00

// Init initializes the underlying hidapi library.
func Init() error {
	return sshid.Init()
}

// Exit finalizes the underlying hidapi library.
func Exit() error {
	return sshid.Exit()
}

// Opener opens devices through hidapi.
type Opener struct {
	// ReportSize is the fixed report size the device uses, excluding the
	// report ID byte. Reads are sized to ReportSize+1 to leave room for
	// platforms that return the report ID.
	ReportSize int
}

var _ hid.Opener = (*Opener)(nil)

// NewOpener returns an Opener for devices with the given report size.
func NewOpener(reportSize int) *Opener {
	return &Opener{ReportSize: reportSize}
}

// Enumerate returns a snapshot of attached HID devices matching the vendor
// and product IDs (zero matches any).
func (o *Opener) Enumerate(vendorID, productID uint16) ([]hid.DeviceInfo, error) {
	var devices []hid.DeviceInfo
	err := sshid.Enumerate(vendorID, productID, func(info *sshid.DeviceInfo) error {
		devices = append(devices, hid.DeviceInfo{
			Path:         info.Path,
			VendorID:     info.VendorID,
			ProductID:    info.ProductID,
			Manufacturer: info.MfrStr,
			Product:      info.ProductStr,
			SerialNumber: info.SerialNbr,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate: %w", err)
	}
	return devices, nil
}

// Open acquires the device named by the selector.
func (o *Opener) Open(sel hid.Selector) (hid.Transport, error) {
	var (
		dev *sshid.Device
		err error
	)

	switch {
	case sel.Path != "":
		dev, err = sshid.OpenPath(sel.Path)
	case sel.VendorID != 0 && sel.ProductID != 0:
		dev, err = sshid.OpenFirst(sel.VendorID, sel.ProductID)
	default:
		return nil, fmt.Errorf("%w: selector needs a path or vendor and product IDs", hid.ErrDeviceNotFound)
	}

	if err != nil {
		// hidapi does not distinguish missing from unopenable; check
		// whether anything matches to report the right failure kind.
		if sel.Path == "" {
			if devs, eerr := o.Enumerate(sel.VendorID, sel.ProductID); eerr == nil && len(devs) > 0 {
				return nil, fmt.Errorf("%w: %v", hid.ErrAccessDenied, err)
			}
		}
		return nil, fmt.Errorf("%w: %v", hid.ErrDeviceNotFound, err)
	}

	return &transport{dev: dev, reportSize: o.ReportSize}, nil
}

// transport is one open hidapi handle.
type transport struct {
	dev        *sshid.Device
	reportSize int
	buf        []byte
	closed     bool
}

var _ hid.Transport = (*transport)(nil)

// Write sends one report, prepending the report ID byte hidapi expects.
func (t *transport) Write(report []byte) error {
	if t.closed {
		return hid.ErrClosed
	}

	out := make([]byte, 1+len(report))
	out[0] = reportID
	copy(out[1:], report)

	n, err := t.dev.Write(out)
	if err != nil {
		return fmt.Errorf("hid write: %w", err)
	}
	if n <= 0 {
		return errors.New("hid write: no bytes written")
	}
	return nil
}

// Read blocks until one report arrives or the timeout elapses. A leading
// report ID byte, if the platform returns one, is stripped.
func (t *transport) Read(timeout time.Duration) ([]byte, error) {
	if t.closed {
		return nil, hid.ErrClosed
	}

	if t.buf == nil {
		t.buf = make([]byte, t.reportSize+1)
	}

	n, err := t.dev.ReadWithTimeout(t.buf, timeout)
	if err != nil {
		return nil, fmt.Errorf("hid read: %w", err)
	}
	if n == 0 {
		// hidapi signals timeout as a zero-length read
		return nil, hid.ErrReadTimeout
	}

	data := t.buf[:n]
	if n == t.reportSize+1 && data[0] == reportID {
		data = data[1:]
	}
	return data, nil
}

// Close releases the handle.
func (t *transport) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.dev.Close()
}
