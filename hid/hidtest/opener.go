package hidtest

import (
	"fmt"
	"sync"

	"github.com/optoforge/go-stradus/hid"
)

// Opener hands out pre-registered transports by path, so session-level
// tests and the CLI's emulated mode can exercise the full open path.
type Opener struct {
	mu      sync.Mutex
	devices map[string]entry
}

type entry struct {
	info      hid.DeviceInfo
	transport hid.Transport
	openErr   error
}

var _ hid.Opener = (*Opener)(nil)

// NewOpener returns an empty registry.
func NewOpener() *Opener {
	return &Opener{devices: make(map[string]entry)}
}

// Add registers a transport under the given identity.
func (o *Opener) Add(info hid.DeviceInfo, t hid.Transport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.devices[info.Path] = entry{info: info, transport: t}
}

// AddFailing registers a device that enumerates but fails to open with err.
func (o *Opener) AddFailing(info hid.DeviceInfo, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.devices[info.Path] = entry{info: info, openErr: err}
}

// Enumerate lists registered devices matching the vendor and product IDs
// (zero matches any).
func (o *Opener) Enumerate(vendorID, productID uint16) ([]hid.DeviceInfo, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []hid.DeviceInfo
	for _, e := range o.devices {
		if vendorID != 0 && e.info.VendorID != vendorID {
			continue
		}
		if productID != 0 && e.info.ProductID != productID {
			continue
		}
		out = append(out, e.info)
	}
	return out, nil
}

// Open returns the registered transport matching the selector.
func (o *Opener) Open(sel hid.Selector) (hid.Transport, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if sel.Path != "" {
		e, ok := o.devices[sel.Path]
		if !ok {
			return nil, fmt.Errorf("%w: path %q", hid.ErrDeviceNotFound, sel.Path)
		}
		return e.open()
	}

	for _, e := range o.devices {
		if e.info.VendorID == sel.VendorID && e.info.ProductID == sel.ProductID {
			return e.open()
		}
	}
	return nil, fmt.Errorf("%w: %04x:%04x", hid.ErrDeviceNotFound, sel.VendorID, sel.ProductID)
}

// reopener is implemented by transports that can be handed out again after
// a Close, the way a real HID path can be re-acquired.
type reopener interface {
	reopen()
}

func (e entry) open() (hid.Transport, error) {
	if e.openErr != nil {
		return nil, e.openErr
	}
	if r, ok := e.transport.(reopener); ok {
		r.reopen()
	}
	return e.transport, nil
}
