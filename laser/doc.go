// Package laser provides the device session for controlling a Stradus
// laser over the CMD protocol.
//
// # Overview
//
// A Session binds one HID transport handle and exposes the laser operation
// set:
//   - LaserOn / LaserOff: emission control
//   - SetPower: range-validated power setpoint in milliwatts
//   - Status: emission flag, fault bits, current power
//
// Each operation is one synchronous request/response transaction with a
// bounded timeout and retry budget. The session tracks lifecycle state
// (Closed, Open, Faulted) and rejects operations outside Open.
//
// # Basic Usage
//
//	opener := hidapi.NewOpener(protocol.ReportSize)
//	sess := laser.NewSession(opener, hid.Selector{VendorID: 0x0C80, ProductID: 0x0001})
//
//	if err := sess.Open(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close()
//
//	if err := sess.LaserOn(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	if err := sess.SetPower(ctx, 10.0); err != nil {
//	    log.Fatal(err)
//	}
//
// # Configuration Options
//
// Customize behavior with functional options:
//
//	sess := laser.NewSession(opener, sel,
//	    laser.WithTimeout(time.Second),
//	    laser.WithRetries(5),
//	    laser.WithLogger(logger),
//	)
//
// # Failure Taxonomy
//
// Operations return typed failures so callers can decide whether a retry
// is safe:
//   - ErrSessionNotOpen, ErrSessionBusy: caller errors, no I/O performed
//   - *protocol.InvalidPowerError: rejected before any bytes are sent
//   - ErrTimeout, ErrTransportWrite, ErrTransportRead: transient; safe to
//     retry after Reopen
//   - ErrProtocol: the device and host disagree about protocol state; the
//     session faults and must be reopened
//   - *protocol.DeviceError: the device refused the command (interlock
//     open, power out of range); the session stays Open
//
// # Faulted Sessions
//
// After a timeout that exhausts its retries, a transport failure, or any
// protocol violation, the session transitions to Faulted: the device's
// state is unknown and further commands are refused until Reopen
// re-acquires the handle and re-runs the opening handshake.
//
// # Concurrency
//
// One transaction at a time per session: a second call while one is in
// flight fails fast with ErrSessionBusy. Waits are cancellable through the
// caller's context, and Close cancels any in-flight wait.
//
// # Audit Trail
//
// Every successful mutating operation emits a structured audit event
// (operation, arguments, session UUID, device identity) through the
// configured zerolog logger. Laser emission has physical, non-undoable
// side effects; the audit trail records what was commanded and when.
//
// # Hardware Independence
//
// The session depends only on the interfaces in the hid package. Use
// hid/hidapi for real hardware and hid/hidtest for an in-memory emulated
// device.
package laser
