package laser

import "github.com/rs/zerolog"

// audit starts an audit event for a successful mutating command. Commands
// that change physical device state (emission on/off, power setpoint) are
// always recorded: their side effects cannot be undone, so the trail is the
// only record of what was asked of the hardware.
//
// Events carry the session UUID and device selector so trails from
// concurrent sessions stay attributable.
func (s *Session) audit(op string) *zerolog.Event {
	event := s.logger.Info().
		Str("audit", op).
		Str("device_path", s.sel.Path)

	if s.sel.Path == "" {
		event = event.
			Uint16("vendor_id", s.sel.VendorID).
			Uint16("product_id", s.sel.ProductID)
	}
	return event
}
