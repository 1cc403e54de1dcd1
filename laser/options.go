package laser

import (
	"time"

	"github.com/rs/zerolog"
)

// Config holds the session configuration.
type Config struct {
	// Timeout is the per-attempt wait for a response report
	Timeout time.Duration

	// Retries is the number of re-sends after a timed-out attempt.
	// A transaction writes at most Retries+1 request reports.
	Retries int

	// Logger receives debug logging and the audit trail of mutating
	// commands. Defaults to a no-op logger.
	Logger zerolog.Logger
}

// defaultConfig returns the default configuration. The 500ms response
// window matches the device's documented worst-case command latency.
func defaultConfig() Config {
	return Config{
		Timeout: 500 * time.Millisecond,
		Retries: 2,
		Logger:  zerolog.Nop(),
	}
}

// Option is a functional option for configuring a Session.
type Option func(*Config)

// WithTimeout sets the per-attempt response timeout.
//
// Example:
//
//	sess := laser.NewSession(opener, sel, laser.WithTimeout(time.Second))
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.Timeout = timeout
		}
	}
}

// WithRetries sets the number of re-send attempts after a timeout.
//
// Example:
//
//	sess := laser.NewSession(opener, sel, laser.WithRetries(5))
func WithRetries(retries int) Option {
	return func(c *Config) {
		if retries >= 0 {
			c.Retries = retries
		}
	}
}

// WithLogger sets the logger used for debug output and audit events.
//
// Example:
//
//	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
//	sess := laser.NewSession(opener, sel, laser.WithLogger(logger))
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
