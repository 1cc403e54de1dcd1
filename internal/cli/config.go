package cli

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds stradusctl settings. All fields are optional; flags override
// the file.
type Config struct {
	// Path is the HID device path, preferred over VID/PID when set.
	Path string `yaml:"path"`

	// VendorID and ProductID select the device when Path is empty.
	// Hex strings like "0x0C80" are accepted.
	VendorID  string `yaml:"vendor_id"`
	ProductID string `yaml:"product_id"`

	// TimeoutMillis is the per-attempt response timeout.
	TimeoutMillis int `yaml:"timeout_ms"`

	// Retries is the number of re-sends after a timed-out attempt.
	Retries *int `yaml:"retries"`

	// ASCII selects the legacy v1 text protocol.
	ASCII bool `yaml:"ascii"`

	// AuditLog is the rotating audit log file path. Empty disables it.
	AuditLog string `yaml:"audit_log"`
}

// DefaultPath returns ~/.stradus/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".stradus", "config.yaml")
	}
	return filepath.Join(home, ".stradus", "config.yaml")
}

// Load reads a YAML config file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{
		TimeoutMillis: 500,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
