// Package cli implements the stradusctl command tree.
package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/optoforge/go-stradus/hid"
	"github.com/optoforge/go-stradus/hid/hidapi"
	"github.com/optoforge/go-stradus/hid/hidtest"
	"github.com/optoforge/go-stradus/protocol"
)

var (
	cfgFile   string
	flagPath  string
	flagVID   string
	flagPID   string
	flagASCII bool
	emulate   bool
	verbose   bool

	// Shared state set during PersistentPreRunE.
	cfg      *Config
	opener   hid.Opener
	selector hid.Selector
	logger   zerolog.Logger
	teardown func()
)

var rootCmd = &cobra.Command{
	Use:   "stradusctl",
	Short: "Control a Stradus laser over HID",
	Long: `stradusctl drives a Stradus diode laser through its HID interface:
emission on/off, power setpoint, status and firmware queries. The device is
selected by HID path or by vendor:product ID, from flags or a YAML config
file. Successful emission-affecting commands are appended to a rotating
audit log when one is configured.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = DefaultPath()
		}
		var err error
		cfg, err = Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// Flags override the file.
		if flagPath != "" {
			cfg.Path = flagPath
		}
		if flagVID != "" {
			cfg.VendorID = flagVID
		}
		if flagPID != "" {
			cfg.ProductID = flagPID
		}
		if flagASCII {
			cfg.ASCII = true
		}

		if err := buildSelector(); err != nil {
			return err
		}
		buildLogger()
		return buildOpener()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if teardown != nil {
			teardown()
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func buildSelector() error {
	selector = hid.Selector{Path: cfg.Path}
	if selector.Path != "" {
		return nil
	}

	var err error
	selector.VendorID, err = parseID(cfg.VendorID)
	if err != nil {
		return fmt.Errorf("vendor ID: %w", err)
	}
	selector.ProductID, err = parseID(cfg.ProductID)
	if err != nil {
		return fmt.Errorf("product ID: %w", err)
	}
	return nil
}

// parseID accepts "0x0C80", "0C80" as hex, or plain decimal.
func parseID(s string) (uint16, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		v, err = strconv.ParseUint(s, 16, 16)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid ID %q", s)
	}
	return uint16(v), nil
}

func buildLogger() {
	var writers []io.Writer
	if verbose {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
	if cfg.AuditLog != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.AuditLog,
			MaxSize:    10, // MB
			MaxBackups: 5,
			Compress:   true,
		})
	}

	switch len(writers) {
	case 0:
		logger = zerolog.Nop()
	case 1:
		logger = zerolog.New(writers[0]).With().Timestamp().Logger()
	default:
		logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	}
	if !verbose {
		// Audit events are emitted at info level.
		logger = logger.Level(zerolog.InfoLevel)
	}
}

func buildOpener() error {
	if emulate {
		reg := hidtest.NewOpener()
		info := hid.DeviceInfo{
			Path:         "emulated",
			VendorID:     0x0C80,
			ProductID:    0x0001,
			Manufacturer: "Vortran Laser Technology",
			Product:      "Stradus Laser (emulated)",
		}
		if cfg.ASCII {
			reg.Add(info, hidtest.NewASCIIEmulator())
		} else {
			reg.Add(info, hidtest.NewEmulator())
		}
		if selector.Path == "" && selector.VendorID == 0 {
			selector = hid.Selector{Path: "emulated"}
		}
		opener = reg
		return nil
	}

	if err := hidapi.Init(); err != nil {
		return fmt.Errorf("hidapi init: %w", err)
	}
	teardown = func() { hidapi.Exit() }
	opener = hidapi.NewOpener(protocol.ReportSize)
	return nil
}

func timeout() time.Duration {
	return time.Duration(cfg.TimeoutMillis) * time.Millisecond
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.stradus/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagPath, "path", "", "HID device path")
	rootCmd.PersistentFlags().StringVar(&flagVID, "vid", "", "vendor ID (e.g. 0x0C80)")
	rootCmd.PersistentFlags().StringVar(&flagPID, "pid", "", "product ID (e.g. 0x0001)")
	rootCmd.PersistentFlags().BoolVar(&flagASCII, "ascii", false, "use the legacy v1 text protocol")
	rootCmd.PersistentFlags().BoolVar(&emulate, "emulate", false, "run against an in-memory emulated device")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log protocol exchanges to stderr")
}
