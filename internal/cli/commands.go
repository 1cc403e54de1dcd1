package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/optoforge/go-stradus/ascii"
	"github.com/optoforge/go-stradus/laser"
)

// withSession opens a binary-protocol session, runs fn and closes it.
func withSession(cmd *cobra.Command, fn func(context.Context, *laser.Session) error) error {
	opts := []laser.Option{
		laser.WithTimeout(timeout()),
		laser.WithLogger(logger),
	}
	if cfg.Retries != nil {
		opts = append(opts, laser.WithRetries(*cfg.Retries))
	}

	sess := laser.NewSession(opener, selector, opts...)
	ctx := cmd.Context()
	if err := sess.Open(ctx); err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	defer sess.Close()
	return fn(ctx, sess)
}

// withASCIIDevice opens a legacy v1 device, runs fn and closes it.
func withASCIIDevice(fn func(*ascii.Device) error) error {
	dev := ascii.NewDevice(opener, selector,
		ascii.WithTimeout(timeout()),
		ascii.WithLogger(logger))
	if err := dev.Open(); err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	defer dev.Close()
	return fn(dev)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List attached HID devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		infos, err := opener.Enumerate(selector.VendorID, selector.ProductID)
		if err != nil {
			return fmt.Errorf("enumerate: %w", err)
		}
		if len(infos) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no devices found")
			return nil
		}
		for _, info := range infos {
			fmt.Fprintln(cmd.OutOrStdout(), info.String())
		}
		return nil
	},
}

var onCmd = &cobra.Command{
	Use:   "on",
	Short: "Enable laser emission",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.ASCII {
			return withASCIIDevice(func(dev *ascii.Device) error {
				reply, err := dev.LaserOn()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), reply)
				return nil
			})
		}
		return withSession(cmd, func(ctx context.Context, sess *laser.Session) error {
			if err := sess.LaserOn(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "emission on")
			return nil
		})
	},
}

var offCmd = &cobra.Command{
	Use:   "off",
	Short: "Disable laser emission",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.ASCII {
			return withASCIIDevice(func(dev *ascii.Device) error {
				reply, err := dev.LaserOff()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), reply)
				return nil
			})
		}
		return withSession(cmd, func(ctx context.Context, sess *laser.Session) error {
			if err := sess.LaserOff(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "emission off")
			return nil
		})
	},
}

var powerCmd = &cobra.Command{
	Use:   "power <milliwatts>",
	Short: "Set the power setpoint in milliwatts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mw, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid power %q", args[0])
		}
		if cfg.ASCII {
			return withASCIIDevice(func(dev *ascii.Device) error {
				reply, err := dev.SetPower(mw)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), reply)
				return nil
			})
		}
		return withSession(cmd, func(ctx context.Context, sess *laser.Session) error {
			if err := sess.SetPower(ctx, mw); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "power set to %.3f mW\n", mw)
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show emission state, faults and power",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.ASCII {
			return withASCIIDevice(func(dev *ascii.Device) error {
				reply, err := dev.Status()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), reply)
				return nil
			})
		}
		return withSession(cmd, func(ctx context.Context, sess *laser.Session) error {
			status, err := sess.Status(ctx)
			if err != nil {
				return err
			}
			emission := "off"
			if status.Emission {
				emission = "on"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "emission: %s\n", emission)
			fmt.Fprintf(out, "power:    %.3f mW\n", status.PowerMilliwatts)
			fmt.Fprintf(out, "faults:   %s\n", status.Faults)
			return nil
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the device firmware version and limits",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.ASCII {
			return fmt.Errorf("the v1 text protocol has no version query")
		}
		return withSession(cmd, func(ctx context.Context, sess *laser.Session) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "firmware: %s\n", sess.FirmwareVersion())
			fmt.Fprintf(out, "device:   %s\n", sess.Limits())
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(listCmd, onCmd, offCmd, powerCmd, statusCmd, versionCmd)
}
