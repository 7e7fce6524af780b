// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Command logdump prints the blocks of datalog files.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/platypus/internal/imu"
	"github.com/relabs-tech/platypus/internal/logbuf"
)

type dumpOpts struct {
	samples    bool
	physical   bool
	accelRange byte
	gyroRange  byte
}

func main() {
	var opts dumpOpts
	cmd := &cobra.Command{
		Use:   "logdump FILE...",
		Short: "Print the headers and samples of platypus datalog files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if err := dumpFile(cmd.OutOrStdout(), path, opts); err != nil {
					return err
				}
			}
			return nil
		},
		SilenceUsage: true,
	}
	cmd.Flags().BoolVar(&opts.samples, "samples", false, "print every sample, not only block headers")
	cmd.Flags().BoolVar(&opts.physical, "physical", false, "print samples in m/s^2 and deg/s")
	cmd.Flags().Uint8Var(&opts.accelRange, "accel-range", 0, "accelerometer range setting (0=±2g .. 3=±16g)")
	cmd.Flags().Uint8Var(&opts.gyroRange, "gyro-range", 0, "gyroscope range setting (0=±250 .. 3=±2000 deg/s)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func dumpFile(w io.Writer, path string, opts dumpOpts) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(w, "%s\n", path)
	total, err := dump(w, f, opts)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Fprintf(w, "%d values (%d samples)\n", total, total/6)
	return nil
}

// dump prints every block of r and returns the number of values read.
func dump(w io.Writer, r io.Reader, opts dumpOpts) (int, error) {
	scale := imu.Scale{AccelRange: opts.accelRange, GyroRange: opts.gyroRange}
	total := 0
	err := logbuf.ReadBlocks(r, func(b logbuf.Block) error {
		h := b.Header
		e := h.Env()
		fmt.Fprintf(w, "@%-10d %s  light=%d/%d  T=%.2fC  P=%.0fPa  H=%.2f%%  n=%d\n",
			b.Offset, h.Timestamp(), h.Visible, h.IR, e.Temperature, e.Pressure, e.Humidity, len(b.Samples))
		total += len(b.Samples)
		if !opts.samples {
			return nil
		}
		for i := 0; i+6 <= len(b.Samples); i += 6 {
			g := b.Samples[i : i+6]
			if opts.physical {
				rd := scale.ToReadable(imu.Sample{Ax: g[0], Ay: g[1], Az: g[2], Gx: g[3], Gy: g[4], Gz: g[5]})
				fmt.Fprintf(w, "  %8.3f %8.3f %8.3f  %9.3f %9.3f %9.3f\n", rd.Ax, rd.Ay, rd.Az, rd.Gx, rd.Gy, rd.Gz)
				continue
			}
			fmt.Fprintf(w, "  %6d %6d %6d  %6d %6d %6d\n", g[0], g[1], g[2], g[3], g[4], g[5])
		}
		return nil
	})
	return total, err
}
