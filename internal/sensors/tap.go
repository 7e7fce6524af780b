// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// TapLine watches the IMU interrupt pin that the wake-on-motion logic
// raises on a tap.
type TapLine struct {
	pin gpio.PinIO
}

// NewTapLine configures name as a pulled-down rising edge input.
func NewTapLine(name string) (*TapLine, error) {
	if err := InitHost(); err != nil {
		return nil, err
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("tap pin %q not found", name)
	}
	if err := pin.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return nil, fmt.Errorf("tap pin %s: %w", name, err)
	}
	return &TapLine{pin: pin}, nil
}

// Run calls onTap for every rising edge until ctx is done.
func (t *TapLine) Run(ctx context.Context, onTap func()) {
	for ctx.Err() == nil {
		if t.pin.WaitForEdge(200 * time.Millisecond) {
			onTap()
		}
	}
}

// Close disables edge detection.
func (t *TapLine) Close() error {
	return t.pin.In(gpio.PullNoChange, gpio.NoEdge)
}
