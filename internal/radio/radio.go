// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package radio switches the wireless radios with rfkill.
package radio

import (
	"context"
	"os/exec"
	"time"

	log "github.com/sirupsen/logrus"
)

// Runner executes a command. The default runs it through os/exec.
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Rfkill toggles radios without blocking the caller.
type Rfkill struct {
	run     Runner
	timeout time.Duration
}

var radioLog = log.WithField("component", "radio")

// NewRfkill returns a controller using run, or os/exec when run is nil.
func NewRfkill(run Runner, timeout time.Duration) *Rfkill {
	if run == nil {
		run = execRunner
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Rfkill{run: run, timeout: timeout}
}

// SetWifi blocks or unblocks the WiFi radio.
func (r *Rfkill) SetWifi(enabled bool) { r.set("wifi", enabled) }

// SetBluetooth blocks or unblocks the Bluetooth radio.
func (r *Rfkill) SetBluetooth(enabled bool) { r.set("bluetooth", enabled) }

// Apply sets both radios, used once at startup.
func (r *Rfkill) Apply(wifi, bt bool) {
	r.SetWifi(wifi)
	r.SetBluetooth(bt)
}

func (r *Rfkill) set(kind string, enabled bool) {
	action := "block"
	if enabled {
		action = "unblock"
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.run(ctx, "rfkill", action, kind); err != nil {
			radioLog.Warnf("rfkill %s %s: %v", action, kind, err)
			return
		}
		radioLog.Infof("rfkill %s %s", action, kind)
	}()
}
