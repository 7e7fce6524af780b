// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/platypus/internal/flush"
	"github.com/relabs-tech/platypus/internal/imu"
	"github.com/relabs-tech/platypus/internal/orientation"
	"github.com/relabs-tech/platypus/internal/ui"
)

var appLog = log.WithField("component", "app")

// Status is the JSON status published over MQTT and the status server.
type Status struct {
	Time         time.Time         `json:"time"`
	ClockSynced  bool              `json:"clock_synced"`
	DisplayState ui.State          `json:"display_state"`
	Sample       *imu.Sample       `json:"sample,omitempty"`
	Reading      *imu.Reading      `json:"reading,omitempty"`
	Tilt         *orientation.Tilt `json:"tilt,omitempty"`
	SampleAt     time.Time         `json:"sample_at,omitzero"`
	BufferBytes  int               `json:"buffer_bytes"`
	ActiveSlot   int               `json:"active_slot"`
	Saving       bool              `json:"saving"`
	ForceSave    bool              `json:"force_save"`
	WifiEnabled  bool              `json:"wifi_enabled"`
	BTEnabled    bool              `json:"bt_enabled"`
	Pending      int               `json:"pending_retries"`
	LastFlush    *FlushInfo        `json:"last_flush,omitempty"`
}

// FlushInfo is the JSON view of a flush report.
type FlushInfo struct {
	Time    time.Time `json:"time"`
	Path    string    `json:"path,omitempty"`
	Bytes   int       `json:"bytes"`
	Pending int       `json:"pending"`
	Error   string    `json:"error,omitempty"`
}

func newFlushInfo(r flush.Report) *FlushInfo {
	fi := &FlushInfo{Time: r.Time, Path: r.Path, Bytes: r.Bytes, Pending: r.Pending}
	if r.Err != nil {
		fi.Error = r.Err.Error()
	}
	return fi
}

// FlushFailed reports whether the most recent flush failed.
func (s Status) FlushFailed() bool {
	return s.LastFlush != nil && s.LastFlush.Error != ""
}

// formatSize renders a byte count in B, KiB or MiB.
func formatSize(n int) string {
	switch {
	case n > 1<<20:
		return fmt.Sprintf("%.3f MiB", float64(n)/(1<<20))
	case n > 1<<10:
		return fmt.Sprintf("%.2f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
