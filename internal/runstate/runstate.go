// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package runstate holds the state shared between the worker loops. Every
// field is an atomic or an atomically swapped snapshot.
package runstate

import (
	"sync/atomic"
	"time"

	"github.com/relabs-tech/platypus/internal/flush"
	"github.com/relabs-tech/platypus/internal/imu"
)

// Flags are the runtime switches touched by more than one loop.
type Flags struct {
	WifiEnabled atomic.Bool
	BTEnabled   atomic.Bool
	ForceSave   atomic.Bool
	Saving      atomic.Bool
}

// Latest publishes the most recent IMU sample.
type Latest struct {
	p atomic.Pointer[Snapshot]
}

// Snapshot is an immutable published sample.
type Snapshot struct {
	Sample imu.Sample
	At     time.Time
}

// Store publishes s.
func (l *Latest) Store(s imu.Sample, at time.Time) {
	l.p.Store(&Snapshot{Sample: s, At: at})
}

// Load returns the latest snapshot and whether one was ever stored.
func (l *Latest) Load() (Snapshot, bool) {
	p := l.p.Load()
	if p == nil {
		return Snapshot{}, false
	}
	return *p, true
}

// FlushStatus keeps the outcome of the most recent flush.
type FlushStatus struct {
	p atomic.Pointer[flush.Report]
}

// Record stores r. It matches the flush.Worker report callback.
func (f *FlushStatus) Record(r flush.Report) {
	f.p.Store(&r)
}

// Last returns the most recent report, if any.
func (f *FlushStatus) Last() (flush.Report, bool) {
	p := f.p.Load()
	if p == nil {
		return flush.Report{}, false
	}
	return *p, true
}

// Failed reports whether the most recent flush failed.
func (f *FlushStatus) Failed() bool {
	r, ok := f.Last()
	return ok && r.Failed()
}
