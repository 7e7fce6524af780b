// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package clock provides the wall clock used for log headers and the clock
// face. It follows the system clock until a reference fix arrives.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock is the system clock plus an offset learned from a reference.
type Clock struct {
	base   func() time.Time
	offset atomic.Int64
	synced atomic.Bool
}

// New returns a clock following time.Now.
func New() *Clock {
	return &Clock{base: time.Now}
}

// Now returns the disciplined time.
func (c *Clock) Now() time.Time {
	return c.base().Add(time.Duration(c.offset.Load()))
}

// Discipline aligns the clock to ref and returns the applied offset.
func (c *Clock) Discipline(ref time.Time) time.Duration {
	off := ref.Sub(c.base())
	c.offset.Store(int64(off))
	c.synced.Store(true)
	return off
}

// Offset returns the current correction.
func (c *Clock) Offset() time.Duration {
	return time.Duration(c.offset.Load())
}

// Synced reports whether a reference was ever applied.
func (c *Clock) Synced() bool { return c.synced.Load() }
