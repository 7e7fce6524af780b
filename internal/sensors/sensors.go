// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors adapts the periph.io drivers for the logger hardware. Every
// blocking driver call is bounded by the caller's context.
package sensors

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

var (
	// ErrUnavailable marks a capability the device does not have.
	ErrUnavailable = errors.New("hardware unavailable")
	// ErrTimeout marks a hardware call that did not return in time.
	ErrTimeout = errors.New("hardware call timed out")
)

var (
	hostOnce    sync.Once
	hostInitErr error
)

// InitHost initializes periph once per process.
func InitHost() error {
	hostOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			hostInitErr = fmt.Errorf("periph host init: %w", err)
		}
	})
	return hostInitErr
}

// OpenI2C opens an I2C bus by name ("" selects the first one).
func OpenI2C(name string) (i2c.BusCloser, error) {
	if err := InitHost(); err != nil {
		return nil, err
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open I2C bus %q: %w", name, err)
	}
	return bus, nil
}

// call runs fn on its own goroutine and gives up when ctx is done. A stalled
// driver keeps its goroutine (and its device lock) until it returns, so
// later calls on the same device time out as well instead of piling up.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		return zero, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	}
}
