// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/relabs-tech/platypus/internal/acquire"
	"github.com/relabs-tech/platypus/internal/clock"
	"github.com/relabs-tech/platypus/internal/flush"
	"github.com/relabs-tech/platypus/internal/imu"
	"github.com/relabs-tech/platypus/internal/logbuf"
	"github.com/relabs-tech/platypus/internal/mcu"
	"github.com/relabs-tech/platypus/internal/orientation"
	"github.com/relabs-tech/platypus/internal/runstate"
	"github.com/relabs-tech/platypus/internal/sensors"
	"github.com/relabs-tech/platypus/internal/ui"
)

// TapSource calls onTap for every tap until ctx is done.
type TapSource interface {
	Run(ctx context.Context, onTap func())
}

// Devices are the hardware collaborators. Only IMU is required; a nil field
// disables its capability.
type Devices struct {
	IMU     acquire.IMU
	Light   logbuf.LightSensor
	Env     logbuf.EnvSensor
	Battery ui.Battery
	Display ui.Display
	Taps    TapSource
	MCU     io.ReadCloser
	Radios  ui.Radios
	Address func() string
}

// clockSetter is implemented by displays that track a minute boundary.
type clockSetter interface {
	SetClock(now func() time.Time)
}

// Options are the runtime parameters.
type Options struct {
	LogDir              string
	Threshold           int
	AcquisitionInterval time.Duration
	DisplayInterval     time.Duration
	PeripheralInterval  time.Duration
	HardwareTimeout     time.Duration
	Timing              ui.Timing
	Scale               imu.Scale
	WifiEnabled         bool
	BTEnabled           bool
}

// Runtime owns the shared state and the loops: acquisition, display, tap
// input, peripheral poller and flush worker.
type Runtime struct {
	dev  Devices
	opts Options

	flags  *runstate.Flags
	latest *runstate.Latest
	status *runstate.FlushStatus
	clock  *clock.Clock

	buf     *logbuf.DoubleBuffer
	store   *flush.Store
	worker  *flush.Worker
	sched   *acquire.Scheduler
	machine *ui.Machine
	poller  *mcu.Poller
}

// NewRuntime wires the loops. It fails when no IMU is available.
func NewRuntime(dev Devices, opts Options) (*Runtime, error) {
	if dev.IMU == nil {
		return nil, fmt.Errorf("runtime: imu: %w", sensors.ErrUnavailable)
	}
	if dev.Display == nil {
		return nil, fmt.Errorf("runtime: display: %w", sensors.ErrUnavailable)
	}
	if opts.DisplayInterval <= 0 {
		opts.DisplayInterval = time.Second
	}

	r := &Runtime{
		dev:    dev,
		opts:   opts,
		flags:  &runstate.Flags{},
		latest: &runstate.Latest{},
		status: &runstate.FlushStatus{},
		clock:  clock.New(),
	}
	if cs, ok := dev.Display.(clockSetter); ok {
		cs.SetClock(r.clock.Now)
	}
	r.flags.WifiEnabled.Store(opts.WifiEnabled)
	r.flags.BTEnabled.Store(opts.BTEnabled)

	r.buf = logbuf.NewDoubleBuffer(&logbuf.Capture{
		Now:     r.clock.Now,
		Light:   dev.Light,
		Env:     dev.Env,
		Timeout: opts.HardwareTimeout,
	})
	r.store = flush.NewStore(opts.LogDir)
	r.worker = flush.NewWorker(r.store, r.buf, &r.flags.Saving, r.status.Record)
	r.sched = acquire.New(dev.IMU, r.buf, r.worker, r.flags, r.latest, acquire.Config{
		Interval:  opts.AcquisitionInterval,
		Timeout:   opts.HardwareTimeout,
		Threshold: opts.Threshold,
	})
	r.machine = ui.New(ui.Deps{
		Display:   dev.Display,
		Battery:   dev.Battery,
		Radios:    dev.Radios,
		Flags:     r.flags,
		Latest:    r.latest,
		Flush:     r.status,
		Scale:     opts.Scale,
		BufferLen: r.buf.Len,
		Address:   dev.Address,
		Now:       r.clock.Now,
		Timeout:   opts.HardwareTimeout,
	}, opts.Timing)
	if dev.MCU != nil {
		r.poller = mcu.NewPoller(dev.MCU, r.clock, opts.PeripheralInterval, nil)
	}
	return r, nil
}

// Run starts every loop and blocks until ctx is done. On shutdown it waits
// for the loops, lets the flush worker finish, then writes whatever is left
// in the active buffer and the retry queue.
func (r *Runtime) Run(ctx context.Context) error {
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go r.worker.Run(workerCtx)

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := r.sched.Run(ctx); err != nil {
			errCh <- err
		}
	}()
	go func() {
		defer wg.Done()
		r.machine.Run(ctx, r.opts.DisplayInterval)
	}()
	if r.dev.Taps != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.dev.Taps.Run(ctx, r.machine.Tap)
		}()
	}
	if r.poller != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.poller.Run(ctx)
		}()
	}

	appLog.Infof("runtime started, logging to %s", r.store.Dir())
	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}
	wg.Wait()

	stopWorker()
	<-r.worker.Done()

	if err := r.finalFlush(); err != nil {
		return err
	}
	appLog.Info("runtime stopped")
	return runErr
}

func (r *Runtime) finalFlush() error {
	data := r.buf.TakeActive()
	if len(data) == 0 && r.worker.Pending() == 0 {
		return nil
	}
	appLog.Infof("final flush of %d bytes (%d pending)", len(data), r.worker.Pending())
	if err := r.worker.FlushNow(data); err != nil {
		return fmt.Errorf("final flush: %w", err)
	}
	return nil
}

// RequestSave asks the acquisition loop to flush on its next tick.
func (r *Runtime) RequestSave() { r.flags.ForceSave.Store(true) }

// Tap forwards a tap to the display loop.
func (r *Runtime) Tap() { r.machine.Tap() }

// Status returns a point-in-time view of the runtime.
func (r *Runtime) Status() Status {
	st := Status{
		Time:         r.clock.Now(),
		ClockSynced:  r.clock.Synced(),
		DisplayState: r.machine.State(),
		BufferBytes:  r.buf.Len(),
		ActiveSlot:   r.buf.Active(),
		Saving:       r.flags.Saving.Load(),
		ForceSave:    r.flags.ForceSave.Load(),
		WifiEnabled:  r.flags.WifiEnabled.Load(),
		BTEnabled:    r.flags.BTEnabled.Load(),
		Pending:      r.worker.Pending(),
	}
	if snap, ok := r.latest.Load(); ok {
		s := snap.Sample
		reading := r.opts.Scale.ToReadable(s)
		st.Sample = &s
		st.Reading = &reading
		tilt := orientation.FromReading(reading)
		st.Tilt = &tilt
		st.SampleAt = snap.At
	}
	if rep, ok := r.status.Last(); ok {
		st.LastFlush = newFlushInfo(rep)
	}
	return st
}
