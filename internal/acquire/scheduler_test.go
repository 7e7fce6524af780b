// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package acquire

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/relabs-tech/platypus/internal/flush"
	"github.com/relabs-tech/platypus/internal/imu"
	"github.com/relabs-tech/platypus/internal/logbuf"
	"github.com/relabs-tech/platypus/internal/runstate"
	"github.com/relabs-tech/platypus/internal/sensors"
)

type fakeIMU struct {
	fifo    []int16
	fifoErr error
	partial []int16 // returned with fifoErr
	temp    int16
	tempErr error
	resets  int
}

func (f *fakeIMU) ResetFIFO(context.Context) error { f.resets++; return nil }

func (f *fakeIMU) ReadFIFO(context.Context) ([]int16, error) {
	if f.fifoErr != nil {
		return f.partial, f.fifoErr
	}
	return f.fifo, nil
}

func (f *fakeIMU) ReadRawTemperature(context.Context) (int16, error) {
	return f.temp, f.tempErr
}

type fakeFlusher struct {
	saving bool
	busy   bool
	jobs   []flush.Job
	kept   [][]byte
}

func (f *fakeFlusher) Saving() bool { return f.saving }

func (f *fakeFlusher) Submit(job flush.Job) error {
	if f.busy {
		return flush.ErrBusy
	}
	f.jobs = append(f.jobs, job)
	f.saving = true
	return nil
}

func (f *fakeFlusher) Retain(data []byte) { f.kept = append(f.kept, data) }

type harness struct {
	dev     *fakeIMU
	buf     *logbuf.DoubleBuffer
	flusher *fakeFlusher
	flags   *runstate.Flags
	latest  *runstate.Latest
	sched   *Scheduler
}

func newHarness(threshold int) *harness {
	h := &harness{
		dev:     &fakeIMU{fifo: []int16{1, 2, 3, 4, 5, 6}, temp: 100},
		buf:     logbuf.NewDoubleBuffer(nil),
		flusher: &fakeFlusher{},
		flags:   &runstate.Flags{},
		latest:  &runstate.Latest{},
	}
	h.sched = New(h.dev, h.buf, h.flusher, h.flags, h.latest, Config{
		Interval:  time.Millisecond,
		Timeout:   time.Second,
		Threshold: threshold,
	})
	return h
}

func TestTickAppendsAndPublishes(t *testing.T) {
	h := newHarness(1 << 20)
	h.dev.fifo = []int16{9, 9, 9, 9, 9, 9, 10, 20, 30, 40, 50, 60}

	if err := h.sched.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got, want := h.buf.Len(), logbuf.HeaderSize+2*12; got != want {
		t.Fatalf("Len = %d, want %d", got, want)
	}
	snap, ok := h.latest.Load()
	if !ok {
		t.Fatal("no snapshot published")
	}
	want := imu.Sample{Ax: 10, Ay: 20, Az: 30, Gx: 40, Gy: 50, Gz: 60, Temp: 100}
	if snap.Sample != want {
		t.Fatalf("snapshot = %+v, want %+v", snap.Sample, want)
	}
}

func TestTickEmptyFIFOKeepsSampleUpdatesTemp(t *testing.T) {
	h := newHarness(1 << 20)
	if err := h.sched.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.dev.fifo = nil
	h.dev.temp = 200
	if err := h.sched.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap, _ := h.latest.Load()
	if snap.Sample.Ax != 1 || snap.Sample.Temp != 200 {
		t.Fatalf("snapshot = %+v", snap.Sample)
	}
}

func TestTickSensorErrorSkips(t *testing.T) {
	h := newHarness(1 << 20)
	h.dev.fifoErr = errors.New("spi gone")

	err := h.sched.Tick(context.Background())
	if !errors.Is(err, ErrSensorRead) {
		t.Fatalf("err = %v, want ErrSensorRead", err)
	}
	if h.buf.Len() != 0 {
		t.Fatalf("buffer grew on a failed tick: %d", h.buf.Len())
	}
	if _, ok := h.latest.Load(); ok {
		t.Fatal("snapshot published on a failed tick")
	}
}

func TestTickKeepsPartialReadOnError(t *testing.T) {
	h := newHarness(1 << 20)
	h.dev.fifoErr = sensors.ErrTimeout
	h.dev.partial = []int16{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

	err := h.sched.Tick(context.Background())
	if !errors.Is(err, ErrSensorRead) {
		t.Fatalf("err = %v, want ErrSensorRead", err)
	}
	if got, want := h.buf.Len(), logbuf.HeaderSize+2*12; got != want {
		t.Fatalf("Len = %d, want %d: values read before the error were dropped", got, want)
	}
	if _, ok := h.latest.Load(); ok {
		t.Fatal("snapshot published on a failed tick")
	}
}

func TestTickTemperatureUnavailableReusesLast(t *testing.T) {
	h := newHarness(1 << 20)
	if err := h.sched.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.dev.tempErr = sensors.ErrUnavailable
	h.dev.temp = 0
	if err := h.sched.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap, _ := h.latest.Load()
	if snap.Sample.Temp != 100 {
		t.Fatalf("Temp = %d, want last value 100", snap.Sample.Temp)
	}

	h.dev.tempErr = errors.New("bus error")
	if err := h.sched.Tick(context.Background()); !errors.Is(err, ErrSensorRead) {
		t.Fatalf("err = %v, want ErrSensorRead", err)
	}
}

func TestForceSaveBelowThreshold(t *testing.T) {
	h := newHarness(1 << 20)
	if err := h.sched.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	before := h.buf.Len()

	h.flags.ForceSave.Store(true)
	if err := h.sched.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.flusher.jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(h.flusher.jobs))
	}
	if got := len(h.flusher.jobs[0].Data); got != before {
		t.Fatalf("flushed %d bytes, want %d", got, before)
	}
	if h.flags.ForceSave.Load() {
		t.Fatal("ForceSave still set after the flush was scheduled")
	}
	if h.buf.Active() != 1 {
		t.Fatalf("active slot = %d, want 1", h.buf.Active())
	}
}

func TestThresholdTriggersFlush(t *testing.T) {
	h := newHarness(logbuf.HeaderSize + 12)
	if err := h.sched.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.flusher.jobs) != 0 {
		t.Fatal("flushed before the tick that observes the threshold")
	}
	if err := h.sched.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.flusher.jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(h.flusher.jobs))
	}
}

func TestFlushDeferredWhileSaving(t *testing.T) {
	h := newHarness(1 << 20)
	h.flusher.saving = true
	h.flags.ForceSave.Store(true)

	if err := h.sched.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.flusher.jobs) != 0 {
		t.Fatal("flush scheduled while another was in flight")
	}
	if !h.flags.ForceSave.Load() {
		t.Fatal("ForceSave cleared without a flush")
	}
	if h.buf.Active() != 0 {
		t.Fatal("swapped while saving")
	}
}

func TestFlushDeferredWhileIdleSlotHandedOut(t *testing.T) {
	h := newHarness(1 << 20)
	h.flags.ForceSave.Store(true)
	if err := h.sched.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	// First flush finished from the scheduler's view but its slot is
	// still held by the worker.
	h.flusher.saving = false
	h.flags.ForceSave.Store(true)
	if err := h.sched.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.flusher.jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(h.flusher.jobs))
	}
	if !h.flags.ForceSave.Load() {
		t.Fatal("ForceSave cleared while the flush was deferred")
	}

	h.buf.Release(h.flusher.jobs[0].Slot)
	if err := h.sched.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.flusher.jobs) != 2 {
		t.Fatalf("jobs = %d, want 2 after release", len(h.flusher.jobs))
	}
}

func TestSubmitFailureRetainsData(t *testing.T) {
	h := newHarness(1 << 20)
	if err := h.sched.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.flusher.busy = true
	h.flags.ForceSave.Store(true)
	if err := h.sched.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.flusher.kept) != 1 || len(h.flusher.kept[0]) == 0 {
		t.Fatalf("kept = %d payloads", len(h.flusher.kept))
	}
	if h.buf.HandedOut(0) {
		t.Fatal("slot not released after a rejected submit")
	}
}

func TestRunWithoutIMU(t *testing.T) {
	s := New(nil, logbuf.NewDoubleBuffer(nil), &fakeFlusher{}, &runstate.Flags{}, &runstate.Latest{}, Config{})
	if err := s.Run(context.Background()); !errors.Is(err, sensors.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(1 << 20)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := h.sched.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if h.dev.resets != 1 {
		t.Fatalf("resets = %d, want 1", h.dev.resets)
	}
	if h.buf.Len() == 0 {
		t.Fatal("no samples appended")
	}
}
