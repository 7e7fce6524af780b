// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package acquire runs the acquisition loop: drain the IMU FIFO into the
// active log buffer and hand full buffers to the flush worker.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/platypus/internal/flush"
	"github.com/relabs-tech/platypus/internal/imu"
	"github.com/relabs-tech/platypus/internal/runstate"
	"github.com/relabs-tech/platypus/internal/sensors"
)

// DefaultThreshold is the active buffer size that triggers a flush (128 MiB).
const DefaultThreshold = 128 << 20

// ErrSensorRead marks a tick skipped because the IMU could not be read.
var ErrSensorRead = errors.New("sensor read failed")

// IMU is the acquisition view of the inertial sensor. ReadFIFO returns
// whole six-value groups; on error it may still return the groups it
// removed from the sensor before failing.
type IMU interface {
	ResetFIFO(ctx context.Context) error
	ReadFIFO(ctx context.Context) ([]int16, error)
	ReadRawTemperature(ctx context.Context) (int16, error)
}

// Buffer is the double buffer as seen by its single writer.
type Buffer interface {
	Len() int
	AppendSamples(vs []int16)
	Swap() (int, error)
	TakeForFlush(slot int) ([]byte, error)
	Release(slot int)
}

// Flusher accepts ownership of vacated buffer contents.
type Flusher interface {
	Saving() bool
	Submit(job flush.Job) error
	Retain(data []byte)
}

// Config holds the loop timing.
type Config struct {
	Interval  time.Duration // between ticks
	Timeout   time.Duration // per hardware call
	Threshold int           // bytes
}

// Scheduler is the acquisition loop.
type Scheduler struct {
	imu     IMU
	buf     Buffer
	flusher Flusher
	flags   *runstate.Flags
	latest  *runstate.Latest
	cfg     Config
	now     func() time.Time

	lastTemp int16
}

var acqLog = log.WithField("component", "acquire")

func New(dev IMU, buf Buffer, flusher Flusher, flags *runstate.Flags, latest *runstate.Latest, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	return &Scheduler{
		imu:     dev,
		buf:     buf,
		flusher: flusher,
		flags:   flags,
		latest:  latest,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Run resets the FIFO and ticks every Interval until ctx is done. A failed
// tick is logged and skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.imu == nil {
		return fmt.Errorf("acquire: imu: %w", sensors.ErrUnavailable)
	}
	rctx, cancel := s.hwContext(ctx)
	err := s.imu.ResetFIFO(rctx)
	cancel()
	if err != nil {
		acqLog.Warnf("FIFO reset: %v", err)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	acqLog.Infof("acquisition loop started (interval %s)", s.cfg.Interval)
	for {
		select {
		case <-ctx.Done():
			acqLog.Info("acquisition loop stopped")
			return nil
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				acqLog.Warnf("tick skipped: %v", err)
			}
		}
	}
}

// Tick runs one acquisition step.
func (s *Scheduler) Tick(ctx context.Context) error {
	s.maybeFlush()

	fctx, cancel := s.hwContext(ctx)
	fifo, err := s.imu.ReadFIFO(fctx)
	cancel()
	// Values drained before an error are already gone from the sensor.
	s.buf.AppendSamples(fifo)
	if err != nil {
		return fmt.Errorf("%w: fifo: %v", ErrSensorRead, err)
	}

	tctx, cancel := s.hwContext(ctx)
	temp, err := s.imu.ReadRawTemperature(tctx)
	cancel()
	switch {
	case err == nil:
		s.lastTemp = temp
	case errors.Is(err, sensors.ErrUnavailable):
		temp = s.lastTemp
	default:
		return fmt.Errorf("%w: temperature: %v", ErrSensorRead, err)
	}

	if sample, ok := imu.FromFIFOTail(fifo, temp); ok {
		s.latest.Store(sample, s.now())
	} else if prev, ok := s.latest.Load(); ok {
		prev.Sample.Temp = temp
		s.latest.Store(prev.Sample, s.now())
	}
	return nil
}

// maybeFlush hands the active buffer to the flush worker when a save was
// requested or the threshold is reached and no flush is in flight. If the
// idle slot is still handed out, acquisition keeps appending to the active
// slot and the request stays pending.
func (s *Scheduler) maybeFlush() {
	force := s.flags.ForceSave.Load()
	if !force && s.buf.Len() < s.cfg.Threshold {
		return
	}
	if s.flusher.Saving() {
		return
	}

	slot, err := s.buf.Swap()
	if err != nil {
		acqLog.Warnf("flush deferred: %v", err)
		return
	}
	data, err := s.buf.TakeForFlush(slot)
	if err != nil {
		acqLog.Errorf("take slot %d: %v", slot, err)
		s.buf.Release(slot)
		return
	}
	if err := s.flusher.Submit(flush.Job{Slot: slot, Data: data}); err != nil {
		acqLog.Warnf("submit slot %d: %v, data kept for retry", slot, err)
		s.flusher.Retain(data)
		s.buf.Release(slot)
	}
	if force {
		s.flags.ForceSave.CompareAndSwap(true, false)
	}
	acqLog.Debugf("slot %d handed to flush (%d bytes, forced=%v)", slot, len(data), force)
}

func (s *Scheduler) hwContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}
