// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/devices/v3/mpu9250/reg"
)

const (
	// frameSize is one FIFO record: accel xyz then gyro xyz, big-endian.
	frameSize = 12
	// fifoSize is the chip's FIFO capacity in bytes.
	fifoSize = 512
	// baseRateHz is the internal sample rate with the low-pass filter on.
	baseRateHz = 1000
)

// MPU9250Opts configures the IMU.
type MPU9250Opts struct {
	SPIDevice  string
	CSPin      string
	AccelRange byte // 0=±2g .. 3=±16g
	GyroRange  byte // 0=±250°/s .. 3=±2000°/s
	RateHz     int  // FIFO sample rate
	Calibrate  bool
}

// fifoChip is the part of the periph driver used after setup.
type fifoChip interface {
	SetFIFOEnabled(enabled bool) error
	ResetFIFO() error
	GetFIFOCount() (uint16, error)
	GetFIFOByte() (byte, error)
	GetTemperature() (uint16, error)
}

// MPU9250 streams accel and gyro samples through the chip's FIFO. The
// acquisition loop drains it once per tick.
type MPU9250 struct {
	mu   sync.Mutex // serializes chip access
	chip fifoChip
	// resync is set when a read failed mid-frame and the FIFO must be
	// reset to realign on a frame boundary.
	resync bool

	// carry holds drained frames not yet returned. It is never held
	// across chip I/O, so frames drained by a call that timed out are
	// returned by the next ReadFIFO.
	carryMu sync.Mutex
	carry   []int16
}

var imuLog = log.WithField("component", "imu")

// NewMPU9250 initializes the IMU over SPI and starts the FIFO at RateHz.
func NewMPU9250(opts MPU9250Opts) (*MPU9250, error) {
	if err := InitHost(); err != nil {
		return nil, err
	}
	if opts.RateHz <= 0 || opts.RateHz > baseRateHz {
		opts.RateHz = 100
	}

	cs := gpioreg.ByName(opts.CSPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", opts.CSPin)
	}
	tr, err := mpu9250.NewSpiTransport(opts.SPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", opts.SPIDevice, err)
	}
	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	if opts.Calibrate {
		if _, err := dev.SelfTest(); err != nil {
			imuLog.Warnf("self-test failed: %v", err)
		}
		if err := dev.Calibrate(); err != nil {
			imuLog.Warnf("calibration failed: %v", err)
		} else {
			imuLog.Info("calibration complete")
		}
	}

	// Self-test and calibration rewrite the ranges and FIFO setup.
	if err := dev.SetAccelRange(opts.AccelRange); err != nil {
		return nil, fmt.Errorf("IMU: set accel range: %w", err)
	}
	if err := dev.SetGyroRange(opts.GyroRange); err != nil {
		return nil, fmt.Errorf("IMU: set gyro range: %w", err)
	}
	imuLog.Infof("ranges set: accel %d, gyro %d", opts.AccelRange, opts.GyroRange)

	if err := setupFIFO(dev, opts.RateHz); err != nil {
		return nil, fmt.Errorf("IMU: FIFO setup: %w", err)
	}
	imuLog.Infof("FIFO streaming accel+gyro at %d Hz", opts.RateHz)

	return &MPU9250{chip: dev}, nil
}

func setupFIFO(dev *mpu9250.MPU9250, rateHz int) error {
	if err := dev.SetFIFOEnabled(false); err != nil {
		return err
	}
	div := byte(baseRateHz/rateHz - 1)
	if err := dev.WriteByteAddress(reg.MPU9250_SMPLRT_DIV, div); err != nil {
		return fmt.Errorf("sample rate divider: %w", err)
	}
	steps := []struct {
		name string
		set  func(bool) error
		on   bool
	}{
		{"temp", dev.SetTempFIFOEnabled, false},
		{"slave0", dev.SetSlave0FIFOEnabled, false},
		{"slave1", dev.SetSlave1FIFOEnabled, false},
		{"slave2", dev.SetSlave2FIFOEnabled, false},
		{"accel", dev.SetAccelFIFOEnabled, true},
		{"gyro x", dev.SetXGyroFIFOEnabled, true},
		{"gyro y", dev.SetYGyroFIFOEnabled, true},
		{"gyro z", dev.SetZGyroFIFOEnabled, true},
	}
	for _, st := range steps {
		if err := st.set(st.on); err != nil {
			return fmt.Errorf("%s FIFO enable: %w", st.name, err)
		}
	}
	if err := dev.ResetFIFO(); err != nil {
		return err
	}
	return dev.SetFIFOEnabled(true)
}

// restart empties the chip FIFO. FIFO_RST only acts while FIFO_EN is clear.
func (m *MPU9250) restart() error {
	if err := m.chip.SetFIFOEnabled(false); err != nil {
		return err
	}
	if err := m.chip.ResetFIFO(); err != nil {
		return err
	}
	if err := m.chip.SetFIFOEnabled(true); err != nil {
		return err
	}
	m.resync = false
	return nil
}

// ResetFIFO discards queued samples, including any carried over.
func (m *MPU9250) ResetFIFO(ctx context.Context) error {
	_, err := call(ctx, func() (struct{}, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.takeCarry()
		return struct{}{}, m.restart()
	})
	if err != nil {
		return fmt.Errorf("IMU FIFO reset: %w", err)
	}
	return nil
}

// ReadFIFO drains every complete frame as accel xyz, gyro xyz groups. On
// error nothing is returned; frames already read stay queued for the next
// call.
func (m *MPU9250) ReadFIFO(ctx context.Context) ([]int16, error) {
	_, err := call(ctx, func() (struct{}, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		return struct{}{}, m.drain()
	})
	if err != nil {
		return nil, fmt.Errorf("IMU FIFO read: %w", err)
	}
	return m.takeCarry(), nil
}

func (m *MPU9250) takeCarry() []int16 {
	m.carryMu.Lock()
	defer m.carryMu.Unlock()
	out := m.carry
	m.carry = nil
	return out
}

func (m *MPU9250) keep(frame []byte) {
	m.carryMu.Lock()
	defer m.carryMu.Unlock()
	for i := 0; i+1 < len(frame); i += 2 {
		m.carry = append(m.carry, int16(uint16(frame[i])<<8|uint16(frame[i+1])))
	}
}

// drain moves complete frames from the chip into the carry. Must hold m.mu.
func (m *MPU9250) drain() error {
	if m.resync {
		if err := m.restart(); err != nil {
			return err
		}
	}
	count, err := m.chip.GetFIFOCount()
	if err != nil {
		return err
	}
	if count >= fifoSize {
		// The chip overwrote the oldest bytes, frame alignment is lost.
		imuLog.Warnf("FIFO overflow (%d bytes), samples dropped", count)
		return m.restart()
	}

	var frame [frameSize]byte
	for n := int(count) / frameSize; n > 0; n-- {
		for i := range frame {
			b, err := m.chip.GetFIFOByte()
			if err != nil {
				if i > 0 {
					m.resync = true
				}
				return err
			}
			frame[i] = b
		}
		m.keep(frame[:])
	}
	return nil
}

// ReadRawTemperature returns the die temperature register.
func (m *MPU9250) ReadRawTemperature(ctx context.Context) (int16, error) {
	raw, err := call(ctx, func() (uint16, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.chip.GetTemperature()
	})
	if err != nil {
		return 0, fmt.Errorf("IMU temperature: %w", err)
	}
	return int16(raw), nil
}

// Close stops the FIFO.
func (m *MPU9250) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chip.SetFIFOEnabled(false)
}
