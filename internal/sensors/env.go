// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"

	"github.com/relabs-tech/platypus/internal/env"
)

// BME280 reads temperature, pressure and humidity over I2C.
type BME280 struct {
	mu  sync.Mutex
	dev *bmxx80.Dev
}

// NewBME280 opens the sensor at addr.
func NewBME280(bus i2c.Bus, addr uint16) (*BME280, error) {
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("BME280 init (0x%02X): %w", addr, err)
	}
	return &BME280{dev: dev}, nil
}

// ReadEnv performs one forced measurement.
func (b *BME280) ReadEnv(ctx context.Context) (env.Sample, error) {
	return call(ctx, func() (env.Sample, error) {
		b.mu.Lock()
		defer b.mu.Unlock()

		var e physic.Env
		if err := b.dev.Sense(&e); err != nil {
			return env.Sample{}, fmt.Errorf("BME280 sense: %w", err)
		}
		return envSample(e), nil
	})
}

func envSample(e physic.Env) env.Sample {
	return env.Sample{
		Temperature: e.Temperature.Celsius(),
		Pressure:    float64(e.Pressure) / float64(physic.Pascal),
		Humidity:    float64(e.Humidity) / float64(physic.PercentRH),
	}
}

// Close halts the sensor.
func (b *BME280) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dev.Halt()
}
