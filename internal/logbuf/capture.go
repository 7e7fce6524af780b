// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package logbuf

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/platypus/internal/env"
	"github.com/relabs-tech/platypus/internal/timecode"
)

// LightSensor reads the two ADC channels of the ambient light sensor.
type LightSensor interface {
	ReadADC(ctx context.Context) (visibleIR, ir uint16, err error)
}

// EnvSensor reads temperature, pressure and humidity.
type EnvSensor interface {
	ReadEnv(ctx context.Context) (env.Sample, error)
}

// Capture takes header records from the clock and the optional light and
// environmental sensors. A nil sensor leaves its fields zero.
type Capture struct {
	Now     func() time.Time
	Light   LightSensor
	Env     EnvSensor
	Timeout time.Duration
}

var headerLog = log.WithField("component", "header")

// CaptureHeader implements HeaderSource. Sensor failures are logged and
// leave the affected fields zero; the header is always produced so block
// placement stays intact.
func (p *Capture) CaptureHeader() Header {
	var h Header

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	if w, err := timecode.Encode(timecode.FromTime(now())); err != nil {
		headerLog.Warnf("time not representable, writing zero timestamp: %v", err)
	} else {
		h.Time = w
	}

	if p.Light != nil {
		ctx, cancel := p.context()
		vis, ir, err := p.Light.ReadADC(ctx)
		cancel()
		if err != nil {
			headerLog.Warnf("light sensor read: %v", err)
		} else {
			h.Visible, h.IR = vis, ir
		}
	}

	if p.Env != nil {
		ctx, cancel := p.context()
		s, err := p.Env.ReadEnv(ctx)
		cancel()
		if err != nil {
			headerLog.Warnf("environment read: %v", err)
		} else {
			f := s.Fixed()
			h.Temperature, h.Pressure, h.Humidity = f.Temperature, f.Pressure, f.Humidity
		}
	}

	headerLog.Tracef("captured header %+v", h)
	return h
}

func (p *Capture) context() (context.Context, context.CancelFunc) {
	if p.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), p.Timeout)
}
