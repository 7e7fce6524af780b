// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package orientation derives the wrist tilt from the accelerometer.
package orientation

import (
	"math"

	"github.com/relabs-tech/platypus/internal/imu"
)

// Tilt is roll and pitch in degrees. Heading needs a magnetometer and is
// not reported.
type Tilt struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
}

// FromAccel computes the tilt from a gravity vector in any unit:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func FromAccel(ax, ay, az float64) Tilt {
	return Tilt{
		Roll:  math.Atan2(ay, az) * 180 / math.Pi,
		Pitch: math.Atan2(-ax, math.Sqrt(ay*ay+az*az)) * 180 / math.Pi,
	}
}

// FromReading is FromAccel on the accelerometer part of r.
func FromReading(r imu.Reading) Tilt {
	return FromAccel(r.Ax, r.Ay, r.Az)
}

