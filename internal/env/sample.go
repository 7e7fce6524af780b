// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package env

import "math"

// Sample represents a single environmental measurement (BME280).
type Sample struct {
	Temperature float64 `json:"temp_c"`      // °C
	Pressure    float64 `json:"pressure_pa"` // Pa
	Humidity    float64 `json:"humidity_rh"` // %RH
}

// Fixed is the header record encoding of a Sample.
type Fixed struct {
	Temperature int32  // 0.01 °C
	Pressure    uint32 // Pa
	Humidity    uint32 // 1/1024 %RH
}

// Fixed converts s to the header record encoding. Negative pressure and
// humidity clamp to zero.
func (s Sample) Fixed() Fixed {
	return Fixed{
		Temperature: int32(math.Round(s.Temperature * 100)),
		Pressure:    uint32(math.Round(math.Max(s.Pressure, 0))),
		Humidity:    uint32(math.Round(math.Max(s.Humidity, 0) * 1024)),
	}
}

// Sample is the inverse of Sample.Fixed.
func (f Fixed) Sample() Sample {
	return Sample{
		Temperature: float64(f.Temperature) / 100,
		Pressure:    float64(f.Pressure),
		Humidity:    float64(f.Humidity) / 1024,
	}
}
