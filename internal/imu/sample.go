// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import "fmt"

// Sample is the latest raw IMU reading shown on the display.
type Sample struct {
	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`

	Temp int16 `json:"temp"` // raw die temperature
}

// FromFIFOTail builds a sample from the last six values drained from the
// FIFO (accel xyz, gyro xyz) and a separately read temperature.
func FromFIFOTail(fifo []int16, temp int16) (Sample, bool) {
	if len(fifo) < 6 {
		return Sample{}, false
	}
	t := fifo[len(fifo)-6:]
	return Sample{
		Ax: t[0], Ay: t[1], Az: t[2],
		Gx: t[3], Gy: t[4], Gz: t[5],
		Temp: temp,
	}, true
}

// Reading is a Sample in physical units.
type Reading struct {
	Ax   float64 `json:"ax"` // m/s^2
	Ay   float64 `json:"ay"`
	Az   float64 `json:"az"`
	Gx   float64 `json:"gx"` // deg/s
	Gy   float64 `json:"gy"`
	Gz   float64 `json:"gz"`
	Temp float64 `json:"temp"` // degC
}

// Values returns the seven readable values in sample order.
func (r Reading) Values() [7]float64 {
	return [7]float64{r.Ax, r.Ay, r.Az, r.Gx, r.Gy, r.Gz, r.Temp}
}

const gravity = 9.80665

var (
	accelLSBPerG  = [4]float64{16384, 8192, 4096, 2048}
	gyroLSBPerDeg = [4]float64{131, 65.5, 32.8, 16.4}
)

// Scale converts raw MPU9250 counts for the configured full-scale ranges.
// AccelRange: 0=±2g, 1=±4g, 2=±8g, 3=±16g.
// GyroRange: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s.
type Scale struct {
	AccelRange byte
	GyroRange  byte
}

func (sc Scale) check() error {
	if sc.AccelRange > 3 || sc.GyroRange > 3 {
		return fmt.Errorf("imu: invalid scale accel=%d gyro=%d", sc.AccelRange, sc.GyroRange)
	}
	return nil
}

// ToReadable converts s to physical units. An invalid scale falls back to the
// power-on ranges (±2g, ±250°/s).
func (sc Scale) ToReadable(s Sample) Reading {
	if sc.check() != nil {
		sc = Scale{}
	}
	a := gravity / accelLSBPerG[sc.AccelRange]
	g := 1 / gyroLSBPerDeg[sc.GyroRange]
	return Reading{
		Ax:   float64(s.Ax) * a,
		Ay:   float64(s.Ay) * a,
		Az:   float64(s.Az) * a,
		Gx:   float64(s.Gx) * g,
		Gy:   float64(s.Gy) * g,
		Gz:   float64(s.Gz) * g,
		Temp: TempCelsius(s.Temp),
	}
}

// TempCelsius converts the raw die temperature.
func TempCelsius(raw int16) float64 {
	return float64(raw)/333.87 + 21
}

// RawAccel converts m/s^2 back to counts for the given range.
func (sc Scale) RawAccel(ms2 float64) int16 {
	if sc.check() != nil {
		sc = Scale{}
	}
	v := ms2 / gravity * accelLSBPerG[sc.AccelRange]
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	}
	return int16(v)
}
