// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"testing"

	"github.com/relabs-tech/platypus/internal/imu"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestFromAccel(t *testing.T) {
	cases := []struct {
		name        string
		ax, ay, az  float64
		roll, pitch float64
	}{
		{"flat", 0, 0, 9.81, 0, 0},
		{"rolled right", 0, 9.81, 0, 90, 0},
		{"nose down", -1, 0, 1, 0, 45},
		{"upside down", 0, 0, -1, 180, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := FromAccel(c.ax, c.ay, c.az)
			if !near(got.Roll, c.roll) || !near(got.Pitch, c.pitch) {
				t.Fatalf("got %+v, want roll=%v pitch=%v", got, c.roll, c.pitch)
			}
		})
	}
}

func TestFromReading(t *testing.T) {
	got := FromReading(imu.Reading{Ax: 0, Ay: 1, Az: 1, Gx: 500})
	if !near(got.Roll, 45) || !near(got.Pitch, 0) {
		t.Fatalf("got %+v", got)
	}
}
