// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package env

import "testing"

func TestFixedEncoding(t *testing.T) {
	s := Sample{Temperature: -3.456, Pressure: 101325.4, Humidity: 45.5}
	f := s.Fixed()
	if f.Temperature != -346 || f.Pressure != 101325 || f.Humidity != 46592 {
		t.Fatalf("fixed = %+v", f)
	}
	back := f.Sample()
	if back.Temperature != -3.46 || back.Pressure != 101325 || back.Humidity != 45.5 {
		t.Fatalf("back = %+v", back)
	}
	if z := (Sample{Pressure: -1, Humidity: -2}).Fixed(); z.Pressure != 0 || z.Humidity != 0 {
		t.Fatalf("negative values must clamp, got %+v", z)
	}
}
