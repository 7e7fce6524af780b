// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/relabs-tech/platypus/internal/env"
	"github.com/relabs-tech/platypus/internal/logbuf"
	"github.com/relabs-tech/platypus/internal/timecode"
)

func testLog(t *testing.T) []byte {
	t.Helper()
	word, err := timecode.Encode(timecode.FromTime(time.Date(2026, 3, 1, 12, 30, 5, 0, time.UTC)))
	if err != nil {
		t.Fatal(err)
	}
	fixed := env.Sample{Temperature: 21.5, Pressure: 101325, Humidity: 40}.Fixed()
	h := logbuf.Header{
		Time: word, Visible: 300, IR: 40,
		Temperature: fixed.Temperature, Pressure: fixed.Pressure, Humidity: fixed.Humidity,
	}
	b := h.AppendTo(nil)
	for _, v := range []int16{1, 2, 3, 4, 5, 6, -1, -2, -3, -4, -5, -6} {
		b = append(b, byte(uint16(v)>>8), byte(v))
	}
	return b
}

func TestDumpHeaders(t *testing.T) {
	var out bytes.Buffer
	n, err := dump(&out, bytes.NewReader(testLog(t)), dumpOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if n != 12 {
		t.Fatalf("values = %d, want 12", n)
	}
	line := out.String()
	for _, want := range []string{"2026-03-01 12:30:05", "light=300/40", "T=21.50C", "P=101325Pa", "H=40.00%", "n=12"} {
		if !strings.Contains(line, want) {
			t.Errorf("output missing %q: %s", want, line)
		}
	}
	if strings.Count(line, "\n") != 1 {
		t.Errorf("samples printed without --samples:\n%s", line)
	}
}

func TestDumpSamples(t *testing.T) {
	var out bytes.Buffer
	if _, err := dump(&out, bytes.NewReader(testLog(t)), dumpOpts{samples: true}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d:\n%s", len(lines), out.String())
	}
	if f := strings.Fields(lines[2]); len(f) != 6 || f[0] != "-1" || f[5] != "-6" {
		t.Fatalf("second sample = %q", lines[2])
	}
}
