// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"errors"
	"testing"
	"time"
)

func TestInitStopCycle(t *testing.T) {
	mem := NewMemory(128, 64)
	s := New(mem.Opener(), 2)
	if s.IsActive() {
		t.Fatal("active before Init")
	}
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	if !s.IsActive() {
		t.Fatal("not active after Init")
	}
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	if s.IsActive() || !mem.Halted() {
		t.Fatal("panel still powered after Stop")
	}
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	if mem.Halted() {
		t.Fatal("panel not re-initialized")
	}
}

func TestInitError(t *testing.T) {
	boom := errors.New("no panel")
	s := New(func() (Panel, error) { return nil, boom }, 2)
	if err := s.Init(); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if s.IsActive() {
		t.Fatal("active after failed Init")
	}
	if err := s.Present(); err != nil {
		t.Fatalf("Present on inactive screen: %v", err)
	}
}

func TestPrintPresentScales(t *testing.T) {
	mem := NewMemory(128, 64)
	s := New(mem.Opener(), 2)
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	s.Print("PLATYPUS", 64, 60, true)
	if lit(s.Snapshot()) == 0 {
		t.Fatal("nothing drawn on the canvas")
	}
	if err := s.Present(); err != nil {
		t.Fatal(err)
	}
	if mem.Frames() != 1 || mem.Lit() == 0 {
		t.Fatalf("frames = %d, lit = %d", mem.Frames(), mem.Lit())
	}

	s.Clear()
	if lit(s.Snapshot()) != 0 {
		t.Fatal("Clear left pixels on")
	}
}

func TestPrintCentered(t *testing.T) {
	s := New(NewMemory(128, 128).Opener(), 2)
	s.Print("AB", 64, 0, true)
	img := s.Snapshot()
	left, right := 0, 0
	for y := 0; y < 13; y++ {
		for x := 0; x < Width; x++ {
			if !img.BitAt(x, y) {
				continue
			}
			if x < 64 {
				left++
			} else {
				right++
			}
		}
	}
	if left == 0 || right == 0 {
		t.Fatalf("text not centered on x=64 (left %d, right %d)", left, right)
	}
}

func TestAnalogClockReplacesHands(t *testing.T) {
	s := New(NewMemory(128, 128).Opener(), 2)
	at := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)
	s.AnalogClock(at, true)
	full := lit(s.Snapshot())
	if full == 0 {
		t.Fatal("clock not drawn")
	}
	// At 3:00 the minute hand points straight up.
	if !s.Snapshot().BitAt(clockCX, clockCY-clockRadius*8/10) {
		t.Fatal("minute hand missing at 12 o'clock")
	}

	s.AnalogClock(at.Add(15*time.Minute), false)
	img := s.Snapshot()
	if img.BitAt(clockCX, clockCY-clockRadius*8/10+1) {
		t.Fatal("old minute hand not erased")
	}
	if !img.BitAt(clockCX+clockRadius*8/10, clockCY) {
		t.Fatal("minute hand missing at 3 o'clock")
	}
}

func TestBatteryCharge(t *testing.T) {
	s := New(NewMemory(128, 128).Opener(), 2)
	s.BatteryCharge(0)
	empty := lit(s.Snapshot())
	s.BatteryCharge(100)
	if lit(s.Snapshot()) <= empty {
		t.Fatal("full battery draws no more than empty")
	}
	s.BatteryCharge(250)
}

func TestIsRefreshedOnMinuteChange(t *testing.T) {
	s := New(NewMemory(128, 64).Opener(), 2)
	now := time.Date(2024, 5, 1, 10, 0, 5, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	if !s.IsRefreshed() {
		t.Fatal("first call should report a refresh")
	}
	now = now.Add(10 * time.Second)
	if s.IsRefreshed() {
		t.Fatal("refresh within the same minute")
	}
	now = now.Add(time.Minute)
	if !s.IsRefreshed() {
		t.Fatal("no refresh after the minute changed")
	}
}
