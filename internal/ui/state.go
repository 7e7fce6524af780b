// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package ui is the tap driven display state machine.
package ui

import (
	"fmt"

	"github.com/relabs-tech/platypus/internal/imu"
)

// State is a display state.
type State int32

const (
	// NoChange is returned by the tap handler when an event is ignored.
	NoChange State = iota
	Init
	Off
	Clock
	MenuBack
	MenuWifi
	MenuBt
	MenuSave
	MenuStats
	MenuConfig
	Stats
	Config
	Idle
)

var stateNames = [...]string{
	NoChange:   "NoChange",
	Init:       "Init",
	Off:        "Off",
	Clock:      "Clock",
	MenuBack:   "MenuBack",
	MenuWifi:   "MenuWifi",
	MenuBt:     "MenuBt",
	MenuSave:   "MenuSave",
	MenuStats:  "MenuStats",
	MenuConfig: "MenuConfig",
	Stats:      "Stats",
	Config:     "Config",
	Idle:       "Idle",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// MarshalText renders the state name in JSON status payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("ui: unknown state %q", b)
}

// menuRow is the pointer row of a menu state, or -1.
func (s State) menuRow() int {
	if s >= MenuBack && s <= MenuConfig {
		return int(s - MenuBack)
	}
	return -1
}

// ring is the tap successor of every state that reacts to taps.
var ring = map[State]State{
	Off:        Clock,
	Clock:      MenuBack,
	MenuBack:   MenuWifi,
	MenuWifi:   MenuBt,
	MenuBt:     MenuSave,
	MenuSave:   MenuStats,
	MenuStats:  MenuConfig,
	MenuConfig: MenuBack,
	Stats:      MenuBack,
	Config:     MenuBack,
}

// Tap limits: the device must be lying flat and still.
const (
	tapMaxXY = 1.0 // m/s^2
	tapMinZ  = 9.0 // m/s^2
)

// NextOnTap returns the state a tap moves current to, or NoChange when the
// tap is rejected or current ignores taps.
func NextOnTap(current State, r imu.Reading) State {
	if r.Ax > tapMaxXY || r.Ax < -tapMaxXY {
		return NoChange
	}
	if r.Ay > tapMaxXY || r.Ay < -tapMaxXY {
		return NoChange
	}
	if r.Az < tapMinZ {
		return NoChange
	}
	next, ok := ring[current]
	if !ok {
		return NoChange
	}
	return next
}
