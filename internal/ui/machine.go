// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ui

import (
	"context"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/platypus/internal/imu"
	"github.com/relabs-tech/platypus/internal/runstate"
)

// Display is the panel the machine renders on. Coordinates are on a
// 128x128 canvas.
type Display interface {
	Init() error
	Stop() error
	IsActive() bool
	Clear()
	Present() error
	Print(text string, x, y int, centered bool)
	PrintNumber(v float64, x, y, precision int, centered bool)
	AnalogClock(now time.Time, full bool)
	BatteryCharge(pct int)
	IsRefreshed() bool
}

// Battery reports the state of charge in percent.
type Battery interface {
	StateOfCharge(ctx context.Context) (int, error)
}

// Radios switches the wireless radios. Calls must not block.
type Radios interface {
	SetWifi(enabled bool)
	SetBluetooth(enabled bool)
}

// Timing holds the state durations in ticks.
type Timing struct {
	MenuTime     int
	ClockTimeout int
	InitTime     int
}

// DefaultTiming matches a one second tick.
var DefaultTiming = Timing{MenuTime: 5, ClockTimeout: 180, InitTime: 5}

// Deps are the collaborators of the machine. Battery and Radios may be nil.
type Deps struct {
	Display   Display
	Battery   Battery
	Radios    Radios
	Flags     *runstate.Flags
	Latest    *runstate.Latest
	Flush     *runstate.FlushStatus
	Scale     imu.Scale
	BufferLen func() int
	Address   func() string
	Now       func() time.Time
	// Timeout bounds each battery read.
	Timeout time.Duration
}

// Machine is the display state machine. Tick, HandleTap and Run must be
// called from one goroutine; State and Tap are safe from any goroutine.
type Machine struct {
	d      Deps
	timing Timing

	state    State
	entering bool
	elapsed  int

	published atomic.Int32
	taps      chan struct{}
}

var uiLog = log.WithField("component", "ui")

// New returns a machine in Init, with the entry screen drawn on the first
// tick.
func New(d Deps, t Timing) *Machine {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Timeout <= 0 {
		d.Timeout = time.Second
	}
	if t.MenuTime <= 0 {
		t.MenuTime = DefaultTiming.MenuTime
	}
	if t.ClockTimeout <= 0 {
		t.ClockTimeout = DefaultTiming.ClockTimeout
	}
	if t.InitTime <= 0 {
		t.InitTime = DefaultTiming.InitTime
	}
	m := &Machine{d: d, timing: t, taps: make(chan struct{}, 8)}
	m.enterNext(Init)
	return m
}

// State returns the current state.
func (m *Machine) State() State {
	return State(m.published.Load())
}

// Elapsed returns the ticks spent waiting in the current state.
func (m *Machine) Elapsed() int { return m.elapsed }

// Tap queues a tap for the Run loop. Taps beyond the queue are dropped.
func (m *Machine) Tap() {
	select {
	case m.taps <- struct{}{}:
	default:
		uiLog.Debug("tap dropped, queue full")
	}
}

// HandleTap applies a tap with the given accelerometer reading and returns
// the new state, or NoChange.
func (m *Machine) HandleTap(r imu.Reading) State {
	next := NextOnTap(m.state, r)
	if next != NoChange {
		uiLog.Debugf("tap: %s -> %s", m.state, next)
		m.enterNext(next)
	}
	return next
}

// enterNext switches to s. The entry screen is drawn on the next tick.
func (m *Machine) enterNext(s State) {
	m.state = s
	m.entering = true
	m.elapsed = 0
	m.published.Store(int32(s))
}

// Tick advances the machine by one tick: the entry action of a freshly
// entered state, otherwise its wait action or its timeout transition.
func (m *Machine) Tick(ctx context.Context) {
	if m.entering {
		m.entering = false
		m.enter(ctx)
		return
	}

	switch s := m.state; s {
	case Init:
		m.wait(m.timing.InitTime, nil, func() { m.enterNext(Off) })
	case Clock:
		m.wait(m.timing.ClockTimeout, func() { m.clockTick(ctx) }, func() { m.enterNext(Off) })
	case MenuBack, MenuWifi, MenuBt, MenuSave, MenuStats, MenuConfig:
		m.wait(m.timing.MenuTime, func() { m.drawMenuCountdown(s) }, func() { m.menuTimeout(s) })
	case Stats:
		m.drawStats()
	case Config:
		m.drawConfig()
	}
}

// wait runs action while fewer than limit ticks elapsed, then timeout.
func (m *Machine) wait(limit int, action, timeout func()) {
	if m.elapsed < limit {
		if action != nil {
			action()
		}
		m.elapsed++
		return
	}
	timeout()
}

func (m *Machine) enter(ctx context.Context) {
	switch s := m.state; s {
	case Init:
		m.drawInit()
	case Off:
		if err := m.d.Display.Stop(); err != nil {
			uiLog.Warnf("display stop: %v", err)
		}
	case Clock:
		m.clockEnter(ctx)
	case MenuBack, MenuWifi, MenuBt, MenuSave, MenuStats, MenuConfig:
		m.drawMenu(s)
		m.present()
	case Stats:
		m.drawStats()
	case Config:
		m.drawConfig()
	}
}

func (m *Machine) menuTimeout(s State) {
	f := m.d.Flags
	switch s {
	case MenuBack:
		m.enterNext(Clock)
		return
	case MenuWifi:
		on := !f.WifiEnabled.Load()
		f.WifiEnabled.Store(on)
		if m.d.Radios != nil {
			m.d.Radios.SetWifi(on)
		}
		uiLog.Infof("WiFi enabled=%v", on)
	case MenuBt:
		on := !f.BTEnabled.Load()
		f.BTEnabled.Store(on)
		if m.d.Radios != nil {
			m.d.Radios.SetBluetooth(on)
		}
		uiLog.Infof("Bluetooth enabled=%v", on)
	case MenuSave:
		f.ForceSave.Store(true)
		uiLog.Info("save requested from menu")
	case MenuStats:
		m.enterNext(Stats)
		return
	case MenuConfig:
		m.enterNext(Config)
		return
	}
	m.enterNext(MenuBack)
}

func (m *Machine) clockEnter(ctx context.Context) {
	disp := m.d.Display
	if !disp.IsActive() {
		if err := disp.Init(); err != nil {
			uiLog.Warnf("display init: %v", err)
		}
	}
	disp.Clear()
	disp.AnalogClock(m.d.Now(), true)
	m.battery(ctx)
	m.present()
}

func (m *Machine) clockTick(ctx context.Context) {
	m.d.Display.AnalogClock(m.d.Now(), false)
	if m.d.Display.IsRefreshed() {
		m.battery(ctx)
	}
	m.present()
}

func (m *Machine) battery(ctx context.Context) {
	if m.d.Battery == nil {
		return
	}
	bctx, cancel := context.WithTimeout(ctx, m.d.Timeout)
	defer cancel()
	pct, err := m.d.Battery.StateOfCharge(bctx)
	if err != nil {
		uiLog.Warnf("battery: %v", err)
		return
	}
	m.d.Display.BatteryCharge(pct)
}

func (m *Machine) present() {
	if err := m.d.Display.Present(); err != nil {
		uiLog.Warnf("display present: %v", err)
	}
}

// reading returns the latest sample in physical units.
func (m *Machine) reading() imu.Reading {
	var s imu.Sample
	if m.d.Latest != nil {
		if snap, ok := m.d.Latest.Load(); ok {
			s = snap.Sample
		}
	}
	return m.d.Scale.ToReadable(s)
}

// Run ticks every interval and applies taps until ctx is done.
func (m *Machine) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	uiLog.Infof("display loop started (interval %s)", interval)
	m.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			if err := m.d.Display.Stop(); err != nil {
				uiLog.Warnf("display stop: %v", err)
			}
			uiLog.Info("display loop stopped")
			return
		case <-m.taps:
			m.HandleTap(m.reading())
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}
