// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ui

import "strconv"

const (
	menuX      = 5
	menuTop    = 5
	rowHeight  = 10
	valueX     = 15
	countdownX = 64
	countdownY = 100
)

func (m *Machine) drawInit() {
	d := m.d.Display
	if !d.IsActive() {
		if err := d.Init(); err != nil {
			uiLog.Warnf("display init: %v", err)
		}
	}
	d.Clear()
	d.Print("WELCOME TO", 64, 60, true)
	d.Print("PLATYPUS", 64, 70, true)
	m.present()
}

// menuLabels returns the rows, reflecting the radio flags.
func (m *Machine) menuLabels() [6]string {
	wifi, bt := "  Enable WiFi", "  Enable Bluetooth"
	if m.d.Flags.WifiEnabled.Load() {
		wifi = "  Disable WiFi"
	}
	if m.d.Flags.BTEnabled.Load() {
		bt = "  Disable Bluetooth"
	}
	return [6]string{
		"  Back",
		wifi,
		bt,
		"  Save RAM Data",
		"  Display Stats",
		"  Display Config",
	}
}

func (m *Machine) drawMenu(s State) {
	d := m.d.Display
	d.Clear()
	for i, label := range m.menuLabels() {
		d.Print(label, menuX, menuTop+rowHeight*i, false)
	}
	d.Print(">", menuX, menuTop+rowHeight*s.menuRow(), false)
}

func (m *Machine) drawMenuCountdown(s State) {
	m.drawMenu(s)
	m.d.Display.PrintNumber(float64(m.timing.MenuTime-m.elapsed), countdownX, countdownY, 0, true)
	m.present()
}

func (m *Machine) drawStats() {
	d := m.d.Display
	v := m.reading().Values()

	d.Clear()
	d.Print("Accel [m/s^2]:", menuX, 5, false)
	d.PrintNumber(v[0], valueX, 15, 2, false)
	d.PrintNumber(v[1], valueX, 25, 2, false)
	d.PrintNumber(v[2], valueX, 35, 2, false)
	d.Print("Gyro [deg/s]:", menuX, 45, false)
	d.PrintNumber(v[3], valueX, 55, 2, false)
	d.PrintNumber(v[4], valueX, 65, 2, false)
	d.PrintNumber(v[5], valueX, 75, 2, false)
	d.Print("Temp [degC]:", menuX, 85, false)
	d.PrintNumber(v[6], valueX, 95, 2, false)
	d.Print("RAM [Bytes]:", menuX, 105, false)
	d.Print(strconv.Itoa(m.bufferLen()), valueX, 115, false)
	if m.flushFailed() {
		d.Print("!", 120, 5, false)
	}
	m.present()
}

func (m *Machine) drawConfig() {
	d := m.d.Display
	addr := "N/A"
	if m.d.Address != nil {
		if a := m.d.Address(); a != "" {
			addr = a
		}
	}

	d.Clear()
	d.Print("IP:", menuX, 5, false)
	d.Print(addr, valueX, 15, false)
	d.Print("RAM [Bytes]:", menuX, 25, false)
	d.Print(strconv.Itoa(m.bufferLen()), valueX, 35, false)
	if m.flushFailed() {
		d.Print("Flush: FAILED", menuX, 45, false)
	}
	m.present()
}

func (m *Machine) bufferLen() int {
	if m.d.BufferLen == nil {
		return 0
	}
	return m.d.BufferLen()
}

func (m *Machine) flushFailed() bool {
	return m.d.Flush != nil && m.d.Flush.Failed()
}
