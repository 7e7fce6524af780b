// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"fmt"
	"image"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// SSD1306 returns an Opener for an SSD1306 panel on bus. Each Init sends the
// controller's full power-up sequence.
func SSD1306(bus i2c.Bus, w, h int) Opener {
	return func() (Panel, error) {
		opts := ssd1306.DefaultOpts
		opts.W, opts.H = w, h
		dev, err := ssd1306.NewI2C(bus, &opts)
		if err != nil {
			return nil, fmt.Errorf("ssd1306 %dx%d: %w", w, h, err)
		}
		return dev, nil
	}
}

// Memory is a Panel that keeps the last frame. It backs headless runs and
// tests.
type Memory struct {
	mu     sync.Mutex
	rect   image.Rectangle
	frame  *image1bit.VerticalLSB
	frames int
	halted bool
}

// NewMemory returns a w×h memory panel.
func NewMemory(w, h int) *Memory {
	r := image.Rect(0, 0, w, h)
	return &Memory{rect: r, frame: image1bit.NewVerticalLSB(r)}
}

// Opener returns an Opener that always yields m.
func (m *Memory) Opener() Opener {
	return func() (Panel, error) {
		m.mu.Lock()
		m.halted = false
		m.mu.Unlock()
		return m, nil
	}
}

func (m *Memory) Bounds() image.Rectangle { return m.rect }

func (m *Memory) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.frame.Set(x, y, src.At(sp.X+x-r.Min.X, sp.Y+y-r.Min.Y))
		}
	}
	m.frames++
	return nil
}

func (m *Memory) Halt() error {
	m.mu.Lock()
	m.halted = true
	m.mu.Unlock()
	return nil
}

// Frames returns how many frames were drawn.
func (m *Memory) Frames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

// Halted reports whether the panel is powered down.
func (m *Memory) Halted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.halted
}

// Lit counts the pixels that are on in the last frame.
func (m *Memory) Lit() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lit(m.frame)
}

func lit(img *image1bit.VerticalLSB) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.BitAt(x, y) {
				n++
			}
		}
	}
	return n
}
