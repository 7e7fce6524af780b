// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package display renders the UI on a 1-bit panel. Screens are laid out on a
// fixed logical canvas and scaled to the panel on Present.
package display

import (
	"fmt"
	"image"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Logical canvas size. Screen coordinates passed to Print and friends are in
// this space.
const (
	Width  = 128
	Height = 128
)

// Panel is a physical 1-bit display.
type Panel interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
}

// Opener powers up a panel.
type Opener func() (Panel, error)

// Screen draws on the logical canvas and pushes frames to a Panel.
type Screen struct {
	mu    sync.Mutex
	open  Opener
	panel Panel

	canvas *image1bit.VerticalLSB
	frame  *image1bit.VerticalLSB
	face   font.Face

	hands     int
	lastHands []segment
	now       func() time.Time
	lastMin   int
}

var dispLog = log.WithField("component", "display")

// New returns a screen that opens its panel through open on Init. hands is 2
// (hour, minute) or 3 (with seconds).
func New(open Opener, hands int) *Screen {
	if hands != 3 {
		hands = 2
	}
	return &Screen{
		open:    open,
		canvas:  image1bit.NewVerticalLSB(image.Rect(0, 0, Width, Height)),
		face:    basicfont.Face7x13,
		hands:   hands,
		now:     time.Now,
		lastMin: -1,
	}
}

// Init powers the panel up. Calling it on an active screen is a no-op.
func (s *Screen) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panel != nil {
		return nil
	}
	p, err := s.open()
	if err != nil {
		return fmt.Errorf("display init: %w", err)
	}
	s.panel = p
	b := p.Bounds()
	s.frame = image1bit.NewVerticalLSB(image.Rect(0, 0, b.Dx(), b.Dy()))
	s.lastHands = nil
	dispLog.Debugf("panel up (%dx%d)", b.Dx(), b.Dy())
	return nil
}

// Stop powers the panel down.
func (s *Screen) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panel == nil {
		return nil
	}
	err := s.panel.Halt()
	s.panel = nil
	if err != nil {
		return fmt.Errorf("display halt: %w", err)
	}
	return nil
}

// IsActive reports whether the panel is powered.
func (s *Screen) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panel != nil
}

// Clear blanks the canvas.
func (s *Screen) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.canvas.Pix)
	s.lastHands = nil
}

// Present scales the canvas onto the panel.
func (s *Screen) Present() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panel == nil {
		return nil
	}
	clear(s.frame.Pix)
	draw.NearestNeighbor.Scale(s.frame, s.frame.Bounds(), s.canvas, s.canvas.Bounds(), draw.Over, nil)
	if err := s.panel.Draw(s.panel.Bounds(), s.frame, image.Point{}); err != nil {
		return fmt.Errorf("display draw: %w", err)
	}
	return nil
}

// Print draws text with its top edge at y. When centered, x is the
// horizontal middle of the text.
func (s *Screen) Print(text string, x, y int, centered bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.print(text, x, y, centered, image1bit.On)
}

// PrintNumber prints v with precision decimals.
func (s *Screen) PrintNumber(v float64, x, y, precision int, centered bool) {
	s.Print(strconv.FormatFloat(v, 'f', precision, 64), x, y, centered)
}

func (s *Screen) print(text string, x, y int, centered bool, c image1bit.Bit) {
	d := &font.Drawer{
		Dst:  s.canvas,
		Src:  &image.Uniform{c},
		Face: s.face,
	}
	if centered {
		x -= d.MeasureString(text).Round() / 2
	}
	d.Dot = fixed.P(x, y+s.face.Metrics().Ascent.Round())
	d.DrawString(text)
}

// IsRefreshed reports whether the wall clock minute changed since the last
// call.
func (s *Screen) IsRefreshed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.now().Minute()
	if m == s.lastMin {
		return false
	}
	s.lastMin = m
	return true
}

// SetClock replaces the time source used by IsRefreshed.
func (s *Screen) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Snapshot returns a copy of the logical canvas.
func (s *Screen) Snapshot() *image1bit.VerticalLSB {
	s.mu.Lock()
	defer s.mu.Unlock()
	img := image1bit.NewVerticalLSB(s.canvas.Bounds())
	copy(img.Pix, s.canvas.Pix)
	return img
}
