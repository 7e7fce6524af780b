// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"math"
	"strconv"
	"time"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

const (
	clockCX     = Width / 2
	clockCY     = Height/2 + 6
	clockRadius = 50
)

type segment struct{ x0, y0, x1, y1 int }

// AnalogClock draws the clock hands for now. A full redraw clears the canvas
// and draws the dial first; otherwise only the hands are replaced.
func (s *Screen) AnalogClock(now time.Time, full bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if full {
		clear(s.canvas.Pix)
		s.lastHands = nil
		s.dial()
	}
	for _, h := range s.lastHands {
		s.line(h, image1bit.Off)
	}

	minute := float64(now.Minute()) + float64(now.Second())/60
	hour := float64(now.Hour()%12) + minute/60
	hands := []segment{
		hand(hour/12, clockRadius*5/10),
		hand(minute/60, clockRadius*8/10),
	}
	if s.hands == 3 {
		hands = append(hands, hand(float64(now.Second())/60, clockRadius*9/10))
	}
	for _, h := range hands {
		s.line(h, image1bit.On)
	}
	s.lastHands = hands
}

func hand(frac float64, length int) segment {
	a := frac*2*math.Pi - math.Pi/2
	return segment{
		x0: clockCX, y0: clockCY,
		x1: clockCX + int(math.Round(float64(length)*math.Cos(a))),
		y1: clockCY + int(math.Round(float64(length)*math.Sin(a))),
	}
}

func (s *Screen) dial() {
	s.circle(clockCX, clockCY, clockRadius)
	for i := 0; i < 12; i++ {
		a := float64(i)/12*2*math.Pi - math.Pi/2
		in := clockRadius - 4
		if i%3 == 0 {
			in = clockRadius - 8
		}
		s.line(segment{
			x0: clockCX + int(math.Round(float64(in)*math.Cos(a))),
			y0: clockCY + int(math.Round(float64(in)*math.Sin(a))),
			x1: clockCX + int(math.Round(clockRadius*math.Cos(a))),
			y1: clockCY + int(math.Round(clockRadius*math.Sin(a))),
		}, image1bit.On)
	}
}

// BatteryCharge draws the battery glyph and percentage in the top right
// corner.
func (s *Screen) BatteryCharge(pct int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pct = max(0, min(pct, 100))
	const x0, y0, w, h = Width - 26, 1, 22, 9
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w+2; x++ {
			s.canvas.SetBit(x, y, image1bit.Off)
		}
	}
	s.rect(x0, y0, w, h)
	for y := y0 + 3; y < y0+h-3; y++ {
		s.canvas.SetBit(x0+w, y, image1bit.On)
		s.canvas.SetBit(x0+w+1, y, image1bit.On)
	}
	fill := (w - 4) * pct / 100
	for y := y0 + 2; y < y0+h-2; y++ {
		for x := x0 + 2; x < x0+2+fill; x++ {
			s.canvas.SetBit(x, y, image1bit.On)
		}
	}

	label := strconv.Itoa(pct) + "%"
	s.eraseText(label, x0-2-len(label)*7, y0-1)
	s.print(label, x0-2-len(label)*7, y0-1, false, image1bit.On)
}

func (s *Screen) eraseText(text string, x, y int) {
	for yy := y; yy < y+13; yy++ {
		for xx := x; xx < x+len(text)*7; xx++ {
			s.canvas.SetBit(xx, yy, image1bit.Off)
		}
	}
}

func (s *Screen) rect(x0, y0, w, h int) {
	for x := x0; x < x0+w; x++ {
		s.canvas.SetBit(x, y0, image1bit.On)
		s.canvas.SetBit(x, y0+h-1, image1bit.On)
	}
	for y := y0; y < y0+h; y++ {
		s.canvas.SetBit(x0, y, image1bit.On)
		s.canvas.SetBit(x0+w-1, y, image1bit.On)
	}
}

// line is Bresenham's algorithm.
func (s *Screen) line(l segment, c image1bit.Bit) {
	x0, y0, x1, y1 := l.x0, l.y0, l.x1, l.y1
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		s.canvas.SetBit(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// circle is the midpoint circle algorithm.
func (s *Screen) circle(cx, cy, r int) {
	x, y, d := r, 0, 1-r
	for x >= y {
		for _, p := range [8][2]int{
			{x, y}, {y, x}, {-y, x}, {-x, y},
			{-x, -y}, {-y, -x}, {y, -x}, {x, -y},
		} {
			s.canvas.SetBit(cx+p[0], cy+p[1], image1bit.On)
		}
		y++
		if d < 0 {
			d += 2*y + 1
		} else {
			x--
			d += 2*(y-x) + 1
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
