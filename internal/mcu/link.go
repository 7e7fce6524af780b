// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package mcu polls the serial link to the companion microcontroller.
package mcu

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
	log "github.com/sirupsen/logrus"
)

// Open opens the MCU serial port. Reads return after readTimeout without
// data so the reader never hangs on a silent link.
func Open(port string, baud uint, readTimeout time.Duration) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:              port,
		BaudRate:              baud,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       0,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: uint(readTimeout / time.Millisecond),
	}
	rwc, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open MCU link %s: %w", port, err)
	}
	return rwc, nil
}

// Discipliner accepts a reference time.
type Discipliner interface {
	Discipline(ref time.Time) time.Duration
}

// Poller reads lines from the link on its own goroutine and handles them
// every poll interval.
type Poller struct {
	link     io.ReadCloser
	clock    Discipliner
	interval time.Duration
	onFix    func(Fix)

	lines chan string
}

var mcuLog = log.WithField("component", "mcu")

// NewPoller wires a poller. clock and onFix may be nil.
func NewPoller(link io.ReadCloser, clock Discipliner, interval time.Duration, onFix func(Fix)) *Poller {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Poller{
		link:     link,
		clock:    clock,
		interval: interval,
		onFix:    onFix,
		lines:    make(chan string, 64),
	}
}

// Run polls until ctx is done, then closes the link.
func (p *Poller) Run(ctx context.Context) {
	go p.read()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	mcuLog.Infof("peripheral poller started (interval %s)", p.interval)
	for {
		select {
		case <-ctx.Done():
			if err := p.link.Close(); err != nil {
				mcuLog.Warnf("close link: %v", err)
			}
			mcuLog.Info("peripheral poller stopped")
			return
		case <-ticker.C:
			p.drain()
		}
	}
}

func (p *Poller) read() {
	r := bufio.NewReader(p.link)
	for {
		line, err := r.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			select {
			case p.lines <- line:
			default:
				mcuLog.Debug("line dropped, poller behind")
			}
		}
		if err == io.EOF {
			// timed out read on an idle link
			time.Sleep(p.interval)
			continue
		}
		if err != nil {
			mcuLog.Debugf("reader stopped: %v", err)
			return
		}
	}
}

func (p *Poller) drain() {
	for {
		select {
		case line := <-p.lines:
			p.handle(line)
		default:
			return
		}
	}
}

func (p *Poller) handle(line string) {
	fix, ok, err := ParseFix(line)
	switch {
	case err != nil:
		mcuLog.Debugf("bad sentence %q: %v", line, err)
		return
	case !ok:
		mcuLog.Debugf("line: %s", line)
		return
	}
	if p.onFix != nil {
		p.onFix(fix)
	}
	if fix.Valid && p.clock != nil {
		off := p.clock.Discipline(fix.Time)
		mcuLog.Debugf("clock disciplined to %s (offset %s)", fix.Time.Format(time.RFC3339), off)
	}
}
