// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package logbuf implements the in-memory datalog stream: two growable byte
// buffers of which exactly one receives appends, with a header record placed
// at every multiple of BlockSize.
package logbuf

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrSlotBusy is returned by Swap when the idle slot has not been released
// by the flush path yet.
var ErrSlotBusy = errors.New("buffer slot still handed out for flush")

// HeaderSource captures a header record. It is called synchronously from the
// append path and must not block for longer than its hardware timeouts.
type HeaderSource interface {
	CaptureHeader() Header
}

// HeaderFunc adapts a function to HeaderSource.
type HeaderFunc func() Header

func (f HeaderFunc) CaptureHeader() Header { return f() }

// DoubleBuffer owns two log buffers. Appends and Swap must come from a single
// goroutine (the acquisition loop); Len and Release are safe from any
// goroutine.
type DoubleBuffer struct {
	mu        sync.Mutex
	slots     [2][]byte
	handedOut [2]bool
	active    int

	activeLen atomic.Int64
	headers   HeaderSource
}

// NewDoubleBuffer returns an empty double buffer with slot 0 active.
func NewDoubleBuffer(headers HeaderSource) *DoubleBuffer {
	if headers == nil {
		headers = HeaderFunc(func() Header { return Header{} })
	}
	return &DoubleBuffer{headers: headers}
}

// Active returns the index of the slot receiving appends.
func (d *DoubleBuffer) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Len returns the length of the active slot without taking the append lock.
func (d *DoubleBuffer) Len() int {
	return int(d.activeLen.Load())
}

// AppendByte appends one byte to the active slot.
func (d *DoubleBuffer) AppendByte(b byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.headerIfDue()
	d.slots[d.active] = append(d.slots[d.active], b)
	d.publishLen()
}

// AppendInt16 appends v as a big-endian pair.
func (d *DoubleBuffer) AppendInt16(v int16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.appendInt16(v)
	d.publishLen()
}

// AppendSamples appends every value in order, inserting headers as due.
func (d *DoubleBuffer) AppendSamples(vs []int16) {
	if len(vs) == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, v := range vs {
		d.appendInt16(v)
	}
	d.publishLen()
}

func (d *DoubleBuffer) appendInt16(v int16) {
	d.headerIfDue()
	d.slots[d.active] = append(d.slots[d.active], byte(uint16(v)>>8), byte(v))
}

// headerIfDue writes a header when the active slot length is a multiple of
// BlockSize, so placement depends only on the byte count.
func (d *DoubleBuffer) headerIfDue() {
	if len(d.slots[d.active])%BlockSize == 0 {
		d.slots[d.active] = d.headers.CaptureHeader().AppendTo(d.slots[d.active])
	}
}

func (d *DoubleBuffer) publishLen() {
	d.activeLen.Store(int64(len(d.slots[d.active])))
}

// Swap makes the idle slot active and marks the previously active slot as
// handed out. It returns the index of the vacated slot.
func (d *DoubleBuffer) Swap() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	next := 1 - d.active
	if d.handedOut[next] {
		return d.active, ErrSlotBusy
	}
	vacated := d.active
	d.handedOut[vacated] = true
	d.active = next
	d.publishLen()
	return vacated, nil
}

// TakeForFlush moves the contents of a handed out slot to the caller and
// resets the slot to empty. The slot stays unavailable until Release.
func (d *DoubleBuffer) TakeForFlush(slot int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if slot != 0 && slot != 1 {
		return nil, fmt.Errorf("logbuf: invalid slot %d", slot)
	}
	if !d.handedOut[slot] {
		return nil, fmt.Errorf("logbuf: slot %d was not handed out", slot)
	}
	data := d.slots[slot]
	d.slots[slot] = nil
	return data, nil
}

// Release hands a slot back so a later Swap may reuse it.
func (d *DoubleBuffer) Release(slot int) {
	if slot != 0 && slot != 1 {
		return
	}
	d.mu.Lock()
	d.handedOut[slot] = false
	d.mu.Unlock()
}

// HandedOut reports whether slot is currently owned by the flush path.
func (d *DoubleBuffer) HandedOut(slot int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slot >= 0 && slot < 2 && d.handedOut[slot]
}

// TakeActive removes the contents of the active slot, leaving it empty.
// Used for the final flush at shutdown.
func (d *DoubleBuffer) TakeActive() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	data := d.slots[d.active]
	d.slots[d.active] = nil
	d.publishLen()
	return data
}
