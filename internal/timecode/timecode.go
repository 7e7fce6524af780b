// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package timecode packs calendar timestamps into the 4-byte word stored in
// datalog header records.
//
// Bit layout (b1 is the most significant byte of the word and the first byte
// written to the log):
//
//	b4: YYYYYYMM  year-2000 (6 bits), month bits 3..2
//	b3: MMDDDDDh  month bits 1..0, day (5 bits), hour bit 4
//	b2: hhhhmmmm  hour bits 3..0, minute bits 5..2
//	b1: mmssssss  minute bits 1..0, second (6 bits)
package timecode

import (
	"errors"
	"fmt"
	"time"
)

const (
	MinYear = 2000
	MaxYear = 2063
)

// ErrOutOfRange is returned when a field does not fit the packed layout.
var ErrOutOfRange = errors.New("timestamp out of range")

// Timestamp is a broken-down calendar time without zone information.
type Timestamp struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
}

// FromTime takes the calendar fields of t in its own location.
func FromTime(t time.Time) Timestamp {
	return Timestamp{
		Year:   t.Year(),
		Month:  int(t.Month()),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

// Time returns ts as a time.Time in loc.
func (ts Timestamp) Time(loc *time.Location) time.Time {
	return time.Date(ts.Year, time.Month(ts.Month), ts.Day, ts.Hour, ts.Minute, ts.Second, 0, loc)
}

func (ts Timestamp) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", ts.Year, ts.Month, ts.Day, ts.Hour, ts.Minute, ts.Second)
}

// Validate reports whether every field is representable.
func (ts Timestamp) Validate() error {
	switch {
	case ts.Year < MinYear || ts.Year > MaxYear:
		return fmt.Errorf("%w: year %d not in %d-%d", ErrOutOfRange, ts.Year, MinYear, MaxYear)
	case ts.Month < 1 || ts.Month > 12:
		return fmt.Errorf("%w: month %d", ErrOutOfRange, ts.Month)
	case ts.Day < 1 || ts.Day > 31:
		return fmt.Errorf("%w: day %d", ErrOutOfRange, ts.Day)
	case ts.Hour < 0 || ts.Hour > 23:
		return fmt.Errorf("%w: hour %d", ErrOutOfRange, ts.Hour)
	case ts.Minute < 0 || ts.Minute > 59:
		return fmt.Errorf("%w: minute %d", ErrOutOfRange, ts.Minute)
	case ts.Second < 0 || ts.Second > 59:
		return fmt.Errorf("%w: second %d", ErrOutOfRange, ts.Second)
	}
	return nil
}

// Encode packs ts. Out of range fields are rejected, not masked.
func Encode(ts Timestamp) (uint32, error) {
	if err := ts.Validate(); err != nil {
		return 0, err
	}
	year := uint32(ts.Year - MinYear)
	month := uint32(ts.Month)
	day := uint32(ts.Day)
	hour := uint32(ts.Hour)
	minute := uint32(ts.Minute)
	second := uint32(ts.Second)

	b4 := year<<2 | month>>2
	b3 := (month&0x03)<<6 | day<<1 | hour>>4
	b2 := (hour&0x0F)<<4 | minute>>2
	b1 := (minute&0x03)<<6 | second

	return b1<<24 | b2<<16 | b3<<8 | b4, nil
}

// Decode unpacks a word produced by Encode. No validation is applied so
// corrupt words decode to whatever fields they carry.
func Decode(w uint32) Timestamp {
	b1 := w >> 24 & 0xFF
	b2 := w >> 16 & 0xFF
	b3 := w >> 8 & 0xFF
	b4 := w & 0xFF

	return Timestamp{
		Year:   int(b4>>2) + MinYear,
		Month:  int((b4&0x03)<<2 | b3>>6),
		Day:    int(b3 >> 1 & 0x1F),
		Hour:   int((b3&0x01)<<4 | b2>>4),
		Minute: int((b2&0x0F)<<2 | b1>>6),
		Second: int(b1 & 0x3F),
	}
}

// Bytes returns w in log byte order (big-endian).
func Bytes(w uint32) [4]byte {
	return [4]byte{byte(w >> 24), byte(w >> 16), byte(w >> 8), byte(w)}
}

// FromBytes is the inverse of Bytes.
func FromBytes(b [4]byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
