// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package logbuf

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/relabs-tech/platypus/internal/env"
	"github.com/relabs-tech/platypus/internal/timecode"
)

const (
	// HeaderSize is the size of one header record.
	HeaderSize = 20
	// SamplesPerBlock is the number of 2-byte values between two headers.
	SamplesPerBlock = 600 * 6
	// BlockSize is the header period in bytes.
	BlockSize = HeaderSize + SamplesPerBlock*2
)

// ErrShortHeader is returned when fewer than HeaderSize bytes are available.
var ErrShortHeader = errors.New("short header record")

// Header is the point-in-time snapshot written at the start of every block.
// All fields are big-endian on disk.
type Header struct {
	Time        uint32 // timecode word
	Visible     uint16 // light sensor channel 0 (visible + IR)
	IR          uint16 // light sensor channel 1 (IR only)
	Temperature int32  // 0.01 °C
	Pressure    uint32 // Pa
	Humidity    uint32 // 1/1024 %RH
}

// AppendTo appends the 20-byte encoding of h to b.
func (h Header) AppendTo(b []byte) []byte {
	b = binary.BigEndian.AppendUint32(b, h.Time)
	b = binary.BigEndian.AppendUint16(b, h.Visible)
	b = binary.BigEndian.AppendUint16(b, h.IR)
	b = binary.BigEndian.AppendUint32(b, uint32(h.Temperature))
	b = binary.BigEndian.AppendUint32(b, h.Pressure)
	b = binary.BigEndian.AppendUint32(b, h.Humidity)
	return b
}

// ParseHeader decodes the first HeaderSize bytes of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrShortHeader, len(b))
	}
	return Header{
		Time:        binary.BigEndian.Uint32(b[0:4]),
		Visible:     binary.BigEndian.Uint16(b[4:6]),
		IR:          binary.BigEndian.Uint16(b[6:8]),
		Temperature: int32(binary.BigEndian.Uint32(b[8:12])),
		Pressure:    binary.BigEndian.Uint32(b[12:16]),
		Humidity:    binary.BigEndian.Uint32(b[16:20]),
	}, nil
}

// Timestamp decodes the packed time field.
func (h Header) Timestamp() timecode.Timestamp {
	return timecode.Decode(h.Time)
}

// Env returns the environmental fields in physical units.
func (h Header) Env() env.Sample {
	return env.Fixed{Temperature: h.Temperature, Pressure: h.Pressure, Humidity: h.Humidity}.Sample()
}
