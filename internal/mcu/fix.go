// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mcu

import (
	"fmt"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

// Fix is a time and position fix forwarded by the MCU.
type Fix struct {
	Time      time.Time `json:"time"`
	Latitude  float64   `json:"lat"` // decimal degrees
	Longitude float64   `json:"lon"` // decimal degrees
	Valid     bool      `json:"valid"`
}

// ParseFix parses an NMEA RMC line. ok is false for lines that are not RMC
// sentences; err is set for malformed sentences.
func ParseFix(line string) (fix Fix, ok bool, err error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return Fix{}, false, nil
	}
	sentence, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, false, fmt.Errorf("nmea: %w", err)
	}
	if sentence.DataType() != nmea.TypeRMC {
		return Fix{}, false, nil
	}
	m := sentence.(nmea.RMC)

	fix = Fix{
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
		Valid:     m.Validity == nmea.ValidRMC && m.Date.Valid && m.Time.Valid,
	}
	if m.Date.Valid && m.Time.Valid {
		fix.Time = time.Date(2000+m.Date.YY, time.Month(m.Date.MM), m.Date.DD,
			m.Time.Hour, m.Time.Minute, m.Time.Second,
			m.Time.Millisecond*int(time.Millisecond), time.UTC)
	}
	return fix, true, nil
}
