// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
)

const max17048RegSOC = 0x04

// MAX17048 is the battery fuel gauge.
type MAX17048 struct {
	mu  sync.Mutex
	dev *i2c.Dev
}

// NewMAX17048 binds the gauge at addr. The chip needs no setup.
func NewMAX17048(bus i2c.Bus, addr uint16) *MAX17048 {
	return &MAX17048{dev: &i2c.Dev{Bus: bus, Addr: addr}}
}

// StateOfCharge returns the battery charge in whole percent, clamped to 100.
func (g *MAX17048) StateOfCharge(ctx context.Context) (int, error) {
	return call(ctx, func() (int, error) {
		g.mu.Lock()
		defer g.mu.Unlock()

		var r [2]byte
		if err := g.dev.Tx([]byte{max17048RegSOC}, r[:]); err != nil {
			return 0, fmt.Errorf("fuel gauge SOC: %w", err)
		}
		// High byte is whole percent, low byte 1/256 %.
		pct := int(r[0])
		if pct > 100 {
			pct = 100
		}
		return pct, nil
	})
}
