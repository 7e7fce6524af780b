// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
)

// TSL2561 command bytes.
const (
	tslCmdControl = 0x80
	tslPowerOn    = 0x03
	tslCmdData0   = 0xAC // word read, channel 0 (visible+IR)
	tslCmdData1   = 0xAE // word read, channel 1 (IR)
)

// TSL2561 reads the two ADC channels of the ambient light sensor.
type TSL2561 struct {
	mu  sync.Mutex
	dev *i2c.Dev
}

// NewTSL2561 powers the sensor on.
func NewTSL2561(bus i2c.Bus, addr uint16) (*TSL2561, error) {
	t := &TSL2561{dev: &i2c.Dev{Bus: bus, Addr: addr}}
	if err := t.dev.Tx([]byte{tslCmdControl, tslPowerOn}, nil); err != nil {
		return nil, fmt.Errorf("light sensor power on (0x%02X): %w", addr, err)
	}
	return t, nil
}

type adcPair struct{ vis, ir uint16 }

// ReadADC returns channel 0 (visible+IR) and channel 1 (IR).
func (t *TSL2561) ReadADC(ctx context.Context) (uint16, uint16, error) {
	p, err := call(ctx, func() (adcPair, error) {
		t.mu.Lock()
		defer t.mu.Unlock()

		vis, err := t.word(tslCmdData0)
		if err != nil {
			return adcPair{}, fmt.Errorf("light channel 0: %w", err)
		}
		ir, err := t.word(tslCmdData1)
		if err != nil {
			return adcPair{}, fmt.Errorf("light channel 1: %w", err)
		}
		return adcPair{vis, ir}, nil
	})
	return p.vis, p.ir, err
}

func (t *TSL2561) word(cmd byte) (uint16, error) {
	var r [2]byte
	if err := t.dev.Tx([]byte{cmd}, r[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(r[:]), nil
}
