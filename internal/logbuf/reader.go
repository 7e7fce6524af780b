// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package logbuf

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Block is one header record followed by its samples.
type Block struct {
	Offset  int64
	Header  Header
	Samples []int16
}

// ReadBlocks walks a datalog stream and calls fn for every block in order.
// The last block may hold fewer than SamplesPerBlock values.
func ReadBlocks(r io.Reader, fn func(Block) error) error {
	br := bufio.NewReaderSize(r, BlockSize)
	var off int64
	hdr := make([]byte, HeaderSize)
	body := make([]byte, SamplesPerBlock*2)

	for {
		n, err := io.ReadFull(br, hdr)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("block at %d: %w (%d header bytes)", off, ErrShortHeader, n)
		}
		h, _ := ParseHeader(hdr)

		n, err = io.ReadFull(br, body)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && err != io.EOF {
			return fmt.Errorf("block at %d: %w", off, err)
		}
		if n%2 != 0 {
			return fmt.Errorf("block at %d: odd sample payload of %d bytes", off, n)
		}

		samples := make([]int16, n/2)
		for i := range samples {
			samples[i] = int16(binary.BigEndian.Uint16(body[2*i:]))
		}
		if err := fn(Block{Offset: off, Header: h, Samples: samples}); err != nil {
			return err
		}
		off += int64(HeaderSize + n)
		if n < len(body) {
			return nil
		}
	}
}
