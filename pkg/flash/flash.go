// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package flash defines the contract of a raw NOR flash chip driver and
// provides emulated chips implementing it.
//
// Chips are addressed by absolute byte offsets. Programming can only clear
// bits: writing b over a cell holding c leaves c&b. Erasing a sector sets
// every byte of it back to 0xFF.
package flash

import (
	"errors"
	"fmt"
	"sync"
)

const (
	// SectorSize is the minimum erasable unit.
	SectorSize = 4096

	// MappedStart and MappedEnd delimit the window through which the CPU
	// sees flash. Only the first megabyte is addressable.
	MappedStart  = 0x40200000
	MappedEnd    = 0x40300000
	AddressSpace = MappedEnd - MappedStart

	// Erased is the value of every byte of an erased sector.
	Erased = 0xFF
)

var ErrAddress = errors.New("flash: address out of range")

// Driver is a synchronous flash chip driver.
type Driver interface {
	Read(addr uint32, p []byte) error
	Write(addr uint32, p []byte) error
	EraseSector(sector uint32) error
}

type Op int

const (
	OpRead Op = iota
	OpWrite
	OpErase
)

func (op Op) String() string {
	switch op {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpErase:
		return "erase"
	default:
		return "unknown"
	}
}

// FaultFunc decides whether an operation fails. For OpErase addr is the
// first byte of the sector and n is SectorSize. A nil return lets the
// operation proceed.
type FaultFunc func(op Op, addr uint32, n int) error

// Stats counts the operations that reached the cells.
type Stats struct {
	Reads        uint64
	Writes       uint64
	Erases       uint64
	BytesRead    uint64
	BytesWritten uint64
}

// cells implements program/erase semantics over a byte slice.
type cells struct {
	mu    sync.Mutex
	buf   []byte
	fault FaultFunc
	stats Stats
}

func (c *cells) check(op Op, addr uint32, n int) error {
	if uint64(addr)+uint64(n) > uint64(len(c.buf)) {
		return fmt.Errorf("%s of %d bytes at 0x%x: %w", op, n, addr, ErrAddress)
	}
	if c.fault != nil {
		if err := c.fault(op, addr, n); err != nil {
			return fmt.Errorf("%s of %d bytes at 0x%x: %w", op, n, addr, err)
		}
	}
	return nil
}

func (c *cells) Read(addr uint32, p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.check(OpRead, addr, len(p)); err != nil {
		return err
	}
	copy(p, c.buf[addr:])

	c.stats.Reads++
	c.stats.BytesRead += uint64(len(p))
	return nil
}

func (c *cells) Write(addr uint32, p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.check(OpWrite, addr, len(p)); err != nil {
		return err
	}

	dst := c.buf[addr : int(addr)+len(p)]
	for i, b := range p {
		dst[i] &= b
	}

	c.stats.Writes++
	c.stats.BytesWritten += uint64(len(p))
	return nil
}

func (c *cells) EraseSector(sector uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	addr := uint64(sector) * SectorSize
	if addr+SectorSize > uint64(len(c.buf)) {
		return fmt.Errorf("erase of sector %d: %w", sector, ErrAddress)
	}
	if err := c.check(OpErase, uint32(addr), SectorSize); err != nil {
		return err
	}

	s := c.buf[addr : addr+SectorSize]
	for i := range s {
		s[i] = Erased
	}

	c.stats.Erases++
	return nil
}

// SetFault installs fn as fault injector; nil removes it.
func (c *cells) SetFault(fn FaultFunc) {
	c.mu.Lock()
	c.fault = fn
	c.mu.Unlock()
}

func (c *cells) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Size returns the chip capacity in bytes.
func (c *cells) Size() uint32 {
	return uint32(len(c.buf))
}

func roundToSectors(size uint32) uint32 {
	return (size + SectorSize - 1) / SectorSize * SectorSize
}
