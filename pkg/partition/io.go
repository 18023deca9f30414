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
package partition

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/ostafen/flashpart/pkg/flash"
)

// IO performs bounds-checked partition access on top of a flash driver.
// It does not serialize callers; hold a lock.Guard around sequences that
// must not interleave.
type IO struct {
	drv    flash.Driver
	logger *slog.Logger
}

func NewIO(drv flash.Driver, logger *slog.Logger) *IO {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &IO{
		drv:    drv,
		logger: logger,
	}
}

// CheckBounds translates offset into an absolute flash address, making
// sure that size bytes from there stay inside p.
func CheckBounds(p *Descriptor, offset, size uint32) (uint32, error) {
	return checkBounds(p, offset, uint64(size))
}

func checkBounds(p *Descriptor, offset uint32, size uint64) (uint32, error) {
	start := uint64(p.Address) + uint64(offset)
	end := p.End()

	if start >= end {
		return 0, fmt.Errorf("%w: offset %d, partition %q holds %d bytes", ErrOutOfRange, offset, p.Label, p.Size)
	}
	if start+size > end {
		return 0, fmt.Errorf("%w: %d bytes at offset %d, partition %q holds %d bytes", ErrSizeTooLarge, size, offset, p.Label, p.Size)
	}
	return uint32(start), nil
}

// Read fills dst with the bytes stored at offset in p.
func (pio *IO) Read(p *Descriptor, offset uint32, dst []byte) error {
	start, err := checkBounds(p, offset, uint64(len(dst)))
	if err != nil {
		return err
	}

	if err := pio.drv.Read(start, dst); err != nil {
		return fmt.Errorf("%w: %w", ErrFlash, err)
	}
	return nil
}

// Write programs src at offset in p. The target range is not erased first.
func (pio *IO) Write(p *Descriptor, offset uint32, src []byte) error {
	pio.logger.Debug("write partition", "label", p.Label, "offset", offset, "size", len(src))

	start, err := checkBounds(p, offset, uint64(len(src)))
	if err != nil {
		return err
	}

	if err := pio.drv.Write(start, src); err != nil {
		return fmt.Errorf("%w: %w", ErrFlash, err)
	}
	return nil
}

// EraseRange erases size bytes at offset in p. Both the absolute start and
// size must be whole sectors.
//
// Sectors are erased in ascending order and the first failure stops the
// operation: the content from the failing sector onwards is undefined.
func (pio *IO) EraseRange(p *Descriptor, offset, size uint32) error {
	return pio.EraseRangeFunc(p, offset, size, nil)
}

// EraseRangeFunc is EraseRange, calling progress after each erased sector.
func (pio *IO) EraseRangeFunc(p *Descriptor, offset, size uint32, progress func(erased, total uint32)) error {
	pio.logger.Debug("erase partition range", "label", p.Label, "offset", offset, "size", size)

	start, err := CheckBounds(p, offset, size)
	if err != nil {
		return err
	}
	if start%flash.SectorSize != 0 {
		return fmt.Errorf("%w: erase start 0x%x is not sector aligned", ErrInvalidArg, start)
	}
	if size%flash.SectorSize != 0 {
		return fmt.Errorf("%w: erase size %d is not a multiple of the sector size", ErrInvalidSize, size)
	}

	first := start / flash.SectorSize
	total := size / flash.SectorSize
	for i := uint32(0); i < total; i++ {
		if err := pio.drv.EraseSector(first + i); err != nil {
			pio.logger.Error("sector erase failed", "label", p.Label, "sector", first+i, "err", err)
			return fmt.Errorf("%w: erase sector %d: %w", ErrFail, first+i, err)
		}
		if progress != nil {
			progress(i+1, total)
		}
	}
	return nil
}

// NewSectionReader returns a reader over the whole content of p.
func (pio *IO) NewSectionReader(p *Descriptor) *io.SectionReader {
	return io.NewSectionReader(readerAt{pio: pio, p: p}, 0, int64(p.Size))
}

type readerAt struct {
	pio *IO
	p   *Descriptor
}

func (r readerAt) ReadAt(b []byte, off int64) (int, error) {
	if off < 0 || off >= int64(r.p.Size) {
		return 0, io.EOF
	}

	n := min(int64(len(b)), int64(r.p.Size)-off)
	if err := r.pio.Read(r.p, uint32(off), b[:n]); err != nil {
		return 0, err
	}
	if n < int64(len(b)) {
		return int(n), io.EOF
	}
	return int(n), nil
}
