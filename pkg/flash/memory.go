package flash

import "bytes"

// Memory is a flash chip held in RAM.
type Memory struct {
	cells
}

// NewMemory returns an erased chip of size bytes, rounded up to a whole
// number of sectors.
func NewMemory(size uint32) *Memory {
	return &Memory{
		cells: cells{
			buf: bytes.Repeat([]byte{Erased}, int(roundToSectors(size))),
		},
	}
}

// Bytes returns the chip contents. The slice aliases the cells.
func (m *Memory) Bytes() []byte {
	return m.buf
}
