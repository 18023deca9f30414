package partition

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/ostafen/flashpart/pkg/flash"
	"github.com/stretchr/testify/require"
)

func newTestIO(t *testing.T, n int) (*IO, *flash.Memory, *Registry) {
	t.Helper()

	mem := flash.NewMemory(flash.AddressSpace)
	return NewIO(mem, nil), mem, newTestRegistry(t, n)
}

func TestCheckBounds(t *testing.T) {
	p := &Descriptor{Address: 0xE3000, Size: 0x8000, Label: "nvs"}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := range 1000 {
		offset := uint32(rng.Intn(int(p.Size)))
		size := uint32(rng.Intn(int(p.Size-offset) + 1))

		start, err := CheckBounds(p, offset, size)
		require.NoError(t, err, "trial %d", i)
		require.Equal(t, p.Address+offset, start)

		_, err = CheckBounds(p, p.Size+offset, size)
		require.ErrorIs(t, err, ErrOutOfRange)

		_, err = CheckBounds(p, offset, p.Size-offset+1+size)
		require.ErrorIs(t, err, ErrSizeTooLarge)
	}

	_, err := CheckBounds(p, p.Size, 0)
	require.ErrorIs(t, err, ErrOutOfRange)

	_, err = CheckBounds(p, 0xFFFFFFFF, 0xFFFFFFFF)
	require.ErrorIs(t, err, ErrOutOfRange)

	_, err = CheckBounds(p, 0, 0xFFFFFFFF)
	require.ErrorIs(t, err, ErrSizeTooLarge)
}

func TestReadWriteRoundTrip(t *testing.T) {
	pio, _, reg := newTestIO(t, 2)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for _, p := range []*Descriptor{reg.At(0), reg.At(1)} {
		require.NoError(t, pio.EraseRange(p, 0, p.Size))

		for i := range 200 {
			offset := uint32(rng.Intn(int(p.Size)))
			n := rng.Intn(min(int(p.Size-offset), 256) + 1)

			data := make([]byte, n)
			rng.Read(data)

			// programming only clears bits, so start from erased sectors
			first := offset / flash.SectorSize * flash.SectorSize
			last := (offset + uint32(n) + flash.SectorSize - 1) / flash.SectorSize * flash.SectorSize
			if last == first {
				last += flash.SectorSize
			}
			require.NoError(t, pio.EraseRange(p, first, last-first), "trial %d", i)

			require.NoError(t, pio.Write(p, offset, data))

			got := make([]byte, n)
			require.NoError(t, pio.Read(p, offset, got))
			require.True(t, bytes.Equal(data, got), "trial %d: mismatch at offset %d", i, offset)
		}
	}
}

func TestWritesLandInsidePartition(t *testing.T) {
	pio, mem, reg := newTestIO(t, 2)
	p := reg.At(1)

	require.NoError(t, pio.Write(p, 0, []byte{0x00, 0x01}))
	require.Equal(t, []byte{0x00, 0x01}, mem.Bytes()[p.Address:p.Address+2])
	require.Equal(t, byte(flash.Erased), mem.Bytes()[p.Address-1])
}

func TestReadWriteOutOfBounds(t *testing.T) {
	pio, mem, reg := newTestIO(t, 1)
	p := reg.At(0)

	buf := make([]byte, 16)
	require.ErrorIs(t, pio.Read(p, p.Size, buf), ErrOutOfRange)
	require.ErrorIs(t, pio.Read(p, p.Size-8, buf), ErrSizeTooLarge)
	require.ErrorIs(t, pio.Write(p, p.Size, buf), ErrOutOfRange)
	require.ErrorIs(t, pio.Write(p, p.Size-8, buf), ErrSizeTooLarge)

	st := mem.Stats()
	require.Zero(t, st.Reads)
	require.Zero(t, st.Writes)
}

func TestDriverFailure(t *testing.T) {
	pio, mem, reg := newTestIO(t, 1)
	p := reg.At(0)

	errHW := errors.New("spi timeout")
	mem.SetFault(func(op flash.Op, addr uint32, n int) error { return errHW })

	err := pio.Read(p, 0, make([]byte, 4))
	require.ErrorIs(t, err, ErrFlash)
	require.ErrorIs(t, err, errHW)
	require.Equal(t, ESPErrFlashBase, Code(err))

	err = pio.Write(p, 0, make([]byte, 4))
	require.ErrorIs(t, err, ErrFlash)
}

func TestEraseRangeAlignment(t *testing.T) {
	pio, mem, reg := newTestIO(t, 1)
	p := reg.At(0)

	err := pio.EraseRange(p, 1, flash.SectorSize)
	require.ErrorIs(t, err, ErrInvalidArg)

	err = pio.EraseRange(p, flash.SectorSize, flash.SectorSize+1)
	require.ErrorIs(t, err, ErrInvalidSize)

	err = pio.EraseRange(p, p.Size, flash.SectorSize)
	require.ErrorIs(t, err, ErrOutOfRange)

	err = pio.EraseRange(p, 0, p.Size+flash.SectorSize)
	require.ErrorIs(t, err, ErrSizeTooLarge)

	require.Zero(t, mem.Stats().Erases)
}

func TestEraseRange(t *testing.T) {
	pio, mem, reg := newTestIO(t, 1)
	p := reg.At(0)

	require.NoError(t, pio.Write(p, 0, bytes.Repeat([]byte{0}, int(p.Size))))

	var calls []uint32
	err := pio.EraseRangeFunc(p, flash.SectorSize, 2*flash.SectorSize, func(erased, total uint32) {
		require.EqualValues(t, 2, total)
		calls = append(calls, erased)
	})
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2}, calls)

	content := mem.Bytes()[p.Address:p.End()]
	require.True(t, bytes.Equal(content[:flash.SectorSize], make([]byte, flash.SectorSize)))
	require.True(t, bytes.Equal(content[flash.SectorSize:3*flash.SectorSize], bytes.Repeat([]byte{flash.Erased}, 2*flash.SectorSize)))
	require.True(t, bytes.Equal(content[3*flash.SectorSize:], make([]byte, int(p.Size)-3*flash.SectorSize)))
}

func TestEraseRangeStopsAtFailure(t *testing.T) {
	pio, mem, reg := newTestIO(t, 1)
	p := reg.At(0)

	bad := p.Address/flash.SectorSize + 2

	var erased []uint32
	mem.SetFault(func(op flash.Op, addr uint32, n int) error {
		if op != flash.OpErase {
			return nil
		}
		if addr/flash.SectorSize == bad {
			return errors.New("erase timeout")
		}
		erased = append(erased, addr/flash.SectorSize)
		return nil
	})

	err := pio.EraseRange(p, 0, p.Size)
	require.ErrorIs(t, err, ErrFail)
	require.Equal(t, ESPFail, Code(err))

	first := p.Address / flash.SectorSize
	require.Equal(t, []uint32{first, first + 1}, erased)
	require.EqualValues(t, 2, mem.Stats().Erases)
}

func TestSectionReader(t *testing.T) {
	pio, _, reg := newTestIO(t, 1)
	p := reg.At(0)

	require.NoError(t, pio.Write(p, p.Size-4, []byte("tail")))

	r := pio.NewSectionReader(p)
	require.EqualValues(t, p.Size, r.Size())

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Len(t, data, int(p.Size))
	require.Equal(t, []byte("tail"), data[len(data)-4:])

	buf := make([]byte, 8)
	n, err := r.ReadAt(buf, int64(p.Size)-4)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 4, n)
	require.Equal(t, []byte("tail"), buf[:n])
}
