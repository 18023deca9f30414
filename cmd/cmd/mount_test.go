package cmd

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ostafen/flashpart/pkg/flash"
	"github.com/ostafen/flashpart/pkg/lock"
	"github.com/ostafen/flashpart/pkg/partition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useStrictLock(t *testing.T) *atomic.Bool {
	t.Helper()

	prev := lock.CurrentMode()
	lock.SetMode(lock.Strict)
	t.Cleanup(func() { lock.SetMode(prev) })

	var halted atomic.Bool
	t.Cleanup(lock.SetHaltHandler(func(string) {
		halted.Store(true)
		runtime.Goexit()
	}))
	return &halted
}

func TestLockedReaderAtConcurrentStrict(t *testing.T) {
	halted := useStrictLock(t)

	mem := flash.NewMemory(flash.AddressSpace)
	pio := partition.NewIO(mem, nil)
	p := partition.Default().At(0)

	data := make([]byte, p.Size)
	for i := range data {
		data[i] = byte(i*7 + i>>8)
	}
	require.NoError(t, pio.Write(p, 0, data))

	var mu sync.Mutex
	r := &lockedReaderAt{mu: &mu, r: pio.NewSectionReader(p)}

	const (
		readers   = 8
		perReader = 64
		chunk     = 512
	)

	var wg sync.WaitGroup
	for w := range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			buf := make([]byte, chunk)
			for i := range perReader {
				off := int64((w*perReader+i)*chunk) % int64(p.Size)
				n, err := r.ReadAt(buf, off)
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, chunk, n)
				assert.Equal(t, data[off:off+chunk], buf[:n])
			}
		}()
	}
	wg.Wait()

	require.False(t, halted.Load())
	require.False(t, lock.Locked())
}

func TestLockedReaderAtPastEnd(t *testing.T) {
	useStrictLock(t)

	mem := flash.NewMemory(flash.AddressSpace)
	pio := partition.NewIO(mem, nil)
	p := partition.Default().At(0)

	var mu sync.Mutex
	r := &lockedReaderAt{mu: &mu, r: pio.NewSectionReader(p)}

	buf := make([]byte, 16)
	n, err := r.ReadAt(buf, int64(p.Size)-8)
	require.Equal(t, 8, n)
	require.Error(t, err)
	require.False(t, lock.Locked())
}
