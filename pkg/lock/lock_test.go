package lock

import (
	"errors"
	"runtime"
	"testing"

	"github.com/ostafen/flashpart/pkg/lock/irq"
	"github.com/stretchr/testify/require"
)

func withMode(t *testing.T, m Mode) {
	prev := CurrentMode()
	SetMode(m)
	t.Cleanup(func() { SetMode(prev) })
}

func TestMaskingGuardMasksInterrupts(t *testing.T) {
	withMode(t, Masking)

	served := false
	g := Acquire()
	require.True(t, irq.Masked())

	irq.Raise(func() { served = true })
	require.False(t, served)

	g.Release()
	require.False(t, irq.Masked())
	require.True(t, served)
}

func TestReleaseOnPanicPath(t *testing.T) {
	for _, m := range []Mode{Masking, Strict} {
		t.Run(m.String(), func(t *testing.T) {
			withMode(t, m)

			func() {
				defer func() { _ = recover() }()

				g := Acquire()
				defer g.Release()
				panic("boom")
			}()

			require.False(t, irq.Masked())
			require.False(t, Locked())
		})
	}
}

func TestDoReturnsError(t *testing.T) {
	withMode(t, Strict)

	err := Do(func() error {
		require.True(t, Locked())
		return errSentinel
	})
	require.ErrorIs(t, err, errSentinel)
	require.False(t, Locked())
}

func TestStrictGuardKeepsInterruptsEnabled(t *testing.T) {
	withMode(t, Strict)

	g := Acquire()
	require.True(t, Locked())
	require.False(t, irq.Masked())

	// interrupts are only masked around the flag update, so an ISR is
	// served inside the critical section
	served := false
	irq.Raise(func() { served = true })
	require.True(t, served)

	g.Release()
	g.Release()
	require.False(t, Locked())

	// the flag is cleared, so a new acquisition succeeds
	g = Acquire()
	require.NotNil(t, g)
	g.Release()
}

func TestStrictReentryHalts(t *testing.T) {
	withMode(t, Strict)

	var msg string
	t.Cleanup(SetHaltHandler(func(m string) {
		msg = m
		runtime.Goexit()
	}))

	g := Acquire()
	defer g.Release()

	returned := false
	done := make(chan struct{})
	go func() {
		defer close(done)
		Acquire()
		returned = true
	}()
	<-done

	require.False(t, returned)
	require.Equal(t, ReentryMessage, msg)
	require.True(t, Locked())
	require.False(t, irq.Masked())
}

func TestMaskingNestedReleaseUnmasksEarly(t *testing.T) {
	withMode(t, Masking)

	outer := Acquire()
	inner := Acquire()
	inner.Release()

	// interrupts are live again although outer is still held
	require.False(t, irq.Masked())
	outer.Release()
}

var errSentinel = errors.New("sentinel")
