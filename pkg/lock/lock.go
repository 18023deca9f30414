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

// Package lock serializes flash access between mainline code and interrupt
// handlers without ever blocking.
//
// In Masking mode a held Guard keeps interrupt delivery disabled for the
// whole critical section. In Strict mode interrupts are only masked while
// the process-wide locked flag is inspected; finding the flag already set
// means the layer was re-entered, which is a programming error and halts
// the process.
//
// Masking mode does not detect nesting: an inner Release unmasks interrupts
// while the outer Guard is still held.
package lock

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/ostafen/flashpart/pkg/lock/irq"
)

type Mode int

const (
	Masking Mode = iota
	Strict
)

func (m Mode) String() string {
	switch m {
	case Masking:
		return "masking"
	case Strict:
		return "strict"
	default:
		return "unknown"
	}
}

// ReentryMessage is printed before halting on a nested strict acquisition.
const ReentryMessage = "nvs function called while locked"

// HaltExitCode is the status the process exits with when halted.
const HaltExitCode = 134

var (
	mode   atomic.Int32
	locked atomic.Bool

	// halt must not return.
	halt = func(msg string) {
		fmt.Fprintln(os.Stderr, msg)
		os.Exit(HaltExitCode)
	}
)

func init() {
	mode.Store(int32(DefaultMode))
}

// SetHaltHandler replaces the function run on a strict re-entry and returns
// a function restoring the previous one. The handler must not return to its
// caller: it either exits the process or ends the goroutine.
func SetHaltHandler(fn func(msg string)) (restore func()) {
	prev := halt
	halt = fn
	return func() { halt = prev }
}

// SetMode selects the locking mode. It is meant to be called once during
// process start-up, before any Guard is acquired.
func SetMode(m Mode) {
	mode.Store(int32(m))
}

// CurrentMode returns the active locking mode.
func CurrentMode() Mode {
	return Mode(mode.Load())
}

// Locked reports whether a strict Guard is currently held.
func Locked() bool {
	return locked.Load()
}

// Guard is a held lock. Release it on every exit path, typically with defer.
type Guard struct {
	mode     Mode
	released bool
}

// Acquire enters the critical section.
func Acquire() *Guard {
	g := &Guard{mode: CurrentMode()}
	if g.mode != Strict {
		irq.Disable()
		return g
	}

	irq.Disable()
	if !locked.Load() {
		locked.Store(true)
		irq.Enable()
		return g
	}
	irq.Enable()
	halt(ReentryMessage)
	return nil
}

// Release leaves the critical section. Releasing twice is a no-op.
func (g *Guard) Release() {
	if g == nil || g.released {
		return
	}
	g.released = true

	if g.mode != Strict {
		irq.Enable()
		return
	}

	irq.Disable()
	locked.Store(false)
	irq.Enable()
}

// Do runs fn while holding the lock.
func Do(fn func() error) error {
	g := Acquire()
	defer g.Release()

	return fn()
}
