// Package irq emulates the interrupt enable bit of a single-core
// microcontroller. Mainline code masks delivery with Disable and unmasks it
// with Enable; Raise plays the role of an interrupt line firing. Handlers
// raised while delivery is masked are held and run, in order, on Enable.
//
// The mask is a level and not a nesting counter: two Disable calls followed
// by one Enable leave interrupts enabled.
package irq

import "sync"

// Handler is an interrupt service routine.
type Handler func()

// Controller holds the interrupt mask and the handlers waiting for it to
// be cleared.
type Controller struct {
	mu      sync.Mutex
	masked  bool
	pending []Handler
	served  uint64
}

// Disable masks interrupt delivery.
func (c *Controller) Disable() {
	c.mu.Lock()
	c.masked = true
	c.mu.Unlock()
}

// Enable unmasks interrupt delivery and runs every handler that was raised
// while delivery was masked.
func (c *Controller) Enable() {
	c.mu.Lock()
	c.masked = false
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, h := range pending {
		c.serve(h)
	}
}

// Masked reports whether interrupt delivery is currently masked.
func (c *Controller) Masked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.masked
}

// Raise fires an interrupt. The handler runs on the calling goroutine when
// delivery is enabled, otherwise it is queued until the next Enable.
func (c *Controller) Raise(h Handler) {
	c.mu.Lock()
	if c.masked {
		c.pending = append(c.pending, h)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.serve(h)
}

// Pending returns the number of handlers waiting for delivery.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Served returns the number of handlers run so far.
func (c *Controller) Served() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.served
}

func (c *Controller) serve(h Handler) {
	h()

	c.mu.Lock()
	c.served++
	c.mu.Unlock()
}

// cpu is the controller of the one core this process models.
var cpu Controller

func Disable()        { cpu.Disable() }
func Enable()         { cpu.Enable() }
func Masked() bool    { return cpu.Masked() }
func Raise(h Handler) { cpu.Raise(h) }
func Pending() int    { return cpu.Pending() }
