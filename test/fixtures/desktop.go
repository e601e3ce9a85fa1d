// Package fixtures provides scripted desktop probes for integration tests.
package fixtures

import (
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
)

// FakeClock is a settable clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a clock stopped at now.
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Desktop plays the role of the foreground window and the input devices.
// The focused window stays put until Focus or Blur is called; the pointer
// moves only when Move is called.
type Desktop struct {
	mu      sync.Mutex
	window  *domain.Window
	pointer domain.InputSignature
	failErr error
}

// NewDesktop creates a desktop with app focused.
func NewDesktop(app, title string) *Desktop {
	d := &Desktop{}
	d.Focus(app, title)
	return d
}

// Focus brings a window of app to the foreground.
func (d *Desktop) Focus(app, title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.window = &domain.Window{Application: app, Title: title, PID: 100}
}

// Blur leaves nothing focused.
func (d *Desktop) Blur() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.window = nil
}

// Move nudges the pointer so the next sample counts as input.
func (d *Desktop) Move() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pointer.X++
}

// FailWith makes ActiveWindow return err until cleared with nil.
func (d *Desktop) FailWith(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failErr = err
}

func (d *Desktop) ActiveWindow() (domain.Window, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failErr != nil {
		return domain.Window{}, d.failErr
	}
	if d.window == nil {
		return domain.Window{}, domain.ErrNoActiveWindow
	}
	return *d.window, nil
}

func (d *Desktop) Signature() (domain.InputSignature, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pointer, nil
}

var (
	_ domain.Clock          = (*FakeClock)(nil)
	_ domain.WindowProvider = (*Desktop)(nil)
	_ domain.InputProvider  = (*Desktop)(nil)
)
