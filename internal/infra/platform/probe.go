// Package platform reads the foreground window and pointer from the
// desktop session. It needs cgo and the native window system headers,
// so it lives apart from the rest of infra.
package platform

import (
	"fmt"
	"strings"

	"github.com/go-vgo/robotgo"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
)

const unknownApplication = "unknown"

// Probe reads the foreground window and pointer through robotgo.
// robotgo has no key-state polling, so signatures carry no keys and
// keyboard-only activity is not observed.
type Probe struct {
	processes domain.ProcessInspector

	windowTitle func() string
	windowPID   func() int
	pointer     func() (int, int)
}

// NewProbe creates a probe backed by the desktop session.
func NewProbe(pi domain.ProcessInspector) *Probe {
	return &Probe{
		processes:   pi,
		windowTitle: func() string { return robotgo.GetTitle() },
		windowPID:   func() int { return robotgo.GetPid() },
		pointer:     func() (int, int) { return robotgo.Location() },
	}
}

// ActiveWindow returns the focused window and its owning application.
func (p *Probe) ActiveWindow() (domain.Window, error) {
	pid := p.windowPID()
	title := strings.TrimSpace(p.windowTitle())
	if pid <= 0 && title == "" {
		return domain.Window{}, domain.ErrNoActiveWindow
	}

	app := unknownApplication
	if pid > 0 {
		name, err := p.processes.Name(pid)
		if err != nil {
			if title == "" {
				return domain.Window{}, fmt.Errorf("%w: pid %d: %v", domain.ErrNoActiveWindow, pid, err)
			}
		} else if name != "" {
			app = name
		}
	}

	return domain.Window{Title: title, Application: app, PID: pid}, nil
}

// Signature returns the pointer position.
func (p *Probe) Signature() (domain.InputSignature, error) {
	x, y := p.pointer()
	return domain.InputSignature{X: x, Y: y}, nil
}

var (
	_ domain.WindowProvider = (*Probe)(nil)
	_ domain.InputProvider  = (*Probe)(nil)
)
