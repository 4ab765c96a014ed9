// Package notify provides engine.Sink implementations for achievement
// unlocks.
package notify

import (
	"io"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/cyberquest/internal/catalog"
)

// Console writes each unlock as one line and dismisses it immediately.
type Console struct {
	mu sync.Mutex
	w  io.Writer
	p  *message.Printer
}

// NewConsole creates a console sink. Numbers are grouped for tag.
func NewConsole(w io.Writer, tag language.Tag) *Console {
	return &Console{w: w, p: message.NewPrinter(tag)}
}

// Show prints a and dismisses it.
func (c *Console) Show(a catalog.Achievement, dismiss func()) {
	c.mu.Lock()
	if a.Points > 0 {
		c.p.Fprintf(c.w, "Achievement unlocked: %s (+%d points)\n", a.Name, a.Points)
	} else {
		c.p.Fprintf(c.w, "Achievement unlocked: %s\n", a.Name)
	}
	if a.Description != "" {
		c.p.Fprintf(c.w, "  %s\n", a.Description)
	}
	c.mu.Unlock()
	dismiss()
}
