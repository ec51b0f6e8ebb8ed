//go:build nogtk || !cgo

package ui

import (
	"context"
	"errors"

	"github.com/cpuguy83/calpick/internal/picker"
)

// GTK is a stub when GTK is not available.
type GTK struct{}

// NewGTK returns nil when GTK is not available.
func NewGTK(p *picker.Picker, cfg Config) *GTK {
	return nil
}

// GTKAvailable returns false when GTK is not available.
func GTKAvailable() bool {
	return false
}

// Init reports that GTK support is missing.
func (g *GTK) Init() error {
	return errors.New("built without GTK support")
}

// Show is a no-op stub.
func (g *GTK) Show() {}

// Hide is a no-op stub.
func (g *GTK) Hide() {}

// Render is a no-op stub.
func (g *GTK) Render(s picker.Snapshot) {}

// SetStatus is a no-op stub.
func (g *GTK) SetStatus(status string, stale bool) {}

// Run reports that GTK support is missing.
func (g *GTK) Run(ctx context.Context) error {
	return errors.New("built without GTK support")
}
