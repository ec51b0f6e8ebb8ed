//go:build !nogtk && cgo

package ui

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cpuguy83/calpick/internal/picker"

	"github.com/diamondburned/gotk4/pkg/gio/v2"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
)

// ApplicationID is the GTK application ID.
const ApplicationID = "com.github.cpuguy83.calpick"

// GTK runs the Popup inside a GTK application main loop.
type GTK struct {
	picker *picker.Picker
	popup  *Popup
}

// NewGTK creates a new GTK view backend.
func NewGTK(p *picker.Picker, cfg Config) *GTK {
	return &GTK{
		picker: p,
		popup:  NewPopup(p, cfg),
	}
}

// GTKAvailable returns true if the binary was built with GTK support.
// Use the 'nogtk' build tag to build without GTK for systems that
// don't have GTK4 installed.
func GTKAvailable() bool {
	return true
}

// Init is a no-op; widgets are built once the application activates.
func (g *GTK) Init() error {
	return nil
}

// Show displays the popup.
func (g *GTK) Show() {
	g.popup.Show()
}

// Hide hides the popup.
func (g *GTK) Hide() {
	g.popup.Hide()
}

// Render updates the popup from s.
func (g *GTK) Render(s picker.Snapshot) {
	g.popup.Render(s)
}

// SetStatus updates the status bar.
func (g *GTK) SetStatus(status string, stale bool) {
	g.popup.SetStatus(status, stale)
}

// Run runs the GTK main loop until the popup is dismissed or ctx is
// cancelled.
func (g *GTK) Run(ctx context.Context) error {
	gtkApp := gtk.NewApplication(ApplicationID, gio.ApplicationFlagsNone)

	gtkApp.ConnectActivate(func() {
		// Hold the application open while the popup is hidden
		gtkApp.Hold()

		g.popup.Init()
		g.popup.OnDismiss(gtkApp.Quit)
		g.picker.Show()
		g.popup.Show()
	})

	stop := context.AfterFunc(ctx, func() {
		slog.Debug("context done, quitting GTK")
		glib.IdleAdd(gtkApp.Quit)
	})
	defer stop()

	// Run GTK main loop (blocks until app.Quit() is called)
	if code := gtkApp.Run(nil); code != 0 {
		return fmt.Errorf("GTK application exited with code %d", code)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if !g.picker.Complete() {
		return ErrCancelled
	}
	return nil
}
