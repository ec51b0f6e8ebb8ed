//go:build !nogtk && cgo

package ui

import (
	"log/slog"
	"strconv"
	"sync"

	"github.com/cpuguy83/calpick/internal/date"
	"github.com/cpuguy83/calpick/internal/grid"
	"github.com/cpuguy83/calpick/internal/picker"
	"github.com/cpuguy83/calpick/internal/selection"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
)

// dayCell is one button of the month grid. date is rewritten on every render.
type dayCell struct {
	button *gtk.Button
	day    *gtk.Label
	price  *gtk.Label
	date   date.Date
}

// Popup is the GTK window holding the two inputs and the month grid.
type Popup struct {
	picker *picker.Picker
	cfg    Config

	window     *gtk.Window
	startEntry *gtk.Entry
	endEntry   *gtk.Entry
	revealer   *gtk.Revealer
	monthLabel *gtk.Label
	cells      [grid.Size]*dayCell
	statusBar  *gtk.Label

	mu     sync.Mutex
	status string
	stale  bool

	dragStartX   float64
	dismissTimer glib.SourceHandle
	onDismiss    func()
}

// NewPopup creates a popup driving p.
func NewPopup(p *picker.Picker, cfg Config) *Popup {
	return &Popup{picker: p, cfg: cfg}
}

// OnDismiss sets the callback run when the user closes the window.
func (p *Popup) OnDismiss(fn func()) {
	p.onDismiss = fn
}

// Init initializes the GTK widgets. Must be called from GTK main thread.
func (p *Popup) Init() {
	// Initialize libadwaita for automatic dark/light mode support
	adw.Init()

	p.window = gtk.NewWindow()
	p.window.SetTitle(p.cfg.Title)
	p.window.SetDefaultSize(360, -1)
	p.window.SetResizable(false)

	// Layer shell setup for Wayland compositors
	if gtk4layershell.IsSupported() {
		slog.Debug("layer shell supported")
		gtk4layershell.InitForWindow(p.window)
		gtk4layershell.SetLayer(p.window, gtk4layershell.LayerShellLayerTop)
		gtk4layershell.SetAnchor(p.window, gtk4layershell.LayerShellEdgeTop, true)
		gtk4layershell.SetAnchor(p.window, gtk4layershell.LayerShellEdgeRight, true)
		gtk4layershell.SetMargin(p.window, gtk4layershell.LayerShellEdgeTop, 8)
		gtk4layershell.SetMargin(p.window, gtk4layershell.LayerShellEdgeRight, 8)
		gtk4layershell.SetKeyboardMode(p.window, gtk4layershell.LayerShellKeyboardModeOnDemand)
		gtk4layershell.SetNamespace(p.window, "calpick-popup")
		p.window.SetDecorated(false)

		if p.cfg.HoverDismissDelay > 0 {
			p.window.NotifyProperty("is-active", p.onActiveChanged)
		}
	}

	p.window.ConnectCloseRequest(func() bool {
		p.dismiss()
		return true
	})

	keyController := gtk.NewEventControllerKey()
	keyController.ConnectKeyPressed(func(keyval, keycode uint, state gdk.ModifierType) bool {
		switch keyval {
		case gdk.KEY_Escape:
			// A half-made selection is cleared first.
			if st := p.picker.State(); len(st.Selected) > 0 && !selection.IsComplete(st) {
				p.picker.Reset()
				return true
			}
			p.dismiss()
			return true
		case gdk.KEY_Return, gdk.KEY_KP_Enter:
			if p.picker.Complete() {
				p.dismiss()
				return true
			}
		case gdk.KEY_Page_Up:
			p.picker.ChangeMonth(-1)
			return true
		case gdk.KEY_Page_Down:
			p.picker.ChangeMonth(1)
			return true
		}
		return false
	})
	p.window.AddController(keyController)

	p.buildUI()
	p.applyCSS()
	p.apply(p.picker.Snapshot())
}

// onActiveChanged dismisses a completed selection shortly after the window
// loses focus.
func (p *Popup) onActiveChanged() {
	if !p.window.IsVisible() {
		return
	}
	if p.window.IsActive() {
		p.cancelDismissTimer()
		return
	}
	if !p.picker.Complete() || p.dismissTimer != 0 {
		return
	}
	p.dismissTimer = glib.TimeoutAdd(uint(p.cfg.HoverDismissDelay.Milliseconds()), func() bool {
		p.dismissTimer = 0
		if p.window.IsVisible() && !p.window.IsActive() {
			p.dismiss()
		}
		return false
	})
}

func (p *Popup) cancelDismissTimer() {
	if p.dismissTimer != 0 {
		glib.SourceRemove(p.dismissTimer)
		p.dismissTimer = 0
	}
}

// buildUI constructs the widget hierarchy.
func (p *Popup) buildUI() {
	content := gtk.NewBox(gtk.OrientationVertical, 0)
	content.AddCSSClass("popup-container")
	p.window.SetChild(content)

	content.Append(p.buildInputs())

	p.revealer = gtk.NewRevealer()
	p.revealer.SetTransitionType(gtk.RevealerTransitionTypeNone)
	content.Append(p.revealer)

	calendar := gtk.NewBox(gtk.OrientationVertical, 0)
	calendar.AddCSSClass("calendar")
	calendar.Append(p.buildHeader())
	calendar.Append(p.buildGrid())
	p.revealer.SetChild(calendar)

	p.statusBar = gtk.NewLabel("")
	p.statusBar.AddCSSClass("status-bar")
	p.statusBar.SetXAlign(0)
	content.Append(p.statusBar)
}

// buildInputs creates the two read-only entries bound to the selection.
// Focusing either one opens the grid.
func (p *Popup) buildInputs() *gtk.Box {
	box := gtk.NewBox(gtk.OrientationHorizontal, 8)
	box.AddCSSClass("inputs")

	newEntry := func(label string) *gtk.Entry {
		entry := gtk.NewEntry()
		entry.SetEditable(false)
		entry.SetPlaceholderText(label)
		entry.SetHExpand(true)
		entry.AddCSSClass("date-input")

		focus := gtk.NewEventControllerFocus()
		focus.ConnectEnter(p.picker.Show)
		entry.AddController(focus)

		click := gtk.NewGestureClick()
		click.ConnectPressed(func(nPress int, x, y float64) {
			p.picker.Show()
		})
		entry.AddController(click)

		box.Append(entry)
		return entry
	}

	p.startEntry = newEntry(p.cfg.StartLabel)
	if p.picker.State().Mode == selection.Range {
		arrow := gtk.NewLabel("→")
		arrow.AddCSSClass("input-arrow")
		box.Append(arrow)
		p.endEntry = newEntry(p.cfg.EndLabel)
	}

	return box
}

// buildHeader creates the month title with the navigation buttons.
func (p *Popup) buildHeader() *gtk.Box {
	header := gtk.NewBox(gtk.OrientationHorizontal, 0)
	header.AddCSSClass("popup-header")

	prev := gtk.NewButtonFromIconName("go-previous-symbolic")
	prev.AddCSSClass("nav-btn")
	prev.SetTooltipText("Previous month")
	prev.ConnectClicked(func() { p.picker.ChangeMonth(-1) })
	header.Append(prev)

	p.monthLabel = gtk.NewLabel("")
	p.monthLabel.AddCSSClass("header-title")
	p.monthLabel.SetHExpand(true)
	header.Append(p.monthLabel)

	next := gtk.NewButtonFromIconName("go-next-symbolic")
	next.AddCSSClass("nav-btn")
	next.SetTooltipText("Next month")
	next.ConnectClicked(func() { p.picker.ChangeMonth(1) })
	header.Append(next)

	return header
}

// buildGrid creates the weekday row and the 42 day buttons.
func (p *Popup) buildGrid() *gtk.Grid {
	g := gtk.NewGrid()
	g.AddCSSClass("month-grid")
	g.SetColumnHomogeneous(true)
	g.SetRowSpacing(2)

	for col, name := range WeekdayHeaders(p.picker.Snapshot().Locale) {
		label := gtk.NewLabel(name)
		label.AddCSSClass("weekday")
		g.Attach(label, col, 0, 1, 1)
	}

	for i := range p.cells {
		cell := &dayCell{
			button: gtk.NewButton(),
			day:    gtk.NewLabel(""),
			price:  gtk.NewLabel(""),
		}

		inner := gtk.NewBox(gtk.OrientationVertical, 0)
		inner.Append(cell.day)
		cell.price.AddCSSClass("price")
		inner.Append(cell.price)
		cell.button.SetChild(inner)

		cell.button.ConnectClicked(func() { p.picker.Click(cell.date) })

		motion := gtk.NewEventControllerMotion()
		motion.ConnectEnter(func(x, y float64) { p.picker.Hover(cell.date) })
		cell.button.AddController(motion)

		p.cells[i] = cell
		g.Attach(cell.button, i%grid.Columns, 1+i/grid.Columns, 1, 1)
	}

	leave := gtk.NewEventControllerMotion()
	leave.ConnectLeave(p.picker.Leave)
	g.AddController(leave)

	// Horizontal touch swipes page between months.
	drag := gtk.NewGestureDrag()
	drag.SetTouchOnly(true)
	drag.SetPropagationPhase(gtk.PhaseCapture)
	drag.ConnectDragBegin(func(startX, startY float64) {
		p.dragStartX = startX
	})
	drag.ConnectDragEnd(func(offsetX, offsetY float64) {
		p.picker.Swipe(p.dragStartX, p.dragStartX+offsetX)
	})
	g.AddController(drag)

	return g
}

// applyCSS applies custom styling with libadwaita color variables.
func (p *Popup) applyCSS() {
	css := `
		.popup-container {
			background: @window_bg_color;
			border-radius: 12px;
			border: 1px solid alpha(@borders, 0.5);
		}

		.inputs {
			padding: 12px 12px 8px 12px;
		}

		.input-arrow {
			color: alpha(@view_fg_color, 0.5);
		}

		.popup-header {
			padding: 4px 8px;
			border-top: 1px solid alpha(@borders, 0.3);
		}

		.header-title {
			font-size: 15px;
			font-weight: 600;
			letter-spacing: 0.3px;
		}

		.nav-btn {
			min-width: 28px;
			min-height: 28px;
			border-radius: 8px;
			background: transparent;
		}

		.month-grid {
			padding: 4px 8px 8px 8px;
		}

		.weekday {
			font-size: 11px;
			font-weight: 600;
			color: alpha(@view_fg_color, 0.5);
			padding: 4px 0;
		}

		.day {
			min-height: 40px;
			padding: 2px;
			border-radius: 8px;
			background: transparent;
			font-size: 13px;
		}

		.day:hover {
			background: alpha(@accent_color, 0.08);
		}

		.day.other-month {
			color: alpha(@view_fg_color, 0.35);
		}

		.day.today {
			font-weight: 700;
			color: @accent_color;
		}

		.day.disabled {
			color: alpha(@view_fg_color, 0.25);
			text-decoration-line: line-through;
		}

		.day.in-range,
		.day.hover-range {
			background: alpha(@accent_color, 0.15);
			border-radius: 0;
		}

		.day.hover-range {
			background: alpha(@accent_color, 0.08);
		}

		.day.selected {
			background: @accent_bg_color;
			color: @accent_fg_color;
		}

		.price {
			font-size: 9px;
			color: alpha(@view_fg_color, 0.6);
		}

		.day.selected .price {
			color: alpha(@accent_fg_color, 0.8);
		}

		.status-bar {
			padding: 8px 16px;
			font-size: 11px;
			color: alpha(@view_fg_color, 0.5);
			border-top: 1px solid alpha(@borders, 0.2);
			background: alpha(@view_bg_color, 0.5);
			border-radius: 0 0 12px 12px;
		}

		.status-bar.stale {
			color: @warning_color;
		}
	`

	provider := gtk.NewCSSProvider()
	provider.LoadFromData(css)

	gtk.StyleContextAddProviderForDisplay(
		gdk.DisplayGetDefault(),
		provider,
		gtk.STYLE_PROVIDER_PRIORITY_APPLICATION,
	)
}

// Show displays the popup.
func (p *Popup) Show() {
	if p.window == nil {
		return
	}
	glib.IdleAdd(func() {
		p.window.SetVisible(true)
		p.window.Present()
	})
}

// Hide hides the popup.
func (p *Popup) Hide() {
	if p.window == nil {
		return
	}
	glib.IdleAdd(p.hideAll)
}

func (p *Popup) hideAll() {
	p.window.SetVisible(false)
	p.cancelDismissTimer()
}

// dismiss hides the window and reports it to the owner.
func (p *Popup) dismiss() {
	p.hideAll()
	if p.onDismiss != nil {
		p.onDismiss()
	}
}

// Render schedules the widgets to be updated from s.
func (p *Popup) Render(s picker.Snapshot) {
	if p.window == nil {
		return
	}
	glib.IdleAdd(func() { p.apply(s) })
}

// SetStatus updates the status bar.
func (p *Popup) SetStatus(status string, stale bool) {
	p.mu.Lock()
	p.status = status
	p.stale = stale
	p.mu.Unlock()

	if p.window != nil {
		glib.IdleAdd(p.updateStatusBar)
	}
}

// apply updates every widget from s. Must run on the GTK main thread.
func (p *Popup) apply(s picker.Snapshot) {
	p.monthLabel.SetText(MonthTitle(s))

	p.startEntry.SetText(s.Start)
	if p.endEntry != nil {
		p.endEntry.SetText(s.End)
	}

	for i, c := range s.Cells {
		if i >= len(p.cells) {
			break
		}
		cell := p.cells[i]
		cell.date = c.Date
		cell.day.SetText(strconv.Itoa(c.DayNumber))
		cell.price.SetText(c.Price)
		cell.price.SetVisible(c.HasPrice)
		cell.button.SetSensitive(!c.IsDisabled)
		if c.HasPrice {
			cell.button.SetTooltipText(c.Date.String() + " · " + c.Price)
		} else {
			cell.button.SetTooltipText(c.Date.String())
		}

		for _, class := range AllCellClasses {
			cell.button.RemoveCSSClass(class)
		}
		for _, class := range CellClasses(c) {
			cell.button.AddCSSClass(class)
		}
	}

	p.revealer.SetRevealChild(s.Visible)
	p.updateStatusBar()
}

func (p *Popup) updateStatusBar() {
	p.mu.Lock()
	status, stale := p.status, p.stale
	p.mu.Unlock()

	if stale {
		p.statusBar.AddCSSClass("stale")
	} else {
		p.statusBar.RemoveCSSClass("stale")
	}

	status = StatusLine(status, p.picker.State())

	p.statusBar.SetText(status)
	p.statusBar.SetVisible(status != "")
}
