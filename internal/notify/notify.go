// Package notify provides desktop notifications via D-Bus.
package notify

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	notifyInterface = "org.freedesktop.Notifications"
	notifyPath      = "/org/freedesktop/Notifications"
)

// ActionChange is the action key offered to reopen the picker.
const ActionChange = "change"

// ChangeAction reopens the picker. Only offer it while a view is still up to
// be reopened.
var ChangeAction = Action{Key: ActionChange, Label: "Change"}

// busObject is the part of dbus.BusObject the notifier needs.
type busObject interface {
	Call(method string, flags dbus.Flags, args ...any) *dbus.Call
}

// Notifier sends desktop notifications via D-Bus. Successive notifications
// replace each other so only the latest selection stays on screen.
type Notifier struct {
	conn    *dbus.Conn
	obj     busObject
	appName string

	mu     sync.Mutex
	lastID uint32
}

// New creates a new notifier.
func New(appName string) (*Notifier, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}

	return &Notifier{
		conn:    conn,
		obj:     conn.Object(notifyInterface, notifyPath),
		appName: appName,
	}, nil
}

// Close closes the D-Bus connection.
func (n *Notifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Close()
}

// Notification represents a desktop notification.
type Notification struct {
	Summary string
	Body    string
	Icon    string
	Timeout time.Duration // 0 = default, -1 = persistent
	Actions []Action
	Urgency Urgency
}

// Action represents a notification action button.
type Action struct {
	Key   string
	Label string
}

// Urgency levels for notifications.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// Selection builds the notification for a completed selection. end is empty
// for a single date; nights is the number of nights a range spans.
func Selection(start, end string, nights int, actions ...Action) Notification {
	notif := Notification{
		Summary: "Date selected",
		Body:    start,
		Urgency: UrgencyLow,
		Actions: actions,
	}
	if end != "" {
		notif.Summary = "Dates selected"
		unit := "nights"
		if nights == 1 {
			unit = "night"
		}
		notif.Body = fmt.Sprintf("%s → %s (%d %s)", start, end, nights, unit)
	}
	return notif
}

// Send sends a notification, replacing the previous one, and returns its ID.
func (n *Notifier) Send(notif Notification) (uint32, error) {
	// [key1, label1, key2, label2, ...]
	var actions []string
	for _, a := range notif.Actions {
		actions = append(actions, a.Key, a.Label)
	}

	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(byte(notif.Urgency)),
	}

	timeout := int32(-1) // server default
	if notif.Timeout > 0 {
		timeout = int32(notif.Timeout.Milliseconds())
	} else if notif.Timeout < 0 {
		timeout = 0 // persistent
	}

	icon := notif.Icon
	if icon == "" {
		icon = "x-office-calendar"
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	call := n.obj.Call(
		notifyInterface+".Notify",
		0,
		n.appName,     // app_name
		n.lastID,      // replaces_id
		icon,          // app_icon
		notif.Summary, // summary
		notif.Body,    // body
		actions,       // actions
		hints,         // hints
		timeout,       // expire_timeout
	)
	if call.Err != nil {
		return 0, fmt.Errorf("send notification: %w", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("get notification id: %w", err)
	}
	n.lastID = id

	slog.Debug("sent notification", "id", id, "summary", notif.Summary)
	return id, nil
}

// WatchActions listens for notification action invocations on our own
// notifications. The callback receives the action key.
func (n *Notifier) WatchActions(callback func(actionKey string)) error {
	if err := n.conn.AddMatchSignal(
		dbus.WithMatchInterface(notifyInterface),
		dbus.WithMatchMember("ActionInvoked"),
	); err != nil {
		return fmt.Errorf("add match signal: %w", err)
	}

	ch := make(chan *dbus.Signal, 10)
	n.conn.Signal(ch)

	go func() {
		for sig := range ch {
			if id, key, ok := n.parseAction(sig); ok {
				slog.Debug("notification action", "id", id, "action", key)
				callback(key)
			}
		}
	}()

	return nil
}

// parseAction extracts an ActionInvoked signal for the current notification.
func (n *Notifier) parseAction(sig *dbus.Signal) (uint32, string, bool) {
	if sig.Name != notifyInterface+".ActionInvoked" || len(sig.Body) < 2 {
		return 0, "", false
	}
	id, ok1 := sig.Body[0].(uint32)
	key, ok2 := sig.Body[1].(string)
	if !ok1 || !ok2 {
		return 0, "", false
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	return id, key, id != 0 && id == n.lastID
}
