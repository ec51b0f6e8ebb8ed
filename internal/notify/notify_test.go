package notify

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
)

type fakeBus struct {
	nextID uint32
	err    error
	calls  [][]any
}

func (f *fakeBus) Call(method string, flags dbus.Flags, args ...any) *dbus.Call {
	f.calls = append(f.calls, append([]any{method}, args...))
	if f.err != nil {
		return &dbus.Call{Err: f.err}
	}
	f.nextID++
	return &dbus.Call{Body: []any{f.nextID}}
}

func TestSendReplacesPrevious(t *testing.T) {
	bus := &fakeBus{nextID: 40}
	n := &Notifier{obj: bus, appName: "calpick"}

	id, err := n.Send(Selection("Wed, 10/May/2023", "Mon, 15/May/2023", 5, ChangeAction))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id != 41 {
		t.Errorf("id = %d, want 41", id)
	}

	if _, err := n.Send(Selection("Thu, 11/May/2023", "", 0)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(bus.calls) != 2 {
		t.Fatalf("got %d calls", len(bus.calls))
	}
	first, second := bus.calls[0], bus.calls[1]
	if first[0] != notifyInterface+".Notify" {
		t.Errorf("method = %v", first[0])
	}
	if first[2] != uint32(0) {
		t.Errorf("first replaces_id = %v, want 0", first[2])
	}
	if second[2] != uint32(41) {
		t.Errorf("second replaces_id = %v, want 41", second[2])
	}
	if first[3] != "x-office-calendar" {
		t.Errorf("icon = %v", first[3])
	}
	if actions, _ := first[6].([]string); len(actions) != 2 || actions[0] != ActionChange {
		t.Errorf("actions = %v", first[6])
	}
	if actions, _ := second[6].([]string); len(actions) != 0 {
		t.Errorf("second actions = %v, want none", second[6])
	}
	if first[8] != int32(-1) {
		t.Errorf("timeout = %v", first[8])
	}
}

func TestSendError(t *testing.T) {
	n := &Notifier{obj: &fakeBus{err: errors.New("no server")}, appName: "calpick"}
	if _, err := n.Send(Notification{Summary: "x"}); err == nil {
		t.Errorf("expected error")
	}
	if n.lastID != 0 {
		t.Errorf("lastID changed on failure")
	}
}

func TestSelection(t *testing.T) {
	tests := []struct {
		name        string
		start, end  string
		nights      int
		wantSummary string
		wantBody    string
	}{
		{"single", "Thu, 11/May/2023", "", 0, "Date selected", "Thu, 11/May/2023"},
		{"one night", "Wed, 10/May/2023", "Thu, 11/May/2023", 1, "Dates selected", "Wed, 10/May/2023 → Thu, 11/May/2023 (1 night)"},
		{"several nights", "Wed, 10/May/2023", "Mon, 15/May/2023", 5, "Dates selected", "Wed, 10/May/2023 → Mon, 15/May/2023 (5 nights)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Selection(tt.start, tt.end, tt.nights)
			if n.Summary != tt.wantSummary || n.Body != tt.wantBody {
				t.Errorf("got %q / %q", n.Summary, n.Body)
			}
		})
	}
}

func TestParseAction(t *testing.T) {
	n := &Notifier{lastID: 7}

	tests := []struct {
		name string
		sig  *dbus.Signal
		ok   bool
	}{
		{"ours", &dbus.Signal{Name: notifyInterface + ".ActionInvoked", Body: []any{uint32(7), ActionChange}}, true},
		{"someone else's", &dbus.Signal{Name: notifyInterface + ".ActionInvoked", Body: []any{uint32(8), ActionChange}}, false},
		{"other signal", &dbus.Signal{Name: notifyInterface + ".NotificationClosed", Body: []any{uint32(7), uint32(2)}}, false},
		{"short body", &dbus.Signal{Name: notifyInterface + ".ActionInvoked", Body: []any{uint32(7)}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, ok := n.parseAction(tt.sig); ok != tt.ok {
				t.Errorf("parseAction ok = %v, want %v", ok, tt.ok)
			}
		})
	}
}
