package input

import (
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
)

func TestCodeFromRune(t *testing.T) {
	tests := []struct {
		r    rune
		want string
	}{
		{'d', "KeyD"},
		{'K', "KeyK"},
		{'7', "Digit7"},
		{' ', "Space"},
		{'?', ""},
	}
	for _, tt := range tests {
		if got := CodeFromRune(tt.r); got != tt.want {
			t.Errorf("CodeFromRune(%q) = %q, want %q", tt.r, got, tt.want)
		}
	}
}

func TestRouterDetach(t *testing.T) {
	r := NewRouter()
	var a, b int
	detachA := r.Subscribe(func(KeyEvent) { a++ })
	r.Subscribe(func(KeyEvent) { b++ })

	r.Dispatch(KeyEvent{Code: "KeyD"})
	detachA()
	detachA()
	r.Dispatch(KeyEvent{Code: "KeyD"})

	if a != 1 || b != 2 {
		t.Fatalf("a=%d b=%d, want 1 and 2", a, b)
	}
	if r.Listeners() != 1 {
		t.Fatalf("Listeners = %d, want 1", r.Listeners())
	}
}

func TestRouterDetachDuringDispatch(t *testing.T) {
	r := NewRouter()
	var second int
	var detachSecond func()
	r.Subscribe(func(KeyEvent) { detachSecond() })
	detachSecond = r.Subscribe(func(KeyEvent) { second++ })

	r.Dispatch(KeyEvent{Code: "KeyF"})
	if second != 0 {
		t.Fatalf("listener detached mid-dispatch still ran")
	}
}

func TestMIDIHandlerMapsNoteOn(t *testing.T) {
	var got []KeyEvent
	h := MIDIHandler(func(ev KeyEvent) { got = append(got, ev) })

	h(gomidi.NoteOn(9, 36, 100), 0)
	h(gomidi.NoteOn(9, 36, 0), 0) // running-status note-off
	h(gomidi.NoteOff(9, 36), 0)
	h(gomidi.ControlChange(0, 7, 64), 0)

	if len(got) != 1 {
		t.Fatalf("events = %+v, want one note-on", got)
	}
	if got[0].Code != CodeMIDINote || got[0].Note != 36 || got[0].Velocity != 100 {
		t.Fatalf("event = %+v", got[0])
	}
}
