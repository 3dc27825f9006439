// Package input routes key events to whoever is listening. Front ends
// translate their own key and MIDI events into KeyEvents and dispatch them on
// the run loop; the recording state machine subscribes while it captures.
package input

import "strings"

// CodeMIDINote is the code of any MIDI note-on.
const CodeMIDINote = "MIDINote"

// KeyEvent is a physical key press, named by layout-independent code
// ("KeyD", "Digit1", "Space", CodeMIDINote).
type KeyEvent struct {
	Code     string
	Note     uint8 // MIDI only
	Velocity uint8 // MIDI only
}

// CodeFromRune maps a typed character to its key code, or "" when there is
// none.
func CodeFromRune(r rune) string {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return "Key" + strings.ToUpper(string(r))
	case r >= '0' && r <= '9':
		return "Digit" + string(r)
	case r == ' ':
		return "Space"
	}
	return ""
}

type listener struct {
	fn func(KeyEvent)
}

// Router fans key events out to subscribers in subscription order. It is
// confined to the run loop.
type Router struct {
	listeners []*listener
}

func NewRouter() *Router {
	return &Router{}
}

// Subscribe attaches fn. The returned detach func is idempotent.
func (r *Router) Subscribe(fn func(KeyEvent)) (detach func()) {
	l := &listener{fn: fn}
	r.listeners = append(r.listeners, l)
	return func() {
		if l.fn == nil {
			return
		}
		l.fn = nil
		for i, o := range r.listeners {
			if o == l {
				r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
				return
			}
		}
	}
}

// Dispatch delivers ev to every listener attached when it was called.
// Listeners detached by an earlier listener in the same dispatch are skipped.
func (r *Router) Dispatch(ev KeyEvent) {
	snapshot := append([]*listener(nil), r.listeners...)
	for _, l := range snapshot {
		if fn := l.fn; fn != nil {
			fn(ev)
		}
	}
}

// Listeners returns the number of attached listeners.
func (r *Router) Listeners() int {
	return len(r.listeners)
}
