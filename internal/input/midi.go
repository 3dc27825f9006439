package input

import (
	"errors"
	"fmt"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/polyclock-go/internal/debug"
)

var ErrNoMIDIPort = errors.New("no matching MIDI input port")

// MIDIHandler returns a gomidi receiver that reports every note-on as a
// CodeMIDINote key event. Note-on with velocity 0 is a note-off and is
// ignored. post is called on the driver's goroutine.
func MIDIHandler(post func(KeyEvent)) func(msg gomidi.Message, timestampms int32) {
	return func(msg gomidi.Message, timestampms int32) {
		var channel, note, velocity uint8
		if msg.GetNoteOn(&channel, &note, &velocity) && velocity > 0 {
			post(KeyEvent{Code: CodeMIDINote, Note: note, Velocity: velocity})
		}
	}
}

// MIDIPorts lists the input ports of the registered driver.
func MIDIPorts() []string {
	var names []string
	for _, in := range gomidi.GetInPorts() {
		names = append(names, in.String())
	}
	return names
}

// ListenMIDI opens the first input port whose name contains portName
// (case-insensitive, empty matches any) and posts its note-ons.
func ListenMIDI(portName string, post func(KeyEvent)) (stop func(), err error) {
	want := strings.ToLower(portName)
	for _, in := range gomidi.GetInPorts() {
		if !strings.Contains(strings.ToLower(in.String()), want) {
			continue
		}
		stop, err := gomidi.ListenTo(in, MIDIHandler(post))
		if err != nil {
			return nil, fmt.Errorf("listen %s: %w", in.String(), err)
		}
		debug.Log("midi", "listening on %s", in.String())
		return stop, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoMIDIPort, portName)
}
