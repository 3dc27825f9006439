package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	polyclock "github.com/cbegin/polyclock-go"
	"github.com/cbegin/polyclock-go/internal/clock"
	"github.com/cbegin/polyclock-go/internal/ensemble"
)

type fakeEngine struct {
	states  []clock.State
	keys    []string
	clicks  [][2]float64
	id      uuid.UUID
	action  clock.Action
	tempo   float64
	volume  float64
	doCalls int
	latency float64
	events  chan polyclock.Event
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{tempo: 100, volume: 0.7, id: uuid.New(), events: make(chan polyclock.Event, 1)}
}

func (f *fakeEngine) Frame() []clock.State  { return f.states }
func (f *fakeEngine) Key(code string)       { f.keys = append(f.keys, code) }
func (f *fakeEngine) Tempo() float64        { return f.tempo }
func (f *fakeEngine) SetTempo(bpm float64)  { f.tempo = bpm }
func (f *fakeEngine) MasterVolume() float64 { return f.volume }
func (f *fakeEngine) SetMasterVolume(v float64) {
	f.volume = v
}
func (f *fakeEngine) OutputLatency() float64        { return f.latency }
func (f *fakeEngine) Watch() <-chan polyclock.Event { return f.events }

func (f *fakeEngine) PointerDown(x, y float64) (uuid.UUID, clock.Action) {
	f.clicks = append(f.clicks, [2]float64{x, y})
	return f.id, f.action
}

func (f *fakeEngine) Do(fn func(ens *ensemble.Ensemble)) error {
	f.doCalls++
	return nil
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestKeysReachRecordingListeners(t *testing.T) {
	f := newFakeEngine()
	m := NewModel(f)
	m = update(t, m, runes("d"))
	m = update(t, m, runes("K"))
	m = update(t, m, runes("?"))
	want := []string{"KeyD", "KeyK"}
	if strings.Join(f.keys, ",") != strings.Join(want, ",") {
		t.Fatalf("keys = %v, want %v", f.keys, want)
	}
}

func TestTempoAndVolumeKeys(t *testing.T) {
	f := newFakeEngine()
	m := NewModel(f)
	m = update(t, m, runes("+"))
	m = update(t, m, runes("+"))
	m = update(t, m, runes("-"))
	if f.tempo != 105 {
		t.Fatalf("tempo = %v, want 105", f.tempo)
	}
	m = update(t, m, runes(","))
	if f.volume < 0.649 || f.volume > 0.651 {
		t.Fatalf("volume = %v, want 0.65", f.volume)
	}
}

func TestQuit(t *testing.T) {
	m := NewModel(newFakeEngine())
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatalf("ctrl+c returned no command")
	}
	if next.(Model).View() != "" {
		t.Fatalf("view not cleared after quit")
	}
}

func TestClickMapsCellToClockSpace(t *testing.T) {
	f := newFakeEngine()
	m := NewModel(f)
	m = update(t, m, tea.MouseMsg{X: 10, Y: headerLines + 5, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if len(f.clicks) != 1 {
		t.Fatalf("clicks = %d, want 1", len(f.clicks))
	}
	if got := f.clicks[0]; got[0] != 84 || got[1] != 88 {
		t.Fatalf("click at %v, want [84 88]", got)
	}
	if m.selected != f.id {
		t.Fatalf("clicked clock not selected")
	}

	// the header is not part of the canvas
	m = update(t, m, tea.MouseMsg{X: 10, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if len(f.clicks) != 1 {
		t.Fatalf("header click reached the ensemble")
	}
}

func TestMenuSectorStartsAdjusting(t *testing.T) {
	f := newFakeEngine()
	f.action = clock.ActionLength
	m := NewModel(f)
	m = update(t, m, tea.MouseMsg{X: 10, Y: 10, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if m.adjusting != clock.ActionLength {
		t.Fatalf("adjusting = %v, want Length", m.adjusting)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	m = update(t, m, tea.MouseMsg{X: 10, Y: 10, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
	if f.doCalls != 2 {
		t.Fatalf("Do calls = %d, want 2", f.doCalls)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if f.doCalls != 2 {
		t.Fatalf("arrow adjusted after esc")
	}
}

func TestHandleClickDrags(t *testing.T) {
	f := newFakeEngine()
	f.action = clock.ActionMove
	m := NewModel(f)
	m = update(t, m, tea.MouseMsg{X: 10, Y: 10, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = update(t, m, tea.MouseMsg{X: 12, Y: 10, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	m = update(t, m, tea.MouseMsg{X: 12, Y: 10, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	m = update(t, m, tea.MouseMsg{X: 14, Y: 10, Action: tea.MouseActionMotion})
	if f.doCalls != 1 {
		t.Fatalf("Do calls = %d, want 1 move while dragging", f.doCalls)
	}
}

func TestFrameDropsVanishedSelection(t *testing.T) {
	f := newFakeEngine()
	m := NewModel(f)
	m.selected = f.id
	m = update(t, m, FrameMsg{})
	if m.selected != uuid.Nil {
		t.Fatalf("selection kept after clock was swept")
	}
}

func TestViewDrawsClock(t *testing.T) {
	f := newFakeEngine()
	f.states = []clock.State{{
		ID:        uuid.New(),
		X:         160,
		Y:         160,
		Radius:    80,
		Color:     [3]uint8{200, 100, 50},
		Length:    4,
		Divisions: 4,
		Sample:    "kick",
		Beats:     []float64{0, 2},
		Lit:       []bool{false, false},
		Phase:     0.25,
		Filling:   true,
	}}
	f.latency = 0.045
	m := NewModel(f)
	view := m.View()
	for _, want := range []string{"100bpm", "clocks:1", "lat:45ms", "kick", "●", "+"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestCanvasRingPoints(t *testing.T) {
	s := clock.State{X: 164, Y: 168, Radius: 80}
	cases := []struct {
		p        float64
		col, row int
	}{
		{0, 20, 5},
		{0.25, 30, 10},
		{0.5, 20, 15},
		{0.75, 10, 10},
	}
	for _, tc := range cases {
		col, row := ringPoint(s, tc.p, 1)
		if col != tc.col || row != tc.row {
			t.Errorf("ringPoint(%v) = %d,%d, want %d,%d", tc.p, col, row, tc.col, tc.row)
		}
	}
}

func TestDescribeEvent(t *testing.T) {
	id := uuid.MustParse("12345678-0000-0000-0000-000000000000")
	got := describeEvent(polyclock.Event{Kind: polyclock.EventRecording, ClockID: id, Recording: clock.CountingIn})
	if got != "clock 12345678 counting in" {
		t.Fatalf("describeEvent = %q", got)
	}
}
