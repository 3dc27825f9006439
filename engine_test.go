package polyclock

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/spf13/afero"

	"github.com/cbegin/polyclock-go/internal/clock"
	"github.com/cbegin/polyclock-go/internal/ensemble"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(append([]Option{WithBus(false)}, opts...)...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func firstSound(buf []float32) int {
	for i := 0; i+1 < len(buf); i += 2 {
		if buf[i] != 0 {
			return i / 2
		}
	}
	return -1
}

// sectorPoint returns a point inside menu sector i of a clock at (x, y).
func sectorPoint(x, y float64, i int) (float64, float64) {
	angle := (float64(i)+0.5)*math.Pi/3 - math.Pi
	return x + 50*math.Cos(angle), y + 50*math.Sin(angle)
}

func TestEngineDefaults(t *testing.T) {
	e := newTestEngine(t)
	if e.Tempo() != 100 {
		t.Fatalf("tempo = %v, want 100", e.Tempo())
	}
	if got := e.MasterVolume(); got != 0.7 {
		t.Fatalf("master volume = %v, want 0.7", got)
	}
	e.SetMasterVolume(3)
	if got := e.MasterVolume(); got != 1 {
		t.Fatalf("master volume should clamp to 1, got %v", got)
	}
	if _, err := NewEngine(WithSampleRate(0)); err == nil {
		t.Fatalf("expected error for zero sample rate")
	}
	if got := e.OutputLatency(); got != 0 {
		t.Fatalf("stopped engine reports latency %v", got)
	}
}

func TestOfflineRenderPlacesFirstBeat(t *testing.T) {
	e := newTestEngine(t)
	e.PointerDown(100, 100)

	// default offset -0.3 puts beat 0 at 0.3s
	out := e.Advance(0.5)
	if got, want := firstSound(out), 14400; got != want {
		t.Fatalf("first sound at frame %d, want %d", got, want)
	}
	if e.Now() != 0.5 {
		t.Fatalf("Now = %v after 0.5s", e.Now())
	}
}

func TestOfflineRenderIsDeterministic(t *testing.T) {
	render := func() []float32 {
		e := newTestEngine(t, WithBus(true))
		e.PointerDown(100, 100)
		e.PointerDown(400, 100)
		e.Advance(0.4)
		e.SetTempo(140)
		return e.Advance(1.2)
	}
	a, b := render(), render()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("renders differ at sample %d", i)
		}
	}
}

func TestRecordingThroughEngine(t *testing.T) {
	e := newTestEngine(t)
	events := e.Watch()
	id, _ := e.PointerDown(100, 100)

	x, y := sectorPoint(100, 100, 0)
	if _, a := e.PointerDown(x, y); a != clock.ActionRecord {
		t.Fatalf("action = %v, want Record", a)
	}

	// offset time -0.3 at t=0; a 2.4s loop starts recording at offset 2.4,
	// real 2.7
	e.Advance(3.0)
	e.Key("KeyJ")
	var beats []float64
	e.Do(func(ens *ensemble.Ensemble) { beats = ens.Find(id).Beats() })
	if len(beats) != 1 || beats[0] != 0.5 {
		t.Fatalf("beats = %v, want [0.5]", beats)
	}

	want := []Event{
		{Kind: EventClockAdded, ClockID: id},
		{Kind: EventRecording, ClockID: id, Recording: clock.CountingIn},
		{Kind: EventRecording, ClockID: id, Recording: clock.Recording},
	}
	for _, w := range want {
		select {
		case got := <-events:
			if got != w {
				t.Fatalf("event = %+v, want %+v", got, w)
			}
		default:
			t.Fatalf("missing event %+v", w)
		}
	}
}

func TestFrameSweepsDeletedClocks(t *testing.T) {
	e := newTestEngine(t)
	events := e.Watch()
	e.PointerDown(100, 100)
	x, y := sectorPoint(100, 100, 2)
	if _, a := e.PointerDown(x, y); a != clock.ActionDelete {
		t.Fatalf("action = %v, want Delete", a)
	}
	if states := e.Frame(); len(states) != 0 {
		t.Fatalf("frame has %d clocks after delete", len(states))
	}
	<-events
	if ev := <-events; ev.Kind != EventClockRemoved {
		t.Fatalf("event = %+v, want removal", ev)
	}
}

func TestWriteWAV(t *testing.T) {
	fs := afero.NewMemMapFs()
	samples := []float32{0, 0.5, -0.5, 1}
	if err := WriteWAV(fs, "/out.wav", samples, 48000); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	data, err := afero.ReadFile(fs, "/out.wav")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(data) != 44+len(samples)*4 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("bad header: % x", data[:12])
	}
	if format := binary.LittleEndian.Uint16(data[20:]); format != 3 {
		t.Fatalf("format = %d, want IEEE float", format)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(data[44+4:])); got != 0.5 {
		t.Fatalf("second sample = %v", got)
	}
}
