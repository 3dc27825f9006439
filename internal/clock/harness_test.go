package clock

import (
	"math"

	"github.com/cbegin/polyclock-go/internal/audio"
	"github.com/cbegin/polyclock-go/internal/input"
	"github.com/cbegin/polyclock-go/internal/runloop"
	"github.com/cbegin/polyclock-go/internal/samples"
)

type commit struct {
	clip    string
	at, now float64
}

type recorder struct {
	*audio.Backend
	commits []commit
}

func (r *recorder) PlayAt(c *audio.Clip, at float64, g *audio.Gain) {
	r.commits = append(r.commits, commit{c.Name, at, r.Now()})
	r.Backend.PlayAt(c, at, g)
}

func (r *recorder) commitsOf(name string) []commit {
	var out []commit
	for _, c := range r.commits {
		if c.clip == name {
			out = append(out, c)
		}
	}
	return out
}

// harness runs clocks on a 1 kHz backend so times are exact in milliseconds.
type harness struct {
	out     *recorder
	loop    *runloop.Loop
	keys    *input.Router
	samples *samples.Store
}

func newHarness() *harness {
	out := &recorder{Backend: audio.NewBackend(1000)}
	return &harness{
		out:     out,
		loop:    runloop.New(out),
		keys:    input.NewRouter(),
		samples: samples.Builtin(1000),
	}
}

func (h *harness) deps() Deps {
	return Deps{Out: h.out, Loop: h.loop, Samples: h.samples, Keys: h.keys, Dest: h.out.Master()}
}

// advance renders in 5ms blocks, running the loop after each.
func (h *harness) advance(seconds float64) {
	buf := make([]float32, 5*2)
	for i := 0; i < int(math.Round(seconds/0.005)); i++ {
		h.out.Process(buf)
		h.loop.RunDue()
	}
}

// advanceTo advances until the clock reads t.
func (h *harness) advanceTo(t float64) {
	h.advance(t - h.out.Now())
}

func (h *harness) stall(seconds float64) {
	h.out.Process(make([]float32, int(math.Round(seconds*1000))*2))
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func equalBeats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !near(a[i], b[i]) {
			return false
		}
	}
	return true
}
