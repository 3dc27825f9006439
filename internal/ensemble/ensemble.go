// Package ensemble coordinates the set of clocks: it owns the shared tempo
// and phase offset, creates clocks on empty clicks, routes clicks to the
// topmost clock, and drops deleted clocks once per frame.
package ensemble

import (
	"github.com/google/uuid"

	"github.com/cbegin/polyclock-go/internal/clock"
	"github.com/cbegin/polyclock-go/internal/debug"
)

const (
	DefaultBPM        = 100.0
	DefaultTimeOffset = -0.3 // keeps the first beat from landing before audio is running
	MinBPM            = 50.0
	MaxBPM            = 200.0

	// NewClockLength and NewClockBeats shape clocks created by a click.
	NewClockLength = 4
)

var NewClockBeats = []float64{0}

type Option func(*Ensemble)

func WithBPM(bpm float64) Option {
	return func(e *Ensemble) { e.bpm = clampBPM(bpm) }
}

func WithTimeOffset(s float64) Option {
	return func(e *Ensemble) { e.timeOffset = s }
}

// WithClockOptions are applied to every clock the ensemble creates.
func WithClockOptions(opts ...clock.Option) Option {
	return func(e *Ensemble) { e.clockOpts = append(e.clockOpts, opts...) }
}

// WithClockHook is told about clocks being added and removed.
func WithClockHook(fn func(c *clock.Clock, added bool)) Option {
	return func(e *Ensemble) { e.onClock = fn }
}

// Ensemble is confined to the run loop. It is the only writer of the shared
// bpm and time offset.
type Ensemble struct {
	deps       clock.Deps
	bpm        float64
	timeOffset float64
	clocks     []*clock.Clock // insertion order, last is on top
	clockOpts  []clock.Option
	onClock    func(*clock.Clock, bool)
}

func New(deps clock.Deps, opts ...Option) *Ensemble {
	e := &Ensemble{
		deps:       deps,
		bpm:        DefaultBPM,
		timeOffset: DefaultTimeOffset,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Ensemble) Tempo() float64      { return e.bpm }
func (e *Ensemble) TimeOffset() float64 { return e.timeOffset }

// SetTempo changes the shared tempo, clamped to MinBPM..MaxBPM. The time
// offset is recomputed so every loop keeps its current phase, then both are
// pushed to all clocks.
func (e *Ensemble) SetTempo(bpm float64) {
	bpm = clampBPM(bpm)
	if bpm == e.bpm {
		return
	}
	now := e.deps.Out.Now()
	e.timeOffset = e.bpm/bpm*(now+e.timeOffset) - now
	e.bpm = bpm
	debug.Log("ensemble", "tempo %.0f offset %.4f at %.4f", e.bpm, e.timeOffset, now)
	for _, c := range e.clocks {
		c.SetTempo(e.bpm, e.timeOffset)
	}
}

// AddClock creates a clock at (x, y) with the default new-clock shape and
// the shared tempo, and puts it on top.
func (e *Ensemble) AddClock(x, y float64, opts ...clock.Option) *clock.Clock {
	all := append([]clock.Option{
		clock.WithPosition(x, y),
		clock.WithLength(NewClockLength),
		clock.WithBPM(e.bpm),
		clock.WithTimeOffset(e.timeOffset),
	}, e.clockOpts...)
	all = append(all, opts...)
	c := clock.New(e.deps, all...)
	c.SetBeats(NewClockBeats)
	e.clocks = append(e.clocks, c)
	debug.Log("clock", "created %s", c.DebugString())
	if e.onClock != nil {
		e.onClock(c, true)
	}
	return c
}

// ClockAt returns the topmost clock containing (x, y), or nil.
func (e *Ensemble) ClockAt(x, y float64) *clock.Clock {
	for i := len(e.clocks) - 1; i >= 0; i-- {
		c := e.clocks[i]
		if !c.ToDelete() && c.ContainsPosition(x, y) {
			return c
		}
	}
	return nil
}

// PointerDown delivers a click to the topmost clock under it, or creates a
// new clock there. The action is what the clicked clock did; a new clock
// reports ActionNone.
func (e *Ensemble) PointerDown(x, y float64) (*clock.Clock, clock.Action) {
	if c := e.ClockAt(x, y); c != nil {
		return c, c.Click(x, y)
	}
	return e.AddClock(x, y), clock.ActionNone
}

// Sweep removes clocks flagged for deletion.
func (e *Ensemble) Sweep() {
	kept := e.clocks[:0]
	for _, c := range e.clocks {
		if c.ToDelete() {
			if e.onClock != nil {
				e.onClock(c, false)
			}
			continue
		}
		kept = append(kept, c)
	}
	for i := len(kept); i < len(e.clocks); i++ {
		e.clocks[i] = nil
	}
	e.clocks = kept
}

// Frame is the per-frame pass: sweep, then snapshot every clock at now.
func (e *Ensemble) Frame(now float64) []clock.State {
	e.Sweep()
	states := make([]clock.State, len(e.clocks))
	for i, c := range e.clocks {
		states[i] = c.State(now)
	}
	return states
}

func (e *Ensemble) Clocks() []*clock.Clock {
	return append([]*clock.Clock(nil), e.clocks...)
}

func (e *Ensemble) Find(id uuid.UUID) *clock.Clock {
	for _, c := range e.clocks {
		if c.ID() == id {
			return c
		}
	}
	return nil
}

func clampBPM(bpm float64) float64 {
	if bpm < MinBPM {
		return MinBPM
	}
	if bpm > MaxBPM {
		return MaxBPM
	}
	return bpm
}
