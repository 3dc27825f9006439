// Package ticker schedules sample playback against the audio clock.
//
// A Ticker polls on a coarse cadence (the lookahead) and commits every queued
// trigger that falls inside the schedule horizon to the audio backend, which
// fires it at the exact frame. Poll jitter therefore only changes how early a
// trigger is committed, never when it sounds.
package ticker

import (
	"math"
	"sort"

	"github.com/cbegin/polyclock-go/internal/audio"
	"github.com/cbegin/polyclock-go/internal/debug"
	"github.com/cbegin/polyclock-go/internal/runloop"
)

const (
	DefaultLookahead = 0.025
	DefaultHorizon   = 0.1
)

// tracePolls is how many polls, across all tickers, share one trace line.
const tracePolls = 40

// Output is the part of the audio backend a Ticker drives.
type Output interface {
	Now() float64
	PlayAt(clip *audio.Clip, at float64, dest *audio.Gain)
	NewGain(value float64) *audio.Gain
}

// Stats counts what the poll did with popped triggers.
type Stats struct {
	Committed int
	Missed    int
}

type Option func(*Ticker)

// WithLookahead sets the poll cadence in seconds.
func WithLookahead(s float64) Option {
	return func(t *Ticker) {
		if s > 0 {
			t.lookahead = s
		}
	}
}

// WithHorizon sets how far ahead of now triggers may be committed.
func WithHorizon(s float64) Option {
	return func(t *Ticker) {
		if s > 0 {
			t.horizon = s
		}
	}
}

// Ticker plays one clip at queued offsets from a start instant, optionally
// looping. It is confined to its run loop.
type Ticker struct {
	out  Output
	loop *runloop.Loop
	gain *audio.Gain
	clip *audio.Clip

	queue     []float64 // offsets from startTime, ascending
	startTime float64
	period    float64

	lookahead float64
	horizon   float64

	timer *runloop.Timer
	stats Stats
}

func New(out Output, loop *runloop.Loop, clip *audio.Clip, opts ...Option) *Ticker {
	t := &Ticker{
		out:       out,
		loop:      loop,
		clip:      clip,
		gain:      out.NewGain(1),
		lookahead: DefaultLookahead,
		horizon:   DefaultHorizon,
	}
	for _, o := range opts {
		o(t)
	}
	if t.lookahead >= t.horizon {
		t.lookahead = t.horizon / 4
	}
	return t
}

// Queue adds trigger offsets, in seconds after the start instant.
func (t *Ticker) Queue(offsets ...float64) *Ticker {
	for _, off := range offsets {
		t.push(off)
	}
	return t
}

func (t *Ticker) push(off float64) {
	i := sort.SearchFloat64s(t.queue, off)
	// equal offsets keep insertion order
	for i < len(t.queue) && t.queue[i] == off {
		i++
	}
	t.queue = append(t.queue, 0)
	copy(t.queue[i+1:], t.queue[i:])
	t.queue[i] = off
}

// LoopEvery re-queues each consumed offset period seconds later. Zero makes
// the queue one-shot.
func (t *Ticker) LoopEvery(period float64) *Ticker {
	if period < 0 {
		period = 0
	}
	t.period = period
	return t
}

// Connect routes the ticker's gain node into dest.
func (t *Ticker) Connect(dest *audio.Gain) *Ticker {
	if dest != nil {
		t.gain.Connect(dest)
	}
	return t
}

// Disconnect detaches the gain node; committed triggers go silent.
func (t *Ticker) Disconnect() {
	t.gain.Disconnect()
}

// Start starts the ticker now.
func (t *Ticker) Start() *Ticker {
	return t.StartAt(t.out.Now())
}

// StartAt aligns offset zero with the absolute time at, which may be in the
// past: the first poll then skips whatever has already elapsed and continues
// from the correct position.
func (t *Ticker) StartAt(at float64) *Ticker {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.startTime = at
	t.fastForward(t.out.Now())
	t.poll()
	t.timer = t.loop.Every(t.lookahead, t.poll)
	return t
}

// fastForward moves looping offsets that are over a period behind now by
// whole periods. Those triggers could only ever be dropped.
func (t *Ticker) fastForward(now float64) {
	if t.period <= 0 || len(t.queue) == 0 {
		return
	}
	moved := false
	for i, off := range t.queue {
		lag := now - (t.startTime + off)
		if lag > t.period {
			t.queue[i] = off + math.Floor(lag/t.period)*t.period
			moved = true
		}
	}
	if moved {
		sort.Float64s(t.queue)
	}
}

// Stop halts polling. Triggers already committed to the backend still play.
func (t *Ticker) Stop() *Ticker {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	return t
}

func (t *Ticker) poll() {
	now := t.out.Now()
	limit := now + t.horizon
	for len(t.queue) > 0 && t.startTime+t.queue[0] < limit {
		off := t.queue[0]
		t.queue = t.queue[1:]
		if t.period > 0 {
			t.push(off + t.period)
		}
		at := t.startTime + off
		if at < now {
			t.stats.Missed++
			debug.Log("ticker", "missed %s at %.4f (now %.4f)", t.clipName(), at, now)
			continue
		}
		t.out.PlayAt(t.clip, at, t.gain)
		t.stats.Committed++
	}
	debug.LogEvery(tracePolls, "ticker", "poll %s now=%.3f pending=%d committed=%d missed=%d",
		t.clipName(), now, len(t.queue), t.stats.Committed, t.stats.Missed)
}

func (t *Ticker) clipName() string {
	if t.clip == nil {
		return "<nil>"
	}
	return t.clip.Name
}

// SetGain ramps the volume linearly to v over fade seconds.
func (t *Ticker) SetGain(v, fade float64) *Ticker {
	t.gain.LinearRampTo(v, t.out.Now()+fade)
	return t
}

// SetSample swaps the clip for future commits only.
func (t *Ticker) SetSample(clip *audio.Clip) *Ticker {
	t.clip = clip
	return t
}

// PlayNow plays the clip immediately, bypassing the queue.
func (t *Ticker) PlayNow() {
	t.out.PlayAt(t.clip, t.out.Now(), t.gain)
}

func (t *Ticker) Running() bool       { return t.timer.Active() }
func (t *Ticker) StartTime() float64  { return t.startTime }
func (t *Ticker) Period() float64     { return t.period }
func (t *Ticker) Lookahead() float64  { return t.lookahead }
func (t *Ticker) Horizon() float64    { return t.horizon }
func (t *Ticker) Gain() *audio.Gain   { return t.gain }
func (t *Ticker) Sample() *audio.Clip { return t.clip }
func (t *Ticker) Stats() Stats        { return t.stats }

// Pending returns a copy of the queued offsets.
func (t *Ticker) Pending() []float64 {
	return append([]float64(nil), t.queue...)
}
