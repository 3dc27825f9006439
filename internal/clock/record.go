package clock

import (
	"math"

	"github.com/cbegin/polyclock-go/internal/debug"
	"github.com/cbegin/polyclock-go/internal/input"
	"github.com/cbegin/polyclock-go/internal/runloop"
	"github.com/cbegin/polyclock-go/internal/samples"
	"github.com/cbegin/polyclock-go/internal/ticker"
)

const (
	// CountInBeats is the metronome lead-in before recording, independent of
	// the clock length.
	CountInBeats = 4

	// RecordGuard opens the key listener this many seconds early so a press
	// right on the boundary still counts.
	RecordGuard = 0.1
)

type RecordingState int

const (
	Idle RecordingState = iota
	CountingIn
	Recording
)

func (s RecordingState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case CountingIn:
		return "CountingIn"
	case Recording:
		return "Recording"
	}
	return "RecordingState(?)"
}

// recording is one capture session. start and end are in offset time.
type recording struct {
	start, end float64
	countIn    *ticker.Ticker
	waits      []*runloop.Timer
	detach     func()
	beats      []float64
}

func (r *recording) release() {
	for _, w := range r.waits {
		w.Stop()
	}
	r.waits = nil
	if r.countIn != nil {
		r.countIn.Stop()
	}
	if r.detach != nil {
		r.detach()
		r.detach = nil
	}
}

// RecordBeats clears the clock and records one loop of key presses,
// starting on the first loop boundary at least CountInBeats away. A session
// already in progress is cancelled first.
func (c *Clock) RecordBeats() {
	if c.toDelete {
		return
	}
	c.stopRecording()
	c.SetBeats(nil)

	t := c.offsetTime()
	d := c.beatToTime(float64(c.length))
	start := d * (math.Floor(t/d) + 1)
	for start-t < c.beatToTime(CountInBeats) {
		start += d
	}
	rec := &recording{start: start, end: start + d}
	c.rec = rec

	offsets := make([]float64, CountInBeats)
	for i := range offsets {
		offsets[i] = c.beatToTime(float64(i))
	}
	if click := c.samples.Get(samples.CountInSample); click != nil {
		rec.countIn = ticker.New(c.out, c.loop, click, c.tickerOpts...).
			Queue(offsets...).
			Connect(c.dest).
			StartAt(c.toRealTime(start) - c.beatToTime(CountInBeats))
	}
	rec.waits = append(rec.waits, c.loop.At(c.toRealTime(start-RecordGuard), func() {
		c.beginCapture(rec)
	}))
	debug.Log("record", "%s count-in, recording %.3f..%.3f", c.shortID(), rec.start, rec.end)
	c.setState(CountingIn)
}

func (c *Clock) beginCapture(rec *recording) {
	if c.rec != rec {
		return
	}
	if rec.countIn != nil {
		rec.countIn.Stop()
	}
	if c.keys != nil {
		rec.detach = c.keys.Subscribe(func(ev input.KeyEvent) { c.capture(rec, ev) })
	}
	rec.waits = append(rec.waits, c.loop.At(c.toRealTime(rec.end), func() {
		c.finishRecording(rec)
	}))
	c.setState(Recording)
}

func (c *Clock) capture(rec *recording, ev input.KeyEvent) {
	if c.rec != rec || !c.isTriggerKey(ev.Code) {
		return
	}
	t := math.Max(rec.start, math.Min(rec.end, c.offsetTime()))
	if c.ticker != nil {
		c.ticker.PlayNow()
	}
	rec.beats = append(rec.beats, c.timeToBeat(t-rec.start))
	debug.Log("record", "%s key %s -> beat %.3f", c.shortID(), ev.Code, rec.beats[len(rec.beats)-1])
	c.SetBeats(rec.beats)
}

func (c *Clock) finishRecording(rec *recording) {
	if c.rec != rec {
		return
	}
	rec.release()
	c.rec = nil
	debug.Log("record", "%s done, %d beats", c.shortID(), len(rec.beats))
	c.setState(Idle)
}

func (c *Clock) isTriggerKey(code string) bool {
	for _, k := range c.triggerKeys {
		if k == code {
			return true
		}
	}
	return false
}

// CancelRecording abandons a count-in or recording in progress. Beats
// captured so far are kept.
func (c *Clock) CancelRecording() {
	if c.stopRecording() {
		c.setState(Idle)
	}
}

func (c *Clock) stopRecording() bool {
	if c.rec == nil {
		return false
	}
	c.rec.release()
	c.rec = nil
	return true
}

func (c *Clock) setState(s RecordingState) {
	if c.state == s {
		return
	}
	c.state = s
	if c.onState != nil {
		c.onState(c, s)
	}
}

// RecordingWindow returns the recording start and end in offset time, and
// false when no session is active.
func (c *Clock) RecordingWindow() (start, end float64, ok bool) {
	if c.rec == nil {
		return 0, 0, false
	}
	return c.rec.start, c.rec.end, true
}
