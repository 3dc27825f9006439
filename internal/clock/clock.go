// Package clock implements a single looping voice: a ring of beats played
// with one sample at the ensemble tempo, with a radial control menu and a
// count-in recording mode.
//
// A Clock never edits its schedule in place. Every parameter change derives
// the beat set again from the raw beats and swaps in a fresh ticker, fading
// the old one out.
package clock

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"github.com/cbegin/polyclock-go/internal/audio"
	"github.com/cbegin/polyclock-go/internal/debug"
	"github.com/cbegin/polyclock-go/internal/input"
	"github.com/cbegin/polyclock-go/internal/runloop"
	"github.com/cbegin/polyclock-go/internal/samples"
	"github.com/cbegin/polyclock-go/internal/ticker"
)

const (
	DefaultRadius    = 80.0
	DefaultVolume    = 0.7
	DefaultBPM       = 120.0
	DefaultDivisions = 4
	DefaultLength    = 1
	MaxLength        = 12

	// RetireFade is how long a replaced ticker takes to fade out.
	RetireFade = 0.5
)

// DivisionOptions are the snapping grids offered by the snapping control.
var DivisionOptions = []int{2, 3, 4, 6, 8, 12, 16}

// DefaultTriggerKeys are the keys that record a beat.
var DefaultTriggerKeys = []string{"KeyD", "KeyF", "KeyJ", "KeyK", input.CodeMIDINote}

// Deps are the collaborators a Clock schedules against.
type Deps struct {
	Out     ticker.Output
	Loop    *runloop.Loop
	Samples *samples.Store
	Keys    *input.Router
	Dest    *audio.Gain // usually the master gain
}

type Option func(*Clock)

func WithPosition(x, y float64) Option {
	return func(c *Clock) { c.x, c.y = x, y }
}

func WithLength(n int) Option {
	return func(c *Clock) {
		if n >= 1 {
			c.length = n
		}
	}
}

func WithBPM(bpm float64) Option {
	return func(c *Clock) {
		if bpm > 0 {
			c.bpm = bpm
		}
	}
}

func WithDivisions(n int) Option {
	return func(c *Clock) { c.divisions = n }
}

func WithTimeOffset(s float64) Option {
	return func(c *Clock) { c.timeOffset = s }
}

// WithSample selects the clip by name; unknown names keep the default.
func WithSample(name string) Option {
	return func(c *Clock) {
		if clip := c.samples.Get(name); clip != nil {
			c.sample = clip
		}
	}
}

func WithVolume(v float64) Option {
	return func(c *Clock) { c.volume = clamp(v, 0, 1) }
}

func WithRadius(r float64) Option {
	return func(c *Clock) {
		if r > 0 {
			c.radius = r
		}
	}
}

// WithTickerOptions are applied to every ticker the clock creates.
func WithTickerOptions(opts ...ticker.Option) Option {
	return func(c *Clock) { c.tickerOpts = append(c.tickerOpts, opts...) }
}

// WithTriggerKeys replaces the key codes that record beats.
func WithTriggerKeys(codes ...string) Option {
	return func(c *Clock) { c.triggerKeys = append([]string(nil), codes...) }
}

// WithStateHook is called on every recording state transition.
func WithStateHook(fn func(*Clock, RecordingState)) Option {
	return func(c *Clock) { c.onState = fn }
}

type Clock struct {
	id      uuid.UUID
	out     ticker.Output
	loop    *runloop.Loop
	samples *samples.Store
	keys    *input.Router
	dest    *audio.Gain

	gain       *audio.Gain
	volume     float64
	tickerOpts []ticker.Option

	x, y         float64
	radius       float64
	handleRadius float64
	color        [3]uint8

	length     int
	rawBeats   []float64
	beats      []float64
	divisions  int
	bpm        float64
	timeOffset float64
	sample     *audio.Clip

	ticker   *ticker.Ticker
	toDelete bool

	rec         *recording
	state       RecordingState
	triggerKeys []string
	onState     func(*Clock, RecordingState)
}

// New creates a silent clock; nothing plays until SetBeats (or any setter)
// builds its first ticker.
func New(deps Deps, opts ...Option) *Clock {
	c := &Clock{
		id:          uuid.New(),
		out:         deps.Out,
		loop:        deps.Loop,
		samples:     deps.Samples,
		keys:        deps.Keys,
		dest:        deps.Dest,
		volume:      DefaultVolume,
		radius:      DefaultRadius,
		length:      DefaultLength,
		divisions:   DefaultDivisions,
		bpm:         DefaultBPM,
		sample:      deps.Samples.First(),
		triggerKeys: DefaultTriggerKeys,
	}
	for i := range c.color {
		c.color[i] = uint8(100 + rand.Intn(155))
	}
	for _, o := range opts {
		o(c)
	}
	c.handleRadius = 0.2 * c.radius
	c.gain = c.out.NewGain(c.volume)
	if c.dest != nil {
		c.gain.Connect(c.dest)
	}
	return c
}

func (c *Clock) ID() uuid.UUID { return c.id }

func (c *Clock) offsetTime() float64          { return c.out.Now() + c.timeOffset }
func (c *Clock) toRealTime(t float64) float64 { return t - c.timeOffset }
func (c *Clock) beatToTime(b float64) float64 { return 60 / c.bpm * b }
func (c *Clock) timeToBeat(t float64) float64 { return c.bpm / 60 * t }

func (c *Clock) snapInterval() float64 {
	if c.divisions <= 0 {
		return 0
	}
	return 1 / float64(c.divisions)
}

// SetBeats stores raw beat positions, derives the playable set and replaces
// the ticker. The new ticker loops every length beats and starts at
// -timeOffset so all clocks share one phase.
func (c *Clock) SetBeats(raw []float64) {
	if c.toDelete {
		return
	}
	c.rawBeats = append([]float64(nil), raw...)
	c.beats = DeriveBeats(c.rawBeats, c.length, c.snapInterval())

	c.retireTicker()
	offsets := make([]float64, len(c.beats))
	for i, b := range c.beats {
		offsets[i] = c.beatToTime(b)
	}
	c.ticker = ticker.New(c.out, c.loop, c.sample, c.tickerOpts...).
		LoopEvery(c.beatToTime(float64(c.length))).
		Queue(offsets...).
		Connect(c.gain).
		StartAt(-c.timeOffset)
	debug.Log("clock", "%s beats=%v period=%.3fs", c.shortID(), c.beats, c.ticker.Period())
}

// retireTicker fades the current ticker out and stops it. Its triggers that
// were already committed still play through the fade; the gain node is
// disconnected once they are over.
func (c *Clock) retireTicker() {
	old := c.ticker
	if old == nil {
		return
	}
	c.ticker = nil
	old.SetGain(0, RetireFade)
	old.Stop()
	c.loop.At(c.out.Now()+RetireFade+old.Horizon(), old.Disconnect)
}

// Recalculate rebuilds the schedule from the raw beats.
func (c *Clock) Recalculate() {
	c.SetBeats(c.rawBeats)
}

func (c *Clock) SetBPM(bpm float64) {
	if bpm <= 0 {
		return
	}
	c.retime(bpm, c.timeOffset)
}

// SetDivisions sets the snap grid to 1/n beats; n <= 0 disables snapping.
func (c *Clock) SetDivisions(n int) {
	c.divisions = n
	c.Recalculate()
}

// SetLength sets the loop length in beats, at least 1.
func (c *Clock) SetLength(n int) {
	if n < 1 {
		n = 1
	}
	c.length = n
	c.Recalculate()
}

func (c *Clock) SetTimeOffset(s float64) {
	c.retime(c.bpm, s)
}

// SetTempo applies a new bpm and time offset with a single rebuild.
func (c *Clock) SetTempo(bpm, timeOffset float64) {
	if bpm <= 0 {
		bpm = c.bpm
	}
	c.retime(bpm, timeOffset)
}

// retime moves the clock onto new timing. A count-in or recording planned on
// the old timing is cancelled.
func (c *Clock) retime(bpm, timeOffset float64) {
	if c.rec != nil && (bpm != c.bpm || timeOffset != c.timeOffset) {
		debug.Log("record", "%s cancelled by tempo change", c.shortID())
		c.CancelRecording()
	}
	c.bpm = bpm
	c.timeOffset = timeOffset
	c.Recalculate()
}

func (c *Clock) SetVolume(v float64) {
	c.volume = clamp(v, 0, 1)
	c.gain.SetValue(c.volume)
}

func (c *Clock) SetPosition(x, y float64) {
	c.x, c.y = x, y
}

// NextSample switches to the next clip in the store.
func (c *Clock) NextSample() {
	c.sample = c.samples.Next(c.sample)
	if c.ticker != nil {
		c.ticker.SetSample(c.sample)
	}
}

// AdjustVolume nudges the volume by delta within 0..1.
func (c *Clock) AdjustVolume(delta float64) {
	c.SetVolume(c.volume + delta)
}

// AdjustLength nudges the length by delta within 1..MaxLength.
func (c *Clock) AdjustLength(delta int) {
	n := c.length + delta
	if n > MaxLength {
		n = MaxLength
	}
	c.SetLength(n)
}

// AdjustDivisions moves delta steps through DivisionOptions.
func (c *Clock) AdjustDivisions(delta int) {
	i := 0
	for j, d := range DivisionOptions {
		if d == c.divisions {
			i = j
			break
		}
	}
	i += delta
	if i < 0 {
		i = 0
	}
	if i >= len(DivisionOptions) {
		i = len(DivisionOptions) - 1
	}
	c.SetDivisions(DivisionOptions[i])
}

// ContainsPosition reports whether (x, y) is strictly inside the clock.
func (c *Clock) ContainsPosition(x, y float64) bool {
	dx, dy := x-c.x, y-c.y
	return dx*dx+dy*dy < c.radius*c.radius
}

// Delete flags the clock for removal and silences it. Any recording in
// progress is cancelled.
func (c *Clock) Delete() {
	if c.toDelete {
		return
	}
	c.CancelRecording()
	c.toDelete = true
	if c.ticker != nil {
		c.ticker.Stop()
	}
	debug.Log("clock", "deleted %s", c.DebugString())
}

func (c *Clock) ToDelete() bool { return c.toDelete }

func (c *Clock) Position() (x, y float64)  { return c.x, c.y }
func (c *Clock) Radius() float64           { return c.radius }
func (c *Clock) Length() int               { return c.length }
func (c *Clock) BPM() float64              { return c.bpm }
func (c *Clock) Divisions() int            { return c.divisions }
func (c *Clock) TimeOffset() float64       { return c.timeOffset }
func (c *Clock) Volume() float64           { return c.volume }
func (c *Clock) Sample() *audio.Clip       { return c.sample }
func (c *Clock) Ticker() *ticker.Ticker    { return c.ticker }
func (c *Clock) Recording() RecordingState { return c.state }

func (c *Clock) RawBeats() []float64 { return append([]float64(nil), c.rawBeats...) }
func (c *Clock) Beats() []float64    { return append([]float64(nil), c.beats...) }

func (c *Clock) shortID() string {
	return c.id.String()[:8]
}

// DebugString lists the clock's properties on one line.
func (c *Clock) DebugString() string {
	sample := "<none>"
	if c.sample != nil {
		sample = c.sample.Name
	}
	return strings.Join([]string{
		fmt.Sprintf("id: %s", c.id),
		fmt.Sprintf("radius: %g", c.radius),
		fmt.Sprintf("handleRadius: %g", c.handleRadius),
		fmt.Sprintf("color: %d, %d, %d", c.color[0], c.color[1], c.color[2]),
		fmt.Sprintf("position: %g, %g", c.x, c.y),
		fmt.Sprintf("length: %d beats", c.length),
		fmt.Sprintf("volume: %g", c.volume),
		fmt.Sprintf("rawBeats: %v", c.rawBeats),
		fmt.Sprintf("beats: %v", c.beats),
		fmt.Sprintf("divisions: %d", c.divisions),
		fmt.Sprintf("bpm: %g", c.bpm),
		fmt.Sprintf("sample: %s", sample),
		fmt.Sprintf("timeOffset: %g s", c.timeOffset),
		fmt.Sprintf("recordingState: %s", c.state),
	}, ", ")
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
