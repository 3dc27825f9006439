// Package polyclock is a polyrhythmic step sequencer: clocks loop over their
// own number of beats at a shared tempo, each playing one sample on a subset
// of those beats, with sample-accurate timing from a coarse scheduler poll.
package polyclock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	intaudio "github.com/cbegin/polyclock-go/internal/audio"
	"github.com/cbegin/polyclock-go/internal/clock"
	"github.com/cbegin/polyclock-go/internal/config"
	"github.com/cbegin/polyclock-go/internal/debug"
	intfx "github.com/cbegin/polyclock-go/internal/effects"
	"github.com/cbegin/polyclock-go/internal/ensemble"
	"github.com/cbegin/polyclock-go/internal/input"
	"github.com/cbegin/polyclock-go/internal/runloop"
	"github.com/cbegin/polyclock-go/internal/samples"
	"github.com/cbegin/polyclock-go/internal/ticker"
)

// Event carries clock lifecycle and recording changes from Watch().
type Event struct {
	Kind      int // EventClockAdded, EventClockRemoved, or EventRecording
	ClockID   uuid.UUID
	Recording clock.RecordingState
}

const (
	EventClockAdded int = iota
	EventClockRemoved
	EventRecording
)

var ErrRunning = errors.New("engine already running")

type Option func(*engineConfig)

type engineConfig struct {
	cfg        *config.Config
	sampleRate int
	store      *samples.Store
	bus        bool
	sampleTap  func([]float32)
}

func defaultEngineConfig() engineConfig {
	cfg := config.DefaultConfig()
	return engineConfig{cfg: cfg, sampleRate: cfg.Audio.SampleRate, bus: cfg.Audio.BusCompressor}
}

// WithConfig applies a loaded configuration. Later options override it.
func WithConfig(cfg *config.Config) Option {
	return func(ec *engineConfig) {
		if cfg == nil {
			return
		}
		ec.cfg = cfg
		ec.sampleRate = cfg.Audio.SampleRate
		ec.bus = cfg.Audio.BusCompressor
	}
}

func WithSampleRate(sampleRate int) Option {
	return func(ec *engineConfig) {
		ec.sampleRate = sampleRate
	}
}

// WithSamples replaces the built-in kit. The store must have been decoded at
// the engine's sample rate.
func WithSamples(store *samples.Store) Option {
	return func(ec *engineConfig) {
		ec.store = store
	}
}

// WithBus enables or disables the master bus compressor.
func WithBus(enabled bool) Option {
	return func(ec *engineConfig) {
		ec.bus = enabled
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) Option {
	return func(ec *engineConfig) {
		ec.sampleTap = tap
	}
}

// Engine wires the audio backend, the run loop and the ensemble together.
// It is driven either in real time (Start) or offline (Advance), not both.
//
// Ensemble state is confined to the run loop; the methods below hop onto it
// while Start is running and call straight through otherwise.
type Engine struct {
	mu         sync.Mutex
	sampleRate int
	bufferSize time.Duration
	backend    *intaudio.Backend
	loop       *runloop.Loop
	keys       *input.Router
	samples    *samples.Store
	ensemble   *ensemble.Ensemble
	audio      *intaudio.Player
	cancel     context.CancelFunc
	done       chan struct{}
	eventCh    chan Event
	eventChMu  sync.Mutex
}

func NewEngine(opts ...Option) (*Engine, error) {
	ec := defaultEngineConfig()
	for _, opt := range opts {
		opt(&ec)
	}
	if ec.sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := ec.cfg

	var backendOpts []intaudio.BackendOption
	if ec.bus {
		backendOpts = append(backendOpts, intaudio.WithBus(intfx.NewMasterBus(ec.sampleRate)))
	}
	if ec.sampleTap != nil {
		backendOpts = append(backendOpts, intaudio.WithSampleTap(ec.sampleTap))
	}
	backend := intaudio.NewBackend(ec.sampleRate, backendOpts...)
	backend.Master().SetValue(cfg.Audio.MasterVolume)

	store := ec.store
	if store == nil {
		store = samples.Builtin(ec.sampleRate)
	}
	if store.Len() == 0 {
		return nil, errors.New("sample store is empty")
	}

	e := &Engine{
		sampleRate: ec.sampleRate,
		bufferSize: time.Duration(cfg.Audio.BufferMs) * time.Millisecond,
		backend:    backend,
		loop:       runloop.New(backend),
		keys:       input.NewRouter(),
		samples:    store,
	}

	triggerKeys := append(append([]string(nil), cfg.Input.TriggerKeys...), input.CodeMIDINote)
	deps := clock.Deps{
		Out:     backend,
		Loop:    e.loop,
		Samples: store,
		Keys:    e.keys,
		Dest:    backend.Master(),
	}
	e.ensemble = ensemble.New(deps,
		ensemble.WithBPM(float64(cfg.UI.LastTempo)),
		ensemble.WithClockOptions(
			clock.WithTickerOptions(
				ticker.WithLookahead(cfg.Scheduler.Lookahead),
				ticker.WithHorizon(cfg.Scheduler.Horizon),
			),
			clock.WithTriggerKeys(triggerKeys...),
			clock.WithStateHook(func(c *clock.Clock, s clock.RecordingState) {
				e.sendEvent(Event{Kind: EventRecording, ClockID: c.ID(), Recording: s})
			}),
		),
		ensemble.WithClockHook(func(c *clock.Clock, added bool) {
			kind := EventClockRemoved
			if added {
				kind = EventClockAdded
			}
			e.sendEvent(Event{Kind: kind, ClockID: c.ID()})
		}),
	)
	return e, nil
}

// Start opens the output device and runs the loop until ctx is done or Stop
// is called.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done != nil {
		return ErrRunning
	}
	player, err := intaudio.NewPlayer(e.sampleRate, e.backend, e.bufferSize)
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := e.loop.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			debug.Log("engine", "loop stopped: %v", err)
		}
	}()
	player.Play()
	e.audio = player
	e.cancel = cancel
	e.done = done
	debug.Log("engine", "started at %d Hz, buffer %s", e.sampleRate, e.bufferSize)
	return nil
}

// Stop halts the loop and closes the output device.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.done == nil {
		e.mu.Unlock()
		return nil
	}
	cancel, done, player := e.cancel, e.done, e.audio
	e.cancel, e.audio = nil, nil
	e.mu.Unlock()

	cancel()
	<-done
	err := player.Stop()

	e.mu.Lock()
	e.done = nil
	e.mu.Unlock()
	return err
}

func (e *Engine) running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done != nil
}

// Do runs fn against the ensemble on the loop goroutine.
func (e *Engine) Do(fn func(ens *ensemble.Ensemble)) error {
	if e.running() {
		return e.loop.Call(context.Background(), func() { fn(e.ensemble) })
	}
	fn(e.ensemble)
	return nil
}

// Frame sweeps deleted clocks and snapshots the rest at the current audio
// time.
func (e *Engine) Frame() []clock.State {
	var states []clock.State
	e.Do(func(ens *ensemble.Ensemble) {
		states = ens.Frame(e.backend.Now())
	})
	return states
}

// Key dispatches a key press to the recording listeners.
func (e *Engine) Key(code string) {
	e.Do(func(*ensemble.Ensemble) {
		e.keys.Dispatch(input.KeyEvent{Code: code})
	})
}

// PostKey queues a key event for the next loop pass. Safe from any
// goroutine, including MIDI driver callbacks.
func (e *Engine) PostKey(ev input.KeyEvent) {
	e.loop.Post(func() { e.keys.Dispatch(ev) })
}

// ListenMIDI feeds note-ons from the first input port matching portName into
// the recording listeners.
func (e *Engine) ListenMIDI(portName string) (stop func(), err error) {
	return input.ListenMIDI(portName, e.PostKey)
}

// PointerDown clicks at (x, y): the topmost clock there handles it, or a new
// clock is created.
func (e *Engine) PointerDown(x, y float64) (uuid.UUID, clock.Action) {
	var id uuid.UUID
	var action clock.Action
	e.Do(func(ens *ensemble.Ensemble) {
		c, a := ens.PointerDown(x, y)
		id, action = c.ID(), a
	})
	return id, action
}

func (e *Engine) SetTempo(bpm float64) {
	e.Do(func(ens *ensemble.Ensemble) { ens.SetTempo(bpm) })
}

func (e *Engine) Tempo() float64 {
	var bpm float64
	e.Do(func(ens *ensemble.Ensemble) { bpm = ens.Tempo() })
	return bpm
}

// SetMasterVolume sets the master gain, clamped to 0..1.
func (e *Engine) SetMasterVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	e.backend.Master().SetValue(v)
}

func (e *Engine) MasterVolume() float64 {
	return e.backend.Master().Value()
}

// OutputLatency is how far the render head runs ahead of what the device
// has played, in seconds. It is 0 while the engine is stopped.
func (e *Engine) OutputLatency() float64 {
	e.mu.Lock()
	player := e.audio
	e.mu.Unlock()
	if player == nil {
		return 0
	}
	lat := e.backend.Now() - player.Position().Seconds()
	if lat < 0 {
		return 0
	}
	return lat
}

// Now returns the audio clock in seconds.
func (e *Engine) Now() float64 { return e.backend.Now() }

func (e *Engine) SampleRate() int { return e.sampleRate }

func (e *Engine) Samples() *samples.Store { return e.samples }

func (e *Engine) sendEvent(ev Event) {
	e.eventChMu.Lock()
	ch := e.eventCh
	e.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}

// Watch returns a channel that receives engine events. Events are sent when:
//   - EventClockAdded / EventClockRemoved: a clock joined or was swept
//   - EventRecording: a clock's recording state changed (Recording set)
//
// The channel is buffered (cap 16); receive in a goroutine to avoid dropping
// events. Only the most recent Watch() channel receives events.
func (e *Engine) Watch() <-chan Event {
	ch := make(chan Event, 16)
	e.eventChMu.Lock()
	e.eventCh = ch
	e.eventChMu.Unlock()
	return ch
}
