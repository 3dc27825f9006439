package audio

import (
	"math"
	"sync"

	"github.com/cbegin/polyclock-go/internal/effects"
)

// DefaultMasterGain is the master level at startup.
const DefaultMasterGain = 0.7

type BackendOption func(*Backend)

// WithBus installs master bus processing, applied after voices are summed.
func WithBus(bus effects.Effector) BackendOption {
	return func(b *Backend) {
		b.bus = bus
	}
}

// WithSampleTap installs a callback invoked with each rendered stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) BackendOption {
	return func(b *Backend) {
		b.tap = tap
	}
}

// Backend mixes committed clip playbacks into an interleaved stereo stream.
// Its clock is the number of frames rendered so far, so a clip committed for
// absolute time T starts exactly on frame round(T*sampleRate) regardless of
// when the commit happened, as long as that frame has not been rendered yet.
type Backend struct {
	mu         sync.Mutex
	sampleRate int
	frame      int64
	voices     []*voice
	master     *Gain
	bus        effects.Effector
	tap        func([]float32)
	committed  int
}

type voice struct {
	clip  *Clip
	start int64
	pos   int
	dest  *Gain
}

func NewBackend(sampleRate int, opts ...BackendOption) *Backend {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	b := &Backend{sampleRate: sampleRate}
	b.master = &Gain{b: b, root: true, value: DefaultMasterGain, target: DefaultMasterGain}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) SampleRate() int { return b.sampleRate }

// Now returns the backend time in seconds: frames rendered / sample rate.
func (b *Backend) Now() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nowLocked()
}

func (b *Backend) nowLocked() float64 {
	return float64(b.frame) / float64(b.sampleRate)
}

// Master returns the node every audible path ends in.
func (b *Backend) Master() *Gain { return b.master }

// NewGain returns a disconnected gain node at level value.
func (b *Backend) NewGain(value float64) *Gain {
	return &Gain{b: b, value: value, target: value}
}

// PlayAt commits clip to start at absolute time at, routed through dest.
// A commit for a frame that was already rendered starts on the next frame.
func (b *Backend) PlayAt(clip *Clip, at float64, dest *Gain) {
	if clip == nil || clip.Frames() == 0 || dest == nil {
		return
	}
	start := int64(math.Round(at * float64(b.sampleRate)))
	b.mu.Lock()
	if start < b.frame {
		start = b.frame
	}
	b.voices = append(b.voices, &voice{clip: clip, start: start, dest: dest})
	b.committed++
	b.mu.Unlock()
}

// Voices returns the number of committed playbacks not yet finished.
func (b *Backend) Voices() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.voices)
}

// Committed returns the total number of PlayAt commits accepted.
func (b *Backend) Committed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.committed
}

// Process renders len(dst)/2 stereo frames and advances the clock.
func (b *Backend) Process(dst []float32) {
	frames := len(dst) / 2
	for i := range dst {
		dst[i] = 0
	}

	b.mu.Lock()
	base := b.frame
	sr := float64(b.sampleRate)
	kept := b.voices[:0]
	for _, v := range b.voices {
		i := 0
		if v.start > base {
			i = int(v.start - base)
		}
		n := v.clip.Frames()
		for ; i < frames && v.pos < n; i++ {
			g := float32(v.dest.effective(float64(base+int64(i)) / sr))
			dst[2*i] += v.clip.Samples[2*v.pos] * g
			dst[2*i+1] += v.clip.Samples[2*v.pos+1] * g
			v.pos++
		}
		if v.pos < n {
			kept = append(kept, v)
		}
	}
	for i := len(kept); i < len(b.voices); i++ {
		b.voices[i] = nil
	}
	b.voices = kept

	if b.bus != nil {
		for i := 0; i+1 < len(dst); i += 2 {
			dst[i], dst[i+1] = b.bus.Process(dst[i], dst[i+1])
		}
	}
	b.frame = base + int64(frames)
	tap := b.tap
	b.mu.Unlock()

	if tap != nil {
		tap(dst)
	}
}
