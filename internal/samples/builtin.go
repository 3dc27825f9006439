package samples

import (
	"math"

	"github.com/cbegin/polyclock-go/internal/audio"
)

type voiceSpec struct {
	seconds float64
	render  func(t, u float64, noise func() float64) float64
}

// t is seconds since onset, u is the normalized position 0..1.
var builtinVoices = map[string]voiceSpec{
	"hihat_closed": {0.06, func(t, u float64, noise func() float64) float64 {
		return 0.5 * noise() * math.Exp(-6*u)
	}},
	"hihat_open": {0.4, func(t, u float64, noise func() float64) float64 {
		return 0.4 * noise() * math.Exp(-3*u)
	}},
	"kick": {0.35, func(t, u float64, noise func() float64) float64 {
		// 150Hz falling to 50Hz; integrate the sweep for the phase
		phase := 2 * math.Pi * (150*t - 50*t*u)
		return math.Sin(phase) * math.Exp(-5*u)
	}},
	"snare": {0.2, func(t, u float64, noise func() float64) float64 {
		tone := math.Sin(2*math.Pi*180*t) * math.Exp(-8*u)
		return 0.6*noise()*math.Exp(-4*u) + 0.4*tone
	}},
	"rim": {0.04, func(t, u float64, noise func() float64) float64 {
		return 0.7 * math.Sin(2*math.Pi*1700*t) * math.Exp(-10*u)
	}},
	"timbale_1": {0.3, func(t, u float64, noise func() float64) float64 {
		return (0.6*math.Sin(2*math.Pi*420*t) + 0.25*math.Sin(2*math.Pi*630*t)) * math.Exp(-6*u)
	}},
	"timbale_2": {0.3, func(t, u float64, noise func() float64) float64 {
		return (0.6*math.Sin(2*math.Pi*560*t) + 0.25*math.Sin(2*math.Pi*840*t)) * math.Exp(-6*u)
	}},
	"sticks": {0.05, func(t, u float64, noise func() float64) float64 {
		return (0.5*math.Sin(2*math.Pi*2500*t) + 0.3*noise()) * math.Exp(-12*u)
	}},
}

// lfsr is a 15-bit noise register clocked once per sample, like a console
// APU noise channel in long mode.
type lfsr uint16

func seedLFSR(name string) lfsr {
	s := lfsr(0x2CE1)
	for i, r := range name {
		s ^= lfsr(int(r)*73) << (i % 8)
	}
	s &= 0x7fff
	if s == 0 {
		return 0x2CE1
	}
	return s
}

func (l *lfsr) next() float64 {
	bit := (*l ^ (*l >> 1)) & 1
	*l = (*l >> 1) | (bit << 14)
	if *l&1 == 1 {
		return 1
	}
	return -1
}

// BuiltinClip renders one kit voice at sampleRate. Unknown names return nil.
// Rendering is deterministic: the noise register is seeded per name.
func BuiltinClip(name string, sampleRate int) *audio.Clip {
	spec, ok := builtinVoices[name]
	if !ok || sampleRate <= 0 {
		return nil
	}
	n := int(spec.seconds * float64(sampleRate))
	reg := seedLFSR(name)
	noise := reg.next
	mono := make([]float32, n)
	for i := range mono {
		t := float64(i) / float64(sampleRate)
		u := float64(i) / float64(n)
		mono[i] = float32(spec.render(t, u, noise))
	}
	return audio.NewMonoClip(name, mono)
}

// Builtin renders the whole kit, in Kit order.
func Builtin(sampleRate int) *Store {
	clips := make([]*audio.Clip, 0, len(Kit))
	for _, name := range Kit {
		clips = append(clips, BuiltinClip(name, sampleRate))
	}
	return NewStore(clips...)
}
