package audio

// Clip is a pre-decoded, fixed-length audio buffer: interleaved stereo
// float32 at the backend sample rate. Clips are shared between voices and
// must not be modified once built.
type Clip struct {
	Name    string
	Samples []float32
}

// NewMonoClip duplicates a mono buffer onto both channels.
func NewMonoClip(name string, mono []float32) *Clip {
	s := make([]float32, len(mono)*2)
	for i, v := range mono {
		s[2*i] = v
		s[2*i+1] = v
	}
	return &Clip{Name: name, Samples: s}
}

// Frames returns the clip length in stereo frames.
func (c *Clip) Frames() int {
	if c == nil {
		return 0
	}
	return len(c.Samples) / 2
}

// Duration returns the clip length in seconds at sampleRate.
func (c *Clip) Duration(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(c.Frames()) / float64(sampleRate)
}
