package clock

import (
	"math"

	"github.com/google/uuid"
)

// State is a snapshot of everything a front end needs to draw one clock.
type State struct {
	ID           uuid.UUID
	X, Y         float64
	Radius       float64
	HandleRadius float64
	Color        [3]uint8

	Length    int
	Divisions int
	BPM       float64
	Volume    float64
	Sample    string

	Beats []float64
	// Lit marks the beats that are sounding now, parallel to Beats.
	Lit []bool

	// Beat is the current position within the loop, in [0, Length).
	Beat float64
	// Phase is Beat/Length.
	Phase float64
	// Filling alternates every loop: the progress arc grows on even loops
	// and shrinks on odd ones.
	Filling bool

	Recording RecordingState
	// CountIn is the number of beats left before recording starts, while
	// counting in.
	CountIn float64
	// Progress is how far through the recording window the clock is, 0..1.
	Progress float64
}

// State snapshots the clock at audio time now.
func (c *Clock) State(now float64) State {
	s := State{
		ID:           c.id,
		X:            c.x,
		Y:            c.y,
		Radius:       c.radius,
		HandleRadius: c.handleRadius,
		Color:        c.color,
		Length:       c.length,
		Divisions:    c.divisions,
		BPM:          c.bpm,
		Volume:       c.volume,
		Beats:        append([]float64(nil), c.beats...),
		Lit:          make([]bool, len(c.beats)),
		Recording:    c.state,
	}
	if c.sample != nil {
		s.Sample = c.sample.Name
	}

	offset := now + c.timeOffset
	current := c.timeToBeat(offset)
	length := float64(c.length)
	s.Beat = floorMod(current, length)
	s.Phase = s.Beat / length
	s.Filling = floorMod(current, 2*length) <= length

	window := math.Max(c.snapInterval(), 1.0/16)
	for i, b := range c.beats {
		s.Lit[i] = s.Beat >= b && s.Beat-b < window
	}

	if c.rec != nil {
		switch c.state {
		case CountingIn:
			s.CountIn = math.Max(0, c.timeToBeat(c.rec.start-offset))
		case Recording:
			s.Progress = clamp((offset-c.rec.start)/(c.rec.end-c.rec.start), 0, 1)
		}
	}
	return s
}
