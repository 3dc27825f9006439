package effects

// Effector processes one stereo frame. The mixer runs the master bus through
// an Effector after summing all voices.
type Effector interface {
	Process(l, r float32) (float32, float32)
	Reset()
}

// Chain applies a sequence of effects in order.
type Chain struct {
	effects []Effector
}

func NewChain(effects ...Effector) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Process(l, r float32) (float32, float32) {
	for _, e := range c.effects {
		l, r = e.Process(l, r)
	}
	return l, r
}

func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Add(e Effector) {
	c.effects = append(c.effects, e)
}

// Len returns the number of effects in the chain.
func (c *Chain) Len() int {
	return len(c.effects)
}

// NewMasterBus builds the default master bus: a fast glue compressor
// followed by a hard ceiling, so a stack of loud clips sharing one frame
// never wraps the output.
func NewMasterBus(sampleRate int) *Chain {
	return NewChain(
		NewCompressor(sampleRate, -6, 4, 1, 80, 0),
		Ceiling{Level: 1},
	)
}

// Ceiling clamps both channels to [-Level, Level].
type Ceiling struct {
	Level float32
}

func (c Ceiling) Process(l, r float32) (float32, float32) {
	return clamp(l, c.Level), clamp(r, c.Level)
}

func (Ceiling) Reset() {}

func clamp(v, level float32) float32 {
	if v > level {
		return level
	}
	if v < -level {
		return -level
	}
	return v
}
