package audio

// Gain is a volume node in the backend's node graph. Voices are committed
// against a Gain; the level they are rendered at is the product of every
// node on the path up to the master node, evaluated per frame, so ramps
// started after a voice was committed still shape it.
//
// All fields are guarded by the owning Backend's mutex.
type Gain struct {
	b      *Backend
	parent *Gain
	root   bool

	value     float64 // level before the ramp, or the constant level
	target    float64
	rampStart float64
	rampEnd   float64 // <= rampStart means no ramp
}

// Connect routes the node's output into dest. Connecting a node into its
// own downstream path is ignored.
func (g *Gain) Connect(dest *Gain) {
	g.b.mu.Lock()
	defer g.b.mu.Unlock()
	for n := dest; n != nil; n = n.parent {
		if n == g {
			return
		}
	}
	g.parent = dest
}

// Disconnect detaches the node; voices routed through it become silent.
func (g *Gain) Disconnect() {
	g.b.mu.Lock()
	g.parent = nil
	g.b.mu.Unlock()
}

// Connected reports whether the node currently reaches the master node.
func (g *Gain) Connected() bool {
	g.b.mu.Lock()
	defer g.b.mu.Unlock()
	for n := g; n != nil; n = n.parent {
		if n.root {
			return true
		}
	}
	return false
}

// Value returns the node's own level at the backend's current time.
func (g *Gain) Value() float64 {
	g.b.mu.Lock()
	defer g.b.mu.Unlock()
	return g.valueAt(g.b.nowLocked())
}

// SetValue changes the level immediately, cancelling any ramp.
func (g *Gain) SetValue(v float64) {
	g.b.mu.Lock()
	g.value = v
	g.target = v
	g.rampStart, g.rampEnd = 0, 0
	g.b.mu.Unlock()
}

// LinearRampTo moves the level linearly from its current value to v,
// arriving at the absolute backend time end.
func (g *Gain) LinearRampTo(v float64, end float64) {
	g.b.mu.Lock()
	defer g.b.mu.Unlock()
	now := g.b.nowLocked()
	if end <= now {
		g.value, g.target = v, v
		g.rampStart, g.rampEnd = 0, 0
		return
	}
	g.value = g.valueAt(now)
	g.target = v
	g.rampStart = now
	g.rampEnd = end
}

func (g *Gain) valueAt(t float64) float64 {
	if g.rampEnd <= g.rampStart {
		return g.value
	}
	switch {
	case t >= g.rampEnd:
		return g.target
	case t <= g.rampStart:
		return g.value
	}
	return g.value + (g.target-g.value)*(t-g.rampStart)/(g.rampEnd-g.rampStart)
}

// effective multiplies the levels along the path to the master node.
// A path that never reaches it is silent.
func (g *Gain) effective(t float64) float64 {
	v := 1.0
	for n := g; n != nil; n = n.parent {
		v *= n.valueAt(t)
		if n.root {
			return v
		}
	}
	return 0
}
