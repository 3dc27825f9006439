package effects

import (
	"math"
	"testing"
)

func TestCompressorReducesLoud(t *testing.T) {
	c := NewCompressor(44100, -10, 4, 1, 50, 0)
	// Feed loud signal repeatedly to let envelope settle
	var out float32
	for i := 0; i < 1000; i++ {
		out, _ = c.Process(1.0, 1.0)
	}
	if out >= 1.0 {
		t.Errorf("compressor should reduce loud signals, got %f", out)
	}
	if c.GainReduction() >= 1 {
		t.Errorf("expected gain reduction, got %f", c.GainReduction())
	}
}

func TestCompressorIsStereoLinked(t *testing.T) {
	c := NewCompressor(44100, -10, 4, 1, 50, 0)
	var l, r float32
	for i := 0; i < 1000; i++ {
		l, r = c.Process(1.0, 0.5)
	}
	if ratio := l / r; math.Abs(float64(ratio)-2) > 1e-5 {
		t.Errorf("stereo image moved: l/r = %f, want 2", ratio)
	}
}

func TestCompressorLeavesQuietSignal(t *testing.T) {
	c := NewCompressor(48000, -6, 4, 1, 80, 0)
	for i := 0; i < 1000; i++ {
		l, _ := c.Process(0.1, 0.1)
		if math.Abs(float64(l)-0.1) > 1e-6 {
			t.Fatalf("quiet signal altered: %f", l)
		}
	}
}

func TestMasterBusNeverExceedsCeiling(t *testing.T) {
	bus := NewMasterBus(48000)
	if bus.Len() != 2 {
		t.Fatalf("master bus has %d stages, want 2", bus.Len())
	}
	for i := 0; i < 48000; i++ {
		l, r := bus.Process(4, -4)
		if l > 1 || r < -1 {
			t.Fatalf("frame %d exceeds ceiling: %f %f", i, l, r)
		}
	}
	bus.Reset()
}

func TestChainAppliesEffectsInOrder(t *testing.T) {
	c := NewChain(Ceiling{Level: 0.5})
	c.Add(gainStage(2))
	l, r := c.Process(0.8, -0.8)
	if l != 1 || r != -1 {
		t.Errorf("expected clamp then gain (1, -1), got %f %f", l, r)
	}
}

type gainStage float32

func (g gainStage) Process(l, r float32) (float32, float32) { return l * float32(g), r * float32(g) }
func (gainStage) Reset()                                    {}
