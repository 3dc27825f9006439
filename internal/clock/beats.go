package clock

import "math"

// DeriveBeats computes the playable beat set from raw input: each value is
// snapped to the nearest multiple of snap (round half up; snap <= 0 leaves
// values alone), exact duplicates are removed keeping the first, and values
// outside [0, length) are dropped. It is pure, so recomputing from the same
// raw beats always gives the same result.
func DeriveBeats(raw []float64, length int, snap float64) []float64 {
	out := make([]float64, 0, len(raw))
	seen := make(map[float64]bool, len(raw))
	for _, b := range raw {
		if math.IsNaN(b) {
			continue
		}
		if snap > 0 {
			b = math.Floor(b/snap+0.5) * snap
		}
		if b == 0 {
			b = 0 // fold -0
		}
		if seen[b] {
			continue
		}
		seen[b] = true
		if b < 0 || b >= float64(length) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// floorMod is x mod m with the sign of m.
func floorMod(x, m float64) float64 {
	return x - m*math.Floor(x/m)
}
