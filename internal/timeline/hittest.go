package timeline

import "math"

// FindPointNear scans every channel's points and returns a selection for the
// first point whose pixel distance to (x, y) is within radiusPx. Iteration is
// channel index ascending, then point index ascending; the first match wins,
// which keeps the result deterministic rather than closest-first.
func FindPointNear(tl *Timeline, m Mapper, x, y, radiusPx float64) (Selection, bool) {
	for ch := 0; ch < tl.NumChannels(); ch++ {
		cfg := tl.channels[ch]
		for i, pt := range tl.curves[ch] {
			px, py := m.PointPos(ch, cfg, pt)
			if math.Hypot(px-x, py-y) <= radiusPx {
				return PointSelection(ch, i), true
			}
		}
	}
	return NoSelection(), false
}

// FindAnnotationNear scans annotations in time order and returns the index of
// the first one whose horizontal pixel distance to x is within radiusPx.
func FindAnnotationNear(tl *Timeline, m Mapper, x, radiusPx float64) (int, bool) {
	for i, a := range tl.annotations {
		if math.Abs(m.TimeToX(a.Time)-x) <= radiusPx {
			return i, true
		}
	}
	return 0, false
}
