package timeline

import (
	"math"
	"testing"
)

func TestTimePixel_roundtrip(t *testing.T) {
	m := NewMapper(800, 120, 3000)

	for x := 0.0; x <= m.Width; x++ {
		back := m.TimeToX(m.XToTime(x))
		if math.Abs(back-x) > m.Width/float64(m.DurationMs)+1e-9 {
			t.Fatalf("roundtrip x=%v: got %v", x, back)
		}
	}
}

func TestXToTime_rounds_and_clamps(t *testing.T) {
	m := NewMapper(1000, 120, 3000)

	if got := m.XToTime(500); got != 1500 {
		t.Errorf("midpoint: got %d want 1500", got)
	}
	if got := m.XToTime(-50); got != 0 {
		t.Errorf("negative x must clamp to 0, got %d", got)
	}
	if got := m.XToTime(2000); got != 3000 {
		t.Errorf("x past width must clamp to duration, got %d", got)
	}
}

func TestPulseLaneY_roundtrip_and_clamp(t *testing.T) {
	m := NewMapper(800, 120, 3000)
	ch := Channel{MinPulse: 800, MaxPulse: 2500, CenterPulse: 1500}

	for _, pulse := range []int{800, 1000, 1500, 2000, 2500} {
		y := m.PulseToLaneY(ch, pulse)
		if got := m.LaneYToPulse(ch, y); absInt(got-pulse) > 9 {
			t.Errorf("pulse %d roundtrip: got %d via y=%v", pulse, got, y)
		}
	}

	// A y outside the lane still maps to a valid clamped pulse.
	if got := m.LaneYToPulse(ch, -100); got != ch.MaxPulse {
		t.Errorf("y above lane: got %d want max %d", got, ch.MaxPulse)
	}
	if got := m.LaneYToPulse(ch, 500); got != ch.MinPulse {
		t.Errorf("y below lane: got %d want min %d", got, ch.MinPulse)
	}
}

func TestPulseToLaneY_extremes_sit_on_padding(t *testing.T) {
	m := NewMapper(800, 120, 3000)
	ch := Channel{MinPulse: 800, MaxPulse: 2500}

	if y := m.PulseToLaneY(ch, ch.MaxPulse); y != m.LanePad {
		t.Errorf("max pulse should sit on top padding, y=%v", y)
	}
	if y := m.PulseToLaneY(ch, ch.MinPulse); y != m.LaneHeight-m.LanePad {
		t.Errorf("min pulse should sit on bottom padding, y=%v", y)
	}
}

func TestLaneForY(t *testing.T) {
	m := NewMapper(800, 120, 3000)

	if lane, ok := m.LaneForY(10, 3); !ok || lane != 0 {
		t.Errorf("y=10: got lane=%d ok=%v", lane, ok)
	}
	if lane, ok := m.LaneForY(250, 3); !ok || lane != 2 {
		t.Errorf("y=250: got lane=%d ok=%v", lane, ok)
	}
	if _, ok := m.LaneForY(400, 3); ok {
		t.Error("y past the last lane must not resolve")
	}
	if _, ok := m.LaneForY(-5, 3); ok {
		t.Error("negative y must not resolve")
	}
}
