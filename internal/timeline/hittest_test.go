package timeline

import "testing"

func TestFindPointNear_first_match_wins(t *testing.T) {
	tl := newTestTimeline(t, 3000, 1)
	m := NewMapper(1000, 120, 3000)

	// Two points a couple of pixels apart; both are inside the radius, and
	// the lower point index must win regardless of which is closer.
	_, _ = tl.AddOrReplacePoint(0, 1500, 1500, 0)
	_, _ = tl.AddOrReplacePoint(0, 1510, 1500, 0)

	ch := tl.Channels()[0]
	x, y := m.PointPos(0, ch, Point{Time: 1510, Pulse: 1500})

	sel, ok := FindPointNear(tl, m, x, y, 10)
	if !ok {
		t.Fatal("expected a hit")
	}
	if sel.Kind != SelectPoint || sel.Channel != 0 || sel.Index != 0 {
		t.Errorf("first match should win, got: %+v", sel)
	}
}

func TestFindPointNear_radius(t *testing.T) {
	tl := newTestTimeline(t, 3000, 1)
	m := NewMapper(1000, 120, 3000)
	_, _ = tl.AddOrReplacePoint(0, 1500, 1500, 0)

	ch := tl.Channels()[0]
	x, y := m.PointPos(0, ch, Point{Time: 1500, Pulse: 1500})

	if _, ok := FindPointNear(tl, m, x+9, y, 10); !ok {
		t.Error("point within radius not found")
	}
	if _, ok := FindPointNear(tl, m, x+20, y, 10); ok {
		t.Error("point outside radius should not match")
	}
}

func TestFindAnnotationNear(t *testing.T) {
	tl := newTestTimeline(t, 3000, 1)
	m := NewMapper(1000, 120, 3000)
	_, _ = tl.AddAnnotation(600, "first")
	_, _ = tl.AddAnnotation(1500, "second")

	x := m.TimeToX(1500)
	idx, ok := FindAnnotationNear(tl, m, x+5, 10)
	if !ok || idx != 1 {
		t.Errorf("expected annotation 1, got idx=%d ok=%v", idx, ok)
	}
	if _, ok := FindAnnotationNear(tl, m, x+200, 10); ok {
		t.Error("far x should not match any annotation")
	}
}
