package timeline

import (
	"math"
	"sort"
	"strings"
)

// SnapTime rounds a candidate time to the nearest grid interval. Snapping is
// applied before proximity-merge and clamping, and snapping an already snapped
// time is a no-op.
func SnapTime(timeMs float64) float64 {
	return math.Round(timeMs/GridIntervalMs) * GridIntervalMs
}

// AddOrReplacePoint inserts a point on the channel's curve at the given time
// and pulse. Any existing point within mergeToleranceMs of the target time is
// removed first, so freehand drawing merges by proximity instead of piling up
// near-duplicates. Time is clamped to [0, duration], pulse to the channel
// bounds, both rounded to their integer units. Returns the index of the
// inserted point in the re-sorted curve.
func (tl *Timeline) AddOrReplacePoint(channel int, timeMs, pulse float64, mergeToleranceMs int) (int, error) {
	ch, err := tl.Channel(channel)
	if err != nil {
		return 0, err
	}
	if !finite(timeMs) || !finite(pulse) {
		return 0, ErrNotFinite
	}
	t := clampInt(int(math.Round(timeMs)), 0, tl.DurationMs)
	p := clampInt(int(math.Round(pulse)), ch.MinPulse, ch.MaxPulse)
	return tl.mergeInsert(channel, tl.curves[channel], Point{Time: t, Pulse: p}, mergeToleranceMs), nil
}

// MovePoint re-positions the point at index to a new time and pulse, merging
// away any other point within mergeToleranceMs of the target time. Returns the
// point's index in the re-sorted curve, which may differ from the old one when
// the point crosses a neighbor; callers tracking a selection must adopt it.
func (tl *Timeline) MovePoint(channel, index int, timeMs, pulse float64, mergeToleranceMs int) (int, error) {
	ch, err := tl.Channel(channel)
	if err != nil {
		return 0, err
	}
	if !finite(timeMs) || !finite(pulse) {
		return 0, ErrNotFinite
	}
	pts := tl.curves[channel]
	if index < 0 || index >= len(pts) {
		return 0, ErrPointRange
	}
	t := clampInt(int(math.Round(timeMs)), 0, tl.DurationMs)
	p := clampInt(int(math.Round(pulse)), ch.MinPulse, ch.MaxPulse)
	rest := make([]Point, 0, len(pts)-1)
	rest = append(rest, pts[:index]...)
	rest = append(rest, pts[index+1:]...)
	return tl.mergeInsert(channel, rest, Point{Time: t, Pulse: p}, mergeToleranceMs), nil
}

// mergeInsert drops every point within tolerance of pt.Time, appends pt,
// re-sorts and stores the curve, and returns pt's resulting index.
func (tl *Timeline) mergeInsert(channel int, pts []Point, pt Point, toleranceMs int) int {
	kept := make([]Point, 0, len(pts)+1)
	for _, q := range pts {
		if absInt(q.Time-pt.Time) > toleranceMs {
			kept = append(kept, q)
		}
	}
	kept = append(kept, pt)
	sort.Slice(kept, func(i, j int) bool { return kept[i].Time < kept[j].Time })
	tl.curves[channel] = kept
	return sort.Search(len(kept), func(i int) bool { return kept[i].Time >= pt.Time })
}

// DeletePoint removes the point at index from the channel's curve.
func (tl *Timeline) DeletePoint(channel, index int) error {
	if _, err := tl.Channel(channel); err != nil {
		return err
	}
	pts := tl.curves[channel]
	if index < 0 || index >= len(pts) {
		return ErrPointRange
	}
	tl.curves[channel] = append(pts[:index], pts[index+1:]...)
	return nil
}

// AddAnnotation adds a labeled marker at the given time. Text is trimmed of
// surrounding whitespace; empty text is rejected. Returns the annotation's
// index in the re-sorted list.
func (tl *Timeline) AddAnnotation(timeMs float64, text string) (int, error) {
	if !finite(timeMs) {
		return 0, ErrNotFinite
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, ErrEmptyText
	}
	t := clampInt(int(math.Round(timeMs)), 0, tl.DurationMs)
	tl.annotations = append(tl.annotations, Annotation{Time: t, Text: text})
	sort.SliceStable(tl.annotations, func(i, j int) bool {
		return tl.annotations[i].Time < tl.annotations[j].Time
	})
	for i, a := range tl.annotations {
		if a.Time == t && a.Text == text {
			return i, nil
		}
	}
	return len(tl.annotations) - 1, nil
}

// UpdateAnnotationText replaces the text of the annotation at index. Updating
// to empty text deletes the annotation, since an empty label must not persist.
func (tl *Timeline) UpdateAnnotationText(index int, text string) error {
	if index < 0 || index >= len(tl.annotations) {
		return ErrAnnotationRange
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return tl.DeleteAnnotation(index)
	}
	tl.annotations[index].Text = text
	return nil
}

// DeleteAnnotation removes the annotation at index.
func (tl *Timeline) DeleteAnnotation(index int) error {
	if index < 0 || index >= len(tl.annotations) {
		return ErrAnnotationRange
	}
	tl.annotations = append(tl.annotations[:index], tl.annotations[index+1:]...)
	return nil
}

// SetDuration changes the total timeline length. Existing points beyond the
// new duration are kept; the sampler's flat extension covers them.
func (tl *Timeline) SetDuration(ms int) error {
	if ms <= 0 {
		return ErrBadDuration
	}
	tl.DurationMs = ms
	return nil
}

// ClearAll empties every channel's curve and the annotation list. Duration,
// channel configuration and any bound audio are untouched.
func (tl *Timeline) ClearAll() {
	tl.curves = make(map[int][]Point)
	tl.annotations = nil
}

// Smooth applies a single-pass 3-point moving average to every channel with at
// least three points: each interior point's pulse becomes the rounded mean of
// itself and its two neighbors, computed from a snapshot of the previous
// values. Endpoints are untouched. The pass is not iterated, so repeated
// invocations compound.
func (tl *Timeline) Smooth() {
	for ch, pts := range tl.curves {
		if len(pts) < 3 {
			continue
		}
		prev := make([]int, len(pts))
		for i, p := range pts {
			prev[i] = p.Pulse
		}
		for i := 1; i < len(pts)-1; i++ {
			mean := float64(prev[i-1]+prev[i]+prev[i+1]) / 3
			pts[i].Pulse = int(math.Round(mean))
		}
		tl.curves[ch] = pts
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
