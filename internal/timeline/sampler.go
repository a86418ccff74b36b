package timeline

import "math"

// DefaultSampleIntervalMs is the keyframe sampling step handed to the remote
// player.
const DefaultSampleIntervalMs = 50

// Keyframe is one sampled snapshot of every channel's pulse, held for
// DurationMs before the next frame. The JSON shape is exactly the remote
// player's wire contract.
type Keyframe struct {
	Servos     map[int]int `json:"servos"`
	DurationMs int         `json:"duration"`
}

// ValueAt evaluates the channel's curve at an arbitrary time. With two or more
// points it interpolates linearly between the last point at or before t and
// the first point after t; before the first point and after the last the curve
// extends flat. An empty curve is the channel's center pulse.
func (tl *Timeline) ValueAt(channel, timeMs int) (int, error) {
	ch, err := tl.Channel(channel)
	if err != nil {
		return 0, err
	}
	var before, after *Point
	pts := tl.curves[channel]
	for i := range pts {
		if pts[i].Time <= timeMs {
			before = &pts[i]
		} else if after == nil {
			after = &pts[i]
		}
	}
	switch {
	case before == nil && after == nil:
		return ch.CenterPulse, nil
	case before == nil:
		return after.Pulse, nil
	case after == nil:
		return before.Pulse, nil
	}
	frac := float64(timeMs-before.Time) / float64(after.Time-before.Time)
	return int(math.Round(float64(before.Pulse) + float64(after.Pulse-before.Pulse)*frac)), nil
}

// Sample produces the keyframe stream for the whole timeline: one frame per
// interval from t=0 up to and including the duration. Re-sampling an
// unmodified timeline yields identical output.
func Sample(tl *Timeline, intervalMs int) ([]Keyframe, error) {
	return SampleFrom(tl, 0, intervalMs)
}

// SampleFrom produces the keyframe stream starting at startMs, stepping by
// intervalMs up to the timeline duration. When the duration is not a multiple
// of the step, a final frame is emitted exactly at the duration so the stream
// always covers the full timeline.
func SampleFrom(tl *Timeline, startMs, intervalMs int) ([]Keyframe, error) {
	if intervalMs <= 0 {
		return nil, ErrBadDuration
	}
	startMs = clampInt(startMs, 0, tl.DurationMs)
	frames := make([]Keyframe, 0, (tl.DurationMs-startMs)/intervalMs+2)
	emit := func(t int) {
		servos := make(map[int]int, tl.NumChannels())
		for ch := 0; ch < tl.NumChannels(); ch++ {
			v, _ := tl.ValueAt(ch, t)
			servos[ch] = v
		}
		frames = append(frames, Keyframe{Servos: servos, DurationMs: intervalMs})
	}
	last := -1
	for t := startMs; t <= tl.DurationMs; t += intervalMs {
		emit(t)
		last = t
	}
	if last < tl.DurationMs {
		emit(tl.DurationMs)
	}
	return frames, nil
}
