package timeline

import "math"

// DefaultLanePadPx is the vertical padding kept clear at the top and bottom of
// each channel lane so endpoint handles stay grabbable.
const DefaultLanePadPx = 10.0

// Mapper converts between pixel space and the time/pulse domains. All
// conversions are pure functions of the geometry and the channel bounds; the
// mapper holds no hidden state. Time maps linearly across the full width,
// pulse maps linearly within a lane between its padding lines.
type Mapper struct {
	Width      float64 // pixel width of the time axis
	LaneHeight float64 // pixel height of one channel lane
	LanePad    float64 // vertical padding inside a lane
	DurationMs int
}

// NewMapper returns a mapper over the given geometry with the default lane
// padding.
func NewMapper(width, laneHeight float64, durationMs int) Mapper {
	return Mapper{Width: width, LaneHeight: laneHeight, LanePad: DefaultLanePadPx, DurationMs: durationMs}
}

// TimeToX converts a time in milliseconds to a pixel x coordinate.
func (m Mapper) TimeToX(timeMs int) float64 {
	if m.DurationMs <= 0 {
		return 0
	}
	return float64(timeMs) / float64(m.DurationMs) * m.Width
}

// XToTime converts a pixel x coordinate to a time in milliseconds, rounded to
// the nearest millisecond and clamped to [0, duration].
func (m Mapper) XToTime(x float64) int {
	if m.Width <= 0 {
		return 0
	}
	t := int(math.Round(x / m.Width * float64(m.DurationMs)))
	return clampInt(t, 0, m.DurationMs)
}

// PulseToLaneY converts a pulse to a y coordinate within a single lane
// (0 = lane top). Higher pulses sit higher in the lane.
func (m Mapper) PulseToLaneY(ch Channel, pulse int) float64 {
	span := ch.MaxPulse - ch.MinPulse
	if span <= 0 {
		return m.LaneHeight / 2
	}
	frac := float64(pulse-ch.MinPulse) / float64(span)
	usable := m.LaneHeight - 2*m.LanePad
	return m.LanePad + (1-frac)*usable
}

// LaneYToPulse converts a y coordinate within a lane to a pulse, rounded to
// the nearest microsecond and clamped to the channel bounds. A y outside the
// lane still maps to a valid clamped pulse.
func (m Mapper) LaneYToPulse(ch Channel, y float64) int {
	usable := m.LaneHeight - 2*m.LanePad
	if usable <= 0 {
		return ch.CenterPulse
	}
	frac := 1 - (y-m.LanePad)/usable
	pulse := float64(ch.MinPulse) + frac*float64(ch.MaxPulse-ch.MinPulse)
	return clampInt(int(math.Round(pulse)), ch.MinPulse, ch.MaxPulse)
}

// LaneTop returns the global y coordinate of the top of a channel's lane.
func (m Mapper) LaneTop(channel int) float64 {
	return float64(channel) * m.LaneHeight
}

// LaneForY returns the channel lane containing the global y coordinate, or
// false when y falls outside every lane.
func (m Mapper) LaneForY(y float64, numChannels int) (int, bool) {
	if m.LaneHeight <= 0 || y < 0 {
		return 0, false
	}
	lane := int(y / m.LaneHeight)
	if lane >= numChannels {
		return 0, false
	}
	return lane, true
}

// PointPos returns the global pixel position of a point on a channel's curve.
func (m Mapper) PointPos(channel int, ch Channel, pt Point) (x, y float64) {
	return m.TimeToX(pt.Time), m.LaneTop(channel) + m.PulseToLaneY(ch, pt.Pulse)
}
