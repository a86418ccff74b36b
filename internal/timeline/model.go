package timeline

import "errors"

// DefaultDurationMs is the timeline length used when nothing else dictates one.
const DefaultDurationMs = 3000

// GridIntervalMs is the grid-snap quantum for edited point times.
const GridIntervalMs = 100

// Channel describes one actuator lane: its stable index, display metadata and
// the pulse-width bounds every point on its curve is clamped to. Channels are
// configured externally; the timeline treats them as immutable between
// reconfiguration events.
type Channel struct {
	Index       int
	Name        string
	MinPulse    int
	MaxPulse    int
	CenterPulse int
	Color       string
}

// Point is one control vertex on a channel's curve. Time is milliseconds from
// the start of the timeline, Pulse is the servo pulse width in microseconds.
type Point struct {
	Time  int `json:"time"`
	Pulse int `json:"pulse"`
}

// Annotation is a labeled instant on the shared time axis, independent of any
// channel's curve.
type Annotation struct {
	Time int    `json:"time"`
	Text string `json:"text"`
}

// AudioRef describes the audio asset bound to a timeline. Only the duration
// affects the core: while an asset with a positive duration is attached, the
// timeline duration is forced to match it.
type AudioRef struct {
	Filename   string
	DurationMs int
}

// Timeline is the single source of truth for an edit session: the total
// duration, every channel's ordered point sequence, and the annotation list.
// Within each curve, point times are strictly increasing; edits that would
// violate that merge by proximity instead of inserting duplicates.
type Timeline struct {
	DurationMs  int
	channels    []Channel
	curves      map[int][]Point
	annotations []Annotation
	audio       *AudioRef
}

var (
	// ErrChannelRange is returned for a channel index outside the configured count.
	ErrChannelRange = errors.New("channel index out of range")

	// ErrPointRange is returned for a point index outside a channel's curve.
	ErrPointRange = errors.New("point index out of range")

	// ErrAnnotationRange is returned for an annotation index outside the list.
	ErrAnnotationRange = errors.New("annotation index out of range")

	// ErrNotFinite is returned when a time or pulse input is NaN or infinite.
	ErrNotFinite = errors.New("time and pulse must be finite")

	// ErrBadDuration is returned for a non-positive duration or interval.
	ErrBadDuration = errors.New("duration must be positive")

	// ErrEmptyText is returned when adding an annotation with no text after
	// trimming; an empty annotation is equivalent to no annotation.
	ErrEmptyText = errors.New("annotation text is empty")
)

// New returns an empty timeline over the given channels. A non-positive
// duration falls back to DefaultDurationMs.
func New(durationMs int, channels []Channel) *Timeline {
	if durationMs <= 0 {
		durationMs = DefaultDurationMs
	}
	return &Timeline{
		DurationMs: durationMs,
		channels:   channels,
		curves:     make(map[int][]Point),
	}
}

// Channels returns the configured channel list.
func (tl *Timeline) Channels() []Channel { return tl.channels }

// NumChannels returns the configured channel count.
func (tl *Timeline) NumChannels() int { return len(tl.channels) }

// Channel returns the configuration for one channel.
func (tl *Timeline) Channel(index int) (Channel, error) {
	if index < 0 || index >= len(tl.channels) {
		return Channel{}, ErrChannelRange
	}
	return tl.channels[index], nil
}

// Curve returns a copy of the channel's point sequence, sorted ascending by
// time. The copy keeps callers from mutating internal state.
func (tl *Timeline) Curve(channel int) []Point {
	pts := tl.curves[channel]
	if len(pts) == 0 {
		return nil
	}
	out := make([]Point, len(pts))
	copy(out, pts)
	return out
}

// NumPoints returns the number of points on a channel's curve.
func (tl *Timeline) NumPoints(channel int) int { return len(tl.curves[channel]) }

// Annotations returns a copy of the annotation list, sorted ascending by time.
func (tl *Timeline) Annotations() []Annotation {
	if len(tl.annotations) == 0 {
		return nil
	}
	out := make([]Annotation, len(tl.annotations))
	copy(out, tl.annotations)
	return out
}

// Audio returns the bound audio asset, or nil when none is attached.
func (tl *Timeline) Audio() *AudioRef {
	if tl.audio == nil {
		return nil
	}
	a := *tl.audio
	return &a
}

// AttachAudio binds an audio asset. A valid positive duration is authoritative
// for the time axis, so the timeline duration is forced to match it.
func (tl *Timeline) AttachAudio(filename string, durationMs int) {
	tl.audio = &AudioRef{Filename: filename, DurationMs: durationMs}
	if durationMs > 0 {
		tl.DurationMs = durationMs
	}
}

// ClearAudio unbinds any audio asset. The duration is left as-is.
func (tl *Timeline) ClearAudio() { tl.audio = nil }

// SetChannels applies an external channel reconfiguration. Curves for channels
// beyond the new count are dropped; surviving points are clamped to the new
// bounds.
func (tl *Timeline) SetChannels(channels []Channel) {
	tl.channels = channels
	for ch, pts := range tl.curves {
		if ch < 0 || ch >= len(channels) {
			delete(tl.curves, ch)
			continue
		}
		c := channels[ch]
		for i := range pts {
			pts[i].Pulse = clampInt(pts[i].Pulse, c.MinPulse, c.MaxPulse)
		}
	}
}

// SelectionKind tags the variant held by a Selection.
type SelectionKind int

const (
	// SelectNone means nothing is selected.
	SelectNone SelectionKind = iota
	// SelectPoint references a (channel, point index) pair.
	SelectPoint
	// SelectAnnotation references an annotation index.
	SelectAnnotation
)

// Selection is the at-most-one selected entity: nothing, a point on a curve,
// or an annotation. The tagged variant keeps the mutual exclusivity structural.
type Selection struct {
	Kind    SelectionKind
	Channel int
	Index   int
}

// NoSelection returns the empty selection.
func NoSelection() Selection { return Selection{Kind: SelectNone} }

// PointSelection returns a selection referencing a point on a channel's curve.
func PointSelection(channel, index int) Selection {
	return Selection{Kind: SelectPoint, Channel: channel, Index: index}
}

// AnnotationSelection returns a selection referencing an annotation.
func AnnotationSelection(index int) Selection {
	return Selection{Kind: SelectAnnotation, Index: index}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
