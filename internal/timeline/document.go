package timeline

import (
	"encoding/json"
	"errors"
	"strconv"
)

// Document is the persisted animation format. Curve keys are stringified
// channel indices, matching the JSON files the web editor has always written.
type Document struct {
	Name        string             `json:"name"`
	DurationMs  int                `json:"duration_ms"`
	Curves      map[string][]Point `json:"curves"`
	Annotations []Annotation       `json:"annotations"`
	AudioFile   string             `json:"audio_file,omitempty"`
	CreatedAt   string             `json:"created_at,omitempty"`
	UpdatedAt   string             `json:"updated_at,omitempty"`
}

// ErrBadDocument is returned when a persisted document is malformed. Callers
// fall back to an empty timeline rather than partially applying it.
var ErrBadDocument = errors.New("malformed animation document")

// ParseDocument decodes a persisted animation document.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, ErrBadDocument
	}
	return doc, nil
}

// Document snapshots the timeline into its persisted form. Timestamps are left
// for the store to manage.
func (tl *Timeline) Document(name string) Document {
	doc := Document{
		Name:        name,
		DurationMs:  tl.DurationMs,
		Curves:      make(map[string][]Point, len(tl.curves)),
		Annotations: tl.Annotations(),
	}
	for ch := range tl.curves {
		if pts := tl.Curve(ch); len(pts) > 0 {
			doc.Curves[strconv.Itoa(ch)] = pts
		}
	}
	if tl.audio != nil {
		doc.AudioFile = tl.audio.Filename
	}
	return doc
}

// ApplyDocument replaces the timeline contents with the document's. The
// document is validated up front; any malformed field rejects the whole
// document and leaves the timeline empty with the default duration, never
// partially applied. Points are re-inserted through the ordinary edit path so
// the ordering and clamping invariants hold regardless of what was on disk.
func (tl *Timeline) ApplyDocument(doc Document) error {
	tl.ClearAll()
	tl.ClearAudio()
	tl.DurationMs = DefaultDurationMs

	if doc.DurationMs <= 0 {
		return ErrBadDocument
	}
	channels := make(map[int][]Point, len(doc.Curves))
	for key, pts := range doc.Curves {
		ch, err := strconv.Atoi(key)
		if err != nil || ch < 0 {
			return ErrBadDocument
		}
		for _, p := range pts {
			if p.Time < 0 {
				return ErrBadDocument
			}
		}
		channels[ch] = pts
	}
	for _, a := range doc.Annotations {
		if a.Time < 0 {
			return ErrBadDocument
		}
	}

	tl.DurationMs = doc.DurationMs
	for ch, pts := range channels {
		if ch >= tl.NumChannels() {
			// Curves for channels beyond the current rig are dropped, same
			// as an explicit reconfiguration.
			continue
		}
		for _, p := range pts {
			if _, err := tl.AddOrReplacePoint(ch, float64(p.Time), float64(p.Pulse), 0); err != nil {
				tl.ClearAll()
				tl.DurationMs = DefaultDurationMs
				return ErrBadDocument
			}
		}
	}
	for _, a := range doc.Annotations {
		if _, err := tl.AddAnnotation(float64(a.Time), a.Text); err != nil && !errors.Is(err, ErrEmptyText) {
			tl.ClearAll()
			tl.DurationMs = DefaultDurationMs
			return ErrBadDocument
		}
	}
	if doc.AudioFile != "" {
		tl.audio = &AudioRef{Filename: doc.AudioFile}
	}
	return nil
}
