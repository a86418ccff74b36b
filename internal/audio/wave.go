// Package audio probes WAV files for the metadata the editor needs: the
// duration that drives the time axis, and a downsampled amplitude envelope for
// the waveform strip. Audible playback belongs to the browser, not here.
package audio

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// DefaultWaveformSamples is the number of amplitude buckets returned for the
// waveform strip.
const DefaultWaveformSamples = 200

// ErrNotWav is returned when the file is not a decodable WAV.
var ErrNotWav = errors.New("not a valid wav file")

// Info is the bound-audio descriptor: filename, duration, and a normalized
// peak-amplitude envelope in [0, 1].
type Info struct {
	Filename   string    `json:"filename"`
	DurationMs int       `json:"duration_ms"`
	Waveform   []float64 `json:"waveform"`
}

// Probe reads a WAV file and returns its descriptor. numSamples controls the
// waveform resolution; zero or negative uses DefaultWaveformSamples.
func Probe(path string, numSamples int) (Info, error) {
	if numSamples <= 0 {
		numSamples = DefaultWaveformSamples
	}
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Info{}, ErrNotWav
	}
	dur, err := dec.Duration()
	if err != nil {
		return Info{}, fmt.Errorf("read wav duration: %w", err)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Info{}, fmt.Errorf("decode wav samples: %w", err)
	}

	info := Info{
		Filename:   f.Name(),
		DurationMs: int(dur.Milliseconds()),
		Waveform:   envelope(buf.Data, buf.Format.NumChannels, numSamples),
	}
	return info, nil
}

// envelope folds interleaved samples into numSamples peak-amplitude buckets,
// normalized so the loudest bucket is 1.
func envelope(data []int, channels, numSamples int) []float64 {
	if channels <= 0 {
		channels = 1
	}
	frames := len(data) / channels
	if frames == 0 {
		return make([]float64, numSamples)
	}
	if numSamples > frames {
		numSamples = frames
	}
	out := make([]float64, numSamples)
	perBucket := frames / numSamples
	peak := 0.0
	for b := 0; b < numSamples; b++ {
		start := b * perBucket * channels
		end := start + perBucket*channels
		if b == numSamples-1 {
			end = frames * channels
		}
		for i := start; i < end; i++ {
			v := float64(data[i])
			if v < 0 {
				v = -v
			}
			if v > out[b] {
				out[b] = v
			}
		}
		if out[b] > peak {
			peak = out[b]
		}
	}
	if peak > 0 {
		for b := range out {
			out[b] /= peak
		}
	}
	return out
}
