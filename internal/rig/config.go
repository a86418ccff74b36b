// Package rig holds the servo channel configuration: how many channels the
// rig exposes and each channel's name, pulse bounds and display color. The
// configuration is persisted as a YAML file next to the animation data.
package rig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"rig-studio/internal/timeline"
)

// Global pulse-width limits in microseconds. Per-channel bounds are clamped
// into this range.
const (
	GlobalMinPulse    = 800
	GlobalMaxPulse    = 2500
	GlobalCenterPulse = 1500
)

// MaxChannels is the most channels a rig can expose.
const MaxChannels = 16

// DefaultColors is the palette assigned to channels that have no explicit
// color, keyed by channel index modulo its length.
var DefaultColors = []string{
	"#3b9eff", "#ff9f43", "#26de81", "#a55eea",
	"#fed330", "#fd79a8", "#0abde3", "#ff6b6b",
	"#2ed573", "#70a1ff", "#ffa502", "#ff4757",
	"#1dd1a1", "#5f27cd", "#ff9ff3", "#54a0ff",
}

// ChannelSettings is the persisted configuration of one channel.
type ChannelSettings struct {
	Name        string `yaml:"name" json:"name"`
	MinPulse    int    `yaml:"min_pulse" json:"min_pulse"`
	MaxPulse    int    `yaml:"max_pulse" json:"max_pulse"`
	CenterPulse int    `yaml:"center_pulse" json:"center_pulse"`
	Color       string `yaml:"color,omitempty" json:"color"`
}

// Config is the persisted rig configuration document.
type Config struct {
	NumChannels int                     `yaml:"num_channels"`
	Channels    map[int]ChannelSettings `yaml:"channels"`
}

var (
	// ErrBadBounds is returned when a channel's min pulse is not below its max.
	ErrBadBounds = errors.New("min pulse must be less than max pulse")

	// ErrChannelRange is returned for a channel index outside the rig.
	ErrChannelRange = errors.New("channel index out of range")
)

func defaultSettings(index int) ChannelSettings {
	return ChannelSettings{
		Name:        fmt.Sprintf("Servo %d", index),
		MinPulse:    GlobalMinPulse,
		MaxPulse:    GlobalMaxPulse,
		CenterPulse: GlobalCenterPulse,
		Color:       DefaultColors[index%len(DefaultColors)],
	}
}

// Store manages the rig configuration with YAML persistence. It is safe for
// concurrent readers while a handler updates it.
type Store struct {
	mu   sync.RWMutex
	path string
	cfg  Config
}

// Load reads the configuration file at path, or returns a two-channel default
// rig when the file does not exist. A malformed file is an error; the caller
// decides whether to start fresh.
func Load(path string) (*Store, error) {
	s := &Store{path: path, cfg: Config{NumChannels: 2, Channels: map[int]ChannelSettings{}}}
	s.fillDefaults()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rig config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse rig config: %w", err)
	}
	if cfg.Channels == nil {
		cfg.Channels = map[int]ChannelSettings{}
	}
	s.cfg = cfg
	s.cfg.NumChannels = clamp(s.cfg.NumChannels, 1, MaxChannels)
	s.fillDefaults()
	return s, nil
}

// Save writes the configuration back to its YAML file.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := yaml.Marshal(s.cfg)
	path := s.path
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode rig config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write rig config: %w", err)
	}
	return nil
}

// NumChannels returns the configured channel count.
func (s *Store) NumChannels() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.NumChannels
}

// SetNumChannels changes the channel count, clamped to [1, MaxChannels].
// Settings for channels beyond the new count are dropped; missing ones get
// defaults.
func (s *Store) SetNumChannels(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.NumChannels = clamp(n, 1, MaxChannels)
	for i := range s.cfg.Channels {
		if i >= s.cfg.NumChannels {
			delete(s.cfg.Channels, i)
		}
	}
	s.fillDefaultsLocked()
}

// Channel returns the settings for one channel.
func (s *Store) Channel(index int) (ChannelSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= s.cfg.NumChannels {
		return ChannelSettings{}, ErrChannelRange
	}
	return s.cfg.Channels[index], nil
}

// SetChannel validates and stores settings for one channel. Bounds are clamped
// into the global pulse range; a center outside [min, max] is coerced to the
// midpoint, matching how the rig has always healed bad configs.
func (s *Store) SetChannel(index int, cs ChannelSettings) (ChannelSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= s.cfg.NumChannels {
		return ChannelSettings{}, ErrChannelRange
	}
	if cs.MinPulse < GlobalMinPulse {
		cs.MinPulse = GlobalMinPulse
	}
	if cs.MaxPulse > GlobalMaxPulse {
		cs.MaxPulse = GlobalMaxPulse
	}
	if cs.MinPulse >= cs.MaxPulse {
		return ChannelSettings{}, ErrBadBounds
	}
	if cs.CenterPulse < cs.MinPulse || cs.CenterPulse > cs.MaxPulse {
		cs.CenterPulse = (cs.MinPulse + cs.MaxPulse) / 2
	}
	if cs.Name == "" {
		cs.Name = fmt.Sprintf("Servo %d", index)
	}
	if cs.Color == "" {
		cs.Color = DefaultColors[index%len(DefaultColors)]
	}
	s.cfg.Channels[index] = cs
	return cs, nil
}

// Channels returns the rig as timeline channels, in index order.
func (s *Store) Channels() []timeline.Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]timeline.Channel, s.cfg.NumChannels)
	for i := 0; i < s.cfg.NumChannels; i++ {
		cs := s.cfg.Channels[i]
		out[i] = timeline.Channel{
			Index:       i,
			Name:        cs.Name,
			MinPulse:    cs.MinPulse,
			MaxPulse:    cs.MaxPulse,
			CenterPulse: cs.CenterPulse,
			Color:       cs.Color,
		}
	}
	return out
}

// Settings returns a copy of the per-channel settings map.
func (s *Store) Settings() map[int]ChannelSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]ChannelSettings, len(s.cfg.Channels))
	for i, cs := range s.cfg.Channels {
		out[i] = cs
	}
	return out
}

func (s *Store) fillDefaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fillDefaultsLocked()
}

func (s *Store) fillDefaultsLocked() {
	for i := 0; i < s.cfg.NumChannels; i++ {
		cs, ok := s.cfg.Channels[i]
		if !ok {
			s.cfg.Channels[i] = defaultSettings(i)
			continue
		}
		if cs.Name == "" {
			cs.Name = fmt.Sprintf("Servo %d", i)
		}
		if cs.Color == "" {
			cs.Color = DefaultColors[i%len(DefaultColors)]
		}
		if cs.MinPulse == 0 && cs.MaxPulse == 0 {
			cs.MinPulse = GlobalMinPulse
			cs.MaxPulse = GlobalMaxPulse
		}
		if cs.CenterPulse == 0 {
			cs.CenterPulse = (cs.MinPulse + cs.MaxPulse) / 2
		}
		s.cfg.Channels[i] = cs
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
