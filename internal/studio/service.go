// Package studio is the HTTP service layer over the timeline core: it owns
// the editor session (the one Timeline that is the source of truth), the
// playback clock, the animation store and the rig configuration.
package studio

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"rig-studio/internal/audio"
	"rig-studio/internal/platform/metrics"
	"rig-studio/internal/rig"
	"rig-studio/internal/timeline"
)

// ErrNoAudio is returned when an audio operation needs a bound asset and none
// is attached.
var ErrNoAudio = errors.New("no audio bound to the timeline")

// Service wires the editor session to the store, the rig configuration and
// the remote player.
type Service struct {
	mu       sync.Mutex
	session  *timeline.Timeline
	clock    *timeline.Clock
	rig      *rig.Store
	store    *Store
	remote   timeline.Transport
	audioDir string
	log      *slog.Logger
	metrics  *metrics.Metrics // may be nil (e.g. in tests)
}

// NewService builds the service around an existing session and clock.
func NewService(session *timeline.Timeline, clock *timeline.Clock, rigStore *rig.Store, store *Store, remote timeline.Transport, audioDir string, log *slog.Logger, m *metrics.Metrics) *Service {
	s := &Service{
		session:  session,
		clock:    clock,
		rig:      rigStore,
		store:    store,
		remote:   remote,
		audioDir: audioDir,
		log:      log,
		metrics:  m,
	}
	if m != nil {
		clock.OnSample = m.AddKeyframesSampled
	}
	return s
}

// Status describes the merged local playback state for the UI poll.
type Status struct {
	Animating  bool   `json:"animating"`
	State      string `json:"state"`
	ElapsedMs  int    `json:"elapsed_ms"`
	DurationMs int    `json:"duration_ms"`
	SessionID  string `json:"session_id,omitempty"`
}

// Status returns the current playback status.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.clock.State()
	return Status{
		Animating:  state != timeline.Idle,
		State:      state.String(),
		ElapsedMs:  s.clock.ElapsedMs(),
		DurationMs: s.session.DurationMs,
		SessionID:  s.clock.SessionID(),
	}
}

// Play starts or resumes playback of the current session timeline.
func (s *Service) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.clock.Play(); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.IncPlaybacksStarted()
	}
	return nil
}

// PlayDocument loads a document into the session and starts playback.
func (s *Service) PlayDocument(doc timeline.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clock.State() != timeline.Idle {
		return timeline.ErrInvalidTransition
	}
	if err := s.session.ApplyDocument(doc); err != nil {
		return err
	}
	if err := s.clock.Play(); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.IncPlaybacksStarted()
	}
	return nil
}

// Pause freezes the current playback session.
func (s *Service) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Pause()
}

// Resume continues a paused session. Unlike Play it refuses an idle clock, so
// a resume request can never silently start fresh playback.
func (s *Service) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clock.State() != timeline.Paused {
		return timeline.ErrInvalidTransition
	}
	return s.clock.Play()
}

// Stop forces the session idle. Always succeeds locally, even when the remote
// stop call fails.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock.Stop()
	if s.metrics != nil {
		s.metrics.IncPlaybacksStopped()
	}
}

// Animating reports whether a local playback session exists; used for the
// metrics gauge.
func (s *Service) Animating() bool {
	return s.clock.State() != timeline.Idle
}

// ReplaceSession swaps the session contents for the document's. A rejected
// document leaves the session empty, per the document contract.
func (s *Service) ReplaceSession(doc timeline.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.ApplyDocument(doc)
}

// SaveAnimation snapshots the session under the given name and persists it.
func (s *Service) SaveAnimation(name string) (string, error) {
	s.mu.Lock()
	doc := s.session.Document(name)
	s.mu.Unlock()
	stem, err := s.store.Save(doc)
	if err != nil {
		return "", err
	}
	if s.metrics != nil {
		s.metrics.IncAnimationsSaved()
	}
	s.log.Info("animation saved", slog.String("name", name), slog.String("filename", stem))
	return stem, nil
}

// LoadAnimation loads a stored document into the session. A corrupt document
// leaves the session empty rather than partially applied.
func (s *Service) LoadAnimation(filename string) (timeline.Document, error) {
	doc, err := s.store.Load(filename)
	if err != nil {
		return timeline.Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.ApplyDocument(doc); err != nil {
		s.log.Warn("corrupt animation, session reset",
			slog.String("filename", filename), slog.String("error", err.Error()))
		return timeline.Document{}, err
	}
	if doc.AudioFile != "" {
		// Re-probe the bound audio so its duration keeps ruling the axis. An
		// unreadable file drops the binding; keeping a dead ref would make
		// every audio poll fail.
		if info, err := audio.Probe(filepath.Join(s.audioDir, doc.AudioFile), 0); err == nil {
			s.session.AttachAudio(doc.AudioFile, info.DurationMs)
		} else {
			s.session.ClearAudio()
			s.log.Warn("bound audio file unreadable, binding dropped", slog.String("file", doc.AudioFile), slog.String("error", err.Error()))
		}
	}
	return doc, nil
}

// PlayAnimation loads a stored animation into the session and plays it.
func (s *Service) PlayAnimation(filename string) (timeline.Document, error) {
	if s.clock.State() != timeline.Idle {
		return timeline.Document{}, timeline.ErrInvalidTransition
	}
	doc, err := s.LoadAnimation(filename)
	if err != nil {
		return timeline.Document{}, err
	}
	if err := s.Play(); err != nil {
		return timeline.Document{}, err
	}
	return doc, nil
}

// DeleteAnimation removes a stored animation.
func (s *Service) DeleteAnimation(filename string) error {
	return s.store.Delete(filename)
}

// ListAnimations returns metadata for every stored animation.
func (s *Service) ListAnimations() ([]AnimationMeta, error) {
	return s.store.List()
}

// SelectAudio probes a WAV file in the audio directory and binds it to the
// session, forcing the timeline duration to the audio duration.
func (s *Service) SelectAudio(filename string) (audio.Info, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	info, err := audio.Probe(filepath.Join(s.audioDir, filename), 0)
	if err != nil {
		return audio.Info{}, err
	}
	info.Filename = filename
	s.mu.Lock()
	s.session.AttachAudio(filename, info.DurationMs)
	s.mu.Unlock()
	s.log.Info("audio bound", slog.String("file", filename), slog.Int("duration_ms", info.DurationMs))
	return info, nil
}

// CurrentAudio returns the descriptor of the bound audio asset.
func (s *Service) CurrentAudio() (audio.Info, error) {
	s.mu.Lock()
	ref := s.session.Audio()
	s.mu.Unlock()
	if ref == nil {
		return audio.Info{}, ErrNoAudio
	}
	info, err := audio.Probe(filepath.Join(s.audioDir, ref.Filename), 0)
	if err != nil {
		return audio.Info{}, err
	}
	info.Filename = ref.Filename
	return info, nil
}

// ClearAudio unbinds the session's audio asset.
func (s *Service) ClearAudio() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.ClearAudio()
}

// RigSnapshot is the configuration payload exposed over HTTP.
type RigSnapshot struct {
	NumChannels       int                         `json:"num_servos"`
	GlobalMinPulse    int                         `json:"global_min_pulse"`
	GlobalMaxPulse    int                         `json:"global_max_pulse"`
	GlobalCenterPulse int                         `json:"global_center_pulse"`
	Channels          map[int]rig.ChannelSettings `json:"servos"`
}

// RigConfig returns the current rig configuration.
func (s *Service) RigConfig() RigSnapshot {
	return RigSnapshot{
		NumChannels:       s.rig.NumChannels(),
		GlobalMinPulse:    rig.GlobalMinPulse,
		GlobalMaxPulse:    rig.GlobalMaxPulse,
		GlobalCenterPulse: rig.GlobalCenterPulse,
		Channels:          s.rig.Settings(),
	}
}

// SetNumChannels changes the rig channel count and propagates the
// reconfiguration to the session timeline.
func (s *Service) SetNumChannels(n int) RigSnapshot {
	s.rig.SetNumChannels(n)
	s.reconfigure()
	return s.RigConfig()
}

// SetChannel updates one channel's settings and propagates the change.
func (s *Service) SetChannel(index int, cs rig.ChannelSettings) (rig.ChannelSettings, error) {
	applied, err := s.rig.SetChannel(index, cs)
	if err != nil {
		return rig.ChannelSettings{}, err
	}
	s.reconfigure()
	return applied, nil
}

func (s *Service) reconfigure() {
	s.mu.Lock()
	s.session.SetChannels(s.rig.Channels())
	s.mu.Unlock()
	// Best effort, same as the rig has always treated config persistence.
	if err := s.rig.Save(); err != nil {
		s.log.Warn("rig config save failed", slog.String("error", err.Error()))
	}
}

// PollRemote asks the remote player whether it is animating and reconciles a
// stale local session. Poll failures are advisory and only logged.
func (s *Service) PollRemote(ctx context.Context) {
	animating, err := s.remote.Status(ctx)
	if err != nil {
		s.log.Debug("remote status poll failed", slog.String("error", err.Error()))
		return
	}
	if s.clock.ReconcileRemote(animating) && s.metrics != nil {
		s.metrics.IncStaleReconciles()
	}
}
