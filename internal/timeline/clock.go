package timeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PlaybackState is the playback clock's state machine position.
type PlaybackState int

const (
	// Idle means no playback session exists.
	Idle PlaybackState = iota
	// Playing means virtual time is advancing.
	Playing
	// Paused means a session exists with elapsed time frozen.
	Paused
)

func (s PlaybackState) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "idle"
	}
}

// ErrInvalidTransition is returned for a play/pause call that is not valid
// from the current state.
var ErrInvalidTransition = errors.New("invalid playback transition")

// Transport drives the remote rig player. Calls are fire-and-forget from the
// clock's perspective: failures are logged, never allowed to wedge the local
// state machine.
type Transport interface {
	StartPlayback(ctx context.Context, frames []Keyframe) error
	StopPlayback(ctx context.Context) error
	Status(ctx context.Context) (animating bool, err error)
}

// AudioSurface is the external audio element the clock keeps in step with the
// playhead.
type AudioSurface interface {
	Play() error   // start (or restart) from position 0
	Resume() error // continue from the paused position
	Pause() error
	Stop() error // halt and rewind
}

// Ticker schedules a repeating callback chain. Start cancels any outstanding
// chain first, so at most one is ever active; Stop cancels outright.
type Ticker interface {
	Start(fn func())
	Stop()
}

// IntervalTicker drives a callback from a real time.Ticker.
type IntervalTicker struct {
	interval time.Duration
	mu       sync.Mutex
	cancel   chan struct{}
}

// NewIntervalTicker returns a ticker firing every interval.
func NewIntervalTicker(interval time.Duration) *IntervalTicker {
	return &IntervalTicker{interval: interval}
}

// Start implements Ticker.
func (t *IntervalTicker) Start(fn func()) {
	t.Stop()
	t.mu.Lock()
	cancel := make(chan struct{})
	t.cancel = cancel
	t.mu.Unlock()
	go func() {
		tick := time.NewTicker(t.interval)
		defer tick.Stop()
		for {
			select {
			case <-cancel:
				return
			case <-tick.C:
				fn()
			}
		}
	}()
}

// Stop implements Ticker.
func (t *IntervalTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		close(t.cancel)
		t.cancel = nil
	}
}

const transportCallTimeout = 2 * time.Second

// Clock is the playback state machine. It reads the timeline only inside
// Play, capturing the sampled stream and its duration for the session; the
// tick path works from that snapshot alone, so callers may keep editing the
// timeline under their own lock while playback runs. Elapsed time is
// re-derived as now minus a reference timestamp on every tick, which
// tolerates dropped or irregular ticks without drifting.
type Clock struct {
	tl         *Timeline
	transport  Transport
	audio      AudioSurface
	ticker     Ticker
	log        *slog.Logger
	intervalMs int

	now func() time.Time

	// OnSample, when set, observes how many keyframes each (re)start handed
	// to the transport.
	OnSample func(frames int)

	mu         sync.Mutex
	state      PlaybackState
	sessionID  string
	ref        time.Time // reference timestamp while playing
	frozenMs   int       // elapsed time captured at pause
	durationMs int       // timeline duration captured when the stream was sampled
}

// NewClock returns an idle clock over the timeline. The sample interval is the
// keyframe step handed to the transport; zero or negative falls back to
// DefaultSampleIntervalMs.
func NewClock(tl *Timeline, transport Transport, audio AudioSurface, ticker Ticker, log *slog.Logger, sampleIntervalMs int) *Clock {
	if sampleIntervalMs <= 0 {
		sampleIntervalMs = DefaultSampleIntervalMs
	}
	return &Clock{
		tl:         tl,
		transport:  transport,
		audio:      audio,
		ticker:     ticker,
		log:        log,
		intervalMs: sampleIntervalMs,
		now:        time.Now,
	}
}

// SetNow injects the wall-clock source; tests use it to drive elapsed time
// deterministically.
func (c *Clock) SetNow(now func() time.Time) { c.now = now }

// State returns the current playback state.
func (c *Clock) State() PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the identifier of the current playback session, or empty
// when idle.
func (c *Clock) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// ElapsedMs returns the virtual playhead position: zero when idle, frozen
// while paused, and now minus the reference timestamp while playing.
func (c *Clock) ElapsedMs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsedLocked()
}

func (c *Clock) elapsedLocked() int {
	switch c.state {
	case Playing:
		return int(c.now().Sub(c.ref).Milliseconds())
	case Paused:
		return c.frozenMs
	default:
		return 0
	}
}

// Play starts a fresh session from idle, or resumes a paused one. From idle it
// samples the whole timeline, hands the stream to the transport, starts audio
// from zero and begins advancing from a fresh reference timestamp. From paused
// it re-samples from the frozen position (picking up edits made while paused),
// re-issues the stream, resumes audio, and restores the reference so elapsed
// time continues seamlessly.
func (c *Clock) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Playing:
		return ErrInvalidTransition
	case Idle:
		frames, err := Sample(c.tl, c.intervalMs)
		if err != nil {
			return err
		}
		c.durationMs = c.tl.DurationMs
		c.sessionID = uuid.NewString()
		c.startTransport(frames)
		c.callAudio("play", func() error { return c.audio.Play() })
		c.ref = c.now()
		c.frozenMs = 0
	case Paused:
		frames, err := SampleFrom(c.tl, c.frozenMs, c.intervalMs)
		if err != nil {
			return err
		}
		c.durationMs = c.tl.DurationMs
		c.startTransport(frames)
		c.callAudio("resume", func() error { return c.audio.Resume() })
		c.ref = c.now().Add(-time.Duration(c.frozenMs) * time.Millisecond)
	}

	c.state = Playing
	c.ticker.Start(c.Tick)
	c.log.Info("playback started",
		slog.String("session_id", c.sessionID),
		slog.Int("duration_ms", c.durationMs),
		slog.Int("from_ms", c.frozenMs),
	)
	return nil
}

// Pause freezes elapsed time at its current value, stops the ticker, pauses
// audio and signals the transport to halt. Valid only while playing.
func (c *Clock) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Playing {
		return ErrInvalidTransition
	}
	c.frozenMs = c.elapsedLocked()
	c.state = Paused
	c.ticker.Stop()
	c.callAudio("pause", func() error { return c.audio.Pause() })
	c.stopTransport()
	c.log.Info("playback paused",
		slog.String("session_id", c.sessionID),
		slog.Int("elapsed_ms", c.frozenMs),
	)
	return nil
}

// Stop forces idle from any state, resets elapsed time to zero, halts and
// rewinds audio, and signals the transport to halt. Stopping an idle clock is
// a no-op.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Idle {
		return
	}
	id := c.sessionID
	c.resetLocked()
	c.callAudio("stop", func() error { return c.audio.Stop() })
	c.stopTransport()
	c.log.Info("playback stopped", slog.String("session_id", id))
}

// Tick re-derives elapsed time and completes the session once it reaches the
// duration captured when the stream was sampled, which is also the length of
// the stream the remote is executing. Completion transitions to idle exactly
// once; further ticks are no-ops.
func (c *Clock) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Playing {
		return
	}
	if c.elapsedLocked() < c.durationMs {
		return
	}
	id := c.sessionID
	c.resetLocked()
	// The remote player drains its own stream on natural completion; only
	// audio needs rewinding here.
	c.callAudio("stop", func() error { return c.audio.Stop() })
	c.log.Info("playback completed", slog.String("session_id", id))
}

// ReconcileRemote applies an advisory status poll. The remote executor is the
// authority on whether motion is occurring: if it reports not-animating while
// a local session exists, the session is forced to idle. Returns true when a
// stale session was cleared.
func (c *Clock) ReconcileRemote(animating bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if animating || c.state == Idle {
		return false
	}
	id := c.sessionID
	state := c.state
	c.resetLocked()
	c.callAudio("stop", func() error { return c.audio.Stop() })
	c.log.Warn("remote reports not animating, forcing idle",
		slog.String("session_id", id),
		slog.String("local_state", state.String()),
	)
	return true
}

func (c *Clock) resetLocked() {
	c.state = Idle
	c.sessionID = ""
	c.frozenMs = 0
	c.durationMs = 0
	c.ref = time.Time{}
	c.ticker.Stop()
}

func (c *Clock) startTransport(frames []Keyframe) {
	if c.OnSample != nil {
		c.OnSample(len(frames))
	}
	ctx, cancel := context.WithTimeout(context.Background(), transportCallTimeout)
	defer cancel()
	if err := c.transport.StartPlayback(ctx, frames); err != nil {
		c.log.Error("transport start failed", slog.String("error", err.Error()))
	}
}

func (c *Clock) stopTransport() {
	ctx, cancel := context.WithTimeout(context.Background(), transportCallTimeout)
	defer cancel()
	if err := c.transport.StopPlayback(ctx); err != nil {
		c.log.Error("transport stop failed", slog.String("error", err.Error()))
	}
}

func (c *Clock) callAudio(op string, fn func() error) {
	if c.audio == nil {
		return
	}
	if err := fn(); err != nil {
		c.log.Error("audio call failed", slog.String("op", op), slog.String("error", err.Error()))
	}
}
