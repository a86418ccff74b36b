package timeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type manualTicker struct {
	running bool
	starts  int
	stops   int
}

func (m *manualTicker) Start(fn func()) {
	if m.running {
		m.stops++
	}
	m.running = true
	m.starts++
}

func (m *manualTicker) Stop() {
	if m.running {
		m.stops++
	}
	m.running = false
}

type fakeTransport struct {
	started [][]Keyframe
	stops   int
	fail    bool
}

func (f *fakeTransport) StartPlayback(ctx context.Context, frames []Keyframe) error {
	if f.fail {
		return errors.New("rig unreachable")
	}
	f.started = append(f.started, frames)
	return nil
}

func (f *fakeTransport) StopPlayback(ctx context.Context) error {
	f.stops++
	if f.fail {
		return errors.New("rig unreachable")
	}
	return nil
}

func (f *fakeTransport) Status(ctx context.Context) (bool, error) {
	return false, nil
}

type fakeAudio struct {
	plays, resumes, pauses, stops int
}

func (f *fakeAudio) Play() error   { f.plays++; return nil }
func (f *fakeAudio) Resume() error { f.resumes++; return nil }
func (f *fakeAudio) Pause() error  { f.pauses++; return nil }
func (f *fakeAudio) Stop() error   { f.stops++; return nil }

type clockFixture struct {
	tl     *Timeline
	clock  *Clock
	ticker *manualTicker
	trans  *fakeTransport
	audio  *fakeAudio
	now    time.Time
}

func newClockFixture(t *testing.T) *clockFixture {
	t.Helper()
	f := &clockFixture{
		tl:     New(3000, testChannels(1)),
		ticker: &manualTicker{},
		trans:  &fakeTransport{},
		audio:  &fakeAudio{},
		now:    time.Unix(1000, 0),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.clock = NewClock(f.tl, f.trans, f.audio, f.ticker, log, 50)
	f.clock.SetNow(func() time.Time { return f.now })
	return f
}

func (f *clockFixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func TestClock_initial_state(t *testing.T) {
	f := newClockFixture(t)
	if f.clock.State() != Idle {
		t.Errorf("initial state: %v", f.clock.State())
	}
	if f.clock.ElapsedMs() != 0 {
		t.Errorf("initial elapsed: %d", f.clock.ElapsedMs())
	}
}

func TestClock_play_samples_and_starts_everything(t *testing.T) {
	f := newClockFixture(t)

	if err := f.clock.Play(); err != nil {
		t.Fatalf("play: %v", err)
	}
	if f.clock.State() != Playing {
		t.Errorf("state after play: %v", f.clock.State())
	}
	if len(f.trans.started) != 1 {
		t.Fatalf("transport not handed the stream: %d", len(f.trans.started))
	}
	// 3000ms at 50ms steps, inclusive of both ends.
	if n := len(f.trans.started[0]); n != 61 {
		t.Errorf("expected 61 keyframes, got %d", n)
	}
	if f.audio.plays != 1 {
		t.Errorf("audio not started from zero: %d", f.audio.plays)
	}
	if !f.ticker.running {
		t.Error("ticker not running")
	}
	if f.clock.SessionID() == "" {
		t.Error("session id missing")
	}
}

func TestClock_play_while_playing_rejected(t *testing.T) {
	f := newClockFixture(t)
	_ = f.clock.Play()
	if err := f.clock.Play(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestClock_pause_freezes_elapsed(t *testing.T) {
	f := newClockFixture(t)
	_ = f.clock.Play()
	f.advance(1200 * time.Millisecond)

	if err := f.clock.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if f.clock.State() != Paused {
		t.Errorf("state: %v", f.clock.State())
	}
	if got := f.clock.ElapsedMs(); got != 1200 {
		t.Errorf("frozen elapsed: got %d want 1200", got)
	}
	// Time passing while paused must not move the playhead.
	f.advance(5 * time.Second)
	if got := f.clock.ElapsedMs(); got != 1200 {
		t.Errorf("elapsed drifted while paused: %d", got)
	}
	if f.audio.pauses != 1 {
		t.Errorf("audio not paused: %d", f.audio.pauses)
	}
	if f.trans.stops != 1 {
		t.Errorf("transport not halted on pause: %d", f.trans.stops)
	}
	if f.ticker.running {
		t.Error("ticker still running while paused")
	}
}

func TestClock_pause_from_idle_rejected(t *testing.T) {
	f := newClockFixture(t)
	if err := f.clock.Pause(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestClock_resume_continues_seamlessly(t *testing.T) {
	f := newClockFixture(t)
	_ = f.clock.Play()
	f.advance(1000 * time.Millisecond)
	_ = f.clock.Pause()

	// Resume with no intervening ticks: elapsed must be unchanged.
	if err := f.clock.Play(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if got := f.clock.ElapsedMs(); got != 1000 {
		t.Errorf("elapsed after resume: got %d want 1000", got)
	}
	if f.audio.resumes != 1 {
		t.Errorf("audio not resumed: %d", f.audio.resumes)
	}
	// The resumed stream starts at the paused position.
	if len(f.trans.started) != 2 {
		t.Fatalf("resume must re-issue the stream: %d", len(f.trans.started))
	}
	// 1000..3000 at 50ms steps inclusive.
	if n := len(f.trans.started[1]); n != 41 {
		t.Errorf("resumed stream length: got %d want 41", n)
	}

	f.advance(500 * time.Millisecond)
	if got := f.clock.ElapsedMs(); got != 1500 {
		t.Errorf("elapsed after resume+500ms: got %d want 1500", got)
	}
}

func TestClock_resume_picks_up_edits(t *testing.T) {
	f := newClockFixture(t)
	_ = f.clock.Play()
	f.advance(time.Second)
	_ = f.clock.Pause()

	// Edit while paused; the resumed stream must reflect it.
	if _, err := f.tl.AddOrReplacePoint(0, 2000, 2400, 0); err != nil {
		t.Fatalf("edit: %v", err)
	}
	_ = f.clock.Play()

	resumed := f.trans.started[1]
	// Frame at t=2000 is index (2000-1000)/50 = 20.
	if got := resumed[20].Servos[0]; got != 2400 {
		t.Errorf("resumed stream missed the edit: got %d want 2400", got)
	}
}

func TestClock_stop_resets(t *testing.T) {
	f := newClockFixture(t)
	_ = f.clock.Play()
	f.advance(time.Second)

	f.clock.Stop()

	if f.clock.State() != Idle {
		t.Errorf("state after stop: %v", f.clock.State())
	}
	if f.clock.ElapsedMs() != 0 {
		t.Errorf("elapsed after stop: %d", f.clock.ElapsedMs())
	}
	if f.audio.stops != 1 {
		t.Errorf("audio not stopped: %d", f.audio.stops)
	}
	if f.trans.stops != 1 {
		t.Errorf("transport not halted: %d", f.trans.stops)
	}
	if f.clock.SessionID() != "" {
		t.Error("session id should clear on stop")
	}

	// Stop from idle is a no-op.
	f.clock.Stop()
	if f.audio.stops != 1 || f.trans.stops != 1 {
		t.Error("idle stop must not re-signal")
	}
}

func TestClock_completion_is_idempotent(t *testing.T) {
	f := newClockFixture(t)
	_ = f.clock.Play()
	f.advance(3500 * time.Millisecond)

	f.clock.Tick()
	if f.clock.State() != Idle {
		t.Errorf("state after completion tick: %v", f.clock.State())
	}
	stops := f.audio.stops

	// Further ticks must not re-complete.
	f.clock.Tick()
	f.clock.Tick()
	if f.audio.stops != stops {
		t.Error("completion ran more than once")
	}
	// Natural completion lets the remote drain its own stream.
	if f.trans.stops != 0 {
		t.Errorf("natural completion should not signal remote stop: %d", f.trans.stops)
	}
}

func TestClock_tick_before_completion_keeps_playing(t *testing.T) {
	f := newClockFixture(t)
	_ = f.clock.Play()
	f.advance(time.Second)

	f.clock.Tick()
	if f.clock.State() != Playing {
		t.Errorf("state: %v", f.clock.State())
	}
	if got := f.clock.ElapsedMs(); got != 1000 {
		t.Errorf("elapsed: %d", got)
	}
}

func TestClock_completion_uses_sampled_duration(t *testing.T) {
	f := newClockFixture(t)
	_ = f.clock.Play()

	// Lengthening the timeline mid-session must not move the finish line: the
	// remote is executing the stream sampled when playback started.
	_ = f.tl.SetDuration(10000)
	f.advance(3500 * time.Millisecond)
	f.clock.Tick()
	if f.clock.State() != Idle {
		t.Errorf("session should complete at the sampled duration: %v", f.clock.State())
	}
}

func TestClock_resume_adopts_edited_duration(t *testing.T) {
	f := newClockFixture(t)
	_ = f.clock.Play()
	f.advance(1000 * time.Millisecond)
	_ = f.clock.Pause()

	// Duration edits made while paused take effect on resume, like any other
	// edit: the stream is re-sampled.
	_ = f.tl.SetDuration(5000)
	_ = f.clock.Play()

	f.advance(2500 * time.Millisecond) // elapsed 3500, past the old duration
	f.clock.Tick()
	if f.clock.State() != Playing {
		t.Fatalf("resumed session ended at the stale duration: %v", f.clock.State())
	}
	f.advance(2000 * time.Millisecond) // elapsed 5500
	f.clock.Tick()
	if f.clock.State() != Idle {
		t.Errorf("state: %v", f.clock.State())
	}
}

func TestClock_playback_tolerates_concurrent_edits(t *testing.T) {
	tl := New(3000, testChannels(1))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := NewClock(tl, &fakeTransport{}, nil, NewIntervalTicker(time.Millisecond), log, 50)
	start := time.Now()
	clock.SetNow(func() time.Time { return start }) // playhead pinned, session never completes

	if err := clock.Play(); err != nil {
		t.Fatalf("play: %v", err)
	}
	// Edits land while the real ticker chain is firing; the tick path works
	// from its sampled snapshot and must never read the timeline.
	for i := 0; i < 200; i++ {
		tl.AttachAudio("loop.wav", 4000+i)
		_ = tl.SetDuration(3000 + i)
		_, _ = tl.AddOrReplacePoint(0, float64(i*10), 1500, 0)
		if i%50 == 0 {
			time.Sleep(time.Millisecond)
		}
	}
	if clock.State() != Playing {
		t.Errorf("state: %v", clock.State())
	}
	clock.Stop()
}

func TestClock_reconcile_remote_forces_idle(t *testing.T) {
	f := newClockFixture(t)
	_ = f.clock.Play()

	if !f.clock.ReconcileRemote(false) {
		t.Fatal("stale session not reconciled")
	}
	if f.clock.State() != Idle {
		t.Errorf("state after reconcile: %v", f.clock.State())
	}

	// Remote animating, or already idle: nothing to reconcile.
	if f.clock.ReconcileRemote(false) {
		t.Error("idle reconcile should be a no-op")
	}
	_ = f.clock.Play()
	if f.clock.ReconcileRemote(true) {
		t.Error("remote animating must not clear a live session")
	}
}

func TestClock_transport_failure_does_not_block_state(t *testing.T) {
	f := newClockFixture(t)
	f.trans.fail = true

	if err := f.clock.Play(); err != nil {
		t.Fatalf("play must survive transport failure: %v", err)
	}
	if f.clock.State() != Playing {
		t.Errorf("state: %v", f.clock.State())
	}

	// Stop still goes idle even when the remote call fails.
	f.clock.Stop()
	if f.clock.State() != Idle {
		t.Errorf("state after stop with failing transport: %v", f.clock.State())
	}
}

func TestClock_restart_cancels_previous_ticker_chain(t *testing.T) {
	f := newClockFixture(t)
	_ = f.clock.Play()
	f.clock.Stop()
	_ = f.clock.Play()

	if f.ticker.starts != 2 {
		t.Errorf("ticker starts: %d", f.ticker.starts)
	}
	if !f.ticker.running {
		t.Error("ticker should be running after restart")
	}
}
