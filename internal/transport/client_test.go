package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"rig-studio/internal/timeline"
)

func TestStartPlayback_posts_keyframe_stream(t *testing.T) {
	var got struct {
		Keyframes []timeline.Keyframe `json:"keyframes"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/play" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type: %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	frames := []timeline.Keyframe{
		{Servos: map[int]int{0: 1500, 1: 2100}, DurationMs: 50},
		{Servos: map[int]int{0: 1520, 1: 2080}, DurationMs: 50},
	}
	c := New(srv.URL)
	if err := c.StartPlayback(context.Background(), frames); err != nil {
		t.Fatalf("start playback: %v", err)
	}
	if len(got.Keyframes) != 2 {
		t.Fatalf("server saw %d keyframes", len(got.Keyframes))
	}
	if got.Keyframes[0].Servos[1] != 2100 || got.Keyframes[1].DurationMs != 50 {
		t.Errorf("wire payload mangled: %+v", got.Keyframes)
	}
}

func TestStartPlayback_non_2xx_is_an_error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rig busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if err := c.StartPlayback(context.Background(), nil); err == nil {
		t.Error("expected an error for a 503 response")
	}
}

func TestStopPlayback(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL + "/") // trailing slash must not double up
	if err := c.StopPlayback(context.Background()); err != nil {
		t.Fatalf("stop playback: %v", err)
	}
	if path != "/stop" {
		t.Errorf("path: %q", path)
	}
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			t.Errorf("path: %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"animating": true})
	}))
	defer srv.Close()

	c := New(srv.URL)
	animating, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !animating {
		t.Error("expected animating=true")
	}
}

func TestStatus_unreachable_rig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // closed up front: connection refused

	c := New(srv.URL)
	if _, err := c.Status(context.Background()); err == nil {
		t.Error("expected an error for an unreachable rig")
	}
}

func TestStatus_cancelled_context(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"animating": false})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := New(srv.URL)
	if _, err := c.Status(ctx); err == nil {
		t.Error("expected an error for a cancelled context")
	}
}
