// Package transport is the HTTP client for the remote rig player: the process
// that actually drives hardware from a keyframe stream. The clock treats these
// calls as fire-and-forget; errors surface to the caller for logging only.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"rig-studio/internal/timeline"
)

const defaultTimeout = 5 * time.Second

// Client talks to the remote rig player over HTTP.
type Client struct {
	base string
	http *http.Client
}

// New returns a client for the rig player at baseURL.
func New(baseURL string) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: defaultTimeout},
	}
}

type playRequest struct {
	Keyframes []timeline.Keyframe `json:"keyframes"`
}

type statusResponse struct {
	Animating bool `json:"animating"`
}

// StartPlayback hands the keyframe stream to the remote player.
func (c *Client) StartPlayback(ctx context.Context, frames []timeline.Keyframe) error {
	body, err := json.Marshal(playRequest{Keyframes: frames})
	if err != nil {
		return fmt.Errorf("encode keyframes: %w", err)
	}
	return c.post(ctx, "/play", body)
}

// StopPlayback signals the remote player to halt.
func (c *Client) StopPlayback(ctx context.Context) error {
	return c.post(ctx, "/stop", nil)
}

// Status polls whether the remote player is currently animating.
func (c *Client) Status(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/status", nil)
	if err != nil {
		return false, fmt.Errorf("build status request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("poll rig status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("poll rig status: unexpected status %d", resp.StatusCode)
	}
	var st statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return false, fmt.Errorf("decode rig status: %w", err)
	}
	return st.Animating, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call rig %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("call rig %s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}
