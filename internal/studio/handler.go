package studio

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"rig-studio/internal/rig"
	"rig-studio/internal/timeline"
)

// Handler exposes the studio HTTP endpoints using go-chi.
type Handler struct {
	svc *Service
	log *slog.Logger
}

// NewHandler returns a Handler over the given Service.
func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Routes mounts every studio endpoint on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/status", h.GetStatus)
	r.Post("/play", h.Play)
	r.Post("/pause", h.Pause)
	r.Post("/resume", h.Resume)
	r.Post("/stop", h.Stop)

	r.Get("/config", h.GetConfig)
	r.Post("/config", h.SetConfig)
	r.Post("/channels/{channel}/config", h.SetChannelConfig)

	r.Get("/animations", h.ListAnimations)
	r.Post("/animations", h.SaveAnimation)
	r.Get("/animations/{filename}", h.GetAnimation)
	r.Post("/animations/{filename}/delete", h.DeleteAnimation)
	r.Post("/animations/{filename}/play", h.PlayAnimation)

	r.Get("/audio/current", h.GetCurrentAudio)
	r.Post("/audio/select", h.SelectAudio)
	r.Post("/audio/clear", h.ClearAudio)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("encode response failed", slog.String("error", err.Error()))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"status": "error", "message": msg})
}

// GetStatus handles GET /status.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.svc.Status())
}

// Play handles POST /play. An optional JSON body carries an animation
// document to load before playing; with no body the current session plays.
func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	var err error
	if r.ContentLength > 0 {
		var doc timeline.Document
		if decErr := json.NewDecoder(r.Body).Decode(&doc); decErr != nil {
			h.writeError(w, http.StatusBadRequest, "invalid animation document")
			return
		}
		err = h.svc.PlayDocument(doc)
	} else {
		err = h.svc.Play()
	}
	switch {
	case errors.Is(err, timeline.ErrInvalidTransition):
		h.writeError(w, http.StatusConflict, "animation already in progress")
	case errors.Is(err, timeline.ErrBadDocument):
		h.writeError(w, http.StatusBadRequest, "invalid animation document")
	case err != nil:
		h.log.Error("play failed", slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "play failed")
	default:
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
	}
}

// Pause handles POST /pause.
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Pause(); err != nil {
		h.writeError(w, http.StatusConflict, "no playback to pause")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

// Resume handles POST /resume. Only a paused session can resume.
func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Resume(); err != nil {
		h.writeError(w, http.StatusConflict, "no paused playback to resume")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

// Stop handles POST /stop. Stop always succeeds locally.
func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	h.svc.Stop()
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "stop signal sent"})
}

// GetConfig handles GET /config.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.svc.RigConfig())
}

// SetConfig handles POST /config. Body: {"num_servos": 4}.
func (h *Handler) SetConfig(w http.ResponseWriter, r *http.Request) {
	var body struct {
		NumChannels *int `json:"num_servos"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid config body")
		return
	}
	snap := h.svc.RigConfig()
	if body.NumChannels != nil {
		snap = h.svc.SetNumChannels(*body.NumChannels)
	}
	h.writeJSON(w, http.StatusOK, snap)
}

// SetChannelConfig handles POST /channels/{channel}/config.
func (h *Handler) SetChannelConfig(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "channel"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid channel")
		return
	}
	var cs rig.ChannelSettings
	if err = json.NewDecoder(r.Body).Decode(&cs); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid channel settings")
		return
	}
	applied, err := h.svc.SetChannel(index, cs)
	switch {
	case errors.Is(err, rig.ErrChannelRange):
		h.writeError(w, http.StatusBadRequest, "invalid channel")
	case errors.Is(err, rig.ErrBadBounds):
		h.writeError(w, http.StatusBadRequest, "min must be less than max")
	case err != nil:
		h.log.Error("set channel failed", slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "set channel failed")
	default:
		h.writeJSON(w, http.StatusOK, applied)
	}
}

// ListAnimations handles GET /animations.
func (h *Handler) ListAnimations(w http.ResponseWriter, r *http.Request) {
	metas, err := h.svc.ListAnimations()
	if err != nil {
		h.log.Error("list animations failed", slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "list animations failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"animations": metas})
}

// SaveAnimation handles POST /animations. Body: an animation document; the
// session is replaced by it and then persisted under its name.
func (h *Handler) SaveAnimation(w http.ResponseWriter, r *http.Request) {
	var doc timeline.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid animation document")
		return
	}
	if doc.Name == "" {
		h.writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := h.svc.ReplaceSession(doc); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid animation document")
		return
	}
	stem, err := h.svc.SaveAnimation(doc.Name)
	if err != nil {
		h.log.Error("save animation failed", slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "save animation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "filename": stem})
}

// GetAnimation handles GET /animations/{filename}: loads the document into
// the session and returns it.
func (h *Handler) GetAnimation(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.LoadAnimation(chi.URLParam(r, "filename"))
	switch {
	case errors.Is(err, ErrAnimationNotFound):
		h.writeError(w, http.StatusNotFound, "animation not found")
	case errors.Is(err, timeline.ErrBadDocument):
		h.writeError(w, http.StatusUnprocessableEntity, "animation file is corrupt")
	case err != nil:
		h.log.Error("load animation failed", slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "load animation failed")
	default:
		h.writeJSON(w, http.StatusOK, map[string]any{"animation": doc})
	}
}

// DeleteAnimation handles POST /animations/{filename}/delete.
func (h *Handler) DeleteAnimation(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteAnimation(chi.URLParam(r, "filename"))
	switch {
	case errors.Is(err, ErrAnimationNotFound):
		h.writeError(w, http.StatusNotFound, "animation not found")
	case err != nil:
		h.log.Error("delete animation failed", slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "delete failed")
	default:
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// PlayAnimation handles POST /animations/{filename}/play.
func (h *Handler) PlayAnimation(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.PlayAnimation(chi.URLParam(r, "filename"))
	switch {
	case errors.Is(err, timeline.ErrInvalidTransition):
		h.writeError(w, http.StatusConflict, "animation already in progress")
	case errors.Is(err, ErrAnimationNotFound):
		h.writeError(w, http.StatusNotFound, "animation not found")
	case errors.Is(err, timeline.ErrBadDocument):
		h.writeError(w, http.StatusUnprocessableEntity, "animation file is corrupt")
	case err != nil:
		h.log.Error("play animation failed", slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "play failed")
	default:
		h.writeJSON(w, http.StatusOK, map[string]any{
			"status":      "started",
			"duration_ms": doc.DurationMs,
		})
	}
}

// GetCurrentAudio handles GET /audio/current.
func (h *Handler) GetCurrentAudio(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.CurrentAudio()
	if errors.Is(err, ErrNoAudio) {
		h.writeJSON(w, http.StatusOK, map[string]any{"has_audio": false})
		return
	}
	if err != nil {
		h.log.Error("probe audio failed", slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "probe audio failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"has_audio": true, "audio": info})
}

// SelectAudio handles POST /audio/select. Body: {"filename": "song.wav"}.
func (h *Handler) SelectAudio(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Filename string `json:"filename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Filename == "" {
		h.writeError(w, http.StatusBadRequest, "filename required")
		return
	}
	info, err := h.svc.SelectAudio(body.Filename)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "audio file not found or unreadable")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "audio": info})
}

// ClearAudio handles POST /audio/clear.
func (h *Handler) ClearAudio(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearAudio()
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
