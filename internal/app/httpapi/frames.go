package httpapi

import (
	stderrors "errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/R3E-Network/framestore/internal/app/domain/analytics"
	"github.com/R3E-Network/framestore/internal/app/domain/schedule"
	"github.com/R3E-Network/framestore/internal/app/services/embed"
	"github.com/R3E-Network/framestore/internal/errors"
	"github.com/R3E-Network/framestore/internal/httputil"
	"github.com/R3E-Network/framestore/internal/middleware"
	"github.com/R3E-Network/framestore/manifest"
)

// readManifest parses the request body as a wire manifest.
func readManifest(r *http.Request) (*manifest.Manifest, error) {
	body, err := httputil.ReadBody(r)
	if err != nil {
		return nil, err
	}
	m, err := manifest.ParseJSON(body)
	if err != nil {
		var structural *manifest.StructuralError
		if stderrors.As(err, &structural) {
			return nil, errors.InvalidManifest([]string{structural.Error()})
		}
		return nil, errors.BadRequest("invalid JSON body")
	}
	return m, nil
}

func (h *handler) validate(w http.ResponseWriter, r *http.Request) {
	var raw any
	if err := httputil.DecodeJSON(r, &raw); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.app.Frames.Validate(raw))
}

func (h *handler) listFrames(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.QueryInt(r, "limit", 0)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	offset, err := httputil.QueryInt(r, "offset", 0)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	list, err := h.app.Frames.List(r.Context(), limit, offset)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *handler) createFrame(w http.ResponseWriter, r *http.Request) {
	m, err := readManifest(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	f, err := h.app.Frames.Create(r.Context(), middleware.GetUserID(r.Context()), m)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, f)
}

func (h *handler) getFrame(w http.ResponseWriter, r *http.Request) {
	f, err := h.app.Frames.Get(r.Context(), pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, f)
}

func (h *handler) updateFrame(w http.ResponseWriter, r *http.Request) {
	m, err := readManifest(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	f, err := h.app.Frames.Update(r.Context(), middleware.GetUserID(r.Context()), pathVar(r, "id"), m)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, f)
}

func (h *handler) deleteFrame(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Frames.Delete(r.Context(), middleware.GetUserID(r.Context()), pathVar(r, "id")); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// frameManifest serves the stored manifest in wire form.
func (h *handler) frameManifest(w http.ResponseWriter, r *http.Request) {
	f, err := h.app.Frames.Get(r.Context(), pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, f.Manifest)
}

// frameMeta serves the <meta> block a page embeds to publish the frame.
func (h *handler) frameMeta(w http.ResponseWriter, r *http.Request) {
	f, err := h.app.Frames.Get(r.Context(), pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(manifest.RenderMetaTags(&f.Manifest)))
}

func (h *handler) toggleLike(w http.ResponseWriter, r *http.Request) {
	res, err := h.app.Frames.ToggleLike(r.Context(), middleware.GetUserID(r.Context()), pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *handler) listVersions(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Frames.ListVersions(r.Context(), pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *handler) createVersion(w http.ResponseWriter, r *http.Request) {
	m, err := readManifest(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	v, err := h.app.Frames.CreateVersion(r.Context(), middleware.GetUserID(r.Context()), pathVar(r, "id"), m)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, v)
}

func (h *handler) setCurrentVersion(w http.ResponseWriter, r *http.Request) {
	v, err := h.app.Frames.SetCurrentVersion(r.Context(), middleware.GetUserID(r.Context()),
		pathVar(r, "id"), pathVar(r, "versionID"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

func (h *handler) trackEvent(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		EventType   analytics.EventType `json:"event_type"`
		Country     string              `json:"country"`
		Coordinates *[2]float64         `json:"coordinates"`
		Metadata    map[string]any      `json:"metadata"`
	}
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	e, err := h.app.Analytics.Track(r.Context(), analytics.Event{
		FrameID:     pathVar(r, "id"),
		Type:        payload.EventType,
		UserAgent:   r.UserAgent(),
		IPAddress:   remoteIP(r),
		Country:     payload.Country,
		Coordinates: payload.Coordinates,
		Metadata:    payload.Metadata,
	})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, e)
}

func (h *handler) frameAnalytics(w http.ResponseWriter, r *http.Request) {
	days, err := httputil.QueryInt(r, "days", 0)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	summary, err := h.app.Analytics.Summary(r.Context(), pathVar(r, "id"), days)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func (h *handler) frameEmbed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts, err := embed.ParseOptions(q.Get("width"), q.Get("height"), q.Get("theme"), q.Get("title"), q.Get("stats"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	code, err := h.app.Embed.Generate(r.Context(), pathVar(r, "id"), opts)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, code)
}

func (h *handler) scheduleFrame(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PublishAt time.Time         `json:"publish_at"`
		Platform  schedule.Platform `json:"platform"`
		AutoPost  bool              `json:"auto_post"`
	}
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	sc, err := h.app.Schedules.Schedule(r.Context(), middleware.GetUserID(r.Context()), pathVar(r, "id"),
		payload.PublishAt, payload.Platform, payload.AutoPost)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sc)
}

func (h *handler) userFrames(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Frames.ListByUser(r.Context(), pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// buildFromEditor converts builder form state to a manifest and reports
// whether the result would be accepted.
func (h *handler) buildFromEditor(w http.ResponseWriter, r *http.Request) {
	var form manifest.Editor
	if err := httputil.DecodeJSON(r, &form); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	m, err := form.Build()
	if err != nil {
		httputil.WriteError(w, r, errors.InvalidFormat("buttons", err.Error()))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"manifest":   m,
		"validation": h.app.Frames.Validate(m),
	})
}

// frameEditor returns the stored manifest as builder form state.
func (h *handler) frameEditor(w http.ResponseWriter, r *http.Request) {
	f, err := h.app.Frames.Get(r.Context(), pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, manifest.EditorFrom(&f.Manifest))
}
