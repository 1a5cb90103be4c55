package httpapi

import (
	"net/http"

	"github.com/R3E-Network/framestore/internal/app/domain/template"
	"github.com/R3E-Network/framestore/internal/app/services/templates"
	"github.com/R3E-Network/framestore/internal/httputil"
	"github.com/R3E-Network/framestore/internal/middleware"
)

func (h *handler) signIn(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		WalletAddress string `json:"wallet_address"`
	}
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	session, err := h.app.Accounts.SignIn(r.Context(), payload.WalletAddress)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.app.Accounts.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	featured, err := httputil.QueryBool(r, "featured", false)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	list, err := h.app.Templates.List(r.Context(), template.Filter{
		Category:     r.URL.Query().Get("category"),
		FeaturedOnly: featured,
	})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *handler) createTemplate(w http.ResponseWriter, r *http.Request) {
	var in templates.CreateInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	t, err := h.app.Templates.Create(r.Context(), middleware.GetUserID(r.Context()), in)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, t)
}

func (h *handler) getTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.app.Templates.Get(r.Context(), middleware.GetUserID(r.Context()), pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *handler) useTemplate(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	m, err := h.app.Templates.Use(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"template_id": id,
		"manifest":    m,
	})
}

func (h *handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	unread, err := httputil.QueryBool(r, "unread", false)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	list, err := h.app.Notifications.List(r.Context(), middleware.GetUserID(r.Context()), unread)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.app.Notifications.MarkRead(r.Context(), middleware.GetUserID(r.Context()), pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, n)
}

func (h *handler) listSchedules(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Schedules.ListByUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *handler) cancelSchedule(w http.ResponseWriter, r *http.Request) {
	sc, err := h.app.Schedules.Cancel(r.Context(), middleware.GetUserID(r.Context()), pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sc)
}
