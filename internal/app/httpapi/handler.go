// Package httpapi exposes the FrameStore services over a JSON REST API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	app "github.com/R3E-Network/framestore/internal/app"
	"github.com/R3E-Network/framestore/internal/app/metrics"
	"github.com/R3E-Network/framestore/internal/httputil"
	"github.com/R3E-Network/framestore/internal/middleware"
	"github.com/R3E-Network/framestore/pkg/logger"
)

// Options tune the HTTP surface. The zero value serves every origin without
// rate limiting or auditing.
type Options struct {
	Logger         *logger.Logger
	AllowedOrigins []string
	// RateLimiter is applied after authentication when non-nil.
	RateLimiter *middleware.RateLimiter
	// Audit records mutating requests when non-nil.
	Audit *AuditLog
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
	log *logger.Logger
}

// NewHandler returns the routed API wrapped in the tracing and CORS layers.
func NewHandler(application *app.Application, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.NewDefault("http")
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	h := &handler{app: application, log: log}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.NewAuthMiddleware(application.Tokens, log).Handler)
	if opts.RateLimiter != nil {
		r.Use(opts.RateLimiter.Handler)
	}
	if opts.Audit != nil {
		r.Use(opts.Audit.Middleware)
	}

	h.routes(r)

	var out http.Handler = r
	out = middleware.NewCORSMiddleware(opts.AllowedOrigins).Handler(out)
	out = middleware.NewTracingMiddleware(log).Handler(out)
	return out
}

func (h *handler) routes(r *mux.Router) {
	authed := func(fn http.HandlerFunc) http.Handler {
		return middleware.RequireUserID(fn)
	}

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/validate", h.validate).Methods(http.MethodPost)
	r.HandleFunc("/editor/build", h.buildFromEditor).Methods(http.MethodPost)
	r.HandleFunc("/auth/wallet", h.signIn).Methods(http.MethodPost)
	r.Handle("/me", authed(h.me)).Methods(http.MethodGet)

	r.HandleFunc("/frames", h.listFrames).Methods(http.MethodGet)
	r.Handle("/frames", authed(h.createFrame)).Methods(http.MethodPost)
	r.HandleFunc("/frames/{id}", h.getFrame).Methods(http.MethodGet)
	r.Handle("/frames/{id}", authed(h.updateFrame)).Methods(http.MethodPut)
	r.Handle("/frames/{id}", authed(h.deleteFrame)).Methods(http.MethodDelete)
	r.HandleFunc("/frames/{id}/manifest", h.frameManifest).Methods(http.MethodGet)
	r.HandleFunc("/frames/{id}/meta", h.frameMeta).Methods(http.MethodGet)
	r.HandleFunc("/frames/{id}/editor", h.frameEditor).Methods(http.MethodGet)
	r.Handle("/frames/{id}/like", authed(h.toggleLike)).Methods(http.MethodPost)
	r.HandleFunc("/frames/{id}/versions", h.listVersions).Methods(http.MethodGet)
	r.Handle("/frames/{id}/versions", authed(h.createVersion)).Methods(http.MethodPost)
	r.Handle("/frames/{id}/versions/{versionID}/current", authed(h.setCurrentVersion)).Methods(http.MethodPost)
	r.HandleFunc("/frames/{id}/events", h.trackEvent).Methods(http.MethodPost)
	r.HandleFunc("/frames/{id}/analytics", h.frameAnalytics).Methods(http.MethodGet)
	r.HandleFunc("/frames/{id}/embed", h.frameEmbed).Methods(http.MethodGet)
	r.Handle("/frames/{id}/schedule", authed(h.scheduleFrame)).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}/frames", h.userFrames).Methods(http.MethodGet)

	r.HandleFunc("/templates", h.listTemplates).Methods(http.MethodGet)
	r.Handle("/templates", authed(h.createTemplate)).Methods(http.MethodPost)
	r.HandleFunc("/templates/{id}", h.getTemplate).Methods(http.MethodGet)
	r.HandleFunc("/templates/{id}/use", h.useTemplate).Methods(http.MethodPost)

	r.Handle("/notifications", authed(h.listNotifications)).Methods(http.MethodGet)
	r.Handle("/notifications/{id}/read", authed(h.markNotificationRead)).Methods(http.MethodPost)

	r.Handle("/schedules", authed(h.listSchedules)).Methods(http.MethodGet)
	r.Handle("/schedules/{id}/cancel", authed(h.cancelSchedule)).Methods(http.MethodPost)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Ping(r.Context()); err != nil {
		h.log.ForContext(r.Context()).WithError(err).Warn("health check failed")
		httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteErrorResponse(w, r, http.StatusNotFound, "not_found", "route not found", nil)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteErrorResponse(w, r, http.StatusMethodNotAllowed, "method_not_allowed",
		r.Method+" is not supported on this route", nil)
}

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}
