// v0
// internal/http/router.go
package httpserver

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"salesops/recovery/internal/metrics"
	"salesops/recovery/internal/recovery"
	"salesops/recovery/internal/session"
)

// Deps bundles what the router serves.
type Deps struct {
	Engine         *recovery.Engine
	Sessions       *session.Store
	Publisher      exportPublisher
	Metrics        *metrics.Metrics
	Health         *HealthState
	Logger         *slog.Logger
	AllowedOrigins []string
	// Now is the export clock; nil means time.Now.
	Now func() time.Time
}

// NewRouter wires every route of the recovery service and wraps the result
// in the CORS and panic-recovery middleware.
func NewRouter(d Deps) http.Handler {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	a := &api{
		engine:    d.Engine,
		sessions:  d.Sessions,
		publisher: d.Publisher,
		metrics:   d.Metrics,
		log:       d.Logger.With(slog.String("component", "http_api")),
		now:       now,
	}

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := mux.NewRouter()
	r.Use(WrapWithLogging(d.Logger, d.Metrics))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Handle("/health", healthLiveHandler()).Methods(http.MethodGet)
	r.Handle("/health/live", healthLiveHandler()).Methods(http.MethodGet)
	r.Handle("/health/ready", healthReadyHandler(d.Health)).Methods(http.MethodGet)
	r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/regions", a.regions).Methods(http.MethodGet)
	v1.HandleFunc("/regions/{region}/problems", a.problems).Methods(http.MethodGet)
	v1.HandleFunc("/calculate", a.calculate).Methods(http.MethodPost)
	v1.HandleFunc("/sessions", a.createSession).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{id}", a.getSession).Methods(http.MethodGet)
	v1.HandleFunc("/sessions/{id}", a.deleteSession).Methods(http.MethodDelete)
	v1.HandleFunc("/sessions/{id}/region", a.selectRegion).Methods(http.MethodPut)
	v1.HandleFunc("/sessions/{id}/rates", a.setRate).Methods(http.MethodPut)
	v1.HandleFunc("/sessions/{id}/summary", a.summary).Methods(http.MethodGet)
	v1.HandleFunc("/sessions/{id}/export", a.export).Methods(http.MethodGet)
	v1.HandleFunc("/sessions/{id}/live", a.live(newUpgrader(origins))).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
		handlers.ExposedHeaders([]string{"Content-Disposition", "Location"}),
	)
	recoverPanics := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{log: d.Logger}),
		handlers.PrintRecoveryStack(false),
	)
	return recoverPanics(cors(r))
}
