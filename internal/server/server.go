// Package server exposes a local HTTP surface for inspecting stored
// telemetry and toggling the upload state.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/and161185/glean-metrics/internal/config"
	"github.com/and161185/glean-metrics/internal/errs"
	"github.com/and161185/glean-metrics/internal/glean"
	"github.com/and161185/glean-metrics/internal/server/middleware"
	"github.com/and161185/glean-metrics/metrics"
	"github.com/and161185/glean-metrics/model"
	"github.com/and161185/glean-metrics/storage"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// uncategorized stands in for an empty category in record URLs.
const uncategorized = "_"

const defaultPing = "metrics"

// Storage is what the server needs from the storage backend.
type Storage interface {
	storage.Storage
	StoreNames(ctx context.Context) ([]string, error)
}

// State is the telemetry state the server reports on and controls.
type State interface {
	model.UploadState
	ApplicationID() string
	ApplicationVersion() string
	ApplicationBuildID() string
	SetUploadEnabled(ctx context.Context, enabled bool) error
	CollectPing(ctx context.Context, name string) (map[string]*model.Metric, error)
	SetExperimentActive(id, branch string, extra map[string]string)
	SetExperimentInactive(id string)
	Experiments() map[string]glean.RecordedExperiment
}

type Server struct {
	Storage  Storage
	State    State
	Registry *metrics.Registry
	Config   *config.Config
}

func NewServer(st Storage, state State, reg *metrics.Registry, cfg *config.Config) *Server {
	return &Server{Storage: st, State: state, Registry: reg, Config: cfg}
}

// Router builds the chi router with every route and middleware installed.
func (srv *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(chiMiddleware.StripSlashes)
	router.Use(middleware.LogMiddleware(srv.Config.Logger))
	router.Use(chiMiddleware.Compress(5, "application/json", "text/html"))

	router.Get("/", srv.ListMetricsHandler)
	router.Get("/upload", srv.GetUploadHandler)
	router.Post("/upload/{enabled}", srv.SetUploadHandler)
	router.Post("/record/{type}/{category}/{name}/{value}", srv.RecordHandler)
	router.Get("/ping/{name}", srv.PingSnapshotHandler)
	router.Post("/ping/{name}/collect", srv.CollectPingHandler)
	router.Get("/experiments", srv.ListExperimentsHandler)
	router.Post("/experiments/{id}/{branch}", srv.SetExperimentHandler)
	router.Delete("/experiments/{id}", srv.DeleteExperimentHandler)

	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (srv *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              srv.Config.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		srv.Config.Logger.Infow("debug server listening", "addr", srv.Config.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (srv *Server) ListMetricsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	names, err := srv.Storage.StoreNames(ctx)
	if err != nil {
		srv.Config.Logger.Errorw("failed to list stores", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("<html><body>\n")
	fmt.Fprintf(&b, "<h1>%s %s (build %s)</h1>\n",
		html.EscapeString(srv.State.ApplicationID()),
		html.EscapeString(srv.State.ApplicationVersion()),
		html.EscapeString(srv.State.ApplicationBuildID()))
	for _, name := range names {
		snapshot, err := srv.Storage.Snapshot(ctx, name, false)
		if err != nil {
			srv.Config.Logger.Errorw("failed to read store", "store", name, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		ids := make([]string, 0, len(snapshot))
		for id := range snapshot {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		fmt.Fprintf(&b, "<h2>%s</h2><ul>\n", html.EscapeString(name))
		for _, id := range ids {
			m := snapshot[id]
			fmt.Fprintf(&b, "<li>%s (%s, %s): %s</li>\n",
				html.EscapeString(id), m.Type, m.Lifetime, html.EscapeString(formatValue(m)))
		}
		b.WriteString("</ul>\n")
	}
	b.WriteString("</body></html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(b.String())); err != nil {
		srv.Config.Logger.Errorw("failed to write list response", "error", err)
	}
}

type uploadStatus struct {
	UploadEnabled bool `json:"upload_enabled"`
}

func (srv *Server) GetUploadHandler(w http.ResponseWriter, r *http.Request) {
	srv.writeJSON(w, uploadStatus{UploadEnabled: srv.State.IsUploadEnabled()})
}

func (srv *Server) SetUploadHandler(w http.ResponseWriter, r *http.Request) {
	enabled, err := strconv.ParseBool(chi.URLParam(r, "enabled"))
	if err != nil {
		http.Error(w, "invalid value", http.StatusBadRequest)
		return
	}

	if err := srv.State.SetUploadEnabled(r.Context(), enabled); err != nil {
		srv.Config.Logger.Errorw("failed to change upload state", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	srv.writeJSON(w, uploadStatus{UploadEnabled: srv.State.IsUploadEnabled()})
}

// RecordHandler records a value through a metric instrument. The response
// is 202 whether or not the recording gate let the value through.
func (srv *Server) RecordHandler(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	category := chi.URLParam(r, "category")
	if category == uncategorized {
		category = ""
	}

	q := r.URL.Query()
	lifetime, err := model.ParseLifetime(q.Get("lifetime"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	disabled := false
	if v := q.Get("disabled"); v != "" {
		disabled, err = strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "invalid disabled flag", http.StatusBadRequest)
			return
		}
	}

	cfg := model.MetadataConfig{
		Name:        chi.URLParam(r, "name"),
		Category:    category,
		SendInPings: parsePings(q.Get("pings")),
		Lifetime:    lifetime,
		Disabled:    disabled,
	}

	err = srv.Registry.RecordRaw(r.Context(), typ, cfg, chi.URLParam(r, "value"))
	if err != nil {
		if errors.Is(err, errs.ErrInvalidType) || errors.Is(err, errs.ErrInvalidValue) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		srv.Config.Logger.Errorw("failed to record metric", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (srv *Server) PingSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := srv.Storage.Snapshot(r.Context(), chi.URLParam(r, "name"), false)
	if err != nil {
		srv.Config.Logger.Errorw("failed to read store", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	srv.writeJSON(w, snapshot)
}

func (srv *Server) CollectPingHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := srv.State.CollectPing(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, errs.ErrNotInitialized) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		srv.Config.Logger.Errorw("failed to collect ping", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	srv.writeJSON(w, snapshot)
}

func (srv *Server) ListExperimentsHandler(w http.ResponseWriter, r *http.Request) {
	srv.writeJSON(w, srv.State.Experiments())
}

// SetExperimentHandler activates an experiment. An optional JSON object of
// string extras may be sent as the body.
func (srv *Server) SetExperimentHandler(w http.ResponseWriter, r *http.Request) {
	var extra map[string]string
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&extra); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
	}

	srv.State.SetExperimentActive(chi.URLParam(r, "id"), chi.URLParam(r, "branch"), extra)
	w.WriteHeader(http.StatusNoContent)
}

func (srv *Server) DeleteExperimentHandler(w http.ResponseWriter, r *http.Request) {
	srv.State.SetExperimentInactive(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (srv *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		srv.Config.Logger.Errorw("failed to write response JSON", "error", err)
	}
}

func parsePings(raw string) []string {
	if raw == "" {
		return []string{defaultPing}
	}
	var pings []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			pings = append(pings, p)
		}
	}
	return pings
}

func formatValue(m *model.Metric) string {
	switch {
	case m.Delta != nil:
		return strconv.FormatInt(*m.Delta, 10)
	case m.Text != nil:
		return *m.Text
	case m.Flag != nil:
		return strconv.FormatBool(*m.Flag)
	default:
		return ""
	}
}
