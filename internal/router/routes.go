package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	v1 "github.com/fetcharr/fetcharr/api/v1"
	"github.com/fetcharr/fetcharr/internal/auth"
)

// Pinger reports whether the download client is reachable.
type Pinger interface {
	TestConnection(ctx context.Context) error
}

// New sets up the application routes and required middleware.
func New(logger *slog.Logger, handler *v1.Handler, client Pinger, apiToken string) *mux.Router {

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Error("write healthz response", "err", err)
		}
	}).Methods("GET")

	r.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := client.TestConnection(ctx); err != nil {
			logger.Warn("readiness check failed", "err", err)
			http.Error(w, "download client unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ready")); err != nil {
			logger.Error("write readyz response", "err", err)
		}
	}).Methods("GET")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	r.Use(v1.RequestID)
	r.Use(handler.Log)
	r.Use(auth.Middleware(apiToken))

	api := r.PathPrefix("/v1").Subrouter()

	// GETs
	get := api.Methods("GET").Subrouter()
	get.HandleFunc("/search", handler.Search)
	get.HandleFunc("/downloads", handler.GetDownloads)
	get.HandleFunc("/downloads/{id}", handler.GetDownload)
	get.HandleFunc("/events", handler.Events)

	// POSTs
	post := api.Methods("POST").Subrouter()
	post.HandleFunc("/downloads", handler.StartDownload)
	post.Use(v1.MiddlewareStartValidation)

	// PATCHes
	patch := api.Methods("PATCH").Subrouter()
	patch.HandleFunc("/downloads/{id}", handler.UpdateDownload)
	patch.Use(v1.MiddlewareActionValidation)

	// DELETEs
	del := api.Methods("DELETE").Subrouter()
	del.HandleFunc("/downloads/{id}", handler.CancelDownload)

	return r
}
