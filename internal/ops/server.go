// Package ops serves the per-process operational endpoints: health, build
// info, and prometheus metrics.
package ops

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(appName, version string) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"app":     appName,
			"version": version,
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Serve runs the ops server in the background; it is best-effort and never
// takes the process down.
func Serve(addr, appName, version string) {
	go func() {
		slog.Info("Ops server listening", "addr", addr)
		if err := http.ListenAndServe(addr, NewRouter(appName, version)); err != nil {
			slog.Error("ops server stopped", "error", err)
		}
	}()
}
