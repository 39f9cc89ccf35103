// Package status serves a small read-only HTTP endpoint for health checks
// and usage statistics.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fetchbot/internal/logging"
	"fetchbot/internal/store"
)

// StatsSource provides the aggregated request statistics.
type StatsSource interface {
	Stats(ctx context.Context) (store.Stats, error)
}

// SessionCounter reports the number of live conversations.
type SessionCounter interface {
	ActiveSessions() int
}

// Report is the body of GET /stats.
type Report struct {
	store.Stats
	ActiveSessions int `json:"active_sessions"`
}

// NewRouter returns the status routes.
func NewRouter(stats StatsSource, sessions SessionCounter, log logging.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP, middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		st, err := stats.Stats(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("loading stats")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, Report{Stats: st, ActiveSessions: sessions.ActiveSessions()})
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Serve runs h on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler, log logging.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("status server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
