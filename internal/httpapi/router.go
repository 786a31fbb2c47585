// Package httpapi exposes the rewind queue, status board and result cache
// over JSON.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/pable/rift-rewind/internal/jobs"
	"github.com/pable/rift-rewind/internal/metrics"
	"github.com/pable/rift-rewind/internal/model"
	"github.com/pable/rift-rewind/internal/pipeline"
	"github.com/pable/rift-rewind/internal/store"
)

// Invalidator forgets everything stored for a player.
type Invalidator interface {
	Invalidate(ctx context.Context, id model.Identity) (bool, error)
}

type Deps struct {
	Queue       *jobs.Queue
	Status      *pipeline.StatusBoard
	Results     *store.ResultCache
	Invalidator Invalidator
}

func NewRouter(d Deps) *chi.Mux {
	h := &handlers{d: d}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(accessLog)
		r.Get("/health", h.health)
		r.Get("/regions", h.regions)

		r.Post("/rewind", h.submit)
		r.Get("/rewind/{hash}", h.result)
		r.Get("/rewind/{hash}/status", h.status)
		r.Get("/rewind/{hash}/narrative/{slot}", h.narrative)

		r.Post("/cache/check", h.cacheCheck)
		r.Post("/cache/invalidate", h.cacheInvalidate)
	})
	return r
}

// accessLog writes one line per request keyed by the matched route pattern.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		ev := log.Info()
		if status >= 500 {
			ev = log.Error()
		}
		ev.Str("request_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http request")
	})
}
