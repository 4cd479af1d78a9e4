package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IvanBrykalov/keepalive/keepalive"
)

// cacheView is the /debug/cache payload.
type cacheView struct {
	Max     int                   `json:"max"`
	Len     int                   `json:"len"`
	Pending bool                  `json:"pending"`
	Entries []keepalive.EntryInfo `json:"entries"`
}

func newRouter(g prometheus.Gatherer, b *keepalive.Boundary) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	r.Get("/debug/cache", func(w http.ResponseWriter, _ *http.Request) {
		entries := b.Snapshot()
		view := cacheView{
			Max:     b.Max(),
			Len:     len(entries),
			Pending: b.Pending(),
			Entries: entries,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	})
	return r
}
