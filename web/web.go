package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nekomirai/Tik_Record/live"
	"github.com/nekomirai/Tik_Record/live/videoworker"
	"github.com/nekomirai/Tik_Record/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Server exposes the watcher and session state over HTTP: a JSON status
// page, Prometheus metrics and the pprof handlers.
type Server struct {
	Watcher  *live.Watcher
	Registry *videoworker.Registry

	srv     *http.Server
	prom    *prometheus.Registry
	started time.Time
}

func NewServer(watcher *live.Watcher, registry *videoworker.Registry) *Server {
	s := &Server{
		Watcher:  watcher,
		Registry: registry,
		prom:     prometheus.NewRegistry(),
		started:  time.Now(),
	}
	s.registerMetrics()
	return s
}

// registerMetrics wires the collectors straight to the live counters, every
// scrape reads the current values without a refresh pass.
func (s *Server) registerMetrics() {
	s.prom.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "tikrec_active_sessions",
			Help: "Number of recording sessions currently running",
		}, func() float64 { return float64(s.Registry.ActiveCount()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "tikrec_recordings_total",
			Help: "Recordings finished since start",
		}, func() float64 {
			recordings, _, _ := videoworker.Stats.Snapshot()
			return float64(recordings)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "tikrec_recorded_bytes_total",
			Help: "Bytes kept from finished recordings",
		}, func() float64 {
			_, bytes, _ := videoworker.Stats.Snapshot()
			return float64(bytes)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "tikrec_recorded_seconds_total",
			Help: "Seconds of live video captured",
		}, func() float64 {
			_, _, seconds := videoworker.Stats.Snapshot()
			return float64(seconds)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "tikrec_resolve_errors_total",
			Help: "Live checks that failed for a reason other than offline",
		}, func() float64 { return float64(s.Watcher.ResolveErrors()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "tikrec_check_cycles_total",
			Help: "Watchlist polling cycles completed",
		}, func() float64 { return float64(s.Watcher.Cycles()) }),
	)
}

type statsBlock struct {
	Recordings int64 `json:"recordings"`
	Bytes      int64 `json:"bytes"`
	Seconds    int64 `json:"seconds"`
}

type statusPage struct {
	Uptime   string                      `json:"uptime"`
	Watching []*live.HandleStatus        `json:"watching"`
	Sessions []videoworker.SessionStatus `json:"sessions"`
	Stats    statsBlock                  `json:"stats"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sessions := make([]videoworker.SessionStatus, 0)
	for _, sess := range s.Registry.Sessions() {
		sessions = append(sessions, sess.Status())
	}
	recordings, bytes, seconds := videoworker.Stats.Snapshot()
	page := statusPage{
		Uptime:   utils.FormatDuration(time.Since(s.started)),
		Watching: s.Watcher.Statuses(),
		Sessions: sessions,
		Stats:    statsBlock{Recordings: recordings, Bytes: bytes, Seconds: seconds},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(page); err != nil {
		log.WithError(err).Warn("status encode failed")
	}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Get("/status", s.handleStatus)
	r.Get("/metrics", promhttp.HandlerFor(s.prom, promhttp.HandlerOpts{}).ServeHTTP)
	r.Route("/debug/pprof", func(r chi.Router) {
		r.Get("/", pprof.Index)
		r.Get("/cmdline", pprof.Cmdline)
		r.Get("/profile", pprof.Profile)
		r.Get("/symbol", pprof.Symbol)
		r.Get("/trace", pprof.Trace)
		r.Get("/{name}", func(w http.ResponseWriter, req *http.Request) {
			pprof.Handler(chi.URLParam(req, "name")).ServeHTTP(w, req)
		})
	})
	return r
}

// Start serves on addr in the background. An empty addr disables the
// interface entirely.
func (s *Server) Start(addr string) {
	if addr == "" {
		return
	}
	s.srv = &http.Server{Addr: addr, Handler: s.router()}
	go func() {
		log.Infof("Web interface listening on %s", addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("web server failed")
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) {
	if s.srv == nil {
		return
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("web server shutdown")
	}
}
