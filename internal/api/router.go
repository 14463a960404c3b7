package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/arborvote/arborvote/internal/api/handlers"
	mw "github.com/arborvote/arborvote/internal/api/middleware"
	"github.com/arborvote/arborvote/internal/arbitration"
	"github.com/arborvote/arborvote/internal/buildconfig"
	"github.com/arborvote/arborvote/internal/config"
	"github.com/arborvote/arborvote/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Options tune the HTTP surface. Zero values fall back to config.
type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
	// SignatureMaxSkew bounds the age of a signed request.
	SignatureMaxSkew time.Duration
	Health           map[string]HealthCheck
	// Court exposes the in-process arbitrator under /v1/court when set.
	Court *arbitration.Court
}

// App holds the router and background services for lifecycle management.
type App struct {
	Router    *chi.Mux
	Keeper    *service.KeeperService
	Metrics   *mw.Metrics
	av        *service.ArborVote
	health    map[string]HealthCheck
	startTime time.Time
	stop      chan struct{}
}

func NewApp(av *service.ArborVote, logger *zap.Logger, opts Options) *App {
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = config.RateLimitRPS()
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = config.RateLimitBurst()
	}
	if opts.SignatureMaxSkew <= 0 {
		opts.SignatureMaxSkew = config.SignatureMaxSkew()
	}
	auth := mw.NewSignatureAuth(opts.SignatureMaxSkew).Middleware

	keeper := service.NewKeeperService(av.Phases, logger)

	debateHandler := handlers.NewDebateHandler(av.Phases, av.Tally)
	memberHandler := handlers.NewMemberHandler(av.Members)
	argumentHandler := handlers.NewArgumentHandler(av.Arguments)
	disputeHandler := handlers.NewDisputeHandler(av.Disputes)
	marketHandler := handlers.NewMarketHandler(av.Markets)
	journalHandler := handlers.NewJournalHandler(av)

	r := chi.NewRouter()
	app := &App{
		Router:    r,
		Keeper:    keeper,
		Metrics:   &mw.Metrics{},
		av:        av,
		health:    opts.Health,
		startTime: time.Now(),
		stop:      make(chan struct{}),
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.Metrics.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst, app.stop))

	r.Get("/health", app.healthHandler())
	r.Get("/metrics", app.metricsHandler())
	r.Get("/version", versionHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/journal", journalHandler.List)

		if opts.Court != nil {
			courtHandler := handlers.NewCourtHandler(opts.Court)
			r.Route("/court/cases", func(r chi.Router) {
				r.Get("/", courtHandler.Pending)
				r.With(auth).Post("/{caseID}/rule", courtHandler.Rule)
			})
		}

		r.Route("/debates", func(r chi.Router) {
			r.With(auth).Post("/", debateHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", debateHandler.Get)
				r.Post("/advance", debateHandler.Advance)
				r.Get("/result", debateHandler.Result)
				r.With(auth).Post("/join", memberHandler.Join)
				r.Get("/members/{address}", memberHandler.Get)
				r.Get("/leaves", argumentHandler.Leaves)
				r.Get("/disputed", argumentHandler.Disputed)

				r.Route("/arguments", func(r chi.Router) {
					r.Get("/", argumentHandler.List)
					r.With(auth).Post("/", argumentHandler.Create)

					r.Route("/{argID}", func(r chi.Router) {
						r.Get("/", argumentHandler.Get)
						r.Get("/dispute", disputeHandler.Get)
						r.Get("/shares/{address}", marketHandler.Shares)

						r.Group(func(r chi.Router) {
							r.Use(auth)
							r.Post("/challenge", disputeHandler.Challenge)
							r.Post("/ruling", disputeHandler.Ruling)
							r.Post("/buy", marketHandler.Buy)
							r.Post("/sell", marketHandler.Sell)
						})
					})
				})
			})
		})
	})

	return app
}

// Close stops the rate limiter's cleanup loop.
func (app *App) Close() {
	select {
	case <-app.stop:
	default:
		close(app.stop)
	}
}

func (app *App) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		checks := map[string]string{}

		if !app.av.Initialized() {
			status = http.StatusServiceUnavailable
			checks["arborvote"] = "not initialized"
		} else {
			checks["arborvote"] = "ok"
		}
		for name, check := range app.health {
			if err := check(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				checks[name] = err.Error()
				continue
			}
			checks[name] = "ok"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "error"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": state, "checks": checks})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"goroutines":     runtime.NumGoroutine(),
			"debate_count":   app.av.Phases.DebateCount(r.Context()),
			"memory": map[string]any{
				"alloc_mb": float64(memStats.Alloc) / 1024 / 1024,
				"sys_mb":   float64(memStats.Sys) / 1024 / 1024,
				"num_gc":   memStats.NumGC,
			},
		}
		for k, v := range app.Metrics.Snapshot() {
			response[k] = v
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

func versionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(buildconfig.VersionInfo())
}
