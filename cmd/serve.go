package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/people-analytics/internal/aggregate"
	"github.com/sells-group/people-analytics/internal/analysis"
	"github.com/sells-group/people-analytics/internal/config"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve scores, rankings and trends as a read-only JSON API",
	Long: `Load the evaluation tree once and serve it over HTTP:

  GET /health
  GET /years
  GET /people
  GET /people/{person}/history
  GET /people/{person}/years/{year}
  GET /people/{person}/years/{year}/gaps
  GET /people/{person}/years/{year}/highlights
  GET /rankings/{year}
  GET /criteria?year=2022&year=2023&common=true`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initAnalysis(ctx, cfg, !noProgress)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env.Analyzer, cfg.Server),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.Int("people", len(env.Engine.Dataset().People())))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the API routes over a loaded analyzer.
func newRouter(a *analysis.Analyzer, sc config.ServerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: sc.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if sc.RequestsPerSecond > 0 {
		burst := max(int(sc.RequestsPerSecond), 1)
		r.Use(rateLimit(rate.NewLimiter(rate.Limit(sc.RequestsPerSecond), burst)))
	}

	e := a.Engine()
	ds := e.Dataset()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/years", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ds.Years())
	})

	r.Get("/people", func(w http.ResponseWriter, r *http.Request) {
		type person struct {
			Person string   `json:"person"`
			Years  []string `json:"years"`
		}
		out := []person{}
		for _, p := range ds.People() {
			out = append(out, person{Person: p, Years: ds.PersonYears(p)})
		}
		writeJSON(w, http.StatusOK, out)
	})

	r.Route("/people/{person}", func(r chi.Router) {
		r.Get("/history", func(w http.ResponseWriter, r *http.Request) {
			h, err := a.History(urlParam(r, "person"))
			respond(w, h, err)
		})
		r.Route("/years/{year}", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				out, err := scorePersonYear(e, urlParam(r, "person"), urlParam(r, "year"))
				respond(w, out, err)
			})
			r.Get("/gaps", func(w http.ResponseWriter, r *http.Request) {
				gs, err := a.Gaps(urlParam(r, "person"), urlParam(r, "year"))
				respond(w, gs, err)
			})
			r.Get("/highlights", func(w http.ResponseWriter, r *http.Request) {
				h, err := a.Highlights(urlParam(r, "person"), urlParam(r, "year"))
				respond(w, h, err)
			})
		})
	})

	r.Get("/rankings/{year}", func(w http.ResponseWriter, r *http.Request) {
		year := urlParam(r, "year")
		rs := e.RankYear(year)
		if len(rs) == 0 {
			respond(w, nil, eris.Wrapf(aggregate.ErrNotFound, "rankings %s", year))
			return
		}
		writeJSON(w, http.StatusOK, rs)
	})

	r.Get("/criteria", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		sets := criteriaSets(a, q["year"], q.Get("common") == "true")
		out := make(map[string]map[string][]string, len(sets))
		for k, s := range sets {
			out[k] = s.Sorted()
		}
		writeJSON(w, http.StatusOK, out)
	})

	return r
}

// rateLimit rejects requests over the limiter's budget with 429.
func rateLimit(lim *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.Allow() {
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// urlParam returns a decoded route parameter; names may carry accents.
func urlParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func respond(w http.ResponseWriter, v any, err error) {
	switch {
	case errors.Is(err, aggregate.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case err != nil:
		zap.L().Error("serve: request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	default:
		writeJSON(w, http.StatusOK, v)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
