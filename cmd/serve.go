package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/schoolrail/schoolrail-cli/internal/model"
	"github.com/schoolrail/schoolrail-cli/internal/report"
	"github.com/schoolrail/schoolrail-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the rendered artifacts and a small JSON API",
	Long:  "Serves map.html and points.geojson from the output directory, plus point and run data from the store.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet},
		}))

		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Get("/api/points", func(w http.ResponseWriter, req *http.Request) {
			filter := store.PointFilter{}
			if c := req.URL.Query().Get("category"); c != "" {
				category, err := model.ParseCategory(c)
				if err != nil {
					writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
					return
				}
				filter.Category = category
			}
			points, err := st.ListPoints(req.Context(), filter)
			if err != nil {
				zap.L().Error("serve: list points", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list points"})
				return
			}
			writeJSON(w, http.StatusOK, points)
		})

		r.Get("/api/runs", func(w http.ResponseWriter, req *http.Request) {
			runs, err := st.ListRuns(req.Context(), 50)
			if err != nil {
				zap.L().Error("serve: list runs", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list runs"})
				return
			}
			writeJSON(w, http.StatusOK, runs)
		})

		r.Get("/api/status", func(w http.ResponseWriter, req *http.Request) {
			snap, err := report.NewCollector(st).Collect(req.Context(), 50)
			if err != nil {
				zap.L().Error("serve: collect status", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "collect status"})
				return
			}
			writeJSON(w, http.StatusOK, snap)
		})

		// Rendered artifacts: / serves map.html, /points.geojson the export.
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			http.ServeFile(w, req, filepath.Join(cfg.Render.OutputDir, "map.html"))
		})
		r.Get("/points.geojson", func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Content-Type", "application/geo+json")
			http.ServeFile(w, req, filepath.Join(cfg.Render.OutputDir, "points.geojson"))
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
