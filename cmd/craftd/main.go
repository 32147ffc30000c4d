// craftd is the lifeasacraft chat backend: per-project websocket
// conversations with AI-generated assistant replies.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	crafthttp "github.com/lifeasacraft/backend/internal/adapter/http"
	"github.com/lifeasacraft/backend/internal/adapter/litellm"
	craftotel "github.com/lifeasacraft/backend/internal/adapter/otel"
	"github.com/lifeasacraft/backend/internal/adapter/postgres"
	"github.com/lifeasacraft/backend/internal/adapter/ristretto"
	"github.com/lifeasacraft/backend/internal/adapter/ws"
	"github.com/lifeasacraft/backend/internal/config"
	"github.com/lifeasacraft/backend/internal/logger"
	"github.com/lifeasacraft/backend/internal/resilience"
	"github.com/lifeasacraft/backend/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"chat_model", cfg.Chat.Model,
	)

	ctx := context.Background()

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	projectCache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer projectCache.Close()

	metrics, err := craftotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	llm := litellm.NewClient(cfg.LiteLLM.URL, cfg.LiteLLM.MasterKey)
	llm.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	// --- Services ---

	store := postgres.NewStore(pool)
	hub := ws.NewHub()

	chatSvc := service.NewChatService(store, llm, hub, cfg.Chat)
	chatSvc.SetCache(projectCache, cfg.Cache.ProjectTTL)
	chatSvc.SetMetrics(metrics)

	projectSvc := service.NewProjectService(store)

	chatHandler := ws.NewHandler(hub, chatSvc, metrics)
	handlers := &crafthttp.Handlers{Projects: projectSvc}

	// --- HTTP ---

	r := chi.NewRouter()
	r.Use(crafthttp.CORS(cfg.Server.CORSOrigin))
	r.Use(crafthttp.RequestID)
	r.Use(crafthttp.Logger)
	r.Use(craftotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", healthHandler(pool.Ping, llm))
	r.Get("/chat/{id}/ws", chatHandler.HandleChat)
	crafthttp.MountRoutes(r, handlers)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// --- Lifecycle ---

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// healthHandler reports the status of the service and its collaborators.
func healthHandler(pingDB func(context.Context) error, llm *litellm.Client) http.HandlerFunc {
	type healthStatus struct {
		Status   string `json:"status"`
		Postgres string `json:"postgres"`
		LiteLLM  string `json:"litellm"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		status := healthStatus{Status: "ok", Postgres: "ok", LiteLLM: "ok"}

		if err := pingDB(r.Context()); err != nil {
			status.Status = "degraded"
			status.Postgres = "unreachable"
		}
		if ok, _ := llm.Health(r.Context()); !ok {
			status.Status = "degraded"
			status.LiteLLM = "unreachable"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}
