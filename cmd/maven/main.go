// Maven - Slack coaching assistant
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/maven/internal/api"
	"github.com/ashureev/maven/internal/coach"
	"github.com/ashureev/maven/internal/config"
	"github.com/ashureev/maven/internal/identity"
	"github.com/ashureev/maven/internal/llm"
	"github.com/ashureev/maven/internal/prompt"
	"github.com/ashureev/maven/internal/slackhost"
	"github.com/ashureev/maven/internal/store"
	"github.com/ashureev/maven/internal/topic"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		slog.Error("Maven stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Maven stopped successfully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	slog.Info("Starting Maven", "port", cfg.Port, "slack_mode", cfg.Slack.Mode, "llm_provider", cfg.LLM.Provider)

	topics, err := topic.LoadFile(cfg.TopicsPath)
	if err != nil {
		return err
	}
	slog.Info("Topic catalog loaded", "topics", topics.Len())

	sessions, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := sessions.Close(); closeErr != nil {
			slog.Error("Failed to close session store", "error", closeErr)
		}
	}()
	if err := sessions.Ping(context.Background()); err != nil {
		return err
	}
	if cfg.DBPath == "" {
		slog.Info("Session store ready", "backend", "memory")
	} else {
		slog.Info("Session store ready", "backend", "sqlite", "path", cfg.DBPath)
	}

	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return err
	}
	generator := llm.NewGenerator(client, cfg.Generation, logger)

	slackClient := slackhost.NewClient(cfg.Slack.BotToken, cfg.Slack.AppToken, cfg.Slack.APIURL)
	limiter := coach.NewLimiter(cfg.Generation.RatePerMinute)

	svc := coach.New(coach.Deps{
		Topics:    topics,
		Composer:  prompt.NewComposer(prompt.DefaultPersona()),
		Generator: generator,
		Sessions:  sessions,
		Host:      slackClient,
		Names:     identity.NewDirectory(slackClient),
		Limiter:   limiter,
		Logger:    logger,
	}, coach.Commands{Coach: cfg.Commands.Coach, Guide: cfg.Commands.Guide})

	dispatcher := coach.NewDispatcher(cfg.Generation.Timeout*time.Duration(cfg.Generation.Attempts)+30*time.Second, logger)
	router := api.NewRouter(svc, dispatcher, cfg.Commands, logger)
	handler := api.NewHandler(router, sessions)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	if cfg.SocketMode() {
		r.Get("/health", handler.Health)
	} else {
		handler.Routes(r, cfg.Slack.SigningSecret)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if dErr := dispatcher.Shutdown(shutdownCtx); dErr != nil {
			slog.Warn("In-flight events abandoned", "error", dErr)
		}
		return err
	})

	if cfg.SocketMode() {
		socket := slackhost.NewSocketClient(slackClient, router, logger)
		g.Go(func() error {
			return socket.Run(gctx)
		})
	}

	g.Go(func() error {
		store.RunSweeper(gctx, sessions, cfg.SessionTTL, store.DefaultSweepInterval, func(now time.Time) {
			if n := limiter.Prune(now.Add(-coach.IdleAfter)); n > 0 {
				logger.Debug("Pruned idle rate limit buckets", "count", n)
			}
		})
		return nil
	})

	return g.Wait()
}
