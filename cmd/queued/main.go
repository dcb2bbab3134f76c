// Command queued is the scheduler daemon: it owns the Queue, its
// connection pools, and the HTTP/WebSocket API that fronts them. There
// is no separate worker process — the scheduler drives every task to
// completion in-process.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maumercado/nntp-queue/internal/api"
	"github.com/maumercado/nntp-queue/internal/archive"
	"github.com/maumercado/nntp-queue/internal/config"
	"github.com/maumercado/nntp-queue/internal/events"
	"github.com/maumercado/nntp-queue/internal/logger"
	"github.com/maumercado/nntp-queue/internal/queue"
	"github.com/maumercado/nntp-queue/internal/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, os.Getenv("ENV") != "production")

	log := logger.Get()
	log.Info().Msg("Starting scheduler...")

	ar, err := archive.NewRedisArchive(&cfg.Redis, "nntpqueue:tasks")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create task archive")
	}
	defer func() {
		if err := ar.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close task archive")
		}
	}()

	publisher := events.NewRedisPubSub(ar.Client())
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close event publisher")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q, err := queue.New(ctx, cfg, ar, taskFactories())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create queue")
	}
	q.AddListener(events.NewQueueBridge(publisher))

	server := api.NewServer(cfg, q, publisher)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      server,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	server.Start(ctx)
	q.Start(ctx)

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down scheduler...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	server.Stop()
	q.Stop()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Scheduler stopped")
}

// taskFactories registers one archive.Factory per sample task type, so
// a persisted snapshot can be rehydrated into live task.Task values on
// startup.
func taskFactories() map[string]archive.Factory {
	return map[string]archive.Factory{
		"article-download": func(rec archive.Record) (task.Task, error) {
			return task.ArticleTaskFromPayload(rec.ID, rec.Payload)
		},
		"post": func(rec archive.Record) (task.Task, error) {
			return task.PostTaskFromPayload(rec.ID, rec.Payload)
		},
		"header-fetch": func(rec archive.Record) (task.Task, error) {
			return task.HeaderFetchTaskFromPayload(rec.ID, rec.Payload)
		},
	}
}
