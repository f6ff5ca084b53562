package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maumercado/taskqueue/internal/clock"
	"github.com/maumercado/taskqueue/internal/config"
	"github.com/maumercado/taskqueue/internal/httpapi"
	"github.com/maumercado/taskqueue/internal/logger"
	"github.com/maumercado/taskqueue/internal/queueservice"
	"github.com/maumercado/taskqueue/internal/store"
	"github.com/maumercado/taskqueue/internal/sweeper"
	"github.com/maumercado/taskqueue/internal/taskservice"
	"github.com/maumercado/taskqueue/internal/workerservice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, os.Getenv("ENV") != "production")
	log := logger.Get()
	log.Info().Msg("Starting API server...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connectCtx, connectCancel := context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout)
	defer connectCancel()

	st, err := store.Connect(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to close MongoDB connection")
		}
	}()

	if err := st.EnsureIndexes(connectCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure MongoDB indexes")
	}

	clk := clock.System{}
	queues := queueservice.New(st, clk)
	workers := workerservice.New(st, clk)
	tasks := taskservice.New(st, workers, clk)

	sw := sweeper.New(st, clk, cfg.Sweeper.PollInterval)
	sw.Start(ctx)
	defer sw.Stop()

	server := httpapi.NewServer(cfg, queues, tasks, workers)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	sw.Stop()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Server stopped")
}
