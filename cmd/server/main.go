package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Tyrowin/gossipgrid/internal/config"
	"github.com/Tyrowin/gossipgrid/internal/logging"
	"github.com/Tyrowin/gossipgrid/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the relay, serves until SIGINT or SIGTERM and then drains the
// HTTP server and the hub.
func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		return fmt.Errorf("logger error: %w", err)
	}
	log.Info("Starting GossipGrid relay...")

	srv := server.New(cfg, log)
	srv.StartHub()

	httpServer := server.CreateServer(cfg.Port, srv.SetupRoutes())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		if err := server.StartServer(httpServer, log); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		_ = srv.Shutdown(cfg.ShutdownTimeout)
		return err
	}

	shutdownErr := server.ShutdownServer(httpServer, cfg.ShutdownTimeout, log)
	if err := srv.Shutdown(cfg.ShutdownTimeout); err != nil {
		shutdownErr = errors.Join(shutdownErr, fmt.Errorf("hub shutdown: %w", err))
	}
	if shutdownErr != nil {
		return shutdownErr
	}

	log.Info("Relay stopped cleanly")
	return nil
}
