package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erazemk/bdmotors/internal/api"
	"github.com/erazemk/bdmotors/internal/config"
	"github.com/erazemk/bdmotors/internal/db"
	"github.com/erazemk/bdmotors/internal/inventory"
	"github.com/erazemk/bdmotors/internal/store"
	"github.com/erazemk/bdmotors/internal/telemetry"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Stdout)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := setupLogger(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	if err := run(cfg); err != nil {
		slog.Error("server error", "error", err)
		if closeLog != nil {
			closeLog()
		}
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		Endpoint:   cfg.OtelEndpoint,
		AuthHeader: cfg.OtelAuthHeader,
		Insecure:   cfg.OtelInsecure,
	})
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			slog.Error("failed to flush traces", "error", err)
		}
	}()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := inventory.NewService(st, cfg.StoreTimeout)
	handler := api.Handler(svc, api.Features{
		EnableDelete: cfg.EnableDelete,
		EnableInsert: cfg.EnableInsert,
		RequireAuth:  cfg.RequireAuth,
		JWTSecret:    cfg.JWTSecret,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening: %w", err)
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	slog.Info("server started", "addr", ln.Addr().String(), "store", cfg.Store,
		"delete", cfg.EnableDelete, "insert", cfg.EnableInsert, "auth", cfg.RequireAuth)
	if err := serve(server, ln, quit, cfg.ShutdownTimeout); err != nil {
		return err
	}

	slog.Info("server stopped, closing store")
	return nil
}

// serve runs server on ln until a signal arrives on quit, then drains
// in-flight requests for up to timeout. It returns after draining ends.
func serve(server *http.Server, ln net.Listener, quit <-chan os.Signal, timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	<-done
	return nil
}

// openStore connects the configured backend. The returned function releases
// it.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Store {
	case config.StoreMongo:
		client, err := db.ConnectMongo(ctx, cfg.MongoConnectionURI(), cfg.StoreTimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to mongodb: %w", err)
		}
		slog.Info("database ready", "backend", "mongo", "name", cfg.DBName)

		closeFn := func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := client.Disconnect(ctx); err != nil {
				slog.Error("failed to disconnect from mongodb", "error", err)
			}
		}
		return store.NewMongo(client, cfg.DBName), closeFn, nil

	default:
		database, err := db.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		if err := db.EnsureSchema(database); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("ensuring database schema: %w", err)
		}
		slog.Info("database ready", "backend", "sqlite", "path", cfg.SQLitePath)

		return store.NewSQLite(database), func() { database.Close() }, nil
	}
}
