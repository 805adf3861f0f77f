// main.go - Sealed-bid auction service.
//
// Hosts the auction registry over a plaintext-simulating encrypted-arithmetic
// engine, exposes the orchestration operations over HTTP, and publishes
// auction events to NATS when configured.
//
// Usage:
//
//	auctiond --config auctiond.json
package main

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/pflag"

	"github.com/0xjingxuanli/fhe-auction/internal/auction"
	"github.com/0xjingxuanli/fhe-auction/internal/fhe"
	"github.com/0xjingxuanli/fhe-auction/internal/notify"
)

const version = "0.1.0"

func main() {
	configPath := pflag.String("config", "auctiond.json", "path to the service configuration file")
	pflag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	auditPath := ""
	if cfg.EnableAudit {
		auditPath = cfg.AuditLogPath
	}
	logger, err := NewLogger(cfg.LogLevel, cfg.LogFile, auditPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	logger.Info("compiling bid circuit and preparing engine keys (dir: %s)", cfg.KeyDir)
	engine, err := fhe.NewSimEngine(cfg.KeyDir)
	if err != nil {
		logger.Fatal("engine setup failed: %v", err)
	}

	var notifier auction.Notifier = auction.NopNotifier{}
	var natsConn *nats.Conn
	if cfg.NatsURL != "" {
		logger.Info("connecting to NATS at %s", cfg.NatsURL)
		natsConn, err = nats.Connect(cfg.NatsURL)
		if err != nil {
			logger.Fatal("NATS connection failed: %v", err)
		}
		defer natsConn.Close()
		notifier = notify.NewPublisher(natsConn)
	}

	registry := auction.NewRegistry(engine, notifier)
	if cfg.SnapshotPath != "" {
		snap, err := auction.LoadSnapshotFromFile(cfg.SnapshotPath)
		switch {
		case err == nil:
			if err := registry.Restore(snap); err != nil {
				logger.Fatal("registry restore failed: %v", err)
			}
			logger.Info("registry restored from %s (%d auctions)", cfg.SnapshotPath, len(snap.Auctions))
		case os.IsNotExist(err):
			// First start; the snapshot is written on shutdown.
		default:
			logger.Fatal("registry snapshot load failed: %v", err)
		}
	}

	health := NewHealthChecker(version)
	health.RegisterComponent("engine", func() error {
		_, err := engine.Encrypt(big.NewInt(0))
		return err
	})
	if natsConn != nil {
		health.RegisterComponent("nats", func() error {
			if natsConn.IsReconnecting() {
				return fmt.Errorf("%w: nats reconnecting", ErrDegraded)
			}
			if !natsConn.IsConnected() {
				return fmt.Errorf("nats disconnected")
			}
			return nil
		})
	}

	server := &Server{
		registry:   registry,
		engine:     engine,
		logger:     logger,
		metrics:    NewMetricsCollector(),
		health:     health,
		bidLimiter: NewPrincipalRateLimiter(cfg.BidRateTokens, cfg.BidRateRefill, time.Second),
	}

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server.SetupRoutes(),
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("auctiond listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown: %v", err)
	}

	if cfg.SnapshotPath != "" {
		if err := registry.Snapshot().SaveToFile(cfg.SnapshotPath); err != nil {
			logger.Error("registry snapshot save failed: %v", err)
		} else {
			logger.Info("registry snapshot saved to %s", cfg.SnapshotPath)
		}
	}
	logger.Info("stopped")
}
