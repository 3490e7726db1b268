package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"sweeper/config"
	"sweeper/core"
	"sweeper/core/events"
	"sweeper/gateway/middleware"
	"sweeper/integrations/natsbus"
	"sweeper/integrations/webhooks"
	"sweeper/observability"
	"sweeper/observability/logging"
	telemetry "sweeper/observability/otel"
	"sweeper/rpc"
	"sweeper/storage"
	"sweeper/storage/index"
)

const serviceName = "sweeperd"

// version is set via ldflags during release builds.
var version = "dev"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	env := strings.TrimSpace(os.Getenv("SWEEPER_ENV"))
	if env == "" {
		env = cfg.Environment
	}
	logger := logging.SetupWithOptions(serviceName, env, logging.Options{
		Level:      logging.ParseLevel(cfg.Observability.LogLevel),
		File:       cfg.Observability.LogFile,
		MaxSizeMB:  cfg.Observability.LogMaxSizeMB,
		MaxBackups: cfg.Observability.LogMaxBackups,
		MaxAgeDays: cfg.Observability.LogMaxAgeDays,
		Compress:   true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, env, logger); err != nil {
		logger.Error("sweeperd stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, env string, logger *slog.Logger) error {
	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: serviceName,
		Version:     version,
		Environment: env,
		Attributes:  map[string]string{"sweeper.database": cfg.Database},
		Endpoint:    cfg.Observability.OTLPEndpoint,
		Insecure:    cfg.Observability.OTLPInsecure,
		Headers:     telemetry.ParseHeaders(cfg.Observability.OTLPHeaders),
		Metrics:     cfg.Observability.Tracing && cfg.Observability.Metrics,
		Traces:      cfg.Observability.Tracing,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	node, err := core.NewNode(db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("create node: %w", err)
	}
	defer node.Close()
	node.SetLogger(logger)

	allocs, err := genesisAllocs(cfg)
	if err != nil {
		return err
	}
	applied, err := node.ApplyGenesis(allocs)
	if err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}
	if applied {
		logger.Info("genesis applied", slog.Int("allocations", len(allocs)))
	}

	emitters := events.Multi{observability.Events()}

	if cfg.Database == config.DatabaseMemory {
		cfg.IndexPath = index.MemoryPath
	}
	idx, err := index.Open(cfg.IndexPath)
	if err != nil {
		return fmt.Errorf("open forwarder index: %w", err)
	}
	defer idx.Close()
	idx.SetLogger(logger)
	emitters = append(emitters, idx)

	if url := strings.TrimSpace(cfg.NATS.URL); url != "" {
		bus, err := natsbus.Connect(url, cfg.NATS.SubjectPrefix, logger)
		if err != nil {
			return err
		}
		defer bus.Close()
		emitters = append(emitters, bus)
	}

	if url := strings.TrimSpace(cfg.Webhook.URL); url != "" {
		hooks, err := webhooks.NewDispatcher(url, []byte(cfg.Webhook.Secret),
			webhooks.WithEventPrefixes(cfg.Webhook.EventPrefixes...),
			webhooks.WithLogger(logger))
		if err != nil {
			return err
		}
		defer hooks.Close()
		emitters = append(emitters, hooks)
	}
	node.SetEmitter(emitters)

	server := rpc.NewServer(node, idx, rpc.ServerConfig{
		Auth: middleware.AuthConfig{
			Enabled:    cfg.Auth.Enabled,
			HMACSecret: cfg.Auth.HMACSecret,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			ScopeClaim: cfg.Auth.ScopeClaim,
		},
		RateLimit: middleware.RateLimit{
			RequestsPerMinute: float64(cfg.RateLimit.RequestsPerMinute),
			Burst:             cfg.RateLimit.Burst,
		},
		Observability: middleware.ObservabilityConfig{
			ServiceName: serviceName,
			Enabled:     cfg.Observability.Metrics,
			LogRequests: true,
		},
	}, logger)

	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddress, err)
	}
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("rpc shutdown", slog.Any("error", err))
		}
		return nil
	case err := <-serverErr:
		return err
	}
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	switch cfg.Database {
	case config.DatabaseMemory:
		return storage.NewMemDB(), nil
	case config.DatabaseLevelDB:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("prepare data directory: %w", err)
		}
		db, err := storage.NewLevelDB(cfg.StatePath())
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return db, nil
	}
	return nil, errors.New("unsupported database " + cfg.Database)
}

func genesisAllocs(cfg *config.Config) ([]core.GenesisAlloc, error) {
	parsed, err := cfg.Allocations()
	if err != nil {
		return nil, err
	}
	out := make([]core.GenesisAlloc, 0, len(parsed))
	for _, alloc := range parsed {
		out = append(out, core.GenesisAlloc{Address: alloc.Address, Balance: alloc.Balance})
	}
	return out, nil
}
