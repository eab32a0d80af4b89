// woven provides automatic DNS record and Cloudflare Tunnel ingress
// management for Docker containers. It watches Docker/Swarm for container
// events, extracts hostnames from reverse proxy labels (Traefik) and its
// own woven.* labels, and syncs DNS records and tunnel ingress rules to one
// or more providers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"gitlab.com/wovendns/woven/internal/config"
	"gitlab.com/wovendns/woven/internal/docker"
	"gitlab.com/wovendns/woven/internal/eventbus"
	"gitlab.com/wovendns/woven/internal/health"
	"gitlab.com/wovendns/woven/internal/metrics"
	"gitlab.com/wovendns/woven/internal/ownership"
	"gitlab.com/wovendns/woven/internal/policy"
	"gitlab.com/wovendns/woven/internal/reconciler"
	"gitlab.com/wovendns/woven/internal/tunnel"
	"gitlab.com/wovendns/woven/internal/watcher"
	"gitlab.com/wovendns/woven/pkg/provider"
	"gitlab.com/wovendns/woven/pkg/source"
	"gitlab.com/wovendns/woven/providers/cloudflare"
	"gitlab.com/wovendns/woven/providers/digitalocean"
	"gitlab.com/wovendns/woven/providers/pihole"
	"gitlab.com/wovendns/woven/providers/route53"
	providertunnel "gitlab.com/wovendns/woven/providers/tunnel"
	"gitlab.com/wovendns/woven/providers/unifi"
	"gitlab.com/wovendns/woven/sources/container"
	"gitlab.com/wovendns/woven/sources/traefik"
)

// Version and BuildDate are set via ldflags during build.
// Example: -ldflags="-X main.Version=v1.0.0 -X main.BuildDate=2026-01-03"
var (
	Version   = "dev"
	BuildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("woven %s (built %s)\n", Version, BuildDate)
		os.Exit(0)
	}

	// If --config flag is set, set it as env var so config.Load() picks it up.
	// This maintains the priority: env var (WOVEN_CONFIG) > --config flag.
	if *configPath != "" && os.Getenv("WOVEN_CONFIG") == "" {
		if err := os.Setenv("WOVEN_CONFIG", *configPath); err != nil {
			slog.Error("failed to set WOVEN_CONFIG", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := setupLogger(cfg.LogLevel(), cfg.LogFormat())
	slog.SetDefault(logger)

	metrics.SetBuildInfo(Version, runtime.Version())

	logger.Info("woven starting",
		slog.String("version", Version),
		slog.String("build_date", BuildDate),
		slog.String("go_version", runtime.Version()),
		slog.Bool("dry_run", cfg.DryRun()),
		slog.Bool("adopt_existing", cfg.AdoptExisting()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dockerClient, err := docker.NewClient(ctx,
		docker.WithHost(cfg.DockerHost()),
		docker.WithMode(parseDockerMode(cfg.DockerMode())),
		docker.WithLogger(logger),
		docker.WithCleanupOnStop(cfg.CleanupOnStop()),
	)
	if err != nil {
		return fmt.Errorf("creating docker client: %w", err)
	}
	defer func() { _ = dockerClient.Close() }()

	logger.Info("docker client connected", slog.String("mode", dockerClient.Mode().String()))

	ownershipStore, err := ownership.NewStore(cfg.StateDir(), logger)
	if err != nil {
		return fmt.Errorf("opening ownership ledger store: %w", err)
	}

	policyStore, err := policy.New(cfg.PreservedHostnames())
	if err != nil {
		return fmt.Errorf("compiling preserved hostname patterns: %w", err)
	}

	events := eventbus.New(eventbus.WithLogger(logger))

	sourceRegistry := source.NewRegistry(logger)
	if err := registerSources(sourceRegistry, cfg, logger); err != nil {
		return fmt.Errorf("registering sources: %w", err)
	}

	providerRegistry := provider.NewRegistry(logger)
	registerProviderFactories(providerRegistry)

	providerManager := provider.NewManager(providerRegistry,
		provider.WithManagerLogger(logger),
	)
	if err := initializeProviders(providerManager, cfg); err != nil {
		return fmt.Errorf("initializing providers: %w", err)
	}

	if err := providerManager.Start(ctx); err != nil {
		return fmt.Errorf("starting provider manager: %w", err)
	}
	defer providerManager.Stop()

	if providerManager.PendingCount() > 0 {
		logger.Warn("some providers failed to initialize and will be retried",
			slog.Int("ready", providerManager.ReadyCount()),
			slog.Int("pending", providerManager.PendingCount()),
		)
		for _, status := range providerManager.PendingProviders() {
			logger.Warn("pending provider",
				slog.String("provider", status.Name),
				slog.String("type", status.Type),
				slog.String("error", status.LastError),
			)
		}
	}

	reconcilerCfg := reconciler.Config{
		DryRun:            cfg.DryRun(),
		CleanupOrphans:    cfg.CleanupOrphans(),
		OwnershipTracking: cfg.OwnershipTracking(),
		AdoptExisting:     cfg.AdoptExisting(),
		ReconcileInterval: cfg.ReconcileInterval(),
		Enabled:           true,
	}
	rec := reconciler.New(dockerClient, sourceRegistry, providerRegistry,
		reconciler.WithConfig(reconcilerCfg),
		reconciler.WithLogger(logger),
		reconciler.WithOwnershipStore(ownershipStore),
		reconciler.WithPolicyStore(policyStore),
		reconciler.WithEventBus(events),
	)

	// Recover ownership state from DNS providers on startup so orphan
	// cleanup works for records created before a restart.
	if err := rec.RecoverOwnership(ctx); err != nil {
		logger.Warn("failed to recover ownership state", slog.String("error", err.Error()))
	}

	tunnelRec, err := setupTunnelReconciler(cfg, dockerClient, ownershipStore, policyStore, logger)
	if err != nil {
		return fmt.Errorf("configuring tunnel reconciler: %w", err)
	}

	triggerReconcile := func() {
		result, err := rec.Reconcile(ctx)
		if err != nil {
			logger.Error("reconciliation failed", slog.String("error", err.Error()))
			return
		}
		logger.Info("reconciliation complete",
			slog.Int("created", result.CreatedCount()),
			slog.Int("deleted", result.DeletedCount()),
			slog.Int("skipped", len(result.Skipped())),
			slog.Int("errors", result.FailedCount()),
			slog.Duration("duration", result.Duration()),
		)

		if tunnelRec != nil {
			tunnelResult, err := tunnelRec.ReconcileOnce(ctx)
			if err != nil {
				logger.Error("tunnel reconciliation failed", slog.String("error", err.Error()))
				return
			}
			logger.Info("tunnel reconciliation complete",
				slog.Int("rules_desired", tunnelResult.RulesDesired),
				slog.Int("rules_applied", tunnelResult.RulesApplied),
				slog.Bool("changed", tunnelResult.ConfigChanged),
				slog.Duration("duration", tunnelResult.Duration()),
			)
		}
	}

	dockerWatcher := watcher.New(dockerClient, triggerReconcile,
		watcher.WithLogger(logger),
		watcher.WithConfig(watcher.Config{
			DebounceInterval:  2 * time.Second,
			ReconnectInterval: 5 * time.Second,
		}),
	)

	var fileWatcher *source.FileWatcher
	if cfg.HasFileDiscovery() {
		logger.Info("file discovery enabled, starting file watcher")
		fileWatcher = source.NewFileWatcher(sourceRegistry,
			func(sourceName string, hostnames []source.Hostname) {
				logger.Info("file watcher detected changes",
					slog.String("source", sourceName),
					slog.Int("hostnames", len(hostnames)),
				)
				triggerReconcile()
			},
			source.WithWatcherLogger(logger),
		)
	}

	healthServer := health.New(cfg.HealthPort(), health.WithLogger(logger))

	for _, inst := range providerRegistry.All() {
		inst := inst
		healthServer.RegisterChecker("provider:"+inst.Name(), func(ctx context.Context) error {
			return inst.Ping(ctx)
		})
	}

	healthServer.RegisterDegradedChecker("provider-manager", func(ctx context.Context) (bool, string) {
		if providerManager.PendingCount() > 0 {
			pending := providerManager.PendingProviders()
			names := make([]string, len(pending))
			for i, p := range pending {
				names[i] = p.Name
			}
			return true, fmt.Sprintf("%d providers pending: %v", len(pending), names)
		}
		return false, ""
	})

	if err := healthServer.Start(); err != nil {
		return fmt.Errorf("starting health server: %w", err)
	}

	if err := dockerWatcher.Start(ctx); err != nil {
		return fmt.Errorf("starting docker watcher: %w", err)
	}

	if fileWatcher != nil {
		if err := fileWatcher.Start(ctx); err != nil {
			return fmt.Errorf("starting file watcher: %w", err)
		}
	}

	logger.Info("running initial reconciliation")
	triggerReconcile()

	// Periodic reconciliation timer as a safety net, catching any missed
	// Docker events and ensuring eventual consistency.
	if cfg.ReconcileInterval() > 0 {
		go func() {
			ticker := time.NewTicker(cfg.ReconcileInterval())
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					logger.Debug("periodic reconciliation triggered",
						slog.Duration("interval", cfg.ReconcileInterval()),
					)
					triggerReconcile()
				}
			}
		}()
		logger.Info("periodic reconciliation enabled", slog.Duration("interval", cfg.ReconcileInterval()))
	}

	logger.Info("woven initialized, watching for changes",
		slog.Int("sources", sourceRegistry.Count()),
		slog.Int("providers", providerRegistry.Count()),
		slog.Int("health_port", cfg.HealthPort()),
		slog.Bool("tunnel_enabled", tunnelRec != nil),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("received shutdown signal", slog.String("signal", sig.String()))

	logger.Info("shutting down...")
	cancel()

	dockerWatcher.Stop()
	if fileWatcher != nil {
		fileWatcher.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("health server shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("woven shutdown complete")
	return nil
}

func setupLogger(level, format string) *slog.Logger {
	logLevel := parseLogLevel(level)

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}

	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseDockerMode(mode string) docker.Mode {
	switch mode {
	case "swarm":
		return docker.ModeSwarm
	case "standalone":
		return docker.ModeStandalone
	default:
		return docker.ModeAuto
	}
}

func registerSources(registry *source.Registry, cfg *config.Config, logger *slog.Logger) error {
	for _, name := range cfg.SourceNames() {
		switch name {
		case "traefik":
			src := createTraefikSource(cfg, logger)
			if err := registry.Register(src); err != nil {
				return fmt.Errorf("registering traefik source: %w", err)
			}
			logger.Info("registered source",
				slog.String("name", name),
				slog.Bool("file_discovery", src.SupportsDiscovery()),
			)
		case "container":
			src := container.New(cfg.LabelPrefix(), container.WithLogger(logger))
			if err := registry.Register(src); err != nil {
				return fmt.Errorf("registering container source: %w", err)
			}
			logger.Info("registered source", slog.String("name", name))
		default:
			logger.Warn("unknown source, skipping", slog.String("source", name))
		}
	}
	return nil
}

func createTraefikSource(cfg *config.Config, logger *slog.Logger) *traefik.Traefik {
	opts := []traefik.Option{
		traefik.WithLogger(logger),
	}

	srcCfg := cfg.GetSourceInstance("traefik")
	if srcCfg != nil && srcCfg.FileDiscovery.IsEnabled() {
		opts = append(opts, traefik.WithFileDiscovery(srcCfg.FileDiscovery))
		logger.Debug("traefik file discovery configured",
			slog.Any("paths", srcCfg.FileDiscovery.FilePaths),
			slog.String("pattern", srcCfg.FileDiscovery.FilePattern),
		)
	}

	if apiURL := os.Getenv("WOVEN_SOURCE_TRAEFIK_API_URL"); apiURL != "" {
		opts = append(opts, traefik.WithAPIDiscovery(traefik.APIConfig{URL: apiURL}))
		logger.Debug("traefik api discovery configured", slog.String("url", apiURL))
	}

	return traefik.New(opts...)
}

func registerProviderFactories(registry *provider.Registry) {
	registry.RegisterFactory("cloudflare", cloudflare.Factory())
	registry.RegisterFactory("route53", route53.Factory())
	registry.RegisterFactory("digitalocean", digitalocean.Factory())
	registry.RegisterFactory("unifi", unifi.Factory())
	registry.RegisterFactory("pihole", pihole.Factory())
}

// initializeProviders initializes all configured providers using the manager.
// It does not fail fatally if a provider is temporarily unavailable - it
// queues it for retry instead.
func initializeProviders(manager *provider.Manager, cfg *config.Config) error {
	for _, inst := range cfg.ProviderInstances {
		providerCfg := inst.ToProviderConfig()
		if err := manager.InitializeProvider(providerCfg); err != nil {
			return fmt.Errorf("invalid provider config %s: %w", inst.Name, err)
		}
	}
	return nil
}

// setupTunnelReconciler builds the optional Cloudflare Tunnel ingress
// reconciler. Returns nil, nil if tunnel reconciliation isn't configured.
func setupTunnelReconciler(
	cfg *config.Config,
	dockerClient *docker.Client,
	ownershipStore *ownership.Store,
	policyStore *policy.Store,
	logger *slog.Logger,
) (*tunnel.Reconciler, error) {
	tunnelCfg := cfg.Tunnel()
	if tunnelCfg == nil || !tunnelCfg.Enabled {
		return nil, nil
	}

	adapter, err := providertunnel.NewFromConfig(tunnelCfg.Name, &providertunnel.Config{
		Token:     tunnelCfg.Token,
		AccountID: tunnelCfg.AccountID,
		TunnelID:  tunnelCfg.TunnelID,
	})
	if err != nil {
		return nil, fmt.Errorf("creating tunnel adapter: %w", err)
	}

	tunnelReconcilerCfg := tunnel.DefaultConfig()
	tunnelReconcilerCfg.DryRun = cfg.DryRun()
	tunnelReconcilerCfg.LabelPrefix = cfg.LabelPrefix()

	rec := tunnel.New(dockerClient, adapter,
		tunnel.WithLogger(logger),
		tunnel.WithConfig(tunnelReconcilerCfg),
		tunnel.WithOwnershipStore(ownershipStore),
		tunnel.WithPolicyStore(policyStore),
	)

	logger.Info("tunnel reconciler enabled",
		slog.String("tunnel", tunnelCfg.Name),
		slog.String("tunnel_id", tunnelCfg.TunnelID),
	)

	return rec, nil
}
