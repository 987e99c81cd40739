// Package main is the entry point for the perp/swap arbitrage bot.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage"
	"github.com/fd1az/perp-arbitrage-bot/business/execution"
	"github.com/fd1az/perp-arbitrage-bot/business/pricing"
	pricingDI "github.com/fd1az/perp-arbitrage-bot/business/pricing/di"
	"github.com/fd1az/perp-arbitrage-bot/internal/apm"
	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
	"github.com/fd1az/perp-arbitrage-bot/internal/config"
	"github.com/fd1az/perp-arbitrage-bot/internal/health"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
	"github.com/fd1az/perp-arbitrage-bot/internal/metrics"
	"github.com/fd1az/perp-arbitrage-bot/internal/monolith"
	"github.com/fd1az/perp-arbitrage-bot/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

const alertTimeout = 10 * time.Second

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("perp-arbitrage-bot %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for servers and debugging
	tuiMode := !*cliMode

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func traceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

func parseLevel(s string) logger.Level {
	switch s {
	case "debug":
		return logger.LevelDebug
	case "warn":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	}
	return logger.LevelInfo
}

func run(ctx context.Context, configPath string, tuiMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Modules pick the reporter from this
	cfg.Arbitrage.TUIMode = tuiMode

	// The TUI owns the terminal; logs are discarded there
	var out io.Writer = os.Stderr
	if tuiMode {
		out = io.Discard
	}
	log := logger.New(out, parseLevel(cfg.App.LogLevel), cfg.App.Name, traceID)
	log.Info(ctx, "starting perp/swap arbitrage bot",
		"version", version,
		"environment", cfg.App.Environment,
		"execution_mode", cfg.Execution.Mode,
		"dry_run", cfg.Arbitrage.DryRun,
	)

	if cfg.Telemetry.Enabled {
		stop, err := startTelemetry(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("failed to start telemetry: %w", err)
		}
		defer stop()
	}

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer func() {
		if err := mono.Close(); err != nil {
			log.Warn(context.Background(), "cleanup failed", "error", err)
		}
	}()

	// Dependency order: arbitrage resolves pricing and execution services
	modules := []monolith.Module{
		&pricing.Module{},
		&execution.Module{},
		&arbitrage.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	healthServer := health.NewServer(cfg.Health.Port, version, log)
	registerHealthChecks(healthServer, mono, cfg)
	healthServer.Start(ctx)
	defer healthServer.Stop(context.Background())

	if tuiMode {
		return runTUI(ctx, mono, modules, cfg, log)
	}
	return runCLI(ctx, mono, modules, log)
}

func startTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	tp, err := apm.NewTraceProvider(ctx, apm.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Provider:    apm.Provider(cfg.Telemetry.TraceProvider),
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     cfg.Telemetry.OTLPHeaders,
	}, log)
	if err != nil {
		return nil, err
	}

	opts := []metrics.OptionFn{
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
	}
	if apm.Provider(cfg.Telemetry.TraceProvider) == apm.OTLPGRPCProvider && cfg.Telemetry.OTLPEndpoint != "" {
		headers, err := apm.ParseHeaders(cfg.Telemetry.OTLPHeaders)
		if err != nil {
			return nil, err
		}
		opts = append(opts, metrics.WithProviderConfig(
			metrics.NewOtelCollectorConfig(cfg.Telemetry.OTLPEndpoint, headers, metrics.SecureOtel)))
	}
	mp, err := metrics.NewMetricProvider(ctx, opts...)
	if err != nil {
		tp.Stop()
		return nil, err
	}

	go func() {
		if err := metrics.ServePrometheusMetrics(ctx, cfg.Telemetry.PrometheusPort, log); err != nil {
			log.Warn(ctx, "prometheus server stopped", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mp.Shutdown(shutdownCtx)
		tp.Stop()
	}, nil
}

func registerHealthChecks(s *health.Server, mono monolith.Monolith, cfg *config.Config) {
	svc := pricingDI.GetPricingService(mono.Services())
	stale := cfg.Feed.StaleTimeout

	s.RegisterCheck("orderbook", health.FreshnessCheck(func() time.Time {
		return svc.Freshness().Book
	}, stale))
	// Quotes are polled, so allow a few missed polls before reporting stale.
	s.RegisterCheck("router", health.FreshnessCheck(func() time.Time {
		f := svc.Freshness()
		if f.BuyQuote.After(f.SellQuote) {
			return f.BuyQuote
		}
		return f.SellQuote
	}, stale+3*cfg.Router.PollInterval))
}

// notifyFailure alerts operators about a critical stop.
func notifyFailure(mono monolith.Monolith, err error, log logger.LoggerInterface) {
	ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
	defer cancel()

	log.Error(ctx, "bot stopped", apperror.LogArgs(err)...)
	if nerr := arbitrage.NotifyFailure(ctx, mono, err); nerr != nil {
		log.Warn(ctx, "failure alert not delivered", "error", nerr)
	}
}

type runner interface {
	monolith.Monolith
	StartModules(ctx context.Context, modules ...monolith.Module) error
	Wait() error
}

func runCLI(ctx context.Context, mono runner, modules []monolith.Module, log logger.LoggerInterface) error {
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}
	log.Info(ctx, "all modules started")

	err := mono.Wait()
	if err != nil {
		notifyFailure(mono, err, log)
	}
	log.Info(context.Background(), "shutting down")
	return err
}

func runTUI(ctx context.Context, mono runner, modules []monolith.Module, cfg *config.Config, log logger.LoggerInterface) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	// Show the welcome screen immediately; modules start after it
	p := tea.NewProgram(ui.New(ui.Options{
		Market: cfg.Market.PerpMarket,
		Mode:   cfg.Execution.Mode,
		DryRun: cfg.Arbitrage.DryRun,
	}), tea.WithAltScreen())
	ui.Program = p

	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		ui.Send(ui.StartupMsg{Step: "config", Status: "done"})
		if err := mono.StartModules(ctx, modules...); err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- fmt.Errorf("failed to start modules: %w", err)
			return
		}
		ui.Send(ui.StartupMsg{Step: "execution", Status: "connected", Message: "modules started"})

		err := mono.Wait()
		if err != nil {
			// Keep the dashboard up so the operator sees why
			ui.Send(ui.ErrorMsg{Error: err})
			notifyFailure(mono, err, log)
		}
		errCh <- err
	}()

	// SIGTERM and friends close the TUI too
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	cancel()
	return <-errCh
}
