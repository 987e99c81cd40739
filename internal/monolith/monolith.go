// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"errors"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/fd1az/perp-arbitrage-bot/internal/asset"
	"github.com/fd1az/perp-arbitrage-bot/internal/config"
	"github.com/fd1az/perp-arbitrage-bot/internal/di"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	AssetRegistry() *asset.Registry
	Services() di.ServiceRegistry
	// Go runs a long-lived task. A task returning a non-nil error stops
	// every other task and is reported by Wait.
	Go(name string, task func(ctx context.Context) error)
	// OnClose registers a cleanup run by Close in reverse order.
	OnClose(fn func() error)
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// app implements the Monolith interface.
type app struct {
	config        *config.Config
	logger        logger.LoggerInterface
	assetRegistry *asset.Registry
	container     di.Container

	mu      sync.Mutex
	tasks   *pool.ContextPool
	closers []func() error
}

// New creates a new Monolith instance.
func New(cfg *config.Config, log logger.LoggerInterface) (*app, error) {
	// Use default asset registry (pre-populated with common assets)
	assetRegistry := asset.DefaultRegistry()

	// The configured pair must resolve before anything starts.
	if _, err := assetRegistry.Resolve(cfg.Market.BaseMint, uint8(cfg.Market.BaseDecimals)); err != nil {
		return nil, err
	}
	if _, err := assetRegistry.Resolve(cfg.Market.QuoteMint, uint8(cfg.Market.QuoteDecimals)); err != nil {
		return nil, err
	}

	container := di.NewContainer()

	// Register global services
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("assetRegistry", assetRegistry)

	return &app{
		config:        cfg,
		logger:        log,
		assetRegistry: assetRegistry,
		container:     container,
	}, nil
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) AssetRegistry() *asset.Registry {
	return a.assetRegistry
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// Go implements Monolith. It must be called from a module's Startup.
func (a *app) Go(name string, task func(ctx context.Context) error) {
	a.mu.Lock()
	tasks := a.tasks
	a.mu.Unlock()

	if tasks == nil {
		panic("monolith: Go called outside StartModules: " + name)
	}

	tasks.Go(func(ctx context.Context) error {
		a.logger.Debug(ctx, "task started", "task", name)
		err := task(ctx)
		if err != nil {
			a.logger.Error(ctx, "task failed", "task", name, "error", err)
			return err
		}
		a.logger.Debug(ctx, "task finished", "task", name)
		return nil
	})
}

// OnClose implements Monolith.
func (a *app) OnClose(fn func() error) {
	a.mu.Lock()
	a.closers = append(a.closers, fn)
	a.mu.Unlock()
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules. Tasks they launch run under ctx.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	a.mu.Lock()
	if a.tasks == nil {
		a.tasks = pool.New().WithContext(ctx).WithCancelOnError()
	}
	a.mu.Unlock()

	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Wait blocks until every task has returned and reports the first failure.
func (a *app) Wait() error {
	a.mu.Lock()
	tasks := a.tasks
	a.mu.Unlock()

	if tasks == nil {
		return nil
	}
	return tasks.Wait()
}

// Close runs the registered cleanups, newest first.
func (a *app) Close() error {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
