// Package app initializes and holds the long-lived services of the crawl
// service, acting as the dependency injection container.
package app

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pagemill/pagemill/internal/api"
	"github.com/pagemill/pagemill/internal/archive"
	"github.com/pagemill/pagemill/internal/classifier"
	"github.com/pagemill/pagemill/internal/clock"
	"github.com/pagemill/pagemill/internal/config"
	"github.com/pagemill/pagemill/internal/controller"
	"github.com/pagemill/pagemill/internal/crawl"
	"github.com/pagemill/pagemill/internal/engine"
	"github.com/pagemill/pagemill/internal/engine/embedded"
	"github.com/pagemill/pagemill/internal/logging"
	"github.com/pagemill/pagemill/internal/metrics"
	"github.com/pagemill/pagemill/internal/progress"
	"github.com/pagemill/pagemill/internal/progress/sinks"
	"github.com/pagemill/pagemill/internal/reporter"
	"github.com/pagemill/pagemill/internal/store/memory"
	"github.com/pagemill/pagemill/internal/store/postgres"
)

// App holds the wired service graph. Build it once at startup and hand it to
// the command layer.
type App struct {
	Config     config.Config
	Logger     *zap.Logger
	Controller *controller.Controller
	Reporter   *reporter.Reporter
	Server     *api.Server
	Hub        *progress.Hub

	closers []func(context.Context) error
}

// New constructs every service the configuration names. It fails fast: any
// provider that cannot be built aborts startup.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger := logging.L
	metrics.Init()

	a := &App{Config: cfg, Logger: logger}

	sessions, pages, err := a.buildStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rep, err := reporter.New(sessions, pages, logger.Named("reporter"))
	if err != nil {
		return nil, fmt.Errorf("build reporter: %w", err)
	}
	a.Reporter = rep

	eng, err := a.buildEngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	cls, err := a.buildClassifier(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	arch, err := a.buildArchiver(ctx, cfg)
	if err != nil {
		return nil, err
	}
	hub, err := a.buildProgressHub(logger)
	if err != nil {
		return nil, err
	}
	a.Hub = hub

	ctrl, err := controller.New(eng, rep, cls, arch, clock.System{}, hub, logger.Named("controller"))
	if err != nil {
		return nil, fmt.Errorf("build controller: %w", err)
	}
	a.Controller = ctrl
	a.Server = api.NewServer(ctrl, rep, cfg, logger.Named("api"))

	logger.Info("application services initialized",
		zap.String("engine", cfg.Engine.Provider),
		zap.String("db", cfg.DB.Provider),
		zap.String("classifier", cfg.Classifier.Provider),
		zap.String("archive", cfg.Archive.Provider),
	)
	return a, nil
}

func (a *App) buildStores(ctx context.Context, cfg config.Config) (crawl.SessionStore, crawl.PageStore, error) {
	switch cfg.DB.Provider {
	case "postgres":
		pool, err := postgres.NewPool(ctx, postgres.Config{
			DSN:      cfg.DB.DSN(),
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error {
			pool.Close()
			return nil
		})
		sessions, err := postgres.NewSessionStore(pool)
		if err != nil {
			return nil, nil, fmt.Errorf("build session store: %w", err)
		}
		pages, err := postgres.NewPageStore(pool)
		if err != nil {
			return nil, nil, fmt.Errorf("build page store: %w", err)
		}
		return sessions, pages, nil
	case "memory":
		return memory.NewSessionStore(), memory.NewPageStore(), nil
	default:
		return nil, nil, fmt.Errorf("unknown db provider: %s", cfg.DB.Provider)
	}
}

func (a *App) buildEngine(cfg config.Config, logger *zap.Logger) (crawl.Engine, error) {
	switch cfg.Engine.Provider {
	case "api":
		eng, err := engine.NewClient(engine.ClientConfig{
			BaseURL:   cfg.Engine.BaseURL,
			APIKey:    cfg.Engine.APIKey,
			UserAgent: cfg.Engine.UserAgent,
			Retries:   cfg.Engine.MaxRetries,
			Logger:    logger.Named("engine"),
		})
		if err != nil {
			return nil, fmt.Errorf("build engine client: %w", err)
		}
		return eng, nil
	case "embedded":
		return embedded.New(embedded.Config{
			UserAgent: cfg.Engine.UserAgent,
			Timeout:   cfg.EngineTimeout(),
			Logger:    logger.Named("engine"),
		}), nil
	default:
		return nil, fmt.Errorf("unknown engine provider: %s", cfg.Engine.Provider)
	}
}

func (a *App) buildClassifier(ctx context.Context, cfg config.Config, logger *zap.Logger) (crawl.Classifier, error) {
	switch cfg.Classifier.Provider {
	case "pubsub":
		cls, err := classifier.NewPubSub(ctx, cfg.Classifier.ProjectID, cfg.Classifier.Topic, logger.Named("classifier"))
		if err != nil {
			return nil, fmt.Errorf("build classifier: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error {
			return cls.Close()
		})
		return cls, nil
	case "noop":
		return classifier.NewNoop(), nil
	default:
		return nil, fmt.Errorf("unknown classifier provider: %s", cfg.Classifier.Provider)
	}
}

func (a *App) buildArchiver(ctx context.Context, cfg config.Config) (crawl.Archiver, error) {
	var (
		blobs archive.BlobStore
		err   error
	)
	switch cfg.Archive.Provider {
	case "gcs":
		var client *storage.Client
		client, err = storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error {
			if cerr := client.Close(); cerr != nil {
				return fmt.Errorf("close storage client: %w", cerr)
			}
			return nil
		})
		blobs, err = archive.NewGCSBlobStore(client, cfg.Archive.Bucket)
	case "local":
		blobs, err = archive.NewLocalBlobStore(cfg.Archive.LocalDir)
	case "memory":
		blobs = archive.NewMemoryBlobStore()
	case "noop":
		return archive.NewNoop(), nil
	default:
		return nil, fmt.Errorf("unknown archive provider: %s", cfg.Archive.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("build archive blob store: %w", err)
	}
	store, err := archive.New(blobs, cfg.Archive.Prefix)
	if err != nil {
		return nil, fmt.Errorf("build archive store: %w", err)
	}
	return store, nil
}

func (a *App) buildProgressHub(logger *zap.Logger) (*progress.Hub, error) {
	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, fmt.Errorf("build prometheus sink: %w", err)
	}
	hub := progress.NewHub(progress.Options{
		Logger: logger.Named("progress"),
	}, sinks.NewLogSink(logger.Named("progress")), promSink)
	a.closers = append(a.closers, hub.Close)
	return hub, nil
}

// Close shuts down services in reverse construction order.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
