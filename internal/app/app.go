package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vk/blockflow/internal/blobstore"
	"github.com/vk/blockflow/internal/compiler"
	"github.com/vk/blockflow/internal/config"
	"github.com/vk/blockflow/internal/ctxlog"
	"github.com/vk/blockflow/internal/engine"
	"github.com/vk/blockflow/internal/inmemorystore"
	"github.com/vk/blockflow/internal/leveldbstore"
	"github.com/vk/blockflow/internal/metrics"
	"github.com/vk/blockflow/internal/provider"
	"github.com/vk/blockflow/internal/registry"
	"github.com/vk/blockflow/internal/taskstore"
	"github.com/vk/blockflow/internal/tracker"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	ctx      context.Context
	config   *Config
	registry *registry.Registry

	store      taskstore.Store
	engine     *engine.Engine
	compiler   *compiler.Service
	tracker    *tracker.Tracker
	promReg    *prometheus.Registry
	metrics    *metrics.Metrics
	localBlobs *blobstore.LocalStore
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// collab may be nil; missing collaborators are built from cfg.
func NewApp(outW io.Writer, cfg *Config, collab *Collaborators) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	a := &App{outW: outW, logger: logger, ctx: ctx, config: cfg}

	var c Collaborators
	if collab != nil {
		c = *collab
	}
	if err := a.buildCollaborators(&c); err != nil {
		return nil, err
	}

	// Create and populate the registry with Go units of work.
	a.registry = registry.New()
	modules := coreModules(c, cfg.SignedURLExpiry)
	for _, mod := range modules {
		mod.Register(a.registry)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	// Validate the integrity of the registry.
	if err := a.registry.ValidateRegistry(ctx); err != nil {
		// This is a programmer error, so we panic.
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	a.store = store

	a.promReg = prometheus.NewRegistry()
	a.promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.promReg)

	a.engine = engine.New(a.registry, a.store,
		engine.WithWorkers(cfg.Workers),
		engine.WithTaskTimeLimit(cfg.TaskTimeLimit),
		engine.WithMaxRedeliveries(cfg.MaxRedeliveries),
		engine.WithMetrics(a.metrics),
	)
	a.compiler = compiler.NewService(a.registry, a.engine)
	a.tracker = tracker.New(a.engine)

	return a, nil
}

func (a *App) buildCollaborators(c *Collaborators) error {
	cfg := a.config
	if cfg.OpenAIAPIKey == "" {
		if c.Text == nil || c.Images == nil || c.Speech == nil {
			a.logger.Warn("OpenAI API key not configured, generation nodes will report errors.")
		}
	} else {
		if c.Text == nil {
			text, err := provider.NewOpenAIText(cfg.OpenAIAPIKey, cfg.TextModel, cfg.OpenAIBaseURL)
			if err != nil {
				return err
			}
			c.Text = text
		}
		if c.Images == nil {
			c.Images = provider.NewOpenAIImages(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ImageModel, cfg.ImageSize)
		}
		if c.Speech == nil {
			c.Speech = provider.NewOpenAISpeech(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.SpeechModel, cfg.Voice)
		}
	}

	if c.Blobs != nil {
		if local, ok := c.Blobs.(*blobstore.LocalStore); ok {
			a.localBlobs = local
		}
		return nil
	}
	switch cfg.StorageBackend {
	case config.StorageAzure:
		store, err := blobstore.NewAzureStore(cfg.AzureConnectionString, cfg.AzureContainer)
		if err != nil {
			return err
		}
		c.Blobs = store
	case config.StorageS3:
		store, err := blobstore.NewS3Store(blobstore.S3Config{
			Bucket:         cfg.S3Bucket,
			Region:         cfg.S3Region,
			Endpoint:       cfg.S3Endpoint,
			ForcePathStyle: cfg.S3Endpoint != "",
		})
		if err != nil {
			return err
		}
		c.Blobs = store
	default:
		secret := cfg.BlobSecret
		if secret == "" {
			secret = uuid.NewString()
			a.logger.Warn("No blob signing secret configured, audio links will not survive a restart.")
		}
		local, err := blobstore.NewLocalStore(cfg.BlobDir, cfg.PublicURL, []byte(secret), nil)
		if err != nil {
			return err
		}
		c.Blobs = local
		a.localBlobs = local
	}
	a.logger.Debug("Blob storage configured.", "backend", cfg.StorageBackend)
	return nil
}

func (a *App) openStore() (taskstore.Store, error) {
	switch a.config.Backend {
	case config.BackendLevelDB:
		store, err := leveldbstore.Open(a.config.StatePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open run state: %w", err)
		}
		a.logger.Debug("Run state stored on disk.", "path", a.config.StatePath)
		return store, nil
	default:
		return inmemorystore.New(), nil
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Context returns the application context carrying its logger.
func (a *App) Context() context.Context {
	return a.ctx
}

// Close releases the run state store.
func (a *App) Close() error {
	return a.store.Close()
}
