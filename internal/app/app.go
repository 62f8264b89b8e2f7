// Package app wires the harvester's long-lived services from configuration
// and owns their shutdown order.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	archGCS "github.com/lamvh/estate-harvester/internal/archive/gcs"
	archLocal "github.com/lamvh/estate-harvester/internal/archive/local"
	archMemory "github.com/lamvh/estate-harvester/internal/archive/memory"
	"github.com/lamvh/estate-harvester/internal/clock/system"
	"github.com/lamvh/estate-harvester/internal/config"
	collyfetcher "github.com/lamvh/estate-harvester/internal/fetcher/colly"
	"github.com/lamvh/estate-harvester/internal/fetcher/headless"
	"github.com/lamvh/estate-harvester/internal/hash/sha256"
	"github.com/lamvh/estate-harvester/internal/id/uuid"
	pubMemory "github.com/lamvh/estate-harvester/internal/publisher/memory"
	pubPubsub "github.com/lamvh/estate-harvester/internal/publisher/pubsub"
	pubRabbit "github.com/lamvh/estate-harvester/internal/publisher/rabbit"
	"github.com/lamvh/estate-harvester/internal/scraper"
	"github.com/lamvh/estate-harvester/internal/sources"
	storeMemory "github.com/lamvh/estate-harvester/internal/store/memory"
	storePostgres "github.com/lamvh/estate-harvester/internal/store/postgres"
	"github.com/lamvh/estate-harvester/internal/telemetry"
)

// closeTimeout bounds how long shutdown waits on external services.
const closeTimeout = 10 * time.Second

// App holds the wired services for one harvester process. Construction fails
// fast: a provider that cannot be reached at startup is a startup error, not
// a degraded run later.
type App struct {
	Orchestrator *scraper.Orchestrator

	cfg       config.Config
	logger    *zap.Logger
	renderer  *headless.Renderer
	publisher scraper.Publisher
	pgStore   *storePostgres.Store
	gcsArch   *archGCS.Archiver
	telemetry func(context.Context) error
}

// New builds the store, publisher, archiver and sources the configuration
// asks for, registers the enabled sources on a fresh orchestrator, and
// starts the scheduler when configured to.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	a := &App{cfg: cfg, logger: logger}

	traceProv, meterProv, err := telemetry.Init(ctx, cfg.App)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	a.telemetry = func(ctx context.Context) error {
		if traceProv != nil {
			if err := traceProv.Shutdown(ctx); err != nil {
				return err
			}
		}
		if meterProv != nil {
			return meterProv.Shutdown(ctx)
		}
		return nil
	}

	store, err := a.buildStore(ctx)
	if err != nil {
		return nil, err
	}
	pub, err := a.buildPublisher(ctx)
	if err != nil {
		return nil, err
	}
	archiver, err := a.buildArchiver(ctx)
	if err != nil {
		return nil, err
	}

	orch, err := scraper.NewOrchestrator(store, pub, system.New(), uuid.New(), logger)
	if err != nil {
		return nil, err
	}
	a.Orchestrator = orch

	if err := a.registerSources(archiver); err != nil {
		return nil, err
	}

	if cfg.Scraper.ScheduleOnStart {
		orch.StartScheduler(cfg.ScrapeInterval(), cfg.Scraper.MaxPagesDefault)
	}

	logger.Info("harvester services initialized",
		zap.String("database", cfg.Database.Provider),
		zap.String("publisher", cfg.Publisher.Provider),
		zap.String("archive", cfg.Archive.Provider),
		zap.Strings("sources", cfg.Sources.Enabled))
	return a, nil
}

func (a *App) buildStore(ctx context.Context) (scraper.Store, error) {
	switch a.cfg.Database.Provider {
	case "memory":
		a.logger.Info("using in-memory listing store; data is lost on restart")
		return storeMemory.NewStore(), nil
	case "postgres":
		a.logger.Info("connecting to postgres")
		st, err := storePostgres.New(ctx, storePostgres.Config{
			DSN:             a.cfg.Database.DSN,
			ListingsTable:   a.cfg.Database.ListingsTable,
			RunsTable:       a.cfg.Database.RunsTable,
			MaxConns:        int32(a.cfg.Database.MaxConns),
			MinConns:        int32(a.cfg.Database.MinConns),
			MaxConnLifetime: a.cfg.ConnLifetime(),
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		a.pgStore = st
		return st, nil
	default:
		return nil, fmt.Errorf("unknown database provider: %s", a.cfg.Database.Provider)
	}
}

func (a *App) buildPublisher(ctx context.Context) (scraper.Publisher, error) {
	switch a.cfg.Publisher.Provider {
	case "none":
		// The orchestrator substitutes its no-op publisher for nil.
		return nil, nil
	case "memory":
		a.publisher = pubMemory.New()
	case "pubsub":
		a.logger.Info("connecting to pub/sub",
			zap.String("project", a.cfg.Publisher.ProjectID),
			zap.String("topic", a.cfg.Publisher.TopicName))
		p, err := pubPubsub.NewFromProject(ctx, a.cfg.Publisher.ProjectID, a.cfg.Publisher.TopicName, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init pubsub publisher: %w", err)
		}
		a.publisher = p
	case "rabbit":
		a.logger.Info("connecting to rabbitmq", zap.String("exchange", a.cfg.Publisher.Exchange))
		p, err := pubRabbit.New(pubRabbit.Config{
			URL:        a.cfg.Publisher.URL,
			Exchange:   a.cfg.Publisher.Exchange,
			RoutingKey: a.cfg.Publisher.RoutingKey,
		}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init rabbit publisher: %w", err)
		}
		a.publisher = p
	default:
		return nil, fmt.Errorf("unknown publisher provider: %s", a.cfg.Publisher.Provider)
	}
	return a.publisher, nil
}

func (a *App) buildArchiver(ctx context.Context) (scraper.Archiver, error) {
	switch a.cfg.Archive.Provider {
	case "none":
		// Sources treat a nil archiver as "keep no snapshots".
		return nil, nil
	case "memory":
		return archMemory.New(), nil
	case "local":
		arch, err := archLocal.New(a.cfg.Archive.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("init local archive: %w", err)
		}
		return arch, nil
	case "gcs":
		a.logger.Info("connecting to gcs archive", zap.String("bucket", a.cfg.Archive.GCSBucket))
		arch, err := archGCS.New(ctx, a.cfg.Archive.GCSBucket, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init gcs archive: %w", err)
		}
		a.gcsArch = arch
		return arch, nil
	default:
		return nil, fmt.Errorf("unknown archive provider: %s", a.cfg.Archive.Provider)
	}
}

// registerSources resolves the enabled source names and registers one Source
// per name. The renderer and the HTTP client are only built when a source
// actually needs them, so an API-only deployment never launches a browser.
func (a *App) registerSources(archiver scraper.Archiver) error {
	cfgs := make([]scraper.SourceConfig, 0, len(a.cfg.Sources.Enabled))
	needRenderer, needClient := false, false
	for _, name := range a.cfg.Sources.Enabled {
		sc, ok := sources.ByName(name, a.cfg.Sources.ChototRegion, a.cfg.Sources.ChototCategory)
		if !ok {
			return fmt.Errorf("unknown source %q (known: %v)", name, sources.Names())
		}
		if sc.APIEndpoint != "" {
			needClient = true
		} else {
			needRenderer = true
		}
		cfgs = append(cfgs, sc)
	}

	if needRenderer {
		r, err := headless.New(headless.Config{
			MaxParallel:       a.cfg.Headless.MaxParallel,
			UserAgent:         a.cfg.Scraper.UserAgent,
			NavigationTimeout: a.cfg.NavTimeout(),
			MaxRPS:            a.cfg.Headless.MaxRPS,
			Burst:             a.cfg.Headless.Burst,
		}, a.logger)
		if err != nil {
			return fmt.Errorf("init renderer: %w", err)
		}
		a.renderer = r
	}
	var client *collyfetcher.Client
	if needClient {
		client = collyfetcher.New(collyfetcher.Config{
			UserAgent: a.cfg.Scraper.UserAgent,
			Timeout:   a.cfg.HTTPTimeout(),
		}, a.logger)
	}

	robots := scraper.NewRobotsGate(a.cfg.Scraper.RespectRobots, a.cfg.Scraper.UserAgent, a.logger)
	hasher := sha256.New()
	clk := system.New()

	for _, sc := range cfgs {
		var (
			src scraper.Source
			err error
		)
		if sc.APIEndpoint != "" {
			src, err = scraper.NewAPISource(sc, a.logger, client, robots, archiver, hasher, clk)
		} else {
			src, err = scraper.NewDOMSource(sc, a.logger, a.renderer, robots, archiver, hasher, clk)
		}
		if err != nil {
			return fmt.Errorf("build source %s: %w", sc.Name, err)
		}
		a.Orchestrator.Register(src)
	}
	return nil
}

// Close shuts the services down: scheduler first so no new run starts, then
// the browser, the publisher, the store and the archive. A run already in
// flight is abandoned with the process.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if a.Orchestrator != nil && a.Orchestrator.SchedulerActive() {
		a.Orchestrator.StopScheduler()
	}
	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("closing publisher", zap.Error(err))
		}
	}
	a.pgStore.Close()
	if err := a.gcsArch.Close(); err != nil {
		a.logger.Warn("closing gcs archive", zap.Error(err))
	}
	if a.telemetry != nil {
		if err := a.telemetry(ctx); err != nil {
			a.logger.Warn("shutting down telemetry", zap.Error(err))
		}
	}
	a.logger.Info("harvester services shut down")
}
