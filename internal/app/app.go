// Package app assembles the service: storage, cache, resolvers, queue
// runtime, and workers, constructed once and injected explicitly. Nothing
// here is a global except the shared logger.
package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/satchel/internal/common"
	"github.com/ternarybob/satchel/internal/interfaces"
	"github.com/ternarybob/satchel/internal/models"
	"github.com/ternarybob/satchel/internal/queue"
	"github.com/ternarybob/satchel/internal/services/archive"
	"github.com/ternarybob/satchel/internal/services/billing"
	"github.com/ternarybob/satchel/internal/services/cache"
	"github.com/ternarybob/satchel/internal/services/embed"
	"github.com/ternarybob/satchel/internal/services/metadata"
	badgerstore "github.com/ternarybob/satchel/internal/storage/badger"
	"github.com/ternarybob/satchel/internal/workers"
)

// App owns every long-lived component and their shutdown order.
type App struct {
	Config  *common.Config
	Logger  arbor.ILogger
	Storage interfaces.StorageManager

	Cache     *cache.Service
	Metadata  *metadata.Resolver
	Archives  *archive.Extractor
	Embeds    *embed.Resolver
	Queue     *queue.Manager
	Pool      *queue.WorkerPool
	Retention *queue.Retention
	Webhooks  *billing.Service
}

// New wires the application from configuration.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	storage, err := badgerstore.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	cacheService := cache.NewService(storage.CacheStorage(), logger)

	metadataClient, err := metadata.NewClient(cfg.Resolver, logger)
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("failed to create metadata client: %w", err)
	}
	metadataResolver := metadata.NewResolver(metadataClient, cacheService, logger)

	extractor := archive.NewExtractor(cfg.Archive, metadataResolver, cacheService, logger)

	providers, err := embed.LoadProviders(cfg.Embed.ProvidersFile)
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("failed to load oembed providers: %w", err)
	}
	embedResolver := embed.NewResolver(cfg.Embed, providers, cacheService, logger)

	queueManager := queue.NewManager(storage.JobStorage(), cfg, queue.Hooks{}, logger)
	pool := queue.NewWorkerPool(queueManager, storage.JobStorage(), cfg, logger)
	retention := queue.NewRetention(queueManager, storage.JobStorage(), cfg, logger)
	webhooks := billing.NewService(storage.WebhookStorage(), queueManager, logger)

	bookmarkWorker := workers.NewBookmarkWorker(queueManager, embedResolver, logger)
	episodeWorker := workers.NewEpisodeWorker(metadataResolver, storage.EpisodeStorage(), cacheService, logger)
	archiveWorker := workers.NewArchiveWorker(extractor, storage.ArchiveStorage(), logger)
	subscriptionWorker := workers.NewSubscriptionWorker(billing.NewLogClient(logger), logger)
	tokenWorker := workers.NewTokenCleanupWorker(storage.TokenStorage(), logger)

	pool.RegisterHandler(models.QueueResolveBookmark, bookmarkWorker.Handle)
	pool.RegisterHandler(models.QueueResolveEpisode, episodeWorker.Handle)
	pool.RegisterHandler(models.QueueResolveArchive, archiveWorker.Handle)
	pool.RegisterHandler(models.QueueSyncSubscription, subscriptionWorker.Handle)
	pool.RegisterHandler(models.QueueCleanupAuthTokens, tokenWorker.Handle)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Storage:   storage,
		Cache:     cacheService,
		Metadata:  metadataResolver,
		Archives:  extractor,
		Embeds:    embedResolver,
		Queue:     queueManager,
		Pool:      pool,
		Retention: retention,
		Webhooks:  webhooks,
	}, nil
}

// Start launches the worker pool and retention scheduler.
func (a *App) Start() error {
	if err := a.Pool.Start(); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}
	if err := a.Retention.Start(); err != nil {
		return fmt.Errorf("failed to start retention scheduler: %w", err)
	}
	a.Logger.Info().Str("environment", a.Config.Environment).Msg("Satchel started")
	return nil
}

// Stop shuts components down in reverse dependency order.
func (a *App) Stop() {
	a.Retention.Stop()
	a.Pool.Stop()
	if err := a.Storage.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Storage close failed")
	}
	a.Logger.Info().Msg("Satchel stopped")
}

// Summary reports per-queue job counts for health introspection.
func (a *App) Summary(ctx context.Context) ([]queue.QueueSummary, error) {
	return a.Queue.Summary(ctx, []string{
		models.QueueResolveBookmark,
		models.QueueResolveEpisode,
		models.QueueResolveArchive,
		models.QueueSyncSubscription,
		models.QueueCleanupAuthTokens,
	})
}
