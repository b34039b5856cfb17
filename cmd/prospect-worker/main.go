// prospect-worker runs campaign jobs from the durable queue. Multiple
// instances can run side by side; each executes at most Concurrency
// campaigns at a time and the queue spreads the load.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	apiserver "github.com/prospectgrid/prospectgrid/internal/api_server"
	"github.com/prospectgrid/prospectgrid/internal/cache"
	"github.com/prospectgrid/prospectgrid/internal/config"
	"github.com/prospectgrid/prospectgrid/internal/imagery"
	"github.com/prospectgrid/prospectgrid/internal/jobs"
	"github.com/prospectgrid/prospectgrid/internal/notify"
	"github.com/prospectgrid/prospectgrid/internal/pipeline"
	"github.com/prospectgrid/prospectgrid/internal/ratelimit"
	"github.com/prospectgrid/prospectgrid/internal/resolver"
	"github.com/prospectgrid/prospectgrid/internal/scoring"
	"github.com/prospectgrid/prospectgrid/internal/store"
	"github.com/prospectgrid/prospectgrid/pkg/log"
	"github.com/prospectgrid/prospectgrid/pkg/migrations"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		panic(err)
	}

	logger := log.InitLog(log.Level(cfg.Service.LogLevel))
	defer func() { _ = logger.Sync() }()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	zap.S().Info("Starting worker service")
	defer zap.S().Info("Worker service stopped")

	db, err := store.InitDB(cfg)
	if err != nil {
		zap.S().Fatalf("initializing data store: %v", err)
	}

	s := store.NewStore(db)
	defer s.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	pool, err := apiserver.NewPgxPool(ctx, cfg)
	if err != nil {
		zap.S().Fatalf("creating pgx pool: %v", err)
	}
	defer pool.Close()

	if err := s.InitialMigration(); err != nil {
		zap.S().Fatalf("running initial migration: %v", err)
	}
	if err := migrations.MigrateStore(db, cfg.Service.MigrationFolder, pool); err != nil {
		zap.S().Fatalf("running migrations: %v", err)
	}

	redisCache := cache.New(ctx, cfg.Redis.URL)

	processor := jobs.NewProcessor(
		s,
		buildPipeline(cfg, redisCache),
		notify.New(cfg.Service.NotifyWebhook),
		cfg.Worker.PipelineWorkers,
	)

	client, err := jobs.NewClient(
		pool,
		processor,
		cfg.Worker.Concurrency,
		time.Duration(cfg.Worker.JobTimeoutMin)*time.Minute,
	)
	if err != nil {
		zap.S().Fatalf("creating job client: %v", err)
	}

	// pick up campaigns orphaned by a previous crash before taking new work
	if err := jobs.RecoverOrphanedCampaigns(ctx, s, client); err != nil {
		zap.S().Errorf("recovery scan failed: %v", err)
	}

	if err := client.Start(ctx); err != nil {
		zap.S().Fatalf("starting job client: %v", err)
	}
	zap.S().Infof("Worker pool started with %d campaign slots", cfg.Worker.Concurrency)

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Worker.StopTimeoutSec)*time.Second,
	)
	defer stopCancel()
	if err := client.Stop(stopCtx); err != nil {
		zap.S().Warnf("job client did not stop cleanly: %v", err)
	}
}

// buildPipeline assembles the per-property pipeline with its collaborators.
func buildPipeline(cfg *config.Config, redisCache *cache.Cache) *pipeline.Pipeline {
	resolverBackoff := ratelimit.Backoff{
		Base: time.Duration(cfg.Worker.ResolverDelayMs) * time.Millisecond,
		Cap:  time.Duration(cfg.Worker.ResolverCapMs) * time.Millisecond,
	}
	cachedResolver := resolver.NewCachedResolver(
		resolver.NewGoogleResolver(cfg.Google.APIKey, cfg.Google.GeocodeURL),
		redisCache,
		resolverBackoff,
		cfg.Worker.ResolverRetries,
	)

	fetcher := imagery.NewFetcher(
		imagery.NewGoogleProvider(cfg.Google.APIKey, cfg.Google.StreetViewURL),
		redisCache,
		cfg.Google.MultiAngle,
		ratelimit.Backoff{
			Base: time.Duration(cfg.Worker.ImageryDelayMs) * time.Millisecond,
			Cap:  time.Duration(cfg.Worker.ImageryCapMs) * time.Millisecond,
		},
		cfg.Worker.ImageryRetries,
	)

	minDelay := time.Duration(cfg.Scoring.MinDelayMs) * time.Millisecond
	var limiter ratelimit.Limiter = ratelimit.NewLocal(minDelay)
	if redisCache.Enabled() {
		// shared token keeps the aggregate call rate flat across workers
		limiter = ratelimit.NewShared(redisCache.Client(), minDelay)
	}

	scoringBackoff := ratelimit.Backoff{
		Base: time.Duration(cfg.Scoring.BackoffMs) * time.Millisecond,
		Cap:  time.Duration(cfg.Scoring.BackoffCapMs) * time.Millisecond,
	}
	scorer := scoring.NewClient(
		scoring.NewGeminiBackend(cfg.Scoring.APIKey, cfg.Scoring.Endpoint, cfg.Scoring.Model),
		limiter,
		scoringBackoff,
		cfg.Scoring.MaxRetries,
	)

	return pipeline.New(cachedResolver, fetcher, scorer)
}
