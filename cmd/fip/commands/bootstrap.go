package commands

import (
	"fmt"

	"github.com/wonny/fip/internal/contracts"
	"github.com/wonny/fip/internal/pipeline"
	"github.com/wonny/fip/internal/pricestore"
	"github.com/wonny/fip/internal/scorecache"
	"github.com/wonny/fip/internal/scoring"
	"github.com/wonny/fip/internal/strategy"
	"github.com/wonny/fip/pkg/config"
	"github.com/wonny/fip/pkg/database"
	"github.com/wonny/fip/pkg/logger"
	"github.com/wonny/fip/pkg/redis"
)

// app bundles everything a command needs: config, logging, storage, and the
// fully wired scoring stack.
type app struct {
	cfg    *config.Config
	logger *logger.Logger
	db     *database.DB
	redis  *redis.Client

	store    contracts.PriceStore
	repo     contracts.ScoreRepository
	cache    *scorecache.Cache
	engine   *scoring.Engine
	registry *strategy.Registry
	executor *pipeline.Executor
	events   *pipeline.Broadcaster
}

// newApp loads config and wires the full stack against PostgreSQL and Redis.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, running without universe cache")
		redisClient = redis.Disabled()
	}

	var universeCache *redis.Cache
	if redisClient.Enabled() {
		universeCache = redis.NewCache(redisClient, "fip")
	}

	store := pricestore.NewBoundedStore(
		pricestore.NewPostgresStore(db.Pool, universeCache, log),
		cfg.Engine.PriceStoreRate,
		cfg.Engine.ScoreTimeout,
	)

	repo := scorecache.NewRepository(db.Pool)
	cache := scorecache.New(repo, store, cfg.Engine.CacheWaitTimeout, log)
	engine := scoring.NewEngine(scoring.DefaultWeights(), log)

	registry := strategy.NewRegistry(strategy.Deps{
		Store:       store,
		Cache:       cache,
		Engine:      engine,
		Concurrency: cfg.Engine.StageConcurrency,
		Logger:      log,
	})

	events := pipeline.NewBroadcaster()
	executor := pipeline.NewExecutor(registry, store, events, log)

	return &app{
		cfg:      cfg,
		logger:   log,
		db:       db,
		redis:    redisClient,
		store:    store,
		repo:     repo,
		cache:    cache,
		engine:   engine,
		registry: registry,
		executor: executor,
		events:   events,
	}, nil
}

// Close releases database and Redis connections.
func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
