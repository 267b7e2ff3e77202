package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/keepmark/internal/config"
	"github.com/MrSnakeDoc/keepmark/internal/domain"
	"github.com/MrSnakeDoc/keepmark/internal/httpserver"
	"github.com/MrSnakeDoc/keepmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/keepmark/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/keepmark/internal/identity"
	"github.com/MrSnakeDoc/keepmark/internal/logger"
	"github.com/MrSnakeDoc/keepmark/internal/metadata"
	"github.com/MrSnakeDoc/keepmark/internal/metrics"
	"github.com/MrSnakeDoc/keepmark/internal/redis"
	"github.com/MrSnakeDoc/keepmark/internal/scheduler"
	badgerstore "github.com/MrSnakeDoc/keepmark/internal/store/badger"
	"github.com/MrSnakeDoc/keepmark/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/keepmark/internal/store/redis"
	"github.com/MrSnakeDoc/keepmark/internal/version"
	"github.com/MrSnakeDoc/keepmark/internal/view"
)

// badgerGCInterval is how often the badger value log is compacted.
const badgerGCInterval = 10 * time.Minute

type App struct {
	cfg           *config.Config
	logger        logger.Logger
	server        *httpserver.Server
	redisClient   *goredis.Client
	badger        *badgerstore.Store
	tokenReloader *scheduler.TokenReloader
	sweeper       *scheduler.IndexSweeper
}

// storage is the repository selected by KEEPMARK_STORE.
type storage struct {
	repo   domain.Repository
	pinger domain.Pinger
	redis  *goredis.Client
	badger *badgerstore.Store
	sweep  scheduler.Sweeper
}

func openStorage(ctx context.Context, cfg *config.Config, log logger.Logger) (*storage, error) {
	switch cfg.Store {
	case config.StoreRedis:
		// Fail fast if redis never becomes reachable
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(ctx, redis.OptionsFromConfig(cfg), log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("Redis initialized successfully")

		store := redisstore.NewStore(client, log)
		return &storage{repo: store, pinger: store, redis: client, sweep: store}, nil

	case config.StoreBadger:
		store, err := badgerstore.Open(cfg.BadgerPath, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger at %s: %w", cfg.BadgerPath, err)
		}
		log.Info("Badger opened", logger.String("path", cfg.BadgerPath))
		return &storage{repo: store, pinger: store, badger: store}, nil

	default:
		log.Warn("using the in-memory store, bookmarks are lost on restart")
		return &storage{repo: memory.New()}, nil
	}
}

// New wires every component from cfg. Nothing is started yet.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	st, err := openStorage(ctx, cfg, loggerClient)
	if err != nil {
		return nil, err
	}

	m := metrics.New()

	extractor, err := metadata.NewExtractor(cfg.Extractor)
	if err != nil {
		return nil, err
	}
	fetcher := metadata.NewFetcher(extractor, loggerClient,
		metadata.WithTimeout(cfg.FetchTimeout),
		metadata.WithMaxBytes(cfg.FetchMaxBytes),
		metadata.WithUserAgent(cfg.UserAgent),
		metadata.WithFailureHook(m.ExtractionFailed),
	)

	svc := domain.NewService(st.repo, fetcher, loggerClient)

	list, err := view.New(handlers.OwnerDelete(svc, m), loggerClient,
		view.WithFaviconURL(cfg.FaviconURL))
	if err != nil {
		return nil, err
	}

	// Create manual reload trigger channel
	reloadTrigger := make(chan struct{}, 1)

	tokens := identity.NewTokenTable()
	tokenReloader := scheduler.NewTokenReloader(
		cfg.TokenFile,
		tokens,
		loggerClient,
		cfg.TokenReloadInterval,
		reloadTrigger,
	)
	tokenReloader.OnReload(m.TokensReloaded)

	var sweeper *scheduler.IndexSweeper
	if st.sweep != nil && cfg.SweepInterval > 0 {
		sweeper = scheduler.NewIndexSweeper(st.sweep, loggerClient, cfg.SweepInterval)
	}

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:        loggerClient,
		StartTime:     time.Now(),
		Version:       version.Version,
		Commit:        version.Commit,
		BuildDate:     version.BuildDate,
		GoVersion:     version.GoVersion,
		TimeNow:       time.Now,
		AllowedHosts:  cfg.AllowedHosts,
		AllowedCIDRS:  cfg.AllowedCIDRS,
		TrustProxy:    cfg.TrustProxy,
		Service:       svc,
		StoreName:     cfg.Store,
		Pinger:        st.pinger,
		Tokens:        tokens,
		View:          list,
		Metrics:       m,
		ReloadTrigger: reloadTrigger,
		CreateBurst:   cfg.CreateBurst,
		CreatePerMin:  cfg.CreatePerMin,
	}

	return &App{
		cfg:           cfg,
		logger:        loggerClient,
		server:        httpserver.New(cfg, loggerClient, d),
		redisClient:   st.redis,
		badger:        st.badger,
		tokenReloader: tokenReloader,
		sweeper:       sweeper,
	}, nil
}

func (a *App) Run(parent context.Context) error {
	a.logger.Infof("🚀 Starting keepmark %s on %s (store=%s)", version.Version, a.cfg.ListenAddr, a.cfg.Store)
	a.logger.Infof("keepmark %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load tokens before accepting requests
	if err := a.tokenReloader.Start(ctx); err != nil {
		a.closeStorage()
		return fmt.Errorf("failed to start token reloader: %w", err)
	}
	a.logger.Info("token reloader started",
		logger.String("file", a.cfg.TokenFile),
		logger.Duration("interval", a.cfg.TokenReloadInterval))

	if a.sweeper != nil {
		if err := a.sweeper.Start(ctx); err != nil {
			a.tokenReloader.Stop()
			a.closeStorage()
			return fmt.Errorf("failed to start index sweeper: %w", err)
		}
		a.logger.Info("index sweeper started",
			logger.Duration("interval", a.cfg.SweepInterval))
	}

	gcCtx, stopGC := context.WithCancel(ctx)
	defer stopGC()
	gcDone := make(chan struct{})
	go func() {
		defer close(gcDone)
		if a.badger != nil {
			a.badger.RunGC(gcCtx, badgerGCInterval)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	a.tokenReloader.Stop()
	if a.sweeper != nil {
		a.sweeper.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	// No GC pass may run against a closed database
	stopGC()
	<-gcDone
	a.closeStorage()

	if runErr == nil {
		a.logger.Info("✅ keepmark stopped cleanly")
	}
	_ = a.logger.Sync()
	return runErr
}

func (a *App) closeStorage() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	if a.badger != nil {
		if err := a.badger.Close(); err != nil {
			a.logger.Warnf("failed to close badger: %v", err)
		} else {
			a.logger.Info("✅ Badger closed cleanly")
		}
	}
}
