package di

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	acquisitionRepo "github.com/reshetovitsme/streamer-census/internal/modules/acquisition/repository"
	acquisitionService "github.com/reshetovitsme/streamer-census/internal/modules/acquisition/service"
	cacheRepo "github.com/reshetovitsme/streamer-census/internal/modules/cache/repository"
	cacheService "github.com/reshetovitsme/streamer-census/internal/modules/cache/service"
	channelRepo "github.com/reshetovitsme/streamer-census/internal/modules/channel/repository"
	channelService "github.com/reshetovitsme/streamer-census/internal/modules/channel/service"
	classifyDomain "github.com/reshetovitsme/streamer-census/internal/modules/classify/domain"
	classifyService "github.com/reshetovitsme/streamer-census/internal/modules/classify/service"
	feedService "github.com/reshetovitsme/streamer-census/internal/modules/feed/service"
	quotaRepo "github.com/reshetovitsme/streamer-census/internal/modules/quota/repository"
	quotaService "github.com/reshetovitsme/streamer-census/internal/modules/quota/service"
	seenRepo "github.com/reshetovitsme/streamer-census/internal/modules/seen/repository"
	seenService "github.com/reshetovitsme/streamer-census/internal/modules/seen/service"
	userRepo "github.com/reshetovitsme/streamer-census/internal/modules/user/repository"
	userService "github.com/reshetovitsme/streamer-census/internal/modules/user/service"
	"github.com/reshetovitsme/streamer-census/internal/modules/youtube/client"
	youtubeDomain "github.com/reshetovitsme/streamer-census/internal/modules/youtube/domain"
	youtubeService "github.com/reshetovitsme/streamer-census/internal/modules/youtube/service"
	"github.com/reshetovitsme/streamer-census/internal/shared/config"
	"github.com/reshetovitsme/streamer-census/internal/shared/logging"
	"github.com/reshetovitsme/streamer-census/internal/shared/metrics"
	"github.com/reshetovitsme/streamer-census/internal/shared/retry"
	"github.com/reshetovitsme/streamer-census/internal/shared/sqlitedb"
	httpServer "github.com/reshetovitsme/streamer-census/internal/transport/http"
	"github.com/reshetovitsme/streamer-census/internal/transport/telegram"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
)

// Cache namespaces over the shared durable tier.
const (
	NamespaceSearch = "search"
	NamespaceDetail = "detail"
	NamespaceVideos = "videos"
)

// lifecycle collects cleanup hooks of the components that were actually
// built. Hooks run in reverse registration order.
type lifecycle struct {
	mu    sync.Mutex
	hooks []hook
}

type hook struct {
	name string
	fn   func(ctx context.Context) error
}

func (l *lifecycle) add(name string, fn func(ctx context.Context) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, hook{name: name, fn: fn})
}

func (l *lifecycle) closer(name string, c interface{ Close() error }) {
	l.add(name, func(context.Context) error { return c.Close() })
}

func (l *lifecycle) run(ctx context.Context, logger *slog.Logger) error {
	l.mu.Lock()
	hooks := slices.Clone(l.hooks)
	l.hooks = nil
	l.mu.Unlock()

	var errs []error
	for _, h := range slices.Backward(hooks) {
		if err := h.fn(ctx); err != nil {
			logger.Error("shutdown step failed", "step", h.name, "error", err)
			errs = append(errs, oops.With("step", h.name).Wrap(err))
		}
	}
	return stderrors.Join(errs...)
}

// Setup initializes the dependency injection container. name prefixes the
// daily log file.
func Setup(name string) (do.Injector, error) {
	injector := do.New()
	hooks := &lifecycle{}
	do.ProvideValue(injector, hooks)

	// Register Config
	do.Provide(injector, func(i do.Injector) (*config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, oops.With("context", "failed to load config").Wrap(err)
		}
		return cfg, nil
	})

	// Register Logger
	do.Provide(injector, func(i do.Injector) (*slog.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		logger, closer, err := logging.New(cfg.Log.Level, cfg.Log.Dir, name)
		if err != nil {
			return nil, oops.With("log_dir", cfg.Log.Dir, "context", "failed to initialize logging").Wrap(err)
		}
		hooks.closer("log file", closer)
		return logger, nil
	})

	// Register Metrics
	do.Provide(injector, func(i do.Injector) (*metrics.Metrics, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return metrics.New(cfg.AppEnv.String()), nil
	})

	// Register SQLite database
	do.Provide(injector, func(i do.Injector) (*sql.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		db, err := sqlitedb.Open(context.Background(), cfg.Storage.Path)
		if err != nil {
			return nil, oops.With("storage_path", cfg.Storage.Path, "context", "failed to open database").Wrap(err)
		}
		hooks.closer("sqlite", db)
		return db, nil
	})

	// Register Quota Ledger
	do.Provide(injector, func(i do.Injector) (*quotaService.Ledger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := quotaRepo.NewFileStorage(cfg.Storage.Path)
		if err != nil {
			return nil, oops.With("storage_path", cfg.Storage.Path, "context", "failed to initialize quota repository").Wrap(err)
		}
		ledger, err := quotaService.New(repo, quotaService.Options{
			DailyLimit:   cfg.Quota.DailyLimit,
			SafetyBuffer: cfg.Quota.SafetyBuffer,
			WarnRatio:    cfg.Quota.WarnRatio,
			Location:     cfg.Location(),
		}, do.MustInvoke[*slog.Logger](i), do.MustInvoke[*metrics.Metrics](i))
		if err != nil {
			return nil, err
		}
		hooks.add("quota ledger", func(context.Context) error { return ledger.Save() })
		return ledger, nil
	})

	// Register Cache Repository
	do.Provide(injector, func(i do.Injector) (cacheRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		var (
			repo cacheRepo.Repository
			err  error
		)
		switch cfg.Cache.Backend {
		case config.CacheBackendRedis:
			repo, err = cacheRepo.NewRedisStorage(context.Background(), cfg.Cache.RedisURL)
		default:
			repo, err = cacheRepo.NewFileStorage(cfg.Storage.Path, cfg.Cache.FlushEvery)
		}
		if err != nil {
			return nil, oops.With("backend", cfg.Cache.Backend, "context", "failed to initialize cache repository").Wrap(err)
		}
		hooks.closer("cache repository", repo)
		return repo, nil
	})

	// Register response caches
	do.Provide(injector, func(i do.Injector) (youtubeService.Caches, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[cacheRepo.Repository](i)
		logger := do.MustInvoke[*slog.Logger](i)
		m := do.MustInvoke[*metrics.Metrics](i)

		newCache := func(namespace string) *cacheService.Cache {
			return cacheService.New(repo, cacheService.Options{
				Namespace:    namespace,
				TTL:          cfg.Cache.TTL,
				CompactEvery: cfg.Cache.CompactEvery,
			}, logger.With("cache", namespace), m)
		}
		caches := youtubeService.Caches{
			Search: newCache(NamespaceSearch),
			Detail: newCache(NamespaceDetail),
			Videos: newCache(NamespaceVideos),
		}
		// namespaces share repo, one flush covers all of them
		hooks.add("response cache", caches.Search.Flush)
		return caches, nil
	})

	// Register Seen Store
	do.Provide(injector, func(i do.Injector) (*seenService.Store, error) {
		cfg := do.MustInvoke[*config.Config](i)
		var (
			repo seenRepo.Repository
			err  error
		)
		if cfg.Storage.Driver == config.StorageDriverFile {
			repo, err = seenRepo.NewFileStorage(cfg.Storage.Path)
		} else {
			repo, err = seenRepo.NewSQLiteStorage(context.Background(), do.MustInvoke[*sql.DB](i))
		}
		if err != nil {
			return nil, oops.With("driver", cfg.Storage.Driver, "context", "failed to initialize seen repository").Wrap(err)
		}
		hooks.closer("seen repository", repo)

		store, err := seenService.New(context.Background(), repo, do.MustInvoke[*slog.Logger](i))
		if err != nil {
			return nil, err
		}
		hooks.add("seen store", store.Flush)
		return store, nil
	})

	// Register YouTube Client
	do.Provide(injector, func(i do.Injector) (*youtubeService.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if err := cfg.RequireCredentials(); err != nil {
			return nil, err
		}
		api := client.NewDataAPI(client.Options{
			BaseURL:    cfg.YouTube.BaseURL,
			RegionCode: cfg.YouTube.RegionCode,
			Language:   cfg.YouTube.Language,
			Timeout:    cfg.YouTube.Timeout,
		})
		retryCfg := retry.Default
		retryCfg.MaxRetries = cfg.YouTube.MaxRetries

		return youtubeService.New(
			api,
			do.MustInvoke[*quotaService.Ledger](i),
			do.MustInvoke[youtubeService.Caches](i),
			cfg.YouTube.APIKeys,
			youtubeService.Options{
				Costs: youtubeDomain.Costs{
					Search:   cfg.Costs.Search,
					Detail:   cfg.Costs.Detail,
					SubItems: cfg.Costs.SubItems,
				},
				Retry:             retryCfg,
				Timeout:           cfg.YouTube.Timeout,
				RequestsPerSecond: cfg.YouTube.RequestsPerSecond,
			},
			do.MustInvoke[*slog.Logger](i),
			do.MustInvoke[*metrics.Metrics](i),
		)
	})

	// Register Lexicon
	do.Provide(injector, func(i do.Injector) (*classifyDomain.Lexicon, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.Classify.LexiconFile == "" {
			return classifyDomain.DefaultLexicon()
		}
		lex, err := classifyDomain.LoadLexicon(cfg.Classify.LexiconFile)
		if err != nil {
			return nil, oops.With("lexicon_file", cfg.Classify.LexiconFile).Wrap(err)
		}
		return lex, nil
	})

	// Register Classification Pipeline
	do.Provide(injector, func(i do.Injector) (*classifyService.Pipeline, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return classifyService.New(do.MustInvoke[*classifyDomain.Lexicon](i), classifyService.Options{
			MinConfidence: cfg.Classify.MinConfidence,
			MinLiveness:   cfg.Classify.MinLiveness,
			SampleSize:    cfg.Classify.SampleSize,
		}, do.MustInvoke[*slog.Logger](i))
	})

	// Register Channel Repository
	do.Provide(injector, func(i do.Injector) (channelRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		var (
			repo channelRepo.Repository
			err  error
		)
		switch cfg.Storage.Driver {
		case config.StorageDriverFile:
			repo, err = channelRepo.NewFileStorage(cfg.Storage.Path)
		case config.StorageDriverPostgres:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			repo, err = channelRepo.NewPostgresStorage(ctx, cfg.Storage.PostgresDSN)
		default:
			repo, err = channelRepo.NewSQLiteStorage(context.Background(), do.MustInvoke[*sql.DB](i))
		}
		if err != nil {
			return nil, oops.With("driver", cfg.Storage.Driver, "context", "failed to initialize channel repository").Wrap(err)
		}
		return repo, nil
	})

	// Register Channel Service
	do.Provide(injector, func(i do.Injector) (*channelService.Service, error) {
		svc := channelService.New(do.MustInvoke[channelRepo.Repository](i), do.MustInvoke[*slog.Logger](i))
		hooks.closer("channel store", svc)
		return svc, nil
	})

	// Register Searches Log
	do.Provide(injector, func(i do.Injector) (acquisitionRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		var (
			repo acquisitionRepo.Repository
			err  error
		)
		if cfg.Storage.Driver == config.StorageDriverFile {
			repo, err = acquisitionRepo.NewFileStorage(cfg.Storage.Path)
		} else {
			repo, err = acquisitionRepo.NewSQLiteStorage(context.Background(), do.MustInvoke[*sql.DB](i))
		}
		if err != nil {
			return nil, oops.With("driver", cfg.Storage.Driver, "context", "failed to initialize searches log").Wrap(err)
		}
		hooks.closer("searches log", repo)
		return repo, nil
	})

	// Register Acquisition Engine
	do.Provide(injector, func(i do.Injector) (*acquisitionService.Engine, error) {
		cfg := do.MustInvoke[*config.Config](i)
		yt, err := do.Invoke[*youtubeService.Client](i)
		if err != nil {
			return nil, err
		}
		deps := acquisitionService.Deps{
			Client:     yt,
			Classifier: do.MustInvoke[*classifyService.Pipeline](i),
			Seen:       do.MustInvoke[*seenService.Store](i),
			Sink:       do.MustInvoke[*channelService.Service](i),
			Quota:      do.MustInvoke[*quotaService.Ledger](i),
			Searches:   do.MustInvoke[acquisitionRepo.Repository](i),
		}
		return acquisitionService.New(deps, acquisitionService.Options{
			ReserveFloor:     cfg.Acquisition.ReserveFloor,
			MinSubscribers:   cfg.Acquisition.MinSubscribers,
			SampleSize:       cfg.Classify.SampleSize,
			DescriptionLimit: cfg.Acquisition.DescriptionLimit,
			SaveEvery:        cfg.Storage.SaveEvery,
		}, do.MustInvoke[*slog.Logger](i), do.MustInvoke[*metrics.Metrics](i)), nil
	})

	// Register Feed Service
	do.Provide(injector, func(i do.Injector) (*feedService.Service, error) {
		return feedService.New(do.MustInvoke[*channelService.Service](i)), nil
	})

	// Register User Service
	do.Provide(injector, func(i do.Injector) (*userService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		var (
			repo userRepo.Repository
			err  error
		)
		if cfg.Storage.Driver == config.StorageDriverFile {
			repo, err = userRepo.NewFileStorage(cfg.Storage.Path)
		} else {
			repo, err = userRepo.NewSQLiteStorage(context.Background(), do.MustInvoke[*sql.DB](i))
		}
		if err != nil {
			return nil, oops.With("storage_path", cfg.Storage.Path, "context", "failed to initialize user repository").Wrap(err)
		}
		return userService.New(repo), nil
	})

	// Register HTTP Server
	do.Provide(injector, func(i do.Injector) (*httpServer.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return httpServer.New(
			cfg.HTTP.Port,
			do.MustInvoke[*channelService.Service](i),
			do.MustInvoke[*feedService.Service](i),
			do.MustInvoke[*quotaService.Ledger](i),
			do.MustInvoke[acquisitionRepo.Repository](i),
			do.MustInvoke[*metrics.Metrics](i),
			do.MustInvoke[*slog.Logger](i),
		), nil
	})

	// Register Telegram Handler
	do.Provide(injector, func(i do.Injector) (*telegram.Handler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return telegram.New(
			cfg.Telegram.AllowedUsers,
			do.MustInvoke[*channelService.Service](i),
			do.MustInvoke[*quotaService.Ledger](i),
			do.MustInvoke[*userService.Service](i),
			do.MustInvoke[*slog.Logger](i),
		), nil
	})

	// Register Bot. Callers check telegram.bot_token before invoking it.
	do.Provide(injector, func(i do.Injector) (*bot.Bot, error) {
		cfg := do.MustInvoke[*config.Config](i)
		handler := do.MustInvoke[*telegram.Handler](i)

		opts := []bot.Option{
			bot.WithDefaultHandler(handler.HandleUpdate),
		}
		if cfg.Telegram.APIURL != "" {
			opts = append(opts, bot.WithServerURL(cfg.Telegram.APIURL))
		}

		b, err := bot.New(cfg.Telegram.BotToken, opts...)
		if err != nil {
			return nil, oops.With("context", "failed to create telegram bot").Wrap(err)
		}
		handler.RegisterCommands(b)
		return b, nil
	})

	// Register Summary Notifier. Without a bot token it is a no-op.
	do.Provide(injector, func(i do.Injector) (*telegram.Notifier, error) {
		cfg := do.MustInvoke[*config.Config](i)
		logger := do.MustInvoke[*slog.Logger](i)
		if cfg.Telegram.BotToken == "" {
			return nil, nil
		}
		b, err := do.Invoke[*bot.Bot](i)
		if err != nil {
			return nil, err
		}
		return telegram.NewNotifier(b, cfg.Telegram.ChatID, do.MustInvoke[*userService.Service](i), logger), nil
	})

	return injector, nil
}

// Shutdown flushes buffered state and closes connections of every
// component that was built. Servers are stopped by their owners first.
func Shutdown(injector do.Injector) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hooks, err := do.Invoke[*lifecycle](injector)
	if err != nil {
		return err
	}
	return hooks.run(ctx, slog.Default())
}
