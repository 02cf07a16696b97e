package daemon

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/velorahq/crewchat/internal/bus"
	"github.com/velorahq/crewchat/internal/cache"
	"github.com/velorahq/crewchat/internal/command"
	"github.com/velorahq/crewchat/internal/config"
	"github.com/velorahq/crewchat/internal/lock"
	"github.com/velorahq/crewchat/internal/logging"
	"github.com/velorahq/crewchat/internal/rest"
	"github.com/velorahq/crewchat/internal/state"
	"github.com/velorahq/crewchat/internal/subscription"
	"github.com/velorahq/crewchat/internal/transport"
)

// Module returns the fx module for the sync daemon, composing all
// providers and lifecycle hooks.
func Module(cfg *config.Config) fx.Option {
	return fx.Module("daemon",
		fx.Supply(cfg),
		fx.Provide(
			provideLogger,
			provideBus,
			provideLock,
			provideCache,
			provideSyncStore,
			provideRestClient,
			provideTransport,
			provideCacheWriter,
			provideEventHandler,
			provideSubscriptionManager,
			provideCommands,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.LogPath(), cfg.UserID)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(cfg *config.Config, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring data dir lock", zap.String("dir", cfg.DataDir))
	l, err := lock.Acquire(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	logger.Info("data dir lock acquired")
	return l, nil
}

func provideCache(cfg *config.Config, logger *zap.Logger) (*cache.DB, error) {
	db, err := cache.Open(cfg.CachePath())
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("cache migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("cache migrations up to date", zap.Uint("version", result.Version))
	}
	return db, nil
}

func provideSyncStore(cfg *config.Config, b *bus.Bus) *state.Store {
	return state.NewStore(cfg.UserID, b)
}

func provideRestClient(cfg *config.Config) *rest.Client {
	return rest.NewClient(cfg.APIBaseURL, cfg.AuthToken)
}

func provideTransport(cfg *config.Config, b *bus.Bus, logger *zap.Logger) *transport.Conn {
	return transport.New(cfg.PushURL, cfg.AuthToken, logger, transport.WithBus(b))
}

func provideCacheWriter(db *cache.DB, store *state.Store, b *bus.Bus, logger *zap.Logger) *cache.Writer {
	return cache.NewWriter(db, store, b, logger)
}

func provideEventHandler(store *state.Store, b *bus.Bus, logger *zap.Logger) *EventHandler {
	return NewEventHandler(store, b, logger)
}

func provideSubscriptionManager(cfg *config.Config, store *state.Store, client *rest.Client, conn *transport.Conn, logger *zap.Logger) *subscription.Manager {
	return subscription.NewManager(store, client, conn, cfg.UserID, logger)
}

func provideCommands(cfg *config.Config, client *rest.Client, store *state.Store, conn *transport.Conn, logger *zap.Logger) *command.Commands {
	return command.New(client, store, conn, cfg.UserID, logger)
}

func registerLifecycle(
	lc fx.Lifecycle,
	lk *lock.Lock,
	db *cache.DB,
	store *state.Store,
	client *rest.Client,
	conn *transport.Conn,
	writer *cache.Writer,
	handler *EventHandler,
	subs *subscription.Manager,
	logger *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Cached history first, so the UI has rooms before any
			// network round trip completes.
			if err := cache.Hydrate(db, store); err != nil {
				logger.Warn("cache hydration failed", zap.Error(err))
			}

			writer.Start(context.Background())
			handler.Bind(conn)

			// Transport loss is non-fatal: messaging degrades to
			// REST-only until the channel comes back.
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := conn.Connect(ctx); err != nil {
					logger.Error("push channel connect failed, running REST-only", zap.Error(err))
				}
			}()

			go InitialLoad(context.Background(), client, store, logger)

			return nil
		},
		OnStop: func(_ context.Context) error {
			subs.Close()
			handler.Unbind()
			conn.Disconnect()
			writer.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing cache", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
