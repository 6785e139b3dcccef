// Package server wires the gophlink server together: storage, sessions,
// the dispatcher and the secure TCP endpoint. It also handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/gophlink/internal/channel"
	"github.com/dmitrijs2005/gophlink/internal/logging"
	"github.com/dmitrijs2005/gophlink/internal/server/config"
	"github.com/dmitrijs2005/gophlink/internal/server/dispatch"
	"github.com/dmitrijs2005/gophlink/internal/server/rental"
	"github.com/dmitrijs2005/gophlink/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophlink/internal/server/secure"
	"github.com/dmitrijs2005/gophlink/internal/server/services"
	"github.com/dmitrijs2005/gophlink/internal/server/sessions"
	"github.com/dmitrijs2005/gophlink/internal/server/tcp"
)

const redisPingTimeout = 3 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	redis    *redis.Client
	sessions *sessions.Manager
	server   *tcp.Server
	janitor  bool
}

// NewApp builds every component from c. Logs go to logOut, or stdout when nil.
// The returned App owns its database and redis connections until Run returns.
func NewApp(ctx context.Context, c *config.Config, logOut io.Writer) (*App, error) {
	if logOut == nil {
		logOut = os.Stdout
	}
	logger, err := logging.New(logOut, c.LogLevel, c.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	keys, err := c.KeyPair()
	if err != nil {
		return nil, fmt.Errorf("key init error: %w", err)
	}

	db, rm, err := repomanager.Open(ctx, c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	store, err := app.sessionStore(ctx)
	if err != nil {
		app.close()
		return nil, err
	}

	app.sessions = sessions.NewManager(store, c.SessionTimeout, sessions.WithLogger(logger))
	users := services.NewUserService(db, rm, c.Argon2)
	business := rental.NewBusiness(rental.NewService(c.MovieCatalog()))

	d := dispatch.New(users, app.sessions, business, logger)
	h := secure.NewHandler(channel.NewCodec(keys, c.MaxFrameSize), d, logger, c.IdleTimeout, c.WriteTimeout)
	app.server = tcp.NewServer(c.ListenAddress, h, logger, c.ShutdownGrace)

	return app, nil
}

func (app *App) sessionStore(ctx context.Context) (sessions.Store, error) {
	if app.config.SessionStore != config.SessionStoreRedis {
		app.janitor = true
		return sessions.NewMemoryStore(), nil
	}

	app.redis = redis.NewClient(&redis.Options{
		Addr:     app.config.RedisAddress,
		Password: app.config.RedisPassword,
		DB:       app.config.RedisDB,
	})
	store := sessions.NewRedisStore(app.redis, sessions.DefaultRedisPrefix)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("session store init error: %w", err)
	}
	return store, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case sig := <-sigs:
			app.logger.Info(ctx, "signal received", "signal", sig.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Addr blocks until the server is listening and returns its address.
// It never returns if Run failed to listen.
func (app *App) Addr() net.Addr {
	return app.server.Addr()
}

// Run serves until ctx is cancelled or a termination signal arrives,
// then drains connections and releases storage.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "address", app.config.ListenAddress,
		"database", app.config.DatabaseDriver, "session_store", app.config.SessionStore)

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	if app.janitor {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.sessions.RunJanitor(ctx, app.config.JanitorInterval)
		}()
	}

	err := app.server.Run(ctx)
	if err != nil {
		app.logger.Error(ctx, "server stopped", "error", err)
	}
	cancelFunc()
	wg.Wait()

	app.close()
	app.logger.Info(context.Background(), "App stopped")
	return err
}

func (app *App) close() {
	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		app.logger.Warn(context.Background(), "closing storage", "error", err)
	}
}
