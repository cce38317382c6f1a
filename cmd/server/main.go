// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/gofish/internal/auth"
	"github.com/jason-s-yu/gofish/internal/cache"
	"github.com/jason-s-yu/gofish/internal/config"
	"github.com/jason-s-yu/gofish/internal/database"
	"github.com/jason-s-yu/gofish/internal/deck"
	"github.com/jason-s-yu/gofish/internal/game"
	"github.com/jason-s-yu/gofish/internal/handlers"
	"github.com/jason-s-yu/gofish/internal/historian"
	"github.com/jason-s-yu/gofish/internal/middleware"
	"github.com/jason-s-yu/gofish/internal/snapshot"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	var (
		rdb  *redis.Client
		pool *pgxpool.Pool
		err  error
	)
	if cfg.SnapshotBackend == config.BackendRedis || cfg.HistorianEnabled {
		if rdb, err = cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB); err != nil {
			return err
		}
		defer rdb.Close()
	}
	if cfg.SnapshotBackend == config.BackendPostgres {
		if pool, err = database.ConnectDB(ctx, cfg.PostgresDSN(), logger); err != nil {
			return err
		}
		defer pool.Close()
	}

	backend, err := openBackend(ctx, cfg, rdb, pool)
	if err != nil {
		return err
	}
	if backend != nil {
		defer backend.Close()
	}

	signer, err := newSigner(cfg, logger)
	if err != nil {
		return err
	}

	// background workers stop on workerCtx, after the HTTP server has drained
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	hub := handlers.NewHub(logger)
	dispatchers := game.MultiDispatcher{hub}
	var publisher *historian.Publisher
	if cfg.HistorianEnabled {
		publisher = historian.NewPublisher(rdb, cfg.HistorianQueue, 1024, logger)
		dispatchers = append(dispatchers, publisher)
		go publisher.Run(workerCtx)
	}

	var flusher *snapshot.Flusher
	storeCfg := game.Config{
		Deck:        newDeckProvider(cfg),
		Dispatcher:  dispatchers,
		Logger:      logger,
		ThinkDelay:  cfg.ThinkDelay,
		DeckTimeout: cfg.DeckTimeout,
	}
	if backend != nil {
		flusher = snapshot.NewFlusher(backend, logger, cfg.SnapshotInterval)
		storeCfg.Persister = flusher
	}
	store := game.NewStore(storeCfg)

	if backend != nil {
		table, err := backend.Load(ctx)
		if err != nil {
			return fmt.Errorf("load session snapshot: %w", err)
		}
		store.Restore(table)
		go flusher.Run(workerCtx, store)
	}

	gs := handlers.NewGameServer(store, hub, signer, logger)
	mux := http.NewServeMux()
	gs.Routes(mux)
	// websocket handlers outlive Shutdown, so they watch connCtx instead
	connCtx, closeConns := context.WithCancel(context.Background())
	defer closeConns()
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           middleware.LogMiddleware(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return connCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http shutdown incomplete")
	}
	closeConns()
	store.Shutdown()

	stopWorkers()
	if flusher != nil {
		<-flusher.Done()
	}
	if publisher != nil {
		<-publisher.Done()
	}
	return nil
}

func newDeckProvider(cfg *config.Config) deck.Provider {
	if cfg.DeckProvider == config.DeckLocal {
		return deck.NewLocalProvider(rand.New(rand.NewSource(time.Now().UnixNano())))
	}
	return deck.NewHTTPProvider(cfg.DeckAPIURL, cfg.DeckTimeout)
}

// newSigner loads the token keys from disk when configured. Restored sessions can only be
// resumed by their players when tokens survive a restart.
func newSigner(cfg *config.Config, logger logrus.FieldLogger) (*auth.Signer, error) {
	if cfg.PersistentKeys() {
		return auth.NewSignerFromPath(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.TokenExpiry)
	}
	if cfg.SnapshotBackend != config.BackendNone {
		logger.WithField("backend", cfg.SnapshotBackend).Warn("signing tokens with an ephemeral key; players of restored sessions will not be recognised after a restart (set JWT_PRIVATE_KEY_PATH and JWT_PUBLIC_KEY_PATH)")
	}
	return auth.NewSigner(cfg.TokenExpiry)
}

// openBackend returns nil when persistence is disabled.
func openBackend(ctx context.Context, cfg *config.Config, rdb *redis.Client, pool *pgxpool.Pool) (snapshot.Backend, error) {
	switch cfg.SnapshotBackend {
	case config.BackendFile:
		return snapshot.NewFileBackend(cfg.SnapshotPath)
	case config.BackendSQLite:
		return snapshot.NewSQLiteBackend(cfg.SQLitePath)
	case config.BackendRedis:
		return snapshot.NewRedisBackend(rdb, cfg.SnapshotKey), nil
	case config.BackendPostgres:
		return snapshot.NewPostgresBackend(ctx, pool)
	default:
		return nil, nil
	}
}
