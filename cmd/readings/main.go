package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/meterdesk/readings/internal/console"
	"github.com/meterdesk/readings/internal/core/domain"
	"github.com/meterdesk/readings/internal/core/ports"
	"github.com/meterdesk/readings/internal/core/service"
	"github.com/meterdesk/readings/internal/core/validator"
	"github.com/meterdesk/readings/internal/infrastructure/config"
	"github.com/meterdesk/readings/internal/infrastructure/db/memory"
	mongodb "github.com/meterdesk/readings/internal/infrastructure/db/mongo"
	"github.com/meterdesk/readings/internal/infrastructure/db/postgres"
	redisdb "github.com/meterdesk/readings/internal/infrastructure/db/redis"
	"github.com/meterdesk/readings/internal/infrastructure/security"
	"github.com/meterdesk/readings/internal/infrastructure/seed"
	"github.com/meterdesk/readings/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "readings: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	logOpts := logger.Options{Level: cfg.LogLevel, FilePath: cfg.LogFile}
	if cfg.LogPretty {
		logOpts.Console = os.Stderr
	}
	log, logFile := logger.New(logOpts)
	defer func() { _ = logFile.Close() }()

	log.Info().Str("env", cfg.Env).Str("storage", cfg.Storage).Msg("starting")

	stores, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.close()

	lock, closeLock, err := openLock(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLock()

	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	err = seed.Users(ctx, stores.users, hasher, log,
		seed.Account{Login: cfg.Seed.UserLogin, Password: cfg.Seed.UserPassword, Role: domain.RoleUser},
		seed.Account{Login: cfg.Seed.AdminLogin, Password: cfg.Seed.AdminPassword, Role: domain.RoleAdmin},
	)
	if err != nil {
		return fmt.Errorf("seed accounts: %w", err)
	}

	v := validator.New()
	users := service.NewUserService(stores.users, hasher, v, log)
	readings := service.NewReadingsService(stores.readings, lock, v, log)

	c := console.New(users, readings, os.Stdin, os.Stdout, log, console.Options{
		ReadingTypes:  cfg.ReadingTypes,
		ActionTimeout: cfg.ActionTimeout,
	})
	err = c.Run(ctx)
	log.Info().Msg("stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type stores struct {
	users    ports.UserRepository
	readings ports.ReadingsRepository
	closers  []io.Closer
}

func (s *stores) close() {
	for _, c := range s.closers {
		_ = c.Close()
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openStores connects the backend selected by STORAGE.
func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		if err := postgres.Migrate(cfg.Postgres.DSN, log); err != nil {
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		pool, err := postgres.NewPool(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
		})
		if err != nil {
			return nil, err
		}
		log.Info().Msg("connected to postgres")
		return &stores{
			users:    postgres.NewUserRepository(pool),
			readings: postgres.NewReadingsRepository(pool),
			closers:  []io.Closer{closerFunc(func() error { pool.Close(); return nil })},
		}, nil

	case config.StorageMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongo")
		return &stores{
			users:    mongodb.NewUserRepository(db),
			readings: mongodb.NewReadingsRepository(db),
			closers: []io.Closer{closerFunc(func() error {
				dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return client.Disconnect(dctx)
			})},
		}, nil

	default:
		return &stores{
			users:    memory.NewUserRepository(),
			readings: memory.NewReadingsRepository(),
		}, nil
	}
}

// openLock returns the Redis submission lock, or nil when REDIS_ADDR is unset.
func openLock(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.SubmissionLock, func(), error) {
	if !cfg.LockEnabled() {
		return nil, func() {}, nil
	}
	client, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("submission lock enabled")
	return redisdb.NewSubmissionLock(client, cfg.Redis.LockTTL), func() { _ = client.Close() }, nil
}
