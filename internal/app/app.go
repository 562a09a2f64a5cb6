package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/gokatarajesh/quiz-pool/internal/certificate"
	"github.com/gokatarajesh/quiz-pool/internal/config"
	"github.com/gokatarajesh/quiz-pool/internal/logging"
	"github.com/gokatarajesh/quiz-pool/internal/pool"
	"github.com/gokatarajesh/quiz-pool/internal/question"
	"github.com/gokatarajesh/quiz-pool/internal/server"
	"github.com/gokatarajesh/quiz-pool/internal/storage"
)

// Application aggregates shared infrastructure (stores, pool manager, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pg    *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	manager       *pool.Manager
	refreshWorker *pool.RefreshWorker
	bgCancels     []context.CancelFunc
}

// backend is the storage wiring chosen by STORAGE_BACKEND.
type backend struct {
	bank    pool.QuestionStore
	store   pool.PoolStore
	pg      *pgxpool.Pool
	redis   *redis.Client
	pingers []server.Pinger
}

// New bootstraps logger, storage, the pool manager and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Str("backend", cfg.Storage.Backend).Msg("starting application bootstrap")

	be, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	levels := question.ParseLevels(cfg.Pool.Levels)
	bank := storage.BoundBank(be.bank, cfg.Storage.Timeout)
	store := storage.BoundPool(be.store, cfg.Storage.Timeout)

	metrics := pool.NewMetrics(prometheus.DefaultRegisterer)
	manager := pool.NewManager(bank, store, pool.ManagerOptions{
		Levels: levels,
		Defaults: pool.Policy{
			PoolDays:        cfg.Pool.PoolDays,
			ChurnPercentMin: cfg.Pool.ChurnPercentMin,
			ChurnPercentMax: cfg.Pool.ChurnPercentMax,
		},
		Metrics: metrics,
	}, logger)

	seed := uint64(time.Now().UnixNano())
	selector := pool.NewSelector(manager, bank, rand.New(rand.NewPCG(seed, seed>>1|1)), metrics, logger)
	poolHandler := pool.NewHTTPHandler(selector, manager, levels, cfg.Pool.QuestionCount, logger)

	var refreshWorker *pool.RefreshWorker
	if cfg.Pool.RefreshInterval > 0 {
		refreshWorker = pool.NewRefreshWorker(manager, cfg.Pool.RefreshInterval, cfg.Storage.Timeout*2, logger)
	}

	mailer := certificate.NewMailer(certificate.EmailConfig{
		SMTPHost:     cfg.SMTP.Host,
		SMTPPort:     cfg.SMTP.Port,
		SMTPUsername: cfg.SMTP.Username,
		SMTPPassword: cfg.SMTP.Password,
		FromEmail:    cfg.SMTP.FromEmail,
	}, logger)
	if !mailer.Configured() {
		logger.Warn().Msg("SMTP not configured; certificates are download-only")
	}
	certHandler := certificate.NewHTTPHandler(
		certificate.NewRenderer(cfg.Certificate.FontPath),
		mailer,
		newLimiter(cfg.Certificate.RatePerMinute, cfg.Certificate.Burst),
		levels,
		logger,
	)

	apiServer := server.NewHTTPServer(cfg, logger, prometheus.DefaultGatherer, be.pingers, server.Routes{
		Questions:   poolHandler.HandleQuestions,
		PoolStatus:  poolHandler.HandleStatus,
		Certificate: certHandler.HandleCreate,
	})

	return &Application{
		cfg:           cfg,
		logger:        logger,
		pg:            be.pg,
		redis:         be.redis,
		http:          apiServer,
		manager:       manager,
		refreshWorker: refreshWorker,
		bgCancels:     make([]context.CancelFunc, 0, 1),
	}, nil
}

func openBackend(ctx context.Context, cfg *config.App) (backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pg, err := pgxpool.New(ctx, cfg.Postgres.DSN())
		if err != nil {
			return backend{}, fmt.Errorf("connect postgres: %w", err)
		}
		pgStore := storage.NewPostgresStore(pg)
		return backend{bank: pgStore, store: pgStore, pg: pg, pingers: []server.Pinger{pg.Ping}}, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return backend{
			bank:    storage.NewFileStore(cfg.Storage.DataDir),
			store:   storage.NewRedisPoolStore(client, cfg.Redis.KeyPrefix),
			redis:   client,
			pingers: []server.Pinger{ping},
		}, nil

	default:
		files := storage.NewFileStore(cfg.Storage.DataDir)
		return backend{bank: files, store: files}, nil
	}
}

func newLimiter(perMinute, burst int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
}

// Run refreshes the pool once, starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	if current, err := a.manager.EnsureFresh(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("startup pool refresh failed; serving stored pool")
	} else {
		a.logger.Info().Int("questions", len(current.Questions)).Msg("active pool ready")
	}

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}

	if a.pg != nil {
		a.pg.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
	}

	a.logger.Info().Msg("shutdown complete")
	return runErr
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	if a.refreshWorker != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.refreshWorker.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Msg("pool refresh worker stopped")
			}
		}()
	}
}
