// Package app wires configuration, storage, the market cache, the ledger and the
// network surfaces into one running process.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	grpclib "google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/simaogato/cryptodash-backend/internal/adapter/coingecko"
	grpcadapter "github.com/simaogato/cryptodash-backend/internal/adapter/grpc"
	httpadapter "github.com/simaogato/cryptodash-backend/internal/adapter/http"
	"github.com/simaogato/cryptodash-backend/internal/adapter/repository/memory"
	"github.com/simaogato/cryptodash-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/cryptodash-backend/internal/adapter/repository/session"
	"github.com/simaogato/cryptodash-backend/internal/adapter/repository/sqlite"
	"github.com/simaogato/cryptodash-backend/internal/config"
	"github.com/simaogato/cryptodash-backend/internal/domain"
	"github.com/simaogato/cryptodash-backend/internal/scheduler"
	"github.com/simaogato/cryptodash-backend/internal/usecase/ledger"
	"github.com/simaogato/cryptodash-backend/internal/usecase/marketdata"
	"github.com/simaogato/cryptodash-backend/internal/usecase/seeder"
)

// Postgres may still be starting when the process comes up
const (
	postgresConnectRetries = 5
	postgresConnectDelay   = 2 * time.Second
)

// App is the application context. It owns every long-lived object and is the
// only place where they are created.
type App struct {
	Config    *config.Config
	Store     domain.SessionStore
	Market    *marketdata.Cache
	Ledger    *ledger.LedgerService
	Scheduler *scheduler.Scheduler
	GRPC      *grpclib.Server
	Portfolio *grpcadapter.Server
	HTTP      *httpadapter.Server

	log zerolog.Logger

	grpcLis net.Listener
	httpLis net.Listener

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Option customises New
type Option func(*options)

type options struct {
	source marketdata.Source
}

// WithMarketSource replaces the CoinGecko client
func WithMarketSource(source marketdata.Source) Option {
	return func(o *options) { o.source = source }
}

// New builds the application
// Logic:
//  1. Open the session store selected by store_driver
//  2. Seed the demo wallet when seed_demo is set and the store is empty
//  3. Build the market cache and load the ledger
//  4. Register the refresh job and build the gRPC and HTTP servers
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	rates, err := cfg.RateTable()
	if err != nil {
		return nil, err
	}

	// 1. Storage
	store, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	positionRepo := session.NewPositionRepository(store)
	transactionRepo := session.NewTransactionRepository(store)

	// 2. Demo wallet
	if cfg.SeedDemo {
		seeded, err := seeder.NewDemoSeeder(positionRepo, transactionRepo).Seed(ctx)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to seed demo wallet: %w", err)
		}
		if seeded {
			log.Info().Msg("Demo wallet seeded")
		}
	}

	// 3. Market cache and ledger
	source := o.source
	if source == nil {
		source = coingecko.NewClient(coingecko.Config{
			BaseURL: cfg.Market.BaseURL,
			APIKey:  cfg.Market.APIKey,
			PerPage: cfg.Market.PerPage,
			Timeout: cfg.Market.Timeout,
		}, log)
	}
	market := marketdata.NewCache(source, marketdata.RetryPolicy{
		MaxRetries: uint64(cfg.Market.MaxRetries),
		Delay:      cfg.Market.RetryDelay,
	}, log)

	ledgerService := ledger.NewLedgerService(positionRepo, transactionRepo, market, rates, log)
	if err := ledgerService.Load(ctx); err != nil {
		store.Close()
		return nil, err
	}

	// 4. Jobs and servers
	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.Market.RefreshSchedule, refreshJob(market)); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to register market refresh: %w", err)
	}

	portfolio := grpcadapter.NewServer(market, ledgerService, log)
	grpcServer := grpclib.NewServer(grpclib.ChainUnaryInterceptor(
		grpcadapter.RecoveryInterceptor(log),
		grpcadapter.LoggingInterceptor(log),
	))
	grpcadapter.RegisterPortfolioServer(grpcServer, portfolio)
	healthpb.RegisterHealthServer(grpcServer, portfolio.Health)
	reflection.Register(grpcServer)

	httpServer := httpadapter.New(httpadapter.Config{
		Addr:        cfg.HTTPAddr,
		CORSOrigins: cfg.CORSOrigins,
		Log:         log,
		Market:      market,
		Ledger:      ledgerService,
	})

	return &App{
		Config:    cfg,
		Store:     store,
		Market:    market,
		Ledger:    ledgerService,
		Scheduler: sched,
		GRPC:      grpcServer,
		Portfolio: portfolio,
		HTTP:      httpServer,
		log:       log.With().Str("component", "app").Logger(),
	}, nil
}

// OpenStore opens the session store named by cfg.StoreDriver
func OpenStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (domain.SessionStore, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Warn().Msg("Using in-memory store: the portfolio is lost on exit")
		return memory.NewStore(), nil

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", store.Path()).Msg("Using SQLite store")
		return store, nil

	case config.DriverPostgres:
		var db *postgres.DB
		backoff := retry.WithMaxRetries(postgresConnectRetries, retry.NewConstant(postgresConnectDelay))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			var err error
			db, err = postgres.NewDB(ctx, cfg.PostgresDSN)
			if err != nil {
				log.Warn().Err(err).Msg("Database not ready, retrying")
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		store, err := postgres.NewSessionStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		log.Info().Msg("Using Postgres store")
		return store, nil
	}

	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func refreshJob(market *marketdata.Cache) scheduler.Job {
	return scheduler.JobFunc{
		JobName: "market-refresh",
		Fn: func(ctx context.Context) error {
			// Failures end in fallback data, which the snapshot reports
			market.Refresh(ctx)
			return nil
		},
	}
}

// Listen binds the gRPC and HTTP addresses
func (a *App) Listen() error {
	grpcLis, err := net.Listen("tcp", a.Config.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Config.GRPCAddr, err)
	}
	httpLis, err := net.Listen("tcp", a.Config.HTTPAddr)
	if err != nil {
		grpcLis.Close()
		return fmt.Errorf("failed to listen on %s: %w", a.Config.HTTPAddr, err)
	}
	a.grpcLis = grpcLis
	a.httpLis = httpLis
	return nil
}

// GRPCAddr returns the bound gRPC address. Valid after Listen.
func (a *App) GRPCAddr() string { return a.grpcLis.Addr().String() }

// HTTPAddr returns the bound HTTP address. Valid after Listen.
func (a *App) HTTPAddr() string { return a.httpLis.Addr().String() }

// Run starts background work and serves until ctx is done or a server fails.
// Listen is called first if it has not been.
func (a *App) Run(ctx context.Context) error {
	if a.grpcLis == nil {
		if err := a.Listen(); err != nil {
			return err
		}
	}

	ctx, a.cancel = context.WithCancel(ctx)
	defer a.cancel()

	updates, unsubscribe := a.Market.Subscribe()
	defer unsubscribe()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.Portfolio.TrackMarketHealth(ctx, updates)
	}()

	a.Scheduler.Start()
	a.Scheduler.RunNow(refreshJob(a.Market))

	errCh := make(chan error, 2)
	go func() {
		a.log.Info().Str("addr", a.GRPCAddr()).Msg("gRPC server listening")
		if err := a.GRPC.Serve(a.grpcLis); err != nil && !errors.Is(err, grpclib.ErrServerStopped) {
			errCh <- fmt.Errorf("gRPC server: %w", err)
		}
	}()
	go func() {
		a.log.Info().Str("addr", a.HTTPAddr()).Msg("HTTP server listening")
		if err := a.HTTP.Serve(a.httpLis); err != nil {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		a.log.Error().Err(runErr).Msg("Server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown stops the servers, the scheduler and the store. It is safe to call twice.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		a.log.Info().Msg("Shutting down")

		if a.cancel != nil {
			a.cancel()
		}

		if e := a.HTTP.Shutdown(ctx); e != nil && !errors.Is(e, http.ErrServerClosed) {
			err = errors.Join(err, e)
		}

		stopped := make(chan struct{})
		go func() {
			a.GRPC.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			a.GRPC.Stop()
		}

		a.Scheduler.Stop()
		a.Market.Close()
		a.wg.Wait()

		if e := a.Store.Close(); e != nil {
			err = errors.Join(err, fmt.Errorf("failed to close store: %w", e))
		}
		a.log.Info().Msg("Shutdown complete")
	})
	return err
}
