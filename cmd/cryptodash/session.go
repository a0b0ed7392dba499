package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/simaogato/cryptodash-backend/internal/adapter/coingecko"
	"github.com/simaogato/cryptodash-backend/internal/adapter/repository/session"
	"github.com/simaogato/cryptodash-backend/internal/app"
	"github.com/simaogato/cryptodash-backend/internal/config"
	"github.com/simaogato/cryptodash-backend/internal/domain"
	"github.com/simaogato/cryptodash-backend/internal/logger"
	"github.com/simaogato/cryptodash-backend/internal/usecase/ledger"
	"github.com/simaogato/cryptodash-backend/internal/usecase/marketdata"
)

var globals struct {
	configFile string
	verbose    bool
}

// cliSession is what one command invocation works with
type cliSession struct {
	store  domain.SessionStore
	market *marketdata.Cache
	ledger *ledger.LedgerService
	log    zerolog.Logger
}

// openSession loads configuration and the stored portfolio.
// The in-memory driver makes no sense for a one-shot command, so it falls back to SQLite.
func openSession(ctx context.Context) (*cliSession, error) {
	cfg, err := config.Load(globals.configFile)
	if err != nil {
		return nil, err
	}
	if cfg.StoreDriver == config.DriverMemory {
		cfg.StoreDriver = config.DriverSQLite
	}

	level := "warn"
	if globals.verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{Level: level, Output: os.Stderr})

	rates, err := cfg.RateTable()
	if err != nil {
		return nil, err
	}

	store, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	client := coingecko.NewClient(coingecko.Config{
		BaseURL: cfg.Market.BaseURL,
		APIKey:  cfg.Market.APIKey,
		PerPage: cfg.Market.PerPage,
		Timeout: cfg.Market.Timeout,
	}, log)
	market := marketdata.NewCache(client, marketdata.RetryPolicy{
		MaxRetries: uint64(cfg.Market.MaxRetries),
		Delay:      cfg.Market.RetryDelay,
	}, log)

	ledgerService := ledger.NewLedgerService(
		session.NewPositionRepository(store),
		session.NewTransactionRepository(store),
		market,
		rates,
		log,
	)
	if err := ledgerService.Load(ctx); err != nil {
		store.Close()
		return nil, err
	}

	return &cliSession{store: store, market: market, ledger: ledgerService, log: log}, nil
}

// refresh fetches the market once and reports a fallback on stderr
func (s *cliSession) refresh(ctx context.Context) marketdata.Snapshot {
	snap := s.market.Refresh(ctx)
	if snap.Error != "" {
		fmt.Fprintln(os.Stderr, snap.Error)
	}
	return snap
}

func (s *cliSession) Close() {
	if err := s.store.Close(); err != nil {
		s.log.Error().Err(err).Msg("Failed to close store")
	}
}
