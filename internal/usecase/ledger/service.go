package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/simaogato/cryptodash-backend/internal/domain"
	"github.com/simaogato/cryptodash-backend/internal/usecase/valuation"
)

// AddPositionInput represents the input for adding a position
type AddPositionInput struct {
	AssetID      string
	Amount       string // raw user input, parsed as a decimal
	CurrencyCode string // the asset's own symbol, USD, or a fiat code from the rate table
	AcquiredAt   time.Time
}

// LedgerService records positions and transactions and serves their valuation
type LedgerService struct {
	PositionRepo    domain.PositionRepository
	TransactionRepo domain.TransactionRepository
	Market          domain.AssetSource
	Rates           *domain.RateTable
	Clock           func() time.Time

	log zerolog.Logger

	mu           sync.RWMutex
	positions    []domain.Position
	transactions []domain.Transaction
}

// NewLedgerService creates a new LedgerService instance
func NewLedgerService(
	positionRepo domain.PositionRepository,
	transactionRepo domain.TransactionRepository,
	market domain.AssetSource,
	rates *domain.RateTable,
	log zerolog.Logger,
) *LedgerService {
	return &LedgerService{
		PositionRepo:    positionRepo,
		TransactionRepo: transactionRepo,
		Market:          market,
		Rates:           rates,
		Clock:           time.Now,
		log:             log.With().Str("component", "ledger").Logger(),
	}
}

// Load reads both collections from storage. It is called once at startup.
// Unparseable stored state is discarded and the ledger starts empty; any other
// storage failure is returned.
func (s *LedgerService) Load(ctx context.Context) error {
	positions, err := s.PositionRepo.Load(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrCorruptState) {
			return fmt.Errorf("failed to load positions: %w", err)
		}
		s.log.Warn().Err(err).Msg("Discarding unreadable positions")
		positions = nil
	}

	transactions, err := s.TransactionRepo.Load(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrCorruptState) {
			return fmt.Errorf("failed to load transactions: %w", err)
		}
		s.log.Warn().Err(err).Msg("Discarding unreadable transactions")
		transactions = nil
	}

	s.mu.Lock()
	s.positions = positions
	s.transactions = transactions
	s.mu.Unlock()

	s.log.Info().
		Int("positions", len(positions)).
		Int("transactions", len(transactions)).
		Msg("Ledger loaded")
	return nil
}

// AddPosition records a simulated purchase
// Logic:
//  1. Resolve the asset from the current market snapshot (copy of the cached price)
//  2. Parse the amount, reject anything that is not a positive number
//  3. Resolve the quantity:
//     - amount in the asset's own symbol is already a quantity
//     - USD: quantity = amount / price
//     - other fiat: quantity = amount x rate / price
//  4. Append one Position and one matching buy Transaction
//  5. Persist both collections; on failure nothing changes
func (s *LedgerService) AddPosition(ctx context.Context, input AddPositionInput) (*domain.Position, *domain.Transaction, error) {
	// 1. Resolve asset
	asset, ok := s.Market.Lookup(input.AssetID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", domain.ErrAssetNotFound, input.AssetID)
	}

	// 2. Parse amount
	amount, err := decimal.NewFromString(strings.TrimSpace(input.Amount))
	if err != nil || !amount.IsPositive() {
		return nil, nil, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, input.Amount)
	}

	if !asset.HasPrice() {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrPriceUnavailable, asset.ID)
	}

	// 3. Resolve quantity
	quantity, err := s.resolveQuantity(asset, amount, input.CurrencyCode)
	if err != nil {
		return nil, nil, err
	}

	acquiredAt := input.AcquiredAt
	if acquiredAt.IsZero() {
		acquiredAt = s.Clock()
	}
	acquiredAt = domain.CanonicalTime(acquiredAt)

	// 4. Build records
	position := domain.Position{
		ID:            uuid.New(),
		AssetID:       asset.ID,
		Quantity:      domain.CanonicalDecimal(quantity),
		PurchasePrice: domain.CanonicalDecimal(asset.CurrentPrice),
		AcquiredAt:    acquiredAt,
	}
	if err := position.Validate(); err != nil {
		// Quantity rounded to zero
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrInvalidAmount, err)
	}

	txID, err := uuid.NewV7()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate transaction ID: %w", err)
	}
	tx := domain.Transaction{
		ID:        txID,
		Kind:      domain.TransactionKindBuy,
		AssetID:   position.AssetID,
		Quantity:  position.Quantity,
		UnitPrice: position.PurchasePrice,
		Timestamp: acquiredAt,
	}
	if err := tx.Validate(); err != nil {
		return nil, nil, err
	}

	// 5. Persist, then commit in memory
	s.mu.Lock()
	defer s.mu.Unlock()

	positions := append(clonePositions(s.positions), position)
	transactions := append(cloneTransactions(s.transactions), tx)
	if err := s.persistLocked(ctx, positions, transactions); err != nil {
		return nil, nil, err
	}
	s.positions = positions
	s.transactions = transactions

	s.log.Info().
		Str("asset_id", position.AssetID).
		Str("quantity", position.Quantity.String()).
		Str("unit_price", position.PurchasePrice.String()).
		Str("currency", input.CurrencyCode).
		Msg("Position added")

	return &position, &tx, nil
}

// RemovePosition deletes one position. The transaction log is left untouched.
func (s *LedgerService) RemovePosition(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, p := range s.positions {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", domain.ErrPositionNotFound, id)
	}

	positions := make([]domain.Position, 0, len(s.positions)-1)
	positions = append(positions, s.positions[:idx]...)
	positions = append(positions, s.positions[idx+1:]...)

	if err := s.PositionRepo.Save(ctx, positions); err != nil {
		return fmt.Errorf("failed to save positions: %w", err)
	}
	s.positions = positions

	s.log.Info().Str("position_id", id.String()).Msg("Position removed")
	return nil
}

// Positions returns a copy of the positions in insertion order
func (s *LedgerService) Positions() []domain.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clonePositions(s.positions)
}

// ListPositionsWithValuation values every position against the current snapshot
func (s *LedgerService) ListPositionsWithValuation(ctx context.Context) []valuation.PositionValuation {
	return valuation.ValuePositions(s.Positions(), s.Market.Assets())
}

// PortfolioTotals returns the aggregate valuation
func (s *LedgerService) PortfolioTotals(ctx context.Context) valuation.Totals {
	return valuation.PortfolioTotals(s.Positions(), s.Market.Assets())
}

// Allocation returns the per-asset share of the portfolio value
func (s *LedgerService) Allocation(ctx context.Context) []valuation.AllocationSlice {
	return valuation.Allocation(s.ListPositionsWithValuation(ctx))
}

// ListTransactions returns the log most recent first, optionally filtered by kind.
// Transactions sharing a timestamp are ordered by insertion, latest first.
func (s *LedgerService) ListTransactions(ctx context.Context, kind *domain.TransactionKind) []domain.Transaction {
	s.mu.RLock()
	out := make([]domain.Transaction, 0, len(s.transactions))
	for i := len(s.transactions) - 1; i >= 0; i-- {
		tx := s.transactions[i]
		if kind != nil && tx.Kind != *kind {
			continue
		}
		out = append(out, tx)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func (s *LedgerService) resolveQuantity(asset domain.Asset, amount decimal.Decimal, code string) (decimal.Decimal, error) {
	if asset.MatchesSymbol(code) {
		return amount, nil
	}

	usd, err := s.Rates.ToUSD(amount, code)
	if err != nil {
		return decimal.Zero, err
	}
	return usd.Div(asset.CurrentPrice), nil
}

// persistLocked writes both collections. If the second write fails the first is
// restored so storage stays consistent with memory.
func (s *LedgerService) persistLocked(ctx context.Context, positions []domain.Position, transactions []domain.Transaction) error {
	if err := s.PositionRepo.Save(ctx, positions); err != nil {
		return fmt.Errorf("failed to save positions: %w", err)
	}
	if err := s.TransactionRepo.Save(ctx, transactions); err != nil {
		if rbErr := s.PositionRepo.Save(ctx, s.positions); rbErr != nil {
			s.log.Error().Err(rbErr).Msg("Failed to restore positions after transaction save failure")
		}
		return fmt.Errorf("failed to save transactions: %w", err)
	}
	return nil
}

func clonePositions(in []domain.Position) []domain.Position {
	out := make([]domain.Position, len(in))
	copy(out, in)
	return out
}

func cloneTransactions(in []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(in))
	copy(out, in)
	return out
}
