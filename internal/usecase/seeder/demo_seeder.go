package seeder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/cryptodash-backend/internal/domain"
)

// Fixed IDs of the demo wallet records, so reseeding is recognisable
var (
	DEMO_POSITION_BTC = uuid.MustParse("00000000-0000-0000-0000-000000000101")
	DEMO_POSITION_ETH = uuid.MustParse("00000000-0000-0000-0000-000000000102")
	DEMO_POSITION_SOL = uuid.MustParse("00000000-0000-0000-0000-000000000103")
	DEMO_POSITION_ADA = uuid.MustParse("00000000-0000-0000-0000-000000000104")
)

// demoEntry defines one demo transaction; buys also produce a position
type demoEntry struct {
	PositionID uuid.UUID
	TxID       uuid.UUID
	Kind       domain.TransactionKind
	AssetID    string
	Quantity   string
	UnitPrice  string
	DaysAgo    int
}

var demoWallet = []demoEntry{
	{DEMO_POSITION_BTC, uuid.MustParse("00000000-0000-0000-0000-000000000201"), domain.TransactionKindBuy, "bitcoin", "0.75", "48000", 30},
	{DEMO_POSITION_ETH, uuid.MustParse("00000000-0000-0000-0000-000000000202"), domain.TransactionKindBuy, "ethereum", "5.2", "2500", 45},
	{DEMO_POSITION_SOL, uuid.MustParse("00000000-0000-0000-0000-000000000203"), domain.TransactionKindBuy, "solana", "25", "90", 15},
	{DEMO_POSITION_ADA, uuid.MustParse("00000000-0000-0000-0000-000000000204"), domain.TransactionKindBuy, "cardano", "1000", "0.32", 60},
	{uuid.Nil, uuid.MustParse("00000000-0000-0000-0000-000000000205"), domain.TransactionKindSell, "bitcoin", "0.25", "52000", 10},
	{uuid.Nil, uuid.MustParse("00000000-0000-0000-0000-000000000206"), domain.TransactionKindTransfer, "ethereum", "1.0", "2700", 5},
}

// DemoSeeder fills an empty session with the demo wallet
type DemoSeeder struct {
	positionRepo    domain.PositionRepository
	transactionRepo domain.TransactionRepository
	now             func() time.Time
}

// NewDemoSeeder creates a new DemoSeeder instance
func NewDemoSeeder(positionRepo domain.PositionRepository, transactionRepo domain.TransactionRepository) *DemoSeeder {
	return &DemoSeeder{
		positionRepo:    positionRepo,
		transactionRepo: transactionRepo,
		now:             time.Now,
	}
}

// Seed writes the demo wallet when the session holds neither positions nor transactions.
// An existing session is never touched. Returns whether anything was written.
func (s *DemoSeeder) Seed(ctx context.Context) (bool, error) {
	positions, err := s.positionRepo.Load(ctx)
	if err != nil && !errors.Is(err, domain.ErrCorruptState) {
		return false, err
	}
	transactions, err := s.transactionRepo.Load(ctx)
	if err != nil && !errors.Is(err, domain.ErrCorruptState) {
		return false, err
	}
	if len(positions) > 0 || len(transactions) > 0 {
		return false, nil
	}

	now := domain.CanonicalTime(s.now())
	positions = make([]domain.Position, 0, 4)
	transactions = make([]domain.Transaction, 0, len(demoWallet))
	for _, e := range demoWallet {
		ts := now.AddDate(0, 0, -e.DaysAgo)
		tx := domain.Transaction{
			ID:        e.TxID,
			Kind:      e.Kind,
			AssetID:   e.AssetID,
			Quantity:  domain.CanonicalDecimal(decimal.RequireFromString(e.Quantity)),
			UnitPrice: domain.CanonicalDecimal(decimal.RequireFromString(e.UnitPrice)),
			Timestamp: ts,
		}
		if err := tx.Validate(); err != nil {
			return false, err
		}
		transactions = append(transactions, tx)

		if e.Kind != domain.TransactionKindBuy {
			continue
		}
		position := domain.Position{
			ID:            e.PositionID,
			AssetID:       e.AssetID,
			Quantity:      tx.Quantity,
			PurchasePrice: tx.UnitPrice,
			AcquiredAt:    ts,
		}
		if err := position.Validate(); err != nil {
			return false, err
		}
		positions = append(positions, position)
	}

	if err := s.positionRepo.Save(ctx, positions); err != nil {
		return false, err
	}
	if err := s.transactionRepo.Save(ctx, transactions); err != nil {
		return false, err
	}
	return true, nil
}
