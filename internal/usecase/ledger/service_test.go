package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/simaogato/cryptodash-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPositionRepository is a mock implementation of PositionRepository for testing
type MockPositionRepository struct {
	mock.Mock
}

func (m *MockPositionRepository) Load(ctx context.Context) ([]domain.Position, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Position), args.Error(1)
}

func (m *MockPositionRepository) Save(ctx context.Context, positions []domain.Position) error {
	args := m.Called(ctx, positions)
	return args.Error(0)
}

// MockTransactionRepository is a mock implementation of TransactionRepository for testing
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Load(ctx context.Context) ([]domain.Transaction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Save(ctx context.Context, transactions []domain.Transaction) error {
	args := m.Called(ctx, transactions)
	return args.Error(0)
}

// stubMarket is a fixed asset snapshot
type stubMarket struct {
	assets []domain.Asset
}

func (m *stubMarket) Assets() []domain.Asset {
	out := make([]domain.Asset, len(m.assets))
	copy(out, m.assets)
	return out
}

func (m *stubMarket) Lookup(assetID string) (domain.Asset, bool) {
	return domain.FindAsset(m.assets, assetID)
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(t *testing.T) (*LedgerService, *MockPositionRepository, *MockTransactionRepository, *stubMarket) {
	t.Helper()

	rates, err := domain.NewRateTable(domain.DefaultRates())
	require.NoError(t, err)

	market := &stubMarket{assets: []domain.Asset{
		{ID: "xyz-coin", Symbol: "xyz", Name: "XYZ Coin", CurrentPrice: dec("100")},
		{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", CurrentPrice: dec("50000")},
		{ID: "delisted", Symbol: "dls", Name: "Delisted", CurrentPrice: decimal.Zero},
	}}
	positionRepo := new(MockPositionRepository)
	transactionRepo := new(MockTransactionRepository)

	svc := NewLedgerService(positionRepo, transactionRepo, market, rates, zerolog.Nop())
	svc.Clock = func() time.Time { return fixedNow }
	return svc, positionRepo, transactionRepo, market
}

func TestAddPosition_CurrencyResolution(t *testing.T) {
	tests := []struct {
		name         string
		amount       string
		currency     string
		wantQuantity string
	}{
		{name: "USD amount divided by price", amount: "50", currency: "USD", wantQuantity: "0.5"},
		{name: "asset symbol is a quantity", amount: "2", currency: "XYZ", wantQuantity: "2"},
		{name: "symbol match is case-insensitive", amount: "2", currency: "xyz", wantQuantity: "2"},
		{name: "EUR converted through rate table", amount: "100", currency: "EUR", wantQuantity: "1.08"},
		{name: "GBP converted through rate table", amount: "200", currency: "GBP", wantQuantity: "2.54"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, positionRepo, transactionRepo, _ := newTestService(t)
			positionRepo.On("Save", ctx, mock.Anything).Return(nil)
			transactionRepo.On("Save", ctx, mock.Anything).Return(nil)

			position, tx, err := svc.AddPosition(ctx, AddPositionInput{
				AssetID:      "xyz-coin",
				Amount:       tt.amount,
				CurrencyCode: tt.currency,
			})

			require.NoError(t, err)
			assert.True(t, dec(tt.wantQuantity).Equal(position.Quantity), "quantity %s", position.Quantity)
			assert.True(t, dec("100").Equal(position.PurchasePrice))
			assert.Equal(t, fixedNow, position.AcquiredAt)

			assert.Equal(t, domain.TransactionKindBuy, tx.Kind)
			assert.Equal(t, position.AssetID, tx.AssetID)
			assert.True(t, position.Quantity.Equal(tx.Quantity))
			assert.True(t, position.PurchasePrice.Equal(tx.UnitPrice))
			assert.Equal(t, position.AcquiredAt, tx.Timestamp)
		})
	}
}

func TestAddPosition_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		input   AddPositionInput
		wantErr error
	}{
		{
			name:    "unknown asset",
			input:   AddPositionInput{AssetID: "dogecoin", Amount: "10", CurrencyCode: "USD"},
			wantErr: domain.ErrAssetNotFound,
		},
		{
			name:    "zero amount",
			input:   AddPositionInput{AssetID: "xyz-coin", Amount: "0", CurrencyCode: "USD"},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			input:   AddPositionInput{AssetID: "xyz-coin", Amount: "-5", CurrencyCode: "USD"},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "not a number",
			input:   AddPositionInput{AssetID: "xyz-coin", Amount: "ten", CurrencyCode: "USD"},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "empty amount",
			input:   AddPositionInput{AssetID: "xyz-coin", Amount: "", CurrencyCode: "USD"},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "asset without price",
			input:   AddPositionInput{AssetID: "delisted", Amount: "10", CurrencyCode: "USD"},
			wantErr: domain.ErrPriceUnavailable,
		},
		{
			name:    "unsupported currency",
			input:   AddPositionInput{AssetID: "xyz-coin", Amount: "10", CurrencyCode: "CHF"},
			wantErr: domain.ErrUnsupportedCurrency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, positionRepo, transactionRepo, _ := newTestService(t)

			position, tx, err := svc.AddPosition(ctx, tt.input)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, position)
			assert.Nil(t, tx)
			assert.Empty(t, svc.Positions())
			assert.Empty(t, svc.ListTransactions(ctx, nil))
			positionRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
			transactionRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestAddPosition_UpdatesTotalsAndLog(t *testing.T) {
	ctx := context.Background()
	svc, positionRepo, transactionRepo, _ := newTestService(t)
	positionRepo.On("Save", ctx, mock.Anything).Return(nil)
	transactionRepo.On("Save", ctx, mock.Anything).Return(nil)

	_, _, err := svc.AddPosition(ctx, AddPositionInput{AssetID: "bitcoin", Amount: "0.2", CurrencyCode: "BTC"})
	require.NoError(t, err)

	before := svc.PortfolioTotals(ctx)
	txBefore := svc.ListTransactions(ctx, nil)

	position, _, err := svc.AddPosition(ctx, AddPositionInput{AssetID: "xyz-coin", Amount: "250", CurrencyCode: "USD"})
	require.NoError(t, err)

	after := svc.PortfolioTotals(ctx)
	txAfter := svc.ListTransactions(ctx, nil)

	delta := after.TotalCostBasis.Sub(before.TotalCostBasis)
	assert.True(t, position.Quantity.Mul(position.PurchasePrice).Equal(delta), "delta %s", delta)

	require.Len(t, txAfter, len(txBefore)+1)
	newest := txAfter[0]
	assert.Equal(t, domain.TransactionKindBuy, newest.Kind)
	assert.Equal(t, "xyz-coin", newest.AssetID)
	assert.True(t, dec("2.5").Equal(newest.Quantity))
	assert.True(t, dec("100").Equal(newest.UnitPrice))

	// Every save carries the full collections
	positionRepo.AssertCalled(t, "Save", ctx, mock.MatchedBy(func(p []domain.Position) bool { return len(p) == 2 }))
	transactionRepo.AssertCalled(t, "Save", ctx, mock.MatchedBy(func(tx []domain.Transaction) bool { return len(tx) == 2 }))
}

func TestAddPosition_UsesGivenTimestamp(t *testing.T) {
	ctx := context.Background()
	svc, positionRepo, transactionRepo, _ := newTestService(t)
	positionRepo.On("Save", ctx, mock.Anything).Return(nil)
	transactionRepo.On("Save", ctx, mock.Anything).Return(nil)
	acquired := time.Date(2023, 12, 24, 8, 30, 0, 0, time.UTC)

	position, tx, err := svc.AddPosition(ctx, AddPositionInput{
		AssetID:      "xyz-coin",
		Amount:       "1",
		CurrencyCode: "XYZ",
		AcquiredAt:   acquired,
	})

	require.NoError(t, err)
	assert.Equal(t, acquired, position.AcquiredAt)
	assert.Equal(t, acquired, tx.Timestamp)
}

func TestAddPosition_PriceIsCopiedAtCallTime(t *testing.T) {
	ctx := context.Background()
	svc, positionRepo, transactionRepo, market := newTestService(t)
	positionRepo.On("Save", ctx, mock.Anything).Return(nil)
	transactionRepo.On("Save", ctx, mock.Anything).Return(nil)

	position, _, err := svc.AddPosition(ctx, AddPositionInput{AssetID: "xyz-coin", Amount: "1", CurrencyCode: "XYZ"})
	require.NoError(t, err)

	// A later refresh moves the price
	market.assets[0].CurrentPrice = dec("150")

	stored := svc.Positions()
	require.Len(t, stored, 1)
	assert.True(t, dec("100").Equal(stored[0].PurchasePrice))
	assert.True(t, dec("100").Equal(position.PurchasePrice))

	vals := svc.ListPositionsWithValuation(ctx)
	require.Len(t, vals, 1)
	assert.True(t, dec("50").Equal(vals[0].ProfitLoss))
}

func TestAddPosition_PositionSaveFails(t *testing.T) {
	ctx := context.Background()
	svc, positionRepo, transactionRepo, _ := newTestService(t)
	positionRepo.On("Save", ctx, mock.Anything).Return(errors.New("disk full"))

	_, _, err := svc.AddPosition(ctx, AddPositionInput{AssetID: "xyz-coin", Amount: "1", CurrencyCode: "XYZ"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save positions")
	assert.Empty(t, svc.Positions())
	assert.Empty(t, svc.ListTransactions(ctx, nil))
	transactionRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAddPosition_TransactionSaveFailsRestoresPositions(t *testing.T) {
	ctx := context.Background()
	svc, positionRepo, transactionRepo, _ := newTestService(t)
	positionRepo.On("Save", ctx, mock.Anything).Return(nil)
	transactionRepo.On("Save", ctx, mock.Anything).Return(errors.New("connection lost"))

	_, _, err := svc.AddPosition(ctx, AddPositionInput{AssetID: "xyz-coin", Amount: "1", CurrencyCode: "XYZ"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save transactions")
	assert.Empty(t, svc.Positions())
	// Save with the new list, then the restore with the old (empty) one
	positionRepo.AssertNumberOfCalls(t, "Save", 2)
	positionRepo.AssertCalled(t, "Save", ctx, mock.MatchedBy(func(p []domain.Position) bool { return len(p) == 0 }))
}

func TestRemovePosition(t *testing.T) {
	ctx := context.Background()
	svc, positionRepo, transactionRepo, _ := newTestService(t)
	positionRepo.On("Save", ctx, mock.Anything).Return(nil)
	transactionRepo.On("Save", ctx, mock.Anything).Return(nil)

	first, _, err := svc.AddPosition(ctx, AddPositionInput{AssetID: "xyz-coin", Amount: "1", CurrencyCode: "XYZ"})
	require.NoError(t, err)
	second, _, err := svc.AddPosition(ctx, AddPositionInput{AssetID: "bitcoin", Amount: "1", CurrencyCode: "BTC"})
	require.NoError(t, err)

	err = svc.RemovePosition(ctx, first.ID)

	require.NoError(t, err)
	remaining := svc.Positions()
	require.Len(t, remaining, 1)
	assert.Equal(t, second.ID, remaining[0].ID)
	// The log is append-only
	assert.Len(t, svc.ListTransactions(ctx, nil), 2)
	transactionRepo.AssertNumberOfCalls(t, "Save", 2)
}

func TestRemovePosition_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, positionRepo, _, _ := newTestService(t)

	err := svc.RemovePosition(ctx, uuid.New())

	assert.ErrorIs(t, err, domain.ErrPositionNotFound)
	positionRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestListTransactions(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t)

	day := func(d int) time.Time { return fixedNow.AddDate(0, 0, -d) }
	svc.transactions = []domain.Transaction{
		{ID: uuid.New(), Kind: domain.TransactionKindBuy, AssetID: "bitcoin", Timestamp: day(30)},
		{ID: uuid.New(), Kind: domain.TransactionKindSell, AssetID: "bitcoin", Timestamp: day(10)},
		{ID: uuid.New(), Kind: domain.TransactionKindBuy, AssetID: "ethereum", Timestamp: day(45)},
		{ID: uuid.New(), Kind: domain.TransactionKindTransfer, AssetID: "ethereum", Timestamp: day(5)},
		{ID: uuid.New(), Kind: domain.TransactionKindBuy, AssetID: "solana", Timestamp: day(10)},
	}

	all := svc.ListTransactions(ctx, nil)
	require.Len(t, all, 5)
	got := make([]string, len(all))
	for i, tx := range all {
		got[i] = tx.AssetID + ":" + string(tx.Kind)
	}
	// solana was inserted after the bitcoin sell with the same timestamp
	assert.Equal(t, []string{
		"ethereum:transfer",
		"solana:buy",
		"bitcoin:sell",
		"bitcoin:buy",
		"ethereum:buy",
	}, got)

	buy := domain.TransactionKindBuy
	buys := svc.ListTransactions(ctx, &buy)
	require.Len(t, buys, 3)
	for _, tx := range buys {
		assert.Equal(t, domain.TransactionKindBuy, tx.Kind)
	}

	sell := domain.TransactionKindSell
	assert.Len(t, svc.ListTransactions(ctx, &sell), 1)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	svc, positionRepo, transactionRepo, _ := newTestService(t)
	stored := []domain.Position{{ID: uuid.New(), AssetID: "bitcoin", Quantity: dec("1"), PurchasePrice: dec("40000")}}
	positionRepo.On("Load", ctx).Return(stored, nil)
	transactionRepo.On("Load", ctx).Return([]domain.Transaction{}, nil)

	require.NoError(t, svc.Load(ctx))

	assert.Equal(t, stored, svc.Positions())
	assert.True(t, dec("50000").Equal(svc.PortfolioTotals(ctx).TotalValue))
}

func TestLoad_CorruptStateStartsEmpty(t *testing.T) {
	ctx := context.Background()
	svc, positionRepo, transactionRepo, _ := newTestService(t)
	positionRepo.On("Load", ctx).Return(nil, domain.ErrCorruptState)
	transactionRepo.On("Load", ctx).Return(nil, domain.ErrCorruptState)

	require.NoError(t, svc.Load(ctx))

	assert.Empty(t, svc.Positions())
	assert.Empty(t, svc.ListTransactions(ctx, nil))
}

func TestLoad_StorageFailure(t *testing.T) {
	ctx := context.Background()
	svc, positionRepo, _, _ := newTestService(t)
	positionRepo.On("Load", ctx).Return(nil, errors.New("connection refused"))

	err := svc.Load(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load positions")
}

func TestAllocation(t *testing.T) {
	ctx := context.Background()
	svc, positionRepo, transactionRepo, _ := newTestService(t)
	positionRepo.On("Save", ctx, mock.Anything).Return(nil)
	transactionRepo.On("Save", ctx, mock.Anything).Return(nil)

	_, _, err := svc.AddPosition(ctx, AddPositionInput{AssetID: "xyz-coin", Amount: "300", CurrencyCode: "USD"})
	require.NoError(t, err)
	_, _, err = svc.AddPosition(ctx, AddPositionInput{AssetID: "xyz-coin", Amount: "100", CurrencyCode: "USD"})
	require.NoError(t, err)

	slices := svc.Allocation(ctx)

	require.Len(t, slices, 1)
	assert.Equal(t, "xyz-coin", slices[0].AssetID)
	assert.True(t, dec("400").Equal(slices[0].Value))
	assert.True(t, dec("100").Equal(slices[0].Percent))
}
