package seeder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/cryptodash-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPositionRepository is a mock implementation of PositionRepository
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

// MockTransactionRepository is a mock implementation of TransactionRepository
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

var seedNow = time.Date(2024, 6, 30, 9, 0, 0, 0, time.UTC)

func TestDemoSeeder_Seed_EmptySession(t *testing.T) {
	ctx := context.Background()
	positionRepo := new(MockPositionRepository)
	transactionRepo := new(MockTransactionRepository)
	seeder := NewDemoSeeder(positionRepo, transactionRepo)
	seeder.now = func() time.Time { return seedNow }

	positionRepo.On("Load", ctx).Return([]domain.Position{}, nil)
	transactionRepo.On("Load", ctx).Return([]domain.Transaction{}, nil)

	var savedPositions []domain.Position
	var savedTransactions []domain.Transaction
	positionRepo.On("Save", ctx, mock.Anything).Run(func(args mock.Arguments) {
		savedPositions = args.Get(1).([]domain.Position)
	}).Return(nil)
	transactionRepo.On("Save", ctx, mock.Anything).Run(func(args mock.Arguments) {
		savedTransactions = args.Get(1).([]domain.Transaction)
	}).Return(nil)

	seeded, err := seeder.Seed(ctx)

	require.NoError(t, err)
	assert.True(t, seeded)

	require.Len(t, savedPositions, 4)
	assert.Equal(t, DEMO_POSITION_BTC, savedPositions[0].ID)
	assert.Equal(t, "bitcoin", savedPositions[0].AssetID)
	assert.True(t, decimal.RequireFromString("0.75").Equal(savedPositions[0].Quantity))
	assert.True(t, decimal.RequireFromString("48000").Equal(savedPositions[0].PurchasePrice))
	assert.Equal(t, seedNow.AddDate(0, 0, -30), savedPositions[0].AcquiredAt)
	assert.Equal(t, "cardano", savedPositions[3].AssetID)

	require.Len(t, savedTransactions, 6)
	kinds := map[domain.TransactionKind]int{}
	for _, tx := range savedTransactions {
		kinds[tx.Kind]++
		assert.NotEqual(t, uuid.Nil, tx.ID)
	}
	assert.Equal(t, 4, kinds[domain.TransactionKindBuy])
	assert.Equal(t, 1, kinds[domain.TransactionKindSell])
	assert.Equal(t, 1, kinds[domain.TransactionKindTransfer])
	assert.Equal(t, seedNow.AddDate(0, 0, -5), savedTransactions[5].Timestamp)
}

func TestDemoSeeder_Seed_ExistingSessionUntouched(t *testing.T) {
	ctx := context.Background()
	positionRepo := new(MockPositionRepository)
	transactionRepo := new(MockTransactionRepository)
	seeder := NewDemoSeeder(positionRepo, transactionRepo)

	positionRepo.On("Load", ctx).Return([]domain.Position{}, nil)
	transactionRepo.On("Load", ctx).Return([]domain.Transaction{{ID: uuid.New(), Kind: domain.TransactionKindBuy}}, nil)

	seeded, err := seeder.Seed(ctx)

	require.NoError(t, err)
	assert.False(t, seeded)
	positionRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	transactionRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestDemoSeeder_Seed_CorruptSessionIsReseeded(t *testing.T) {
	ctx := context.Background()
	positionRepo := new(MockPositionRepository)
	transactionRepo := new(MockTransactionRepository)
	seeder := NewDemoSeeder(positionRepo, transactionRepo)

	positionRepo.On("Load", ctx).Return(nil, domain.ErrCorruptState)
	transactionRepo.On("Load", ctx).Return([]domain.Transaction{}, nil)
	positionRepo.On("Save", ctx, mock.Anything).Return(nil)
	transactionRepo.On("Save", ctx, mock.Anything).Return(nil)

	seeded, err := seeder.Seed(ctx)

	require.NoError(t, err)
	assert.True(t, seeded)
}

func TestDemoSeeder_Seed_StorageErrors(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(ctx context.Context, p *MockPositionRepository, tr *MockTransactionRepository)
		errMsg string
	}{
		{
			name: "load fails",
			setup: func(ctx context.Context, p *MockPositionRepository, tr *MockTransactionRepository) {
				p.On("Load", ctx).Return(nil, errors.New("connection refused"))
			},
			errMsg: "connection refused",
		},
		{
			name: "save fails",
			setup: func(ctx context.Context, p *MockPositionRepository, tr *MockTransactionRepository) {
				p.On("Load", ctx).Return([]domain.Position{}, nil)
				tr.On("Load", ctx).Return([]domain.Transaction{}, nil)
				p.On("Save", ctx, mock.Anything).Return(errors.New("read-only"))
			},
			errMsg: "read-only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			positionRepo := new(MockPositionRepository)
			transactionRepo := new(MockTransactionRepository)
			tt.setup(ctx, positionRepo, transactionRepo)

			seeded, err := NewDemoSeeder(positionRepo, transactionRepo).Seed(ctx)

			assert.False(t, seeded)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
