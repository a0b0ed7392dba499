package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/simaogato/cryptodash-backend/internal/domain"
	"github.com/simaogato/cryptodash-backend/internal/usecase/ledger"
	"github.com/simaogato/cryptodash-backend/internal/usecase/marketdata"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Server implements the Portfolio gRPC service
type Server struct {
	Market *marketdata.Cache
	Ledger *ledger.LedgerService
	Health *health.Server

	log zerolog.Logger
}

// NewServer creates a new gRPC server instance
func NewServer(market *marketdata.Cache, ledgerService *ledger.LedgerService, log zerolog.Logger) *Server {
	h := health.NewServer()
	h.SetServingStatus(PortfolioServiceName, healthpb.HealthCheckResponse_SERVING)
	h.SetServingStatus(MarketHealthService, healthpb.HealthCheckResponse_SERVING)

	return &Server{
		Market: market,
		Ledger: ledgerService,
		Health: h,
		log:    log.With().Str("component", "grpc").Logger(),
	}
}

// TrackMarketHealth reports MarketHealthService as NOT_SERVING while fallback data is
// active. It returns when updates is closed or ctx is done.
func (s *Server) TrackMarketHealth(ctx context.Context, updates <-chan marketdata.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			s.Health.SetServingStatus(MarketHealthService, marketStatus(snap))
		}
	}
}

func marketStatus(snap marketdata.Snapshot) healthpb.HealthCheckResponse_ServingStatus {
	if snap.FallbackActive {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}

// GetMarketSnapshot handles the GetMarketSnapshot RPC
// Request fields: search, sort_by, descending (all optional)
func (s *Server) GetMarketSnapshot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sortBy, err := marketdata.ParseSortKey(stringField(req, "sort_by"))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	query := marketdata.Query{
		Search:     stringField(req, "search"),
		SortBy:     sortBy,
		Descending: boolField(req, "descending"),
	}

	snap := s.Market.Snapshot()
	return newStruct(snapshotValue(snap, query.Apply(snap.Assets)))
}

// RefreshMarket handles the RefreshMarket RPC.
// It runs a refresh on demand and returns the resulting snapshot; the periodic
// schedule is unaffected.
func (s *Server) RefreshMarket(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	snap := s.Market.Refresh(ctx)
	return newStruct(snapshotValue(snap, snap.Assets))
}

// AddPosition handles the AddPosition RPC
// Request fields: asset_id, amount, currency, acquired_at (RFC 3339, optional)
func (s *Server) AddPosition(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input := ledger.AddPositionInput{
		AssetID:      stringField(req, "asset_id"),
		Amount:       stringField(req, "amount"),
		CurrencyCode: stringField(req, "currency"),
	}
	if raw := stringField(req, "acquired_at"); raw != "" {
		acquiredAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid acquired_at format: %v", err)
		}
		input.AcquiredAt = acquiredAt
	}

	position, tx, err := s.Ledger.AddPosition(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(map[string]any{
		"position":    positionValue(*position),
		"transaction": transactionValue(*tx),
	})
}

// RemovePosition handles the RemovePosition RPC
// Request fields: id
func (s *Server) RemovePosition(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := uuid.Parse(stringField(req, "id"))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid id format: %v", err)
	}

	if err := s.Ledger.RemovePosition(ctx, id); err != nil {
		return nil, mapError(err)
	}
	return &structpb.Struct{}, nil
}

// ListPositions handles the ListPositions RPC: valued positions, totals and allocation
func (s *Server) ListPositions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	valuations := s.Ledger.ListPositionsWithValuation(ctx)

	positions := make([]any, len(valuations))
	for i, v := range valuations {
		positions[i] = valuationValue(v)
	}

	return newStruct(map[string]any{
		"positions":  positions,
		"totals":     totalsValue(s.Ledger.PortfolioTotals(ctx)),
		"allocation": allocationValue(s.Ledger.Allocation(ctx)),
	})
}

// GetTotals handles the GetTotals RPC
func (s *Server) GetTotals(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return newStruct(totalsValue(s.Ledger.PortfolioTotals(ctx)))
}

// ListTransactions handles the ListTransactions RPC
// Request fields: kind (optional: buy, sell or transfer)
func (s *Server) ListTransactions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var kind *domain.TransactionKind
	if raw := stringField(req, "kind"); raw != "" {
		k, err := domain.ParseTransactionKind(raw)
		if err != nil {
			return nil, mapError(err)
		}
		kind = &k
	}

	transactions := s.Ledger.ListTransactions(ctx, kind)
	list := make([]any, len(transactions))
	for i, tx := range transactions {
		list[i] = transactionValue(tx)
	}
	return newStruct(map[string]any{"transactions": list})
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, domain.ErrAssetNotFound),
		errors.Is(err, domain.ErrPositionNotFound):
		return status.Errorf(codes.NotFound, "%s", err.Error())
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrUnsupportedCurrency),
		errors.Is(err, domain.ErrInvalidKind):
		return status.Errorf(codes.InvalidArgument, "%s", err.Error())
	case errors.Is(err, domain.ErrPriceUnavailable):
		return status.Errorf(codes.FailedPrecondition, "%s", err.Error())
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", err.Error())
}
