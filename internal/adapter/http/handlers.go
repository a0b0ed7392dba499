package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/simaogato/cryptodash-backend/internal/domain"
	"github.com/simaogato/cryptodash-backend/internal/usecase/ledger"
	"github.com/simaogato/cryptodash-backend/internal/usecase/marketdata"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.market.Snapshot()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"fallbackActive": snap.FallbackActive,
		"assets":         len(snap.Assets),
	})
}

// handleGetMarkets returns the cached snapshot, filtered and sorted.
// Query params: search, sort, desc (true/false)
func (s *Server) handleGetMarkets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sortBy, err := marketdata.ParseSortKey(q.Get("sort"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	query := marketdata.Query{
		Search:     q.Get("search"),
		SortBy:     sortBy,
		Descending: q.Get("desc") == "true" || q.Get("desc") == "1",
	}

	snap := s.market.Snapshot()
	s.writeJSON(w, http.StatusOK, newSnapshotResponse(snap, query.Apply(snap.Assets)))
}

func (s *Server) handleRefreshMarkets(w http.ResponseWriter, r *http.Request) {
	snap := s.market.Refresh(r.Context())
	s.writeJSON(w, http.StatusOK, newSnapshotResponse(snap, snap.Assets))
}

func (s *Server) handleGetChart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	asset, ok := s.market.Lookup(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "asset not found: "+id)
		return
	}
	s.writeJSON(w, http.StatusOK, newChartResponse(asset))
}

func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.writeJSON(w, http.StatusOK, newPortfolioResponse(
		s.ledger.ListPositionsWithValuation(ctx),
		s.ledger.PortfolioTotals(ctx),
		s.ledger.Allocation(ctx),
	))
}

func (s *Server) handleAddPosition(w http.ResponseWriter, r *http.Request) {
	var req addPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := ledger.AddPositionInput{
		AssetID:      req.AssetID,
		Amount:       req.Amount,
		CurrencyCode: req.Currency,
	}
	if req.AcquiredAt != "" {
		acquiredAt, err := time.Parse(time.RFC3339, req.AcquiredAt)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid acquiredAt format")
			return
		}
		input.AcquiredAt = acquiredAt
	}

	position, tx, err := s.ledger.AddPosition(r.Context(), input)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, addPositionResponse{
		Position:    *position,
		Transaction: newTransactionResponse(*tx),
	})
}

func (s *Server) handleRemovePosition(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid position id")
		return
	}

	if err := s.ledger.RemovePosition(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListTransactions returns the transaction log, most recent first.
// Query params: kind (buy, sell or transfer)
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	var kind *domain.TransactionKind
	if raw := r.URL.Query().Get("kind"); raw != "" {
		k, err := domain.ParseTransactionKind(raw)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		kind = &k
	}

	transactions := s.ledger.ListTransactions(r.Context(), kind)
	out := make([]transactionResponse, len(transactions))
	for i, tx := range transactions {
		out[i] = newTransactionResponse(tx)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

// Helper methods

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("Request failed")
	}
	s.writeError(w, status, err.Error())
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrAssetNotFound),
		errors.Is(err, domain.ErrPositionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrUnsupportedCurrency),
		errors.Is(err, domain.ErrInvalidKind):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPriceUnavailable):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
