package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/arborvote/arborvote/internal/domain"
	"github.com/arborvote/arborvote/internal/market"
	"github.com/arborvote/arborvote/internal/service"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type MarketHandler struct {
	svc *service.MarketService
}

func NewMarketHandler(svc *service.MarketService) *MarketHandler {
	return &MarketHandler{svc: svc}
}

type tradeRequest struct {
	Side   string `json:"side"`
	Amount string `json:"amount"`
}

type tradeFunc func(h *MarketHandler, r *http.Request, caller common.Address, debateID, argID uint64, side domain.Side, amount *uint256.Int) (market.Trade, error)

func (h *MarketHandler) Buy(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, func(h *MarketHandler, r *http.Request, c common.Address, d, a uint64, s domain.Side, n *uint256.Int) (market.Trade, error) {
		return h.svc.Buy(r.Context(), c, d, a, s, n)
	})
}

func (h *MarketHandler) Sell(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, func(h *MarketHandler, r *http.Request, c common.Address, d, a uint64, s domain.Side, n *uint256.Int) (market.Trade, error) {
		return h.svc.Sell(r.Context(), c, d, a, s, n)
	})
}

func (h *MarketHandler) trade(w http.ResponseWriter, r *http.Request, do tradeFunc) {
	participant, ok := caller(w, r)
	if !ok {
		return
	}
	debateID, argID, ok := argumentPath(w, r)
	if !ok {
		return
	}

	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	side, ok := domain.ParseSide(req.Side)
	if !ok {
		writeError(w, http.StatusBadRequest, "side must be pro or con")
		return
	}
	amount, err := uint256.FromDecimal(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a decimal integer")
		return
	}

	t, err := do(h, r, participant, debateID, argID, side, amount)
	if err != nil {
		writeDomainError(w, err, "failed to trade")
		return
	}
	writeJSON(w, http.StatusOK, newTradeResponse(t))
}

func (h *MarketHandler) Shares(w http.ResponseWriter, r *http.Request) {
	debateID, argID, ok := argumentPath(w, r)
	if !ok {
		return
	}
	addr, ok := addressParam(r, "address")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	s, err := h.svc.GetShares(r.Context(), debateID, argID, addr)
	if err != nil {
		writeDomainError(w, err, "failed to get shares")
		return
	}
	writeJSON(w, http.StatusOK, shareResponse{Participant: addr, Pro: s.Pro.Dec(), Con: s.Con.Dec()})
}
