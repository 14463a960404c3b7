package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/arborvote/arborvote/internal/arbitration"
)

// CourtHandler serves the in-process arbitrator. Only the court's own
// address may deliver rulings.
type CourtHandler struct {
	court *arbitration.Court
}

func NewCourtHandler(court *arbitration.Court) *CourtHandler {
	return &CourtHandler{court: court}
}

func (h *CourtHandler) Pending(w http.ResponseWriter, r *http.Request) {
	cases := h.court.Pending()
	if cases == nil {
		cases = []arbitration.Case{}
	}
	writeJSON(w, http.StatusOK, cases)
}

func (h *CourtHandler) Rule(w http.ResponseWriter, r *http.Request) {
	participant, ok := caller(w, r)
	if !ok {
		return
	}
	if participant != h.court.Address() {
		writeError(w, http.StatusForbidden, "only the court may rule")
		return
	}
	id, ok := uintParam(r, "caseID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid case id")
		return
	}

	var req rulingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Upheld == nil {
		writeError(w, http.StatusBadRequest, "upheld is required")
		return
	}

	if err := h.court.Rule(r.Context(), id, *req.Upheld); err != nil {
		switch {
		case errors.Is(err, arbitration.ErrDisputeNotFound):
			writeError(w, http.StatusNotFound, "case not found")
		case errors.Is(err, arbitration.ErrAlreadyRuled):
			writeError(w, http.StatusConflict, "case already ruled")
		default:
			writeDomainError(w, err, "failed to deliver ruling")
		}
		return
	}

	cs, _ := h.court.Case(id)
	writeJSON(w, http.StatusOK, cs)
}
