package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/arborvote/arborvote/internal/service"
)

type DisputeHandler struct {
	svc *service.DisputeService
}

func NewDisputeHandler(svc *service.DisputeService) *DisputeHandler {
	return &DisputeHandler{svc: svc}
}

type rulingRequest struct {
	Upheld *bool `json:"upheld"`
}

func (h *DisputeHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	participant, ok := caller(w, r)
	if !ok {
		return
	}
	debateID, argID, ok := argumentPath(w, r)
	if !ok {
		return
	}

	d, err := h.svc.Challenge(r.Context(), participant, debateID, argID)
	if err != nil {
		writeDomainError(w, err, "failed to challenge argument")
		return
	}
	writeJSON(w, http.StatusCreated, newDisputeResponse(d))
}

// Ruling accepts a ruling from the arbitrator, identified by its address in
// the participant header.
func (h *DisputeHandler) Ruling(w http.ResponseWriter, r *http.Request) {
	arbitrator, ok := caller(w, r)
	if !ok {
		return
	}
	debateID, argID, ok := argumentPath(w, r)
	if !ok {
		return
	}

	var req rulingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Upheld == nil {
		writeError(w, http.StatusBadRequest, "upheld is required")
		return
	}

	if err := h.svc.RuleOnDispute(r.Context(), arbitrator, debateID, argID, *req.Upheld); err != nil {
		writeDomainError(w, err, "failed to apply ruling")
		return
	}

	d, _, err := h.svc.GetDispute(r.Context(), debateID, argID)
	if err != nil {
		writeDomainError(w, err, "failed to get dispute")
		return
	}
	writeJSON(w, http.StatusOK, newDisputeResponse(d))
}

func (h *DisputeHandler) Get(w http.ResponseWriter, r *http.Request) {
	debateID, argID, ok := argumentPath(w, r)
	if !ok {
		return
	}

	d, found, err := h.svc.GetDispute(r.Context(), debateID, argID)
	if err != nil {
		writeDomainError(w, err, "failed to get dispute")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no dispute for argument")
		return
	}
	writeJSON(w, http.StatusOK, newDisputeResponse(d))
}

func argumentPath(w http.ResponseWriter, r *http.Request) (uint64, uint64, bool) {
	debateID, ok := uintParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid debate id")
		return 0, 0, false
	}
	argID, ok := uintParam(r, "argID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid argument id")
		return 0, 0, false
	}
	return debateID, argID, true
}
