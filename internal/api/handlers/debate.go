package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/arborvote/arborvote/internal/domain"
	"github.com/arborvote/arborvote/internal/service"
	"github.com/ethereum/go-ethereum/common"
)

type DebateHandler struct {
	phases *service.PhaseService
	tally  *service.TallyService
}

func NewDebateHandler(phases *service.PhaseService, tally *service.TallyService) *DebateHandler {
	return &DebateHandler{phases: phases, tally: tally}
}

type createDebateRequest struct {
	Thesis   common.Hash `json:"thesis"`
	TimeUnit uint64      `json:"time_unit"`
}

type advanceResponse struct {
	DebateID uint64       `json:"debate_id"`
	Phase    domain.Phase `json:"phase"`
}

func (h *DebateHandler) Create(w http.ResponseWriter, r *http.Request) {
	creator, ok := caller(w, r)
	if !ok {
		return
	}

	var req createDebateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Thesis == (common.Hash{}) {
		writeError(w, http.StatusBadRequest, "thesis is required")
		return
	}

	id, err := h.phases.CreateDebate(r.Context(), creator, req.Thesis, req.TimeUnit)
	if err != nil {
		writeDomainError(w, err, "failed to create debate")
		return
	}

	d, err := h.phases.GetDebate(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "failed to get debate")
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *DebateHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid debate id")
		return
	}

	d, err := h.phases.GetDebate(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "failed to get debate")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DebateHandler) Advance(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid debate id")
		return
	}

	phase, err := h.phases.AdvancePhase(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "failed to advance debate")
		return
	}
	writeJSON(w, http.StatusOK, advanceResponse{DebateID: id, Phase: phase})
}

func (h *DebateHandler) Result(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid debate id")
		return
	}

	result, err := h.tally.DebateResult(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "failed to tally debate")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
