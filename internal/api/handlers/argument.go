package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/arborvote/arborvote/internal/service"
)

type ArgumentHandler struct {
	svc *service.ArgumentService
}

func NewArgumentHandler(svc *service.ArgumentService) *ArgumentHandler {
	return &ArgumentHandler{svc: svc}
}

func (h *ArgumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	participant, ok := caller(w, r)
	if !ok {
		return
	}
	debateID, ok := uintParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid debate id")
		return
	}

	var req service.AddArgumentInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.svc.AddArgument(r.Context(), participant, debateID, req)
	if err != nil {
		writeDomainError(w, err, "failed to add argument")
		return
	}

	a, err := h.svc.GetArgument(r.Context(), debateID, id)
	if err != nil {
		writeDomainError(w, err, "failed to get argument")
		return
	}
	writeJSON(w, http.StatusCreated, newArgumentResponse(a))
}

func (h *ArgumentHandler) List(w http.ResponseWriter, r *http.Request) {
	debateID, ok := uintParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid debate id")
		return
	}

	args, err := h.svc.ListArguments(r.Context(), debateID)
	if err != nil {
		writeDomainError(w, err, "failed to list arguments")
		return
	}
	out := make([]argumentResponse, len(args))
	for i, a := range args {
		out[i] = newArgumentResponse(a)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ArgumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	debateID, ok := uintParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid debate id")
		return
	}
	argID, ok := uintParam(r, "argID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid argument id")
		return
	}

	a, err := h.svc.GetArgument(r.Context(), debateID, argID)
	if err != nil {
		writeDomainError(w, err, "failed to get argument")
		return
	}
	writeJSON(w, http.StatusOK, newArgumentResponse(a))
}

func (h *ArgumentHandler) Leaves(w http.ResponseWriter, r *http.Request) {
	debateID, ok := uintParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid debate id")
		return
	}

	ids, err := h.svc.LeafArgumentIDs(r.Context(), debateID)
	if err != nil {
		writeDomainError(w, err, "failed to list leaf arguments")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]uint64{"argument_ids": ids})
}

func (h *ArgumentHandler) Disputed(w http.ResponseWriter, r *http.Request) {
	debateID, ok := uintParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid debate id")
		return
	}

	ids, err := h.svc.DisputedArgumentIDs(r.Context(), debateID)
	if err != nil {
		writeDomainError(w, err, "failed to list disputed arguments")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]uint64{"argument_ids": ids})
}
