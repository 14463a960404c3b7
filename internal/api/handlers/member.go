package handlers

import (
	"net/http"

	"github.com/arborvote/arborvote/internal/service"
)

type MemberHandler struct {
	svc *service.MembershipService
}

func NewMemberHandler(svc *service.MembershipService) *MemberHandler {
	return &MemberHandler{svc: svc}
}

func (h *MemberHandler) Join(w http.ResponseWriter, r *http.Request) {
	participant, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := uintParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid debate id")
		return
	}

	m, err := h.svc.Join(r.Context(), participant, id)
	if err != nil {
		writeDomainError(w, err, "failed to join debate")
		return
	}
	writeJSON(w, http.StatusCreated, newMemberResponse(m))
}

func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid debate id")
		return
	}
	addr, ok := addressParam(r, "address")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	m, err := h.svc.GetMember(r.Context(), id, addr)
	if err != nil {
		writeDomainError(w, err, "failed to get member")
		return
	}
	writeJSON(w, http.StatusOK, newMemberResponse(m))
}
