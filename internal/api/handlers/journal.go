package handlers

import (
	"net/http"
	"strconv"

	"github.com/arborvote/arborvote/internal/service"
)

const (
	defaultJournalLimit = 100
	maxJournalLimit     = 1000
)

type JournalHandler struct {
	av *service.ArborVote
}

func NewJournalHandler(av *service.ArborVote) *JournalHandler {
	return &JournalHandler{av: av}
}

// List pages through the journal with ?after=<seq>&limit=<n>.
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var after uint64
	if v := q.Get("after"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid after")
			return
		}
		after = n
	}

	limit := defaultJournalLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxJournalLimit)
	}

	entries, err := h.av.Journal(r.Context(), after, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list journal")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
