package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/arborvote/arborvote/internal/api/middleware"
	"github.com/arborvote/arborvote/internal/domain"
	"github.com/arborvote/arborvote/internal/market"
	"github.com/arborvote/arborvote/internal/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps ArborVote faults to HTTP statuses. The body carries
// the fault in its Name(args) form; unexpected errors get fallback.
func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		writeError(w, status, fallback)
		return
	}
	writeError(w, status, err.Error())
}

func statusOf(err error) int {
	var (
		uninit     *domain.DebateUninitializedError
		notFound   *domain.ArgumentNotFoundError
		wrongPhase *domain.WrongPhaseError
		finished   *domain.DebateFinishedError
		joined     *domain.AlreadyJoinedError
		mismatch   *domain.ArgumentStateMismatchError
		closed     *domain.FinalizationWindowClosedError
		role       *domain.RoleMismatchError
		arbitrator *domain.OnlyArbitratorError
		bounds     *domain.InitialApprovalOutOfBoundsError
		tokens     *domain.InsufficientTokensError
		shares     *domain.InsufficientSharesError
	)

	switch {
	case errors.As(err, &uninit), errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &wrongPhase), errors.As(err, &finished), errors.As(err, &joined), errors.As(err, &mismatch),
		errors.As(err, &closed), errors.Is(err, domain.ErrAlreadyInitialized):
		return http.StatusConflict
	case errors.As(err, &role), errors.As(err, &arbitrator), errors.Is(err, domain.ErrIdentityProofInvalid):
		return http.StatusForbidden
	case errors.As(err, &bounds), errors.Is(err, domain.ErrInvalidTimeUnit), errors.Is(err, domain.ErrZeroAmount):
		return http.StatusBadRequest
	case errors.As(err, &tokens), errors.As(err, &shares), errors.Is(err, domain.ErrInsufficientLiquidity),
		errors.Is(err, market.ErrOverflow), errors.Is(err, token.ErrInsufficientAllowance),
		errors.Is(err, token.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotInitialized):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func uintParam(r *http.Request, name string) (uint64, bool) {
	v, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	return v, err == nil
}

func addressParam(r *http.Request, name string) (common.Address, bool) {
	raw := chi.URLParam(r, name)
	if !common.IsHexAddress(raw) {
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

// caller returns the participant verified by middleware.SignatureAuth and writes
// 401 when it is absent.
func caller(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	addr, ok := middleware.ParticipantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
	}
	return addr, ok
}
