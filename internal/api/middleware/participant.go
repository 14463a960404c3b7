package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
)

type contextKey string

const (
	// ParticipantHeader carries the address the request claims to come
	// from. It is only trusted once SignatureAuth has checked it.
	ParticipantHeader = "X-Participant"

	participantContextKey contextKey = "participant"
)

// ParticipantFromContext returns the caller address verified by
// SignatureAuth.
func ParticipantFromContext(ctx context.Context) (common.Address, bool) {
	addr, ok := ctx.Value(participantContextKey).(common.Address)
	return addr, ok
}

func withParticipant(ctx context.Context, addr common.Address) context.Context {
	return context.WithValue(ctx, participantContextKey, addr)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
