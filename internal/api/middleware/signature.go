package middleware

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	SignatureHeader = "X-Signature"
	TimestampHeader = "X-Timestamp"
	NonceHeader     = "X-Nonce"

	maxNonceLen   = 128
	maxSignedBody = 1 << 20
)

var errBodyTooLarge = errors.New("request body too large")

// SignatureAuth authenticates callers by an Ethereum personal signature
// over the request. The signed message binds method, path and query,
// timestamp, nonce and the body hash, so a captured signature cannot be
// reused for another request. A nonce is accepted once per address while
// its timestamp is inside the allowed skew.
type SignatureAuth struct {
	maxSkew time.Duration
	now     func() time.Time

	mu        sync.Mutex
	seen      map[string]time.Time
	lastSweep time.Time
}

func NewSignatureAuth(maxSkew time.Duration) *SignatureAuth {
	return &SignatureAuth{
		maxSkew: maxSkew,
		now:     time.Now,
		seen:    make(map[string]time.Time),
	}
}

// Middleware rejects requests whose signature does not recover to the
// address in X-Participant and stores the verified address in the
// request context.
func (a *SignatureAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(ParticipantHeader))
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "missing "+ParticipantHeader+" header")
			return
		}
		if !common.IsHexAddress(raw) {
			writeError(w, http.StatusUnauthorized, "invalid "+ParticipantHeader+" header")
			return
		}
		claimed := common.HexToAddress(raw)

		sigHex := r.Header.Get(SignatureHeader)
		tsRaw := r.Header.Get(TimestampHeader)
		nonce := r.Header.Get(NonceHeader)
		if sigHex == "" || tsRaw == "" || nonce == "" {
			writeError(w, http.StatusUnauthorized, "request is not signed")
			return
		}
		if len(nonce) > maxNonceLen {
			writeError(w, http.StatusUnauthorized, "invalid "+NonceHeader+" header")
			return
		}
		ts, err := strconv.ParseInt(tsRaw, 10, 64)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid "+TimestampHeader+" header")
			return
		}
		signedAt := time.Unix(ts, 0)
		now := a.now()
		if skew := now.Sub(signedAt); skew > a.maxSkew || skew < -a.maxSkew {
			writeError(w, http.StatusUnauthorized, "request timestamp outside allowed window")
			return
		}

		body, err := readBody(r)
		if err != nil {
			if errors.Is(err, errBodyTooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, err.Error())
				return
			}
			writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}

		signer, err := recoverSigner(requestDigest(r.Method, r.URL.RequestURI(), tsRaw, nonce, body), sigHex)
		if err != nil || signer != claimed {
			writeError(w, http.StatusUnauthorized, "invalid request signature")
			return
		}
		if !a.remember(claimed, nonce, signedAt.Add(a.maxSkew), now) {
			writeError(w, http.StatusUnauthorized, "nonce already used")
			return
		}

		next.ServeHTTP(w, r.WithContext(withParticipant(r.Context(), claimed)))
	})
}

// remember records a nonce until expires. It reports false when the
// nonce was already used by addr.
func (a *SignatureAuth) remember(addr common.Address, nonce string, expires, now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if now.Sub(a.lastSweep) > a.maxSkew {
		for k, exp := range a.seen {
			if now.After(exp) {
				delete(a.seen, k)
			}
		}
		a.lastSweep = now
	}

	key := addr.Hex() + ":" + nonce
	if exp, ok := a.seen[key]; ok && !now.After(exp) {
		return false
	}
	a.seen[key] = expires
	return true
}

// SignRequest signs r with key the way SignatureAuth expects. The body is
// read and restored.
func SignRequest(r *http.Request, key *ecdsa.PrivateKey, nonce string, at time.Time) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}
	ts := strconv.FormatInt(at.Unix(), 10)
	sig, err := crypto.Sign(requestDigest(r.Method, r.URL.RequestURI(), ts, nonce, body), key)
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}
	// wallets produce v in {27,28}
	sig[crypto.RecoveryIDOffset] += 27

	r.Header.Set(ParticipantHeader, crypto.PubkeyToAddress(key.PublicKey).Hex())
	r.Header.Set(TimestampHeader, ts)
	r.Header.Set(NonceHeader, nonce)
	r.Header.Set(SignatureHeader, hexutil.Encode(sig))
	return nil
}

// requestDigest is the personal_sign hash of
//
//	arborvote request\n<method>\n<request uri>\n<timestamp>\n<nonce>\n<keccak256(body)>
func requestDigest(method, uri, ts, nonce string, body []byte) []byte {
	msg := strings.Join([]string{
		"arborvote request",
		strings.ToUpper(method),
		uri,
		ts,
		nonce,
		crypto.Keccak256Hash(body).Hex(),
	}, "\n")
	return crypto.Keccak256([]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)))
}

func recoverSigner(digest []byte, sigHex string) (common.Address, error) {
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return common.Address{}, err
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes", crypto.SignatureLength)
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSignedBody+1))
	_ = r.Body.Close()
	if err != nil {
		return nil, err
	}
	if len(body) > maxSignedBody {
		return nil, errBodyTooLarge
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
