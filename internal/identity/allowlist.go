// Package identity provides proof-of-personhood adapters for ArborVote.
package identity

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Allowlist is an in-memory registry of verified addresses.
type Allowlist struct {
	mu       sync.RWMutex
	verified map[common.Address]struct{}
}

func NewAllowlist(addrs ...common.Address) *Allowlist {
	a := &Allowlist{verified: make(map[common.Address]struct{}, len(addrs))}
	for _, addr := range addrs {
		a.verified[addr] = struct{}{}
	}
	return a
}

func (a *Allowlist) Add(addr common.Address) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.verified[addr] = struct{}{}
}

func (a *Allowlist) Remove(addr common.Address) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.verified, addr)
}

func (a *Allowlist) IsVerified(ctx context.Context, participant common.Address) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.verified[participant]
	return ok, nil
}

func (a *Allowlist) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.verified)
}
