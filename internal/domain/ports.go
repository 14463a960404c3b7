package domain

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// IdentityOracle answers whether an address belongs to a verified person.
type IdentityOracle interface {
	IsVerified(ctx context.Context, participant common.Address) (bool, error)
}

// StakeToken is the fungible token used for dispute deposits. ArborVote acts
// as the spender of TransferFrom and the sender of Transfer.
type StakeToken interface {
	TransferFrom(ctx context.Context, from, to common.Address, amount *uint256.Int) error
	Transfer(ctx context.Context, to common.Address, amount *uint256.Int) error
	BalanceOf(ctx context.Context, owner common.Address) (*uint256.Int, error)
}

type DisputeRequest struct {
	DebateID   uint64         `json:"debate_id"`
	ArgumentID uint64         `json:"argument_id"`
	Challenger common.Address `json:"challenger"`
	ContentURI common.Hash    `json:"content_uri"`
}

// Arbitrator receives challenges. Rulings come back through
// RuleOnDispute, called with the arbitrator's own address.
type Arbitrator interface {
	Address() common.Address
	CreateDispute(ctx context.Context, req DisputeRequest) (uint64, error)
}

// Clock supplies monotonically non-decreasing logical time in seconds.
type Clock interface {
	Now() uint64
}

// JournalEntry records the inputs of one committed operation.
type JournalEntry struct {
	ID       uuid.UUID       `json:"id"`
	Seq      uint64          `json:"seq"`
	Op       string          `json:"op"`
	DebateID uint64          `json:"debate_id"`
	Caller   common.Address  `json:"caller"`
	At       uint64          `json:"at"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

type JournalStore interface {
	Append(ctx context.Context, e *JournalEntry) error
	List(ctx context.Context, afterSeq uint64, limit int) ([]JournalEntry, error)
}
