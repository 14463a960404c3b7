package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type Ruling uint8

const (
	RulingNone Ruling = iota
	RulingUpheld
	RulingRejected
)

func (r Ruling) String() string {
	switch r {
	case RulingUpheld:
		return "upheld"
	case RulingRejected:
		return "rejected"
	default:
		return "none"
	}
}

func (r Ruling) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Dispute tracks a challenge raised against an argument during its
// finalization window.
type Dispute struct {
	DebateID            uint64         `json:"debate_id"`
	ArgumentID          uint64         `json:"argument_id"`
	Challenger          common.Address `json:"challenger"`
	ArbitratorDisputeID uint64         `json:"arbitrator_dispute_id"`
	Deposit             uint256.Int    `json:"deposit"`
	RaisedAt            uint64         `json:"raised_at"`
	Ruling              Ruling         `json:"ruling"`
}
