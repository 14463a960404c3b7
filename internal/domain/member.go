package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type Role uint8

const (
	RoleUnassigned Role = iota
	RoleParticipant
	RoleJuror
)

func (r Role) String() string {
	switch r {
	case RoleParticipant:
		return "participant"
	case RoleJuror:
		return "juror"
	default:
		return "unassigned"
	}
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// DefaultInitialTokens is the voting-token grant credited on a successful join.
const DefaultInitialTokens = 100

type Member struct {
	Address      common.Address `json:"address"`
	Role         Role           `json:"role"`
	TokenBalance uint256.Int    `json:"token_balance"`
	JoinedAt     uint64         `json:"joined_at"`
}
