package domain

import "github.com/ethereum/go-ethereum/common"

type Debate struct {
	ID        uint64         `json:"id"`
	Thesis    common.Hash    `json:"thesis"`
	Creator   common.Address `json:"creator"`
	Phase     PhaseData      `json:"phase"`
	CreatedAt uint64         `json:"created_at"`
}
