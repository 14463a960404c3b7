package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

type ArgumentState uint8

const (
	ArgumentUnitialized ArgumentState = iota
	ArgumentCreated
	ArgumentFinal
	ArgumentDisputed
	ArgumentInvalid
)

func (s ArgumentState) String() string {
	switch s {
	case ArgumentCreated:
		return "created"
	case ArgumentFinal:
		return "final"
	case ArgumentDisputed:
		return "disputed"
	case ArgumentInvalid:
		return "invalid"
	default:
		return "unitialized"
	}
}

func (s ArgumentState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// RootArgumentID is the id of the thesis argument every debate starts with.
const RootArgumentID uint64 = 0

// Argument is a node of a debate's argument tree. Parent links are ids into
// the same debate, parents always have a lower id than their children.
type Argument struct {
	ID               uint64         `json:"id"`
	ParentID         uint64         `json:"parent_id"`
	ContentURI       common.Hash    `json:"content_uri"`
	IsSupporting     bool           `json:"is_supporting"`
	Creator          common.Address `json:"creator"`
	State            ArgumentState  `json:"state"`
	CreatedAt        uint64         `json:"created_at"`
	FinalizationTime uint64         `json:"finalization_time"`
	ChildsVote       int64          `json:"childs_vote"`
	ChildCount       uint64         `json:"child_count"`
	Market           Market         `json:"market"`
}

func (a *Argument) IsRoot() bool {
	return a.ID == RootArgumentID
}

// EffectiveState reports the state an argument has at the given time,
// treating an unchallenged argument whose window has passed as final.
func (a *Argument) EffectiveState(now uint64) ArgumentState {
	if a.State == ArgumentCreated && now >= a.FinalizationTime {
		return ArgumentFinal
	}
	return a.State
}

// Challengeable reports whether the finalization window is still open.
func (a *Argument) Challengeable(now uint64) bool {
	return a.State == ArgumentCreated && now < a.FinalizationTime
}
