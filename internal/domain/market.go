package domain

import "github.com/holiman/uint256"

// Market is the per-argument bonding curve. Const is the product invariant
// fixed at initialization; trades keep Pro*Con >= Const.
type Market struct {
	Pro   uint256.Int `json:"pro"`
	Con   uint256.Int `json:"con"`
	Const uint256.Int `json:"const"`
	Vote  uint256.Int `json:"vote"`
	Fees  uint256.Int `json:"fees"`
}

type Side uint8

const (
	SidePro Side = iota
	SideCon
)

func (s Side) String() string {
	if s == SideCon {
		return "con"
	}
	return "pro"
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func ParseSide(s string) (Side, bool) {
	switch s {
	case "pro":
		return SidePro, true
	case "con":
		return SideCon, true
	}
	return SidePro, false
}

// UserShare holds a participant's position in one argument market.
type UserShare struct {
	Pro uint256.Int `json:"pro"`
	Con uint256.Int `json:"con"`
}

func (u *UserShare) Of(side Side) *uint256.Int {
	if side == SideCon {
		return &u.Con
	}
	return &u.Pro
}
