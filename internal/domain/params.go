package domain

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

const (
	DefaultFeeBps         = 100
	DefaultDisputeDeposit = 10
	MaxFeeBps             = 10_000
)

// Params are the engine-wide constants fixed when ArborVote is initialized.
type Params struct {
	InitialTokens  uint64      `toml:"initial_tokens"`
	FeeBps         uint64      `toml:"fee_bps"`
	DisputeDeposit uint64      `toml:"dispute_deposit"`
	Tally          TallyPolicy `toml:"tally"`
}

func DefaultParams() Params {
	return Params{
		InitialTokens:  DefaultInitialTokens,
		FeeBps:         DefaultFeeBps,
		DisputeDeposit: DefaultDisputeDeposit,
		Tally:          DefaultTallyPolicy(),
	}
}

func (p Params) InitialTokenGrant() *uint256.Int {
	return uint256.NewInt(p.InitialTokens)
}

func (p Params) Deposit() *uint256.Int {
	return uint256.NewInt(p.DisputeDeposit)
}

var ErrInvalidParams = errors.New("invalid engine parameters")

func (p Params) Validate() error {
	if p.FeeBps >= MaxFeeBps {
		return fmt.Errorf("%w: fee_bps %d must be below %d", ErrInvalidParams, p.FeeBps, MaxFeeBps)
	}
	if p.Tally.ChildWeight < 0 || p.Tally.ChildWeight > TallyScale {
		return fmt.Errorf("%w: tally.child_weight %d outside [0, %d]", ErrInvalidParams, p.Tally.ChildWeight, TallyScale)
	}
	if !ValidInvalidPolicy(string(p.Tally.Invalid)) {
		return fmt.Errorf("%w: tally.invalid %q", ErrInvalidParams, p.Tally.Invalid)
	}
	return nil
}
