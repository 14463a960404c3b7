package domain

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrIdentityProofInvalid  = errors.New("IdentityProofInvalid()")
	ErrAlreadyInitialized    = errors.New("AlreadyInitialized()")
	ErrNotInitialized        = errors.New("NotInitialized()")
	ErrInvalidTimeUnit       = errors.New("InvalidTimeUnit()")
	ErrZeroAmount            = errors.New("ZeroAmount()")
	ErrInsufficientLiquidity = errors.New("InsufficientLiquidity()")
)

// Approval bounds accepted by AddArgument, in percent.
const (
	MinInitialApproval = 50
	MaxInitialApproval = 100
)

type DebateUninitializedError struct {
	DebateID uint64
}

func (e *DebateUninitializedError) Error() string {
	return fmt.Sprintf("DebateUninitialized(%d)", e.DebateID)
}

type InitialApprovalOutOfBoundsError struct {
	Bound  uint64
	Actual uint64
}

func (e *InitialApprovalOutOfBoundsError) Error() string {
	return fmt.Sprintf("InitialApprovalOutOfBounds(%d, %d)", e.Bound, e.Actual)
}

// DebateFinishedError rejects operations that are open until a debate
// finishes, in both editing and voting.
type DebateFinishedError struct {
	DebateID uint64
}

func (e *DebateFinishedError) Error() string {
	return fmt.Sprintf("DebateFinished(%d)", e.DebateID)
}

type WrongPhaseError struct {
	DebateID uint64
	Required Phase
	Actual   Phase
}

func (e *WrongPhaseError) Error() string {
	return fmt.Sprintf("WrongPhase(%d, %s, %s)", e.DebateID, e.Required, e.Actual)
}

type RoleMismatchError struct {
	Required Role
	Actual   Role
}

func (e *RoleMismatchError) Error() string {
	return fmt.Sprintf("RoleMismatch(%s, %s)", e.Required, e.Actual)
}

type AlreadyJoinedError struct {
	DebateID    uint64
	Participant common.Address
}

func (e *AlreadyJoinedError) Error() string {
	return fmt.Sprintf("AlreadyJoined(%d, %s)", e.DebateID, e.Participant.Hex())
}

type ArgumentNotFoundError struct {
	DebateID   uint64
	ArgumentID uint64
}

func (e *ArgumentNotFoundError) Error() string {
	return fmt.Sprintf("ArgumentNotFound(%d, %d)", e.DebateID, e.ArgumentID)
}

type ArgumentStateMismatchError struct {
	ArgumentID uint64
	Expected   ArgumentState
	Actual     ArgumentState
}

func (e *ArgumentStateMismatchError) Error() string {
	return fmt.Sprintf("ArgumentStateMismatch(%d, %s, %s)", e.ArgumentID, e.Expected, e.Actual)
}

type FinalizationWindowClosedError struct {
	ArgumentID       uint64
	FinalizationTime uint64
}

func (e *FinalizationWindowClosedError) Error() string {
	return fmt.Sprintf("FinalizationWindowClosed(%d, %d)", e.ArgumentID, e.FinalizationTime)
}

type OnlyArbitratorError struct {
	Caller common.Address
}

func (e *OnlyArbitratorError) Error() string {
	return fmt.Sprintf("OnlyArbitrator(%s)", e.Caller.Hex())
}

type InsufficientTokensError struct {
	Required  uint256.Int
	Available uint256.Int
}

func (e *InsufficientTokensError) Error() string {
	return fmt.Sprintf("InsufficientTokens(%s, %s)", e.Required.Dec(), e.Available.Dec())
}

type InsufficientSharesError struct {
	Required  uint256.Int
	Available uint256.Int
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("InsufficientShares(%s, %s)", e.Required.Dec(), e.Available.Dec())
}
