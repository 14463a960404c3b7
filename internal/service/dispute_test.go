package service

import (
	"context"
	"errors"
	"testing"

	"github.com/arborvote/arborvote/internal/clock"
	"github.com/arborvote/arborvote/internal/domain"
	"github.com/arborvote/arborvote/internal/identity"
	"github.com/arborvote/arborvote/internal/store"
	"github.com/arborvote/arborvote/internal/token"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func (h *harness) disputed(t *testing.T, debateID uint64) []uint64 {
	t.Helper()
	ids, err := h.av.Arguments.DisputedArgumentIDs(context.Background(), debateID)
	require.NoError(t, err)
	return ids
}

func (h *harness) leaves(t *testing.T, debateID uint64) []uint64 {
	t.Helper()
	ids, err := h.av.Arguments.LeafArgumentIDs(context.Background(), debateID)
	require.NoError(t, err)
	return ids
}

func TestDisputeService_ChallengeUpheld(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.debate(t, alice, bob)
	a1 := h.argue(t, alice, id, 0, true, 60)
	a2 := h.argue(t, alice, id, a1, false, 60)

	d, err := h.av.Disputes.Challenge(ctx, bob, id, a2)
	require.NoError(t, err)
	assert.Equal(t, bob, d.Challenger)
	assert.Equal(t, uint64(domain.DefaultDisputeDeposit), d.Deposit.Uint64())
	assert.Equal(t, domain.RulingNone, d.Ruling)

	assert.Equal(t, domain.ArgumentDisputed, h.argument(t, id, a2).State)
	assert.Equal(t, []uint64{a2}, h.disputed(t, id))
	assert.Equal(t, uint64(990), h.balance(t, bob))
	assert.Equal(t, uint64(10), h.balance(t, escrow))

	// a disputed argument stays disputed past its window
	h.clock.Advance(2 * timeUnit)
	assert.Equal(t, domain.ArgumentDisputed, h.argument(t, id, a2).State)

	require.NoError(t, h.court.Rule(ctx, d.ArbitratorDisputeID, true))

	assert.Equal(t, domain.ArgumentInvalid, h.argument(t, id, a2).State)
	assert.Empty(t, h.disputed(t, id))
	assert.Equal(t, []uint64{a1}, h.leaves(t, id))
	assert.Equal(t, uint64(0), h.argument(t, id, a1).ChildCount)
	assert.Equal(t, uint64(1000), h.balance(t, bob))
	assert.True(t, h.token.Allowance(bob).Eq(uint256.NewInt(990)))

	got, ok, err := h.av.Disputes.GetDispute(ctx, id, a2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.RulingUpheld, got.Ruling)
}

func TestDisputeService_ChallengeRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.debate(t, alice, bob)
	a1 := h.argue(t, alice, id, 0, true, 60)

	d, err := h.av.Disputes.Challenge(ctx, bob, id, a1)
	require.NoError(t, err)
	require.NoError(t, h.court.Rule(ctx, d.ArbitratorDisputeID, false))

	assert.Equal(t, domain.ArgumentFinal, h.argument(t, id, a1).State)
	assert.Empty(t, h.disputed(t, id))
	assert.Equal(t, []uint64{a1}, h.leaves(t, id))
	assert.Equal(t, uint64(990), h.balance(t, bob))
	assert.Equal(t, uint64(1010), h.balance(t, alice))
	assert.Equal(t, uint64(0), h.balance(t, escrow))
}

func TestDisputeService_ChallengeRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.debate(t, alice, bob)
	a1 := h.argue(t, alice, id, 0, true, 60)

	_, err := h.av.Disputes.Challenge(ctx, stranger, id, a1)
	var role *domain.RoleMismatchError
	assert.True(t, errors.As(err, &role))

	_, err = h.av.Disputes.Challenge(ctx, bob, id, domain.RootArgumentID)
	var mismatch *domain.ArgumentStateMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, domain.ArgumentFinal, mismatch.Actual)

	_, err = h.av.Disputes.Challenge(ctx, bob, id, 42)
	var notFound *domain.ArgumentNotFoundError
	assert.True(t, errors.As(err, &notFound))

	_, err = h.av.Disputes.Challenge(ctx, bob, id, a1)
	require.NoError(t, err)
	_, err = h.av.Disputes.Challenge(ctx, bob, id, a1)
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, domain.ArgumentDisputed, mismatch.Actual)
}

func TestDisputeService_ChallengeFinishedDebate(t *testing.T) {
	h := newHarness(t)
	id := h.debate(t, alice, bob)
	a1 := h.argue(t, alice, id, 0, true, 60)
	h.clock.Advance(10 * timeUnit)

	_, err := h.av.Disputes.Challenge(context.Background(), bob, id, a1)
	var finished *domain.DebateFinishedError
	require.True(t, errors.As(err, &finished))
	assert.EqualError(t, err, "DebateFinished(0)")
	assert.Empty(t, h.disputed(t, id))
}

func TestDisputeService_WindowClosed(t *testing.T) {
	h := newHarness(t)
	id := h.debate(t, alice, bob)
	a1 := h.argue(t, alice, id, 0, true, 60)

	h.clock.Advance(timeUnit)
	_, err := h.av.Disputes.Challenge(context.Background(), bob, id, a1)
	var closed *domain.FinalizationWindowClosedError
	require.True(t, errors.As(err, &closed))
	assert.Equal(t, uint64(startTime+timeUnit), closed.FinalizationTime)
	assert.Empty(t, h.disputed(t, id))
}

func TestDisputeService_DepositFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.debate(t, alice, bob)
	a1 := h.argue(t, alice, id, 0, true, 60)
	h.token.Approve(bob, uint256.NewInt(0))

	_, err := h.av.Disputes.Challenge(ctx, bob, id, a1)
	assert.ErrorIs(t, err, token.ErrInsufficientAllowance)

	assert.Equal(t, domain.ArgumentCreated, h.argument(t, id, a1).State)
	assert.Empty(t, h.disputed(t, id))
	_, ok, err := h.av.Disputes.GetDispute(ctx, id, a1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, h.court.Pending())
	assert.NotContains(t, h.ops(t), OpChallenge)
}

func TestDisputeService_ArbitratorFailureRefunds(t *testing.T) {
	arb := &mockArbitrator{}
	arb.On("CreateDispute", mock.Anything, mock.Anything).Return(uint64(0), errors.New("court closed"))
	tok := token.NewLedger(escrow)
	require.NoError(t, tok.Mint(bob, uint256.NewInt(50)))
	tok.Approve(bob, uint256.NewInt(50))

	av, err := NewArborVote(Deps{Ledger: store.NewLedger(), Clock: clock.NewManual(startTime), Params: domain.DefaultParams()})
	require.NoError(t, err)
	require.NoError(t, av.Initialize(Capabilities{
		Identity:   identity.NewAllowlist(alice, bob),
		Token:      tok,
		Arbitrator: arb,
		Escrow:     escrow,
	}))

	ctx := context.Background()
	id, err := av.Phases.CreateDebate(ctx, alice, thesis, timeUnit)
	require.NoError(t, err)
	_, err = av.Members.Join(ctx, alice, id)
	require.NoError(t, err)
	_, err = av.Members.Join(ctx, bob, id)
	require.NoError(t, err)
	a1, err := av.Arguments.AddArgument(ctx, alice, id, AddArgumentInput{InitialApproval: 60})
	require.NoError(t, err)

	_, err = av.Disputes.Challenge(ctx, bob, id, a1)
	assert.ErrorContains(t, err, "court closed")
	arb.AssertExpectations(t)

	a, err := av.Arguments.GetArgument(ctx, id, a1)
	require.NoError(t, err)
	assert.Equal(t, domain.ArgumentCreated, a.State)

	bal, err := tok.BalanceOf(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), bal.Uint64())
}

func TestDisputeService_ReentrantRuling(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.debate(t, alice, bob)
	a1 := h.argue(t, alice, id, 0, true, 60)
	h.court.RuleImmediately(true)

	d, err := h.av.Disputes.Challenge(ctx, bob, id, a1)
	require.NoError(t, err)
	assert.Equal(t, domain.RulingUpheld, d.Ruling)

	assert.Equal(t, domain.ArgumentInvalid, h.argument(t, id, a1).State)
	assert.Empty(t, h.disputed(t, id))
	assert.Empty(t, h.leaves(t, id))
	assert.Equal(t, uint64(1000), h.balance(t, bob))

	ops := h.ops(t)
	assert.Equal(t, []string{OpRuleOnDispute, OpChallenge}, ops[len(ops)-2:])
}

func TestDisputeService_RuleOnDisputeRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.debate(t, alice, bob)
	a1 := h.argue(t, alice, id, 0, true, 60)

	err := h.av.Disputes.RuleOnDispute(ctx, bob, id, a1, true)
	var only *domain.OnlyArbitratorError
	require.True(t, errors.As(err, &only))
	assert.Equal(t, bob, only.Caller)

	err = h.av.Disputes.RuleOnDispute(ctx, court, id, a1, true)
	var mismatch *domain.ArgumentStateMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, domain.ArgumentDisputed, mismatch.Expected)
	assert.Equal(t, domain.ArgumentCreated, mismatch.Actual)
}
