package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arborvote/arborvote/internal/clock"
	"github.com/arborvote/arborvote/internal/domain"
	"github.com/arborvote/arborvote/internal/identity"
	"github.com/arborvote/arborvote/internal/store"
	"github.com/arborvote/arborvote/internal/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestArgumentService_AddArgument(t *testing.T) {
	h := newHarness(t)
	id := h.debate(t, alice)

	argID := h.argue(t, alice, id, domain.RootArgumentID, false, 65)
	assert.Equal(t, uint64(1), argID)

	a := h.argument(t, id, argID)
	assert.Equal(t, domain.ArgumentCreated, a.State)
	assert.Equal(t, alice, a.Creator)
	assert.False(t, a.IsSupporting)
	assert.Equal(t, uint64(startTime+timeUnit), a.FinalizationTime)
	// 65% rounds half up to 7 con units
	assert.Equal(t, uint64(3), a.Market.Pro.Uint64())
	assert.Equal(t, uint64(7), a.Market.Con.Uint64())
	assert.Equal(t, uint64(21), a.Market.Const.Uint64())
	assert.Equal(t, uint64(10), a.Market.Vote.Uint64())

	root := h.argument(t, id, domain.RootArgumentID)
	assert.Equal(t, uint64(1), root.ChildCount)
}

func TestArgumentService_AddArgumentRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.debate(t, alice)

	_, err := h.av.Arguments.AddArgument(ctx, bob, id, AddArgumentInput{InitialApproval: 60})
	var role *domain.RoleMismatchError
	require.True(t, errors.As(err, &role))
	assert.Equal(t, domain.RoleUnassigned, role.Actual)

	_, err = h.av.Arguments.AddArgument(ctx, alice, id, AddArgumentInput{InitialApproval: 101})
	var bounds *domain.InitialApprovalOutOfBoundsError
	require.True(t, errors.As(err, &bounds))
	assert.Equal(t, uint64(100), bounds.Bound)

	_, err = h.av.Arguments.AddArgument(ctx, alice, id, AddArgumentInput{ParentID: 9, InitialApproval: 60})
	var notFound *domain.ArgumentNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, uint64(9), notFound.ArgumentID)

	_, err = h.av.Arguments.AddArgument(ctx, alice, 4, AddArgumentInput{InitialApproval: 60})
	var uninit *domain.DebateUninitializedError
	assert.True(t, errors.As(err, &uninit))

	h.clock.Advance(7 * timeUnit)
	_, err = h.av.Arguments.AddArgument(ctx, alice, id, AddArgumentInput{InitialApproval: 60})
	var wrong *domain.WrongPhaseError
	require.True(t, errors.As(err, &wrong))
	assert.Equal(t, domain.PhaseEditing, wrong.Required)
	assert.Equal(t, domain.PhaseVoting, wrong.Actual)

	args, err := h.av.Arguments.ListArguments(ctx, id)
	require.NoError(t, err)
	assert.Len(t, args, 1)
}

func TestArgumentService_InvalidParent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.debate(t, alice, bob)
	arg := h.argue(t, alice, id, 0, true, 60)

	_, err := h.av.Disputes.Challenge(ctx, bob, id, arg)
	require.NoError(t, err)
	require.NoError(t, h.court.Rule(ctx, 0, true))

	_, err = h.av.Arguments.AddArgument(ctx, alice, id, AddArgumentInput{ParentID: arg, InitialApproval: 60})
	var mismatch *domain.ArgumentStateMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, domain.ArgumentInvalid, mismatch.Actual)
}

func TestArgumentService_LeafSet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.debate(t, alice)

	leaves := func() []uint64 {
		ids, err := h.av.Arguments.LeafArgumentIDs(ctx, id)
		require.NoError(t, err)
		return ids
	}

	a1 := h.argue(t, alice, id, 0, true, 60)
	a2 := h.argue(t, alice, id, 0, false, 60)
	assert.Equal(t, []uint64{a1, a2}, leaves())

	a3 := h.argue(t, alice, id, a1, true, 60)
	assert.Equal(t, []uint64{a2, a3}, leaves())

	a4 := h.argue(t, alice, id, a1, false, 60)
	assert.Equal(t, []uint64{a2, a3, a4}, leaves())

	a5 := h.argue(t, alice, id, a3, true, 60)
	assert.Equal(t, []uint64{a2, a4, a5}, leaves())
}

func TestArgumentService_EffectiveState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.debate(t, alice)
	arg := h.argue(t, alice, id, 0, true, 60)

	h.clock.Advance(timeUnit - 1)
	assert.Equal(t, domain.ArgumentCreated, h.argument(t, id, arg).State)

	h.clock.Advance(1)
	assert.Equal(t, domain.ArgumentFinal, h.argument(t, id, arg).State)

	args, err := h.av.Arguments.ListArguments(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ArgumentFinal, args[arg].State)
}

// An operation queued behind a running one reads the clock only once it
// holds the ledger, so finalization times follow creation order.
func TestArgumentService_TimeReadUnderLedger(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	arb := &mockArbitrator{}
	arb.On("CreateDispute", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(uint64(7), nil)

	clk := clock.NewManual(startTime)
	tok := token.NewLedger(escrow)
	require.NoError(t, tok.Mint(bob, uint256.NewInt(50)))
	tok.Approve(bob, uint256.NewInt(50))
	av, err := NewArborVote(Deps{Ledger: store.NewLedger(), Clock: clk, Params: domain.DefaultParams()})
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
	for _, who := range []common.Address{alice, bob} {
		_, err := av.Members.Join(ctx, who, id)
		require.NoError(t, err)
	}
	a1, err := av.Arguments.AddArgument(ctx, alice, id, AddArgumentInput{InitialApproval: 60})
	require.NoError(t, err)

	challenged := make(chan error, 1)
	go func() {
		_, err := av.Disputes.Challenge(ctx, bob, id, a1)
		challenged <- err
	}()
	<-entered

	type added struct {
		id  uint64
		err error
	}
	queued := make(chan added, 1)
	go func() {
		argID, err := av.Arguments.AddArgument(ctx, alice, id, AddArgumentInput{InitialApproval: 40})
		queued <- added{argID, err}
	}()
	time.Sleep(50 * time.Millisecond)
	clk.Advance(30)
	close(release)

	require.NoError(t, <-challenged)
	res := <-queued
	require.NoError(t, res.err)

	a2, err := av.Arguments.GetArgument(ctx, id, res.id)
	require.NoError(t, err)
	assert.Equal(t, uint64(startTime+30), a2.CreatedAt)
	assert.Equal(t, uint64(startTime+30+timeUnit), a2.FinalizationTime)

	first, err := av.Arguments.GetArgument(ctx, id, a1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, a2.FinalizationTime, first.FinalizationTime)
}
