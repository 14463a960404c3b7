package arbitration

import (
	"context"
	"errors"
	"testing"

	"github.com/arborvote/arborvote/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockReceiver struct {
	mock.Mock
}

func (m *mockReceiver) RuleOnDispute(ctx context.Context, caller common.Address, debateID, argumentID uint64, upheld bool) error {
	args := m.Called(caller, debateID, argumentID, upheld)
	return args.Error(0)
}

var courtAddr = common.HexToAddress("0x000000000000000000000000000000000000c0de")

func TestCourt_RuleDeliversToReceiver(t *testing.T) {
	c := NewCourt(courtAddr)
	r := &mockReceiver{}
	c.Attach(r)
	ctx := context.Background()

	id, err := c.CreateDispute(ctx, domain.DisputeRequest{DebateID: 2, ArgumentID: 5})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)
	assert.Len(t, c.Pending(), 1)

	r.On("RuleOnDispute", courtAddr, uint64(2), uint64(5), true).Return(nil)
	require.NoError(t, c.Rule(ctx, id, true))
	r.AssertExpectations(t)

	cs, ok := c.Case(id)
	require.True(t, ok)
	assert.True(t, cs.Ruled)
	assert.True(t, cs.Upheld)
	assert.Empty(t, c.Pending())

	assert.ErrorIs(t, c.Rule(ctx, id, false), ErrAlreadyRuled)
	assert.ErrorIs(t, c.Rule(ctx, 9, false), ErrDisputeNotFound)
}

func TestCourt_ReceiverFailureLeavesCasePending(t *testing.T) {
	c := NewCourt(courtAddr)
	r := &mockReceiver{}
	c.Attach(r)
	ctx := context.Background()

	id, err := c.CreateDispute(ctx, domain.DisputeRequest{DebateID: 0, ArgumentID: 1})
	require.NoError(t, err)

	r.On("RuleOnDispute", courtAddr, uint64(0), uint64(1), false).Return(errors.New("not disputed"))
	assert.Error(t, c.Rule(ctx, id, false))
	assert.Len(t, c.Pending(), 1)
}

func TestCourt_RuleImmediately(t *testing.T) {
	c := NewCourt(courtAddr)
	r := &mockReceiver{}
	c.Attach(r)
	c.RuleImmediately(false)

	r.On("RuleOnDispute", courtAddr, uint64(1), uint64(3), false).Return(nil).Once()
	id, err := c.CreateDispute(context.Background(), domain.DisputeRequest{DebateID: 1, ArgumentID: 3})
	require.NoError(t, err)
	r.AssertExpectations(t)

	cs, _ := c.Case(id)
	assert.True(t, cs.Ruled)
	assert.False(t, cs.Upheld)
}

func TestCourt_NoReceiver(t *testing.T) {
	c := NewCourt(courtAddr)
	id, err := c.CreateDispute(context.Background(), domain.DisputeRequest{})
	require.NoError(t, err)
	assert.ErrorIs(t, c.Rule(context.Background(), id, true), ErrNoReceiver)
}
