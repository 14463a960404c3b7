package service

import (
	"context"
	"testing"

	"github.com/arborvote/arborvote/internal/arbitration"
	"github.com/arborvote/arborvote/internal/clock"
	"github.com/arborvote/arborvote/internal/domain"
	"github.com/arborvote/arborvote/internal/identity"
	"github.com/arborvote/arborvote/internal/store"
	"github.com/arborvote/arborvote/internal/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	alice    = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol    = common.HexToAddress("0x00000000000000000000000000000000000ca201")
	stranger = common.HexToAddress("0x000000000000000000000000000000000000dead")
	escrow   = common.HexToAddress("0x00000000000000000000000000000000000e5c70")
	court    = common.HexToAddress("0x000000000000000000000000000000000000c0de")

	thesis = common.HexToHash("0x7468657369730000000000000000000000000000000000000000000000000001")
)

const (
	startTime = 1000
	timeUnit  = 60
)

type harness struct {
	av       *ArborVote
	clock    *clock.Manual
	identity *identity.Allowlist
	token    *token.Ledger
	court    *arbitration.Court
	journal  *store.MemoryJournal
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithParams(t, domain.DefaultParams())
}

func newHarnessWithParams(t *testing.T, params domain.Params) *harness {
	t.Helper()
	h := &harness{
		clock:    clock.NewManual(startTime),
		identity: identity.NewAllowlist(alice, bob, carol),
		token:    token.NewLedger(escrow),
		court:    arbitration.NewCourt(court),
		journal:  store.NewMemoryJournal(),
	}

	av, err := NewArborVote(Deps{
		Ledger:  store.NewLedger(),
		Clock:   h.clock,
		Journal: h.journal,
		Params:  params,
		Logger:  zap.NewNop(),
	})
	require.NoError(t, err)
	require.NoError(t, av.Initialize(Capabilities{
		Identity:   h.identity,
		Token:      h.token,
		Arbitrator: h.court,
		Escrow:     escrow,
	}))
	h.court.Attach(av)
	h.av = av

	for _, who := range []common.Address{alice, bob, carol} {
		require.NoError(t, h.token.Mint(who, uint256.NewInt(1000)))
		h.token.Approve(who, uint256.NewInt(1000))
	}
	return h
}

func (h *harness) debate(t *testing.T, members ...common.Address) uint64 {
	t.Helper()
	ctx := context.Background()
	id, err := h.av.Phases.CreateDebate(ctx, alice, thesis, timeUnit)
	require.NoError(t, err)
	for _, m := range members {
		_, err := h.av.Members.Join(ctx, m, id)
		require.NoError(t, err)
	}
	return id
}

func (h *harness) argue(t *testing.T, caller common.Address, debateID, parentID uint64, supporting bool, approval uint64) uint64 {
	t.Helper()
	id, err := h.av.Arguments.AddArgument(context.Background(), caller, debateID, AddArgumentInput{
		ParentID:        parentID,
		ContentURI:      common.BytesToHash([]byte{byte(parentID), byte(approval)}),
		IsSupporting:    supporting,
		InitialApproval: approval,
	})
	require.NoError(t, err)
	return id
}

func (h *harness) argument(t *testing.T, debateID, argumentID uint64) domain.Argument {
	t.Helper()
	a, err := h.av.Arguments.GetArgument(context.Background(), debateID, argumentID)
	require.NoError(t, err)
	return a
}

func (h *harness) balance(t *testing.T, who common.Address) uint64 {
	t.Helper()
	b, err := h.token.BalanceOf(context.Background(), who)
	require.NoError(t, err)
	return b.Uint64()
}

func (h *harness) ops(t *testing.T) []string {
	t.Helper()
	entries, err := h.av.Journal(context.Background(), 0, 0)
	require.NoError(t, err)
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Op
	}
	return out
}

type mockIdentity struct {
	mock.Mock
}

func (m *mockIdentity) IsVerified(ctx context.Context, participant common.Address) (bool, error) {
	args := m.Called(ctx, participant)
	return args.Bool(0), args.Error(1)
}

type mockArbitrator struct {
	mock.Mock
}

func (m *mockArbitrator) Address() common.Address {
	return court
}

func (m *mockArbitrator) CreateDispute(ctx context.Context, req domain.DisputeRequest) (uint64, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(uint64), args.Error(1)
}
