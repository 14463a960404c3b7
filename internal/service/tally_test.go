package service

import (
	"context"
	"errors"
	"testing"

	"github.com/arborvote/arborvote/internal/domain"
	"github.com/arborvote/arborvote/internal/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tallyArg(t *testing.T, id, parent uint64, supporting bool, approval uint64, state domain.ArgumentState) domain.Argument {
	t.Helper()
	m, err := market.Init(approval)
	require.NoError(t, err)
	return domain.Argument{ID: id, ParentID: parent, IsSupporting: supporting, State: state, Market: m}
}

// root <- a1 (pro, 80%), root <- a2 (con, 50%), a2 <- a3 (con, 100%)
func tallyFixture(t *testing.T, a3State domain.ArgumentState) []domain.Argument {
	return []domain.Argument{
		{ID: 0, State: domain.ArgumentFinal},
		tallyArg(t, 1, 0, true, 80, domain.ArgumentFinal),
		tallyArg(t, 2, 0, false, 50, domain.ArgumentFinal),
		tallyArg(t, 3, 2, false, 100, a3State),
	}
}

func TestTallyTree(t *testing.T) {
	tests := []struct {
		name       string
		a3         domain.ArgumentState
		policy     domain.TallyPolicy
		rootVote   int64
		a2Vote     int64
		a2Score    int64
		a3Counted  bool
		rootResult domain.Verdict
	}{
		{
			name:       "all final",
			a3:         domain.ArgumentFinal,
			policy:     domain.DefaultTallyPolicy(),
			rootVote:   275_000,
			a2Vote:     -1_000_000,
			a2Score:    250_000,
			a3Counted:  true,
			rootResult: domain.VerdictSupported,
		},
		{
			name:       "disputed child ignored",
			a3:         domain.ArgumentDisputed,
			policy:     domain.DefaultTallyPolicy(),
			rootVote:   150_000,
			a2Vote:     0,
			a2Score:    500_000,
			rootResult: domain.VerdictSupported,
		},
		{
			name:       "invalid child ignored",
			a3:         domain.ArgumentInvalid,
			policy:     domain.DefaultTallyPolicy(),
			rootVote:   150_000,
			a2Vote:     0,
			a2Score:    500_000,
			rootResult: domain.VerdictSupported,
		},
		{
			name:       "invalid child penalized",
			a3:         domain.ArgumentInvalid,
			policy:     domain.TallyPolicy{ChildWeight: domain.TallyScale / 2, Invalid: domain.InvalidPenalize},
			rootVote:   275_000,
			a2Vote:     -1_000_000,
			a2Score:    250_000,
			a3Counted:  true,
			rootResult: domain.VerdictSupported,
		},
		{
			name:       "own market only",
			a3:         domain.ArgumentFinal,
			policy:     domain.TallyPolicy{ChildWeight: 0, Invalid: domain.InvalidIgnore},
			rootVote:   150_000,
			a2Vote:     -1_000_000,
			a2Score:    500_000,
			a3Counted:  true,
			rootResult: domain.VerdictSupported,
		},
		{
			name:       "children only",
			a3:         domain.ArgumentFinal,
			policy:     domain.TallyPolicy{ChildWeight: domain.TallyScale, Invalid: domain.InvalidIgnore},
			rootVote:   400_000,
			a2Vote:     -1_000_000,
			a2Score:    0,
			a3Counted:  true,
			rootResult: domain.VerdictSupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores := tallyTree(tallyFixture(t, tt.a3), tt.policy)
			require.Len(t, scores, 4)
			assert.Equal(t, tt.rootVote, scores[0].ChildsVote)
			assert.Equal(t, tt.rootResult, domain.VerdictOf(scores[0].ChildsVote))
			assert.Equal(t, int64(800_000), scores[1].Score)
			assert.Equal(t, tt.a2Vote, scores[2].ChildsVote)
			assert.Equal(t, tt.a2Score, scores[2].Score)
			assert.Equal(t, tt.a3Counted, scores[3].Counted)
			assert.False(t, scores[0].Counted)
		})
	}
}

func TestTallyTree_Opposed(t *testing.T) {
	args := []domain.Argument{
		{ID: 0, State: domain.ArgumentFinal},
		tallyArg(t, 1, 0, false, 90, domain.ArgumentFinal),
		tallyArg(t, 2, 0, true, 50, domain.ArgumentCreated),
	}
	scores := tallyTree(args, domain.DefaultTallyPolicy())
	assert.Equal(t, int64(-900_000), scores[0].ChildsVote)
	assert.Equal(t, domain.VerdictOpposed, domain.VerdictOf(scores[0].ChildsVote))
	assert.False(t, scores[2].Counted)
}

func TestTallyTree_EmptyDebate(t *testing.T) {
	scores := tallyTree([]domain.Argument{{ID: 0, State: domain.ArgumentFinal}}, domain.DefaultTallyPolicy())
	assert.Equal(t, int64(0), scores[0].ChildsVote)
	assert.Equal(t, domain.VerdictUndecided, domain.VerdictOf(scores[0].ChildsVote))
}

func TestTallyService_DebateResult(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.debate(t, alice, bob)
	a1 := h.argue(t, alice, id, 0, true, 80)
	a2 := h.argue(t, bob, id, 0, false, 50)
	a3 := h.argue(t, alice, id, a2, false, 100)

	_, err := h.av.Tally.DebateResult(ctx, id)
	var wrong *domain.WrongPhaseError
	require.True(t, errors.As(err, &wrong))
	assert.Equal(t, domain.PhaseFinished, wrong.Required)

	h.clock.Advance(10 * timeUnit)
	// the stored phase gates the result
	_, err = h.av.Tally.DebateResult(ctx, id)
	require.True(t, errors.As(err, &wrong))

	_, err = h.av.Phases.AdvancePhase(ctx, id)
	require.NoError(t, err)

	result, err := h.av.Tally.DebateResult(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictSupported, result.Verdict)
	assert.Equal(t, int64(275_000), result.ChildsVote)
	assert.Equal(t, domain.DefaultTallyPolicy(), result.Policy)
	assert.Equal(t, int64(-1_000_000), h.argument(t, id, a2).ChildsVote)
	assert.Equal(t, int64(275_000), h.argument(t, id, domain.RootArgumentID).ChildsVote)
	assert.Equal(t, int64(0), h.argument(t, id, a1).ChildsVote)
	assert.Equal(t, int64(0), h.argument(t, id, a3).ChildsVote)

	again, err := h.av.Tally.DebateResult(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, result, again)

	tallies := 0
	for _, op := range h.ops(t) {
		if op == OpTally {
			tallies++
		}
	}
	assert.Equal(t, 1, tallies)
}

func TestTallyService_UnknownDebate(t *testing.T) {
	h := newHarness(t)
	_, err := h.av.Tally.DebateResult(context.Background(), 0)
	var uninit *domain.DebateUninitializedError
	assert.True(t, errors.As(err, &uninit))
}
