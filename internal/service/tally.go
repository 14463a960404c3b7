package service

import (
	"context"

	"github.com/arborvote/arborvote/internal/domain"
	"github.com/arborvote/arborvote/internal/market"
	"github.com/arborvote/arborvote/internal/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// TallyService folds the argument tree of a finished debate into a verdict.
type TallyService struct {
	*core
}

// DebateResult computes every argument's ChildsVote bottom-up and returns
// the verdict carried by the root. The result is stored on the arguments;
// repeated calls yield the same values.
func (s *TallyService) DebateResult(ctx context.Context, debateID uint64) (domain.DebateResult, error) {
	policy := s.params.Tally
	var result domain.DebateResult
	err := s.ledger.Update(ctx, func(ctx context.Context, tx *store.Tx) error {
		d, err := tx.Debate(debateID)
		if err != nil {
			return err
		}
		if d.Phase.Current != domain.PhaseFinished {
			return &domain.WrongPhaseError{DebateID: debateID, Required: domain.PhaseFinished, Actual: d.Phase.Current}
		}

		now := s.clock.Now()
		if _, err := tx.FinalizeExpired(debateID, now); err != nil {
			return err
		}
		args, err := tx.Arguments(debateID)
		if err != nil {
			return err
		}

		scores := tallyTree(args, policy)
		changed := false
		for _, sc := range scores {
			if args[sc.ArgumentID].ChildsVote == sc.ChildsVote {
				continue
			}
			changed = true
			if err := tx.SetChildsVote(debateID, sc.ArgumentID, sc.ChildsVote); err != nil {
				return err
			}
		}

		root := scores[domain.RootArgumentID]
		result = domain.DebateResult{
			DebateID:   debateID,
			Verdict:    domain.VerdictOf(root.ChildsVote),
			ChildsVote: root.ChildsVote,
			Policy:     policy,
			Scores:     scores,
		}
		if changed {
			s.record(tx, OpTally, debateID, common.Address{}, now, struct {
				Verdict    domain.Verdict `json:"verdict"`
				ChildsVote int64          `json:"childs_vote"`
			}{result.Verdict, result.ChildsVote})
		}
		return nil
	})
	if err != nil {
		return domain.DebateResult{}, err
	}

	s.logger.Info("debate tallied",
		zap.Uint64("debate_id", debateID),
		zap.String("verdict", string(result.Verdict)),
		zap.Int64("childs_vote", result.ChildsVote))
	return result, nil
}

type tallyAccumulator struct {
	pos, neg, weight uint256.Int
}

// tallyTree scores args, which must be indexed by id. Every parent has a
// lower id than its children, so walking ids downwards visits children
// before their parent.
func tallyTree(args []domain.Argument, policy domain.TallyPolicy) []domain.ArgumentScore {
	const scale = domain.TallyScale
	scores := make([]domain.ArgumentScore, len(args))
	acc := make([]tallyAccumulator, len(args))
	fullScore := uint256.NewInt(uint64(scale))

	for i := len(args) - 1; i >= 0; i-- {
		a := &args[i]
		sc := domain.ArgumentScore{
			ArgumentID: a.ID,
			Approval:   market.Approval(&a.Market),
		}

		sc.Score = sc.Approval
		if sum := &acc[i]; !sum.weight.IsZero() {
			sc.ChildsVote = signedQuotient(&sum.pos, &sum.neg, &sum.weight)
			sc.Score = sc.Approval*(scale-policy.ChildWeight)/scale +
				((sc.ChildsVote+scale)/2)*policy.ChildWeight/scale
		}

		if !a.IsRoot() {
			parent := &acc[a.ParentID]
			weight := &a.Market.Vote
			switch {
			case a.State == domain.ArgumentFinal:
				sc.Counted = true
				contrib := new(uint256.Int).Mul(weight, uint256.NewInt(uint64(sc.Score)))
				if a.IsSupporting {
					parent.pos.Add(&parent.pos, contrib)
				} else {
					parent.neg.Add(&parent.neg, contrib)
				}
				parent.weight.Add(&parent.weight, weight)
			case a.State == domain.ArgumentInvalid && policy.Invalid == domain.InvalidPenalize:
				sc.Counted = true
				contrib := new(uint256.Int).Mul(weight, fullScore)
				parent.neg.Add(&parent.neg, contrib)
				parent.weight.Add(&parent.weight, weight)
			}
		}
		scores[i] = sc
	}
	return scores
}

// signedQuotient returns (pos-neg)/weight truncated towards zero.
func signedQuotient(pos, neg, weight *uint256.Int) int64 {
	diff := new(uint256.Int)
	if pos.Lt(neg) {
		diff.Sub(neg, pos)
		return -int64(diff.Div(diff, weight).Uint64())
	}
	diff.Sub(pos, neg)
	return int64(diff.Div(diff, weight).Uint64())
}
