package service

import (
	"context"
	"math"

	"github.com/arborvote/arborvote/internal/domain"
	"github.com/arborvote/arborvote/internal/store"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// PhaseService owns debate creation and the time-driven lifecycle.
type PhaseService struct {
	*core
}

type createDebatePayload struct {
	Thesis   common.Hash `json:"thesis"`
	TimeUnit uint64      `json:"time_unit"`
}

type advancePhasePayload struct {
	From      domain.Phase `json:"from"`
	To        domain.Phase `json:"to"`
	Finalized []uint64     `json:"finalized,omitempty"`
}

// CreateDebate opens a new debate in the editing phase with its thesis as
// the final root argument.
func (s *PhaseService) CreateDebate(ctx context.Context, creator common.Address, thesis common.Hash, timeUnit uint64) (uint64, error) {
	if timeUnit == 0 {
		return 0, domain.ErrInvalidTimeUnit
	}

	var id uint64
	err := s.ledger.Update(ctx, func(ctx context.Context, tx *store.Tx) error {
		now := s.clock.Now()
		if timeUnit > (math.MaxUint64-now)/domain.VotingTimeUnits {
			return domain.ErrInvalidTimeUnit
		}
		id = tx.CreateDebate(
			domain.Debate{
				Thesis:    thesis,
				Creator:   creator,
				Phase:     domain.NewPhaseData(now, timeUnit),
				CreatedAt: now,
			},
			domain.Argument{
				ContentURI:       thesis,
				Creator:          creator,
				State:            domain.ArgumentFinal,
				CreatedAt:        now,
				FinalizationTime: now,
			},
		)
		s.record(tx, OpCreateDebate, id, creator, now, createDebatePayload{Thesis: thesis, TimeUnit: timeUnit})
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("debate created",
		zap.Uint64("debate_id", id),
		zap.String("creator", creator.Hex()),
		zap.Uint64("time_unit", timeUnit))
	return id, nil
}

// AdvancePhase moves the debate to the phase logical time justifies and
// finalizes arguments whose challenge window has closed. Calling it early
// is a no-op.
func (s *PhaseService) AdvancePhase(ctx context.Context, debateID uint64) (domain.Phase, error) {
	var (
		from, to  domain.Phase
		finalized []uint64
	)
	err := s.ledger.Update(ctx, func(ctx context.Context, tx *store.Tx) error {
		d, err := tx.Debate(debateID)
		if err != nil {
			return err
		}
		if d.Phase.Current == domain.PhaseUnitialized {
			return &domain.DebateUninitializedError{DebateID: debateID}
		}

		now := s.clock.Now()
		finalized, err = tx.FinalizeExpired(debateID, now)
		if err != nil {
			return err
		}

		from, to = d.Phase.Current, d.Phase.PhaseAt(now)
		if to != from {
			if err := tx.SetPhase(debateID, to); err != nil {
				return err
			}
		}
		if to != from || len(finalized) > 0 {
			s.record(tx, OpAdvancePhase, debateID, common.Address{}, now, advancePhasePayload{From: from, To: to, Finalized: finalized})
		}
		return nil
	})
	if err != nil {
		return domain.PhaseUnitialized, err
	}

	if to != from {
		s.logger.Info("debate phase advanced",
			zap.Uint64("debate_id", debateID),
			zap.Stringer("from", from),
			zap.Stringer("to", to))
	}
	if len(finalized) > 0 {
		s.logger.Debug("arguments finalized",
			zap.Uint64("debate_id", debateID),
			zap.Uint64s("argument_ids", finalized))
	}
	return to, nil
}

func (s *PhaseService) GetDebate(ctx context.Context, debateID uint64) (domain.Debate, error) {
	var d domain.Debate
	err := s.ledger.View(ctx, func(tx *store.Tx) error {
		var err error
		d, err = tx.Debate(debateID)
		return err
	})
	return d, err
}

// DebateCount returns the number of debates created so far.
func (s *PhaseService) DebateCount(ctx context.Context) uint64 {
	var n uint64
	_ = s.ledger.View(ctx, func(tx *store.Tx) error {
		n = tx.DebateCount()
		return nil
	})
	return n
}
