package service

import (
	"context"

	"github.com/arborvote/arborvote/internal/domain"
	"github.com/arborvote/arborvote/internal/market"
	"github.com/arborvote/arborvote/internal/store"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// ArgumentService grows the argument tree and serves its read views.
type ArgumentService struct {
	*core
}

type AddArgumentInput struct {
	ParentID        uint64      `json:"parent_id"`
	ContentURI      common.Hash `json:"content_uri"`
	IsSupporting    bool        `json:"is_supporting"`
	InitialApproval uint64      `json:"initial_approval"`
}

type addArgumentPayload struct {
	AddArgumentInput
	ArgumentID uint64 `json:"argument_id"`
}

// AddArgument attaches a new argument under ParentID. It opens the
// argument's challenge window and its market.
func (s *ArgumentService) AddArgument(ctx context.Context, caller common.Address, debateID uint64, in AddArgumentInput) (uint64, error) {
	var id uint64
	err := s.ledger.Update(ctx, func(ctx context.Context, tx *store.Tx) error {
		// time is read under the lock so finalization times follow
		// creation order
		now := s.clock.Now()
		d, err := tx.Debate(debateID)
		if err != nil {
			return err
		}
		if phase := d.Phase.PhaseAt(now); phase != domain.PhaseEditing {
			return &domain.WrongPhaseError{DebateID: debateID, Required: domain.PhaseEditing, Actual: phase}
		}
		if _, err := s.participant(tx, debateID, caller); err != nil {
			return err
		}

		m, err := market.Init(in.InitialApproval)
		if err != nil {
			return err
		}

		parent, err := tx.Argument(debateID, in.ParentID)
		if err != nil {
			return err
		}
		if parent.State == domain.ArgumentInvalid {
			return &domain.ArgumentStateMismatchError{ArgumentID: parent.ID, Expected: domain.ArgumentFinal, Actual: parent.State}
		}

		id, err = tx.AppendArgument(debateID, domain.Argument{
			ParentID:         in.ParentID,
			ContentURI:       in.ContentURI,
			IsSupporting:     in.IsSupporting,
			Creator:          caller,
			State:            domain.ArgumentCreated,
			CreatedAt:        now,
			FinalizationTime: now + d.Phase.TimeUnit,
			Market:           m,
		})
		if err != nil {
			return err
		}
		s.record(tx, OpAddArgument, debateID, caller, now, addArgumentPayload{AddArgumentInput: in, ArgumentID: id})
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("argument added",
		zap.Uint64("debate_id", debateID),
		zap.Uint64("argument_id", id),
		zap.Uint64("parent_id", in.ParentID),
		zap.Bool("supporting", in.IsSupporting))
	return id, nil
}

// GetArgument returns the argument with its effective state.
func (s *ArgumentService) GetArgument(ctx context.Context, debateID, argumentID uint64) (domain.Argument, error) {
	var a domain.Argument
	err := s.ledger.View(ctx, func(tx *store.Tx) error {
		var err error
		if a, err = tx.Argument(debateID, argumentID); err != nil {
			return err
		}
		a.State = a.EffectiveState(s.clock.Now())
		return nil
	})
	return a, err
}

func (s *ArgumentService) ListArguments(ctx context.Context, debateID uint64) ([]domain.Argument, error) {
	var args []domain.Argument
	err := s.ledger.View(ctx, func(tx *store.Tx) error {
		var err error
		if args, err = tx.Arguments(debateID); err != nil {
			return err
		}
		now := s.clock.Now()
		for i := range args {
			args[i].State = args[i].EffectiveState(now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return args, nil
}

// LeafArgumentIDs returns the arguments without live children, ascending.
// The root is never a leaf.
func (s *ArgumentService) LeafArgumentIDs(ctx context.Context, debateID uint64) ([]uint64, error) {
	var ids []uint64
	err := s.ledger.View(ctx, func(tx *store.Tx) error {
		var err error
		ids, err = tx.LeafArgumentIDs(debateID)
		return err
	})
	return ids, err
}

func (s *ArgumentService) DisputedArgumentIDs(ctx context.Context, debateID uint64) ([]uint64, error) {
	var ids []uint64
	err := s.ledger.View(ctx, func(tx *store.Tx) error {
		var err error
		ids, err = tx.DisputedArgumentIDs(debateID)
		return err
	})
	return ids, err
}
