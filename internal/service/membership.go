package service

import (
	"context"
	"fmt"

	"github.com/arborvote/arborvote/internal/domain"
	"github.com/arborvote/arborvote/internal/store"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

type MembershipService struct {
	*core
}

// Join admits a verified person to a debate as a participant and credits
// the initial token grant. Every address can join a debate once.
//
// The identity oracle is queried outside the ledger lock with a bounded
// context, so a slow registry never stalls other debate operations.
func (s *MembershipService) Join(ctx context.Context, caller common.Address, debateID uint64) (domain.Member, error) {
	caps, err := s.caps.get()
	if err != nil {
		return domain.Member{}, err
	}

	if err := s.ledger.View(ctx, func(tx *store.Tx) error {
		return s.joinable(tx, caller, debateID, s.clock.Now())
	}); err != nil {
		return domain.Member{}, err
	}

	verifyCtx, cancel := context.WithTimeout(ctx, s.identityTimeout)
	verified, err := caps.Identity.IsVerified(verifyCtx, caller)
	cancel()
	if err != nil {
		return domain.Member{}, fmt.Errorf("identity oracle: %w", err)
	}
	if !verified {
		return domain.Member{}, domain.ErrIdentityProofInvalid
	}

	var member domain.Member
	err = s.ledger.Update(ctx, func(ctx context.Context, tx *store.Tx) error {
		now := s.clock.Now()
		// the debate may have finished or the caller joined concurrently
		if err := s.joinable(tx, caller, debateID, now); err != nil {
			return err
		}

		member = domain.Member{
			Address:  caller,
			Role:     domain.RoleParticipant,
			JoinedAt: now,
		}
		member.TokenBalance.Set(s.params.InitialTokenGrant())
		if err := tx.PutMember(debateID, member); err != nil {
			return err
		}
		s.record(tx, OpJoin, debateID, caller, now, nil)
		return nil
	})
	if err != nil {
		return domain.Member{}, err
	}

	s.logger.Info("participant joined",
		zap.Uint64("debate_id", debateID),
		zap.String("participant", caller.Hex()))
	return member, nil
}

func (s *MembershipService) joinable(tx *store.Tx, caller common.Address, debateID, now uint64) error {
	d, err := tx.Debate(debateID)
	if err != nil {
		return err
	}
	if d.Phase.PhaseAt(now) == domain.PhaseFinished {
		return &domain.DebateFinishedError{DebateID: debateID}
	}
	existing, ok, err := tx.Member(debateID, caller)
	if err != nil {
		return err
	}
	if ok && existing.Role != domain.RoleUnassigned {
		return &domain.AlreadyJoinedError{DebateID: debateID, Participant: caller}
	}
	return nil
}

// GetMember returns the membership record of addr. Addresses that never
// joined are reported with the unassigned role and no tokens.
func (s *MembershipService) GetMember(ctx context.Context, debateID uint64, addr common.Address) (domain.Member, error) {
	var m domain.Member
	err := s.ledger.View(ctx, func(tx *store.Tx) error {
		var err error
		m, _, err = tx.Member(debateID, addr)
		return err
	})
	m.Address = addr
	return m, err
}
