package service

import (
	"context"
	"fmt"

	"github.com/arborvote/arborvote/internal/domain"
	"github.com/arborvote/arborvote/internal/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// DisputeService raises challenges against arguments still inside their
// finalization window and applies the arbitrator's rulings.
type DisputeService struct {
	*core
}

type challengePayload struct {
	ArgumentID          uint64 `json:"argument_id"`
	ArbitratorDisputeID uint64 `json:"arbitrator_dispute_id"`
	Deposit             string `json:"deposit"`
}

type rulingPayload struct {
	ArgumentID uint64        `json:"argument_id"`
	Ruling     domain.Ruling `json:"ruling"`
	PaidTo     string        `json:"paid_to"`
}

// Challenge disputes an argument. State is updated before the deposit is
// pulled and the arbitrator is notified, so a capability that calls back
// with ctx sees the argument as disputed. Any failure undoes the whole
// challenge.
func (s *DisputeService) Challenge(ctx context.Context, caller common.Address, debateID, argumentID uint64) (domain.Dispute, error) {
	caps, err := s.caps.get()
	if err != nil {
		return domain.Dispute{}, err
	}

	var dispute domain.Dispute
	err = s.ledger.Update(ctx, func(ctx context.Context, tx *store.Tx) error {
		now := s.clock.Now()
		d, err := tx.Debate(debateID)
		if err != nil {
			return err
		}
		if d.Phase.PhaseAt(now) == domain.PhaseFinished {
			return &domain.DebateFinishedError{DebateID: debateID}
		}
		if _, err := s.participant(tx, debateID, caller); err != nil {
			return err
		}

		arg, err := tx.Argument(debateID, argumentID)
		if err != nil {
			return err
		}
		if arg.State != domain.ArgumentCreated {
			return &domain.ArgumentStateMismatchError{ArgumentID: argumentID, Expected: domain.ArgumentCreated, Actual: arg.State}
		}
		if !arg.Challengeable(now) {
			return &domain.FinalizationWindowClosedError{ArgumentID: argumentID, FinalizationTime: arg.FinalizationTime}
		}

		if err := tx.SetArgumentState(debateID, argumentID, domain.ArgumentDisputed); err != nil {
			return err
		}
		dispute = domain.Dispute{
			DebateID:   debateID,
			ArgumentID: argumentID,
			Challenger: caller,
			RaisedAt:   now,
		}
		dispute.Deposit.Set(s.params.Deposit())
		if err := tx.PutDispute(dispute); err != nil {
			return err
		}

		deposit := s.params.Deposit()
		if !deposit.IsZero() {
			if err := caps.Token.TransferFrom(ctx, caller, caps.Escrow, deposit); err != nil {
				return fmt.Errorf("collect dispute deposit: %w", err)
			}
		}

		disputeID, err := caps.Arbitrator.CreateDispute(ctx, domain.DisputeRequest{
			DebateID:   debateID,
			ArgumentID: argumentID,
			Challenger: caller,
			ContentURI: arg.ContentURI,
		})
		if err != nil {
			s.refund(caps, caller, deposit)
			return fmt.Errorf("create dispute: %w", err)
		}

		// the arbitrator may already have ruled through a nested call
		current, _, err := tx.Dispute(debateID, argumentID)
		if err != nil {
			return err
		}
		current.ArbitratorDisputeID = disputeID
		if err := tx.PutDispute(current); err != nil {
			return err
		}
		dispute = current

		s.record(tx, OpChallenge, debateID, caller, now, challengePayload{
			ArgumentID:          argumentID,
			ArbitratorDisputeID: disputeID,
			Deposit:             deposit.Dec(),
		})
		return nil
	})
	if err != nil {
		return domain.Dispute{}, err
	}

	s.logger.Info("argument challenged",
		zap.Uint64("debate_id", debateID),
		zap.Uint64("argument_id", argumentID),
		zap.String("challenger", caller.Hex()),
		zap.Uint64("arbitrator_dispute_id", dispute.ArbitratorDisputeID))
	return dispute, nil
}

// refund returns a deposit collected by an operation that is being
// abandoned. The ledger rollback cannot undo the token transfer.
func (s *DisputeService) refund(caps *Capabilities, to common.Address, amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), journalAppendTimeout)
	defer cancel()
	if err := caps.Token.Transfer(ctx, to, amount); err != nil {
		s.logger.Error("failed to refund dispute deposit",
			zap.String("challenger", to.Hex()),
			zap.String("amount", amount.Dec()),
			zap.Error(err))
	}
}

// RuleOnDispute applies the arbitrator's ruling. An upheld dispute
// invalidates the argument and refunds the challenger; a rejected one
// finalizes the argument and pays the deposit to its creator.
func (s *DisputeService) RuleOnDispute(ctx context.Context, caller common.Address, debateID, argumentID uint64, upheld bool) error {
	caps, err := s.caps.get()
	if err != nil {
		return err
	}
	if caller != caps.Arbitrator.Address() {
		return &domain.OnlyArbitratorError{Caller: caller}
	}

	var payee common.Address
	err = s.ledger.Update(ctx, func(ctx context.Context, tx *store.Tx) error {
		now := s.clock.Now()
		arg, err := tx.Argument(debateID, argumentID)
		if err != nil {
			return err
		}
		if arg.State != domain.ArgumentDisputed {
			return &domain.ArgumentStateMismatchError{ArgumentID: argumentID, Expected: domain.ArgumentDisputed, Actual: arg.State}
		}
		dispute, ok, err := tx.Dispute(debateID, argumentID)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.ArgumentStateMismatchError{ArgumentID: argumentID, Expected: domain.ArgumentDisputed, Actual: arg.State}
		}

		next := domain.ArgumentFinal
		dispute.Ruling = domain.RulingRejected
		payee = arg.Creator
		if upheld {
			next = domain.ArgumentInvalid
			dispute.Ruling = domain.RulingUpheld
			payee = dispute.Challenger
		}
		if err := tx.SetArgumentState(debateID, argumentID, next); err != nil {
			return err
		}
		if err := tx.PutDispute(dispute); err != nil {
			return err
		}

		if !dispute.Deposit.IsZero() {
			if err := caps.Token.Transfer(ctx, payee, &dispute.Deposit); err != nil {
				return fmt.Errorf("pay out dispute deposit: %w", err)
			}
		}
		s.record(tx, OpRuleOnDispute, debateID, caller, now, rulingPayload{
			ArgumentID: argumentID,
			Ruling:     dispute.Ruling,
			PaidTo:     payee.Hex(),
		})
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("dispute ruled",
		zap.Uint64("debate_id", debateID),
		zap.Uint64("argument_id", argumentID),
		zap.Bool("upheld", upheld),
		zap.String("deposit_to", payee.Hex()))
	return nil
}

// GetDispute returns the dispute raised against an argument, if any.
func (s *DisputeService) GetDispute(ctx context.Context, debateID, argumentID uint64) (domain.Dispute, bool, error) {
	var (
		d  domain.Dispute
		ok bool
	)
	err := s.ledger.View(ctx, func(tx *store.Tx) error {
		if _, err := tx.Argument(debateID, argumentID); err != nil {
			return err
		}
		var err error
		d, ok, err = tx.Dispute(debateID, argumentID)
		return err
	})
	return d, ok, err
}
