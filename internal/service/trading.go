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

// MarketService trades participant tokens against argument markets during
// the voting phase.
type MarketService struct {
	*core
}

type tradePayload struct {
	ArgumentID uint64      `json:"argument_id"`
	Side       domain.Side `json:"side"`
	Amount     string      `json:"amount"`
	Shares     string      `json:"shares"`
	Tokens     string      `json:"tokens"`
}

// tradable loads the argument a caller wants to trade on after checking
// phase, membership and argument state.
func (s *MarketService) tradable(tx *store.Tx, caller common.Address, debateID, argumentID, now uint64) (domain.Member, domain.Argument, error) {
	d, err := tx.Debate(debateID)
	if err != nil {
		return domain.Member{}, domain.Argument{}, err
	}
	if phase := d.Phase.PhaseAt(now); phase != domain.PhaseVoting {
		return domain.Member{}, domain.Argument{}, &domain.WrongPhaseError{DebateID: debateID, Required: domain.PhaseVoting, Actual: phase}
	}
	member, err := s.participant(tx, debateID, caller)
	if err != nil {
		return domain.Member{}, domain.Argument{}, err
	}
	if _, err := tx.FinalizeExpired(debateID, now); err != nil {
		return domain.Member{}, domain.Argument{}, err
	}
	arg, err := tx.Argument(debateID, argumentID)
	if err != nil {
		return domain.Member{}, domain.Argument{}, err
	}
	if arg.State != domain.ArgumentFinal {
		return domain.Member{}, domain.Argument{}, &domain.ArgumentStateMismatchError{ArgumentID: argumentID, Expected: domain.ArgumentFinal, Actual: arg.State}
	}
	return member, arg, nil
}

// Buy spends amount of the caller's voting tokens on side shares.
func (s *MarketService) Buy(ctx context.Context, caller common.Address, debateID, argumentID uint64, side domain.Side, amount *uint256.Int) (market.Trade, error) {
	var trade market.Trade
	err := s.ledger.Update(ctx, func(ctx context.Context, tx *store.Tx) error {
		now := s.clock.Now()
		member, arg, err := s.tradable(tx, caller, debateID, argumentID, now)
		if err != nil {
			return err
		}
		if member.TokenBalance.Lt(amount) {
			e := &domain.InsufficientTokensError{}
			e.Required.Set(amount)
			e.Available.Set(&member.TokenBalance)
			return e
		}

		m := arg.Market
		trade, err = market.Buy(&m, side, amount, s.params.FeeBps)
		if err != nil {
			return err
		}
		if err := tx.SetMarket(debateID, argumentID, m); err != nil {
			return err
		}

		member.TokenBalance.Sub(&member.TokenBalance, amount)
		if err := tx.PutMember(debateID, member); err != nil {
			return err
		}

		share, err := tx.Share(debateID, argumentID, caller)
		if err != nil {
			return err
		}
		held := share.Of(side)
		held.Add(held, &trade.Shares)
		if err := tx.PutShare(debateID, argumentID, caller, share); err != nil {
			return err
		}

		s.record(tx, OpBuy, debateID, caller, now, tradePayload{
			ArgumentID: argumentID,
			Side:       side,
			Amount:     amount.Dec(),
			Shares:     trade.Shares.Dec(),
			Tokens:     trade.Tokens.Dec(),
		})
		return nil
	})
	if err != nil {
		return market.Trade{}, err
	}

	s.logger.Debug("shares bought",
		zap.Uint64("debate_id", debateID),
		zap.Uint64("argument_id", argumentID),
		zap.Stringer("side", side),
		zap.String("tokens", trade.Tokens.Dec()),
		zap.String("shares", trade.Shares.Dec()))
	return trade, nil
}

// Sell returns shares of side to the market and credits the payout.
func (s *MarketService) Sell(ctx context.Context, caller common.Address, debateID, argumentID uint64, side domain.Side, shares *uint256.Int) (market.Trade, error) {
	var trade market.Trade
	err := s.ledger.Update(ctx, func(ctx context.Context, tx *store.Tx) error {
		now := s.clock.Now()
		member, arg, err := s.tradable(tx, caller, debateID, argumentID, now)
		if err != nil {
			return err
		}

		share, err := tx.Share(debateID, argumentID, caller)
		if err != nil {
			return err
		}
		held := share.Of(side)
		if held.Lt(shares) {
			e := &domain.InsufficientSharesError{}
			e.Required.Set(shares)
			e.Available.Set(held)
			return e
		}

		m := arg.Market
		trade, err = market.Sell(&m, side, shares, s.params.FeeBps)
		if err != nil {
			return err
		}
		if err := tx.SetMarket(debateID, argumentID, m); err != nil {
			return err
		}

		held.Sub(held, shares)
		if err := tx.PutShare(debateID, argumentID, caller, share); err != nil {
			return err
		}
		member.TokenBalance.Add(&member.TokenBalance, &trade.Tokens)
		if err := tx.PutMember(debateID, member); err != nil {
			return err
		}

		s.record(tx, OpSell, debateID, caller, now, tradePayload{
			ArgumentID: argumentID,
			Side:       side,
			Amount:     shares.Dec(),
			Shares:     trade.Shares.Dec(),
			Tokens:     trade.Tokens.Dec(),
		})
		return nil
	})
	if err != nil {
		return market.Trade{}, err
	}

	s.logger.Debug("shares sold",
		zap.Uint64("debate_id", debateID),
		zap.Uint64("argument_id", argumentID),
		zap.Stringer("side", side),
		zap.String("shares", trade.Shares.Dec()),
		zap.String("tokens", trade.Tokens.Dec()))
	return trade, nil
}

func (s *MarketService) GetShares(ctx context.Context, debateID, argumentID uint64, participant common.Address) (domain.UserShare, error) {
	var share domain.UserShare
	err := s.ledger.View(ctx, func(tx *store.Tx) error {
		var err error
		share, err = tx.Share(debateID, argumentID, participant)
		return err
	})
	return share, err
}
