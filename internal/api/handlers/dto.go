package handlers

import (
	"github.com/arborvote/arborvote/internal/domain"
	"github.com/arborvote/arborvote/internal/market"
	"github.com/ethereum/go-ethereum/common"
)

// Amounts are 256-bit integers and travel as decimal strings.

type memberResponse struct {
	Address      common.Address `json:"address"`
	Role         domain.Role    `json:"role"`
	TokenBalance string         `json:"token_balance"`
	JoinedAt     uint64         `json:"joined_at,omitempty"`
}

func newMemberResponse(m domain.Member) memberResponse {
	return memberResponse{
		Address:      m.Address,
		Role:         m.Role,
		TokenBalance: m.TokenBalance.Dec(),
		JoinedAt:     m.JoinedAt,
	}
}

type marketResponse struct {
	Pro      string `json:"pro"`
	Con      string `json:"con"`
	Const    string `json:"const"`
	Vote     string `json:"vote"`
	Fees     string `json:"fees"`
	Approval int64  `json:"approval"`
}

type argumentResponse struct {
	ID               uint64               `json:"id"`
	ParentID         uint64               `json:"parent_id"`
	ContentURI       common.Hash          `json:"content_uri"`
	IsSupporting     bool                 `json:"is_supporting"`
	Creator          common.Address       `json:"creator"`
	State            domain.ArgumentState `json:"state"`
	CreatedAt        uint64               `json:"created_at"`
	FinalizationTime uint64               `json:"finalization_time"`
	ChildsVote       int64                `json:"childs_vote"`
	ChildCount       uint64               `json:"child_count"`
	Market           marketResponse       `json:"market"`
}

func newArgumentResponse(a domain.Argument) argumentResponse {
	return argumentResponse{
		ID:               a.ID,
		ParentID:         a.ParentID,
		ContentURI:       a.ContentURI,
		IsSupporting:     a.IsSupporting,
		Creator:          a.Creator,
		State:            a.State,
		CreatedAt:        a.CreatedAt,
		FinalizationTime: a.FinalizationTime,
		ChildsVote:       a.ChildsVote,
		ChildCount:       a.ChildCount,
		Market: marketResponse{
			Pro:      a.Market.Pro.Dec(),
			Con:      a.Market.Con.Dec(),
			Const:    a.Market.Const.Dec(),
			Vote:     a.Market.Vote.Dec(),
			Fees:     a.Market.Fees.Dec(),
			Approval: market.Approval(&a.Market),
		},
	}
}

type shareResponse struct {
	Participant common.Address `json:"participant"`
	Pro         string         `json:"pro"`
	Con         string         `json:"con"`
}

type tradeResponse struct {
	Side   domain.Side `json:"side"`
	Shares string      `json:"shares"`
	Tokens string      `json:"tokens"`
	Fee    string      `json:"fee"`
}

func newTradeResponse(t market.Trade) tradeResponse {
	return tradeResponse{
		Side:   t.Side,
		Shares: t.Shares.Dec(),
		Tokens: t.Tokens.Dec(),
		Fee:    t.Fee.Dec(),
	}
}

type disputeResponse struct {
	DebateID            uint64         `json:"debate_id"`
	ArgumentID          uint64         `json:"argument_id"`
	Challenger          common.Address `json:"challenger"`
	ArbitratorDisputeID uint64         `json:"arbitrator_dispute_id"`
	Deposit             string         `json:"deposit"`
	RaisedAt            uint64         `json:"raised_at"`
	Ruling              domain.Ruling  `json:"ruling"`
}

func newDisputeResponse(d domain.Dispute) disputeResponse {
	return disputeResponse{
		DebateID:            d.DebateID,
		ArgumentID:          d.ArgumentID,
		Challenger:          d.Challenger,
		ArbitratorDisputeID: d.ArbitratorDisputeID,
		Deposit:             d.Deposit.Dec(),
		RaisedAt:            d.RaisedAt,
		Ruling:              d.Ruling,
	}
}
