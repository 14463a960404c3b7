// Package market implements the per-argument bonding curve: initialization
// from a requested approval and constant-product trading against the
// pro/con reserves. All arithmetic is unsigned 256-bit integer math.
package market

import (
	"errors"

	"github.com/arborvote/arborvote/internal/domain"
	"github.com/holiman/uint256"
)

// LiquidityConstant is the number of vote units every new market starts with.
const LiquidityConstant = 10

const bpsDenominator = 10_000

var ErrOverflow = errors.New("Overflow()")

// Trade is the outcome of a Buy or Sell.
type Trade struct {
	Side   domain.Side `json:"side"`
	Shares uint256.Int `json:"shares"`
	Tokens uint256.Int `json:"tokens"` // paid in on Buy, paid out on Sell
	Fee    uint256.Int `json:"fee"`
}

// Init splits LiquidityConstant so that the con reserve reflects the
// requested approval percentage. con = round(p*V/100) with halves rounding
// up, pro = V - con, const = pro*con.
func Init(approval uint64) (domain.Market, error) {
	if approval < domain.MinInitialApproval {
		return domain.Market{}, &domain.InitialApprovalOutOfBoundsError{Bound: domain.MinInitialApproval, Actual: approval}
	}
	if approval > domain.MaxInitialApproval {
		return domain.Market{}, &domain.InitialApprovalOutOfBoundsError{Bound: domain.MaxInitialApproval, Actual: approval}
	}

	con := (approval*LiquidityConstant + 50) / 100
	pro := LiquidityConstant - con

	var m domain.Market
	m.Pro.SetUint64(pro)
	m.Con.SetUint64(con)
	m.Const.SetUint64(pro * con)
	m.Vote.SetUint64(LiquidityConstant)
	return m, nil
}

// Approval returns con/(pro+con) in domain.TallyScale units. An empty
// market is neutral.
func Approval(m *domain.Market) int64 {
	total, overflow := new(uint256.Int).AddOverflow(&m.Pro, &m.Con)
	if overflow || total.IsZero() {
		return domain.TallyScale / 2
	}
	scaled, overflow := new(uint256.Int).MulDivOverflow(&m.Con, uint256.NewInt(uint64(domain.TallyScale)), total)
	if overflow {
		return domain.TallyScale / 2
	}
	return int64(scaled.Uint64())
}

// Holds reports whether the product invariant is preserved.
func Holds(m *domain.Market) bool {
	product, overflow := new(uint256.Int).MulOverflow(&m.Pro, &m.Con)
	if overflow {
		return true
	}
	return !product.Lt(&m.Const)
}

// reserves returns the reserve the bought side draws shares from and the
// opposite reserve the payment flows into.
func reserves(m *domain.Market, side domain.Side) (out, in *uint256.Int) {
	if side == domain.SideCon {
		return &m.Con, &m.Pro
	}
	return &m.Pro, &m.Con
}

// Buy invests amount vote tokens into side. A fee of feeBps is taken first,
// the remainder enters the opposite reserve and shares leave the bought
// reserve so the product stays at or above Const. m is left untouched on
// error. A market without an invariant, such as one opened at 100%
// approval or the root's, does not trade.
func Buy(m *domain.Market, side domain.Side, amount *uint256.Int, feeBps uint64) (Trade, error) {
	if amount.IsZero() {
		return Trade{}, domain.ErrZeroAmount
	}
	if m.Const.IsZero() {
		return Trade{}, domain.ErrInsufficientLiquidity
	}
	fee, err := feeOf(amount, feeBps)
	if err != nil {
		return Trade{}, err
	}
	net := new(uint256.Int).Sub(amount, fee)
	if net.IsZero() {
		return Trade{}, domain.ErrInsufficientLiquidity
	}

	out, in := reserves(m, side)
	newIn, overflow := new(uint256.Int).AddOverflow(in, net)
	if overflow {
		return Trade{}, ErrOverflow
	}
	newOut := ceilDiv(&m.Const, newIn)
	if !newOut.Lt(out) {
		return Trade{}, domain.ErrInsufficientLiquidity
	}
	vote, overflow := new(uint256.Int).AddOverflow(&m.Vote, net)
	if overflow {
		return Trade{}, ErrOverflow
	}

	t := Trade{Side: side}
	t.Shares.Sub(out, newOut)
	t.Tokens.Set(amount)
	t.Fee.Set(fee)

	out.Set(newOut)
	in.Set(newIn)
	m.Vote.Set(vote)
	m.Fees.Add(&m.Fees, fee)
	return t, nil
}

// Sell returns shares of side to the curve. The opposite reserve shrinks
// to keep the invariant and the released tokens, minus the fee, are paid
// out. m is left untouched on error.
func Sell(m *domain.Market, side domain.Side, shares *uint256.Int, feeBps uint64) (Trade, error) {
	if shares.IsZero() {
		return Trade{}, domain.ErrZeroAmount
	}
	if m.Const.IsZero() {
		return Trade{}, domain.ErrInsufficientLiquidity
	}

	out, in := reserves(m, side)
	newOut, overflow := new(uint256.Int).AddOverflow(out, shares)
	if overflow {
		return Trade{}, ErrOverflow
	}
	newIn := ceilDiv(&m.Const, newOut)
	if !newIn.Lt(in) {
		return Trade{}, domain.ErrInsufficientLiquidity
	}
	gross := new(uint256.Int).Sub(in, newIn)
	fee, err := feeOf(gross, feeBps)
	if err != nil {
		return Trade{}, err
	}

	t := Trade{Side: side}
	t.Shares.Set(shares)
	t.Tokens.Sub(gross, fee)
	t.Fee.Set(fee)

	out.Set(newOut)
	in.Set(newIn)
	if m.Vote.Lt(gross) {
		m.Vote.Clear()
	} else {
		m.Vote.Sub(&m.Vote, gross)
	}
	m.Fees.Add(&m.Fees, fee)
	return t, nil
}

func feeOf(amount *uint256.Int, feeBps uint64) (*uint256.Int, error) {
	if feeBps == 0 {
		return new(uint256.Int), nil
	}
	fee, overflow := new(uint256.Int).MulDivOverflow(amount, uint256.NewInt(feeBps), uint256.NewInt(bpsDenominator))
	if overflow {
		return nil, ErrOverflow
	}
	return fee, nil
}

// ceilDiv rounds up so reserves always favour the pool.
func ceilDiv(x, y *uint256.Int) *uint256.Int {
	q, r := new(uint256.Int), new(uint256.Int)
	q.DivMod(x, y, r)
	if !r.IsZero() {
		q.AddUint64(q, 1)
	}
	return q
}
