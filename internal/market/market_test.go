package market

import (
	"errors"
	"testing"

	"github.com/arborvote/arborvote/internal/domain"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_ReferenceValues(t *testing.T) {
	tests := []struct {
		approval uint64
		pro, con uint64
		constant uint64
	}{
		{50, 5, 5, 25},
		{80, 2, 8, 16},
		{100, 0, 10, 0},
	}

	for _, tt := range tests {
		m, err := Init(tt.approval)
		require.NoError(t, err)
		assert.Equal(t, tt.pro, m.Pro.Uint64(), "pro for %d%%", tt.approval)
		assert.Equal(t, tt.con, m.Con.Uint64(), "con for %d%%", tt.approval)
		assert.Equal(t, tt.constant, m.Const.Uint64(), "const for %d%%", tt.approval)
		assert.Equal(t, uint64(LiquidityConstant), m.Vote.Uint64())
		assert.True(t, m.Fees.IsZero())
	}
}

func TestInit_AllApprovalsInRange(t *testing.T) {
	for p := uint64(50); p <= 100; p++ {
		m, err := Init(p)
		require.NoError(t, err)

		con := (p*10 + 50) / 100
		assert.Equal(t, con, m.Con.Uint64())
		assert.Equal(t, 10-con, m.Pro.Uint64())
		assert.Equal(t, (10-con)*con, m.Const.Uint64())

		sum := new(uint256.Int).Add(&m.Pro, &m.Con)
		assert.True(t, sum.Eq(&m.Vote), "pro+con must equal vote at %d%%", p)
		product := new(uint256.Int).Mul(&m.Pro, &m.Con)
		assert.True(t, product.Eq(&m.Const), "pro*con must equal const at %d%%", p)
	}
}

func TestInit_HalfRoundsUp(t *testing.T) {
	m, err := Init(55)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), m.Con.Uint64())
	assert.Equal(t, uint64(4), m.Pro.Uint64())
}

func TestInit_OutOfBounds(t *testing.T) {
	tests := []struct {
		approval uint64
		bound    uint64
	}{
		{0, 50},
		{49, 50},
		{101, 100},
		{255, 100},
	}

	for _, tt := range tests {
		_, err := Init(tt.approval)
		var bounds *domain.InitialApprovalOutOfBoundsError
		require.True(t, errors.As(err, &bounds), "approval %d", tt.approval)
		assert.Equal(t, tt.bound, bounds.Bound)
		assert.Equal(t, tt.approval, bounds.Actual)
	}

	_, err := Init(49)
	assert.EqualError(t, err, "InitialApprovalOutOfBounds(50, 49)")
}

func TestApproval(t *testing.T) {
	m, _ := Init(80)
	assert.Equal(t, int64(800_000), Approval(&m))

	m, _ = Init(50)
	assert.Equal(t, domain.TallyScale/2, Approval(&m))

	var empty domain.Market
	assert.Equal(t, domain.TallyScale/2, Approval(&empty))
}

func TestBuy_ProRaisesApproval(t *testing.T) {
	m, _ := Init(50)
	before := Approval(&m)

	trade, err := Buy(&m, domain.SidePro, uint256.NewInt(100), 100)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), trade.Fee.Uint64())
	assert.Equal(t, uint64(100), trade.Tokens.Uint64())
	// con 5+99=104, pro ceil(25/104)=1, shares 5-1=4
	assert.Equal(t, uint64(4), trade.Shares.Uint64())
	assert.Equal(t, uint64(1), m.Pro.Uint64())
	assert.Equal(t, uint64(104), m.Con.Uint64())
	assert.Equal(t, uint64(109), m.Vote.Uint64())
	assert.Equal(t, uint64(1), m.Fees.Uint64())
	assert.Greater(t, Approval(&m), before)
	assert.True(t, Holds(&m))
}

func TestBuy_ConLowersApproval(t *testing.T) {
	m, _ := Init(50)
	before := Approval(&m)

	trade, err := Buy(&m, domain.SideCon, uint256.NewInt(20), 0)
	require.NoError(t, err)

	// pro 5+20=25, con ceil(25/25)=1, shares 4
	assert.Equal(t, uint64(4), trade.Shares.Uint64())
	assert.True(t, trade.Fee.IsZero())
	assert.Less(t, Approval(&m), before)
	assert.True(t, Holds(&m))
}

func TestBuy_Errors(t *testing.T) {
	m, _ := Init(50)
	snapshot := m

	_, err := Buy(&m, domain.SidePro, uint256.NewInt(0), 100)
	assert.ErrorIs(t, err, domain.ErrZeroAmount)

	_, err = Buy(&m, domain.SidePro, uint256.NewInt(5), 10_000)
	assert.ErrorIs(t, err, domain.ErrInsufficientLiquidity)

	// a one-token buy cannot move the pro reserve off ceil(25/6)=5
	_, err = Buy(&m, domain.SidePro, uint256.NewInt(1), 0)
	assert.ErrorIs(t, err, domain.ErrInsufficientLiquidity)

	assert.Equal(t, snapshot, m)
}

func TestTrade_ZeroInvariantMarket(t *testing.T) {
	m, err := Init(100)
	require.NoError(t, err)
	require.True(t, m.Const.IsZero())
	snapshot := m

	for _, side := range []domain.Side{domain.SidePro, domain.SideCon} {
		_, err := Buy(&m, side, uint256.NewInt(1), 100)
		assert.ErrorIs(t, err, domain.ErrInsufficientLiquidity, "buy %s", side)

		_, err = Sell(&m, side, uint256.NewInt(1), 100)
		assert.ErrorIs(t, err, domain.ErrInsufficientLiquidity, "sell %s", side)
	}

	// the one-sided market keeps reporting full approval
	assert.Equal(t, snapshot, m)
	assert.Equal(t, domain.TallyScale, Approval(&m))
}

func TestSell_RoundTrip(t *testing.T) {
	m, _ := Init(50)

	bought, err := Buy(&m, domain.SidePro, uint256.NewInt(100), 0)
	require.NoError(t, err)

	sold, err := Sell(&m, domain.SidePro, &bought.Shares, 0)
	require.NoError(t, err)

	assert.Equal(t, bought.Shares, sold.Shares)
	assert.True(t, sold.Tokens.Cmp(&bought.Tokens) <= 0, "round trip must not create tokens")
	assert.Equal(t, uint64(5), m.Pro.Uint64())
	assert.True(t, Holds(&m))
}

func TestSell_Errors(t *testing.T) {
	m, _ := Init(80)
	snapshot := m

	_, err := Sell(&m, domain.SidePro, uint256.NewInt(0), 0)
	assert.ErrorIs(t, err, domain.ErrZeroAmount)

	// selling one pro share into pro=2,con=8 leaves con at ceil(16/3)=6
	trade, err := Sell(&m, domain.SidePro, uint256.NewInt(1), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), trade.Tokens.Uint64())

	m = snapshot
	// con side: pro 2 -> ceil(16/9)=2, nothing released
	_, err = Sell(&m, domain.SideCon, uint256.NewInt(1), 0)
	assert.ErrorIs(t, err, domain.ErrInsufficientLiquidity)
	assert.Equal(t, snapshot, m)
}

func TestTrades_PreserveInvariant(t *testing.T) {
	m, _ := Init(70)
	amounts := []uint64{3, 17, 250, 8, 1_000, 42, 9}

	for i, a := range amounts {
		side := domain.SidePro
		if i%2 == 1 {
			side = domain.SideCon
		}
		trade, err := Buy(&m, side, uint256.NewInt(a), 50)
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrInsufficientLiquidity)
			continue
		}
		assert.True(t, Holds(&m), "after buy %d", i)

		half := new(uint256.Int).Rsh(&trade.Shares, 1)
		if half.IsZero() {
			continue
		}
		if _, err := Sell(&m, side, half, 50); err == nil {
			assert.True(t, Holds(&m), "after sell %d", i)
		}
	}
}
