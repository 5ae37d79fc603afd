package boundary_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/tradSys/internal/clob/block"
	"github.com/abdoElHodaky/tradSys/internal/clob/boundary"
	"github.com/abdoElHodaky/tradSys/internal/clob/clobserr"
	"github.com/abdoElHodaky/tradSys/internal/clob/fixedpoint"
	"github.com/abdoElHodaky/tradSys/internal/clob/market"
)

func newTestMarket(t *testing.T) *market.Market {
	t.Helper()
	h, err := market.NewHeader(
		market.MintID{1}, 255,
		market.MintID{2}, 254,
		market.VaultID{3}, 253,
		market.VaultID{4}, 252,
		9, 6,
	)
	require.NoError(t, err)
	return market.New(h)
}

func trader(b byte) market.TraderID {
	var id market.TraderID
	id[0] = b
	return id
}

func TestClaimSeatRejectsDuplicate(t *testing.T) {
	m := newTestMarket(t)
	alice := trader(1)

	m.ExpandIfNeeded()
	idx, err := boundary.ClaimSeat(m, alice)
	require.NoError(t, err)
	require.NotEqual(t, block.Nil, idx)

	m.ExpandIfNeeded()
	_, err = boundary.ClaimSeat(m, alice)
	require.Error(t, err)
	assert.True(t, clobserr.Is(err, clobserr.ErrAlreadyClaimedSeat))
}

func TestClaimSeatRequiresFreeBlock(t *testing.T) {
	m := newTestMarket(t)
	_, err := boundary.ClaimSeat(m, trader(1))
	require.Error(t, err)
	assert.True(t, clobserr.Is(err, clobserr.ErrInvalidFreeList))
}

func TestDepositWithdrawRoundTrip(t *testing.T) {
	m := newTestMarket(t)
	m.ExpandIfNeeded()
	idx, err := boundary.ClaimSeat(m, trader(1))
	require.NoError(t, err)

	require.NoError(t, boundary.Deposit(m, idx, 1000, true))
	require.NoError(t, boundary.Deposit(m, idx, 2000, false))

	seat, err := m.Seats.Payload(idx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), seat.BaseWithdrawableBalance)
	assert.Equal(t, uint64(2000), seat.QuoteWithdrawableBalance)
	assert.Equal(t, uint64(1000), m.Header.WithdrawableBaseAtoms)
	assert.Equal(t, uint64(2000), m.Header.WithdrawableQuoteAtoms)

	require.NoError(t, boundary.Withdraw(m, idx, 400, true))
	seat, err = m.Seats.Payload(idx)
	require.NoError(t, err)
	assert.Equal(t, uint64(600), seat.BaseWithdrawableBalance)
	assert.Equal(t, uint64(600), m.Header.WithdrawableBaseAtoms)

	err = boundary.Withdraw(m, idx, 10000, false)
	require.Error(t, err)
	assert.True(t, clobserr.Is(err, clobserr.ErrInsufficientFunds))
}

func TestReleaseSeatRequiresZeroBalance(t *testing.T) {
	m := newTestMarket(t)
	m.ExpandIfNeeded()
	idx, err := boundary.ClaimSeat(m, trader(1))
	require.NoError(t, err)
	require.NoError(t, boundary.Deposit(m, idx, 1, true))

	err = boundary.ReleaseSeat(m, idx)
	require.Error(t, err)
	assert.True(t, clobserr.Is(err, clobserr.ErrInvalidMarketParameters))

	require.NoError(t, boundary.Withdraw(m, idx, 1, true))
	require.NoError(t, boundary.ReleaseSeat(m, idx))

	err = m.Seats.ValidateHint(idx, block.PayloadSeat)
	assert.Error(t, err, "released seat's block should no longer carry the Seat payload tag")
}

func TestReleaseSeatFreesBlockForReuse(t *testing.T) {
	m := newTestMarket(t)
	m.ExpandIfNeeded()
	aliceIdx, err := boundary.ClaimSeat(m, trader(1))
	require.NoError(t, err)
	require.NoError(t, boundary.ReleaseSeat(m, aliceIdx))

	m.ExpandIfNeeded()
	bobIdx, err := boundary.ClaimSeat(m, trader(2))
	require.NoError(t, err)
	assert.Equal(t, aliceIdx, bobIdx, "the freed block should be recycled by the next claim")
}

func TestCancelCreditsSeatAndRemovesOrder(t *testing.T) {
	m := newTestMarket(t)
	m.ExpandIfNeeded()
	idx, err := boundary.ClaimSeat(m, trader(1))
	require.NoError(t, err)
	require.NoError(t, boundary.Deposit(m, idx, 5_000_000_000, true))

	price, err := fixedpoint.FromParts(1, 0)
	require.NoError(t, err)
	eff, err := fixedpoint.EffectivePrice(price, 1_000_000_000, false)
	require.NoError(t, err)

	m.ExpandIfNeeded()
	orderIdx, err := m.Arena.Allocate()
	require.NoError(t, err)
	order := market.RestingOrder{
		Price:           price,
		EffectivePrice:  eff,
		NumBaseAtoms:    1_000_000_000,
		SequenceNumber:  1,
		TraderSeatIndex: idx,
		IsBid:           false,
		OrderType:       market.Limit,
	}
	require.NoError(t, m.Asks.Insert(orderIdx, order))
	m.Header.OrderbookBaseAtoms += 1_000_000_000

	seat, err := m.Seats.Payload(idx)
	require.NoError(t, err)
	seat.BaseWithdrawableBalance -= 1_000_000_000
	require.NoError(t, m.Seats.Update(idx, seat))
	m.Header.WithdrawableBaseAtoms -= 1_000_000_000

	require.NoError(t, boundary.Cancel(m, idx, orderIdx))

	seat, err = m.Seats.Payload(idx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000_000), seat.BaseWithdrawableBalance)
	assert.Equal(t, uint64(0), m.Header.OrderbookBaseAtoms)
	assert.Equal(t, 0, m.Asks.Len())
}

func TestCancelRejectsWrongOwner(t *testing.T) {
	m := newTestMarket(t)
	m.ExpandIfNeeded()
	aliceIdx, err := boundary.ClaimSeat(m, trader(1))
	require.NoError(t, err)
	m.ExpandIfNeeded()
	bobIdx, err := boundary.ClaimSeat(m, trader(2))
	require.NoError(t, err)

	price, err := fixedpoint.FromParts(1, 0)
	require.NoError(t, err)
	eff, err := fixedpoint.EffectivePrice(price, 1, false)
	require.NoError(t, err)

	m.ExpandIfNeeded()
	orderIdx, err := m.Arena.Allocate()
	require.NoError(t, err)
	require.NoError(t, m.Asks.Insert(orderIdx, market.RestingOrder{
		Price: price, EffectivePrice: eff, NumBaseAtoms: 1, TraderSeatIndex: aliceIdx, OrderType: market.Limit,
	}))

	err = boundary.Cancel(m, bobIdx, orderIdx)
	require.Error(t, err)
	assert.True(t, clobserr.Is(err, clobserr.ErrWrongIndexHint))
}
