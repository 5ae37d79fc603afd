package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/tradSys/internal/clob/block"
	"github.com/abdoElHodaky/tradSys/internal/clob/boundary"
	"github.com/abdoElHodaky/tradSys/internal/clob/clobserr"
	"github.com/abdoElHodaky/tradSys/internal/clob/engine"
	"github.com/abdoElHodaky/tradSys/internal/clob/fixedpoint"
	"github.com/abdoElHodaky/tradSys/internal/clob/market"
)

const (
	solUnit  = 1_000_000_000
	usdcUnit = 1_000_000
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
	m := market.New(h)
	return m
}

func traderID(b byte) market.TraderID {
	var id market.TraderID
	id[0] = b
	return id
}

func claimAndFund(t *testing.T, m *market.Market, id market.TraderID, baseAtoms, quoteAtoms uint64) block.Index {
	t.Helper()
	m.ExpandIfNeeded()
	idx, err := boundary.ClaimSeat(m, id)
	require.NoError(t, err)
	if baseAtoms > 0 {
		require.NoError(t, boundary.Deposit(m, idx, baseAtoms, true))
	}
	if quoteAtoms > 0 {
		require.NoError(t, boundary.Deposit(m, idx, quoteAtoms, false))
	}
	return idx
}

func priceOne(t *testing.T) fixedpoint.Price {
	t.Helper()
	p, err := fixedpoint.FromParts(1, 0)
	require.NoError(t, err)
	return p
}

func TestScenario1_SimpleCross(t *testing.T) {
	m := newTestMarket(t)
	price := priceOne(t)

	aIdx := claimAndFund(t, m, traderID(1), 2*solUnit, 0)
	m.ExpandIfNeeded()
	_, err := engine.AddOrder(m, nil, engine.AddOrderArgs{
		TraderSeatIndex: aIdx,
		NumBaseAtoms:    2 * solUnit,
		Price:           price,
		IsBid:           false,
		OrderType:       market.Limit,
	})
	require.NoError(t, err)

	bIdx := claimAndFund(t, m, traderID(2), 0, 2000*usdcUnit)
	m.ExpandIfNeeded()
	result, err := engine.AddOrder(m, nil, engine.AddOrderArgs{
		TraderSeatIndex: bIdx,
		NumBaseAtoms:    1 * solUnit,
		Price:           price,
		IsBid:           true,
		OrderType:       market.Limit,
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(solUnit), result.BaseTraded)
	assert.Equal(t, uint64(1000*usdcUnit), result.QuoteTraded)
	assert.Equal(t, block.Nil, result.RestingIndex)

	aSeat, err := m.Seats.Payload(aIdx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), aSeat.BaseWithdrawableBalance)
	assert.Equal(t, uint64(1000*usdcUnit), aSeat.QuoteWithdrawableBalance)

	bSeat, err := m.Seats.Payload(bIdx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1*solUnit), bSeat.BaseWithdrawableBalance)
	assert.Equal(t, uint64(1000*usdcUnit), bSeat.QuoteWithdrawableBalance)

	// One ask remains resting for 1 SOL.
	askIdx, err := m.Asks.Min()
	require.NoError(t, err)
	require.NotEqual(t, block.Nil, askIdx)
	ask, err := m.Asks.Payload(askIdx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1*solUnit), ask.NumBaseAtoms)

	checkConservation(t, m)
}

func TestScenario2_ExpiredSkip(t *testing.T) {
	m := newTestMarket(t)
	price1, err := fixedpoint.FromParts(1, 0)
	require.NoError(t, err)
	price2, err := fixedpoint.FromParts(2, 0)
	require.NoError(t, err)
	price3, err := fixedpoint.FromParts(3, 0)
	require.NoError(t, err)
	price4, err := fixedpoint.FromParts(4, 0)
	require.NoError(t, err)

	aIdx := claimAndFund(t, m, traderID(1), 4*solUnit, 0)
	placeAsk := func(p fixedpoint.Price, lastValidSlot uint32) {
		m.ExpandIfNeeded()
		_, err := engine.AddOrder(m, nil, engine.AddOrderArgs{
			TraderSeatIndex: aIdx,
			NumBaseAtoms:    1 * solUnit,
			Price:           p,
			IsBid:           false,
			OrderType:       market.Limit,
			LastValidSlot:   lastValidSlot,
			CurrentSlot:     0,
		})
		require.NoError(t, err)
	}
	placeAsk(price1, 0)
	placeAsk(price2, 1000)
	placeAsk(price3, 0)
	placeAsk(price4, 0)

	bIdx := claimAndFund(t, m, traderID(2), 0, 100000*usdcUnit)
	m.ExpandIfNeeded()
	result, err := engine.AddOrder(m, nil, engine.AddOrderArgs{
		TraderSeatIndex: bIdx,
		NumBaseAtoms:    4 * solUnit,
		Price:           price4,
		IsBid:           true,
		OrderType:       market.Limit,
		CurrentSlot:     10000,
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(3*solUnit), result.BaseTraded)
	assert.Equal(t, uint64(8000*usdcUnit), result.QuoteTraded)

	bSeat, err := m.Seats.Payload(bIdx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3*solUnit), bSeat.BaseWithdrawableBalance)

	checkConservation(t, m)
}

func TestScenario3_PostOnlyReject(t *testing.T) {
	m := newTestMarket(t)
	price10, err := fixedpoint.FromParts(10, 0)
	require.NoError(t, err)
	price11, err := fixedpoint.FromParts(11, 0)
	require.NoError(t, err)

	aIdx := claimAndFund(t, m, traderID(1), 2*solUnit, 0)
	m.ExpandIfNeeded()
	_, err = engine.AddOrder(m, nil, engine.AddOrderArgs{
		TraderSeatIndex: aIdx,
		NumBaseAtoms:    2 * solUnit,
		Price:           price10,
		IsBid:           false,
		OrderType:       market.Limit,
	})
	require.NoError(t, err)

	bIdx := claimAndFund(t, m, traderID(2), 0, 100000*usdcUnit)
	m.ExpandIfNeeded()
	_, err = engine.AddOrder(m, nil, engine.AddOrderArgs{
		TraderSeatIndex: bIdx,
		NumBaseAtoms:    1 * solUnit,
		Price:           price11,
		IsBid:           true,
		OrderType:       market.PostOnly,
	})
	require.Error(t, err)
	assert.True(t, clobserr.Is(err, clobserr.ErrPostOnlyCrosses))

	aSeat, err := m.Seats.Payload(aIdx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), aSeat.BaseWithdrawableBalance)
	assert.Equal(t, uint64(0), aSeat.QuoteWithdrawableBalance)

	bSeat, err := m.Seats.Payload(bIdx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), bSeat.BaseWithdrawableBalance)
	assert.Equal(t, uint64(100000*usdcUnit), bSeat.QuoteWithdrawableBalance)
}

func TestScenario5_CancelByHint(t *testing.T) {
	m := newTestMarket(t)
	price := priceOne(t)
	aIdx := claimAndFund(t, m, traderID(1), 4*solUnit, 0)

	var indices []block.Index
	for i := 0; i < 4; i++ {
		m.ExpandIfNeeded()
		result, err := engine.AddOrder(m, nil, engine.AddOrderArgs{
			TraderSeatIndex: aIdx,
			NumBaseAtoms:    1 * solUnit,
			Price:           price,
			IsBid:           false,
			OrderType:       market.Limit,
		})
		require.NoError(t, err)
		indices = append(indices, result.RestingIndex)
	}

	require.NoError(t, boundary.Cancel(m, aIdx, indices[2]))

	// The cancelled hint no longer names a live resting order, so
	// replaying it (double-cancel) must fail rather than double-credit.
	err := m.Asks.ValidateHint(indices[2], block.PayloadRestingOrder)
	assert.Error(t, err)
	assert.Error(t, boundary.Cancel(m, aIdx, indices[2]))

	assert.Equal(t, 3, m.Asks.Len())
	checkConservation(t, m)
}

func TestScenario6_GrowDiscipline(t *testing.T) {
	m := newTestMarket(t)
	price := priceOne(t)
	aIdx := claimAndFund(t, m, traderID(1), 10*solUnit, 0)

	peakLive := 0
	live := 1 // the seat block itself
	for i := 0; i < 10; i++ {
		m.ExpandIfNeeded()
		result, err := engine.AddOrder(m, nil, engine.AddOrderArgs{
			TraderSeatIndex: aIdx,
			NumBaseAtoms:    1 * solUnit,
			Price:           price,
			IsBid:           false,
			OrderType:       market.Limit,
		})
		require.NoError(t, err)
		live++
		if live > peakLive {
			peakLive = live
		}
		require.NoError(t, boundary.Cancel(m, aIdx, result.RestingIndex))
		live--
	}

	totalBlocks := int(m.Arena.NumBytesAllocated()) / block.Size
	assert.LessOrEqual(t, totalBlocks, peakLive+1)
}

func TestPostOnlySlide(t *testing.T) {
	m := newTestMarket(t)
	price10, err := fixedpoint.FromParts(10, 0)
	require.NoError(t, err)
	price11, err := fixedpoint.FromParts(11, 0)
	require.NoError(t, err)

	aIdx := claimAndFund(t, m, traderID(1), 2*solUnit, 0)
	m.ExpandIfNeeded()
	_, err = engine.AddOrder(m, nil, engine.AddOrderArgs{
		TraderSeatIndex: aIdx,
		NumBaseAtoms:    2 * solUnit,
		Price:           price10,
		IsBid:           false,
		OrderType:       market.Limit,
	})
	require.NoError(t, err)

	bIdx := claimAndFund(t, m, traderID(2), 0, 100000*usdcUnit)
	m.ExpandIfNeeded()
	result, err := engine.AddOrder(m, nil, engine.AddOrderArgs{
		TraderSeatIndex: bIdx,
		NumBaseAtoms:    1 * solUnit,
		Price:           price11,
		IsBid:           true,
		OrderType:       market.PostOnlySlide,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), result.BaseTraded)
	require.NotEqual(t, block.Nil, result.RestingIndex)

	resting, err := m.Bids.Payload(result.RestingIndex)
	require.NoError(t, err)
	assert.True(t, resting.Price.Less(price10))
}

// checkConservation verifies P1/P6: the header's ghost counters match a
// full walk over seats and orders.
func checkConservation(t *testing.T, m *market.Market) {
	t.Helper()
	var seatBase, seatQuote uint64
	require.NoError(t, m.Seats.Inorder(func(_ block.Index, s market.Seat) bool {
		seatBase += s.BaseWithdrawableBalance
		seatQuote += s.QuoteWithdrawableBalance
		return true
	}))

	var orderBase, orderQuote uint64
	require.NoError(t, m.Bids.Inorder(func(_ block.Index, o market.RestingOrder) bool {
		amount, isBase, err := o.Locked()
		require.NoError(t, err)
		if isBase {
			orderBase += amount
		} else {
			orderQuote += amount
		}
		return true
	}))
	require.NoError(t, m.Asks.Inorder(func(_ block.Index, o market.RestingOrder) bool {
		amount, isBase, err := o.Locked()
		require.NoError(t, err)
		if isBase {
			orderBase += amount
		} else {
			orderQuote += amount
		}
		return true
	}))

	assert.Equal(t, seatBase, m.Header.WithdrawableBaseAtoms)
	assert.Equal(t, seatQuote, m.Header.WithdrawableQuoteAtoms)
	assert.Equal(t, orderBase, m.Header.OrderbookBaseAtoms)
	assert.Equal(t, orderQuote, m.Header.OrderbookQuoteAtoms)
}
