package processor_test

import (
	"context"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/clob/block"
	"github.com/abdoElHodaky/tradSys/internal/clob/boundary"
	"github.com/abdoElHodaky/tradSys/internal/clob/clobserr"
	"github.com/abdoElHodaky/tradSys/internal/clob/market"
	"github.com/abdoElHodaky/tradSys/internal/globalpool"
	"github.com/abdoElHodaky/tradSys/internal/metrics"
	"github.com/abdoElHodaky/tradSys/internal/processor"
	"github.com/abdoElHodaky/tradSys/internal/validation"
	"github.com/prometheus/client_golang/prometheus"
)

func newTestProcessor(t *testing.T) (*processor.Processor, *market.Market, block.Index, block.Index) {
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

	m.ExpandIfNeeded()
	aliceIdx, err := boundary.ClaimSeat(m, market.TraderID{1})
	require.NoError(t, err)
	require.NoError(t, boundary.Deposit(m, aliceIdx, 5_000_000_000, true))

	m.ExpandIfNeeded()
	bobIdx, err := boundary.ClaimSeat(m, market.TraderID{2})
	require.NoError(t, err)
	require.NoError(t, boundary.Deposit(m, bobIdx, 5_000_000_000_000, false))

	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	t.Cleanup(func() { pubsub.Close() })

	p, err := processor.New(processor.Params{
		Market:     m,
		Pool:       globalpool.NewInMemory(),
		MarketName: "SOL/USDC",
		Validator:  validation.NewValidator(),
		Metrics:    metrics.NewClobMetrics(prometheus.NewRegistry()),
		Publisher:  pubsub,
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)

	return p, m, aliceIdx, bobIdx
}

func TestProcessorPlaceOrderCrossesAndFills(t *testing.T) {
	p, _, aliceIdx, bobIdx := newTestProcessor(t)

	_, _, err := p.PlaceOrder(context.Background(), processor.PlaceOrderRequest{
		ProtocolVersion: "1.0.0",
		TraderSeatIndex: uint32(aliceIdx),
		NumBaseAtoms:    1_000_000_000,
		PriceMantissa:   1,
		PriceExponent:   0,
		IsBid:           false,
	})
	require.NoError(t, err)

	result, correlationID, err := p.PlaceOrder(context.Background(), processor.PlaceOrderRequest{
		ProtocolVersion: "1.0.0",
		TraderSeatIndex: uint32(bobIdx),
		NumBaseAtoms:    1_000_000_000,
		PriceMantissa:   1,
		PriceExponent:   0,
		IsBid:           true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, correlationID)
	assert.Equal(t, uint64(1_000_000_000), result.BaseTraded)
	assert.Equal(t, block.Nil, result.RestingIndex)
}

func TestProcessorPlaceOrderRejectsStaleProtocolVersion(t *testing.T) {
	p, _, aliceIdx, _ := newTestProcessor(t)

	_, _, err := p.PlaceOrder(context.Background(), processor.PlaceOrderRequest{
		ProtocolVersion: "0.9.0",
		TraderSeatIndex: uint32(aliceIdx),
		NumBaseAtoms:    1,
		PriceMantissa:   1,
		PriceExponent:   0,
		IsBid:           false,
	})
	require.Error(t, err)
}

func TestProcessorPlaceOrderRejectsZeroSize(t *testing.T) {
	p, _, aliceIdx, _ := newTestProcessor(t)

	_, _, err := p.PlaceOrder(context.Background(), processor.PlaceOrderRequest{
		ProtocolVersion: "1.0.0",
		TraderSeatIndex: uint32(aliceIdx),
		NumBaseAtoms:    0,
		PriceMantissa:   1,
		PriceExponent:   0,
		IsBid:           false,
	})
	require.Error(t, err)
}

func TestProcessorCancelRoundTrip(t *testing.T) {
	p, m, aliceIdx, _ := newTestProcessor(t)

	result, _, err := p.PlaceOrder(context.Background(), processor.PlaceOrderRequest{
		ProtocolVersion: "1.0.0",
		TraderSeatIndex: uint32(aliceIdx),
		NumBaseAtoms:    1_000_000_000,
		PriceMantissa:   1,
		PriceExponent:   0,
		IsBid:           false,
	})
	require.NoError(t, err)
	require.NotEqual(t, block.Nil, result.RestingIndex)

	_, err = p.Cancel(context.Background(), processor.CancelRequest{
		ProtocolVersion: "1.0.0",
		TraderSeatIndex: uint32(aliceIdx),
		OrderIndexHint:  uint32(result.RestingIndex),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, m.Asks.Len())
}

func TestProcessorCancelRejectsWrongOwner(t *testing.T) {
	p, _, aliceIdx, bobIdx := newTestProcessor(t)

	result, _, err := p.PlaceOrder(context.Background(), processor.PlaceOrderRequest{
		ProtocolVersion: "1.0.0",
		TraderSeatIndex: uint32(aliceIdx),
		NumBaseAtoms:    1_000_000_000,
		PriceMantissa:   1,
		PriceExponent:   0,
		IsBid:           false,
	})
	require.NoError(t, err)

	_, err = p.Cancel(context.Background(), processor.CancelRequest{
		ProtocolVersion: "1.0.0",
		TraderSeatIndex: uint32(bobIdx),
		OrderIndexHint:  uint32(result.RestingIndex),
	})
	require.Error(t, err)
	assert.True(t, clobserr.Is(err, clobserr.ErrWrongIndexHint))
}

func TestProcessorClaimAndReleaseSeat(t *testing.T) {
	p, m, _, _ := newTestProcessor(t)
	m.ExpandIfNeeded()

	seatIdx, correlationID, err := p.ClaimSeat(context.Background(), processor.ClaimSeatRequest{
		ProtocolVersion: "1.0.0",
		Trader:          market.TraderID{9},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, correlationID)
	assert.NotEqual(t, block.Nil, seatIdx)

	_, err = p.ReleaseSeat(context.Background(), processor.ReleaseSeatRequest{
		ProtocolVersion: "1.0.0",
		TraderSeatIndex: uint32(seatIdx),
	})
	require.NoError(t, err)
}

func TestProcessorDepositAndWithdraw(t *testing.T) {
	p, _, aliceIdx, _ := newTestProcessor(t)

	correlationID, err := p.Deposit(context.Background(), processor.DepositRequest{
		ProtocolVersion: "1.0.0",
		TraderSeatIndex: uint32(aliceIdx),
		Amount:          1_000,
		IsBase:          true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, correlationID)

	_, err = p.Withdraw(context.Background(), processor.WithdrawRequest{
		ProtocolVersion: "1.0.0",
		TraderSeatIndex: uint32(aliceIdx),
		Amount:          1_000,
		IsBase:          true,
	})
	require.NoError(t, err)
}

func TestProcessorWithdrawRejectsZeroAmount(t *testing.T) {
	p, _, aliceIdx, _ := newTestProcessor(t)

	_, err := p.Withdraw(context.Background(), processor.WithdrawRequest{
		ProtocolVersion: "1.0.0",
		TraderSeatIndex: uint32(aliceIdx),
		Amount:          0,
		IsBase:          true,
	})
	require.Error(t, err)
}

func TestProcessorBatchUpdatePlacesAndCancelsTogether(t *testing.T) {
	p, m, aliceIdx, _ := newTestProcessor(t)

	first, _, err := p.PlaceOrder(context.Background(), processor.PlaceOrderRequest{
		ProtocolVersion: "1.0.0",
		TraderSeatIndex: uint32(aliceIdx),
		NumBaseAtoms:    1_000_000_000,
		PriceMantissa:   1,
		PriceExponent:   0,
		IsBid:           false,
	})
	require.NoError(t, err)
	require.NotEqual(t, block.Nil, first.RestingIndex)

	outcomes, correlationID, err := p.BatchUpdate(context.Background(), processor.BatchUpdateRequest{
		ProtocolVersion: "1.0.0",
		TraderSeatIndex: uint32(aliceIdx),
		Cancels:         []uint32{uint32(first.RestingIndex)},
		Places: []processor.PlaceOrderLeg{
			{
				NumBaseAtoms:  500_000_000,
				PriceMantissa: 2,
				PriceExponent: 0,
				IsBid:         false,
			},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, correlationID)
	require.Len(t, outcomes, 1)
	assert.Equal(t, 1, m.Asks.Len())
}

func TestProcessorSnapshotMatchesMarketBytes(t *testing.T) {
	p, m, _, _ := newTestProcessor(t)
	assert.Equal(t, m.Bytes(), p.Snapshot())
	assert.Equal(t, "SOL/USDC", p.Name())
}
