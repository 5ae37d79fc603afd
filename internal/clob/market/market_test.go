package market_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/tradSys/internal/clob/block"
	"github.com/abdoElHodaky/tradSys/internal/clob/clobserr"
	"github.com/abdoElHodaky/tradSys/internal/clob/market"
)

func newHeader(t *testing.T) *market.Header {
	t.Helper()
	h, err := market.NewHeader(
		market.MintID{1}, 1,
		market.MintID{2}, 2,
		market.VaultID{3}, 3,
		market.VaultID{4}, 4,
		9, 6,
	)
	require.NoError(t, err)
	return h
}

func TestNewHeaderRejectsSameMint(t *testing.T) {
	mint := market.MintID{9}
	_, err := market.NewHeader(mint, 1, mint, 2, market.VaultID{1}, 1, market.VaultID{2}, 2, 9, 6)
	require.Error(t, err)
	assert.True(t, clobserr.Is(err, clobserr.ErrInvalidMarketParameters))
}

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := newHeader(t)
	h.OrderSequenceNumber = 42
	h.QuoteVolume = 1 << 40
	h.WithdrawableBaseAtoms = 123456789
	h.OrderbookQuoteAtoms = 9999

	buf := h.Encode()
	require.Len(t, buf, market.HeaderSize)

	got, err := market.DecodeHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, h.Discriminant, got.Discriminant)
	assert.Equal(t, h.BaseMint, got.BaseMint)
	assert.Equal(t, h.QuoteMint, got.QuoteMint)
	assert.Equal(t, h.BaseVault, got.BaseVault)
	assert.Equal(t, h.QuoteVault, got.QuoteVault)
	assert.Equal(t, h.BaseDecimals, got.BaseDecimals)
	assert.Equal(t, h.QuoteDecimals, got.QuoteDecimals)
	assert.Equal(t, h.OrderSequenceNumber, got.OrderSequenceNumber)
	assert.Equal(t, h.QuoteVolume, got.QuoteVolume)
	assert.Equal(t, h.WithdrawableBaseAtoms, got.WithdrawableBaseAtoms)
	assert.Equal(t, h.OrderbookQuoteAtoms, got.OrderbookQuoteAtoms)
}

func TestDecodeHeaderRejectsBadDiscriminant(t *testing.T) {
	buf := make([]byte, market.HeaderSize)
	_, err := market.DecodeHeader(buf)
	require.Error(t, err)
	assert.True(t, clobserr.Is(err, clobserr.ErrInvalidAccountData))
}

func TestDecodeHeaderRejectsShortBuffer(t *testing.T) {
	_, err := market.DecodeHeader(make([]byte, 10))
	require.Error(t, err)
	assert.True(t, clobserr.Is(err, clobserr.ErrInvalidAccountData))
}

func TestMarketBytesLoadRoundTrip(t *testing.T) {
	h := newHeader(t)
	m := market.New(h)

	m.ExpandIfNeeded()
	trader := market.TraderID{7}
	idx, err := m.Arena.Allocate()
	require.NoError(t, err)
	require.NoError(t, m.Seats.Insert(idx, market.Seat{TraderID: trader, BaseWithdrawableBalance: 500}))

	buf := m.Bytes()
	reloaded, err := market.Load(buf)
	require.NoError(t, err)

	found, err := reloaded.FindSeat(trader)
	require.NoError(t, err)
	assert.Equal(t, idx, found)

	seat, err := reloaded.Seats.Payload(found)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), seat.BaseWithdrawableBalance)
}

func TestExpandFailsWhileFreeBlockAvailable(t *testing.T) {
	m := market.New(newHeader(t))
	require.NoError(t, m.Expand())
	assert.True(t, m.HasFreeBlock())

	err := m.Expand()
	require.Error(t, err)
	assert.True(t, clobserr.Is(err, clobserr.ErrInvalidFreeList))
}

func TestExpandIfNeededIsNoOpWithFreeBlock(t *testing.T) {
	m := market.New(newHeader(t))
	m.ExpandIfNeeded()
	before := m.Arena.NumBytesAllocated()
	m.ExpandIfNeeded()
	assert.Equal(t, before, m.Arena.NumBytesAllocated())
}

func TestFindSeatMissingReturnsNil(t *testing.T) {
	m := market.New(newHeader(t))
	idx, err := m.FindSeat(market.TraderID{1})
	require.NoError(t, err)
	assert.Equal(t, block.Nil, idx)
}

func TestNextSequenceNumberIncrementsFromZero(t *testing.T) {
	m := market.New(newHeader(t))
	assert.Equal(t, uint64(0), m.NextSequenceNumber())
	assert.Equal(t, uint64(1), m.NextSequenceNumber())
	assert.Equal(t, uint64(2), m.NextSequenceNumber())
}

func TestEmptyBlockIndexNeverAllocated(t *testing.T) {
	m := market.New(newHeader(t))
	m.ExpandIfNeeded()
	idx, err := m.Arena.Allocate()
	require.NoError(t, err)
	assert.NotEqual(t, market.EmptyBlockIndex, idx)
}
