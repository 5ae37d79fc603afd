package engine

import (
	"github.com/abdoElHodaky/tradSys/internal/clob/block"
	"github.com/abdoElHodaky/tradSys/internal/clob/clobserr"
	"github.com/abdoElHodaky/tradSys/internal/clob/fixedpoint"
	"github.com/abdoElHodaky/tradSys/internal/clob/market"
)

// slidePrice computes the PostOnlySlide clamp: one tick beyond the
// current best opposite price, so the slid order rests without
// crossing. If the opposite side is empty there is nothing to slide
// away from and the originally requested price is kept.
func slidePrice(opposite interface {
	Min() (block.Index, error)
	Max() (block.Index, error)
	Payload(block.Index) (market.RestingOrder, error)
}, takerIsBid bool, requested fixedpoint.Price) (fixedpoint.Price, error) {
	var bestIdx block.Index
	var err error
	if takerIsBid {
		bestIdx, err = opposite.Min()
	} else {
		bestIdx, err = opposite.Max()
	}
	if err != nil {
		return fixedpoint.Price{}, err
	}
	if bestIdx == block.Nil {
		return requested, nil
	}
	best, err := opposite.Payload(bestIdx)
	if err != nil {
		return fixedpoint.Price{}, err
	}
	if takerIsBid {
		// Crosses when the best ask is at or below the requested bid;
		// clamp one tick under it so the resting bid no longer crosses.
		if best.Price.LessOrEqual(requested) {
			return best.Price.PrevTick(), nil
		}
	} else {
		// Crosses when the best bid is at or above the requested ask;
		// clamp one tick above it so the resting ask no longer crosses.
		if best.Price.GreaterOrEqual(requested) {
			return best.Price.NextTick(), nil
		}
	}
	return requested, nil
}

// restResidue locks the taker's remaining atoms, allocates a block and
// inserts the new resting order into the taker's own side of the book.
func restResidue(m *market.Market, takerSeatIdx block.Index, isBid bool, remaining uint64, price fixedpoint.Price, lastValidSlot uint32, orderType market.OrderType, seq uint64) (block.Index, error) {
	seat, err := m.Seats.Payload(takerSeatIdx)
	if err != nil {
		return block.Nil, err
	}

	var lockAmount uint64
	if isBid {
		lockAmount, err = fixedpoint.QuoteForBase(remaining, price, true)
		if err != nil {
			return block.Nil, err
		}
		if seat.QuoteWithdrawableBalance < lockAmount {
			return block.Nil, clobserr.New(clobserr.ErrInsufficientFunds, "insufficient quote balance to rest bid")
		}
		seat.QuoteWithdrawableBalance -= lockAmount
		m.Header.WithdrawableQuoteAtoms -= lockAmount
		m.Header.OrderbookQuoteAtoms += lockAmount
	} else {
		lockAmount = remaining
		if seat.BaseWithdrawableBalance < lockAmount {
			return block.Nil, clobserr.New(clobserr.ErrInsufficientFunds, "insufficient base balance to rest ask")
		}
		seat.BaseWithdrawableBalance -= lockAmount
		m.Header.WithdrawableBaseAtoms -= lockAmount
		m.Header.OrderbookBaseAtoms += lockAmount
	}
	if err := m.Seats.Update(takerSeatIdx, seat); err != nil {
		return block.Nil, err
	}

	effPrice, err := fixedpoint.EffectivePrice(price, remaining, isBid)
	if err != nil {
		return block.Nil, err
	}
	order := market.RestingOrder{
		Price:           price,
		EffectivePrice:  effPrice,
		NumBaseAtoms:    remaining,
		SequenceNumber:  seq,
		TraderSeatIndex: takerSeatIdx,
		LastValidSlot:   lastValidSlot,
		IsBid:           isBid,
		OrderType:       orderType,
	}

	idx, err := m.Arena.Allocate()
	if err != nil {
		return block.Nil, err
	}
	if idx == block.Nil {
		return block.Nil, clobserr.New(clobserr.ErrInvalidFreeList, "no free block available to rest order residue")
	}

	tree := m.Bids
	if !isBid {
		tree = m.Asks
	}
	if err := tree.Insert(idx, order); err != nil {
		return block.Nil, err
	}
	return idx, nil
}
