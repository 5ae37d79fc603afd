package boundary

import (
	"github.com/abdoElHodaky/tradSys/internal/clob/block"
	"github.com/abdoElHodaky/tradSys/internal/clob/clobserr"
	"github.com/abdoElHodaky/tradSys/internal/clob/market"
)

// Cancel locates a resting order by its block index hint, validates
// that the hint is block-aligned, tagged RestingOrder, and owned by
// seatIdx, credits the owning seat with the order's locked atoms, and
// frees the block. Both order trees share the same arena, so either
// tree handle can validate and decode a hint regardless of which side
// the order actually rests on; the side is read back from the decoded
// payload to know which tree to remove it from.
func Cancel(m *market.Market, seatIdx block.Index, orderIndexHint block.Index) error {
	if err := m.Bids.ValidateHint(orderIndexHint, block.PayloadRestingOrder); err != nil {
		return err
	}
	order, err := m.Bids.Payload(orderIndexHint)
	if err != nil {
		return err
	}
	if order.TraderSeatIndex != seatIdx {
		return clobserr.New(clobserr.ErrWrongIndexHint, "order is not owned by the cancelling seat").
			WithDetail("index", uint32(orderIndexHint))
	}

	amount, isBase, err := order.Locked()
	if err != nil {
		return err
	}
	seat, err := m.Seats.Payload(seatIdx)
	if err != nil {
		return err
	}
	if isBase {
		seat.BaseWithdrawableBalance += amount
		m.Header.WithdrawableBaseAtoms += amount
		m.Header.OrderbookBaseAtoms -= amount
	} else {
		seat.QuoteWithdrawableBalance += amount
		m.Header.WithdrawableQuoteAtoms += amount
		m.Header.OrderbookQuoteAtoms -= amount
	}
	if err := m.Seats.Update(seatIdx, seat); err != nil {
		return err
	}

	tree := m.Bids
	if !order.IsBid {
		tree = m.Asks
	}
	if err := tree.Remove(orderIndexHint); err != nil {
		return err
	}
	return m.Arena.Free(orderIndexHint)
}

// CancelBySequence locates and cancels an order by linear scan of the
// owning seat's side, matching it by sequence number. Exposed for
// clients that don't track block-index hints; Cancel (hint-based) is
// the O(1) path BatchUpdate uses.
func CancelBySequence(m *market.Market, seatIdx block.Index, isBid bool, sequenceNumber uint64) error {
	tree := m.Asks
	if isBid {
		tree = m.Bids
	}
	var found block.Index = block.Nil
	err := tree.Inorder(func(idx block.Index, o market.RestingOrder) bool {
		if o.TraderSeatIndex == seatIdx && o.SequenceNumber == sequenceNumber {
			found = idx
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	if found == block.Nil {
		return clobserr.New(clobserr.ErrWrongIndexHint, "no resting order with that sequence number for this seat")
	}
	return Cancel(m, seatIdx, found)
}
