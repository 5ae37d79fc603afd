package engine

import (
	"github.com/abdoElHodaky/tradSys/internal/clob/block"
	"github.com/abdoElHodaky/tradSys/internal/clob/clobserr"
	"github.com/abdoElHodaky/tradSys/internal/clob/fixedpoint"
	"github.com/abdoElHodaky/tradSys/internal/clob/market"
	"github.com/abdoElHodaky/tradSys/internal/clob/rbtree"
)

// removeMaker unwinds a resting order that will not be matched (expired
// or, for a Global order, insufficiently funded in the pool): credit
// the owning seat with its locked atoms, remove it from its tree, and
// free its block.
func removeMaker(m *market.Market, tree *rbtree.Tree[market.RestingOrder], idx block.Index, maker market.RestingOrder) error {
	amount, isBase, err := maker.Locked()
	if err != nil {
		return err
	}
	seat, err := m.Seats.Payload(maker.TraderSeatIndex)
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
	if err := m.Seats.Update(maker.TraderSeatIndex, seat); err != nil {
		return err
	}
	if err := tree.Remove(idx); err != nil {
		return err
	}
	return m.Arena.Free(idx)
}

// settleTrade applies one matched fill: seat balance updates in the
// fixed order the spec mandates, ghost-counter bookkeeping, and either
// removing the fully-matched maker or shrinking it in place.
func settleTrade(m *market.Market, takerSeatIdx block.Index, tree *rbtree.Tree[market.RestingOrder], makerIdx block.Index, maker market.RestingOrder, takerIsBid bool, baseTraded, quoteTraded uint64, fullMatch bool) error {
	takerSeat, err := m.Seats.Payload(takerSeatIdx)
	if err != nil {
		return err
	}
	makerSeat, err := m.Seats.Payload(maker.TraderSeatIndex)
	if err != nil {
		return err
	}

	if takerIsBid {
		// (a) debit taker's paid side.
		if takerSeat.QuoteWithdrawableBalance < quoteTraded {
			return clobserr.New(clobserr.ErrInsufficientFunds, "taker quote balance below trade cost")
		}
		takerSeat.QuoteWithdrawableBalance -= quoteTraded
		m.Header.WithdrawableQuoteAtoms -= quoteTraded
		// (b) credit maker's received side.
		makerSeat.QuoteWithdrawableBalance += quoteTraded
		m.Header.WithdrawableQuoteAtoms += quoteTraded
		// (c) credit taker's bought side.
		takerSeat.BaseWithdrawableBalance += baseTraded
		m.Header.WithdrawableBaseAtoms += baseTraded
		// maker (ask) locked base atoms are released, not credited to
		// a balance: they were sold, not returned.
		m.Header.OrderbookBaseAtoms -= baseTraded
	} else {
		// (a) debit taker's paid side.
		if takerSeat.BaseWithdrawableBalance < baseTraded {
			return clobserr.New(clobserr.ErrInsufficientFunds, "taker base balance below trade size")
		}
		takerSeat.BaseWithdrawableBalance -= baseTraded
		m.Header.WithdrawableBaseAtoms -= baseTraded
		// (b) credit maker's received side.
		makerSeat.BaseWithdrawableBalance += baseTraded
		m.Header.WithdrawableBaseAtoms += baseTraded
		// (c) credit taker's bought side.
		takerSeat.QuoteWithdrawableBalance += quoteTraded
		m.Header.WithdrawableQuoteAtoms += quoteTraded

		// maker (bid) locked quote atoms are released; the portion not
		// paid out as quoteTraded is the rounding bonus, returned to
		// the maker.
		oldBase := maker.NumBaseAtoms
		newBase := oldBase - baseTraded
		oldLocked, err := fixedpoint.QuoteForBase(oldBase, maker.Price, true)
		if err != nil {
			return err
		}
		newLocked, err := fixedpoint.QuoteForBase(newBase, maker.Price, true)
		if err != nil {
			return err
		}
		release := oldLocked - newLocked
		if release < quoteTraded {
			return clobserr.New(clobserr.ErrOverflow, "released lock smaller than quote traded").
				WithDetail("release", release).WithDetail("quoteTraded", quoteTraded)
		}
		bonus := release - quoteTraded
		if bonus > 0 {
			makerSeat.QuoteWithdrawableBalance += bonus
			m.Header.WithdrawableQuoteAtoms += bonus
		}
		m.Header.OrderbookQuoteAtoms -= release
	}

	// Record volume (wrapping) on both seats and the header.
	takerSeat.QuoteVolume += quoteTraded
	makerSeat.QuoteVolume += quoteTraded
	m.Header.QuoteVolume += quoteTraded

	if err := m.Seats.Update(takerSeatIdx, takerSeat); err != nil {
		return err
	}
	if err := m.Seats.Update(maker.TraderSeatIndex, makerSeat); err != nil {
		return err
	}

	if fullMatch {
		if err := tree.Remove(makerIdx); err != nil {
			return err
		}
		return m.Arena.Free(makerIdx)
	}

	maker.NumBaseAtoms -= baseTraded
	effPrice, err := fixedpoint.EffectivePrice(maker.Price, maker.NumBaseAtoms, maker.IsBid)
	if err != nil {
		return err
	}
	maker.EffectivePrice = effPrice
	return tree.Update(makerIdx, maker)
}
