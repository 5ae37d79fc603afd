// Package engine implements order placement and matching: the central
// operation of the CLOB core. It consumes the arena, the trees and the
// fixed-point price package, but never touches I/O, logging or the
// ambient service stack — callers (internal/processor) are responsible
// for everything outside the market buffer.
package engine

import (
	"github.com/abdoElHodaky/tradSys/internal/clob/block"
	"github.com/abdoElHodaky/tradSys/internal/clob/clobserr"
	"github.com/abdoElHodaky/tradSys/internal/clob/fixedpoint"
	"github.com/abdoElHodaky/tradSys/internal/clob/market"
	"github.com/abdoElHodaky/tradSys/internal/globalpool"
)

// AddOrderArgs is the input to AddOrder, one per placed order.
type AddOrderArgs struct {
	TraderSeatIndex block.Index
	NumBaseAtoms    uint64
	Price           fixedpoint.Price
	IsBid           bool
	LastValidSlot   uint32
	OrderType       market.OrderType
	CurrentSlot     uint32
}

// AddOrderResult reports what AddOrder did: the sequence number
// assigned to this placement, the index the residue rests at (block.Nil
// if nothing rests), and the total quantities traded.
type AddOrderResult struct {
	SequenceNumber uint64
	RestingIndex   block.Index
	BaseTraded     uint64
	QuoteTraded    uint64
}

// AddOrder places an order, matches it against the opposite side of
// the book, and rests any residue per the order type's rules. pool may
// be nil if the market never sees Global orders; a nil pool causes any
// Global maker encountered to be treated as insufficiently funded.
func AddOrder(m *market.Market, pool globalpool.GlobalPool, args AddOrderArgs) (AddOrderResult, error) {
	if err := m.Seats.ValidateHint(args.TraderSeatIndex, block.PayloadSeat); err != nil {
		return AddOrderResult{}, err
	}
	if args.LastValidSlot != 0 && args.LastValidSlot <= args.CurrentSlot {
		return AddOrderResult{}, clobserr.New(clobserr.ErrAlreadyExpired, "order already expired at placement").
			WithDetail("lastValidSlot", args.LastValidSlot).
			WithDetail("currentSlot", args.CurrentSlot)
	}
	if args.NumBaseAtoms == 0 {
		return AddOrderResult{}, clobserr.New(clobserr.ErrInvalidMarketParameters, "order size must be positive")
	}

	opposite := m.Asks
	if !args.IsBid {
		opposite = m.Bids
	}

	price := args.Price
	if args.OrderType == market.PostOnlySlide {
		// Slide away from the best opposite price before ever testing
		// for a cross, so a PostOnlySlide order adjusts instead of
		// being rejected the way a plain PostOnly order would be.
		slid, err := slidePrice(opposite, args.IsBid, args.Price)
		if err != nil {
			return AddOrderResult{}, err
		}
		price = slid
	}

	remaining := args.NumBaseAtoms
	var baseTraded, quoteTraded uint64

	for remaining > 0 {
		candidate, err := bestCandidate(opposite, args.IsBid)
		if err != nil {
			return AddOrderResult{}, err
		}
		if candidate == block.Nil {
			break
		}
		maker, err := opposite.Payload(candidate)
		if err != nil {
			return AddOrderResult{}, err
		}

		if maker.IsExpired(args.CurrentSlot) {
			if err := removeMaker(m, opposite, candidate, maker); err != nil {
				return AddOrderResult{}, err
			}
			continue
		}

		cross := false
		if args.IsBid {
			cross = maker.Price.LessOrEqual(price)
		} else {
			cross = maker.Price.GreaterOrEqual(price)
		}
		if !cross {
			break
		}

		if !args.OrderType.Crosses() {
			return AddOrderResult{}, clobserr.New(clobserr.ErrPostOnlyCrosses, "order would cross the book")
		}

		if maker.OrderType == market.Global {
			makerSeat, err := m.Seats.Payload(maker.TraderSeatIndex)
			if err != nil {
				return AddOrderResult{}, err
			}
			tentative := minU64(remaining, maker.NumBaseAtoms)
			if pool == nil || !pool.TryMove(makerSeat.TraderID, tentative) {
				if err := removeMaker(m, opposite, candidate, maker); err != nil {
					return AddOrderResult{}, err
				}
				continue
			}
		}

		fullMatch := remaining >= maker.NumBaseAtoms
		tradedBase := minU64(remaining, maker.NumBaseAtoms)
		roundUp := args.IsBid != fullMatch
		tradedQuote, err := fixedpoint.QuoteForBase(tradedBase, maker.Price, roundUp)
		if err != nil {
			return AddOrderResult{}, err
		}

		if err := settleTrade(m, args.TraderSeatIndex, opposite, candidate, maker, args.IsBid, tradedBase, tradedQuote, fullMatch); err != nil {
			return AddOrderResult{}, err
		}

		baseTraded += tradedBase
		quoteTraded += tradedQuote
		remaining -= tradedBase
	}

	seq := m.NextSequenceNumber()
	result := AddOrderResult{SequenceNumber: seq, RestingIndex: block.Nil, BaseTraded: baseTraded, QuoteTraded: quoteTraded}

	if !args.OrderType.Rests() || remaining == 0 {
		return result, nil
	}

	idx, err := restResidue(m, args.TraderSeatIndex, args.IsBid, remaining, price, args.LastValidSlot, args.OrderType, seq)
	if err != nil {
		return AddOrderResult{}, err
	}
	result.RestingIndex = idx
	return result, nil
}

func bestCandidate(tree oppositeTree, takerIsBid bool) (block.Index, error) {
	if takerIsBid {
		return tree.Min()
	}
	return tree.Max()
}

// oppositeTree is the subset of rbtree.Tree[market.RestingOrder]'s
// surface the matching loop needs, named so bestCandidate reads clearly
// without importing rbtree's generic type twice.
type oppositeTree interface {
	Min() (block.Index, error)
	Max() (block.Index, error)
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
