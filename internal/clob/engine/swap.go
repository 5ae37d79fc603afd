package engine

import (
	"github.com/abdoElHodaky/tradSys/internal/clob/block"
	"github.com/abdoElHodaky/tradSys/internal/clob/clobserr"
	"github.com/abdoElHodaky/tradSys/internal/clob/fixedpoint"
	"github.com/abdoElHodaky/tradSys/internal/clob/market"
	"github.com/abdoElHodaky/tradSys/internal/globalpool"
)

// SwapArgs is the wallet-direct taker path (opcode 4, §A.6): the caller
// names the atoms going in and coming out rather than a price, and
// IsExactIn picks which of the two legs is the fixed one. The token
// transfers themselves are the external CPI collaborator's job; Swap
// only derives and places the equivalent ImmediateOrCancel order.
type SwapArgs struct {
	TraderSeatIndex block.Index
	InAtoms         uint64
	OutAtoms        uint64
	IsBaseIn        bool
	IsExactIn       bool
	CurrentSlot     uint32
}

// Swap places an ImmediateOrCancel order whose size and limit price are
// derived from the requested in/out legs, so the caller never crosses
// at a worse ratio than InAtoms:OutAtoms implies.
func Swap(m *market.Market, pool globalpool.GlobalPool, args SwapArgs) (AddOrderResult, error) {
	if args.InAtoms == 0 || args.OutAtoms == 0 {
		return AddOrderResult{}, clobserr.New(clobserr.ErrInvalidMarketParameters, "swap requires nonzero in and out atoms")
	}

	orderArgs := AddOrderArgs{
		TraderSeatIndex: args.TraderSeatIndex,
		OrderType:       market.ImmediateOrCancel,
		CurrentSlot:     args.CurrentSlot,
	}

	if args.IsBaseIn {
		// Selling base for quote: an ask. The worst acceptable price is
		// the quote-per-base ratio the caller named.
		orderArgs.IsBid = false
		orderArgs.Price = fixedpoint.FromAtoms(args.OutAtoms, args.InAtoms)
		if args.IsExactIn {
			orderArgs.NumBaseAtoms = args.InAtoms
		} else {
			base, err := fixedpoint.BaseForQuote(args.OutAtoms, orderArgs.Price, false)
			if err != nil {
				return AddOrderResult{}, err
			}
			orderArgs.NumBaseAtoms = minU64(base, args.InAtoms)
		}
	} else {
		// Selling quote for base: a bid. The worst acceptable price is
		// the maximum quote-per-base the caller is willing to pay.
		orderArgs.IsBid = true
		orderArgs.Price = fixedpoint.FromAtoms(args.InAtoms, args.OutAtoms)
		if args.IsExactIn {
			base, err := fixedpoint.BaseForQuote(args.InAtoms, orderArgs.Price, false)
			if err != nil {
				return AddOrderResult{}, err
			}
			orderArgs.NumBaseAtoms = base
		} else {
			orderArgs.NumBaseAtoms = args.OutAtoms
		}
	}

	if orderArgs.NumBaseAtoms == 0 {
		return AddOrderResult{}, clobserr.New(clobserr.ErrInvalidMarketParameters, "swap resolves to a zero-size order")
	}
	return AddOrder(m, pool, orderArgs)
}
