package engine

import (
	"github.com/abdoElHodaky/tradSys/internal/clob/block"
	"github.com/abdoElHodaky/tradSys/internal/clob/boundary"
	"github.com/abdoElHodaky/tradSys/internal/clob/market"
	"github.com/abdoElHodaky/tradSys/internal/globalpool"
)

// BatchUpdateArgs is the input to BatchUpdate: one shared seat hint,
// a list of cancels by block-index hint, and a list of new placements,
// executed cancels-then-places in one invocation (opcode 6, §A.6).
type BatchUpdateArgs struct {
	TraderSeatIndex block.Index
	CurrentSlot     uint32
	Cancels         []block.Index
	Places          []AddOrderArgs
}

// PlaceOutcome is the per-place result BatchUpdate returns: the
// sequence number assigned and the block index the residue rests at
// (block.Nil if nothing rested).
type PlaceOutcome struct {
	SequenceNumber uint64
	RestingIndex   block.Index
	BaseTraded     uint64
	QuoteTraded    uint64
}

// BatchUpdate runs every cancel in Cancels, then every place in Places,
// against the shared TraderSeatIndex, stopping at the first error (the
// whole instruction aborts per §7's propagation policy, so a caller
// that wants transactional semantics relies on the host reverting all
// mutations on error, not on BatchUpdate itself rolling back).
func BatchUpdate(m *market.Market, pool globalpool.GlobalPool, args BatchUpdateArgs) ([]PlaceOutcome, error) {
	for _, hint := range args.Cancels {
		if err := boundary.Cancel(m, args.TraderSeatIndex, hint); err != nil {
			return nil, err
		}
	}

	outcomes := make([]PlaceOutcome, 0, len(args.Places))
	for _, place := range args.Places {
		place.TraderSeatIndex = args.TraderSeatIndex
		place.CurrentSlot = args.CurrentSlot
		result, err := AddOrder(m, pool, place)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, PlaceOutcome{
			SequenceNumber: result.SequenceNumber,
			RestingIndex:   result.RestingIndex,
			BaseTraded:     result.BaseTraded,
			QuoteTraded:    result.QuoteTraded,
		})
	}
	return outcomes, nil
}
