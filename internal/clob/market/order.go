package market

import (
	"encoding/binary"

	"github.com/abdoElHodaky/tradSys/internal/clob/block"
	"github.com/abdoElHodaky/tradSys/internal/clob/fixedpoint"
)

// Locked reports how much of which side this order currently has
// locked up: an ask locks base atoms at face value, a bid locks quote
// atoms rounded up to cover every remaining unit at the worst case
// price. Used when unwinding an order outside the matching loop
// (cancel, expiry, a Global maker dropped for insufficient funds).
func (o RestingOrder) Locked() (amount uint64, isBase bool, err error) {
	if o.IsBid {
		quote, err := fixedpoint.QuoteForBase(o.NumBaseAtoms, o.Price, true)
		if err != nil {
			return 0, false, err
		}
		return quote, false, nil
	}
	return o.NumBaseAtoms, true, nil
}

// OrderType is the closed set of instruction-level order behaviors.
type OrderType uint8

const (
	Limit OrderType = iota
	ImmediateOrCancel
	PostOnly
	PostOnlySlide
	Global
)

// Crosses reports whether this order type is allowed to take liquidity
// at all. PostOnly, PostOnlySlide and Global never cross.
func (t OrderType) Crosses() bool {
	switch t {
	case PostOnly, PostOnlySlide, Global:
		return false
	default:
		return true
	}
}

// Rests reports whether unexecuted residue of this order type is
// inserted into the book. ImmediateOrCancel never rests.
func (t OrderType) Rests() bool {
	return t != ImmediateOrCancel
}

// RestingOrder is the payload of a bids- or asks-tree node.
type RestingOrder struct {
	Price           fixedpoint.Price
	EffectivePrice  fixedpoint.Price
	NumBaseAtoms    uint64
	SequenceNumber  uint64
	TraderSeatIndex block.Index
	LastValidSlot   uint32
	IsBid           bool
	OrderType       OrderType
}

// Less orders resting orders by effective price ascending, with ties
// broken by sequence number ascending. Both sides' trees use this same
// ascending order: for asks the best order is the tree minimum, for
// bids the best order is the tree maximum (cached in the header as
// BidsMax so the hot "best bid" lookup is O(1)).
func (o RestingOrder) Less(other RestingOrder) bool {
	if c := o.EffectivePrice.Cmp(other.EffectivePrice); c != 0 {
		return c < 0
	}
	return o.SequenceNumber < other.SequenceNumber
}

// PayloadType identifies this node to the tree's hint validation.
func (o RestingOrder) PayloadType() block.PayloadType { return block.PayloadRestingOrder }

// Encode packs the order into the node's 64-byte payload region.
func (o RestingOrder) Encode() [64]byte {
	var b [64]byte
	priceBytes := o.Price.Bytes16()
	copy(b[0:16], priceBytes[:])
	effBytes := o.EffectivePrice.Bytes16()
	copy(b[16:32], effBytes[:])
	binary.LittleEndian.PutUint64(b[32:40], o.NumBaseAtoms)
	binary.LittleEndian.PutUint64(b[40:48], o.SequenceNumber)
	binary.LittleEndian.PutUint32(b[48:52], uint32(o.TraderSeatIndex))
	binary.LittleEndian.PutUint32(b[52:56], o.LastValidSlot)
	if o.IsBid {
		b[56] = 1
	}
	b[57] = byte(o.OrderType)
	return b
}

// DecodeRestingOrder reconstructs a RestingOrder from its payload
// bytes. Used as the Decoder passed to rbtree.New for the bids/asks
// trees.
func DecodeRestingOrder(b [64]byte) RestingOrder {
	var priceBytes, effBytes [16]byte
	copy(priceBytes[:], b[0:16])
	copy(effBytes[:], b[16:32])
	return RestingOrder{
		Price:           fixedpoint.FromBytes16(priceBytes),
		EffectivePrice:  fixedpoint.FromBytes16(effBytes),
		NumBaseAtoms:    binary.LittleEndian.Uint64(b[32:40]),
		SequenceNumber:  binary.LittleEndian.Uint64(b[40:48]),
		TraderSeatIndex: block.Index(binary.LittleEndian.Uint32(b[48:52])),
		LastValidSlot:   binary.LittleEndian.Uint32(b[52:56]),
		IsBid:           b[56] != 0,
		OrderType:       OrderType(b[57]),
	}
}

// IsExpired reports whether the order's LastValidSlot has passed as of
// currentSlot. LastValidSlot == 0 means the order never expires.
func (o RestingOrder) IsExpired(currentSlot uint32) bool {
	return o.LastValidSlot != 0 && o.LastValidSlot < currentSlot
}
