package market

import (
	"bytes"
	"encoding/binary"

	"github.com/abdoElHodaky/tradSys/internal/clob/block"
)

// TraderID is an opaque 32-byte trader identifier (a wallet public key
// in the original on-chain program; the core never interprets it).
type TraderID [32]byte

// Seat is the payload of a seats-tree node: one per trader per market,
// holding withdrawable balances and lifetime volume.
type Seat struct {
	TraderID                TraderID
	BaseWithdrawableBalance uint64
	QuoteWithdrawableBalance uint64
	QuoteVolume              uint64
}

// Less orders seats by trader ID, giving the seats tree a total order
// independent of balances so Find can locate a trader's seat by ID
// alone.
func (s Seat) Less(other Seat) bool {
	return bytes.Compare(s.TraderID[:], other.TraderID[:]) < 0
}

// PayloadType identifies this node to the tree's hint validation.
func (s Seat) PayloadType() block.PayloadType { return block.PayloadSeat }

// Encode packs the seat into the node's 64-byte payload region.
func (s Seat) Encode() [64]byte {
	var b [64]byte
	copy(b[0:32], s.TraderID[:])
	binary.LittleEndian.PutUint64(b[32:40], s.BaseWithdrawableBalance)
	binary.LittleEndian.PutUint64(b[40:48], s.QuoteWithdrawableBalance)
	binary.LittleEndian.PutUint64(b[48:56], s.QuoteVolume)
	return b
}

// DecodeSeat reconstructs a Seat from its payload bytes. Used as the
// Decoder passed to rbtree.New for the seats tree.
func DecodeSeat(b [64]byte) Seat {
	var s Seat
	copy(s.TraderID[:], b[0:32])
	s.BaseWithdrawableBalance = binary.LittleEndian.Uint64(b[32:40])
	s.QuoteWithdrawableBalance = binary.LittleEndian.Uint64(b[40:48])
	s.QuoteVolume = binary.LittleEndian.Uint64(b[48:56])
	return s
}

// findByTraderID builds the comparator Tree.Find needs to locate a
// seat by trader ID without a full decode-and-compare at the call
// site.
func findByTraderID(id TraderID) func(Seat) int {
	return func(candidate Seat) int {
		return bytes.Compare(id[:], candidate.TraderID[:])
	}
}
