package market

import (
	"github.com/abdoElHodaky/tradSys/internal/clob/arena"
	"github.com/abdoElHodaky/tradSys/internal/clob/block"
	"github.com/abdoElHodaky/tradSys/internal/clob/clobserr"
	"github.com/abdoElHodaky/tradSys/internal/clob/rbtree"
)

// Market is the full in-memory state of one trading pair: the fixed
// header plus the arena and the three trees layered over it. A Market
// is built fresh with New or reconstructed from a persisted byte
// buffer with Load, mutated in place by the boundary/engine packages,
// and turned back into bytes with Bytes for the host to persist.
type Market struct {
	Header *Header
	Arena  *arena.Arena
	Bids   *rbtree.Tree[RestingOrder]
	Asks   *rbtree.Tree[RestingOrder]
	Seats  *rbtree.Tree[Seat]
}

// EmptyBlockIndex is the permanently reserved block at offset 0. Index
// 0 doubles as the "no hint supplied" sentinel for every instruction
// that takes an index hint (see rbtree.ValidateHint), so it can never
// be handed out by Allocate; New burns it once and it never returns to
// the free-list.
const EmptyBlockIndex block.Index = 0

// New creates an empty market: dynamic region with its first block
// permanently reserved (see EmptyBlockIndex), empty free-list, all
// three trees empty.
func New(h *Header) *Market {
	a := arena.NewEmpty()
	a.GrowByOneBlock()
	a.Allocate() // burns EmptyBlockIndex; never freed back
	return &Market{
		Header: h,
		Arena:  a,
		Bids:   rbtree.New[RestingOrder](a, block.Nil, DecodeRestingOrder),
		Asks:   rbtree.New[RestingOrder](a, block.Nil, DecodeRestingOrder),
		Seats:  rbtree.New[Seat](a, block.Nil, DecodeSeat),
	}
}

// Load reconstructs a Market from a persisted account buffer: the
// first HeaderSize bytes are the header, the remainder is the dynamic
// region handed to the arena. Tree max-node caches are restored
// directly from the header rather than recomputed (see rbtree.Restore).
func Load(buf []byte) (*Market, error) {
	h, err := DecodeHeader(buf)
	if err != nil {
		return nil, err
	}
	dynamic := buf[HeaderSize:]
	if len(dynamic)%block.Size != 0 {
		return nil, clobserr.New(clobserr.ErrInvalidAccountData, "dynamic region length is not block-aligned").
			WithDetail("len", len(dynamic))
	}
	a := arena.New(dynamic, h.FreeListHead)
	return &Market{
		Header: h,
		Arena:  a,
		Bids:   rbtree.Restore[RestingOrder](a, h.BidsRoot, h.BidsMax, DecodeRestingOrder),
		Asks:   rbtree.Restore[RestingOrder](a, h.AsksRoot, h.AsksMax, DecodeRestingOrder),
		Seats:  rbtree.New[Seat](a, h.SeatsRoot, DecodeSeat),
	}, nil
}

// Bytes serializes the market back into one contiguous account buffer,
// syncing the header's root/max/free-list/byte-count fields from the
// live trees and arena first.
func (m *Market) Bytes() []byte {
	m.syncHeader()
	out := make([]byte, 0, HeaderSize+len(m.Arena.Bytes()))
	out = append(out, m.Header.Encode()...)
	out = append(out, m.Arena.Bytes()...)
	return out
}

func (m *Market) syncHeader() {
	m.Header.BidsRoot = m.Bids.Root()
	m.Header.AsksRoot = m.Asks.Root()
	m.Header.SeatsRoot = m.Seats.Root()
	// Max() is O(1) on the live tree cache; re-read it rather than
	// trusting a stale header field from before this invocation's
	// mutations.
	bidsMax, _ := m.Bids.Max()
	asksMax, _ := m.Asks.Max()
	m.Header.BidsMax = bidsMax
	m.Header.AsksMax = asksMax
	m.Header.FreeListHead = m.Arena.FreeListHead()
	m.Header.NextUnallocated = m.Arena.NumBytesAllocated()
}

// HasFreeBlock reports whether an allocation can be satisfied without
// growing the account first.
func (m *Market) HasFreeBlock() bool { return m.Arena.HasFreeBlock() }

// ExpandIfNeeded grows the dynamic region by one block if the
// free-list is empty, restoring the one-permanent-free-block invariant
// (§4.4/§4.8). It is a no-op if a free block already exists.
func (m *Market) ExpandIfNeeded() {
	if !m.Arena.HasFreeBlock() {
		m.Arena.GrowByOneBlock()
	}
}

// Expand grows the dynamic region by one block,
// implementing the standalone Expand instruction (§6 opcode 5). It
// fails ErrInvalidFreeList if a free block already exists, since
// growing while one is available would let the free-list grow without
// bound under repeated Expand calls.
func (m *Market) Expand() error {
	if m.Arena.HasFreeBlock() {
		return clobserr.New(clobserr.ErrInvalidFreeList, "expand called while a free block is already available")
	}
	m.Arena.GrowByOneBlock()
	return nil
}

// FindSeat locates a trader's seat by ID, returning block.Nil if none
// exists.
func (m *Market) FindSeat(id TraderID) (block.Index, error) {
	return m.Seats.Find(findByTraderID(id))
}

// NextSequenceNumber returns the current order_sequence_number and
// increments the header's counter (wrapping), matching the spec's
// "increment after the matching loop" step.
func (m *Market) NextSequenceNumber() uint64 {
	seq := m.Header.OrderSequenceNumber
	m.Header.OrderSequenceNumber++
	return seq
}
