// Package arena implements the market account's block allocator: a
// contiguous, growable byte buffer divided into fixed-size blocks,
// with O(1) allocation and release via an intrusive free-list threaded
// through the blocks themselves.
//
// The design follows the arena-of-indices pattern rather than a
// pointer graph: the backing buffer must be byte-stable and
// reallocatable across invocations, so every reference into it is a
// 32-bit offset resolved through BlockAt, which performs the bounds
// and alignment checks a pointer graph gets for free.
package arena

import (
	"github.com/abdoElHodaky/tradSys/internal/clob/block"
	"github.com/abdoElHodaky/tradSys/internal/clob/clobserr"
)

// Arena owns the dynamic region of a market account: everything after
// the fixed header. It never shrinks.
type Arena struct {
	buf          []byte
	freeListHead block.Index
}

// New wraps an existing dynamic-region buffer (e.g. loaded from an
// on-disk account) together with its free-list head. The buffer length
// must already be a multiple of block.Size.
func New(buf []byte, freeListHead block.Index) *Arena {
	return &Arena{buf: buf, freeListHead: freeListHead}
}

// NewEmpty creates an arena with no blocks and an empty free-list.
func NewEmpty() *Arena {
	return &Arena{buf: nil, freeListHead: block.Nil}
}

// NumBytesAllocated is the current length of the dynamic region.
func (a *Arena) NumBytesAllocated() uint32 {
	return uint32(len(a.buf))
}

// FreeListHead returns the current head of the free-list.
func (a *Arena) FreeListHead() block.Index {
	return a.freeListHead
}

// HasFreeBlock reports whether the free-list is non-empty. The market
// layer uses this to enforce the one-permanently-free-block invariant
// (see market.ExpandIfNeeded).
func (a *Arena) HasFreeBlock() bool {
	return a.freeListHead != block.Nil
}

// BlockAt returns the raw 80-byte slice for idx, validated for
// alignment and bounds. The returned slice aliases the arena's backing
// array; callers must not retain it across a GrowByOneBlock call,
// which may reallocate.
func (a *Arena) BlockAt(idx block.Index) ([]byte, error) {
	if !block.Valid(idx, a.NumBytesAllocated()) {
		return nil, clobserr.New(clobserr.ErrInvalidAccountData, "block index out of bounds or misaligned").
			WithDetail("index", uint32(idx))
	}
	start := uint32(idx)
	return a.buf[start : start+block.Size], nil
}

// Allocate pops the free-list head and returns it zeroed. Returns
// block.Nil if the free-list is empty; the caller must GrowByOneBlock
// first.
func (a *Arena) Allocate() (block.Index, error) {
	if a.freeListHead == block.Nil {
		return block.Nil, nil
	}
	idx := a.freeListHead
	raw, err := a.BlockAt(idx)
	if err != nil {
		return block.Nil, err
	}
	next := decodeNextIndex(raw)
	a.freeListHead = next
	for i := range raw {
		raw[i] = 0
	}
	return idx, nil
}

// Free zeroes idx and pushes it onto the head of the free-list. Zeroing
// immediately (not just on the next Allocate) clears the payload-type
// tag a freed tree node carried, so a stale index hint pointing at this
// block reads back as PayloadNone instead of still looking like a live
// node of its old type — without this, the same hint could be replayed
// against a freed-but-not-yet-reallocated block and be honored twice.
func (a *Arena) Free(idx block.Index) error {
	raw, err := a.BlockAt(idx)
	if err != nil {
		return err
	}
	for i := range raw {
		raw[i] = 0
	}
	encodeNextIndex(raw, a.freeListHead)
	a.freeListHead = idx
	return nil
}

// GrowByOneBlock appends one zeroed block to the dynamic region and
// pushes it onto the free-list. It is the only operation that grows
// the buffer; the market account is reallocated by the host to make
// room before this is called.
func (a *Arena) GrowByOneBlock() block.Index {
	newIdx := block.Index(len(a.buf))
	a.buf = append(a.buf, make([]byte, block.Size)...)
	// Free directly rather than via Free() to avoid a redundant bounds
	// check against the length we just extended.
	raw := a.buf[newIdx : uint32(newIdx)+block.Size]
	encodeNextIndex(raw, a.freeListHead)
	a.freeListHead = newIdx
	return newIdx
}

// Bytes exposes the raw dynamic-region buffer for serialization. The
// returned slice must not be mutated by callers outside this package.
func (a *Arena) Bytes() []byte {
	return a.buf
}

func decodeNextIndex(raw []byte) block.Index {
	return block.Index(uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16 | uint32(raw[3])<<24)
}

func encodeNextIndex(raw []byte, idx block.Index) {
	v := uint32(idx)
	raw[0] = byte(v)
	raw[1] = byte(v >> 8)
	raw[2] = byte(v >> 16)
	raw[3] = byte(v >> 24)
}
