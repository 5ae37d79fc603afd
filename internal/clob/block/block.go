// Package block defines the shared addressing primitives for the
// market account's dynamic region: the block size, the header size,
// the null index sentinel, and the payload-type tag that lets the
// red-black tree layer tell a RestingOrder node from a Seat node
// without virtual dispatch.
package block

// Index is a 32-bit byte offset into a market account's dynamic
// region. It is always a multiple of Size, or Nil.
type Index uint32

// Nil marks "no block". It is not a valid offset because it is not a
// multiple of Size. (Offset 0 is separately kept out of use as a
// reserved block; see market.EmptyBlockIndex.)
const Nil Index = 0xFFFFFFFF

// Size is the fixed allocation unit of the arena: a 16-byte tree node
// header plus a 64-byte payload, or a 4-byte free-list next-pointer
// plus 76 unused bytes.
const Size = 80

// HeaderSize is the fixed size of the market account header that
// precedes the dynamic block region.
const HeaderSize = 512

// PayloadType distinguishes the two node shapes that share the
// red-black tree code. It is stored as a single byte in every tree
// node header and must be checked before trusting a caller-supplied
// index (see rbtree.ValidateHint).
type PayloadType uint8

const (
	// PayloadNone marks a block that is not a tree node (free-list
	// node, or the permanently reserved empty block at index 0).
	PayloadNone PayloadType = iota
	PayloadRestingOrder
	PayloadSeat
)

// Valid reports whether idx is block-aligned and strictly less than
// numBytesAllocated, which is the bound invariant every tree/free-list
// entry must satisfy (data model invariant 2).
func Valid(idx Index, numBytesAllocated uint32) bool {
	if idx == Nil {
		return false
	}
	if uint32(idx)%Size != 0 {
		return false
	}
	return uint32(idx) < numBytesAllocated
}
