// Package rbtree implements a classical red-black tree whose nodes
// live in caller-supplied arena blocks rather than heap objects: every
// left/right/parent pointer is a block.Index, not a Go pointer, so the
// whole structure is byte-stable and safe to keep inside a
// reallocatable account buffer.
//
// The tree is generic over a payload type rather than using interface
// dispatch: the payload-type tag byte written into every node header
// is what the hint-validation path checks, not a vtable, matching the
// design note that virtual dispatch must not be used here.
//
// The tree itself never allocates or frees blocks; the caller supplies
// an already-allocated index to Insert and is responsible for freeing
// the index it passed to Remove once Remove has unlinked it.
package rbtree

import (
	"github.com/abdoElHodaky/tradSys/internal/clob/arena"
	"github.com/abdoElHodaky/tradSys/internal/clob/block"
	"github.com/abdoElHodaky/tradSys/internal/clob/clobserr"
)

type color uint8

const (
	black color = 0
	red   color = 1
)

// Payload is the contract a tree's node value must satisfy. P is the
// concrete payload type (RestingOrder or Seat); the self-referential
// constraint lets Less compare two concrete values without going
// through an interface.
type Payload[P any] interface {
	// Less reports whether the receiver sorts strictly before other.
	// Ties (neither Less(other) nor other.Less(receiver)) are kept in
	// insertion order by the tree itself (see Insert).
	Less(other P) bool
	// PayloadType is the tag byte written into the node header.
	PayloadType() block.PayloadType
	// Encode serializes the payload into the node's 64-byte payload
	// region.
	Encode() [64]byte
}

// Decoder decodes a raw 64-byte payload region back into P.
type Decoder[P any] func([64]byte) P

// Tree is a red-black tree of payload type P stored in an arena.
type Tree[P Payload[P]] struct {
	arena   *arena.Arena
	decode  Decoder[P]
	root    block.Index
	maxNode block.Index
}

// New creates a tree rooted at root (block.Nil for an empty tree) over
// the given arena, using decode to reconstruct payloads from stored
// bytes during comparisons.
func New[P Payload[P]](a *arena.Arena, root block.Index, decode Decoder[P]) *Tree[P] {
	return &Tree[P]{arena: a, decode: decode, root: root, maxNode: block.Nil}
}

// Restore rebuilds a tree from a persisted root and max-node index
// (the market header's BidsRoot/BidsMax or AsksRoot/AsksMax), trusting
// the stored max rather than recomputing it with a walk. The header's
// own consistency invariant (I9) is what keeps this trustworthy; tests
// that want to verify I9 should compare against a fresh RecomputeMax()
// walk from root instead of calling Restore.
func Restore[P Payload[P]](a *arena.Arena, root, max block.Index, decode Decoder[P]) *Tree[P] {
	return &Tree[P]{arena: a, decode: decode, root: root, maxNode: max}
}

// Root returns the current root index (block.Nil if empty).
func (t *Tree[P]) Root() block.Index { return t.root }

// Len returns the number of nodes via a full traversal; used by tests
// and invariant checks, not on any hot path.
func (t *Tree[P]) Len() int {
	n := 0
	t.inorder(t.root, func(block.Index, P) bool { n++; return true })
	return n
}

type nodeHeader struct {
	left, right, parent block.Index
	color               color
	payloadType          block.PayloadType
}

func (t *Tree[P]) readHeader(idx block.Index) (nodeHeader, error) {
	raw, err := t.arena.BlockAt(idx)
	if err != nil {
		return nodeHeader{}, err
	}
	return nodeHeader{
		left:        decodeIndex(raw[0:4]),
		right:       decodeIndex(raw[4:8]),
		parent:      decodeIndex(raw[8:12]),
		color:       color(raw[12]),
		payloadType: block.PayloadType(raw[13]),
	}, nil
}

func (t *Tree[P]) writeHeader(idx block.Index, h nodeHeader) error {
	raw, err := t.arena.BlockAt(idx)
	if err != nil {
		return err
	}
	encodeIndex(raw[0:4], h.left)
	encodeIndex(raw[4:8], h.right)
	encodeIndex(raw[8:12], h.parent)
	raw[12] = byte(h.color)
	raw[13] = byte(h.payloadType)
	raw[14] = 0
	raw[15] = 0
	return nil
}

func (t *Tree[P]) payload(idx block.Index) (P, error) {
	var zero P
	raw, err := t.arena.BlockAt(idx)
	if err != nil {
		return zero, err
	}
	var buf [64]byte
	copy(buf[:], raw[16:80])
	return t.decode(buf), nil
}

func (t *Tree[P]) writePayload(idx block.Index, p P) error {
	raw, err := t.arena.BlockAt(idx)
	if err != nil {
		return err
	}
	enc := p.Encode()
	copy(raw[16:80], enc[:])
	return nil
}

// Update overwrites the payload stored at idx in place, without moving
// the node or re-checking its position against Less. Seat
// balance/volume updates keep their position because Seat.Less only
// looks at TraderID. The engine's partial-fill path also uses Update
// to rewrite a RestingOrder's NumBaseAtoms and EffectivePrice in
// place; the node stays where it was inserted.
func (t *Tree[P]) Update(idx block.Index, value P) error {
	return t.writePayload(idx, value)
}

// Insert places value into the tree at the caller-allocated index idx,
// which must not already be part of any tree. Duplicate keys are
// allowed; they land to the right of every existing equal key so that
// in-order traversal preserves the order repeated Insert calls were
// made in (used by the matching engine: identically-priced orders
// queue behind earlier ones).
func (t *Tree[P]) Insert(idx block.Index, value P) error {
	h := nodeHeader{left: block.Nil, right: block.Nil, parent: block.Nil, color: red, payloadType: value.PayloadType()}
	if err := t.writeHeader(idx, h); err != nil {
		return err
	}
	if err := t.writePayload(idx, value); err != nil {
		return err
	}

	if t.root == block.Nil {
		h.color = black
		if err := t.writeHeader(idx, h); err != nil {
			return err
		}
		t.root = idx
		t.maxNode = idx
		return nil
	}

	cur := t.root
	var parent block.Index
	goRight := false
	for cur != block.Nil {
		parent = cur
		curPayload, err := t.payload(cur)
		if err != nil {
			return err
		}
		if value.Less(curPayload) {
			goRight = false
			ch, err := t.readHeader(cur)
			if err != nil {
				return err
			}
			cur = ch.left
		} else {
			goRight = true
			ch, err := t.readHeader(cur)
			if err != nil {
				return err
			}
			cur = ch.right
		}
	}

	ph, err := t.readHeader(parent)
	if err != nil {
		return err
	}
	if goRight {
		ph.right = idx
	} else {
		ph.left = idx
	}
	if err := t.writeHeader(parent, ph); err != nil {
		return err
	}
	h.parent = parent
	if err := t.writeHeader(idx, h); err != nil {
		return err
	}

	if err := t.insertFixup(idx); err != nil {
		return err
	}
	if t.maxNode == block.Nil {
		t.maxNode = idx
	} else {
		maxPayload, err := t.payload(t.maxNode)
		if err != nil {
			return err
		}
		if maxPayload.Less(value) {
			t.maxNode = idx
		}
	}
	return nil
}

func (t *Tree[P]) insertFixup(z block.Index) error {
	for {
		zh, err := t.readHeader(z)
		if err != nil {
			return err
		}
		if zh.parent == block.Nil {
			break
		}
		ph, err := t.readHeader(zh.parent)
		if err != nil {
			return err
		}
		if ph.color == black {
			break
		}
		gp, err := t.readHeader(ph.parent)
		if err != nil {
			return err
		}
		if zh.parent == gp.left {
			uncle := gp.right
			if uncle != block.Nil {
				uh, err := t.readHeader(uncle)
				if err != nil {
					return err
				}
				if uh.color == red {
					if err := t.setColor(zh.parent, black); err != nil {
						return err
					}
					if err := t.setColor(uncle, black); err != nil {
						return err
					}
					if err := t.setColor(ph.parent, red); err != nil {
						return err
					}
					z = ph.parent
					continue
				}
			}
			if z == ph.right {
				z = zh.parent
				if err := t.rotateLeft(z); err != nil {
					return err
				}
				zh, err = t.readHeader(z)
				if err != nil {
					return err
				}
				ph, err = t.readHeader(zh.parent)
				if err != nil {
					return err
				}
				gp, err = t.readHeader(ph.parent)
				if err != nil {
					return err
				}
			}
			if err := t.setColor(zh.parent, black); err != nil {
				return err
			}
			if err := t.setColor(ph.parent, red); err != nil {
				return err
			}
			if err := t.rotateRight(ph.parent); err != nil {
				return err
			}
		} else {
			uncle := gp.left
			if uncle != block.Nil {
				uh, err := t.readHeader(uncle)
				if err != nil {
					return err
				}
				if uh.color == red {
					if err := t.setColor(zh.parent, black); err != nil {
						return err
					}
					if err := t.setColor(uncle, black); err != nil {
						return err
					}
					if err := t.setColor(ph.parent, red); err != nil {
						return err
					}
					z = ph.parent
					continue
				}
			}
			if z == ph.left {
				z = zh.parent
				if err := t.rotateRight(z); err != nil {
					return err
				}
				zh, err = t.readHeader(z)
				if err != nil {
					return err
				}
				ph, err = t.readHeader(zh.parent)
				if err != nil {
					return err
				}
				gp, err = t.readHeader(ph.parent)
				if err != nil {
					return err
				}
			}
			if err := t.setColor(zh.parent, black); err != nil {
				return err
			}
			if err := t.setColor(ph.parent, red); err != nil {
				return err
			}
			if err := t.rotateLeft(ph.parent); err != nil {
				return err
			}
		}
	}
	return t.setColor(t.root, black)
}

func (t *Tree[P]) setColor(idx block.Index, c color) error {
	h, err := t.readHeader(idx)
	if err != nil {
		return err
	}
	h.color = c
	return t.writeHeader(idx, h)
}

func (t *Tree[P]) rotateLeft(x block.Index) error {
	xh, err := t.readHeader(x)
	if err != nil {
		return err
	}
	y := xh.right
	yh, err := t.readHeader(y)
	if err != nil {
		return err
	}
	xh.right = yh.left
	if yh.left != block.Nil {
		lh, err := t.readHeader(yh.left)
		if err != nil {
			return err
		}
		lh.parent = x
		if err := t.writeHeader(yh.left, lh); err != nil {
			return err
		}
	}
	yh.parent = xh.parent
	if xh.parent == block.Nil {
		t.root = y
	} else {
		ph, err := t.readHeader(xh.parent)
		if err != nil {
			return err
		}
		if ph.left == x {
			ph.left = y
		} else {
			ph.right = y
		}
		if err := t.writeHeader(xh.parent, ph); err != nil {
			return err
		}
	}
	yh.left = x
	xh.parent = y
	if err := t.writeHeader(x, xh); err != nil {
		return err
	}
	return t.writeHeader(y, yh)
}

func (t *Tree[P]) rotateRight(x block.Index) error {
	xh, err := t.readHeader(x)
	if err != nil {
		return err
	}
	y := xh.left
	yh, err := t.readHeader(y)
	if err != nil {
		return err
	}
	xh.left = yh.right
	if yh.right != block.Nil {
		rh, err := t.readHeader(yh.right)
		if err != nil {
			return err
		}
		rh.parent = x
		if err := t.writeHeader(yh.right, rh); err != nil {
			return err
		}
	}
	yh.parent = xh.parent
	if xh.parent == block.Nil {
		t.root = y
	} else {
		ph, err := t.readHeader(xh.parent)
		if err != nil {
			return err
		}
		if ph.right == x {
			ph.right = y
		} else {
			ph.left = y
		}
		if err := t.writeHeader(xh.parent, ph); err != nil {
			return err
		}
	}
	yh.right = x
	xh.parent = y
	if err := t.writeHeader(x, xh); err != nil {
		return err
	}
	return t.writeHeader(y, yh)
}

func decodeIndex(b []byte) block.Index {
	return block.Index(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
}

func encodeIndex(b []byte, idx block.Index) {
	v := uint32(idx)
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
