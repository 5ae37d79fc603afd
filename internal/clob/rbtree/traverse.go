package rbtree

import "github.com/abdoElHodaky/tradSys/internal/clob/block"

// Min returns the index of the smallest node, or block.Nil if empty.
func (t *Tree[P]) Min() (block.Index, error) { return t.minFrom(t.root) }

// Max returns the index of the largest node, or block.Nil if empty.
// This also equals the cached maxNode maintained incrementally by
// Insert/Remove so that the market header's max-node field can be
// read without a walk.
func (t *Tree[P]) Max() (block.Index, error) { return t.maxNode, nil }

// RecomputeMax walks from the root to find the true maximum, ignoring
// the cached maxNode. Used by invariant checks (I9/P6) to verify the
// cache has not drifted from reality.
func (t *Tree[P]) RecomputeMax() (block.Index, error) { return t.maxFrom(t.root) }

func (t *Tree[P]) minFrom(x block.Index) (block.Index, error) {
	if x == block.Nil {
		return block.Nil, nil
	}
	for {
		h, err := t.readHeader(x)
		if err != nil {
			return block.Nil, err
		}
		if h.left == block.Nil {
			return x, nil
		}
		x = h.left
	}
}

func (t *Tree[P]) maxFrom(x block.Index) (block.Index, error) {
	if x == block.Nil {
		return block.Nil, nil
	}
	for {
		h, err := t.readHeader(x)
		if err != nil {
			return block.Nil, err
		}
		if h.right == block.Nil {
			return x, nil
		}
		x = h.right
	}
}

// Successor returns the in-order successor of idx, or block.Nil if idx
// is the maximum.
func (t *Tree[P]) Successor(idx block.Index) (block.Index, error) {
	h, err := t.readHeader(idx)
	if err != nil {
		return block.Nil, err
	}
	if h.right != block.Nil {
		return t.minFrom(h.right)
	}
	x, p := idx, h.parent
	for p != block.Nil {
		ph, err := t.readHeader(p)
		if err != nil {
			return block.Nil, err
		}
		if x != ph.right {
			return p, nil
		}
		x, p = p, ph.parent
	}
	return block.Nil, nil
}

// Predecessor returns the in-order predecessor of idx, or block.Nil if
// idx is the minimum.
func (t *Tree[P]) Predecessor(idx block.Index) (block.Index, error) {
	h, err := t.readHeader(idx)
	if err != nil {
		return block.Nil, err
	}
	if h.left != block.Nil {
		return t.maxFrom(h.left)
	}
	x, p := idx, h.parent
	for p != block.Nil {
		ph, err := t.readHeader(p)
		if err != nil {
			return block.Nil, err
		}
		if x != ph.left {
			return p, nil
		}
		x, p = p, ph.parent
	}
	return block.Nil, nil
}

// Payload returns the decoded payload at idx. Exposed so callers
// (market/engine) can inspect a node found via Find/Min/Max/Successor
// without duplicating the decode wiring.
func (t *Tree[P]) Payload(idx block.Index) (P, error) { return t.payload(idx) }

// PayloadType returns the tag byte stored at idx without decoding the
// full payload, used by hint validation.
func (t *Tree[P]) PayloadType(idx block.Index) (block.PayloadType, error) {
	h, err := t.readHeader(idx)
	if err != nil {
		return block.PayloadNone, err
	}
	return h.payloadType, nil
}

// Find returns the index of a node for which cmp reports 0, walking
// the tree using cmp's ordering against each visited payload. Returns
// block.Nil if no matching node exists. cmp must agree with the order
// values were inserted in (cmp(x) < 0 means the target sorts before
// x's payload).
func (t *Tree[P]) Find(cmp func(candidate P) int) (block.Index, error) {
	cur := t.root
	for cur != block.Nil {
		p, err := t.payload(cur)
		if err != nil {
			return block.Nil, err
		}
		c := cmp(p)
		switch {
		case c == 0:
			return cur, nil
		case c < 0:
			h, err := t.readHeader(cur)
			if err != nil {
				return block.Nil, err
			}
			cur = h.left
		default:
			h, err := t.readHeader(cur)
			if err != nil {
				return block.Nil, err
			}
			cur = h.right
		}
	}
	return block.Nil, nil
}

// Inorder walks the tree from Min to Max, calling visit(idx, payload)
// for each node in increasing order. Traversal stops early if visit
// returns false.
func (t *Tree[P]) Inorder(visit func(block.Index, P) bool) error {
	err := t.inorder(t.root, visit)
	if err == errStopIteration {
		return nil
	}
	return err
}

func (t *Tree[P]) inorder(x block.Index, visit func(block.Index, P) bool) error {
	if x == block.Nil {
		return nil
	}
	h, err := t.readHeader(x)
	if err != nil {
		return err
	}
	if err := t.inorder(h.left, visit); err != nil {
		return err
	}
	p, err := t.payload(x)
	if err != nil {
		return err
	}
	if !visit(x, p) {
		return errStopIteration
	}
	return t.inorder(h.right, visit)
}

var errStopIteration = stopIteration{}

type stopIteration struct{}

func (stopIteration) Error() string { return "iteration stopped" }
