package rbtree

import (
	"github.com/abdoElHodaky/tradSys/internal/clob/block"
	"github.com/abdoElHodaky/tradSys/internal/clob/clobserr"
)

// ValidateHint checks a caller-supplied index hint (e.g. the resting
// order index a Cancel instruction claims to know) before it is trusted
// for an O(1) lookup instead of a tree search. Index 0 is reserved to
// mean "no hint supplied" even though it is a structurally valid block
// offset, so a hint of 0 is always rejected rather than treated as the
// first dynamic-region block. A hint whose stored payload-type tag
// doesn't match want is rejected too, since that means the slot was
// freed and reused for something else since the hint was produced.
func (t *Tree[P]) ValidateHint(idx block.Index, want block.PayloadType) error {
	if idx == 0 {
		return clobserr.New(clobserr.ErrWrongIndexHint, "index hint 0 is reserved")
	}
	got, err := t.PayloadType(idx)
	if err != nil {
		return err
	}
	if got != want {
		return clobserr.New(clobserr.ErrWrongIndexHint, "index hint payload type mismatch").
			WithDetail("index", uint32(idx)).
			WithDetail("want", uint8(want)).
			WithDetail("got", uint8(got))
	}
	return nil
}
