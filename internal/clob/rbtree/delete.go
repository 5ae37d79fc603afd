package rbtree

import "github.com/abdoElHodaky/tradSys/internal/clob/block"

// Remove deletes the node at idx from the tree. The caller remains
// responsible for freeing idx back to the arena afterward; this method
// only unlinks it and repairs red-black balance.
func (t *Tree[P]) Remove(idx block.Index) error {
	wasMax := idx == t.maxNode

	zh, err := t.readHeader(idx)
	if err != nil {
		return err
	}

	y := idx
	yOriginalColor := zh.color
	var x, xParent block.Index

	switch {
	case zh.left == block.Nil:
		x = zh.right
		xParent = zh.parent
		if err := t.transplant(idx, zh.right); err != nil {
			return err
		}
	case zh.right == block.Nil:
		x = zh.left
		xParent = zh.parent
		if err := t.transplant(idx, zh.left); err != nil {
			return err
		}
	default:
		y, err = t.minFrom(zh.right)
		if err != nil {
			return err
		}
		yh, err := t.readHeader(y)
		if err != nil {
			return err
		}
		yOriginalColor = yh.color
		x = yh.right

		if yh.parent == idx {
			xParent = y
		} else {
			xParent = yh.parent
			if err := t.transplant(y, yh.right); err != nil {
				return err
			}
			yh, err = t.readHeader(y)
			if err != nil {
				return err
			}
			yh.right = zh.right
			if err := t.writeHeader(y, yh); err != nil {
				return err
			}
			rh, err := t.readHeader(zh.right)
			if err != nil {
				return err
			}
			rh.parent = y
			if err := t.writeHeader(zh.right, rh); err != nil {
				return err
			}
		}

		if err := t.transplant(idx, y); err != nil {
			return err
		}
		yh, err = t.readHeader(y)
		if err != nil {
			return err
		}
		yh.left = zh.left
		yh.color = zh.color
		if err := t.writeHeader(y, yh); err != nil {
			return err
		}
		lh, err := t.readHeader(zh.left)
		if err != nil {
			return err
		}
		lh.parent = y
		if err := t.writeHeader(zh.left, lh); err != nil {
			return err
		}
	}

	if yOriginalColor == black {
		if err := t.deleteFixup(x, xParent); err != nil {
			return err
		}
	}

	if wasMax {
		newMax, err := t.maxFrom(t.root)
		if err != nil {
			return err
		}
		t.maxNode = newMax
	}
	return nil
}

// transplant replaces the subtree rooted at u with the subtree rooted
// at v, fixing up u's parent's child pointer (or the tree root) and
// v's parent pointer. v may be block.Nil.
func (t *Tree[P]) transplant(u, v block.Index) error {
	uh, err := t.readHeader(u)
	if err != nil {
		return err
	}
	if uh.parent == block.Nil {
		t.root = v
	} else {
		ph, err := t.readHeader(uh.parent)
		if err != nil {
			return err
		}
		if ph.left == u {
			ph.left = v
		} else {
			ph.right = v
		}
		if err := t.writeHeader(uh.parent, ph); err != nil {
			return err
		}
	}
	if v != block.Nil {
		vh, err := t.readHeader(v)
		if err != nil {
			return err
		}
		vh.parent = uh.parent
		if err := t.writeHeader(v, vh); err != nil {
			return err
		}
	}
	return nil
}

// colorOf treats an absent (block.Nil) child as black, matching the
// conventional red-black sentinel without needing to materialize one.
func (t *Tree[P]) colorOf(idx block.Index) (color, error) {
	if idx == block.Nil {
		return black, nil
	}
	h, err := t.readHeader(idx)
	if err != nil {
		return black, err
	}
	return h.color, nil
}

func (t *Tree[P]) deleteFixup(x, xParent block.Index) error {
	for x != t.root {
		c, err := t.colorOf(x)
		if err != nil {
			return err
		}
		if c == red {
			break
		}
		ph, err := t.readHeader(xParent)
		if err != nil {
			return err
		}
		if x == ph.left {
			w := ph.right
			wh, err := t.readHeader(w)
			if err != nil {
				return err
			}
			if wh.color == red {
				wh.color = black
				if err := t.writeHeader(w, wh); err != nil {
					return err
				}
				if err := t.setColor(xParent, red); err != nil {
					return err
				}
				if err := t.rotateLeft(xParent); err != nil {
					return err
				}
				ph, err = t.readHeader(xParent)
				if err != nil {
					return err
				}
				w = ph.right
				wh, err = t.readHeader(w)
				if err != nil {
					return err
				}
			}
			lc, err := t.colorOf(wh.left)
			if err != nil {
				return err
			}
			rc, err := t.colorOf(wh.right)
			if err != nil {
				return err
			}
			if lc == black && rc == black {
				if err := t.setColor(w, red); err != nil {
					return err
				}
				x = xParent
				xParent, err = t.parentOf(x)
				if err != nil {
					return err
				}
				continue
			}
			if rc == black {
				if wh.left != block.Nil {
					if err := t.setColor(wh.left, black); err != nil {
						return err
					}
				}
				if err := t.setColor(w, red); err != nil {
					return err
				}
				if err := t.rotateRight(w); err != nil {
					return err
				}
				ph, err = t.readHeader(xParent)
				if err != nil {
					return err
				}
				w = ph.right
				wh, err = t.readHeader(w)
				if err != nil {
					return err
				}
			}
			phColor, err := t.colorOf(xParent)
			if err != nil {
				return err
			}
			if err := t.setColor(w, phColor); err != nil {
				return err
			}
			if err := t.setColor(xParent, black); err != nil {
				return err
			}
			if wh.right != block.Nil {
				if err := t.setColor(wh.right, black); err != nil {
					return err
				}
			}
			if err := t.rotateLeft(xParent); err != nil {
				return err
			}
			x = t.root
			break
		} else {
			w := ph.left
			wh, err := t.readHeader(w)
			if err != nil {
				return err
			}
			if wh.color == red {
				wh.color = black
				if err := t.writeHeader(w, wh); err != nil {
					return err
				}
				if err := t.setColor(xParent, red); err != nil {
					return err
				}
				if err := t.rotateRight(xParent); err != nil {
					return err
				}
				ph, err = t.readHeader(xParent)
				if err != nil {
					return err
				}
				w = ph.left
				wh, err = t.readHeader(w)
				if err != nil {
					return err
				}
			}
			lc, err := t.colorOf(wh.left)
			if err != nil {
				return err
			}
			rc, err := t.colorOf(wh.right)
			if err != nil {
				return err
			}
			if rc == black && lc == black {
				if err := t.setColor(w, red); err != nil {
					return err
				}
				x = xParent
				xParent, err = t.parentOf(x)
				if err != nil {
					return err
				}
				continue
			}
			if lc == black {
				if wh.right != block.Nil {
					if err := t.setColor(wh.right, black); err != nil {
						return err
					}
				}
				if err := t.setColor(w, red); err != nil {
					return err
				}
				if err := t.rotateLeft(w); err != nil {
					return err
				}
				ph, err = t.readHeader(xParent)
				if err != nil {
					return err
				}
				w = ph.left
				wh, err = t.readHeader(w)
				if err != nil {
					return err
				}
			}
			phColor, err := t.colorOf(xParent)
			if err != nil {
				return err
			}
			if err := t.setColor(w, phColor); err != nil {
				return err
			}
			if err := t.setColor(xParent, black); err != nil {
				return err
			}
			if wh.left != block.Nil {
				if err := t.setColor(wh.left, black); err != nil {
					return err
				}
			}
			if err := t.rotateRight(xParent); err != nil {
				return err
			}
			x = t.root
			break
		}
	}
	if x != block.Nil {
		return t.setColor(x, black)
	}
	return nil
}

func (t *Tree[P]) parentOf(idx block.Index) (block.Index, error) {
	if idx == block.Nil {
		return block.Nil, nil
	}
	h, err := t.readHeader(idx)
	if err != nil {
		return block.Nil, err
	}
	return h.parent, nil
}
