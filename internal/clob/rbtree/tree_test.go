package rbtree_test

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/tradSys/internal/clob/arena"
	"github.com/abdoElHodaky/tradSys/internal/clob/block"
	"github.com/abdoElHodaky/tradSys/internal/clob/rbtree"
)

// intPayload is a minimal rbtree.Payload used only to exercise the tree
// in isolation from the market's RestingOrder/Seat types.
type intPayload struct {
	key uint64
	seq uint64
}

func (p intPayload) Less(other intPayload) bool {
	if p.key != other.key {
		return p.key < other.key
	}
	return p.seq < other.seq
}

func (p intPayload) PayloadType() block.PayloadType { return block.PayloadRestingOrder }

func (p intPayload) Encode() [64]byte {
	var b [64]byte
	binary.LittleEndian.PutUint64(b[0:8], p.key)
	binary.LittleEndian.PutUint64(b[8:16], p.seq)
	return b
}

func decodeIntPayload(b [64]byte) intPayload {
	return intPayload{
		key: binary.LittleEndian.Uint64(b[0:8]),
		seq: binary.LittleEndian.Uint64(b[8:16]),
	}
}

func newTestTree(t *testing.T) (*arena.Arena, *rbtree.Tree[intPayload]) {
	t.Helper()
	a := arena.NewEmpty()
	tr := rbtree.New[intPayload](a, block.Nil, decodeIntPayload)
	return a, tr
}

func allocate(t *testing.T, a *arena.Arena) block.Index {
	t.Helper()
	idx, err := a.Allocate()
	require.NoError(t, err)
	if idx == block.Nil {
		idx = a.GrowByOneBlock()
		var err2 error
		idx, err2 = a.Allocate()
		require.NoError(t, err2)
	}
	return idx
}

func TestInsertMinMax(t *testing.T) {
	a, tr := newTestTree(t)

	keys := []uint64{50, 30, 70, 20, 40, 60, 80, 10, 90}
	for i, k := range keys {
		idx := allocate(t, a)
		require.NoError(t, tr.Insert(idx, intPayload{key: k, seq: uint64(i)}))
	}

	minIdx, err := tr.Min()
	require.NoError(t, err)
	minP, err := tr.Payload(minIdx)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), minP.key)

	maxIdx, err := tr.Max()
	require.NoError(t, err)
	maxP, err := tr.Payload(maxIdx)
	require.NoError(t, err)
	assert.Equal(t, uint64(90), maxP.key)

	assert.Equal(t, len(keys), tr.Len())
}

func TestInorderIsSorted(t *testing.T) {
	a, tr := newTestTree(t)

	keys := []uint64{5, 3, 8, 1, 4, 7, 9, 2, 6}
	for i, k := range keys {
		idx := allocate(t, a)
		require.NoError(t, tr.Insert(idx, intPayload{key: k, seq: uint64(i)}))
	}

	var got []uint64
	err := tr.Inorder(func(_ block.Index, p intPayload) bool {
		got = append(got, p.key)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestInorderEarlyStop(t *testing.T) {
	a, tr := newTestTree(t)

	for i, k := range []uint64{1, 2, 3, 4, 5} {
		idx := allocate(t, a)
		require.NoError(t, tr.Insert(idx, intPayload{key: k, seq: uint64(i)}))
	}

	var visited int
	err := tr.Inorder(func(_ block.Index, p intPayload) bool {
		visited++
		return p.key < 3
	})
	require.NoError(t, err)
	assert.Equal(t, 3, visited)
}

func TestSuccessorPredecessorRoundTrip(t *testing.T) {
	a, tr := newTestTree(t)

	var indices []block.Index
	for i, k := range []uint64{4, 2, 6, 1, 3, 5, 7} {
		idx := allocate(t, a)
		require.NoError(t, tr.Insert(idx, intPayload{key: k, seq: uint64(i)}))
		indices = append(indices, idx)
	}

	minIdx, err := tr.Min()
	require.NoError(t, err)

	var forward []uint64
	cur := minIdx
	for cur != block.Nil {
		p, err := tr.Payload(cur)
		require.NoError(t, err)
		forward = append(forward, p.key)
		cur, err = tr.Successor(cur)
		require.NoError(t, err)
	}
	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7}, forward)

	maxIdx, err := tr.Max()
	require.NoError(t, err)

	var backward []uint64
	cur = maxIdx
	for cur != block.Nil {
		p, err := tr.Payload(cur)
		require.NoError(t, err)
		backward = append(backward, p.key)
		cur, err = tr.Predecessor(cur)
		require.NoError(t, err)
	}
	assert.Equal(t, []uint64{7, 6, 5, 4, 3, 2, 1}, backward)
}

func TestRemoveLeafAndInternal(t *testing.T) {
	a, tr := newTestTree(t)

	indexByKey := map[uint64]block.Index{}
	for i, k := range []uint64{50, 30, 70, 20, 40, 60, 80} {
		idx := allocate(t, a)
		require.NoError(t, tr.Insert(idx, intPayload{key: k, seq: uint64(i)}))
		indexByKey[k] = idx
	}

	require.NoError(t, tr.Remove(indexByKey[20]))
	require.NoError(t, tr.Remove(indexByKey[70]))

	var got []uint64
	err := tr.Inorder(func(_ block.Index, p intPayload) bool {
		got = append(got, p.key)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{30, 40, 50, 60, 80}, got)
	assert.Equal(t, 5, tr.Len())
}

func TestRemoveUpdatesMax(t *testing.T) {
	a, tr := newTestTree(t)

	indexByKey := map[uint64]block.Index{}
	for i, k := range []uint64{10, 20, 30} {
		idx := allocate(t, a)
		require.NoError(t, tr.Insert(idx, intPayload{key: k, seq: uint64(i)}))
		indexByKey[k] = idx
	}

	require.NoError(t, tr.Remove(indexByKey[30]))

	maxIdx, err := tr.Max()
	require.NoError(t, err)
	maxP, err := tr.Payload(maxIdx)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), maxP.key)
}

func TestRemoveAllThenReinsert(t *testing.T) {
	a, tr := newTestTree(t)

	var indices []block.Index
	for i, k := range []uint64{15, 5, 25, 1, 10, 20, 30} {
		idx := allocate(t, a)
		require.NoError(t, tr.Insert(idx, intPayload{key: k, seq: uint64(i)}))
		indices = append(indices, idx)
	}

	for _, idx := range indices {
		require.NoError(t, tr.Remove(idx))
	}
	assert.Equal(t, block.Nil, tr.Root())
	assert.Equal(t, 0, tr.Len())

	idx := allocate(t, a)
	require.NoError(t, tr.Insert(idx, intPayload{key: 99, seq: 0}))
	minIdx, err := tr.Min()
	require.NoError(t, err)
	assert.Equal(t, idx, minIdx)
}

func TestRandomizedInsertRemoveStaysSorted(t *testing.T) {
	a, tr := newTestTree(t)
	rng := rand.New(rand.NewSource(1))

	var live []block.Index
	for i := 0; i < 200; i++ {
		idx := allocate(t, a)
		require.NoError(t, tr.Insert(idx, intPayload{key: uint64(rng.Intn(1000)), seq: uint64(i)}))
		live = append(live, idx)

		if len(live) > 0 && rng.Intn(3) == 0 {
			j := rng.Intn(len(live))
			require.NoError(t, tr.Remove(live[j]))
			live = append(live[:j], live[j+1:]...)
		}
	}

	var prev intPayload
	first := true
	err := tr.Inorder(func(_ block.Index, p intPayload) bool {
		if !first {
			assert.False(t, p.Less(prev), "inorder traversal produced a decreasing pair")
		}
		prev = p
		first = false
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, len(live), tr.Len())
}

func TestFind(t *testing.T) {
	a, tr := newTestTree(t)

	for i, k := range []uint64{10, 20, 30, 40, 50} {
		idx := allocate(t, a)
		require.NoError(t, tr.Insert(idx, intPayload{key: k, seq: uint64(i)}))
	}

	found, err := tr.Find(func(p intPayload) int {
		switch {
		case p.key < 30:
			return 1
		case p.key > 30:
			return -1
		default:
			return 0
		}
	})
	require.NoError(t, err)
	require.NotEqual(t, block.Nil, found)
	p, err := tr.Payload(found)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), p.key)

	notFound, err := tr.Find(func(p intPayload) int {
		switch {
		case p.key < 35:
			return 1
		case p.key > 35:
			return -1
		default:
			return 0
		}
	})
	require.NoError(t, err)
	assert.Equal(t, block.Nil, notFound)
}

func TestValidateHint(t *testing.T) {
	a, tr := newTestTree(t)

	// The very first arena allocation lands at index 0, which is
	// reserved to mean "no hint"; burn it on an untracked block so the
	// node under test gets a nonzero index.
	_ = allocate(t, a)

	idx := allocate(t, a)
	require.NotEqual(t, block.Index(0), idx)
	require.NoError(t, tr.Insert(idx, intPayload{key: 1, seq: 0}))

	assert.NoError(t, tr.ValidateHint(idx, block.PayloadRestingOrder))
	assert.Error(t, tr.ValidateHint(idx, block.PayloadSeat))
	assert.Error(t, tr.ValidateHint(block.Index(0), block.PayloadRestingOrder))
}
