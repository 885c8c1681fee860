// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package huffman builds a prefix code from a frequency table and uses it to
// pack symbols into bits and back.
//
// The tree is a pure function of the table: the decoder rebuilds exactly the
// encoder's tree from the counts stored in an archive header, so the tree
// itself is never serialized.
package huffman

import (
	"container/heap"
	"errors"

	"github.com/elliotnunn/huffdir/internal/freq"
)

var ErrEmptyTable = errors.New("huffman: empty frequency table")

// Tree is an immutable arena of nodes addressed by index.
// Leaves occupy indices 0..n-1 in ascending symbol order,
// internal nodes follow in order of creation, and the root is last.
type Tree struct {
	nodes []node
}

type node struct {
	zero, one int32 // -1 in a leaf
	sym       freq.Symbol
	weight    uint64
}

// Build constructs the tree by repeatedly merging the two lightest nodes.
// Equal weights are ordered by arena index, so ties break the same way on every run.
func Build(t freq.Table) (*Tree, error) {
	syms := t.Symbols()
	if len(syms) == 0 {
		return nil, ErrEmptyTable
	}

	tr := &Tree{nodes: make([]node, 0, 2*len(syms)-1)}
	h := &nodeHeap{tree: tr, idx: make([]int32, 0, len(syms))}
	for _, s := range syms {
		tr.nodes = append(tr.nodes, node{zero: -1, one: -1, sym: s, weight: t[s]})
		h.idx = append(h.idx, int32(len(tr.nodes)-1))
	}
	heap.Init(h)

	for h.Len() > 1 {
		left := heap.Pop(h).(int32)
		right := heap.Pop(h).(int32)
		tr.nodes = append(tr.nodes, node{
			zero:   left,
			one:    right,
			weight: tr.nodes[left].weight + tr.nodes[right].weight,
		})
		heap.Push(h, int32(len(tr.nodes)-1))
	}
	return tr, nil
}

func (t *Tree) Root() int32 {
	return int32(len(t.nodes) - 1)
}

func (t *Tree) Len() int {
	return len(t.nodes)
}

func (t *Tree) IsLeaf(i int32) bool {
	return t.nodes[i].zero < 0
}

// Child returns the left child for bit 0 and the right child for bit 1.
func (t *Tree) Child(i int32, bit bool) int32 {
	n := &t.nodes[i]
	if n.zero < 0 {
		panic("huffman: Child of a leaf")
	}
	if bit {
		return n.one
	}
	return n.zero
}

func (t *Tree) Symbol(i int32) freq.Symbol {
	return t.nodes[i].sym
}

func (t *Tree) Weight(i int32) uint64 {
	return t.nodes[i].weight
}

// Min-heap of arena indices keyed by (weight, index)
type nodeHeap struct {
	tree *Tree
	idx  []int32
}

func (h *nodeHeap) Len() int { return len(h.idx) }
func (h *nodeHeap) Less(i, j int) bool {
	a, b := h.idx[i], h.idx[j]
	wa, wb := h.tree.nodes[a].weight, h.tree.nodes[b].weight
	if wa != wb {
		return wa < wb
	}
	return a < b
}
func (h *nodeHeap) Swap(i, j int) { h.idx[i], h.idx[j] = h.idx[j], h.idx[i] }
func (h *nodeHeap) Push(x any)    { h.idx = append(h.idx, x.(int32)) }
func (h *nodeHeap) Pop() any {
	n := len(h.idx)
	x := h.idx[n-1]
	h.idx = h.idx[:n-1]
	return x
}
