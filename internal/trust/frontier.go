package trust

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/tidwall/btree"
)

// ErrUnknownFrontier is returned by ParseFrontier for unrecognised names.
var ErrUnknownFrontier = errors.New("unknown frontier")

// FrontierKind names a min-priority queue implementation for propagation.
type FrontierKind string

const (
	FrontierBTree FrontierKind = "btree"
	FrontierHeap  FrontierKind = "heap"
)

// ParseFrontier validates a frontier name. An empty name selects the default.
func ParseFrontier(name string) (FrontierKind, error) {
	switch k := FrontierKind(name); k {
	case "":
		return FrontierBTree, nil
	case FrontierBTree, FrontierHeap:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q (want %q or %q)", ErrUnknownFrontier, name, FrontierBTree, FrontierHeap)
}

// entry is a pending visit of actor reached with the given cost and hop count.
// seq records push order so that otherwise identical entries stay distinct.
type entry struct {
	cost  float64
	actor int
	hops  int
	seq   uint64
}

// entryLess orders by ascending cost. Equal costs fall back to the lower
// actor ID and then to push order, which keeps pops reproducible.
func entryLess(a, b entry) bool {
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	if a.actor != b.actor {
		return a.actor < b.actor
	}
	return a.seq < b.seq
}

// frontier is a min-priority queue of entries ordered by entryLess.
type frontier interface {
	push(e entry)
	popMin() (entry, bool)
	len() int
}

func newFrontier(kind FrontierKind) frontier {
	if kind == FrontierHeap {
		return &heapFrontier{}
	}
	return &btreeFrontier{
		tree: btree.NewBTreeGOptions(entryLess, btree.Options{NoLocks: true}),
	}
}

// btreeFrontier keeps entries in a B-tree and pops its minimum.
type btreeFrontier struct {
	tree *btree.BTreeG[entry]
}

func (f *btreeFrontier) push(e entry) { f.tree.Set(e) }

func (f *btreeFrontier) popMin() (entry, bool) { return f.tree.PopMin() }

func (f *btreeFrontier) len() int { return f.tree.Len() }

// heapFrontier is a binary heap driven by container/heap.
type heapFrontier struct {
	items entryHeap
}

func (f *heapFrontier) push(e entry) { heap.Push(&f.items, e) }

func (f *heapFrontier) popMin() (entry, bool) {
	if f.items.Len() == 0 {
		return entry{}, false
	}
	return heap.Pop(&f.items).(entry), true
}

func (f *heapFrontier) len() int { return f.items.Len() }

// entryHeap implements heap.Interface over entries.
type entryHeap []entry

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(i, j int) bool { return entryLess(h[i], h[j]) }
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(entry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
