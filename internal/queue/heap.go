package queue

import (
	"container/heap"

	"github.com/flowkit/engine/internal/types"
)

// readyHeap is a min-heap of ready tasks ordered by (priority ascending,
// insertion-sequence ascending) — lower priority number dispatches first,
// ties broken by arrival order (§4.4).
type readyHeap []*types.Task

func (h readyHeap) Len() int { return len(h) }
func (h readyHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].Seq() < h[j].Seq()
}
func (h readyHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *readyHeap) Push(x interface{}) {
	*h = append(*h, x.(*types.Task))
}

func (h *readyHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

var _ heap.Interface = (*readyHeap)(nil)
