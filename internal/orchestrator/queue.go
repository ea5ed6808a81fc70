package orchestrator

import "container/heap"

// Priority tiers for queued requests. Lower values dispatch first; within a
// tier, arrival order holds.
const (
	PriorityHigh   = 0
	PriorityNormal = 1
	PriorityLow    = 2
)

// requestQueue is a heap of pending invocations ordered by (priority, seq).
// The sequence number is assigned at enqueue time, so equal-priority
// requests come out strictly FIFO.
type requestQueue []*pending

func (q requestQueue) Len() int { return len(q) }

func (q requestQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority < q[j].priority
	}
	return q[i].seq < q[j].seq
}

func (q requestQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *requestQueue) Push(x interface{}) {
	p := x.(*pending)
	p.index = len(*q)
	*q = append(*q, p)
}

func (q *requestQueue) Pop() interface{} {
	old := *q
	n := len(old)
	p := old[n-1]
	old[n-1] = nil
	p.index = -1
	*q = old[:n-1]
	return p
}

// remove takes one pending out of the heap by its tracked index.
func (q *requestQueue) remove(p *pending) bool {
	if p.index < 0 || p.index >= len(*q) || (*q)[p.index] != p {
		return false
	}
	heap.Remove(q, p.index)
	return true
}
