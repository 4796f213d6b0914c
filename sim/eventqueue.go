package sim

import "container/heap"

// EventQueue is a min-priority queue of events ordered by timestamp, then by
// the fixed kind order, then by insertion sequence. See the canonical Golang
// example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type EventQueue struct {
	events  eventHeap
	nextSeq uint64
}

// NewEventQueue returns an empty queue.
func NewEventQueue() *EventQueue {
	return &EventQueue{events: make(eventHeap, 0)}
}

// Len returns the number of pending events.
func (q *EventQueue) Len() int { return len(q.events) }

// IsEmpty reports whether no events are pending.
func (q *EventQueue) IsEmpty() bool { return len(q.events) == 0 }

// Push inserts an event in O(log n), stamping it with the next insertion
// sequence number.
func (q *EventQueue) Push(ev Event) {
	ev.seq = q.nextSeq
	q.nextSeq++
	heap.Push(&q.events, ev)
}

// Peek returns the earliest-ordered pending event without removing it.
func (q *EventQueue) Peek() (Event, bool) {
	if len(q.events) == 0 {
		return Event{}, false
	}
	return q.events[0], true
}

// Pop removes and returns the earliest-ordered pending event.
func (q *EventQueue) Pop() (Event, bool) {
	if len(q.events) == 0 {
		return Event{}, false
	}
	return heap.Pop(&q.events).(Event), true
}

// eventHeap implements heap.Interface with deterministic ordering:
// timestamp, then kind priority, then insertion sequence.
type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Timestamp != h[j].Timestamp {
		return h[i].Timestamp < h[j].Timestamp
	}
	if pi, pj := kindPriority[h[i].Kind], kindPriority[h[j].Kind]; pi != pj {
		return pi < pj
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}
