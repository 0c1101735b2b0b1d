package sim

import "container/heap"

// scheduledEvent wraps an Event with its insertion sequence number so that
// events with identical timestamps keep their multiplicity and pop in FIFO order.
type scheduledEvent struct {
	event Event
	seq   uint64
}

// eventQueue implements heap.Interface and orders events by (Time, seq).
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type eventQueue []scheduledEvent

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].event.Time != q[j].event.Time {
		return q[i].event.Time < q[j].event.Time
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) {
	*q = append(*q, x.(scheduledEvent))
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[0 : n-1]
	return item
}

// Scheduler is the future event list. It owns every event that has been
// scheduled but not yet processed. Events are never cancelled.
type Scheduler struct {
	queue   eventQueue
	nextSeq uint64
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	s := &Scheduler{queue: make(eventQueue, 0)}
	heap.Init(&s.queue)
	return s
}

// Insert adds an event to the future event list.
func (s *Scheduler) Insert(e Event) {
	s.nextSeq++
	heap.Push(&s.queue, scheduledEvent{event: e, seq: s.nextSeq})
}

// PopMinimum removes and returns the earliest event. Among equal times the
// earliest inserted event wins. Popping an empty scheduler is a programming
// error: the network model always keeps at least one arrival pending.
func (s *Scheduler) PopMinimum() Event {
	if len(s.queue) == 0 {
		panic("Scheduler.PopMinimum: empty future event list")
	}
	return heap.Pop(&s.queue).(scheduledEvent).event
}

// Peek returns the earliest event without removing it.
func (s *Scheduler) Peek() (Event, bool) {
	if len(s.queue) == 0 {
		return Event{}, false
	}
	return s.queue[0].event, true
}

// IsEmpty reports whether no events are pending.
func (s *Scheduler) IsEmpty() bool {
	return len(s.queue) == 0
}

// Len returns the number of pending events.
func (s *Scheduler) Len() int {
	return len(s.queue)
}
