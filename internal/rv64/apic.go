package rv64

import "container/heap"

// apicEntry is one pending interrupt with its dispatch priority and
// insertion sequence (used to break priority ties in FIFO order).
type apicEntry struct {
	interrupt Interrupt
	priority  uint16
	seq       uint64
}

// apicQueue is a container/heap max-heap on (priority, then earliest
// seq), the minimal structure spec.md §9 calls for — no pack example
// ships a priority-queue library, so this uses the stdlib heap.
type apicQueue []*apicEntry

func (q apicQueue) Len() int { return len(q) }

func (q apicQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].seq < q[j].seq
}

func (q apicQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *apicQueue) Push(x interface{}) {
	*q = append(*q, x.(*apicEntry))
}

func (q *apicQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// APIC is the per-hart software-programmable interrupt controller: a
// max-priority queue of pending interrupts, ties broken by insertion
// order.
type APIC struct {
	queue apicQueue
	next  uint64
}

// NewAPIC returns an empty APIC.
func NewAPIC() *APIC {
	a := &APIC{}
	heap.Init(&a.queue)
	return a
}

// Dispatch enqueues interrupt at the given priority. The only input
// the APIC accepts, per spec.md §4.5.
func (a *APIC) Dispatch(interrupt Interrupt, priority uint16) {
	heap.Push(&a.queue, &apicEntry{interrupt: interrupt, priority: priority, seq: a.next})
	a.next++
}

// Get pops the highest-priority pending interrupt, or ok=false if the
// queue is empty.
func (a *APIC) Get() (interrupt Interrupt, ok bool) {
	if a.queue.Len() == 0 {
		return 0, false
	}
	entry := heap.Pop(&a.queue).(*apicEntry)
	return entry.interrupt, true
}

// Len reports the number of pending entries.
func (a *APIC) Len() int { return a.queue.Len() }
