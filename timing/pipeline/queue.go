package pipeline

import "github.com/sarchlab/tomasim/insts"

// InstQueue is the bounded FIFO between fetch and dispatch. Head and tail
// only grow; their difference is the number of queued instructions.
type InstQueue struct {
	entries []*insts.Instruction
	head    uint64 // Total pushes
	tail    uint64 // Total pops
}

// NewInstQueue creates an empty queue with the given capacity.
func NewInstQueue(capacity int) *InstQueue {
	return &InstQueue{entries: make([]*insts.Instruction, capacity)}
}

// Reset empties the queue.
func (q *InstQueue) Reset() {
	clear(q.entries)
	q.head = 0
	q.tail = 0
}

// Capacity returns the maximum number of queued instructions.
func (q *InstQueue) Capacity() int {
	return len(q.entries)
}

// Len returns the number of queued instructions.
func (q *InstQueue) Len() int {
	return int(q.head - q.tail)
}

// Empty returns true if nothing is queued.
func (q *InstQueue) Empty() bool {
	return q.head == q.tail
}

// Full returns true if no more instructions fit.
func (q *InstQueue) Full() bool {
	return q.Len() >= len(q.entries)
}

// Push appends inst. It returns false if the queue is full.
func (q *InstQueue) Push(inst *insts.Instruction) bool {
	if q.Full() {
		return false
	}

	q.entries[q.head%uint64(len(q.entries))] = inst
	q.head++
	return true
}

// Peek returns the oldest queued instruction, or nil.
func (q *InstQueue) Peek() *insts.Instruction {
	if q.Empty() {
		return nil
	}
	return q.entries[q.tail%uint64(len(q.entries))]
}

// Pop removes and returns the oldest queued instruction, or nil.
func (q *InstQueue) Pop() *insts.Instruction {
	inst := q.Peek()
	if inst == nil {
		return nil
	}

	q.entries[q.tail%uint64(len(q.entries))] = nil
	q.tail++
	return inst
}
