package onevpl

import "sync"

// OperationQueue keeps submitted operations in submission order and bounds
// how many are outstanding. It is safe for concurrent use.
type OperationQueue struct {
	mu    sync.Mutex
	ops   []*Operation
	depth int
}

// NewOperationQueue creates a queue holding at most depth operations. A
// depth below one is treated as one.
func NewOperationQueue(depth int) *OperationQueue {
	if depth < 1 {
		depth = 1
	}
	return &OperationQueue{depth: depth, ops: make([]*Operation, 0, depth)}
}

// Push appends op. When the queue is already full the oldest operation is
// removed and returned; the caller must synchronize it before submitting
// more work.
func (q *OperationQueue) Push(op *Operation) *Operation {
	q.mu.Lock()
	defer q.mu.Unlock()
	var oldest *Operation
	if len(q.ops) >= q.depth {
		oldest = q.ops[0]
		q.ops = q.ops[1:]
	}
	q.ops = append(q.ops, op)
	return oldest
}

// Pop removes and returns the oldest operation, or nil when empty.
func (q *OperationQueue) Pop() *Operation {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ops) == 0 {
		return nil
	}
	op := q.ops[0]
	q.ops[0] = nil
	q.ops = q.ops[1:]
	return op
}

// Len returns the number of queued operations.
func (q *OperationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Full reports whether the next Push hands back an operation.
func (q *OperationQueue) Full() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops) >= q.depth
}

// Depth returns the queue bound.
func (q *OperationQueue) Depth() int { return q.depth }
