package store

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sverrirab/generic-rest/internal/record"
)

// opKind distinguishes mutation kinds.
type opKind int

const (
	opCreate opKind = iota + 1
	opUpdate
	opDelete
)

func (k opKind) String() string {
	switch k {
	case opCreate:
		return "create"
	case opUpdate:
		return "update"
	case opDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Claim states of a mutation. Exactly one of the writer (running) or the
// submitting caller (cancelled) wins the transition from pending.
const (
	statePending int32 = iota
	stateRunning
	stateCancelled
)

// mutation is one queued write.
type mutation struct {
	op     opKind
	id     string
	rec    record.Record
	strict bool

	state atomic.Int32
	reply chan mutationResult // buffered, size 1
}

type mutationResult struct {
	id  string
	err error
}

func newMutation(op opKind, id string, rec record.Record, strict bool) *mutation {
	return &mutation{
		op:     op,
		id:     id,
		rec:    rec,
		strict: strict,
		reply:  make(chan mutationResult, 1),
	}
}

// wait blocks until the writer answers or ctx is done. A cancelled caller
// only gives up if the writer has not started on the mutation yet;
// otherwise it waits for the real outcome.
func (m *mutation) wait(ctx context.Context) (string, error) {
	select {
	case res := <-m.reply:
		return res.id, res.err
	case <-ctx.Done():
		if m.state.CompareAndSwap(statePending, stateCancelled) {
			return "", ctx.Err()
		}
		res := <-m.reply
		return res.id, res.err
	}
}

// mutationQueue is a thread-safe unbounded FIFO of pending mutations.
//
// HTTP handlers enqueue from many goroutines; Store.Run is the only
// consumer. A buffered signal channel lets the consumer wait without
// blocking on the mutex.
type mutationQueue struct {
	mu     sync.Mutex
	items  []*mutation
	closed bool
	signal chan struct{} // buffered, size 1
}

func newMutationQueue() *mutationQueue {
	return &mutationQueue{
		items:  make([]*mutation, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds m to the back of the queue.
// Returns false if the queue is closed.
func (q *mutationQueue) Enqueue(m *mutation) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, m)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front mutation without blocking.
func (q *mutationQueue) TryDequeue() (*mutation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	m := q.items[0]
	q.items[0] = nil // release for GC
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return m, true
}

// Wait returns a channel that signals when mutations may be available.
// The channel is closed when the queue is closed.
func (q *mutationQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending mutations.
func (q *mutationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close has been called.
func (q *mutationQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops accepting mutations and returns the ones still pending.
func (q *mutationQueue) Close() []*mutation {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.signal)

	rest := q.items
	q.items = nil
	return rest
}
