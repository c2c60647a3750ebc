package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutationQueue_FIFO(t *testing.T) {
	q := newMutationQueue()

	for _, id := range []string{"a", "b", "c"} {
		require.True(t, q.Enqueue(newMutation(opDelete, id, nil, false)))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"a", "b", "c"} {
		m, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, m.id)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestMutationQueue_SignalCoalesces(t *testing.T) {
	q := newMutationQueue()
	q.Enqueue(newMutation(opDelete, "a", nil, false))
	q.Enqueue(newMutation(opDelete, "b", nil, false))

	select {
	case <-q.Wait():
	default:
		t.Fatal("expected a pending signal")
	}

	select {
	case <-q.Wait():
		t.Fatal("signals should coalesce into one")
	default:
	}
}

func TestMutationQueue_CloseReturnsPending(t *testing.T) {
	q := newMutationQueue()
	q.Enqueue(newMutation(opDelete, "a", nil, false))

	rest := q.Close()
	require.Len(t, rest, 1)
	assert.True(t, q.Closed())
	assert.Equal(t, 0, q.Len())

	assert.False(t, q.Enqueue(newMutation(opDelete, "b", nil, false)))
	assert.Nil(t, q.Close(), "second Close returns nothing")

	_, open := <-q.Wait()
	assert.False(t, open, "signal channel is closed")
}

func TestMutationQueue_ConcurrentEnqueue(t *testing.T) {
	q := newMutationQueue()
	const producers, each = 10, 100

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				q.Enqueue(newMutation(opDelete, "x", nil, false))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, producers*each, q.Len())
}

func TestMutation_WaitReturnsReply(t *testing.T) {
	m := newMutation(opCreate, "", nil, false)
	m.reply <- mutationResult{id: "BBBBBB"}

	id, err := m.wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BBBBBB", id)
}

func TestMutation_CancelWhilePending(t *testing.T) {
	m := newMutation(opCreate, "", nil, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, stateCancelled, m.state.Load())

	// The writer must now skip it.
	assert.False(t, m.state.CompareAndSwap(statePending, stateRunning))
}

func TestMutation_CancelAfterClaimWaitsForResult(t *testing.T) {
	m := newMutation(opCreate, "", nil, false)
	require.True(t, m.state.CompareAndSwap(statePending, stateRunning))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	go func() {
		time.Sleep(10 * time.Millisecond)
		m.reply <- mutationResult{id: "BBBBBB"}
	}()

	id, err := m.wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "BBBBBB", id)
}
