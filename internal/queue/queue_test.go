package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDequeueReturnsJobsInOrder(t *testing.T) {
	t.Parallel()

	q := New(8)
	q.Enqueue("/srv/a.mp4")
	q.Enqueue("/srv/b.mp4")

	job, ok := q.Dequeue(time.Second)
	require.True(t, ok)
	require.Equal(t, "/srv/a.mp4", job.Path)
	require.False(t, job.IsShutdown())

	job, ok = q.Dequeue(time.Second)
	require.True(t, ok)
	require.Equal(t, "/srv/b.mp4", job.Path)
}

func TestDequeueTimesOutOnEmptyQueue(t *testing.T) {
	t.Parallel()

	q := New(8)
	start := time.Now()
	_, ok := q.Dequeue(20 * time.Millisecond)
	require.False(t, ok)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestShutdownSentinel(t *testing.T) {
	t.Parallel()

	q := New(8)
	q.EnqueueShutdown()

	job, ok := q.Dequeue(time.Second)
	require.True(t, ok)
	require.True(t, job.IsShutdown())
}

func TestEachJobDeliveredToExactlyOneConsumer(t *testing.T) {
	t.Parallel()

	const jobs = 100
	q := New(jobs)
	for i := 0; i < jobs; i++ {
		q.Enqueue("/srv/clip.mp4")
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	received := 0
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				_, ok := q.Dequeue(50 * time.Millisecond)
				if !ok {
					return
				}
				mu.Lock()
				received++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, jobs, received)
	require.Equal(t, 0, q.Len())
}
