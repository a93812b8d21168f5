// Package queue carries transcription jobs from the scanner and the watcher
// to the worker pool.
package queue

import "time"

// Job names one media file to transcribe, or tells a single worker to stop.
type Job struct {
	Path     string
	shutdown bool
}

func (j Job) IsShutdown() bool {
	return j.shutdown
}

// Queue is a FIFO channel shared by multiple producers and consumers; each
// job is delivered to exactly one consumer.
type Queue struct {
	jobs chan Job
}

func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{jobs: make(chan Job, capacity)}
}

func (q *Queue) Enqueue(mediaPath string) {
	q.jobs <- Job{Path: mediaPath}
}

// EnqueueShutdown queues one stop sentinel. Callers push exactly one per
// worker; a worker consuming a sentinel exits and never steals another.
func (q *Queue) EnqueueShutdown() {
	q.jobs <- Job{shutdown: true}
}

// Dequeue blocks up to timeout for the next job. The second return value is
// false on timeout, which is an idle tick rather than an error; it lets
// workers wake up periodically instead of blocking forever.
func (q *Queue) Dequeue(timeout time.Duration) (Job, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case job := <-q.jobs:
		return job, true
	case <-timer.C:
		return Job{}, false
	}
}

func (q *Queue) Len() int {
	return len(q.jobs)
}
