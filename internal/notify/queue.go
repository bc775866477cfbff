package notify

import (
	"log"
	"sync"
)

// Job identifies a stored message whose channel members should be
// notified.
type Job struct {
	MessageID uint64
	ChannelID uint64
	SenderID  uint64
}

// Handler processes one dispatch job. Handler failures are the
// handler's own concern; the queue only logs them.
type Handler func(Job) error

// Queue is the deferred execution primitive behind notification
// fan-out: jobs are enqueued after the triggering mutation commits and
// consumed by a single worker goroutine. Enqueue never blocks the
// caller and a job failure never propagates back to the send path.
type Queue struct {
	jobs      chan Job
	handler   Handler
	mu        sync.Mutex
	stopped   bool
	producers sync.WaitGroup
	worker    sync.WaitGroup
}

// NewQueue creates a Queue with the given buffer size.
func NewQueue(buffer int, handler Handler) *Queue {
	if buffer < 1 {
		buffer = 1
	}
	return &Queue{
		jobs:    make(chan Job, buffer),
		handler: handler,
	}
}

// Start launches the worker goroutine.
func (q *Queue) Start() {
	q.worker.Add(1)
	go func() {
		defer q.worker.Done()
		for job := range q.jobs {
			if err := q.handler(job); err != nil {
				log.Printf("notification dispatch failed for message %d: %v", job.MessageID, err)
			}
		}
	}()
}

// Enqueue schedules a job. When the buffer is full the handoff moves
// to a goroutine so the send path is never blocked. Jobs arriving
// after Stop are dropped rather than sent on the closed channel.
func (q *Queue) Enqueue(job Job) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		log.Printf("notification queue stopped, dropping dispatch for message %d", job.MessageID)
		return
	}
	select {
	case q.jobs <- job:
		q.mu.Unlock()
	default:
		q.producers.Add(1)
		q.mu.Unlock()
		go func() {
			defer q.producers.Done()
			q.jobs <- job
		}()
	}
}

// Stop waits for pending producers, closes the queue, and waits for
// in-flight jobs to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	alreadyStopped := q.stopped
	q.stopped = true
	q.mu.Unlock()

	if !alreadyStopped {
		q.producers.Wait()
		close(q.jobs)
	}
	q.worker.Wait()
}
