package upload

import (
	"context"
	"sync"

	"blogserver/internal/logging"
)

// Remover deletes a stored file by name.
type Remover interface {
	Remove(name string) error
}

// Cleaner removes superseded uploads in the background. Failures are logged
// and never reach the request that triggered them.
type Cleaner struct {
	remover Remover
	logger  logging.Logger
	queue   chan cleanupJob

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

type cleanupJob struct {
	ctx  context.Context
	name string
}

// NewCleaner starts a worker draining a queue of the given capacity.
func NewCleaner(remover Remover, logger logging.Logger, capacity int) *Cleaner {
	if capacity < 1 {
		capacity = 1
	}
	c := &Cleaner{
		remover: remover,
		logger:  logger.With("component", "upload-cleaner"),
		queue:   make(chan cleanupJob, capacity),
	}
	c.wg.Add(1)
	go c.worker()
	return c
}

func (c *Cleaner) worker() {
	defer c.wg.Done()
	for job := range c.queue {
		c.remove(job)
	}
}

// Discard schedules name for removal. When the queue is full, or the cleaner
// has been closed, the file is removed synchronously instead.
func (c *Cleaner) Discard(ctx context.Context, name string) {
	if name == "" {
		return
	}
	// Detach from request cancellation but keep values such as the request id.
	job := cleanupJob{ctx: context.WithoutCancel(ctx), name: name}

	c.mu.RLock()
	if !c.closed {
		select {
		case c.queue <- job:
			c.mu.RUnlock()
			return
		default:
		}
	}
	c.mu.RUnlock()

	c.remove(job)
}

func (c *Cleaner) remove(job cleanupJob) {
	if err := c.remover.Remove(job.name); err != nil {
		c.logger.Error(job.ctx, "discard upload failed", "file", job.name, "error", err)
		return
	}
	c.logger.Debug(job.ctx, "upload discarded", "file", job.name)
}

// Close stops accepting jobs and waits for queued removals to finish.
func (c *Cleaner) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.queue)
	c.mu.Unlock()

	c.wg.Wait()
}
