package outbox

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"sync"
	"time"
)

var (
	defaultNumWorkers  uint = 3
	defaultQueueSize   uint = 256
	defaultTaskTimeout      = 2 * time.Minute
)

// Config is the configuration options for the worker pool.
type Config struct {
	// Journal records tasks until they succeed.
	Journal Journal

	// Handler runs each task.
	Handler Handler

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of each worker's buffered queue.
	QueueSize uint

	// TaskTimeout bounds a single handler call.
	TaskTimeout time.Duration

	Logger *slog.Logger
}

// Pool processes tasks asynchronously. Tasks for the same project always go
// to the same worker, so they run one at a time and in order.
type Pool struct {
	config *Config
	queues []chan Task
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool

	// inflight counts tasks accepted but not yet resolved.
	inflight sync.WaitGroup
}

// NewPool creates a pool and starts its workers.
func NewPool(c *Config) (*Pool, error) {
	if c.Journal == nil {
		return nil, fmt.Errorf("journal is required")
	}
	if c.Handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.TaskTimeout == 0 {
		c.TaskTimeout = defaultTaskTimeout
	}
	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	p := &Pool{
		config: c,
		queues: make([]chan Task, c.NumWorkers),
		logger: c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		p.queues[i] = make(chan Task, c.QueueSize)
		go p.worker(i)
	}

	return p, nil
}

// Enqueue journals t and hands it to a worker. The returned bool reports
// whether a worker received it; false means the queue was full and the task
// waits in the journal for the next replay. An error means the task could
// not be journaled.
func (p *Pool) Enqueue(ctx context.Context, t Task) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false, ErrClosed
	}

	if err := p.config.Journal.Put(ctx, t); err != nil {
		return false, fmt.Errorf("journaling task: %w", err)
	}

	p.inflight.Add(1)
	select {
	case p.queue(t.ProjectID) <- t:
		p.logger.Debug("task queued",
			"task_id", t.ID,
			"project_id", t.ProjectID,
			"op", t.Op,
		)
		return true, nil
	default:
		p.inflight.Done()
		p.logger.Warn("task not queued, queue full, left pending",
			"task_id", t.ID,
			"project_id", t.ProjectID,
		)
		return false, nil
	}
}

// Replay hands every journaled task to the workers, blocking while queues
// are full. It returns the number of tasks replayed.
func (p *Pool) Replay(ctx context.Context) (int, error) {
	tasks, err := p.config.Journal.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing pending tasks: %w", err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return 0, ErrClosed
	}

	for i, t := range tasks {
		p.inflight.Add(1)
		select {
		case p.queue(t.ProjectID) <- t:
		case <-ctx.Done():
			p.inflight.Done()
			return i, ctx.Err()
		}
	}

	if len(tasks) > 0 {
		p.logger.Info("replaying pending sync tasks", "count", len(tasks))
	}
	return len(tasks), nil
}

// Wait blocks until every accepted task has been resolved.
func (p *Pool) Wait() {
	p.inflight.Wait()
}

// Close stops accepting tasks, lets workers drain their queues and waits for
// them to exit. Tasks still in the journal are replayed on the next start.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, q := range p.queues {
		close(q)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) queue(projectID string) chan Task {
	h := fnv.New32a()
	h.Write([]byte(projectID))
	return p.queues[h.Sum32()%uint32(len(p.queues))]
}

func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for t := range p.queues[id] {
		p.process(t)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

func (p *Pool) process(t Task) {
	defer p.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), p.config.TaskTimeout)
	defer cancel()

	syncErr := p.config.Handler.HandleTask(ctx, t)
	if syncErr != nil {
		p.logger.Error("sync task failed",
			"task_id", t.ID,
			"project_id", t.ProjectID,
			"op", t.Op,
			"attempt", t.Attempts+1,
			"error", syncErr,
		)
	}

	if err := p.config.Journal.Resolve(ctx, t, syncErr); err != nil {
		p.logger.Error("resolving sync task",
			"task_id", t.ID,
			"project_id", t.ProjectID,
			"error", err,
		)
	}
}
