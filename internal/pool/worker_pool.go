package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/aqua-monitor/aqua-alert/internal/apperr"
)

// Task represents a unit of work to be executed by the worker pool
type Task func(ctx context.Context) error

// Handle observes the completion of a submitted task
type Handle struct {
	done chan struct{}
	err  error
	once sync.Once
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

func (h *Handle) finish(err error) {
	h.once.Do(func() {
		h.err = err
		close(h.done)
	})
}

// Done is closed once the task ran or was dropped
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the task result. Only meaningful after Done is closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the task completes or ctx is done
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type job struct {
	task   Task
	handle *Handle
}

// Stats are cumulative pool counters
type Stats struct {
	Workers   int   `json:"workers"`
	Queued    int   `json:"queued"`
	Submitted int64 `json:"submitted"`
	Rejected  int64 `json:"rejected"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

// WorkerPool manages a fixed number of goroutine workers fed by a bounded queue.
// Submit never blocks: a full queue rejects the task.
type WorkerPool struct {
	workerCount int
	taskQueue   chan job
	stopChan    chan struct{}
	wg          sync.WaitGroup
	mu          sync.RWMutex
	stopped     bool

	submitted atomic.Int64
	rejected  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewWorkerPool creates a new worker pool
// Parameters:
//   - workerCount: number of goroutine workers
//   - queueSize: capacity of the wait queue
func NewWorkerPool(workerCount int, queueSize int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize <= 0 {
		queueSize = 10
	}

	return &WorkerPool{
		workerCount: workerCount,
		taskQueue:   make(chan job, queueSize),
		stopChan:    make(chan struct{}),
	}
}

// Start initializes and starts all worker goroutines
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx)
	}
}

func (wp *WorkerPool) worker(ctx context.Context) {
	defer wp.wg.Done()

	for {
		select {
		case j := <-wp.taskQueue:
			// stop may have raced with the receive
			select {
			case <-wp.stopChan:
				wp.drop(j)
				continue
			default:
			}
			wp.run(ctx, j)

		case <-wp.stopChan:
			return

		case <-ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) run(ctx context.Context, j job) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task panicked: %v", r)
			}
		}()
		err = j.task(ctx)
	}()

	if err != nil {
		wp.failed.Add(1)
	} else {
		wp.completed.Add(1)
	}
	j.handle.finish(err)
}

func (wp *WorkerPool) drop(j job) {
	wp.dropped.Add(1)
	j.handle.finish(apperr.ErrTaskDropped)
}

// Submit adds a task to the queue for processing.
// Returns apperr.ErrPoolStopped or apperr.ErrQueueFull without blocking.
func (wp *WorkerPool) Submit(task Task) (*Handle, error) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		wp.rejected.Add(1)
		return nil, apperr.ErrPoolStopped
	}

	h := newHandle()
	select {
	case wp.taskQueue <- job{task: task, handle: h}:
		wp.submitted.Add(1)
		return h, nil
	default:
		wp.rejected.Add(1)
		return nil, apperr.ErrQueueFull
	}
}

// Stop shuts down the pool. In-flight tasks run to completion while
// queued tasks are dropped and their handles finish with apperr.ErrTaskDropped.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.stopChan)
	wp.mu.Unlock()

	wp.drainQueue()
	wp.wg.Wait()
	wp.drainQueue()
}

func (wp *WorkerPool) drainQueue() {
	for {
		select {
		case j := <-wp.taskQueue:
			wp.drop(j)
		default:
			return
		}
	}
}

// StopWithTimeout stops the pool, waiting at most until timeout is done
// for in-flight tasks to drain
func (wp *WorkerPool) StopWithTimeout(timeout context.Context) error {
	done := make(chan struct{})

	go func() {
		wp.Stop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-timeout.Done():
		return fmt.Errorf("worker pool shutdown timeout exceeded")
	}
}

// GetWorkerCount returns the number of workers in the pool
func (wp *WorkerPool) GetWorkerCount() int {
	return wp.workerCount
}

// GetQueueSize returns the current number of tasks in the queue
func (wp *WorkerPool) GetQueueSize() int {
	return len(wp.taskQueue)
}

// IsStopped returns whether the pool has been stopped
func (wp *WorkerPool) IsStopped() bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	return wp.stopped
}

// Stats returns a snapshot of the pool counters
func (wp *WorkerPool) Stats() Stats {
	return Stats{
		Workers:   wp.workerCount,
		Queued:    len(wp.taskQueue),
		Submitted: wp.submitted.Load(),
		Rejected:  wp.rejected.Load(),
		Completed: wp.completed.Load(),
		Failed:    wp.failed.Load(),
		Dropped:   wp.dropped.Load(),
	}
}
