package renderer

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

// ErrPoolClosed is returned by Submit once Shutdown has been called
var ErrPoolClosed = errors.New("worker pool is shut down")

// Task is a unit of work executed by a pool worker
type Task func() error

// Future resolves when its task has finished running
type Future struct {
	done chan struct{}
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(err error) {
	f.err = err
	close(f.done)
}

// Wait blocks until the task completes and returns its error, including a recovered panic
func (f *Future) Wait() error {
	<-f.done
	return f.err
}

// Done is closed when the task completes
func (f *Future) Done() <-chan struct{} {
	return f.done
}

type queuedTask struct {
	run    Task
	future *Future
}

// WorkerPool runs tasks on a fixed set of goroutines draining a shared FIFO queue.
// Submit never blocks on queue capacity.
type WorkerPool struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []queuedTask
	stopping bool

	numWorkers int
	wg         sync.WaitGroup
}

// NewWorkerPool starts numWorkers workers; a non-positive count uses runtime.NumCPU
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	wp := &WorkerPool{numWorkers: numWorkers}
	wp.cond = sync.NewCond(&wp.mu)

	for i := 0; i < numWorkers; i++ {
		wp.wg.Add(1)
		go wp.run()
	}
	return wp
}

// Submit enqueues a task and returns the future that reports its result
func (wp *WorkerPool) Submit(task Task) (*Future, error) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.stopping {
		return nil, ErrPoolClosed
	}

	future := newFuture()
	wp.queue = append(wp.queue, queuedTask{run: task, future: future})
	wp.cond.Signal()
	return future, nil
}

// Shutdown stops accepting tasks and blocks until every queued task has run.
// It is safe to call more than once.
func (wp *WorkerPool) Shutdown() {
	wp.mu.Lock()
	wp.stopping = true
	wp.cond.Broadcast()
	wp.mu.Unlock()

	wp.wg.Wait()
}

// NumWorkers returns the number of workers in the pool
func (wp *WorkerPool) NumWorkers() int {
	return wp.numWorkers
}

// run is the main worker loop
func (wp *WorkerPool) run() {
	defer wp.wg.Done()

	for {
		wp.mu.Lock()
		for len(wp.queue) == 0 && !wp.stopping {
			wp.cond.Wait()
		}
		if len(wp.queue) == 0 {
			// Stopping and drained
			wp.mu.Unlock()
			return
		}
		task := wp.queue[0]
		wp.queue[0] = queuedTask{}
		wp.queue = wp.queue[1:]
		wp.mu.Unlock()

		task.future.resolve(execute(task.run))
	}
}

// execute runs a task, converting a panic into an error
func execute(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("task panicked: %v", r)
		}
	}()
	return task()
}
