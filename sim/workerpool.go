package sim

import (
	"runtime"
	"sync"

	"github.com/google/uuid"
)

// A workerPool runs submitted tasks on a fixed set of worker goroutines.
// Submission never blocks; pending tasks queue until a worker frees up, so
// the pool bounds concurrent execution rather than throughput.
type workerPool struct {
	mu    sync.Mutex
	cond  *sync.Cond
	queue []func()

	workerIDs []string
	busy      int
}

// newWorkerPool creates a pool of worker goroutines. A non-positive count
// means one worker per CPU.
func newWorkerPool(workers int) *workerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	p := &workerPool{}
	p.cond = sync.NewCond(&p.mu)

	for i := 0; i < workers; i++ {
		workerID := uuid.New().String()
		p.workerIDs = append(p.workerIDs, workerID)
		go p.workerRun()
	}

	return p
}

// Submit queues a task for execution on some worker.
func (p *workerPool) Submit(task func()) {
	p.mu.Lock()
	p.queue = append(p.queue, task)
	p.mu.Unlock()

	p.cond.Signal()
}

// WorkerIDs returns the identity of every worker in the pool.
func (p *workerPool) WorkerIDs() []string {
	ids := make([]string, len(p.workerIDs))
	copy(ids, p.workerIDs)
	return ids
}

// Busy returns the number of workers currently running a task.
func (p *workerPool) Busy() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busy
}

// Queued returns the number of tasks waiting for a worker.
func (p *workerPool) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

func (p *workerPool) workerRun() {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 {
			p.cond.Wait()
		}
		task := p.queue[0]
		p.queue = p.queue[1:]
		p.busy++
		p.mu.Unlock()

		task()

		p.mu.Lock()
		p.busy--
		p.mu.Unlock()
	}
}
