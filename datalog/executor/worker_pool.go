package executor

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool runs tasks on a fixed set of worker goroutines and counts tasks that
// are queued or running. Tasks may submit further tasks; Wait returns once
// the count drops to zero, which is how saturation detects its fixpoint.
//
// Each worker owns a deque. Submit spreads tasks round-robin, workers pop
// their own deque newest-first and steal oldest-first from the others.
type Pool struct {
	deques      []*taskDeque
	next        atomic.Uint64
	outstanding atomic.Int64
	submitted   atomic.Int64

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup

	mu       sync.Mutex
	idle     *sync.Cond
	shutdown bool
}

// NewPool starts a pool with workerCount workers (0 = use NumCPU)
func NewPool(workerCount int) *Pool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		deques: make([]*taskDeque, workerCount),
		wake:   make(chan struct{}, workerCount),
		done:   make(chan struct{}),
	}
	p.idle = sync.NewCond(&p.mu)
	for i := range p.deques {
		p.deques[i] = &taskDeque{}
	}
	p.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go p.work(i)
	}
	return p
}

// Submit queues task without blocking. Submitting after Shutdown panics.
func (p *Pool) Submit(task func()) {
	p.outstanding.Add(1)
	p.submitted.Add(1)
	select {
	case <-p.done:
		panic("executor: submit on shut down pool")
	default:
	}
	i := p.next.Add(1) % uint64(len(p.deques))
	p.deques[i].push(task)

	// A full wake channel means enough workers are already due to rescan
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Wait blocks until no task is queued or running
func (p *Pool) Wait() {
	p.mu.Lock()
	for p.outstanding.Load() != 0 {
		p.idle.Wait()
	}
	p.mu.Unlock()
}

// Outstanding returns the number of queued or running tasks
func (p *Pool) Outstanding() int64 { return p.outstanding.Load() }

// Submitted returns the number of tasks ever submitted
func (p *Pool) Submitted() int64 { return p.submitted.Load() }

// Workers returns the number of worker goroutines
func (p *Pool) Workers() int { return len(p.deques) }

// Shutdown waits for outstanding work, then stops the workers. It is safe
// to call more than once.
func (p *Pool) Shutdown() {
	p.Wait()
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return
	}
	p.shutdown = true
	close(p.done)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) work(id int) {
	defer p.wg.Done()
	for {
		if task := p.take(id); task != nil {
			task()
			p.finish()
			continue
		}
		select {
		case <-p.wake:
		case <-p.done:
			return
		}
	}
}

func (p *Pool) take(id int) func() {
	if task := p.deques[id].popNewest(); task != nil {
		return task
	}
	n := len(p.deques)
	for k := 1; k < n; k++ {
		if task := p.deques[(id+k)%n].popOldest(); task != nil {
			return task
		}
	}
	return nil
}

func (p *Pool) finish() {
	if p.outstanding.Add(-1) == 0 {
		p.mu.Lock()
		p.idle.Broadcast()
		p.mu.Unlock()
	}
}

// taskDeque is a mutex-guarded double-ended queue of tasks
type taskDeque struct {
	mu    sync.Mutex
	tasks []func()
	head  int
}

func (d *taskDeque) push(task func()) {
	d.mu.Lock()
	d.tasks = append(d.tasks, task)
	d.mu.Unlock()
}

func (d *taskDeque) popNewest() func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.head == len(d.tasks) {
		return nil
	}
	last := len(d.tasks) - 1
	task := d.tasks[last]
	d.tasks[last] = nil
	d.tasks = d.tasks[:last]
	d.compact()
	return task
}

func (d *taskDeque) popOldest() func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.head == len(d.tasks) {
		return nil
	}
	task := d.tasks[d.head]
	d.tasks[d.head] = nil
	d.head++
	d.compact()
	return task
}

// compact resets the deque once it drains so the backing array is reused
func (d *taskDeque) compact() {
	if d.head == len(d.tasks) {
		d.tasks = d.tasks[:0]
		d.head = 0
	}
}
