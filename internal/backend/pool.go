package backend

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/KilimcininKorOglu/obakv/internal/storage"
)

// workerPool runs one job per shard. Shard 0 runs on the calling goroutine
// and shards 1..n-1 on long-lived workers, so a round costs two condition
// variable handoffs instead of goroutine starts.
type workerPool struct {
	threads int

	mu      sync.Mutex
	ready   *sync.Cond
	done    *sync.Cond
	gen     uint64
	pending int
	stop    bool
	job     func(shard int) error
	errs    []error

	g errgroup.Group
}

func newWorkerPool(threads int) *workerPool {
	if threads < 1 {
		threads = 1
	}
	p := &workerPool{
		threads: threads,
		errs:    make([]error, threads),
	}
	p.ready = sync.NewCond(&p.mu)
	p.done = sync.NewCond(&p.mu)

	for shard := 1; shard < threads; shard++ {
		p.g.Go(func() error {
			p.worker(shard)
			return nil
		})
	}
	return p
}

func (p *workerPool) worker(shard int) {
	var seen uint64

	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		for p.gen == seen && !p.stop {
			p.ready.Wait()
		}
		if p.stop {
			return
		}
		seen = p.gen
		job := p.job
		p.mu.Unlock()

		err := runShard(job, shard)

		p.mu.Lock()
		p.errs[shard] = err
		p.pending--
		if p.pending == 0 {
			p.done.Signal()
		}
	}
}

func runShard(job func(int) error, shard int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: shard %d panicked: %v", storage.ErrInternal, shard, r)
		}
	}()
	return job(shard)
}

// run executes job for every shard and waits for all of them. It returns
// the errors of the failed shards joined, lowest shard first.
func (p *workerPool) run(job func(shard int) error) error {
	p.mu.Lock()
	if p.stop {
		p.mu.Unlock()
		return ErrSessionClosed
	}
	p.job = job
	for i := range p.errs {
		p.errs[i] = nil
	}
	p.pending = p.threads - 1
	p.gen++
	p.ready.Broadcast()
	p.mu.Unlock()

	own := runShard(job, 0)

	p.mu.Lock()
	for p.pending > 0 {
		p.done.Wait()
	}
	p.errs[0] = own
	err := errors.Join(p.errs...)
	p.job = nil
	p.mu.Unlock()
	return err
}

// close stops the workers. Running rounds finish first.
func (p *workerPool) close() {
	p.mu.Lock()
	if p.stop {
		p.mu.Unlock()
		return
	}
	p.stop = true
	p.ready.Broadcast()
	p.mu.Unlock()
	_ = p.g.Wait()
}
