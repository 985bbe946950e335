// Package worker runs batches of independent jobs on a fixed number of
// goroutines.
package worker

import "sync"

type Job[T any] func() T

type Result[T any] struct {
	JobID  string
	Output T
}

type Pool[T any] struct {
	jobs    chan jobWrapper[T]
	results chan Result[T]
	wg      sync.WaitGroup
}

type jobWrapper[T any] struct {
	id string
	fn Job[T]
}

func NewPool[T any](workerCount int, bufferSize int) *Pool[T] {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &Pool[T]{
		jobs:    make(chan jobWrapper[T], bufferSize),
		results: make(chan Result[T], bufferSize),
	}

	p.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go p.worker()
	}

	// results closes once every worker has drained the job queue
	go func() {
		p.wg.Wait()
		close(p.results)
	}()

	return p
}

func (p *Pool[T]) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.results <- Result[T]{
			JobID:  job.id,
			Output: job.fn(),
		}
	}
}

func (p *Pool[T]) Submit(id string, fn Job[T]) {
	p.jobs <- jobWrapper[T]{id: id, fn: fn}
}

// Close stops accepting jobs. Results is closed after the queued jobs finish.
func (p *Pool[T]) Close() {
	close(p.jobs)
}

func (p *Pool[T]) Results() <-chan Result[T] {
	return p.results
}

// Run executes every job on a pool of workerCount goroutines and returns
// the outputs keyed by job id.
func Run[T any](workerCount int, jobs map[string]Job[T]) map[string]T {
	p := NewPool[T](workerCount, len(jobs))
	go func() {
		for id, fn := range jobs {
			p.Submit(id, fn)
		}
		p.Close()
	}()

	out := make(map[string]T, len(jobs))
	for r := range p.Results() {
		out[r.JobID] = r.Output
	}
	return out
}
