package worker_test

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/secplus-trainer/backend/internal/worker"
)

func TestPool_DeliversEveryResult(t *testing.T) {
	p := worker.NewPool[int](3, 2)

	go func() {
		for i := 0; i < 20; i++ {
			n := i
			p.Submit(fmt.Sprint(n), func() int { return n * n })
		}
		p.Close()
	}()

	got := map[string]int{}
	for r := range p.Results() {
		got[r.JobID] = r.Output
	}

	assert.Len(t, got, 20)
	assert.Equal(t, 49, got["7"])
}

func TestRun(t *testing.T) {
	var calls atomic.Int32
	jobs := map[string]worker.Job[string]{}
	for _, name := range []string{"a.json", "b.json", "c.json"} {
		jobs[name] = func() string {
			calls.Add(1)
			return name + ".repaired"
		}
	}

	got := worker.Run(2, jobs)

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "b.json.repaired", got["b.json"])
}

func TestRun_NoJobs(t *testing.T) {
	assert.Empty(t, worker.Run(4, map[string]worker.Job[int]{}))
}
