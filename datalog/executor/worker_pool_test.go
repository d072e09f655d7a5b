package executor

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsEveryTask(t *testing.T) {
	defer leaktest.Check(t)()

	p := NewPool(4)
	defer p.Shutdown()

	var ran atomic.Int64
	for i := 0; i < 1000; i++ {
		p.Submit(func() { ran.Add(1) })
	}
	p.Wait()

	assert.Equal(t, int64(1000), ran.Load())
	assert.Equal(t, int64(0), p.Outstanding())
	assert.Equal(t, int64(1000), p.Submitted())
}

func TestPoolWaitCoversNestedSubmits(t *testing.T) {
	defer leaktest.Check(t)()

	for _, workers := range []int{1, 2, 8} {
		p := NewPool(workers)

		// A binary tree of depth 10 submitted from inside tasks
		var leaves atomic.Int64
		var spawn func(depth int)
		spawn = func(depth int) {
			if depth == 0 {
				leaves.Add(1)
				return
			}
			p.Submit(func() { spawn(depth - 1) })
			p.Submit(func() { spawn(depth - 1) })
		}
		p.Submit(func() { spawn(10) })
		p.Wait()

		assert.Equal(t, int64(1024), leaves.Load(), "workers=%d", workers)
		p.Shutdown()
	}
}

func TestPoolWaitBlocksOnRunningTask(t *testing.T) {
	defer leaktest.Check(t)()

	p := NewPool(2)
	defer p.Shutdown()

	release := make(chan struct{})
	var finished atomic.Bool
	p.Submit(func() {
		<-release
		finished.Store(true)
	})

	waited := make(chan struct{})
	go func() {
		p.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("Wait returned while a task was running")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	<-waited
	assert.True(t, finished.Load())
}

func TestPoolWaitWithNoTasks(t *testing.T) {
	defer leaktest.Check(t)()

	p := NewPool(0)
	assert.Greater(t, p.Workers(), 0)
	p.Wait()
	p.Shutdown()
	p.Shutdown()
}

func TestPoolSubmitAfterShutdown(t *testing.T) {
	p := NewPool(1)
	p.Shutdown()
	require.Panics(t, func() { p.Submit(func() {}) })
}

func TestTaskDeque(t *testing.T) {
	d := &taskDeque{}
	var order []int
	for i := 0; i < 4; i++ {
		i := i
		d.push(func() { order = append(order, i) })
	}
	d.popOldest()()
	d.popNewest()()
	d.popOldest()()
	d.popNewest()()
	assert.Nil(t, d.popNewest())
	assert.Nil(t, d.popOldest())
	assert.Equal(t, []int{0, 3, 1, 2}, order)

	// Reusable after draining
	d.push(func() { order = append(order, 9) })
	d.popOldest()()
	assert.Equal(t, 9, order[len(order)-1])
}
