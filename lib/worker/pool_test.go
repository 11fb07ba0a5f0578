package worker

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math/rand"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// numbers yields 0..n-1
func numbers(n int) Source[int] {
	return func(ctx context.Context) iter.Seq2[int, error] {
		return func(yield func(int, error) bool) {
			for i := range n {
				if !yield(i, nil) {
					return
				}
			}
		}
	}
}

func TestPoolRunsAllTasks(t *testing.T) {
	var sum atomic.Int64
	pool := NewPool(&Options{Threads: 8, Name: "sum"}, numbers(1000), func(ctx context.Context, task int, status *Status) error {
		sum.Add(int64(task))
		status.Count("seen", 1)
		return nil
	})

	snapshot, err := pool.Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 999*1000/2, sum.Load())
	assert.EqualValues(t, 1000, snapshot.Done)
	assert.EqualValues(t, 0, snapshot.Errors)
	assert.EqualValues(t, 0, snapshot.Pending)
	assert.EqualValues(t, 1000, snapshot.Get("seen"))
	assert.False(t, snapshot.Running)
	assert.False(t, snapshot.Stopped.Before(snapshot.Started))
	assert.Contains(t, snapshot.String(), "seen=1000")
}

func TestPoolErrorIsolation(t *testing.T) {
	failing := map[int]bool{}
	r := rand.New(rand.NewSource(42))
	for len(failing) < 100 {
		failing[r.Intn(1000)] = true
	}

	pool := NewPool(&Options{Threads: 4}, numbers(1000), func(ctx context.Context, task int, status *Status) error {
		if failing[task] {
			return fmt.Errorf("task %d failed", task)
		}
		return nil
	})

	snapshot, err := pool.Run(context.Background())
	require.Error(t, err)
	assert.EqualValues(t, 900, snapshot.Done)
	assert.EqualValues(t, 100, snapshot.Errors)
	assert.EqualValues(t, 0, snapshot.Pending)
	assert.NotEmpty(t, snapshot.Exc)

	var taskErr *TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.True(t, failing[taskErr.Task.(int)])
	assert.Len(t, err.(interface{ Unwrap() []error }).Unwrap(), 100)
}

func TestPoolCustomErrorHandler(t *testing.T) {
	var handled atomic.Int64
	opts := &Options{
		Threads: 4,
		OnError: func(task any, err error) error {
			handled.Add(1)
			return nil
		},
	}
	pool := NewPool(opts, numbers(1000), func(ctx context.Context, task int, status *Status) error {
		if task%10 == 0 {
			status.Count("balance", -1)
			return errors.New("boom")
		}
		return nil
	})

	snapshot, err := pool.Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 100, handled.Load())
	assert.EqualValues(t, 100, snapshot.Errors)
	assert.EqualValues(t, 900, snapshot.Done)
	assert.EqualValues(t, -100, snapshot.Get("balance"))
}

func TestPoolRecoversPanics(t *testing.T) {
	pool := NewPool(&Options{Threads: 2}, numbers(10), func(ctx context.Context, task int, status *Status) error {
		if task == 5 {
			panic("unexpected")
		}
		return nil
	})

	snapshot, err := pool.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic: unexpected")
	assert.EqualValues(t, 9, snapshot.Done)
	assert.EqualValues(t, 1, snapshot.Errors)
}

func TestPoolProducerError(t *testing.T) {
	errSource := errors.New("listing failed")
	source := func(ctx context.Context) iter.Seq2[int, error] {
		return func(yield func(int, error) bool) {
			for i := range 10 {
				if !yield(i, nil) {
					return
				}
			}
			yield(0, errSource)
		}
	}
	pool := NewPool(&Options{Threads: 2}, source, func(ctx context.Context, task int, status *Status) error {
		return nil
	})

	snapshot, err := pool.Run(context.Background())
	assert.ErrorIs(t, err, errSource)
	assert.EqualValues(t, 0, snapshot.Pending)
	assert.LessOrEqual(t, snapshot.Done, int64(10))
}

func TestPoolProducerPanic(t *testing.T) {
	source := func(ctx context.Context) iter.Seq2[int, error] {
		return func(yield func(int, error) bool) {
			for i := range 5 {
				if !yield(i, nil) {
					return
				}
			}
			panic("listing exploded")
		}
	}
	pool := NewPool(&Options{Threads: 2}, source, func(ctx context.Context, task int, status *Status) error {
		return nil
	})

	snapshot, err := pool.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing exploded")
	assert.Contains(t, err.Error(), "produce tasks")
	assert.False(t, snapshot.Running)
	assert.False(t, snapshot.Stopped.IsZero())
	assert.EqualValues(t, 0, snapshot.Pending)
	assert.LessOrEqual(t, snapshot.Done, int64(5))
}

func TestPoolContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	endless := func(ctx context.Context) iter.Seq2[int, error] {
		return func(yield func(int, error) bool) {
			for i := 0; ; i++ {
				if !yield(i, nil) {
					return
				}
			}
		}
	}
	pool := NewPool(&Options{Threads: 2, QueueSize: 4}, endless, func(ctx context.Context, task int, status *Status) error {
		if task == 100 {
			cancel()
		}
		return nil
	})

	snapshot, err := pool.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 0, snapshot.Pending)
	assert.False(t, snapshot.Running)
}

func TestPoolExitOnInterrupt(t *testing.T) {
	codes := make(chan int, 1)
	exit = func(code int) { codes <- code }
	t.Cleanup(func() { exit = os.Exit })

	endless := func(ctx context.Context) iter.Seq2[int, error] {
		return func(yield func(int, error) bool) {
			for i := 0; ; i++ {
				if !yield(i, nil) {
					return
				}
			}
		}
	}
	var once atomic.Bool
	pool := NewPool(&Options{Threads: 1, ExitOnInterrupt: true}, endless, func(ctx context.Context, task int, status *Status) error {
		if once.CompareAndSwap(false, true) {
			p, err := os.FindProcess(os.Getpid())
			if err != nil {
				return err
			}
			return p.Signal(os.Interrupt)
		}
		time.Sleep(time.Millisecond)
		return nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = pool.Run(context.Background())
	}()

	select {
	case code := <-codes:
		assert.Equal(t, ExitCodeInterrupted, code)
	case <-time.After(5 * time.Second):
		t.Fatal("interrupt was not handled")
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after the interrupt")
	}
}

func TestPoolHeartbeat(t *testing.T) {
	pool := NewPool(&Options{Threads: 1, Heartbeat: 5 * time.Millisecond}, numbers(5), func(ctx context.Context, task int, status *Status) error {
		time.Sleep(10 * time.Millisecond)
		return nil
	})
	snapshot, err := pool.Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 5, snapshot.Done)
	assert.Greater(t, snapshot.Took, 40*time.Millisecond)
}

func TestStatusSnapshotIsCopy(t *testing.T) {
	s := newStatus("test")
	s.Count("custom", 3)
	snapshot := s.Snapshot()
	s.Count("custom", 1)

	assert.EqualValues(t, 3, snapshot.Get("custom"))
	assert.EqualValues(t, 4, s.Snapshot().Get("custom"))
	assert.Zero(t, snapshot.Took)
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 10*opts.Threads, opts.QueueSize)
	assert.Equal(t, 15*time.Second, opts.Heartbeat)

	o := Options{}.withDefaults()
	assert.Equal(t, opts.Threads, o.Threads)
	assert.Equal(t, "worker", o.Name)
	assert.NotNil(t, o.OnError)
}
