package worker

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/ValentinKolb/anyKV/lib/common"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("worker")

// exit is replaced in tests
var exit = os.Exit

// ExitCodeInterrupted is the exit code after SIGINT or SIGTERM with ExitOnInterrupt
const ExitCodeInterrupted = 130

// Source enumerates the tasks of a run. A yielded error aborts the run.
type Source[T any] func(ctx context.Context) iter.Seq2[T, error]

// Handler processes a single task. Custom counters can be updated through status.
type Handler[T any] func(ctx context.Context, task T, status *Status) error

// TaskError is the default wrapping of a failed task
type TaskError struct {
	Task any
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %v: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options configures a pool
type Options struct {
	Threads   int           // number of consumers
	Heartbeat time.Duration // interval of the status log
	QueueSize int           // capacity of the task queue
	Name      string        // used in logs and metrics

	// OnError is called for every failed task. The returned error is collected
	// and returned by Run, a nil return absorbs the failure.
	// Default: wrap the failure in a *TaskError.
	OnError func(task any, err error) error

	// ExitOnInterrupt logs the final status and exits with code 130 on SIGINT or SIGTERM
	ExitOnInterrupt bool
}

// DefaultOptions returns the default pool options
func DefaultOptions() *Options {
	threads := runtime.NumCPU()
	return &Options{
		Threads:   threads,
		Heartbeat: 15 * time.Second,
		QueueSize: 10 * threads,
		Name:      "worker",
	}
}

func (o Options) withDefaults() Options {
	if o.Threads < 1 {
		o.Threads = runtime.NumCPU()
	}
	if o.Heartbeat <= 0 {
		o.Heartbeat = 15 * time.Second
	}
	if o.QueueSize < 1 {
		o.QueueSize = 10 * o.Threads
	}
	if o.Name == "" {
		o.Name = "worker"
	}
	if o.OnError == nil {
		o.OnError = func(task any, err error) error {
			return &TaskError{Task: task, Err: err}
		}
	}
	return o
}

// --------------------------------------------------------------------------
// Pool
// --------------------------------------------------------------------------

// Pool runs a handler for every task of a source with a fixed number of consumers.
// A pool can be run once.
type Pool[T any] struct {
	opts    Options
	source  Source[T]
	handler Handler[T]
	status  *Status
}

// NewPool creates a pool, a nil opts uses DefaultOptions
func NewPool[T any](opts *Options, source Source[T], handler Handler[T]) *Pool[T] {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := opts.withDefaults()
	return &Pool[T]{
		opts:    o,
		source:  source,
		handler: handler,
		status:  newStatus(o.Name),
	}
}

// Status returns the live status of the pool
func (p *Pool[T]) Status() *Status {
	return p.status
}

// handle runs the handler and turns panics into errors
func (p *Pool[T]) handle(ctx context.Context, task T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.handler(ctx, task, p.status)
}

// Run processes all tasks and blocks until the producer and all consumers are finished.
// It returns the final status and the joined errors of the run (task errors that
// were not absorbed by OnError, a producer error, or the context error).
func (p *Pool[T]) Run(ctx context.Context) (Snapshot, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.status.start()
	Logger.Infof("%s: using %d consumers", p.opts.Name, p.opts.Threads)

	if p.opts.ExitOnInterrupt {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			select {
			case sig := <-sigCh:
				cancel()
				p.status.stop()
				Logger.Warningf("received %s, %s", sig, p.status.Snapshot())
				exit(ExitCodeInterrupted)
			case <-runCtx.Done():
			}
		}()
	}

	queue := make(chan T, p.opts.QueueSize)
	var producerErr error

	// producer, closing the queue tells the consumers that no more tasks follow
	go func() {
		defer close(queue)
		defer func() {
			if r := recover(); r != nil {
				producerErr = fmt.Errorf("panic: %v", r)
				cancel()
			}
		}()
		for task, err := range p.source(runCtx) {
			if err != nil {
				producerErr = err
				cancel()
				return
			}
			p.status.Count(CounterPending, 1)
			select {
			case queue <- task:
			case <-runCtx.Done():
				p.status.Count(CounterPending, -1)
				return
			}
		}
	}()

	var (
		wg     sync.WaitGroup
		errsMu sync.Mutex
		errs   []error
	)
	for range p.opts.Threads {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				if runCtx.Err() != nil {
					p.status.Count(CounterPending, -1)
					continue
				}
				err := p.handle(runCtx, task)
				p.status.Count(CounterPending, -1)
				if err == nil {
					p.status.Count(CounterDone, 1)
					common.CountTask(p.opts.Name, "done")
					continue
				}

				p.status.Count(CounterErrors, 1)
				p.status.fail(err)
				common.CountTask(p.opts.Name, "error")
				Logger.Debugf("%s: task %v failed: %v", p.opts.Name, task, err)
				if err := p.opts.OnError(task, err); err != nil {
					errsMu.Lock()
					errs = append(errs, err)
					errsMu.Unlock()
				}
			}
		}()
	}

	// heartbeat
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(p.opts.Heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				Logger.Infof("%s", p.status.Snapshot())
			case <-done:
				return
			}
		}
	}()

	wg.Wait()
	close(done)
	p.status.stop()

	snapshot := p.status.Snapshot()
	Logger.Infof("finished %s", snapshot)

	if producerErr != nil {
		errs = append([]error{fmt.Errorf("%s: produce tasks: %w", p.opts.Name, producerErr)}, errs...)
	} else if err := ctx.Err(); err != nil {
		errs = append([]error{err}, errs...)
	}
	return snapshot, errors.Join(errs...)
}
