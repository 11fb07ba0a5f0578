package mirror

import (
	"context"
	"io"
	"iter"
	"time"

	"github.com/ValentinKolb/anyKV/lib/store"
	"github.com/ValentinKolb/anyKV/lib/worker"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("mirror")

// Names of the counters added to the worker status
const (
	CounterMirrored = "mirrored"
	CounterSkipped  = "skipped"
)

// Options configures a mirror run
type Options struct {
	Prefix        string
	ExcludePrefix string
	Glob          string
	// Overwrite copies keys that already exist in the target
	Overwrite bool
	// Threads and Heartbeat configure the worker pool, zero values use the pool defaults
	Threads   int
	Heartbeat time.Duration
	// ExitOnInterrupt is passed to the worker pool
	ExitOnInterrupt bool
}

// Result wraps the final worker snapshot of a mirror run
type Result struct {
	worker.Snapshot
}

// Mirrored returns the number of copied keys
func (r Result) Mirrored() int64 {
	return r.Get(CounterMirrored)
}

// Skipped returns the number of keys that already existed in the target
func (r Result) Skipped() int64 {
	return r.Get(CounterSkipped)
}

// Mirror copies all keys of source matching the filter options into target.
// Values are streamed as raw bytes, no serialization takes place.
func Mirror(ctx context.Context, source, target *store.Store, opts Options) (Result, error) {
	Logger.Infof("start mirroring %s -> %s", source.URI(), target.URI())

	filter := store.Filter{Prefix: opts.Prefix, ExcludePrefix: opts.ExcludePrefix, Glob: opts.Glob}
	keys := func(ctx context.Context) iter.Seq2[string, error] {
		return source.IterateKeys(ctx, filter)
	}

	handler := func(ctx context.Context, key string, status *worker.Status) error {
		if !opts.Overwrite {
			ok, err := target.Exists(ctx, key)
			if err != nil {
				return err
			}
			if ok {
				Logger.Debugf("skipping already existing key %s", key)
				status.Count(CounterSkipped, 1)
				return nil
			}
		}
		Logger.Debugf("mirroring key %s", key)
		if err := copyKey(ctx, source, target, key); err != nil {
			return err
		}
		status.Count(CounterMirrored, 1)
		return nil
	}

	pool := worker.NewPool(&worker.Options{
		Threads:         opts.Threads,
		Heartbeat:       opts.Heartbeat,
		Name:            "mirror",
		ExitOnInterrupt: opts.ExitOnInterrupt,
	}, keys, handler)

	// both counters are part of the result even if they stay zero
	pool.Status().Count(CounterMirrored, 0)
	pool.Status().Count(CounterSkipped, 0)

	snapshot, err := pool.Run(ctx)
	result := Result{Snapshot: snapshot}
	Logger.Infof("done mirroring %s -> %s: mirrored=%d skipped=%d errors=%d",
		source.URI(), target.URI(), result.Mirrored(), result.Skipped(), result.Errors)
	return result, err
}

// copyKey streams the raw value of key from source to target
func copyKey(ctx context.Context, source, target *store.Store, key string) error {
	r, err := source.Open(ctx, key)
	if err != nil {
		return err
	}
	defer r.Close()

	w, err := target.Create(ctx, key)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Abort()
		return err
	}
	return w.Close()
}
