package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/ValentinKolb/anyKV/lib/driver/util"
	"github.com/ValentinKolb/anyKV/lib/serialize"
	"github.com/ValentinKolb/anyKV/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("cache")

// Options configures a cached function
type Options[A any] struct {
	// Store holds the cached results. Default: the store configured by the environment (store.FromEnv)
	Store *store.Store
	// KeyFunc computes the cache key of an argument, an empty key disables caching for that call.
	// Default: "<function name>/<sha1 of the argument>"
	KeyFunc func(arg A) string
	// Mode and Model select the serialization of results. Default: serialize.JSON[R]()
	Mode  serialize.Mode
	Model serialize.Model
	// TTL of cached results, zero uses the store default
	TTL time.Duration
	// Prefix is prepended to every cache key
	Prefix string
}

// Result is the outcome of an asynchronous call
type Result[R any] struct {
	Value R
	Err   error
}

// cached holds the resolved options of one wrapped function
type cached[A, R any] struct {
	fn   func(context.Context, A) (R, error)
	opts Options[A]
	name string
}

func newCached[A, R any](fn func(context.Context, A) (R, error), opts Options[A]) *cached[A, R] {
	if opts.Model == nil && opts.Mode == "" {
		opts.Model = serialize.JSON[R]()
	}
	return &cached[A, R]{
		fn:   fn,
		opts: opts,
		name: runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name(),
	}
}

// Wrap returns fn with its results cached in a store.
// Errors of fn are returned and never cached, errors of the cache store are logged.
func Wrap[A, R any](fn func(context.Context, A) (R, error), opts Options[A]) func(context.Context, A) (R, error) {
	c := newCached(fn, opts)
	return func(ctx context.Context, arg A) (R, error) {
		s, key, value, ok := c.lookup(ctx, arg)
		if ok {
			return value, nil
		}
		return c.compute(ctx, s, key, arg)
	}
}

// WrapAsync is like Wrap, but the call returns a channel that receives exactly one Result.
// The cache lookup happens synchronously, only fn runs in a new goroutine.
func WrapAsync[A, R any](fn func(context.Context, A) (R, error), opts Options[A]) func(context.Context, A) <-chan Result[R] {
	c := newCached(fn, opts)
	return func(ctx context.Context, arg A) <-chan Result[R] {
		out := make(chan Result[R], 1)
		s, key, value, ok := c.lookup(ctx, arg)
		if ok {
			out <- Result[R]{Value: value}
			close(out)
			return out
		}
		go func() {
			defer close(out)
			value, err := c.compute(ctx, s, key, arg)
			out <- Result[R]{Value: value, Err: err}
		}()
		return out
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// key returns the cache key of arg, an empty key disables caching
func (c *cached[A, R]) key(arg A) string {
	var key string
	if c.opts.KeyFunc != nil {
		key = c.opts.KeyFunc(arg)
	} else {
		key = SignatureKey(c.name, arg)
	}
	if key == "" {
		return ""
	}
	return util.JoinKey(c.opts.Prefix, key)
}

func (c *cached[A, R]) options() []store.Option {
	opts := []store.Option{store.WithRaiseOnMissing(true)}
	if c.opts.Model != nil {
		opts = append(opts, store.WithModel(c.opts.Model))
	} else {
		opts = append(opts, store.WithMode(c.opts.Mode))
	}
	return opts
}

// lookup returns the cached value of arg. The store and key are returned for the following compute.
func (c *cached[A, R]) lookup(ctx context.Context, arg A) (*store.Store, string, R, bool) {
	var zero R
	key := c.key(arg)
	if key == "" {
		return nil, "", zero, false
	}

	s := c.opts.Store
	if s == nil {
		var err error
		if s, err = store.FromEnv(ctx); err != nil {
			Logger.Warningf("open cache store: %v", err)
			return nil, "", zero, false
		}
	}

	value, err := store.GetAs[R](ctx, s, key, c.options()...)
	switch {
	case err == nil:
		Logger.Debugf("cache hit %s", key)
		return s, key, value, true
	case errors.Is(err, store.ErrNotFound):
		Logger.Debugf("cache miss %s", key)
	default:
		Logger.Warningf("read cache %s: %v", key, err)
	}
	return s, key, zero, false
}

// compute calls fn and stores the result. A nil store or empty key skips the write.
func (c *cached[A, R]) compute(ctx context.Context, s *store.Store, key string, arg A) (R, error) {
	value, err := c.fn(ctx, arg)
	if err != nil || s == nil || key == "" {
		return value, err
	}
	opts := c.options()
	if c.opts.TTL > 0 {
		opts = append(opts, store.WithTTL(c.opts.TTL))
	}
	if err := s.Put(ctx, key, value, opts...); err != nil {
		Logger.Warningf("write cache %s: %v", key, err)
	}
	return value, nil
}

// SignatureKey returns "<name>/<sha1 of arg>". The argument is hashed in its
// json encoding, or in its Go syntax representation if it can not be encoded.
func SignatureKey(name string, arg any) string {
	data, err := json.Marshal(arg)
	if err != nil {
		data = []byte(fmt.Sprintf("%#v", arg))
	}
	sum := sha1.Sum(data)
	name = strings.NewReplacer("/", ".", "*", "_").Replace(name)
	return name + "/" + hex.EncodeToString(sum[:])
}
