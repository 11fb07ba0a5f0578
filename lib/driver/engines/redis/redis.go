package redis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/ValentinKolb/anyKV/lib/driver"
	"github.com/ValentinKolb/anyKV/lib/driver/util"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultPrefix is the namespace all keys are stored under
const DefaultPrefix = "anykv"

const supported = driver.FeatureWrite |
	driver.FeatureRead |
	driver.FeatureOverwrite |
	driver.FeatureDelete |
	driver.FeatureTTL

// redisImpl implements driver.Driver on a redis keyspace.
// All keys are stored as "<prefix>/<key>".
type redisImpl struct {
	client   goredis.UniversalClient
	prefix   string
	location string
}

// NewRedisDriver connects to the server described by uri (redis:// or rediss://).
// An empty prefix falls back to DefaultPrefix.
func NewRedisDriver(ctx context.Context, uri, prefix string) (driver.Driver, error) {
	opts, err := goredis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to %s: %w", opts.Addr, err)
	}
	return NewRedisDriverWithClient(client, prefix, uri), nil
}

// NewRedisDriverWithClient creates a driver on an existing client.
// The driver takes ownership of the client and closes it on Close.
func NewRedisDriverWithClient(client goredis.UniversalClient, prefix, location string) driver.Driver {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &redisImpl{
		client:   client,
		prefix:   strings.Trim(prefix, "/"),
		location: location,
	}
}

func (r *redisImpl) key(key string) string {
	return r.prefix + "/" + key
}

// --------------------------------------------------------------------------
// Interface Methods (docu see driver.Driver)
// --------------------------------------------------------------------------

func (r *redisImpl) Write(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *redisImpl) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, driver.ErrNotFound
	}
	return data, err
}

func (r *redisImpl) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *redisImpl) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	return n > 0, err
}

// Stat only reports the size, redis does not track modification times
func (r *redisImpl) Stat(ctx context.Context, key string) (driver.Info, error) {
	ok, err := r.Exists(ctx, key)
	if err != nil {
		return driver.Info{}, err
	}
	if !ok {
		return driver.Info{}, driver.ErrNotFound
	}
	size, err := r.client.StrLen(ctx, r.key(key)).Result()
	if err != nil {
		return driver.Info{}, err
	}
	return driver.Info{Size: size}, nil
}

func (r *redisImpl) OpenReader(ctx context.Context, key string) (io.ReadCloser, error) {
	data, err := r.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	return util.NewBufferedReader(data), nil
}

func (r *redisImpl) OpenWriter(ctx context.Context, key string) (io.WriteCloser, error) {
	return util.NewFlushWriter(func(data []byte) error {
		return r.Write(ctx, key, data, 0)
	}), nil
}

// ListKeys uses SCAN with a MATCH pattern on the namespaced prefix
func (r *redisImpl) ListKeys(ctx context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		match := util.EscapeGlob(r.prefix+"/"+prefix) + "*"
		it := r.client.Scan(ctx, 0, match, 100).Iterator()
		for it.Next(ctx) {
			key, ok := strings.CutPrefix(it.Val(), r.prefix+"/")
			if !ok {
				continue
			}
			if !yield(key, nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield("", err)
		}
	}
}

func (r *redisImpl) SupportsFeature(feature driver.Feature) bool {
	return feature&supported == feature
}

func (r *redisImpl) GetInfo() driver.DriverInfo {
	return driver.DriverInfo{
		Type:              driver.ImplRedis,
		Location:          r.location + " (" + r.prefix + ")",
		SupportedFeatures: driver.Features(supported),
	}
}

func (r *redisImpl) Close() error {
	return r.client.Close()
}
