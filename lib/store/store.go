package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"path"
	"time"

	"github.com/ValentinKolb/anyKV/lib/common"
	"github.com/ValentinKolb/anyKV/lib/driver"
	"github.com/ValentinKolb/anyKV/lib/driver/util"
	"github.com/ValentinKolb/anyKV/lib/serialize"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("store")

// maxLineSize is the longest line Stream accepts
const maxLineSize = 64 * 1024 * 1024

// Store is the uniform key-value interface on top of one driver.
// All methods are safe for concurrent use if the driver is.
type Store struct {
	cfg    Config
	drv    driver.Driver
	prefix string // physical key prefix of sub stores
	owner  bool   // only the owner closes the driver
}

// Stats is the metadata of a stored value
type Stats struct {
	Name      string     `json:"name"`
	Store     string     `json:"store"`
	Key       string     `json:"key"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	Size      int64      `json:"size"`
}

// Filter selects keys in IterateKeys and IterateValues.
// All criteria are combined, the zero value matches every key.
type Filter struct {
	Prefix        string // only keys below this path (whole segments)
	ExcludePrefix string // skip keys below this path
	Glob          string // path style glob, e.g. "foo/**/*.json"
}

// --------------------------------------------------------------------------
// Construction
// --------------------------------------------------------------------------

// New opens the store described by cfg. The uri is normalized first.
func New(ctx context.Context, cfg Config) (*Store, error) {
	uri, err := NormalizeURI(cfg.URI)
	if err != nil {
		return nil, err
	}
	cfg.URI = uri
	if _, err := serialize.ParseMode(string(cfg.Mode)); err != nil {
		return nil, wrapError(uri, err)
	}

	drv, err := openDriver(ctx, uri, cfg.BackendConfig)
	if err != nil {
		return nil, wrapError(uri, err)
	}
	Logger.Debugf("opened %s", drv.GetInfo())
	return &Store{cfg: cfg, drv: drv, owner: true}, nil
}

// NewFromURI opens a store for uri with the default config
func NewFromURI(ctx context.Context, uri string) (*Store, error) {
	return New(ctx, DefaultConfig(uri))
}

// NewWithDriver creates a store on an already opened driver.
// The store takes ownership of the driver.
func NewWithDriver(cfg Config, drv driver.Driver) *Store {
	if cfg.URI == "" {
		cfg.URI = drv.GetInfo().Location
	}
	return &Store{cfg: cfg, drv: drv, owner: true}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// key normalizes a relative key and returns the physical key
func (s *Store) key(key string) (string, error) {
	k := util.NormalizeKey(key)
	if k == "" {
		return "", NewError(RetCInvalidOperation, key, "empty key")
	}
	if util.HasTraversal(k) {
		return "", NewError(RetCInvalidOperation, key, "key must not contain '..'")
	}
	return util.JoinKey(s.prefix, k), nil
}

// checkWritable is the single read only guard of all write operations
func (s *Store) checkWritable(key string) error {
	if s.cfg.ReadOnly {
		return NewError(RetCReadOnly, key, fmt.Sprintf("store %s is configured readonly", s.URI()))
	}
	if !s.drv.SupportsFeature(driver.FeatureWrite) {
		return NewError(RetCReadOnly, key, fmt.Sprintf("driver %s does not support writes", s.drv.GetInfo().Type))
	}
	return nil
}

// missing is the single decision point for reads of absent keys.
// It returns nil if the caller should get a nil value instead of an error.
func (s *Store) missing(key string, o callOptions) error {
	if o.raiseOnMissing {
		return NewError(RetCNotFound, key, "key does not exist")
	}
	return nil
}

// track records metrics of a finished operation.
// Not found errors are part of the normal flow and not counted as errors.
func (s *Store) track(op string, started time.Time, err *error) {
	var opErr error
	if err != nil && *err != nil && !errors.Is(*err, ErrNotFound) {
		opErr = *err
	}
	common.CountOp(op, string(s.drv.GetInfo().Type), started, opErr)
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// Get returns the deserialized value of key.
// For missing keys it returns ErrNotFound or (nil, nil), depending on WithRaiseOnMissing.
func (s *Store) Get(ctx context.Context, key string, opts ...Option) (value any, err error) {
	defer s.track("get", time.Now(), &err)

	o, err := s.resolve(opts)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, key, o)
}

func (s *Store) get(ctx context.Context, key string, o callOptions) (any, error) {
	value, _, err := s.load(ctx, key, o)
	return value, err
}

// load reads and decodes key. found is false only if the key does not exist,
// a stored null decodes to a nil value with found set.
func (s *Store) load(ctx context.Context, key string, o callOptions) (value any, found bool, err error) {
	k, err := s.key(key)
	if err != nil {
		return nil, false, err
	}
	data, err := s.drv.Read(ctx, k)
	if errors.Is(err, driver.ErrNotFound) {
		return nil, false, s.missing(key, o)
	}
	if err != nil {
		return nil, false, wrapError(key, err)
	}
	value, err = serialize.FromBytes(data, o.ser)
	if err != nil {
		return nil, true, wrapError(key, err)
	}
	return value, true, nil
}

// GetAs returns the value of key as T.
// Values that were decoded generically (e.g. JSON objects in auto mode) are converted through JSON.
// A missing key without raising yields the zero value of T.
func GetAs[T any](ctx context.Context, s *Store, key string, opts ...Option) (T, error) {
	var zero T
	value, err := s.Get(ctx, key, opts...)
	if err != nil || value == nil {
		return zero, err
	}
	if typed, ok := value.(T); ok {
		return typed, nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return zero, NewError(RetCInvalidValue, key, fmt.Sprintf("value of type %T is not a %T", value, zero))
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, NewError(RetCInvalidValue, key, fmt.Sprintf("value of type %T is not a %T", value, zero))
	}
	return out, nil
}

// Exists reports whether a value is stored for key
func (s *Store) Exists(ctx context.Context, key string) (ok bool, err error) {
	defer s.track("exists", time.Now(), &err)

	k, err := s.key(key)
	if err != nil {
		return false, err
	}
	ok, err = s.drv.Exists(ctx, k)
	return ok, wrapError(key, err)
}

// Info returns the metadata of key. A missing key is always an ErrNotFound.
func (s *Store) Info(ctx context.Context, key string) (stats Stats, err error) {
	defer s.track("info", time.Now(), &err)

	k, err := s.key(key)
	if err != nil {
		return Stats{}, err
	}
	info, err := s.drv.Stat(ctx, k)
	if err != nil {
		return Stats{}, wrapError(key, err)
	}
	rel := util.NormalizeKey(key)
	return Stats{
		Name:      path.Base(rel),
		Store:     s.URI(),
		Key:       rel,
		CreatedAt: info.CreatedAt,
		UpdatedAt: info.UpdatedAt,
		Size:      info.Size,
	}, nil
}

// Stream yields one deserialized value per line of the value stored at key.
// Empty lines are skipped. Missing keys follow the same policy as Get.
func (s *Store) Stream(ctx context.Context, key string, opts ...Option) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		o, err := s.resolve(opts)
		if err != nil {
			yield(nil, err)
			return
		}
		r, err := s.open(ctx, key)
		if errors.Is(err, ErrNotFound) {
			if err := s.missing(key, o); err != nil {
				yield(nil, err)
			}
			return
		}
		if err != nil {
			yield(nil, err)
			return
		}
		defer r.Close()

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := bytes.TrimRight(scanner.Bytes(), "\r")
			if len(line) == 0 {
				continue
			}
			value, err := serialize.FromBytes(util.CopyBytes(line), o.ser)
			if err != nil {
				yield(nil, wrapError(key, err))
				return
			}
			if !yield(value, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(nil, wrapError(key, err))
		}
	}
}

// IterateKeys yields all keys (relative to the store) that match the filter
func (s *Store) IterateKeys(ctx context.Context, f Filter) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		prefix := util.NormalizeKey(f.Prefix)
		exclude := util.NormalizeKey(f.ExcludePrefix)
		if f.Glob != "" && !doublestar.ValidatePattern(f.Glob) {
			yield("", NewError(RetCInvalidValue, f.Glob, "invalid glob pattern"))
			return
		}

		for k, err := range s.drv.ListKeys(ctx, util.JoinKey(s.prefix, prefix)) {
			if err != nil {
				yield("", wrapError(s.URI(), err))
				return
			}
			rel, ok := util.TrimPathPrefix(k, s.prefix)
			if !ok || !util.HasPathPrefix(rel, prefix) {
				continue
			}
			if exclude != "" && util.HasPathPrefix(rel, exclude) {
				continue
			}
			if f.Glob != "" {
				if ok, _ := doublestar.Match(f.Glob, rel); !ok {
					continue
				}
			}
			if !yield(rel, nil) {
				return
			}
		}
	}
}

// IterateValues yields the key and value of all keys matching the filter.
// Keys deleted while iterating are skipped, other errors end the iteration and are logged.
func (s *Store) IterateValues(ctx context.Context, f Filter, opts ...Option) iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		o, err := s.resolve(opts)
		if err != nil {
			Logger.Errorf("iterate values of %s: %v", s.URI(), err)
			return
		}
		o.raiseOnMissing = true

		for key, err := range s.IterateKeys(ctx, f) {
			if err != nil {
				Logger.Errorf("iterate values of %s: %v", s.URI(), err)
				return
			}
			value, err := s.get(ctx, key, o)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				Logger.Errorf("iterate values of %s: %v", s.URI(), err)
				return
			}
			if !yield(key, value) {
				return
			}
		}
	}
}

// Open returns a reader for the raw value of key. A missing key is always an ErrNotFound.
func (s *Store) Open(ctx context.Context, key string) (r io.ReadCloser, err error) {
	defer s.track("open", time.Now(), &err)
	return s.open(ctx, key)
}

func (s *Store) open(ctx context.Context, key string) (io.ReadCloser, error) {
	k, err := s.key(key)
	if err != nil {
		return nil, err
	}
	r, err := s.drv.OpenReader(ctx, k)
	if err != nil {
		return nil, wrapError(key, err)
	}
	return r, nil
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Put serializes value and stores it at key.
// The ttl is taken from WithTTL or the store DefaultTTL, drivers without TTL support ignore it.
func (s *Store) Put(ctx context.Context, key string, value any, opts ...Option) (err error) {
	defer s.track("put", time.Now(), &err)

	if err := s.checkWritable(key); err != nil {
		return err
	}
	o, err := s.resolve(opts)
	if err != nil {
		return err
	}
	k, err := s.key(key)
	if err != nil {
		return err
	}
	data, err := serialize.ToBytes(value, o.ser)
	if err != nil {
		return wrapError(key, err)
	}
	if o.ttl > 0 && !s.drv.SupportsFeature(driver.FeatureTTL) {
		Logger.Debugf("ttl for %s ignored by %s driver", key, s.drv.GetInfo().Type)
	}
	return wrapError(key, s.drv.Write(ctx, k, data, o.ttl))
}

// Pop returns the value of key and deletes it
func (s *Store) Pop(ctx context.Context, key string, opts ...Option) (value any, err error) {
	defer s.track("pop", time.Now(), &err)

	if err := s.checkWritable(key); err != nil {
		return nil, err
	}
	o, err := s.resolve(opts)
	if err != nil {
		return nil, err
	}
	k, err := s.key(key)
	if err != nil {
		return nil, err
	}
	value, found, err := s.load(ctx, key, o)
	if err != nil || !found {
		return value, err
	}
	if err := s.drv.Delete(ctx, k); err != nil {
		return nil, wrapError(key, err)
	}
	return value, nil
}

// Delete removes key. Deleting a missing key is not an error.
// With IgnoreErrors, errors of the medium are logged instead of returned.
func (s *Store) Delete(ctx context.Context, key string, opts ...Option) (err error) {
	defer s.track("delete", time.Now(), &err)

	if err := s.checkWritable(key); err != nil {
		return err
	}
	o, err := s.resolve(opts)
	if err != nil {
		return err
	}
	k, err := s.key(key)
	if err != nil {
		return err
	}
	err = wrapError(key, s.drv.Delete(ctx, k))
	if err != nil && o.ignoreErrors && !errors.Is(err, ErrReadOnly) {
		Logger.Warningf("ignored error: %v", err)
		return nil
	}
	return err
}

// Touch stores the current time at key and returns it.
// Drivers that can not overwrite only get the timestamp if the key is absent.
func (s *Store) Touch(ctx context.Context, key string, opts ...Option) (now time.Time, err error) {
	defer s.track("touch", time.Now(), &err)

	if err := s.checkWritable(key); err != nil {
		return time.Time{}, err
	}
	now = time.Now()
	if !s.drv.SupportsFeature(driver.FeatureOverwrite) {
		ok, err := s.Exists(ctx, key)
		if err != nil {
			return time.Time{}, err
		}
		if ok {
			return now, nil
		}
	}
	return now, s.Put(ctx, key, now, opts...)
}

// Create returns a writer for the raw value of key. The value is stored when the
// writer is closed, Abort discards it.
func (s *Store) Create(ctx context.Context, key string) (w *Writer, err error) {
	defer s.track("create", time.Now(), &err)

	if err := s.checkWritable(key); err != nil {
		return nil, err
	}
	k, err := s.key(key)
	if err != nil {
		return nil, err
	}
	dw, err := s.drv.OpenWriter(ctx, k)
	if err != nil {
		return nil, wrapError(key, err)
	}
	return &Writer{w: dw, key: key}, nil
}

// Writer is the raw value writer returned by Create.
// It maps the errors of the driver writer onto store errors.
type Writer struct {
	w   io.WriteCloser
	key string
}

func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	return n, wrapError(w.key, err)
}

// Close commits the value
func (w *Writer) Close() error {
	return wrapError(w.key, w.w.Close())
}

// Abort discards the written data, the stored value (if any) stays as it was.
// Writers of drivers without abort support are closed instead.
func (w *Writer) Abort() error {
	if a, ok := w.w.(driver.Aborter); ok {
		return wrapError(w.key, a.Abort())
	}
	Logger.Warningf("driver writer for %s can not abort, closing it", w.key)
	return wrapError(w.key, w.w.Close())
}

// --------------------------------------------------------------------------
// Store Views and Metadata
// --------------------------------------------------------------------------

// Sub returns a view on the keys below p. The view shares the driver of s.
func (s *Store) Sub(p string) (*Store, error) {
	rel := util.NormalizeKey(p)
	if util.HasTraversal(rel) {
		return nil, NewError(RetCInvalidOperation, p, "sub path must not contain '..'")
	}
	if rel == "" {
		return s, nil
	}
	cfg := s.cfg
	cfg.URI = joinURI(s.cfg.URI, rel)
	return &Store{
		cfg:    cfg,
		drv:    s.drv,
		prefix: util.JoinKey(s.prefix, rel),
	}, nil
}

// URI returns the normalized uri of the store
func (s *Store) URI() string {
	return s.cfg.URI
}

// Config returns a copy of the store config
func (s *Store) Config() Config {
	cfg := s.cfg
	if cfg.BackendConfig != nil {
		cfg.BackendConfig = make(map[string]string, len(s.cfg.BackendConfig))
		for k, v := range s.cfg.BackendConfig {
			cfg.BackendConfig[k] = v
		}
	}
	return cfg
}

// Driver returns the information of the underlying driver
func (s *Store) Driver() driver.DriverInfo {
	return s.drv.GetInfo()
}

// SupportsFeature reports whether the driver supports the features
func (s *Store) SupportsFeature(feature driver.Feature) bool {
	return s.drv.SupportsFeature(feature)
}

// Close releases the driver. Sub stores do not close the shared driver.
func (s *Store) Close() error {
	if !s.owner {
		return nil
	}
	return s.drv.Close()
}

func (s *Store) String() string {
	return fmt.Sprintf("Store(%s)", s.cfg.URI)
}
