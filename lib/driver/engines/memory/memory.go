package memory

import (
	"context"
	"io"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/anyKV/lib/driver"
	"github.com/ValentinKolb/anyKV/lib/driver/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// supported lists the features of the memory driver
const supported = driver.FeatureWrite |
	driver.FeatureRead |
	driver.FeatureOverwrite |
	driver.FeatureDelete |
	driver.FeatureTTL |
	driver.FeatureCreatedAt

// entry is a single stored value
type entry struct {
	value     []byte
	createdAt time.Time
	updatedAt time.Time
	expiresAt time.Time // zero = never
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// memoryImpl implements driver.Driver on top of a concurrent map
type memoryImpl struct {
	name string
	data *xsync.MapOf[string, entry]
	now  func() time.Time

	// deadlines of keys written with a ttl, guarded by gcMu
	gcMu   sync.Mutex
	expiry *util.ExpiryQueue
}

// NewMemoryDriver creates a new empty in-memory driver.
// The map belongs to this driver instance only, two drivers never share data.
//
// Thread-safety: all methods are safe for concurrent use.
func NewMemoryDriver(name string) driver.Driver {
	return &memoryImpl{
		name:   name,
		data:   xsync.NewMapOf[string, entry](),
		now:    time.Now,
		expiry: util.NewExpiryQueue(),
	}
}

// load returns the entry for a key and evicts it if it is expired
func (m *memoryImpl) load(key string) (entry, bool) {
	e, ok := m.data.Load(key)
	if !ok {
		return entry{}, false
	}
	if !e.expired(m.now()) {
		return e, true
	}

	// evict lazily, only if the entry was not replaced in the meantime
	m.evict(key, m.now())
	return entry{}, false
}

// evict removes a key if its entry is (still) expired
func (m *memoryImpl) evict(key string, now time.Time) {
	m.data.Compute(key, func(old entry, loaded bool) (entry, bool) {
		return old, !loaded || old.expired(now)
	})
}

// schedule updates the deadline of a key and evicts all keys that are past their deadline.
// A zero deadline removes the key from the queue.
func (m *memoryImpl) schedule(key string, expiresAt time.Time) {
	now := m.now()

	m.gcMu.Lock()
	if expiresAt.IsZero() {
		m.expiry.Remove(key)
	} else {
		m.expiry.Schedule(key, expiresAt)
	}
	expired := m.expiry.PopExpired(now)
	m.gcMu.Unlock()

	for _, k := range expired {
		m.evict(k, now)
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see driver.Driver)
// --------------------------------------------------------------------------

func (m *memoryImpl) Write(_ context.Context, key string, value []byte, ttl time.Duration) error {
	now := m.now()
	valueCopy := util.CopyBytes(value)
	if valueCopy == nil {
		valueCopy = []byte{}
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}

	m.data.Compute(key, func(old entry, loaded bool) (entry, bool) {
		e := entry{value: valueCopy, createdAt: now, updatedAt: now, expiresAt: expiresAt}
		if loaded && !old.expired(now) {
			e.createdAt = old.createdAt
		}
		return e, false
	})
	m.schedule(key, expiresAt)
	return nil
}

func (m *memoryImpl) Read(_ context.Context, key string) ([]byte, error) {
	e, ok := m.load(key)
	if !ok {
		return nil, driver.ErrNotFound
	}
	return util.CopyBytes(e.value), nil
}

func (m *memoryImpl) Delete(_ context.Context, key string) error {
	m.data.Delete(key)
	m.schedule(key, time.Time{})
	return nil
}

func (m *memoryImpl) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.load(key)
	return ok, nil
}

func (m *memoryImpl) Stat(_ context.Context, key string) (driver.Info, error) {
	e, ok := m.load(key)
	if !ok {
		return driver.Info{}, driver.ErrNotFound
	}
	created, updated := e.createdAt, e.updatedAt
	return driver.Info{
		CreatedAt: &created,
		UpdatedAt: &updated,
		Size:      int64(len(e.value)),
	}, nil
}

func (m *memoryImpl) OpenReader(ctx context.Context, key string) (io.ReadCloser, error) {
	data, err := m.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	return util.NewBufferedReader(data), nil
}

func (m *memoryImpl) OpenWriter(ctx context.Context, key string) (io.WriteCloser, error) {
	return util.NewFlushWriter(func(data []byte) error {
		return m.Write(ctx, key, data, 0)
	}), nil
}

func (m *memoryImpl) ListKeys(_ context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		now := m.now()
		m.data.Range(func(key string, e entry) bool {
			if !strings.HasPrefix(key, prefix) || e.expired(now) {
				return true
			}
			return yield(key, nil)
		})
	}
}

func (m *memoryImpl) SupportsFeature(feature driver.Feature) bool {
	return feature&supported == feature
}

func (m *memoryImpl) GetInfo() driver.DriverInfo {
	return driver.DriverInfo{
		Type:              driver.ImplMemory,
		Location:          m.name,
		SupportedFeatures: driver.Features(supported),
	}
}

func (m *memoryImpl) Close() error {
	m.data.Clear()
	m.gcMu.Lock()
	m.expiry = util.NewExpiryQueue()
	m.gcMu.Unlock()
	return nil
}
