package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/ValentinKolb/anyKV/lib/common"
)

// Registry caches one open store per normalized config
type Registry struct {
	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]*Store)}
}

// funcID identifies a function value, nil functions map to 0
func funcID(fn any) uintptr {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.IsNil() {
		return 0
	}
	return v.Pointer()
}

// cacheKey renders a normalized config into a comparable string
func cacheKey(cfg Config) string {
	backend := make([]string, 0, len(cfg.BackendConfig))
	for k, v := range cfg.BackendConfig {
		backend = append(backend, k+"="+v)
	}
	sort.Strings(backend)
	return fmt.Sprintf("%s|%s|%d|%t|%t|%x|%x|%T:%v|%s",
		cfg.URI, cfg.Mode, cfg.DefaultTTL, cfg.RaiseOnMissing, cfg.ReadOnly,
		funcID(cfg.Serialize), funcID(cfg.Deserialize), cfg.Model, cfg.Model,
		strings.Join(backend, ","))
}

// Get returns the store for cfg, opening it on first use
func (r *Registry) Get(ctx context.Context, cfg Config) (*Store, error) {
	uri, err := NormalizeURI(cfg.URI)
	if err != nil {
		return nil, err
	}
	cfg.URI = uri
	key := cacheKey(cfg)

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[key]; ok {
		return s, nil
	}
	s, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	r.stores[key] = s
	return s, nil
}

// Len returns the number of open stores
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Reset closes all stores and empties the registry
func (r *Registry) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for key, s := range r.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.URI(), err))
		}
		delete(r.stores, key)
	}
	return errors.Join(errs...)
}

// --------------------------------------------------------------------------
// Default Registry
// --------------------------------------------------------------------------

// DefaultRegistry is used by FromConfig and FromEnv
var DefaultRegistry = NewRegistry()

// FromConfig returns the store for cfg from the default registry
func FromConfig(ctx context.Context, cfg Config) (*Store, error) {
	return DefaultRegistry.Get(ctx, cfg)
}

// FromEnv returns the store configured by the ANYKV_* environment from the default registry
func FromEnv(ctx context.Context) (*Store, error) {
	cfg, err := FromSettings(common.LoadSettings())
	if err != nil {
		return nil, err
	}
	return FromConfig(ctx, cfg)
}
