package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/ValentinKolb/anyKV/lib/driver/util"
	"github.com/ValentinKolb/anyKV/lib/serialize"
	"github.com/google/uuid"
)

// Virtual is a temporary local store for processing values of other stores as files
type Virtual struct {
	Dir   string
	Store *Store
}

// NewVirtual creates a fresh temporary directory and a raw mode store on it.
// An empty prefix defaults to "anykv-".
func NewVirtual(ctx context.Context, prefix string) (*Virtual, error) {
	if prefix == "" {
		prefix = "anykv-"
	}
	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		return nil, fmt.Errorf("create virtual store: %w", err)
	}
	cfg := DefaultConfig(dir)
	cfg.Mode = serialize.ModeRaw
	s, err := New(ctx, cfg)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	return &Virtual{Dir: dir, Store: s}, nil
}

// Download copies the value of key from src into the virtual store.
// It returns the new (random) key, which keeps the extension of the source key.
func (v *Virtual) Download(ctx context.Context, src *Store, key string) (string, error) {
	ext := path.Ext(util.NormalizeKey(key))
	if ext == "" {
		ext = ".lfc"
	}
	local := uuid.NewString() + ext

	r, err := src.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer r.Close()

	w, err := v.Store.Create(ctx, local)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Abort()
		return "", wrapError(key, err)
	}
	if err := w.Close(); err != nil {
		return "", wrapError(local, err)
	}
	return local, nil
}

// Path returns the local file path of a key
func (v *Virtual) Path(key string) string {
	return filepath.Join(v.Dir, filepath.FromSlash(util.NormalizeKey(key)))
}

// Cleanup removes the given keys, or the whole directory if no key is given
func (v *Virtual) Cleanup(keys ...string) error {
	if len(keys) == 0 {
		_ = v.Store.Close()
		return os.RemoveAll(v.Dir)
	}
	for _, key := range keys {
		if err := os.RemoveAll(v.Path(key)); err != nil {
			return err
		}
	}
	return nil
}
