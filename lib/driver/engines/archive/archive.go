package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"iter"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/anyKV/lib/driver"
	"github.com/ValentinKolb/anyKV/lib/driver/util"
	"github.com/spf13/afero"
)

const supported = driver.FeatureWrite |
	driver.FeatureRead |
	driver.FeatureNativeStream

// container is one opened version of the zip file.
// Open readers keep it alive after a write replaced the file.
type container struct {
	file   afero.File // nil for an archive that does not exist yet
	reader *zip.Reader
	index  map[string]*zip.File
	refs   int
	stale  bool
}

func (c *container) close() {
	if c.file != nil {
		_ = c.file.Close()
	}
}

// archiveImpl implements an append-only driver.Driver on a single zip file.
// The container is opened lazily on first access and reopened after every write.
type archiveImpl struct {
	fs   afero.Fs
	path string

	mu      sync.Mutex
	current *container
}

// NewArchiveDriver creates a driver for the zip file at path on the local filesystem.
// The file is created on the first write.
func NewArchiveDriver(path string) driver.Driver {
	return NewArchiveDriverOn(afero.NewOsFs(), path)
}

// NewArchiveDriverOn creates a driver for the zip file at path on fs
func NewArchiveDriverOn(fs afero.Fs, path string) driver.Driver {
	return &archiveImpl{fs: fs, path: path}
}

// IsArchive reports whether a path or uri names a zip archive
func IsArchive(uri string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimRight(uri, "/")), ".zip")
}

// --------------------------------------------------------------------------
// Container Handling
// --------------------------------------------------------------------------

// load returns the current container and opens it if necessary.
// A missing file is treated as an empty archive.
//
// Thread-safety: the caller must hold a.mu.
func (a *archiveImpl) load() (*container, error) {
	if a.current != nil {
		return a.current, nil
	}

	c := &container{index: map[string]*zip.File{}}
	f, err := a.fs.Open(a.path)
	if errors.Is(err, iofs.ErrNotExist) {
		a.current = c
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r, err := zip.NewReader(f, fi.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open archive %s: %w", a.path, err)
	}

	c.file = f
	c.reader = r
	for _, entry := range r.File {
		if !strings.HasSuffix(entry.Name, "/") {
			c.index[entry.Name] = entry
		}
	}
	a.current = c
	return c, nil
}

// invalidate drops the current container, it is closed once no reader uses it anymore
//
// Thread-safety: the caller must hold a.mu.
func (a *archiveImpl) invalidate() {
	if a.current == nil {
		return
	}
	a.current.stale = true
	if a.current.refs == 0 {
		a.current.close()
	}
	a.current = nil
}

func (a *archiveImpl) release(c *container) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c.refs--
	if c.stale && c.refs == 0 {
		c.close()
	}
}

// lookup returns the directory entry for a key
func (a *archiveImpl) lookup(key string) (*zip.File, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, err := a.load()
	if err != nil {
		return nil, err
	}
	entry, ok := c.index[key]
	if !ok {
		return nil, driver.ErrNotFound
	}
	return entry, nil
}

// appendEntry rebuilds the container with one additional entry.
// Existing entries are copied without recompression, then the new file
// is renamed over the old one.
func (a *archiveImpl) appendEntry(key string, value []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := a.load()
	if err != nil {
		return err
	}
	if _, ok := c.index[key]; ok {
		return fmt.Errorf("%w: %s already exists in archive %s", driver.ErrReadOnly, key, a.path)
	}

	dir := filepath.Dir(a.path)
	if err := a.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := afero.TempFile(a.fs, dir, "."+filepath.Base(a.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = a.fs.Remove(tmpName)
		return err
	}

	w := zip.NewWriter(tmp)
	if c.reader != nil {
		for _, entry := range c.reader.File {
			if err := w.Copy(entry); err != nil {
				return fail(err)
			}
		}
	}
	entryWriter, err := w.CreateHeader(&zip.FileHeader{
		Name:     key,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return fail(err)
	}
	if _, err := entryWriter.Write(value); err != nil {
		return fail(err)
	}
	if err := w.Close(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = a.fs.Remove(tmpName)
		return err
	}
	if err := a.fs.Rename(tmpName, a.path); err != nil {
		_ = a.fs.Remove(tmpName)
		return err
	}

	a.invalidate()
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see driver.Driver)
// --------------------------------------------------------------------------

func (a *archiveImpl) Write(_ context.Context, key string, value []byte, _ time.Duration) error {
	return a.appendEntry(key, value)
}

func (a *archiveImpl) Read(ctx context.Context, key string) ([]byte, error) {
	r, err := a.OpenReader(ctx, key)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Delete is not supported, archives are append-only
func (a *archiveImpl) Delete(_ context.Context, key string) error {
	return fmt.Errorf("%w: can not delete %s from archive %s", driver.ErrReadOnly, key, a.path)
}

func (a *archiveImpl) Exists(_ context.Context, key string) (bool, error) {
	_, err := a.lookup(key)
	if errors.Is(err, driver.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (a *archiveImpl) Stat(_ context.Context, key string) (driver.Info, error) {
	entry, err := a.lookup(key)
	if err != nil {
		return driver.Info{}, err
	}
	modified := entry.Modified
	return driver.Info{UpdatedAt: &modified, Size: int64(entry.UncompressedSize64)}, nil
}

func (a *archiveImpl) OpenReader(_ context.Context, key string) (io.ReadCloser, error) {
	a.mu.Lock()
	c, err := a.load()
	if err != nil {
		a.mu.Unlock()
		return nil, err
	}
	entry, ok := c.index[key]
	if !ok {
		a.mu.Unlock()
		return nil, driver.ErrNotFound
	}
	c.refs++
	a.mu.Unlock()

	rc, err := entry.Open()
	if err != nil {
		a.release(c)
		return nil, err
	}
	return &entryReader{ReadCloser: rc, release: func() { a.release(c) }}, nil
}

func (a *archiveImpl) OpenWriter(_ context.Context, key string) (io.WriteCloser, error) {
	if _, err := a.lookup(key); err == nil {
		return nil, fmt.Errorf("%w: %s already exists in archive %s", driver.ErrReadOnly, key, a.path)
	}
	return util.NewFlushWriter(func(data []byte) error {
		return a.appendEntry(key, data)
	}), nil
}

// ListKeys walks the directory of the container in archive order.
// The names are copied first, so writes inside the loop do not conflict with the iteration.
func (a *archiveImpl) ListKeys(_ context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		a.mu.Lock()
		c, err := a.load()
		if err != nil {
			a.mu.Unlock()
			yield("", err)
			return
		}
		var keys []string
		if c.reader != nil {
			for _, entry := range c.reader.File {
				if _, ok := c.index[entry.Name]; ok && strings.HasPrefix(entry.Name, prefix) {
					keys = append(keys, entry.Name)
				}
			}
		}
		a.mu.Unlock()

		for _, key := range keys {
			if !yield(key, nil) {
				return
			}
		}
	}
}

func (a *archiveImpl) SupportsFeature(feature driver.Feature) bool {
	return feature&supported == feature
}

func (a *archiveImpl) GetInfo() driver.DriverInfo {
	return driver.DriverInfo{
		Type:              driver.ImplArchive,
		Location:          a.path,
		SupportedFeatures: driver.Features(supported),
	}
}

func (a *archiveImpl) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.invalidate()
	return nil
}

// entryReader releases its container when closed
type entryReader struct {
	io.ReadCloser
	release func()
	once    sync.Once
}

func (r *entryReader) Close() error {
	err := r.ReadCloser.Close()
	r.once.Do(r.release)
	return err
}
