package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ValentinKolb/anyKV/lib/driver"
	"github.com/spf13/afero"
)

const supported = driver.FeatureWrite |
	driver.FeatureRead |
	driver.FeatureOverwrite |
	driver.FeatureDelete |
	driver.FeatureNativeStream

// fsImpl implements driver.Driver on a directory tree.
// Every key maps to one file below the root, "/" in keys become directory separators.
type fsImpl struct {
	location string
	fs       afero.Fs
}

// NewFSDriver creates a driver rooted at the local directory root.
// The directory is created if it does not exist.
func NewFSDriver(root string) (driver.Driver, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create root %s: %w", root, err)
	}
	return NewFSDriverOn(afero.NewBasePathFs(osFs, root), root), nil
}

// NewFSDriverOn creates a driver on an arbitrary afero filesystem.
// Paths are used as they are, wrap the filesystem in an afero.BasePathFs to confine it.
func NewFSDriverOn(fs afero.Fs, location string) driver.Driver {
	return &fsImpl{location: location, fs: fs}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func toPath(key string) string {
	return filepath.FromSlash(key)
}

func isNotExist(err error) bool {
	return errors.Is(err, iofs.ErrNotExist) || os.IsNotExist(err)
}

// statFile returns the file info for a key, directories count as missing
func (d *fsImpl) statFile(key string) (os.FileInfo, error) {
	fi, err := d.fs.Stat(toPath(key))
	if err != nil {
		if isNotExist(err) {
			return nil, driver.ErrNotFound
		}
		return nil, err
	}
	if fi.IsDir() {
		return nil, driver.ErrNotFound
	}
	return fi, nil
}

// createTemp creates a hidden temporary file next to the target key
func (d *fsImpl) createTemp(key string) (afero.File, error) {
	// an empty dir would make afero fall back to os.TempDir
	dir := path.Dir(key)
	if dir != "." {
		if err := d.fs.MkdirAll(toPath(dir), 0o755); err != nil {
			return nil, err
		}
	}
	return afero.TempFile(d.fs, toPath(dir), "."+path.Base(key)+".tmp-*")
}

// atomicFile renames the temporary file onto the target when it is closed
type atomicFile struct {
	afero.File
	fs     afero.Fs
	target string
	done   bool
}

func (f *atomicFile) Close() error {
	if f.done {
		return nil
	}
	f.done = true
	if err := f.File.Close(); err != nil {
		_ = f.fs.Remove(f.File.Name())
		return err
	}
	if err := f.fs.Rename(f.File.Name(), f.target); err != nil {
		_ = f.fs.Remove(f.File.Name())
		return err
	}
	return nil
}

// Abort removes the temp file, the target stays untouched
func (f *atomicFile) Abort() error {
	if f.done {
		return nil
	}
	f.done = true
	_ = f.File.Close()
	return f.fs.Remove(f.File.Name())
}

// --------------------------------------------------------------------------
// Interface Methods (docu see driver.Driver)
// --------------------------------------------------------------------------

func (d *fsImpl) Write(ctx context.Context, key string, value []byte, _ time.Duration) error {
	tmp, err := d.createTemp(key)
	if err != nil {
		return err
	}
	w := &atomicFile{File: tmp, fs: d.fs, target: toPath(key)}
	if _, err := w.Write(value); err != nil {
		_ = w.Abort()
		return err
	}
	return w.Close()
}

func (d *fsImpl) Read(_ context.Context, key string) ([]byte, error) {
	if _, err := d.statFile(key); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(d.fs, toPath(key))
	if isNotExist(err) {
		return nil, driver.ErrNotFound
	}
	return data, err
}

func (d *fsImpl) Delete(_ context.Context, key string) error {
	if err := d.fs.Remove(toPath(key)); err != nil && !isNotExist(err) {
		return err
	}
	return nil
}

func (d *fsImpl) Exists(_ context.Context, key string) (bool, error) {
	_, err := d.statFile(key)
	if errors.Is(err, driver.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (d *fsImpl) Stat(_ context.Context, key string) (driver.Info, error) {
	fi, err := d.statFile(key)
	if err != nil {
		return driver.Info{}, err
	}
	updated := fi.ModTime()
	return driver.Info{UpdatedAt: &updated, Size: fi.Size()}, nil
}

func (d *fsImpl) OpenReader(_ context.Context, key string) (io.ReadCloser, error) {
	if _, err := d.statFile(key); err != nil {
		return nil, err
	}
	f, err := d.fs.Open(toPath(key))
	if isNotExist(err) {
		return nil, driver.ErrNotFound
	}
	return f, err
}

func (d *fsImpl) OpenWriter(_ context.Context, key string) (io.WriteCloser, error) {
	tmp, err := d.createTemp(key)
	if err != nil {
		return nil, err
	}
	return &atomicFile{File: tmp, fs: d.fs, target: toPath(key)}, nil
}

// ListKeys walks the directory tree below the prefix. Hidden files and
// directories (including temporary files of running writes) are skipped.
func (d *fsImpl) ListKeys(_ context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		root := prefix
		if fi, err := d.fs.Stat(toPath(prefix)); err != nil || !fi.IsDir() {
			root = path.Dir(prefix)
			if root == "." {
				root = ""
			}
		}

		stopped := false
		err := afero.Walk(d.fs, toPath(root), func(p string, info os.FileInfo, err error) error {
			if err != nil {
				if isNotExist(err) {
					return nil
				}
				return err
			}
			key := strings.Trim(filepath.ToSlash(p), "/")
			hidden := strings.HasPrefix(info.Name(), ".")
			if info.IsDir() {
				if hidden && key != root && key != "" {
					return filepath.SkipDir
				}
				return nil
			}
			if hidden || !strings.HasPrefix(key, prefix) {
				return nil
			}
			if !yield(key, nil) {
				stopped = true
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil && !stopped && !errors.Is(err, filepath.SkipAll) {
			yield("", err)
		}
	}
}

func (d *fsImpl) SupportsFeature(feature driver.Feature) bool {
	return feature&supported == feature
}

func (d *fsImpl) GetInfo() driver.DriverInfo {
	return driver.DriverInfo{
		Type:              driver.ImplFS,
		Location:          d.location,
		SupportedFeatures: driver.Features(supported),
	}
}

func (d *fsImpl) Close() error {
	return nil
}
