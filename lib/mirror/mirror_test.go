package mirror

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/anyKV/lib/driver"
	"github.com/ValentinKolb/anyKV/lib/driver/engines/memory"
	"github.com/ValentinKolb/anyKV/lib/serialize"
	"github.com/ValentinKolb/anyKV/lib/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixtures = map[string]string{
	"lorem.txt":          "Lorem ipsum dolor sit amet",
	"data.json":          `{"a": 1}`,
	"nested/one.txt":     "one",
	"nested/deep/two.md": "two",
	"subdir/lorem.txt":   "Lorem ipsum dolor sit amet",
	"other/three.csv":    "a,b\n1,2\n",
}

func openStore(t *testing.T, uri string) *store.Store {
	t.Helper()
	s, err := store.NewFromURI(context.Background(), uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sourceStore(t *testing.T) *store.Store {
	s := openStore(t, "memory://"+t.Name())
	for key, value := range fixtures {
		require.NoError(t, s.Put(context.Background(), key, []byte(value), store.WithMode(serialize.ModeRaw)))
	}
	return s
}

func countKeys(t *testing.T, s *store.Store) int {
	n := 0
	for _, err := range s.IterateKeys(context.Background(), store.Filter{}) {
		require.NoError(t, err)
		n++
	}
	return n
}

func TestMirror(t *testing.T) {
	ctx := context.Background()
	source := sourceStore(t)
	target := openStore(t, filepath.Join(t.TempDir(), "1"))

	result, err := Mirror(ctx, source, target, Options{Threads: 4})
	require.NoError(t, err)
	assert.EqualValues(t, 6, result.Mirrored())
	assert.EqualValues(t, 0, result.Skipped())
	assert.EqualValues(t, 6, result.Done)
	assert.Equal(t, 6, countKeys(t, target))

	want, err := source.Get(ctx, "lorem.txt")
	require.NoError(t, err)
	got, err := target.Get(ctx, "lorem.txt")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	result, err = Mirror(ctx, source, target, Options{Threads: 4})
	require.NoError(t, err)
	assert.EqualValues(t, 0, result.Mirrored())
	assert.EqualValues(t, 6, result.Skipped())

	result, err = Mirror(ctx, source, target, Options{Threads: 4, Overwrite: true})
	require.NoError(t, err)
	assert.EqualValues(t, 6, result.Mirrored())
	assert.EqualValues(t, 0, result.Skipped())
}

func TestMirrorFilter(t *testing.T) {
	ctx := context.Background()
	source := sourceStore(t)

	target := openStore(t, filepath.Join(t.TempDir(), "2"))
	result, err := Mirror(ctx, source, target, Options{Prefix: "subdir"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Mirrored())
	assert.Equal(t, 1, countKeys(t, target))

	want, err := source.Get(ctx, "lorem.txt")
	require.NoError(t, err)
	got, err := target.Get(ctx, "subdir/lorem.txt")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	target = openStore(t, "memory://glob")
	result, err = Mirror(ctx, source, target, Options{Glob: "**/*.txt", ExcludePrefix: "subdir"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.Mirrored())
	ok, err := target.Exists(ctx, "nested/one.txt")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMirrorIntoArchive(t *testing.T) {
	ctx := context.Background()
	source := sourceStore(t)
	target := openStore(t, filepath.Join(t.TempDir(), "mirror.zip"))

	result, err := Mirror(ctx, source, target, Options{Threads: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 6, result.Mirrored())

	// existing entries can not be replaced in an archive
	result, err = Mirror(ctx, source, target, Options{Threads: 2, Overwrite: true})
	assert.ErrorIs(t, err, store.ErrReadOnly)
	assert.EqualValues(t, 6, result.Errors)
	assert.EqualValues(t, 0, result.Mirrored())
}

func TestMirrorReadOnlyTarget(t *testing.T) {
	ctx := context.Background()
	source := sourceStore(t)

	cfg := store.DefaultConfig("memory://readonly")
	cfg.ReadOnly = true
	target, err := store.New(ctx, cfg)
	require.NoError(t, err)

	result, err := Mirror(ctx, source, target, Options{})
	assert.ErrorIs(t, err, store.ErrReadOnly)
	assert.EqualValues(t, 6, result.Errors)
}

// brokenDriver fails in the middle of reading the value of one key
type brokenDriver struct {
	driver.Driver
	key string
}

var errConnectionReset = errors.New("connection reset")

func (d *brokenDriver) OpenReader(ctx context.Context, key string) (io.ReadCloser, error) {
	if key != d.key {
		return d.Driver.OpenReader(ctx, key)
	}
	r := io.MultiReader(
		io.LimitReader(&repeatReader{b: 'x'}, 4096),
		&failingReader{err: errConnectionReset},
	)
	return io.NopCloser(r), nil
}

type repeatReader struct{ b byte }

func (r *repeatReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.b
	}
	return len(p), nil
}

type failingReader struct{ err error }

func (r *failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestMirrorBrokenSource(t *testing.T) {
	targets := map[string]func(t *testing.T) *store.Store{
		"memory": func(t *testing.T) *store.Store { return openStore(t, "memory://"+t.Name()) },
		"fs":     func(t *testing.T) *store.Store { return openStore(t, filepath.Join(t.TempDir(), "target")) },
	}

	for name, newTarget := range targets {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			drv := &brokenDriver{Driver: memory.NewMemoryDriver("broken"), key: "broken.bin"}
			source := store.NewWithDriver(store.DefaultConfig("memory://broken"), drv)
			t.Cleanup(func() { _ = source.Close() })
			for key, value := range fixtures {
				require.NoError(t, source.Put(ctx, key, []byte(value), store.WithMode(serialize.ModeRaw)))
			}
			require.NoError(t, source.Put(ctx, "broken.bin", []byte("complete value"), store.WithMode(serialize.ModeRaw)))

			target := newTarget(t)
			result, err := Mirror(ctx, source, target, Options{Threads: 2})
			require.Error(t, err)
			assert.ErrorIs(t, err, errConnectionReset)
			assert.EqualValues(t, 6, result.Mirrored())
			assert.EqualValues(t, 1, result.Errors)

			// the partial value must not be committed
			ok, err := target.Exists(ctx, "broken.bin")
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, 6, countKeys(t, target))

			// a rerun copies the key again instead of skipping it
			result, err = Mirror(ctx, source, target, Options{Threads: 2})
			require.Error(t, err)
			assert.EqualValues(t, 0, result.Mirrored())
			assert.EqualValues(t, 6, result.Skipped())
			assert.EqualValues(t, 1, result.Errors)
		})
	}
}
