package testing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/anyKV/lib/driver"
	"github.com/ValentinKolb/anyKV/lib/driver/util"
)

// DriverFactory creates a new, empty driver instance for one test
type DriverFactory func(t *testing.T) driver.Driver

// Clock advances the time seen by a driver. Drivers backed by a fake server
// (e.g. miniredis) pass a function that fast-forwards the server clock.
type Clock func(d time.Duration)

// RunDriverTests runs the conformance suite for a driver implementation.
func RunDriverTests(t *testing.T, name string, factory DriverFactory, clock Clock) {
	if clock == nil {
		clock = time.Sleep
	}

	t.Run(name, func(t *testing.T) {
		t.Run("Write&Read", func(t *testing.T) {
			testWriteRead(t, factory(t))
		})

		t.Run("Missing", func(t *testing.T) {
			testMissing(t, factory(t))
		})

		t.Run("Overwrite", func(t *testing.T) {
			testOverwrite(t, factory(t))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t))
		})

		t.Run("Stat", func(t *testing.T) {
			testStat(t, factory(t))
		})

		t.Run("Streams", func(t *testing.T) {
			testStreams(t, factory(t))
		})

		t.Run("AbortWriter", func(t *testing.T) {
			testAbortWriter(t, factory(t))
		})

		t.Run("ListKeys", func(t *testing.T) {
			testListKeys(t, factory(t))
		})

		t.Run("TTL", func(t *testing.T) {
			testTTL(t, factory(t), clock)
		})

		t.Run("ConcurrentWrites", func(t *testing.T) {
			testConcurrentWrites(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the driver supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, d driver.Driver, feature driver.Feature) {
	if !d.SupportsFeature(feature) {
		t.Skipf("feature %s not supported", feature)
	}
}

func mustWrite(t testing.TB, d driver.Driver, key string, value []byte) {
	t.Helper()
	if err := d.Write(context.Background(), key, value, 0); err != nil {
		t.Fatalf("Write(%s) failed: %v", key, err)
	}
}

func collectKeys(t testing.TB, d driver.Driver, prefix string) []string {
	t.Helper()
	var keys []string
	for key, err := range d.ListKeys(context.Background(), prefix) {
		if err != nil {
			t.Fatalf("ListKeys(%q) failed: %v", prefix, err)
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testWriteRead(t *testing.T, d driver.Driver) {
	defer d.Close()
	ctx := context.Background()

	testKey := "nested/dir/with space.txt"
	testValue := []byte("test-value")

	mustWrite(t, d, testKey, testValue)

	result, err := d.Read(ctx, testKey)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(result, testValue) {
		t.Errorf("Expected value %s, got %s", testValue, result)
	}

	result[0] = 'X'
	again, _ := d.Read(ctx, testKey)
	if !bytes.Equal(again, testValue) {
		t.Errorf("Read should return a copy, not a reference to the stored value")
	}

	ok, err := d.Exists(ctx, testKey)
	if err != nil || !ok {
		t.Errorf("Expected key %s to exist (err=%v)", testKey, err)
	}

	mustWrite(t, d, "empty", []byte{})
	empty, err := d.Read(ctx, "empty")
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected empty value, got %q (err=%v)", empty, err)
	}
}

func testMissing(t *testing.T, d driver.Driver) {
	defer d.Close()
	ctx := context.Background()

	if _, err := d.Read(ctx, "nonexistent-key"); !errors.Is(err, driver.ErrNotFound) {
		t.Errorf("Expected ErrNotFound from Read, got %v", err)
	}
	if _, err := d.Stat(ctx, "nonexistent-key"); !errors.Is(err, driver.ErrNotFound) {
		t.Errorf("Expected ErrNotFound from Stat, got %v", err)
	}
	if _, err := d.OpenReader(ctx, "nonexistent-key"); !errors.Is(err, driver.ErrNotFound) {
		t.Errorf("Expected ErrNotFound from OpenReader, got %v", err)
	}
	if ok, err := d.Exists(ctx, "nonexistent-key"); err != nil || ok {
		t.Errorf("Expected nonexistent key to return exists=false (err=%v)", err)
	}
}

func testOverwrite(t *testing.T, d driver.Driver) {
	defer d.Close()
	ctx := context.Background()

	mustWrite(t, d, "key", []byte("v1"))
	err := d.Write(ctx, "key", []byte("v2"), 0)

	if !d.SupportsFeature(driver.FeatureOverwrite) {
		if !errors.Is(err, driver.ErrReadOnly) {
			t.Errorf("Expected ErrReadOnly when overwriting, got %v", err)
		}
		result, _ := d.Read(ctx, "key")
		if !bytes.Equal(result, []byte("v1")) {
			t.Errorf("Expected original value to survive, got %s", result)
		}
		return
	}

	if err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}
	result, _ := d.Read(ctx, "key")
	if !bytes.Equal(result, []byte("v2")) {
		t.Errorf("Expected value v2, got %s", result)
	}
}

func testDelete(t *testing.T, d driver.Driver) {
	defer d.Close()
	ctx := context.Background()

	mustWrite(t, d, "to-delete", []byte("value"))

	if !d.SupportsFeature(driver.FeatureDelete) {
		if err := d.Delete(ctx, "to-delete"); !errors.Is(err, driver.ErrReadOnly) {
			t.Errorf("Expected ErrReadOnly from Delete, got %v", err)
		}
		return
	}

	if err := d.Delete(ctx, "to-delete"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if ok, _ := d.Exists(ctx, "to-delete"); ok {
		t.Errorf("Key should not exist after Delete")
	}
	if _, err := d.Read(ctx, "to-delete"); !errors.Is(err, driver.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after Delete, got %v", err)
	}
	if err := d.Delete(ctx, "to-delete"); err != nil {
		t.Errorf("Deleting an absent key should not fail, got %v", err)
	}
}

func testStat(t *testing.T, d driver.Driver) {
	defer d.Close()
	ctx := context.Background()

	value := []byte("0123456789")
	mustWrite(t, d, "stat/key", value)

	info, err := d.Stat(ctx, "stat/key")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size != int64(len(value)) {
		t.Errorf("Expected size %d, got %d", len(value), info.Size)
	}
	if d.SupportsFeature(driver.FeatureCreatedAt) && info.CreatedAt == nil {
		t.Errorf("Expected CreatedAt to be set")
	}
	if info.UpdatedAt != nil && time.Since(*info.UpdatedAt) > time.Hour {
		t.Errorf("UpdatedAt %v is not recent", info.UpdatedAt)
	}
}

func testStreams(t *testing.T, d driver.Driver) {
	defer d.Close()
	ctx := context.Background()

	w, err := d.OpenWriter(ctx, "stream/key")
	if err != nil {
		t.Fatalf("OpenWriter failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := fmt.Fprintf(w, "line %d\n", i); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	expected := []byte("line 0\nline 1\nline 2\n")

	r, err := d.OpenReader(ctx, "stream/key")
	if err != nil {
		t.Fatalf("OpenReader failed: %v", err)
	}
	defer r.Close()
	result, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !bytes.Equal(result, expected) {
		t.Errorf("Expected %q, got %q", expected, result)
	}
}

func testAbortWriter(t *testing.T, d driver.Driver) {
	defer d.Close()
	ctx := context.Background()

	w, err := d.OpenWriter(ctx, "aborted")
	if err != nil {
		t.Fatalf("OpenWriter failed: %v", err)
	}
	a, ok := w.(driver.Aborter)
	if !ok {
		t.Fatalf("Writer %T does not implement driver.Aborter", w)
	}
	if _, err := w.Write([]byte("partial")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := a.Abort(); err != nil {
		t.Fatalf("Abort failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close after Abort failed: %v", err)
	}

	if exists, err := d.Exists(ctx, "aborted"); err != nil || exists {
		t.Errorf("Expected aborted key to be absent, got exists=%v err=%v", exists, err)
	}
	if keys := collectKeys(t, d, ""); len(keys) != 0 {
		t.Errorf("Expected no keys after abort, got %v", keys)
	}
}

func testListKeys(t *testing.T, d driver.Driver) {
	defer d.Close()

	for _, key := range []string{"a/1", "a/2", "ab/1", "b/1", "b/c/d"} {
		mustWrite(t, d, key, []byte(key))
	}

	all := collectKeys(t, d, "")
	if !slices.Equal(all, []string{"a/1", "a/2", "ab/1", "b/1", "b/c/d"}) {
		t.Errorf("Unexpected keys %v", all)
	}

	// drivers may return a superset for a prefix, the path prefix must be present
	var below []string
	for _, key := range collectKeys(t, d, "a") {
		if util.HasPathPrefix(key, "a") {
			below = append(below, key)
		}
		if !util.HasPathPrefix(key, "a") && key != "ab/1" {
			t.Errorf("Unexpected key %s for prefix a", key)
		}
	}
	if !slices.Equal(below, []string{"a/1", "a/2"}) {
		t.Errorf("Expected [a/1 a/2], got %v", below)
	}

	if keys := collectKeys(t, d, "b/c"); !slices.Equal(keys, []string{"b/c/d"}) {
		t.Errorf("Expected [b/c/d], got %v", keys)
	}

	if keys := collectKeys(t, d, "missing"); len(keys) != 0 {
		t.Errorf("Expected no keys for unknown prefix, got %v", keys)
	}

	// stopping early must not fail
	for range d.ListKeys(context.Background(), "") {
		break
	}
}

func testTTL(t *testing.T, d driver.Driver, clock Clock) {
	defer d.Close()
	requireFeature(t, d, driver.FeatureTTL)
	ctx := context.Background()

	if err := d.Write(ctx, "expiring", []byte("value"), time.Second); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	mustWrite(t, d, "persistent", []byte("value"))

	if result, err := d.Read(ctx, "expiring"); err != nil || !bytes.Equal(result, []byte("value")) {
		t.Fatalf("Expected value before expiry, got %q (err=%v)", result, err)
	}

	clock(1500 * time.Millisecond)

	if _, err := d.Read(ctx, "expiring"); !errors.Is(err, driver.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after expiry, got %v", err)
	}
	if ok, _ := d.Exists(ctx, "expiring"); ok {
		t.Errorf("Expired key should not exist")
	}
	if ok, _ := d.Exists(ctx, "persistent"); !ok {
		t.Errorf("Key without ttl should never expire")
	}
}

func testConcurrentWrites(t *testing.T, d driver.Driver) {
	defer d.Close()
	ctx := context.Background()

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				key := fmt.Sprintf("concurrent/%d/%d", w, i)
				if err := d.Write(ctx, key, []byte(key), 0); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent write failed: %v", err)
	}

	if keys := collectKeys(t, d, "concurrent"); len(keys) != workers*perWorker {
		t.Errorf("Expected %d keys, got %d", workers*perWorker, len(keys))
	}
}
