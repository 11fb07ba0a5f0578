package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/anyKV/lib/driver"
	drivertesting "github.com/ValentinKolb/anyKV/lib/driver/testing"
	"github.com/spf13/afero"
)

func TestFSDriver(t *testing.T) {
	drivertesting.RunDriverTests(t, "fs", func(t *testing.T) driver.Driver {
		d, err := NewFSDriver(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		return d
	}, nil)
}

func TestMemMapFSDriver(t *testing.T) {
	drivertesting.RunDriverTests(t, "fs(memmap)", func(t *testing.T) driver.Driver {
		return NewFSDriverOn(afero.NewMemMapFs(), "memmap")
	}, nil)
}

func TestFilesOnDisk(t *testing.T) {
	root := t.TempDir()
	d, err := NewFSDriver(root)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := d.Write(ctx, "a/b/c.txt", []byte("content"), 0); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(root, "a", "b", "c.txt"))
	if err != nil || string(data) != "content" {
		t.Errorf("Expected file on disk, got %q (err=%v)", data, err)
	}

	// directories are not keys
	if ok, _ := d.Exists(ctx, "a/b"); ok {
		t.Errorf("Expected directory not to be a key")
	}

	// hidden files are skipped while listing
	_ = os.WriteFile(filepath.Join(root, "a", ".hidden"), []byte("x"), 0o644)
	count := 0
	for key, err := range d.ListKeys(ctx, "") {
		if err != nil {
			t.Fatal(err)
		}
		if key != "a/b/c.txt" {
			t.Errorf("Unexpected key %s", key)
		}
		count++
	}
	if count != 1 {
		t.Errorf("Expected exactly one key, got %d", count)
	}
}
