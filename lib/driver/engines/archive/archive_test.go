package archive

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/anyKV/lib/driver"
	drivertesting "github.com/ValentinKolb/anyKV/lib/driver/testing"
	"github.com/spf13/afero"
)

func TestArchiveDriver(t *testing.T) {
	drivertesting.RunDriverTests(t, "archive", func(t *testing.T) driver.Driver {
		return NewArchiveDriver(filepath.Join(t.TempDir(), "store.zip"))
	}, nil)
}

func TestArchiveDriverMemMap(t *testing.T) {
	drivertesting.RunDriverTests(t, "archive(memmap)", func(t *testing.T) driver.Driver {
		return NewArchiveDriverOn(afero.NewMemMapFs(), "/data/store.zip")
	}, nil)
}

func TestArchiveIsValidZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.zip")
	d := NewArchiveDriver(path)
	defer d.Close()
	ctx := context.Background()

	_ = d.Write(ctx, "a.txt", []byte("a"), 0)
	_ = d.Write(ctx, "dir/b.txt", []byte("b"), 0)

	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("Expected a valid zip file: %v", err)
	}
	defer r.Close()
	if len(r.File) != 2 || r.File[0].Name != "a.txt" || r.File[1].Name != "dir/b.txt" {
		t.Errorf("Unexpected archive content")
	}
}

func TestOpenReaderSurvivesWrite(t *testing.T) {
	d := NewArchiveDriver(filepath.Join(t.TempDir(), "store.zip"))
	defer d.Close()
	ctx := context.Background()

	_ = d.Write(ctx, "first", []byte("first value"), 0)

	r, err := d.OpenReader(ctx, "first")
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Write(ctx, "second", []byte("second value"), 0); err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(r)
	_ = r.Close()
	if err != nil || string(data) != "first value" {
		t.Errorf("Expected open reader to keep working, got %q (err=%v)", data, err)
	}

	if _, err := d.OpenWriter(ctx, "second"); !errors.Is(err, driver.ErrReadOnly) {
		t.Errorf("Expected ErrReadOnly for an existing key, got %v", err)
	}
}

func TestIsArchive(t *testing.T) {
	for uri, want := range map[string]bool{
		"data.zip":              true,
		"file:///tmp/DATA.ZIP":  true,
		"s3://bucket/store.zip": true,
		"file:///tmp/data":      false,
		"zipfile":               false,
	} {
		if got := IsArchive(uri); got != want {
			t.Errorf("IsArchive(%s) = %v, want %v", uri, got, want)
		}
	}
}
