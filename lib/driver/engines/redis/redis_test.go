package redis

import (
	"context"
	"testing"
	"time"

	"github.com/ValentinKolb/anyKV/lib/driver"
	drivertesting "github.com/ValentinKolb/anyKV/lib/driver/testing"
	"github.com/alicebob/miniredis/v2"
)

func TestRedisDriver(t *testing.T) {
	var server *miniredis.Miniredis

	drivertesting.RunDriverTests(t, "redis", func(t *testing.T) driver.Driver {
		server = miniredis.RunT(t)
		d, err := NewRedisDriver(context.Background(), "redis://"+server.Addr(), "")
		if err != nil {
			t.Fatal(err)
		}
		return d
	}, func(d time.Duration) {
		server.FastForward(d)
	})
}

func TestNamespace(t *testing.T) {
	server := miniredis.RunT(t)
	ctx := context.Background()

	a, err := NewRedisDriver(ctx, "redis://"+server.Addr(), "tenant-a")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := NewRedisDriver(ctx, "redis://"+server.Addr(), "tenant-b")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	_ = a.Write(ctx, "key", []byte("a"), 0)

	if !server.Exists("tenant-a/key") {
		t.Errorf("Expected key to be stored under the namespace")
	}
	if ok, _ := b.Exists(ctx, "key"); ok {
		t.Errorf("Expected namespaces to be isolated")
	}
	for key := range b.ListKeys(ctx, "") {
		t.Errorf("Unexpected key %s in other namespace", key)
	}
}

func TestGlobCharactersInPrefix(t *testing.T) {
	server := miniredis.RunT(t)
	ctx := context.Background()
	d, err := NewRedisDriver(ctx, "redis://"+server.Addr(), "")
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	_ = d.Write(ctx, "a*/1", []byte("x"), 0)
	_ = d.Write(ctx, "ab/1", []byte("x"), 0)

	var keys []string
	for key, err := range d.ListKeys(ctx, "a*") {
		if err != nil {
			t.Fatal(err)
		}
		keys = append(keys, key)
	}
	if len(keys) != 1 || keys[0] != "a*/1" {
		t.Errorf("Expected only a*/1, got %v", keys)
	}
}
