package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/ValentinKolb/anyKV/lib/driver"
	"github.com/ValentinKolb/anyKV/lib/driver/engines/archive"
	"github.com/ValentinKolb/anyKV/lib/driver/engines/fs"
	"github.com/ValentinKolb/anyKV/lib/driver/engines/memory"
	"github.com/ValentinKolb/anyKV/lib/driver/engines/redis"
	"github.com/ValentinKolb/anyKV/lib/driver/engines/s3"
	"github.com/ValentinKolb/anyKV/lib/driver/engines/sql"
)

// --------------------------------------------------------------------------
// Driver Dispatch
// --------------------------------------------------------------------------

// openDriver creates the driver for a normalized uri.
// Unknown backend config keys are ignored.
func openDriver(ctx context.Context, uri string, backend map[string]string) (driver.Driver, error) {
	scheme, rest := splitScheme(uri)

	switch {
	case scheme == "file" && archive.IsArchive(rest):
		return archive.NewArchiveDriver(rest), nil
	case scheme == "file":
		return fs.NewFSDriver(rest)
	case scheme == "memory":
		return memory.NewMemoryDriver(uri), nil
	case scheme == "redis" || scheme == "rediss":
		return redis.NewRedisDriver(ctx, uri, backend["redis_prefix"])
	case scheme == "s3":
		return s3.NewS3Driver(uri, s3Options(backend))
	case scheme == "postgres" || scheme == "postgresql" || strings.Contains(scheme, "sql"):
		return sql.NewSQLDriver(ctx, uri, sqlOptions(backend)...)
	default:
		return nil, NewError(RetCUnsupportedOperation, uri, "no driver for scheme "+strconv.Quote(scheme))
	}
}

func sqlOptions(backend map[string]string) []sql.Option {
	opts := []sql.Option{sql.WithTable(backend["sql_table"])}
	if size, err := strconv.Atoi(backend["sql_pool_size"]); err == nil {
		opts = append(opts, sql.WithPoolSize(size))
	}
	return opts
}

func s3Options(backend map[string]string) *s3.Options {
	opts := s3.DefaultOptions()
	if v := backend["s3_endpoint"]; v != "" {
		opts.Endpoint = v
	}
	if v := backend["s3_region"]; v != "" {
		opts.Region = v
	}
	if v, err := strconv.ParseBool(backend["s3_secure"]); err == nil {
		opts.Secure = v
	}
	opts.AccessKey = backend["s3_access_key"]
	opts.SecretKey = backend["s3_secret_key"]
	return opts
}
