package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
	"strings"
	"time"

	"github.com/ValentinKolb/anyKV/lib/driver"
	"github.com/ValentinKolb/anyKV/lib/driver/util"
	"github.com/jackc/pgx/v5"
)

const supported = driver.FeatureWrite |
	driver.FeatureRead |
	driver.FeatureOverwrite |
	driver.FeatureDelete |
	driver.FeatureTTL

// sqlImpl implements driver.Driver on a single table with one row per key
type sqlImpl struct {
	db       *sql.DB
	dialect  dialect
	location string
	now      func() time.Time

	// prepared query strings
	qUpsert string
	qRead   string
	qStat   string
	qDelete string
	qExpire string
	qList   string
}

// NewSQLDriver opens the database for uri and creates the table if necessary.
// Supported uris are sqlite://<path>, sqlite:// (in memory) and postgres(ql)://...
func NewSQLDriver(ctx context.Context, uri string, opts ...Option) (driver.Driver, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	d, dsn, inMemory, err := parseURI(uri)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}

	// database/sql hands a connection to one goroutine at a time.
	// An in-memory sqlite database only exists inside its connection.
	if inMemory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(options.PoolSize)
		db.SetMaxIdleConns(options.PoolSize)
	}

	impl := newSQLImpl(db, d, uri, options.Table)
	if err := impl.createTable(ctx, options.Table); err != nil {
		_ = db.Close()
		return nil, err
	}
	return impl, nil
}

func newSQLImpl(db *sql.DB, d dialect, location, table string) *sqlImpl {
	t := pgx.Identifier{table}.Sanitize()
	cKey := pgx.Identifier{"key"}.Sanitize()
	cValue := pgx.Identifier{"value"}.Sanitize()
	cTimestamp := pgx.Identifier{"timestamp"}.Sanitize()
	cTTL := pgx.Identifier{"ttl"}.Sanitize()
	p := d.placeholder

	return &sqlImpl{
		db:       db,
		dialect:  d,
		location: location,
		now:      time.Now,
		qUpsert: fmt.Sprintf(
			`INSERT INTO %s (%s, %s, %s, %s) VALUES (%s, %s, %s, %s) ON CONFLICT (%s) DO UPDATE SET %s = excluded.%s, %s = excluded.%s, %s = excluded.%s`,
			t, cKey, cValue, cTimestamp, cTTL, p(1), p(2), p(3), p(4),
			cKey, cValue, cValue, cTimestamp, cTimestamp, cTTL, cTTL),
		qRead:   fmt.Sprintf(`SELECT %s, %s, %s FROM %s WHERE %s = %s`, cValue, cTimestamp, cTTL, t, cKey, p(1)),
		qStat:   fmt.Sprintf(`SELECT length(%s), %s, %s FROM %s WHERE %s = %s`, cValue, cTimestamp, cTTL, t, cKey, p(1)),
		qDelete: fmt.Sprintf(`DELETE FROM %s WHERE %s = %s`, t, cKey, p(1)),
		qExpire: fmt.Sprintf(`DELETE FROM %s WHERE %s = %s AND %s = %s`, t, cKey, p(1), cTimestamp, p(2)),
		qList:   fmt.Sprintf(`SELECT %s, %s, %s FROM %s WHERE %s LIKE %s ESCAPE '\' ORDER BY %s`, cKey, cTimestamp, cTTL, t, cKey, p(1), cKey),
	}
}

func (s *sqlImpl) createTable(ctx context.Context, table string) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		%s TEXT PRIMARY KEY,
		%s %s,
		%s BIGINT NOT NULL,
		%s BIGINT
	)`,
		pgx.Identifier{table}.Sanitize(),
		pgx.Identifier{"key"}.Sanitize(),
		pgx.Identifier{"value"}.Sanitize(), s.dialect.blobType,
		pgx.Identifier{"timestamp"}.Sanitize(),
		pgx.Identifier{"ttl"}.Sanitize(),
	)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// expired reports whether a row with the given write timestamp (unix nanos) and ttl (seconds) is expired
func (s *sqlImpl) expired(timestamp int64, ttl sql.NullInt64) bool {
	if !ttl.Valid || ttl.Int64 <= 0 {
		return false
	}
	deadline := time.Unix(0, timestamp).Add(time.Duration(ttl.Int64) * time.Second)
	return !s.now().Before(deadline)
}

// evict deletes an expired row, the timestamp guards against deleting a newer write
func (s *sqlImpl) evict(ctx context.Context, key string, timestamp int64) {
	_, _ = s.db.ExecContext(ctx, s.qExpire, key, timestamp)
}

// escapeLike escapes the LIKE wildcards of s
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see driver.Driver)
// --------------------------------------------------------------------------

func (s *sqlImpl) Write(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if value == nil {
		value = []byte{}
	}
	var ttlSeconds sql.NullInt64
	if ttl > 0 {
		ttlSeconds = sql.NullInt64{Int64: int64(math.Ceil(ttl.Seconds())), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, s.qUpsert, key, value, s.now().UnixNano(), ttlSeconds)
	return err
}

func (s *sqlImpl) Read(ctx context.Context, key string) ([]byte, error) {
	var (
		value     []byte
		timestamp int64
		ttl       sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, s.qRead, key).Scan(&value, &timestamp, &ttl)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, driver.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if s.expired(timestamp, ttl) {
		s.evict(ctx, key, timestamp)
		return nil, driver.ErrNotFound
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *sqlImpl) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, s.qDelete, key)
	return err
}

func (s *sqlImpl) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Stat(ctx, key)
	if errors.Is(err, driver.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *sqlImpl) Stat(ctx context.Context, key string) (driver.Info, error) {
	var (
		size      sql.NullInt64
		timestamp int64
		ttl       sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, s.qStat, key).Scan(&size, &timestamp, &ttl)
	if errors.Is(err, sql.ErrNoRows) {
		return driver.Info{}, driver.ErrNotFound
	}
	if err != nil {
		return driver.Info{}, err
	}
	if s.expired(timestamp, ttl) {
		s.evict(ctx, key, timestamp)
		return driver.Info{}, driver.ErrNotFound
	}
	updated := time.Unix(0, timestamp)
	return driver.Info{UpdatedAt: &updated, Size: size.Int64}, nil
}

func (s *sqlImpl) OpenReader(ctx context.Context, key string) (io.ReadCloser, error) {
	data, err := s.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	return util.NewBufferedReader(data), nil
}

func (s *sqlImpl) OpenWriter(ctx context.Context, key string) (io.WriteCloser, error) {
	return util.NewFlushWriter(func(data []byte) error {
		return s.Write(ctx, key, data, 0)
	}), nil
}

// ListKeys reads all matching keys before yielding the first one,
// so callers may use the driver inside the loop without waiting for a connection.
func (s *sqlImpl) ListKeys(ctx context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		rows, err := s.db.QueryContext(ctx, s.qList, escapeLike(prefix)+"%")
		if err != nil {
			yield("", err)
			return
		}

		var keys []string
		for rows.Next() {
			var (
				key       string
				timestamp int64
				ttl       sql.NullInt64
			)
			if err := rows.Scan(&key, &timestamp, &ttl); err != nil {
				_ = rows.Close()
				yield("", err)
				return
			}
			if !s.expired(timestamp, ttl) {
				keys = append(keys, key)
			}
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			yield("", err)
			return
		}

		for _, key := range keys {
			if !yield(key, nil) {
				return
			}
		}
	}
}

func (s *sqlImpl) SupportsFeature(feature driver.Feature) bool {
	return feature&supported == feature
}

func (s *sqlImpl) GetInfo() driver.DriverInfo {
	return driver.DriverInfo{
		Type:              driver.ImplSQL,
		Location:          s.location,
		SupportedFeatures: driver.Features(supported),
	}
}

func (s *sqlImpl) Close() error {
	return s.db.Close()
}
