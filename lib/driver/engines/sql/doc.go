// Package sql implements driver.Driver on a relational table.
//
// Every key is one row of the table:
//
//	key        TEXT PRIMARY KEY
//	value      BLOB / BYTEA
//	timestamp  BIGINT  (unix nanoseconds of the last write)
//	ttl        BIGINT  (seconds, NULL = never expires)
//
// Writes are upserts (INSERT ... ON CONFLICT DO UPDATE). Expiry is checked
// lazily whenever a row is read, an expired row is deleted at that moment.
//
// Supported databases are sqlite (modernc.org/sqlite, no cgo) and postgres
// (pgx through its database/sql adapter). Connections come from the
// database/sql pool, which never shares one connection between goroutines.
package sql
