// Package driver defines the raw storage capability shared by all backends.
// A driver stores bytes under string keys on exactly one physical medium and
// nothing else: serialization, key prefixes of derived stores, the missing key
// policy and read-only enforcement all live in the store package.
//
// Key Components:
//
//   - Driver Interface: Write, Read, Delete, Exists, Stat, OpenReader,
//     OpenWriter and ListKeys. All operations take a context so drivers backed
//     by a network client can be cancelled.
//
//   - Feature Flags: Drivers differ in what the medium allows. An archive can
//     not overwrite or delete, only memory, sql and redis honor a ttl.
//     SupportsFeature lets callers check this before issuing a call.
//
//   - Sentinel Errors: ErrNotFound and ErrReadOnly are the only errors a caller
//     can match on. Everything else is an opaque error of the medium.
//
// Implementations:
//
//	The engines subpackages contain one driver per medium:
//
//	- fs: local directories through afero
//	- memory: a concurrent map with lazy expiry
//	- sql: a key/value table on sqlite or postgres
//	- redis: a namespaced redis keyspace with native expiry
//	- archive: an append-only zip file
//	- s3: an S3 compatible object store
//
//	Drivers without native streaming (memory, sql, redis) expose OpenReader and
//	OpenWriter through the buffer-then-flush adapters in driver/util.
package driver
