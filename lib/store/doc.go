// Package store provides the uniform key-value interface of anyKV.
//
// A Store is opened for a uri and delegates to the driver of the medium
// (see the dispatch in open.go):
//
//	file:///data, ./data      fs driver (plain paths are made absolute)
//	/data/archive.zip         append-only zip archive
//	memory://name             in-process map
//	sqlite://, postgres://    relational table
//	redis://, rediss://       redis keyspace
//	s3://bucket/prefix        object storage
//
// Values go through the serialize pipeline on the way in and out. The
// serialization mode, hooks and model, the ttl and the missing key policy come
// from the store Config and can be overridden per call with Options.
//
// Key Components:
//
//   - Store: Get, Put, Pop, Delete, Exists, Stream, IterateKeys, IterateValues,
//     Info, Checksum, Touch, Open and Create. Keys are relative to the store,
//     "/" separated and url-unescaped. Sub returns a view on a sub path.
//
//   - Error System: every error returned by a store is an *Error carrying a
//     RetCode. Use errors.Is with ErrNotFound, ErrReadOnly, ErrSerialization,
//     ErrInvalidValue, ErrBackend, ErrUnsupportedOperation or ErrInvalidOperation.
//
//   - Registry: caches one store per normalized config. FromConfig and FromEnv
//     use the package DefaultRegistry.
//
//   - Virtual: a temporary directory store to work on local copies of values.
package store
