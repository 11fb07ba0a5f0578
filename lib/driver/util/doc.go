// Package util provides helpers shared by the driver implementations and the store.
//
// The package contains:
//   - keys: key normalization, joining and path-segment prefix matching
//   - buffer: buffer-then-flush adapters that emulate byte streams for media
//     without a native streaming primitive
//   - expiry: a priority queue of key deadlines for drivers that emulate TTLs
//   - functions: small helpers (byte copies)
//
// The buffer adapters hold the whole value in memory. Opening a reader loads the
// complete value, a writer collects everything and writes it in one call on Close.
package util
