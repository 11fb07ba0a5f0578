// Package memory implements an in-process driver.Driver backed by a concurrent
// map (xsync.MapOf).
//
// Values are copied on write and on read, so callers can never modify stored data.
// Expired entries are hidden from every read and from ListKeys. They are evicted
// lazily when they are accessed through Read, Exists or Stat after their deadline,
// and every Write or Delete additionally evicts all keys whose deadline has passed
// (tracked in a util.ExpiryQueue). There is no background goroutine.
//
// Streams are emulated with the buffer-then-flush adapters of driver/util.
package memory
