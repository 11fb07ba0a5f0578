// Package redis implements driver.Driver on a redis server (go-redis).
//
// Keys are namespaced as "<prefix>/<key>" so several stores can share one
// server. A ttl is passed to SET as native expiry, the server enforces it.
// Listing uses SCAN with a MATCH pattern, which never blocks the server the
// way KEYS does. SCAN may return a key more than once if the keyspace is
// rehashed during the iteration.
package redis
