// Package mirror copies the keys of one store into another with a worker pool.
//
// Keys that already exist in the target are skipped unless Options.Overwrite is
// set. The result carries the "mirrored" and "skipped" counters next to the
// totals of the pool.
package mirror
