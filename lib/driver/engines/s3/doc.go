// Package s3 implements driver.Driver on an S3 compatible object store (minio-go).
//
// A store uri s3://bucket/prefix maps every key to the object "prefix/key" in
// the bucket. Objects are streamed in both directions, a ttl is ignored.
package s3
