package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/url"
	"strings"
	"time"

	"github.com/ValentinKolb/anyKV/lib/driver"
	"github.com/ValentinKolb/anyKV/lib/driver/util"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const supported = driver.FeatureWrite |
	driver.FeatureRead |
	driver.FeatureOverwrite |
	driver.FeatureDelete |
	driver.FeatureNativeStream

// Options configures the connection to the object store
type Options struct {
	Endpoint  string // host[:port] of the S3 api
	AccessKey string // empty = read credentials from the AWS_* environment
	SecretKey string
	Region    string
	Secure    bool
}

// DefaultOptions returns options for AWS S3
func DefaultOptions() *Options {
	return &Options{
		Endpoint: "s3.amazonaws.com",
		Secure:   true,
	}
}

// s3Impl implements driver.Driver on a bucket, optionally below a key prefix
type s3Impl struct {
	client *minio.Client
	bucket string
	root   string // key prefix inside the bucket
	uri    string
}

// NewS3Driver creates a driver for a uri of the form s3://bucket/optional/prefix
func NewS3Driver(uri string, opts *Options) (driver.Driver, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return nil, fmt.Errorf("invalid s3 uri %q (expected s3://bucket/prefix)", uri)
	}

	creds := credentials.NewEnvAWS()
	if opts.AccessKey != "" {
		creds = credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, "")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: opts.Secure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	return &s3Impl{
		client: client,
		bucket: u.Host,
		root:   strings.Trim(u.Path, "/"),
		uri:    uri,
	}, nil
}

func (s *s3Impl) object(key string) string {
	return util.JoinKey(s.root, key)
}

// isNotFound reports whether err is a missing object or bucket error of the api
func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return true
	}
	return false
}

// --------------------------------------------------------------------------
// Interface Methods (docu see driver.Driver)
// --------------------------------------------------------------------------

func (s *s3Impl) Write(ctx context.Context, key string, value []byte, _ time.Duration) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.object(key), bytes.NewReader(value), int64(len(value)), minio.PutObjectOptions{})
	return err
}

func (s *s3Impl) Read(ctx context.Context, key string) ([]byte, error) {
	r, err := s.OpenReader(ctx, key)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (s *s3Impl) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.object(key), minio.RemoveObjectOptions{})
	if err != nil && isNotFound(err) {
		return nil
	}
	return err
}

func (s *s3Impl) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Stat(ctx, key)
	if err == driver.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (s *s3Impl) Stat(ctx context.Context, key string) (driver.Info, error) {
	info, err := s.client.StatObject(ctx, s.bucket, s.object(key), minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return driver.Info{}, driver.ErrNotFound
		}
		return driver.Info{}, err
	}
	modified := info.LastModified
	return driver.Info{UpdatedAt: &modified, Size: info.Size}, nil
}

// OpenReader stats the object first, GetObject itself only fails on the first read
func (s *s3Impl) OpenReader(ctx context.Context, key string) (io.ReadCloser, error) {
	if _, err := s.Stat(ctx, key); err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, s.object(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// OpenWriter streams the upload through a pipe, the object is complete once Close returns
func (s *s3Impl) OpenWriter(ctx context.Context, key string) (io.WriteCloser, error) {
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, s.object(key), pr, -1, minio.PutObjectOptions{})
		_ = pr.CloseWithError(err)
		done <- err
	}()
	return &pipeWriter{PipeWriter: pw, done: done}, nil
}

func (s *s3Impl) ListKeys(ctx context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		root := ""
		if s.root != "" {
			root = s.root + "/"
		}
		for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: root + prefix, Recursive: true}) {
			if obj.Err != nil {
				yield("", obj.Err)
				return
			}
			key := strings.TrimPrefix(obj.Key, root)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}
			if !yield(key, nil) {
				return
			}
		}
	}
}

func (s *s3Impl) SupportsFeature(feature driver.Feature) bool {
	return feature&supported == feature
}

func (s *s3Impl) GetInfo() driver.DriverInfo {
	return driver.DriverInfo{
		Type:              driver.ImplS3,
		Location:          s.uri,
		SupportedFeatures: driver.Features(supported),
	}
}

func (s *s3Impl) Close() error {
	return nil
}

// errAborted cancels a running upload
var errAborted = errors.New("upload aborted")

// pipeWriter waits for the upload to finish on Close
type pipeWriter struct {
	*io.PipeWriter
	done   chan error
	closed bool
	err    error
}

// Abort fails the upload, the object is not created
func (w *pipeWriter) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	_ = w.PipeWriter.CloseWithError(errAborted)
	<-w.done
	w.err = nil
	return nil
}

func (w *pipeWriter) Close() error {
	if w.closed {
		return w.err
	}
	w.closed = true
	_ = w.PipeWriter.Close()
	w.err = <-w.done
	return w.err
}
