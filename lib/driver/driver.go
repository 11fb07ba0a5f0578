package driver

import (
	"context"
	"errors"
	"io"
	"iter"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// Implementation tags the closed set of backend drivers
type Implementation string

const (
	ImplFS      Implementation = "fs"
	ImplMemory  Implementation = "memory"
	ImplSQL     Implementation = "sql"
	ImplRedis   Implementation = "redis"
	ImplArchive Implementation = "archive"
	ImplS3      Implementation = "s3"
)

// Feature represents driver features as bit flags
type Feature uint64

const (
	FeatureWrite        Feature = 1 << iota // Support for Write operations
	FeatureRead                             // Support for Read operations
	FeatureOverwrite                        // Write may replace an existing key
	FeatureDelete                           // Support for Delete operations
	FeatureTTL                              // Write honors the ttl parameter
	FeatureNativeStream                     // OpenReader/OpenWriter do not buffer the whole value
	FeatureCreatedAt                        // Stat fills in Info.CreatedAt
)

func (f Feature) String() string {
	switch f {
	case FeatureWrite:
		return "Write"
	case FeatureRead:
		return "Read"
	case FeatureOverwrite:
		return "Overwrite"
	case FeatureDelete:
		return "Delete"
	case FeatureTTL:
		return "TTL"
	case FeatureNativeStream:
		return "NativeStream"
	case FeatureCreatedAt:
		return "CreatedAt"
	default:
		return "Unknown"
	}
}

// Features lists the individual flags contained in a feature set
func Features(set Feature) []Feature {
	var out []Feature
	for f := FeatureWrite; f <= FeatureCreatedAt; f <<= 1 {
		if set&f != 0 {
			out = append(out, f)
		}
	}
	return out
}

// Info is the metadata a driver knows about a single key.
// Timestamps are nil if the medium does not track them.
type Info struct {
	CreatedAt *time.Time
	UpdatedAt *time.Time
	Size      int64
}

// DriverInfo describes a driver instance
type DriverInfo struct {
	Type              Implementation `json:"type"`
	Location          string         `json:"location"`
	SupportedFeatures []Feature      `json:"supported_features"`
}

func (i DriverInfo) String() string {
	names := make([]string, 0, len(i.SupportedFeatures))
	for _, f := range i.SupportedFeatures {
		names = append(names, f.String())
	}
	return string(i.Type) + "(" + i.Location + ") [" + strings.Join(names, ",") + "]"
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrNotFound is returned by Read, Stat and OpenReader for absent keys
	ErrNotFound = errors.New("key not found")
	// ErrReadOnly is returned for writes the medium does not allow (e.g. overwrites in an archive)
	ErrReadOnly = errors.New("read only")
)

// --------------------------------------------------------------------------
// Driver Interface
// --------------------------------------------------------------------------

// Driver defines the raw storage capability of one physical medium.
// Keys handed to a driver are already normalized and contain the store prefix,
// values are plain bytes. Drivers never serialize and never decide whether a
// missing key is an error for the caller, they only report ErrNotFound.
// Implementations can vary in their feature support, which can be queried with SupportsFeature.
type Driver interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Write stores the value for a key. A ttl of zero means no expiration.
	// Drivers without FeatureTTL ignore the ttl.
	Write(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// OpenWriter returns a writer for the key. The value becomes visible when the writer is closed.
	// The writer also implements Aborter, aborting discards everything written so far.
	OpenWriter(ctx context.Context, key string) (io.WriteCloser, error)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Read returns the value for a key or ErrNotFound.
	Read(ctx context.Context, key string) ([]byte, error)

	// Exists reports whether a (not expired) value is stored for the key.
	Exists(ctx context.Context, key string) (bool, error)

	// Stat returns metadata for the key or ErrNotFound.
	Stat(ctx context.Context, key string) (Info, error)

	// OpenReader returns a reader for the value or ErrNotFound.
	OpenReader(ctx context.Context, key string) (io.ReadCloser, error)

	// ListKeys lazily enumerates all keys starting with prefix.
	// The prefix is a plain string prefix, callers apply stricter matching.
	ListKeys(ctx context.Context, prefix string) iter.Seq2[string, error]

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the driver supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the driver.
	GetInfo() (info DriverInfo)

	// Close releases the medium. The driver must not be used afterwards.
	Close() (err error)
}

// Aborter is implemented by the writers returned from OpenWriter.
// Abort releases the writer without committing the value, a later Close is a no-op.
type Aborter interface {
	Abort() error
}
