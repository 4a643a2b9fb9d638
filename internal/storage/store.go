// Package storage moves listing files between object storage buckets and the
// local filesystem.
//
// Two ObjectStore implementations are provided: GCSStore talks to Google Cloud
// Storage and DirStore maps each bucket to a local directory, which is what
// the CLI and the tests use.
package storage

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Bucket string
	Name   string
	Size   int64
}

// ObjectStore is the subset of bucket operations the pipeline needs.
type ObjectStore interface {
	// Download copies bucket/name to the local file dst, creating parent dirs.
	Download(ctx context.Context, bucket, name, dst string) error

	// Upload copies the local file src to bucket/name.
	Upload(ctx context.Context, src, bucket, name string) error

	// List returns the objects in bucket whose names start with prefix.
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)

	// Exists reports whether bucket/name exists.
	Exists(ctx context.Context, bucket, name string) (bool, error)

	Close() error
}

// IsCSV reports whether an object name carries the .csv suffix. The match
// is case-sensitive, so "LISTINGS.CSV" is not picked up.
func IsCSV(name string) bool {
	return strings.HasSuffix(name, ".csv")
}
