// Package storage provides object storage for captured COPY streams.
package storage

import (
	"context"
	"errors"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = errors.New("upload failed")
	ErrDownloadFailed = errors.New("download failed")
	ErrDeleteFailed   = errors.New("delete failed")
)

// ObjectStorage abstracts the store capture runs are written to.
// Implementations include S3 and the local filesystem. Objects are whole
// in-memory byte payloads; captured batch streams are small enough that no
// multipart path is needed.
type ObjectStorage interface {
	// Put writes data under objectPath, overwriting any existing object.
	Put(ctx context.Context, objectPath string, data []byte) error

	// Get returns the full contents of the object at objectPath.
	Get(ctx context.Context, objectPath string) ([]byte, error)

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, objectPath string) error

	// Exists checks whether an object exists.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// List returns all object paths under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
