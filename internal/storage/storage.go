// Package storage persists uploaded CSV files for conversion and import
// runs. The default backend keeps files in memory; an S3 backend is used
// when the AWS environment is configured.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a file id does not exist in the store.
var ErrNotFound = errors.New("file not found")

// File describes one stored CSV file.
type File struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Store is the uploaded-file backend.
type Store interface {
	// Put saves content under a fresh id and returns the file record.
	Put(ctx context.Context, name string, content []byte) (File, error)
	// Get returns the content of a stored file.
	Get(ctx context.Context, id string) ([]byte, error)
	// Stat returns the file record without its content.
	Stat(ctx context.Context, id string) (File, error)
	// List returns all stored files in upload order.
	List(ctx context.Context) ([]File, error)
	// Delete removes a stored file.
	Delete(ctx context.Context, id string) error
}
