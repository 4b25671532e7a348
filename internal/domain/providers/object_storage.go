package providers

import (
	"context"
	"io"
)

// StoredObject describes an uploaded object
type StoredObject struct {
	Key string
	URL string
}

// ObjectStorage is the public image bucket
type ObjectStorage interface {
	// Upload stores r under key and returns the object's public URL
	Upload(ctx context.Context, key, contentType string, r io.Reader) (*StoredObject, error)

	// Delete removes the object stored under key
	Delete(ctx context.Context, key string) error
}
