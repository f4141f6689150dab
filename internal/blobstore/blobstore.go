package blobstore

import (
	"context"
	"io"
)

// Store is opaque key->bytes storage that yields a public retrieval URL
// after a successful write.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}
