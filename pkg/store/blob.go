package store

import (
	"context"

	"github.com/pkg/errors"
)

// ErrBlobNotFound is returned by BlobStore.Get when nothing is stored under the key.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore is an opaque key/value byte store. Every method maps to exactly
// one call against the backing service.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte) error
	Delete(ctx context.Context, key string) error
}
