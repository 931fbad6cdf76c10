package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound reports that no blob exists for the requested digest.
var ErrNotFound = errors.New("blob not found")

// ErrIntegrity reports that stored bytes no longer rehash to their digest.
// It must never be swallowed: it signals storage-medium corruption.
var ErrIntegrity = errors.New("blob integrity violation")

// BlobPutResult describes one persisted blob payload.
type BlobPutResult struct {
	SHA256    string
	SizeBytes int64
	BlobKey   string
}

// BlobStore is the content-addressed byte-storage abstraction.
//
// All operations key on the lowercase 64-hex-char SHA-256 digest of the
// content. Put computes the digest itself; callers never supply one for a
// write, so a stored digest is always derived from the actual bytes.
type BlobStore interface {
	Put(ctx context.Context, r io.Reader) (BlobPutResult, error)
	Open(ctx context.Context, digest string) (io.ReadCloser, int64, error)
	Stat(ctx context.Context, digest string) (int64, error)
	Delete(ctx context.Context, digest string) error
}
