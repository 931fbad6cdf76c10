package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	casAlgorithmPrefix = "sha256"
)

var digestPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// ValidDigest reports whether digest is a lowercase 64-hex-char SHA-256 digest.
func ValidDigest(digest string) bool {
	return digestPattern.MatchString(digest)
}

// LocalCAS stores blob bytes in a local content-addressed tree.
type LocalCAS struct {
	root string
}

// NewLocalCAS creates a local CAS rooted at root.
func NewLocalCAS(root string) (*LocalCAS, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("local cas root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, "tmp"), 0o755); err != nil {
		return nil, err
	}
	return &LocalCAS{root: abs}, nil
}

// Put streams bytes to a temp file, computes SHA-256 along the way, and
// renames the file into its digest-keyed location. Concurrent puts of the
// same content are safe: whichever rename lands first wins and the content
// is identical by construction. An existing object whose size disagrees
// with the incoming bytes means the tree is corrupt and the put is refused.
func (c *LocalCAS) Put(ctx context.Context, r io.Reader) (BlobPutResult, error) {
	var zero BlobPutResult
	if c == nil {
		return zero, fmt.Errorf("blob store is not configured")
	}
	if r == nil {
		return zero, fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	tmp, err := os.CreateTemp(filepath.Join(c.root, "tmp"), "put-*")
	if err != nil {
		return zero, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		cleanup()
		return zero, err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return zero, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return zero, err
	}

	digest := hex.EncodeToString(h.Sum(nil))
	key := casKeyFromDigest(digest)
	result := BlobPutResult{SHA256: digest, SizeBytes: n, BlobKey: key}

	dst := filepath.Join(c.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		cleanup()
		return zero, err
	}

	if info, err := os.Stat(dst); err == nil {
		_ = os.Remove(tmpPath)
		if info.Size() != n {
			return zero, fmt.Errorf("%w: digest %s holds %d bytes, incoming content has %d", ErrIntegrity, digest, info.Size(), n)
		}
		return result, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		cleanup()
		return zero, err
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		if _, statErr := os.Stat(dst); statErr == nil {
			_ = os.Remove(tmpPath)
			return result, nil
		}
		cleanup()
		return zero, err
	}

	return result, nil
}

// Open returns a reader over blob content plus the verified size. The
// stored bytes are rehashed in full before the stream is handed out, so a
// corrupted object surfaces as ErrIntegrity instead of wrong bytes.
func (c *LocalCAS) Open(ctx context.Context, digest string) (io.ReadCloser, int64, error) {
	if c == nil {
		return nil, 0, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	path, err := c.pathFromDigest(digest)
	if err != nil {
		return nil, 0, err
	}

	size, err := verifyFileDigest(path, digest)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, digest)
		}
		return nil, 0, err
	}
	return f, size, nil
}

// Stat returns the stored size for digest without verifying content.
func (c *LocalCAS) Stat(ctx context.Context, digest string) (int64, error) {
	if c == nil {
		return 0, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	path, err := c.pathFromDigest(digest)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, digest)
		}
		return 0, err
	}
	return info.Size(), nil
}

// Delete removes a blob object. Missing objects are ignored.
func (c *LocalCAS) Delete(ctx context.Context, digest string) error {
	if c == nil {
		return fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := c.pathFromDigest(digest)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func verifyFileDigest(path, digest string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, digest)
		}
		return 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, err
	}
	actual := hex.EncodeToString(h.Sum(nil))
	if actual != digest {
		return 0, fmt.Errorf("%w: stored bytes for %s rehash to %s", ErrIntegrity, digest, actual)
	}
	return n, nil
}

func casKeyFromDigest(digest string) string {
	return fmt.Sprintf("%s/%s/%s/%s", casAlgorithmPrefix, digest[0:2], digest[2:4], digest)
}

func (c *LocalCAS) pathFromDigest(digest string) (string, error) {
	digest = strings.ToLower(strings.TrimSpace(digest))
	if !ValidDigest(digest) {
		return "", fmt.Errorf("invalid digest %q", digest)
	}
	return filepath.Join(c.root, filepath.FromSlash(casKeyFromDigest(digest))), nil
}
