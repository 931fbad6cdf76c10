package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

const helloWorldDigest = "a948904f2f0f479b8f8197694b30184b0d2ed1c1cd2a1ec0fb85d299a192a447"

func TestLocalCASPutComputesKnownDigest(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir())
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}

	result, err := cas.Put(context.Background(), bytes.NewBufferString("hello world\n"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if result.SHA256 != helloWorldDigest {
		t.Fatalf("expected digest %s, got %s", helloWorldDigest, result.SHA256)
	}
	if result.SizeBytes != 12 {
		t.Fatalf("expected 12 bytes, got %d", result.SizeBytes)
	}

	rc, size, err := cas.Open(context.Background(), result.SHA256)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	if size != 12 {
		t.Fatalf("expected verified size 12, got %d", size)
	}
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello world\n" {
		t.Fatalf("round trip mismatch: %q", string(data))
	}
}

func TestLocalCASPutEmptyStream(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir())
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}

	result, err := cas.Put(context.Background(), bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("put empty: %v", err)
	}
	if result.SHA256 != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Fatalf("unexpected empty digest: %s", result.SHA256)
	}
	if result.SizeBytes != 0 {
		t.Fatalf("expected 0 bytes, got %d", result.SizeBytes)
	}
}

func TestLocalCASPutIsIdempotent(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir())
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}

	first, err := cas.Put(context.Background(), bytes.NewBufferString("hello"))
	if err != nil {
		t.Fatalf("put first: %v", err)
	}
	second, err := cas.Put(context.Background(), bytes.NewBufferString("hello"))
	if err != nil {
		t.Fatalf("put second: %v", err)
	}
	if first.SHA256 != second.SHA256 || first.BlobKey != second.BlobKey {
		t.Fatalf("expected identical results: first=%#v second=%#v", first, second)
	}
}

func TestLocalCASOpenMissingDigest(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir())
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}

	missing := "0000000000000000000000000000000000000000000000000000000000000000"
	if _, _, err := cas.Open(context.Background(), missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := cas.Stat(context.Background(), missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from stat, got %v", err)
	}
	if _, _, err := cas.Open(context.Background(), "not-a-digest"); err == nil {
		t.Fatal("expected error for malformed digest")
	}
}

func TestLocalCASOpenDetectsCorruption(t *testing.T) {
	root := t.TempDir()
	cas, err := NewLocalCAS(root)
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}

	result, err := cas.Put(context.Background(), bytes.NewBufferString("intact payload"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	// Flip one byte of the stored object.
	path := filepath.Join(root, filepath.FromSlash(result.BlobKey))
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read stored blob: %v", err)
	}
	data[0] ^= 0x01
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("corrupt stored blob: %v", err)
	}

	if _, _, err := cas.Open(context.Background(), result.SHA256); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
}

func TestLocalCASConcurrentIdenticalPuts(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir())
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}

	payload := bytes.Repeat([]byte("healthlink"), 100_000) // ~1MB
	const writers = 8

	results := make([]BlobPutResult, writers)
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cas.Put(context.Background(), bytes.NewReader(payload))
		}(i)
	}
	wg.Wait()

	for i := 0; i < writers; i++ {
		if errs[i] != nil {
			t.Fatalf("put %d: %v", i, errs[i])
		}
		if results[i].SHA256 != results[0].SHA256 {
			t.Fatalf("digest mismatch across concurrent puts: %s vs %s", results[i].SHA256, results[0].SHA256)
		}
	}

	rc, size, err := cas.Open(context.Background(), results[0].SHA256)
	if err != nil {
		t.Fatalf("open after concurrent puts: %v", err)
	}
	defer rc.Close()
	if size != int64(len(payload)) {
		t.Fatalf("expected %d bytes, got %d", len(payload), size)
	}
}

func TestLocalCASDeleteIsIdempotent(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir())
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}

	result, err := cas.Put(context.Background(), bytes.NewBufferString("ephemeral"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := cas.Delete(context.Background(), result.SHA256); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := cas.Delete(context.Background(), result.SHA256); err != nil {
		t.Fatalf("delete missing should be noop: %v", err)
	}
	if _, _, err := cas.Open(context.Background(), result.SHA256); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
