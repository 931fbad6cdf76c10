package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/blobstore"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/models"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/store"
)

// StorageService coordinates the content-addressed blob store with the
// blob index rows in sqlite.
type StorageService struct {
	blobs       blobstore.BlobStore
	index       store.BlobIndex
	records     store.RecordIndex
	gcBatchSize int
	logger      *slog.Logger
}

// UploadInput carries upload metadata alongside the content stream.
type UploadInput struct {
	Filename  string
	MediaType string
}

// GCResult reports one garbage collection pass.
type GCResult struct {
	Scanned int
	Deleted int
	Freed   int64
	DryRun  bool
	Digests []string
}

func NewStorageService(blobs blobstore.BlobStore, st *store.Store, gcBatchSize int, logger *slog.Logger) *StorageService {
	if logger == nil {
		logger = slog.Default()
	}
	if gcBatchSize <= 0 {
		gcBatchSize = 500
	}
	return &StorageService{
		blobs:       blobs,
		index:       st,
		records:     st,
		gcBatchSize: gcBatchSize,
		logger:      logger,
	}
}

// Upload hashes the stream into the blob store and records an index
// row. Identical content collapses onto one blob regardless of caller.
func (s *StorageService) Upload(ctx context.Context, principal authPrincipal, input UploadInput, content io.Reader) (*models.Blob, error) {
	if s.blobs == nil {
		return nil, internalError(fmt.Errorf("blob store is not configured"))
	}

	result, err := s.blobs.Put(ctx, content)
	if err != nil {
		if errors.Is(err, blobstore.ErrIntegrity) {
			return nil, integrityError(err)
		}
		return nil, internalError(fmt.Errorf("store blob: %w", err))
	}

	blob, err := s.index.UpsertBlob(ctx, &models.Blob{
		SHA256:     result.SHA256,
		SizeBytes:  result.SizeBytes,
		BlobKey:    result.BlobKey,
		Filename:   input.Filename,
		MediaType:  input.MediaType,
		UploadedBy: principal.username(),
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return nil, storeFailure(err)
	}

	s.logger.Info("blob stored", "digest", blob.SHA256, "size_bytes", blob.SizeBytes, "uploaded_by", principal.username())
	return blob, nil
}

// Download re-verifies the blob content against its digest and returns
// a reader over the verified bytes. Access follows record ownership:
// clinicians and admins read any blob, patients only blobs they
// uploaded or that a record with their patient ID references.
func (s *StorageService) Download(ctx context.Context, principal authPrincipal, digest string) (io.ReadCloser, *models.Blob, error) {
	blob, err := s.index.GetBlobBySHA256(ctx, digest)
	if err != nil {
		return nil, nil, storeFailure(err)
	}
	if blob == nil {
		return nil, nil, notFoundCode(fmt.Errorf("no blob stored at digest %s", digest), ErrCodeBlobNotFound)
	}

	allowed, err := s.canAccessBlob(ctx, principal, blob)
	if err != nil {
		return nil, nil, storeFailure(err)
	}
	if !allowed {
		return nil, nil, forbidden(fmt.Errorf("not permitted to read this blob"))
	}

	reader, size, err := s.blobs.Open(ctx, digest)
	if err != nil {
		switch {
		case errors.Is(err, blobstore.ErrNotFound):
			return nil, nil, notFoundCode(fmt.Errorf("no blob stored at digest %s", digest), ErrCodeBlobNotFound)
		case errors.Is(err, blobstore.ErrIntegrity):
			return nil, nil, integrityError(fmt.Errorf("blob %s failed verification: %w", digest, err))
		default:
			return nil, nil, internalError(fmt.Errorf("open blob: %w", err))
		}
	}
	if size != blob.SizeBytes {
		reader.Close()
		return nil, nil, integrityError(fmt.Errorf("blob %s size mismatch: index %d, store %d", digest, blob.SizeBytes, size))
	}

	return reader, blob, nil
}

// StatBlob returns index metadata without opening the content.
func (s *StorageService) StatBlob(ctx context.Context, principal authPrincipal, digest string) (*models.Blob, error) {
	blob, err := s.index.GetBlobBySHA256(ctx, digest)
	if err != nil {
		return nil, storeFailure(err)
	}
	if blob == nil {
		return nil, notFoundCode(fmt.Errorf("no blob stored at digest %s", digest), ErrCodeBlobNotFound)
	}
	allowed, err := s.canAccessBlob(ctx, principal, blob)
	if err != nil {
		return nil, storeFailure(err)
	}
	if !allowed {
		return nil, forbidden(fmt.Errorf("not permitted to read this blob"))
	}
	return blob, nil
}

func (s *StorageService) canAccessBlob(ctx context.Context, principal authPrincipal, blob *models.Blob) (bool, error) {
	switch principal.role() {
	case store.UserRoleAdmin, store.UserRoleClinician:
		return true, nil
	case store.UserRolePatient:
		if principal.User != nil && blob.UploadedBy == principal.User.Username {
			return true, nil
		}
		patientID := principal.patientID()
		if patientID == "" {
			return false, nil
		}
		return s.records.DigestReferencedByPatient(ctx, patientID, blob.SHA256)
	default:
		return false, nil
	}
}

// CollectGarbage deletes blobs no record references. One batch per
// call; runs again until Scanned comes back short of the batch size.
func (s *StorageService) CollectGarbage(ctx context.Context, dryRun bool) (GCResult, error) {
	result := GCResult{DryRun: dryRun}

	orphans, err := s.index.ListUnreferencedBlobs(ctx, s.gcBatchSize)
	if err != nil {
		return result, storeFailure(err)
	}
	result.Scanned = len(orphans)

	for _, blob := range orphans {
		result.Digests = append(result.Digests, blob.SHA256)
		if dryRun {
			result.Freed += blob.SizeBytes
			continue
		}
		if err := s.blobs.Delete(ctx, blob.SHA256); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			s.logger.Error("gc delete blob content", "digest", blob.SHA256, "error", err)
			continue
		}
		if err := s.index.DeleteBlob(ctx, blob.ID); err != nil {
			s.logger.Error("gc delete blob row", "digest", blob.SHA256, "error", err)
			continue
		}
		result.Deleted++
		result.Freed += blob.SizeBytes
	}

	s.logger.Info("gc pass complete", "scanned", result.Scanned, "deleted", result.Deleted, "freed_bytes", result.Freed, "dry_run", dryRun)
	return result, nil
}
