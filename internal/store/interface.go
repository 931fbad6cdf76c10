package store

import (
	"context"
	"time"

	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/models"
)

// RecordIndex is the record-index surface consumed by the record service.
type RecordIndex interface {
	CreateRecord(ctx context.Context, record *models.Record) error
	GetRecord(ctx context.Context, id string) (*models.Record, error)
	RecordExists(ctx context.Context, id string) (bool, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]models.Record, error)
	DigestReferencedByPatient(ctx context.Context, patientID, digest string) (bool, error)
}

// BlobIndex is the blob-metadata surface consumed by the storage service.
type BlobIndex interface {
	UpsertBlob(ctx context.Context, blob *models.Blob) (*models.Blob, error)
	GetBlobBySHA256(ctx context.Context, sha string) (*models.Blob, error)
	DeleteBlob(ctx context.Context, id string) error
	ListUnreferencedBlobs(ctx context.Context, limit int) ([]models.Blob, error)
}

// AuthStore is the user and session surface consumed by the auth service.
type AuthStore interface {
	CountEnabledUsers(ctx context.Context) (int, error)
	CreateUser(ctx context.Context, username, passwordHash, role, patientID string, now time.Time) (*AuthUser, error)
	GetUserByUsername(ctx context.Context, username string) (*AuthUser, error)
	GetUserByID(ctx context.Context, id string) (*AuthUser, error)
	ListUsers(ctx context.Context) ([]AuthUser, error)
	SetUserDisabled(ctx context.Context, username string, disabled bool, now time.Time) (*AuthUser, error)
	CreateSession(ctx context.Context, userID, tokenHash string, expiresAt, createdAt time.Time) error
	GetUserBySessionTokenHash(ctx context.Context, tokenHash string, now time.Time) (*AuthUser, error)
	RevokeSessionByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error
}
