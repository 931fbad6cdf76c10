package models

import "time"

// Blob is an immutable stored content object addressed by its SHA-256 digest.
type Blob struct {
	ID             string    `json:"id"`
	SHA256         string    `json:"sha256"`
	SizeBytes      int64     `json:"size_bytes"`
	StorageBackend string    `json:"storage_backend"`
	BlobKey        string    `json:"blob_key"`
	Filename       string    `json:"filename,omitempty"`
	MediaType      string    `json:"media_type,omitempty"`
	UploadedBy     string    `json:"uploaded_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
