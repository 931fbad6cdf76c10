package api

import "time"

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// UploadResponse is returned after a blob upload.
type UploadResponse struct {
	Hash      string `json:"hash"`
	SizeBytes int64  `json:"size_bytes"`
}

// BlobStatResponse describes a stored blob without its content.
type BlobStatResponse struct {
	Hash      string `json:"hash"`
	SizeBytes int64  `json:"size_bytes"`
	Filename  string `json:"filename,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// RecordCreateRequest creates a medical record referencing an uploaded
// blob. Field names follow the ledger API contract.
type RecordCreateRequest struct {
	PatientID  string         `json:"patientId"`
	IPFSHash   string         `json:"ipfsHash"`
	RecordType string         `json:"recordType"`
	Title      string         `json:"title,omitempty"`
	Filename   string         `json:"filename,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// RecordResponse is a committed medical record.
type RecordResponse struct {
	RecordID   string         `json:"recordId"`
	PatientID  string         `json:"patientId"`
	IPFSHash   string         `json:"ipfsHash"`
	RecordType string         `json:"recordType"`
	Title      string         `json:"title,omitempty"`
	Filename   string         `json:"filename,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	TxID       string         `json:"txId,omitempty"`
	Status     string         `json:"status"`
	CreatedBy  string         `json:"createdBy,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// AuthLoginRequest is a credentials login.
type AuthLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthLoginResponse carries a session token.
type AuthLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthMeResponse describes the authenticated principal.
type AuthMeResponse struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	PatientID string `json:"patient_id,omitempty"`
}

// UserCreateRequest creates a user account.
type UserCreateRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	PatientID string `json:"patient_id,omitempty"`
}

// UserResponse is a user account without credentials.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	PatientID string    `json:"patient_id,omitempty"`
	Disabled  bool      `json:"disabled"`
	CreatedAt time.Time `json:"created_at"`
}

// GCResponse reports a blob garbage collection pass.
type GCResponse struct {
	Scanned int      `json:"scanned"`
	Deleted int      `json:"deleted"`
	Freed   int64    `json:"freed_bytes"`
	DryRun  bool     `json:"dry_run"`
	Digests []string `json:"digests,omitempty"`
}

// InfoResponse reports server status.
type InfoResponse struct {
	Version         string         `json:"version"`
	SchemaVersion   int            `json:"schema_version"`
	RecordCount     int            `json:"record_count"`
	BlobCount       int            `json:"blob_count"`
	RecordsByType   map[string]int `json:"records_by_type,omitempty"`
	LedgerConnected bool           `json:"ledger_connected"`
}
