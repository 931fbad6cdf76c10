package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/api"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/models"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/store"
)

// SHA-256 of "hello world\n".
const helloWorldDigest = "a948904f2f0f479b8f8197694b30184b0d2ed1c1cd2a1ec0fb85d299a192a447"

func TestUploadDownloadRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSubmitter{})

	resp := uploadFile(t, srv, "", "note.txt", "hello world\n")
	if resp.Hash != helloWorldDigest {
		t.Fatalf("expected digest %s, got %s", helloWorldDigest, resp.Hash)
	}
	if resp.SizeBytes != 12 {
		t.Fatalf("expected 12 bytes, got %d", resp.SizeBytes)
	}

	w := doRequest(t, srv, http.MethodGet, "/api/storage/"+resp.Hash, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != "hello world\n" {
		t.Fatalf("round trip mismatch: %q", got)
	}
	if disp := w.Header().Get("Content-Disposition"); !strings.Contains(disp, "note.txt") {
		t.Fatalf("expected filename in disposition, got %q", disp)
	}
	if length := w.Header().Get("Content-Length"); length != "12" {
		t.Fatalf("unexpected content length %q", length)
	}
}

func TestUploadIsIdempotent(t *testing.T) {
	srv, st := newTestServer(t, &fakeSubmitter{})

	first := uploadFile(t, srv, "", "a.txt", "hello world\n")
	second := uploadFile(t, srv, "", "b.txt", "hello world\n")
	if first.Hash != second.Hash {
		t.Fatalf("identical content produced different digests: %s vs %s", first.Hash, second.Hash)
	}

	info, err := st.StoreInfo(context.Background())
	if err != nil {
		t.Fatalf("store info: %v", err)
	}
	if info.TotalBlobs != 1 {
		t.Fatalf("expected 1 blob row after re-upload, got %d", info.TotalBlobs)
	}
}

func TestUploadRequiresFileField(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSubmitter{})

	w := doRequest(t, srv, http.MethodPost, "/api/storage/upload", "", map[string]string{"not": "multipart"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestDownloadUnknownDigestReturns404(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSubmitter{})

	w := doRequest(t, srv, http.MethodGet, "/api/storage/"+strings.Repeat("0", 64), "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	errResp := decodeErrorResponse(t, w)
	if errResp.ErrorCode != ErrCodeBlobNotFound {
		t.Fatalf("expected error_code %d, got %d", ErrCodeBlobNotFound, errResp.ErrorCode)
	}
}

func TestDownloadInvalidDigestReturns400(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSubmitter{})

	w := doRequest(t, srv, http.MethodGet, "/api/storage/not-a-digest", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	errResp := decodeErrorResponse(t, w)
	if errResp.ErrorCode != ErrCodeInvalidDigest {
		t.Fatalf("expected error_code %d, got %d", ErrCodeInvalidDigest, errResp.ErrorCode)
	}
}

func TestDownloadCorruptBlobReturnsIntegrityError(t *testing.T) {
	dir := t.TempDir()
	srv, st := newTestServerInDir(t, dir)
	_ = st

	resp := uploadFile(t, srv, "", "note.txt", "hello world\n")

	// Flip one byte in place; size is unchanged so only rehashing
	// can catch it.
	blobPath := filepath.Join(dir, "blobs", "sha256", resp.Hash[0:2], resp.Hash[2:4], resp.Hash)
	content, err := os.ReadFile(blobPath)
	if err != nil {
		t.Fatalf("read stored blob: %v", err)
	}
	content[0] ^= 0xff
	if err := os.WriteFile(blobPath, content, 0o644); err != nil {
		t.Fatalf("corrupt stored blob: %v", err)
	}

	w := doRequest(t, srv, http.MethodGet, "/api/storage/"+resp.Hash, "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
	}
	errResp := decodeErrorResponse(t, w)
	if errResp.ErrorCode != ErrCodeIntegrity {
		t.Fatalf("expected error_code %d, got %d", ErrCodeIntegrity, errResp.ErrorCode)
	}
}

func TestPatientDownloadAccess(t *testing.T) {
	srv, st := newTestServer(t, &fakeSubmitter{})

	provisionUser(t, srv, "admin", "admin-password-1", store.UserRoleAdmin, "")
	provisionUser(t, srv, "alice", "alice-password-1", store.UserRolePatient, "PAT001")
	provisionUser(t, srv, "bob", "bob-password-123", store.UserRolePatient, "PAT002")

	adminToken := loginToken(t, srv, "admin", "admin-password-1")
	aliceToken := loginToken(t, srv, "alice", "alice-password-1")
	bobToken := loginToken(t, srv, "bob", "bob-password-123")

	uploaded := uploadFile(t, srv, adminToken, "scan.bin", "imaging bytes")

	// No record references the blob yet: patients get 403, admin 200.
	w := doRequest(t, srv, http.MethodGet, "/api/storage/"+uploaded.Hash, aliceToken, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unrelated patient, got %d", w.Code)
	}
	w = doRequest(t, srv, http.MethodGet, "/api/storage/"+uploaded.Hash, adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", w.Code)
	}

	// Reference the blob from one of Alice's records.
	err := st.CreateRecord(context.Background(), &models.Record{
		ID:         "rec-abc123",
		PatientID:  "PAT001",
		Digest:     uploaded.Hash,
		RecordType: string(models.RecordTypeImaging),
		Status:     string(models.RecordStatusCommitted),
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create record: %v", err)
	}

	w = doRequest(t, srv, http.MethodGet, "/api/storage/"+uploaded.Hash, aliceToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for referenced patient, got %d: %s", w.Code, w.Body.String())
	}
	w = doRequest(t, srv, http.MethodGet, "/api/storage/"+uploaded.Hash, bobToken, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for other patient, got %d", w.Code)
	}
}

func TestPatientCanDownloadOwnUpload(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSubmitter{})

	provisionUser(t, srv, "alice", "alice-password-1", store.UserRolePatient, "PAT001")
	aliceToken := loginToken(t, srv, "alice", "alice-password-1")

	uploaded := uploadFile(t, srv, aliceToken, "mine.txt", "my own bytes")

	w := doRequest(t, srv, http.MethodGet, "/api/storage/"+uploaded.Hash, aliceToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for own upload, got %d: %s", w.Code, w.Body.String())
	}
}

func TestStatBlob(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSubmitter{})

	uploaded := uploadFile(t, srv, "", "note.txt", "hello world\n")

	w := doRequest(t, srv, http.MethodGet, "/api/storage/"+uploaded.Hash+"/stat", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp api.BlobStatResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Hash != uploaded.Hash || resp.SizeBytes != 12 || resp.Filename != "note.txt" {
		t.Fatalf("unexpected stat response: %+v", resp)
	}
}

func TestAdminGCRemovesUnreferencedBlobs(t *testing.T) {
	srv, st := newTestServer(t, &fakeSubmitter{})

	orphan := uploadFile(t, srv, "", "orphan.txt", "orphan bytes")
	kept := uploadFile(t, srv, "", "kept.txt", "kept bytes")

	err := st.CreateRecord(context.Background(), &models.Record{
		ID:         "rec-keep01",
		PatientID:  "PAT001",
		Digest:     kept.Hash,
		RecordType: string(models.RecordTypeOther),
		Status:     string(models.RecordStatusCommitted),
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create record: %v", err)
	}

	// Dry run reports but deletes nothing.
	w := doRequest(t, srv, http.MethodPost, "/api/v1/admin/gc?dry_run=true", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var dry api.GCResponse
	if err := json.NewDecoder(w.Body).Decode(&dry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !dry.DryRun || dry.Deleted != 0 || dry.Scanned != 1 {
		t.Fatalf("unexpected dry run result: %+v", dry)
	}

	w = doRequest(t, srv, http.MethodPost, "/api/v1/admin/gc", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var real api.GCResponse
	if err := json.NewDecoder(w.Body).Decode(&real); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if real.Deleted != 1 {
		t.Fatalf("expected 1 deleted, got %+v", real)
	}

	w = doRequest(t, srv, http.MethodGet, "/api/storage/"+orphan.Hash, "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected orphan gone, got %d", w.Code)
	}
	w = doRequest(t, srv, http.MethodGet, "/api/storage/"+kept.Hash, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected kept blob readable, got %d", w.Code)
	}
}
