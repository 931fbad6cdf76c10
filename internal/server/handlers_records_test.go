package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/api"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/ledger"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/store"
)

func TestCreateRecordSubmitsAndIndexes(t *testing.T) {
	submitter := &fakeSubmitter{txID: "tx-commit-1"}
	srv, _ := newTestServer(t, submitter)

	uploaded := uploadFile(t, srv, "", "report.pdf", "diagnosis report bytes")

	w := doRequest(t, srv, http.MethodPost, "/api/v1/medical-records", "", api.RecordCreateRequest{
		PatientID:  "PAT001",
		IPFSHash:   uploaded.Hash,
		RecordType: "diagnosis",
		Title:      "Annual checkup",
		Metadata:   map[string]any{"department": "cardiology"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp api.RecordResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(resp.RecordID, "rec-") {
		t.Fatalf("expected rec- prefixed id, got %q", resp.RecordID)
	}
	if resp.TxID != "tx-commit-1" {
		t.Fatalf("expected tx id from ledger, got %q", resp.TxID)
	}
	if resp.Status != "committed" {
		t.Fatalf("expected committed status, got %q", resp.Status)
	}

	if submitter.lastName != "CreateRecord" {
		t.Fatalf("expected CreateRecord transaction, got %q", submitter.lastName)
	}
	if len(submitter.lastArgs) != 6 {
		t.Fatalf("expected 6 args, got %d: %v", len(submitter.lastArgs), submitter.lastArgs)
	}
	if submitter.lastArgs[0] != resp.RecordID || submitter.lastArgs[1] != "PAT001" || submitter.lastArgs[2] != uploaded.Hash {
		t.Fatalf("unexpected args: %v", submitter.lastArgs)
	}

	// Mirrored into the index and readable back.
	w = doRequest(t, srv, http.MethodGet, "/api/v1/medical-records/"+resp.RecordID, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateRecordValidation(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSubmitter{})
	uploaded := uploadFile(t, srv, "", "x.txt", "bytes")

	tests := []struct {
		name     string
		req      api.RecordCreateRequest
		wantCode int
	}{
		{
			name:     "missing patient id",
			req:      api.RecordCreateRequest{IPFSHash: uploaded.Hash, RecordType: "diagnosis"},
			wantCode: ErrCodeInvalidPatientID,
		},
		{
			name:     "bad digest",
			req:      api.RecordCreateRequest{PatientID: "PAT001", IPFSHash: "nope", RecordType: "diagnosis"},
			wantCode: ErrCodeInvalidDigest,
		},
		{
			name:     "bad record type",
			req:      api.RecordCreateRequest{PatientID: "PAT001", IPFSHash: uploaded.Hash, RecordType: "horoscope"},
			wantCode: ErrCodeInvalidType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, srv, http.MethodPost, "/api/v1/medical-records", "", tt.req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			errResp := decodeErrorResponse(t, w)
			if errResp.ErrorCode != tt.wantCode {
				t.Fatalf("expected error_code %d, got %d", tt.wantCode, errResp.ErrorCode)
			}
		})
	}
}

func TestCreateRecordUnknownDigestReturns404(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSubmitter{})

	w := doRequest(t, srv, http.MethodPost, "/api/v1/medical-records", "", api.RecordCreateRequest{
		PatientID:  "PAT001",
		IPFSHash:   strings.Repeat("0", 64),
		RecordType: "diagnosis",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	errResp := decodeErrorResponse(t, w)
	if errResp.ErrorCode != ErrCodeBlobNotFound {
		t.Fatalf("expected error_code %d, got %d", ErrCodeBlobNotFound, errResp.ErrorCode)
	}
}

func TestCreateRecordLedgerFailureIsNotRetried(t *testing.T) {
	submitter := &fakeSubmitter{
		err: &ledger.TransactionError{
			Stage: ledger.StageEndorse,
			Err:   errors.New("chaincode rejected: record exists"),
		},
	}
	srv, _ := newTestServer(t, submitter)
	uploaded := uploadFile(t, srv, "", "x.txt", "bytes")

	w := doRequest(t, srv, http.MethodPost, "/api/v1/medical-records", "", api.RecordCreateRequest{
		PatientID:  "PAT001",
		IPFSHash:   uploaded.Hash,
		RecordType: "diagnosis",
	})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", w.Code, w.Body.String())
	}
	errResp := decodeErrorResponse(t, w)
	if errResp.ErrorCode != ErrCodeTransactionFailed {
		t.Fatalf("expected error_code %d, got %d", ErrCodeTransactionFailed, errResp.ErrorCode)
	}
	if submitter.calls != 1 {
		t.Fatalf("expected exactly 1 submission, got %d", submitter.calls)
	}

	// Nothing mirrored for a rejected transaction.
	w = doRequest(t, srv, http.MethodGet, "/api/v1/medical-records", "", nil)
	var records []api.RecordResponse
	if err := json.NewDecoder(w.Body).Decode(&records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no indexed records, got %d", len(records))
	}
}

func TestCreateRecordLedgerUnavailable(t *testing.T) {
	submitter := &fakeSubmitter{
		err: &ledger.TransactionError{
			Stage: ledger.StageSubmit,
			Err:   status.Error(codes.Unavailable, "connection refused"),
		},
	}
	srv, _ := newTestServer(t, submitter)
	uploaded := uploadFile(t, srv, "", "x.txt", "bytes")

	w := doRequest(t, srv, http.MethodPost, "/api/v1/medical-records", "", api.RecordCreateRequest{
		PatientID:  "PAT001",
		IPFSHash:   uploaded.Hash,
		RecordType: "diagnosis",
	})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	errResp := decodeErrorResponse(t, w)
	if errResp.ErrorCode != ErrCodeLedgerUnavailable {
		t.Fatalf("expected error_code %d, got %d", ErrCodeLedgerUnavailable, errResp.ErrorCode)
	}
}

func TestCreateRecordLostCommitLeavesUnknownRow(t *testing.T) {
	submitter := &fakeSubmitter{
		err: &ledger.TransactionError{
			Stage: ledger.StageCommit,
			TxID:  "tx-lost",
			Err:   status.Error(codes.DeadlineExceeded, "commit status timed out"),
		},
	}
	srv, _ := newTestServer(t, submitter)
	uploaded := uploadFile(t, srv, "", "x.txt", "bytes")

	w := doRequest(t, srv, http.MethodPost, "/api/v1/medical-records", "", api.RecordCreateRequest{
		PatientID:  "PAT001",
		IPFSHash:   uploaded.Hash,
		RecordType: "diagnosis",
	})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	errResp := decodeErrorResponse(t, w)
	if errResp.ErrorCode != ErrCodeCommitUnknown {
		t.Fatalf("expected error_code %d, got %d", ErrCodeCommitUnknown, errResp.ErrorCode)
	}

	w = doRequest(t, srv, http.MethodGet, "/api/v1/medical-records", "", nil)
	var records []api.RecordResponse
	if err := json.NewDecoder(w.Body).Decode(&records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 unknown record, got %d", len(records))
	}
	if records[0].Status != "unknown" {
		t.Fatalf("expected unknown status, got %q", records[0].Status)
	}
	if records[0].TxID != "tx-lost" {
		t.Fatalf("expected tx id preserved, got %q", records[0].TxID)
	}
}

func TestPatientRecordScoping(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSubmitter{})

	provisionUser(t, srv, "drjones", "correct-horse-battery", store.UserRoleClinician, "")
	provisionUser(t, srv, "alice", "alice-password-1", store.UserRolePatient, "PAT001")
	provisionUser(t, srv, "bob", "bob-password-123", store.UserRolePatient, "PAT002")

	clinicianToken := loginToken(t, srv, "drjones", "correct-horse-battery")
	aliceToken := loginToken(t, srv, "alice", "alice-password-1")
	bobToken := loginToken(t, srv, "bob", "bob-password-123")

	uploaded := uploadFile(t, srv, clinicianToken, "a.txt", "record content")

	var aliceRecordID string
	for i, patientID := range []string{"PAT001", "PAT002"} {
		w := doRequest(t, srv, http.MethodPost, "/api/v1/medical-records", clinicianToken, api.RecordCreateRequest{
			PatientID:  patientID,
			IPFSHash:   uploaded.Hash,
			RecordType: "lab_result",
			Title:      fmt.Sprintf("result %d", i),
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("create record for %s: %d %s", patientID, w.Code, w.Body.String())
		}
		if patientID == "PAT001" {
			var resp api.RecordResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			aliceRecordID = resp.RecordID
		}
	}

	// Patients cannot create records.
	w := doRequest(t, srv, http.MethodPost, "/api/v1/medical-records", aliceToken, api.RecordCreateRequest{
		PatientID:  "PAT001",
		IPFSHash:   uploaded.Hash,
		RecordType: "diagnosis",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for patient create, got %d", w.Code)
	}

	// Listing is scoped to the patient's own records.
	w = doRequest(t, srv, http.MethodGet, "/api/v1/medical-records", aliceToken, nil)
	var records []api.RecordResponse
	if err := json.NewDecoder(w.Body).Decode(&records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 || records[0].PatientID != "PAT001" {
		t.Fatalf("unexpected patient listing: %+v", records)
	}

	// Clinicians see everything.
	w = doRequest(t, srv, http.MethodGet, "/api/v1/medical-records", clinicianToken, nil)
	if err := json.NewDecoder(w.Body).Decode(&records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records for clinician, got %d", len(records))
	}

	// Cross-patient reads are forbidden.
	w = doRequest(t, srv, http.MethodGet, "/api/v1/medical-records/"+aliceRecordID, bobToken, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for other patient, got %d", w.Code)
	}
	w = doRequest(t, srv, http.MethodGet, "/api/v1/medical-records/"+aliceRecordID, aliceToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner, got %d", w.Code)
	}
}

func TestGetRecordNotFound(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSubmitter{})

	w := doRequest(t, srv, http.MethodGet, "/api/v1/medical-records/rec-zzzzzz", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	errResp := decodeErrorResponse(t, w)
	if errResp.ErrorCode != ErrCodeRecordNotFound {
		t.Fatalf("expected error_code %d, got %d", ErrCodeRecordNotFound, errResp.ErrorCode)
	}
}
