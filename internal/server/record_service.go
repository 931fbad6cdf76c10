package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/blobstore"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/ledger"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/models"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/store"
)

// RecordService submits medical records to the ledger and mirrors
// committed ones into the local index. Failed submissions surface to
// the caller; nothing resubmits automatically.
type RecordService struct {
	index     store.RecordIndex
	blobs     store.BlobIndex
	submitter ledger.Submitter
	logger    *slog.Logger
}

// CreateRecordInput carries a validated-on-entry record submission.
type CreateRecordInput struct {
	PatientID  string
	Digest     string
	RecordType string
	Title      string
	Filename   string
	Metadata   map[string]any
}

func NewRecordService(index store.RecordIndex, blobs store.BlobIndex, submitter ledger.Submitter, logger *slog.Logger) *RecordService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordService{index: index, blobs: blobs, submitter: submitter, logger: logger}
}

// Create validates the submission, writes it to the ledger, and mirrors
// the committed record locally.
func (s *RecordService) Create(ctx context.Context, principal authPrincipal, input CreateRecordInput) (*models.Record, error) {
	input.PatientID = strings.TrimSpace(input.PatientID)
	if !validatePatientID(input.PatientID) {
		return nil, badRequestCode(fmt.Errorf("invalid patient id"), ErrCodeInvalidPatientID)
	}
	input.Digest = strings.ToLower(strings.TrimSpace(input.Digest))
	if !blobstore.ValidDigest(input.Digest) {
		return nil, badRequestCode(fmt.Errorf("invalid digest: expected 64 hex characters"), ErrCodeInvalidDigest)
	}
	recordType, err := models.ParseRecordType(input.RecordType)
	if err != nil {
		return nil, badRequestCode(err, ErrCodeInvalidType)
	}
	if principal.role() == store.UserRolePatient {
		return nil, forbidden(fmt.Errorf("patients cannot create records"))
	}

	blob, err := s.blobs.GetBlobBySHA256(ctx, input.Digest)
	if err != nil {
		return nil, storeFailure(err)
	}
	if blob == nil {
		return nil, notFoundCode(fmt.Errorf("no blob stored at digest %s", input.Digest), ErrCodeBlobNotFound)
	}

	if s.submitter == nil {
		return nil, ledgerFailure(fmt.Errorf("ledger is not configured"), ErrCodeLedgerUnavailable)
	}

	id, err := store.GenerateRecordID(func(candidate string) (bool, error) {
		return s.index.RecordExists(ctx, candidate)
	})
	if err != nil {
		return nil, internalError(err)
	}

	metadataJSON, err := metadataToJSON(input.Metadata)
	if err != nil {
		return nil, badRequest(err)
	}

	record := &models.Record{
		ID:         id,
		PatientID:  input.PatientID,
		Digest:     input.Digest,
		RecordType: string(recordType),
		Title:      strings.TrimSpace(input.Title),
		Filename:   strings.TrimSpace(input.Filename),
		Metadata:   input.Metadata,
		CreatedBy:  principal.username(),
		CreatedAt:  time.Now().UTC(),
	}

	_, txID, err := s.submitter.Submit(ctx, "CreateRecord",
		record.ID, record.PatientID, record.Digest, record.RecordType, record.Title, metadataJSON)
	if err != nil {
		return nil, s.classifySubmitError(ctx, record, err)
	}

	record.TxID = txID
	record.Status = string(models.RecordStatusCommitted)
	if err := s.index.CreateRecord(ctx, record); err != nil {
		// The ledger committed; losing the mirror row must not turn
		// the response into a failure.
		s.logger.Error("index committed record", "record_id", record.ID, "tx_id", txID, "error", err)
	}

	s.logger.Info("record committed", "record_id", record.ID, "patient_id", record.PatientID, "tx_id", txID)
	return record, nil
}

// classifySubmitError maps a ledger failure to an HTTP-facing error.
// A lost commit acknowledgment leaves an "unknown" mirror row so an
// operator can reconcile it against the ledger later.
func (s *RecordService) classifySubmitError(ctx context.Context, record *models.Record, err error) error {
	txErr, ok := ledger.AsTransactionError(err)
	if !ok {
		return ledgerFailure(err, ErrCodeTransactionFailed)
	}

	record.TxID = txErr.TxID

	if txErr.Stage == ledger.StageCommit && txErr.Unavailable() {
		record.Status = string(models.RecordStatusUnknown)
		if indexErr := s.index.CreateRecord(ctx, record); indexErr != nil {
			s.logger.Error("index unknown record", "record_id", record.ID, "error", indexErr)
		}
		s.logger.Warn("commit acknowledgment lost", "record_id", record.ID, "tx_id", txErr.TxID)
		return ledgerFailure(err, ErrCodeCommitUnknown)
	}
	if txErr.Unavailable() {
		return ledgerFailure(err, ErrCodeLedgerUnavailable)
	}
	return ledgerFailure(err, ErrCodeTransactionFailed)
}

// Get returns one indexed record, enforcing patient ownership.
func (s *RecordService) Get(ctx context.Context, principal authPrincipal, id string) (*models.Record, error) {
	record, err := s.index.GetRecord(ctx, id)
	if err != nil {
		return nil, storeFailure(err)
	}
	if record == nil {
		return nil, notFoundCode(fmt.Errorf("record not found: %s", id), ErrCodeRecordNotFound)
	}
	if principal.role() == store.UserRolePatient && record.PatientID != principal.patientID() {
		return nil, forbidden(fmt.Errorf("not permitted to read this record"))
	}
	return record, nil
}

// List returns indexed records. Patients see only their own.
func (s *RecordService) List(ctx context.Context, principal authPrincipal, filter store.RecordFilter) ([]models.Record, error) {
	if principal.role() == store.UserRolePatient {
		patientID := principal.patientID()
		if patientID == "" {
			return []models.Record{}, nil
		}
		if filter.PatientID != "" && filter.PatientID != patientID {
			return nil, forbidden(fmt.Errorf("not permitted to list other patients"))
		}
		filter.PatientID = patientID
	}

	records, err := s.index.ListRecords(ctx, filter)
	if err != nil {
		return nil, storeFailure(err)
	}
	if records == nil {
		records = []models.Record{}
	}
	return records, nil
}

func metadataToJSON(metadata map[string]any) (string, error) {
	if len(metadata) == 0 {
		return "{}", nil
	}
	payload, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("invalid metadata: %w", err)
	}
	return string(payload), nil
}
