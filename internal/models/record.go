package models

import (
	"fmt"
	"strings"
	"time"
)

// RecordType describes the clinical category of a ledger record.
type RecordType string

const (
	RecordTypeDiagnosis        RecordType = "diagnosis"
	RecordTypePrescription     RecordType = "prescription"
	RecordTypeLabResult        RecordType = "lab_result"
	RecordTypeImaging          RecordType = "imaging"
	RecordTypeDischargeSummary RecordType = "discharge_summary"
	RecordTypeInsuranceClaim   RecordType = "insurance_claim"
	RecordTypeOther            RecordType = "other"
)

// RecordStatus describes how far a ledger submission is known to have gone.
type RecordStatus string

const (
	// RecordStatusCommitted means the transaction validated and committed.
	RecordStatusCommitted RecordStatus = "committed"
	// RecordStatusUnknown means the submission was sent but the commit
	// acknowledgment was lost; only reconciliation can resolve it.
	RecordStatusUnknown RecordStatus = "unknown"
)

var validRecordTypes = map[RecordType]struct{}{
	RecordTypeDiagnosis:        {},
	RecordTypePrescription:     {},
	RecordTypeLabResult:        {},
	RecordTypeImaging:          {},
	RecordTypeDischargeSummary: {},
	RecordTypeInsuranceClaim:   {},
	RecordTypeOther:            {},
}

// Record is the local view of one ledger-backed medical record.
// The ledger owns the authoritative copy; this row mirrors a submission
// whose outcome is known.
type Record struct {
	ID         string         `json:"id"`
	PatientID  string         `json:"patient_id"`
	Digest     string         `json:"digest"`
	RecordType string         `json:"record_type"`
	Title      string         `json:"title,omitempty"`
	Filename   string         `json:"filename,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	TxID       string         `json:"tx_id,omitempty"`
	Status     string         `json:"status"`
	CreatedBy  string         `json:"created_by,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func ParseRecordType(raw string) (RecordType, error) {
	value := RecordType(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("record type is required")
	}
	if _, ok := validRecordTypes[value]; !ok {
		return "", fmt.Errorf("invalid record type: %s", value)
	}
	return value, nil
}

// RecordTypes returns the accepted record type values in stable order.
func RecordTypes() []string {
	return []string{
		string(RecordTypeDiagnosis),
		string(RecordTypePrescription),
		string(RecordTypeLabResult),
		string(RecordTypeImaging),
		string(RecordTypeDischargeSummary),
		string(RecordTypeInsuranceClaim),
		string(RecordTypeOther),
	}
}
