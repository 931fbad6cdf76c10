// Package healthrecords holds the chaincode contracts backing the
// healthlink ledger: medical records, prescriptions, appointments,
// insurance claims, and lab tests. Each contract is a thin validation
// layer over world-state get/put keyed by document ID.
package healthrecords

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

const (
	docTypeRecord       = "record"
	docTypePrescription = "prescription"
	docTypeAppointment  = "appointment"
	docTypeClaim        = "claim"
	docTypeLabTest      = "lab_test"
)

// MedicalRecordContract manages digest-bearing medical records.
type MedicalRecordContract struct {
	contractapi.Contract
}

// Record is the ledger document for one medical record. The content
// itself lives in off-chain blob storage; the ledger holds its digest.
type Record struct {
	DocType    string `json:"docType"`
	RecordID   string `json:"recordId"`
	PatientID  string `json:"patientId"`
	IPFSHash   string `json:"ipfsHash"`
	RecordType string `json:"recordType"`
	Title      string `json:"title,omitempty"`
	Metadata   string `json:"metadata,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

// CreateRecord stores a new medical record. The digest must already be
// computed from the content bytes; the chaincode never synthesizes one.
func (c *MedicalRecordContract) CreateRecord(ctx contractapi.TransactionContextInterface, recordID, patientID, ipfsHash, recordType, title, metadataJSON string) error {
	if err := validateID("recordId", recordID); err != nil {
		return err
	}
	if err := validateID("patientId", patientID); err != nil {
		return err
	}
	if err := validateDigest(ipfsHash); err != nil {
		return err
	}
	if err := validateRecordType(recordType); err != nil {
		return err
	}
	if err := validateMetadataJSON(metadataJSON); err != nil {
		return err
	}

	exists, err := c.RecordExists(ctx, recordID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("record already exists: %s", recordID)
	}

	record := Record{
		DocType:    docTypeRecord,
		RecordID:   recordID,
		PatientID:  patientID,
		IPFSHash:   ipfsHash,
		RecordType: recordType,
		Title:      title,
		Metadata:   metadataJSON,
		CreatedAt:  txTimestamp(ctx),
	}

	return putDocument(ctx, recordID, record)
}

// ReadRecord returns one record by ID.
func (c *MedicalRecordContract) ReadRecord(ctx contractapi.TransactionContextInterface, recordID string) (*Record, error) {
	data, err := ctx.GetStub().GetState(recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to read from world state: %v", err)
	}
	if data == nil {
		return nil, fmt.Errorf("record does not exist: %s", recordID)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %v", err)
	}
	if record.DocType != docTypeRecord {
		return nil, fmt.Errorf("record does not exist: %s", recordID)
	}
	return &record, nil
}

// RecordExists reports whether a record is stored under recordID.
func (c *MedicalRecordContract) RecordExists(ctx contractapi.TransactionContextInterface, recordID string) (bool, error) {
	data, err := ctx.GetStub().GetState(recordID)
	if err != nil {
		return false, fmt.Errorf("failed to read from world state: %v", err)
	}
	return data != nil, nil
}

// GetRecordsByPatient returns every record for one patient.
func (c *MedicalRecordContract) GetRecordsByPatient(ctx contractapi.TransactionContextInterface, patientID string) ([]*Record, error) {
	if err := validateID("patientId", patientID); err != nil {
		return nil, err
	}

	records := []*Record{}
	err := forEachDocument(ctx, func(data []byte) error {
		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			return nil
		}
		if record.DocType == docTypeRecord && record.PatientID == patientID {
			records = append(records, &record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func putDocument(ctx contractapi.TransactionContextInterface, key string, doc any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %v", err)
	}
	if err := ctx.GetStub().PutState(key, payload); err != nil {
		return fmt.Errorf("failed to store document: %v", err)
	}
	return nil
}

func forEachDocument(ctx contractapi.TransactionContextInterface, fn func(data []byte) error) error {
	iterator, err := ctx.GetStub().GetStateByRange("", "")
	if err != nil {
		return fmt.Errorf("failed to range world state: %v", err)
	}
	defer iterator.Close()

	for iterator.HasNext() {
		result, err := iterator.Next()
		if err != nil {
			return fmt.Errorf("failed to iterate world state: %v", err)
		}
		if err := fn(result.Value); err != nil {
			return err
		}
	}
	return nil
}

func txTimestamp(ctx contractapi.TransactionContextInterface) string {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil || ts == nil {
		return ""
	}
	return ts.AsTime().UTC().Format("2006-01-02T15:04:05Z")
}
