package healthrecords

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// LabTestContract manages lab test results. Result documents live in
// off-chain blob storage; the ledger keeps their digests.
type LabTestContract struct {
	contractapi.Contract
}

// LabTest is the ledger document for one lab test result.
type LabTest struct {
	DocType      string `json:"docType"`
	TestID       string `json:"testId"`
	PatientID    string `json:"patientId"`
	TestType     string `json:"testType"`
	ResultDigest string `json:"resultDigest"`
	PerformedBy  string `json:"performedBy"`
	RecordedAt   string `json:"recordedAt"`
}

// RecordLabTest stores a new lab test result.
func (c *LabTestContract) RecordLabTest(ctx contractapi.TransactionContextInterface, testID, patientID, testType, resultDigest, performedBy string) error {
	if err := validateID("testId", testID); err != nil {
		return err
	}
	if err := validateID("patientId", patientID); err != nil {
		return err
	}
	if strings.TrimSpace(testType) == "" {
		return fmt.Errorf("testType is required")
	}
	if err := validateDigest(resultDigest); err != nil {
		return err
	}
	if err := validateID("performedBy", performedBy); err != nil {
		return err
	}

	if existing, _ := ctx.GetStub().GetState(testID); existing != nil {
		return fmt.Errorf("lab test already exists: %s", testID)
	}

	test := LabTest{
		DocType:      docTypeLabTest,
		TestID:       testID,
		PatientID:    patientID,
		TestType:     testType,
		ResultDigest: resultDigest,
		PerformedBy:  performedBy,
		RecordedAt:   txTimestamp(ctx),
	}

	return putDocument(ctx, testID, test)
}

// ReadLabTest returns one lab test by ID.
func (c *LabTestContract) ReadLabTest(ctx contractapi.TransactionContextInterface, testID string) (*LabTest, error) {
	data, err := ctx.GetStub().GetState(testID)
	if err != nil {
		return nil, fmt.Errorf("failed to read from world state: %v", err)
	}
	if data == nil {
		return nil, fmt.Errorf("lab test does not exist: %s", testID)
	}

	var test LabTest
	if err := json.Unmarshal(data, &test); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lab test: %v", err)
	}
	if test.DocType != docTypeLabTest {
		return nil, fmt.Errorf("lab test does not exist: %s", testID)
	}
	return &test, nil
}

// GetLabTestsByPatient returns every lab test for one patient.
func (c *LabTestContract) GetLabTestsByPatient(ctx contractapi.TransactionContextInterface, patientID string) ([]*LabTest, error) {
	if err := validateID("patientId", patientID); err != nil {
		return nil, err
	}

	tests := []*LabTest{}
	err := forEachDocument(ctx, func(data []byte) error {
		var test LabTest
		if err := json.Unmarshal(data, &test); err != nil {
			return nil
		}
		if test.DocType == docTypeLabTest && test.PatientID == patientID {
			tests = append(tests, &test)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tests, nil
}
