package healthrecords

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

const (
	prescriptionStatusActive    = "active"
	prescriptionStatusDispensed = "dispensed"
	prescriptionStatusCancelled = "cancelled"
)

// PrescriptionContract manages prescriptions issued by clinicians.
type PrescriptionContract struct {
	contractapi.Contract
}

// Prescription is the ledger document for one prescription.
type Prescription struct {
	DocType      string `json:"docType"`
	RxID         string `json:"rxId"`
	PatientID    string `json:"patientId"`
	DoctorID     string `json:"doctorId"`
	Medication   string `json:"medication"`
	Dosage       string `json:"dosage"`
	Instructions string `json:"instructions,omitempty"`
	Status       string `json:"status"`
	IssuedAt     string `json:"issuedAt"`
	DispensedAt  string `json:"dispensedAt,omitempty"`
}

// IssuePrescription stores a new active prescription.
func (c *PrescriptionContract) IssuePrescription(ctx contractapi.TransactionContextInterface, rxID, patientID, doctorID, medication, dosage, instructions string) error {
	if err := validateID("rxId", rxID); err != nil {
		return err
	}
	if err := validateID("patientId", patientID); err != nil {
		return err
	}
	if err := validateID("doctorId", doctorID); err != nil {
		return err
	}
	if strings.TrimSpace(medication) == "" {
		return fmt.Errorf("medication is required")
	}
	if strings.TrimSpace(dosage) == "" {
		return fmt.Errorf("dosage is required")
	}

	if existing, _ := ctx.GetStub().GetState(rxID); existing != nil {
		return fmt.Errorf("prescription already exists: %s", rxID)
	}

	prescription := Prescription{
		DocType:      docTypePrescription,
		RxID:         rxID,
		PatientID:    patientID,
		DoctorID:     doctorID,
		Medication:   medication,
		Dosage:       dosage,
		Instructions: instructions,
		Status:       prescriptionStatusActive,
		IssuedAt:     txTimestamp(ctx),
	}

	return putDocument(ctx, rxID, prescription)
}

// ReadPrescription returns one prescription by ID.
func (c *PrescriptionContract) ReadPrescription(ctx contractapi.TransactionContextInterface, rxID string) (*Prescription, error) {
	data, err := ctx.GetStub().GetState(rxID)
	if err != nil {
		return nil, fmt.Errorf("failed to read from world state: %v", err)
	}
	if data == nil {
		return nil, fmt.Errorf("prescription does not exist: %s", rxID)
	}

	var prescription Prescription
	if err := json.Unmarshal(data, &prescription); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prescription: %v", err)
	}
	if prescription.DocType != docTypePrescription {
		return nil, fmt.Errorf("prescription does not exist: %s", rxID)
	}
	return &prescription, nil
}

// DispensePrescription marks an active prescription as dispensed.
func (c *PrescriptionContract) DispensePrescription(ctx contractapi.TransactionContextInterface, rxID string) error {
	prescription, err := c.ReadPrescription(ctx, rxID)
	if err != nil {
		return err
	}
	if prescription.Status != prescriptionStatusActive {
		return fmt.Errorf("prescription is %s, not active", prescription.Status)
	}

	prescription.Status = prescriptionStatusDispensed
	prescription.DispensedAt = txTimestamp(ctx)
	return putDocument(ctx, rxID, prescription)
}

// CancelPrescription cancels an active prescription.
func (c *PrescriptionContract) CancelPrescription(ctx contractapi.TransactionContextInterface, rxID string) error {
	prescription, err := c.ReadPrescription(ctx, rxID)
	if err != nil {
		return err
	}
	if prescription.Status != prescriptionStatusActive {
		return fmt.Errorf("prescription is %s, not active", prescription.Status)
	}

	prescription.Status = prescriptionStatusCancelled
	return putDocument(ctx, rxID, prescription)
}

// GetPrescriptionsByPatient returns every prescription for one patient.
func (c *PrescriptionContract) GetPrescriptionsByPatient(ctx contractapi.TransactionContextInterface, patientID string) ([]*Prescription, error) {
	if err := validateID("patientId", patientID); err != nil {
		return nil, err
	}

	prescriptions := []*Prescription{}
	err := forEachDocument(ctx, func(data []byte) error {
		var prescription Prescription
		if err := json.Unmarshal(data, &prescription); err != nil {
			return nil
		}
		if prescription.DocType == docTypePrescription && prescription.PatientID == patientID {
			prescriptions = append(prescriptions, &prescription)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prescriptions, nil
}
