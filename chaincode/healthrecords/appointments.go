package healthrecords

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

const (
	appointmentStatusScheduled = "scheduled"
	appointmentStatusCompleted = "completed"
	appointmentStatusCancelled = "cancelled"
)

// AppointmentContract manages patient appointments.
type AppointmentContract struct {
	contractapi.Contract
}

// Appointment is the ledger document for one appointment.
type Appointment struct {
	DocType     string `json:"docType"`
	ApptID      string `json:"apptId"`
	PatientID   string `json:"patientId"`
	ClinicianID string `json:"clinicianId"`
	ScheduledAt string `json:"scheduledAt"`
	Reason      string `json:"reason,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt"`
}

// ScheduleAppointment stores a new scheduled appointment. scheduledAt
// must be RFC3339.
func (c *AppointmentContract) ScheduleAppointment(ctx contractapi.TransactionContextInterface, apptID, patientID, clinicianID, scheduledAt, reason string) error {
	if err := validateID("apptId", apptID); err != nil {
		return err
	}
	if err := validateID("patientId", patientID); err != nil {
		return err
	}
	if err := validateID("clinicianId", clinicianID); err != nil {
		return err
	}
	if _, err := time.Parse(time.RFC3339, strings.TrimSpace(scheduledAt)); err != nil {
		return fmt.Errorf("invalid scheduledAt: expected RFC3339 timestamp")
	}

	if existing, _ := ctx.GetStub().GetState(apptID); existing != nil {
		return fmt.Errorf("appointment already exists: %s", apptID)
	}

	appointment := Appointment{
		DocType:     docTypeAppointment,
		ApptID:      apptID,
		PatientID:   patientID,
		ClinicianID: clinicianID,
		ScheduledAt: strings.TrimSpace(scheduledAt),
		Reason:      reason,
		Status:      appointmentStatusScheduled,
		CreatedAt:   txTimestamp(ctx),
	}

	return putDocument(ctx, apptID, appointment)
}

// ReadAppointment returns one appointment by ID.
func (c *AppointmentContract) ReadAppointment(ctx contractapi.TransactionContextInterface, apptID string) (*Appointment, error) {
	data, err := ctx.GetStub().GetState(apptID)
	if err != nil {
		return nil, fmt.Errorf("failed to read from world state: %v", err)
	}
	if data == nil {
		return nil, fmt.Errorf("appointment does not exist: %s", apptID)
	}

	var appointment Appointment
	if err := json.Unmarshal(data, &appointment); err != nil {
		return nil, fmt.Errorf("failed to unmarshal appointment: %v", err)
	}
	if appointment.DocType != docTypeAppointment {
		return nil, fmt.Errorf("appointment does not exist: %s", apptID)
	}
	return &appointment, nil
}

// CompleteAppointment marks a scheduled appointment completed.
func (c *AppointmentContract) CompleteAppointment(ctx contractapi.TransactionContextInterface, apptID string) error {
	return c.transition(ctx, apptID, appointmentStatusCompleted)
}

// CancelAppointment cancels a scheduled appointment.
func (c *AppointmentContract) CancelAppointment(ctx contractapi.TransactionContextInterface, apptID string) error {
	return c.transition(ctx, apptID, appointmentStatusCancelled)
}

func (c *AppointmentContract) transition(ctx contractapi.TransactionContextInterface, apptID, status string) error {
	appointment, err := c.ReadAppointment(ctx, apptID)
	if err != nil {
		return err
	}
	if appointment.Status != appointmentStatusScheduled {
		return fmt.Errorf("appointment is %s, not scheduled", appointment.Status)
	}

	appointment.Status = status
	return putDocument(ctx, apptID, appointment)
}

// GetAppointmentsByPatient returns every appointment for one patient.
func (c *AppointmentContract) GetAppointmentsByPatient(ctx contractapi.TransactionContextInterface, patientID string) ([]*Appointment, error) {
	if err := validateID("patientId", patientID); err != nil {
		return nil, err
	}

	appointments := []*Appointment{}
	err := forEachDocument(ctx, func(data []byte) error {
		var appointment Appointment
		if err := json.Unmarshal(data, &appointment); err != nil {
			return nil
		}
		if appointment.DocType == docTypeAppointment && appointment.PatientID == patientID {
			appointments = append(appointments, &appointment)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return appointments, nil
}
