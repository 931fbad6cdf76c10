package healthrecords

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

const (
	claimStatusPending  = "pending"
	claimStatusApproved = "approved"
	claimStatusRejected = "rejected"
)

// InsuranceClaimContract manages insurance claims against records.
type InsuranceClaimContract struct {
	contractapi.Contract
}

// Claim is the ledger document for one insurance claim.
type Claim struct {
	DocType     string `json:"docType"`
	ClaimID     string `json:"claimId"`
	PatientID   string `json:"patientId"`
	PolicyID    string `json:"policyId"`
	ClaimAmount int    `json:"claimAmount"`
	Reason      string `json:"reason,omitempty"`
	Status      string `json:"status"`
	SubmittedAt string `json:"submittedAt"`
	DecidedAt   string `json:"decidedAt,omitempty"`
	Decision    string `json:"decision,omitempty"`
}

// SubmitClaim stores a new pending claim.
func (c *InsuranceClaimContract) SubmitClaim(ctx contractapi.TransactionContextInterface, claimID, patientID, policyID string, claimAmount int, reason string) error {
	if err := validateID("claimId", claimID); err != nil {
		return err
	}
	if err := validateID("patientId", patientID); err != nil {
		return err
	}
	if err := validateID("policyId", policyID); err != nil {
		return err
	}
	if err := validateAmount(claimAmount); err != nil {
		return err
	}

	if existing, _ := ctx.GetStub().GetState(claimID); existing != nil {
		return fmt.Errorf("claim already exists: %s", claimID)
	}

	claim := Claim{
		DocType:     docTypeClaim,
		ClaimID:     claimID,
		PatientID:   patientID,
		PolicyID:    policyID,
		ClaimAmount: claimAmount,
		Reason:      reason,
		Status:      claimStatusPending,
		SubmittedAt: txTimestamp(ctx),
	}

	return putDocument(ctx, claimID, claim)
}

// ReadClaim returns one claim by ID.
func (c *InsuranceClaimContract) ReadClaim(ctx contractapi.TransactionContextInterface, claimID string) (*Claim, error) {
	data, err := ctx.GetStub().GetState(claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to read from world state: %v", err)
	}
	if data == nil {
		return nil, fmt.Errorf("claim does not exist: %s", claimID)
	}

	var claim Claim
	if err := json.Unmarshal(data, &claim); err != nil {
		return nil, fmt.Errorf("failed to unmarshal claim: %v", err)
	}
	if claim.DocType != docTypeClaim {
		return nil, fmt.Errorf("claim does not exist: %s", claimID)
	}
	return &claim, nil
}

// ApproveClaim approves a pending claim.
func (c *InsuranceClaimContract) ApproveClaim(ctx contractapi.TransactionContextInterface, claimID, decision string) error {
	return c.decide(ctx, claimID, claimStatusApproved, decision)
}

// RejectClaim rejects a pending claim.
func (c *InsuranceClaimContract) RejectClaim(ctx contractapi.TransactionContextInterface, claimID, decision string) error {
	return c.decide(ctx, claimID, claimStatusRejected, decision)
}

func (c *InsuranceClaimContract) decide(ctx contractapi.TransactionContextInterface, claimID, status, decision string) error {
	claim, err := c.ReadClaim(ctx, claimID)
	if err != nil {
		return err
	}
	if claim.Status != claimStatusPending {
		return fmt.Errorf("claim is %s, not pending", claim.Status)
	}

	claim.Status = status
	claim.Decision = strings.TrimSpace(decision)
	claim.DecidedAt = txTimestamp(ctx)
	return putDocument(ctx, claimID, claim)
}

// GetClaimsByPatient returns every claim for one patient.
func (c *InsuranceClaimContract) GetClaimsByPatient(ctx contractapi.TransactionContextInterface, patientID string) ([]*Claim, error) {
	if err := validateID("patientId", patientID); err != nil {
		return nil, err
	}

	claims := []*Claim{}
	err := forEachDocument(ctx, func(data []byte) error {
		var claim Claim
		if err := json.Unmarshal(data, &claim); err != nil {
			return nil
		}
		if claim.DocType == docTypeClaim && claim.PatientID == patientID {
			claims = append(claims, &claim)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}
