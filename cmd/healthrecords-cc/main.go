// Command healthrecords-cc is the Fabric chaincode binary for the
// HealthLink ledger. It registers every contract the platform uses.
package main

import (
	"fmt"
	"os"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/deveshyaara/Healthlink-RPC-sub007/chaincode/healthrecords"
)

func main() {
	chaincode, err := contractapi.NewChaincode(
		&healthrecords.MedicalRecordContract{},
		&healthrecords.PrescriptionContract{},
		&healthrecords.AppointmentContract{},
		&healthrecords.InsuranceClaimContract{},
		&healthrecords.LabTestContract{},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating healthrecords chaincode: %v\n", err)
		os.Exit(1)
	}

	if err := chaincode.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "error starting healthrecords chaincode: %v\n", err)
		os.Exit(1)
	}
}
