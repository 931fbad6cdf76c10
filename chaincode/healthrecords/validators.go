package healthrecords

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	idPattern        = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)
	digestPattern    = regexp.MustCompile(`^[a-f0-9]{64}$`)
	validRecordTypes = map[string]struct{}{
		"diagnosis":         {},
		"prescription":      {},
		"lab_result":        {},
		"imaging":           {},
		"discharge_summary": {},
		"insurance_claim":   {},
		"other":             {},
	}
)

func validateID(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	if !idPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %s", field, value)
	}
	return nil
}

func validateDigest(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("ipfsHash is required")
	}
	if !digestPattern.MatchString(value) {
		return fmt.Errorf("invalid ipfsHash: expected 64 lowercase hex characters")
	}
	return nil
}

func validateRecordType(value string) error {
	if _, ok := validRecordTypes[value]; !ok {
		return fmt.Errorf("invalid recordType: %s", value)
	}
	return nil
}

func validateMetadataJSON(value string) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var metadata map[string]any
	if err := json.Unmarshal([]byte(value), &metadata); err != nil {
		return fmt.Errorf("invalid metadata: %v", err)
	}
	return nil
}

func validateAmount(amount int) error {
	if amount <= 0 {
		return fmt.Errorf("claimAmount must be positive")
	}
	return nil
}
