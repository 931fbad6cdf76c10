package server

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/blobstore"
)

var (
	patientIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)
	recordIDPattern  = regexp.MustCompile(`^rec-[a-z0-9]{4,12}$`)
)

func validatePatientID(id string) bool {
	return patientIDPattern.MatchString(id)
}

func validateRecordID(id string) bool {
	return recordIDPattern.MatchString(id)
}

func requirePathDigest(r *http.Request) (string, error) {
	digest := strings.ToLower(strings.TrimSpace(r.PathValue("hash")))
	if !blobstore.ValidDigest(digest) {
		return "", badRequestCode(fmt.Errorf("invalid digest: expected 64 hex characters"), ErrCodeInvalidDigest)
	}
	return digest, nil
}

func requirePathRecordID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.PathValue("id"))
	if !validateRecordID(id) {
		return "", badRequestCode(fmt.Errorf("invalid record id"), ErrCodeInvalidID)
	}
	return id, nil
}
