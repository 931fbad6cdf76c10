package main

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParseMetadataFlags(t *testing.T) {
	metadata, err := parseMetadataFlags([]string{"physician=Dr. Wu", "unit=cardiology"}, "")
	if err != nil {
		t.Fatalf("parse metadata: %v", err)
	}
	if metadata["physician"] != "Dr. Wu" || metadata["unit"] != "cardiology" {
		t.Fatalf("unexpected metadata: %v", metadata)
	}

	metadata, err = parseMetadataFlags(nil, `{"notes":"stable","visits":2}`)
	if err != nil {
		t.Fatalf("parse metadata json: %v", err)
	}
	if metadata["notes"] != "stable" {
		t.Fatalf("unexpected metadata: %v", metadata)
	}

	if _, err := parseMetadataFlags([]string{"k=v"}, `{"a":1}`); err == nil {
		t.Fatal("expected error for both flags set")
	}
	if _, err := parseMetadataFlags([]string{"novalue"}, ""); err == nil {
		t.Fatal("expected error for malformed pair")
	}
	if _, err := parseMetadataFlags(nil, "[1]"); err == nil {
		t.Fatal("expected error for non-object json")
	}
}

func TestBuildRecordCreateRequest(t *testing.T) {
	opts := &recordCreateOptions{
		patientID:  "PAT001",
		hash:       "a948904f2f0f479b8f8197694b30184b0d2ed1c1cd2a1ec0fb85d299a192a447",
		recordType: "diagnosis",
		title:      "Annual checkup",
	}
	req, err := buildRecordCreateRequest(opts)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if req.PatientID != "PAT001" || req.RecordType != "diagnosis" {
		t.Fatalf("unexpected request: %+v", req)
	}

	for _, missing := range []*recordCreateOptions{
		{hash: opts.hash, recordType: "diagnosis"},
		{patientID: "PAT001", recordType: "diagnosis"},
		{patientID: "PAT001", hash: opts.hash},
	} {
		if _, err := buildRecordCreateRequest(missing); err == nil {
			t.Fatalf("expected error for %+v", missing)
		}
	}
}

func TestRecordManifestUnmarshal(t *testing.T) {
	manifestYAML := `
patient_id: PAT001
records:
  - file: scans/chest.png
    record_type: imaging
    title: Chest X-ray
    metadata:
      physician: Dr. Wu
  - hash: a948904f2f0f479b8f8197694b30184b0d2ed1c1cd2a1ec0fb85d299a192a447
    record_type: lab_result
    patient_id: PAT002
`
	var manifest recordManifest
	if err := yaml.Unmarshal([]byte(manifestYAML), &manifest); err != nil {
		t.Fatalf("unmarshal manifest: %v", err)
	}
	if manifest.PatientID != "PAT001" {
		t.Fatalf("expected default patient PAT001, got %q", manifest.PatientID)
	}
	if len(manifest.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(manifest.Records))
	}
	if manifest.Records[0].File != "scans/chest.png" || manifest.Records[0].Metadata["physician"] != "Dr. Wu" {
		t.Fatalf("unexpected first entry: %+v", manifest.Records[0])
	}
	if manifest.Records[1].PatientID != "PAT002" {
		t.Fatalf("expected per-entry patient override, got %q", manifest.Records[1].PatientID)
	}
}
