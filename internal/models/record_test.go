package models

import "testing"

func TestParseRecordType(t *testing.T) {
	got, err := ParseRecordType(" PRESCRIPTION ")
	if err != nil {
		t.Fatalf("parse record type: %v", err)
	}
	if got != RecordTypePrescription {
		t.Fatalf("expected %q, got %q", RecordTypePrescription, got)
	}

	if _, err := ParseRecordType("invalid"); err == nil {
		t.Fatal("expected invalid record type error")
	}
	if _, err := ParseRecordType(""); err == nil {
		t.Fatal("expected error for empty record type")
	}
}

func TestRecordTypesCoverParseSet(t *testing.T) {
	for _, value := range RecordTypes() {
		if _, err := ParseRecordType(value); err != nil {
			t.Fatalf("record type %q should parse: %v", value, err)
		}
	}
}
