package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/api"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/format"
)

var outputFormatter format.Formatter = format.JSONFormatter{Indent: "  "}

func writeJSON(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeRecordList(records []api.RecordResponse) error {
	for _, record := range records {
		if err := writePlain("%s\n", formatRecordLine(record)); err != nil {
			return err
		}
	}
	return nil
}

func writeRecordDetail(record api.RecordResponse) error {
	lines := []string{
		fmt.Sprintf("record_id: %s", record.RecordID),
		fmt.Sprintf("patient_id: %s", record.PatientID),
		fmt.Sprintf("hash: %s", record.IPFSHash),
		fmt.Sprintf("type: %s", record.RecordType),
		fmt.Sprintf("status: %s", record.Status),
		fmt.Sprintf("created_at: %s", formatTime(record.CreatedAt)),
	}

	if record.Title != "" {
		lines = append(lines, fmt.Sprintf("title: %s", record.Title))
	}
	if record.Filename != "" {
		lines = append(lines, fmt.Sprintf("filename: %s", record.Filename))
	}
	if record.TxID != "" {
		lines = append(lines, fmt.Sprintf("tx_id: %s", record.TxID))
	}
	if record.CreatedBy != "" {
		lines = append(lines, fmt.Sprintf("created_by: %s", record.CreatedBy))
	}
	if len(record.Metadata) > 0 {
		lines = append(lines, "metadata:")
		for key, value := range record.Metadata {
			lines = append(lines, fmt.Sprintf("  %s: %v", key, value))
		}
	}

	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func writeBlobStat(blob api.BlobStatResponse) error {
	lines := []string{
		fmt.Sprintf("hash: %s", blob.Hash),
		fmt.Sprintf("size_bytes: %d", blob.SizeBytes),
	}
	if blob.Filename != "" {
		lines = append(lines, fmt.Sprintf("filename: %s", blob.Filename))
	}
	if blob.MediaType != "" {
		lines = append(lines, fmt.Sprintf("media_type: %s", blob.MediaType))
	}
	if blob.CreatedAt != "" {
		lines = append(lines, fmt.Sprintf("created_at: %s", blob.CreatedAt))
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func formatRecordLine(record api.RecordResponse) string {
	return fmt.Sprintf("%s [%s] %s %s", record.RecordID, record.RecordType, record.PatientID, shortDigest(record.IPFSHash))
}

func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
