package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/models"
)

const recordColumns = "id, patient_id, digest, record_type, title, filename, metadata_json, tx_id, status, created_by, created_at"

// RecordFilter narrows record listing.
type RecordFilter struct {
	PatientID  string
	RecordType string
	Digest     string
	Limit      int
	Offset     int
}

// CreateRecord inserts one record index row.
func (s *Store) CreateRecord(ctx context.Context, record *models.Record) error {
	if record == nil {
		return fmt.Errorf("record is required")
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("record id is required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if strings.TrimSpace(record.Status) == "" {
		record.Status = string(models.RecordStatusCommitted)
	}

	metadataJSON, err := recordMetadataToJSON(record.Metadata)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.PatientID, strings.ToLower(record.Digest), record.RecordType,
		nullString(record.Title), nullString(record.Filename), metadataJSON,
		nullString(record.TxID), record.Status, nullString(record.CreatedBy),
		dbFormatTime(record.CreatedAt))
	return err
}

// GetRecord returns one record by id.
func (s *Store) GetRecord(ctx context.Context, id string) (*models.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	return scanRecord(row)
}

// RecordExists checks whether a record exists by id.
func (s *Store) RecordExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM records WHERE id = ? LIMIT 1", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListRecords lists record index rows newest first.
func (s *Store) ListRecords(ctx context.Context, filter RecordFilter) ([]models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records`
	where := []string{}
	args := []any{}

	if patientID := strings.TrimSpace(filter.PatientID); patientID != "" {
		where = append(where, "patient_id = ?")
		args = append(args, patientID)
	}
	if recordType := strings.TrimSpace(filter.RecordType); recordType != "" {
		where = append(where, "record_type = ?")
		args = append(args, recordType)
	}
	if digest := strings.ToLower(strings.TrimSpace(filter.Digest)); digest != "" {
		where = append(where, "digest = ?")
		args = append(args, digest)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if record == nil {
			continue
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// DigestReferencedByPatient reports whether any record owned by patientID
// references digest. Used by download access checks.
func (s *Store) DigestReferencedByPatient(ctx context.Context, patientID, digest string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM records
		WHERE patient_id = ? AND digest = ?
		LIMIT 1
	`, strings.TrimSpace(patientID), strings.ToLower(strings.TrimSpace(digest))).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func scanRecord(scanner interface {
	Scan(dest ...any) error
}) (*models.Record, error) {
	var record models.Record
	var title, filename, metadataJSON, txID, createdBy sql.NullString
	var createdAt string
	if err := scanner.Scan(&record.ID, &record.PatientID, &record.Digest, &record.RecordType,
		&title, &filename, &metadataJSON, &txID, &record.Status, &createdBy, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	record.Title = title.String
	record.Filename = filename.String
	record.TxID = txID.String
	record.CreatedBy = createdBy.String

	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &record.Metadata); err != nil {
			return nil, fmt.Errorf("decode record metadata: %w", err)
		}
	}

	parsed, err := dbParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	record.CreatedAt = parsed
	return &record, nil
}

func recordMetadataToJSON(metadata map[string]any) (any, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode record metadata: %w", err)
	}
	return string(encoded), nil
}
