package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/api"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/config"
)

type recordCreateOptions struct {
	patientID    string
	hash         string
	recordType   string
	title        string
	filename     string
	metadataKV   []string
	metadataJSON string
}

func newRecordCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Manage medical records on the ledger",
	}
	cmd.AddCommand(
		newRecordCreateCmd(cfg, jsonOutput),
		newRecordShowCmd(cfg, jsonOutput),
		newRecordListCmd(cfg, jsonOutput),
		newRecordImportCmd(cfg, jsonOutput),
	)
	return cmd
}

func newRecordCreateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	opts := &recordCreateOptions{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Submit a medical record referencing an uploaded document",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildRecordCreateRequest(opts)
			if err != nil {
				return err
			}
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.CreateRecord(cmd.Context(), req)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePlain("%s\n", resp.RecordID)
			})
		},
	}

	cmd.Flags().StringVar(&opts.patientID, "patient", "", "patient id (required)")
	cmd.Flags().StringVar(&opts.hash, "hash", "", "content digest of the uploaded document (required)")
	cmd.Flags().StringVarP(&opts.recordType, "type", "t", "", "record type (required)")
	cmd.Flags().StringVar(&opts.title, "title", "", "record title")
	cmd.Flags().StringVar(&opts.filename, "filename", "", "display filename")
	cmd.Flags().StringSliceVar(&opts.metadataKV, "meta", nil, "metadata key=value (repeatable)")
	cmd.Flags().StringVar(&opts.metadataJSON, "meta-json", "", "metadata as JSON object")
	return cmd
}

func buildRecordCreateRequest(opts *recordCreateOptions) (api.RecordCreateRequest, error) {
	req := api.RecordCreateRequest{
		PatientID:  opts.patientID,
		IPFSHash:   opts.hash,
		RecordType: opts.recordType,
		Title:      opts.title,
		Filename:   opts.filename,
	}
	if req.PatientID == "" {
		return req, fmt.Errorf("--patient is required")
	}
	if req.IPFSHash == "" {
		return req, fmt.Errorf("--hash is required")
	}
	if req.RecordType == "" {
		return req, fmt.Errorf("--type is required")
	}

	metadata, err := parseMetadataFlags(opts.metadataKV, opts.metadataJSON)
	if err != nil {
		return req, err
	}
	req.Metadata = metadata
	return req, nil
}

func parseMetadataFlags(kvPairs []string, rawJSON string) (map[string]any, error) {
	if len(kvPairs) > 0 && strings.TrimSpace(rawJSON) != "" {
		return nil, fmt.Errorf("--meta and --meta-json are mutually exclusive")
	}

	if strings.TrimSpace(rawJSON) != "" {
		metadata := map[string]any{}
		if err := json.Unmarshal([]byte(rawJSON), &metadata); err != nil {
			return nil, fmt.Errorf("invalid --meta-json: %w", err)
		}
		return metadata, nil
	}

	if len(kvPairs) == 0 {
		return nil, nil
	}
	metadata := make(map[string]any, len(kvPairs))
	for _, pair := range kvPairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --meta %q (expected key=value)", pair)
		}
		metadata[key] = value
	}
	return metadata, nil
}

func newRecordShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show <record-id>",
		Short: "Show one medical record",
		Args:  requireExactlyArgs(1, "record id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetRecord(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writeRecordDetail(resp)
			})
		},
	}
}

func newRecordListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		patientID  string
		recordType string
		hash       string
		limit      int
		offset     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List medical records",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			setIfNotEmpty(query, "patient_id", patientID)
			setIfNotEmpty(query, "record_type", recordType)
			setIfNotEmpty(query, "digest", hash)
			if limit > 0 {
				query.Set("limit", intToString(limit))
			}
			if offset > 0 {
				query.Set("offset", intToString(offset))
			}

			return withClient(cfg, func(client *api.Client) error {
				records, err := client.ListRecords(cmd.Context(), query)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(records)
				}
				return writeRecordList(records)
			})
		},
	}

	cmd.Flags().StringVar(&patientID, "patient", "", "filter by patient id")
	cmd.Flags().StringVarP(&recordType, "type", "t", "", "filter by record type")
	cmd.Flags().StringVar(&hash, "hash", "", "filter by content digest")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum records to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "records to skip")
	return cmd
}

// recordManifest is the YAML batch-import format. Each entry either
// references an already-uploaded digest or names a local file to upload
// first.
type recordManifest struct {
	PatientID string                `yaml:"patient_id"`
	Records   []recordManifestEntry `yaml:"records"`
}

type recordManifestEntry struct {
	PatientID  string            `yaml:"patient_id"`
	File       string            `yaml:"file"`
	Hash       string            `yaml:"hash"`
	RecordType string            `yaml:"record_type"`
	Title      string            `yaml:"title"`
	Filename   string            `yaml:"filename"`
	Metadata   map[string]string `yaml:"metadata"`
}

func newRecordImportCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "import <manifest.yaml>",
		Short: "Upload and register records from a YAML manifest",
		Args:  requireExactlyArgs(1, "manifest path is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			var manifest recordManifest
			if err := yaml.Unmarshal(data, &manifest); err != nil {
				return fmt.Errorf("invalid manifest: %w", err)
			}
			if len(manifest.Records) == 0 {
				return fmt.Errorf("no records found in %s", args[0])
			}

			baseDir := filepath.Dir(args[0])
			return withClient(cfg, func(client *api.Client) error {
				created := make([]api.RecordResponse, 0, len(manifest.Records))
				for i, entry := range manifest.Records {
					req, err := manifestEntryToRequest(cmd, client, manifest.PatientID, entry, baseDir)
					if err != nil {
						return fmt.Errorf("record %d: %w", i+1, err)
					}
					resp, err := client.CreateRecord(cmd.Context(), req)
					if err != nil {
						return fmt.Errorf("record %d: %w", i+1, err)
					}
					created = append(created, resp)
				}

				if *jsonOutput {
					return writeJSON(created)
				}
				for _, record := range created {
					if err := writePlain("%s\n", record.RecordID); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func manifestEntryToRequest(cmd *cobra.Command, client *api.Client, defaultPatientID string, entry recordManifestEntry, baseDir string) (api.RecordCreateRequest, error) {
	req := api.RecordCreateRequest{
		PatientID:  chooseFirst(entry.PatientID, defaultPatientID),
		IPFSHash:   entry.Hash,
		RecordType: entry.RecordType,
		Title:      entry.Title,
		Filename:   entry.Filename,
	}
	if req.PatientID == "" {
		return req, fmt.Errorf("patient_id is required")
	}
	if req.RecordType == "" {
		return req, fmt.Errorf("record_type is required")
	}
	if (entry.File == "") == (entry.Hash == "") {
		return req, fmt.Errorf("exactly one of file or hash is required")
	}

	if entry.File != "" {
		path := entry.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		file, err := os.Open(path)
		if err != nil {
			return req, err
		}
		defer file.Close()

		uploaded, err := client.Upload(cmd.Context(), filepath.Base(path), file)
		if err != nil {
			return req, err
		}
		req.IPFSHash = uploaded.Hash
		if req.Filename == "" {
			req.Filename = filepath.Base(path)
		}
	}

	if len(entry.Metadata) > 0 {
		metadata := make(map[string]any, len(entry.Metadata))
		for key, value := range entry.Metadata {
			metadata[key] = value
		}
		req.Metadata = metadata
	}
	return req, nil
}
