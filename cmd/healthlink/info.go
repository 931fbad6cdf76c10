package main

import (
	"github.com/spf13/cobra"

	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/api"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/config"
)

func newInfoCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show server status and store counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetInfo(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writeInfo(resp)
			})
		},
	}
}

func writeInfo(info api.InfoResponse) error {
	ledgerState := "not configured"
	if info.LedgerConnected {
		ledgerState = "connected"
	}
	if err := writePlain("version: %s\nschema_version: %d\nrecords: %d\nblobs: %d\nledger: %s\n",
		info.Version, info.SchemaVersion, info.RecordCount, info.BlobCount, ledgerState); err != nil {
		return err
	}
	for recordType, count := range info.RecordsByType {
		if err := writePlain("  %s: %d\n", recordType, count); err != nil {
			return err
		}
	}
	return nil
}
