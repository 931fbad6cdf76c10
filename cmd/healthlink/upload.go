package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/api"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/config"
)

func newUploadCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var filename string

	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a document and print its content digest",
		Args:  requireExactlyArgs(1, "file path is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			file, err := os.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()

			name := strings.TrimSpace(filename)
			if name == "" {
				name = filepath.Base(path)
			}

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.Upload(cmd.Context(), name, file)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePlain("%s\n", resp.Hash)
			})
		},
	}

	cmd.Flags().StringVar(&filename, "filename", "", "display filename (default: basename of path)")
	return cmd
}

func newFetchCmd(cfg *config.Config) *cobra.Command {
	var (
		outPath string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "fetch <hash>",
		Short: "Download a document by its content digest",
		Args:  requireExactlyArgs(1, "hash is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				target := strings.TrimSpace(outPath)
				if target == "" {
					// Without -o, stream straight to stdout.
					_, err := client.Download(cmd.Context(), args[0], os.Stdout)
					return err
				}

				if !force {
					if _, err := os.Stat(target); err == nil {
						return fmt.Errorf("output file exists (use --force to overwrite)")
					}
				}

				f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
				if err != nil {
					return err
				}
				defer f.Close()

				if _, err := client.Download(cmd.Context(), args[0], f); err != nil {
					return err
				}
				return writePlain("%s\n", target)
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output path (default: stdout)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite output path if it exists")
	return cmd
}

func newStatCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <hash>",
		Short: "Show stored blob details without downloading",
		Args:  requireExactlyArgs(1, "hash is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.StatBlob(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writeBlobStat(resp)
			})
		},
	}
}
