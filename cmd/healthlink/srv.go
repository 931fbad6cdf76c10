package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/blobstore"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/config"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/ledger"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/server"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the healthlink API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			logger.Info("opening database", "path", cfg.DBPath)
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			bs, err := blobstore.NewLocalCAS(cfg.StorageRoot())
			if err != nil {
				return err
			}

			var submitter ledger.Submitter
			if cfg.LedgerConfigured() {
				gw, err := ledger.Connect(cfg.Fabric)
				if err != nil {
					return fmt.Errorf("connect to fabric gateway: %w", err)
				}
				defer gw.Close()
				submitter = gw
				logger.Info("connected to fabric gateway",
					"peer", cfg.Fabric.PeerEndpoint,
					"channel", cfg.Fabric.Channel,
					"chaincode", cfg.Fabric.Chaincode)
			} else {
				logger.Warn("no fabric peer configured; running storage-only")
			}

			srv := server.New(addr, st, bs, submitter, logger, server.Options{
				Version:            version,
				MaxUploadBytes:     cfg.Storage.MaxUploadBytes,
				MultipartMaxMemory: cfg.Storage.MultipartMaxMemory,
				GCBatchSize:        cfg.Storage.GCBatchSize,
				SessionTTL:         time.Duration(cfg.SessionTTLHours) * time.Hour,
			})
			return srv.ListenAndServe()
		},
	}
}
