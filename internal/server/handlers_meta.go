package server

import (
	"net/http"

	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/api"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.store.StoreInfo(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	resp := api.InfoResponse{
		Version:         s.version,
		SchemaVersion:   info.SchemaVersion,
		RecordCount:     info.TotalRecords,
		BlobCount:       info.TotalBlobs,
		RecordsByType:   info.RecordCounts,
		LedgerConnected: s.recordService.submitter != nil,
	}

	s.writeJSON(w, http.StatusOK, resp)
}
