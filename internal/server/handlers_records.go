package server

import (
	"net/http"
	"strings"

	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/api"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/models"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/store"
)

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	principal, _ := authPrincipalFromContext(r.Context())

	var req api.RecordCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	record, err := s.recordService.Create(r.Context(), principal, CreateRecordInput{
		PatientID:  req.PatientID,
		Digest:     req.IPFSHash,
		RecordType: req.RecordType,
		Title:      req.Title,
		Filename:   req.Filename,
		Metadata:   req.Metadata,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, toAPIRecord(record))
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := requirePathRecordID(r)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	principal, _ := authPrincipalFromContext(r.Context())

	record, err := s.recordService.Get(r.Context(), principal, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toAPIRecord(record))
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	principal, _ := authPrincipalFromContext(r.Context())

	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	filter := store.RecordFilter{
		PatientID:  strings.TrimSpace(r.URL.Query().Get("patient_id")),
		RecordType: strings.TrimSpace(r.URL.Query().Get("record_type")),
		Digest:     strings.ToLower(strings.TrimSpace(r.URL.Query().Get("digest"))),
		Limit:      limit,
		Offset:     offset,
	}

	records, err := s.recordService.List(r.Context(), principal, filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := make([]api.RecordResponse, 0, len(records))
	for i := range records {
		resp = append(resp, toAPIRecord(&records[i]))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func toAPIRecord(record *models.Record) api.RecordResponse {
	return api.RecordResponse{
		RecordID:   record.ID,
		PatientID:  record.PatientID,
		IPFSHash:   record.Digest,
		RecordType: record.RecordType,
		Title:      record.Title,
		Filename:   record.Filename,
		Metadata:   record.Metadata,
		TxID:       record.TxID,
		Status:     record.Status,
		CreatedBy:  record.CreatedBy,
		CreatedAt:  record.CreatedAt,
	}
}
