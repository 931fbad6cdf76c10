package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/api"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/store"
)

func (s *Server) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	var req api.UserCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	created, err := s.authService.CreateUser(r.Context(), req.Username, req.Password, req.Role, req.PatientID, time.Now().UTC())
	if err != nil {
		message := strings.ToLower(strings.TrimSpace(err.Error()))
		switch {
		case isUniqueConstraint(err):
			s.writeErrorReq(w, r, http.StatusConflict, conflictCode(fmt.Errorf("username already exists"), ErrCodeConflict))
		case strings.Contains(message, "role"):
			s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(err, ErrCodeInvalidRole))
		case strings.Contains(message, "username") || strings.Contains(message, "password") || strings.Contains(message, "patient"):
			s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(err, ErrCodeInvalidArgument))
		default:
			s.writeStoreError(w, r, err)
		}
		return
	}

	s.writeJSON(w, http.StatusCreated, toAPIUser(*created))
}

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.authService.ListUsers(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	resp := make([]api.UserResponse, 0, len(users))
	for _, user := range users {
		resp = append(resp, toAPIUser(user))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdminSetUserDisabled(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PathValue("username"))
	if username == "" {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("username is required"), ErrCodeMissingRequired))
		return
	}

	var req struct {
		Disabled bool `json:"disabled"`
	}
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	updated, err := s.authService.SetUserDisabled(r.Context(), username, req.Disabled, time.Now().UTC())
	if err != nil {
		message := strings.ToLower(strings.TrimSpace(err.Error()))
		if strings.Contains(message, "username") {
			s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(err, ErrCodeInvalidArgument))
			return
		}
		s.writeStoreError(w, r, err)
		return
	}
	if updated == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("user not found"), ErrCodeUserNotFound))
		return
	}

	s.writeJSON(w, http.StatusOK, toAPIUser(*updated))
}

func (s *Server) handleAdminGC(w http.ResponseWriter, r *http.Request) {
	s.withLimiter(w, r, s.gcLimiter, "gc", func() {
		dryRun, err := queryBool(r, "dry_run")
		if err != nil {
			s.writeErrorReq(w, r, http.StatusBadRequest, err)
			return
		}

		result, err := s.storageService.CollectGarbage(r.Context(), dryRun)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}

		s.writeJSON(w, http.StatusOK, api.GCResponse{
			Scanned: result.Scanned,
			Deleted: result.Deleted,
			Freed:   result.Freed,
			DryRun:  result.DryRun,
			Digests: result.Digests,
		})
	})
}

func toAPIUser(user store.AuthUser) api.UserResponse {
	return api.UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Role:      user.Role,
		PatientID: user.PatientID,
		Disabled:  user.Disabled,
		CreatedAt: user.CreatedAt,
	}
}
