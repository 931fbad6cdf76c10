package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /api/v1/info", s.requireAuth(http.HandlerFunc(s.handleInfo)))

	// Blob storage.
	mux.Handle("POST /api/storage/upload", s.requireAuth(http.HandlerFunc(s.handleUpload)))
	mux.Handle("GET /api/storage/{hash}", s.requireAuth(http.HandlerFunc(s.handleDownload)))
	mux.Handle("GET /api/storage/{hash}/stat", s.requireAuth(http.HandlerFunc(s.handleStatBlob)))

	// Medical records.
	mux.Handle("POST /api/v1/medical-records", s.requireAuth(http.HandlerFunc(s.handleCreateRecord)))
	mux.Handle("GET /api/v1/medical-records", s.requireAuth(http.HandlerFunc(s.handleListRecords)))
	mux.Handle("GET /api/v1/medical-records/{id}", s.requireAuth(http.HandlerFunc(s.handleGetRecord)))

	// Sessions.
	mux.HandleFunc("POST /api/v1/auth/login", s.handleAuthLogin)
	mux.Handle("POST /api/v1/auth/logout", s.requireAuth(http.HandlerFunc(s.handleAuthLogout)))
	mux.Handle("GET /api/v1/auth/me", s.requireAuth(http.HandlerFunc(s.handleAuthMe)))

	// Admin.
	mux.Handle("POST /api/v1/admin/users", s.requireAdmin(http.HandlerFunc(s.handleAdminCreateUser)))
	mux.Handle("GET /api/v1/admin/users", s.requireAdmin(http.HandlerFunc(s.handleAdminListUsers)))
	mux.Handle("PATCH /api/v1/admin/users/{username}", s.requireAdmin(http.HandlerFunc(s.handleAdminSetUserDisabled)))
	mux.Handle("POST /api/v1/admin/gc", s.requireAdmin(http.HandlerFunc(s.handleAdminGC)))

	return s.withRequestLogging(mux)
}
