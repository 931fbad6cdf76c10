package server

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/api"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/models"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	s.withLimiter(w, r, s.uploadLimiter, "upload", func() {
		principal, _ := authPrincipalFromContext(r.Context())

		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
		if err := r.ParseMultipartForm(s.multipartMem); err != nil {
			s.writeErrorReq(w, r, http.StatusBadRequest, classifyMultipartError(err))
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("file is required"), ErrCodeMissingRequired))
			return
		}
		defer file.Close()

		buffered := bufio.NewReader(file)
		peek, _ := buffered.Peek(512)
		mediaType := strings.TrimSpace(header.Header.Get("Content-Type"))
		if mediaType == "" || mediaType == "application/octet-stream" {
			mediaType = http.DetectContentType(peek)
		}

		blob, err := s.storageService.Upload(r.Context(), principal, UploadInput{
			Filename:  filepath.Base(strings.TrimSpace(header.Filename)),
			MediaType: mediaType,
		}, buffered)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}

		s.writeJSON(w, http.StatusOK, api.UploadResponse{Hash: blob.SHA256, SizeBytes: blob.SizeBytes})
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	digest, err := requirePathDigest(r)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	principal, _ := authPrincipalFromContext(r.Context())

	reader, blob, err := s.storageService.Download(r.Context(), principal, digest)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", downloadMediaType(blob))
	w.Header().Set("Content-Length", strconv.FormatInt(blob.SizeBytes, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadFilename(blob)))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, reader); err != nil {
		s.log().Error("stream blob", "digest", digest, "error", err)
	}
}

func (s *Server) handleStatBlob(w http.ResponseWriter, r *http.Request) {
	digest, err := requirePathDigest(r)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	principal, _ := authPrincipalFromContext(r.Context())

	blob, err := s.storageService.StatBlob(r.Context(), principal, digest)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, api.BlobStatResponse{
		Hash:      blob.SHA256,
		SizeBytes: blob.SizeBytes,
		Filename:  blob.Filename,
		MediaType: blob.MediaType,
		CreatedAt: blob.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

func downloadFilename(blob *models.Blob) string {
	if name := strings.TrimSpace(blob.Filename); name != "" {
		return filepath.Base(name)
	}
	return blob.SHA256[:12] + ".bin"
}

func downloadMediaType(blob *models.Blob) string {
	if mediaType := strings.TrimSpace(blob.MediaType); mediaType != "" {
		return mediaType
	}
	return "application/octet-stream"
}

func classifyMultipartError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(strings.ToLower(err.Error()), "request body too large") {
		return badRequestCode(fmt.Errorf("request body too large"), ErrCodeRequestTooLarge)
	}
	return badRequestCode(err, ErrCodeInvalidArgument)
}
