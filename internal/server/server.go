package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/blobstore"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/ledger"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/store"
)

const (
	apiTokenEnvKey         = "HEALTHLINK_API_TOKEN"
	allowRemoteEnvKey      = "HEALTHLINK_ALLOW_REMOTE"
	readHeaderTimeout      = 5 * time.Second
	readTimeout            = 30 * time.Second
	writeTimeout           = 5 * time.Minute
	idleTimeout            = 60 * time.Second
	uploadConcurrencyLimit = 4
	gcConcurrencyLimit     = 1
)

// Options tunes server behavior beyond its wired dependencies.
type Options struct {
	Version            string
	MaxUploadBytes     int64
	MultipartMaxMemory int64
	GCBatchSize        int
	SessionTTL         time.Duration
}

// Server wraps HTTP handlers for the healthlink API.
type Server struct {
	addr           string
	store          *store.Store
	blobs          blobstore.BlobStore
	storageService *StorageService
	recordService  *RecordService
	authService    *AuthService
	logger         *slog.Logger
	apiToken       string
	version        string
	maxUploadBytes int64
	multipartMem   int64
	uploadLimiter  chan struct{}
	gcLimiter      chan struct{}
}

// New creates a new server instance. The submitter may be nil, in which
// case record creation reports the ledger as unavailable.
func New(addr string, st *store.Store, blobs blobstore.BlobStore, submitter ledger.Submitter, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 100 << 20
	}
	if opts.MultipartMaxMemory <= 0 {
		opts.MultipartMaxMemory = 8 << 20
	}
	if opts.GCBatchSize <= 0 {
		opts.GCBatchSize = 500
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}

	return &Server{
		addr:           addr,
		store:          st,
		blobs:          blobs,
		storageService: NewStorageService(blobs, st, opts.GCBatchSize, logger),
		recordService:  NewRecordService(st, st, submitter, logger),
		authService:    NewAuthService(st, opts.SessionTTL),
		logger:         logger,
		apiToken:       strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
		version:        opts.Version,
		maxUploadBytes: opts.MaxUploadBytes,
		multipartMem:   opts.MultipartMaxMemory,
		uploadLimiter:  make(chan struct{}, uploadConcurrencyLimit),
		gcLimiter:      make(chan struct{}, gcConcurrencyLimit),
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	return server.ListenAndServe()
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) acquireLimiter(limiter chan struct{}, w http.ResponseWriter, r *http.Request, name string) bool {
	if limiter == nil {
		return true
	}
	select {
	case limiter <- struct{}{}:
		return true
	default:
		err := apiError{
			status:  http.StatusTooManyRequests,
			code:    "resource_exhausted",
			errCode: ErrCodeResourceExhausted,
			err:     fmt.Errorf("too many concurrent %s requests", name),
		}
		s.writeErrorReq(w, r, http.StatusTooManyRequests, err)
		return false
	}
}

func (s *Server) releaseLimiter(limiter chan struct{}) {
	if limiter == nil {
		return
	}
	select {
	case <-limiter:
	default:
	}
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
