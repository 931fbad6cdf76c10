package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	httpTimeoutEnvKey  = "HEALTHLINK_HTTP_TIMEOUT"
	apiTokenEnvKey     = "HEALTHLINK_API_TOKEN"
)

// Client is a simple HTTP client for the healthlink API.
type Client struct {
	baseURL   string
	http      *http.Client
	authToken string
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: httpTimeoutFromEnv()},
		authToken: strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
	}
}

// SetToken overrides the bearer token taken from the environment.
func (c *Client) SetToken(token string) {
	c.authToken = strings.TrimSpace(token)
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) GetInfo(ctx context.Context) (InfoResponse, error) {
	var resp InfoResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/info", nil, nil, &resp)
	return resp, err
}

// Upload streams a file to the storage endpoint as multipart form data
// and returns the server-computed digest.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (UploadResponse, error) {
	var resp UploadResponse

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, content); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(form.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/storage/upload", pr)
	if err != nil {
		return resp, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	c.setAuthHeader(req)

	httpResp, err := c.http.Do(req)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	return resp, err
}

// Download streams the blob at digest into w and returns the suggested
// filename from Content-Disposition, if any.
func (c *Client) Download(ctx context.Context, digest string, w io.Writer) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/storage/"+url.PathEscape(digest), nil)
	if err != nil {
		return "", err
	}
	c.setAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", decodeError(resp)
	}

	filename := filenameFromDisposition(resp.Header.Get("Content-Disposition"))
	if _, err := io.Copy(w, resp.Body); err != nil {
		return filename, err
	}
	return filename, nil
}

func (c *Client) StatBlob(ctx context.Context, digest string) (BlobStatResponse, error) {
	var resp BlobStatResponse
	err := c.do(ctx, http.MethodGet, "/api/storage/"+url.PathEscape(digest)+"/stat", nil, nil, &resp)
	return resp, err
}

func (c *Client) CreateRecord(ctx context.Context, req RecordCreateRequest) (RecordResponse, error) {
	var resp RecordResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/medical-records", nil, req, &resp)
	return resp, err
}

func (c *Client) GetRecord(ctx context.Context, id string) (RecordResponse, error) {
	var resp RecordResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/medical-records/"+url.PathEscape(id), nil, nil, &resp)
	return resp, err
}

func (c *Client) ListRecords(ctx context.Context, query url.Values) ([]RecordResponse, error) {
	var resp []RecordResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/medical-records", query, nil, &resp)
	return resp, err
}

func (c *Client) Login(ctx context.Context, req AuthLoginRequest) (AuthLoginResponse, error) {
	var resp AuthLoginResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", nil, req, &resp)
	return resp, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil, nil)
}

func (c *Client) Me(ctx context.Context) (AuthMeResponse, error) {
	var resp AuthMeResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/auth/me", nil, nil, &resp)
	return resp, err
}

func (c *Client) CreateUser(ctx context.Context, req UserCreateRequest) (UserResponse, error) {
	var resp UserResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/admin/users", nil, req, &resp)
	return resp, err
}

func (c *Client) ListUsers(ctx context.Context) ([]UserResponse, error) {
	var resp []UserResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/admin/users", nil, nil, &resp)
	return resp, err
}

func (c *Client) SetUserDisabled(ctx context.Context, id string, disabled bool) (UserResponse, error) {
	var resp UserResponse
	body := map[string]bool{"disabled": disabled}
	err := c.do(ctx, http.MethodPatch, "/api/v1/admin/users/"+url.PathEscape(id), nil, body, &resp)
	return resp, err
}

// CollectGarbage deletes blobs no record references.
func (c *Client) CollectGarbage(ctx context.Context, dryRun bool) (GCResponse, error) {
	var resp GCResponse
	query := url.Values{}
	if dryRun {
		query.Set("dry_run", "true")
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/admin/gc", query, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		return &APIError{
			Status:    resp.StatusCode,
			Code:      errResp.Code,
			ErrorCode: errResp.ErrorCode,
			Message:   errResp.Error,
		}
	}
	return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("api error: %s", resp.Status)}
}

func (c *Client) setAuthHeader(req *http.Request) {
	if c.authToken == "" || req == nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
}

func filenameFromDisposition(value string) string {
	for _, part := range strings.Split(value, ";") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, "filename=") {
			continue
		}
		name := strings.TrimPrefix(part, "filename=")
		return strings.Trim(name, `"`)
	}
	return ""
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
