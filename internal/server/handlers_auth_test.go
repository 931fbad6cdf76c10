package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/api"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/store"
)

func TestLoginAndMe(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSubmitter{})
	provisionUser(t, srv, "alice", "alice-password-1", store.UserRolePatient, "PAT001")

	token := loginToken(t, srv, "alice", "alice-password-1")
	if token == "" {
		t.Fatal("expected non-empty session token")
	}

	w := doRequest(t, srv, http.MethodGet, "/api/v1/auth/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var me api.AuthMeResponse
	if err := json.NewDecoder(w.Body).Decode(&me); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if me.Username != "alice" || me.Role != store.UserRolePatient || me.PatientID != "PAT001" {
		t.Fatalf("unexpected me response: %+v", me)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSubmitter{})
	provisionUser(t, srv, "alice", "alice-password-1", store.UserRolePatient, "PAT001")

	w := doRequest(t, srv, http.MethodPost, "/api/v1/auth/login", "", api.AuthLoginRequest{
		Username: "alice",
		Password: "wrong-password-1",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	w = doRequest(t, srv, http.MethodPost, "/api/v1/auth/login", "", api.AuthLoginRequest{
		Username: "nobody",
		Password: "whatever-pass-1",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user, got %d", w.Code)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSubmitter{})
	provisionUser(t, srv, "alice", "alice-password-1", store.UserRolePatient, "PAT001")
	token := loginToken(t, srv, "alice", "alice-password-1")

	w := doRequest(t, srv, http.MethodPost, "/api/v1/auth/logout", token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	w = doRequest(t, srv, http.MethodGet, "/api/v1/auth/me", token, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", w.Code)
	}
}

func TestDisabledUserCannotLogin(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSubmitter{})
	provisionUser(t, srv, "admin", "admin-password-1", store.UserRoleAdmin, "")
	provisionUser(t, srv, "alice", "alice-password-1", store.UserRolePatient, "PAT001")
	adminToken := loginToken(t, srv, "admin", "admin-password-1")

	w := doRequest(t, srv, http.MethodPatch, "/api/v1/admin/users/alice", adminToken, map[string]bool{"disabled": true})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, srv, http.MethodPost, "/api/v1/auth/login", "", api.AuthLoginRequest{
		Username: "alice",
		Password: "alice-password-1",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for disabled user, got %d", w.Code)
	}
}

func TestAdminUserProvisioning(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSubmitter{})
	provisionUser(t, srv, "admin", "admin-password-1", store.UserRoleAdmin, "")
	adminToken := loginToken(t, srv, "admin", "admin-password-1")

	w := doRequest(t, srv, http.MethodPost, "/api/v1/admin/users", adminToken, api.UserCreateRequest{
		Username: "drjones",
		Password: "correct-horse-battery",
		Role:     store.UserRoleClinician,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// Duplicate username conflicts.
	w = doRequest(t, srv, http.MethodPost, "/api/v1/admin/users", adminToken, api.UserCreateRequest{
		Username: "drjones",
		Password: "correct-horse-battery",
		Role:     store.UserRoleClinician,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}

	// Patient accounts need a patient id.
	w = doRequest(t, srv, http.MethodPost, "/api/v1/admin/users", adminToken, api.UserCreateRequest{
		Username: "bob",
		Password: "bob-password-123",
		Role:     store.UserRolePatient,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	// Unknown roles are rejected.
	w = doRequest(t, srv, http.MethodPost, "/api/v1/admin/users", adminToken, api.UserCreateRequest{
		Username: "eve",
		Password: "eve-password-123",
		Role:     "superuser",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	errResp := decodeErrorResponse(t, w)
	if errResp.ErrorCode != ErrCodeInvalidRole {
		t.Fatalf("expected error_code %d, got %d", ErrCodeInvalidRole, errResp.ErrorCode)
	}

	w = doRequest(t, srv, http.MethodGet, "/api/v1/admin/users", adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var users []api.UserResponse
	if err := json.NewDecoder(w.Body).Decode(&users); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
}
