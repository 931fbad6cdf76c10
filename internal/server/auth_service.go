package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	internalauth "github.com/deveshyaara/Healthlink-RPC-sub007/internal/auth"
	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/store"
)

var errInvalidCredentials = errors.New("invalid credentials")

// AuthService encapsulates user provisioning and session auth backed by
// the store.
type AuthService struct {
	store      store.AuthStore
	sessionTTL time.Duration
}

type authLoginResult struct {
	User      *store.AuthUser
	Token     string
	ExpiresAt time.Time
}

func NewAuthService(authStore store.AuthStore, sessionTTL time.Duration) *AuthService {
	if authStore == nil {
		return nil
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{store: authStore, sessionTTL: sessionTTL}
}

// AuthRequired reports whether requests must present credentials. Auth
// turns on as soon as a static token is configured or a user exists.
func (a *AuthService) AuthRequired(ctx context.Context, apiTokenConfigured bool) (bool, error) {
	if apiTokenConfigured {
		return true, nil
	}
	if a == nil || a.store == nil {
		return false, nil
	}
	count, err := a.store.CountEnabledUsers(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (a *AuthService) Login(ctx context.Context, username, password string, now time.Time) (*authLoginResult, error) {
	if a == nil || a.store == nil {
		return nil, fmt.Errorf("auth store is required")
	}

	normalized, err := internalauth.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("password is required")
	}

	user, err := a.store.GetUserByUsername(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Disabled || !internalauth.VerifyPassword(user.PasswordHash, password) {
		return nil, errInvalidCredentials
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, err
	}
	tokenHash := hashSessionToken(token)
	expiresAt := now.Add(a.sessionTTL)
	if err := a.store.CreateSession(ctx, user.ID, tokenHash, expiresAt, now); err != nil {
		return nil, err
	}

	return &authLoginResult{
		User:      user,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (a *AuthService) AuthenticateSessionToken(ctx context.Context, token string, now time.Time) (*store.AuthUser, error) {
	if a == nil || a.store == nil {
		return nil, nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	return a.store.GetUserBySessionTokenHash(ctx, hashSessionToken(token), now)
}

func (a *AuthService) RevokeSessionToken(ctx context.Context, token string, now time.Time) error {
	if a == nil || a.store == nil {
		return nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return a.store.RevokeSessionByTokenHash(ctx, hashSessionToken(token), now)
}

// CreateUser provisions an account. Patient accounts must carry the
// patient ID whose records they may read.
func (a *AuthService) CreateUser(ctx context.Context, username, password, role, patientID string, now time.Time) (*store.AuthUser, error) {
	if a == nil || a.store == nil {
		return nil, fmt.Errorf("auth store is required")
	}

	normalized, err := internalauth.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	if err := internalauth.ValidatePassword(password); err != nil {
		return nil, err
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if !store.ValidUserRole(role) {
		return nil, fmt.Errorf("invalid role: %s", role)
	}
	patientID = strings.TrimSpace(patientID)
	if role == store.UserRolePatient && !validatePatientID(patientID) {
		return nil, fmt.Errorf("patient accounts require a valid patient id")
	}
	if role != store.UserRolePatient && patientID != "" {
		return nil, fmt.Errorf("patient id is only valid for patient accounts")
	}

	passwordHash, err := internalauth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	return a.store.CreateUser(ctx, normalized, passwordHash, role, patientID, now)
}

func (a *AuthService) ListUsers(ctx context.Context) ([]store.AuthUser, error) {
	if a == nil || a.store == nil {
		return nil, fmt.Errorf("auth store is required")
	}
	return a.store.ListUsers(ctx)
}

func (a *AuthService) SetUserDisabled(ctx context.Context, username string, disabled bool, now time.Time) (*store.AuthUser, error) {
	if a == nil || a.store == nil {
		return nil, fmt.Errorf("auth store is required")
	}
	normalized, err := internalauth.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	return a.store.SetUserDisabled(ctx, normalized, disabled, now)
}

func constantTimeEquals(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func hashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
