package server

import (
	"context"

	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/store"
)

const (
	authTypeNone    = "none"
	authTypeToken   = "token"
	authTypeSession = "session"
)

type authContextKey struct{}

// authPrincipal identifies the caller of an authenticated request.
// User is nil for static API token auth and for open-access mode.
type authPrincipal struct {
	AuthType string
	User     *store.AuthUser
}

func (p authPrincipal) role() string {
	if p.User != nil {
		return p.User.Role
	}
	// Token and open-access callers act with operator privileges.
	return store.UserRoleAdmin
}

func (p authPrincipal) patientID() string {
	if p.User != nil {
		return p.User.PatientID
	}
	return ""
}

func (p authPrincipal) username() string {
	if p.User != nil {
		return p.User.Username
	}
	return p.AuthType
}

func contextWithAuthPrincipal(ctx context.Context, principal authPrincipal) context.Context {
	return context.WithValue(ctx, authContextKey{}, principal)
}

func authPrincipalFromContext(ctx context.Context) (authPrincipal, bool) {
	if ctx == nil {
		return authPrincipal{}, false
	}
	principal, ok := ctx.Value(authContextKey{}).(authPrincipal)
	return principal, ok
}
