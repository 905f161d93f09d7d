package middleware

import (
	"context"
	"net/http"

	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/identity"
	"hotelbook/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

// RoleResolver looks up the stored role of an authenticated user.
type RoleResolver interface {
	GetRole(ctx context.Context, userID string) (string, error)
}

type Authenticator struct {
	verifier *identity.Verifier
	roles    RoleResolver
	log      *logger.Logger
}

func NewAuthenticator(verifier *identity.Verifier, roles RoleResolver, log *logger.Logger) *Authenticator {
	return &Authenticator{verifier: verifier, roles: roles, log: log}
}

// Authenticated rejects anonymous requests with 401 and puts the caller
// into the request context. A failed role lookup downgrades the caller to
// a plain user.
func (a *Authenticator) Authenticated(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		user, ok := a.authenticate(w, r)
		if !ok {
			return
		}

		role, err := a.roles.GetRole(r.Context(), user.ID)
		if err != nil {
			a.log.Warn("Role lookup failed, continuing as user",
				"request_id", RequestIDFromContext(r.Context()),
				"user_id", user.ID,
				"error", err,
			)
			role = identity.RoleUser
		}
		user.Role = role

		next(w, r.WithContext(identity.WithUser(r.Context(), user)), ps)
	}
}

// AdminOnly requires an admin role. Unlike Authenticated it fails closed
// when the role cannot be resolved.
func (a *Authenticator) AdminOnly(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		user, ok := a.authenticate(w, r)
		if !ok {
			return
		}

		role, err := a.roles.GetRole(r.Context(), user.ID)
		if err != nil {
			a.log.Error("Role lookup failed",
				"request_id", RequestIDFromContext(r.Context()),
				"user_id", user.ID,
				"error", err,
			)
			writeAppError(w, apperrors.StoreError("Could not verify permissions", err))
			return
		}
		if role != identity.RoleAdmin {
			a.log.Warn("Admin route denied",
				"request_id", RequestIDFromContext(r.Context()),
				"user_id", user.ID,
				"path", r.URL.Path,
			)
			writeAppError(w, apperrors.Forbidden("Admin access required"))
			return
		}
		user.Role = role

		next(w, r.WithContext(identity.WithUser(r.Context(), user)), ps)
	}
}

func (a *Authenticator) authenticate(w http.ResponseWriter, r *http.Request) (identity.User, bool) {
	token, err := identity.BearerToken(r)
	if err != nil {
		writeAppError(w, apperrors.Unauthorized("Authentication required"))
		return identity.User{}, false
	}

	user, err := a.verifier.Verify(token)
	if err != nil {
		a.log.Debug("Token rejected",
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
		writeAppError(w, apperrors.Unauthorized("Invalid or expired token"))
		return identity.User{}, false
	}

	return user, true
}
