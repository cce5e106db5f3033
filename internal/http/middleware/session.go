package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rhcare/clinic-api/internal/domain"
	"github.com/rhcare/clinic-api/internal/http/response"
	"github.com/rhcare/clinic-api/internal/repo/postgres"
	"github.com/rhcare/clinic-api/internal/session"
	"github.com/rhcare/clinic-api/pkg/logger"
)

type ctxKey string

const (
	ctxUser  ctxKey = "user"
	ctxToken ctxKey = "token"
)

// Auth resolves the bearer token against the session store and loads the
// bound credential. Requests without a valid session get a 401.
type Auth struct {
	sessions session.Store
	users    postgres.UsersRepo
}

func NewAuth(sessions session.Store, users postgres.UsersRepo) *Auth {
	return &Auth{sessions: sessions, users: users}
}

func (a *Auth) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			response.Unauthorized(w, "invalid authorization header")
			return
		}
		token := strings.TrimPrefix(authz, "Bearer ")

		userID, err := a.sessions.Resolve(r.Context(), token)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidSession) {
				response.Unauthorized(w, "invalid or expired session")
				return
			}
			logger.ErrorContext(r.Context(), "Failed to resolve session", "error", err)
			response.InternalError(w, "internal error")
			return
		}

		user, err := a.users.FindByID(r.Context(), userID)
		if err != nil {
			logger.ErrorContext(r.Context(), "Failed to load session user", "error", err)
			response.InternalError(w, "internal error")
			return
		}
		if user == nil || !user.IsActive() {
			response.Unauthorized(w, "invalid or expired session")
			return
		}

		ctx := context.WithValue(r.Context(), ctxUser, user)
		ctx = context.WithValue(ctx, ctxToken, token)
		ctx = context.WithValue(ctx, logger.UserIDKey, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin is the authorization gate for admin-only routes. It must be
// mounted inside RequireSession.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFrom(r)
		if user == nil || !user.IsAdmin() {
			response.Forbidden(w, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func UserFrom(r *http.Request) *domain.User {
	v := r.Context().Value(ctxUser)
	if v == nil {
		return nil
	}
	return v.(*domain.User)
}

func TokenFrom(r *http.Request) string {
	v := r.Context().Value(ctxToken)
	if v == nil {
		return ""
	}
	return v.(string)
}
