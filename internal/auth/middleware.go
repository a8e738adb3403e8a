package auth

import (
	"context"
	"errors"
	"net/http"

	"studygroup/internal/models"
	"studygroup/internal/qerrors"

	"github.com/go-chi/render"
	"github.com/golang/glog"
)

type contextKey int

const identityContextKey contextKey = iota

// RequireAuth is a middleware that rejects requests without a valid session cookie. The Identity associated with the
// request is added to the request context, and can be accessed via IdentityFromRequest.
//
// Unless allowUnverified is set, identities whose e-mail is not verified are rejected as well.
func (s *Service) RequireAuth(cookieName string, allowUnverified bool) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenCookie, err := r.Cookie(cookieName)
			if err != nil {
				// Missing session cookie.
				reject(w, r, http.StatusUnauthorized, qerrors.UnauthenticatedError)
				return
			}

			identity, err := s.Authenticate(r.Context(), tokenCookie.Value)
			if err != nil {
				if errors.Is(err, qerrors.RemoteUnavailableErr) {
					glog.Warningf("error authenticating request: %v", err)
					reject(w, r, http.StatusServiceUnavailable, qerrors.RemoteUnavailableErr)
					return
				}
				reject(w, r, http.StatusUnauthorized, qerrors.UnauthenticatedError)
				return
			}

			if !allowUnverified && !identity.EmailVerified {
				reject(w, r, http.StatusForbidden, qerrors.EmailNotVerifiedError)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromRequest returns the Identity within the request context. Only works with routes that implement the
// RequireAuth middleware.
func IdentityFromRequest(r *http.Request) (*models.Identity, error) {
	identity, ok := r.Context().Value(identityContextKey).(*models.Identity)
	if !ok || identity == nil {
		return nil, qerrors.UnauthenticatedError
	}
	return identity, nil
}

func reject(w http.ResponseWriter, r *http.Request, status int, err error) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"message": err.Error()})
}
