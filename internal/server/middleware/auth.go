package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/chatwire/chatwire/internal/model"
	"github.com/chatwire/chatwire/internal/service"
)

type contextKeyAuth string

// AuthPrincipalKey is the context key for the authenticated principal.
const AuthPrincipalKey contextKeyAuth = "auth_principal"

// Authenticate returns an HTTP middleware that resolves the request's
// credential header to a principal. An absent header rejects with
// missing_credential; a supplied credential with no match rejects with
// invalid_credential. On success the principal is attached to the request
// context.
func Authenticate(auth *service.AuthService, headerName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := auth.Authenticate(r.Header.Get(headerName))
			if err != nil {
				writeAuthError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), AuthPrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthenticateMaster returns an HTTP middleware that accepts only the
// operator master credential. It guards the key-management surface, so
// stored API keys cannot manage other credentials.
func AuthenticateMaster(auth *service.AuthService, headerName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := auth.AuthenticateMaster(r.Header.Get(headerName))
			if err != nil {
				writeAuthError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), AuthPrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission returns an HTTP middleware enforcing that the
// authenticated principal holds at least one of the given scopes. It must
// run after Authenticate in the chain.
func RequirePermission(auth *service.AuthService, scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if err := auth.CheckPermission(principal, scopes...); err != nil {
				writeAuthError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil for unauthenticated requests.
func GetPrincipal(ctx context.Context) *service.Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*service.Principal); ok {
		return p
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, err error) {
	status := http.StatusUnauthorized
	code := model.CodeInvalidCredential
	message := "Invalid credential"

	switch {
	case errors.Is(err, service.ErrMissingCredential):
		code = model.CodeMissingCredential
		message = "Authentication required. Provide the API key header."
	case errors.Is(err, service.ErrInsufficientPermission):
		status = http.StatusForbidden
		code = model.CodeInsufficientPermission
		message = "Insufficient permission"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Manually construct JSON to avoid an import cycle with the handler
	// package.
	w.Write([]byte(`{"error":{"code":"` + code + `","message":"` + message + `"}}`))
}
