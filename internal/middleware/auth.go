package middleware

import (
	"context"
	"net/http"
	"strings"

	"cardlink/backend/internal/authctx"
	"cardlink/backend/internal/domain/admin"
	"cardlink/backend/internal/domain/session"
	"cardlink/backend/internal/httpjson"
	"cardlink/backend/internal/logging"

	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
)

// IDTokenVerifier is satisfied by *auth.Client.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AdminResolver maps a Firebase uid to an active admin.
type AdminResolver interface {
	Resolve(ctx context.Context, uid string) (*admin.Admin, error)
}

// CardholderTokenVerifier checks cardholder session tokens.
type CardholderTokenVerifier interface {
	Verify(token string) (*session.Claims, error)
}

// WithAdminAuth verifies the Firebase ID token and loads the admin record.
// The admin document, not the token claims, decides company and role.
func WithAdminAuth(verifier IDTokenVerifier, admins AdminResolver, log *zap.Logger) func(http.Handler) http.Handler {
	log = logging.OrNop(log)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			idToken, ok := bearerToken(r)
			if !ok {
				httpjson.Error(w, http.StatusUnauthorized, "missing Authorization: Bearer <token>")
				return
			}

			tok, err := verifier.VerifyIDToken(r.Context(), idToken)
			if err != nil {
				httpjson.Error(w, http.StatusUnauthorized, "invalid token")
				return
			}

			a, err := admins.Resolve(r.Context(), tok.UID)
			if err != nil {
				if admin.IsErrForbidden(err) || admin.IsErrNotFound(err) {
					httpjson.Error(w, http.StatusForbidden, "admin access required")
					return
				}
				log.Error("admin lookup failed", zap.String("uid", tok.UID), zap.Error(err))
				httpjson.Error(w, http.StatusInternalServerError, "internal server error")
				return
			}

			p := &authctx.Principal{
				Kind:      authctx.KindAdmin,
				UID:       a.UID,
				Email:     a.Email,
				CompanyID: a.CompanyID,
				Role:      a.Role,
				Claims:    tok.Claims,
			}
			if p.Email == "" {
				p.Email, _ = tok.Claims["email"].(string)
			}
			next.ServeHTTP(w, r.WithContext(authctx.WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireOwner lets only company owners through. Must run after WithAdminAuth.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := authctx.PrincipalFrom(r.Context())
		if !ok || !p.IsAdmin() {
			httpjson.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if p.Role != admin.RoleOwner {
			httpjson.Error(w, http.StatusForbidden, "owner access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithCardholderAuth verifies a cardholder session token.
func WithCardholderAuth(verifier CardholderTokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				httpjson.Error(w, http.StatusUnauthorized, "missing Authorization: Bearer <token>")
				return
			}
			claims, err := verifier.Verify(token)
			if err != nil {
				httpjson.Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			p := &authctx.Principal{
				Kind:      authctx.KindCardholder,
				UID:       claims.Subject,
				CompanyID: claims.CompanyID,
			}
			next.ServeHTTP(w, r.WithContext(authctx.WithPrincipal(r.Context(), p)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" || !strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(h[len("Bearer "):])
	return token, token != ""
}
