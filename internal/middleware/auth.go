package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/carbocredit/backend/internal/models"
)

type contextKey string

const ctxUserKey contextKey = "user"

// UserResolver looks up the authenticated user record.
type UserResolver interface {
	GetByWallet(ctx context.Context, walletAddress string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// TokenValidator verifies a session token and returns the user ID it carries.
type TokenValidator interface {
	ValidateToken(token string) (uuid.UUID, error)
}

// WalletAuth authenticates requests either by a bearer session token or by
// the X-Wallet-Address header, resolving to a user record stored in request
// context. Unknown or absent credentials fail with 401.
func WalletAuth(users UserResolver, tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var user *models.User

			if raw := extractBearer(r); raw != "" {
				userID, err := tokens.ValidateToken(raw)
				if err != nil {
					http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
					return
				}
				user, err = users.GetByID(r.Context(), userID)
				if err != nil {
					http.Error(w, `{"error":"authentication failed"}`, http.StatusUnauthorized)
					return
				}
			} else if wallet := strings.TrimSpace(r.Header.Get("X-Wallet-Address")); wallet != "" {
				var err error
				user, err = users.GetByWallet(r.Context(), wallet)
				if err != nil {
					http.Error(w, `{"error":"authentication failed"}`, http.StatusUnauthorized)
					return
				}
			} else {
				http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// AuditorOnly rejects requests from non-auditor users with 403. Must run
// inside WalletAuth.
func AuditorOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromCtx(r.Context())
		if user == nil {
			http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
			return
		}
		if !user.Role.CanAudit() {
			http.Error(w, `{"error":"auditor role required"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFromCtx returns the authenticated user or nil.
func UserFromCtx(ctx context.Context) *models.User {
	u, _ := ctx.Value(ctxUserKey).(*models.User)
	return u
}

// WithUser returns a context carrying the given user.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxUserKey, u)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
