package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/carbocredit/backend/internal/models"
)

type mockResolver struct {
	byWallet map[string]*models.User
	byID     map[uuid.UUID]*models.User
}

func (m *mockResolver) GetByWallet(_ context.Context, wallet string) (*models.User, error) {
	if u, ok := m.byWallet[wallet]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func (m *mockResolver) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

type mockValidator struct {
	valid map[string]uuid.UUID
}

func (m *mockValidator) ValidateToken(token string) (uuid.UUID, error) {
	if id, ok := m.valid[token]; ok {
		return id, nil
	}
	return uuid.Nil, errors.New("invalid token")
}

func fixtures() (*models.User, *mockResolver, *mockValidator) {
	user := &models.User{ID: uuid.New(), WalletAddress: "0xwallet", Role: models.RoleUser}
	resolver := &mockResolver{
		byWallet: map[string]*models.User{user.WalletAddress: user},
		byID:     map[uuid.UUID]*models.User{user.ID: user},
	}
	validator := &mockValidator{valid: map[string]uuid.UUID{"good-token": user.ID}}
	return user, resolver, validator
}

func echoUser(t *testing.T, want *models.User) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := UserFromCtx(r.Context())
		if got == nil || got.ID != want.ID {
			t.Error("handler did not receive the resolved user")
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestWalletAuth_Header(t *testing.T) {
	user, resolver, validator := fixtures()
	h := WalletAuth(resolver, validator)(echoUser(t, user))

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("X-Wallet-Address", user.WalletAddress)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestWalletAuth_BearerToken(t *testing.T) {
	user, resolver, validator := fixtures()
	h := WalletAuth(resolver, validator)(echoUser(t, user))

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestWalletAuth_NoCredentials(t *testing.T) {
	_, resolver, validator := fixtures()
	h := WalletAuth(resolver, validator)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler should not run without credentials")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestWalletAuth_BadToken(t *testing.T) {
	_, resolver, validator := fixtures()
	h := WalletAuth(resolver, validator)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler should not run with a bad token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestWalletAuth_UnknownWallet(t *testing.T) {
	_, resolver, validator := fixtures()
	h := WalletAuth(resolver, validator)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler should not run for an unknown wallet")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("X-Wallet-Address", "0xunknown")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuditorOnly(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := AuditorOnly(next)

	tests := []struct {
		name string
		user *models.User
		want int
	}{
		{"auditor passes", &models.User{ID: uuid.New(), Role: models.RoleAuditor}, http.StatusOK},
		{"plain user forbidden", &models.User{ID: uuid.New(), Role: models.RoleUser}, http.StatusForbidden},
		{"no user unauthorized", nil, http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/verification/queue/pending", nil)
			if tc.user != nil {
				req = req.WithContext(WithUser(req.Context(), tc.user))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status: got %d, want %d", rec.Code, tc.want)
			}
		})
	}
}
