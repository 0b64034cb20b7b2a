package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/playnow/reservas-api/models"
)

const testSecret = "test-secret"

func sessionCookie(t *testing.T, user *models.User, issuedAt time.Time) *http.Cookie {
	t.Helper()
	token, err := GenerateToken(user, testSecret, issuedAt)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	return &http.Cookie{Name: TokenCookieName, Value: token}
}

func claimsEcho(t *testing.T, captured **Claims) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := ClaimsFromContext(r.Context()); ok {
			*captured = claims
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate(t *testing.T) {
	user := &models.User{ID: 7, Username: "ana", Role: models.RoleUser}

	var captured *Claims
	handler := Authenticate(testSecret)(claimsEcho(t, &captured))

	req := httptest.NewRequest(http.MethodGet, "/reservas/mias", nil)
	req.AddCookie(sessionCookie(t, user, time.Now()))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if captured == nil {
		t.Fatal("claims missing from request context")
	}
	if captured.UserID != 7 || captured.Username != "ana" || captured.Role != models.RoleUser {
		t.Errorf("claims = %+v", captured)
	}
}

func TestAuthenticateRejectsMissingCookie(t *testing.T) {
	handler := Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a session")
	}))

	req := httptest.NewRequest(http.MethodGet, "/reservas/mias", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthenticateRejectsBadSignature(t *testing.T) {
	user := &models.User{ID: 7, Username: "ana", Role: models.RoleUser}
	token, err := GenerateToken(user, "other-secret", time.Now())
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	handler := Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run with a forged token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	user := &models.User{ID: 7, Username: "ana", Role: models.RoleUser}
	issuedAt := time.Now().Add(-2 * TokenTTL)

	handler := Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run with an expired token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, user, issuedAt))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestOptionalAuthenticate(t *testing.T) {
	var captured *Claims
	handler := OptionalAuthenticate(testSecret)(claimsEcho(t, &captured))

	// Без cookie запрос проходит анонимно.
	req := httptest.NewRequest(http.MethodPost, "/reviews", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("anonymous status = %d, want 200", rec.Code)
	}
	if captured != nil {
		t.Error("anonymous request must not carry claims")
	}

	// С валидной cookie появляются claims.
	req = httptest.NewRequest(http.MethodPost, "/reviews", nil)
	req.AddCookie(sessionCookie(t, &models.User{ID: 3, Username: "luis", Role: models.RoleUser}, time.Now()))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d, want 200", rec.Code)
	}
	if captured == nil || captured.UserID != 3 {
		t.Errorf("claims = %+v, want userID 3", captured)
	}
}

func TestAuthorize(t *testing.T) {
	adminOnly := func(next http.Handler) http.Handler {
		return Authenticate(testSecret)(Authorize(models.RoleAdmin)(next))
	}

	handlerRan := false
	handler := adminOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerRan = true
		w.WriteHeader(http.StatusOK)
	}))

	// Обычный пользователь
	req := httptest.NewRequest(http.MethodGet, "/reservas/alladmin", nil)
	req.AddCookie(sessionCookie(t, &models.User{ID: 1, Username: "ana", Role: models.RoleUser}, time.Now()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("user status = %d, want 403", rec.Code)
	}
	if handlerRan {
		t.Error("handler must not run for non-admin")
	}

	// Администратор
	req = httptest.NewRequest(http.MethodGet, "/reservas/alladmin", nil)
	req.AddCookie(sessionCookie(t, &models.User{ID: 2, Username: "root", Role: models.RoleAdmin}, time.Now()))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("admin status = %d, want 200", rec.Code)
	}
}
