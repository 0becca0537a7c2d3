package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testCfg = JWTConfig{SigningKey: []byte("test-secret-key-for-unit-tests-only")}

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func runMiddleware(t *testing.T, mw echo.MiddlewareFunc, header string) (*User, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/establishments/1/reviews", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *User
	err := mw(func(c echo.Context) error {
		if u, ok := UserFromContext(c.Request().Context()); ok {
			seen = &u
		}
		return c.NoContent(http.StatusOK)
	})(c)
	return seen, err
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d", code)
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	_, err := runMiddleware(t, JWTMiddleware(testCfg), "")
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runMiddleware(t, JWTMiddleware(testCfg), tt.header)
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	token, err := IssueToken(testCfg, User{ID: 42, Name: "Aline"}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	u, err := runMiddleware(t, JWTMiddleware(testCfg), "Bearer "+token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u == nil || u.ID != 42 || u.Name != "Aline" {
		t.Errorf("unexpected user in context: %+v", u)
	}
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	token := createTestToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}, testCfg.SigningKey)

	_, err := runMiddleware(t, JWTMiddleware(testCfg), "Bearer "+token)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_WrongKey(t *testing.T) {
	token := createTestToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "42"},
	}, []byte("another-secret-entirely"))

	_, err := runMiddleware(t, JWTMiddleware(testCfg), "Bearer "+token)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_NonNumericSubject(t *testing.T) {
	token := createTestToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "dev-user"},
	}, testCfg.SigningKey)

	_, err := runMiddleware(t, JWTMiddleware(testCfg), "Bearer "+token)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_IssuerMismatch(t *testing.T) {
	cfg := JWTConfig{SigningKey: testCfg.SigningKey, Issuer: "garde-server"}
	token, err := IssueToken(JWTConfig{SigningKey: testCfg.SigningKey, Issuer: "someone-else"}, User{ID: 3}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	_, err = runMiddleware(t, JWTMiddleware(cfg), "Bearer "+token)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestDevAuthMiddleware_NoHeader(t *testing.T) {
	u, err := runMiddleware(t, DevAuthMiddleware(testCfg), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u == nil || *u != DevUser {
		t.Errorf("expected dev user, got %+v", u)
	}
}

func TestDevAuthMiddleware_VerifiesSuppliedToken(t *testing.T) {
	_, err := runMiddleware(t, DevAuthMiddleware(testCfg), "Bearer not-a-jwt")
	expectStatus(t, err, http.StatusUnauthorized)

	token, err := IssueToken(testCfg, User{ID: 7, Name: "Paul"}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	u, err := runMiddleware(t, DevAuthMiddleware(testCfg), "Bearer "+token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u == nil || u.ID != 7 {
		t.Errorf("expected token user, got %+v", u)
	}
}
