package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chainfund/config"
	"chainfund/internal/auth"
	"chainfund/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func bearerToken(t *testing.T, userID uint, role string) string {
	t.Helper()
	claims := auth.Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + s
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.JWTConfig{AccessSecret: testSecret}
	r := gin.New()
	r.GET("/whoami", AuthRequired(cfg), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)})
	})
	r.POST("/payouts", AuthRequired(cfg), RequireRole(domain.RoleCreator, domain.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	r.GET("/admin", AuthRequired(cfg), AdminRequired(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestAuthRequired(t *testing.T) {
	r := newAuthRouter()

	cases := []struct {
		name   string
		header string
		code   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc123", http.StatusUnauthorized},
		{"bad token", "Bearer not.a.token", http.StatusUnauthorized},
		{"valid token", bearerToken(t, 42, domain.RoleDonor), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.code {
				t.Errorf("status = %d, want %d", w.Code, tc.code)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	r := newAuthRouter()

	cases := []struct {
		role string
		code int
	}{
		{domain.RoleDonor, http.StatusForbidden},
		{domain.RoleCreator, http.StatusCreated},
		{domain.RoleAdmin, http.StatusCreated},
	}
	for _, tc := range cases {
		t.Run(tc.role, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/payouts", nil)
			req.Header.Set("Authorization", bearerToken(t, 42, tc.role))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.code {
				t.Errorf("role %s: status = %d, want %d", tc.role, w.Code, tc.code)
			}
		})
	}
}

func TestAdminRequired(t *testing.T) {
	r := newAuthRouter()

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", bearerToken(t, 1, domain.RoleCreator))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("creator on admin route: status = %d, want 403", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", bearerToken(t, 1, domain.RoleAdmin))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("admin on admin route: status = %d, want 200", w.Code)
	}
}
