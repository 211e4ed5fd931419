package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "s3cret"

func sign(t *testing.T, role string, ttl time.Duration) string {
	t.Helper()
	claims := Claims{
		UserID:           42,
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl))},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ops", Auth(secret), RequireRole(RoleOperator), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "role": GetUserRole(c)})
	})
	return r
}

func TestAuth(t *testing.T) {
	r := newRouter()
	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"bad scheme", "Token " + sign(t, RoleOperator, time.Hour), "", http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, RoleOperator, -time.Minute), "", http.StatusUnauthorized},
		{"operator", "Bearer " + sign(t, RoleOperator, time.Hour), "", http.StatusOK},
		{"admin passes any role check", "Bearer " + sign(t, RoleAdmin, time.Hour), "", http.StatusOK},
		{"auditor forbidden", "Bearer " + sign(t, RoleAuditor, time.Hour), "", http.StatusForbidden},
		{"query token", "", sign(t, RoleOperator, time.Hour), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/ops"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAuth_WrongSecret(t *testing.T) {
	claims := Claims{UserID: 1, Role: RoleAdmin}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ops", nil)
	req.Header.Set("Authorization", "Bearer "+s)
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid token")
}
