package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-middleware"

func init() {
	gin.SetMode(gin.TestMode)
}

func generateTestToken(claims jwt.MapClaims, secret string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(secret))
	return tokenString
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"user_id": "user-123",
		"email":   "test@example.com",
		"role":    "organizer",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
}

func whoAmI(c *gin.Context) {
	userID, ok := GetUserID(c)
	email, _ := GetEmail(c)
	role, _ := GetRole(c)
	c.JSON(http.StatusOK, gin.H{
		"authenticated": ok,
		"user_id":       userID,
		"email":         email,
		"role":          role,
	})
}

func setupTestRouter(mw gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(mw)
	router.GET("/protected", whoAmI)
	router.GET("/skip", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "skipped"})
	})
	return router
}

func doRequest(router *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestJWTMiddleware(t *testing.T) {
	config := &JWTConfig{
		Secret:    testSecret,
		SkipPaths: []string{"/skip"},
	}
	router := setupTestRouter(JWTMiddleware(config))

	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	noUser := validClaims()
	delete(noUser, "user_id")

	tests := []struct {
		name     string
		path     string
		header   string
		wantCode int
		wantErr  string
	}{
		{"valid token", "/protected", "Bearer " + generateTestToken(validClaims(), testSecret), http.StatusOK, ""},
		{"missing authorization header", "/protected", "", http.StatusUnauthorized, "MISSING_TOKEN"},
		{"invalid header format", "/protected", "InvalidFormat", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"empty token after Bearer", "/protected", "Bearer ", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"expired token", "/protected", "Bearer " + generateTestToken(expired, testSecret), http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{"invalid secret", "/protected", "Bearer " + generateTestToken(validClaims(), "wrong-secret"), http.StatusUnauthorized, "INVALID_TOKEN"},
		{"malformed token", "/protected", "Bearer not-a-valid-jwt-token", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"missing user_id in claims", "/protected", "Bearer " + generateTestToken(noUser, testSecret), http.StatusUnauthorized, "INVALID_TOKEN"},
		{"skip path", "/skip", "", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, tt.path, tt.header)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantErr != "" {
				assert.Contains(t, w.Body.String(), tt.wantErr)
			}
		})
	}
}

func TestJWTMiddleware_ClaimsExtracted(t *testing.T) {
	router := setupTestRouter(JWTMiddleware(&JWTConfig{Secret: testSecret}))

	w := doRequest(router, "/protected", "Bearer "+generateTestToken(validClaims(), testSecret))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "user-123", body["user_id"])
	assert.Equal(t, "test@example.com", body["email"])
	assert.Equal(t, "organizer", body["role"])
}

func TestJWTMiddleware_Issuer(t *testing.T) {
	router := setupTestRouter(JWTMiddleware(&JWTConfig{Secret: testSecret, Issuer: "founder-events"}))

	claims := validClaims()
	claims["iss"] = "someone-else"
	w := doRequest(router, "/protected", "Bearer "+generateTestToken(claims, testSecret))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	claims["iss"] = "founder-events"
	w = doRequest(router, "/protected", "Bearer "+generateTestToken(claims, testSecret))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOptionalJWTMiddleware(t *testing.T) {
	router := setupTestRouter(OptionalJWTMiddleware(&JWTConfig{Secret: testSecret}))

	t.Run("anonymous passes through", func(t *testing.T) {
		w := doRequest(router, "/protected", "")
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, false, body["authenticated"])
	})

	t.Run("valid token attaches identity", func(t *testing.T) {
		w := doRequest(router, "/protected", "Bearer "+generateTestToken(validClaims(), testSecret))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "user-123")
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		w := doRequest(router, "/protected", "Bearer garbage")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	config := &JWTConfig{Secret: testSecret}

	router := gin.New()
	router.Use(JWTMiddleware(config))
	router.GET("/admin", RequireRole("admin", "superadmin"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "admin access"})
	})

	admin := validClaims()
	admin["role"] = "admin"
	w := doRequest(router, "/admin", "Bearer "+generateTestToken(admin, testSecret))
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, "/admin", "Bearer "+generateTestToken(validClaims(), testSecret))
	assert.Equal(t, http.StatusForbidden, w.Code)

	bare := gin.New()
	bare.GET("/admin", RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	w = doRequest(bare, "/admin", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetUserID(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := GetUserID(c)
	assert.False(t, ok)

	c.Set(ContextKeyUserID, "")
	_, ok = GetUserID(c)
	assert.False(t, ok, "empty user id is not an identity")

	c.Set(ContextKeyUserID, "test-user-id")
	id, ok := GetUserID(c)
	assert.True(t, ok)
	assert.Equal(t, "test-user-id", id)
}
