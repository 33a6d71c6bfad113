package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func newRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(secret))
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, CallerID(c))
	})
	return r
}

func get(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_ValidToken(t *testing.T) {
	token, err := IssueToken(secret, "attorney@visar.test", time.Hour)
	require.NoError(t, err)

	w := get(newRouter(secret), "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "attorney@visar.test", w.Body.String())
}

func TestAuth_UsernameClaimFallback(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": "paralegal",
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	w := get(newRouter(secret), "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "paralegal", w.Body.String())
}

func TestAuth_Rejects(t *testing.T) {
	expired, err := IssueToken(secret, "someone", -time.Minute)
	require.NoError(t, err)
	wrongKey, err := IssueToken("other-secret", "someone", time.Hour)
	require.NoError(t, err)
	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	r := newRouter(secret)
	for name, header := range map[string]string{
		"missing":    "",
		"not bearer": "Basic abc",
		"garbage":    "Bearer not.a.token",
		"expired":    "Bearer " + expired,
		"wrong key":  "Bearer " + wrongKey,
		"no subject": "Bearer " + noSubject,
	} {
		w := get(r, header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
		assert.Contains(t, w.Body.String(), `"UNAUTHORIZED"`, name)
	}
}

func TestAuth_DisabledRunsAsAnonymous(t *testing.T) {
	w := get(newRouter(""), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, AnonymousCaller, w.Body.String())
}

func TestIssueToken_RequiresSecret(t *testing.T) {
	_, err := IssueToken("", "someone", time.Hour)
	assert.Error(t, err)
}
