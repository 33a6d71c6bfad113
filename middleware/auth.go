// Package middleware holds the gin middleware shared by every API route.
package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

// CallerKey is the gin context key holding the authenticated caller id
const CallerKey = "callerID"

// AnonymousCaller is the caller id used when authentication is disabled
const AnonymousCaller = "anonymous"

var errUnexpectedSigningMethod = errors.New("unexpected signing method")

// Auth verifies an HS256 bearer token and stores its subject as the caller
// id. An empty secret disables verification and every request runs as
// AnonymousCaller.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Set(CallerKey, AnonymousCaller)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			unauthorized(c, "Authorization header must be a Bearer token")
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errUnexpectedSigningMethod
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			unauthorized(c, "Invalid or expired token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			unauthorized(c, "Invalid token claims")
			return
		}
		caller := claimString(claims, "sub")
		if caller == "" {
			caller = claimString(claims, "username")
		}
		if caller == "" {
			unauthorized(c, "Token has no subject")
			return
		}

		c.Set(CallerKey, caller)
		c.Next()
	}
}

// CallerID returns the caller id stored by Auth
func CallerID(c *gin.Context) string {
	if v, ok := c.Get(CallerKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return AnonymousCaller
}

// IssueToken signs an HS256 token for subject that expires after ttl
func IssueToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is required")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iss": "visar-backend",
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func claimString(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}
