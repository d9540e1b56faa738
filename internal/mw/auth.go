package mw

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const identityKey = "identity"

// Identity is the authenticated caller resolved from the bearer token. The
// token itself is minted by the external login flow; this middleware only
// verifies and decodes it.
type Identity struct {
	ID    int64
	Login string
	Role  string
}

// Auth verifies the Authorization bearer token and stores the caller's
// identity in the request context.
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return key, nil
		})
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		id, ok := claims["id"].(float64)
		login, _ := claims["login"].(string)
		if !ok || login == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "malformed identity claims"})
			return
		}
		role, _ := claims["role"].(string)

		c.Set(identityKey, Identity{ID: int64(id), Login: login, Role: role})
		c.Next()
	}
}

// IdentityFrom returns the authenticated identity stored by Auth.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// SignToken mints a token for the given identity. Used by tests and
// tooling; the production login flow issues its own tokens with the same
// claims.
func SignToken(secret string, identity Identity) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":    identity.ID,
		"login": identity.Login,
		"role":  identity.Role,
	})
	return token.SignedString([]byte(secret))
}
