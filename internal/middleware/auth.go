package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"joltcab/internal/config"
)

// ContextKeyCallerID is the gin context key holding the authenticated
// caller's subject.
const ContextKeyCallerID = "caller_id"

// ContextKeyCallerRole is the gin context key holding the caller's role.
const ContextKeyCallerRole = "caller_role"

// callerClaims are the token claims issued by the identity provider.
// Issuance lives outside this service; we only verify.
type callerClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware verifies the bearer token and stores the caller's
// identity in the request context. Disabled (pass-through) when no
// secret is configured, e.g. behind a gateway that already
// authenticates. Websocket clients may pass the token as a query
// parameter since browsers cannot set headers on upgrade requests.
func AuthMiddleware(cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled || cfg.JWTSecret == "" {
			c.Next()
			return
		}

		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
			return
		}

		claims := &callerClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !parsed.Valid || claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextKeyCallerID, claims.Subject)
		c.Set(ContextKeyCallerRole, claims.Role)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}
