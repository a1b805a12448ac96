package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vehtrack/vehtrack/internal/authz"
	"github.com/vehtrack/vehtrack/internal/model"
	"github.com/vehtrack/vehtrack/internal/token"
)

const (
	ctxIdentity = "identity"
	ctxClaims   = "claims"
)

// RequestLogger logs one line per request with method, path, status and
// duration.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("ip", c.ClientIP()))
	}
}

// Auth verifies the bearer token, refuses revoked ones and stores the caller
// identity for the handlers.
func Auth(tokens *token.Manager, revoked *token.RevokedSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		claims, err := tokens.Verify(strings.TrimPrefix(header, prefix))
		if err != nil || revoked.Contains(claims.ID) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(ctxClaims, claims)
		c.Set(ctxIdentity, authz.Identity{Email: claims.Subject, Role: model.Role(claims.Role)})
		c.Next()
	}
}

// identity returns the authenticated caller stored by Auth.
func identity(c *gin.Context) authz.Identity {
	v, _ := c.Get(ctxIdentity)
	ident, _ := v.(authz.Identity)
	return ident
}

// claims returns the verified token claims stored by Auth.
func claims(c *gin.Context) *token.Claims {
	v, _ := c.Get(ctxClaims)
	cl, _ := v.(*token.Claims)
	return cl
}
