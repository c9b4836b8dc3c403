package api

import (
	"net/http"
	"strings"
	"time"

	"wrapreel/internal/auth"
	"wrapreel/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	ctxTraceID = "trace_id"
	ctxUserID  = "user_id"
	ctxShopID  = "shop_id"
	ctxEmail   = "email"
	ctxRole    = "role"
)

func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := strings.TrimSpace(c.GetHeader("X-Trace-Id"))
		if traceID == "" {
			if v7, err := uuid.NewV7(); err == nil {
				traceID = v7.String()
			} else {
				traceID = uuid.NewString()
			}
		}
		c.Set(ctxTraceID, traceID)
		c.Writer.Header().Set("X-Trace-Id", traceID)
		c.Next()
	}
}

func RequestLogMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http_request",
			zap.String("trace_id", traceIDFromContext(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("shop_id", shopIDFromContext(c)),
		)
	}
}

// AuthMiddleware accepts a bearer token. WebSocket upgrades may pass it as
// the access_token query parameter since browsers cannot set headers there.
func AuthMiddleware(authSvc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			writeUnauthorized(c)
			c.Abort()
			return
		}
		claims, err := authSvc.ParseAccess(token)
		if err != nil {
			writeUnauthorized(c)
			c.Abort()
			return
		}
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxShopID, claims.ShopID)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxRole, string(claims.Role))
		c.Next()
	}
}

// RequirePermission rejects members whose role does not grant p.
func RequirePermission(p auth.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.Allowed(roleFromContext(c), p) {
			writeError(c, http.StatusForbidden, "ROLE_FORBIDDEN", "Your role cannot do this", false, map[string]any{
				"permission": p,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if websocket.IsWebSocketUpgrade(c.Request) {
			if q := c.Query("access_token"); q != "" {
				return q, true
			}
		}
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix)), true
}

func contextString(c *gin.Context, key string) string {
	if v, ok := c.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func traceIDFromContext(c *gin.Context) string { return contextString(c, ctxTraceID) }

func userIDFromContext(c *gin.Context) string { return contextString(c, ctxUserID) }

func shopIDFromContext(c *gin.Context) string { return contextString(c, ctxShopID) }

func roleFromContext(c *gin.Context) model.UserRole { return model.UserRole(contextString(c, ctxRole)) }

// claimsFromContext rebuilds the caller's identity for service calls that
// authorize on their own.
func claimsFromContext(c *gin.Context) auth.Claims {
	return auth.Claims{
		UserID: userIDFromContext(c),
		ShopID: shopIDFromContext(c),
		Email:  contextString(c, ctxEmail),
		Role:   roleFromContext(c),
	}
}

func requireJSON(c *gin.Context) bool {
	if c.ContentType() == "" {
		return true
	}
	if strings.Contains(c.ContentType(), "application/json") {
		return true
	}
	writeError(c, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Content-Type must be application/json", false, nil)
	return false
}
