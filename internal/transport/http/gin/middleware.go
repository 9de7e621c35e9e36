package httpgin

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ctxRequestID = "request_id"
	ctxHolderID  = "holder_id"
	ctxRole      = "role"

	headerHolderID = "X-Holder-ID"
)

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}

		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Set(ctxRequestID, reqID)

		c.Next()
	}
}

func CORS() gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			"GET", "POST", "PUT", "DELETE", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
			headerHolderID,
			"Idempotency-Key",
			"If-None-Match",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"ETag",
			"Cache-Control",
			"Idempotency-Key",
			"Retry-After",
		},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	return cors.New(cfg)
}

func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		reqID, _ := c.Get(ctxRequestID)
		holder, _ := c.Get(ctxHolderID)

		attrs := []any{
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("ip", c.ClientIP()),
			slog.Any("request_id", reqID),
			slog.Any("holder_id", holder),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes_out", c.Writer.Size()),
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError || len(c.Errors) > 0:
			logger.Error("http", slog.Group("http", attrs...))
		case status >= http.StatusBadRequest:
			logger.Warn("http", slog.Group("http", attrs...))
		default:
			logger.Info("http", slog.Group("http", attrs...))
		}
	}
}

// IdentityMiddleware resolves the holder id of a request. With a secret it
// requires an HS256 bearer token and uses its "sub" claim; without one it
// trusts the X-Holder-ID header, which is meant for local runs and tests.
func IdentityMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, secret) {
			return
		}
		c.Next()
	}
}

// AdminMiddleware guards the admin routes with a token carrying
// role=admin. Without a secret there is no way to tell roles apart and
// every request passes.
func AdminMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		if !authenticate(c, secret) {
			return
		}

		if c.GetString(ctxRole) != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "admin role required"})
			return
		}

		c.Next()
	}
}

// authenticate stores the caller identity in c, or aborts with 401.
func authenticate(c *gin.Context, secret string) bool {
	if secret == "" {
		holder := strings.TrimSpace(c.GetHeader(headerHolderID))
		if holder == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing " + headerHolderID})
			return false
		}
		c.Set(ctxHolderID, holder)
		return true
	}

	raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing bearer token"})
		return false
	}

	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
		return false
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "token has no subject"})
		return false
	}

	c.Set(ctxHolderID, sub)
	if role, ok := claims["role"].(string); ok {
		c.Set(ctxRole, role)
	}

	return true
}

func holderID(c *gin.Context) string {
	return c.GetString(ctxHolderID)
}
