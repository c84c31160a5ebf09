package handler

import (
	"fmt"
	"strings"
	"time"

	"netbanking/internal/logger"
	"netbanking/internal/token"
	"netbanking/pkg/response"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	headerRequestID = "X-Request-ID"
	ctxClaims       = "claims"
	ctxRequestID    = "request_id"
)

// RequestIDMiddleware tags every request with an id, echoes it back and
// attaches a logger carrying it to the request context.
func RequestIDMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)

		reqLog := log.With().Str("request_id", id).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), reqLog))
		c.Next()
	}
}

// LoggerMiddleware writes one access log line per request.
func LoggerMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path = path + "?" + q
		}

		c.Next()

		status := c.Writer.Status()
		l := logger.FromContext(c.Request.Context(), log)
		ev := l.Info()
		switch {
		case status >= 500:
			ev = l.Error()
		case status >= 400:
			ev = l.Warn()
		}
		ev.Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Str("method", c.Request.Method).
			Str("path", path).
			Msg("http request")
	}
}

// RecoveryMiddleware turns a panic into a 500 envelope.
func RecoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				l := logger.FromContext(c.Request.Context(), log)
				l.Error().
					Str("panic", fmt.Sprint(rec)).
					Str("path", c.Request.URL.Path).
					Msg("recovered from panic")
				response.ServerError(c, "Internal server error")
			}
		}()
		c.Next()
	}
}

func CORSMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", headerRequestID},
		ExposeHeaders: []string{headerRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// ============================================================
// Authentication
// ============================================================

// AuthMiddleware verifies the bearer token and stores its claims.
func AuthMiddleware(tokens *token.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearer(c.GetHeader("Authorization"))
		if raw == "" {
			response.Unauthorized(c, "Access denied. No token provided.")
			return
		}
		claims, err := tokens.Parse(raw)
		if err != nil {
			response.Forbidden(c, "Invalid or expired token")
			return
		}
		c.Set(ctxClaims, claims)
		c.Next()
	}
}

func bearer(header string) string {
	parts := strings.Fields(header)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

// RequireCustomer admits tokens issued to a customer account.
func RequireCustomer() gin.HandlerFunc {
	return require(func(cl *token.Claims) bool { return cl.IsCustomer() }, "Access denied. Customer session required.")
}

func RequireAdmin() gin.HandlerFunc {
	return require(func(cl *token.Claims) bool { return cl.IsAdmin }, "Access denied. Admin privileges required.")
}

// RequireManager admits managers and admins.
func RequireManager() gin.HandlerFunc {
	return require(func(cl *token.Claims) bool { return cl.CanManage() }, "Access denied. Manager privileges required.")
}

func require(allowed func(*token.Claims) bool, denied string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl := claimsOf(c)
		if cl == nil || !allowed(cl) {
			response.Forbidden(c, denied)
			return
		}
		c.Next()
	}
}

func claimsOf(c *gin.Context) *token.Claims {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return nil
	}
	cl, _ := v.(*token.Claims)
	return cl
}
