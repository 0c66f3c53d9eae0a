package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/alfanzaky/acpagent/internal/domain"
	authpkg "github.com/alfanzaky/acpagent/pkg/auth"
	"github.com/alfanzaky/acpagent/pkg/logger"
	"github.com/alfanzaky/acpagent/pkg/metrics"
	"github.com/alfanzaky/acpagent/pkg/observability"
	"github.com/alfanzaky/acpagent/pkg/xresponse"
	"github.com/gin-gonic/gin"
)

const (
	scopeContextKey   = "caller_scope"
	signatureCaller   = "signature"
	signatureHeader   = "X-Signature"
	timestampHeader   = "X-Timestamp"
	authMethodJWT     = "jwt"
	authMethodHMAC    = "hmac"
	authMethodMissing = "none"
)

// bodyLimitMiddleware caps the request body before anything reads it
func bodyLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// webhookAuth accepts either a bearer JWT or an HMAC signature over
// timestamp+body. ACP event sources that cannot hold a token sign instead.
func webhookAuth(authService domain.AuthService, allowedIPs []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authService == nil {
			xresponse.InternalServerError(c, "Auth service not available")
			c.Abort()
			return
		}

		if !clientIPAllowed(c, allowedIPs) {
			metrics.RecordAuthAttempt("ip", "denied")
			xresponse.Forbidden(c, "IP address not allowed")
			c.Abort()
			return
		}

		if token, ok := bearerToken(c); ok {
			claims, err := authService.ValidateToken(token)
			if err != nil {
				metrics.RecordAuthAttempt(authMethodJWT, "failed")
				logger.Warn("Webhook authentication failed - invalid token",
					logger.String("client_ip", c.ClientIP()),
					logger.ErrorField(err),
				)
				respondTokenError(c, err)
				c.Abort()
				return
			}

			metrics.RecordAuthAttempt(authMethodJWT, "success")
			c.Set(observability.CallerContextKey, claims.Subject)
			c.Set(scopeContextKey, claims.Scope)
			c.Next()
			return
		}

		signature := strings.TrimSpace(c.GetHeader(signatureHeader))
		timestamp := strings.TrimSpace(c.GetHeader(timestampHeader))
		if signature == "" || timestamp == "" {
			metrics.RecordAuthAttempt(authMethodMissing, "failed")
			logger.Warn("Webhook authentication failed - missing credentials",
				logger.String("client_ip", c.ClientIP()),
				logger.Bool("has_signature", signature != ""),
				logger.Bool("has_timestamp", timestamp != ""),
			)
			xresponse.Unauthorized(c, "Bearer token or request signature required")
			c.Abort()
			return
		}

		body, ok := readBody(c)
		if !ok {
			return
		}

		if err := authService.ValidateSignature(signature, timestamp, body); err != nil {
			metrics.RecordAuthAttempt(authMethodHMAC, "failed")
			logger.Warn("Webhook authentication failed - invalid signature",
				logger.String("client_ip", c.ClientIP()),
				logger.String("timestamp", timestamp),
				logger.ErrorField(err),
			)
			switch {
			case errors.Is(err, authpkg.ErrNotConfigured):
				xresponse.Unauthorized(c, "Signature authentication is not enabled")
			case errors.Is(err, authpkg.ErrSignatureStale):
				xresponse.Unauthorized(c, "Request timestamp outside allowed window")
			default:
				xresponse.Unauthorized(c, "Invalid request signature")
			}
			c.Abort()
			return
		}

		metrics.RecordAuthAttempt(authMethodHMAC, "success")
		c.Set(observability.CallerContextKey, signatureCaller)
		c.Set(scopeContextKey, domain.ScopeWebhook)
		c.Next()
	}
}

// adminAuth restricts operator endpoints to ADMIN scoped tokens
func adminAuth(authService domain.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authService == nil {
			xresponse.InternalServerError(c, "Auth service not available")
			c.Abort()
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			metrics.RecordAuthAttempt(authMethodMissing, "failed")
			xresponse.Unauthorized(c, "Authorization header with Bearer token required")
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			metrics.RecordAuthAttempt(authMethodJWT, "failed")
			respondTokenError(c, err)
			c.Abort()
			return
		}

		if claims.Scope != domain.ScopeAdmin {
			metrics.RecordAuthAttempt(authMethodJWT, "forbidden")
			logger.Warn("Admin access denied",
				logger.String("subject", claims.Subject),
				logger.String("scope", claims.Scope),
				logger.String("ip", c.ClientIP()),
			)
			xresponse.Forbidden(c, "Admin access required")
			c.Abort()
			return
		}

		metrics.RecordAuthAttempt(authMethodJWT, "success")
		c.Set(observability.CallerContextKey, claims.Subject)
		c.Set(scopeContextKey, claims.Scope)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

func respondTokenError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, authpkg.ErrExpiredToken):
		xresponse.Unauthorized(c, "Token expired")
	case errors.Is(err, authpkg.ErrInvalidToken):
		xresponse.Unauthorized(c, "Invalid token")
	default:
		xresponse.InternalServerError(c, "Failed to validate token")
	}
}

// readBody reads the whole body and puts it back for the next handler.
// It writes the error response itself and reports false on failure.
func readBody(c *gin.Context) ([]byte, bool) {
	if c.Request.Body == nil {
		return nil, true
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			xresponse.Error(c, http.StatusRequestEntityTooLarge, xresponse.ErrCodeValidationFailed,
				fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
		} else {
			logger.Error("Failed to read request body",
				logger.String("client_ip", c.ClientIP()),
				logger.ErrorField(err),
			)
			xresponse.InternalServerError(c, "Failed to read request body")
		}
		c.Abort()
		return nil, false
	}

	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	return body, true
}

func clientIPAllowed(c *gin.Context, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	ip := net.ParseIP(c.ClientIP())
	if ip != nil && isIPAllowed(ip, allowed) {
		return true
	}
	logger.Warn("Webhook access denied - IP not allowed",
		logger.String("client_ip", c.ClientIP()),
		logger.Any("allowed_ips", allowed),
	)
	return false
}

func isIPAllowed(ip net.IP, allowed []string) bool {
	for _, entry := range allowed {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			_, cidr, err := net.ParseCIDR(entry)
			if err == nil && cidr.Contains(ip) {
				return true
			}
			continue
		}

		if ip.Equal(net.ParseIP(entry)) {
			return true
		}
	}

	return false
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Signature, X-Timestamp, X-Trace-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		observability.LogSystemError(c, "panic", "http", fmt.Errorf("%v", recovered))

		xresponse.InternalServerError(c, "Internal server error")
		c.Abort()
	})
}
