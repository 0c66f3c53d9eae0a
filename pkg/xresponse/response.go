package xresponse

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Response represents standard API response format
type Response struct {
	Code      int         `json:"code"`
	Status    string      `json:"status"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ErrorResponse represents error response format
type ErrorResponse struct {
	Code      int         `json:"code"`
	Status    string      `json:"status"`
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Common error codes
const (
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeQueueFull        = "QUEUE_FULL"
	ErrCodeQueueClosed      = "QUEUE_CLOSED"
	ErrCodeUpstreamError    = "ACP_UPSTREAM_ERROR"
	ErrCodeUnavailable      = "SERVICE_UNAVAILABLE"
)

func newResponse(code int, message string, data interface{}) Response {
	return Response{
		Code:      code,
		Status:    "success",
		Message:   message,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
}

// Success sends success response
func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, newResponse(http.StatusOK, message, data))
}

// Created sends created response (201)
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, newResponse(http.StatusCreated, message, data))
}

// Accepted sends 202 for work handed to the background worker
func Accepted(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusAccepted, newResponse(http.StatusAccepted, message, data))
}

// Error sends error response
func Error(c *gin.Context, statusCode int, errorCode, message string) {
	ErrorWithDetails(c, statusCode, errorCode, message, nil)
}

// ErrorWithDetails sends error response with details
func ErrorWithDetails(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		Code:      statusCode,
		Status:    "error",
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().Unix(),
	})
}

// BadRequest sends 400 Bad Request response
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, ErrCodeValidationFailed, message)
}

// ValidationError sends validation error response with field details
func ValidationError(c *gin.Context, details interface{}) {
	ErrorWithDetails(c, http.StatusBadRequest, ErrCodeValidationFailed, "Validation failed", details)
}

// Unauthorized sends 401 Unauthorized response
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// Forbidden sends 403 Forbidden response
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, ErrCodeForbidden, message)
}

// NotFound sends 404 Not Found response
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, ErrCodeNotFound, message)
}

// InternalServerError sends 500 Internal Server Error response
func InternalServerError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, ErrCodeInternalError, message)
}

// UpstreamError sends 502 when the ACP backend fails
func UpstreamError(c *gin.Context, message string) {
	Error(c, http.StatusBadGateway, ErrCodeUpstreamError, message)
}

// QueueFull sends 503 when the intake queue refuses new work
func QueueFull(c *gin.Context, message string) {
	c.Header("Retry-After", "5")
	Error(c, http.StatusServiceUnavailable, ErrCodeQueueFull, message)
}

// QueueClosed sends 503 while the agent is shutting down
func QueueClosed(c *gin.Context, message string) {
	Error(c, http.StatusServiceUnavailable, ErrCodeQueueClosed, message)
}

// ServiceUnavailable sends 503 for an optional dependency that is not configured
func ServiceUnavailable(c *gin.Context, message string) {
	Error(c, http.StatusServiceUnavailable, ErrCodeUnavailable, message)
}
