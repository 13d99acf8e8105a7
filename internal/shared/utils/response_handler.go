package utils

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

// HTTPError is an error that carries the HTTP status it should be reported with
type HTTPError struct {
	Code    int
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code
func (e *HTTPError) StatusCode() int {
	return e.Code
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(code int, message string, err error) *HTTPError {
	return &HTTPError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// StatusCoder is implemented by errors that map to an HTTP status code
type StatusCoder interface {
	StatusCode() int
}

// ResponseHandler writes JSON responses and logs failures in one place
type ResponseHandler struct {
	logger *logger.Logger
}

// NewResponseHandler creates a new response handler
func NewResponseHandler(log *logger.Logger) *ResponseHandler {
	return &ResponseHandler{
		logger: log.Named("response-handler"),
	}
}

// GinJSON writes body with the given status
func (rh *ResponseHandler) GinJSON(c *gin.Context, statusCode int, body interface{}) {
	c.JSON(statusCode, body)
}

// GinError writes {"error": message} and aborts the chain
func (rh *ResponseHandler) GinError(c *gin.Context, message string, statusCode int) {
	rh.logger.Warn("HTTP error response",
		zap.String("request_id", c.GetString("request_id")),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status_code", statusCode),
		zap.String("message", message),
	)

	c.AbortWithStatusJSON(statusCode, gin.H{"error": message})
}

// GinErrorWith writes an error body with extra fields merged in
func (rh *ResponseHandler) GinErrorWith(c *gin.Context, err error, statusCode int, extra gin.H) {
	rh.logger.Error("HTTP error response",
		zap.String("request_id", c.GetString("request_id")),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status_code", statusCode),
		zap.Error(err),
	)

	body := gin.H{"error": err.Error()}
	for k, v := range extra {
		body[k] = v
	}
	c.AbortWithStatusJSON(statusCode, body)
}

// GinInternalError logs err and writes a generic 500
func (rh *ResponseHandler) GinInternalError(c *gin.Context, err error) {
	rh.logger.Error("Internal server error",
		zap.String("request_id", c.GetString("request_id")),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)

	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// GinBadRequest sends a 400
func (rh *ResponseHandler) GinBadRequest(c *gin.Context, message string) {
	rh.GinError(c, message, http.StatusBadRequest)
}

// GinUnauthorized sends a 401
func (rh *ResponseHandler) GinUnauthorized(c *gin.Context, message string) {
	rh.GinError(c, message, http.StatusUnauthorized)
}

// GinNotFound sends a 404
func (rh *ResponseHandler) GinNotFound(c *gin.Context, message string) {
	rh.GinError(c, message, http.StatusNotFound)
}

// GinConflict sends a 409
func (rh *ResponseHandler) GinConflict(c *gin.Context, message string) {
	rh.GinError(c, message, http.StatusConflict)
}

// GinHandleServiceError maps service errors onto HTTP responses
func GinHandleServiceError(c *gin.Context, err error, rh *ResponseHandler) {
	var statusErr StatusCoder
	if !errors.As(err, &statusErr) {
		rh.GinInternalError(c, err)
		return
	}

	switch code := statusErr.StatusCode(); code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusNotFound, http.StatusConflict, http.StatusServiceUnavailable:
		rh.GinError(c, err.Error(), code)
	default:
		rh.GinInternalError(c, err)
	}
}
