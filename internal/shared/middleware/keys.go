package middleware

// contextKey is a type used for context keys to avoid string key collisions
type contextKey string

// Context keys for middleware
const (
	RequestIDKey     contextKey = "request_id"
	WebhookIssuerKey contextKey = "webhook_issuer"
)

// RequestIDHeader carries the request id in and out of the service
const RequestIDHeader = "X-Request-ID"
