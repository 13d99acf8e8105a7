package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// WebhookAudience is the audience claim every webhook token carries
const WebhookAudience = "discord-bot-webhook"

// ErrInvalidWebhookToken is returned for any token that fails verification
var ErrInvalidWebhookToken = errors.New("invalid webhook token")

// WebhookClaims are the claims the sniper signs for each webhook call
type WebhookClaims struct {
	jwt.RegisteredClaims
}

// SignWebhookToken issues a short-lived HS256 token for posting to the bot
func SignWebhookToken(secret, issuer string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("webhook secret is empty")
	}

	claims := WebhookClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{WebhookAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-30 * time.Second)),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign webhook token: %w", err)
	}
	return signed, nil
}

// ParseWebhookToken verifies signature, audience, issuer and expiry
func ParseWebhookToken(secret, issuer, tokenStr string) (*WebhookClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(WebhookAudience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	claims := &WebhookClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhookToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidWebhookToken
	}

	return claims, nil
}
