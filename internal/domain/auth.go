package domain

import (
	"strings"
	"time"
)

// Webhook caller scopes
const (
	ScopeWebhook = "WEBHOOK"
	ScopeAdmin   = "ADMIN"
)

// AuthClaims represents validated JWT claims of a webhook caller
type AuthClaims struct {
	Subject   string
	Scope     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NormalizeScope maps free-form scope strings onto known scopes
func NormalizeScope(scope string) string {
	switch strings.ToUpper(strings.TrimSpace(scope)) {
	case ScopeAdmin:
		return ScopeAdmin
	default:
		return ScopeWebhook
	}
}

// AuthService issues and validates credentials presented by ACP event sources
type AuthService interface {
	GenerateToken(subject, scope string) (string, error)
	ValidateToken(token string) (*AuthClaims, error)
	ValidateSignature(signature, timestamp string, payload []byte) error
}
