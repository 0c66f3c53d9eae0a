package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/alfanzaky/acpagent/config"
	"github.com/alfanzaky/acpagent/internal/domain"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token expired")
	ErrSignatureInvalid = errors.New("invalid signature")
	ErrSignatureStale   = errors.New("signature timestamp outside allowed window")
	ErrNotConfigured    = errors.New("signature secret not configured")
)

type webhookClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// JWTAuthService implements domain.AuthService using JWT bearer tokens and
// HMAC body signatures for ACP webhook callers
type JWTAuthService struct {
	cfg config.AuthConfig
	now func() time.Time
}

var _ domain.AuthService = (*JWTAuthService)(nil)

// NewJWTAuthService creates a new auth service instance
func NewJWTAuthService(cfg config.AuthConfig) *JWTAuthService {
	return &JWTAuthService{cfg: cfg, now: time.Now}
}

func (s *JWTAuthService) tokenTTL() time.Duration {
	if s.cfg.TokenTTL <= 0 {
		return 24 * time.Hour
	}
	return s.cfg.TokenTTL
}

func (s *JWTAuthService) clockSkew() time.Duration {
	if s.cfg.MaxClockSkew <= 0 {
		return 5 * time.Minute
	}
	return s.cfg.MaxClockSkew
}

// GenerateToken creates a signed JWT for a webhook caller
func (s *JWTAuthService) GenerateToken(subject, scope string) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", fmt.Errorf("token subject is required")
	}
	if s.cfg.WebhookSecret == "" {
		return "", fmt.Errorf("webhook secret is not configured")
	}

	now := s.now()
	claims := &webhookClaims{
		Scope: domain.NormalizeScope(scope),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL())),
			ID:        uuid.New().String(),
		},
	}
	if audience := strings.TrimSpace(s.cfg.Audience); audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.WebhookSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// ValidateToken parses and validates a JWT and returns its claims
func (s *JWTAuthService) ValidateToken(token string) (*domain.AuthClaims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &webhookClaims{}
	options := []jwt.ParserOption{
		jwt.WithIssuedAt(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(s.now),
	}
	if iss := strings.TrimSpace(s.cfg.Issuer); iss != "" {
		options = append(options, jwt.WithIssuer(iss))
	}
	if aud := strings.TrimSpace(s.cfg.Audience); aud != "" {
		options = append(options, jwt.WithAudience(aud))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.WebhookSecret), nil
	}, options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	result := &domain.AuthClaims{
		Subject: claims.Subject,
		Scope:   domain.NormalizeScope(claims.Scope),
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}
	return result, nil
}

// ValidateSignature checks an HMAC-SHA256 over timestamp+payload. The
// timestamp is unix seconds and must fall within the configured clock skew.
func (s *JWTAuthService) ValidateSignature(signature, timestamp string, payload []byte) error {
	if s.cfg.SignatureSecret == "" {
		return ErrNotConfigured
	}
	if signature == "" || timestamp == "" {
		return ErrSignatureInvalid
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrSignatureInvalid
	}
	age := s.now().Sub(time.Unix(ts, 0))
	if age < 0 {
		age = -age
	}
	if age > s.clockSkew() {
		return ErrSignatureStale
	}

	expected := Sign(s.cfg.SignatureSecret, timestamp, payload)
	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
		return ErrSignatureInvalid
	}

	return nil
}

// Sign computes the hex HMAC-SHA256 a webhook sender must present
func Sign(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
