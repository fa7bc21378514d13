// Package auth issues and validates the bearer tokens that carry a caller's
// account address.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/EternisAI/agent-registry/internal/account"
)

const defaultIssuer = "agent-registry"

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrSecretMissing  = errors.New("jwt secret is not configured")
	ErrInvalidSubject = errors.New("token subject is not an account address")
)

type Config struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
	Issuer string        `mapstructure:"issuer"`
}

// Claims identify the caller by address in the subject.
type Claims struct {
	jwt.RegisteredClaims
	Label string `json:"label,omitempty"`
}

// Caller parses the subject as an account address.
func (c *Claims) Caller() (account.Address, error) {
	addr, err := account.ParseAddress(c.Subject)
	if err != nil || addr.IsZero() {
		return account.Zero, ErrInvalidSubject
	}
	return addr, nil
}

// GenerateToken signs an HS256 token for caller. A zero TTL produces a token
// without expiry.
func GenerateToken(cfg Config, caller account.Address, label string, now time.Time) (string, error) {
	if cfg.Secret == "" {
		return "", ErrSecretMissing
	}
	if caller.IsZero() {
		return "", ErrInvalidSubject
	}

	issuer := cfg.Issuer
	if issuer == "" {
		issuer = defaultIssuer
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  caller.Hex(),
			Issuer:   issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
		Label: label,
	}
	if cfg.TTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(cfg.TTL))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func ValidateToken(secret, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, ErrSecretMissing
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := claims.Caller(); err != nil {
		return nil, err
	}
	return claims, nil
}
