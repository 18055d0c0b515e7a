package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/crucial707/tools-sys/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the token validity window when none is configured.
const DefaultTTL = 24 * time.Hour

// TokenConfig is the process-wide signing setup, built once at startup.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// TokenConfigFrom extracts the token settings from the service configuration.
func TokenConfigFrom(cfg config.Config) TokenConfig {
	return TokenConfig{Secret: []byte(cfg.JWTSecret), TTL: cfg.JWTTTL}
}

func (c TokenConfig) clock() func() time.Time {
	if c.Now != nil {
		return c.Now
	}
	return time.Now
}

// Claims is the signed payload: sub carries the username.
type Claims struct {
	jwt.RegisteredClaims
}

// Username returns the subject claim.
func (c *Claims) Username() string {
	return c.Subject
}

// ==========================
// Issuer
// ==========================

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(cfg TokenConfig) *Issuer {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: cfg.Secret, ttl: ttl, now: cfg.clock()}
}

// Issue signs a token for id with HS256 and returns it with its expiry.
func (i *Issuer) Issue(id Identity) (string, time.Time, error) {
	if id.Username == "" {
		return "", time.Time{}, errors.New("issue token: empty username")
	}

	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// ==========================
// Validator
// ==========================

type Validator struct {
	secret []byte
	parser *jwt.Parser
}

func NewValidator(cfg TokenConfig) *Validator {
	return &Validator{
		secret: cfg.Secret,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(cfg.clock()),
		),
	}
}

// Validate checks the signature first and expiry second. A token is valid
// while now < exp; from exp onwards it is ErrExpiredToken.
func (v *Validator) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	case !token.Valid || claims.Subject == "":
		return nil, ErrInvalidToken
	}
	return claims, nil
}
