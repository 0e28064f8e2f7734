package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for any token that fails decoding, signature, expiry or subject checks
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnsupportedAlgorithm is returned by New for non-HMAC algorithms
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
)

// Config holds JWT configuration
type Config struct {
	SigningKey string
	Algorithm  string
	Expiration time.Duration
}

// Claims are the registered claims carried by an access token. The subject is the user's email.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTUtil provides JWT token generation and validation
type JWTUtil struct {
	key    []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// New creates a new JWTUtil instance
func New(cfg Config) (*JWTUtil, error) {
	method, ok := jwt.GetSigningMethod(cfg.Algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, cfg.Algorithm)
	}
	if cfg.SigningKey == "" {
		return nil, errors.New("signing key must not be empty")
	}
	return &JWTUtil{
		key:    []byte(cfg.SigningKey),
		method: method,
		ttl:    cfg.Expiration,
		now:    time.Now,
	}, nil
}

// GenerateToken issues a token for subject with the configured TTL
func (j *JWTUtil) GenerateToken(subject string) (string, error) {
	return j.GenerateTokenWithTTL(subject, j.ttl)
}

// GenerateTokenWithTTL issues a token for subject expiring after ttl
func (j *JWTUtil) GenerateTokenWithTTL(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("token subject must not be empty")
	}
	now := j.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(j.method, claims)
	return token.SignedString(j.key)
}

// ValidateToken validates and parses the JWT token
func (j *JWTUtil) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return j.key, nil
	},
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
