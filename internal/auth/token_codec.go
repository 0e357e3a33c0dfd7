package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	apperrors "wikishelf/internal/errors"
)

// DefaultTokenTTL is the lifetime of an issued bearer token.
const DefaultTokenTTL = time.Hour

// Claims represents JWT claims. The user id travels in the standard "sub" claim.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies signed, time-limited bearer tokens.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenCodec creates a codec signing with HS256 and the given secret.
func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenCodec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		// Expiry is checked against the codec clock in Verify.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

// WithClock replaces the codec's time source.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	c.now = now
	return c
}

// Issue creates a token binding subject that expires after the codec TTL.
func (c *TokenCodec) Issue(subject uuid.UUID) (token string, expiresAt time.Time, err error) {
	now := c.now()
	expiresAt = now.Add(c.ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, claims.ExpiresAt.Time, nil
}

// Verify checks signature, algorithm and expiry and returns the bound subject.
// Every failure wraps apperrors.ErrInvalidToken.
func (c *TokenCodec) Verify(tokenString string) (uuid.UUID, error) {
	claims := &Claims{}
	token, err := c.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}
	if !token.Valid {
		return uuid.Nil, apperrors.ErrInvalidToken
	}

	now := c.now()
	if claims.ExpiresAt == nil || now.After(claims.ExpiresAt.Time) {
		return uuid.Nil, fmt.Errorf("%w: token expired", apperrors.ErrInvalidToken)
	}
	if claims.NotBefore != nil && now.Before(claims.NotBefore.Time) {
		return uuid.Nil, fmt.Errorf("%w: token not valid yet", apperrors.ErrInvalidToken)
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", apperrors.ErrInvalidToken)
	}
	return subject, nil
}
