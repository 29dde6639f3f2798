// Package token implements the access-token codec: minting signed,
// time-bounded JWTs, the strict decode used for request authentication, and
// the expiry-ignoring decode that drives silent renewal. It also generates
// the opaque refresh tokens that accompany every access token.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/comdesk/sessiond/internal/common"
)

const refreshTokenBytes = 32

// Claims is the claim set carried by an access token. The subject registered
// claim holds the username.
type Claims struct {
	jwt.RegisteredClaims
	Role        string `json:"role,omitempty"`
	DisplayName string `json:"name,omitempty"`
}

// Codec mints and verifies access tokens with a single process-wide HS256
// secret. The secret and lifetime are fixed at construction; rotating the
// secret invalidates every previously issued token.
type Codec struct {
	secret []byte
	ttl    time.Duration
	loc    *time.Location
	now    func() time.Time
}

// Option customizes a Codec.
type Option func(*Codec)

// WithClock replaces the codec's time source. Used in tests to simulate time
// advancement past expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec builds a Codec. loc controls the location of the expiry timestamp
// returned by Encode (nil means UTC); the exp claim itself is always epoch
// time, so comparisons are unambiguous regardless of display zone.
func NewCodec(secret []byte, ttl time.Duration, loc *time.Location, opts ...Option) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: empty signing secret")
	}
	if ttl <= 0 {
		return nil, errors.New("token: non-positive access token lifetime")
	}
	if loc == nil {
		loc = time.UTC
	}
	c := &Codec{secret: secret, ttl: ttl, loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Encode mints an access token for the given subject and attributes and
// returns it together with its expiry, localized for display.
func (c *Codec) Encode(username, role, displayName string) (string, time.Time, error) {
	issuedAt := c.now()
	expiresAt := issuedAt.Add(c.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		Role:        role,
		DisplayName: displayName,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}

	return signed, expiresAt.In(c.loc), nil
}

// DecodeValid verifies signature and expiry and returns the claim set.
// It fails with common.ErrInvalidToken when the token is malformed or the
// signature does not verify, and with common.ErrTokenExpired when the token
// is validly signed but at or past its expiry. A wrong signing key always
// yields ErrInvalidToken, never ErrTokenExpired.
func (c *Codec) DecodeValid(tokenString string) (*Claims, error) {
	claims := &Claims{}

	tok, err := jwt.ParseWithClaims(tokenString, claims, c.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, common.ErrInvalidToken
		}
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !tok.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// DecodeIgnoringExpiry verifies signature and structure but deliberately
// skips claim validation, so an expired-but-validly-signed token is accepted.
// This is the renewal primitive: it still rejects any token whose signature
// does not verify, with common.ErrInvalidToken.
func (c *Codec) DecodeIgnoringExpiry(tokenString string) (*Claims, error) {
	claims := &Claims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithoutClaimsValidation(),
	)

	tok, err := parser.ParseWithClaims(tokenString, claims, c.keyFunc)
	if err != nil || !tok.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// GenerateRefreshToken returns a new opaque refresh token: 32 bytes from the
// system CSPRNG, hex encoded (256 bits of entropy).
func (c *Codec) GenerateRefreshToken() (string, error) {
	return common.MakeRandHexString(refreshTokenBytes)
}

func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	return c.secret, nil
}
