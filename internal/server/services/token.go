// Package services contains the server-side business logic. This file
// implements TokenService: authenticating logins, issuing access/refresh
// token pairs, and the renewal flow that rotates refresh tokens.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/comdesk/sessiond/internal/common"
	"github.com/comdesk/sessiond/internal/logging"
	"github.com/comdesk/sessiond/internal/server/models"
	"github.com/comdesk/sessiond/internal/server/repositories/credentials"
	"github.com/comdesk/sessiond/internal/server/repositories/users"
	"github.com/comdesk/sessiond/internal/server/token"
)

// TokenPair bundles a short-lived access token, its expiry (localized for
// display), and the long-lived refresh token that accompanies it.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// TokenService orchestrates the session lifecycle:
//   - Login: verify credentials and mint a token pair
//   - Refresh: recover identity from an expired access token, check the
//     stored refresh token, and rotate
//   - Logout: revoke the stored refresh token
//
// The credential store is the single source of truth for refresh tokens; it
// is read fresh on every renewal and never cached here.
type TokenService struct {
	users       users.Repository
	credentials credentials.Repository
	codec       *token.Codec
	logger      logging.Logger
}

// NewTokenService constructs a TokenService from its collaborators.
func NewTokenService(u users.Repository, c credentials.Repository, codec *token.Codec, l logging.Logger) *TokenService {
	return &TokenService{
		users:       u,
		credentials: c,
		codec:       codec,
		logger:      l.With("module", "token_service"),
	}
}

// Register creates a new user and immediately starts a session for it,
// exactly as a successful login would.
func (s *TokenService) Register(ctx context.Context, username, password, displayName, role string) (*models.User, *TokenPair, error) {
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, nil, common.ErrUserExists
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, nil, common.ErrorInternal
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, nil, common.ErrorInternal
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		DisplayName:  displayName,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrUserExists) {
			return nil, nil, common.ErrUserExists
		}
		return nil, nil, common.ErrorInternal
	}

	pair, err := s.IssuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Login verifies the supplied credentials against the user store and, on
// success, returns the user together with a freshly issued token pair.
func (s *TokenService) Login(ctx context.Context, username, password string) (*models.User, *TokenPair, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, nil, err
	}
	pair, err := s.IssuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Authenticate resolves the user and verifies the password. It fails with
// common.ErrUserNotFound when the username is absent and
// common.ErrInvalidCredentials on a password mismatch. No token concerns
// here.
func (s *TokenService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, common.ErrorInternal
	}
	if !checkPassword(user.PasswordHash, password) {
		return nil, common.ErrInvalidCredentials
	}
	return user, nil
}

// IssuePair mints an access token for user, generates a new refresh token
// and persists it, replacing any previous refresh token for that username.
// This is the only transition that both mints an access token and writes to
// the credential store.
func (s *TokenService) IssuePair(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, expiresAt, err := s.codec.Encode(user.Username, user.Role, user.DisplayName)
	if err != nil {
		return nil, common.ErrorInternal
	}

	refresh, err := s.codec.GenerateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}

	if err := s.credentials.Save(ctx, user.Username, refresh); err != nil {
		return nil, common.ErrorInternal
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt}, nil
}

// Refresh renews a session from an expired access token and its refresh
// token:
//
//  1. The access token's signature is verified while its expiry is ignored;
//     a forged token fails with common.ErrInvalidToken regardless of the
//     refresh token supplied.
//  2. The stored refresh token for the recovered identity is looked up;
//     common.ErrSessionNotFound when none exists.
//  3. The supplied refresh token is compared to the stored one in constant
//     time; common.ErrRefreshTokenMismatch on inequality. This is the
//     authoritative revocation check: a rotated-away token never matches.
//  4. A new pair is minted and the stored refresh token rotated; the old one
//     is permanently invalid.
//
// Every failure is terminal for the call and leaves the store untouched.
func (s *TokenService) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	claims, err := s.codec.DecodeIgnoringExpiry(accessToken)
	if err != nil {
		s.logger.Warn(ctx, "renewal rejected: access token signature invalid")
		return nil, common.ErrInvalidToken
	}

	stored, err := s.credentials.Get(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "renewal rejected: no stored session", "username", claims.Subject)
			return nil, common.ErrSessionNotFound
		}
		return nil, fmt.Errorf("reading credential store: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(refreshToken), []byte(stored)) != 1 {
		s.logger.Warn(ctx, "renewal rejected: refresh token mismatch", "username", claims.Subject)
		return nil, common.ErrRefreshTokenMismatch
	}

	// The renewed token is minted from the claims recovered out of the
	// expired one; attribute changes propagate at the next full login.
	user := &models.User{
		Username:    claims.Subject,
		Role:        claims.Role,
		DisplayName: claims.DisplayName,
	}
	pair, err := s.IssuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "session renewed", "username", claims.Subject)
	return pair, nil
}

// Logout revokes the stored refresh token for the identity carried by the
// access token. The token may already be expired; only its signature must
// verify.
func (s *TokenService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.codec.DecodeIgnoringExpiry(accessToken)
	if err != nil {
		return common.ErrInvalidToken
	}
	if err := s.credentials.Delete(ctx, claims.Subject); err != nil {
		return common.ErrorInternal
	}
	s.logger.Info(ctx, "session revoked", "username", claims.Subject)
	return nil
}

// ValidateAccess strictly decodes an access token for request
// authentication: signature and expiry are both enforced.
func (s *TokenService) ValidateAccess(accessToken string) (*token.Claims, error) {
	return s.codec.DecodeValid(accessToken)
}

// --- helpers below ---

func hashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
