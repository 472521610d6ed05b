// Package services contains server-side business logic. This file implements
// UserService, the auth workflow: signup, signin, logout and refresh-token
// rotation over the users repository, a hasher and a token issuer.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"golang.org/x/sync/errgroup"
)

// TokenIssuer signs claims with a secret for the given lifetime.
type TokenIssuer interface {
	Sign(claims auth.Claims, secret []byte, ttl time.Duration) (string, error)
}

// Hasher produces salted adaptive hashes and verifies data against them.
type Hasher interface {
	Hash(data string) (string, error)
	Compare(hash, data string) (bool, error)
}

// TokenSettings are the per-token secrets and lifetimes.
type TokenSettings struct {
	AccessSecret  []byte
	AccessTTL     time.Duration
	RefreshSecret []byte
	RefreshTTL    time.Duration
}

// UserService provides the authentication operations. It keeps no state
// between calls apart from what the repository stores.
type UserService struct {
	repo   users.Repository
	issuer TokenIssuer
	hasher Hasher
	tokens TokenSettings
	logger logging.Logger
}

// NewUserService wires the workflow to its collaborators.
func NewUserService(repo users.Repository, issuer TokenIssuer, hasher Hasher, tokens TokenSettings, logger logging.Logger) *UserService {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &UserService{
		repo:   repo,
		issuer: issuer,
		hasher: hasher,
		tokens: tokens,
		logger: logger.With("module", "user_service"),
	}
}

// Signup registers email with password and opens a session for it.
// An email that is already registered yields common.ErrDuplicateEmail and
// no tokens.
func (s *UserService) Signup(ctx context.Context, email, password string) (*models.TokenPair, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := s.repo.Create(ctx, &models.User{Email: email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			s.logger.Debug(ctx, "signup rejected: email taken")
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	pair, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user signed up", "user_id", user.ID)
	return pair, nil
}

// Signin verifies the password of email and opens a new session, replacing
// any previous one.
func (s *UserService) Signin(ctx context.Context, email, password string) (*models.TokenPair, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Debug(ctx, "signin rejected: unknown email")
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	ok, err := s.hasher.Compare(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("error verifying password: %w", err)
	}
	if !ok {
		s.logger.Debug(ctx, "signin rejected: wrong password", "user_id", user.ID)
		return nil, common.ErrInvalidCredentials
	}

	pair, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user signed in", "user_id", user.ID)
	return pair, nil
}

// Logout clears the stored refresh-token hash of userID. It succeeds for
// users without a session and for unknown ids alike.
func (s *UserService) Logout(ctx context.Context, userID int64) (bool, error) {
	if err := s.repo.SetRefreshTokenHash(ctx, userID, nil); err != nil {
		return false, fmt.Errorf("error clearing refresh token: %w", err)
	}

	s.logger.Info(ctx, "user logged out", "user_id", userID)
	return true, nil
}

// Refresh exchanges the current refresh token of userID for a new pair.
// The presented token stops working as soon as the new one is stored.
func (s *UserService) Refresh(ctx context.Context, userID int64, refreshToken string) (*models.TokenPair, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Debug(ctx, "refresh rejected: unknown user", "user_id", userID)
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	if !user.HasSession() {
		s.logger.Debug(ctx, "refresh rejected: no active session", "user_id", userID)
		return nil, common.ErrUserNotFound
	}

	ok, err := s.hasher.Compare(*user.RefreshTokenHash, tokenDigest(refreshToken))
	if err != nil {
		return nil, fmt.Errorf("error verifying refresh token: %w", err)
	}
	if !ok {
		s.logger.Debug(ctx, "refresh rejected: token mismatch", "user_id", userID)
		return nil, common.ErrAccessDenied
	}

	pair, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "tokens refreshed", "user_id", user.ID)
	return pair, nil
}

// openSession issues a pair for user and stores the hash of its refresh token.
func (s *UserService) openSession(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	pair, err := s.generateTokenPair(user)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(tokenDigest(pair.RefreshToken))
	if err != nil {
		return nil, fmt.Errorf("error hashing refresh token: %w", err)
	}
	if err := s.repo.SetRefreshTokenHash(ctx, user.ID, &hash); err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}

	return pair, nil
}

// generateTokenPair signs both tokens concurrently and waits for both.
func (s *UserService) generateTokenPair(user *models.User) (*models.TokenPair, error) {
	claims := auth.NewClaims(user.ID, user.Email)
	pair := &models.TokenPair{}

	var g errgroup.Group
	g.Go(func() error {
		t, err := s.issuer.Sign(claims, s.tokens.AccessSecret, s.tokens.AccessTTL)
		if err != nil {
			return fmt.Errorf("error signing access token: %w", err)
		}
		pair.AccessToken = t
		return nil
	})
	g.Go(func() error {
		t, err := s.issuer.Sign(claims, s.tokens.RefreshSecret, s.tokens.RefreshTTL)
		if err != nil {
			return fmt.Errorf("error signing refresh token: %w", err)
		}
		pair.RefreshToken = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return pair, nil
}

// tokenDigest shrinks a refresh token below bcrypt's 72-byte input limit
// while keeping every byte of it significant.
func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
