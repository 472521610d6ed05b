package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testTokens = TokenSettings{
	AccessSecret:  []byte("at-secret"),
	AccessTTL:     15 * time.Minute,
	RefreshSecret: []byte("rt-secret"),
	RefreshTTL:    7 * 24 * time.Hour,
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// --- fakes ---

// flakyRepo wraps the in-memory store and lets a test fail single methods.
type flakyRepo struct {
	*users.MemoryRepository
	createErr  error
	findErr    error
	setHashErr error
	setCalls   int
}

func (r *flakyRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	return r.MemoryRepository.Create(ctx, u)
}

func (r *flakyRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.MemoryRepository.FindByEmail(ctx, email)
}

func (r *flakyRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.MemoryRepository.FindByID(ctx, id)
}

func (r *flakyRepo) SetRefreshTokenHash(ctx context.Context, id int64, hash *string) error {
	r.setCalls++
	if r.setHashErr != nil {
		return r.setHashErr
	}
	return r.MemoryRepository.SetRefreshTokenHash(ctx, id, hash)
}

// failingIssuer fails when asked to sign with failSecret.
type failingIssuer struct {
	inner      TokenIssuer
	failSecret string
}

func (f *failingIssuer) Sign(c auth.Claims, secret []byte, ttl time.Duration) (string, error) {
	if string(secret) == f.failSecret {
		return "", errBoom{}
	}
	return f.inner.Sign(c, secret, ttl)
}

type failingHasher struct {
	hashErr    error
	compareErr error
}

func (f *failingHasher) Hash(string) (string, error)          { return "", f.hashErr }
func (f *failingHasher) Compare(string, string) (bool, error) { return false, f.compareErr }

// --- helpers ---

func newHasher(t *testing.T) *auth.BcryptHasher {
	t.Helper()
	h, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func newTestService(t *testing.T) (*UserService, *users.MemoryRepository) {
	t.Helper()
	repo := users.NewMemoryRepository()
	return NewUserService(repo, auth.NewJWTIssuer(), newHasher(t), testTokens, nil), repo
}

func decode(t *testing.T, token string, secret []byte) *auth.Claims {
	t.Helper()
	claims, err := auth.NewJWTIssuer().Parse(token, secret)
	require.NoError(t, err)
	return claims
}

func storedHash(t *testing.T, repo users.Repository, id int64) *string {
	t.Helper()
	u, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return u.RefreshTokenHash
}

// --- signup ---

func TestSignup_IssuesPairForNewUser(t *testing.T) {
	s, repo := newTestService(t)
	ctx := context.Background()

	pair, err := s.Signup(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	u, err := repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)

	for _, tc := range []struct {
		token  string
		secret []byte
		ttl    time.Duration
	}{
		{pair.AccessToken, testTokens.AccessSecret, testTokens.AccessTTL},
		{pair.RefreshToken, testTokens.RefreshSecret, testTokens.RefreshTTL},
	} {
		claims := decode(t, tc.token, tc.secret)
		id, err := claims.UserID()
		require.NoError(t, err)
		assert.Equal(t, u.ID, id)
		assert.Equal(t, "a@x.com", claims.Email)
		assert.WithinDuration(t, time.Now().Add(tc.ttl), claims.ExpiresAt.Time, 5*time.Second)
	}

	assert.NotEqual(t, "pw1", u.PasswordHash)
	assert.True(t, u.HasSession())
}

func TestSignup_TokensAreNotInterchangeable(t *testing.T) {
	s, _ := newTestService(t)

	pair, err := s.Signup(context.Background(), "a@x.com", "pw1")
	require.NoError(t, err)

	_, err = auth.NewJWTIssuer().Parse(pair.AccessToken, testTokens.RefreshSecret)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
	_, err = auth.NewJWTIssuer().Parse(pair.RefreshToken, testTokens.AccessSecret)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	s, repo := newTestService(t)
	ctx := context.Background()

	_, err := s.Signup(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	before, err := repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)

	pair, err := s.Signup(ctx, "a@x.com", "other")
	assert.ErrorIs(t, err, common.ErrDuplicateEmail)
	assert.Nil(t, pair)

	after, err := repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)
	assert.Equal(t, *before.RefreshTokenHash, *after.RefreshTokenHash)

	_, err = s.Signin(ctx, "a@x.com", "pw1")
	assert.NoError(t, err, "original password still works")
}

func TestSignup_HashErrorCreatesNothing(t *testing.T) {
	repo := users.NewMemoryRepository()
	s := NewUserService(repo, auth.NewJWTIssuer(), &failingHasher{hashErr: errBoom{}}, testTokens, nil)

	_, err := s.Signup(context.Background(), "a@x.com", "pw")
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom{})
	assert.False(t, common.IsRejection(err))

	_, err = repo.FindByEmail(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSignup_CreateErrorIsWrapped(t *testing.T) {
	repo := &flakyRepo{MemoryRepository: users.NewMemoryRepository(), createErr: errBoom{}}
	s := NewUserService(repo, auth.NewJWTIssuer(), newHasher(t), testTokens, nil)

	_, err := s.Signup(context.Background(), "a@x.com", "pw")
	require.Error(t, err)
	assert.Regexp(t, `error creating user: boom`, err.Error())
	assert.Zero(t, repo.setCalls)
}

func TestSignup_SigningFailureStoresNoSession(t *testing.T) {
	for _, secret := range []string{"at-secret", "rt-secret"} {
		t.Run(secret, func(t *testing.T) {
			repo := &flakyRepo{MemoryRepository: users.NewMemoryRepository()}
			issuer := &failingIssuer{inner: auth.NewJWTIssuer(), failSecret: secret}
			s := NewUserService(repo, issuer, newHasher(t), testTokens, nil)

			pair, err := s.Signup(context.Background(), "a@x.com", "pw")
			require.Error(t, err)
			assert.Nil(t, pair)
			assert.Zero(t, repo.setCalls, "no session stored after a failed signing")
		})
	}
}

// --- signin ---

func TestSignin(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.Signup(ctx, "a@x.com", "pw1")
	require.NoError(t, err)

	t.Run("correct password", func(t *testing.T) {
		pair, err := s.Signin(ctx, "a@x.com", "pw1")
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", decode(t, pair.AccessToken, testTokens.AccessSecret).Email)
	})

	for _, pw := range []string{"", "pw", "pw2", "PW1", "pw1 "} {
		t.Run(fmt.Sprintf("wrong password %q", pw), func(t *testing.T) {
			_, err := s.Signin(ctx, "a@x.com", pw)
			assert.ErrorIs(t, err, common.ErrInvalidCredentials)
		})
	}

	for _, pw := range []string{"pw1", "anything", ""} {
		t.Run(fmt.Sprintf("unknown email with %q", pw), func(t *testing.T) {
			_, err := s.Signin(ctx, "ghost@x.com", pw)
			assert.ErrorIs(t, err, common.ErrUserNotFound)
		})
	}
}

func TestSignin_InvalidatesPreviousRefreshToken(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	first, err := s.Signup(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	id, err := decode(t, first.RefreshToken, testTokens.RefreshSecret).UserID()
	require.NoError(t, err)

	second, err := s.Signin(ctx, "a@x.com", "pw1")
	require.NoError(t, err)

	_, err = s.Refresh(ctx, id, first.RefreshToken)
	assert.ErrorIs(t, err, common.ErrAccessDenied)

	_, err = s.Refresh(ctx, id, second.RefreshToken)
	assert.NoError(t, err)
}

func TestSignin_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("repository failure", func(t *testing.T) {
		repo := &flakyRepo{MemoryRepository: users.NewMemoryRepository(), findErr: errBoom{}}
		s := NewUserService(repo, auth.NewJWTIssuer(), newHasher(t), testTokens, nil)

		_, err := s.Signin(ctx, "a@x.com", "pw")
		require.Error(t, err)
		assert.Regexp(t, `error searching user: boom`, err.Error())
	})

	t.Run("compare failure", func(t *testing.T) {
		repo := users.NewMemoryRepository()
		_, err := repo.Create(ctx, &models.User{Email: "a@x.com", PasswordHash: "garbage"})
		require.NoError(t, err)
		s := NewUserService(repo, auth.NewJWTIssuer(), &failingHasher{compareErr: errBoom{}}, testTokens, nil)

		_, err = s.Signin(ctx, "a@x.com", "pw")
		require.Error(t, err)
		assert.False(t, common.IsRejection(err))
	})

	t.Run("signing failure keeps stored session", func(t *testing.T) {
		repo := &flakyRepo{MemoryRepository: users.NewMemoryRepository()}
		ok := NewUserService(repo, auth.NewJWTIssuer(), newHasher(t), testTokens, nil)
		pair, err := ok.Signup(ctx, "a@x.com", "pw")
		require.NoError(t, err)
		before := *storedHash(t, repo, 1)

		broken := NewUserService(repo, &failingIssuer{inner: auth.NewJWTIssuer(), failSecret: "rt-secret"}, newHasher(t), testTokens, nil)
		_, err = broken.Signin(ctx, "a@x.com", "pw")
		require.Error(t, err)

		assert.Equal(t, before, *storedHash(t, repo, 1))
		_, err = ok.Refresh(ctx, 1, pair.RefreshToken)
		assert.NoError(t, err)
	})

	t.Run("store failure", func(t *testing.T) {
		repo := &flakyRepo{MemoryRepository: users.NewMemoryRepository()}
		s := NewUserService(repo, auth.NewJWTIssuer(), newHasher(t), testTokens, nil)
		_, err := s.Signup(ctx, "a@x.com", "pw")
		require.NoError(t, err)

		repo.setHashErr = errBoom{}
		_, err = s.Signin(ctx, "a@x.com", "pw")
		require.Error(t, err)
		assert.Regexp(t, `error storing refresh token: boom`, err.Error())
	})
}

// --- logout ---

func TestLogout_IsIdempotent(t *testing.T) {
	s, repo := newTestService(t)
	ctx := context.Background()

	_, err := s.Signup(ctx, "a@x.com", "pw1")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		ok, err := s.Logout(ctx, 1)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Nil(t, storedHash(t, repo, 1))

	ok, err := s.Logout(ctx, 999)
	require.NoError(t, err)
	assert.True(t, ok, "unknown user still logs out")
}

func TestLogout_ThenRefreshFails(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	pair, err := s.Signup(ctx, "a@x.com", "pw1")
	require.NoError(t, err)

	_, err = s.Logout(ctx, 1)
	require.NoError(t, err)

	_, err = s.Refresh(ctx, 1, pair.RefreshToken)
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestLogout_StoreError(t *testing.T) {
	repo := &flakyRepo{MemoryRepository: users.NewMemoryRepository(), setHashErr: errBoom{}}
	s := NewUserService(repo, auth.NewJWTIssuer(), newHasher(t), testTokens, nil)

	ok, err := s.Logout(context.Background(), 1)
	require.Error(t, err)
	assert.False(t, ok)
}

// --- refresh ---

func TestRefresh_RotationScenario(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	t1, err := s.Signup(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	id, err := decode(t, t1.AccessToken, testTokens.AccessSecret).UserID()
	require.NoError(t, err)

	t2, err := s.Refresh(ctx, id, t1.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, t1.RefreshToken, t2.RefreshToken)

	_, err = s.Refresh(ctx, id, t1.RefreshToken)
	assert.ErrorIs(t, err, common.ErrAccessDenied, "T1 refresh token already consumed")

	t3, err := s.Refresh(ctx, id, t2.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", decode(t, t3.RefreshToken, testTokens.RefreshSecret).Email)
}

func TestRefresh_Rejections(t *testing.T) {
	s, repo := newTestService(t)
	ctx := context.Background()

	pair, err := s.Signup(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.User{Email: "nosession@x.com", PasswordHash: "h"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		userID  int64
		token   string
		wantErr error
	}{
		{"unknown user", 404, pair.RefreshToken, common.ErrUserNotFound},
		{"user without session", 2, pair.RefreshToken, common.ErrUserNotFound},
		{"access token presented as refresh", 1, pair.AccessToken, common.ErrAccessDenied},
		{"garbage token", 1, "not-a-token", common.ErrAccessDenied},
		{"empty token", 1, "", common.ErrAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Refresh(ctx, tt.userID, tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err = s.Refresh(ctx, 1, pair.RefreshToken)
	assert.NoError(t, err, "rejections must not consume the valid token")
}

func TestRefresh_LongTokensDifferingOnlyAtTheEnd(t *testing.T) {
	s, repo := newTestService(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, &models.User{Email: "a@x.com", PasswordHash: "h"})
	require.NoError(t, err)

	prefix := string(make([]byte, 200))
	hash, err := newHasher(t).Hash(tokenDigest(prefix + "A"))
	require.NoError(t, err)
	require.NoError(t, repo.SetRefreshTokenHash(ctx, 1, &hash))

	_, err = s.Refresh(ctx, 1, prefix+"B")
	assert.ErrorIs(t, err, common.ErrAccessDenied)

	_, err = s.Refresh(ctx, 1, prefix+"A")
	assert.NoError(t, err)
}

func TestRefresh_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("repository failure", func(t *testing.T) {
		repo := &flakyRepo{MemoryRepository: users.NewMemoryRepository(), findErr: errBoom{}}
		s := NewUserService(repo, auth.NewJWTIssuer(), newHasher(t), testTokens, nil)

		_, err := s.Refresh(ctx, 1, "t")
		require.Error(t, err)
		assert.False(t, errors.Is(err, common.ErrUserNotFound))
	})

	t.Run("compare failure", func(t *testing.T) {
		repo := users.NewMemoryRepository()
		_, err := repo.Create(ctx, &models.User{Email: "a@x.com", PasswordHash: "h"})
		require.NoError(t, err)
		h := "not-bcrypt"
		require.NoError(t, repo.SetRefreshTokenHash(ctx, 1, &h))
		s := NewUserService(repo, auth.NewJWTIssuer(), newHasher(t), testTokens, nil)

		_, err = s.Refresh(ctx, 1, "t")
		require.Error(t, err)
		assert.Regexp(t, `error verifying refresh token`, err.Error())
	})
}

func TestTokenDigest(t *testing.T) {
	d := tokenDigest("abc")
	assert.Len(t, d, 64)
	assert.Equal(t, d, tokenDigest("abc"))
	assert.NotEqual(t, d, tokenDigest("abd"))
}
