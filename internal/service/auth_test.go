package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/booksphere/internal/model"
	"github.com/iliyamo/booksphere/internal/service"
)

func register(t *testing.T, s *suite) (service.NewUser, model.User) {
	t.Helper()
	in := fakeUser()
	u, err := s.identity.CreateUser(context.Background(), in)
	require.NoError(t, err)
	return in, u
}

func TestLogin(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	in, u := register(t, s)

	res, err := s.auth.Login(ctx, " "+in.Email+" ", in.Password)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, u.ID, res.UserID)
	assert.Equal(t, u.Username, res.Username)
	assert.Equal(t, u.Email, res.Email)
	assert.Equal(t, model.RoleUser, res.Role)
	assert.True(t, res.ExpiresAt.After(time.Now()))
}

func TestLoginReturnsSameToken(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	in, _ := register(t, s)

	first, err := s.auth.Login(ctx, in.Email, in.Password)
	require.NoError(t, err)
	second, err := s.auth.Login(ctx, in.Email, in.Password)
	require.NoError(t, err)
	assert.Equal(t, first.Token, second.Token)
}

func TestLoginConcurrentFirstLoginsAgree(t *testing.T) {
	s := newSuite(t)
	in, _ := register(t, s)

	const n = 8
	tokens := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := s.auth.Login(context.Background(), in.Email, in.Password)
			tokens[i], errs[i] = res.Token, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, tokens[0], tokens[i])
	}
}

func TestLoginRotatesExpiredToken(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	in, u := register(t, s)

	past := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, s.tokens.Insert(ctx, model.AuthToken{
		UserID:    u.ID,
		TokenID:   "stale",
		Token:     "stale-token",
		CreatedAt: past.Add(-time.Hour),
		ExpiresAt: past,
	}))

	res, err := s.auth.Login(ctx, in.Email, in.Password)
	require.NoError(t, err)
	assert.NotEqual(t, "stale-token", res.Token)

	stored, err := s.tokens.GetByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Token, stored.Token)
}

func TestLoginFailures(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	in, u := register(t, s)

	t.Run("unknown email", func(t *testing.T) {
		_, err := s.auth.Login(ctx, "nobody@example.com", in.Password)
		requireKind(t, err, service.KindInvalidCredentials)
		assert.ErrorIs(t, err, service.ErrUserNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := s.auth.Login(ctx, in.Email, in.Password+"x")
		requireKind(t, err, service.KindInvalidCredentials)
		assert.ErrorIs(t, err, service.ErrBadPassword)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := s.auth.Login(ctx, "", "")
		requireKind(t, err, service.KindValidation)
	})

	t.Run("disabled account", func(t *testing.T) {
		require.NoError(t, s.users.SetActive(ctx, u.ID, false))
		t.Cleanup(func() { _ = s.users.SetActive(ctx, u.ID, true) })

		_, err := s.auth.Login(ctx, in.Email, in.Password)
		requireKind(t, err, service.KindInvalidCredentials)
		assert.ErrorIs(t, err, service.ErrAccountDisabled)
	})
}

func TestAuthenticate(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	in, u := register(t, s)

	res, err := s.auth.Login(ctx, in.Email, in.Password)
	require.NoError(t, err)

	p, err := s.auth.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.UserID)
	assert.Equal(t, model.RoleUser, p.Role)
	assert.False(t, p.IsAdmin())

	_, err = s.auth.Authenticate(ctx, "garbage")
	requireKind(t, err, service.KindUnauthenticated)

	other := service.NewAuthService(zerologNop(), s.users, s.tokens, "another-secret", time.Hour)
	_, err = other.Authenticate(ctx, res.Token)
	requireKind(t, err, service.KindUnauthenticated)
}

func TestAuthenticateRejectsDisabledUser(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	in, u := register(t, s)

	res, err := s.auth.Login(ctx, in.Email, in.Password)
	require.NoError(t, err)
	require.NoError(t, s.users.SetActive(ctx, u.ID, false))

	_, err = s.auth.Authenticate(ctx, res.Token)
	requireKind(t, err, service.KindUnauthenticated)
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	in, _ := register(t, s)

	res, err := s.auth.Login(ctx, in.Email, in.Password)
	require.NoError(t, err)
	p, err := s.auth.Authenticate(ctx, res.Token)
	require.NoError(t, err)

	require.NoError(t, s.auth.Logout(ctx, p))

	_, err = s.auth.Authenticate(ctx, res.Token)
	requireKind(t, err, service.KindUnauthenticated)

	again, err := s.auth.Login(ctx, in.Email, in.Password)
	require.NoError(t, err)
	assert.NotEqual(t, res.Token, again.Token)

	err = s.auth.Logout(ctx, service.Principal{})
	requireKind(t, err, service.KindUnauthenticated)
}
