package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/booksphere/internal/metrics"
	"github.com/iliyamo/booksphere/internal/model"
	"github.com/iliyamo/booksphere/internal/repository"
	"github.com/iliyamo/booksphere/internal/utils"
)

// TokenStore is the persistence the gateway needs for bearer tokens.
type TokenStore interface {
	GetByUser(ctx context.Context, userID uint64) (model.AuthToken, error)
	Insert(ctx context.Context, t model.AuthToken) error
	ReplaceExpired(ctx context.Context, oldTokenID string, t model.AuthToken) error
	DeleteByUser(ctx context.Context, userID uint64) error
}

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	UserID    uint64     `json:"user_id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
}

// AuthService is the authentication gateway: it checks credentials,
// issues one bearer token per user and resolves tokens to principals.
type AuthService struct {
	log      zerolog.Logger
	users    UserStore
	tokens   TokenStore
	secret   string
	tokenTTL time.Duration
	now      func() time.Time
}

func NewAuthService(log zerolog.Logger, users UserStore, tokens TokenStore, secret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		log:      log.With().Str("component", "auth").Logger(),
		users:    users,
		tokens:   tokens,
		secret:   secret,
		tokenTTL: tokenTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func invalidCredentials(cause error) *Error {
	return &Error{Kind: KindInvalidCredentials, Message: "invalid credentials", Err: cause}
}

// Login verifies email and password and returns the user's token.  An
// unknown email and a wrong password produce the same client message;
// only the wrapped cause and the logs tell them apart.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	const op = "auth.Login"
	log := s.log.With().Str("op", op).Logger()

	email = repository.NormalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, validationError(`must include "email" and "password"`, nil)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.BurnPasswordCheck(password)
			log.Warn().Msg("login for unknown email")
			metrics.LoginAttempts.WithLabelValues("unknown_user").Inc()
			return LoginResult{}, invalidCredentials(ErrUserNotFound)
		}
		log.Error().Err(err).Msg("failed to get user")
		return LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if !utils.VerifyPassword(u.PasswordHash, password) {
		log.Warn().Uint64("user_id", u.ID).Msg("password mismatch")
		metrics.LoginAttempts.WithLabelValues("bad_password").Inc()
		return LoginResult{}, invalidCredentials(ErrBadPassword)
	}
	if !u.IsActive {
		metrics.LoginAttempts.WithLabelValues("disabled").Inc()
		return LoginResult{}, &Error{Kind: KindInvalidCredentials, Message: "user account is disabled", Err: ErrAccountDisabled}
	}

	tok, err := s.tokenFor(ctx, u)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", u.ID).Msg("failed to issue token")
		return LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}
	metrics.LoginAttempts.WithLabelValues("success").Inc()

	return LoginResult{
		Token:     tok.Token,
		ExpiresAt: tok.ExpiresAt,
		UserID:    u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
	}, nil
}

// tokenFor returns the user's live token, minting one when the user has
// none or only an expired one.
func (s *AuthService) tokenFor(ctx context.Context, u model.User) (model.AuthToken, error) {
	for attempt := 0; attempt < 3; attempt++ {
		existing, err := s.tokens.GetByUser(ctx, u.ID)
		switch {
		case err == nil && !existing.Expired(s.now()):
			return existing, nil
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return model.AuthToken{}, err
		}

		issued, ierr := s.mint(u)
		if ierr != nil {
			return model.AuthToken{}, ierr
		}
		if err == nil {
			err = s.tokens.ReplaceExpired(ctx, existing.TokenID, issued)
		} else {
			err = s.tokens.Insert(ctx, issued)
		}
		switch {
		case err == nil:
			return issued, nil
		case errors.Is(err, repository.ErrDuplicate), errors.Is(err, repository.ErrNotFound):
			// a concurrent login stored its token first; return that one
			continue
		default:
			return model.AuthToken{}, err
		}
	}
	return model.AuthToken{}, errors.New("token issue contention")
}

func (s *AuthService) mint(u model.User) (model.AuthToken, error) {
	at, err := utils.NewAccessToken(s.secret, u.ID, string(u.Role), s.tokenTTL)
	if err != nil {
		return model.AuthToken{}, err
	}
	return model.AuthToken{
		UserID:    u.ID,
		TokenID:   at.ID,
		Token:     at.Token,
		CreatedAt: s.now().Truncate(time.Second),
		ExpiresAt: at.Exp,
	}, nil
}

// Authenticate resolves a raw bearer token to a principal.  The token
// must verify, be unexpired, match the row stored for its user and
// belong to an active account.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (Principal, error) {
	const op = "auth.Authenticate"
	claims, err := utils.ParseAccessToken(s.secret, raw)
	if err != nil {
		return Principal{}, unauthenticated("invalid token")
	}
	uid, err := claims.UserID()
	if err != nil {
		return Principal{}, unauthenticated("invalid token")
	}

	stored, err := s.tokens.GetByUser(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Principal{}, unauthenticated("invalid token")
		}
		return Principal{}, fmt.Errorf("%s: %w", op, err)
	}
	if stored.TokenID != claims.ID || stored.Expired(s.now()) {
		return Principal{}, unauthenticated("invalid token")
	}

	u, err := s.users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Principal{}, unauthenticated("invalid token")
		}
		return Principal{}, fmt.Errorf("%s: %w", op, err)
	}
	if !u.IsActive {
		return Principal{}, unauthenticated("user inactive or deleted")
	}
	return PrincipalOf(u), nil
}

// Logout revokes the principal's token.
func (s *AuthService) Logout(ctx context.Context, p Principal) error {
	if !p.Authenticated() {
		return unauthenticated("authentication required")
	}
	if err := s.tokens.DeleteByUser(ctx, p.UserID); err != nil {
		return fmt.Errorf("auth.Logout: %w", err)
	}
	s.log.Info().Str("op", "auth.Logout").Uint64("user_id", p.UserID).Msg("token revoked")
	return nil
}
