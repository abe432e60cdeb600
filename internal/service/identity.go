package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/booksphere/internal/model"
	"github.com/iliyamo/booksphere/internal/repository"
	"github.com/iliyamo/booksphere/internal/utils"
)

// NewUser is the registration input shared by users and admins.
type NewUser struct {
	Username string `json:"username" validate:"required,max=150,username"`
	Email    string `json:"email" validate:"required,max=254,email"`
	Password string `json:"password" validate:"required,max=128"`
}

// UserStore is the persistence the identity service needs.
type UserStore interface {
	Create(ctx context.Context, username, email, password string, role model.Role, cost int) (model.User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

// IdentityService registers users and admins.
type IdentityService struct {
	log         zerolog.Logger
	users       UserStore
	bcryptCost  int
	adminSecret string
}

// NewIdentityService wires the identity store.  An empty adminSecret
// disables admin registration.
func NewIdentityService(log zerolog.Logger, users UserStore, bcryptCost int, adminSecret string) *IdentityService {
	return &IdentityService{
		log:         log.With().Str("component", "identity").Logger(),
		users:       users,
		bcryptCost:  bcryptCost,
		adminSecret: adminSecret,
	}
}

// CreateUser registers a regular user.
func (s *IdentityService) CreateUser(ctx context.Context, in NewUser) (model.User, error) {
	return s.create(ctx, in, model.RoleUser)
}

// CreateAdmin registers an admin after checking the shared secret.  The
// secret is verified before anything else so a wrong key has no side
// effect at all.
func (s *IdentityService) CreateAdmin(ctx context.Context, in NewUser, secretKey string) (model.User, error) {
	const op = "identity.CreateAdmin"
	if !utils.SecretEqual(s.adminSecret, secretKey) {
		s.log.Warn().Str("op", op).Msg("admin registration rejected: bad secret")
		return model.User{}, &Error{Kind: KindForbidden, Message: "invalid admin key", Err: ErrBadAdminSecret}
	}
	return s.create(ctx, in, model.RoleAdmin)
}

func (s *IdentityService) create(ctx context.Context, in NewUser, role model.Role) (model.User, error) {
	const op = "identity.create"
	log := s.log.With().Str("op", op).Str("role", string(role)).Logger()

	in.Email = repository.NormalizeEmail(in.Email)
	if err := check(in); err != nil {
		return model.User{}, err
	}

	taken, err := s.users.UsernameTaken(ctx, in.Username)
	if err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if taken {
		return model.User{}, validationError("a user with that username already exists",
			map[string]string{"username": "a user with that username already exists"})
	}
	taken, err = s.users.EmailTaken(ctx, in.Email)
	if err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if taken {
		return model.User{}, validationError("a user with that email already exists",
			map[string]string{"email": "a user with that email already exists"})
	}

	u, err := s.users.Create(ctx, in.Username, in.Email, in.Password, role, s.bcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// lost a race with a concurrent registration
			return model.User{}, validationError("a user with that username or email already exists", nil)
		}
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return model.User{}, validationError("invalid input",
				map[string]string{"password": "ensure this field has no more than 72 bytes"})
		}
		log.Error().Err(err).Msg("failed to save user")
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info().Uint64("user_id", u.ID).Msg("user registered")
	return u, nil
}

// GetUser loads a user by id.
func (s *IdentityService) GetUser(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, notFound("user not found")
	}
	if err != nil {
		return model.User{}, fmt.Errorf("identity.GetUser: %w", err)
	}
	return u, nil
}
