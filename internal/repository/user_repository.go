package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/booksphere/internal/model"
	"github.com/iliyamo/booksphere/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,username,email,password_hash,role,is_active,created_at,updated_at"

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// UsernameKey is the case-folded form used for uniqueness checks.
func UsernameKey(username string) string { return strings.ToLower(strings.TrimSpace(username)) }

// Create hashes the password and inserts the user.  A collision on the
// username key or email returns ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, username, email, password string, role model.Role, cost int) (model.User, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}
	u := model.User{
		Username:     strings.TrimSpace(username),
		Email:        NormalizeEmail(email),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now(),
	}
	u.UpdatedAt = u.CreatedAt
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, username_key, email, password_hash, role, is_active, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?)",
		u.Username, UsernameKey(u.Username), u.Email, u.PasswordHash, string(u.Role), u.IsActive, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return model.User{}, mapConstraint(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	u.ID = uint64(id)
	return u, nil
}

// UsernameTaken reports whether a user with the same case-folded
// username exists.
func (r *UserRepo) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE username_key=?", UsernameKey(username)).Scan(&n)
	return n > 0, err
}

// EmailTaken reports whether the normalized email is already registered.
func (r *UserRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email=?", NormalizeEmail(email)).Scan(&n)
	return n > 0, err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// SetActive enables or disables an account.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_active=?, updated_at=? WHERE id=?", active, now(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var (
		u    model.User
		role string
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.Role = model.ParseRole(role)
	return u, nil
}
