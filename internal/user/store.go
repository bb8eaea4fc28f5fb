package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	return Store{db: db}
}

func (s Store) Register(ctx context.Context, username, email, password string) (User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" || password == "" {
		return User{}, errors.New("username, email and password are required")
	}

	var existing int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE username = ? OR email = ?;`, username, email).Scan(&existing); err != nil {
		return User{}, fmt.Errorf("check existing user: %w", err)
	}
	if existing > 0 {
		return User{}, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	query := `
INSERT INTO users (id, username, email, password_hash)
VALUES (?, ?, ?, ?)
RETURNING id, username, email, created_at, updated_at;`

	var out User
	if err := s.db.QueryRowContext(ctx, query, uuid.NewString(), username, email, string(hash)).Scan(
		&out.ID,
		&out.Username,
		&out.Email,
		&out.CreatedAt,
		&out.UpdatedAt,
	); err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return out, nil
}

// Authenticate verifies a username/password pair. Both unknown usernames and
// wrong passwords map onto ErrInvalidCredentials so callers cannot probe for
// registered names.
func (s Store) Authenticate(ctx context.Context, username, password string) (User, error) {
	query := `SELECT id, username, email, password_hash, created_at, updated_at FROM users WHERE username = ? LIMIT 1;`

	var out User
	var hash string
	err := s.db.QueryRowContext(ctx, query, strings.TrimSpace(username)).Scan(
		&out.ID,
		&out.Username,
		&out.Email,
		&hash,
		&out.CreatedAt,
		&out.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return out, nil
}

func (s Store) ByID(ctx context.Context, id string) (User, error) {
	query := `SELECT id, username, email, created_at, updated_at FROM users WHERE id = ? LIMIT 1;`

	var out User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&out.ID,
		&out.Username,
		&out.Email,
		&out.CreatedAt,
		&out.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("user by id: %w", err)
	}
	return out, nil
}
