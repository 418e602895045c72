package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nabahlab/nabah/internal/models"
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Insert(ctx context.Context, u *models.User) error {
	query := r.db.rebind(`
		INSERT INTO users (id, username, email, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)

	_, err := r.db.conn.ExecContext(ctx, query,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := r.db.rebind(`
		SELECT id, username, email, password_hash, role, created_at
		FROM users WHERE id = ?`)

	u := &models.User{}
	err := r.db.conn.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetByLogin finds a user by username or email, the combined lookup the
// sign-in form uses.
func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	query := r.db.rebind(`
		SELECT id, username, email, password_hash, role, created_at
		FROM users WHERE username = ? OR email = ?`)

	u := &models.User{}
	err := r.db.conn.QueryRowContext(ctx, query, login, login).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := r.db.rebind(`
		SELECT id, username, email, password_hash, role, created_at
		FROM users WHERE email = ?`)

	u := &models.User{}
	err := r.db.conn.QueryRowContext(ctx, query, email).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}
