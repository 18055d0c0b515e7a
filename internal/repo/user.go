package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/crucial707/tools-sys/internal/db"
	"github.com/crucial707/tools-sys/internal/models"
)

// ==========================
// UserRepo
// ==========================
type UserRepo struct {
	DB *db.DB
}

// ==========================
// Constructor
// ==========================
func NewUserRepo(database *db.DB) *UserRepo {
	return &UserRepo{DB: database}
}

// ==========================
// Create User
// ==========================
func (r *UserRepo) Create(ctx context.Context, username, passwordHash string, isAdmin bool) (*models.User, error) {
	query := r.DB.Rebind(`
		INSERT INTO users (username, password_hash, is_admin)
		VALUES (?, ?, ?)
		RETURNING id, username, is_admin, created_at
	`)

	user := &models.User{PasswordHash: passwordHash}

	err := r.DB.QueryRowContext(ctx, query, username, passwordHash, isAdmin).
		Scan(&user.ID, &user.Username, &user.IsAdmin, &user.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("create user %q: %w", username, ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// ==========================
// Get By ID
// ==========================
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := r.DB.Rebind(`
		SELECT id, username, password_hash, is_admin, created_at
		FROM users
		WHERE id = ?
	`)
	return r.scanOne(r.DB.QueryRowContext(ctx, query, id))
}

// ==========================
// Get By Username
// ==========================

// GetByUsername matches the username exactly. A missing user yields ErrNotFound.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := r.DB.Rebind(`
		SELECT id, username, password_hash, is_admin, created_at
		FROM users
		WHERE username = ?
	`)
	return r.scanOne(r.DB.QueryRowContext(ctx, query, username))
}

func (r *UserRepo) scanOne(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.IsAdmin, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// ==========================
// List Users
// ==========================
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	query := r.DB.Rebind(`
		SELECT id, username, is_admin, created_at
		FROM users
		ORDER BY id
		LIMIT ? OFFSET ?
	`)
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.IsAdmin, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// Count returns the total number of users.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}
