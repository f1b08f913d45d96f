// Package repository provides PostgreSQL persistence for users, their live
// tallies and archived day reports.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/teashop/internal/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// PostgresUserRepository implements user lookups and provisioning.
type PostgresUserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresUserRepository creates a PostgresUserRepository for db.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

// UserExists reports whether a user with the given id exists.
func (r *PostgresUserRepository) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`,
		id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("UserExists: %w", err)
	}
	return exists, nil
}

// GetUserByPhone fetches a user by normalized phone number.
// It returns ErrNotFound when no user has that phone.
func (r *PostgresUserRepository) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	var (
		u     models.User
		today []byte
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, phone, pin_hash, today, created_at FROM users WHERE phone = $1
	`, phone).Scan(&u.ID, &u.Phone, &u.PinHash, &today, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetUserByPhone: %w", err)
	}
	if u.Today, err = decodeTally(today); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user. The live tally starts empty.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, u models.User) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, phone, pin_hash, created_at) VALUES ($1, $2, $3, $4)
	`, u.ID, u.Phone, u.PinHash, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("CreateUser: %w", err)
	}
	return nil
}
