package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/coursedesk/courseapi/internal/models"
)

// CreateUser inserts a user and fills in the generated id and
// timestamps. The password field must already be hashed.
func (p *Postgres) CreateUser(ctx context.Context, user *models.User) error {
	const query = `
		INSERT INTO users (first_name, last_name, email_address, password)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := p.Pool.QueryRow(ctx, query,
		user.FirstName,
		user.LastName,
		user.EmailAddress,
		user.Password,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if cerr := constraintError(err); cerr != err {
			return cerr
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetUserByEmail returns the user with the given email address.
// Email addresses are not unique; the lowest id wins, matching the
// authenticator's "exactly one" lookup.
func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `
		SELECT id, first_name, last_name, email_address, password, created_at, updated_at
		FROM users
		WHERE email_address = $1
		ORDER BY id
		LIMIT 1`

	var user models.User
	err := p.Pool.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.EmailAddress,
		&user.Password,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user by email: %w", err)
	}

	return &user, nil
}
