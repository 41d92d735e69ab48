package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fingle/internal/model"
)

// UserRepository handles user data persistence.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, username, avatar_url, total_score, is_banned, email_verified, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.AvatarURL,
		&user.TotalScore,
		&user.IsBanned,
		&user.EmailVerified,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by id.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// EnsureUser returns the user with the given username, creating it when it
// does not exist. The boolean reports whether a row was created.
func (r *UserRepository) EnsureUser(ctx context.Context, username string, emailVerified bool) (*model.User, bool, error) {
	user, err := r.GetByUsername(ctx, username)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	query := `
		INSERT INTO users (id, username, email_verified)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns

	user, err = scanUser(r.pool.QueryRow(ctx, query, uuid.NewString(), username, emailVerified))
	if err != nil {
		if isUniqueViolation(err) {
			// Lost a race with a concurrent insert of the same username.
			user, err = r.GetByUsername(ctx, username)
			if err != nil {
				return nil, false, err
			}
			return user, false, nil
		}
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}
	return user, true, nil
}

// SetBanned updates a user's ban flag. The identity service owns bans in
// production; this exists for tests.
func (r *UserRepository) SetBanned(ctx context.Context, id string, banned bool) error {
	result, err := r.pool.Exec(ctx, `UPDATE users SET is_banned = $2 WHERE id = $1`, id, banned)
	if err != nil {
		return fmt.Errorf("failed to update ban flag: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
