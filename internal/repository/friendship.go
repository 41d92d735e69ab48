package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"fingle/internal/model"
)

// FriendshipRepository reads the friend graph. Request and accept workflows
// belong to the identity service; this repository only answers membership
// questions and seeds accepted pairs.
type FriendshipRepository struct {
	pool *pgxpool.Pool
}

// NewFriendshipRepository creates a new FriendshipRepository instance.
func NewFriendshipRepository(pool *pgxpool.Pool) *FriendshipRepository {
	return &FriendshipRepository{pool: pool}
}

// IsAcceptedFriend reports whether a and b share an ACCEPTED friendship,
// regardless of who initiated it.
func (r *FriendshipRepository) IsAcceptedFriend(ctx context.Context, a, b string) (bool, error) {
	const query = `
		SELECT EXISTS(
			SELECT 1 FROM friendships
			WHERE status = 'ACCEPTED'
			  AND ((initiator_id = $1 AND receiver_id = $2)
			    OR (initiator_id = $2 AND receiver_id = $1))
		)
	`

	var ok bool
	if err := r.pool.QueryRow(ctx, query, a, b).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check friendship: %w", err)
	}
	return ok, nil
}

// AcceptedFriendIDs returns the ids of every user with an ACCEPTED
// friendship to userID.
func (r *FriendshipRepository) AcceptedFriendIDs(ctx context.Context, userID string) ([]string, error) {
	const query = `
		SELECT CASE WHEN initiator_id = $1 THEN receiver_id ELSE initiator_id END
		FROM friendships
		WHERE status = 'ACCEPTED'
		  AND (initiator_id = $1 OR receiver_id = $1)
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan friend id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating friends: %w", err)
	}
	return ids, nil
}

// EnsureFriendship records a friendship between the pair with the given
// status. An existing row for the pair, in either direction, is updated
// to the new status.
func (r *FriendshipRepository) EnsureFriendship(ctx context.Context, initiatorID, receiverID string, status model.FriendshipStatus) error {
	const query = `
		INSERT INTO friendships (initiator_id, receiver_id, status)
		VALUES ($1, $2, $3)
		ON CONFLICT ((LEAST(initiator_id, receiver_id)), (GREATEST(initiator_id, receiver_id)))
		DO UPDATE SET status = EXCLUDED.status
	`

	if _, err := r.pool.Exec(ctx, query, initiatorID, receiverID, string(status)); err != nil {
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to ensure friendship: %w", err)
	}
	return nil
}
