package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fingle/internal/model"
)

// LeaderboardRepository computes ranked standings. Ties on score are
// broken by ascending user id so repeated queries return the same order.
//
// A nil userIDs slice means every user; a non-nil slice restricts the
// result to those ids.
type LeaderboardRepository struct {
	pool *pgxpool.Pool
}

// NewLeaderboardRepository creates a new LeaderboardRepository instance.
func NewLeaderboardRepository(pool *pgxpool.Pool) *LeaderboardRepository {
	return &LeaderboardRepository{pool: pool}
}

// TopByTotalScore ranks users by their running total score.
func (r *LeaderboardRepository) TopByTotalScore(ctx context.Context, userIDs []string, limit int) ([]*model.LeaderboardEntry, error) {
	const query = `
		SELECT id, username, avatar_url, total_score
		FROM users
		WHERE $1::text[] IS NULL OR id = ANY($1)
		ORDER BY total_score DESC, id ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}
	return collectEntries(rows)
}

// TopByPointsSince ranks users by the points of guesses created at or after
// since. Users without guesses in the window are omitted.
func (r *LeaderboardRepository) TopByPointsSince(ctx context.Context, since time.Time, userIDs []string, limit int) ([]*model.LeaderboardEntry, error) {
	const query = `
		SELECT u.id, u.username, u.avatar_url, SUM(g.points)::BIGINT AS score
		FROM guesses g
		JOIN users u ON u.id = g.user_id
		WHERE g.created_at >= $1
		  AND ($2::text[] IS NULL OR g.user_id = ANY($2))
		GROUP BY u.id, u.username, u.avatar_url
		ORDER BY score DESC, u.id ASC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, since, userIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get windowed leaderboard: %w", err)
	}
	return collectEntries(rows)
}

func collectEntries(rows pgx.Rows) ([]*model.LeaderboardEntry, error) {
	defer rows.Close()

	entries := []*model.LeaderboardEntry{}
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.AvatarURL, &e.Score); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}
	return entries, nil
}
