package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fingle/internal/game"
	"fingle/internal/model"
)

// GuessRepository handles guess persistence and the guess commit transaction.
type GuessRepository struct {
	pool *pgxpool.Pool
}

// NewGuessRepository creates a new GuessRepository instance.
func NewGuessRepository(pool *pgxpool.Pool) *GuessRepository {
	return &GuessRepository{pool: pool}
}

// GetByChallengeID returns the guess for a challenge, or nil if none exists.
func (r *GuessRepository) GetByChallengeID(ctx context.Context, challengeID string) (*model.Guess, error) {
	const query = `
		SELECT id, challenge_id, user_id, finger_count_guess, which_fingers_guess,
			is_count_correct, is_fingers_correct, points, created_at
		FROM guesses
		WHERE challenge_id = $1
	`

	var g model.Guess
	var fingers []string
	err := r.pool.QueryRow(ctx, query, challengeID).Scan(
		&g.ID, &g.ChallengeID, &g.UserID, &g.FingerCountGuess, &fingers,
		&g.IsCountCorrect, &g.IsFingersCorrect, &g.Points, &g.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get guess: %w", err)
	}
	if g.WhichFingersGuess, err = game.ParseFingerSet(fingers); err != nil {
		return nil, fmt.Errorf("corrupt fingers on guess %s: %w", g.ID, err)
	}
	return &g, nil
}

// Commit records g, marks its challenge seen and credits g.Points to the
// guesser in a single transaction. Nothing is written unless all three
// succeed.
//
// The unique constraint on guesses.challenge_id decides concurrent commits
// for the same challenge: the loser gets ErrGuessExists. The score is
// incremented in place, so concurrent commits by one user never lose points.
func (r *GuessRepository) Commit(ctx context.Context, g *model.Guess) error {
	const insertGuess = `
		INSERT INTO guesses (id, challenge_id, user_id, finger_count_guess, which_fingers_guess,
			is_count_correct, is_fingers_correct, points)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	const markSeen = `UPDATE challenges SET seen = TRUE WHERE id = $1 AND receiver_id = $2`
	const creditScore = `UPDATE users SET total_score = total_score + $2 WHERE id = $1`

	id := uuid.NewString()
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insertGuess,
			id, g.ChallengeID, g.UserID, g.FingerCountGuess, g.WhichFingersGuess.Strings(),
			g.IsCountCorrect, g.IsFingersCorrect, g.Points,
		).Scan(&g.CreatedAt)
		if err != nil {
			switch {
			case isUniqueViolation(err):
				return ErrGuessExists
			case isForeignKeyViolation(err):
				return ErrChallengeNotFound
			}
			return fmt.Errorf("failed to insert guess: %w", err)
		}

		result, err := tx.Exec(ctx, markSeen, g.ChallengeID, g.UserID)
		if err != nil {
			return fmt.Errorf("failed to mark challenge seen: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrChallengeNotFound
		}

		result, err = tx.Exec(ctx, creditScore, g.UserID, g.Points)
		if err != nil {
			return fmt.Errorf("failed to credit score: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	g.ID = id
	return nil
}
