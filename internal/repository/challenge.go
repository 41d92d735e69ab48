package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fingle/internal/game"
	"fingle/internal/model"
)

// ChallengeRepository handles challenge persistence and feed queries.
type ChallengeRepository struct {
	pool *pgxpool.Pool
}

// NewChallengeRepository creates a new ChallengeRepository instance.
func NewChallengeRepository(pool *pgxpool.Pool) *ChallengeRepository {
	return &ChallengeRepository{pool: pool}
}

const challengeColumns = `c.id, c.sender_id, c.receiver_id, c.photo_url, c.finger_count, c.which_fingers, c.seen, c.created_at`

// Create inserts a new unseen challenge and fills in its id and creation time.
func (r *ChallengeRepository) Create(ctx context.Context, c *model.Challenge) error {
	const query = `
		INSERT INTO challenges (id, sender_id, receiver_id, photo_url, finger_count, which_fingers)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	id := uuid.NewString()
	err := r.pool.QueryRow(ctx, query,
		id, c.SenderID, c.ReceiverID, c.PhotoURL, c.FingerCount, c.WhichFingers.Strings(),
	).Scan(&c.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create challenge: %w", err)
	}

	c.ID = id
	c.Seen = false
	return nil
}

// GetByID retrieves a challenge including its secret.
// Returns ErrChallengeNotFound if it does not exist.
func (r *ChallengeRepository) GetByID(ctx context.Context, id string) (*model.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges c WHERE c.id = $1`

	var c model.Challenge
	var fingers []string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.SenderID, &c.ReceiverID, &c.PhotoURL,
		&c.FingerCount, &fingers, &c.Seen, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	if c.WhichFingers, err = game.ParseFingerSet(fingers); err != nil {
		return nil, fmt.Errorf("corrupt fingers on challenge %s: %w", id, err)
	}
	return &c, nil
}

// ListReceived returns the challenges sent to userID, newest first, with
// the sender's profile and the guess when one exists.
func (r *ChallengeRepository) ListReceived(ctx context.Context, userID string) ([]*model.ChallengeView, error) {
	return r.listFeed(ctx, userID, "c.receiver_id", "c.sender_id", true)
}

// ListSent returns the challenges sent by userID, newest first, with the
// receiver's profile and the guess when one exists.
func (r *ChallengeRepository) ListSent(ctx context.Context, userID string) ([]*model.ChallengeView, error) {
	return r.listFeed(ctx, userID, "c.sender_id", "c.receiver_id", false)
}

func (r *ChallengeRepository) listFeed(ctx context.Context, userID, ownerCol, peerCol string, peerIsSender bool) ([]*model.ChallengeView, error) {
	query := `
		SELECT ` + challengeColumns + `,
			u.id, u.username, u.avatar_url,
			g.id, g.user_id, g.finger_count_guess, g.which_fingers_guess,
			g.is_count_correct, g.is_fingers_correct, g.points, g.created_at
		FROM challenges c
		JOIN users u ON u.id = ` + peerCol + `
		LEFT JOIN guesses g ON g.challenge_id = c.id
		WHERE ` + ownerCol + ` = $1
		ORDER BY c.created_at DESC, c.id DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	defer rows.Close()

	var views []*model.ChallengeView
	for rows.Next() {
		view, err := scanChallengeView(rows, peerIsSender)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating challenges: %w", err)
	}
	return views, nil
}

func scanChallengeView(rows pgx.Rows, peerIsSender bool) (*model.ChallengeView, error) {
	var (
		view    model.ChallengeView
		peer    model.PublicUser
		fingers []string

		guessID        *string
		guessUserID    *string
		guessCount     *int
		guessFingers   []string
		countCorrect   *bool
		fingersCorrect *bool
		points         *int
		guessedAt      *time.Time
	)

	err := rows.Scan(
		&view.ID, &view.SenderID, &view.ReceiverID, &view.PhotoURL,
		&view.FingerCount, &fingers, &view.Seen, &view.CreatedAt,
		&peer.ID, &peer.Username, &peer.AvatarURL,
		&guessID, &guessUserID, &guessCount, &guessFingers,
		&countCorrect, &fingersCorrect, &points, &guessedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan challenge: %w", err)
	}

	if view.WhichFingers, err = game.ParseFingerSet(fingers); err != nil {
		return nil, fmt.Errorf("corrupt fingers on challenge %s: %w", view.ID, err)
	}
	if peerIsSender {
		view.Sender = &peer
	} else {
		view.Receiver = &peer
	}

	if guessID != nil {
		guessed, err := game.ParseFingerSet(guessFingers)
		if err != nil {
			return nil, fmt.Errorf("corrupt fingers on guess %s: %w", *guessID, err)
		}
		view.Guess = &model.Guess{
			ID:                *guessID,
			ChallengeID:       view.ID,
			UserID:            *guessUserID,
			FingerCountGuess:  *guessCount,
			WhichFingersGuess: guessed,
			IsCountCorrect:    *countCorrect,
			IsFingersCorrect:  *fingersCorrect,
			Points:            *points,
			CreatedAt:         *guessedAt,
		}
	}
	return &view, nil
}
